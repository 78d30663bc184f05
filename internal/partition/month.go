// Package partition defines the monthly partition keys ("YYYY-MM") used to
// scope trending reads and to filter rows by publication month.
package partition

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"cloud.google.com/go/civil"
)

// KeyLayout is the time layout of a partition key.
const KeyLayout = "2006-01"

var keyPattern = regexp.MustCompile(`^(\d{4})-(\d{2})$`)

// ErrMalformedKey is returned for keys that are not YYYY-MM.
var ErrMalformedKey = errors.New("partition key must be YYYY-MM")

// Month is one calendar month partition.
type Month struct {
	Year  int
	Month time.Month
}

// ParseMonth parses a "YYYY-MM" partition key.
func ParseMonth(key string) (Month, error) {
	m := keyPattern.FindStringSubmatch(key)
	if m == nil {
		return Month{}, fmt.Errorf("%w: got %q", ErrMalformedKey, key)
	}
	year, _ := strconv.Atoi(m[1])
	mon, _ := strconv.Atoi(m[2])
	if mon < 1 || mon > 12 {
		return Month{}, fmt.Errorf("%w: month %02d out of range in %q", ErrMalformedKey, mon, key)
	}
	return Month{Year: year, Month: time.Month(mon)}, nil
}

// MonthOf returns the partition that contains t (evaluated in UTC).
func MonthOf(t time.Time) Month {
	t = t.UTC()
	return Month{Year: t.Year(), Month: t.Month()}
}

// Key renders the partition key.
func (m Month) Key() string { return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month)) }

// String implements fmt.Stringer.
func (m Month) String() string { return m.Key() }

// Start returns the first civil day of the month.
func (m Month) Start() civil.Date { return civil.Date{Year: m.Year, Month: m.Month, Day: 1} }

// End returns the first civil day of the following month (exclusive bound).
func (m Month) End() civil.Date { return m.Next().Start() }

// Next returns the following month.
func (m Month) Next() Month {
	if m.Month == time.December {
		return Month{Year: m.Year + 1, Month: time.January}
	}
	return Month{Year: m.Year, Month: m.Month + 1}
}

// Before reports whether m is strictly earlier than o.
func (m Month) Before(o Month) bool { return m.Start().Before(o.Start()) }

// Contains reports whether t's UTC year and month match m.
func (m Month) Contains(t time.Time) bool {
	d := civil.DateOf(t.UTC())
	return !d.Before(m.Start()) && d.Before(m.End())
}

// MonthlyPartitions describes a contiguous run of monthly partitions.
type MonthlyPartitions struct {
	Start Month
	// End is inclusive; the zero value means "up to the current month".
	End Month
}

// NewMonthlyPartitions builds a definition from "YYYY-MM" keys. An empty end
// key leaves the range open.
func NewMonthlyPartitions(startKey, endKey string) (MonthlyPartitions, error) {
	start, err := ParseMonth(startKey)
	if err != nil {
		return MonthlyPartitions{}, fmt.Errorf("NewMonthlyPartitions: start: %w", err)
	}
	def := MonthlyPartitions{Start: start}
	if endKey != "" {
		end, err := ParseMonth(endKey)
		if err != nil {
			return MonthlyPartitions{}, fmt.Errorf("NewMonthlyPartitions: end: %w", err)
		}
		if end.Before(start) {
			return MonthlyPartitions{}, fmt.Errorf("NewMonthlyPartitions: end %s before start %s", end, start)
		}
		def.End = end
	}
	return def, nil
}

func (p MonthlyPartitions) last(now time.Time) Month {
	if p.End != (Month{}) {
		return p.End
	}
	return MonthOf(now)
}

// Keys lists every partition key from Start to End (or now), inclusive.
func (p MonthlyPartitions) Keys(now time.Time) []string {
	last := p.last(now)
	var keys []string
	for m := p.Start; !last.Before(m); m = m.Next() {
		keys = append(keys, m.Key())
	}
	return keys
}

// Validate checks that key is well formed and inside the definition.
func (p MonthlyPartitions) Validate(key string, now time.Time) (Month, error) {
	m, err := ParseMonth(key)
	if err != nil {
		return Month{}, err
	}
	if m.Before(p.Start) || p.last(now).Before(m) {
		return Month{}, fmt.Errorf("partition %s outside %s..%s", key, p.Start, p.last(now))
	}
	return m, nil
}

// Range lists the keys from fromKey to toKey inclusive. Empty bounds default
// to the definition's start and last month.
func (p MonthlyPartitions) Range(fromKey, toKey string, now time.Time) ([]string, error) {
	from, to := p.Start, p.last(now)
	if fromKey != "" {
		m, err := p.Validate(fromKey, now)
		if err != nil {
			return nil, fmt.Errorf("Range: from: %w", err)
		}
		from = m
	}
	if toKey != "" {
		m, err := p.Validate(toKey, now)
		if err != nil {
			return nil, fmt.Errorf("Range: to: %w", err)
		}
		to = m
	}
	if to.Before(from) {
		return nil, fmt.Errorf("Range: %s before %s", to, from)
	}
	var keys []string
	for m := from; !to.Before(m); m = m.Next() {
		keys = append(keys, m.Key())
	}
	return keys, nil
}
