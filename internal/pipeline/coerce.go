package pipeline

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/youtube-trending/internal/dataset"
)

// CanonicalDateLayout is the layout raw dates are rewritten to before parsing.
const CanonicalDateLayout = dataset.TimestampLayout

// legacyTrendingDate matches the yy.dd.mm trending_date of older exports.
var legacyTrendingDate = regexp.MustCompile(`^(\d{2})\.(\d{2})\.(\d{2})$`)

// integerText matches a signed decimal with an optional fractional part.
// Exponents, hex and special values are rejected.
var integerText = regexp.MustCompile(`^[+-]?\d+(\.\d*)?$`)

var canonicalLayouts = []string{
	CanonicalDateLayout,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02",
}

var errUnsupportedKind = errors.New("unsupported value kind")

// FormatDate rewrites a raw date string into CanonicalDateLayout text:
// "2021-08-12T05:01:23Z" becomes "2021-08-12 05:01:23" and "21.12.08"
// (yy.dd.mm) becomes "2021-08-12 00:00:00". Other input is returned trimmed.
func FormatDate(raw string) string {
	s := strings.TrimSpace(raw)
	if m := legacyTrendingDate.FindStringSubmatch(s); m != nil {
		return "20" + m[1] + "-" + m[3] + "-" + m[2] + " 00:00:00"
	}
	if i := strings.IndexByte(s, 'T'); i == len("2006-01-02") {
		s = s[:i] + " " + s[i+1:]
	}
	return strings.TrimSuffix(s, "Z")
}

// ParseTimestamp parses a canonical date string as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	var firstErr error
	for _, layout := range canonicalLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

// coerceTimestamp reformats and parses a cell. Nulls and timestamps pass through.
func coerceTimestamp(column string, v dataset.Value) (dataset.Value, error) {
	switch v.Kind() {
	case dataset.KindNull, dataset.KindTimestamp:
		return v, nil
	case dataset.KindString:
		s, _ := v.Str()
		t, err := ParseTimestamp(FormatDate(s))
		if err != nil {
			return dataset.Null(), &RowCoercionError{Column: column, Value: s, Target: dataset.KindTimestamp, Err: err}
		}
		return dataset.Timestamp(t), nil
	default:
		return dataset.Null(), &RowCoercionError{Column: column, Value: v.Text(), Target: dataset.KindTimestamp, Err: errUnsupportedKind}
	}
}

// coerceInt casts a cell to an integer. Decimal text is truncated toward zero.
func coerceInt(column string, v dataset.Value) (dataset.Value, error) {
	switch v.Kind() {
	case dataset.KindNull, dataset.KindInt:
		return v, nil
	case dataset.KindString:
		s, _ := v.Str()
		trimmed := strings.TrimSpace(s)
		if !integerText.MatchString(trimmed) {
			return dataset.Null(), &RowCoercionError{Column: column, Value: s, Target: dataset.KindInt, Err: strconv.ErrSyntax}
		}
		if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			return dataset.Int(i), nil
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil || math.Abs(f) >= math.MaxInt64 {
			if err == nil {
				err = strconv.ErrRange
			}
			return dataset.Null(), &RowCoercionError{Column: column, Value: s, Target: dataset.KindInt, Err: err}
		}
		return dataset.Int(int64(math.Trunc(f))), nil
	default:
		return dataset.Null(), &RowCoercionError{Column: column, Value: v.Text(), Target: dataset.KindInt, Err: errUnsupportedKind}
	}
}

// replaceInCell substitutes old with replacement in string cells; other cells pass through.
func replaceInCell(v dataset.Value, old, replacement string) dataset.Value {
	s, ok := v.Str()
	if !ok || !strings.Contains(s, old) {
		return v
	}
	return dataset.String(strings.ReplaceAll(s, old, replacement))
}
