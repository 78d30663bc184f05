package dataset

import "fmt"

// JoinedColumn names a column of the join output and where it comes from.
// When Coalesce is set, a null from the primary side falls back to the
// same-row value of the other side's Coalesce column.
type JoinedColumn struct {
	Name     string
	FromLeft bool
	Source   string
	Coalesce string
}

// OuterJoin performs a full outer join of left and right on leftKey = rightKey.
//
// Output order: every left row in order, each followed by its right matches in
// right order (a left row with no match yields one row with a null right side),
// then the right rows that matched nothing, in right order. Null keys never match.
func OuterJoin(left, right *Dataset, leftKey, rightKey string, out []JoinedColumn) (*Dataset, error) {
	lk, err := left.ColumnIndex(leftKey)
	if err != nil {
		return nil, fmt.Errorf("OuterJoin: left key: %w", err)
	}
	rk, err := right.ColumnIndex(rightKey)
	if err != nil {
		return nil, fmt.Errorf("OuterJoin: right key: %w", err)
	}

	type source struct {
		primary  int
		fallback int
		fromLeft bool
	}
	sources := make([]source, len(out))
	names := make([]string, len(out))
	for i, c := range out {
		names[i] = c.Name
		primary, other := right, left
		if c.FromLeft {
			primary, other = left, right
		}
		pi, err := primary.ColumnIndex(c.Source)
		if err != nil {
			return nil, fmt.Errorf("OuterJoin: output %q: %w", c.Name, err)
		}
		fi := -1
		if c.Coalesce != "" {
			if fi, err = other.ColumnIndex(c.Coalesce); err != nil {
				return nil, fmt.Errorf("OuterJoin: output %q coalesce: %w", c.Name, err)
			}
		}
		sources[i] = source{primary: pi, fallback: fi, fromLeft: c.FromLeft}
	}

	byKey := make(map[valueKey][]int)
	for i, r := range right.rows {
		if r[rk].IsNull() {
			continue
		}
		k := r[rk].key()
		byKey[k] = append(byKey[k], i)
	}

	emit := func(lrow, rrow []Value) []Value {
		nr := make([]Value, len(out))
		for i, s := range sources {
			primary, other := rrow, lrow
			if s.fromLeft {
				primary, other = lrow, rrow
			}
			if primary != nil {
				nr[i] = primary[s.primary]
			}
			if nr[i].IsNull() && s.fallback >= 0 && other != nil {
				nr[i] = other[s.fallback]
			}
		}
		return nr
	}

	matched := make([]bool, len(right.rows))
	var rows [][]Value
	for _, l := range left.rows {
		var hits []int
		if !l[lk].IsNull() {
			hits = byKey[l[lk].key()]
		}
		if len(hits) == 0 {
			rows = append(rows, emit(l, nil))
			continue
		}
		for _, ri := range hits {
			matched[ri] = true
			rows = append(rows, emit(l, right.rows[ri]))
		}
	}
	for ri, r := range right.rows {
		if !matched[ri] {
			rows = append(rows, emit(nil, r))
		}
	}

	return New(names, rows)
}
