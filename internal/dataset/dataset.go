package dataset

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownColumn is returned when an operation names a column the dataset does not have.
var ErrUnknownColumn = errors.New("unknown column")

// Dataset is an immutable table of named columns.
// Operations never modify the receiver; they return a new Dataset.
type Dataset struct {
	columns []string
	index   map[string]int
	rows    [][]Value
}

// New builds a dataset from column names and rows. Every row must have
// exactly len(columns) cells. The input slices are copied.
func New(columns []string, rows [][]Value) (*Dataset, error) {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := index[c]; dup {
			return nil, fmt.Errorf("dataset.New: duplicate column %q", c)
		}
		index[c] = i
	}

	copied := make([][]Value, len(rows))
	for i, r := range rows {
		if len(r) != len(columns) {
			return nil, fmt.Errorf("dataset.New: row %d has %d cells, want %d", i, len(r), len(columns))
		}
		copied[i] = append([]Value(nil), r...)
	}

	return &Dataset{
		columns: append([]string(nil), columns...),
		index:   index,
		rows:    copied,
	}, nil
}

// MustNew is New for literals in tests and fixtures; it panics on error.
func MustNew(columns []string, rows [][]Value) *Dataset {
	ds, err := New(columns, rows)
	if err != nil {
		panic(err)
	}
	return ds
}

// Empty returns a dataset with the given columns and no rows.
func Empty(columns ...string) *Dataset {
	return MustNew(columns, nil)
}

// withRows shares the column metadata of d. rows must already be owned by the caller.
func (d *Dataset) withRows(rows [][]Value) *Dataset {
	return &Dataset{columns: d.columns, index: d.index, rows: rows}
}

// Columns returns a copy of the column names in order.
func (d *Dataset) Columns() []string { return append([]string(nil), d.columns...) }

// NumRows returns the number of rows.
func (d *Dataset) NumRows() int { return len(d.rows) }

// NumColumns returns the number of columns.
func (d *Dataset) NumColumns() int { return len(d.columns) }

// Shape returns (rows, columns).
func (d *Dataset) Shape() (int, int) { return len(d.rows), len(d.columns) }

// HasColumn reports whether name is a column of d.
func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.index[name]
	return ok
}

// ColumnIndex returns the position of a column.
func (d *Dataset) ColumnIndex(name string) (int, error) {
	i, ok := d.index[name]
	if !ok {
		return 0, fmt.Errorf("%w %q", ErrUnknownColumn, name)
	}
	return i, nil
}

// Value returns the cell at (row, column name). Missing columns read as null.
func (d *Dataset) Value(row int, column string) Value {
	i, ok := d.index[column]
	if !ok {
		return Null()
	}
	return d.rows[row][i]
}

// Row returns a copy of row i.
func (d *Dataset) Row(i int) []Value { return append([]Value(nil), d.rows[i]...) }

// Column returns a copy of every cell in the named column.
func (d *Dataset) Column(name string) ([]Value, error) {
	ci, err := d.ColumnIndex(name)
	if err != nil {
		return nil, err
	}
	out := make([]Value, len(d.rows))
	for i, r := range d.rows {
		out[i] = r[ci]
	}
	return out, nil
}

// Records returns the rows as column-name keyed maps.
func (d *Dataset) Records() []map[string]Value {
	out := make([]map[string]Value, len(d.rows))
	for i, r := range d.rows {
		rec := make(map[string]Value, len(d.columns))
		for ci, c := range d.columns {
			rec[c] = r[ci]
		}
		out[i] = rec
	}
	return out
}

// MapColumn applies fn to every cell of a column. The first error aborts the
// whole operation; callers that want per-cell recovery handle it inside fn.
func (d *Dataset) MapColumn(name string, fn func(Value) (Value, error)) (*Dataset, error) {
	ci, err := d.ColumnIndex(name)
	if err != nil {
		return nil, err
	}
	rows := make([][]Value, len(d.rows))
	for i, r := range d.rows {
		nr := append([]Value(nil), r...)
		v, err := fn(r[ci])
		if err != nil {
			return nil, fmt.Errorf("column %q row %d: %w", name, i, err)
		}
		nr[ci] = v
		rows[i] = nr
	}
	return d.withRows(rows), nil
}

// SortBy returns the rows stably ordered ascending by a column (nulls first).
func (d *Dataset) SortBy(name string) (*Dataset, error) {
	ci, err := d.ColumnIndex(name)
	if err != nil {
		return nil, err
	}
	rows := append([][]Value(nil), d.rows...)
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i][ci].Compare(rows[j][ci]) < 0
	})
	return d.withRows(rows), nil
}

// DedupBy keeps the first row seen for each distinct value of a column.
// Null keys are treated as one distinct key.
func (d *Dataset) DedupBy(name string) (*Dataset, error) {
	ci, err := d.ColumnIndex(name)
	if err != nil {
		return nil, err
	}
	seen := make(map[valueKey]struct{}, len(d.rows))
	rows := make([][]Value, 0, len(d.rows))
	for _, r := range d.rows {
		k := r[ci].key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		rows = append(rows, r)
	}
	return d.withRows(rows), nil
}

// Filter keeps rows for which keep returns true. keep receives the row index.
func (d *Dataset) Filter(keep func(row int) (bool, error)) (*Dataset, error) {
	rows := make([][]Value, 0, len(d.rows))
	for i, r := range d.rows {
		ok, err := keep(i)
		if err != nil {
			return nil, fmt.Errorf("filter row %d: %w", i, err)
		}
		if ok {
			rows = append(rows, r)
		}
	}
	return d.withRows(rows), nil
}

// Project keeps only the named columns, in the given order.
func (d *Dataset) Project(names ...string) (*Dataset, error) {
	idx := make([]int, len(names))
	for i, n := range names {
		ci, err := d.ColumnIndex(n)
		if err != nil {
			return nil, err
		}
		idx[i] = ci
	}
	rows := make([][]Value, len(d.rows))
	for i, r := range d.rows {
		nr := make([]Value, len(idx))
		for j, ci := range idx {
			nr[j] = r[ci]
		}
		rows[i] = nr
	}
	return New(names, rows)
}

// Rename changes the name of one column.
func (d *Dataset) Rename(from, to string) (*Dataset, error) {
	ci, err := d.ColumnIndex(from)
	if err != nil {
		return nil, err
	}
	cols := d.Columns()
	cols[ci] = to
	return New(cols, d.rows)
}

// WithConstant appends a column holding v in every row.
func (d *Dataset) WithConstant(name string, v Value) (*Dataset, error) {
	if d.HasColumn(name) {
		return nil, fmt.Errorf("WithConstant: column %q already exists", name)
	}
	rows := make([][]Value, len(d.rows))
	for i, r := range d.rows {
		rows[i] = append(append(make([]Value, 0, len(r)+1), r...), v)
	}
	return New(append(d.Columns(), name), rows)
}

// Concat appends the rows of others to d, matching columns by name.
// Columns missing from a side are filled with null; columns that only appear
// in later datasets are appended after d's columns.
func (d *Dataset) Concat(others ...*Dataset) *Dataset {
	cols := d.Columns()
	index := make(map[string]int, len(cols))
	for i, c := range cols {
		index[c] = i
	}
	for _, o := range others {
		for _, c := range o.columns {
			if _, ok := index[c]; !ok {
				index[c] = len(cols)
				cols = append(cols, c)
			}
		}
	}

	var rows [][]Value
	for _, src := range append([]*Dataset{d}, others...) {
		for _, r := range src.rows {
			nr := make([]Value, len(cols))
			for ci, c := range src.columns {
				nr[index[c]] = r[ci]
			}
			rows = append(rows, nr)
		}
	}
	return MustNew(cols, rows)
}
