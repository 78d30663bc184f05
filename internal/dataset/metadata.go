package dataset

import (
	"fmt"
	"strconv"
)

// Metadata describes a persisted dataset. It travels beside the dataset and
// is never part of it.
type Metadata struct {
	RowCount    int    `json:"row_count"`
	ColumnCount int    `json:"column_count"`
	Label       string `json:"label"`
}

// MetadataOf captures the shape of d under a label.
func MetadataOf(d *Dataset, label string) Metadata {
	rows, cols := d.Shape()
	return Metadata{RowCount: rows, ColumnCount: cols, Label: label}
}

// Object metadata keys used when the metadata is attached to a stored object.
const (
	metaRows    = "row_count"
	metaColumns = "column_count"
	metaLabel   = "label"
)

// AsMap renders m as string key/values for object storage metadata.
func (m Metadata) AsMap() map[string]string {
	return map[string]string{
		metaRows:    strconv.Itoa(m.RowCount),
		metaColumns: strconv.Itoa(m.ColumnCount),
		metaLabel:   m.Label,
	}
}

// MetadataFromMap parses metadata written by AsMap.
func MetadataFromMap(kv map[string]string) (Metadata, error) {
	rows, err := strconv.Atoi(kv[metaRows])
	if err != nil {
		return Metadata{}, fmt.Errorf("MetadataFromMap: %s: %w", metaRows, err)
	}
	cols, err := strconv.Atoi(kv[metaColumns])
	if err != nil {
		return Metadata{}, fmt.Errorf("MetadataFromMap: %s: %w", metaColumns, err)
	}
	return Metadata{RowCount: rows, ColumnCount: cols, Label: kv[metaLabel]}, nil
}
