package domain

import (
	"testing"

	"cloud.google.com/go/bigquery"
)

func TestSchemaFor(t *testing.T) {
	tests := []struct {
		table   string
		field   string
		typ     bigquery.FieldType
		wantErr bool
	}{
		{CategoriesTable, "categoryId", bigquery.IntegerFieldType, false},
		{LinksTable, "link_video", bigquery.StringFieldType, false},
		{TrendingTable, "publishedAt", bigquery.TimestampFieldType, false},
		{TrendingTable, "partition_key", bigquery.StringFieldType, false},
		{"nope", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.table+"/"+tt.field, func(t *testing.T) {
			schema, err := SchemaFor(tt.table)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SchemaFor(%q) error = %v, wantErr %v", tt.table, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			for _, f := range schema {
				if f.Name == tt.field {
					if f.Type != tt.typ {
						t.Errorf("%s type = %s, want %s", f.Name, f.Type, tt.typ)
					}
					return
				}
			}
			t.Errorf("field %q missing from %s schema", tt.field, tt.table)
		})
	}
}
