package pipeline

import (
	"testing"
	"time"

	"github.com/dvloznov/youtube-trending/internal/dataset"
)

func TestFormatDate(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"2021-08-12T05:01:23Z", "2021-08-12 05:01:23"},
		{"2021-08-12 05:01:23", "2021-08-12 05:01:23"},
		{"21.12.08", "2021-08-12 00:00:00"},
		{"  2021-08-12 ", "2021-08-12"},
		{"garbage", "garbage"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := FormatDate(tt.raw); got != tt.want {
				t.Errorf("FormatDate(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{"2021-08-12 05:01:23", time.Date(2021, 8, 12, 5, 1, 23, 0, time.UTC), false},
		{"2021-08-12", time.Date(2021, 8, 12, 0, 0, 0, 0, time.UTC), false},
		{"2021-08-12 05:01:23+02:00", time.Date(2021, 8, 12, 3, 1, 23, 0, time.UTC), false},
		{"12/08/2021", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimestamp(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTimestamp(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestCoerceInt(t *testing.T) {
	tests := []struct {
		name    string
		in      dataset.Value
		want    dataset.Value
		wantErr bool
	}{
		{"plain", dataset.String("42"), dataset.Int(42), false},
		{"signed with spaces", dataset.String(" -7 "), dataset.Int(-7), false},
		{"decimal truncates", dataset.String("12.9"), dataset.Int(12), false},
		{"large count", dataset.String("3000000000"), dataset.Int(3000000000), false},
		{"already int", dataset.Int(5), dataset.Int(5), false},
		{"null", dataset.Null(), dataset.Null(), false},
		{"text", dataset.String("abc"), dataset.Null(), true},
		{"empty", dataset.String(""), dataset.Null(), true},
		{"exponent", dataset.String("1e3"), dataset.Null(), true},
		{"hex float", dataset.String("0x1p4"), dataset.Null(), true},
		{"hex int", dataset.String("0x10"), dataset.Null(), true},
		{"infinity", dataset.String("Inf"), dataset.Null(), true},
		{"nan", dataset.String("NaN"), dataset.Null(), true},
		{"trailing dot", dataset.String("12."), dataset.Int(12), false},
		{"plus sign", dataset.String("+8"), dataset.Int(8), false},
		{"overflow", dataset.String("99999999999999999999"), dataset.Null(), true},
		{"timestamp", dataset.Timestamp(time.Unix(0, 0)), dataset.Null(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := coerceInt("c", tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("coerceInt error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if _, ok := err.(*RowCoercionError); !ok {
					t.Errorf("expected *RowCoercionError, got %T", err)
				}
			}
			if !got.Equal(tt.want) {
				t.Errorf("coerceInt = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestReplaceInCell(t *testing.T) {
	got := replaceInCell(dataset.String("a/default.jpg"), DefaultThumbnailSuffix, MaxResThumbnailSuffix)
	if s, _ := got.Str(); s != "a/maxresdefault.jpg" {
		t.Errorf("replaceInCell = %q", s)
	}
	if got := replaceInCell(dataset.Null(), DefaultThumbnailSuffix, MaxResThumbnailSuffix); !got.IsNull() {
		t.Errorf("null cell changed to %#v", got)
	}
}
