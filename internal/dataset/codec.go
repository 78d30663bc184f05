package dataset

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Format is a serialization format for datasets at rest.
type Format string

const (
	FormatNDJSON Format = "jsonl"
	FormatCSV    Format = "csv"
)

// ParseFormat accepts "jsonl", "ndjson", "json" or "csv".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "jsonl", "ndjson", "json":
		return FormatNDJSON, nil
	case "csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unsupported dataset format %q", s)
	}
}

// Extension returns the object suffix for f, without the dot.
func (f Format) Extension() string { return string(f) }

// ContentType returns the MIME type used when storing f.
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv"
	}
	return "application/x-ndjson"
}

// Decode reads a dataset in format f.
func Decode(f Format, r io.Reader) (*Dataset, error) {
	switch f {
	case FormatCSV:
		return ReadCSV(r)
	case FormatNDJSON:
		return ReadNDJSON(r)
	default:
		return nil, fmt.Errorf("Decode: unsupported format %q", f)
	}
}

// Encode writes d in format f.
func Encode(f Format, w io.Writer, d *Dataset) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, d)
	case FormatNDJSON:
		return WriteNDJSON(w, d)
	default:
		return fmt.Errorf("Encode: unsupported format %q", f)
	}
}

// ReadNDJSON decodes newline-delimited JSON objects. Columns are ordered by
// first appearance; keys absent from a line read as null. Integral numbers
// decode as ints, other numbers keep their textual form as strings, and
// nested objects or arrays are kept as their raw JSON text.
func ReadNDJSON(r io.Reader) (*Dataset, error) {
	dec := json.NewDecoder(bufio.NewReader(r))
	dec.UseNumber()

	var (
		columns []string
		index   = map[string]int{}
		records []map[int]Value
	)

	for line := 0; ; line++ {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ReadNDJSON: record %d: %w", line, err)
		}
		if d, ok := tok.(json.Delim); !ok || d != '{' {
			return nil, fmt.Errorf("ReadNDJSON: record %d: expected object, got %v", line, tok)
		}

		rec := map[int]Value{}
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("ReadNDJSON: record %d: %w", line, err)
			}
			key, _ := keyTok.(string)

			var raw json.RawMessage
			if err := dec.Decode(&raw); err != nil {
				return nil, fmt.Errorf("ReadNDJSON: record %d field %q: %w", line, key, err)
			}
			v, err := decodeJSONValue(raw)
			if err != nil {
				return nil, fmt.Errorf("ReadNDJSON: record %d field %q: %w", line, key, err)
			}

			ci, ok := index[key]
			if !ok {
				ci = len(columns)
				index[key] = ci
				columns = append(columns, key)
			}
			rec[ci] = v
		}
		if _, err := dec.Token(); err != nil {
			return nil, fmt.Errorf("ReadNDJSON: record %d: %w", line, err)
		}
		records = append(records, rec)
	}

	rows := make([][]Value, len(records))
	for i, rec := range records {
		row := make([]Value, len(columns))
		for ci, v := range rec {
			row[ci] = v
		}
		rows[i] = row
	}
	return New(columns, rows)
}

func decodeJSONValue(raw json.RawMessage) (Value, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return Null(), nil
	}
	switch trimmed[0] {
	case '{', '[':
		return String(string(trimmed)), nil
	}

	var decoded interface{}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	if err := dec.Decode(&decoded); err != nil {
		return Null(), err
	}
	switch x := decoded.(type) {
	case nil:
		return Null(), nil
	case string:
		return String(x), nil
	case bool:
		return String(strconv.FormatBool(x)), nil
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return Int(i), nil
		}
		return String(x.String()), nil
	default:
		return String(string(trimmed)), nil
	}
}

// WriteNDJSON encodes d as one JSON object per line, keys in column order.
// Timestamps are written in TimestampLayout (UTC).
func WriteNDJSON(w io.Writer, d *Dataset) error {
	bw := bufio.NewWriter(w)
	keys := make([][]byte, len(d.columns))
	for i, c := range d.columns {
		k, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("WriteNDJSON: column %q: %w", c, err)
		}
		keys[i] = k
	}

	var buf bytes.Buffer
	for ri, r := range d.rows {
		buf.Reset()
		buf.WriteByte('{')
		for ci, v := range r {
			if ci > 0 {
				buf.WriteByte(',')
			}
			buf.Write(keys[ci])
			buf.WriteByte(':')
			switch v.kind {
			case KindNull:
				buf.WriteString("null")
			case KindInt:
				buf.WriteString(strconv.FormatInt(v.num, 10))
			default:
				b, err := json.Marshal(v.Text())
				if err != nil {
					return fmt.Errorf("WriteNDJSON: row %d: %w", ri, err)
				}
				buf.Write(b)
			}
		}
		buf.WriteString("}\n")
		if _, err := bw.Write(buf.Bytes()); err != nil {
			return fmt.Errorf("WriteNDJSON: row %d: %w", ri, err)
		}
	}
	return bw.Flush()
}

// ReadCSV decodes a CSV file with a header row. Every cell decodes as a
// string; empty cells decode as null.
func ReadCSV(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return Empty(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("ReadCSV: header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	var rows [][]Value
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ReadCSV: line %d: %w", line, err)
		}
		if len(rec) != len(header) {
			return nil, fmt.Errorf("ReadCSV: line %d has %d fields, header has %d", line, len(rec), len(header))
		}
		row := make([]Value, len(rec))
		for i, cell := range rec {
			if cell != "" {
				row[i] = String(cell)
			}
		}
		rows = append(rows, row)
	}
	return New(header, rows)
}

// WriteCSV encodes d with a header row. Nulls are written as empty cells.
func WriteCSV(w io.Writer, d *Dataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(d.columns); err != nil {
		return fmt.Errorf("WriteCSV: header: %w", err)
	}
	rec := make([]string, len(d.columns))
	for ri, r := range d.rows {
		for ci, v := range r {
			rec[ci] = v.Text()
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("WriteCSV: row %d: %w", ri, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
