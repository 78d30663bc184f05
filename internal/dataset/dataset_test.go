package dataset

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strs(vals ...string) []Value {
	out := make([]Value, len(vals))
	for i, v := range vals {
		out[i] = String(v)
	}
	return out
}

func TestNew_RejectsBadShapes(t *testing.T) {
	_, err := New([]string{"a", "a"}, nil)
	assert.Error(t, err)

	_, err = New([]string{"a", "b"}, [][]Value{{String("x")}})
	assert.Error(t, err)
}

func TestNew_CopiesInput(t *testing.T) {
	row := strs("x")
	ds := MustNew([]string{"a"}, [][]Value{row})
	row[0] = String("mutated")

	assert.Equal(t, "x", ds.Value(0, "a").Text())
}

func TestMapColumn_DoesNotMutateInput(t *testing.T) {
	in := MustNew([]string{"n"}, [][]Value{strs("1"), strs("2")})

	out, err := in.MapColumn("n", func(v Value) (Value, error) {
		return Int(int64(len(v.Text()))), nil
	})
	require.NoError(t, err)

	assert.Equal(t, KindString, in.Value(0, "n").Kind())
	assert.Equal(t, KindInt, out.Value(0, "n").Kind())
}

func TestMapColumn_UnknownColumn(t *testing.T) {
	in := Empty("a")
	_, err := in.MapColumn("b", func(v Value) (Value, error) { return v, nil })
	assert.True(t, errors.Is(err, ErrUnknownColumn))
}

func TestSortBy_StableNullsFirst(t *testing.T) {
	in := MustNew([]string{"k", "tag"}, [][]Value{
		{Int(10), String("a")},
		{Null(), String("b")},
		{Int(2), String("c")},
		{Int(10), String("d")},
	})

	out, err := in.SortBy("k")
	require.NoError(t, err)

	var tags []string
	for i := 0; i < out.NumRows(); i++ {
		tags = append(tags, out.Value(i, "tag").Text())
	}
	assert.Equal(t, []string{"b", "c", "a", "d"}, tags)
}

func TestDedupBy_FirstSeenAndIdempotent(t *testing.T) {
	in := MustNew([]string{"id", "n"}, [][]Value{
		strs("a", "1"), strs("b", "2"), strs("a", "3"),
	})

	once, err := in.DedupBy("id")
	require.NoError(t, err)
	require.Equal(t, 2, once.NumRows())
	assert.Equal(t, "1", once.Value(0, "n").Text())

	twice, err := once.DedupBy("id")
	require.NoError(t, err)
	assert.Equal(t, once.Records(), twice.Records())
}

func TestConcat_UnionsByName(t *testing.T) {
	a := MustNew([]string{"x", "y"}, [][]Value{strs("1", "2")})
	b := MustNew([]string{"y", "z"}, [][]Value{strs("3", "4")})

	out := a.Concat(b)

	assert.Equal(t, []string{"x", "y", "z"}, out.Columns())
	require.Equal(t, 2, out.NumRows())
	assert.True(t, out.Value(1, "x").IsNull())
	assert.Equal(t, "3", out.Value(1, "y").Text())
	assert.True(t, out.Value(0, "z").IsNull())
}

func TestProject(t *testing.T) {
	in := MustNew([]string{"a", "b", "c"}, [][]Value{strs("1", "2", "3")})

	out, err := in.Project("c", "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, out.Columns())
	assert.Equal(t, "3", out.Value(0, "c").Text())

	_, err = in.Project("missing")
	assert.Error(t, err)
}

func TestOuterJoin(t *testing.T) {
	left := MustNew([]string{"video_id"}, [][]Value{strs("a"), strs("b"), {Null()}})
	right := MustNew([]string{"videoId", "link_video"}, [][]Value{
		strs("a", "L1"), strs("c", "L3"),
	})

	out, err := OuterJoin(left, right, "video_id", "videoId", []JoinedColumn{
		{Name: "video_id", FromLeft: true, Source: "video_id", Coalesce: "videoId"},
		{Name: "link_video", Source: "link_video"},
	})
	require.NoError(t, err)

	require.Equal(t, 4, out.NumRows())
	assert.Equal(t, "a", out.Value(0, "video_id").Text())
	assert.Equal(t, "L1", out.Value(0, "link_video").Text())
	assert.Equal(t, "b", out.Value(1, "video_id").Text())
	assert.True(t, out.Value(1, "link_video").IsNull())
	assert.True(t, out.Value(2, "video_id").IsNull())
	assert.Equal(t, "c", out.Value(3, "video_id").Text())
	assert.Equal(t, "L3", out.Value(3, "link_video").Text())
}

func TestNDJSON_RoundTrip(t *testing.T) {
	input := `{"video_id":"a","view_count":12,"ratio":1.5,"tags":["x"],"missing":null}
{"video_id":"b","extra":"late"}
`
	ds, err := ReadNDJSON(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []string{"video_id", "view_count", "ratio", "tags", "missing", "extra"}, ds.Columns())
	assert.Equal(t, KindInt, ds.Value(0, "view_count").Kind())
	assert.Equal(t, "1.5", ds.Value(0, "ratio").Text())
	assert.Equal(t, `["x"]`, ds.Value(0, "tags").Text())
	assert.True(t, ds.Value(1, "view_count").IsNull())
	assert.Equal(t, "late", ds.Value(1, "extra").Text())

	var buf bytes.Buffer
	require.NoError(t, WriteNDJSON(&buf, ds))
	again, err := ReadNDJSON(&buf)
	require.NoError(t, err)
	assert.Equal(t, ds.Columns(), again.Columns())
	assert.Equal(t, ds.NumRows(), again.NumRows())
}

func TestWriteNDJSON_Timestamps(t *testing.T) {
	ts := time.Date(2021, 8, 12, 5, 1, 23, 0, time.UTC)
	ds := MustNew([]string{"publishedAt"}, [][]Value{{Timestamp(ts)}})

	var buf bytes.Buffer
	require.NoError(t, WriteNDJSON(&buf, ds))
	assert.Equal(t, "{\"publishedAt\":\"2021-08-12 05:01:23\"}\n", buf.String())
}

func TestCSV_RoundTrip(t *testing.T) {
	input := "\ufeffvideo_id,likes\nabc,10\ndef,\n"
	ds, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []string{"video_id", "likes"}, ds.Columns())
	assert.True(t, ds.Value(1, "likes").IsNull())

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, ds))
	assert.Equal(t, "video_id,likes\nabc,10\ndef,\n", buf.String())
}

func TestWithConstant(t *testing.T) {
	ds := MustNew([]string{"id"}, [][]Value{{String("a")}, {String("b")}})

	out, err := ds.WithConstant("partition_key", String("2021-08"))
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "partition_key"}, out.Columns())
	assert.Equal(t, String("2021-08"), out.Value(1, "partition_key"))
	assert.Equal(t, 1, ds.NumColumns())

	_, err = out.WithConstant("id", Null())
	assert.Error(t, err)
}
