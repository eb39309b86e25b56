package aggregation

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	v1 "github.com/aevon-lab/jfrtel/internal/api/v1"
	"github.com/stretchr/testify/require"
)

func TestExtractValue(t *testing.T) {
	tests := []struct {
		name    string
		fields  map[string]interface{}
		field   string
		want    int64
		wantErr error
	}{
		{name: "missing field", fields: map[string]interface{}{"other": 1}, field: "allocationSize", wantErr: ErrMissingField},
		{name: "null field", fields: map[string]interface{}{"allocationSize": nil}, field: "allocationSize", wantErr: ErrMissingField},
		{name: "float64 integral", fields: map[string]interface{}{"allocationSize": float64(4096)}, field: "allocationSize", want: 4096},
		{name: "float32 integral", fields: map[string]interface{}{"allocationSize": float32(16)}, field: "allocationSize", want: 16},
		{name: "int", fields: map[string]interface{}{"allocationSize": 7}, field: "allocationSize", want: 7},
		{name: "int32", fields: map[string]interface{}{"allocationSize": int32(8)}, field: "allocationSize", want: 8},
		{name: "int64", fields: map[string]interface{}{"allocationSize": int64(-9)}, field: "allocationSize", want: -9},
		{name: "uint64", fields: map[string]interface{}{"allocationSize": uint64(10)}, field: "allocationSize", want: 10},
		{name: "json number", fields: map[string]interface{}{"allocationSize": json.Number("123")}, field: "allocationSize", want: 123},
		{name: "numeric string", fields: map[string]interface{}{"allocationSize": "42"}, field: "allocationSize", want: 42},
		{name: "fractional float", fields: map[string]interface{}{"allocationSize": 12.5}, field: "allocationSize", wantErr: ErrInvalidValue},
		{name: "nan", fields: map[string]interface{}{"allocationSize": math.NaN()}, field: "allocationSize", wantErr: ErrInvalidValue},
		{name: "infinity", fields: map[string]interface{}{"allocationSize": math.Inf(1)}, field: "allocationSize", wantErr: ErrInvalidValue},
		{name: "float overflow", fields: map[string]interface{}{"allocationSize": 1e19}, field: "allocationSize", wantErr: ErrInvalidValue},
		{name: "float at 2^53", fields: map[string]interface{}{"allocationSize": float64(1 << 53)}, field: "allocationSize", want: 1 << 53},
		{name: "float beyond 2^53", fields: map[string]interface{}{"allocationSize": float64(1<<53 + 2)}, field: "allocationSize", wantErr: ErrInvalidValue},
		{name: "negative float beyond 2^53", fields: map[string]interface{}{"allocationSize": -float64(1<<53 + 2)}, field: "allocationSize", wantErr: ErrInvalidValue},
		{name: "json number beyond 2^53", fields: map[string]interface{}{"allocationSize": json.Number("9007199254740993")}, field: "allocationSize", want: 9007199254740993},
		{name: "json number exponent", fields: map[string]interface{}{"allocationSize": json.Number("1e3")}, field: "allocationSize", want: 1000},
		{name: "json number fractional", fields: map[string]interface{}{"allocationSize": json.Number("1.5")}, field: "allocationSize", wantErr: ErrInvalidValue},
		{name: "json number overflow", fields: map[string]interface{}{"allocationSize": json.Number("9223372036854775808")}, field: "allocationSize", wantErr: ErrInvalidValue},
		{name: "uint64 overflow", fields: map[string]interface{}{"allocationSize": uint64(math.MaxUint64)}, field: "allocationSize", wantErr: ErrInvalidValue},
		{name: "non-numeric string", fields: map[string]interface{}{"allocationSize": "lots"}, field: "allocationSize", wantErr: ErrInvalidValue},
		{name: "bool", fields: map[string]interface{}{"allocationSize": true}, field: "allocationSize", wantErr: ErrInvalidValue},
		{name: "nested object", fields: map[string]interface{}{"allocationSize": map[string]interface{}{"v": 1}}, field: "allocationSize", wantErr: ErrInvalidValue},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := &v1.Record{EventName: "jdk.ObjectAllocationOutsideTLAB", StartTime: time.Now(), Fields: tc.fields}
			got, err := ExtractValue(rec, tc.field)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestExtractValue_DurationFallback(t *testing.T) {
	rec := &v1.Record{EventName: "jdk.G1GarbageCollection", StartTime: time.Now(), Duration: 1500 * time.Millisecond}
	got, err := ExtractValue(rec, DurationField)
	require.NoError(t, err)
	require.Equal(t, int64(1500), got)

	// An explicit field wins over the record duration.
	rec.Fields = map[string]interface{}{DurationField: float64(3)}
	got, err = ExtractValue(rec, DurationField)
	require.NoError(t, err)
	require.Equal(t, int64(3), got)

	_, err = ExtractValue(&v1.Record{EventName: "jdk.G1GarbageCollection", StartTime: time.Now()}, "pauseTime")
	require.ErrorIs(t, err, ErrMissingField)
}

func TestExtractValue_ZeroDuration(t *testing.T) {
	rec := &v1.Record{EventName: "jdk.ThreadPark", StartTime: time.Now()}
	got, err := ExtractValue(rec, DurationField)
	require.NoError(t, err)
	require.Equal(t, int64(0), got)

	// Sub-millisecond durations truncate to zero rather than being dropped.
	rec.Duration = 400 * time.Microsecond
	got, err = ExtractValue(rec, DurationField)
	require.NoError(t, err)
	require.Equal(t, int64(0), got)
}

func TestGroupKey(t *testing.T) {
	tests := []struct {
		name    string
		rec     v1.Record
		groupBy string
		want    string
		wantOK  bool
	}{
		{name: "ungrouped", rec: v1.Record{}, groupBy: "", want: "", wantOK: true},
		{name: "thread", rec: v1.Record{Thread: &v1.ThreadRef{JavaName: "main"}}, groupBy: GroupByThread, want: "main", wantOK: true},
		{name: "thread absent", rec: v1.Record{}, groupBy: GroupByThread},
		{name: "string field", rec: v1.Record{Fields: map[string]interface{}{"host": "db-1"}}, groupBy: "host", want: "db-1", wantOK: true},
		{name: "numeric field", rec: v1.Record{Fields: map[string]interface{}{"port": float64(5432)}}, groupBy: "port", want: "5432", wantOK: true},
		{name: "class reference", rec: v1.Record{Fields: map[string]interface{}{"objectClass": map[string]interface{}{"name": "java.lang.String"}}}, groupBy: "objectClass", want: "java.lang.String", wantOK: true},
		{name: "reference without name", rec: v1.Record{Fields: map[string]interface{}{"objectClass": map[string]interface{}{"id": 1}}}, groupBy: "objectClass"},
		{name: "field absent", rec: v1.Record{}, groupBy: "host"},
		{name: "empty string", rec: v1.Record{Fields: map[string]interface{}{"host": ""}}, groupBy: "host"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := GroupKey(&tc.rec, tc.groupBy)
			require.Equal(t, tc.wantOK, ok)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestSummaryRule_Observe(t *testing.T) {
	ts := time.Date(2026, 2, 11, 10, 0, 0, 0, time.UTC)
	rule := allocationRule()

	obs, ok, err := rule.Observe(&v1.Record{
		EventName: rule.SourceEvent,
		StartTime: ts,
		Fields:    map[string]interface{}{"allocationSize": float64(2048)},
		Thread:    &v1.ThreadRef{JavaName: "main"},
	})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, Observation{Value: 2048, Timestamp: ts, Key: "main"}, obs)

	// No thread: skipped, not an error.
	_, ok, err = rule.Observe(&v1.Record{
		EventName: rule.SourceEvent,
		StartTime: ts,
		Fields:    map[string]interface{}{"allocationSize": float64(2048)},
	})
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = rule.Observe(&v1.Record{
		EventName: rule.SourceEvent,
		StartTime: ts,
		Fields:    map[string]interface{}{"allocationSize": "n/a"},
		Thread:    &v1.ThreadRef{JavaName: "main"},
	})
	require.ErrorIs(t, err, ErrInvalidValue)
	require.False(t, ok)
}
