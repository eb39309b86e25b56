package aggregation

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	v1 "github.com/aevon-lab/jfrtel/internal/api/v1"
	"github.com/spf13/cast"
)

var (
	// ErrMissingField is returned when a record does not carry the summarized field.
	ErrMissingField = errors.New("field missing")

	// ErrInvalidValue is returned for values that cannot be folded into an
	// accumulator: non-numeric, NaN, infinite, fractional or out of int64 range.
	ErrInvalidValue = errors.New("invalid value")
)

// DurationField names the record's own duration when the record has no field
// of that name. It is summarized in milliseconds.
const DurationField = "duration"

// maxExactFloat is the largest magnitude below which every integer has an
// exact float64 representation.
const maxExactFloat = 1 << 53

// ExtractValue pulls an integral value for field out of rec.
// Decoded records carry json.Number, which is read as an exact int64. Floats
// are accepted only when they hold an exact integer within ±2^53.
func ExtractValue(rec *v1.Record, field string) (int64, error) {
	v, ok := rec.Field(field)
	if !ok {
		// Instant events have a zero duration, which is still a value.
		if field == DurationField {
			return rec.Duration.Milliseconds(), nil
		}
		return 0, fmt.Errorf("%s: %w", field, ErrMissingField)
	}

	switch val := v.(type) {
	case int64:
		return val, nil
	case int:
		return int64(val), nil
	case int32:
		return int64(val), nil
	case uint32:
		return int64(val), nil
	case uint64:
		if val > math.MaxInt64 {
			return 0, fmt.Errorf("%s: %d overflows int64: %w", field, val, ErrInvalidValue)
		}
		return int64(val), nil
	case float32:
		return floatValue(field, float64(val))
	case float64:
		return floatValue(field, val)
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i, nil
		}
		f, err := val.Float64()
		if err != nil {
			return 0, fmt.Errorf("%s: %q: %w", field, val.String(), ErrInvalidValue)
		}
		return floatValue(field, f)
	case string:
		i, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%s: %q: %w", field, val, ErrInvalidValue)
		}
		return i, nil
	}
	return 0, fmt.Errorf("%s: unsupported type %T: %w", field, v, ErrInvalidValue)
}

func floatValue(field string, f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%s: %v: %w", field, f, ErrInvalidValue)
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%s: %v is not integral: %w", field, f, ErrInvalidValue)
	}
	if math.Abs(f) > maxExactFloat {
		return 0, fmt.Errorf("%s: %v is beyond exact float range: %w", field, f, ErrInvalidValue)
	}
	return int64(f), nil
}

// GroupKey resolves the grouping key of rec for groupBy.
// GroupByThread uses the originating thread; an empty groupBy puts every
// record in one group. Any other value names a field; class-like references
// ({"name": ...}) resolve to their name. ok is false when the key is absent.
func GroupKey(rec *v1.Record, groupBy string) (key string, ok bool) {
	switch groupBy {
	case "":
		return "", true
	case GroupByThread:
		return rec.ThreadName()
	}

	v, ok := rec.Field(groupBy)
	if !ok {
		return "", false
	}
	if ref, isRef := v.(map[string]interface{}); isRef {
		v, ok = ref["name"]
		if !ok {
			return "", false
		}
	}
	s, err := cast.ToStringE(v)
	if err != nil || s == "" {
		return "", false
	}
	return s, true
}

// Observe extracts the observation rule makes of rec.
// ok is false when the record has no grouping key for the rule; such records
// are not summarized and are not an error.
func (rule SummaryRule) Observe(rec *v1.Record) (obs Observation, ok bool, err error) {
	key, ok := GroupKey(rec, rule.GroupBy)
	if !ok {
		return Observation{}, false, nil
	}
	value, err := ExtractValue(rec, rule.Field)
	if err != nil {
		return Observation{}, false, fmt.Errorf("rule %q: %w", rule.Name, err)
	}
	return Observation{Value: value, Timestamp: rec.StartTime, Key: key}, true, nil
}
