package mapper

import (
	"encoding/json"
	"strings"

	v1 "github.com/aevon-lab/jfrtel/internal/api/v1"
	"github.com/spf13/cast"
)

// Field readers return nil for absent or unconvertible values so that the
// attribute is reported as absent rather than failing the whole record.

func stringField(rec *v1.Record, name string) interface{} {
	v, ok := rec.Field(name)
	if !ok {
		return nil
	}
	if ref, isRef := v.(map[string]interface{}); isRef {
		if v, ok = ref["name"]; !ok || v == nil {
			return nil
		}
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return nil
	}
	return s
}

// numeric unwraps a decoded json.Number, which cast does not recognize.
func numeric(v interface{}) interface{} {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return v
}

func int64Field(rec *v1.Record, name string) interface{} {
	v, ok := rec.Field(name)
	if !ok {
		return nil
	}
	i, err := cast.ToInt64E(numeric(v))
	if err != nil {
		return nil
	}
	return i
}

func float64Field(rec *v1.Record, name string) interface{} {
	v, ok := rec.Field(name)
	if !ok {
		return nil
	}
	f, err := cast.ToFloat64E(numeric(v))
	if err != nil {
		return nil
	}
	return f
}

// millisField reads a nanosecond duration field and reports it in milliseconds.
func millisField(rec *v1.Record, name string) interface{} {
	v, ok := rec.Field(name)
	if !ok {
		return nil
	}
	ns, err := cast.ToInt64E(numeric(v))
	if err != nil {
		return nil
	}
	return ns / 1e6
}

// threadName returns the originating thread name or nil.
func threadName(rec *v1.Record) interface{} {
	name, ok := rec.ThreadName()
	if !ok {
		return nil
	}
	return name
}

// Succeeded reads the outcome flag of a compilation. Older runtimes spell the
// field "succeded"; newer ones "succeeded". Returns nil when neither is present.
func Succeeded(rec *v1.Record) interface{} {
	for _, name := range []string{"succeded", "succeeded"} {
		v, ok := rec.Field(name)
		if !ok {
			continue
		}
		b, err := cast.ToBoolE(numeric(v))
		if err != nil {
			return nil
		}
		return b
	}
	return nil
}

// DescribeMethod renders a method reference as "pkg.Class.method(descriptor)".
// The reference is the recorder's nested shape:
//
//	{"type": {"name": "pkg.Class"}, "name": "method", "descriptor": "(I)V"}
//
// Missing parts are omitted; an unrecognized value yields "".
func DescribeMethod(v interface{}) string {
	ref, ok := v.(map[string]interface{})
	if !ok {
		return ""
	}

	var b strings.Builder
	if typ, ok := ref["type"].(map[string]interface{}); ok {
		if className, err := cast.ToStringE(typ["name"]); err == nil && className != "" {
			b.WriteString(className)
			b.WriteByte('.')
		}
	}
	if name, err := cast.ToStringE(ref["name"]); err == nil {
		b.WriteString(name)
	}
	if desc, err := cast.ToStringE(ref["descriptor"]); err == nil {
		b.WriteString(desc)
	}
	return b.String()
}
