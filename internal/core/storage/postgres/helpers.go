package postgres

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	v1 "github.com/aevon-lab/jfrtel/internal/api/v1"
	"github.com/spf13/cast"
)

// marshalAttributes encodes attributes for a JSONB column.
// Empty attributes produce nil (SQL NULL) rather than "{}".
func marshalAttributes(attrs v1.Attributes) (interface{}, error) {
	if len(attrs) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(attrs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal attributes: %w", err)
	}
	return data, nil
}

// groupKey renders a summary point's attributes as a stable "k=v,k=v" key.
// Points of an ungrouped rule have the empty key.
func groupKey(attrs v1.Attributes) string {
	if len(attrs) == 0 {
		return ""
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+cast.ToString(attrs[k]))
	}
	return strings.Join(parts, ",")
}
