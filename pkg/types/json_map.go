package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONMap holds free-form metadata persisted as a JSON column.
type JSONMap map[string]any

// Value implements driver.Valuer so the map survives both struct writes and
// map-based Updates, which bypass gorm serializers.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner for jsonb columns.
func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for JSONMap", value)
	}
	if len(raw) == 0 {
		*m = nil
		return nil
	}
	return json.Unmarshal(raw, m)
}

// Merge copies entries from other into a fresh map, preserving existing keys
// unless overwritten.
func (m JSONMap) Merge(other JSONMap) JSONMap {
	merged := JSONMap{}
	for k, v := range m {
		merged[k] = v
	}
	for k, v := range other {
		merged[k] = v
	}
	return merged
}
