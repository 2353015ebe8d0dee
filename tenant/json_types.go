package tenant

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// JSONStrings is a []string stored as a JSON text column, portable across
// the mysql/postgres/sqlite dialects the repository kernel targets.
type JSONStrings []string

func (s JSONStrings) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *JSONStrings) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	b, err := scanBytes(value)
	if err != nil {
		return err
	}
	if len(b) == 0 {
		*s = nil
		return nil
	}
	return json.Unmarshal(b, s)
}

// JSONObject is a free-form map stored as a JSON text column.
type JSONObject map[string]interface{}

func (o JSONObject) Value() (driver.Value, error) {
	if o == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]interface{}(o))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (o *JSONObject) Scan(value interface{}) error {
	if value == nil {
		*o = nil
		return nil
	}
	b, err := scanBytes(value)
	if err != nil {
		return err
	}
	if len(b) == 0 {
		*o = nil
		return nil
	}
	return json.Unmarshal(b, o)
}

func scanBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, errors.New("tenant: unsupported JSON column type")
	}
}
