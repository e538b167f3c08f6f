package parse

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Bool is a boolean that also accepts the loose spellings language models
// tend to produce: "true"/"yes" strings, numbers and null.
type Bool bool

// UnmarshalJSON implements json.Unmarshaler.
func (b *Bool) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}

	switch t := v.(type) {
	case nil:
		*b = false
	case bool:
		*b = Bool(t)
	case float64:
		*b = t != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "", "false", "no", "n", "0", "none", "null":
			*b = false
		default:
			*b = true
		}
	default:
		return fmt.Errorf("cannot use %s as a boolean", string(data))
	}
	return nil
}

func (b *Bool) value() bool {
	return b != nil && bool(*b)
}
