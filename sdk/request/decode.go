package request

import (
	"encoding/json"
	"fmt"

	"github.com/crf-service/crf-sdk-go/sdk/constants"
)

// parseBody keeps JSON payloads as json.RawMessage and anything else as a
// string. An empty body yields nil.
func parseBody(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	if json.Valid(raw) {
		return json.RawMessage(raw)
	}
	return string(raw)
}

// As converts an outcome into T. Values already of type T are returned
// unchanged; JSON payloads are unmarshaled; other values are round-tripped
// through encoding/json. For T = any, JSON payloads decode into generic maps
// and slices.
func As[T any](v any) (T, error) {
	var out T
	if v == nil {
		return out, nil
	}

	if p, ok := any(&out).(*any); ok {
		raw, isJSON := v.(json.RawMessage)
		if !isJSON {
			*p = v
			return out, nil
		}
		if err := json.Unmarshal(raw, p); err != nil {
			return out, fmt.Errorf("%w: %w", constants.ErrDecode, err)
		}
		return out, nil
	}

	if t, ok := v.(T); ok {
		return t, nil
	}

	var raw []byte
	switch b := v.(type) {
	case json.RawMessage:
		raw = b
	case []byte:
		raw = b
	case string:
		raw = []byte(b)
	default:
		var err error
		if raw, err = json.Marshal(v); err != nil {
			return out, fmt.Errorf("%w: %w", constants.ErrDecode, err)
		}
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("%w: %w", constants.ErrDecode, err)
	}
	return out, nil
}
