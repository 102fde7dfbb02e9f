package forward

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/autofilter/internal/domain"
)

// Values holds the form values a widget forwards to its autocomplete endpoint.
type Values map[string]any

// Parse decodes the raw "forward" parameter. An empty string yields an empty
// object. Anything other than a JSON object is rejected with ErrInvalidForward.
func Parse(raw string) (Values, error) {
	if strings.TrimSpace(raw) == "" {
		raw = "{}"
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("%w: Invalid JSON data", domain.ErrInvalidForward)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: Not a JSON object", domain.ErrInvalidForward)
	}
	return Values(obj), nil
}

// Get returns the forwarded value for key.
func (v Values) Get(key string) (any, bool) {
	val, ok := v[key]
	return val, ok
}

// Strings flattens scalar values to strings. Nulls, empty strings, arrays and
// objects are skipped since they cannot narrow a single column.
func (v Values) Strings() map[string]string {
	out := make(map[string]string, len(v))
	for k, val := range v {
		switch x := val.(type) {
		case string:
			if x != "" {
				out[k] = x
			}
		case float64:
			out[k] = strconv.FormatFloat(x, 'f', -1, 64)
		case bool:
			out[k] = strconv.FormatBool(x)
		}
	}
	return out
}
