package field

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Kind is the underlying value type of a filterable column.
type Kind string

// Kind constants.
const (
	String Kind = "string"
	Int    Kind = "int"
	UUID   Kind = "uuid"
)

// IsValid checks if the kind is supported.
func (k Kind) IsValid() bool {
	return k == String || k == Int || k == UUID
}

// SQLType returns the Postgres array element type used for membership tests.
func (k Kind) SQLType() string {
	switch k {
	case Int:
		return "bigint"
	case UUID:
		return "uuid"
	default:
		return "text"
	}
}

var errEmptyToken = errors.New("empty value")

// Coerce validates a URL token against the kind and returns its canonical string form.
func (k Kind) Coerce(token string) (string, error) {
	switch k {
	case Int:
		n, err := strconv.ParseInt(strings.TrimSpace(token), 10, 64)
		if err != nil {
			return "", fmt.Errorf("%q is not an integer", token)
		}
		return strconv.FormatInt(n, 10), nil
	case UUID:
		id, err := uuid.Parse(strings.TrimSpace(token))
		if err != nil {
			return "", fmt.Errorf("%q is not a valid UUID", token)
		}
		return id.String(), nil
	case String, "":
		return token, nil
	default:
		return "", fmt.Errorf("unsupported field kind %q", k)
	}
}

// CoerceAll coerces every token, stopping at the first failure.
// The returned index identifies the failing token.
func (k Kind) CoerceAll(tokens []string) ([]string, int, error) {
	out := make([]string, 0, len(tokens))
	for i, t := range tokens {
		if t == "" && k != String {
			return nil, i, errEmptyToken
		}
		v, err := k.Coerce(t)
		if err != nil {
			return nil, i, err
		}
		out = append(out, v)
	}
	return out, -1, nil
}
