package filter

import (
	"net/url"
	"slices"
	"strings"
)

// State is the decoded selection of one filter on one request.
type State struct {
	tokens []string
	isNull bool
}

// NewState creates a State, dropping duplicate tokens while keeping order.
func NewState(tokens []string, isNull bool) State {
	seen := make(map[string]struct{}, len(tokens))
	uniq := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		uniq = append(uniq, t)
	}
	return State{tokens: uniq, isNull: isNull}
}

// Decode reads the filter state from query parameters.
func Decode(values url.Values, d Definition) State {
	tokens := SplitTokens(values.Get(d.InParam()))
	return NewState(tokens, isTruthy(values.Get(d.IsNullParam())))
}

// Tokens returns a copy of the selected tokens.
func (s State) Tokens() []string { return slices.Clone(s.tokens) }

// IsNull reports whether the is-null flag is set.
func (s State) IsNull() bool { return s.isNull }

// IsEmpty reports whether no filter is applied.
func (s State) IsEmpty() bool { return len(s.tokens) == 0 && !s.isNull }

// Contains reports whether token is selected.
func (s State) Contains(token string) bool {
	return slices.Contains(s.tokens, token)
}

// Toggle returns the token list with token removed if selected, appended otherwise.
func (s State) Toggle(token string) []string {
	if s.Contains(token) {
		out := make([]string, 0, len(s.tokens))
		for _, t := range s.tokens {
			if t != token {
				out = append(out, t)
			}
		}
		return out
	}
	return append(slices.Clone(s.tokens), token)
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes", "on":
		return true
	default:
		return false
	}
}
