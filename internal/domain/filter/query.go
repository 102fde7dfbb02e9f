package filter

import "net/url"

// IsNullValue is the value written for an active is-null parameter.
const IsNullValue = "True"

// QueryString copies base, applies set, drops the remove keys and encodes the
// result with a leading "?". Keys are sorted by url.Values.Encode.
func QueryString(base url.Values, set map[string]string, remove ...string) string {
	p := make(url.Values, len(base)+len(set))
	for k, v := range base {
		p[k] = append([]string(nil), v...)
	}
	for _, k := range remove {
		p.Del(k)
	}
	for k, v := range set {
		p.Set(k, v)
	}
	return "?" + p.Encode()
}

// ToggleQuery returns the query string that toggles token in the filter.
// When the resulting selection is empty the __in parameter is dropped so the
// URL reverts to "no filter".
func ToggleQuery(base url.Values, d Definition, s State, token string) string {
	tokens := s.Toggle(token)
	if len(tokens) == 0 {
		return QueryString(base, nil, d.InParam())
	}
	return QueryString(base, map[string]string{d.InParam(): JoinTokens(tokens)})
}

// ToggleIsNullQuery returns the query string that flips the is-null parameter.
// The __in parameter is left untouched.
func ToggleIsNullQuery(base url.Values, d Definition, s State) string {
	if s.IsNull() {
		return QueryString(base, nil, d.IsNullParam())
	}
	return QueryString(base, map[string]string{d.IsNullParam(): IsNullValue})
}

// EncodeState writes s into a copy of base, replacing both filter parameters.
func EncodeState(base url.Values, d Definition, s State) url.Values {
	p := make(url.Values, len(base)+2)
	for k, v := range base {
		p[k] = append([]string(nil), v...)
	}
	p.Del(d.InParam())
	p.Del(d.IsNullParam())
	if toks := s.Tokens(); len(toks) > 0 {
		p.Set(d.InParam(), JoinTokens(toks))
	}
	if s.IsNull() {
		p.Set(d.IsNullParam(), IsNullValue)
	}
	return p
}
