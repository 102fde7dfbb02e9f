package filter

import "strings"

// Separator joins tokens inside a single __in parameter.
const Separator = ","

var (
	tokenEscaper   = strings.NewReplacer("%", "%25", ",", "%2C")
	tokenUnescaper = strings.NewReplacer("%2C", ",", "%2c", ",", "%25", "%")
)

// EscapeToken masks the separator inside a token so it can be embedded in a
// comma-joined list. The percent sign is escaped too, which keeps the
// transform reversible for every input.
func EscapeToken(token string) string {
	return tokenEscaper.Replace(token)
}

// UnescapeToken reverses EscapeToken.
func UnescapeToken(token string) string {
	return tokenUnescaper.Replace(token)
}

// JoinTokens escapes and joins tokens into a single parameter value.
func JoinTokens(tokens []string) string {
	escaped := make([]string, len(tokens))
	for i, t := range tokens {
		escaped[i] = EscapeToken(t)
	}
	return strings.Join(escaped, Separator)
}

// SplitTokens splits a parameter value and unescapes every token.
// An empty value yields no tokens.
func SplitTokens(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, Separator)
	for i, p := range parts {
		parts[i] = UnescapeToken(p)
	}
	return parts
}
