package candidate

import "strings"

// Candidate is one searchable value offered by an autocomplete endpoint.
type Candidate struct {
	ID    string
	Label string
	Attrs map[string]string
}

// Matches reports whether the label contains term. An empty term matches everything.
func (c Candidate) Matches(term string, caseInsensitive bool) bool {
	if term == "" {
		return true
	}
	if caseInsensitive {
		return strings.Contains(strings.ToLower(c.Label), strings.ToLower(term))
	}
	return strings.Contains(c.Label, term)
}

// MatchesForwarded reports whether every forwarded value equals the candidate
// attribute of the same name. Keys the candidate does not carry are ignored.
func (c Candidate) MatchesForwarded(forwarded map[string]string) bool {
	for k, v := range forwarded {
		attr, ok := c.Attrs[k]
		if !ok {
			continue
		}
		if attr != v {
			return false
		}
	}
	return true
}

// Result is the widget representation of a candidate.
type Result struct {
	ID           string `json:"id"`
	Text         string `json:"text"`
	SelectedText string `json:"selected_text,omitempty"`
	CreateID     bool   `json:"create_id,omitempty"`
}

// ToResult shapes a candidate for the widget.
func (c Candidate) ToResult() Result {
	return Result{ID: c.ID, Text: c.Label, SelectedText: c.Label}
}

// Page is one page of autocomplete results.
type Page struct {
	Results []Result
	More    bool
}

// Query narrows a record collection by label substring and forwarded values.
type Query struct {
	Term      string
	Forwarded map[string]string
	Offset    int
	Limit     int
}
