package filter

import "net/url"

// Placeholder is substituted by the widget with the new comma-joined selection.
const Placeholder = "PKVAL"

// Choice is one entry rendered by the autocomplete filter widget. All query
// strings are pre-built so the rendering layer does no further encoding.
type Choice struct {
	URL                    string  `json:"url"`
	Selected               *string `json:"selected"`
	SelectedDisplay        *string `json:"selected_display"`
	QueryString            string  `json:"query_string"`
	QueryStringPlaceholder string  `json:"query_string_placeholder"`
	QueryStringAll         string  `json:"query_string_all"`
	QueryStringToggle      string  `json:"query_string_toggle,omitempty"`
	QueryStringIsNull      string  `json:"query_string_isnull"`
}

// NeedsLabels reports whether Choices expects resolved labels for the tokens.
func (d Definition) NeedsLabels() bool { return d.variant == Related }

// Choices builds the widget choices: a leading unselected choice when nothing
// is selected, otherwise one choice per selected token. labels maps tokens to
// display strings for the related variant; missing entries fall back to the
// token itself. The plain variant always displays the raw token.
func (d Definition) Choices(autocompleteURL string, base url.Values, s State, labels map[string]string) []Choice {
	template := QueryString(base, map[string]string{d.InParam(): Placeholder}, d.IsNullParam())
	all := QueryString(base, nil, d.InParam(), d.IsNullParam())
	isNull := ToggleIsNullQuery(base, d, s)

	tokens := s.Tokens()
	if len(tokens) == 0 {
		return []Choice{{
			URL:                    autocompleteURL,
			QueryString:            template,
			QueryStringPlaceholder: Placeholder,
			QueryStringAll:         all,
			QueryStringIsNull:      isNull,
		}}
	}

	choices := make([]Choice, 0, len(tokens))
	for _, tok := range tokens {
		selected := tok
		display := tok
		if d.NeedsLabels() {
			if l, ok := labels[tok]; ok {
				display = l
			}
		}
		choices = append(choices, Choice{
			URL:                    autocompleteURL,
			Selected:               &selected,
			SelectedDisplay:        &display,
			QueryString:            template,
			QueryStringPlaceholder: Placeholder,
			QueryStringAll:         all,
			QueryStringToggle:      ToggleQuery(base, d, s, tok),
			QueryStringIsNull:      isNull,
		})
	}
	return choices
}
