package autofilter

import (
	"fmt"
	"net/url"

	"github.com/kailas-cloud/autofilter/internal/domain/filter"
)

// Filter names a changelist filter. TargetField is set for filters keyed by
// a related record ("category" with TargetField "id" reads category__id__in).
type Filter struct {
	Field       string
	TargetField string
}

// Apply returns a copy of q selecting tokens (and optionally the empty value)
// in the filter. Tokens containing commas are escaped.
func (f Filter) Apply(q url.Values, tokens []string, isNull bool) (url.Values, error) {
	opts := filter.Options{FieldPath: f.Field}
	if f.TargetField != "" {
		opts.Variant = filter.Related
		opts.Target = f.Field
		opts.TargetField = f.TargetField
	}
	d, err := filter.NewDefinition(opts)
	if err != nil {
		return nil, fmt.Errorf("autofilter: %w", err)
	}
	return filter.EncodeState(q, d, filter.NewState(tokens, isNull)), nil
}
