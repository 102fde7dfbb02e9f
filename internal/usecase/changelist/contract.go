package changelist

import (
	"context"

	"github.com/kailas-cloud/autofilter/internal/domain/collection"
	"github.com/kailas-cloud/autofilter/internal/domain/filter"
)

// RecordStore lists records and resolves related labels.
type RecordStore interface {
	List(ctx context.Context, c collection.Collection, preds []filter.Predicate, offset, limit int) ([]map[string]any, int, error)
	Labels(ctx context.Context, c collection.Collection, ids []string) (map[string]string, error)
}

// Routes resolves autocomplete URLs: a collection's record endpoint for
// related filters and the field-value endpoint for plain ones.
type Routes interface {
	Reverse(name string) (string, error)
	ResolveAutocomplete(namespace, collection string) (string, error)
}
