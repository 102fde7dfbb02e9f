package autocomplete

import (
	"github.com/kailas-cloud/autofilter/internal/domain/collection"
)

// Source selects where an endpoint reads its candidates from.
type Source string

const (
	// SourceCache reads the cached candidate list and filters it in memory.
	// Candidates are field values: id and text are the value itself.
	SourceCache Source = "cache"
	// SourceStore queries the record store.
	SourceStore Source = "store"
)

// DefaultPageSize is used when an endpoint does not set one.
const DefaultPageSize = 10

// Endpoint configures one autocomplete endpoint.
type Endpoint struct {
	// Name labels metrics and logs.
	Name   string
	Source Source
	// Target is the searched collection for store endpoints and the
	// collection records are created in. For cache endpoints its create
	// field must be the column the cached values are read from.
	// A Target without a create field disables creation.
	Target          collection.Collection
	PageSize        int
	CaseInsensitive bool
}

// CreateField returns the target's create field, empty when creation is disabled.
func (e Endpoint) CreateField() string { return e.Target.CreateField() }

func (e Endpoint) pageSize() int {
	if e.PageSize <= 0 {
		return DefaultPageSize
	}
	return e.PageSize
}
