package autocomplete

import (
	"context"

	"golang.org/x/text/language"

	"github.com/kailas-cloud/autofilter/internal/domain/candidate"
	"github.com/kailas-cloud/autofilter/internal/domain/collection"
	"github.com/kailas-cloud/autofilter/internal/domain/principal"
)

// RecordStore searches and creates records.
type RecordStore interface {
	Search(ctx context.Context, c collection.Collection, q candidate.Query) ([]candidate.Candidate, bool, error)
	GetOrCreate(ctx context.Context, c collection.Collection, text string) (candidate.Candidate, bool, error)
}

// CandidateCache serves the cached candidate list.
type CandidateCache interface {
	Candidates(ctx context.Context) ([]candidate.Candidate, error)
	Invalidate(ctx context.Context) error
}

// Permissions answers add-permission questions.
type Permissions interface {
	CanAdd(ctx context.Context, p principal.Principal, collection string) (bool, error)
}

// Localizer formats the create-option label.
type Localizer interface {
	Match(acceptLanguage string) language.Tag
	CreateLabel(tag language.Tag, term string) string
}
