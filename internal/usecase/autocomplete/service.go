// Package autocomplete implements the search-as-you-type endpoint behind the
// filter widget: candidate search, pagination, the create option and
// get-or-create.
package autocomplete

import (
	"context"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/autofilter/internal/domain"
	"github.com/kailas-cloud/autofilter/internal/domain/candidate"
	"github.com/kailas-cloud/autofilter/internal/domain/principal"
	"github.com/kailas-cloud/autofilter/internal/logger"
)

// SearchRequest is one autocomplete query.
type SearchRequest struct {
	Principal principal.Principal
	Term      string
	// Page is 1-based.
	Page           int
	Forwarded      map[string]string
	AcceptLanguage string
}

// CreateRequest asks for a record with the given text.
type CreateRequest struct {
	Principal principal.Principal
	// Text is nil when the parameter was absent.
	Text *string
}

// Metrics groups the optional counters the service updates.
type Metrics struct {
	CreateOptions  *prometheus.CounterVec // label "endpoint"
	RecordsCreated *prometheus.CounterVec // labels "collection", "created"
}

// Service answers autocomplete queries.
type Service struct {
	records RecordStore
	cache   CandidateCache
	perms   Permissions
	loc     Localizer
	metrics Metrics
}

// New creates an autocomplete service. cache may be nil when no endpoint reads from it.
func New(records RecordStore, cache CandidateCache, perms Permissions, loc Localizer, m Metrics) *Service {
	return &Service{records: records, cache: cache, perms: perms, loc: loc, metrics: m}
}

// Search returns one page of results. Anonymous principals get an empty page.
func (s *Service) Search(ctx context.Context, e Endpoint, req SearchRequest) (candidate.Page, error) {
	if req.Principal.Anonymous() {
		return candidate.Page{Results: []candidate.Result{}}, nil
	}
	if req.Page < 1 {
		return candidate.Page{}, fmt.Errorf("%w: %d", domain.ErrInvalidPage, req.Page)
	}

	found, more, err := s.find(ctx, e, req)
	if err != nil {
		return candidate.Page{}, err
	}

	results := make([]candidate.Result, 0, len(found)+1)
	for _, c := range found {
		results = append(results, c.ToResult())
	}

	if s.offerCreate(ctx, e, req, found) {
		tag := s.loc.Match(req.AcceptLanguage)
		results = append(results, candidate.Result{
			ID:       req.Term,
			Text:     s.loc.CreateLabel(tag, req.Term),
			CreateID: true,
		})
		if s.metrics.CreateOptions != nil {
			s.metrics.CreateOptions.WithLabelValues(e.Name).Inc()
		}
	}

	return candidate.Page{Results: results, More: more}, nil
}

func (s *Service) find(ctx context.Context, e Endpoint, req SearchRequest) ([]candidate.Candidate, bool, error) {
	size := e.pageSize()
	offset := (req.Page - 1) * size

	switch e.Source {
	case SourceStore:
		found, more, err := s.records.Search(ctx, e.Target, candidate.Query{
			Term:      req.Term,
			Forwarded: req.Forwarded,
			Offset:    offset,
			Limit:     size,
		})
		if err != nil {
			return nil, false, fmt.Errorf("search %s: %w", e.Target.Name(), err)
		}
		return found, more, nil
	case SourceCache:
		if s.cache == nil {
			return nil, false, fmt.Errorf("%w: endpoint %s has no candidate cache", domain.ErrImproperlyConfigured, e.Name)
		}
		all, err := s.cache.Candidates(ctx)
		if err != nil {
			return nil, false, fmt.Errorf("candidates: %w", err)
		}
		matched := all[:0:0]
		for _, c := range all {
			if c.Matches(req.Term, e.CaseInsensitive) && c.MatchesForwarded(req.Forwarded) {
				matched = append(matched, c)
			}
		}
		if offset >= len(matched) {
			return nil, false, nil
		}
		end := min(offset+size, len(matched))
		return matched[offset:end], end < len(matched), nil
	default:
		return nil, false, fmt.Errorf("%w: unknown source %q", domain.ErrImproperlyConfigured, e.Source)
	}
}

// offerCreate reports whether the create option belongs on this page. A
// permission check failure hides the option rather than failing the search.
func (s *Service) offerCreate(ctx context.Context, e Endpoint, req SearchRequest, found []candidate.Candidate) bool {
	if e.CreateField() == "" || req.Term == "" || req.Page != 1 {
		return false
	}
	for _, c := range found {
		if strings.EqualFold(c.Label, req.Term) {
			return false
		}
	}
	ok, err := s.perms.CanAdd(ctx, req.Principal, e.Target.Name())
	if err != nil {
		logger.FromContext(ctx).Warn("Add permission check failed",
			zap.String("endpoint", e.Name), zap.Error(err))
		return false
	}
	return ok
}

// Create gets or creates the record named by the request text.
func (s *Service) Create(ctx context.Context, e Endpoint, req CreateRequest) (candidate.Result, error) {
	ok, err := s.perms.CanAdd(ctx, req.Principal, e.Target.Name())
	if err != nil {
		return candidate.Result{}, fmt.Errorf("check add permission: %w", err)
	}
	if !ok {
		return candidate.Result{}, domain.ErrForbidden
	}
	if e.CreateField() == "" {
		return candidate.Result{}, fmt.Errorf("%w: missing create field for endpoint %s", domain.ErrImproperlyConfigured, e.Name)
	}
	if req.Text == nil || *req.Text == "" {
		return candidate.Result{}, domain.ErrMissingText
	}

	rec, created, err := s.records.GetOrCreate(ctx, e.Target, *req.Text)
	if err != nil {
		return candidate.Result{}, fmt.Errorf("get or create in %s: %w", e.Target.Name(), err)
	}
	if s.metrics.RecordsCreated != nil {
		s.metrics.RecordsCreated.WithLabelValues(e.Target.Name(), fmt.Sprint(created)).Inc()
	}

	if created && e.Source == SourceCache && s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			logger.FromContext(ctx).Warn("Failed to invalidate candidate cache",
				zap.String("endpoint", e.Name), zap.Error(err))
		}
	}

	logger.FromContext(ctx).Info("Autocomplete create",
		zap.String("collection", e.Target.Name()),
		zap.String("id", rec.ID),
		zap.Bool("created", created),
	)

	if e.Source == SourceCache {
		// Cached candidates are keyed by value; the create field holds it.
		return candidate.Result{ID: *req.Text, Text: *req.Text}, nil
	}
	return candidate.Result{ID: rec.ID, Text: rec.Label}, nil
}
