// Package changelist renders a collection's filtered record list together
// with the autocomplete filter choices.
package changelist

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/kailas-cloud/autofilter/internal/domain"
	"github.com/kailas-cloud/autofilter/internal/domain/collection"
	"github.com/kailas-cloud/autofilter/internal/domain/filter"
	"github.com/kailas-cloud/autofilter/internal/domain/principal"
	"github.com/kailas-cloud/autofilter/internal/logger"
	"github.com/kailas-cloud/autofilter/internal/routing"
)

// PageParam is the changelist page parameter (1-based).
const PageParam = "p"

// DefaultPageSize is used when the collection does not configure one.
const DefaultPageSize = 100

// RequestContext carries what the changelist needs to know about the
// current request.
type RequestContext struct {
	// Namespace of the admin site serving the request.
	Namespace string
	Query     url.Values
	Principal principal.Principal
}

// FilterView is one rendered filter.
type FilterView struct {
	Title     string          `json:"title"`
	FieldPath string          `json:"field_path"`
	Choices   []filter.Choice `json:"choices"`
}

// Result is one changelist page.
type Result struct {
	Collection string           `json:"collection"`
	Filters    []FilterView     `json:"filters"`
	Rows       []map[string]any `json:"rows"`
	Total      int              `json:"total"`
	Page       int              `json:"page"`
	Pages      int              `json:"pages"`
}

// Service builds changelists.
type Service struct {
	records     RecordStore
	routes      Routes
	collections map[string]collection.Collection
	pageSizes   map[string]int
}

// New creates a changelist service over the given collections. pageSizes
// overrides DefaultPageSize per collection name.
func New(records RecordStore, routes Routes, collections []collection.Collection, pageSizes map[string]int) *Service {
	byName := make(map[string]collection.Collection, len(collections))
	for _, c := range collections {
		byName[c.Name()] = c
	}
	return &Service{records: records, routes: routes, collections: byName, pageSizes: pageSizes}
}

// Collection returns the named collection.
func (s *Service) Collection(name string) (collection.Collection, bool) {
	c, ok := s.collections[name]
	return c, ok
}

// List returns the page of records of the named collection matching the
// request's filter parameters.
func (s *Service) List(ctx context.Context, rc RequestContext, name string) (Result, error) {
	if rc.Principal.Anonymous() {
		return Result{}, domain.ErrForbidden
	}
	c, ok := s.collections[name]
	if !ok {
		return Result{}, fmt.Errorf("collection %q: %w", name, domain.ErrNotFound)
	}
	page, err := parsePage(rc.Query.Get(PageParam))
	if err != nil {
		return Result{}, err
	}

	defs := c.Filters()
	states := make([]filter.State, len(defs))
	preds := make([]filter.Predicate, 0, len(defs))
	for i, d := range defs {
		states[i] = filter.Decode(rc.Query, d)
		p, err := d.Predicate(states[i])
		if err != nil {
			return Result{}, err
		}
		preds = append(preds, p)
	}

	size := s.pageSize(name)
	rows, total, err := s.records.List(ctx, c, preds, (page-1)*size, size)
	if err != nil {
		return Result{}, fmt.Errorf("list %s: %w", name, err)
	}

	// Choice query strings start from the current query without the page,
	// so changing a filter returns to the first page.
	base := cloneValues(rc.Query)
	base.Del(PageParam)

	views := make([]FilterView, 0, len(defs))
	for i, d := range defs {
		choices, err := s.choices(ctx, rc, d, base, states[i])
		if err != nil {
			return Result{}, err
		}
		views = append(views, FilterView{Title: d.Title(), FieldPath: d.FieldPath(), Choices: choices})
	}

	if rows == nil {
		rows = []map[string]any{}
	}
	return Result{
		Collection: name,
		Filters:    views,
		Rows:       rows,
		Total:      total,
		Page:       page,
		Pages:      (total + size - 1) / size,
	}, nil
}

func (s *Service) choices(
	ctx context.Context, rc RequestContext, d filter.Definition, base url.Values, st filter.State,
) ([]filter.Choice, error) {
	autocompleteURL, err := s.autocompleteURL(rc, d)
	if err != nil {
		return nil, fmt.Errorf("filter %s: %w", d.FieldPath(), err)
	}

	var labels map[string]string
	if d.NeedsLabels() && len(st.Tokens()) > 0 {
		labels = s.labels(ctx, d, st.Tokens())
	}
	return d.Choices(autocompleteURL, base, st, labels), nil
}

// autocompleteURL picks the widget endpoint: related filters search the
// target collection's records, plain filters search field values.
func (s *Service) autocompleteURL(rc RequestContext, d filter.Definition) (string, error) {
	if d.Variant() == filter.Related {
		return s.routes.ResolveAutocomplete(rc.Namespace, d.Target())
	}
	return s.routes.Reverse(routing.FieldAutocompleteRoute)
}

// labels resolves display labels for related tokens. Failures fall back to
// showing the raw tokens.
func (s *Service) labels(ctx context.Context, d filter.Definition, tokens []string) map[string]string {
	target, ok := s.collections[d.Target()]
	if !ok {
		logger.FromContext(ctx).Warn("Related filter target is not a known collection",
			zap.String("filter", d.FieldPath()), zap.String("target", d.Target()))
		return nil
	}
	labels, err := s.records.Labels(ctx, target, tokens)
	if err != nil {
		logger.FromContext(ctx).Warn("Failed to resolve filter labels",
			zap.String("filter", d.FieldPath()), zap.Error(err))
		return nil
	}
	return labels
}

func (s *Service) pageSize(name string) int {
	if n := s.pageSizes[name]; n > 0 {
		return n
	}
	return DefaultPageSize
}

func parsePage(raw string) (int, error) {
	if raw == "" {
		return 1, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %q", domain.ErrInvalidPage, raw)
	}
	return n, nil
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}
