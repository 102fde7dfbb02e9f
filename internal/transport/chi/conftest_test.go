package chi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/kailas-cloud/autofilter/internal/authz"
	"github.com/kailas-cloud/autofilter/internal/domain/candidate"
	"github.com/kailas-cloud/autofilter/internal/domain/collection"
	"github.com/kailas-cloud/autofilter/internal/domain/field"
	"github.com/kailas-cloud/autofilter/internal/domain/filter"
	"github.com/kailas-cloud/autofilter/internal/domain/principal"
	"github.com/kailas-cloud/autofilter/internal/i18n"
	"github.com/kailas-cloud/autofilter/internal/routing"
	autocompleteuc "github.com/kailas-cloud/autofilter/internal/usecase/autocomplete"
	changelistuc "github.com/kailas-cloud/autofilter/internal/usecase/changelist"
	healthuc "github.com/kailas-cloud/autofilter/internal/usecase/health"
)

const (
	adminKey = "admin-key"
	staffKey = "staff-key"
	viewKey  = "view-key"
)

var testPrincipals = map[string]principal.Principal{
	adminKey: {ID: "admin", Superuser: true},
	staffKey: {ID: "staff", Permissions: []string{"cities.add"}},
	viewKey:  {ID: "viewer"},
}

// fakeRecords is an in-memory record store keyed by collection name.
type fakeRecords struct {
	mu      sync.Mutex
	records map[string][]candidate.Candidate
	created []string
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{records: map[string][]candidate.Candidate{
		"cities": {
			{ID: "1", Label: "Paris"},
			{ID: "2", Label: "Lyon"},
			{ID: "3", Label: "Oslo"},
		},
		"categories": {
			{ID: "1", Label: "Books"},
			{ID: "2", Label: "Music"},
		},
	}}
}

func (f *fakeRecords) Search(_ context.Context, c collection.Collection, q candidate.Query) ([]candidate.Candidate, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []candidate.Candidate
	for _, r := range f.records[c.Name()] {
		if r.Matches(q.Term, true) {
			matched = append(matched, r)
		}
	}
	if q.Offset >= len(matched) {
		return nil, false, nil
	}
	end := min(q.Offset+q.Limit, len(matched))
	return matched[q.Offset:end], end < len(matched), nil
}

func (f *fakeRecords) GetOrCreate(_ context.Context, c collection.Collection, text string) (candidate.Candidate, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records[c.Name()] {
		if r.Label == text {
			return r, false, nil
		}
	}
	rec := candidate.Candidate{ID: "new-" + text, Label: text}
	f.records[c.Name()] = append(f.records[c.Name()], rec)
	f.created = append(f.created, text)
	return rec, true, nil
}

func (f *fakeRecords) List(context.Context, collection.Collection, []filter.Predicate, int, int) ([]map[string]any, int, error) {
	return []map[string]any{{"id": 1, "title": "Dune", "city": "Paris", "category_id": 1}}, 1, nil
}

func (f *fakeRecords) Labels(_ context.Context, c collection.Collection, ids []string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(ids))
	for _, r := range f.records[c.Name()] {
		for _, id := range ids {
			if r.ID == id {
				out[id] = r.Label
			}
		}
	}
	return out, nil
}

// fakeCache caches the distinct labels of one fakeRecords collection and
// reloads them after Invalidate.
type fakeCache struct {
	records     *fakeRecords
	collection  string
	items       []candidate.Candidate
	loads       int
	invalidated int
}

func (f *fakeCache) Candidates(context.Context) ([]candidate.Candidate, error) {
	if f.items != nil {
		return f.items, nil
	}
	f.records.mu.Lock()
	defer f.records.mu.Unlock()
	f.loads++
	f.items = []candidate.Candidate{}
	for _, r := range f.records.records[f.collection] {
		f.items = append(f.items, candidate.Candidate{ID: r.Label, Label: r.Label})
	}
	return f.items, nil
}

func (f *fakeCache) Invalidate(context.Context) error {
	f.invalidated++
	f.items = nil
	return nil
}

type testEnv struct {
	handler http.Handler
	records *fakeRecords
	cache   *fakeCache
	routes  *routing.Registry
}

func mustCollection(t *testing.T, o collection.Options) collection.Collection {
	t.Helper()
	c, err := collection.New(o)
	if err != nil {
		t.Fatalf("collection %s: %v", o.Name, err)
	}
	return c
}

func mustFilter(t *testing.T, o filter.Options) filter.Definition {
	t.Helper()
	d, err := filter.NewDefinition(o)
	if err != nil {
		t.Fatalf("filter %s: %v", o.FieldPath, err)
	}
	return d
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cities := mustCollection(t, collection.Options{Name: "cities", Label: "name", CreateField: "name"})
	categories := mustCollection(t, collection.Options{Name: "categories", Label: "name"})
	items := mustCollection(t, collection.Options{
		Name:    "items",
		Label:   "title",
		Columns: []string{"id", "title", "city", "category_id"},
		Filters: []filter.Definition{
			mustFilter(t, filter.Options{FieldPath: "city"}),
			mustFilter(t, filter.Options{
				FieldPath: "category", Column: "category_id", Variant: filter.Related,
				Target: "categories", Kind: field.Int,
			}),
		},
	})

	authorizer, err := authz.NewCedarAuthorizer(nil)
	if err != nil {
		t.Fatalf("authorizer: %v", err)
	}

	records := newFakeRecords()
	cache := &fakeCache{records: records, collection: "cities"}
	routes := routing.NewRegistry()

	ac := autocompleteuc.New(records, cache, authorizer, i18n.New(), autocompleteuc.Metrics{})
	cl := changelistuc.New(records, routes, []collection.Collection{cities, categories, items}, nil)
	srv := NewServer(ac, cl, healthuc.New(nil, nil), routes)

	fieldEndpoint := autocompleteuc.Endpoint{Name: "field", Source: autocompleteuc.SourceCache, Target: cities}
	h, err := NewRouter(srv, RouterOptions{
		Sites: []Site{{Namespace: "admin", Prefix: "/admin"}, {Namespace: "staff", Prefix: "/staff/"}},
		Collections: map[string]autocompleteuc.Endpoint{
			"cities":     {Name: "cities", Source: autocompleteuc.SourceStore, Target: cities, CaseInsensitive: true},
			"categories": {Name: "categories", Source: autocompleteuc.SourceStore, Target: categories},
			"items":      {Name: "items", Source: autocompleteuc.SourceStore, Target: items},
		},
		Field:      &fieldEndpoint,
		Principals: testPrincipals,
	})
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	return &testEnv{handler: h, records: records, cache: cache, routes: routes}
}

func newRequest(method, target, key, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	return req
}
