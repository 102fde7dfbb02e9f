package chi

import (
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/autofilter/internal/domain/principal"
	"github.com/kailas-cloud/autofilter/internal/metrics"
	"github.com/kailas-cloud/autofilter/internal/routing"
	autocompleteuc "github.com/kailas-cloud/autofilter/internal/usecase/autocomplete"
)

// Paths served by the application itself.
const (
	IndexPath             = "/autofilter/"
	FieldAutocompletePath = "/autofilter/field_autocomplete/"
)

// Site is one admin site: the URL prefix its collections are mounted under
// and the namespace its routes are named in.
type Site struct {
	Namespace string
	Prefix    string
}

// RouterOptions configures NewRouter.
type RouterOptions struct {
	Sites []Site
	// Collections maps collection names to their autocomplete endpoints.
	// Every collection is mounted on every site.
	Collections map[string]autocompleteuc.Endpoint
	// Field is the cache-backed field autocomplete endpoint; nil disables it.
	Field      *autocompleteuc.Endpoint
	Principals map[string]principal.Principal
	Logger     *zap.Logger
}

// NewRouter builds the HTTP handler and names every mounted route in the
// server's registry.
func NewRouter(s *Server, opts RouterOptions) (http.Handler, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(JSONRecoverer(log))
	r.Use(chiMiddleware.RequestID)
	r.Use(WideEventMiddleware(log))
	r.Use(BearerAuthMiddleware(opts.Principals))
	r.Use(metrics.Middleware())

	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", metrics.Handler().ServeHTTP)

	if err := s.mount(r, routing.IndexRoute, IndexPath, s.Index, http.MethodGet); err != nil {
		return nil, err
	}
	if opts.Field != nil {
		if err := s.mount(r, routing.FieldAutocompleteRoute, FieldAutocompletePath, s.Autocomplete(*opts.Field)); err != nil {
			return nil, err
		}
	}

	names := make([]string, 0, len(opts.Collections))
	for name := range opts.Collections {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, site := range opts.Sites {
		prefix := strings.TrimRight(site.Prefix, "/")
		for _, name := range names {
			base := prefix + "/" + name + "/"
			err := s.mount(r, routing.AutocompleteName(site.Namespace, name), base+"autocomplete/",
				s.Autocomplete(opts.Collections[name]))
			if err != nil {
				return nil, err
			}
			err = s.mount(r, routing.ChangelistName(site.Namespace, name), base,
				s.Changelist(site.Namespace, name), http.MethodGet)
			if err != nil {
				return nil, err
			}
		}
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "method not allowed")
	})

	return r, nil
}

// mount names path in the registry and routes it. Without methods the
// handler receives every method.
func (s *Server) mount(r chi.Router, name, path string, h http.HandlerFunc, methods ...string) error {
	if err := s.routes.Register(name, path); err != nil {
		return fmt.Errorf("mount %s: %w", path, err)
	}
	if len(methods) == 0 {
		r.HandleFunc(path, h)
		return nil
	}
	for _, m := range methods {
		r.MethodFunc(m, path, h)
	}
	return nil
}
