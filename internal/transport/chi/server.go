// Package chi serves the autocomplete, changelist and operational endpoints
// over a chi router.
package chi

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/kailas-cloud/autofilter/internal/domain"
	"github.com/kailas-cloud/autofilter/internal/domain/candidate"
	"github.com/kailas-cloud/autofilter/internal/domain/forward"
	"github.com/kailas-cloud/autofilter/internal/domain/principal"
	"github.com/kailas-cloud/autofilter/internal/logger"
	"github.com/kailas-cloud/autofilter/internal/routing"
	autocompleteuc "github.com/kailas-cloud/autofilter/internal/usecase/autocomplete"
	changelistuc "github.com/kailas-cloud/autofilter/internal/usecase/changelist"
	healthuc "github.com/kailas-cloud/autofilter/internal/usecase/health"
	"github.com/kailas-cloud/autofilter/internal/version"
)

// allowedMethods is sent with 405 responses from autocomplete endpoints.
const allowedMethods = "GET, POST"

// Server holds the HTTP handlers.
type Server struct {
	autocomplete *autocompleteuc.Service
	changelists  *changelistuc.Service
	health       *healthuc.Service
	routes       *routing.Registry
}

// NewServer creates an HTTP server.
func NewServer(
	autocomplete *autocompleteuc.Service,
	changelists *changelistuc.Service,
	health *healthuc.Service,
	routes *routing.Registry,
) *Server {
	return &Server{
		autocomplete: autocomplete,
		changelists:  changelists,
		health:       health,
		routes:       routes,
	}
}

// SearchResponse is the autocomplete GET response.
type SearchResponse struct {
	Results    []candidate.Result `json:"results"`
	Pagination Pagination         `json:"pagination"`
}

// Pagination tells the widget whether another page exists.
type Pagination struct {
	More bool `json:"more"`
}

// IndexResponse describes the service and its named routes.
type IndexResponse struct {
	Service string   `json:"service"`
	Version string   `json:"version"`
	Routes  []string `json:"routes"`
}

// HealthResponse is the /health body.
type HealthResponse struct {
	Status healthuc.Status                 `json:"status"`
	Checks map[string]healthuc.CheckResult `json:"checks"`
}

// Index handles GET /autofilter/.
func (s *Server) Index(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, IndexResponse{
		Service: "autofilter",
		Version: version.Version,
		Routes:  s.routes.Names(),
	})
}

// Autocomplete returns the handler of one autocomplete endpoint: GET
// searches, POST creates, anything else is 405.
func (s *Server) Autocomplete(e autocompleteuc.Endpoint) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			s.search(w, r, e)
		case http.MethodPost:
			s.create(w, r, e)
		default:
			w.Header().Set("Allow", allowedMethods)
			writeError(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "method not allowed")
		}
	}
}

func (s *Server) search(w http.ResponseWriter, r *http.Request, e autocompleteuc.Endpoint) {
	q := r.URL.Query()

	fwd, err := forward.Parse(q.Get("forward"))
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	page, err := parsePage(q.Get("page"))
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	term := q.Get("q")
	if term == "" {
		term = q.Get("term")
	}

	res, err := s.autocomplete.Search(r.Context(), e, autocompleteuc.SearchRequest{
		Principal:      principal.FromContext(r.Context()),
		Term:           term,
		Page:           page,
		Forwarded:      fwd.Strings(),
		AcceptLanguage: r.Header.Get("Accept-Language"),
	})
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, SearchResponse{
		Results:    res.Results,
		Pagination: Pagination{More: res.More},
	})
}

func (s *Server) create(w http.ResponseWriter, r *http.Request, e autocompleteuc.Endpoint) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid form body")
		return
	}

	if _, err := forward.Parse(r.PostForm.Get("forward")); err != nil {
		handleDomainError(w, r, err)
		return
	}

	var text *string
	if vals, ok := r.PostForm["text"]; ok && len(vals) > 0 {
		text = &vals[0]
	}

	res, err := s.autocomplete.Create(r.Context(), e, autocompleteuc.CreateRequest{
		Principal: principal.FromContext(r.Context()),
		Text:      text,
	})
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// Changelist returns the handler of a collection's changelist on one admin site.
func (s *Server) Changelist(namespace, collection string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := s.changelists.List(r.Context(), changelistuc.RequestContext{
			Namespace: namespace,
			Query:     r.URL.Query(),
			Principal: principal.FromContext(r.Context()),
		}, collection)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		logger.FromContext(r.Context()).Debug("Changelist rendered",
			zap.String("collection", collection),
			zap.Int("total", res.Total),
		)
		writeJSON(w, http.StatusOK, res)
	}
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: report.Status,
		Checks: report.Checks,
	})
}

// parsePage reads the 1-based autocomplete page parameter.
func parsePage(raw string) (int, error) {
	if raw == "" {
		return 1, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, domain.ErrInvalidPage
	}
	return n, nil
}
