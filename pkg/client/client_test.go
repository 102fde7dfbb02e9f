package autofilter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNew_InvalidBaseURL(t *testing.T) {
	for _, u := range []string{"", "localhost:8080", "://"} {
		if _, err := New(u); err == nil {
			t.Errorf("New(%q): expected error", u)
		}
	}
}

func TestSearch(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/admin/cities/autocomplete/" {
			t.Errorf("path = %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("q") != "par" || q.Get("page") != "2" || q.Get("forward") != `{"country":"FR"}` {
			t.Errorf("query = %v", q)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer k" {
			t.Errorf("authorization = %q", got)
		}
		if got := r.Header.Get("Accept-Language"); got != "fr" {
			t.Errorf("accept-language = %q", got)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"results": []map[string]any{
				{"id": "1", "text": "Paris", "selected_text": "Paris"},
				{"id": "par", "text": `Créer « par »`, "create_id": true},
			},
			"pagination": map[string]bool{"more": true},
		})
	})

	c, err := New(srv.URL, WithAPIKey("k"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	page, err := c.Search(context.Background(), "/admin/cities/autocomplete/", "par", SearchOptions{
		Page:     2,
		Forward:  map[string]any{"country": "FR"},
		Language: "fr",
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !page.More || len(page.Results) != 2 {
		t.Fatalf("page = %+v", page)
	}
	if page.Results[0].SelectedText != "Paris" || !page.Results[1].CreateID {
		t.Errorf("results = %+v", page.Results)
	}
}

func TestCreate(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.PostForm.Get("text") != "Bergen" {
			t.Errorf("form = %v", r.PostForm)
		}
		writeJSON(w, http.StatusOK, map[string]string{"id": "9", "text": "Bergen"})
	})

	c, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := c.Create(context.Background(), "/admin/cities/autocomplete/", "Bergen", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if res.ID != "9" || res.Text != "Bergen" {
		t.Errorf("result = %+v", res)
	}
}

func TestErrors_MapToSentinels(t *testing.T) {
	tests := []struct {
		status int
		code   string
		want   error
	}{
		{http.StatusForbidden, "forbidden", ErrForbidden},
		{http.StatusBadRequest, "missing_text", ErrMissingText},
		{http.StatusBadRequest, "invalid_forward", ErrInvalidForward},
		{http.StatusInternalServerError, "improperly_configured", ErrImproperlyConfigured},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			srv := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, tt.status, map[string]string{"code": tt.code, "message": "nope"})
			})
			c, err := New(srv.URL)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			_, err = c.Create(context.Background(), "/x/", "t", nil)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			var apiErr *APIError
			if !errors.As(err, &apiErr) || apiErr.StatusCode != tt.status || apiErr.Message != "nope" {
				t.Errorf("api error = %#v", err)
			}
		})
	}
}

func TestErrors_UnknownCode(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	})
	c, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = c.Search(context.Background(), "/x/", "", SearchOptions{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadGateway || apiErr.Unwrap() != nil {
		t.Errorf("err = %#v", err)
	}
}

func TestHealth_Degraded(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "degraded",
			"checks": map[string]string{"cache": "error", "database": "ok"},
		})
	})
	c, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	hs, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if hs.Status != "degraded" || hs.Checks["cache"] != "error" {
		t.Errorf("health = %+v", hs)
	}
}

func TestChangelist(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("category__id__in") != "3,9" || q.Get("city__in") != "Paris%2C TX" || q.Get("city__isnull") != "True" {
			t.Errorf("query = %v", q)
		}
		writeJSON(w, http.StatusOK, map[string]any{"total": 0})
	})
	c, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	q, err := Filter{Field: "category", TargetField: "id"}.Apply(url.Values{}, []string{"3", "9"}, false)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	q, err = Filter{Field: "city"}.Apply(q, []string{"Paris, TX"}, true)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	raw, err := c.Changelist(context.Background(), "/admin/items/", q)
	if err != nil {
		t.Fatalf("Changelist: %v", err)
	}
	if string(raw) == "" {
		t.Error("empty body")
	}
}

func TestWithPrometheus(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			writeJSON(w, http.StatusForbidden, map[string]string{"code": "forbidden", "message": "forbidden"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"results":    []map[string]string{{"id": "Paris", "text": "Paris"}, {"id": "Lyon", "text": "Lyon"}},
			"pagination": map[string]bool{"more": false},
		})
	})
	reg := prometheus.NewRegistry()
	c, err := New(srv.URL, WithPrometheus(reg))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	const endpoint = "/autofilter/field_autocomplete/"
	if _, err := c.Search(context.Background(), endpoint, "", SearchOptions{}); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if _, err := c.Create(context.Background(), endpoint, "Bergen", nil); !errors.Is(err, ErrForbidden) {
		t.Fatalf("Create: expected ErrForbidden, got %v", err)
	}

	m := c.obs.metrics
	if got := testutil.ToFloat64(m.requests.WithLabelValues("search", endpoint, "ok")); got != 1 {
		t.Errorf("search ok = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.requests.WithLabelValues("create", endpoint, "forbidden")); got != 1 {
		t.Errorf("create forbidden = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.searchResults); got != 1 {
		t.Errorf("search results series = %d, want 1", got)
	}

	// A second client on the same registry reuses the collectors.
	c2, err := New(srv.URL, WithPrometheus(reg))
	if err != nil {
		t.Fatalf("second New: %v", err)
	}
	if c2.obs.metrics.requests != m.requests {
		t.Error("second client must reuse the registered counter")
	}
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, "ok"},
		{"coded", &APIError{StatusCode: 400, Code: "invalid_page"}, "invalid_page"},
		{"uncoded", &APIError{StatusCode: 502}, "http_502"},
		{"transport", errors.New("connection refused"), "transport"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := outcome(tt.err); got != tt.want {
				t.Errorf("outcome = %q, want %q", got, tt.want)
			}
		})
	}
}
