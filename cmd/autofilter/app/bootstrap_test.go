package app

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kailas-cloud/autofilter/internal/config"
	"github.com/kailas-cloud/autofilter/internal/domain/field"
	"github.com/kailas-cloud/autofilter/internal/domain/filter"
	autocompleteuc "github.com/kailas-cloud/autofilter/internal/usecase/autocomplete"
)

func boolPtr(b bool) *bool { return &b }

func testCollections() []config.CollectionConfig {
	return []config.CollectionConfig{
		{Name: "cities", Label: "name", CreateField: "name", PageSize: 20, CaseInsensitive: boolPtr(true)},
		{Name: "categories", Label: "name"},
		{
			Name:    "items",
			Label:   "title",
			Columns: []string{"id", "title", "city", "category_id"},
			Filters: []config.FilterConfig{
				{Field: "city", Title: "City"},
				{Field: "category", Column: "category_id", Variant: "related", Target: "categories", Kind: "int"},
			},
		},
	}
}

func TestBuildCollections(t *testing.T) {
	cols, err := buildCollections(testCollections())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cols) != 3 {
		t.Fatalf("collections = %d", len(cols))
	}
	items := cols[2]
	filters := items.Filters()
	if len(filters) != 2 {
		t.Fatalf("filters = %d", len(filters))
	}
	cat := filters[1]
	if cat.Variant() != filter.Related || cat.Kind() != field.Int || cat.InParam() != "category__id__in" {
		t.Errorf("category filter: variant=%s kind=%s param=%s", cat.Variant(), cat.Kind(), cat.InParam())
	}
}

func TestBuildCollections_InvalidFilter(t *testing.T) {
	cfgs := []config.CollectionConfig{{
		Name:    "items",
		Label:   "title",
		Filters: []config.FilterConfig{{Field: "bad-path"}},
	}}
	if _, err := buildCollections(cfgs); err == nil {
		t.Fatal("expected error")
	}
}

func TestBuildEndpoints(t *testing.T) {
	cfgs := testCollections()
	cols, err := buildCollections(cfgs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	eps := buildEndpoints(cfgs, cols)

	cities := eps["cities"]
	if cities.Source != autocompleteuc.SourceStore || !cities.CaseInsensitive || cities.PageSize != 20 {
		t.Errorf("cities endpoint = %+v", cities)
	}
	if cities.CreateField() != "name" {
		t.Errorf("create field = %q", cities.CreateField())
	}
	if eps["items"].CaseInsensitive {
		t.Error("items must default to case-sensitive")
	}
}

func TestBuildFieldEndpoint(t *testing.T) {
	cols, err := buildCollections(testCollections())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	e, err := buildFieldEndpoint(config.FieldEndpointConfig{SourceCollection: "cities", SourceColumn: "name", PageSize: 5}, cols)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Source != autocompleteuc.SourceCache || e.Target.Name() != "cities" || e.PageSize != 5 {
		t.Errorf("endpoint = %+v", e)
	}
	if e.CreateField() != "name" {
		t.Errorf("create field = %q, want the source column", e.CreateField())
	}

	e, err = buildFieldEndpoint(config.FieldEndpointConfig{SourceCollection: "items", SourceColumn: "city"}, cols)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.CreateField() != "" {
		t.Error("create must be disabled when the source collection has no create field")
	}
}

func TestBuildFieldEndpoint_Invalid(t *testing.T) {
	cols, err := buildCollections(testCollections())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tests := []struct {
		name string
		cfg  config.FieldEndpointConfig
	}{
		{"unknown source", config.FieldEndpointConfig{SourceCollection: "tags", SourceColumn: "name"}},
		{"creates another column", config.FieldEndpointConfig{SourceCollection: "cities", SourceColumn: "country"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := buildFieldEndpoint(tt.cfg, cols); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestBuildPrincipals(t *testing.T) {
	ps := buildPrincipals([]config.PrincipalConfig{
		{Key: "a", Subject: "admin", Superuser: true},
		{Key: "s", Subject: "staff", Permissions: []string{"cities.add"}},
	})
	if !ps["a"].Superuser || ps["a"].ID != "admin" {
		t.Errorf("admin = %+v", ps["a"])
	}
	if !ps["s"].HasPermission("cities.add") || ps["s"].HasPermission("items.add") {
		t.Errorf("staff = %+v", ps["s"])
	}
}

func TestReadPolicies(t *testing.T) {
	b, err := readPolicies("")
	if err != nil || b != nil {
		t.Fatalf("empty path: %v %v", b, err)
	}

	path := filepath.Join(t.TempDir(), "policies.cedar")
	if err := os.WriteFile(path, []byte("permit(principal, action, resource);"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	b, err = readPolicies(path)
	if err != nil || !strings.HasPrefix(string(b), "permit") {
		t.Fatalf("read: %q %v", b, err)
	}

	if _, err := readPolicies(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestVersionCommand(t *testing.T) {
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.HasPrefix(out.String(), "autofilter ") {
		t.Errorf("output = %q", out.String())
	}
}

func TestMigrateDown_Cancelled(t *testing.T) {
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader("n\n"))
	root.SetArgs([]string{"migrate", "down"})
	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "cancelled") {
		t.Fatalf("expected cancellation, got %v", err)
	}
}
