package collection

import (
	"fmt"
	"regexp"
	"slices"

	"github.com/kailas-cloud/autofilter/internal/domain/field"
	"github.com/kailas-cloud/autofilter/internal/domain/filter"
)

var (
	nameRegex       = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
	identifierRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
)

// Collection describes a record table exposed to autocomplete and changelists
// (immutable value object).
type Collection struct {
	name        string
	table       string
	pk          string
	pkKind      field.Kind
	label       string
	search      string
	createField string
	columns     []string
	filters     []filter.Definition
}

// Options configures a Collection.
type Options struct {
	Name        string
	Table       string // default: Name
	PK          string // default: "id"
	PKKind      field.Kind
	Label       string // display column
	Search      string // searched column, default: Label
	CreateField string // empty disables get-or-create
	Columns     []string
	Filters     []filter.Definition
}

// New validates and creates a Collection.
func New(o Options) (Collection, error) {
	if !nameRegex.MatchString(o.Name) || len(o.Name) > 64 {
		return Collection{}, fmt.Errorf("collection name %q must match %s (max 64)", o.Name, nameRegex)
	}
	if o.Table == "" {
		o.Table = o.Name
	}
	if o.PK == "" {
		o.PK = "id"
	}
	if o.PKKind == "" {
		o.PKKind = field.Int
	}
	if !o.PKKind.IsValid() {
		return Collection{}, fmt.Errorf("collection %s: invalid pk kind %q", o.Name, o.PKKind)
	}
	if o.Label == "" {
		return Collection{}, fmt.Errorf("collection %s: label column is required", o.Name)
	}
	if o.Search == "" {
		o.Search = o.Label
	}
	if len(o.Columns) == 0 {
		o.Columns = []string{o.PK, o.Label}
	}

	idents := append([]string{o.Table, o.PK, o.Label, o.Search}, o.Columns...)
	if o.CreateField != "" {
		idents = append(idents, o.CreateField)
	}
	for _, id := range idents {
		if !identifierRegex.MatchString(id) {
			return Collection{}, fmt.Errorf("collection %s: invalid identifier %q", o.Name, id)
		}
	}

	seen := make(map[string]bool, len(o.Filters))
	for _, f := range o.Filters {
		if seen[f.FieldPath()] {
			return Collection{}, fmt.Errorf("collection %s: duplicate filter %q", o.Name, f.FieldPath())
		}
		seen[f.FieldPath()] = true
		if !identifierRegex.MatchString(f.Column()) {
			return Collection{}, fmt.Errorf("collection %s: invalid filter column %q", o.Name, f.Column())
		}
	}

	return Collection{
		name:        o.Name,
		table:       o.Table,
		pk:          o.PK,
		pkKind:      o.PKKind,
		label:       o.Label,
		search:      o.Search,
		createField: o.CreateField,
		columns:     slices.Clone(o.Columns),
		filters:     slices.Clone(o.Filters),
	}, nil
}

// Name returns the collection name.
func (c Collection) Name() string { return c.name }

// Table returns the backing table.
func (c Collection) Table() string { return c.table }

// PK returns the primary key column.
func (c Collection) PK() string { return c.pk }

// PKKind returns the primary key kind.
func (c Collection) PKKind() field.Kind { return c.pkKind }

// Label returns the display column.
func (c Collection) Label() string { return c.label }

// Search returns the column matched against the search term.
func (c Collection) Search() string { return c.search }

// CreateField returns the column used by get-or-create, empty when disabled.
func (c Collection) CreateField() string { return c.createField }

// Columns returns the listed columns.
func (c Collection) Columns() []string { return slices.Clone(c.columns) }

// Filters returns the list filters.
func (c Collection) Filters() []filter.Definition { return slices.Clone(c.filters) }

// HasColumn reports whether column is listed or is the pk/label column.
func (c Collection) HasColumn(column string) bool {
	return column == c.pk || column == c.label || slices.Contains(c.columns, column)
}

// AddPermission returns the permission codename required to create records.
func (c Collection) AddPermission() string { return c.name + ".add" }
