// Package filter implements the multi-value list filter: decoding the selected
// tokens from a query string, building toggle query strings, computing the
// record predicate and shaping the widget choices.
package filter

import (
	"fmt"
	"regexp"

	"github.com/kailas-cloud/autofilter/internal/domain"
	"github.com/kailas-cloud/autofilter/internal/domain/field"
)

var pathRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*(__[a-zA-Z_][a-zA-Z0-9_]*)*$`)

// Variant distinguishes filters keyed by a related record's primary key from
// filters keyed by the field's own value.
type Variant string

const (
	// Plain filters by the raw column value; tokens are their own labels.
	Plain Variant = "plain"
	// Related filters by the related record's key; labels are resolved.
	Related Variant = "related"
)

// Definition describes one list filter. Immutable after construction.
type Definition struct {
	title       string
	fieldPath   string
	column      string
	variant     Variant
	target      string
	targetField string
	kind        field.Kind
}

// Options configures a Definition.
type Options struct {
	Title       string
	FieldPath   string     // query-string field path, e.g. "city" or "category"
	Column      string     // record column the predicate applies to
	Variant     Variant    // plain (default) or related
	Target      string     // related collection name
	TargetField string     // related key field, default "id"
	Kind        field.Kind // token kind, default string
}

// NewDefinition validates and creates a Definition.
func NewDefinition(o Options) (Definition, error) {
	if !pathRegex.MatchString(o.FieldPath) {
		return Definition{}, fmt.Errorf("invalid field path %q", o.FieldPath)
	}
	if o.Variant == "" {
		o.Variant = Plain
	}
	if o.Variant != Plain && o.Variant != Related {
		return Definition{}, fmt.Errorf("invalid filter variant %q", o.Variant)
	}
	if o.Kind == "" {
		o.Kind = field.String
	}
	if !o.Kind.IsValid() {
		return Definition{}, fmt.Errorf("invalid kind %q for %q", o.Kind, o.FieldPath)
	}
	if o.Column == "" {
		o.Column = o.FieldPath
	}
	if o.Variant == Related {
		if o.Target == "" {
			return Definition{}, fmt.Errorf("related filter %q requires a target", o.FieldPath)
		}
		if o.TargetField == "" {
			o.TargetField = "id"
		}
	}
	if o.Title == "" {
		o.Title = o.FieldPath
	}
	return Definition{
		title:       o.Title,
		fieldPath:   o.FieldPath,
		column:      o.Column,
		variant:     o.Variant,
		target:      o.Target,
		targetField: o.TargetField,
		kind:        o.Kind,
	}, nil
}

// Title returns the human-readable filter title.
func (d Definition) Title() string { return d.title }

// FieldPath returns the query-string field path.
func (d Definition) FieldPath() string { return d.fieldPath }

// Column returns the record column.
func (d Definition) Column() string { return d.column }

// Variant returns the filter variant.
func (d Definition) Variant() Variant { return d.variant }

// Target returns the related collection name (related variant only).
func (d Definition) Target() string { return d.target }

// Kind returns the token kind.
func (d Definition) Kind() field.Kind { return d.kind }

// InParam returns the membership parameter name.
func (d Definition) InParam() string {
	if d.variant == Related {
		return d.fieldPath + "__" + d.targetField + "__in"
	}
	return d.fieldPath + "__in"
}

// IsNullParam returns the is-null parameter name.
func (d Definition) IsNullParam() string {
	return d.fieldPath + "__isnull"
}

// HasOutput reports whether the filter should be rendered. Autocomplete
// filters never load their choices up front, so they always render.
func (d Definition) HasOutput() bool { return true }

// Predicate is the disjunction "column IN values OR column IS NULL".
// Either side may be absent; an empty predicate matches everything.
type Predicate struct {
	Column string
	Kind   field.Kind
	Values []string
	IsNull bool
}

// IsEmpty reports whether the predicate applies no restriction.
func (p Predicate) IsEmpty() bool {
	return len(p.Values) == 0 && !p.IsNull
}

// Predicate builds the record predicate for a decoded state. Tokens that do
// not fit the filter kind produce an ErrIncorrectLookupParameters error.
func (d Definition) Predicate(s State) (Predicate, error) {
	values, idx, err := d.kind.CoerceAll(s.Tokens())
	if err != nil {
		return Predicate{}, domain.NewLookupError(d.InParam(), s.Tokens()[idx], err)
	}
	return Predicate{
		Column: d.column,
		Kind:   d.kind,
		Values: values,
		IsNull: s.IsNull(),
	}, nil
}
