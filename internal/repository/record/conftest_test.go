package record

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kailas-cloud/autofilter/internal/domain/collection"
	"github.com/kailas-cloud/autofilter/internal/domain/field"
)

// fakeRows is an in-memory pgx.Rows.
type fakeRows struct {
	fields []string
	values [][]any
	pos    int
	err    error
	closed bool
}

func (r *fakeRows) Close()                        { r.closed = true }
func (r *fakeRows) Err() error                    { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag { return pgconn.CommandTag{} }
func (r *fakeRows) Conn() *pgx.Conn               { return nil }
func (r *fakeRows) RawValues() [][]byte           { return nil }

func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription {
	fds := make([]pgconn.FieldDescription, len(r.fields))
	for i, f := range r.fields {
		fds[i] = pgconn.FieldDescription{Name: f}
	}
	return fds
}

func (r *fakeRows) Next() bool {
	if r.closed || r.pos >= len(r.values) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Values() ([]any, error) {
	return r.values[r.pos-1], nil
}

func (r *fakeRows) Scan(dest ...any) error {
	return assign(r.values[r.pos-1], dest)
}

// fakeRow is an in-memory pgx.Row.
type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return assign(r.values, dest)
}

func assign(values []any, dest []any) error {
	if len(values) != len(dest) {
		return fmt.Errorf("scan: %d values into %d destinations", len(values), len(dest))
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = values[i].(string)
		case *int:
			*p = values[i].(int)
		default:
			return fmt.Errorf("scan: unsupported destination %T", d)
		}
	}
	return nil
}

type call struct {
	sql  string
	args []any
}

// fakeQuerier replays queued results and records every statement.
type fakeQuerier struct {
	queries  []call
	rows     []*fakeRows
	queryErr error
	rowCalls []call
	row      []fakeRow
}

func (q *fakeQuerier) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	q.queries = append(q.queries, call{sql: sql, args: args})
	if q.queryErr != nil {
		return nil, q.queryErr
	}
	if len(q.rows) == 0 {
		return &fakeRows{}, nil
	}
	r := q.rows[0]
	q.rows = q.rows[1:]
	return r, nil
}

func (q *fakeQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	q.rowCalls = append(q.rowCalls, call{sql: sql, args: args})
	if len(q.row) == 0 {
		return fakeRow{err: pgx.ErrNoRows}
	}
	r := q.row[0]
	q.row = q.row[1:]
	return r
}

func newTestRepo(t *testing.T) (*Repo, *fakeQuerier) {
	t.Helper()
	q := &fakeQuerier{}
	return New(q), q
}

func mustCollection(t *testing.T, o collection.Options) collection.Collection {
	t.Helper()
	c, err := collection.New(o)
	if err != nil {
		t.Fatalf("collection.New: %v", err)
	}
	return c
}

func cities(t *testing.T) collection.Collection {
	t.Helper()
	return mustCollection(t, collection.Options{
		Name:        "cities",
		Label:       "name",
		CreateField: "name",
		Columns:     []string{"id", "name", "country"},
		PKKind:      field.Int,
	})
}
