package record

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/kailas-cloud/autofilter/internal/db"
	"github.com/kailas-cloud/autofilter/internal/domain"
	"github.com/kailas-cloud/autofilter/internal/domain/candidate"
	"github.com/kailas-cloud/autofilter/internal/domain/collection"
)

// querier is the consumer interface over pgxpool.Pool (ISP).
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repo implements the record store on PostgreSQL.
type Repo struct {
	q querier
}

// New creates a record repository.
func New(q querier) *Repo {
	return &Repo{q: q}
}

// Search returns one page of candidates ordered by label, and whether more follow.
// Forwarded keys that are not columns of the collection are ignored.
func (r *Repo) Search(ctx context.Context, c collection.Collection, sq candidate.Query) ([]candidate.Candidate, bool, error) {
	var (
		where []string
		args  []any
	)
	if sq.Term != "" {
		args = append(args, "%"+escapeLike(sq.Term)+"%")
		where = append(where, fmt.Sprintf(`%s::text ILIKE $%d ESCAPE '\'`, ident(c.Search()), len(args)))
	}
	for _, k := range sortedKeys(sq.Forwarded) {
		if !c.HasColumn(k) {
			continue
		}
		args = append(args, sq.Forwarded[k])
		where = append(where, fmt.Sprintf("%s::text = $%d", ident(k), len(args)))
	}

	sql := fmt.Sprintf("SELECT %s::text, %s::text FROM %s", ident(c.PK()), ident(c.Label()), ident(c.Table()))
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	sql += fmt.Sprintf(" ORDER BY %s, %s", ident(c.Label()), ident(c.PK()))
	if sq.Limit > 0 {
		sql += " LIMIT " + strconv.Itoa(sq.Limit+1)
	}
	if sq.Offset > 0 {
		sql += " OFFSET " + strconv.Itoa(sq.Offset)
	}

	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, false, mapError(db.OpSelect, err)
	}
	found, err := pgx.CollectRows(rows, scanCandidate)
	if err != nil {
		return nil, false, mapError(db.OpSelect, err)
	}

	more := sq.Limit > 0 && len(found) > sq.Limit
	if more {
		found = found[:sq.Limit]
	}
	return found, more, nil
}

// GetOrCreate returns the record whose create field equals text, inserting it
// when absent. created reports whether this call inserted the row. Concurrent
// callers converge on one row through the table's unique constraint.
func (r *Repo) GetOrCreate(ctx context.Context, c collection.Collection, text string) (candidate.Candidate, bool, error) {
	if c.CreateField() == "" {
		return candidate.Candidate{}, false, fmt.Errorf("%w: collection %s has no create field", domain.ErrImproperlyConfigured, c.Name())
	}

	existing, err := r.findByCreateField(ctx, c, text)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, db.ErrNoRows) {
		return candidate.Candidate{}, false, err
	}

	insert := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES ($1) ON CONFLICT DO NOTHING RETURNING %s::text, %s::text",
		ident(c.Table()), ident(c.CreateField()), ident(c.PK()), ident(c.Label()),
	)
	var got candidate.Candidate
	err = r.q.QueryRow(ctx, insert, text).Scan(&got.ID, &got.Label)
	switch {
	case err == nil:
		return got, true, nil
	case errors.Is(err, pgx.ErrNoRows):
		// Lost the race to a concurrent insert.
		got, err = r.findByCreateField(ctx, c, text)
		if err != nil {
			return candidate.Candidate{}, false, err
		}
		return got, false, nil
	default:
		return candidate.Candidate{}, false, mapError(db.OpInsert, err)
	}
}

func (r *Repo) findByCreateField(ctx context.Context, c collection.Collection, text string) (candidate.Candidate, error) {
	sql := fmt.Sprintf(
		"SELECT %s::text, %s::text FROM %s WHERE %s = $1 ORDER BY %s LIMIT 1",
		ident(c.PK()), ident(c.Label()), ident(c.Table()), ident(c.CreateField()), ident(c.PK()),
	)
	var got candidate.Candidate
	if err := r.q.QueryRow(ctx, sql, text).Scan(&got.ID, &got.Label); err != nil {
		return candidate.Candidate{}, mapError(db.OpSelect, err)
	}
	return got, nil
}

// Labels resolves display labels for primary keys in one query. Keys that do
// not exist are absent from the result.
func (r *Repo) Labels(ctx context.Context, c collection.Collection, ids []string) (map[string]string, error) {
	if len(ids) == 0 {
		return map[string]string{}, nil
	}
	values, idx, err := c.PKKind().CoerceAll(ids)
	if err != nil {
		return nil, domain.NewLookupError(c.PK(), ids[idx], err)
	}

	sql := fmt.Sprintf(
		"SELECT %s::text, %s::text FROM %s WHERE %s = ANY($1::%s[])",
		ident(c.PK()), ident(c.Label()), ident(c.Table()), ident(c.PK()), c.PKKind().SQLType(),
	)
	rows, err := r.q.Query(ctx, sql, values)
	if err != nil {
		return nil, mapError(db.OpSelect, err)
	}
	found, err := pgx.CollectRows(rows, scanCandidate)
	if err != nil {
		return nil, mapError(db.OpSelect, err)
	}

	// Tokens are matched in canonical form but keyed by what the caller passed.
	byCanonical := make(map[string]string, len(found))
	for _, f := range found {
		byCanonical[f.ID] = f.Label
	}
	labels := make(map[string]string, len(ids))
	for i, id := range ids {
		if l, ok := byCanonical[values[i]]; ok {
			labels[id] = l
		}
	}
	return labels, nil
}

// Distinct returns the sorted non-null distinct values of a listed column.
func (r *Repo) Distinct(ctx context.Context, c collection.Collection, column string) ([]string, error) {
	if !c.HasColumn(column) {
		return nil, fmt.Errorf("%w: %s is not a column of %s", domain.ErrImproperlyConfigured, column, c.Name())
	}
	sql := fmt.Sprintf(
		"SELECT DISTINCT %s::text FROM %s WHERE %s IS NOT NULL ORDER BY 1",
		ident(column), ident(c.Table()), ident(column),
	)
	rows, err := r.q.Query(ctx, sql)
	if err != nil {
		return nil, mapError(db.OpDistinct, err)
	}
	values, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, mapError(db.OpDistinct, err)
	}
	return values, nil
}

func scanCandidate(row pgx.CollectableRow) (candidate.Candidate, error) {
	var c candidate.Candidate
	err := row.Scan(&c.ID, &c.Label)
	return c, err
}

func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes LIKE wildcards in a search term match literally.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
