package record

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/kailas-cloud/autofilter/internal/db"
	"github.com/kailas-cloud/autofilter/internal/domain/collection"
	"github.com/kailas-cloud/autofilter/internal/domain/filter"
)

// List returns one page of rows matching every predicate and the total
// matching count. Predicates are ANDed with each other; within a predicate
// membership and is-null are ORed.
func (r *Repo) List(
	ctx context.Context, c collection.Collection, preds []filter.Predicate, offset, limit int,
) ([]map[string]any, int, error) {
	where, args := buildWhere(preds)

	countSQL := "SELECT count(*) FROM " + ident(c.Table()) + where
	var total int
	if err := r.q.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, mapError(db.OpCount, err)
	}

	cols := make([]string, 0, len(c.Columns()))
	for _, col := range c.Columns() {
		cols = append(cols, ident(col))
	}
	sql := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s", strings.Join(cols, ", "), ident(c.Table()), where, ident(c.PK()))
	if limit > 0 {
		sql += " LIMIT " + strconv.Itoa(limit)
	}
	if offset > 0 {
		sql += " OFFSET " + strconv.Itoa(offset)
	}

	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, mapError(db.OpSelect, err)
	}
	found, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, 0, mapError(db.OpSelect, err)
	}
	return found, total, nil
}

// buildWhere renders predicates as a WHERE clause with positional arguments.
// Empty predicates are skipped.
func buildWhere(preds []filter.Predicate) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	for _, p := range preds {
		if p.IsEmpty() {
			continue
		}
		var parts []string
		if len(p.Values) > 0 {
			args = append(args, slices.Clone(p.Values))
			parts = append(parts, fmt.Sprintf("%s = ANY($%d::%s[])", ident(p.Column), len(args), p.Kind.SQLType()))
		}
		if p.IsNull {
			parts = append(parts, ident(p.Column)+" IS NULL")
		}
		clauses = append(clauses, "("+strings.Join(parts, " OR ")+")")
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
