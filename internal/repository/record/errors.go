package record

import (
	"errors"
	"maps"
	"slices"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kailas-cloud/autofilter/internal/db"
	"github.com/kailas-cloud/autofilter/internal/domain"
)

// PostgreSQL SQLSTATE codes for values that do not fit the column type.
const (
	codeInvalidTextRepresentation = "22P02"
	codeNumericValueOutOfRange    = "22003"
	codeUniqueViolation           = "23505"
)

// mapError converts driver errors into db and domain errors.
func mapError(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return &db.Error{Op: op, Err: db.ErrNoRows}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeInvalidTextRepresentation, codeNumericValueOutOfRange:
			return domain.NewLookupError(pgErr.ColumnName, "", err)
		case codeUniqueViolation:
			return &db.Error{Op: op, Err: errors.Join(db.ErrConflict, err)}
		}
	}
	return &db.Error{Op: op, Err: err}
}

func sortedKeys(m map[string]string) []string {
	return slices.Sorted(maps.Keys(m))
}
