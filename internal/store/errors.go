package store

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"whiteboard/api/internal/ids"
)

// VersionConflictError reports that a page moved past the version a batch
// was computed against.
type VersionConflictError struct {
	PageID  ids.PageID
	Current int
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("page %s is at version %d", e.PageID, e.Current)
}

// IsUniqueViolation reports whether err is a Postgres unique_violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.SQLState() == "23505"
}

// IsForeignKeyViolation reports whether err is a Postgres foreign_key_violation.
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.SQLState() == "23503"
}
