package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	wrapped := fmt.Errorf("insert user: %w", &pgconn.PgError{Code: "23505"})
	if !IsUniqueViolation(wrapped) {
		t.Fatal("expected wrapped 23505 to be a unique violation")
	}
	if IsUniqueViolation(&pgconn.PgError{Code: "23503"}) {
		t.Fatal("foreign key violation reported as unique violation")
	}
	if !IsForeignKeyViolation(&pgconn.PgError{Code: "23503"}) {
		t.Fatal("expected 23503 to be a foreign key violation")
	}
	if IsUniqueViolation(errors.New("plain")) {
		t.Fatal("plain error reported as unique violation")
	}
}

func TestVersionConflictErrorMessage(t *testing.T) {
	err := error(&VersionConflictError{PageID: "p1", Current: 4})
	var conflict *VersionConflictError
	if !errors.As(fmt.Errorf("commit: %w", err), &conflict) {
		t.Fatal("expected errors.As to find the conflict")
	}
	if conflict.Current != 4 || err.Error() != "page p1 is at version 4" {
		t.Fatalf("unexpected conflict %+v: %s", conflict, err)
	}
}
