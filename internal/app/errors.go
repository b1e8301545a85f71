package app

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"whiteboard/api/internal/assets"
	"whiteboard/api/internal/command"
	"whiteboard/api/internal/domain"
	"whiteboard/api/internal/patch"
	"whiteboard/api/internal/store"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

func validationError(message string) *DomainError {
	return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", message, nil)
}

func patchErrorDetails(err *patch.Error) map[string]any {
	return map[string]any{"index": err.Index, "op": err.Op, "path": err.Path}
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	var conflict *store.VersionConflictError
	if errors.As(err, &conflict) {
		return http.StatusConflict, "VERSION_CONFLICT", "Page has a newer version", map[string]any{"version": conflict.Current}
	}
	var patchErr *patch.Error
	if errors.As(err, &patchErr) {
		return http.StatusUnprocessableEntity, "PATCH_FAILED", patchErr.Error(), patchErrorDetails(patchErr)
	}
	if errors.Is(err, sql.ErrNoRows) || errors.Is(err, command.ErrNotFound) || errors.Is(err, assets.ErrObjectNotFound) {
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	}
	if errors.Is(err, domain.ErrInvalidShape) || errors.Is(err, command.ErrInvalidInput) {
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil
	}
	if store.IsUniqueViolation(err) {
		return http.StatusConflict, "CONFLICT", "Already exists", nil
	}
	if store.IsForeignKeyViolation(err) {
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Referenced entity does not exist", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
