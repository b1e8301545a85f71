// Package ids provides entity-typed identifiers. Each entity kind has its own
// string type so a PageID cannot be passed where a ShapeID is expected.
package ids

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

type (
	BoardID   string
	PageID    string
	LayerID   string
	ShapeID   string
	CommentID string
	UserID    string
	AssetID   string
)

// ID is the set of identifier types.
type ID interface {
	~string
}

var ErrBlankID = errors.New("identifier is blank")

// New returns a fresh random identifier of kind T.
func New[T ID]() T {
	return T(uuid.NewString())
}

// Parse brands a stored string as an identifier of kind T.
func Parse[T ID](value string) (T, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", ErrBlankID
	}
	return T(trimmed), nil
}

// Strings converts a slice of identifiers to plain strings.
func Strings[T ID](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}
