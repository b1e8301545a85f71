package patch

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidPath  = errors.New("invalid patch path")
	ErrInvalidOp    = errors.New("invalid patch op")
	ErrInvalidValue = errors.New("invalid patch value")
	// ErrStructural means the path does not fit the document: a missing key,
	// an index out of range, or a traversal into a non-container.
	ErrStructural = errors.New("patch does not match document structure")
)

// Error locates a failure within a batch.
type Error struct {
	Index int
	Op    Op
	Path  string
	Err   error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("patch %d (%s %s): %v", e.Index, e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func structural(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrStructural, fmt.Sprintf(format, args...))
}

// Reject builds the error for a batch that applied cleanly but left the
// document at path in a shape its model does not allow. The last patch whose
// path lies on or under path is blamed, or the last patch of the batch when
// none does.
func Reject(patches []Patch, path string, cause error) *Error {
	err := &Error{Index: len(patches) - 1, Err: fmt.Errorf("%w: %w", ErrStructural, cause)}
	target, _ := ParsePath(path)
	for i := len(patches) - 1; i >= 0; i-- {
		segments, parseErr := ParsePath(patches[i].Path)
		if parseErr == nil && len(target) > 0 && related(segments, target) {
			err.Index = i
			break
		}
	}
	if err.Index >= 0 {
		err.Op = patches[err.Index].Op
		err.Path = patches[err.Index].Path
	}
	return err
}

// related reports whether one path is a prefix of the other.
func related(a, b []string) bool {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
