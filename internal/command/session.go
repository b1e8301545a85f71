package command

import (
	"errors"
	"fmt"
	"slices"

	"whiteboard/api/internal/domain"
	"whiteboard/api/internal/patch"
)

var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

// Session is a single editor's view of a document with its undo history.
// It is not safe for concurrent use.
type Session struct {
	doc     *domain.Doc
	history patch.History
	// commands[i] produced history.Stack[i].
	commands []Command
}

func NewSession(doc *domain.Doc) *Session {
	return &Session{doc: doc, history: patch.NewHistory()}
}

func (s *Session) Doc() *domain.Doc {
	return s.doc
}

// History returns a copy of the undo history.
func (s *Session) History() patch.History {
	history := s.history
	history.Stack = slices.Clone(s.history.Stack)
	return history
}

// Execute runs cmd and records its batch as one history frame, discarding
// anything that could have been redone.
func (s *Session) Execute(cmd Command) ([]patch.Patch, error) {
	patches, err := cmd.Do(s.doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cmd.Name(), err)
	}
	s.commands = append(s.commands[:s.history.Index+1], cmd)
	s.history.Push(patch.HistoryFrame{Name: cmd.Name(), Patches: patches})
	return patches, nil
}

// Undo reverts the most recent frame and returns the batch that was applied.
func (s *Session) Undo() ([]patch.Patch, error) {
	frame, ok := s.history.Current()
	if !ok {
		return nil, ErrNothingToUndo
	}
	if err := s.commands[s.history.Index].Undo(s.doc, frame.Patches); err != nil {
		return nil, fmt.Errorf("undo %s: %w", frame.Name, err)
	}
	s.history.Index--
	return patch.Invert(frame.Patches), nil
}

// Redo re-applies the frame above the current index.
func (s *Session) Redo() ([]patch.Patch, error) {
	frame, ok := s.history.Next()
	if !ok {
		return nil, ErrNothingToRedo
	}
	if err := s.doc.Apply(frame.Patches); err != nil {
		return nil, fmt.Errorf("redo %s: %w", frame.Name, err)
	}
	s.history.Index++
	return frame.Patches, nil
}

func (s *Session) CanUndo() bool { return s.history.CanUndo() }

func (s *Session) CanRedo() bool { return s.history.CanRedo() }
