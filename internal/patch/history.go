package patch

// HistoryFrame is one undoable unit: the full batch produced by one command.
type HistoryFrame struct {
	Name    string  `json:"name"`
	Patches []Patch `json:"patches"`
}

// History is a linear undo/redo stack. Index points at the last applied
// frame; -1 means nothing has been applied.
type History struct {
	Stack []HistoryFrame `json:"stack"`
	Index int            `json:"index"`
}

func NewHistory() History {
	return History{Index: -1}
}

// Push records frame as applied and drops any frames that could have been
// redone. The stack is reallocated, so copies of an earlier History keep
// their frames.
func (h *History) Push(frame HistoryFrame) {
	h.Stack = append(h.Stack[:h.Index+1:h.Index+1], frame)
	h.Index = len(h.Stack) - 1
}

func (h *History) CanUndo() bool {
	return h.Index >= 0
}

func (h *History) CanRedo() bool {
	return h.Index+1 < len(h.Stack)
}

// Current returns the frame an undo would revert.
func (h *History) Current() (HistoryFrame, bool) {
	if !h.CanUndo() {
		return HistoryFrame{}, false
	}
	return h.Stack[h.Index], true
}

// Next returns the frame a redo would re-apply.
func (h *History) Next() (HistoryFrame, bool) {
	if !h.CanRedo() {
		return HistoryFrame{}, false
	}
	return h.Stack[h.Index+1], true
}
