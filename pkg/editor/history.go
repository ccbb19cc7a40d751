package editor

import (
	"time"

	"post-editor-be/pkg/lexical"

	"go.uber.org/zap"
)

// HistoryEntry is an immutable snapshot of the document and selection after an edit.
type HistoryEntry struct {
	Document  *lexical.Document
	Selection Selection
	JSON      string
	Kind      string
	Merge     bool
	At        time.Time
}

// History is the undo/redo stack. The top of the undo stack is the current state; below the
// stack sits the base snapshot taken when the editor was mounted or cleared.
type History struct {
	base        HistoryEntry
	undo        []HistoryEntry
	redo        []HistoryEntry
	mergeWindow time.Duration
	limit       int
}

func newHistory(base HistoryEntry, mergeWindow time.Duration, limit int) *History {
	return &History{base: base, mergeWindow: mergeWindow, limit: limit}
}

// CanUndo reports whether an entry can be undone.
func (h *History) CanUndo() bool {
	return len(h.undo) > 0
}

// CanRedo reports whether an undone entry can be reapplied.
func (h *History) CanRedo() bool {
	return len(h.redo) > 0
}

// Depth returns the sizes of the undo and redo stacks.
func (h *History) Depth() (undo, redo int) {
	return len(h.undo), len(h.redo)
}

// push records entry and clears redo. It reports whether entry was coalesced into the top.
func (h *History) push(entry HistoryEntry) bool {
	h.redo = nil
	if n := len(h.undo); n > 0 && entry.Merge {
		top := h.undo[n-1]
		if top.Merge && top.Kind == entry.Kind && entry.At.Sub(top.At) < h.mergeWindow {
			h.undo[n-1] = entry
			return true
		}
	}
	h.undo = append(h.undo, entry)
	if h.limit > 0 && len(h.undo) > h.limit {
		h.base = h.undo[0]
		h.undo = append([]HistoryEntry(nil), h.undo[1:]...)
	}
	return false
}

// stepBack moves the top entry to redo and returns the state to restore.
// The restored top is sealed so typing after an undo opens a new entry.
func (h *History) stepBack() (HistoryEntry, bool) {
	n := len(h.undo)
	if n == 0 {
		return HistoryEntry{}, false
	}
	h.redo = append(h.redo, h.undo[n-1])
	h.undo = h.undo[:n-1]
	if n == 1 {
		return h.base, true
	}
	h.undo[n-2].Merge = false
	return h.undo[n-2], true
}

// stepForward moves the last undone entry back onto the undo stack and returns it.
func (h *History) stepForward() (HistoryEntry, bool) {
	n := len(h.redo)
	if n == 0 {
		return HistoryEntry{}, false
	}
	entry := h.redo[n-1]
	entry.Merge = false
	h.redo = h.redo[:n-1]
	h.undo = append(h.undo, entry)
	return entry, true
}

func (h *History) reset(base HistoryEntry) {
	h.base = base
	h.undo = nil
	h.redo = nil
}

// History returns the undo/redo stack for inspection.
func (e *Editor) History() *History {
	return e.history
}

func (e *Editor) undo() bool {
	entry, ok := e.history.stepBack()
	if !ok {
		e.logger.Debug("nothing to undo")
		return false
	}
	e.restore(entry)
	return true
}

func (e *Editor) redo() bool {
	entry, ok := e.history.stepForward()
	if !ok {
		e.logger.Debug("nothing to redo")
		return false
	}
	e.restore(entry)
	return true
}

// clear resets the document to the empty editor and forgets all history.
func (e *Editor) clear() {
	e.doc = lexical.NewDocumentWithParagraph()
	e.selection = nil
	base := e.snapshot("")
	base.JSON, _ = lexical.Serialize(e.doc)
	e.history.reset(base)
	e.logger.Debug("editor cleared", zap.Int("nodes", e.doc.Size()))
}

// registerHistory wires UNDO and REDO.
func registerHistory(e *Editor) func() {
	offUndo := e.RegisterCommand(CommandUndo, PriorityEditor, func(interface{}) (bool, error) {
		return e.undo(), nil
	})
	offRedo := e.RegisterCommand(CommandRedo, PriorityEditor, func(interface{}) (bool, error) {
		return e.redo(), nil
	})
	offClear := e.RegisterCommand(CommandClearEditor, PriorityEditor, func(interface{}) (bool, error) {
		e.clear()
		return true, nil
	})
	return func() {
		offUndo()
		offRedo()
		offClear()
	}
}
