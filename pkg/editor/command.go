package editor

import (
	"sort"

	"post-editor-be/pkg/lexical"

	"go.uber.org/zap"
)

// CommandType names a command on the bus.
type CommandType string

const (
	CommandInsertImage          CommandType = "INSERT_IMAGE"
	CommandFormatText           CommandType = "FORMAT_TEXT"
	CommandUndo                 CommandType = "UNDO"
	CommandRedo                 CommandType = "REDO"
	CommandToggleLink           CommandType = "TOGGLE_LINK"
	CommandInsertList           CommandType = "INSERT_LIST"
	CommandRemoveList           CommandType = "REMOVE_LIST"
	CommandInsertText           CommandType = "INSERT_TEXT"
	CommandKeyBackspace         CommandType = "KEY_BACKSPACE"
	CommandKeyDelete            CommandType = "KEY_DELETE"
	CommandPatchTextStyle       CommandType = "PATCH_TEXT_STYLE"
	CommandFormatElement        CommandType = "FORMAT_ELEMENT"
	CommandIndentContent        CommandType = "INDENT_CONTENT"
	CommandOutdentContent       CommandType = "OUTDENT_CONTENT"
	CommandSetBlockType         CommandType = "SET_BLOCK_TYPE"
	CommandInsertHorizontalRule CommandType = "INSERT_HORIZONTAL_RULE"
	CommandResizeImage          CommandType = "RESIZE_IMAGE"
	CommandDragDropImage        CommandType = "DRAG_DROP_IMAGE"
	CommandClearEditor          CommandType = "CLEAR_EDITOR"
	CommandToggleChecked        CommandType = "TOGGLE_CHECKED"
)

// Priority orders handlers of one command; higher runs first.
type Priority int

const (
	PriorityEditor Priority = iota
	PriorityLow
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

// CommandHandler reports whether it handled the payload. Returning an error also stops
// dispatch and rolls the edit back.
type CommandHandler func(payload interface{}) (bool, error)

type registeredHandler struct {
	id       int
	priority Priority
	handler  CommandHandler
}

// InsertImagePayload is the payload of INSERT_IMAGE.
type InsertImagePayload struct {
	Src     string
	AltText string
	Width   int
	Height  int
}

// ToggleLinkPayload is the payload of TOGGLE_LINK; an empty URL removes the link.
type ToggleLinkPayload struct {
	URL    string
	Target string
	Rel    string
	Title  string
}

// ListKind is the payload of INSERT_LIST.
type ListKind string

const (
	ListBullet ListKind = "bullet"
	ListNumber ListKind = "number"
	ListCheck  ListKind = "check"
)

// BlockType is the payload of SET_BLOCK_TYPE.
type BlockType string

const (
	BlockParagraph BlockType = "paragraph"
	BlockH1        BlockType = "h1"
	BlockH2        BlockType = "h2"
	BlockH3        BlockType = "h3"
	BlockQuote     BlockType = "quote"
	BlockCode      BlockType = "code"
)

// ResizeImagePayload is the payload of RESIZE_IMAGE.
type ResizeImagePayload struct {
	Key    lexical.NodeKey
	Width  int
	Height int
}

// DragDropImagePayload is the payload of DRAG_DROP_IMAGE.
type DragDropImagePayload struct {
	Key    lexical.NodeKey
	Target Point
}

// editOptionsFor returns how the edit wrapping a dispatch of t is recorded in history.
func editOptionsFor(t CommandType) EditOptions {
	switch t {
	case CommandInsertText:
		return EditOptions{Tag: string(t), Merge: true}
	case CommandUndo, CommandRedo:
		return EditOptions{Tag: TagHistoric, SkipHistory: true}
	case CommandClearEditor:
		return EditOptions{Tag: string(t), SkipHistory: true}
	}
	return EditOptions{Tag: string(t)}
}

// RegisterCommand adds a handler and returns a function that removes it.
func (e *Editor) RegisterCommand(t CommandType, p Priority, h CommandHandler) func() {
	e.nextHandlerID++
	id := e.nextHandlerID
	list := append(e.commands[t], registeredHandler{id: id, priority: p, handler: h})
	sort.SliceStable(list, func(i, j int) bool { return list[i].priority > list[j].priority })
	e.commands[t] = list

	return func() {
		handlers := e.commands[t]
		for i, rh := range handlers {
			if rh.id == id {
				e.commands[t] = append(handlers[:i:i], handlers[i+1:]...)
				return
			}
		}
	}
}

// HasCommand reports whether any handler is registered for t.
func (e *Editor) HasCommand(t CommandType) bool {
	return len(e.commands[t]) > 0
}

// Dispatch runs the handlers of t and reports whether one of them handled it.
// Errors are logged and rolled back; use DispatchCommand to observe them.
func (e *Editor) Dispatch(t CommandType, payload interface{}) bool {
	handled, _ := e.DispatchCommand(t, payload)
	return handled
}

// DispatchCommand runs the handlers of t in descending priority inside one edit and stops at
// the first that handles it. A command nobody claims is dropped without an error.
func (e *Editor) DispatchCommand(t CommandType, payload interface{}) (bool, error) {
	handlers := append([]registeredHandler(nil), e.commands[t]...)
	if len(handlers) == 0 {
		e.logger.Debug("command dropped, no handlers", zap.String("command", string(t)))
		return false, nil
	}

	handled := false
	err := e.run(editOptionsFor(t), func(x *Edit) error {
		for _, rh := range handlers {
			ok, err := rh.handler(payload)
			if err != nil {
				handled = true
				return err
			}
			if ok {
				handled = true
				return nil
			}
		}
		x.quiet = true
		return nil
	})
	if err != nil {
		e.logger.Warn("command rolled back", zap.String("command", string(t)), zap.Error(err))
		return handled, err
	}
	e.logger.Debug("command dispatched", zap.String("command", string(t)), zap.Bool("handled", handled))
	return handled, nil
}
