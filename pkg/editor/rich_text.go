package editor

import (
	"fmt"

	"post-editor-be/pkg/lexical"
)

// RegisterRichText installs the built-in handlers for every command at PriorityEditor, so that
// plugins registered at any higher priority can intercept them. It returns the function that
// removes them all.
func RegisterRichText(e *Editor) func() {
	offs := []func(){
		registerHistory(e),
		e.RegisterCommand(CommandInsertText, PriorityEditor, func(payload interface{}) (bool, error) {
			text, ok := payload.(string)
			if !ok {
				return true, invalidPayload(CommandInsertText, payload)
			}
			return e.insertText(text)
		}),
		e.RegisterCommand(CommandKeyBackspace, PriorityEditor, func(interface{}) (bool, error) {
			return e.deleteCharacter(true)
		}),
		e.RegisterCommand(CommandKeyDelete, PriorityEditor, func(interface{}) (bool, error) {
			return e.deleteCharacter(false)
		}),
		e.RegisterCommand(CommandFormatText, PriorityEditor, func(payload interface{}) (bool, error) {
			flag, err := decodeTextFormat(payload)
			if err != nil {
				return true, err
			}
			return e.formatText(flag)
		}),
		e.RegisterCommand(CommandPatchTextStyle, PriorityEditor, func(payload interface{}) (bool, error) {
			patch, ok := payload.(map[string]string)
			if !ok {
				return true, invalidPayload(CommandPatchTextStyle, payload)
			}
			return e.patchTextStyle(patch)
		}),
		e.RegisterCommand(CommandToggleLink, PriorityEditor, func(payload interface{}) (bool, error) {
			p, err := decodeLink(payload)
			if err != nil {
				return true, err
			}
			return e.toggleLink(p)
		}),
		e.RegisterCommand(CommandInsertList, PriorityEditor, func(payload interface{}) (bool, error) {
			kind, err := decodeListKind(payload)
			if err != nil {
				return true, err
			}
			return e.insertList(kind)
		}),
		e.RegisterCommand(CommandRemoveList, PriorityEditor, func(interface{}) (bool, error) {
			return e.removeList()
		}),
		e.RegisterCommand(CommandToggleChecked, PriorityEditor, func(payload interface{}) (bool, error) {
			key, err := decodeKey(CommandToggleChecked, payload)
			if err != nil {
				return true, err
			}
			return e.toggleChecked(key)
		}),
		e.RegisterCommand(CommandFormatElement, PriorityEditor, func(payload interface{}) (bool, error) {
			var align lexical.ElementFormat
			switch v := payload.(type) {
			case lexical.ElementFormat:
				align = v
			case string:
				align = lexical.ElementFormat(v)
			default:
				return true, invalidPayload(CommandFormatElement, payload)
			}
			return e.formatElement(align)
		}),
		e.RegisterCommand(CommandIndentContent, PriorityEditor, func(interface{}) (bool, error) {
			return e.indent(1)
		}),
		e.RegisterCommand(CommandOutdentContent, PriorityEditor, func(interface{}) (bool, error) {
			return e.indent(-1)
		}),
		e.RegisterCommand(CommandSetBlockType, PriorityEditor, func(payload interface{}) (bool, error) {
			var bt BlockType
			switch v := payload.(type) {
			case BlockType:
				bt = v
			case string:
				bt = BlockType(v)
			default:
				return true, invalidPayload(CommandSetBlockType, payload)
			}
			return e.setBlockType(bt)
		}),
		e.RegisterCommand(CommandInsertHorizontalRule, PriorityEditor, func(interface{}) (bool, error) {
			return e.insertHorizontalRule()
		}),
		e.RegisterCommand(CommandInsertImage, PriorityEditor, func(payload interface{}) (bool, error) {
			var p InsertImagePayload
			switch v := payload.(type) {
			case InsertImagePayload:
				p = v
			case *InsertImagePayload:
				if v == nil {
					return true, invalidPayload(CommandInsertImage, payload)
				}
				p = *v
			default:
				return true, invalidPayload(CommandInsertImage, payload)
			}
			return e.insertImage(p)
		}),
		e.RegisterCommand(CommandResizeImage, PriorityEditor, func(payload interface{}) (bool, error) {
			var p ResizeImagePayload
			switch v := payload.(type) {
			case ResizeImagePayload:
				p = v
			case *ResizeImagePayload:
				if v == nil {
					return true, invalidPayload(CommandResizeImage, payload)
				}
				p = *v
			default:
				return true, invalidPayload(CommandResizeImage, payload)
			}
			return e.resizeImage(p)
		}),
		e.RegisterCommand(CommandDragDropImage, PriorityEditor, func(payload interface{}) (bool, error) {
			var p DragDropImagePayload
			switch v := payload.(type) {
			case DragDropImagePayload:
				p = v
			case *DragDropImagePayload:
				if v == nil {
					return true, invalidPayload(CommandDragDropImage, payload)
				}
				p = *v
			default:
				return true, invalidPayload(CommandDragDropImage, payload)
			}
			return e.dragDropImage(p)
		}),
	}
	return func() {
		for _, off := range offs {
			off()
		}
	}
}

func invalidPayload(t CommandType, payload interface{}) error {
	return fmt.Errorf("%s payload %T: %w", t, payload, ErrInvalidPayload)
}

func decodeTextFormat(payload interface{}) (lexical.TextFormat, error) {
	switch v := payload.(type) {
	case lexical.TextFormat:
		if v != 0 {
			return v, nil
		}
	case string:
		if f, ok := lexical.ParseTextFormat(v); ok {
			return f, nil
		}
	}
	return 0, invalidPayload(CommandFormatText, payload)
}

// decodeLink accepts a payload struct, a bare url, or nil for unlink.
func decodeLink(payload interface{}) (ToggleLinkPayload, error) {
	switch v := payload.(type) {
	case nil:
		return ToggleLinkPayload{}, nil
	case string:
		return ToggleLinkPayload{URL: v}, nil
	case ToggleLinkPayload:
		return v, nil
	case *ToggleLinkPayload:
		if v == nil {
			return ToggleLinkPayload{}, nil
		}
		return *v, nil
	}
	return ToggleLinkPayload{}, invalidPayload(CommandToggleLink, payload)
}

// decodeListKind accepts a ListKind, its name, or a bool meaning ordered.
func decodeListKind(payload interface{}) (ListKind, error) {
	switch v := payload.(type) {
	case ListKind:
		return v, nil
	case string:
		return ListKind(v), nil
	case bool:
		if v {
			return ListNumber, nil
		}
		return ListBullet, nil
	}
	return "", invalidPayload(CommandInsertList, payload)
}

func decodeKey(t CommandType, payload interface{}) (lexical.NodeKey, error) {
	switch v := payload.(type) {
	case lexical.NodeKey:
		return v, nil
	case string:
		return lexical.NodeKey(v), nil
	}
	return "", invalidPayload(t, payload)
}
