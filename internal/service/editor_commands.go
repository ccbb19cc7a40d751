package service

import (
	"bytes"
	"encoding/json"
	"fmt"

	"post-editor-be/internal/dto"
	"post-editor-be/internal/pkg/serverutils"
	"post-editor-be/pkg/editor"
	"post-editor-be/pkg/lexical"
)

func decodeJSON(t editor.CommandType, raw json.RawMessage, v interface{}) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return fmt.Errorf("%w: %s needs a payload", serverutils.ErrValidation, t)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %s payload: %v", serverutils.ErrValidation, t, err)
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// decodeCommand turns a wire command into the typed payload its editor handler expects.
func decodeCommand(req *dto.DispatchCommandRequest) (editor.CommandType, interface{}, error) {
	t := editor.CommandType(req.Type)
	switch t {
	case editor.CommandKeyBackspace, editor.CommandKeyDelete, editor.CommandRemoveList,
		editor.CommandIndentContent, editor.CommandOutdentContent, editor.CommandInsertHorizontalRule,
		editor.CommandUndo, editor.CommandRedo, editor.CommandClearEditor:
		return t, nil, nil

	case editor.CommandInsertText:
		var p dto.InsertTextPayload
		if err := decodeJSON(t, req.Payload, &p.Text); err != nil {
			return t, nil, err
		}
		return t, p.Text, serverutils.ValidateRequest(p)

	case editor.CommandFormatText:
		var p dto.FormatTextPayload
		if err := decodeJSON(t, req.Payload, &p.Format); err != nil {
			return t, nil, err
		}
		if err := serverutils.ValidateRequest(p); err != nil {
			return t, nil, err
		}
		flag, _ := lexical.ParseTextFormat(p.Format)
		return t, flag, nil

	case editor.CommandPatchTextStyle:
		var p dto.PatchTextStylePayload
		if err := decodeJSON(t, req.Payload, &p.Style); err != nil {
			return t, nil, err
		}
		return t, p.Style, serverutils.ValidateRequest(p)

	case editor.CommandToggleLink:
		if isNull(req.Payload) {
			return t, nil, nil
		}
		var p dto.LinkPayload
		var url string
		if err := json.Unmarshal(req.Payload, &url); err == nil {
			p.URL = url
		} else if err := decodeJSON(t, req.Payload, &p); err != nil {
			return t, nil, err
		}
		if err := serverutils.ValidateRequest(p); err != nil {
			return t, nil, err
		}
		return t, editor.ToggleLinkPayload{URL: p.URL, Target: p.Target, Rel: p.Rel, Title: p.Title}, nil

	case editor.CommandInsertList:
		var p dto.ListPayload
		if err := decodeJSON(t, req.Payload, &p.Kind); err != nil {
			return t, nil, err
		}
		return t, editor.ListKind(p.Kind), serverutils.ValidateRequest(p)

	case editor.CommandToggleChecked:
		var p dto.NodeKeyPayload
		if err := decodeJSON(t, req.Payload, &p.Key); err != nil {
			return t, nil, err
		}
		return t, lexical.NodeKey(p.Key), serverutils.ValidateRequest(p)

	case editor.CommandFormatElement:
		var p dto.ElementFormatPayload
		if !isNull(req.Payload) {
			if err := decodeJSON(t, req.Payload, &p.Format); err != nil {
				return t, nil, err
			}
		}
		return t, lexical.ElementFormat(p.Format), serverutils.ValidateRequest(p)

	case editor.CommandSetBlockType:
		var p dto.BlockTypePayload
		if err := decodeJSON(t, req.Payload, &p.BlockType); err != nil {
			return t, nil, err
		}
		return t, editor.BlockType(p.BlockType), serverutils.ValidateRequest(p)

	case editor.CommandInsertImage:
		var p dto.InsertImagePayload
		if err := decodeJSON(t, req.Payload, &p); err != nil {
			return t, nil, err
		}
		return t, editor.InsertImagePayload{Src: p.Src, AltText: p.AltText, Width: p.Width, Height: p.Height}, serverutils.ValidateRequest(p)

	case editor.CommandResizeImage:
		var p dto.ResizeImagePayload
		if err := decodeJSON(t, req.Payload, &p); err != nil {
			return t, nil, err
		}
		return t, editor.ResizeImagePayload{Key: lexical.NodeKey(p.Key), Width: p.Width, Height: p.Height}, serverutils.ValidateRequest(p)

	case editor.CommandDragDropImage:
		var p dto.DragDropImagePayload
		if err := decodeJSON(t, req.Payload, &p); err != nil {
			return t, nil, err
		}
		return t, editor.DragDropImagePayload{
			Key:    lexical.NodeKey(p.Key),
			Target: editor.Point{Key: lexical.NodeKey(p.Target.Key), Offset: p.Target.Offset},
		}, serverutils.ValidateRequest(p)
	}
	return t, nil, fmt.Errorf("%w: unknown command %q", serverutils.ErrValidation, req.Type)
}

// applySelection sets the editor selection described by sel.
func applySelection(ed *editor.Editor, sel *dto.SelectionDTO) error {
	var err error
	switch sel.Type {
	case "none":
		ed.Blur(false)
	case "range":
		err = ed.Select(
			editor.Point{Key: lexical.NodeKey(sel.Anchor.Key), Offset: sel.Anchor.Offset},
			editor.Point{Key: lexical.NodeKey(sel.Focus.Key), Offset: sel.Focus.Offset},
		)
	case "node":
		keys := make([]lexical.NodeKey, len(sel.Keys))
		for i, k := range sel.Keys {
			keys[i] = lexical.NodeKey(k)
		}
		err = ed.SetSelection(editor.NewNodeSelection(keys...))
	default:
		err = editor.ErrInvalidSelection
	}
	if err != nil {
		return fmt.Errorf("%w: %v", serverutils.ErrValidation, err)
	}
	return nil
}

var formatOrder = []string{"bold", "italic", "strikethrough", "underline", "code", "subscript", "superscript"}

func selectionDTO(ed *editor.Editor) *dto.SelectionDTO {
	switch s := ed.Selection().(type) {
	case *editor.RangeSelection:
		out := &dto.SelectionDTO{
			Type:   "range",
			Anchor: &dto.PointDTO{Key: string(s.Anchor.Key), Offset: s.Anchor.Offset},
			Focus:  &dto.PointDTO{Key: string(s.Focus.Key), Offset: s.Focus.Offset},
		}
		active := ed.SelectionFormat()
		for _, name := range formatOrder {
			if flag, _ := lexical.ParseTextFormat(name); active.Has(flag) {
				out.Format = append(out.Format, name)
			}
		}
		return out
	case *editor.NodeSelection:
		keys := make([]string, len(s.Keys))
		for i, k := range s.Keys {
			keys[i] = string(k)
		}
		return &dto.SelectionDTO{Type: "node", Keys: keys}
	}
	return nil
}

func outline(doc *lexical.Document, key lexical.NodeKey) []dto.OutlineNode {
	children := doc.Children(key)
	if len(children) == 0 {
		return nil
	}
	out := make([]dto.OutlineNode, 0, len(children))
	for _, c := range children {
		n, ok := doc.Get(c)
		if !ok {
			continue
		}
		out = append(out, dto.OutlineNode{
			Key:      string(n.Key),
			Type:     string(n.Type),
			Text:     n.Text,
			Format:   int(n.Format),
			Children: outline(doc, c),
		})
	}
	return out
}

var resizeDirections = map[string]editor.Direction{
	"north": editor.DirectionNorth,
	"south": editor.DirectionSouth,
	"east":  editor.DirectionEast,
	"west":  editor.DirectionWest,
}

// driveResizer feeds one pointer or key event to the image resizer.
func driveResizer(r *editor.ImageResizer, req *dto.ResizerRequest) (*dto.ResizerResponse, error) {
	res := &dto.ResizerResponse{}
	switch req.Event {
	case "click":
		if err := r.Click(lexical.NodeKey(req.Key), req.Shift); err != nil {
			return nil, fmt.Errorf("%w: %v", serverutils.ErrValidation, err)
		}
		res.Handled = true
	case "pointer_down":
		var dir editor.Direction
		for _, d := range req.Direction {
			dir |= resizeDirections[d]
		}
		res.Handled = r.PointerDown(dir, req.X, req.Y, req.Width, req.Height)
	case "pointer_move":
		r.PointerMove(req.X, req.Y, req.Shift)
		res.Handled = r.State() == editor.ResizeResizing
	case "pointer_up":
		res.Handled = r.State() == editor.ResizeResizing
		if err := r.PointerUp(); err != nil {
			return nil, err
		}
	case "key_delete":
		handled, err := r.KeyDelete()
		if err != nil {
			return nil, err
		}
		res.Handled = handled
	case "blur":
		r.Blur()
		res.Handled = true
	}
	res.State = r.State().String()
	res.Key = string(r.Key())
	res.Width, res.Height = r.Size()
	return res, nil
}
