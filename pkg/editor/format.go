package editor

import (
	"fmt"

	"post-editor-be/pkg/lexical"
)

// isolate splits the text node of seg so that its covered range is a node of its own.
func (e *Editor) isolate(seg segment) (lexical.NodeKey, error) {
	pieces, err := e.doc.SplitText(seg.key, seg.start, seg.end)
	if err != nil {
		return "", err
	}
	if seg.start > 0 {
		return pieces[1], nil
	}
	return pieces[0], nil
}

// isolateSelection splits the boundary text nodes of sel and re-anchors it on the covered
// pieces, which it returns in document order.
func (e *Editor) isolateSelection(sel *RangeSelection) ([]lexical.NodeKey, error) {
	layout := newTextLayout(e.doc)
	_, _, backward := layout.ordered(sel)
	segs := layout.covered(sel)
	pieces := make([]lexical.NodeKey, 0, len(segs))
	for _, seg := range segs {
		key, err := e.isolate(seg)
		if err != nil {
			return nil, err
		}
		pieces = append(pieces, key)
	}
	if len(pieces) == 0 {
		return nil, nil
	}
	first := Point{Key: pieces[0]}
	last := Point{Key: pieces[len(pieces)-1], Offset: e.doc.TextLength(pieces[len(pieces)-1])}
	if backward {
		sel.Anchor, sel.Focus = last, first
	} else {
		sel.Anchor, sel.Focus = first, last
	}
	return pieces, nil
}

func toggleFlag(f, flag lexical.TextFormat, on bool) lexical.TextFormat {
	if !on {
		return f &^ flag
	}
	f |= flag
	switch flag {
	case lexical.FormatSubscript:
		f &^= lexical.FormatSuperscript
	case lexical.FormatSuperscript:
		f &^= lexical.FormatSubscript
	}
	return f
}

// formatText toggles flag over the range selection. If every covered text node already has
// the flag it is removed, otherwise it is added. A collapsed caret toggles the pending format.
func (e *Editor) formatText(flag lexical.TextFormat) (bool, error) {
	sel, ok := e.selection.(*RangeSelection)
	if !ok {
		return false, nil
	}
	if sel.IsCollapsed() {
		sel.Format = toggleFlag(sel.Format, flag, !sel.Format.Has(flag))
		return true, nil
	}
	pieces, err := e.isolateSelection(sel)
	if err != nil {
		return true, err
	}
	if len(pieces) == 0 {
		sel.Format = toggleFlag(sel.Format, flag, !sel.Format.Has(flag))
		return true, nil
	}

	all := true
	for _, k := range pieces {
		n, _ := e.doc.Get(k)
		if !n.Format.Has(flag) {
			all = false
			break
		}
	}
	for _, k := range pieces {
		n, _ := e.doc.Get(k)
		if err := e.doc.SetFormat(k, toggleFlag(n.Format, flag, !all)); err != nil {
			return true, err
		}
	}
	first, _ := e.doc.Get(pieces[0])
	sel.Format = first.Format
	return true, nil
}

// patchTextStyle merges patch into the style of the covered text. An empty value removes the
// property. A collapsed caret patches the pending style.
func (e *Editor) patchTextStyle(patch map[string]string) (bool, error) {
	sel, ok := e.selection.(*RangeSelection)
	if !ok {
		return false, nil
	}
	for property, value := range patch {
		if !lexical.ValidStyleValue(value) {
			return true, fmt.Errorf("style %s %q: %w", property, value, ErrInvalidPayload)
		}
	}
	if sel.IsCollapsed() {
		sel.Style = sel.Style.Patch(patch)
		return true, nil
	}
	pieces, err := e.isolateSelection(sel)
	if err != nil {
		return true, err
	}
	for _, k := range pieces {
		n, _ := e.doc.Get(k)
		if err := e.doc.SetStyle(k, n.Style.Patch(patch)); err != nil {
			return true, err
		}
	}
	if len(pieces) > 0 {
		first, _ := e.doc.Get(pieces[0])
		sel.Style = first.Style
	} else {
		sel.Style = sel.Style.Patch(patch)
	}
	return true, nil
}

// SelectionFormat reports the format a toolbar should show: the pending format of the caret,
// or the flags shared by every covered text node.
func (e *Editor) SelectionFormat() lexical.TextFormat {
	sel, ok := e.selection.(*RangeSelection)
	if !ok {
		return 0
	}
	if sel.IsCollapsed() {
		return sel.Format
	}
	segs := newTextLayout(e.doc).covered(sel)
	if len(segs) == 0 {
		return sel.Format
	}
	shared := ^lexical.TextFormat(0)
	for _, seg := range segs {
		n, _ := e.doc.Get(seg.key)
		shared &= n.Format
	}
	return shared
}
