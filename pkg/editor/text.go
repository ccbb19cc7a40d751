package editor

import (
	"fmt"
	"unicode/utf8"

	"post-editor-be/pkg/lexical"
)

func isInlineContainer(t lexical.NodeType) bool {
	return lexical.CanContainInline(t) || t == lexical.TypeCode
}

// container returns the nearest ancestor-or-self of key that holds inline content.
func (e *Editor) container(key lexical.NodeKey) lexical.NodeKey {
	return e.doc.Nearest(key, isInlineContainer)
}

// containers lists every inline container in document order.
func (e *Editor) containers() []lexical.NodeKey {
	var out []lexical.NodeKey
	e.doc.Walk(func(n lexical.Node, _ int) bool {
		if isInlineContainer(n.Type) {
			out = append(out, n.Key)
		}
		return true
	})
	return out
}

func indexOf(keys []lexical.NodeKey, key lexical.NodeKey) int {
	for i, k := range keys {
		if k == key {
			return i
		}
	}
	return -1
}

// lastInlineContainer returns where content appended "at the end" goes: the root's last block,
// the deepest last item for lists, or a new paragraph when the last block cannot hold inline
// content.
func (e *Editor) lastInlineContainer() (lexical.NodeKey, error) {
	blocks := e.doc.Children(e.doc.Root())
	if len(blocks) > 0 {
		key := blocks[len(blocks)-1]
		for e.doc.TypeOf(key) == lexical.TypeList {
			items := e.doc.Children(key)
			if len(items) == 0 {
				break
			}
			key = items[len(items)-1]
			if kids := e.doc.Children(key); len(kids) > 0 && e.doc.TypeOf(kids[len(kids)-1]) == lexical.TypeList {
				key = kids[len(kids)-1]
			}
		}
		if lexical.CanContainInline(e.doc.TypeOf(key)) {
			return key, nil
		}
	}
	p := e.doc.CreateParagraph()
	if err := e.doc.Append(e.doc.Root(), p); err != nil {
		return "", err
	}
	return p, nil
}

// endPoint is the caret position at the very end of the document.
func (e *Editor) endPoint() (Point, error) {
	c, err := e.lastInlineContainer()
	if err != nil {
		return Point{}, err
	}
	kids := e.doc.Children(c)
	if n := len(kids); n > 0 && e.doc.TypeOf(kids[n-1]) == lexical.TypeText {
		return Point{Key: kids[n-1], Offset: e.doc.TextLength(kids[n-1])}, nil
	}
	return Point{Key: c, Offset: len(kids)}, nil
}

// caret returns the range selection, placing a caret at the end of the document when there
// is none.
func (e *Editor) caret() (*RangeSelection, error) {
	if sel, ok := e.selection.(*RangeSelection); ok {
		return sel, nil
	}
	p, err := e.endPoint()
	if err != nil {
		return nil, err
	}
	sel := &RangeSelection{Anchor: p, Focus: p}
	e.selection = sel
	return sel, nil
}

func (e *Editor) collapse(sel *RangeSelection, p Point) {
	sel.Anchor, sel.Focus = p, p
}

// insertText types text at the caret, replacing a non-collapsed range first. Text whose pending
// format or style differs from the node under the caret goes into a new text node.
func (e *Editor) insertText(text string) (bool, error) {
	if _, ok := e.selection.(*NodeSelection); ok {
		if err := e.removeSelectedNodes(); err != nil {
			return true, err
		}
	}
	sel, err := e.caret()
	if err != nil {
		return true, err
	}
	if !sel.IsCollapsed() {
		if err := e.deleteRange(sel); err != nil {
			return true, err
		}
	}
	if text == "" {
		return true, nil
	}

	at := sel.Anchor
	if e.doc.TypeOf(at.Key) == lexical.TypeText {
		n, _ := e.doc.Get(at.Key)
		if n.Format == sel.Format && n.Style == sel.Style {
			runes := []rune(n.Text)
			if err := e.doc.SetText(at.Key, string(runes[:at.Offset])+text+string(runes[at.Offset:])); err != nil {
				return true, err
			}
			e.collapse(sel, Point{Key: at.Key, Offset: at.Offset + utf8.RuneCountInString(text)})
			return true, nil
		}
	}

	key := e.doc.CreateText(text)
	_ = e.doc.SetFormat(key, sel.Format)
	_ = e.doc.SetStyle(key, sel.Style)
	if err := e.insertInlineAt(at, key); err != nil {
		return true, err
	}
	e.collapse(sel, Point{Key: key, Offset: utf8.RuneCountInString(text)})
	return true, nil
}

// insertInlineAt attaches a detached inline node at p, splitting a text node when p falls
// inside one.
func (e *Editor) insertInlineAt(p Point, key lexical.NodeKey) error {
	if e.doc.TypeOf(p.Key) != lexical.TypeText {
		if e.doc.TypeOf(p.Key) == lexical.TypeCode && !lexical.Accepts(lexical.TypeCode, e.doc.TypeOf(key)) {
			return e.insertAfterCode(p.Key, key)
		}
		if !lexical.Accepts(e.doc.TypeOf(p.Key), e.doc.TypeOf(key)) {
			return fmt.Errorf("cannot insert %s into %s: %w", e.doc.TypeOf(key), e.doc.TypeOf(p.Key), ErrInvalidSelection)
		}
		return e.doc.InsertAt(p.Key, p.Offset, key)
	}

	anchor := p.Key
	// an image may not enter a link or code block, so it goes next to the link or
	// into a new paragraph after the code block
	if parent := e.doc.Parent(anchor); !lexical.Accepts(e.doc.TypeOf(parent), e.doc.TypeOf(key)) {
		if e.doc.TypeOf(parent) == lexical.TypeCode {
			return e.insertAfterCode(parent, key)
		}
		if e.doc.TypeOf(parent) != lexical.TypeLink {
			return fmt.Errorf("cannot insert %s into %s: %w", e.doc.TypeOf(key), e.doc.TypeOf(parent), ErrInvalidSelection)
		}
		if p.Offset == 0 && e.doc.IndexInParent(anchor) == 0 {
			return e.doc.InsertBefore(parent, key)
		}
		return e.doc.InsertAfter(parent, key)
	}

	switch {
	case p.Offset == 0:
		return e.doc.InsertBefore(anchor, key)
	case p.Offset >= e.doc.TextLength(anchor):
		return e.doc.InsertAfter(anchor, key)
	}
	pieces, err := e.doc.SplitText(anchor, p.Offset)
	if err != nil {
		return err
	}
	return e.doc.InsertAfter(pieces[0], key)
}

func (e *Editor) insertAfterCode(code, key lexical.NodeKey) error {
	p := e.doc.CreateParagraph()
	if err := e.doc.InsertAfter(code, p); err != nil {
		return err
	}
	return e.doc.Append(p, key)
}

// removeText deletes the rune range [start, end) of a text node. A node left empty is removed
// and the returned point sits where it was.
func (e *Editor) removeText(key lexical.NodeKey, start, end int) (Point, error) {
	n, _ := e.doc.Get(key)
	runes := []rune(n.Text)
	rest := string(runes[:start]) + string(runes[end:])
	if rest != "" {
		return Point{Key: key, Offset: start}, e.doc.SetText(key, rest)
	}
	parent := e.doc.Parent(key)
	idx := e.doc.IndexInParent(key)
	if err := e.doc.Remove(key); err != nil {
		return Point{}, err
	}
	for e.doc.TypeOf(parent) == lexical.TypeLink && len(e.doc.Children(parent)) == 0 {
		link := parent
		parent = e.doc.Parent(link)
		idx = e.doc.IndexInParent(link)
		if err := e.doc.Remove(link); err != nil {
			return Point{}, err
		}
	}
	return Point{Key: parent, Offset: idx}, nil
}

// deleteRange removes the covered text, merges the last touched block into the first and
// collapses the selection at the start.
func (e *Editor) deleteRange(sel *RangeSelection) error {
	layout := newTextLayout(e.doc)
	start, _, _ := layout.ordered(sel)
	segs := layout.covered(sel)
	if len(segs) == 0 {
		e.collapse(sel, start)
		return nil
	}

	firstBlock := e.container(segs[0].key)
	lastBlock := e.container(segs[len(segs)-1].key)
	containers := e.containers()
	from, to := indexOf(containers, firstBlock), indexOf(containers, lastBlock)

	caret := Point{Key: segs[0].key, Offset: segs[0].start}
	for i := len(segs) - 1; i >= 0; i-- {
		p, err := e.removeText(segs[i].key, segs[i].start, segs[i].end)
		if err != nil {
			return err
		}
		if i == 0 {
			caret = p
		}
	}

	// containers strictly between the ends were fully covered
	for i := from + 1; i < to; i++ {
		if e.doc.IsAttached(containers[i]) && len(e.doc.Children(containers[i])) == 0 {
			if err := e.doc.Remove(containers[i]); err != nil {
				return err
			}
		}
	}
	if firstBlock != lastBlock && e.doc.IsAttached(lastBlock) {
		if err := e.mergeInto(lastBlock, firstBlock); err != nil {
			return err
		}
	}
	e.pruneEmpty(caret.Key)
	e.collapse(sel, caret)
	return nil
}

// mergeInto moves the inline children of from to the end of into and removes from. Nested
// lists of a list item are kept in place.
func (e *Editor) mergeInto(from, into lexical.NodeKey) error {
	for _, c := range e.doc.Children(from) {
		if !lexical.Accepts(e.doc.TypeOf(into), e.doc.TypeOf(c)) {
			continue
		}
		if err := e.doc.Detach(c); err != nil {
			return err
		}
		if err := e.doc.Append(into, c); err != nil {
			return err
		}
	}
	if len(e.doc.Children(from)) == 0 {
		return e.doc.Remove(from)
	}
	return nil
}

// pruneEmpty removes lists, list items and links left without children, except keep, and
// keeps at least one block under the root.
func (e *Editor) pruneEmpty(keep ...lexical.NodeKey) {
	for changed := true; changed; {
		changed = false
		e.doc.Walk(func(n lexical.Node, _ int) bool {
			if changed {
				return false
			}
			if (n.Type == lexical.TypeList || n.Type == lexical.TypeListItem || n.Type == lexical.TypeLink) &&
				len(n.Children) == 0 && indexOf(keep, n.Key) < 0 {
				_ = e.doc.Remove(n.Key)
				changed = true
				return false
			}
			return true
		})
	}
	for _, l := range e.lists() {
		e.renumber(l)
	}
	if len(e.doc.Children(e.doc.Root())) == 0 {
		_ = e.doc.Append(e.doc.Root(), e.doc.CreateParagraph())
	}
}

// removeSelectedNodes deletes every node of the node selection and clears it.
func (e *Editor) removeSelectedNodes() error {
	sel, ok := e.selection.(*NodeSelection)
	if !ok {
		return nil
	}
	for _, k := range sel.Keys {
		if !e.doc.IsAttached(k) {
			continue
		}
		if err := e.doc.Remove(k); err != nil {
			return err
		}
	}
	e.selection = nil
	e.pruneEmpty()
	return nil
}

// deleteCharacter implements Backspace (backward) and Delete (forward).
func (e *Editor) deleteCharacter(backward bool) (bool, error) {
	switch sel := e.selection.(type) {
	case *NodeSelection:
		return true, e.removeSelectedNodes()
	case *RangeSelection:
		if !sel.IsCollapsed() {
			return true, e.deleteRange(sel)
		}
		return true, e.deleteAtCaret(sel, backward)
	}
	return false, nil
}

func (e *Editor) deleteAtCaret(sel *RangeSelection, backward bool) error {
	at := sel.Anchor
	if e.doc.TypeOf(at.Key) == lexical.TypeText {
		length := e.doc.TextLength(at.Key)
		if backward && at.Offset > 0 {
			p, err := e.removeText(at.Key, at.Offset-1, at.Offset)
			e.collapse(sel, p)
			return err
		}
		if !backward && at.Offset < length {
			p, err := e.removeText(at.Key, at.Offset, at.Offset+1)
			e.collapse(sel, p)
			return err
		}
	} else if kids := e.doc.Children(at.Key); backward && at.Offset > 0 || !backward && at.Offset < len(kids) {
		// an atomic sibling (image) next to an element caret is removed whole
		i := at.Offset
		if backward {
			i--
		}
		if sib := kids[i]; e.doc.TypeOf(sib) == lexical.TypeImage {
			if err := e.doc.Remove(sib); err != nil {
				return err
			}
			if backward {
				e.collapse(sel, Point{Key: at.Key, Offset: i})
			}
			return nil
		}
	}

	// the caret sits on a boundary inside its block: step into the neighbouring text node
	layout := newTextLayout(e.doc)
	pos := layout.position(at)
	block := e.container(at.Key)
	if backward && pos.index > 0 && (e.doc.TypeOf(at.Key) != lexical.TypeText || pos.offset == 0) {
		prev := layout.texts[pos.index-1]
		if e.container(prev) == block {
			l := e.doc.TextLength(prev)
			p, err := e.removeText(prev, l-1, l)
			e.collapse(sel, p)
			return err
		}
	}
	if !backward && pos.index < len(layout.texts) {
		next := layout.texts[pos.index]
		if next == at.Key {
			next = ""
			if pos.index+1 < len(layout.texts) {
				next = layout.texts[pos.index+1]
			}
		}
		if next != "" && e.container(next) == block {
			_, err := e.removeText(next, 0, 1)
			e.collapse(sel, at)
			return err
		}
	}

	// block boundary: join with the neighbouring block
	containers := e.containers()
	i := indexOf(containers, block)
	if backward {
		if i <= 0 {
			return nil
		}
		prev := containers[i-1]
		caret, err := e.blockEnd(prev)
		if err != nil {
			return err
		}
		if err := e.mergeInto(block, prev); err != nil {
			return err
		}
		e.pruneEmpty(caret.Key)
		e.collapse(sel, caret)
		return nil
	}
	if i < 0 || i+1 >= len(containers) {
		return nil
	}
	caret := sel.Anchor
	if err := e.mergeInto(containers[i+1], block); err != nil {
		return err
	}
	e.pruneEmpty(caret.Key)
	e.collapse(sel, caret)
	return nil
}

// blockEnd returns the caret position at the end of an inline container.
func (e *Editor) blockEnd(block lexical.NodeKey) (Point, error) {
	kids := e.doc.Children(block)
	for i := len(kids) - 1; i >= 0; i-- {
		switch e.doc.TypeOf(kids[i]) {
		case lexical.TypeText:
			return Point{Key: kids[i], Offset: e.doc.TextLength(kids[i])}, nil
		case lexical.TypeList:
			continue
		}
		return Point{Key: block, Offset: i + 1}, nil
	}
	return Point{Key: block, Offset: 0}, nil
}
