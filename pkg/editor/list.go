package editor

import (
	"fmt"

	"post-editor-be/pkg/lexical"
)

func (k ListKind) flags() (ordered, check bool, err error) {
	switch k {
	case ListBullet, "":
		return false, false, nil
	case ListNumber:
		return true, false, nil
	case ListCheck:
		return false, true, nil
	}
	return false, false, fmt.Errorf("list kind %q: %w", k, ErrInvalidPayload)
}

func listKindOf(n lexical.Node) ListKind {
	switch {
	case n.Check:
		return ListCheck
	case n.Ordered:
		return ListNumber
	}
	return ListBullet
}

func (e *Editor) lists() []lexical.NodeKey {
	var out []lexical.NodeKey
	e.doc.Walk(func(n lexical.Node, _ int) bool {
		if n.Type == lexical.TypeList {
			out = append(out, n.Key)
		}
		return true
	})
	return out
}

// renumber rewrites the ordinals of the items of list from its start value.
func (e *Editor) renumber(list lexical.NodeKey) {
	n, ok := e.doc.Get(list)
	if !ok {
		return
	}
	start := n.Start
	if start < 1 {
		start = 1
	}
	for i, item := range n.Children {
		_ = e.doc.SetValue(item, start+i)
	}
}

// insertList turns the selected paragraph-like blocks into items of one list of kind, joining
// an adjacent list of the same kind. Selected lists of another kind are switched over.
func (e *Editor) insertList(kind ListKind) (bool, error) {
	ordered, check, err := kind.flags()
	if err != nil {
		return true, err
	}

	remap := make(map[lexical.NodeKey]lexical.NodeKey)
	var current, last lexical.NodeKey
	for _, top := range e.selectedBlocks() {
		n, _ := e.doc.Get(top)
		switch n.Type {
		case lexical.TypeList:
			if err := e.doc.SetListKind(top, ordered, check); err != nil {
				return true, err
			}
			current, last = top, top
			continue
		case lexical.TypeParagraph, lexical.TypeHeading, lexical.TypeQuote:
		default:
			current = ""
			continue
		}

		if current == "" || e.doc.IndexInParent(current)+1 != e.doc.IndexInParent(top) {
			current = e.adjacentList(top, kind)
		}
		if current == "" {
			current = e.doc.CreateList(ordered)
			if check {
				_ = e.doc.SetListKind(current, false, true)
			}
			if err := e.doc.InsertBefore(top, current); err != nil {
				return true, err
			}
		}

		item := e.doc.CreateListItem()
		if err := e.doc.MoveChildren(top, item); err != nil {
			return true, err
		}
		_ = e.doc.SetElementFormat(item, n.ElementFormat)
		_ = e.doc.SetIndent(item, n.Indent)
		if err := e.doc.Append(current, item); err != nil {
			return true, err
		}
		if err := e.doc.Remove(top); err != nil {
			return true, err
		}
		remap[top] = item
		last = current
	}
	if last == "" {
		return false, nil
	}
	e.mergeAdjacentLists()
	for _, l := range e.lists() {
		e.renumber(l)
	}
	e.remapSelection(remap)
	return true, nil
}

// adjacentList returns the list right before top when it has the same kind.
func (e *Editor) adjacentList(top lexical.NodeKey, kind ListKind) lexical.NodeKey {
	idx := e.doc.IndexInParent(top)
	if idx <= 0 {
		return ""
	}
	prev := e.doc.Children(e.doc.Parent(top))[idx-1]
	if n, _ := e.doc.Get(prev); n.Type == lexical.TypeList && listKindOf(n) == kind {
		return prev
	}
	return ""
}

// mergeAdjacentLists joins top-level lists of the same kind that ended up next to each other.
func (e *Editor) mergeAdjacentLists() {
	blocks := e.doc.Children(e.doc.Root())
	for i := len(blocks) - 1; i > 0; i-- {
		a, _ := e.doc.Get(blocks[i-1])
		b, _ := e.doc.Get(blocks[i])
		if a.Type != lexical.TypeList || b.Type != lexical.TypeList || listKindOf(a) != listKindOf(b) {
			continue
		}
		if err := e.doc.MoveChildren(b.Key, a.Key); err == nil {
			_ = e.doc.Remove(b.Key)
		}
	}
}

// removeList replaces every selected list by paragraphs, one per item; nested items become
// paragraphs indented one step deeper.
func (e *Editor) removeList() (bool, error) {
	remap := make(map[lexical.NodeKey]lexical.NodeKey)
	var last lexical.NodeKey
	for _, top := range e.selectedBlocks() {
		if e.doc.TypeOf(top) != lexical.TypeList {
			continue
		}
		p, err := e.flattenList(top, top, 0, remap)
		if err != nil {
			return true, err
		}
		if err := e.doc.Remove(top); err != nil {
			return true, err
		}
		if p != "" {
			last = p
		}
	}
	if last == "" {
		return false, nil
	}
	e.remapSelection(remap)
	if err := e.settleSelection(last); err != nil {
		return true, err
	}
	e.pruneEmpty()
	return true, nil
}

// flattenList inserts a paragraph before anchor for every item of list, depth first, and
// returns the last paragraph created.
func (e *Editor) flattenList(list, anchor lexical.NodeKey, depth int, remap map[lexical.NodeKey]lexical.NodeKey) (lexical.NodeKey, error) {
	var last lexical.NodeKey
	for _, item := range e.doc.Children(list) {
		n, _ := e.doc.Get(item)
		p := e.doc.CreateParagraph()
		_ = e.doc.SetElementFormat(p, n.ElementFormat)
		_ = e.doc.SetIndent(p, n.Indent+depth)
		var nested []lexical.NodeKey
		for _, c := range n.Children {
			if e.doc.TypeOf(c) == lexical.TypeList {
				nested = append(nested, c)
				continue
			}
			if err := e.doc.Detach(c); err != nil {
				return "", err
			}
			if err := e.doc.Append(p, c); err != nil {
				return "", err
			}
		}
		if err := e.doc.InsertBefore(anchor, p); err != nil {
			return "", err
		}
		remap[item] = p
		last = p
		for _, sub := range nested {
			q, err := e.flattenList(sub, anchor, depth+1, remap)
			if err != nil {
				return "", err
			}
			if q != "" {
				last = q
			}
		}
	}
	return last, nil
}

// toggleChecked flips a check-list item.
func (e *Editor) toggleChecked(key lexical.NodeKey) (bool, error) {
	n, ok := e.doc.Get(key)
	if !ok || n.Type != lexical.TypeListItem {
		return true, fmt.Errorf("check item %q: %w", key, ErrNoSuchNode)
	}
	return true, e.doc.SetChecked(key, !n.Checked)
}
