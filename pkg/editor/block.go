package editor

import (
	"fmt"
	"sort"
	"strings"

	"post-editor-be/pkg/lexical"
)

// pointContainer returns the inline container a point falls in.
func (e *Editor) pointContainer(p Point) lexical.NodeKey {
	if c := e.container(p.Key); c != "" {
		return c
	}
	kids := e.doc.Children(p.Key)
	if len(kids) == 0 {
		return ""
	}
	i := p.Offset
	if i >= len(kids) {
		i = len(kids) - 1
	}
	var found lexical.NodeKey
	walkFrom(e.doc, kids[i], func(k lexical.NodeKey) bool {
		if found == "" && isInlineContainer(e.doc.TypeOf(k)) {
			found = k
		}
		return found == ""
	})
	return found
}

func walkFrom(doc *lexical.Document, key lexical.NodeKey, fn func(lexical.NodeKey) bool) {
	if !fn(key) {
		return
	}
	for _, c := range doc.Children(key) {
		walkFrom(doc, c, fn)
	}
}

// selectedContainers lists the inline containers (paragraphs, headings, quotes, code blocks,
// list items) touched by the selection. Without a selection it is the last one.
func (e *Editor) selectedContainers() []lexical.NodeKey {
	all := e.containers()
	switch sel := e.selection.(type) {
	case *RangeSelection:
		a := indexOf(all, e.pointContainer(sel.Anchor))
		f := indexOf(all, e.pointContainer(sel.Focus))
		if a < 0 || f < 0 {
			return nil
		}
		if f < a {
			a, f = f, a
		}
		return append([]lexical.NodeKey(nil), all[a:f+1]...)
	case *NodeSelection:
		var out []lexical.NodeKey
		for _, k := range sel.Keys {
			if c := e.container(k); c != "" && indexOf(out, c) < 0 {
				out = append(out, c)
			}
		}
		return out
	}
	if len(all) == 0 {
		return nil
	}
	return all[len(all)-1:]
}

// selectedBlocks lists the distinct top-level blocks touched by the selection in order.
func (e *Editor) selectedBlocks() []lexical.NodeKey {
	var out []lexical.NodeKey
	add := func(k lexical.NodeKey) {
		if top := e.doc.TopLevelBlock(k); top != "" && indexOf(out, top) < 0 {
			out = append(out, top)
		}
	}
	for _, c := range e.selectedContainers() {
		add(c)
	}
	if sel, ok := e.selection.(*NodeSelection); ok {
		for _, k := range sel.Keys {
			add(k)
		}
	}
	return sortByDocumentOrder(e.doc, out)
}

func sortByDocumentOrder(doc *lexical.Document, keys []lexical.NodeKey) []lexical.NodeKey {
	order := make(map[lexical.NodeKey]int)
	walkFrom(doc, doc.Root(), func(k lexical.NodeKey) bool {
		order[k] = len(order)
		return true
	})
	out := append([]lexical.NodeKey(nil), keys...)
	sort.SliceStable(out, func(i, j int) bool { return order[out[i]] < order[out[j]] })
	return out
}

// remapSelection moves element points off replaced containers onto their replacements.
func (e *Editor) remapSelection(m map[lexical.NodeKey]lexical.NodeKey) {
	sel, ok := e.selection.(*RangeSelection)
	if !ok {
		return
	}
	if k, ok := m[sel.Anchor.Key]; ok {
		sel.Anchor.Key = k
	}
	if k, ok := m[sel.Focus.Key]; ok {
		sel.Focus.Key = k
	}
}

// settleSelection puts the caret at the end of fallback when the selection no longer resolves.
func (e *Editor) settleSelection(fallback lexical.NodeKey) error {
	if validateSelection(e.doc, e.selection) == nil {
		return nil
	}
	p, err := e.blockEnd(fallback)
	if err != nil {
		return err
	}
	e.selection = &RangeSelection{Anchor: p, Focus: p}
	return nil
}

func (e *Editor) formatElement(align lexical.ElementFormat) (bool, error) {
	if !align.Valid() {
		return true, fmt.Errorf("alignment %q: %w", align, ErrInvalidPayload)
	}
	targets := e.selectedContainers()
	for _, k := range targets {
		if err := e.doc.SetElementFormat(k, align); err != nil {
			return true, err
		}
	}
	return len(targets) > 0, nil
}

func (e *Editor) indent(delta int) (bool, error) {
	targets := e.selectedContainers()
	for _, k := range targets {
		n, _ := e.doc.Get(k)
		next := n.Indent + delta
		if next < 0 {
			next = 0
		}
		if err := e.doc.SetIndent(k, next); err != nil {
			return true, err
		}
	}
	return len(targets) > 0, nil
}

func (e *Editor) createBlock(bt BlockType, language string) (lexical.NodeKey, error) {
	switch bt {
	case BlockParagraph:
		return e.doc.CreateParagraph(), nil
	case BlockH1, BlockH2, BlockH3:
		return e.doc.CreateHeading(int(bt[1] - '0'))
	case BlockQuote:
		return e.doc.CreateQuote(), nil
	case BlockCode:
		return e.doc.CreateCode(language), nil
	}
	return "", fmt.Errorf("block type %q: %w", bt, ErrInvalidPayload)
}

func blockTypeOf(n lexical.Node) BlockType {
	switch n.Type {
	case lexical.TypeParagraph:
		return BlockParagraph
	case lexical.TypeHeading:
		return BlockType(fmt.Sprintf("h%d", n.Level))
	case lexical.TypeQuote:
		return BlockQuote
	case lexical.TypeCode:
		return BlockCode
	}
	return ""
}

// setBlockType converts the selected paragraph-like blocks. Converting into a code block keeps
// only the text.
func (e *Editor) setBlockType(bt BlockType) (bool, error) {
	switch bt {
	case BlockParagraph, BlockH1, BlockH2, BlockH3, BlockQuote, BlockCode:
	default:
		return true, fmt.Errorf("block type %q: %w", bt, ErrInvalidPayload)
	}
	remap := make(map[lexical.NodeKey]lexical.NodeKey)
	var last lexical.NodeKey
	for _, top := range e.selectedBlocks() {
		n, _ := e.doc.Get(top)
		current := blockTypeOf(n)
		if current == "" {
			continue
		}
		last = top
		if current == bt {
			continue
		}
		next, err := e.createBlock(bt, "")
		if err != nil {
			return true, err
		}
		if bt == BlockCode {
			var sb strings.Builder
			for _, t := range textUnder(e.doc, top) {
				tn, _ := e.doc.Get(t)
				sb.WriteString(tn.Text)
			}
			if sb.Len() > 0 {
				if err := e.doc.Append(next, e.doc.CreateText(sb.String())); err != nil {
					return true, err
				}
			}
		} else if err := e.doc.MoveChildren(top, next); err != nil {
			return true, err
		}
		_ = e.doc.SetElementFormat(next, n.ElementFormat)
		_ = e.doc.SetIndent(next, n.Indent)
		if err := e.doc.InsertAfter(top, next); err != nil {
			return true, err
		}
		if err := e.doc.Remove(top); err != nil {
			return true, err
		}
		remap[top] = next
		last = next
	}
	if last == "" {
		return false, nil
	}
	e.remapSelection(remap)
	return true, e.settleSelection(last)
}

func textUnder(doc *lexical.Document, key lexical.NodeKey) []lexical.NodeKey {
	var out []lexical.NodeKey
	walkFrom(doc, key, func(k lexical.NodeKey) bool {
		if doc.TypeOf(k) == lexical.TypeText {
			out = append(out, k)
		}
		return true
	})
	return out
}

// insertHorizontalRule places a rule after the block holding the selection, or at the end.
// A rule that ends the document gets an empty paragraph after it for the caret.
func (e *Editor) insertHorizontalRule() (bool, error) {
	hr := e.doc.CreateHorizontalRule()
	blocks := e.selectedBlocks()
	if len(blocks) == 0 || e.selection == nil {
		if err := e.doc.Append(e.doc.Root(), hr); err != nil {
			return true, err
		}
	} else if err := e.doc.InsertAfter(blocks[len(blocks)-1], hr); err != nil {
		return true, err
	}

	root := e.doc.Children(e.doc.Root())
	if root[len(root)-1] == hr {
		p := e.doc.CreateParagraph()
		if err := e.doc.Append(e.doc.Root(), p); err != nil {
			return true, err
		}
		e.selection = &RangeSelection{Anchor: Point{Key: p}, Focus: Point{Key: p}}
	}
	return true, nil
}
