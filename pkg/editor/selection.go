package editor

import (
	"fmt"

	"post-editor-be/pkg/lexical"
)

// Selection is either a *RangeSelection or a *NodeSelection. A nil Selection means none.
type Selection interface {
	clone() Selection
	keys() []lexical.NodeKey
}

// Point addresses a caret position. On a text node Offset counts runes; on an element it is
// a child index.
type Point struct {
	Key    lexical.NodeKey `json:"key"`
	Offset int             `json:"offset"`
}

// RangeSelection spans from Anchor to Focus, which may come in either document order.
// Format and Style are the pending attributes for text typed at a collapsed caret.
type RangeSelection struct {
	Anchor Point
	Focus  Point
	Format lexical.TextFormat
	Style  lexical.TextStyle
}

// IsCollapsed reports whether anchor and focus coincide.
func (s *RangeSelection) IsCollapsed() bool {
	return s.Anchor == s.Focus
}

func (s *RangeSelection) clone() Selection {
	c := *s
	return &c
}

func (s *RangeSelection) keys() []lexical.NodeKey {
	return []lexical.NodeKey{s.Anchor.Key, s.Focus.Key}
}

// NodeSelection is an ordered set of selected nodes, used for atomic nodes such as images.
type NodeSelection struct {
	Keys []lexical.NodeKey
}

// NewNodeSelection builds a selection of the given keys, dropping duplicates.
func NewNodeSelection(keys ...lexical.NodeKey) *NodeSelection {
	s := &NodeSelection{}
	for _, k := range keys {
		s.Add(k)
	}
	return s
}

// Has reports membership.
func (s *NodeSelection) Has(key lexical.NodeKey) bool {
	for _, k := range s.Keys {
		if k == key {
			return true
		}
	}
	return false
}

// Add inserts key if absent.
func (s *NodeSelection) Add(key lexical.NodeKey) {
	if !s.Has(key) {
		s.Keys = append(s.Keys, key)
	}
}

// Delete removes key if present.
func (s *NodeSelection) Delete(key lexical.NodeKey) {
	for i, k := range s.Keys {
		if k == key {
			s.Keys = append(s.Keys[:i], s.Keys[i+1:]...)
			return
		}
	}
}

func (s *NodeSelection) clone() Selection {
	return &NodeSelection{Keys: append([]lexical.NodeKey(nil), s.Keys...)}
}

func (s *NodeSelection) keys() []lexical.NodeKey {
	return s.Keys
}

func cloneSelection(s Selection) Selection {
	if isNilSelection(s) {
		return nil
	}
	return s.clone()
}

func isNilSelection(s Selection) bool {
	switch v := s.(type) {
	case nil:
		return true
	case *RangeSelection:
		return v == nil
	case *NodeSelection:
		return v == nil
	}
	return false
}

// validatePoint checks that p addresses an attached node and an in-range offset.
func validatePoint(doc *lexical.Document, p Point) error {
	if !doc.Has(p.Key) || !doc.IsAttached(p.Key) {
		return fmt.Errorf("point key %q: %w", p.Key, ErrNoSuchNode)
	}
	limit := len(doc.Children(p.Key))
	if doc.TypeOf(p.Key) == lexical.TypeText {
		limit = doc.TextLength(p.Key)
	} else if !lexical.IsElement(doc.TypeOf(p.Key)) {
		return fmt.Errorf("point on %s %q: %w", doc.TypeOf(p.Key), p.Key, ErrInvalidSelection)
	}
	if p.Offset < 0 || p.Offset > limit {
		return fmt.Errorf("offset %d outside [0,%d] on %q: %w", p.Offset, limit, p.Key, ErrInvalidSelection)
	}
	return nil
}

func validateSelection(doc *lexical.Document, s Selection) error {
	if isNilSelection(s) {
		return nil
	}
	switch sel := s.(type) {
	case *RangeSelection:
		if err := validatePoint(doc, sel.Anchor); err != nil {
			return err
		}
		return validatePoint(doc, sel.Focus)
	case *NodeSelection:
		if len(sel.Keys) == 0 {
			return fmt.Errorf("empty node selection: %w", ErrInvalidSelection)
		}
		for _, k := range sel.Keys {
			if k == doc.Root() || !doc.IsAttached(k) {
				return fmt.Errorf("selected key %q: %w", k, ErrNoSuchNode)
			}
		}
		return nil
	}
	return fmt.Errorf("unknown selection %T: %w", s, ErrInvalidSelection)
}

// textPos is a point normalized onto the document-ordered list of text nodes.
// index == len(texts) stands for the end of the document.
type textPos struct {
	index  int
	offset int
}

func (a textPos) less(b textPos) bool {
	if a.index != b.index {
		return a.index < b.index
	}
	return a.offset < b.offset
}

// textLayout is a snapshot of the text nodes of a document in order, with preorder ranks.
type textLayout struct {
	doc   *lexical.Document
	texts []lexical.NodeKey
	index map[lexical.NodeKey]int
	pre   map[lexical.NodeKey]int
	last  map[lexical.NodeKey]int
}

func newTextLayout(doc *lexical.Document) *textLayout {
	l := &textLayout{
		doc:   doc,
		index: make(map[lexical.NodeKey]int),
		pre:   make(map[lexical.NodeKey]int),
		last:  make(map[lexical.NodeKey]int),
	}
	var visit func(k lexical.NodeKey)
	visit = func(k lexical.NodeKey) {
		l.pre[k] = len(l.pre)
		if doc.TypeOf(k) == lexical.TypeText {
			l.index[k] = len(l.texts)
			l.texts = append(l.texts, k)
		}
		for _, c := range doc.Children(k) {
			visit(c)
		}
		l.last[k] = len(l.pre) - 1
	}
	visit(doc.Root())
	return l
}

func (l *textLayout) position(p Point) textPos {
	if i, ok := l.index[p.Key]; ok {
		return textPos{index: i, offset: p.Offset}
	}
	children := l.doc.Children(p.Key)
	rank := l.last[p.Key] + 1
	if p.Offset < len(children) {
		rank = l.pre[children[p.Offset]]
	}
	for i, t := range l.texts {
		if l.pre[t] >= rank {
			return textPos{index: i}
		}
	}
	return textPos{index: len(l.texts)}
}

// segment is the covered rune range [start, end) of one text node.
type segment struct {
	key   lexical.NodeKey
	start int
	end   int
}

// ordered returns the selection endpoints in document order.
func (l *textLayout) ordered(s *RangeSelection) (start, end Point, backward bool) {
	a, f := l.position(s.Anchor), l.position(s.Focus)
	if f.less(a) {
		return s.Focus, s.Anchor, true
	}
	return s.Anchor, s.Focus, false
}

// covered lists the non-empty text ranges between the selection endpoints.
func (l *textLayout) covered(s *RangeSelection) []segment {
	start, end, _ := l.ordered(s)
	from, to := l.position(start), l.position(end)
	var segs []segment
	for i := from.index; i <= to.index && i < len(l.texts); i++ {
		key := l.texts[i]
		seg := segment{key: key, start: 0, end: l.doc.TextLength(key)}
		if i == from.index {
			seg.start = from.offset
		}
		if i == to.index {
			seg.end = to.offset
		}
		if seg.start < seg.end {
			segs = append(segs, seg)
		}
	}
	return segs
}
