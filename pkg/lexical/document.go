package lexical

import (
	"fmt"
	"sort"
	"strconv"
	"unicode/utf8"
)

const rootKey NodeKey = "root"

// Document is an arena of nodes rooted at a single root node.
// A Document is not safe for concurrent use.
type Document struct {
	nodes   map[NodeKey]*Node
	nextKey int
}

// NewDocument creates a document whose root has no children.
func NewDocument() *Document {
	d := &Document{nodes: make(map[NodeKey]*Node)}
	d.nodes[rootKey] = &Node{Key: rootKey, Type: TypeRoot}
	return d
}

// NewDocumentWithParagraph creates the canonical empty editor: a root holding one empty paragraph.
func NewDocumentWithParagraph() *Document {
	d := NewDocument()
	p := d.CreateParagraph()
	_ = d.Append(rootKey, p)
	return d
}

// Root returns the key of the root node.
func (d *Document) Root() NodeKey {
	return rootKey
}

func (d *Document) newNode(t NodeType) *Node {
	d.nextKey++
	n := &Node{Key: NodeKey(strconv.Itoa(d.nextKey)), Type: t}
	d.nodes[n.Key] = n
	return n
}

// Get returns a copy of the node stored under key.
func (d *Document) Get(key NodeKey) (Node, bool) {
	n, ok := d.nodes[key]
	if !ok {
		return Node{}, false
	}
	return *n.clone(), true
}

// Has reports whether key names a live node (attached or not).
func (d *Document) Has(key NodeKey) bool {
	_, ok := d.nodes[key]
	return ok
}

// TypeOf returns the type of key, or "" when unknown.
func (d *Document) TypeOf(key NodeKey) NodeType {
	if n, ok := d.nodes[key]; ok {
		return n.Type
	}
	return ""
}

// Children returns a copy of the ordered child keys of key.
func (d *Document) Children(key NodeKey) []NodeKey {
	n, ok := d.nodes[key]
	if !ok {
		return nil
	}
	return append([]NodeKey(nil), n.Children...)
}

// Parent returns the parent key, or "" for the root and detached nodes.
func (d *Document) Parent(key NodeKey) NodeKey {
	if n, ok := d.nodes[key]; ok {
		return n.Parent
	}
	return ""
}

// IsAttached reports whether key is reachable from the root.
func (d *Document) IsAttached(key NodeKey) bool {
	for key != "" {
		if key == rootKey {
			return true
		}
		n, ok := d.nodes[key]
		if !ok {
			return false
		}
		key = n.Parent
	}
	return false
}

// IndexInParent returns the position of key among its siblings, or -1.
func (d *Document) IndexInParent(key NodeKey) int {
	n, ok := d.nodes[key]
	if !ok || n.Parent == "" {
		return -1
	}
	for i, c := range d.nodes[n.Parent].Children {
		if c == key {
			return i
		}
	}
	return -1
}

// TopLevelBlock returns the ancestor of key (or key itself) that is a direct child of the root.
func (d *Document) TopLevelBlock(key NodeKey) NodeKey {
	for key != "" && key != rootKey {
		n, ok := d.nodes[key]
		if !ok {
			return ""
		}
		if n.Parent == rootKey {
			return key
		}
		key = n.Parent
	}
	return ""
}

// Nearest returns the closest ancestor-or-self of key whose type satisfies match.
func (d *Document) Nearest(key NodeKey, match func(NodeType) bool) NodeKey {
	for key != "" {
		n, ok := d.nodes[key]
		if !ok {
			return ""
		}
		if match(n.Type) {
			return key
		}
		key = n.Parent
	}
	return ""
}

// Walk visits the attached tree depth-first in document order. Returning false from fn
// skips the node's children.
func (d *Document) Walk(fn func(n Node, depth int) bool) {
	d.walk(rootKey, 0, fn)
}

func (d *Document) walk(key NodeKey, depth int, fn func(n Node, depth int) bool) {
	n, ok := d.nodes[key]
	if !ok || !fn(*n.clone(), depth) {
		return
	}
	// fn may edit the tree
	for _, c := range append([]NodeKey(nil), n.Children...) {
		d.walk(c, depth+1, fn)
	}
}

// TextNodes returns the attached text nodes in document order.
func (d *Document) TextNodes() []NodeKey {
	var keys []NodeKey
	d.Walk(func(n Node, _ int) bool {
		if n.Type == TypeText {
			keys = append(keys, n.Key)
		}
		return true
	})
	return keys
}

// Size returns the number of attached nodes, root included.
func (d *Document) Size() int {
	count := 0
	d.Walk(func(Node, int) bool { count++; return true })
	return count
}

// Factories

// CreateParagraph creates a detached paragraph.
func (d *Document) CreateParagraph() NodeKey {
	return d.newNode(TypeParagraph).Key
}

// CreateHeading creates a detached heading of level 1..3.
func (d *Document) CreateHeading(level int) (NodeKey, error) {
	if level < 1 || level > 3 {
		return "", fmt.Errorf("heading level %d: %w", level, ErrInvalidStructure)
	}
	n := d.newNode(TypeHeading)
	n.Level = level
	return n.Key, nil
}

// CreateText creates a detached text node.
func (d *Document) CreateText(text string) NodeKey {
	n := d.newNode(TypeText)
	n.Text = text
	return n.Key
}

// CreateList creates a detached bullet or numbered list.
func (d *Document) CreateList(ordered bool) NodeKey {
	n := d.newNode(TypeList)
	n.Ordered = ordered
	n.Start = 1
	return n.Key
}

// CreateCheckList creates a detached check list.
func (d *Document) CreateCheckList() NodeKey {
	n := d.newNode(TypeList)
	n.Check = true
	n.Start = 1
	return n.Key
}

// CreateListItem creates a detached list item.
func (d *Document) CreateListItem() NodeKey {
	n := d.newNode(TypeListItem)
	n.Value = 1
	return n.Key
}

// CreateQuote creates a detached quote block.
func (d *Document) CreateQuote() NodeKey {
	return d.newNode(TypeQuote).Key
}

// CreateCode creates a detached code block.
func (d *Document) CreateCode(language string) NodeKey {
	n := d.newNode(TypeCode)
	n.Language = language
	return n.Key
}

// CreateLink creates a detached link; url must be non-empty.
func (d *Document) CreateLink(url string) (NodeKey, error) {
	if url == "" {
		return "", fmt.Errorf("link without url: %w", ErrInvalidStructure)
	}
	n := d.newNode(TypeLink)
	n.URL = url
	return n.Key, nil
}

// CreateImage creates a detached image; src must be non-empty and sizes non-negative.
func (d *Document) CreateImage(attrs ImageAttrs) (NodeKey, error) {
	if attrs.Src == "" {
		return "", fmt.Errorf("image without src: %w", ErrInvalidStructure)
	}
	if attrs.Width < 0 || attrs.Height < 0 {
		return "", fmt.Errorf("image size %dx%d: %w", attrs.Width, attrs.Height, ErrInvalidStructure)
	}
	n := d.newNode(TypeImage)
	n.Src = attrs.Src
	n.AltText = attrs.AltText
	n.Width = attrs.Width
	n.Height = attrs.Height
	return n.Key, nil
}

// CreateHorizontalRule creates a detached horizontal rule.
func (d *Document) CreateHorizontalRule() NodeKey {
	return d.newNode(TypeHorizontalRule).Key
}

// Tree edits

func (d *Document) checkInsert(parent, child NodeKey) (*Node, *Node, error) {
	p, ok := d.nodes[parent]
	if !ok {
		return nil, nil, fmt.Errorf("unknown parent %q: %w", parent, ErrInvalidStructure)
	}
	c, ok := d.nodes[child]
	if !ok {
		return nil, nil, fmt.Errorf("unknown child %q: %w", child, ErrInvalidStructure)
	}
	if child == rootKey || c.Parent != "" {
		return nil, nil, fmt.Errorf("node %q is already attached: %w", child, ErrInvalidStructure)
	}
	if !Accepts(p.Type, c.Type) {
		return nil, nil, fmt.Errorf("%s cannot contain %s: %w", p.Type, c.Type, ErrInvalidStructure)
	}
	for k := parent; k != ""; k = d.nodes[k].Parent {
		if k == child {
			return nil, nil, fmt.Errorf("inserting %q under %q creates a cycle: %w", child, parent, ErrInvalidStructure)
		}
	}
	return p, c, nil
}

// Append attaches a detached child as the last child of parent.
func (d *Document) Append(parent, child NodeKey) error {
	p, c, err := d.checkInsert(parent, child)
	if err != nil {
		return err
	}
	p.Children = append(p.Children, child)
	c.Parent = parent
	return nil
}

// InsertAt attaches a detached child at index of parent's children.
func (d *Document) InsertAt(parent NodeKey, index int, child NodeKey) error {
	p, c, err := d.checkInsert(parent, child)
	if err != nil {
		return err
	}
	if index < 0 || index > len(p.Children) {
		return fmt.Errorf("index %d out of range [0,%d]: %w", index, len(p.Children), ErrInvalidStructure)
	}
	p.Children = append(p.Children, "")
	copy(p.Children[index+1:], p.Children[index:])
	p.Children[index] = child
	c.Parent = parent
	return nil
}

// InsertAfter attaches a detached child right after sibling.
func (d *Document) InsertAfter(sibling, child NodeKey) error {
	idx := d.IndexInParent(sibling)
	if idx < 0 {
		return fmt.Errorf("sibling %q has no parent: %w", sibling, ErrInvalidStructure)
	}
	return d.InsertAt(d.nodes[sibling].Parent, idx+1, child)
}

// InsertBefore attaches a detached child right before sibling.
func (d *Document) InsertBefore(sibling, child NodeKey) error {
	idx := d.IndexInParent(sibling)
	if idx < 0 {
		return fmt.Errorf("sibling %q has no parent: %w", sibling, ErrInvalidStructure)
	}
	return d.InsertAt(d.nodes[sibling].Parent, idx, child)
}

// Detach unlinks key from its parent but keeps its subtree in the arena for reinsertion.
func (d *Document) Detach(key NodeKey) error {
	if key == rootKey {
		return fmt.Errorf("root cannot be detached: %w", ErrInvalidStructure)
	}
	n, ok := d.nodes[key]
	if !ok {
		return fmt.Errorf("unknown node %q: %w", key, ErrInvalidStructure)
	}
	if n.Parent == "" {
		return nil
	}
	p := d.nodes[n.Parent]
	for i, c := range p.Children {
		if c == key {
			p.Children = append(p.Children[:i], p.Children[i+1:]...)
			break
		}
	}
	n.Parent = ""
	return nil
}

// Remove detaches key and drops its whole subtree from the arena.
func (d *Document) Remove(key NodeKey) error {
	if err := d.Detach(key); err != nil {
		return err
	}
	d.drop(key)
	return nil
}

func (d *Document) drop(key NodeKey) {
	n, ok := d.nodes[key]
	if !ok {
		return
	}
	for _, c := range n.Children {
		d.drop(c)
	}
	delete(d.nodes, key)
}

// MoveChildren re-parents every child of from onto the end of to, in order.
// It fails without moving anything if to cannot hold one of the children.
func (d *Document) MoveChildren(from, to NodeKey) error {
	src, ok := d.nodes[from]
	if !ok {
		return fmt.Errorf("unknown node %q: %w", from, ErrInvalidStructure)
	}
	dst, ok := d.nodes[to]
	if !ok {
		return fmt.Errorf("unknown node %q: %w", to, ErrInvalidStructure)
	}
	for _, c := range src.Children {
		if !Accepts(dst.Type, d.nodes[c].Type) {
			return fmt.Errorf("%s cannot contain %s: %w", dst.Type, d.nodes[c].Type, ErrInvalidStructure)
		}
	}
	children := src.Children
	src.Children = nil
	for _, c := range children {
		d.nodes[c].Parent = ""
		if err := d.Append(to, c); err != nil {
			return err
		}
	}
	return nil
}

// Property setters

func (d *Document) node(key NodeKey, want ...NodeType) (*Node, error) {
	n, ok := d.nodes[key]
	if !ok {
		return nil, fmt.Errorf("unknown node %q: %w", key, ErrInvalidStructure)
	}
	if len(want) == 0 {
		return n, nil
	}
	for _, t := range want {
		if n.Type == t {
			return n, nil
		}
	}
	return nil, fmt.Errorf("node %q is a %s: %w", key, n.Type, ErrInvalidStructure)
}

// SetText replaces the content of a text node.
func (d *Document) SetText(key NodeKey, text string) error {
	n, err := d.node(key, TypeText)
	if err != nil {
		return err
	}
	n.Text = text
	return nil
}

// SetFormat replaces the format bitmask of a text node.
func (d *Document) SetFormat(key NodeKey, format TextFormat) error {
	n, err := d.node(key, TypeText)
	if err != nil {
		return err
	}
	n.Format = format
	return nil
}

// SetStyle replaces the inline style of a text node.
func (d *Document) SetStyle(key NodeKey, style TextStyle) error {
	n, err := d.node(key, TypeText)
	if err != nil {
		return err
	}
	n.Style = style
	return nil
}

// SetElementFormat sets the alignment of a block node.
func (d *Document) SetElementFormat(key NodeKey, format ElementFormat) error {
	n, err := d.node(key)
	if err != nil {
		return err
	}
	if !hasBlockProperties(n.Type) || !format.Valid() {
		return fmt.Errorf("alignment %q on %s: %w", format, n.Type, ErrInvalidStructure)
	}
	n.ElementFormat = format
	return nil
}

// SetIndent sets the indent level of a block node.
func (d *Document) SetIndent(key NodeKey, indent int) error {
	n, err := d.node(key)
	if err != nil {
		return err
	}
	if !hasBlockProperties(n.Type) || indent < 0 {
		return fmt.Errorf("indent %d on %s: %w", indent, n.Type, ErrInvalidStructure)
	}
	n.Indent = indent
	return nil
}

// SetLinkURL changes the target of a link node.
func (d *Document) SetLinkURL(key NodeKey, url string) error {
	n, err := d.node(key, TypeLink)
	if err != nil {
		return err
	}
	if url == "" {
		return fmt.Errorf("link without url: %w", ErrInvalidStructure)
	}
	n.URL = url
	return nil
}

// LinkAttrs are the optional attributes of a link node besides its url.
type LinkAttrs struct {
	Rel    string
	Target string
	Title  string
}

// SetLinkAttrs replaces rel, target and title of a link node.
func (d *Document) SetLinkAttrs(key NodeKey, attrs LinkAttrs) error {
	n, err := d.node(key, TypeLink)
	if err != nil {
		return err
	}
	n.Rel, n.Target, n.Title = attrs.Rel, attrs.Target, attrs.Title
	return nil
}

// SetImageSize sets the rendered size of an image node. Zero means intrinsic.
func (d *Document) SetImageSize(key NodeKey, width, height int) error {
	n, err := d.node(key, TypeImage)
	if err != nil {
		return err
	}
	if width < 0 || height < 0 {
		return fmt.Errorf("image size %dx%d: %w", width, height, ErrInvalidStructure)
	}
	n.Width, n.Height = width, height
	return nil
}

// SetChecked marks a check-list item.
func (d *Document) SetChecked(key NodeKey, checked bool) error {
	n, err := d.node(key, TypeListItem)
	if err != nil {
		return err
	}
	n.Checked = checked
	return nil
}

// SetValue sets the ordinal of a list item.
func (d *Document) SetValue(key NodeKey, value int) error {
	n, err := d.node(key, TypeListItem)
	if err != nil {
		return err
	}
	n.Value = value
	return nil
}

// SetListKind switches a list between bullet, numbered and check kinds.
func (d *Document) SetListKind(key NodeKey, ordered, check bool) error {
	n, err := d.node(key, TypeList)
	if err != nil {
		return err
	}
	if ordered && check {
		return fmt.Errorf("list cannot be both numbered and check: %w", ErrInvalidStructure)
	}
	n.Ordered, n.Check = ordered, check
	return nil
}

// TextLength returns the rune length of a text node.
func (d *Document) TextLength(key NodeKey) int {
	if n, ok := d.nodes[key]; ok && n.Type == TypeText {
		return utf8.RuneCountInString(n.Text)
	}
	return 0
}

// SplitText splits a text node at the given rune offsets and returns the pieces in order.
// The original key keeps the first piece; the rest are inserted after it with the same
// format and style. Offsets outside (0, len) and duplicates are ignored.
func (d *Document) SplitText(key NodeKey, offsets ...int) ([]NodeKey, error) {
	n, err := d.node(key, TypeText)
	if err != nil {
		return nil, err
	}
	runes := []rune(n.Text)
	cuts := make([]int, 0, len(offsets))
	last := 0
	for _, off := range sortedInts(offsets) {
		if off <= last || off >= len(runes) {
			continue
		}
		cuts = append(cuts, off)
		last = off
	}
	pieces := []NodeKey{key}
	if len(cuts) == 0 {
		return pieces, nil
	}
	if n.Parent == "" {
		return nil, fmt.Errorf("cannot split detached text %q: %w", key, ErrInvalidStructure)
	}

	bounds := append(append([]int{0}, cuts...), len(runes))
	n.Text = string(runes[bounds[0]:bounds[1]])
	prev := key
	for i := 1; i < len(bounds)-1; i++ {
		piece := d.newNode(TypeText)
		piece.Text = string(runes[bounds[i]:bounds[i+1]])
		piece.Format = n.Format
		piece.Style = n.Style
		if err := d.InsertAfter(prev, piece.Key); err != nil {
			return nil, err
		}
		pieces = append(pieces, piece.Key)
		prev = piece.Key
	}
	return pieces, nil
}

func sortedInts(in []int) []int {
	out := append([]int(nil), in...)
	sort.Ints(out)
	return out
}

// Clone deep-copies the document, keys included, so selections stay valid against the copy.
func (d *Document) Clone() *Document {
	c := &Document{nodes: make(map[NodeKey]*Node, len(d.nodes)), nextKey: d.nextKey}
	for k, n := range d.nodes {
		c.nodes[k] = n.clone()
	}
	return c
}

// Equal reports whether a and b hold the same tree, ignoring keys and detached nodes.
func Equal(a, b *Document) bool {
	if a == nil || b == nil {
		return a == b
	}
	return equalNode(a, rootKey, b, rootKey)
}

func equalNode(a *Document, ak NodeKey, b *Document, bk NodeKey) bool {
	x, y := a.nodes[ak], b.nodes[bk]
	if len(x.Children) != len(y.Children) {
		return false
	}
	if x.Type != y.Type || x.Props != y.Props {
		return false
	}
	for i := range x.Children {
		if !equalNode(a, x.Children[i], b, y.Children[i]) {
			return false
		}
	}
	return true
}
