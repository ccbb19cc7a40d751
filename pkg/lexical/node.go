package lexical

import (
	"errors"
)

// ErrInvalidStructure is returned when a construction or mutation would break the tree shape.
var ErrInvalidStructure = errors.New("lexical: invalid structure")

// NodeKey identifies a node inside one in-memory Document. Keys are never persisted.
type NodeKey string

// NodeType is the Lexical "type" of a node.
type NodeType string

const (
	TypeRoot           NodeType = "root"
	TypeParagraph      NodeType = "paragraph"
	TypeHeading        NodeType = "heading"
	TypeText           NodeType = "text"
	TypeList           NodeType = "list"
	TypeListItem       NodeType = "listitem"
	TypeQuote          NodeType = "quote"
	TypeCode           NodeType = "code"
	TypeLink           NodeType = "link"
	TypeImage          NodeType = "image"
	TypeHorizontalRule NodeType = "horizontalrule"
)

// Node is one entry of the document arena. Children are ordered; document order is render order.
// Values handed out by Document.Get are copies: mutate through Document methods.
type Node struct {
	Key      NodeKey
	Type     NodeType
	Parent   NodeKey
	Children []NodeKey

	Props
}

// Props holds the variant properties of a node; only the ones matching Type are meaningful.
type Props struct {
	// text
	Text   string
	Format TextFormat
	Style  TextStyle

	// block
	ElementFormat ElementFormat
	Indent        int
	Direction     string

	// heading
	Level int

	// list / listitem
	Ordered bool
	Check   bool
	Start   int
	Value   int
	Checked bool

	// code
	Language string

	// link
	URL    string
	Rel    string
	Target string
	Title  string

	// image; zero Width/Height means the intrinsic size
	Src     string
	AltText string
	Width   int
	Height  int
}

// ImageAttrs are the properties of a new image node.
type ImageAttrs struct {
	Src     string
	AltText string
	Width   int
	Height  int
}

// IsBlock reports whether t may sit directly under the root.
func IsBlock(t NodeType) bool {
	switch t {
	case TypeParagraph, TypeHeading, TypeList, TypeQuote, TypeCode, TypeImage, TypeHorizontalRule:
		return true
	}
	return false
}

// IsInline reports whether t is inline content of a paragraph-like element.
func IsInline(t NodeType) bool {
	switch t {
	case TypeText, TypeLink, TypeImage:
		return true
	}
	return false
}

// IsElement reports whether t can have children.
func IsElement(t NodeType) bool {
	switch t {
	case TypeText, TypeImage, TypeHorizontalRule:
		return false
	}
	return true
}

// hasBlockProperties reports whether alignment and indent apply to t.
func hasBlockProperties(t NodeType) bool {
	switch t {
	case TypeParagraph, TypeHeading, TypeQuote, TypeCode, TypeList, TypeListItem:
		return true
	}
	return false
}

// CanContainInline reports whether t takes inline children (text, link, image).
func CanContainInline(t NodeType) bool {
	switch t {
	case TypeParagraph, TypeHeading, TypeQuote, TypeListItem:
		return true
	}
	return false
}

// Accepts reports whether a node of type child may be a direct child of parent.
func Accepts(parent, child NodeType) bool {
	switch parent {
	case TypeRoot:
		return IsBlock(child)
	case TypeParagraph, TypeHeading, TypeQuote:
		return IsInline(child)
	case TypeListItem:
		return IsInline(child) || child == TypeList
	case TypeList:
		return child == TypeListItem
	case TypeLink, TypeCode:
		return child == TypeText
	}
	return false
}

func (n *Node) clone() *Node {
	c := *n
	if n.Children != nil {
		c.Children = append([]NodeKey(nil), n.Children...)
	}
	return &c
}
