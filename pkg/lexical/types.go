package lexical

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// SerializedDocument represents the top-level structure
type SerializedDocument struct {
	Root *SerializedNode `json:"root"`
}

// SerializedNode represents any node in the Lexical tree as it travels on the wire.
// Format is polymorphic: an int bitmask on text nodes, an alignment string on elements.
type SerializedNode struct {
	Type     string            `json:"type"`
	Version  int               `json:"version"`
	Children []*SerializedNode `json:"children,omitempty"`

	// Text specific
	Text   string      `json:"text,omitempty"`
	Format interface{} `json:"format,omitempty"`
	Style  string      `json:"style,omitempty"`
	Mode   string      `json:"mode,omitempty"`
	Detail int         `json:"detail,omitempty"`

	// Element specific
	Direction string `json:"direction,omitempty"`
	Indent    int    `json:"indent,omitempty"`

	// Heading (h1..h3) and list (ul/ol)
	Tag string `json:"tag,omitempty"`

	// Link specific
	URL    string `json:"url,omitempty"`
	Rel    string `json:"rel,omitempty"`
	Target string `json:"target,omitempty"`
	Title  string `json:"title,omitempty"`

	// List specific
	ListType string `json:"listType,omitempty"` // bullet, number, check
	Start    int    `json:"start,omitempty"`

	// ListItem specific
	Checked bool `json:"checked,omitempty"`
	Value   int  `json:"value,omitempty"`

	// Code specific
	Language string `json:"language,omitempty"`

	// Image specific
	Src     string    `json:"src,omitempty"`
	AltText string    `json:"altText,omitempty"`
	Width   Dimension `json:"width,omitempty"`
	Height  Dimension `json:"height,omitempty"`
}

// Dimension is an image size in pixels. Lexical writes "inherit" for the intrinsic size,
// which decodes to zero.
type Dimension int

func (d *Dimension) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*d = Dimension(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("dimension %s: %w", data, err)
	}
	if v, err := strconv.Atoi(strings.TrimSuffix(s, "px")); err == nil {
		*d = Dimension(v)
		return nil
	}
	*d = 0
	return nil
}

// TextFormat is the Lexical text format bitmask.
type TextFormat int

// Constants for Text Format Bitmask
const (
	FormatBold          TextFormat = 1
	FormatItalic        TextFormat = 2
	FormatStrikethrough TextFormat = 4
	FormatUnderline     TextFormat = 8
	FormatCode          TextFormat = 16
	FormatSubscript     TextFormat = 32
	FormatSuperscript   TextFormat = 64
)

// Has reports whether every bit of flag is set.
func (f TextFormat) Has(flag TextFormat) bool {
	return flag != 0 && f&flag == flag
}

// Toggle flips flag.
func (f TextFormat) Toggle(flag TextFormat) TextFormat {
	return f ^ flag
}

var formatNames = map[string]TextFormat{
	"bold":          FormatBold,
	"italic":        FormatItalic,
	"strikethrough": FormatStrikethrough,
	"underline":     FormatUnderline,
	"code":          FormatCode,
	"subscript":     FormatSubscript,
	"superscript":   FormatSuperscript,
}

// ParseTextFormat maps a toolbar format name ("bold", "italic", ...) to its flag.
func ParseTextFormat(name string) (TextFormat, bool) {
	f, ok := formatNames[name]
	return f, ok
}

// ElementFormat is the alignment carried by block nodes.
type ElementFormat string

const (
	AlignNone    ElementFormat = ""
	AlignLeft    ElementFormat = "left"
	AlignCenter  ElementFormat = "center"
	AlignRight   ElementFormat = "right"
	AlignJustify ElementFormat = "justify"
)

// Valid reports whether the alignment is one the editor emits.
func (f ElementFormat) Valid() bool {
	switch f {
	case AlignNone, AlignLeft, AlignCenter, AlignRight, AlignJustify:
		return true
	}
	return false
}

const serializedVersion = 1
