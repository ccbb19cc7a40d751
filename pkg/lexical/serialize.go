package lexical

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMissingRoot is returned by Parse when the JSON has no root node.
var ErrMissingRoot = errors.New("lexical: missing root node")

// Serialize converts the document to its Lexical JSON string.
func Serialize(d *Document) (string, error) {
	data, err := json.Marshal(d.ToSerialized())
	if err != nil {
		return "", fmt.Errorf("failed to serialize lexical document: %w", err)
	}
	return string(data), nil
}

// MarshalJSON implements json.Marshaler.
func (d *Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.ToSerialized())
}

// UnmarshalJSON implements json.Unmarshaler with the strict rules of Parse.
func (d *Document) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*d = *parsed
	return nil
}

// ToSerialized converts the attached tree to its wire structure.
func (d *Document) ToSerialized() *SerializedDocument {
	return &SerializedDocument{Root: d.serializeNode(d.nodes[rootKey])}
}

func (d *Document) serializeNode(n *Node) *SerializedNode {
	s := &SerializedNode{Type: string(n.Type), Version: serializedVersion}

	if n.Type == TypeText {
		s.Text = n.Text
		s.Format = int(n.Format)
		s.Style = n.Style.CSS()
		s.Mode = "normal"
		return s
	}

	if IsElement(n.Type) {
		s.Format = string(n.ElementFormat)
		s.Indent = n.Indent
		s.Direction = n.Direction
		s.Children = make([]*SerializedNode, 0, len(n.Children))
		for _, c := range n.Children {
			s.Children = append(s.Children, d.serializeNode(d.nodes[c]))
		}
	}

	switch n.Type {
	case TypeHeading:
		s.Tag = "h" + strconv.Itoa(n.Level)
	case TypeList:
		s.Start = n.Start
		switch {
		case n.Check:
			s.ListType, s.Tag = "check", "ul"
		case n.Ordered:
			s.ListType, s.Tag = "number", "ol"
		default:
			s.ListType, s.Tag = "bullet", "ul"
		}
	case TypeListItem:
		s.Value = n.Value
		s.Checked = n.Checked
	case TypeCode:
		s.Language = n.Language
	case TypeLink:
		s.URL = n.URL
		s.Rel = n.Rel
		s.Target = n.Target
		s.Title = n.Title
	case TypeImage:
		s.Src = n.Src
		s.AltText = n.AltText
		s.Width = Dimension(n.Width)
		s.Height = Dimension(n.Height)
	}
	return s
}

// Parse is the strict decoder: malformed JSON, a missing root or a tree that breaks the
// shape rules is reported as an error.
func Parse(content string) (*Document, error) {
	var root SerializedDocument
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &root); err != nil {
		return nil, fmt.Errorf("failed to parse lexical json: %w", err)
	}
	return FromSerialized(root)
}

// Deserialize never fails: content that Parse rejects degrades to a single paragraph holding
// the raw input as plain text.
func Deserialize(content string) *Document {
	d, err := Parse(content)
	if err != nil {
		return PlainTextDocument(content)
	}
	return d
}

// PlainTextDocument builds a one-paragraph document containing text.
func PlainTextDocument(text string) *Document {
	d := NewDocumentWithParagraph()
	if text == "" {
		return d
	}
	t := d.CreateText(text)
	_ = d.Append(d.nodes[rootKey].Children[0], t)
	return d
}

// FromSerialized builds a document from the decoded wire structure.
func FromSerialized(sd SerializedDocument) (*Document, error) {
	if sd.Root == nil {
		return nil, ErrMissingRoot
	}
	if sd.Root.Type != "" && sd.Root.Type != string(TypeRoot) {
		return nil, fmt.Errorf("root node has type %q: %w", sd.Root.Type, ErrInvalidStructure)
	}
	d := NewDocument()
	root := d.nodes[rootKey]
	if err := applyElementProps(root, sd.Root); err != nil {
		return nil, err
	}
	for _, c := range sd.Root.Children {
		if err := d.buildInto(rootKey, c); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (d *Document) buildInto(parent NodeKey, s *SerializedNode) error {
	if s == nil {
		return fmt.Errorf("null child under %s: %w", d.nodes[parent].Type, ErrInvalidStructure)
	}
	key, err := d.createFromSerialized(s)
	if err != nil {
		return err
	}
	if err := d.Append(parent, key); err != nil {
		return err
	}
	n := d.nodes[key]
	if !IsElement(n.Type) {
		if len(s.Children) > 0 {
			return fmt.Errorf("%s cannot have children: %w", n.Type, ErrInvalidStructure)
		}
		return nil
	}
	if err := applyElementProps(n, s); err != nil {
		return err
	}
	for _, c := range s.Children {
		if err := d.buildInto(key, c); err != nil {
			return err
		}
	}
	return nil
}

func (d *Document) createFromSerialized(s *SerializedNode) (NodeKey, error) {
	switch NodeType(s.Type) {
	case TypeParagraph:
		return d.CreateParagraph(), nil
	case TypeHeading:
		level, err := strconv.Atoi(strings.TrimPrefix(s.Tag, "h"))
		if err != nil || !strings.HasPrefix(s.Tag, "h") {
			return "", fmt.Errorf("heading tag %q: %w", s.Tag, ErrInvalidStructure)
		}
		return d.CreateHeading(level)
	case TypeText:
		key := d.CreateText(s.Text)
		n := d.nodes[key]
		format, err := textFormatOf(s.Format)
		if err != nil {
			return "", err
		}
		n.Format = format
		n.Style = ParseTextStyle(s.Style)
		return key, nil
	case TypeList:
		var key NodeKey
		switch s.ListType {
		case "number":
			key = d.CreateList(true)
		case "check":
			key = d.CreateCheckList()
		case "bullet", "":
			key = d.CreateList(false)
		default:
			return "", fmt.Errorf("list type %q: %w", s.ListType, ErrInvalidStructure)
		}
		if s.Start > 0 {
			d.nodes[key].Start = s.Start
		}
		return key, nil
	case TypeListItem:
		key := d.CreateListItem()
		n := d.nodes[key]
		if s.Value > 0 {
			n.Value = s.Value
		}
		n.Checked = s.Checked
		return key, nil
	case TypeQuote:
		return d.CreateQuote(), nil
	case TypeCode:
		return d.CreateCode(s.Language), nil
	case TypeLink:
		key, err := d.CreateLink(s.URL)
		if err != nil {
			return "", err
		}
		n := d.nodes[key]
		n.Rel, n.Target, n.Title = s.Rel, s.Target, s.Title
		return key, nil
	case TypeImage:
		return d.CreateImage(ImageAttrs{
			Src:     s.Src,
			AltText: s.AltText,
			Width:   int(s.Width),
			Height:  int(s.Height),
		})
	case TypeHorizontalRule:
		return d.CreateHorizontalRule(), nil
	}
	return "", fmt.Errorf("unknown node type %q: %w", s.Type, ErrInvalidStructure)
}

func applyElementProps(n *Node, s *SerializedNode) error {
	if s.Indent < 0 {
		return fmt.Errorf("negative indent on %s: %w", n.Type, ErrInvalidStructure)
	}
	n.Indent = s.Indent
	n.Direction = s.Direction
	switch f := s.Format.(type) {
	case nil:
	case string:
		if !ElementFormat(f).Valid() {
			return fmt.Errorf("alignment %q: %w", f, ErrInvalidStructure)
		}
		n.ElementFormat = ElementFormat(f)
	case float64:
		// older payloads store element format as a number; 0 means none
		if f != 0 {
			return fmt.Errorf("numeric element format %v: %w", f, ErrInvalidStructure)
		}
	default:
		return fmt.Errorf("element format %v: %w", f, ErrInvalidStructure)
	}
	return nil
}

func textFormatOf(v interface{}) (TextFormat, error) {
	switch f := v.(type) {
	case nil:
		return 0, nil
	case float64:
		if f < 0 {
			return 0, fmt.Errorf("text format %v: %w", f, ErrInvalidStructure)
		}
		return TextFormat(f), nil
	case int:
		return TextFormat(f), nil
	case string:
		if f == "" {
			return 0, nil
		}
	}
	return 0, fmt.Errorf("text format %v: %w", v, ErrInvalidStructure)
}
