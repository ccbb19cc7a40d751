package lexical

import (
	"fmt"
	"strings"
)

// Parser handles Lexical JSON to Markdown conversion
type Parser struct{}

// NewParser creates a new parser instance
func NewParser() *Parser {
	return &Parser{}
}

// Parse converts a Lexical JSON string to Markdown
func (p *Parser) Parse(jsonContent string) (string, error) {
	d, err := Parse(jsonContent)
	if err != nil {
		return "", err
	}
	return p.Render(d), nil
}

// Render writes the document as Markdown.
func (p *Parser) Render(d *Document) string {
	var sb strings.Builder
	p.walkNode(d, d.nodes[rootKey], &sb, 0)
	return sb.String()
}

// Markdown renders d with a default Parser.
func Markdown(d *Document) string {
	return NewParser().Render(d)
}

// ParseContent is a convenience function to parse a raw string
// It attempts to parse as Lexical JSON; if it fails (not JSON or error), it returns the original string
func ParseContent(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, `{"root":`) {
		return content
	}

	md, err := NewParser().Parse(trimmed)
	if err != nil {
		return content
	}
	return md
}

func (p *Parser) walkNode(d *Document, node *Node, sb *strings.Builder, depth int) {
	switch node.Type {
	case TypeRoot:
		for _, child := range node.Children {
			p.walkNode(d, d.nodes[child], sb, depth)
			sb.WriteString("\n")
		}

	case TypeParagraph:
		p.handleBlock(d, node, sb, "")

	case TypeHeading:
		p.handleBlock(d, node, sb, strings.Repeat("#", node.Level)+" ")

	case TypeQuote:
		p.handleBlock(d, node, sb, "> ")

	case TypeCode:
		sb.WriteString("```" + node.Language + "\n")
		p.walkChildren(d, node, sb, depth)
		sb.WriteString("\n```\n")

	case TypeText:
		p.handleText(node, sb)

	case TypeList:
		p.handleList(d, node, sb, depth)

	case TypeListItem:
		// loose list items are rendered by handleList; this only covers fragments
		p.walkChildren(d, node, sb, depth)

	case TypeLink:
		sb.WriteString("[")
		p.walkChildren(d, node, sb, 0)
		sb.WriteString(fmt.Sprintf("](%s)", node.URL))

	case TypeImage:
		sb.WriteString(fmt.Sprintf("![%s](%s)", node.AltText, node.Src))

	case TypeHorizontalRule:
		sb.WriteString("---\n")
	}
}

func (p *Parser) walkChildren(d *Document, node *Node, sb *strings.Builder, depth int) {
	for _, child := range node.Children {
		p.walkNode(d, d.nodes[child], sb, depth)
	}
}

func (p *Parser) handleBlock(d *Document, node *Node, sb *strings.Builder, prefix string) {
	align := ""
	if node.ElementFormat != AlignNone && node.ElementFormat != AlignLeft {
		align = string(node.ElementFormat)
	}

	sb.WriteString(prefix)
	if align != "" {
		sb.WriteString(fmt.Sprintf("<div align=\"%s\">", align))
	}

	p.walkChildren(d, node, sb, 0)

	if align != "" {
		sb.WriteString("</div>")
	}
	sb.WriteString("\n")
}

func (p *Parser) handleText(node *Node, sb *strings.Builder) {
	text := node.Text

	// Annotations
	openTag := ParseStyle(node.Style.CSS()).BuildAnnotatedOpenTag()
	if openTag != "" {
		sb.WriteString(openTag)
	}

	isBold := node.Format.Has(FormatBold)
	isItalic := node.Format.Has(FormatItalic)
	isUnderline := node.Format.Has(FormatUnderline)
	isCode := node.Format.Has(FormatCode)
	isStrike := node.Format.Has(FormatStrikethrough)

	// Code > Bold > Italic > Underline > Strike; underline has no Markdown form, so <u>
	if isCode {
		sb.WriteString("`")
	}
	if isBold {
		sb.WriteString("**")
	}
	if isItalic {
		sb.WriteString("_")
	}
	if isUnderline {
		sb.WriteString("<u>")
	}
	if isStrike {
		sb.WriteString("~~")
	}

	sb.WriteString(text)

	if isStrike {
		sb.WriteString("~~")
	}
	if isUnderline {
		sb.WriteString("</u>")
	}
	if isItalic {
		sb.WriteString("_")
	}
	if isBold {
		sb.WriteString("**")
	}
	if isCode {
		sb.WriteString("`")
	}

	if openTag != "" {
		sb.WriteString("</span>")
	}
}

func (p *Parser) handleList(d *Document, node *Node, sb *strings.Builder, depth int) {
	index := 1
	if node.Start > 0 {
		index = node.Start
	}

	for _, key := range node.Children {
		child := d.nodes[key]

		// Indentation for nested lists (2 spaces per depth level)
		sb.WriteString(strings.Repeat("  ", depth))

		switch {
		case node.Ordered:
			sb.WriteString(fmt.Sprintf("%d. ", index))
			index++
		case node.Check:
			if child.Checked {
				sb.WriteString("- [x] ")
			} else {
				sb.WriteString("- [ ] ")
			}
		default:
			sb.WriteString("- ")
		}

		// a nested list is a child of the list item, not of the list
		for _, gk := range child.Children {
			grandChild := d.nodes[gk]
			if grandChild.Type == TypeList {
				sb.WriteString("\n")
				p.handleList(d, grandChild, sb, depth+1)
			} else {
				p.walkNode(d, grandChild, sb, depth)
			}
		}
		sb.WriteString("\n")
	}
	// Extra newline after list
	if depth == 0 {
		sb.WriteString("\n")
	}
}
