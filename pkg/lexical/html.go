package lexical

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// HTMLRenderer turns a document into sanitized HTML for the public post page.
// Safe for concurrent use.
type HTMLRenderer struct {
	policy *bluemonday.Policy
}

// NewHTMLRenderer starts from the UGC policy and allows the inline styles, alignment and
// check-list classes the editor emits.
func NewHTMLRenderer() *HTMLRenderer {
	policy := bluemonday.UGCPolicy()
	policy.AllowStyles(StyleColor, StyleBackgroundColor, StyleFontSize, StyleFontFamily).OnElements("span")
	policy.AllowStyles("text-align").
		Matching(regexp.MustCompile(`^(left|center|right|justify)$`)).
		OnElements("p", "h1", "h2", "h3", "blockquote", "li", "ul", "ol", "pre")
	policy.AllowStyles("margin-left").
		Matching(regexp.MustCompile(`^[0-9]+px$`)).
		OnElements("p", "h1", "h2", "h3", "blockquote", "li", "ul", "ol", "pre")
	policy.AllowAttrs("class").
		Matching(regexp.MustCompile(`^(check-list|checked|unchecked|language-[a-z0-9+#-]+)$`)).
		OnElements("ul", "li", "code")
	policy.AllowAttrs("width", "height").Matching(bluemonday.Integer).OnElements("img")

	return &HTMLRenderer{policy: policy}
}

var defaultHTMLRenderer = NewHTMLRenderer()

// RenderHTML renders d with the default renderer.
func RenderHTML(d *Document) string {
	return defaultHTMLRenderer.Render(d)
}

// Render writes the document as HTML and sanitizes the result.
func (r *HTMLRenderer) Render(d *Document) string {
	var sb strings.Builder
	for _, c := range d.nodes[rootKey].Children {
		writeHTML(d, d.nodes[c], &sb)
	}
	return r.policy.Sanitize(sb.String())
}

func writeHTML(d *Document, n *Node, sb *strings.Builder) {
	switch n.Type {
	case TypeParagraph:
		writeElement(d, n, "p", "", sb)
	case TypeHeading:
		writeElement(d, n, fmt.Sprintf("h%d", n.Level), "", sb)
	case TypeQuote:
		writeElement(d, n, "blockquote", "", sb)
	case TypeCode:
		sb.WriteString("<pre" + blockStyle(n) + ">")
		if n.Language != "" {
			sb.WriteString(`<code class="language-` + html.EscapeString(n.Language) + `">`)
		} else {
			sb.WriteString("<code>")
		}
		for _, c := range n.Children {
			sb.WriteString(html.EscapeString(d.nodes[c].Text))
		}
		sb.WriteString("</code></pre>")
	case TypeList:
		tag, class := "ul", ""
		if n.Ordered {
			tag = "ol"
		} else if n.Check {
			class = ` class="check-list"`
		}
		start := ""
		if n.Ordered && n.Start > 1 {
			start = fmt.Sprintf(` start="%d"`, n.Start)
		}
		sb.WriteString("<" + tag + class + start + blockStyle(n) + ">")
		for _, c := range n.Children {
			item := d.nodes[c]
			attrs := ""
			if n.Check {
				attrs = ` class="unchecked"`
				if item.Checked {
					attrs = ` class="checked"`
				}
			}
			writeElement(d, item, "li", attrs, sb)
		}
		sb.WriteString("</" + tag + ">")
	case TypeLink:
		sb.WriteString(`<a href="` + html.EscapeString(n.URL) + `"`)
		if n.Title != "" {
			sb.WriteString(` title="` + html.EscapeString(n.Title) + `"`)
		}
		sb.WriteString(">")
		for _, c := range n.Children {
			writeHTML(d, d.nodes[c], sb)
		}
		sb.WriteString("</a>")
	case TypeImage:
		sb.WriteString(`<img src="` + html.EscapeString(n.Src) + `" alt="` + html.EscapeString(n.AltText) + `"`)
		if n.Width > 0 {
			sb.WriteString(fmt.Sprintf(` width="%d"`, n.Width))
		}
		if n.Height > 0 {
			sb.WriteString(fmt.Sprintf(` height="%d"`, n.Height))
		}
		sb.WriteString(">")
	case TypeHorizontalRule:
		sb.WriteString("<hr>")
	case TypeText:
		writeText(n, sb)
	}
}

func writeElement(d *Document, n *Node, tag, attrs string, sb *strings.Builder) {
	sb.WriteString("<" + tag + attrs + blockStyle(n) + ">")
	for _, c := range n.Children {
		writeHTML(d, d.nodes[c], sb)
	}
	sb.WriteString("</" + tag + ">")
}

func blockStyle(n *Node) string {
	var rules []string
	if n.ElementFormat != AlignNone {
		rules = append(rules, "text-align: "+string(n.ElementFormat))
	}
	if n.Indent > 0 {
		rules = append(rules, fmt.Sprintf("margin-left: %dpx", n.Indent*40))
	}
	if len(rules) == 0 {
		return ""
	}
	return ` style="` + strings.Join(rules, "; ") + `"`
}

var textTags = []struct {
	flag TextFormat
	tag  string
}{
	{FormatCode, "code"},
	{FormatBold, "strong"},
	{FormatItalic, "em"},
	{FormatUnderline, "u"},
	{FormatStrikethrough, "s"},
	{FormatSubscript, "sub"},
	{FormatSuperscript, "sup"},
}

func writeText(n *Node, sb *strings.Builder) {
	var closing []string
	if css := n.Style.CSS(); css != "" {
		sb.WriteString(`<span style="` + html.EscapeString(css) + `">`)
		closing = append(closing, "</span>")
	}
	for _, t := range textTags {
		if n.Format.Has(t.flag) {
			sb.WriteString("<" + t.tag + ">")
			closing = append(closing, "</"+t.tag+">")
		}
	}
	sb.WriteString(html.EscapeString(n.Text))
	for i := len(closing) - 1; i >= 0; i-- {
		sb.WriteString(closing[i])
	}
}
