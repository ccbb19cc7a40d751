package lexical

import "strings"

// PlainText concatenates every attached text node in document order, separated by one space.
func PlainText(d *Document) string {
	keys := d.TextNodes()
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, d.nodes[k].Text)
	}
	return strings.Join(parts, " ")
}

// ExtractPlainText is the string form of PlainText; undecodable content is returned as is.
func ExtractPlainText(content string) string {
	return PlainText(Deserialize(content))
}
