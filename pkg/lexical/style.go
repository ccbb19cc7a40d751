package lexical

import (
	"strings"
)

// CSS properties the editor toolbar can patch on text nodes.
const (
	StyleFontFamily      = "font-family"
	StyleFontSize        = "font-size"
	StyleColor           = "color"
	StyleBackgroundColor = "background-color"
)

// TextStyle is the inline style a text node carries.
type TextStyle struct {
	FontFamily      string
	FontSize        string
	Color           string
	BackgroundColor string
}

// IsZero reports whether no property is set.
func (s TextStyle) IsZero() bool {
	return s == TextStyle{}
}

// Get returns the value of a CSS property.
func (s TextStyle) Get(property string) string {
	switch property {
	case StyleFontFamily:
		return s.FontFamily
	case StyleFontSize:
		return s.FontSize
	case StyleColor:
		return s.Color
	case StyleBackgroundColor:
		return s.BackgroundColor
	}
	return ""
}

// unsafeStyleChars cannot appear in a value without changing how CSS splits it.
const unsafeStyleChars = ";:\"<>{}\\"

// ValidStyleValue reports whether value can be written into the style string and
// parsed back as the same single property.
func ValidStyleValue(value string) bool {
	return !strings.ContainsAny(value, unsafeStyleChars)
}

// With returns a copy with property set to value. An empty value clears it.
// Unknown properties and values rejected by ValidStyleValue are ignored.
func (s TextStyle) With(property, value string) TextStyle {
	value = strings.TrimSpace(value)
	if !ValidStyleValue(value) {
		return s
	}
	switch property {
	case StyleFontFamily:
		s.FontFamily = value
	case StyleFontSize:
		s.FontSize = value
	case StyleColor:
		s.Color = value
	case StyleBackgroundColor:
		s.BackgroundColor = value
	}
	return s
}

// Patch applies every property of patch in a deterministic order.
func (s TextStyle) Patch(patch map[string]string) TextStyle {
	for _, k := range []string{StyleFontFamily, StyleFontSize, StyleColor, StyleBackgroundColor} {
		if v, ok := patch[k]; ok {
			s = s.With(k, v)
		}
	}
	return s
}

// CSS renders the style the way Lexical stores it.
func (s TextStyle) CSS() string {
	var sb strings.Builder
	for _, k := range []string{StyleFontFamily, StyleFontSize, StyleColor, StyleBackgroundColor} {
		if v := s.Get(k); v != "" {
			if sb.Len() > 0 {
				sb.WriteString(" ")
			}
			sb.WriteString(k + ": " + v + ";")
		}
	}
	return sb.String()
}

// ParseTextStyle reads the properties the editor understands out of a CSS string.
func ParseTextStyle(css string) TextStyle {
	var s TextStyle
	for k, v := range ParseStyle(css) {
		s = s.With(k, v)
	}
	return s
}

// StyleMap represents parsed CSS styles
type StyleMap map[string]string

// ParseStyle parses a CSS style string into a map
// Example: "color: #F97316; background-color: #BFDBFE;"
func ParseStyle(styleStr string) StyleMap {
	styles := make(StyleMap)
	if styleStr == "" {
		return styles
	}

	parts := strings.Split(styleStr, ";")
	for _, part := range parts {
		kv := strings.SplitN(part, ":", 2)
		if len(kv) == 2 {
			k := strings.TrimSpace(kv[0])
			v := strings.TrimSpace(kv[1])
			if k != "" && v != "" {
				styles[k] = v
			}
		}
	}
	return styles
}

// BuildAnnotatedOpenTag creates an HTML span with the styles worth keeping in Markdown.
// Returns empty string if no relevant styles found
func (s StyleMap) BuildAnnotatedOpenTag() string {
	var relevant []string

	whitelist := []string{StyleColor, StyleBackgroundColor, "text-transform"}

	for _, k := range whitelist {
		if v, ok := s[k]; ok {
			relevant = append(relevant, k+":"+v)
		}
	}

	if len(relevant) == 0 {
		return ""
	}

	return "<span style=\"" + strings.Join(relevant, "; ") + "\">"
}
