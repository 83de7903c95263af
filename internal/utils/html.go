package utils

import (
	"strings"

	"golang.org/x/net/html"
)

var invisibleElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"head":     true,
	"template": true,
}

// VisibleText extracts the human-visible text of an HTML document with whitespace collapsed.
// Input without markup is only whitespace-collapsed.
func VisibleText(s string) string {
	if !strings.Contains(s, "<") {
		return CollapseWhitespace(s)
	}

	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF or a malformed document; keep what was read
			return CollapseWhitespace(b.String())
		case html.StartTagToken:
			name, _ := z.TagName()
			if invisibleElements[string(name)] {
				skip++
			}
			if isBlock(string(name)) {
				b.WriteByte(' ')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if invisibleElements[string(name)] && skip > 0 {
				skip--
			}
			if isBlock(string(name)) {
				b.WriteByte(' ')
			}
		case html.SelfClosingTagToken:
			b.WriteByte(' ')
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}

func isBlock(tag string) bool {
	switch tag {
	case "p", "div", "br", "li", "ul", "ol", "tr", "td", "th", "table",
		"h1", "h2", "h3", "h4", "h5", "h6", "section", "article", "header", "footer", "blockquote":
		return true
	}
	return false
}

// HTMLList renders each non-blank line of text as an escaped list item
func HTMLList(text string) string {
	var b strings.Builder
	b.WriteString("<html><body><ul>")
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		b.WriteString("<li>")
		b.WriteString(html.EscapeString(line))
		b.WriteString("</li>")
	}
	b.WriteString("</ul></body></html>")
	return b.String()
}
