package analyzer

import (
	"strings"

	"golang.org/x/net/html"
)

// StripHTML reduces an HTML email body to its visible text. Script and
// style contents are dropped entirely.
func StripHTML(raw string) string {
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return raw
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				if b.Len() > 0 {
					b.WriteString(" ")
				}
				b.WriteString(text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return b.String()
}

// BodyText returns the best plain text for an email: the plain body if
// present, otherwise the stripped HTML body, otherwise the snippet.
func BodyText(plain, htmlBody, snippet string) string {
	if strings.TrimSpace(plain) != "" {
		return plain
	}
	if strings.TrimSpace(htmlBody) != "" {
		return StripHTML(htmlBody)
	}
	return snippet
}
