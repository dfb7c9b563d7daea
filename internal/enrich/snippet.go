package enrich

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

const (
	// MaxSnippetRunes caps an extracted snippet
	MaxSnippetRunes = 500
	// minParagraphRunes is the shortest <p> accepted as a snippet
	minParagraphRunes = 40
)

// ExtractSnippet picks a short description of an article page:
// meta description, then og:description, then the first long paragraph
func ExtractSnippet(htmlContent string) string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return ""
	}

	var metaDesc, ogDesc, paragraph string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				return
			case "meta":
				name := strings.ToLower(attr(n, "name"))
				prop := strings.ToLower(attr(n, "property"))
				content := collapse(attr(n, "content"))
				if name == "description" && metaDesc == "" {
					metaDesc = content
				}
				if prop == "og:description" && ogDesc == "" {
					ogDesc = content
				}
			case "p":
				if paragraph == "" {
					if text := collapse(textOf(n)); utf8.RuneCountInString(text) > minParagraphRunes {
						paragraph = text
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	for _, s := range []string{metaDesc, ogDesc, paragraph} {
		if s != "" {
			return truncateRunes(s, MaxSnippetRunes)
		}
	}
	return ""
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:n]))
}
