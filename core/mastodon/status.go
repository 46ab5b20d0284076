package mastodon

import (
	"strings"

	"golang.org/x/net/html"
)

// Status is a status as returned by the server.
type Status struct {
	ID               string            `json:"id"`
	Content          string            `json:"content"`
	MediaAttachments []MediaAttachment `json:"media_attachments"`
}

// MediaAttachment is one attachment of a status or a standalone upload.
type MediaAttachment struct {
	ID string `json:"id"`
}

// ContentText flattens the status's rendered HTML content back to plain text:
// paragraphs are joined by blank lines and character references are
// unescaped. The server splits long links across decorated spans, so plain
// text extraction reassembles the full URL.
func (s *Status) ContentText() string {
	doc, err := html.Parse(strings.NewReader(s.Content))
	if err != nil {
		return s.Content
	}

	body := findElement(doc, "body")
	if body == nil {
		return s.Content
	}

	var blocks []string
	for child := body.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.ElementNode {
			blocks = append(blocks, textContent(child))
		}
	}
	if len(blocks) == 0 {
		// Bare text content without block elements.
		return textContent(body)
	}
	return strings.Join(blocks, "\n\n")
}

func findElement(node *html.Node, name string) *html.Node {
	if node.Type == html.ElementNode && node.Data == name {
		return node
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if found := findElement(child, name); found != nil {
			return found
		}
	}
	return nil
}

func textContent(node *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(node)
	return b.String()
}
