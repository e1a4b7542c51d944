package importer

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Item is one bookmark parsed from a Netscape bookmark file.
type Item struct {
	Title string
	URL   string
}

// Parse reads Netscape bookmark HTML and returns the bookmarks it contains
// as a flat list. Folder structure in the file is ignored: imported
// bookmarks get classified and refiled under their tags anyway.
func Parse(r io.Reader) ([]Item, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	var items []Item

	var parse func(*html.Node)
	parse = func(n *html.Node) {
		if n.Type == html.ElementNode && strings.EqualFold(n.Data, "a") {
			href := getAttr(n, "href")
			if href == "" {
				// Skip anchors without URL
				return
			}

			title := getTextContent(n)
			if title == "" {
				title = href // fallback to URL as title
			}

			items = append(items, Item{Title: title, URL: href})
			return // Don't recurse into A
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			parse(c)
		}
	}

	parse(doc)
	return items, nil
}

// getTextContent returns the text content of a node.
func getTextContent(n *html.Node) string {
	var text strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			text.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(text.String())
}

// getAttr returns the value of an attribute, case-insensitive.
func getAttr(n *html.Node, key string) string {
	key = strings.ToLower(key)
	for _, attr := range n.Attr {
		if strings.ToLower(attr.Key) == key {
			return attr.Val
		}
	}
	return ""
}
