package fetcher

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/tagmark/tagmark/internal/model"
)

const (
	fetchTimeout     = 5 * time.Second
	userAgent        = "Mozilla/5.0 (compatible; tagmark/1.0)"
	maxExtractedText = 500
)

// Fetcher retrieves best-effort page metadata for classification.
type Fetcher struct {
	client *http.Client
}

// New creates a Fetcher with its own HTTP client.
func New() *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: fetchTimeout},
	}
}

// Fetch loads the page at url and extracts its metadata. It never fails:
// network errors, timeouts, and non-HTML responses all degrade to a partial
// Metadata carrying at least the URL, so classification can still proceed.
func (f *Fetcher) Fetch(ctx context.Context, url string) model.Metadata {
	meta := model.Metadata{URL: url}

	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return meta
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return meta
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "text/html") {
		return meta
	}

	// Parse errors leave whatever was extracted so far.
	_ = parseMetadata(resp.Body, &meta)
	return meta
}

// parseMetadata fills meta from an HTML document: title, description and
// OpenGraph meta tags, plus up to maxExtractedText characters of body text.
func parseMetadata(r io.Reader, meta *model.Metadata) error {
	doc, err := html.Parse(r)
	if err != nil {
		return err
	}

	var body *html.Node

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch strings.ToLower(n.Data) {
			case "title":
				if meta.Title == "" {
					meta.Title = strings.TrimSpace(textContent(n))
				}
				return
			case "meta":
				applyMetaTag(n, meta)
			case "body":
				if body == nil {
					body = n
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if body != nil {
		var sb strings.Builder
		collectText(body, &sb)
		text := strings.Join(strings.Fields(sb.String()), " ")
		runes := []rune(text)
		if len(runes) > maxExtractedText {
			text = string(runes[:maxExtractedText])
		}
		meta.ExtractedText = text
	}

	return nil
}

// applyMetaTag maps a <meta> element onto the metadata fields. Both
// name= and property= attributes are honored.
func applyMetaTag(n *html.Node, meta *model.Metadata) {
	key := getAttr(n, "name")
	if key == "" {
		key = getAttr(n, "property")
	}
	content := getAttr(n, "content")
	if content == "" {
		return
	}

	switch key {
	case "description":
		if meta.Description == "" {
			meta.Description = content
		}
	case "og:title":
		if meta.OGTitle == "" {
			meta.OGTitle = content
		}
	case "og:description":
		if meta.OGDescription == "" {
			meta.OGDescription = content
		}
	case "og:type":
		if meta.OGType == "" {
			meta.OGType = content
		}
	}
}

// collectText accumulates text nodes, skipping script and style subtrees.
func collectText(n *html.Node, sb *strings.Builder) {
	if n.Type == html.ElementNode {
		switch strings.ToLower(n.Data) {
		case "script", "style", "noscript":
			return
		}
	}
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
		sb.WriteString(" ")
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, sb)
	}
}

// textContent extracts all text content from a node.
func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(textContent(c))
	}
	return sb.String()
}

// getAttr returns the value of the named attribute, or empty string.
func getAttr(n *html.Node, name string) string {
	for _, attr := range n.Attr {
		if strings.ToLower(attr.Key) == name {
			return attr.Val
		}
	}
	return ""
}
