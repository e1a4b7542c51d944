package exporter

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tagmark/tagmark/internal/bookmarktree"
)

// DefaultExportPath returns the default export file path.
// Format: ~/Downloads/bookmarks-export-YYYY-MM-DD.html
func DefaultExportPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	filename := fmt.Sprintf("bookmarks-export-%s.html", time.Now().Format("2006-01-02"))
	return filepath.Join(home, "Downloads", filename), nil
}

// ExportHTML renders the subtree under rootID to Netscape bookmark HTML,
// tag folders and loose bookmarks alike.
func ExportHTML(t bookmarktree.Tree, rootID string) (string, error) {
	var b strings.Builder

	// Header
	b.WriteString("<!DOCTYPE NETSCAPE-Bookmark-file-1>\n")
	b.WriteString("<META HTTP-EQUIV=\"Content-Type\" CONTENT=\"text/html; charset=UTF-8\">\n")
	b.WriteString("<TITLE>Bookmarks</TITLE>\n")
	b.WriteString("<H1>Bookmarks</H1>\n")
	b.WriteString("<DL><p>\n")

	if err := writeItems(&b, t, rootID, 1); err != nil {
		return "", err
	}

	// Footer
	b.WriteString("</DL><p>\n")

	return b.String(), nil
}

// writeItems recursively writes folders and bookmarks for a given parent.
func writeItems(b *strings.Builder, t bookmarktree.Tree, parentID string, indent int) error {
	prefix := strings.Repeat("    ", indent)

	children, err := t.Children(parentID)
	if err != nil {
		return err
	}

	for _, child := range children {
		if child.IsFolder() {
			fmt.Fprintf(b, "%s<DT><H3>%s</H3>\n", prefix, html.EscapeString(child.Title))
			fmt.Fprintf(b, "%s<DL><p>\n", prefix)

			if err := writeItems(b, t, child.ID, indent+1); err != nil {
				return err
			}

			fmt.Fprintf(b, "%s</DL><p>\n", prefix)
			continue
		}

		fmt.Fprintf(b,
			"%s<DT><A HREF=\"%s\">%s</A>\n",
			prefix,
			html.EscapeString(child.URL),
			html.EscapeString(child.Title),
		)
	}
	return nil
}
