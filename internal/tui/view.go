package tui

import (
	"fmt"
	"strings"
)

// View implements tea.Model.
func (a App) View() string {
	var b strings.Builder

	switch a.mode {
	case modeConfirmResync:
		b.WriteString(a.styles.Title.Render("Resync from server?"))
		b.WriteString("\n\n")
		b.WriteString(a.styles.Item.Render("All tag folders are rebuilt from the server's bookmarks."))
		b.WriteString("\n")
		b.WriteString(a.styles.Item.Render("Local folder changes are lost."))
		b.WriteString("\n\n")
		b.WriteString(a.styles.Help.Render("y: resync  any other key: cancel"))

	case modeResyncing:
		b.WriteString(a.styles.Title.Render("Resyncing…"))
		b.WriteString("\n\n")
		b.WriteString(a.bar.View())
		b.WriteString("\n")
		if a.total > 0 {
			b.WriteString(a.styles.Count.Render(fmt.Sprintf("%d/%d bookmarks", a.processed, a.total)))
			b.WriteString("\n")
		}

	case modeEntries:
		b.WriteString(a.styles.Title.Render(fmt.Sprintf("%s (%d)", a.currentTag, len(a.entries))))
		b.WriteString("\n\n")
		a.viewEntries(&b)
		b.WriteString(a.styles.Help.Render("j/k: move  l/enter: open  y: yank URL  h: back  q: quit"))

	default:
		b.WriteString(a.styles.Title.Render(fmt.Sprintf("tagmark — %d bookmarks", a.index.Total())))
		b.WriteString("\n\n")
		a.viewTags(&b)
		b.WriteString(a.styles.Help.Render("j/k: move  l/enter: browse tag  r: resync  q: quit"))
		a.viewLastSaved(&b)
	}

	if a.status != "" {
		b.WriteString("\n")
		b.WriteString(a.styles.Status.Render(a.status))
	}

	return a.styles.App.Render(b.String())
}

func (a App) viewTags(b *strings.Builder) {
	if len(a.tags) == 0 {
		b.WriteString(a.styles.Empty.Render("No bookmarks yet. Add one with 'tagmark add <url>'."))
		b.WriteString("\n")
		return
	}

	for i, tag := range a.tags {
		style := a.styles.Item
		if i == a.cursor {
			style = a.styles.ItemSelected
		}
		line := style.Render(tag) + " " + a.styles.Count.Render(fmt.Sprintf("(%d)", len(a.index.Tags[tag])))
		b.WriteString(line)
		b.WriteString("\n")
	}
}

func (a App) viewEntries(b *strings.Builder) {
	if len(a.entries) == 0 {
		b.WriteString(a.styles.Empty.Render("No bookmarks under this tag."))
		b.WriteString("\n")
		return
	}

	for i, e := range a.entries {
		style := a.styles.Item
		if i == a.cursor {
			style = a.styles.ItemSelected
		}
		b.WriteString(style.Render(e.Title))
		b.WriteString("\n")
		b.WriteString("   " + a.styles.URL.Render(e.URL))
		b.WriteString("\n")
	}
}

func (a App) viewLastSaved(b *strings.Builder) {
	if a.last == nil {
		return
	}
	names := make([]string, len(a.last.Tags))
	for i, tag := range a.last.Tags {
		names[i] = tag.Name
	}
	b.WriteString(a.styles.LastSaved.Render(
		fmt.Sprintf("Last saved: %s (%s)", a.last.Title, strings.Join(names, ", "))))
}
