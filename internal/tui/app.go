package tui

import (
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tagmark/tagmark/internal/model"
	"github.com/tagmark/tagmark/internal/resync"
	"github.com/tagmark/tagmark/internal/tagindex"
)

// viewMode tracks which screen the App is on.
type viewMode int

const (
	modeTags viewMode = iota
	modeEntries
	modeConfirmResync
	modeResyncing
)

// ResyncFunc runs a full resync, reporting progress as it goes.
type ResyncFunc func(progress resync.ProgressFunc) (*resync.Result, error)

// Messages produced by the background resync run.
type (
	resyncProgressMsg struct{ processed, total int }
	resyncDoneMsg     struct {
		result *resync.Result
		err    error
	}
)

// App is the main bubbletea model: a two-level browser over the local tag
// index (tags by popularity, then bookmarks per tag), with a guarded
// resync action.
type App struct {
	index     *tagindex.Index
	last      *model.LastBookmark
	runResync ResyncFunc
	yank      func(string) error
	open      func(string) error

	keys   KeyMap
	styles Styles

	mode       viewMode
	tags       []string
	cursor     int
	currentTag string
	entries    []tagindex.Entry

	// For gg command
	lastKeyWasG bool

	status string

	bar       progress.Model
	processed int
	total     int
	msgCh     chan tea.Msg

	// Window dimensions
	width  int
	height int
}

// AppParams holds parameters for creating a new App.
type AppParams struct {
	Index  *tagindex.Index
	Last   *model.LastBookmark // optional
	Resync ResyncFunc
	Open   func(string) error // optional, opens a URL in the browser
	Yank   func(string) error // optional, defaults to the system clipboard
	Keys   *KeyMap            // optional, uses default if nil
	Styles *Styles            // optional, uses default if nil
}

// NewApp creates a new App with the given parameters.
func NewApp(params AppParams) App {
	keys := DefaultKeyMap()
	if params.Keys != nil {
		keys = *params.Keys
	}

	styles := DefaultStyles()
	if params.Styles != nil {
		styles = *params.Styles
	}

	yank := params.Yank
	if yank == nil {
		yank = clipboard.WriteAll
	}
	open := params.Open
	if open == nil {
		open = func(string) error { return nil }
	}

	app := App{
		index:     params.Index,
		last:      params.Last,
		runResync: params.Resync,
		yank:      yank,
		open:      open,
		keys:      keys,
		styles:    styles,
		bar:       progress.New(progress.WithDefaultGradient()),
		width:     80,
		height:    24,
	}

	app.refreshTags()
	return app
}

// refreshTags rebuilds the tag list from the index.
func (a *App) refreshTags() {
	a.tags = a.index.TagsByCount()
	if a.cursor >= len(a.tags) {
		a.cursor = 0
	}
}

// Cursor returns the current cursor position.
func (a App) Cursor() int {
	return a.cursor
}

// Tags returns the tag list in display order.
func (a App) Tags() []string {
	return a.tags
}

// CurrentTag returns the tag whose entries are being browsed, or "".
func (a App) CurrentTag() string {
	return a.currentTag
}

// Entries returns the entries of the current tag.
func (a App) Entries() []tagindex.Entry {
	return a.entries
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.bar.Width = msg.Width - 8
		return a, nil

	case resyncProgressMsg:
		a.processed = msg.processed
		a.total = msg.total
		var pct float64
		if msg.total > 0 {
			pct = float64(msg.processed) / float64(msg.total)
		}
		return a, tea.Batch(a.bar.SetPercent(pct), waitForResync(a.msgCh))

	case resyncDoneMsg:
		return a.finishResync(msg), nil

	case progress.FrameMsg:
		barModel, cmd := a.bar.Update(msg)
		a.bar = barModel.(progress.Model)
		return a, cmd

	case tea.KeyMsg:
		switch a.mode {
		case modeConfirmResync:
			return a.updateConfirm(msg)
		case modeResyncing:
			// Only quit is honored while a resync runs.
			if key.Matches(msg, a.keys.Quit) {
				return a, tea.Quit
			}
			return a, nil
		default:
			return a.updateBrowse(msg)
		}
	}

	return a, nil
}

// updateBrowse handles keys on the tag and entry screens.
func (a App) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Handle gg sequence
	if key.Matches(msg, a.keys.Top) {
		if a.lastKeyWasG {
			a.cursor = 0
			a.lastKeyWasG = false
		} else {
			a.lastKeyWasG = true
		}
		return a, nil
	}
	a.lastKeyWasG = false

	switch {
	case key.Matches(msg, a.keys.Quit):
		return a, tea.Quit

	case key.Matches(msg, a.keys.Down):
		if a.cursor < a.listLen()-1 {
			a.cursor++
		}

	case key.Matches(msg, a.keys.Up):
		if a.cursor > 0 {
			a.cursor--
		}

	case key.Matches(msg, a.keys.Bottom):
		if n := a.listLen(); n > 0 {
			a.cursor = n - 1
		}

	case key.Matches(msg, a.keys.Back):
		if a.mode == modeEntries {
			a.mode = modeTags
			a.cursor = a.tagCursor(a.currentTag)
			a.currentTag = ""
			a.entries = nil
			a.status = ""
		}

	case key.Matches(msg, a.keys.Open):
		if a.mode == modeTags {
			if a.cursor < len(a.tags) {
				a.currentTag = a.tags[a.cursor]
				a.entries = a.index.Tags[a.currentTag]
				a.mode = modeEntries
				a.cursor = 0
			}
		} else if a.cursor < len(a.entries) {
			if err := a.open(a.entries[a.cursor].URL); err != nil {
				a.status = "open failed: " + err.Error()
			} else {
				a.status = "opened " + a.entries[a.cursor].URL
			}
		}

	case key.Matches(msg, a.keys.YankURL):
		if a.mode == modeEntries && a.cursor < len(a.entries) {
			if err := a.yank(a.entries[a.cursor].URL); err != nil {
				a.status = "yank failed: " + err.Error()
			} else {
				a.status = "URL copied"
			}
		}

	case key.Matches(msg, a.keys.Resync):
		if a.runResync != nil {
			a.mode = modeConfirmResync
		}
	}

	return a, nil
}

// updateConfirm handles the resync confirmation prompt.
func (a App) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y", "enter":
		return a.startResync()
	case "ctrl+c":
		return a, tea.Quit
	default:
		a.mode = modeTags
		a.status = "resync cancelled"
		return a, nil
	}
}

// startResync kicks off the resync in the background and begins draining
// its messages.
func (a App) startResync() (tea.Model, tea.Cmd) {
	ch := make(chan tea.Msg, 16)
	a.msgCh = ch
	a.mode = modeResyncing
	a.processed = 0
	a.total = 0
	a.status = ""

	run := a.runResync
	go func() {
		result, err := run(func(processed, total int) {
			ch <- resyncProgressMsg{processed: processed, total: total}
		})
		ch <- resyncDoneMsg{result: result, err: err}
		close(ch)
	}()

	return a, tea.Batch(a.bar.SetPercent(0), waitForResync(ch))
}

func waitForResync(ch chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-ch
	}
}

// finishResync returns to the tag screen with a result summary. The index
// was rewritten in place by the engine, so the tag list is rebuilt.
func (a App) finishResync(msg resyncDoneMsg) App {
	a.mode = modeTags
	a.msgCh = nil
	a.cursor = 0
	a.refreshTags()

	switch {
	case msg.err != nil:
		a.status = "resync failed: " + msg.err.Error()
	case msg.result.NothingToSync:
		a.status = "nothing to sync"
	case msg.result.Failed > 0:
		a.status = fmt.Sprintf("resynced %d bookmarks (%d failed)", msg.result.Success, msg.result.Failed)
	default:
		a.status = fmt.Sprintf("resynced %d bookmarks", msg.result.Success)
	}
	return a
}

func (a App) listLen() int {
	if a.mode == modeEntries {
		return len(a.entries)
	}
	return len(a.tags)
}

// tagCursor returns the position of the tag in the tag list, or 0.
func (a App) tagCursor(tag string) int {
	for i, t := range a.tags {
		if t == tag {
			return i
		}
	}
	return 0
}
