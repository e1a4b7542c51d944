package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tagmark/tagmark/internal/apiclient"
	"github.com/tagmark/tagmark/internal/bookmarktree"
	"github.com/tagmark/tagmark/internal/config"
	"github.com/tagmark/tagmark/internal/exporter"
	"github.com/tagmark/tagmark/internal/importer"
	"github.com/tagmark/tagmark/internal/organizer"
	"github.com/tagmark/tagmark/internal/picker"
	"github.com/tagmark/tagmark/internal/resync"
	"github.com/tagmark/tagmark/internal/search"
	"github.com/tagmark/tagmark/internal/tagindex"
	"github.com/tagmark/tagmark/internal/tui"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "help", "--help", "-h":
			printHelp()
			return
		case "add":
			if len(os.Args) < 3 {
				fmt.Fprintf(os.Stderr, "Usage: tagmark add <url> [title]\n")
				os.Exit(1)
			}
			title := ""
			if len(os.Args) >= 4 {
				title = strings.Join(os.Args[3:], " ")
			}
			runAdd(os.Args[2], title)
			return
		case "watch":
			runWatch()
			return
		case "sync":
			skipConfirm := len(os.Args) >= 3 && os.Args[2] == "--yes"
			runSync(skipConfirm)
			return
		case "import":
			if len(os.Args) < 3 {
				fmt.Fprintf(os.Stderr, "Usage: tagmark import <file.html>\n")
				os.Exit(1)
			}
			runImport(os.Args[2])
			return
		case "export":
			var outputPath string
			if len(os.Args) >= 3 {
				outputPath = os.Args[2]
			}
			runExport(outputPath)
			return
		default:
			// Treat as search query (join all remaining args)
			query := strings.Join(os.Args[1:], " ")
			runQuickSearch(query)
			return
		}
	}

	// No args - run full TUI
	runTUI()
}

func printHelp() {
	help := `tagmark - AI-tagged bookmark organizer

Usage:
  tagmark                 Open interactive TUI
  tagmark <query>         Quick search → select → open
  tagmark add <url>       Classify a URL and file it under its tag folder
  tagmark watch           Watch the bookmark tree and file new bookmarks
  tagmark sync [--yes]    Rebuild all tag folders from the server
  tagmark import <file>   Import and classify bookmarks from HTML
  tagmark export [path]   Export the bookmark tree to HTML
  tagmark help            Show this help

TUI Keybindings:
  j/k         Move down/up
  l/Enter     Browse tag / open bookmark
  h           Go back
  gg/G        Jump to top/bottom
  y           Copy URL to clipboard
  r           Resync from server
  q           Quit

Configuration:
  ~/.config/tagmark/config.json       Worker URL, API key, tag language
  ~/.config/tagmark/bookmarkdata.json Local tag index
  ~/.config/tagmark/tree.db           Local bookmark tree
`
	fmt.Print(help)
}

// session bundles everything the client subcommands share.
type session struct {
	cfg       *config.Config
	index     *tagindex.Index
	indexPath string
	lastPath  string
	tree      *bookmarktree.SQLiteTree
	api       *apiclient.Client
}

func newSession() (*session, error) {
	configPath, err := config.DefaultConfigPath()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	indexPath, err := tagindex.DefaultIndexPath()
	if err != nil {
		return nil, err
	}
	index, err := tagindex.Load(indexPath)
	if err != nil {
		return nil, fmt.Errorf("load tag index: %w", err)
	}

	lastPath, err := config.DefaultLastBookmarkPath()
	if err != nil {
		return nil, err
	}

	treePath, err := bookmarktree.DefaultTreePath()
	if err != nil {
		return nil, err
	}
	tree, err := bookmarktree.Open(treePath)
	if err != nil {
		return nil, fmt.Errorf("open bookmark tree: %w", err)
	}

	return &session{
		cfg:       cfg,
		index:     index,
		indexPath: indexPath,
		lastPath:  lastPath,
		tree:      tree,
		api:       apiclient.New(cfg.WorkerURL, cfg.APIKey),
	}, nil
}

func (s *session) Close() {
	_ = s.tree.Close()
}

func (s *session) organizer() *organizer.Organizer {
	return organizer.New(organizer.Params{
		Tree:      s.tree,
		API:       s.api,
		Config:    s.cfg,
		Index:     s.index,
		IndexPath: s.indexPath,
		LastPath:  s.lastPath,
	})
}

// rootID returns the fixed root container for tag folders.
func (s *session) rootID() (string, error) {
	roots, err := s.tree.Roots()
	if err != nil {
		return "", err
	}
	if len(roots) < 2 {
		return "", organizer.ErrRootNotFound
	}
	return roots[1].ID, nil
}

func (s *session) resyncEngine(progress resync.ProgressFunc) *resync.Engine {
	return resync.New(s.tree, s.api, s.index, s.indexPath, progress)
}

func mustSession() *session {
	s, err := newSession()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return s
}

// runTUI runs the full interactive TUI.
func runTUI() {
	s := mustSession()
	defer s.Close()

	last, err := config.LoadLastBookmark(s.lastPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading last bookmark: %v\n", err)
		os.Exit(1)
	}

	app := tui.NewApp(tui.AppParams{
		Index: s.index,
		Last:  last,
		Resync: func(progress resync.ProgressFunc) (*resync.Result, error) {
			return s.resyncEngine(progress).Run(context.Background())
		},
		Open: openURL,
	})

	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running app: %v\n", err)
		os.Exit(1)
	}
}

// runAdd classifies one URL and files it under its tag folder.
func runAdd(url, title string) {
	s := mustSession()
	defer s.Close()

	rootID, err := s.rootID()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	node, err := s.tree.Create(rootID, title, url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating bookmark: %v\n", err)
		os.Exit(1)
	}

	err = s.organizer().HandleEvent(context.Background(), bookmarktree.Event{
		Kind: bookmarktree.EventCreated,
		Node: node,
	})
	if err != nil {
		if errors.Is(err, organizer.ErrConfigMissing) {
			configPath, _ := config.DefaultConfigPath()
			fmt.Fprintf(os.Stderr, "Please set workerUrl and apiKey in %s\n", configPath)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}

	last, err := config.LoadLastBookmark(s.lastPath)
	if err != nil || last == nil {
		fmt.Println("Saved.")
		return
	}
	names := make([]string, len(last.Tags))
	for i, tag := range last.Tags {
		names[i] = tag.Name
	}
	fmt.Printf("Saved: %s\n  Tags: %s\n", last.Title, strings.Join(names, ", "))
}

// runWatch consumes live tree events and periodically rescans the root for
// bookmarks that still need filing.
func runWatch() {
	s := mustSession()
	defer s.Close()

	rootID, err := s.rootID()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	events := make(chan bookmarktree.Event, 64)
	go bookmarktree.Poll(ctx, s.tree, rootID, 30*time.Second, events)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-s.tree.Events():
				select {
				case events <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	fmt.Println("Watching for new bookmarks (Ctrl-C to stop)...")
	s.organizer().Run(ctx, events)
}

// runSync rebuilds all tag folders from the server.
func runSync(skipConfirm bool) {
	s := mustSession()
	defer s.Close()

	if !skipConfirm {
		fmt.Print("This deletes all tag folders and rebuilds them from the server. Continue? [y/N] ")
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
			fmt.Println("Cancelled.")
			return
		}
	}

	progress := func(processed, total int) {
		fmt.Printf("\rSyncing %d/%d bookmarks", processed, total)
	}

	result, err := s.resyncEngine(progress).Run(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
		os.Exit(1)
	}

	if result.NothingToSync {
		fmt.Println("Nothing to sync.")
		return
	}
	fmt.Printf("\nDone: %d synced", result.Success)
	if result.Failed > 0 {
		fmt.Printf(", %d failed", result.Failed)
	}
	fmt.Println()
}

// runQuickSearch performs a fuzzy search and opens the selected bookmark.
func runQuickSearch(query string) {
	s := mustSession()
	defer s.Close()

	results := search.Fuzzy(s.index, query)
	if len(results) == 0 {
		fmt.Printf("No bookmarks found for '%s'\n", query)
		os.Exit(0)
	}

	var selected *tagindex.Entry

	if len(results) == 1 {
		// Single result - select it directly
		selected = &results[0].Entry
		fmt.Printf("Opening: %s\n", selected.Title)
	} else {
		// Multiple results - show picker
		p := picker.New(results, query)
		program := tea.NewProgram(p)
		finalModel, err := program.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error running picker: %v\n", err)
			os.Exit(1)
		}

		finalPicker := finalModel.(picker.Picker)
		if finalPicker.Cancelled() {
			os.Exit(0)
		}
		selected = finalPicker.Selected()
	}

	if selected == nil {
		os.Exit(0)
	}
	_ = openURL(selected.URL)
}

// openURL opens a URL in the default browser.
func openURL(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	}
	if cmd == nil {
		return fmt.Errorf("no browser launcher for %s", runtime.GOOS)
	}
	return cmd.Start()
}

// runImport handles the import subcommand: every bookmark in the file is
// created at the root and handed to the organizer for classification.
func runImport(filePath string) {
	s := mustSession()
	defer s.Close()

	rootID, err := s.rootID()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	file, err := os.Open(filePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening file: %v\n", err)
		os.Exit(1)
	}
	defer file.Close()

	items, err := importer.Parse(file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing HTML: %v\n", err)
		os.Exit(1)
	}

	org := s.organizer()
	ctx := context.Background()
	filed, failed := 0, 0
	for _, item := range items {
		node, err := s.tree.Create(rootID, item.Title, item.URL)
		if err != nil {
			failed++
			continue
		}
		ev := bookmarktree.Event{Kind: bookmarktree.EventCreated, Node: node}
		if err := org.HandleEvent(ctx, ev); err != nil {
			if errors.Is(err, organizer.ErrConfigMissing) {
				fmt.Fprintln(os.Stderr, "Worker not configured; bookmarks imported without classification.")
				break
			}
			failed++
			continue
		}
		filed++
	}

	fmt.Printf("Imported %d bookmarks, %d classified", len(items), filed)
	if failed > 0 {
		fmt.Printf(" (%d failed)", failed)
	}
	fmt.Println()
}

// runExport handles the export subcommand.
func runExport(outputPath string) {
	s := mustSession()
	defer s.Close()

	if outputPath == "" {
		var err error
		outputPath, err = exporter.DefaultExportPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting default export path: %v\n", err)
			os.Exit(1)
		}
	}

	rootID, err := s.rootID()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	html, err := exporter.ExportHTML(s.tree, rootID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error exporting: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(outputPath, []byte(html), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Exported %d bookmarks to %s\n", s.index.Total(), outputPath)
}
