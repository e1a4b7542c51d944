package organizer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tagmark/tagmark/internal/bookmarktree"
	"github.com/tagmark/tagmark/internal/config"
	"github.com/tagmark/tagmark/internal/model"
	"github.com/tagmark/tagmark/internal/tagindex"
)

var (
	// ErrConfigMissing halts event processing until the user fills in the
	// worker URL and API key.
	ErrConfigMissing = errors.New("worker URL and API key are not configured")
	// ErrRootNotFound means the fixed root container is absent.
	ErrRootNotFound = errors.New("root bookmark folder not found")
)

// internalPrefixes are URL schemes that never get classified.
var internalPrefixes = []string{"chrome://", "about:", "file://", "javascript:", "data:"}

// IsInternalURL reports whether the URL uses an internal scheme.
func IsInternalURL(url string) bool {
	for _, prefix := range internalPrefixes {
		if strings.HasPrefix(url, prefix) {
			return true
		}
	}
	return false
}

// Classifier is the remote classify-and-store collaborator.
type Classifier interface {
	Save(ctx context.Context, url, title, language string) (*model.BookmarkResponse, error)
}

// Notifier surfaces user-visible messages.
type Notifier interface {
	Notify(title, message string)
}

// LogNotifier writes notifications to the standard logger.
type LogNotifier struct{}

func (LogNotifier) Notify(title, message string) {
	log.Printf("%s: %s", title, message)
}

// Organizer reacts to bookmark lifecycle events within its root container:
// it has each eligible bookmark classified remotely, files it into the
// folder named after its primary tag, and mirrors the result into the local
// tag index. All mutable state is owned here; nothing is package-global.
type Organizer struct {
	tree      bookmarktree.Tree
	api       Classifier
	cfg       *config.Config
	index     *tagindex.Index
	indexPath string
	lastPath  string
	notifier  Notifier

	mu         sync.Mutex
	folderIDs  map[string]string
	rootID     string
	warnedOnce bool

	// flight coalesces concurrent get-or-create calls for the same tag
	// name, so two in-flight classifications can't both create the folder.
	flight singleflight.Group
}

// Params holds the collaborators for an Organizer.
type Params struct {
	Tree      bookmarktree.Tree
	API       Classifier
	Config    *config.Config
	Index     *tagindex.Index
	IndexPath string
	LastPath  string
	Notifier  Notifier
}

// New creates an Organizer.
func New(params Params) *Organizer {
	notifier := params.Notifier
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &Organizer{
		tree:      params.Tree,
		api:       params.API,
		cfg:       params.Config,
		index:     params.Index,
		indexPath: params.IndexPath,
		lastPath:  params.LastPath,
		notifier:  notifier,
		folderIDs: map[string]string{},
	}
}

// Eligible is the gating predicate for creation and move events: only
// bookmarks (not folders) with a non-internal URL sitting directly under
// the root container are classified. Bookmarks inside tag folders are
// excluded, which keeps a just-filed bookmark's move event from triggering
// another classification.
func (o *Organizer) Eligible(n bookmarktree.Node) (bool, error) {
	if n.IsFolder() {
		return false, nil
	}
	if IsInternalURL(n.URL) {
		return false, nil
	}

	rootID, err := o.rootFolder()
	if err != nil {
		return false, err
	}
	return n.ParentID == rootID, nil
}

// HandleEvent runs the classify, persist, relocate, notify pipeline for one
// event. Errors are returned to the caller; the triggering tree mutation is
// never rolled back, so a failed pipeline leaves the bookmark unclassified
// at its original location.
func (o *Organizer) HandleEvent(ctx context.Context, ev bookmarktree.Event) error {
	ok, err := o.Eligible(ev.Node)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	if !o.cfg.Configured() {
		o.warnConfigMissing()
		return ErrConfigMissing
	}

	data, err := o.api.Save(ctx, ev.Node.URL, ev.Node.Title, o.cfg.Language)
	if err != nil {
		return fmt.Errorf("classify %s: %w", ev.Node.URL, err)
	}

	if err := o.fileUnder(ev.Node.ID, data); err != nil {
		return fmt.Errorf("organize %s: %w", ev.Node.URL, err)
	}

	if err := config.SaveLastBookmark(o.lastPath, &model.LastBookmark{
		Title:     data.Title,
		URL:       data.URL,
		Tags:      data.Tags,
		Timestamp: time.Now(),
	}); err != nil {
		return fmt.Errorf("record last bookmark: %w", err)
	}

	o.index.Merge(*data)
	if err := o.index.Save(o.indexPath); err != nil {
		return fmt.Errorf("save tag index: %w", err)
	}

	names := make([]string, len(data.Tags))
	for i, tag := range data.Tags {
		names[i] = tag.Name
	}
	o.notifier.Notify("Bookmark Saved", "Tags: "+strings.Join(names, ", "))

	return nil
}

// Run consumes tree events until ctx is done. Pipeline failures are logged
// and dropped; the next natural trigger retries.
func (o *Organizer) Run(ctx context.Context, events <-chan bookmarktree.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			if err := o.HandleEvent(ctx, ev); err != nil && !errors.Is(err, ErrConfigMissing) {
				log.Printf("failed to process bookmark: %v", err)
			}
		}
	}
}

// fileUnder moves the bookmark into the folder for its primary tag.
func (o *Organizer) fileUnder(bookmarkID string, data *model.BookmarkResponse) error {
	folderID, err := o.tagFolder(data.PrimaryTag)
	if err != nil {
		return err
	}
	_, err = o.tree.Move(bookmarkID, folderID)
	return err
}

// rootFolder resolves the fixed root container (the second top-level
// container, "Other Bookmarks"). The ID is memoized for the process
// lifetime.
func (o *Organizer) rootFolder() (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.rootID != "" {
		return o.rootID, nil
	}

	roots, err := o.tree.Roots()
	if err != nil {
		return "", err
	}
	if len(roots) < 2 {
		return "", ErrRootNotFound
	}

	o.rootID = roots[1].ID
	return o.rootID, nil
}

// tagFolder resolves the folder for a tag name: cache hit, then a scan of
// the root's direct children by exact name match among folders, then
// creation. Concurrent callers for the same tag await a single attempt.
func (o *Organizer) tagFolder(tag string) (string, error) {
	o.mu.Lock()
	if id, ok := o.folderIDs[tag]; ok {
		o.mu.Unlock()
		return id, nil
	}
	o.mu.Unlock()

	v, err, _ := o.flight.Do(tag, func() (any, error) {
		// A concurrent caller may have filled the cache while we waited.
		o.mu.Lock()
		if id, ok := o.folderIDs[tag]; ok {
			o.mu.Unlock()
			return id, nil
		}
		o.mu.Unlock()

		rootID, err := o.rootFolder()
		if err != nil {
			return "", err
		}

		children, err := o.tree.Children(rootID)
		if err != nil {
			return "", err
		}
		for _, child := range children {
			if child.IsFolder() && child.Title == tag {
				o.cacheFolder(tag, child.ID)
				return child.ID, nil
			}
		}

		folder, err := o.tree.Create(rootID, tag, "")
		if err != nil {
			return "", err
		}
		o.cacheFolder(tag, folder.ID)
		return folder.ID, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (o *Organizer) cacheFolder(tag, id string) {
	o.mu.Lock()
	o.folderIDs[tag] = id
	o.mu.Unlock()
}

// warnConfigMissing notifies once per process lifetime.
func (o *Organizer) warnConfigMissing() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.warnedOnce {
		return
	}
	o.warnedOnce = true
	o.notifier.Notify("Configuration Required",
		"Please set the worker URL and API key in "+configHint())
}

func configHint() string {
	path, err := config.DefaultConfigPath()
	if err != nil {
		return "the tagmark config file"
	}
	return path
}
