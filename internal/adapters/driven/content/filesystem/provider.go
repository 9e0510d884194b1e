package filesystem

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/docmodel/internal/adapters/driven/content/textcodec"
	"github.com/custodia-labs/docmodel/internal/core/domain"
	"github.com/custodia-labs/docmodel/internal/core/ports/driven"
)

// Scheme is the URI scheme served by this provider.
const Scheme = "file"

// Ensure Provider implements the interfaces.
var (
	_ driven.ContentProvider      = (*Provider)(nil)
	_ driven.DocumentPersister    = (*Provider)(nil)
	_ driven.ReadonlyReporter     = (*Provider)(nil)
	_ driven.LanguageDetector     = (*Provider)(nil)
	_ driven.LineEndingDetector   = (*Provider)(nil)
	_ driven.ContentFingerprinter = (*Provider)(nil)
	_ driven.ChangeNotifier       = (*Provider)(nil)
)

// Provider serves local files.
type Provider struct {
	mu sync.Mutex
	// tracked maps absolute paths of loaded files to their id and the
	// encoding they were last read with.
	tracked  map[string]trackedFile
	watchers map[*fsnotify.Watcher]struct{}
}

type trackedFile struct {
	id       domain.ResourceID
	encoding string
}

// New creates a filesystem content provider.
func New() *Provider {
	return &Provider{
		tracked:  make(map[string]trackedFile),
		watchers: make(map[*fsnotify.Watcher]struct{}),
	}
}

// ResourceID returns the canonical "file://" id for path.
func ResourceID(path string) (domain.ResourceID, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", path, err)
	}
	return domain.ResourceID(Scheme + "://" + filepath.ToSlash(abs)), nil
}

// Name returns "filesystem".
func (p *Provider) Name() string {
	return "filesystem"
}

// Handles returns true for "file://" ids and bare paths.
func (p *Provider) Handles(id domain.ResourceID) bool {
	return id.Scheme() == Scheme
}

// LoadContent reads and decodes the file. The file is tracked for change
// notifications from then on.
func (p *Provider) LoadContent(_ context.Context, id domain.ResourceID, encoding string) (string, error) {
	path, err := pathOf(id)
	if err != nil {
		return "", err
	}
	c, err := textcodec.Lookup(encoding)
	if err != nil {
		return "", err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", domain.ErrNotFound, path)
		}
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	content, err := c.Decode(raw)
	if err != nil {
		return "", err
	}

	p.track(path, trackedFile{id: id, encoding: c.Name()})
	return content, nil
}

// SaveDocument writes req.Content, refusing with domain.ErrSaveConflict when
// the file no longer holds req.BaseContent unless req.Overwrite is set.
// A file that does not exist yet counts as empty.
func (p *Provider) SaveDocument(_ context.Context, req domain.SaveRequest) error {
	path, err := pathOf(req.ID)
	if err != nil {
		return err
	}
	c, err := textcodec.Lookup(req.Encoding)
	if err != nil {
		return err
	}

	if !req.Overwrite {
		current, err := readDecoded(path, c)
		if err != nil {
			return err
		}
		if current != req.BaseContent {
			return fmt.Errorf("%w: %s", domain.ErrSaveConflict, path)
		}
	}

	data, err := c.Encode(req.Content)
	if err != nil {
		return err
	}
	if err := writeAtomic(path, data); err != nil {
		return err
	}

	p.track(path, trackedFile{id: req.ID, encoding: c.Name()})
	return nil
}

// IsReadonly reports whether the owner write bit is clear.
func (p *Provider) IsReadonly(_ context.Context, id domain.ResourceID) (bool, error) {
	path, err := pathOf(id)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	return info.Mode().Perm()&0200 == 0, nil
}

// PreferredLanguage guesses a language id from the file name.
func (p *Provider) PreferredLanguage(_ context.Context, id domain.ResourceID) (string, error) {
	return languageFor(id.Path()), nil
}

// PreferredLineEnding returns the first line ending found in the file,
// or "" if it has none.
func (p *Provider) PreferredLineEnding(_ context.Context, id domain.ResourceID) (string, error) {
	path, err := pathOf(id)
	if err != nil {
		return "", err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	i := bytes.IndexByte(raw, '\n')
	switch {
	case i < 0:
		return "", nil
	case i > 0 && raw[i-1] == '\r':
		return domain.LineEndingCRLF, nil
	default:
		return domain.LineEndingLF, nil
	}
}

// ContentFingerprint returns the digest of the file decoded with the
// encoding it was last loaded with.
func (p *Provider) ContentFingerprint(_ context.Context, id domain.ResourceID) (domain.Digest, error) {
	path, err := pathOf(id)
	if err != nil {
		return "", err
	}

	p.mu.Lock()
	encoding := p.tracked[path].encoding
	p.mu.Unlock()

	c, err := textcodec.Lookup(encoding)
	if err != nil {
		return "", err
	}
	content, err := readDecoded(path, c)
	if err != nil {
		return "", err
	}
	return domain.Fingerprint(content), nil
}

// Subscribe watches the directories of every tracked file and emits the ids
// of tracked files that were written or recreated. Files loaded later are
// added to the watch. The channel closes when ctx is done.
func (p *Provider) Subscribe(ctx context.Context) (<-chan domain.ResourceID, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	p.mu.Lock()
	for dir := range p.dirsLocked() {
		if err := w.Add(dir); err != nil {
			p.mu.Unlock()
			_ = w.Close()
			return nil, fmt.Errorf("watching %s: %w", dir, err)
		}
	}
	p.watchers[w] = struct{}{}
	p.mu.Unlock()

	out := make(chan domain.ResourceID)
	go p.watchLoop(ctx, w, out)
	return out, nil
}

func (p *Provider) watchLoop(ctx context.Context, w *fsnotify.Watcher, out chan<- domain.ResourceID) {
	defer close(out)
	defer func() {
		p.mu.Lock()
		delete(p.watchers, w)
		p.mu.Unlock()
		_ = w.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			id, changed := p.handleFsEvent(event)
			if !changed {
				continue
			}
			select {
			case out <- id:
			case <-ctx.Done():
				return
			}
		case _, ok := <-w.Errors:
			if !ok {
				return
			}
		}
	}
}

// handleFsEvent maps a watcher event to the id of a tracked file whose
// content may have changed.
func (p *Provider) handleFsEvent(event fsnotify.Event) (domain.ResourceID, bool) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return "", false
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	f, ok := p.tracked[filepath.Clean(event.Name)]
	if !ok {
		return "", false
	}
	return f.id, true
}

// Untrack stops change notifications for id.
func (p *Provider) Untrack(id domain.ResourceID) {
	path, err := pathOf(id)
	if err != nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.tracked, path)
}

func (p *Provider) track(path string, f trackedFile) {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, known := p.dirsLocked()[filepath.Dir(path)]
	p.tracked[path] = f
	if known {
		return
	}
	for w := range p.watchers {
		_ = w.Add(filepath.Dir(path)) //nolint:errcheck // the file is still served, only unwatched
	}
}

func (p *Provider) dirsLocked() map[string]struct{} {
	dirs := make(map[string]struct{}, len(p.tracked))
	for path := range p.tracked {
		dirs[filepath.Dir(path)] = struct{}{}
	}
	return dirs
}

func pathOf(id domain.ResourceID) (string, error) {
	if id.Scheme() != Scheme {
		return "", fmt.Errorf("%w: %s is not a file resource", domain.ErrInvalidInput, id)
	}
	path := filepath.FromSlash(id.Path())
	if path == "" {
		return "", fmt.Errorf("%w: empty path", domain.ErrInvalidInput)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", path, err)
	}
	return abs, nil
}

func readDecoded(path string, c textcodec.Codec) (string, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return c.Decode(raw)
}

// writeAtomic replaces path through a temp file in the same directory,
// keeping the existing file mode.
func writeAtomic(path string, data []byte) error {
	mode := os.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

var languages = map[string]string{
	".go":   "go",
	".md":   "markdown",
	".txt":  "plaintext",
	".json": "json",
	".yaml": "yaml",
	".yml":  "yaml",
	".toml": "toml",
	".py":   "python",
	".js":   "javascript",
	".ts":   "typescript",
	".rs":   "rust",
	".sh":   "shellscript",
	".sql":  "sql",
	".html": "html",
	".css":  "css",
}

// languageFor detects a language id from a file name, "" if unknown.
func languageFor(path string) string {
	base := strings.ToLower(filepath.Base(path))
	switch base {
	case "makefile":
		return "makefile"
	case "dockerfile":
		return "dockerfile"
	}
	return languages[filepath.Ext(base)]
}
