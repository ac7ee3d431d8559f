// Package watch analyses contracts dropped into a folder.
// It is a driving adapter: every file is handed to the pipeline service.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/contract-agent/internal/core/domain"
	"github.com/custodia-labs/contract-agent/internal/core/ports/driven"
	"github.com/custodia-labs/contract-agent/internal/core/ports/driving"
	"github.com/custodia-labs/contract-agent/internal/logger"
)

// DefaultDebounce is how long a file must stay quiet before it is analysed.
const DefaultDebounce = 2 * time.Second

// MetaPath is the metadata key holding the watched file's path.
const MetaPath = "path"

var (
	// ErrMissingPipelineService is returned when no pipeline is provided.
	ErrMissingPipelineService = errors.New("watch: pipeline service is required")

	// ErrClosed is returned by Watch after Close.
	ErrClosed = errors.New("watch: watcher is closed")
)

// contractExtensions lists the file types treated as contracts.
var contractExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".htm":      true,
	".html":     true,
	".docx":     true,
}

// Event reports the analysis of one file.
type Event struct {
	Path   string
	Title  string
	Result *domain.ProcessingResult
	Err    error
}

// Watcher analyses contract files created or modified in a directory.
// Files are analysed one at a time in the order they settle.
type Watcher struct {
	pipeline   driving.PipelineService
	normaliser driven.NormaliserRegistry
	dir        string
	debounce   time.Duration

	mu     sync.Mutex
	closed bool
}

// New creates a watcher for dir. A non-positive debounce uses DefaultDebounce.
func New(pipeline driving.PipelineService, dir string, debounce time.Duration) (*Watcher, error) {
	if pipeline == nil {
		return nil, ErrMissingPipelineService
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{pipeline: pipeline, dir: dir, debounce: debounce}, nil
}

// WithNormaliser sets how files are converted to text. Without one,
// files are read as UTF-8 text.
func (w *Watcher) WithNormaliser(n driven.NormaliserRegistry) *Watcher {
	w.normaliser = n
	return w
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string {
	return w.dir
}

// Scan analyses the contract files already in the directory, in name order.
func (w *Watcher) Scan(ctx context.Context) ([]Event, error) {
	if err := w.checkRoot(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", w.dir, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.Type().IsRegular() && isContractFile(entry.Name()) {
			paths = append(paths, filepath.Join(w.dir, entry.Name()))
		}
	}
	sort.Strings(paths)

	events := make([]Event, 0, len(paths))
	for _, path := range paths {
		if ctx.Err() != nil {
			return events, ctx.Err()
		}
		events = append(events, w.process(ctx, path))
	}
	return events, nil
}

// Watch analyses contract files as they are written. Writes to the same file
// are coalesced until it has been quiet for the debounce period. The channel
// is closed when ctx is cancelled.
func (w *Watcher) Watch(ctx context.Context) (<-chan Event, error) {
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	if err := w.checkRoot(); err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := fsw.Add(w.dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watching %s: %w", w.dir, err)
	}

	out := make(chan Event)
	go w.loop(ctx, fsw, out)
	return out, nil
}

// Close stops future calls to Watch.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher, out chan<- Event) {
	settle := newDebouncer(w.debounce)

	defer func() {
		settle.stop()
		_ = fsw.Close()
		close(out)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			if path, ok := w.handleFsEvent(ev); ok {
				settle.touch(path)
			}

		case f := <-settle.ready:
			if !settle.take(f) {
				continue
			}
			event := w.process(ctx, f.path)
			select {
			case out <- event:
			case <-ctx.Done():
				return
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("watch %s: %v", w.dir, err)
		}
	}
}

// firing is sent on debouncer.ready when a path's timer expires.
type firing struct {
	path string
	gen  uint64
}

// debouncer coalesces touches of a path until it has been quiet for delay.
// Only the timer from the latest touch can settle a path; firings from
// earlier timers are discarded by take. It is owned by a single goroutine.
type debouncer struct {
	delay   time.Duration
	ready   chan firing
	done    chan struct{}
	gen     uint64
	pending map[string]*pendingPath
}

type pendingPath struct {
	timer *time.Timer
	gen   uint64
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{
		delay:   delay,
		ready:   make(chan firing),
		done:    make(chan struct{}),
		pending: make(map[string]*pendingPath),
	}
}

// touch restarts the quiet period for path.
func (d *debouncer) touch(path string) {
	if p, ok := d.pending[path]; ok {
		p.timer.Stop()
	}
	d.gen++
	f := firing{path: path, gen: d.gen}
	timer := time.AfterFunc(d.delay, func() {
		select {
		case d.ready <- f:
		case <-d.done:
		}
	})
	d.pending[path] = &pendingPath{timer: timer, gen: f.gen}
}

// take reports whether f settles its path, and forgets the path if so.
func (d *debouncer) take(f firing) bool {
	p, ok := d.pending[f.path]
	if !ok || p.gen != f.gen {
		return false
	}
	delete(d.pending, f.path)
	return true
}

// stop cancels every pending timer and releases blocked firings.
func (d *debouncer) stop() {
	close(d.done)
	for _, p := range d.pending {
		p.timer.Stop()
	}
}

// handleFsEvent returns the path of a contract file that was created or
// written. Directories, hidden files and other operations are ignored.
func (w *Watcher) handleFsEvent(ev fsnotify.Event) (string, bool) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return "", false
	}
	if isHidden(ev.Name) || !isContractFile(ev.Name) {
		return "", false
	}
	info, err := os.Stat(ev.Name)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	return ev.Name, true
}

func (w *Watcher) process(ctx context.Context, path string) Event {
	event := Event{Path: path, Title: titleFromPath(path)}

	title, content, err := w.extract(ctx, path)
	if err != nil {
		event.Err = err
		return event
	}
	if title != "" {
		event.Title = title
	}
	if strings.TrimSpace(content) == "" {
		event.Err = fmt.Errorf("%w: %s is empty", domain.ErrInvalidInput, filepath.Base(path))
		return event
	}

	metadata := map[string]any{
		"source": "watch",
		MetaPath: path,
	}
	logger.Debug("watch: analysing %s", path)
	event.Result, event.Err = w.pipeline.ProcessDocument(ctx, event.Title, content, metadata)
	return event
}

// extract reads path and returns its declared title, if any, and its text.
func (w *Watcher) extract(ctx context.Context, path string) (string, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("reading %s: %w", path, err)
	}

	if w.normaliser == nil {
		if !utf8.Valid(data) {
			return "", "", fmt.Errorf("%w: %s is not text", domain.ErrInvalidInput, filepath.Base(path))
		}
		return "", string(data), nil
	}

	result, err := w.normaliser.Normalise(ctx, &domain.RawDocument{
		URI:      path,
		MIMEType: w.normaliser.DetectMIMEType(path),
		Content:  data,
	})
	if err != nil {
		return "", "", fmt.Errorf("extracting text from %s: %w", filepath.Base(path), err)
	}
	return result.Title, result.Content, nil
}

func (w *Watcher) checkRoot() error {
	info, err := os.Stat(w.dir)
	if err != nil {
		return fmt.Errorf("root path error: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("root path error: %s is not a directory", w.dir)
	}
	return nil
}

func isContractFile(name string) bool {
	return contractExtensions[strings.ToLower(filepath.Ext(name))]
}

func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

func titleFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
