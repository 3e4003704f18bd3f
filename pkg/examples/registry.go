package examples

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/afero"
	"gopkg.in/fsnotify.v1"
)

// Registry holds the built-in examples plus any loaded from a directory.
// User examples override built-ins with the same name.
type Registry struct {
	mu       sync.RWMutex
	builtin  map[string]*Example
	user     map[string]*Example
	files    map[string][]string // path -> names loaded from it
	fs       afero.Fs
	dir      string
	watcher  *fsnotify.Watcher
	stopChan chan struct{}
	onChange func(event string, example *Example)
	logger   *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithFs sets the filesystem used by LoadFile and LoadDirectory.
func WithFs(fs afero.Fs) Option {
	return func(r *Registry) {
		r.fs = fs
	}
}

// WithLogger sets the logger used for watch events.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry creates a registry holding the built-in examples.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		builtin: make(map[string]*Example),
		user:    make(map[string]*Example),
		files:   make(map[string][]string),
		fs:      afero.NewOsFs(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	for _, ex := range Builtin() {
		r.builtin[ex.Name] = &ex
	}
	return r
}

// NewRegistryWithDirectory creates a registry and loads examples from dir.
func NewRegistryWithDirectory(dir string, opts ...Option) (*Registry, error) {
	r := NewRegistry(opts...)
	if err := r.LoadDirectory(dir); err != nil {
		return nil, err
	}
	return r, nil
}

// Register adds or replaces a user example.
func (r *Registry) Register(example *Example) error {
	if example == nil {
		return fmt.Errorf("example cannot be nil")
	}
	if err := example.Validate(); err != nil {
		return fmt.Errorf("invalid example: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.user[example.Name] = example
	return nil
}

// Get returns the example with the given name.
func (r *Registry) Get(name string) (*Example, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if ex, ok := r.user[name]; ok {
		return ex, nil
	}
	if ex, ok := r.builtin[name]; ok {
		return ex, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// List returns every visible example sorted by name.
func (r *Registry) List() []*Example {
	r.mu.RLock()
	defer r.mu.RUnlock()

	merged := make(map[string]*Example, len(r.builtin)+len(r.user))
	for name, ex := range r.builtin {
		merged[name] = ex
	}
	for name, ex := range r.user {
		merged[name] = ex
	}

	list := make([]*Example, 0, len(merged))
	for _, ex := range merged {
		list = append(list, ex)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

// Names returns the visible example names in sorted order.
func (r *Registry) Names() []string {
	list := r.List()
	names := make([]string, len(list))
	for i, ex := range list {
		names[i] = ex.Name
	}
	return names
}

// Count returns the number of visible examples.
func (r *Registry) Count() int {
	return len(r.List())
}

// LoadDirectory loads every *.yaml and *.yml file in dir. A missing
// directory is not an error.
func (r *Registry) LoadDirectory(dir string) error {
	r.mu.Lock()
	r.dir = dir
	r.mu.Unlock()

	info, err := r.fs.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("checking directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	entries, err := afero.ReadDir(r.fs, dir)
	if err != nil {
		return fmt.Errorf("reading directory %s: %w", dir, err)
	}

	var loadErrors []string
	for _, entry := range entries {
		if entry.IsDir() || !isYAML(entry.Name()) {
			continue
		}
		if err := r.LoadFile(filepath.Join(dir, entry.Name())); err != nil {
			loadErrors = append(loadErrors, fmt.Sprintf("%s: %v", entry.Name(), err))
		}
	}

	if len(loadErrors) > 0 {
		return fmt.Errorf("errors loading examples: %s", strings.Join(loadErrors, "; "))
	}
	return nil
}

// LoadFile loads the examples in one YAML file, replacing any earlier
// examples from the same file.
func (r *Registry) LoadFile(path string) error {
	data, err := afero.ReadFile(r.fs, path)
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}

	list, err := Decode(data)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.forgetFileLocked(path)
	names := make([]string, 0, len(list))
	for i := range list {
		ex := list[i]
		ex.Source = path
		r.user[ex.Name] = &ex
		names = append(names, ex.Name)
	}
	r.files[path] = names
	return nil
}

func (r *Registry) forgetFileLocked(path string) []string {
	names := r.files[path]
	for _, name := range names {
		if ex, ok := r.user[name]; ok && ex.Source == path {
			delete(r.user, name)
		}
	}
	delete(r.files, path)
	return names
}

// Reload drops every file-loaded example and loads the directory again.
func (r *Registry) Reload() error {
	r.mu.Lock()
	dir := r.dir
	if dir == "" {
		r.mu.Unlock()
		return fmt.Errorf("no directory configured for reload")
	}
	for path := range r.files {
		r.forgetFileLocked(path)
	}
	r.mu.Unlock()

	return r.LoadDirectory(dir)
}

// SetOnChange sets a callback invoked after a watched file is created,
// modified or removed. The example is nil for removals.
func (r *Registry) SetOnChange(fn func(event string, example *Example)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = fn
}

// Watch starts watching the example directory for changes. It requires a
// directory on the operating system filesystem. Only one watch may run at
// a time.
func (r *Registry) Watch() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.dir == "" {
		return fmt.Errorf("no directory configured for watching")
	}
	if r.watcher != nil {
		return fmt.Errorf("already watching %s", r.dir)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	if err := watcher.Add(r.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watching directory %s: %w", r.dir, err)
	}

	r.watcher = watcher
	r.stopChan = make(chan struct{})
	go r.watchLoop(watcher, r.stopChan)

	r.logger.Info("watching examples", "dir", r.dir)
	return nil
}

func (r *Registry) watchLoop(watcher *fsnotify.Watcher, stop chan struct{}) {
	for {
		select {
		case <-stop:
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !isYAML(event.Name) {
				continue
			}

			switch {
			case event.Op&fsnotify.Create == fsnotify.Create:
				r.handleFileChange(event.Name, "create")
			case event.Op&fsnotify.Write == fsnotify.Write:
				r.handleFileChange(event.Name, "modify")
			case event.Op&fsnotify.Remove == fsnotify.Remove,
				event.Op&fsnotify.Rename == fsnotify.Rename:
				r.handleFileRemove(event.Name)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			r.logger.Warn("example watcher error", "error", err)
		}
	}
}

func (r *Registry) handleFileChange(path, event string) {
	if err := r.LoadFile(path); err != nil {
		r.logger.Warn("reloading example file failed", "path", path, "error", err)
		return
	}

	r.mu.RLock()
	names := r.files[path]
	fn := r.onChange
	r.mu.RUnlock()

	r.logger.Debug("example file loaded", "path", path, "event", event, "examples", names)
	if fn == nil {
		return
	}
	for _, name := range names {
		if ex, err := r.Get(name); err == nil {
			fn(event, ex)
		}
	}
}

func (r *Registry) handleFileRemove(path string) {
	r.mu.Lock()
	names := r.forgetFileLocked(path)
	fn := r.onChange
	r.mu.Unlock()

	r.logger.Debug("example file removed", "path", path, "examples", names)
	if fn != nil {
		fn("remove", nil)
	}
}

// StopWatch stops watching the example directory. It is safe to call when
// no watch is running.
func (r *Registry) StopWatch() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopChan != nil {
		close(r.stopChan)
		r.stopChan = nil
	}
	if r.watcher != nil {
		r.watcher.Close()
		r.watcher = nil
	}
}

func isYAML(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}
