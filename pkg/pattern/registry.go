package pattern

import (
	"embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/fsnotify.v1"
	"gopkg.in/yaml.v3"
)

//go:embed tables/*.yaml
var tablesFS embed.FS

// DefaultTableID is the table used when none is configured.
const DefaultTableID = "brazilian-norms"

// Registry manages a collection of pattern tables.
type Registry interface {
	// Register adds a table to the registry
	Register(table *Table) error

	// Unregister removes a table from the registry
	Unregister(id string) error

	// Get returns a table by its ID
	Get(id string) (*Table, bool)

	// List returns all registered tables
	List() []*Table

	// Reload reloads all tables from the configured directory
	Reload() error

	// Watch starts watching the table directory for changes
	Watch() error

	// StopWatch stops watching the table directory
	StopWatch()

	// LoadDirectory loads all tables from a directory
	LoadDirectory(dir string) error

	// LoadFile loads a single table file
	LoadFile(path string) error
}

// DefaultRegistry is the default implementation of the pattern Registry.
type DefaultRegistry struct {
	mu       sync.RWMutex
	tables   map[string]*Table
	dir      string
	watcher  *fsnotify.Watcher
	stopChan chan struct{}
	onChange func(event string, table *Table)
	logger   *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *DefaultRegistry {
	return &DefaultRegistry{
		tables: make(map[string]*Table),
		logger: slog.Default(),
	}
}

// NewDefaultRegistry creates a registry holding the embedded tables.
func NewDefaultRegistry() (*DefaultRegistry, error) {
	r := NewRegistry()
	if err := r.LoadEmbedded(); err != nil {
		return nil, err
	}
	return r, nil
}

// NewRegistryWithDirectory creates a registry with the embedded tables and
// then loads tables from dir, which may override them.
func NewRegistryWithDirectory(dir string) (*DefaultRegistry, error) {
	r, err := NewDefaultRegistry()
	if err != nil {
		return nil, err
	}
	if err := r.LoadDirectory(dir); err != nil {
		return nil, err
	}
	return r, nil
}

// SetLogger sets the logger used for watch events.
func (r *DefaultRegistry) SetLogger(logger *slog.Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// Register adds a table to the registry, replacing any table with the same ID
// but a different version.
func (r *DefaultRegistry) Register(table *Table) error {
	if err := prepare(table); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.tables[table.ID]; ok && existing.Version == table.Version {
		return fmt.Errorf("table %q version %s already registered", table.ID, table.Version)
	}

	r.tables[table.ID] = table
	return nil
}

// prepare validates and compiles a table before it is published.
func prepare(table *Table) error {
	if table == nil {
		return fmt.Errorf("table cannot be nil")
	}

	if err := table.Validate(); err != nil {
		return fmt.Errorf("invalid table: %w", err)
	}
	if errs := ValidateTable(table); len(errs) > 0 {
		return fmt.Errorf("invalid table %q: %w", table.ID, errs)
	}

	if !table.IsCompiled() {
		if err := table.Compile(); err != nil {
			return fmt.Errorf("compiling table %q: %w", table.ID, err)
		}
	}
	return nil
}

// Unregister removes a table from the registry.
func (r *DefaultRegistry) Unregister(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tables[id]; !ok {
		return fmt.Errorf("%w: %q", ErrPatternNotFound, id)
	}

	delete(r.tables, id)
	return nil
}

// Get returns a table by its ID.
func (r *DefaultRegistry) Get(id string) (*Table, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	table, ok := r.tables[id]
	return table, ok
}

// Table returns a table by ID or ErrPatternNotFound.
func (r *DefaultRegistry) Table(id string) (*Table, error) {
	if id == "" {
		id = DefaultTableID
	}
	t, ok := r.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrPatternNotFound, id)
	}
	return t, nil
}

// List returns all registered tables sorted by ID.
func (r *DefaultRegistry) List() []*Table {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tables := make([]*Table, 0, len(r.tables))
	for _, t := range r.tables {
		tables = append(tables, t)
	}
	sort.Slice(tables, func(i, j int) bool { return tables[i].ID < tables[j].ID })
	return tables
}

// Count returns the number of registered tables.
func (r *DefaultRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tables)
}

// LoadEmbedded registers the tables compiled into the binary.
func (r *DefaultRegistry) LoadEmbedded() error {
	entries, err := tablesFS.ReadDir("tables")
	if err != nil {
		return fmt.Errorf("reading embedded tables: %w", err)
	}
	for _, entry := range entries {
		data, err := tablesFS.ReadFile("tables/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading embedded table %s: %w", entry.Name(), err)
		}
		if err := r.loadBytes(data); err != nil {
			return fmt.Errorf("embedded table %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// LoadDirectory loads all YAML table files from a directory.
func (r *DefaultRegistry) LoadDirectory(dir string) error {
	r.dir = dir

	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			// Directory doesn't exist, nothing to load
			return nil
		}
		return fmt.Errorf("checking directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading directory %s: %w", dir, err)
	}

	var loadErrors []string
	for _, entry := range entries {
		if entry.IsDir() || !isYAML(entry.Name()) {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		if err := r.LoadFile(path); err != nil {
			loadErrors = append(loadErrors, fmt.Sprintf("%s: %v", entry.Name(), err))
		}
	}

	if len(loadErrors) > 0 {
		return fmt.Errorf("errors loading tables: %s", strings.Join(loadErrors, "; "))
	}

	return nil
}

// LoadFile loads a single table file. A file table replaces any registered
// table with the same ID, whatever its version.
func (r *DefaultRegistry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}
	table, err := ParseTable(data)
	if err != nil {
		return err
	}
	return r.replace(table)
}

// replace swaps table in under its ID. Readers see either the previous
// table or the new one, never a gap.
func (r *DefaultRegistry) replace(table *Table) error {
	if err := prepare(table); err != nil {
		return fmt.Errorf("registering table: %w", err)
	}

	r.mu.Lock()
	r.tables[table.ID] = table
	r.mu.Unlock()
	return nil
}

func (r *DefaultRegistry) loadBytes(data []byte) error {
	table, err := ParseTable(data)
	if err != nil {
		return err
	}
	if err := r.Register(table); err != nil {
		return fmt.Errorf("registering table: %w", err)
	}
	return nil
}

// ParseTable validates raw YAML against the schema and decodes it.
func ParseTable(data []byte) (*Table, error) {
	if err := ValidateDocument(data); err != nil {
		return nil, err
	}
	var table Table
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	return &table, nil
}

// Reload reloads the embedded tables and the configured directory into a
// fresh table set and swaps it in at once. Tables that failed to load are
// absent from the new set; the error lists them.
func (r *DefaultRegistry) Reload() error {
	if r.dir == "" {
		return fmt.Errorf("no directory configured for reload")
	}

	fresh := NewRegistry()
	fresh.logger = r.logger
	if err := fresh.LoadEmbedded(); err != nil {
		return err
	}
	loadErr := fresh.LoadDirectory(r.dir)

	r.mu.Lock()
	r.tables = fresh.tables
	r.mu.Unlock()

	return loadErr
}

// SetOnChange sets a callback function that is called when tables change.
func (r *DefaultRegistry) SetOnChange(fn func(event string, table *Table)) {
	r.onChange = fn
}

// Watch starts watching the table directory for changes.
func (r *DefaultRegistry) Watch() error {
	if r.dir == "" {
		return fmt.Errorf("no directory configured for watching")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}

	r.watcher = watcher
	r.stopChan = make(chan struct{})

	go r.watchLoop(watcher, r.stopChan)

	if err := watcher.Add(r.dir); err != nil {
		r.watcher.Close()
		return fmt.Errorf("watching directory %s: %w", r.dir, err)
	}

	return nil
}

// watchLoop handles file system events.
func (r *DefaultRegistry) watchLoop(watcher *fsnotify.Watcher, stop <-chan struct{}) {
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
			r.logger.Warn("pattern watcher error", "dir", r.dir, "error", err)
		}
	}
}

func (r *DefaultRegistry) handleFileChange(path string, eventType string) {
	data, err := os.ReadFile(path)
	if err != nil {
		r.logger.Warn("reading changed pattern table", "path", path, "error", err)
		return
	}
	table, err := ParseTable(data)
	if err != nil {
		r.logger.Warn("rejected pattern table", "path", path, "error", err)
		return
	}
	if err := r.replace(table); err != nil {
		r.logger.Warn("registering changed pattern table", "path", path, "error", err)
		return
	}

	r.logger.Info("pattern table reloaded", "id", table.ID, "version", table.Version, "event", eventType)
	if r.onChange != nil {
		r.onChange(eventType, table)
	}
}

func (r *DefaultRegistry) handleFileRemove(path string) {
	// File to table mapping is not tracked, so reload everything.
	if err := r.Reload(); err != nil {
		r.logger.Warn("reloading pattern tables", "path", path, "error", err)
	}

	if r.onChange != nil {
		r.onChange("remove", nil)
	}
}

// StopWatch stops watching the table directory.
func (r *DefaultRegistry) StopWatch() {
	if r.stopChan != nil {
		close(r.stopChan)
		r.stopChan = nil
	}
	if r.watcher != nil {
		r.watcher.Close()
		r.watcher = nil
	}
}

// Clear removes all tables from the registry.
func (r *DefaultRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables = make(map[string]*Table)
}

func isYAML(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}
