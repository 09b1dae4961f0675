package formats

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Constructor builds a fresh Handler instance for one extension.
type Constructor func(extension string) Handler

type registryEntry struct {
	priority    int
	constructor Constructor
}

// Registry is a process-wide extension -> handler constructor lookup,
// grounded on original_source/PySubtitle/SubtitleFormatRegistry.py. Go has
// no runtime package scan equivalent to Python's pkgutil.iter_modules, so
// handlers self-register from their own init() functions instead of being
// discovered from a directory listing; Register is idempotent and safe to
// call from multiple init()s in any order.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]registryEntry
}

// DefaultRegistry is the registry used by the rest of the pipeline unless a
// component is explicitly given a different one (tests use a private
// Registry via New to avoid cross-test interference).
var DefaultRegistry = New()

// New returns an empty Registry. Production code uses DefaultRegistry;
// tests that want isolation from other tests' registrations should use a
// fresh Registry rather than the shared one. There is no autodiscovery and
// no switch to turn it off: the built-in handlers register themselves on
// DefaultRegistry from their init functions.
func New() *Registry {
	return &Registry{handlers: map[string]registryEntry{}}
}

// Register installs constructor for extension at the given priority. If
// an entry already exists for this extension, the new one wins only when
// its priority is greater-or-equal (later registration wins ties), per
// SubtitleFormatRegistry.register_handler.
func (r *Registry) Register(extension string, priority int, constructor Constructor) {
	ext := strings.ToLower(extension)
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.handlers[ext]
	if !ok || priority >= existing.priority {
		r.handlers[ext] = registryEntry{priority: priority, constructor: constructor}
	}
}

// Get instantiates the handler registered for extension. extension may be
// given with or without its leading dot.
func (r *Registry) Get(extension string) (Handler, error) {
	ext := normalizeExtension(extension)
	r.mu.RLock()
	entry, ok := r.handlers[ext]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown subtitle format: %s", ext)
	}
	return entry.constructor(ext), nil
}

// Enumerate returns the registered extensions, sorted.
func (r *Registry) Enumerate() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make([]string, 0, len(r.handlers))
	for ext := range r.handlers {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Clear removes every registration, used by tests.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = map[string]registryEntry{}
}

func normalizeExtension(extension string) string {
	ext := strings.ToLower(extension)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
