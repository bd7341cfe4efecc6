// CLAUDE:SUMMARY Thread-safe registry mapping selector prefixes to QueryHandler implementations with a default dialect.
package queryhandler

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync"
)

var (
	validName = regexp.MustCompile(`^[a-zA-Z]+$`)
	prefixed  = regexp.MustCompile(`^[a-zA-Z]+/`)
)

// Registry maps selector prefixes to handlers.
// Thread-safe: lookups use RLock, registration uses full Lock.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]QueryHandler
	builtin  map[string]bool
	def      QueryHandler
	logger   *slog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryLogger sets a custom logger for the registry.
func WithRegistryLogger(l *slog.Logger) RegistryOption {
	return func(r *Registry) { r.logger = l }
}

// NewRegistry creates a Registry that sends unprefixed selectors to def.
func NewRegistry(def QueryHandler, opts ...RegistryOption) *Registry {
	r := &Registry{
		handlers: make(map[string]QueryHandler),
		builtin:  make(map[string]bool),
		def:      def,
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// RegisterBuiltin registers a dialect that cannot be unregistered or cleared.
func (r *Registry) RegisterBuiltin(name string, h QueryHandler) error {
	if err := r.Register(name, h); err != nil {
		return err
	}
	r.mu.Lock()
	r.builtin[name] = true
	r.mu.Unlock()
	return nil
}

// Register adds a dialect under name. Names must match [a-zA-Z]+ and be
// unused.
func (r *Registry) Register(name string, h QueryHandler) error {
	if !validName.MatchString(name) {
		return &ErrInvalidName{Name: name}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.handlers[name]; ok {
		return &ErrDuplicateHandler{Name: name}
	}
	r.handlers[name] = h
	r.logger.Debug("queryhandler: registered", "name", name)
	return nil
}

// Unregister removes a custom dialect. Unknown names are ignored.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.builtin[name] {
		return &ErrBuiltinHandler{Name: name}
	}
	delete(r.handlers, name)
	return nil
}

// ClearCustom removes every non built-in dialect.
func (r *Registry) ClearCustom() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name := range r.handlers {
		if !r.builtin[name] {
			delete(r.handlers, name)
		}
	}
}

// Names returns the registered dialect names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve picks the handler for a full selector and returns the selector with
// its prefix stripped. Selectors that do not start with "<letters>/" go to the
// default handler unchanged.
func (r *Registry) Resolve(selector string) (QueryHandler, string, error) {
	if !prefixed.MatchString(selector) {
		return r.def, selector, nil
	}

	name, rest, _ := strings.Cut(selector, "/")

	r.mu.RLock()
	h, ok := r.handlers[name]
	r.mu.RUnlock()
	if !ok {
		return nil, "", &ErrUnknownHandler{Name: name}
	}
	return h, rest, nil
}
