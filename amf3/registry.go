package amf3

import (
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/zap"
)

// ReadHook decodes an externalizable instance's opaque body by reading
// directly from the stream positioned just after the class name. It
// must consume exactly its own body and no more, since any following
// value in the message picks up where it left off.
type ReadHook func(s *ByteStream) (any, error)

// WriteHook encodes an externalizable instance's opaque body by writing
// directly to the stream, positioned just after the class name.
type WriteHook func(s *ByteStream, instance any) error

// aliasEntry is the registry's per-alias metadata (spec.md §3).
type aliasEntry struct {
	typ       reflect.Type
	alias     string
	attrs     []string
	encoding  ClassEncoding
	readHook  ReadHook
	writeHook WriteHook
}

// AliasOption configures a RegisterClassAlias call.
type AliasOption func(*aliasEntry)

// WithAttrs pins the attribute list and order for the alias, overriding
// whatever the caller's type would otherwise expose.
func WithAttrs(attrs []string) AliasOption {
	return func(e *aliasEntry) { e.attrs = append([]string(nil), attrs...) }
}

// WithEncoding sets the class encoding mode (default EncodingDynamic).
func WithEncoding(enc ClassEncoding) AliasOption {
	return func(e *aliasEntry) { e.encoding = enc }
}

// WithHooks marks the alias Externalizable and supplies its read/write
// hook pair.
func WithHooks(read ReadHook, write WriteHook) AliasOption {
	return func(e *aliasEntry) {
		e.encoding = EncodingExternalizable
		e.readHook = read
		e.writeHook = write
	}
}

// Registry is a process-wide, concurrency-safe map between external
// alias strings and local type descriptors (spec.md §3/§5). Reads take
// a shared lock per lookup; writes take an exclusive lock. The
// package-level functions operate against a default Registry so most
// callers never construct one directly.
type Registry struct {
	mu      sync.RWMutex
	byAlias map[string]*aliasEntry
	byType  map[reflect.Type]*aliasEntry
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byAlias: make(map[string]*aliasEntry),
		byType:  make(map[reflect.Type]*aliasEntry),
	}
}

var defaultRegistry = NewRegistry()

// Register binds t to alias with the given options, overwriting any
// prior binding for either t or alias. Logs at Warn when it overwrites
// an existing entry, since a silent overwrite can otherwise surface as a
// confusing wire-format change far from the registration site.
func (r *Registry) Register(t reflect.Type, alias string, opts ...AliasOption) error {
	if alias == "" {
		return fmt.Errorf("class alias must not be empty: %w", ErrValue)
	}
	e := &aliasEntry{typ: t, alias: alias, encoding: EncodingDynamic}
	for _, opt := range opts {
		opt(e)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if old, exists := r.byAlias[alias]; exists {
		logger.Warn("amf3: overwriting class alias registration", zap.String("alias", alias))
		delete(r.byType, old.typ)
	}
	if old, exists := r.byType[t]; exists {
		logger.Warn("amf3: overwriting class alias registration", zap.String("alias", old.alias))
		delete(r.byAlias, old.alias)
	}
	r.byAlias[alias] = e
	r.byType[t] = e
	return nil
}

// Unregister removes any binding for t.
func (r *Registry) Unregister(t reflect.Type) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byType[t]
	if !ok {
		return fmt.Errorf("type %v has no class alias: %w", t, ErrUnknownClassAlias)
	}
	delete(r.byType, t)
	delete(r.byAlias, e.alias)
	return nil
}

// AliasForType returns the alias bound to t.
func (r *Registry) AliasForType(t reflect.Type) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byType[t]
	if !ok {
		return "", fmt.Errorf("type %v has no class alias: %w", t, ErrUnknownClassAlias)
	}
	return e.alias, nil
}

// TypeForAlias returns the type bound to alias.
func (r *Registry) TypeForAlias(alias string) (reflect.Type, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byAlias[alias]
	if !ok {
		return nil, fmt.Errorf("alias %q is not registered: %w", alias, ErrUnknownClassAlias)
	}
	return e.typ, nil
}

// buildClassDefinition returns a snapshot ClassDefinition for alias along
// with its registry entry, or (nil, nil, false) if alias is unregistered. The attrs slice is copied so a
// concurrent Unregister cannot tear a message already mid-encode
// (spec.md §5/§9).
func (r *Registry) buildClassDefinition(alias string) (*ClassDefinition, *aliasEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byAlias[alias]
	if !ok {
		return nil, nil, false
	}
	return &ClassDefinition{
		Name:     e.alias,
		Encoding: e.encoding,
		Attrs:    append([]string(nil), e.attrs...),
	}, e, true
}

// entryForType returns the alias entry bound to t, if any.
func (r *Registry) entryForType(t reflect.Type) (*aliasEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byType[t]
	return e, ok
}

// entryForTypeByAlias returns the alias entry bound to alias, if any.
func (r *Registry) entryForTypeByAlias(alias string) (*aliasEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byAlias[alias]
	return e, ok
}

// RegisterClassAlias binds t to alias in the default, process-wide
// Registry.
func RegisterClassAlias(t reflect.Type, alias string, opts ...AliasOption) error {
	return defaultRegistry.Register(t, alias, opts...)
}

// UnregisterClassAlias removes t's binding from the default Registry.
func UnregisterClassAlias(t reflect.Type) error {
	return defaultRegistry.Unregister(t)
}

// GetAliasForType returns the alias bound to t in the default Registry.
func GetAliasForType(t reflect.Type) (string, error) {
	return defaultRegistry.AliasForType(t)
}

// GetTypeForAlias returns the type bound to alias in the default
// Registry.
func GetTypeForAlias(alias string) (reflect.Type, error) {
	return defaultRegistry.TypeForAlias(alias)
}
