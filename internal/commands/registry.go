package commands

import (
	"sort"
	"sync"
)

// Registry selects a converter by the kind of value requested. A registry is
// populated during construction and is safe for concurrent reads afterwards.
type Registry struct {
	converters map[Kind]Converter
}

// NewRegistry creates a registry holding the given converters
func NewRegistry(converters ...Converter) *Registry {
	r := &Registry{converters: make(map[Kind]Converter, len(converters))}
	for _, c := range converters {
		r.Register(c)
	}
	return r
}

// Register adds a converter, replacing any converter of the same kind.
// An unbound FloatArrayConverter resolves its elements through r.
// It must not be called once the registry is shared.
func (r *Registry) Register(c Converter) {
	if fa, ok := c.(FloatArrayConverter); ok && fa.Elements == nil {
		fa.Elements = r
		c = fa
	}
	r.converters[c.Kind()] = c
}

// Resolve returns the converter for t or an *UnsupportedTypeError
func (r *Registry) Resolve(t Type) (Converter, error) {
	c, ok := r.converters[t.Kind]
	if !ok {
		return nil, &UnsupportedTypeError{Type: t}
	}
	return c, nil
}

// MustResolve is Resolve for configuration time checks; a missing
// converter is a programming error.
func (r *Registry) MustResolve(t Type) Converter {
	c, err := r.Resolve(t)
	if err != nil {
		panic(err)
	}
	return c
}

// Kinds returns the registered kinds in ascending order
func (r *Registry) Kinds() []Kind {
	kinds := make([]Kind, 0, len(r.converters))
	for k := range r.converters {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// DefaultConverters returns one converter for every supported kind
func DefaultConverters() []Converter {
	return []Converter{
		UintConverter{},
		FloatArrayConverter{},
		EnumConverter{},
		BoolConverter{},
		FloatConverter{},
		ColorConverter{},
	}
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry returns the process-wide registry holding DefaultConverters
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry(DefaultConverters()...)
	})
	return defaultRegistry
}
