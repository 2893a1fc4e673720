// Package registry stores the translation variants of every function and
// operator, keyed by name, arity and window-ness.
//
// A Registry is built once with a Builder during initialization and is
// read-only afterwards. Build returns an immutable snapshot, so concurrent
// lookups need no locking.
//
// Registration order is part of the contract: for a given key, candidates
// are tried in the order they were registered, and the first one matching
// the argument types (and dialect) wins. Catalogs that register overlapping
// variants for the same key must be installed in precedence order.
package registry

import (
	"slices"
	"sync"

	"github.com/datalens-tech/datalens-backend-sub013/internal/translation"
)

// FuncDef describes one function or operator and its variants.
// Each variant is registered under the key of its pattern's arity.
type FuncDef struct {
	Name        string
	IsWindow    bool
	IsOperator  bool
	IsAggregate bool
	Variants    []*translation.Variant
}

// KeyInfo is metadata recorded per key.
type KeyInfo struct {
	IsOperator  bool
	IsAggregate bool
}

// Entry is one registered (key, variant) pair.
type Entry struct {
	Key     FuncKey
	Info    KeyInfo
	Variant *translation.Variant
}

type table struct {
	order    []FuncKey
	variants map[FuncKey][]*translation.Variant
	info     map[FuncKey]KeyInfo
}

func newTable() table {
	return table{
		variants: make(map[FuncKey][]*translation.Variant),
		info:     make(map[FuncKey]KeyInfo),
	}
}

func (t table) clone() table {
	out := table{
		order:    slices.Clone(t.order),
		variants: make(map[FuncKey][]*translation.Variant, len(t.variants)),
		info:     make(map[FuncKey]KeyInfo, len(t.info)),
	}
	for k, vs := range t.variants {
		out.variants[k] = slices.Clone(vs)
	}
	for k, i := range t.info {
		out.info[k] = i
	}
	return out
}

// Builder accumulates registrations. It is safe to call from several
// initialization paths concurrently; registering the same variant twice is a
// no-op.
type Builder struct {
	mu sync.Mutex
	t  table
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{t: newTable()}
}

// KeyOf returns the key a variant of def is registered under.
func KeyOf(def FuncDef, v *translation.Variant) FuncKey {
	arity := Unlimited
	if v.Pattern != nil && v.Pattern.Arity() >= 0 {
		arity = v.Pattern.Arity()
	}
	return NewKey(def.Name, arity, def.IsWindow)
}

// Register adds every variant of def, preserving order.
func (b *Builder) Register(def FuncDef) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, v := range def.Variants {
		key := KeyOf(def, v)
		if slices.Contains(b.t.variants[key], v) {
			continue
		}
		if _, ok := b.t.variants[key]; !ok {
			b.t.order = append(b.t.order, key)
		}
		b.t.variants[key] = append(b.t.variants[key], v)

		info := b.t.info[key]
		info.IsOperator = info.IsOperator || def.IsOperator
		info.IsAggregate = info.IsAggregate || def.IsAggregate
		b.t.info[key] = info
	}
}

// Unregister removes v from key. The key disappears with its last variant.
func (b *Builder) Unregister(key FuncKey, v *translation.Variant) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key.Name = FoldName(key.Name)
	vs, ok := b.t.variants[key]
	if !ok {
		return
	}
	vs = slices.DeleteFunc(slices.Clone(vs), func(x *translation.Variant) bool { return x == v })
	if len(vs) > 0 {
		b.t.variants[key] = vs
		return
	}
	delete(b.t.variants, key)
	delete(b.t.info, key)
	b.t.order = slices.DeleteFunc(b.t.order, func(k FuncKey) bool { return k == key })
}

// Len returns the number of variants registered under key.
func (b *Builder) Len(key FuncKey) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.t.variants[key])
}

// Build returns an immutable snapshot of the current registrations.
// The Builder stays usable.
func (b *Builder) Build() *Registry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return &Registry{t: b.t.clone()}
}

// Registry is an immutable set of registrations. All methods are safe for
// concurrent use.
type Registry struct {
	t table
}

// Candidates returns the variants registered under key, in registration order.
func (r *Registry) Candidates(key FuncKey) []*translation.Variant {
	return slices.Clone(r.t.variants[key])
}

// Info returns the metadata of key.
func (r *Registry) Info(key FuncKey) (KeyInfo, bool) {
	i, ok := r.t.info[key]
	return i, ok
}

// Keys returns every key in registration order.
func (r *Registry) Keys() []FuncKey {
	return slices.Clone(r.t.order)
}

// Entries returns every (key, variant) pair in registration order.
func (r *Registry) Entries() []Entry {
	var out []Entry
	for _, k := range r.t.order {
		for _, v := range r.t.variants[k] {
			out = append(out, Entry{Key: k, Info: r.t.info[k], Variant: v})
		}
	}
	return out
}

// Len returns the total number of registered variants.
func (r *Registry) Len() int {
	n := 0
	for _, vs := range r.t.variants {
		n += len(vs)
	}
	return n
}

// IsAggregate reports whether any key named name is an aggregate.
func (r *Registry) IsAggregate(name string) bool {
	return r.anyKey(name, func(k FuncKey, i KeyInfo) bool { return i.IsAggregate })
}

// IsWindow reports whether name is registered as a window function.
func (r *Registry) IsWindow(name string) bool {
	return r.anyKey(name, func(k FuncKey, i KeyInfo) bool { return k.IsWindow })
}

// IsOperator reports whether name is registered as an operator.
func (r *Registry) IsOperator(name string) bool {
	return r.anyKey(name, func(k FuncKey, i KeyInfo) bool { return i.IsOperator })
}

// Has reports whether anything is registered under name.
func (r *Registry) Has(name string) bool {
	return r.anyKey(name, func(FuncKey, KeyInfo) bool { return true })
}

func (r *Registry) anyKey(name string, pred func(FuncKey, KeyInfo) bool) bool {
	folded := FoldName(name)
	for k, i := range r.t.info {
		if k.Name == folded && pred(k, i) {
			return true
		}
	}
	return false
}
