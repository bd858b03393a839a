// Package resx implements the referenceable resource pipeline: a uniform
// façade (Open/Stream/Exists/Alike/Source/URI/Attribute/Transform/Store/
// Discard/Compare/Finalise) over heterogeneous resource producers, tied
// together by a Reference that carries an adapter-private Repository and an
// Integrity stamp.
package resx

import "context"

// AdapterID names the producer responsible for interpreting a Reference's
// Repository. By convention it equals the URI scheme the producer owns.
type AdapterID string

// TransformScheme is the URI scheme owned by the transform producer. It is
// exported here (rather than in package transform) so the façade can wrap a
// Resource in a new transformation layer without importing package transform,
// which itself depends on package resx for the core types.
const TransformScheme = "resx-transform"

// Reference is a resource's identity: an adapter tag plus adapter-private
// opaque state plus an integrity stamp. References are freely cloneable and
// serialisable.
type Reference struct {
	Adapter    AdapterID
	Repository interface{}
	Integrity  Integrity
}

// Meta is the side-channel key/value list persisted alongside stored
// resources but never folded into a checksum.
type Meta map[string]interface{}

// Clone returns a shallow copy of m, or nil if m is nil.
func (m Meta) Clone() Meta {
	if m == nil {
		return nil
	}
	out := make(Meta, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Resource is the pair of a Reference with its realised (or streaming)
// Content, plus its Meta side channel. Resources are immutable by contract:
// every mutation constructs a new value.
type Resource struct {
	Reference Reference
	Content   Content
	Meta      Meta
}

// Options is a generic, adapter-private options bag passed to Open, Stream,
// Store, and Discard. Adapters document which keys they read.
type Options struct {
	Values map[string]interface{}
}

// Get returns the value bound to key, if any.
func (o Options) Get(key string) (interface{}, bool) {
	if o.Values == nil {
		return nil, false
	}
	v, ok := o.Values[key]
	return v, ok
}

// String returns the value bound to key as a string, or "" if absent or not
// a string.
func (o Options) String(key string) string {
	v, ok := o.Get(key)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// WithValue returns a copy of o with key bound to value.
func (o Options) WithValue(key string, value interface{}) Options {
	out := Options{Values: make(map[string]interface{}, len(o.Values)+1)}
	for k, v := range o.Values {
		out.Values[k] = v
	}
	out.Values[key] = value
	return out
}

type (
	// OpenOptions configures Producer.Open.
	OpenOptions = Options
	// StreamOptions configures Producer.Stream.
	StreamOptions = Options
	// StoreOptions configures Storer.Store.
	StoreOptions = Options
	// DiscardOptions configures Storer.Discard.
	DiscardOptions = Options
)

// prepareStoreRefKey is the StoreOptions key the façade's cache-miss recovery
// path (§4.F) uses to tell a compatible-default Storer which outer reference
// it is restoring, so the Storer knows where (e.g. which file path) to
// persist the recovered content.
const prepareStoreRefKey = "resx.prepare_store_reference"

// PrepareStoreReference extracts the reference the façade is asking a Storer
// to restore into, during cache-miss recovery. Adapters that implement their
// own recovery (CompatibleInternal) never see this key.
func PrepareStoreReference(opts StoreOptions) (Reference, bool) {
	v, ok := opts.Get(prepareStoreRefKey)
	if !ok {
		return Reference{}, false
	}
	ref, ok := v.(Reference)
	return ref, ok
}

// Producer is the uniform capability set every scheme adapter implements.
type Producer interface {
	// Schemes returns the nonempty set of URI schemes this producer owns.
	Schemes() []string

	// Parse turns a raw URI into a Reference this producer can interpret.
	// It is the producer-specific counterpart to URI.
	Parse(uri string) (Reference, error)

	Open(ctx context.Context, ref Reference, opts OpenOptions) (Resource, error)
	Stream(ctx context.Context, ref Reference, opts StreamOptions) (Resource, error)
	Exists(ctx context.Context, ref Reference) (bool, error)
	Alike(a, b Reference) bool
	Source(ctx context.Context, ref Reference) (*Reference, error)
	URI(ref Reference) (string, error)
	Attribute(ctx context.Context, ref Reference, key string) (interface{}, error)
	Attributes(ctx context.Context, ref Reference) (map[string]interface{}, error)
	AttributeKeys(ctx context.Context, ref Reference) ([]string, error)
}

// SourceCompatibility controls whether the façade attempts cache-miss
// recovery (§4.F) on behalf of a Storer.
type SourceCompatibility int

const (
	// Incompatible: the adapter never recovers from UnknownResource.
	Incompatible SourceCompatibility = iota
	// CompatibleDefault: the façade drives recovery via Source/Store.
	CompatibleDefault
	// CompatibleInternal: the adapter recovers on its own; the façade must
	// not intervene.
	CompatibleInternal
)

// Storer is the contract for producers that can also materialise a Resource
// to a destination, with optional reversal.
type Storer interface {
	Store(ctx context.Context, resource Resource, opts StoreOptions) (Resource, error)
	Discard(ctx context.Context, ref Reference, opts DiscardOptions) error
	SourceCompatibility() SourceCompatibility
}

// Transformer is a named, parametric content-transforming function. It may
// replace a Resource's Content (eager or streaming) but must not rewrite its
// Reference — the transform producer owns that.
type Transformer interface {
	Transform(ctx context.Context, resource Resource, options map[string]interface{}) (Resource, error)
}
