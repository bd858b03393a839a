package resx

import (
	"context"
	"strings"

	"github.com/redbco/redb-resx/resx/errors"
)

// schemeOf extracts the scheme prefix ("scheme:...") from a raw URI string.
func schemeOf(raw string) (string, bool) {
	idx := strings.Index(raw, ":")
	if idx <= 0 {
		return "", false
	}
	return raw[:idx], true
}

// producerForScheme resolves scheme via s, or reports InvalidReference.
func producerForScheme(s *Settings, scheme string) (Producer, error) {
	p, ok := s.ProducerForScheme(scheme)
	if !ok {
		return nil, errors.New(errors.InvalidReference, "no producer for URI")
	}
	return p, nil
}

// producerForReference resolves a Reference's embedded AdapterId, per §4.E's
// "producer_of(uri_or_reference) returns either the adapter embedded in the
// reference ... or None".
func producerForReference(s *Settings, ref Reference) (Producer, error) {
	return producerForScheme(s, string(ref.Adapter))
}

// resolveURI parses a raw URI string into a (Reference, Producer) pair by
// dispatching on its scheme, per §4.E.
func resolveURI(s *Settings, raw string) (Reference, Producer, error) {
	scheme, ok := schemeOf(raw)
	if !ok {
		return Reference{}, nil, errors.New(errors.InvalidReference, "no producer for URI")
	}
	p, err := producerForScheme(s, scheme)
	if err != nil {
		return Reference{}, nil, err
	}
	ref, err := p.Parse(raw)
	if err != nil {
		return Reference{}, nil, err
	}
	return ref, p, nil
}

// ParseURI resolves uri to its scheme's producer and parses it into a
// Reference, without opening it. Exported so cross-scheme producers (e.g. the
// transform producer, resolving the URI nested inside a resx-transform: URI)
// can dispatch into arbitrary other schemes via the same Settings.
func ParseURI(s *Settings, uri string) (Reference, error) {
	ref, _, err := resolveURI(s, uri)
	return ref, err
}

// Open resolves uri to a producer and returns an eager Resource, applying
// cache-miss recovery (§4.F) when the producer opts in.
func Open(ctx context.Context, s *Settings, uri string, opts OpenOptions) (Resource, error) {
	ref, p, err := resolveURI(s, uri)
	if err != nil {
		return Resource{}, err
	}
	return openWithRecovery(ctx, s, p, ref, opts)
}

// OpenReference is Open for a caller that already holds a typed Reference
// (e.g. from a previously opened Resource).
func OpenReference(ctx context.Context, s *Settings, ref Reference, opts OpenOptions) (Resource, error) {
	p, err := producerForReference(s, ref)
	if err != nil {
		return Resource{}, err
	}
	return openWithRecovery(ctx, s, p, ref, opts)
}

func openWithRecovery(ctx context.Context, s *Settings, p Producer, ref Reference, opts OpenOptions) (Resource, error) {
	res, err := p.Open(ctx, ref, opts)
	return recoverFromUnknown(ctx, s, p, ref, err, res, func(ctx context.Context, s *Settings, innerRef Reference) (Resource, error) {
		return OpenReference(ctx, s, innerRef, OpenOptions{})
	})
}

// Stream is Open but requests a streaming Resource.
func Stream(ctx context.Context, s *Settings, uri string, opts StreamOptions) (Resource, error) {
	ref, p, err := resolveURI(s, uri)
	if err != nil {
		return Resource{}, err
	}
	return streamWithRecovery(ctx, s, p, ref, opts)
}

// StreamReference is Stream for a caller that already holds a Reference.
func StreamReference(ctx context.Context, s *Settings, ref Reference, opts StreamOptions) (Resource, error) {
	p, err := producerForReference(s, ref)
	if err != nil {
		return Resource{}, err
	}
	return streamWithRecovery(ctx, s, p, ref, opts)
}

func streamWithRecovery(ctx context.Context, s *Settings, p Producer, ref Reference, opts StreamOptions) (Resource, error) {
	res, err := p.Stream(ctx, ref, opts)
	return recoverFromUnknown(ctx, s, p, ref, err, res, func(ctx context.Context, s *Settings, innerRef Reference) (Resource, error) {
		return StreamReference(ctx, s, innerRef, StreamOptions{})
	})
}

// recoverFromUnknown implements §4.F's cache-miss recovery path: on
// UnknownResource from a CompatibleDefault Storer, resolve the reference's
// source, recursively open (or stream) it, and ask the adapter to store the
// result back (tagged with prepareStoreRefKey), returning the Resource the
// adapter's Store produced.
func recoverFromUnknown(
	ctx context.Context, s *Settings, p Producer, ref Reference, err error, res Resource,
	openInner func(context.Context, *Settings, Reference) (Resource, error),
) (Resource, error) {
	if err == nil {
		return res, nil
	}
	if !errors.Is(err, errors.UnknownResource) {
		return Resource{}, err
	}
	storer, ok := p.(Storer)
	if !ok || storer.SourceCompatibility() != CompatibleDefault {
		return Resource{}, err
	}

	src, serr := p.Source(ctx, ref)
	if serr != nil || src == nil {
		return Resource{}, err
	}

	inner, ierr := openInner(ctx, s, *src)
	if ierr != nil {
		return Resource{}, ierr
	}

	storeOpts := StoreOptions{}.WithValue(prepareStoreRefKey, ref)
	stored, serr2 := storer.Store(ctx, inner, storeOpts)
	if serr2 != nil {
		return Resource{}, serr2
	}
	return stored, nil
}

// Exists reports whether ref's underlying resource exists.
func Exists(ctx context.Context, s *Settings, ref Reference) (bool, error) {
	p, err := producerForReference(s, ref)
	if err != nil {
		return false, err
	}
	return p.Exists(ctx, ref)
}

// Alike reports whether a and b denote the same resource identity. Per
// §4.F, this requires both sides to share an adapter.
func Alike(s *Settings, a, b Reference) bool {
	if a.Adapter != b.Adapter {
		return false
	}
	p, err := producerForReference(s, a)
	if err != nil {
		return false
	}
	return p.Alike(a, b)
}

// Source returns ref's immediately-underlying Reference, or nil if ref is a
// leaf.
func Source(ctx context.Context, s *Settings, ref Reference) (*Reference, error) {
	p, err := producerForReference(s, ref)
	if err != nil {
		return nil, err
	}
	return p.Source(ctx, ref)
}

// URI re-emits ref's canonical URI string.
func URI(s *Settings, ref Reference) (string, error) {
	p, err := producerForReference(s, ref)
	if err != nil {
		return "", err
	}
	return p.URI(ref)
}

// Attribute returns the value of a single attribute key.
func Attribute(ctx context.Context, s *Settings, ref Reference, key string) (interface{}, error) {
	p, err := producerForReference(s, ref)
	if err != nil {
		return nil, err
	}
	return p.Attribute(ctx, ref, key)
}

// Attributes returns ref's full attribute mapping.
func Attributes(ctx context.Context, s *Settings, ref Reference) (map[string]interface{}, error) {
	p, err := producerForReference(s, ref)
	if err != nil {
		return nil, err
	}
	return p.Attributes(ctx, ref)
}

// AttributeKeys returns ref's attribute key list.
func AttributeKeys(ctx context.Context, s *Settings, ref Reference) ([]string, error) {
	p, err := producerForReference(s, ref)
	if err != nil {
		return nil, err
	}
	return p.AttributeKeys(ctx, ref)
}

// Store asks resource's reference's adapter to persist resource via opts. The
// adapter must also implement Storer.
func Store(ctx context.Context, s *Settings, resource Resource, opts StoreOptions) (Resource, error) {
	p, err := producerForReference(s, resource.Reference)
	if err != nil {
		return Resource{}, err
	}
	storer, ok := p.(Storer)
	if !ok {
		return Resource{}, errors.New(errors.Internal, "adapter does not implement Storer")
	}
	return storer.Store(ctx, resource, opts)
}

// Discard removes ref's underlying persisted resource.
func Discard(ctx context.Context, s *Settings, ref Reference, opts DiscardOptions) error {
	p, err := producerForReference(s, ref)
	if err != nil {
		return err
	}
	storer, ok := p.(Storer)
	if !ok {
		return errors.New(errors.Internal, "adapter does not implement Storer")
	}
	return storer.Discard(ctx, ref, opts)
}

// wrapper is implemented by the transform producer so Transform can layer a
// new transformation on top of an existing Resource without package resx
// importing package transform (which depends on resx for its core types).
type wrapper interface {
	Wrap(inner Reference, transformer string, options map[string]interface{}) (Reference, error)
}

// Transform wraps resource's reference in a new outer resx-transform layer
// naming transformer with options, and immediately applies it by opening the
// wrapped reference.
func Transform(ctx context.Context, s *Settings, resource Resource, transformer string, options map[string]interface{}) (Resource, error) {
	p, err := producerForScheme(s, TransformScheme)
	if err != nil {
		return Resource{}, err
	}
	w, ok := p.(wrapper)
	if !ok {
		return Resource{}, errors.New(errors.Internal, "registered resx-transform producer does not support wrapping")
	}
	wrapped, err := w.Wrap(resource.Reference, transformer, options)
	if err != nil {
		return Resource{}, err
	}
	return OpenReference(ctx, s, wrapped, OpenOptions{})
}
