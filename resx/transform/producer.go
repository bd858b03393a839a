package transform

import (
	"context"
	"reflect"
	"time"

	"github.com/redbco/redb-resx/resx"
	"github.com/redbco/redb-resx/resx/errors"
)

// Producer implements resx.Producer for the resx-transform: scheme (§4.H). It
// does not implement resx.Storer: transformed references have no persisted
// form of their own to recover into, only the inner reference does.
type Producer struct {
	settings *resx.Settings
	registry *Registry
}

// New returns a transform producer that resolves inner URIs of arbitrary
// other schemes via settings, and transformer names via registry.
func New(settings *resx.Settings, registry *Registry) *Producer {
	return &Producer{settings: settings, registry: registry}
}

// Registry exposes the producer's backing Registry, e.g. for registering
// additional transformers at runtime.
func (p *Producer) Registry() *Registry { return p.registry }

// Schemes implements resx.Producer.
func (*Producer) Schemes() []string { return []string{Scheme} }

// Open implements resx.Producer: it opens the inner reference, applies the
// named Transformer, and stamps the result with a fresh timestamp and no
// checksum, per §4.H's operational contract.
func (p *Producer) Open(ctx context.Context, ref resx.Reference, _ resx.OpenOptions) (resx.Resource, error) {
	r, err := repo(ref)
	if err != nil {
		return resx.Resource{}, err
	}
	inner, err := resx.OpenReference(ctx, p.settings, r.inner, resx.OpenOptions{})
	if err != nil {
		return resx.Resource{}, err
	}
	return p.apply(ctx, ref, r, inner)
}

// Stream implements resx.Producer analogously to Open, over the inner
// reference's streaming form.
func (p *Producer) Stream(ctx context.Context, ref resx.Reference, _ resx.StreamOptions) (resx.Resource, error) {
	r, err := repo(ref)
	if err != nil {
		return resx.Resource{}, err
	}
	inner, err := resx.StreamReference(ctx, p.settings, r.inner, resx.StreamOptions{})
	if err != nil {
		return resx.Resource{}, err
	}
	return p.apply(ctx, ref, r, inner)
}

func (p *Producer) apply(ctx context.Context, ref resx.Reference, r repository, inner resx.Resource) (resx.Resource, error) {
	t, ok := p.registry.Get(r.transformer)
	if !ok {
		return resx.Resource{}, errors.Newf(errors.InvalidReference, "transformation (%s) does not exist", r.transformer)
	}
	out, err := t.Transform(ctx, inner, r.options)
	if err != nil {
		return resx.Resource{}, err
	}
	out.Reference = ref
	out.Reference.Integrity = resx.Integrity{Timestamp: time.Now()}
	return out, nil
}

// Exists implements resx.Producer by delegating to the inner reference: a
// transformation exists iff its source does.
func (p *Producer) Exists(ctx context.Context, ref resx.Reference) (bool, error) {
	r, err := repo(ref)
	if err != nil {
		return false, err
	}
	return resx.Exists(ctx, p.settings, r.inner)
}

// Alike implements resx.Producer: two transform references are alike iff
// every layer names the same transformer with equal options, down to alike
// inner references.
func (p *Producer) Alike(a, b resx.Reference) bool {
	ra, erra := repo(a)
	rb, errb := repo(b)
	if erra != nil || errb != nil {
		return false
	}
	if ra.transformer != rb.transformer {
		return false
	}
	if !reflect.DeepEqual(ra.options, rb.options) {
		return false
	}
	return resx.Alike(p.settings, ra.inner, rb.inner)
}

// Source implements resx.Producer: a transformation's source is its inner
// reference.
func (p *Producer) Source(_ context.Context, ref resx.Reference) (*resx.Reference, error) {
	r, err := repo(ref)
	if err != nil {
		return nil, err
	}
	return &r.inner, nil
}

// Attribute implements resx.Producer by delegating to the inner reference,
// plus the synthetic "transformer" key naming the outermost layer.
func (p *Producer) Attribute(ctx context.Context, ref resx.Reference, key string) (interface{}, error) {
	r, err := repo(ref)
	if err != nil {
		return nil, err
	}
	if key == "transformer" {
		return r.transformer, nil
	}
	return resx.Attribute(ctx, p.settings, r.inner, key)
}

// Attributes implements resx.Producer.
func (p *Producer) Attributes(ctx context.Context, ref resx.Reference) (map[string]interface{}, error) {
	r, err := repo(ref)
	if err != nil {
		return nil, err
	}
	inner, err := resx.Attributes(ctx, p.settings, r.inner)
	if err != nil {
		return nil, err
	}
	out := make(map[string]interface{}, len(inner)+1)
	for k, v := range inner {
		out[k] = v
	}
	out["transformer"] = r.transformer
	return out, nil
}

// AttributeKeys implements resx.Producer.
func (p *Producer) AttributeKeys(ctx context.Context, ref resx.Reference) ([]string, error) {
	r, err := repo(ref)
	if err != nil {
		return nil, err
	}
	inner, err := resx.AttributeKeys(ctx, p.settings, r.inner)
	if err != nil {
		return nil, err
	}
	return append(inner, "transformer"), nil
}
