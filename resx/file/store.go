package file

import (
	"bytes"
	"context"
	"os"
	"path/filepath"

	"github.com/redbco/redb-resx/resx"
	"github.com/redbco/redb-resx/resx/errors"
	"github.com/redbco/redb-resx/resx/etf"
)

// Store implements resx.Storer per §4.K.4 (cache-miss restoration, driven by
// the façade with prepareStoreRefKey already bound) and §4.K.5 (an explicit,
// caller-driven store naming a destination "path" option).
func (p *Producer) Store(ctx context.Context, resource resx.Resource, opts resx.StoreOptions) (resx.Resource, error) {
	if target, ok := resx.PrepareStoreReference(opts); ok {
		return p.storeInto(ctx, target, resource)
	}

	path := opts.String("path")
	if path == "" {
		return resx.Resource{}, errors.New(errors.InvalidReference, `store requires a "path" option`)
	}
	node := opts.String("node")
	target := resx.Reference{
		Adapter:    resx.AdapterID(Scheme),
		Repository: repository{node: node, path: path},
	}
	return p.storeInto(ctx, target, resource)
}

func (p *Producer) storeInto(ctx context.Context, target resx.Reference, resource resx.Resource) (resx.Resource, error) {
	r, err := repo(target)
	if err != nil {
		return resx.Resource{}, err
	}
	if !p.allowed(r) {
		return resx.Resource{}, errors.New(errors.InvalidReference, "protected file")
	}

	if !isLocal(p.local, r.node) {
		data, err := resx.Data(resource.Content, p.resx.Combiner())
		if err != nil {
			return resx.Resource{}, err
		}
		b, ok := data.([]byte)
		if !ok {
			return resx.Resource{}, errors.New(errors.Internal, "store: content is not byte-representable")
		}
		payload, err := etf.Encode(wireStoreRequest{Path: r.path, Data: b, Meta: map[string]interface{}(resource.Meta)})
		if err != nil {
			return resx.Resource{}, err
		}
		out, err := dispatch(ctx, p.local, r.node, "file", "store", payload)
		if err != nil {
			return resx.Resource{}, err
		}
		return decodeWireResource(target, out)
	}

	return p.writeLocal(target, r, resource)
}

func (p *Producer) writeLocal(target resx.Reference, r repository, resource resx.Resource) (resx.Resource, error) {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return resx.Resource{}, errors.Wrap(errors.Internal, "creating directory", err)
	}
	if resource.Content.IsStream() {
		return p.streamingStore(target, r, resource)
	}
	return p.eagerStore(target, r, resource)
}

// eagerStore writes the sidecar then the content file in full, per §5's
// "sidecar written strictly before the first content chunk".
func (p *Producer) eagerStore(target resx.Reference, r repository, resource resx.Resource) (resx.Resource, error) {
	b := resource.Content.Bytes()

	metaBytes, err := etf.EncodeMap(resource.Meta)
	if err != nil {
		return resx.Resource{}, errors.Wrap(errors.Internal, "encoding meta", err)
	}
	if err := os.WriteFile(r.path+".meta", metaBytes, 0o644); err != nil {
		return resx.Resource{}, errors.Wrap(errors.Internal, "writing meta sidecar", err)
	}
	if err := os.WriteFile(r.path, b, 0o644); err != nil {
		return resx.Resource{}, errors.Wrap(errors.Internal, "writing file", err)
	}

	content, err := resx.NewEagerContent(deriveMIME(r.path), b)
	if err != nil {
		return resx.Resource{}, err
	}
	p.cachePut(r, resource.Meta, content.Type(), b)
	outRef := target
	outRef.Integrity = resx.Integrity{Timestamp: modTime(r.path)}
	return resx.Resource{Reference: outRef, Content: content, Meta: resource.Meta}, nil
}

// streamingStore defers every write to the moment the caller drives the
// returned Resource's stream, per §4.K.5: the sidecar is written exactly
// once, on the first chunk, and each chunk is forwarded downstream as it is
// written.
func (p *Producer) streamingStore(target resx.Reference, r repository, resource resx.Resource) (resx.Resource, error) {
	meta := resource.Meta
	path := r.path
	input := resource.Content.Stream()

	reduce := func(init interface{}, step func(acc, chunk interface{}) (interface{}, error)) (interface{}, error) {
		f, err := os.Create(path)
		if err != nil {
			return nil, errors.Wrap(errors.Internal, "creating file", err)
		}
		defer f.Close()

		wroteMeta := false
		acc := init
		var written bytes.Buffer
		_, err = input.Reduce(nil, func(_ interface{}, chunk interface{}) (interface{}, error) {
			b, ok := chunk.([]byte)
			if !ok {
				return nil, errors.New(errors.Internal, "store: stream chunk is not binary")
			}
			if !wroteMeta {
				metaBytes, merr := etf.EncodeMap(meta)
				if merr != nil {
					return nil, errors.Wrap(errors.Internal, "encoding meta", merr)
				}
				if werr := os.WriteFile(path+".meta", metaBytes, 0o644); werr != nil {
					return nil, errors.Wrap(errors.Internal, "writing meta sidecar", werr)
				}
				wroteMeta = true
			}
			if _, werr := f.Write(b); werr != nil {
				return nil, errors.Wrap(errors.Internal, "writing file", werr)
			}
			written.Write(b)
			var serr error
			acc, serr = step(acc, b)
			return nil, serr
		})
		if err != nil {
			return nil, err
		}
		p.cachePut(r, meta, resource.Content.Type(), written.Bytes())
		return acc, nil
	}

	content, err := resx.NewStreamContent(resource.Content.Type(), resx.NewContentStream(reduce))
	if err != nil {
		return resx.Resource{}, err
	}
	return resx.Resource{Reference: target, Content: content, Meta: meta}, nil
}

// Discard implements resx.Storer per §4.K.5: removes the content file, the
// meta sidecar, or both, selected via the "content"/"meta" boolean options
// (both default true).
func (p *Producer) Discard(ctx context.Context, ref resx.Reference, opts resx.DiscardOptions) error {
	r, err := repo(ref)
	if err != nil {
		return err
	}
	if !p.allowed(r) {
		return errors.New(errors.InvalidReference, "protected file")
	}

	removeContent, removeMeta := discardFlags(opts)

	if !isLocal(p.local, r.node) {
		payload, err := etf.Encode(wireDiscardRequest{Path: r.path, RemoveContent: removeContent, RemoveMeta: removeMeta})
		if err != nil {
			return err
		}
		_, err = dispatch(ctx, p.local, r.node, "file", "discard", payload)
		return err
	}

	return discardLocal(r.path, removeContent, removeMeta)
}

func discardFlags(opts resx.DiscardOptions) (removeContent, removeMeta bool) {
	removeContent, removeMeta = true, true
	if v, ok := opts.Get("content"); ok {
		if b, ok := v.(bool); ok {
			removeContent = b
		}
	}
	if v, ok := opts.Get("meta"); ok {
		if b, ok := v.(bool); ok {
			removeMeta = b
		}
	}
	return removeContent, removeMeta
}

func discardLocal(path string, removeContent, removeMeta bool) error {
	var first error
	if removeContent {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			first = err
		}
	}
	if removeMeta {
		if err := os.Remove(path + ".meta"); err != nil && !os.IsNotExist(err) && first == nil {
			first = err
		}
	}
	if first != nil {
		return errors.Wrap(errors.Internal, "discard", first)
	}
	return nil
}
