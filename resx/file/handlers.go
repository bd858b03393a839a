package file

import (
	"context"

	"github.com/redbco/redb-resx/resx"
	"github.com/redbco/redb-resx/resx/etf"
)

// RegisterHandlers binds p's remote methods (open, stream, exists,
// attributes, store, discard) into reg, so a GRPCDispatcher peer reaches the
// exact same local logic p.Open etc. run for a local caller — a remote
// request is just a (path, node="") reference resolved on the receiving
// node, re-running its own access-matrix check per §4.K.2.
func (p *Producer) RegisterHandlers(reg *ServerRegistry) {
	reg.Register("file", "open", p.handleOpen)
	reg.Register("file", "stream", p.handleStream)
	reg.Register("file", "exists", p.handleExists)
	reg.Register("file", "attributes", p.handleAttributes)
	reg.Register("file", "store", p.handleStore)
	reg.Register("file", "discard", p.handleDiscard)
}

func localRef(path string) resx.Reference {
	return resx.Reference{Adapter: resx.AdapterID(Scheme), Repository: repository{path: path}}
}

func (p *Producer) handleOpen(ctx context.Context, args []byte) ([]byte, error) {
	var req wirePathRequest
	if err := etf.Decode(args, &req); err != nil {
		return nil, err
	}
	ref := localRef(req.Path)
	resource, err := p.Open(ctx, ref, resx.OpenOptions{})
	if err != nil {
		return nil, err
	}
	return encodeWireResource(p.resx, resource)
}

func (p *Producer) handleStream(ctx context.Context, args []byte) ([]byte, error) {
	var req wirePathRequest
	if err := etf.Decode(args, &req); err != nil {
		return nil, err
	}
	resource, err := p.Stream(ctx, localRef(req.Path), resx.StreamOptions{})
	if err != nil {
		return nil, err
	}
	data, err := resx.Materialise(resource.Content, p.resx.Combiner())
	if err != nil {
		return nil, err
	}
	return etf.Encode(wireBytesResponse{Value: data.Bytes()})
}

func (p *Producer) handleExists(ctx context.Context, args []byte) ([]byte, error) {
	var req wirePathRequest
	if err := etf.Decode(args, &req); err != nil {
		return nil, err
	}
	ok, err := p.Exists(ctx, localRef(req.Path))
	if err != nil {
		return nil, err
	}
	return etf.Encode(wireBoolResponse{Value: ok})
}

func (p *Producer) handleAttributes(ctx context.Context, args []byte) ([]byte, error) {
	var req wirePathRequest
	if err := etf.Decode(args, &req); err != nil {
		return nil, err
	}
	attrs, err := p.Attributes(ctx, localRef(req.Path))
	if err != nil {
		return nil, err
	}
	return etf.EncodeMap(attrs)
}

func (p *Producer) handleStore(ctx context.Context, args []byte) ([]byte, error) {
	var req wireStoreRequest
	if err := etf.Decode(args, &req); err != nil {
		return nil, err
	}
	content, err := resx.NewEagerContent(deriveMIME(req.Path), req.Data)
	if err != nil {
		return nil, err
	}
	resource := resx.Resource{Content: content, Meta: resx.Meta(req.Meta)}
	stored, err := p.storeInto(ctx, localRef(req.Path), resource)
	if err != nil {
		return nil, err
	}
	return encodeWireResource(p.resx, stored)
}

func (p *Producer) handleDiscard(ctx context.Context, args []byte) ([]byte, error) {
	var req wireDiscardRequest
	if err := etf.Decode(args, &req); err != nil {
		return nil, err
	}
	opts := resx.DiscardOptions{}.WithValue("content", req.RemoveContent).WithValue("meta", req.RemoveMeta)
	if err := p.Discard(ctx, localRef(req.Path), opts); err != nil {
		return nil, err
	}
	return etf.Encode(wireBoolResponse{Value: true})
}
