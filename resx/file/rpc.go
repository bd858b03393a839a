package file

import (
	"context"

	"github.com/redbco/redb-resx/resx/callback"
	"github.com/redbco/redb-resx/resx/errors"
)

// Dispatcher is the ambient runtime RPC (§4.K.3's "default = runtime RPC"):
// it invokes (module, function, args) on the named remote node and returns
// its result, or an error already normalised into the resx taxonomy. Args
// and the result are opaque payloads the caller has already serialised
// (producer.go uses resx/etf), so the dispatch layer never needs to
// interpret application-level types generically.
type Dispatcher interface {
	Call(ctx context.Context, node, module, function string, args []byte) ([]byte, error)
}

// callEnvelope and resultEnvelope are the wire shapes exchanged by
// GRPCDispatcher, ETF-encoded (msgpack) inside a wrapperspb.BytesValue.
type callEnvelope struct {
	Module   string
	Function string
	Args     []byte
}

type resultEnvelope struct {
	Result    []byte
	ErrKind   int
	ErrDetail string
	HasError  bool
}

// dispatch resolves the configured RPC hook (an explicit callback.Descriptor,
// falling back to the ambient Dispatcher) and invokes it, per §4.K.3. It is
// the single place local/remote routing happens: callers never need to know
// which path was taken.
func dispatch(ctx context.Context, s *Settings, node, module, function string, args []byte) ([]byte, error) {
	if d, reg, ok := s.RPC(); ok {
		v, err := callback.Call(reg, d, []interface{}{node, module, function, args}, callback.Required)
		if err != nil {
			return nil, errors.Wrap(errors.Internal, "rpc dispatch", err)
		}
		b, ok := v.([]byte)
		if !ok {
			return nil, errors.New(errors.Internal, "rpc callback did not return a byte payload")
		}
		return b, nil
	}
	d := s.Dispatcher()
	if d == nil {
		return nil, errors.New(errors.Internal, "no RPC dispatcher configured for remote node")
	}
	return d.Call(ctx, node, module, function, args)
}

// isLocal reports whether node denotes the calling process itself, per
// §4.K.1: empty or "localhost" is local, anything else is a remote node
// identifier compared against the configured local node.
func isLocal(s *Settings, node string) bool {
	if node == "" || node == "localhost" {
		return true
	}
	return node == s.LocalNode()
}
