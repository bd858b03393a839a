package file

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/redbco/redb-resx/pkg/config"
	"github.com/redbco/redb-resx/pkg/logger"
	"github.com/redbco/redb-resx/resx/errors"
	"github.com/redbco/redb-resx/resx/etf"
)

const dispatchMethod = "/resx.rpc.Dispatch/Call"

// grpcServiceHandler is the hand-rolled counterpart to a protoc-generated
// server interface: the single RPC this package needs, `Call`, carrying an
// opaque ETF-encoded envelope in both directions (§4.O).
type grpcServiceHandler interface {
	call(ctx context.Context, req *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
}

var dispatchServiceDesc = grpc.ServiceDesc{
	ServiceName: "resx.rpc.Dispatch",
	HandlerType: (*grpcServiceHandler)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Call",
			Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
				in := new(wrapperspb.BytesValue)
				if err := dec(in); err != nil {
					return nil, err
				}
				if interceptor == nil {
					return srv.(grpcServiceHandler).call(ctx, in)
				}
				info := &grpc.UnaryServerInfo{Server: srv, FullMethod: dispatchMethod}
				handler := func(ctx context.Context, req interface{}) (interface{}, error) {
					return srv.(grpcServiceHandler).call(ctx, req.(*wrapperspb.BytesValue))
				}
				return interceptor(ctx, in, info, handler)
			},
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "resx/rpc.proto",
}

// ServerRegistry maps (module, function) pairs to local handler funcs. The
// file producer populates one with its own open/stream/exists/attributes/
// store/discard remote methods; RegisterServer exposes it over gRPC.
type ServerRegistry struct {
	mu    sync.RWMutex
	funcs map[string]func(ctx context.Context, args []byte) ([]byte, error)
}

// NewServerRegistry returns an empty ServerRegistry.
func NewServerRegistry() *ServerRegistry {
	return &ServerRegistry{funcs: make(map[string]func(context.Context, []byte) ([]byte, error))}
}

// Register binds (module, function) to fn.
func (r *ServerRegistry) Register(module, function string, fn func(ctx context.Context, args []byte) ([]byte, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[module+"/"+function] = fn
}

func (r *ServerRegistry) call(ctx context.Context, module, function string, args []byte) ([]byte, error) {
	r.mu.RLock()
	fn, ok := r.funcs[module+"/"+function]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.Newf(errors.Internal, "no such remote method %s/%s", module, function)
	}
	return fn(ctx, args)
}

// Call is the exported counterpart to call, for Dispatcher test doubles (and
// any in-process transport) that route directly into a ServerRegistry
// without going through gRPC.
func (r *ServerRegistry) Call(ctx context.Context, module, function string, args []byte) ([]byte, error) {
	return r.call(ctx, module, function, args)
}

type grpcServer struct {
	registry *ServerRegistry
}

// RegisterServer registers registry's methods against s as the
// resx.rpc.Dispatch gRPC service.
func RegisterServer(s *grpc.Server, registry *ServerRegistry) {
	s.RegisterService(&dispatchServiceDesc, &grpcServer{registry: registry})
}

func (g *grpcServer) call(ctx context.Context, req *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	var env callEnvelope
	if err := etf.Decode(req.Value, &env); err != nil {
		return nil, err
	}
	result, err := g.registry.call(ctx, env.Module, env.Function, env.Args)
	resp := resultEnvelope{Result: result}
	if err != nil {
		kind, ok := errors.KindOf(err)
		if !ok {
			kind = errors.Internal
		}
		resp.HasError = true
		resp.ErrKind = int(kind)
		resp.ErrDetail = err.Error()
	}
	encoded, encErr := etf.Encode(resp)
	if encErr != nil {
		return nil, encErr
	}
	return &wrapperspb.BytesValue{Value: encoded}, nil
}

// GRPCDispatcher is the gRPC-backed ambient Dispatcher (§4.O): it dials each
// remote node's address on first use, with the same keepalive/dial-timeout
// shape as the teacher's pkg/grpc.NewClient, and reuses the connection
// thereafter.
type GRPCDispatcher struct {
	mu        sync.Mutex
	addresses map[string]string
	conns     map[string]*grpc.ClientConn
	log       *logger.Logger

	KeepaliveTime    time.Duration
	KeepaliveTimeout time.Duration
	DialTimeout      time.Duration
}

// NewGRPCDispatcher returns a GRPCDispatcher resolving node identifiers to
// dial addresses via addresses.
func NewGRPCDispatcher(addresses map[string]string) *GRPCDispatcher {
	return &GRPCDispatcher{
		addresses:        addresses,
		conns:            make(map[string]*grpc.ClientConn),
		KeepaliveTime:    10 * time.Second,
		KeepaliveTimeout: 3 * time.Second,
		DialTimeout:      10 * time.Second,
	}
}

// NewGRPCDispatcherFromConfig builds a GRPCDispatcher's node address book
// from cfg, reading every "node.<id>.address" key — the same
// restart-key-aware pkg/config.Config the rest of the teacher's services use
// to resolve their own peers at startup, applied here to the RPC hook's
// address book instead of a service's own listen address.
func NewGRPCDispatcherFromConfig(cfg *config.Config) *GRPCDispatcher {
	const prefix, suffix = "node.", ".address"
	addresses := make(map[string]string)
	for key, value := range cfg.GetAll() {
		if !strings.HasPrefix(key, prefix) || !strings.HasSuffix(key, suffix) {
			continue
		}
		node := strings.TrimSuffix(strings.TrimPrefix(key, prefix), suffix)
		if node == "" || value == "" {
			continue
		}
		addresses[node] = value
	}
	return NewGRPCDispatcher(addresses)
}

// SetLogger attaches an optional structured logger, used to trace dial
// attempts, failures, and connection teardown — the same lifecycle logging
// the teacher's own service layer does around its gRPC clients.
func (d *GRPCDispatcher) SetLogger(l *logger.Logger) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.log = l
}

func (d *GRPCDispatcher) connFor(ctx context.Context, node string) (*grpc.ClientConn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if conn, ok := d.conns[node]; ok {
		return conn, nil
	}
	addr, ok := d.addresses[node]
	if !ok {
		return nil, fmt.Errorf("grpc dispatcher: no address configured for node %q", node)
	}

	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                d.KeepaliveTime,
			Timeout:             d.KeepaliveTimeout,
			PermitWithoutStream: true,
		}),
	}
	dialCtx := ctx
	if d.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, d.DialTimeout)
		defer cancel()
		dialOpts = append(dialOpts, grpc.WithBlock())
	}

	conn, err := grpc.DialContext(dialCtx, addr, dialOpts...)
	if err != nil {
		if d.log != nil {
			d.log.Errorf("dial node %s at %s: %v", node, addr, err)
		}
		return nil, err
	}
	if d.log != nil {
		d.log.Infof("dialed node %s at %s", node, addr)
	}
	d.conns[node] = conn
	return conn, nil
}

// Call implements Dispatcher.
func (d *GRPCDispatcher) Call(ctx context.Context, node, module, function string, args []byte) ([]byte, error) {
	conn, err := d.connFor(ctx, node)
	if err != nil {
		return nil, errors.Wrap(errors.Internal, "rpc dial", err)
	}

	encoded, err := etf.Encode(callEnvelope{Module: module, Function: function, Args: args})
	if err != nil {
		return nil, errors.Wrap(errors.Internal, "rpc encode", err)
	}

	resp := new(wrapperspb.BytesValue)
	if err := conn.Invoke(ctx, dispatchMethod, &wrapperspb.BytesValue{Value: encoded}, resp); err != nil {
		return nil, errors.Wrap(errors.Internal, "rpc transport", err)
	}

	var result resultEnvelope
	if err := etf.Decode(resp.Value, &result); err != nil {
		return nil, errors.Wrap(errors.Internal, "rpc decode", err)
	}
	if result.HasError {
		return nil, &errors.Error{Kind: errors.Kind(result.ErrKind), Detail: result.ErrDetail}
	}
	return result.Result, nil
}

// Close tears down every cached connection.
func (d *GRPCDispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var first error
	for node, conn := range d.conns {
		if err := conn.Close(); err != nil {
			if d.log != nil {
				d.log.Errorf("closing connection to node %s: %v", node, err)
			}
			if first == nil {
				first = err
			}
		}
	}
	if d.log != nil && len(d.conns) > 0 {
		d.log.Infof("closed %d node connections", len(d.conns))
	}
	d.conns = make(map[string]*grpc.ClientConn)
	return first
}
