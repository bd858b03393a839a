package file

import (
	"sync"

	"github.com/redbco/redb-resx/resx/callback"
)

// CacheLayer is the optional second-tier cache consulted during source-backed
// restoration (§4.N), ahead of driving the source stream.
type CacheLayer interface {
	Get(key string) ([]byte, bool, error)
	Put(key string, data []byte) error
}

// Settings is the file producer's process-wide, mutex-guarded configuration:
// local node identity, access matrix, and RPC dispatch hook, read fresh on
// every operation per §5's "Shared resources" — never cached, exactly like
// the teacher's pkg/config.Config and the core resx.Settings.
type Settings struct {
	mu sync.RWMutex

	localNode string
	matrix    Matrix

	rpc         callback.Descriptor
	hasRPC      bool
	rpcRegistry callback.Registry
	dispatcher  Dispatcher

	cache CacheLayer
}

// NewSettings returns Settings with an empty matrix (denying every file:
// reference), no RPC hook and no ambient Dispatcher: remote operations fail
// until one is configured via SetRPC or SetDispatcher (for example a
// GRPCDispatcher).
func NewSettings(localNode string) *Settings {
	return &Settings{localNode: localNode}
}

// LocalNode returns the configured local node identifier.
func (s *Settings) LocalNode() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.localNode
}

// SetMatrix replaces the access matrix.
func (s *Settings) SetMatrix(m Matrix) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matrix = m
}

// Matrix returns the configured access matrix.
func (s *Settings) Matrix() Matrix {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.matrix
}

// SetRPC configures an explicit callback.Descriptor (§4.C) as the RPC hook,
// resolved against reg at call time. Passing a zero Descriptor clears it,
// reverting to the ambient Dispatcher.
func (s *Settings) SetRPC(d callback.Descriptor, reg callback.Registry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rpc = d
	s.hasRPC = d.Fn != nil || d.Module != "" || d.Function != ""
	s.rpcRegistry = reg
}

// RPC returns the configured callback descriptor and registry, if any.
func (s *Settings) RPC() (callback.Descriptor, callback.Registry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rpc, s.rpcRegistry, s.hasRPC
}

// SetDispatcher configures the ambient runtime RPC used when no explicit
// callback descriptor is set via SetRPC.
func (s *Settings) SetDispatcher(d Dispatcher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dispatcher = d
}

// Dispatcher returns the configured ambient dispatcher, or nil.
func (s *Settings) Dispatcher() Dispatcher {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dispatcher
}

// SetCache configures the optional second-tier cache layer.
func (s *Settings) SetCache(c CacheLayer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = c
}

// Cache returns the configured cache layer, or nil.
func (s *Settings) Cache() CacheLayer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache
}
