package resx

import "sync"

// Settings is the process-wide scheme dispatcher and default-hash
// configuration (§4.E, §6). Like the teacher's pkg/config.Config, it is a
// mutex-guarded map read fresh on every call — no caching — so a mid-call
// reconfiguration (e.g. swapping a producer, or flipping an access matrix) is
// observed by the very next operation.
type Settings struct {
	mu sync.RWMutex

	producers map[string]Producer // scheme -> producer

	hashDefault string
	combiner    Combiner
	reducerFor  func(mimeTypes []string) func(Content) Reducer
}

// NewSettings returns an empty Settings with no registered producers.
func NewSettings() *Settings {
	return &Settings{producers: make(map[string]Producer)}
}

// RegisterProducer merges p's declared Schemes() (or the explicit schemes
// list, if given) into the scheme->producer mapping, overwriting any
// existing binding for those schemes. This is the "merging over the
// defaults" operation of §4.E.
func (s *Settings) RegisterProducer(p Producer, schemes ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := schemes
	if len(list) == 0 {
		list = p.Schemes()
	}
	for _, scheme := range list {
		s.producers[scheme] = p
	}
}

// RegisterScheme binds a single explicit (scheme, producer) pair.
func (s *Settings) RegisterScheme(scheme string, p Producer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.producers[scheme] = p
}

// ProducerForScheme returns the producer bound to scheme, if any.
func (s *Settings) ProducerForScheme(scheme string) (Producer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.producers[scheme]
	return p, ok
}

// SetHashDefault sets the default hash algorithm name used by Finalise.
func (s *Settings) SetHashDefault(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hashDefault = name
}

// HashDefault returns the configured default hash algorithm name, or "" if
// none is set.
func (s *Settings) HashDefault() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hashDefault
}

// SetCombiner sets the process-wide content_combiner.
func (s *Settings) SetCombiner(c Combiner) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.combiner = c
}

// Combiner returns the configured content_combiner, or nil if none is set
// (callers should then fall back to DefaultCombiner).
func (s *Settings) Combiner() Combiner {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.combiner
}

// SetReducerFor sets the process-wide content_reducer: a callback that may
// remap the binary reducer per media type (e.g. to serialise a structured
// payload before hashing). Returning nil from fn means "use BinaryReducer".
func (s *Settings) SetReducerFor(fn func(mimeTypes []string) func(Content) Reducer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reducerFor = fn
}

// ReducerFor resolves the reducer for c's media type via the configured
// content_reducer, or nil if none is configured or it declines to remap.
func (s *Settings) ReducerFor(c Content) func(Content) Reducer {
	s.mu.RLock()
	fn := s.reducerFor
	s.mu.RUnlock()
	if fn == nil {
		return nil
	}
	return fn(c.Type())
}
