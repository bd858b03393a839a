package resx

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"fmt"
	"hash"
)

// HashRequest names the hashing algorithm to apply in Hash. Exactly one of
// three forms is used: Algorithm alone (a built-in, fixed-digest algorithm);
// Algorithm+Init/Update/Final (an incremental callback quadruple driven over
// stream chunks); or Algorithm+WholeBuffer (a callback pair driven over the
// whole materialised buffer).
type HashRequest struct {
	Algorithm string

	Init   func() interface{}
	Update func(state interface{}, chunk []byte) (interface{}, error)
	Final  func(state interface{}) ([]byte, error)

	WholeBuffer func(data []byte) ([]byte, error)
}

type hasherSpec struct {
	Init   func() interface{}
	Update func(state interface{}, chunk []byte) (interface{}, error)
	Final  func(state interface{}) ([]byte, error)
}

func newHashState(h func() hash.Hash) hasherSpec {
	return hasherSpec{
		Init: func() interface{} { return h() },
		Update: func(state interface{}, chunk []byte) (interface{}, error) {
			state.(hash.Hash).Write(chunk)
			return state, nil
		},
		Final: func(state interface{}) ([]byte, error) {
			return state.(hash.Hash).Sum(nil), nil
		},
	}
}

var builtinHashers = map[string]hasherSpec{
	"sha256": newHashState(sha256.New),
	"md5":    newHashState(md5.New),
}

// Hash computes (or returns the already-embedded) checksum of r for the
// requested algorithm, per §4.F.3. If r's Reference already carries a
// checksum for the same algorithm, it is returned unchanged (the
// short-circuit). Meta is never hashed.
func Hash(ctx context.Context, s *Settings, r Resource, req HashRequest) (Checksum, error) {
	if r.Reference.Integrity.Checksum != nil && r.Reference.Integrity.Checksum.Algorithm == req.Algorithm {
		return *r.Reference.Integrity.Checksum, nil
	}

	if req.WholeBuffer != nil {
		v, err := Data(r.Content, s.Combiner())
		if err != nil {
			return Checksum{}, err
		}
		b, ok := v.([]byte)
		if !ok {
			return Checksum{}, fmt.Errorf("hash: whole-buffer algorithm %q requires byte-representable content", req.Algorithm)
		}
		digest, err := req.WholeBuffer(b)
		if err != nil {
			return Checksum{}, err
		}
		return Checksum{Algorithm: req.Algorithm, Digest: digest}, nil
	}

	init, update, final := req.Init, req.Update, req.Final
	if init == nil || update == nil || final == nil {
		spec, ok := builtinHashers[req.Algorithm]
		if !ok {
			return Checksum{}, fmt.Errorf("hash: unknown algorithm %q", req.Algorithm)
		}
		init, update, final = spec.Init, spec.Update, spec.Final
	}

	reducer := BinaryReducer(r.Content)
	if remap := s.ReducerFor(r.Content); remap != nil {
		reducer = remap(r.Content)
	}

	state := init()
	_, err := reducer(nil, func(_ interface{}, chunk interface{}) (interface{}, error) {
		b, ok := chunk.([]byte)
		if !ok {
			return nil, fmt.Errorf("hash: reducer produced non-binary chunk of type %T", chunk)
		}
		var uerr error
		state, uerr = update(state, b)
		return nil, uerr
	})
	if err != nil {
		return Checksum{}, err
	}

	digest, err := final(state)
	if err != nil {
		return Checksum{}, err
	}
	return Checksum{Algorithm: req.Algorithm, Digest: digest}, nil
}
