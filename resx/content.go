package resx

import (
	"bytes"
	"fmt"
)

// Kind distinguishes Content's two shapes.
type Kind int

const (
	// Eager content carries its payload as a byte slice.
	Eager Kind = iota
	// Streaming content carries its payload as a lazy chunk sequence.
	Streaming
)

func (k Kind) String() string {
	if k == Streaming {
		return "Streaming"
	}
	return "Eager"
}

// Reducer folds a ContentStream's chunks via step, starting from init.
type Reducer func(init interface{}, step func(acc, chunk interface{}) (interface{}, error)) (interface{}, error)

// ContentStream is a lazy producer of chunks with a single entry point,
// Reduce. Per §9, a stream is single-shot by default: a second Reduce call
// returns an error rather than silently yielding nothing.
type ContentStream struct {
	state *streamState
}

type streamState struct {
	reduce   Reducer
	consumed bool
}

// NewContentStream wraps reduce as a ContentStream.
func NewContentStream(reduce Reducer) ContentStream {
	return ContentStream{state: &streamState{reduce: reduce}}
}

// Reduce drives the stream exactly once.
func (s ContentStream) Reduce(init interface{}, step func(acc, chunk interface{}) (interface{}, error)) (interface{}, error) {
	if s.state == nil || s.state.reduce == nil {
		return nil, fmt.Errorf("content: stream has no reducer")
	}
	if s.state.consumed {
		return nil, fmt.Errorf("content: stream already consumed")
	}
	s.state.consumed = true
	return s.state.reduce(init, step)
}

// Content is the tagged-union payload carried by a Resource: either an eager
// byte slice or a lazy chunk stream, both tagged with a nonempty,
// outermost-first MIME chain.
type Content struct {
	kind   Kind
	types  []string
	data   []byte
	stream ContentStream
}

// NewEagerContent builds eager Content. types must be nonempty.
func NewEagerContent(types []string, data []byte) (Content, error) {
	if len(types) == 0 {
		return Content{}, fmt.Errorf("content: type list must not be empty")
	}
	return Content{
		kind:  Eager,
		types: append([]string(nil), types...),
		data:  append([]byte(nil), data...),
	}, nil
}

// NewStreamContent builds streaming Content. types must be nonempty.
func NewStreamContent(types []string, stream ContentStream) (Content, error) {
	if len(types) == 0 {
		return Content{}, fmt.Errorf("content: type list must not be empty")
	}
	return Content{kind: Streaming, types: append([]string(nil), types...), stream: stream}, nil
}

// Kind reports whether c is Eager or Streaming.
func (c Content) Kind() Kind { return c.kind }

// Type returns c's MIME chain, outermost type first.
func (c Content) Type() []string { return append([]string(nil), c.types...) }

// IsStream reports whether c is Streaming.
func (c Content) IsStream() bool { return c.kind == Streaming }

// Bytes returns c's eager payload. It is meaningful only when Kind() == Eager.
func (c Content) Bytes() []byte { return c.data }

// Stream returns c's lazy payload. It is meaningful only when Kind() == Streaming.
func (c Content) Stream() ContentStream { return c.stream }

// Combiner materialises a ContentStream's collected chunks into a single value.
type Combiner func(chunks []interface{}) (interface{}, error)

// DefaultCombiner concatenates byte-slice chunks into a single byte slice; if
// any chunk is not a []byte, it falls back to collecting every chunk into a
// list, per §4.A.
func DefaultCombiner(chunks []interface{}) (interface{}, error) {
	allBytes := true
	for _, c := range chunks {
		if _, ok := c.([]byte); !ok {
			allBytes = false
			break
		}
	}
	if allBytes {
		var buf bytes.Buffer
		for _, c := range chunks {
			buf.Write(c.([]byte))
		}
		return buf.Bytes(), nil
	}
	out := make([]interface{}, len(chunks))
	copy(out, chunks)
	return out, nil
}

// Data materialises c into a single value via combiner (DefaultCombiner if
// nil). Eager content is returned as-is without driving any reducer.
func Data(c Content, combiner Combiner) (interface{}, error) {
	if c.kind == Eager {
		return c.data, nil
	}
	if combiner == nil {
		combiner = DefaultCombiner
	}
	var chunks []interface{}
	_, err := c.stream.Reduce(nil, func(_ interface{}, chunk interface{}) (interface{}, error) {
		chunks = append(chunks, chunk)
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	return combiner(chunks)
}

// Materialise promotes streaming Content to Eager by invoking Data; it is the
// identity on already-eager Content.
func Materialise(c Content, combiner Combiner) (Content, error) {
	if c.kind == Eager {
		return c, nil
	}
	v, err := Data(c, combiner)
	if err != nil {
		return Content{}, err
	}
	switch b := v.(type) {
	case []byte:
		return NewEagerContent(c.types, b)
	case string:
		return NewEagerContent(c.types, []byte(b))
	default:
		return Content{}, fmt.Errorf("content: materialise: combiner result of type %T is not byte-representable", v)
	}
}

// BinaryReducer is the only built-in reducer kind (§4.A): it reduces eager
// content's raw bytes as a single chunk, or a stream's chunks (which must
// already be []byte) through step.
func BinaryReducer(c Content) Reducer {
	return func(init interface{}, step func(acc, chunk interface{}) (interface{}, error)) (interface{}, error) {
		if c.kind == Eager {
			return step(init, c.data)
		}
		return c.stream.Reduce(init, func(acc, chunk interface{}) (interface{}, error) {
			b, ok := chunk.([]byte)
			if !ok {
				return nil, fmt.Errorf("content: binary reducer received non-binary chunk of type %T", chunk)
			}
			return step(acc, b)
		})
	}
}
