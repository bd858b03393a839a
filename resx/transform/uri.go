package transform

import (
	"encoding/base64"
	"strings"

	"github.com/redbco/redb-resx/resx"
	"github.com/redbco/redb-resx/resx/errors"
	"github.com/redbco/redb-resx/resx/etf"
)

// Scheme is the URI scheme this producer owns: resx-transform, aliased from
// resx.TransformScheme so the two never drift apart.
const Scheme = resx.TransformScheme

// repository is resx-transform's adapter-private Repository: one layer of a
// left-deep chain of (transformer name, options, inner reference) triples,
// per §4.H. The innermost ref is some other scheme's Reference.
type repository struct {
	transformer string
	options     map[string]interface{}
	inner       resx.Reference
}

func repo(ref resx.Reference) (repository, error) {
	r, ok := ref.Repository.(repository)
	if !ok {
		return repository{}, errors.New(errors.InvalidReference, "reference is not a resx-transform: reference")
	}
	return r, nil
}

// Parse decodes a resx-transform: URI of the form
// "resx-transform:T_n[:B64opts],...,T_1[:B64opts],B64(inner_uri)" into a
// left-deep chain of References, with T_n (the first-listed transformer) as
// the outermost layer, per §4.H.
func (p *Producer) Parse(uri string) (resx.Reference, error) {
	rest, ok := strings.CutPrefix(uri, Scheme+":")
	if !ok {
		return resx.Reference{}, errors.New(errors.InvalidReference, "not a resx-transform: URI")
	}

	segments := strings.Split(rest, ",")
	if len(segments) < 2 {
		return resx.Reference{}, errors.New(errors.InvalidReference, "resx-transform URI needs at least one transformer and an inner URI")
	}

	innerURI, err := decodeBase64Segment(segments[len(segments)-1])
	if err != nil {
		return resx.Reference{}, errors.Wrap(errors.InvalidReference, "inner URI is not base64", err)
	}
	ref, err := resx.ParseURI(p.settings, string(innerURI))
	if err != nil {
		return resx.Reference{}, err
	}

	for i := len(segments) - 2; i >= 0; i-- {
		name, opts, err := parseSegment(segments[i])
		if err != nil {
			return resx.Reference{}, err
		}
		if _, ok := p.registry.Get(name); !ok {
			return resx.Reference{}, errors.Newf(errors.InvalidReference, "transformation (%s) does not exist", name)
		}
		ref = resx.Reference{
			Adapter:    resx.AdapterID(Scheme),
			Repository: repository{transformer: name, options: opts, inner: ref},
		}
	}
	return ref, nil
}

// parseSegment decodes one "name[:b64(options)]" segment.
func parseSegment(seg string) (string, map[string]interface{}, error) {
	name, rawOpts, hasOpts := strings.Cut(seg, ":")
	if name == "" {
		return "", nil, errors.New(errors.InvalidReference, "resx-transform URI has an empty transformer name")
	}
	if !hasOpts {
		return name, nil, nil
	}
	encoded, err := decodeBase64Segment(rawOpts)
	if err != nil {
		return "", nil, errors.Wrap(errors.InvalidReference, "transformer options are not base64", err)
	}
	opts, err := etf.DecodeMap(encoded)
	if err != nil {
		return "", nil, errors.Wrap(errors.InvalidReference, "transformer options are not a decodable term map", err)
	}
	return name, opts, nil
}

func decodeBase64Segment(seg string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(seg)
}

// URI re-emits ref's canonical resx-transform: URI by walking the chain
// outermost-first until it reaches a non-transform leaf reference, then
// delegating that leaf's own URI.
func (p *Producer) URI(ref resx.Reference) (string, error) {
	var segs []string
	cur := ref
	for {
		r, ok := cur.Repository.(repository)
		if !ok {
			break
		}
		seg := r.transformer
		if len(r.options) > 0 {
			encoded, err := etf.EncodeMap(r.options)
			if err != nil {
				return "", err
			}
			seg += ":" + base64.StdEncoding.EncodeToString(encoded)
		}
		segs = append(segs, seg)
		cur = r.inner
	}
	innerURI, err := resx.URI(p.settings, cur)
	if err != nil {
		return "", err
	}
	segs = append(segs, base64.StdEncoding.EncodeToString([]byte(innerURI)))
	return Scheme + ":" + strings.Join(segs, ","), nil
}

// Wrap builds one new outermost repository layer around inner, naming
// transformer with options. It is the half of Transform's contract that
// belongs to this producer; resx.Transform (facade.go) calls it through the
// unexported wrapper interface and then opens the result.
func (p *Producer) Wrap(inner resx.Reference, transformer string, options map[string]interface{}) (resx.Reference, error) {
	if _, ok := p.registry.Get(transformer); !ok {
		return resx.Reference{}, errors.Newf(errors.InvalidReference, "transformation (%s) does not exist", transformer)
	}
	return resx.Reference{
		Adapter:    resx.AdapterID(Scheme),
		Repository: repository{transformer: transformer, options: options, inner: inner},
	}, nil
}
