// Package file implements the file:// producer/store (§4.K): the largest
// and most intricate component, covering reference parsing, a configurable
// access matrix, distributed dispatch to remote nodes, and source-backed
// cache-miss restoration.
package file

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/redbco/redb-resx/resx"
	"github.com/redbco/redb-resx/resx/errors"
)

// Scheme is the URI scheme this producer owns.
const Scheme = "file"

// repository is file:'s adapter-private Repository: (node, path, optional
// source reference) per §4.K.
type repository struct {
	node   string
	path   string
	source *resx.Reference
}

// Producer implements resx.Producer and resx.Storer for the file: scheme. It
// holds a reference to the core resx.Settings (to resolve an embedded
// source='s scheme and to recurse into it) and its own Settings (node
// identity, access matrix, RPC hook, cache).
type Producer struct {
	resx  *resx.Settings
	local *Settings
}

// New returns a file producer. resxSettings resolves source= URIs of
// arbitrary schemes; localSettings configures this node's identity, access
// matrix, RPC hook, and optional cache layer.
func New(resxSettings *resx.Settings, localSettings *Settings) *Producer {
	return &Producer{resx: resxSettings, local: localSettings}
}

// Schemes implements resx.Producer.
func (*Producer) Schemes() []string { return []string{Scheme} }

// SourceCompatibility implements resx.Storer: file references recover from
// UnknownResource through the façade's default cache-miss path (§4.F), which
// then defers to this producer's own Store for the actual restoration write.
func (*Producer) SourceCompatibility() resx.SourceCompatibility { return resx.CompatibleDefault }

func repo(ref resx.Reference) (repository, error) {
	r, ok := ref.Repository.(repository)
	if !ok {
		return repository{}, errors.New(errors.InvalidReference, "reference is not a file: reference")
	}
	return r, nil
}

// Parse decodes a file: URI per §4.K.1:
// file://[user@host][/absolute/path][?source=B64(inner_uri)].
func (p *Producer) Parse(uri string) (resx.Reference, error) {
	rest, ok := strings.CutPrefix(uri, Scheme+"://")
	if !ok {
		return resx.Reference{}, errors.New(errors.InvalidReference, "not a file: URI")
	}

	authority := rest
	remainder := ""
	if idx := strings.IndexAny(rest, "/?"); idx >= 0 {
		authority = rest[:idx]
		remainder = rest[idx:]
	}

	node := ""
	if authority != "" && authority != "localhost" {
		node = authority
	}

	path := remainder
	query := ""
	if qi := strings.IndexByte(remainder, '?'); qi >= 0 {
		path = remainder[:qi]
		query = remainder[qi+1:]
	}

	var source *resx.Reference
	if query != "" {
		for _, kv := range strings.Split(query, "&") {
			k, v, _ := strings.Cut(kv, "=")
			if k != "source" {
				continue
			}
			decoded, err := base64.StdEncoding.DecodeString(v)
			if err != nil {
				return resx.Reference{}, errors.Wrap(errors.InvalidReference, "source is not base64", err)
			}
			ref, err := resx.ParseURI(p.resx, string(decoded))
			if err != nil {
				return resx.Reference{}, err
			}
			source = &ref
		}
	}

	return resx.Reference{
		Adapter:    resx.AdapterID(Scheme),
		Repository: repository{node: node, path: path, source: source},
	}, nil
}

// URI implements resx.Producer, re-emitting the canonical file: URI.
func (p *Producer) URI(ref resx.Reference) (string, error) {
	r, err := repo(ref)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(Scheme)
	b.WriteString("://")
	b.WriteString(r.node)
	b.WriteString(r.path)
	if r.source != nil {
		innerURI, err := resx.URI(p.resx, *r.source)
		if err != nil {
			return "", err
		}
		b.WriteString("?source=")
		b.WriteString(base64.StdEncoding.EncodeToString([]byte(innerURI)))
	}
	return b.String(), nil
}

// Source implements resx.Producer: a file reference's source is whichever
// inner reference it caches (driving the façade's cache-miss recovery in
// §4.F), or nil for a plain, uncached file.
func (p *Producer) Source(_ context.Context, ref resx.Reference) (*resx.Reference, error) {
	r, err := repo(ref)
	if err != nil {
		return nil, err
	}
	return r.source, nil
}

// Alike implements resx.Producer: two file references denote the same
// resource iff they name the same node and path. The optional cached source
// is provenance, not identity.
func (p *Producer) Alike(a, b resx.Reference) bool {
	ra, erra := repo(a)
	rb, errb := repo(b)
	if erra != nil || errb != nil {
		return false
	}
	return ra.node == rb.node && ra.path == rb.path
}
