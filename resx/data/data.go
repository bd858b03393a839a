// Package data implements the RFC 2397 "data:" URI producer (§4.G). It is
// named in spec.md §1 as a trivial external collaborator, but its interface
// contract is still exercised throughout the end-to-end scenarios (§8), so it
// is implemented here rather than stubbed.
package data

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"sort"
	"strings"

	"github.com/redbco/redb-resx/resx"
	"github.com/redbco/redb-resx/resx/errors"
)

// Scheme is the URI scheme this producer owns.
const Scheme = "data"

const (
	defaultMediaType    = "text/plain"
	defaultCharsetKey   = "charset"
	defaultCharsetValue = "US-ASCII"
)

// repository is data:'s adapter-private Repository shape: (media type,
// attribute map, raw bytes).
type repository struct {
	mediaType  string
	attributes map[string]string
	raw        []byte
}

// Producer implements resx.Producer and resx.Storer (as Incompatible — a
// data: URI has no source to recover from) for the data: scheme.
type Producer struct{}

// New returns a data: URI producer.
func New() *Producer { return &Producer{} }

// Schemes implements resx.Producer.
func (*Producer) Schemes() []string { return []string{Scheme} }

// SourceCompatibility implements resx.Storer: data: resources are leaves and
// never recover via a source.
func (*Producer) SourceCompatibility() resx.SourceCompatibility { return resx.Incompatible }

// Store implements resx.Storer trivially: a data: URI's Repository is its
// own storage, so Store is the identity.
func (*Producer) Store(_ context.Context, resource resx.Resource, _ resx.StoreOptions) (resx.Resource, error) {
	return resource, nil
}

// Discard implements resx.Storer: there is nothing external to remove.
func (*Producer) Discard(context.Context, resx.Reference, resx.DiscardOptions) error { return nil }

// Parse decodes a data: URI per RFC 2397: data:[<mediatype>][;attr=val]*[;base64],<payload>
func (*Producer) Parse(uri string) (resx.Reference, error) {
	rest, ok := strings.CutPrefix(uri, Scheme+":")
	if !ok {
		return resx.Reference{}, errors.New(errors.InvalidReference, "not a data: URI")
	}

	comma := strings.IndexByte(rest, ',')
	if comma < 0 {
		return resx.Reference{}, errors.New(errors.InvalidReference, "data URI missing ',' payload separator")
	}
	header, payload := rest[:comma], rest[comma+1:]

	mediaType := ""
	attrs := map[string]string{}
	isBase64 := false

	if header != "" {
		parts := strings.Split(header, ";")
		for i, p := range parts {
			if i == 0 && !strings.Contains(p, "=") && p != "base64" {
				mediaType = p
				continue
			}
			if p == "base64" {
				isBase64 = true
				continue
			}
			kv := strings.SplitN(p, "=", 2)
			if len(kv) == 2 {
				attrs[kv[0]] = kv[1]
			}
		}
	}
	if mediaType == "" {
		mediaType = defaultMediaType
		if header == "" {
			attrs[defaultCharsetKey] = defaultCharsetValue
		}
	}

	var raw []byte
	if isBase64 {
		decoded, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return resx.Reference{}, errors.Wrap(errors.InvalidReference, "data is not base64", err)
		}
		raw = decoded
	} else {
		unescaped, err := urlUnescape(payload)
		if err != nil {
			return resx.Reference{}, errors.Wrap(errors.InvalidReference, "invalid percent-encoding in data URI", err)
		}
		raw = []byte(unescaped)
	}

	return resx.Reference{
		Adapter: resx.AdapterID(Scheme),
		Repository: repository{
			mediaType:  mediaType,
			attributes: attrs,
			raw:        raw,
		},
	}, nil
}

// urlUnescape is a permissive percent-decoder: data: URIs are not required to
// percent-encode every byte, so invalid escapes pass through unchanged rather
// than erroring, except for a trailing dangling '%'.
func urlUnescape(s string) (string, error) {
	var out bytes.Buffer
	for i := 0; i < len(s); i++ {
		if s[i] != '%' {
			out.WriteByte(s[i])
			continue
		}
		if i+2 >= len(s) {
			return "", fmt.Errorf("dangling %%-escape")
		}
		hi, lo := s[i+1], s[i+2]
		v, ok := hexPair(hi, lo)
		if !ok {
			out.WriteByte(s[i])
			continue
		}
		out.WriteByte(v)
		i += 2
	}
	return out.String(), nil
}

func hexPair(hi, lo byte) (byte, bool) {
	h, ok1 := hexDigit(hi)
	l, ok2 := hexDigit(lo)
	if !ok1 || !ok2 {
		return 0, false
	}
	return h<<4 | l, true
}

func hexDigit(b byte) (byte, bool) {
	switch {
	case b >= '0' && b <= '9':
		return b - '0', true
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10, true
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10, true
	default:
		return 0, false
	}
}

func repo(ref resx.Reference) (repository, error) {
	r, ok := ref.Repository.(repository)
	if !ok {
		return repository{}, errors.New(errors.InvalidReference, "reference is not a data: reference")
	}
	return r, nil
}

// Open implements resx.Producer: data: content is always eager.
func (p *Producer) Open(_ context.Context, ref resx.Reference, _ resx.OpenOptions) (resx.Resource, error) {
	r, err := repo(ref)
	if err != nil {
		return resx.Resource{}, err
	}
	content, err := resx.NewEagerContent([]string{r.mediaType}, r.raw)
	if err != nil {
		return resx.Resource{}, errors.Wrap(errors.Internal, "building content", err)
	}
	return resx.Resource{Reference: ref, Content: content}, nil
}

// Stream implements resx.Producer. A data: URI's payload is already resident
// in memory, so streaming wraps it as a single-chunk stream rather than
// performing any I/O.
func (p *Producer) Stream(ctx context.Context, ref resx.Reference, opts resx.StreamOptions) (resx.Resource, error) {
	r, err := repo(ref)
	if err != nil {
		return resx.Resource{}, err
	}
	raw := r.raw
	stream := resx.NewContentStream(func(init interface{}, step func(acc, chunk interface{}) (interface{}, error)) (interface{}, error) {
		return step(init, raw)
	})
	content, err := resx.NewStreamContent([]string{r.mediaType}, stream)
	if err != nil {
		return resx.Resource{}, errors.Wrap(errors.Internal, "building content", err)
	}
	return resx.Resource{Reference: ref, Content: content}, nil
}

// Exists implements resx.Producer: a data: URI's payload is embedded in the
// URI itself, so it always exists.
func (*Producer) Exists(context.Context, resx.Reference) (bool, error) { return true, nil }

// Alike implements resx.Producer: two data: references are alike iff their
// Repositories are equal (media type, attributes, and raw bytes).
func (*Producer) Alike(a, b resx.Reference) bool {
	ra, err1 := repo(a)
	rb, err2 := repo(b)
	if err1 != nil || err2 != nil {
		return false
	}
	if ra.mediaType != rb.mediaType || !bytes.Equal(ra.raw, rb.raw) {
		return false
	}
	if len(ra.attributes) != len(rb.attributes) {
		return false
	}
	for k, v := range ra.attributes {
		if rb.attributes[k] != v {
			return false
		}
	}
	return true
}

// Source implements resx.Producer: data: references are leaves.
func (*Producer) Source(context.Context, resx.Reference) (*resx.Reference, error) { return nil, nil }

// URI implements resx.Producer, re-emitting the canonical data: URI.
func (*Producer) URI(ref resx.Reference) (string, error) {
	r, err := repo(ref)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(Scheme)
	b.WriteByte(':')
	b.WriteString(r.mediaType)
	keys := make([]string, 0, len(r.attributes))
	for k := range r.attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteByte(';')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(r.attributes[k])
	}
	b.WriteString(";base64,")
	b.WriteString(base64.StdEncoding.EncodeToString(r.raw))
	return b.String(), nil
}

// Attribute implements resx.Producer over the RFC 2397 attribute map plus the
// synthetic key "media_type". The base64 flag is not exposed as an attribute.
func (p *Producer) Attribute(_ context.Context, ref resx.Reference, key string) (interface{}, error) {
	r, err := repo(ref)
	if err != nil {
		return nil, err
	}
	switch key {
	case "media_type":
		return r.mediaType, nil
	}
	if v, ok := r.attributes[key]; ok {
		return v, nil
	}
	return nil, errors.Newf(errors.UnknownKey, "unknown attribute %q", key)
}

// Attributes implements resx.Producer.
func (p *Producer) Attributes(_ context.Context, ref resx.Reference) (map[string]interface{}, error) {
	r, err := repo(ref)
	if err != nil {
		return nil, err
	}
	out := make(map[string]interface{}, len(r.attributes)+1)
	out["media_type"] = r.mediaType
	for k, v := range r.attributes {
		out[k] = v
	}
	return out, nil
}

// AttributeKeys implements resx.Producer.
func (p *Producer) AttributeKeys(_ context.Context, ref resx.Reference) ([]string, error) {
	r, err := repo(ref)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(r.attributes)+1)
	keys = append(keys, "media_type")
	for k := range r.attributes {
		keys = append(keys, k)
	}
	return keys, nil
}
