package file

import (
	"time"

	"github.com/redbco/redb-resx/resx"
	"github.com/redbco/redb-resx/resx/etf"
)

// The wire* types are the concrete, known-at-both-ends payload shapes
// exchanged over dispatch (§4.O). Using concrete structs rather than generic
// interface{} values keeps the ETF (msgpack) round trip unambiguous in both
// directions.

type wirePathRequest struct {
	Path string
}

type wireBoolResponse struct {
	Value bool
}

type wireBytesResponse struct {
	Value []byte
}

type wireStoreRequest struct {
	Path string
	Data []byte
	Meta map[string]interface{}
}

type wireDiscardRequest struct {
	Path          string
	RemoveContent bool
	RemoveMeta    bool
}

type wireResource struct {
	Data              []byte
	Types             []string
	Meta              map[string]interface{}
	HasChecksum       bool
	ChecksumAlgo      string
	ChecksumDigest    []byte
	TimestampUnixNano int64
}

func encodeWireResource(s *resx.Settings, r resx.Resource) ([]byte, error) {
	content, err := resx.Materialise(r.Content, s.Combiner())
	if err != nil {
		return nil, err
	}
	w := wireResource{
		Data:              content.Bytes(),
		Types:             content.Type(),
		Meta:              map[string]interface{}(r.Meta),
		TimestampUnixNano: r.Reference.Integrity.Timestamp.UnixNano(),
	}
	if c := r.Reference.Integrity.Checksum; c != nil {
		w.HasChecksum = true
		w.ChecksumAlgo = c.Algorithm
		w.ChecksumDigest = c.Digest
	}
	return etf.Encode(w)
}

func decodeWireResource(target resx.Reference, payload []byte) (resx.Resource, error) {
	var w wireResource
	if err := etf.Decode(payload, &w); err != nil {
		return resx.Resource{}, err
	}
	content, err := resx.NewEagerContent(w.Types, w.Data)
	if err != nil {
		return resx.Resource{}, err
	}
	ref := target
	ref.Integrity = resx.Integrity{Timestamp: time.Unix(0, w.TimestampUnixNano)}
	if w.HasChecksum {
		ref.Integrity.Checksum = &resx.Checksum{Algorithm: w.ChecksumAlgo, Digest: w.ChecksumDigest}
	}
	return resx.Resource{Reference: ref, Content: content, Meta: resx.Meta(w.Meta)}, nil
}
