package file

import (
	"context"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/redbco/redb-resx/resx"
	"github.com/redbco/redb-resx/resx/errors"
	"github.com/redbco/redb-resx/resx/etf"
)

// allowed reports whether r's target node is permitted to touch r's path, per
// §4.K.2: the matrix is evaluated against the reference's own target node
// (normalised to the local node when empty), never against whichever node
// happens to be making the call.
func (p *Producer) allowed(r repository) bool {
	node := r.node
	if node == "" {
		node = p.local.LocalNode()
	}
	return p.local.Matrix().Allows(node, r.path)
}

// Open implements resx.Producer, per §4.K.4: a local read of the content
// file plus its .meta sidecar, a remote dispatch when ref names another
// node, or UnknownResource (driving the façade's cache-miss recovery) when
// either file is missing.
func (p *Producer) Open(ctx context.Context, ref resx.Reference, _ resx.OpenOptions) (resx.Resource, error) {
	r, err := repo(ref)
	if err != nil {
		return resx.Resource{}, err
	}
	if !p.allowed(r) {
		return resx.Resource{}, errors.New(errors.InvalidReference, "protected file")
	}

	if isLocal(p.local, r.node) {
		return p.openLocal(ref, r)
	}

	payload, err := etf.Encode(wirePathRequest{Path: r.path})
	if err != nil {
		return resx.Resource{}, err
	}
	out, err := dispatch(ctx, p.local, r.node, "file", "open", payload)
	if err != nil {
		return resx.Resource{}, err
	}
	return decodeWireResource(ref, out)
}

// openLocal implements the state machine of §4.K.4/§4.K.7: content and
// sidecar both present is the only success path; anything else is
// UnknownResource, leaving restoration to the façade via Source/Store. A
// sidecar written strictly before its content file (§5) means a content file
// observed without its sidecar must also be treated as cache-missing, not as
// a bare read.
func (p *Producer) openLocal(ref resx.Reference, r repository) (resx.Resource, error) {
	data, derr := os.ReadFile(r.path)
	metaBytes, merr := os.ReadFile(r.path + ".meta")

	if derr == nil && merr == nil {
		meta, err := etf.DecodeMap(metaBytes)
		if err != nil {
			return resx.Resource{}, errors.Wrap(errors.Internal, "decoding meta sidecar", err)
		}
		content, err := resx.NewEagerContent(deriveMIME(r.path), data)
		if err != nil {
			return resx.Resource{}, errors.Wrap(errors.Internal, "building content", err)
		}
		outRef := ref
		outRef.Integrity = resx.Integrity{Timestamp: modTime(r.path)}
		return resx.Resource{Reference: outRef, Content: content, Meta: resx.Meta(meta)}, nil
	}

	if derr != nil && !os.IsNotExist(derr) {
		return resx.Resource{}, errors.Wrap(errors.Internal, "reading file", derr)
	}
	if merr != nil && !os.IsNotExist(merr) {
		return resx.Resource{}, errors.Wrap(errors.Internal, "reading meta sidecar", merr)
	}

	// §4.N: before surfacing UnknownResource (which drives the façade's
	// source-backed recovery via Source/Store), consult the optional
	// second-tier cache — a hit avoids re-driving the source stream.
	if res, ok, _ := p.cacheGet(ref, r); ok {
		return res, nil
	}
	return resx.Resource{}, errors.Newf(errors.UnknownResource, "file or sidecar missing: %s", r.path)
}

// cacheKey identifies a cached copy of r by the same (node, path) identity
// Alike compares on.
func cacheKey(r repository) string {
	return r.node + "|" + r.path
}

// cacheGet consults the configured CacheLayer, if any, decoding a hit back
// into a Resource. A cache miss or read error is reported as (false, err) so
// the caller can fall through to the normal cache-miss path rather than
// failing the whole operation on a cache outage.
func (p *Producer) cacheGet(ref resx.Reference, r repository) (resx.Resource, bool, error) {
	cache := p.local.Cache()
	if cache == nil {
		return resx.Resource{}, false, nil
	}
	data, ok, err := cache.Get(cacheKey(r))
	if err != nil || !ok {
		return resx.Resource{}, false, err
	}
	res, err := decodeWireResource(ref, data)
	if err != nil {
		return resx.Resource{}, false, err
	}
	return res, true, nil
}

// cachePut populates the configured CacheLayer, if any, after a successful
// local write so a later cache-miss on the same path can be served without
// driving the source stream. Best-effort: a cache write failure never fails
// the store it rides along with.
func (p *Producer) cachePut(r repository, meta resx.Meta, types []string, data []byte) {
	cache := p.local.Cache()
	if cache == nil {
		return
	}
	payload, err := etf.Encode(wireResource{Data: data, Types: types, Meta: map[string]interface{}(meta)})
	if err != nil {
		return
	}
	_ = cache.Put(cacheKey(r), payload)
}

func modTime(path string) time.Time {
	fi, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return fi.ModTime()
}

// Stream implements resx.Producer per §4.K.5: the returned Resource carries
// only (node, path) and holds no live handle — each reduction re-dispatches
// the read, locally or over RPC.
func (p *Producer) Stream(_ context.Context, ref resx.Reference, _ resx.StreamOptions) (resx.Resource, error) {
	r, err := repo(ref)
	if err != nil {
		return resx.Resource{}, err
	}
	if !p.allowed(r) {
		return resx.Resource{}, errors.New(errors.InvalidReference, "protected file")
	}

	node, path := r.node, r.path
	local := p.local

	reduce := func(init interface{}, step func(acc, chunk interface{}) (interface{}, error)) (interface{}, error) {
		var data []byte
		if isLocal(local, node) {
			b, err := os.ReadFile(path)
			if err != nil {
				if os.IsNotExist(err) {
					return nil, errors.Newf(errors.UnknownResource, "file not found: %s", path)
				}
				return nil, errors.Wrap(errors.Internal, "reading file", err)
			}
			data = b
		} else {
			payload, err := etf.Encode(wirePathRequest{Path: path})
			if err != nil {
				return nil, err
			}
			out, err := dispatch(context.Background(), local, node, "file", "stream", payload)
			if err != nil {
				return nil, err
			}
			var resp wireBytesResponse
			if err := etf.Decode(out, &resp); err != nil {
				return nil, err
			}
			data = resp.Value
		}
		return step(init, data)
	}

	content, err := resx.NewStreamContent(deriveMIME(path), resx.NewContentStream(reduce))
	if err != nil {
		return resx.Resource{}, err
	}
	return resx.Resource{Reference: ref, Content: content}, nil
}

// Exists implements resx.Producer.
func (p *Producer) Exists(ctx context.Context, ref resx.Reference) (bool, error) {
	r, err := repo(ref)
	if err != nil {
		return false, err
	}
	if !p.allowed(r) {
		return false, errors.New(errors.InvalidReference, "protected file")
	}

	if !isLocal(p.local, r.node) {
		payload, err := etf.Encode(wirePathRequest{Path: r.path})
		if err != nil {
			return false, err
		}
		out, err := dispatch(ctx, p.local, r.node, "file", "exists", payload)
		if err != nil {
			return false, err
		}
		var resp wireBoolResponse
		if err := etf.Decode(out, &resp); err != nil {
			return false, err
		}
		return resp.Value, nil
	}

	_, err = os.Stat(r.path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, errors.Wrap(errors.Internal, "stat", err)
}

// Attributes implements resx.Producer per §4.K.6: POSIX stat fields, falling
// through to the cached source's attributes when the file itself is absent
// but a source is configured.
func (p *Producer) Attributes(ctx context.Context, ref resx.Reference) (map[string]interface{}, error) {
	r, err := repo(ref)
	if err != nil {
		return nil, err
	}
	if !p.allowed(r) {
		return nil, errors.New(errors.InvalidReference, "protected file")
	}

	if !isLocal(p.local, r.node) {
		payload, err := etf.Encode(wirePathRequest{Path: r.path})
		if err != nil {
			return nil, err
		}
		out, err := dispatch(ctx, p.local, r.node, "file", "attributes", payload)
		if err != nil {
			return nil, err
		}
		attrs, err := etf.DecodeMap(out)
		if err != nil {
			return nil, err
		}
		return attrs, nil
	}

	attrs, statErr := statAttributes(r.path)
	if statErr == nil {
		return attrs, nil
	}
	if os.IsNotExist(statErr) && r.source != nil {
		return resx.Attributes(ctx, p.resx, *r.source)
	}
	if os.IsNotExist(statErr) {
		return nil, errors.Newf(errors.UnknownResource, "file not found: %s", r.path)
	}
	return nil, errors.Wrap(errors.Internal, "stat", statErr)
}

// Attribute implements resx.Producer.
func (p *Producer) Attribute(ctx context.Context, ref resx.Reference, key string) (interface{}, error) {
	attrs, err := p.Attributes(ctx, ref)
	if err != nil {
		return nil, err
	}
	v, ok := attrs[key]
	if !ok {
		return nil, errors.Newf(errors.UnknownKey, "unknown attribute %q", key)
	}
	return v, nil
}

// AttributeKeys implements resx.Producer.
func (p *Producer) AttributeKeys(ctx context.Context, ref resx.Reference) ([]string, error) {
	attrs, err := p.Attributes(ctx, ref)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	return keys, nil
}

// statAttributes reads the POSIX-extended attribute set §4.K.6 names: size,
// access/modification/ctime, mode, link count, owning uid/gid, device,
// inode, and type.
func statAttributes(path string) (map[string]interface{}, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	out := map[string]interface{}{
		"name":         filepath.Base(path),
		"size":         fi.Size(),
		"modification": fi.ModTime(),
		"mode":         fi.Mode().String(),
		"type":         fileType(fi),
	}
	if sys, ok := fi.Sys().(*syscall.Stat_t); ok {
		out["access"] = time.Unix(sys.Atim.Sec, sys.Atim.Nsec)
		out["ctime"] = time.Unix(sys.Ctim.Sec, sys.Ctim.Nsec)
		out["links"] = uint64(sys.Nlink)
		out["uid"] = sys.Uid
		out["gid"] = sys.Gid
		out["device"] = uint64(sys.Dev)
		out["inode"] = sys.Ino
	}
	return out, nil
}

func fileType(fi os.FileInfo) string {
	switch {
	case fi.Mode().IsDir():
		return "directory"
	case fi.Mode()&os.ModeSymlink != 0:
		return "symlink"
	case fi.Mode().IsRegular():
		return "file"
	default:
		return "other"
	}
}
