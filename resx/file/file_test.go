package file_test

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redbco/redb-resx/resx"
	"github.com/redbco/redb-resx/resx/data"
	"github.com/redbco/redb-resx/resx/errors"
	"github.com/redbco/redb-resx/resx/file"
)

func newSettings(t *testing.T, localNode string, matrix file.Matrix) (*resx.Settings, *file.Producer) {
	t.Helper()
	rs := resx.NewSettings()
	rs.RegisterProducer(data.New())

	fs := file.NewSettings(localNode)
	fs.SetMatrix(matrix)

	p := file.New(rs, fs)
	rs.RegisterProducer(p)
	return rs, p
}

func allowEverything() file.Matrix {
	return file.Matrix{file.FuncEntry(func(string) bool { return true })}
}

func TestFileReferenceURIRoundTrip(t *testing.T) {
	_, p := newSettings(t, "N1", allowEverything())

	ref, err := p.Parse("file://N2/var/data/report.txt")
	require.NoError(t, err)

	uri, err := p.URI(ref)
	require.NoError(t, err)
	assert.Equal(t, "file://N2/var/data/report.txt", uri)
}

func TestFileReferenceWithSourceRoundTrip(t *testing.T) {
	_, p := newSettings(t, "N1", allowEverything())

	innerURI := "data:,cached"
	encoded := base64.StdEncoding.EncodeToString([]byte(innerURI))
	ref, err := p.Parse("file:///tmp/x.txt?source=" + encoded)
	require.NoError(t, err)

	src, err := p.Source(context.Background(), ref)
	require.NoError(t, err)
	require.NotNil(t, src)

	uri, err := p.URI(ref)
	require.NoError(t, err)
	assert.Contains(t, uri, "?source="+encoded)
}

// TestAccessMatrixRestrictsPaths matches the worked example of scenario 4: an
// access list of ["**/bar.txt"] permits any bar.txt but rejects everything
// else, including a sibling file outside that pattern.
func TestAccessMatrixRestrictsPaths(t *testing.T) {
	entry, err := file.GlobEntry("**/bar.txt")
	require.NoError(t, err)
	_, p := newSettings(t, "N1", file.Matrix{entry})
	ctx := context.Background()

	allowed, err := p.Parse("file:///any/dir/bar.txt")
	require.NoError(t, err)
	_, err = p.Open(ctx, allowed, resx.OpenOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.UnknownResource))

	denied, err := p.Parse("file:///foo.txt")
	require.NoError(t, err)
	_, err = p.Open(ctx, denied, resx.OpenOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.InvalidReference))
}

func TestEmptyMatrixDeniesEverything(t *testing.T) {
	_, p := newSettings(t, "N1", nil)
	ctx := context.Background()

	ref, err := p.Parse("file:///anything.txt")
	require.NoError(t, err)
	_, err = p.Open(ctx, ref, resx.OpenOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.InvalidReference))
}

// TestStoreOpenDiscardRoundTrip exercises an explicit store (naming "path"),
// a subsequent open reading it back, and a discard removing both files.
func TestStoreOpenDiscardRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.txt")
	rs, p := newSettings(t, "N1", allowEverything())
	ctx := context.Background()

	content, err := resx.NewEagerContent([]string{"text/plain"}, []byte("hello"))
	require.NoError(t, err)
	stored, err := p.Store(ctx, resx.Resource{Content: content, Meta: resx.Meta{"author": "tester"}},
		resx.StoreOptions{}.WithValue("path", path))
	require.NoError(t, err)

	opened, err := resx.OpenReference(ctx, rs, stored.Reference, resx.OpenOptions{})
	require.NoError(t, err)
	data, err := resx.Data(opened.Content, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)
	assert.Equal(t, "tester", opened.Meta["author"])

	require.NoError(t, p.Discard(ctx, stored.Reference, resx.DiscardOptions{}))
	_, err = p.Open(ctx, stored.Reference, resx.OpenOptions{})
	require.Error(t, err)
}

func TestStoreDerivesMIMEFromPath(t *testing.T) {
	dir := t.TempDir()
	rs, p := newSettings(t, "N1", allowEverything())
	ctx := context.Background()

	content, err := resx.NewEagerContent([]string{"application/octet-stream"}, []byte("x"))
	require.NoError(t, err)
	stored, err := p.Store(ctx, resx.Resource{Content: content},
		resx.StoreOptions{}.WithValue("path", filepath.Join(dir, "archive.tar.gz")))
	require.NoError(t, err)

	opened, err := resx.OpenReference(ctx, rs, stored.Reference, resx.OpenOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"application/gzip", "application/x-tar"}, opened.Content.Type())
}

// TestSourceBackedRestoration matches scenario 6: a file reference naming a
// source is opened once (materialising it locally), its local copy is
// discarded, and reopening it drives the façade's cache-miss recovery path
// back through the same source, restoring the local copy.
func TestSourceBackedRestoration(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cached.txt")
	rs, p := newSettings(t, "N1", allowEverything())
	ctx := context.Background()

	innerURI := "data:,origin"
	ref, err := p.Parse("file://" + path + "?source=" + base64.StdEncoding.EncodeToString([]byte(innerURI)))
	require.NoError(t, err)

	opened, err := resx.OpenReference(ctx, rs, ref, resx.OpenOptions{})
	require.NoError(t, err)
	data, err := resx.Data(opened.Content, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("origin"), data)

	require.NoError(t, p.Discard(ctx, opened.Reference, resx.DiscardOptions{}))

	restored, err := resx.OpenReference(ctx, rs, ref, resx.OpenOptions{})
	require.NoError(t, err)
	data, err = resx.Data(restored.Content, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("origin"), data)

	require.NoError(t, p.Discard(ctx, restored.Reference, resx.DiscardOptions{}))
	_, err = p.Open(ctx, restored.Reference, resx.OpenOptions{})
	require.Error(t, err)
}

// inMemoryCache is a trivial CacheLayer double used to verify the file
// producer consults its second-tier cache on a local miss (§4.N).
type inMemoryCache struct {
	data map[string][]byte
}

func (c *inMemoryCache) Get(key string) ([]byte, bool, error) {
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *inMemoryCache) Put(key string, data []byte) error {
	c.data[key] = data
	return nil
}

// TestCacheLayerServesContentAfterLocalFilesRemoved matches §4.N: a store
// populates the configured cache, and once both the local content file and
// its sidecar are gone, Open is served straight from the cache instead of
// falling through to UnknownResource.
func TestCacheLayerServesContentAfterLocalFilesRemoved(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cached-via-layer.txt")
	rs := resx.NewSettings()
	rs.RegisterProducer(data.New())
	fs := file.NewSettings("N1")
	fs.SetMatrix(allowEverything())
	cache := &inMemoryCache{data: make(map[string][]byte)}
	fs.SetCache(cache)
	p := file.New(rs, fs)
	rs.RegisterProducer(p)
	ctx := context.Background()

	content, err := resx.NewEagerContent([]string{"text/plain"}, []byte("layered"))
	require.NoError(t, err)
	stored, err := p.Store(ctx, resx.Resource{Content: content}, resx.StoreOptions{}.WithValue("path", path))
	require.NoError(t, err)
	assert.NotEmpty(t, cache.data)

	require.NoError(t, os.Remove(path))
	require.NoError(t, os.Remove(path+".meta"))

	recovered, err := p.Open(ctx, stored.Reference, resx.OpenOptions{})
	require.NoError(t, err)
	got, err := resx.Data(recovered.Content, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("layered"), got)
}

// inMemoryDispatcher routes a Call straight into the named node's
// ServerRegistry, modelling the gRPC round trip of scenario 5 without a
// network.
type inMemoryDispatcher struct {
	registries map[string]*file.ServerRegistry
}

func (d *inMemoryDispatcher) Call(ctx context.Context, node, module, function string, args []byte) ([]byte, error) {
	reg, ok := d.registries[node]
	if !ok {
		return nil, errors.Newf(errors.Internal, "no such node %q", node)
	}
	return reg.Call(ctx, module, function, args)
}

// TestDistributedOpenDispatchesToRemoteNode matches scenario 5: a reference
// naming a remote node is opened by dispatching to that node's own producer,
// which applies its own access matrix and returns the materialised content.
func TestDistributedOpenDispatchesToRemoteNode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shared.txt")
	ctx := context.Background()

	_, remoteP := newSettings(t, "N2", allowEverything())
	content, err := resx.NewEagerContent([]string{"text/plain"}, []byte("remote-data"))
	require.NoError(t, err)
	_, err = remoteP.Store(ctx, resx.Resource{Content: content}, resx.StoreOptions{}.WithValue("path", path))
	require.NoError(t, err)

	remoteRegistry := file.NewServerRegistry()
	remoteP.RegisterHandlers(remoteRegistry)
	dispatcher := &inMemoryDispatcher{registries: map[string]*file.ServerRegistry{"N2": remoteRegistry}}

	entry, err := file.GlobEntry("**")
	require.NoError(t, err)
	localMatrix := file.Matrix{entry.ForNode(file.NodeIs("N2"))}
	localRS := resx.NewSettings()
	localRS.RegisterProducer(data.New())
	localFS := file.NewSettings("N1")
	localFS.SetMatrix(localMatrix)
	localFS.SetDispatcher(dispatcher)
	localP := file.New(localRS, localFS)
	localRS.RegisterProducer(localP)

	ref, err := localP.Parse("file://N2" + path)
	require.NoError(t, err)

	opened, err := localP.Open(ctx, ref, resx.OpenOptions{})
	require.NoError(t, err)
	data, err := resx.Data(opened.Content, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("remote-data"), data)
}
