package data_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redbco/redb-resx/resx"
	"github.com/redbco/redb-resx/resx/data"
)

func newSettings() *resx.Settings {
	s := resx.NewSettings()
	s.RegisterProducer(data.New())
	return s
}

func TestDataOpenDecodesPlainPayload(t *testing.T) {
	s := newSettings()
	res, err := resx.Open(context.Background(), s, "data:,hello%20world", resx.OpenOptions{})
	require.NoError(t, err)
	v, err := resx.Data(res.Content, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello world"), v)
}

func TestDataOpenDecodesBase64Payload(t *testing.T) {
	s := newSettings()
	// "test" base64-encoded
	res, err := resx.Open(context.Background(), s, "data:text/plain;base64,dGVzdA==", resx.OpenOptions{})
	require.NoError(t, err)
	v, err := resx.Data(res.Content, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("test"), v)
}

// TestDataAlikeDefaultsAreEquivalent matches the spec's worked example that a
// bare "data:,test" URI and its fully-spelled-out default media
// type/charset equivalent are alike.
func TestDataAlikeDefaultsAreEquivalent(t *testing.T) {
	s := newSettings()
	a, err := resx.ParseURI(s, "data:,test")
	require.NoError(t, err)
	b, err := resx.ParseURI(s, "data:text/plain;charset=US-ASCII,test")
	require.NoError(t, err)
	assert.True(t, resx.Alike(s, a, b))
}

func TestDataStoreIsIdentity(t *testing.T) {
	s := newSettings()
	ctx := context.Background()
	res, err := resx.Open(ctx, s, "data:,x", resx.OpenOptions{})
	require.NoError(t, err)
	stored, err := resx.Store(ctx, s, res, resx.StoreOptions{})
	require.NoError(t, err)
	assert.True(t, resx.Alike(s, res.Reference, stored.Reference))
}

func TestDataURIRoundTripsThroughAttributes(t *testing.T) {
	s := newSettings()
	ctx := context.Background()
	res, err := resx.Open(ctx, s, "data:text/csv;charset=utf-8,a,b", resx.OpenOptions{})
	require.NoError(t, err)
	mt, err := resx.Attribute(ctx, s, res.Reference, "media_type")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", mt)
	cs, err := resx.Attribute(ctx, s, res.Reference, "charset")
	require.NoError(t, err)
	assert.Equal(t, "utf-8", cs)
}
