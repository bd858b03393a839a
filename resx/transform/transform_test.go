package transform_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redbco/redb-resx/resx"
	"github.com/redbco/redb-resx/resx/data"
	"github.com/redbco/redb-resx/resx/transform"
)

func newSettings(t *testing.T) (*resx.Settings, *transform.Registry) {
	t.Helper()
	s := resx.NewSettings()
	s.RegisterProducer(data.New())
	reg := transform.NewRegistry()
	reg.RegisterBuiltins()
	s.RegisterProducer(transform.New(s, reg), transform.Scheme)
	return s, reg
}

func TestTransformChainMatchesWorkedExample(t *testing.T) {
	s, _ := newSettings(t)
	ctx := context.Background()

	base, err := resx.Open(ctx, s, "data:,test", resx.OpenOptions{})
	require.NoError(t, err)

	step1, err := resx.Transform(ctx, s, base, "prefixer", map[string]interface{}{"value": "foo"})
	require.NoError(t, err)
	step2, err := resx.Transform(ctx, s, step1, "prefixer", map[string]interface{}{"value": "foo"})
	require.NoError(t, err)
	step3, err := resx.Transform(ctx, s, step2, "suffixer", map[string]interface{}{"value": "bar"})
	require.NoError(t, err)

	v, err := resx.Data(step3.Content, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("foofootestbar"), v)

	uri, err := resx.URI(s, step3.Reference)
	require.NoError(t, err)
	assert.Contains(t, uri, "resx-transform:suffixer:")
	assert.Contains(t, uri, ",prefixer:")
}

func TestTransformURIRoundTrip(t *testing.T) {
	s, _ := newSettings(t)
	ctx := context.Background()

	base, err := resx.Open(ctx, s, "data:,test", resx.OpenOptions{})
	require.NoError(t, err)

	wrapped, err := resx.Transform(ctx, s, base, "uppercase", nil)
	require.NoError(t, err)

	uri, err := resx.URI(s, wrapped.Reference)
	require.NoError(t, err)

	reparsed, err := resx.Open(ctx, s, uri, resx.OpenOptions{})
	require.NoError(t, err)

	v, err := resx.Data(reparsed.Content, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("TEST"), v)
}

func TestTransformUnknownTransformerErrors(t *testing.T) {
	s, _ := newSettings(t)
	ctx := context.Background()

	base, err := resx.Open(ctx, s, "data:,test", resx.OpenOptions{})
	require.NoError(t, err)

	_, err = resx.Transform(ctx, s, base, "no-such-transformer", nil)
	assert.Error(t, err)
}

func TestTransformAlikeComparesChainAndOptions(t *testing.T) {
	s, _ := newSettings(t)
	ctx := context.Background()

	base, err := resx.Open(ctx, s, "data:,test", resx.OpenOptions{})
	require.NoError(t, err)

	a, err := resx.Transform(ctx, s, base, "prefixer", map[string]interface{}{"value": "x"})
	require.NoError(t, err)
	b, err := resx.Transform(ctx, s, base, "prefixer", map[string]interface{}{"value": "x"})
	require.NoError(t, err)
	c, err := resx.Transform(ctx, s, base, "prefixer", map[string]interface{}{"value": "y"})
	require.NoError(t, err)

	assert.True(t, resx.Alike(s, a.Reference, b.Reference))
	assert.False(t, resx.Alike(s, a.Reference, c.Reference))
}

// TestSourceWalksChainInReverse matches §8's invariant: source(open(chain))
// equals the immediately inner reference, and walking source repeatedly
// descends the chain in reverse, terminating at None.
func TestSourceWalksChainInReverse(t *testing.T) {
	s, _ := newSettings(t)
	ctx := context.Background()

	base, err := resx.Open(ctx, s, "data:,test", resx.OpenOptions{})
	require.NoError(t, err)

	step1, err := resx.Transform(ctx, s, base, "prefixer", map[string]interface{}{"value": "foo"})
	require.NoError(t, err)
	step2, err := resx.Transform(ctx, s, step1, "suffixer", map[string]interface{}{"value": "bar"})
	require.NoError(t, err)

	src1, err := resx.Source(ctx, s, step2.Reference)
	require.NoError(t, err)
	require.NotNil(t, src1)
	assert.True(t, resx.Alike(s, *src1, step1.Reference))

	src2, err := resx.Source(ctx, s, *src1)
	require.NoError(t, err)
	require.NotNil(t, src2)
	assert.True(t, resx.Alike(s, *src2, base.Reference))

	src3, err := resx.Source(ctx, s, *src2)
	require.NoError(t, err)
	assert.Nil(t, src3)
}

func TestRegistryBuiltinsCoverAllNames(t *testing.T) {
	reg := transform.NewRegistry()
	reg.RegisterBuiltins()
	want := []string{
		"uppercase", "lowercase", "reverse", "base64encode", "base64decode",
		"hashsha256", "hashmd5", "prefixer", "suffixer", "replacer", "uuidgenerator",
	}
	for _, name := range want {
		_, ok := reg.Get(name)
		assert.True(t, ok, "missing builtin %q", name)
	}
}

func TestWrapChainAppliesStepsInOrder(t *testing.T) {
	s, _ := newSettings(t)
	ctx := context.Background()

	ref, err := resx.ParseURI(s, "data:,test")
	require.NoError(t, err)

	p, ok := mustProducer(t, s).(*transform.Producer)
	require.True(t, ok)

	steps := []transform.Step{
		{Transformer: "prefixer", Options: map[string]interface{}{"value": "a"}},
		{Transformer: "suffixer", Options: map[string]interface{}{"value": "b"}},
	}
	wrapped, err := p.WrapChain(ref, steps)
	require.NoError(t, err)

	resource, err := resx.OpenReference(ctx, s, wrapped, resx.OpenOptions{})
	require.NoError(t, err)

	v, err := resx.Data(resource.Content, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("atestb"), v)
}

func mustProducer(t *testing.T, s *resx.Settings) resx.Producer {
	t.Helper()
	p, ok := s.ProducerForScheme(transform.Scheme)
	require.True(t, ok)
	return p
}
