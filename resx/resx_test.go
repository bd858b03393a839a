package resx_test

import (
	"context"
	"testing"
	"time"

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

func TestFinaliseHashesWithConfiguredDefault(t *testing.T) {
	s := newSettings()
	s.SetHashDefault("sha256")
	ctx := context.Background()

	res, err := resx.Open(ctx, s, "data:,abc", resx.OpenOptions{})
	require.NoError(t, err)

	out, err := resx.Finalise(ctx, s, res, resx.FinaliseOptions{})
	require.NoError(t, err)
	require.NotNil(t, out.Reference.Integrity.Checksum)
	assert.Equal(t, "sha256", out.Reference.Integrity.Checksum.Algorithm)
	assert.NotEmpty(t, out.Reference.Integrity.Checksum.Digest)
}

func TestFinaliseNoHashSkipsChecksum(t *testing.T) {
	s := newSettings()
	s.SetHashDefault("sha256")
	ctx := context.Background()

	res, err := resx.Open(ctx, s, "data:,abc", resx.OpenOptions{})
	require.NoError(t, err)

	out, err := resx.Finalise(ctx, s, res, resx.FinaliseOptions{NoHash: true})
	require.NoError(t, err)
	assert.Nil(t, out.Reference.Integrity.Checksum)
}

func TestHashShortCircuitsOnMatchingAlgorithm(t *testing.T) {
	s := newSettings()
	ctx := context.Background()

	res, err := resx.Open(ctx, s, "data:,abc", resx.OpenOptions{})
	require.NoError(t, err)
	existing := resx.Checksum{Algorithm: "sha256", Digest: []byte("not-really-a-hash")}
	res.Reference.Integrity.Checksum = &existing

	sum, err := resx.Hash(ctx, s, res, resx.HashRequest{Algorithm: "sha256"})
	require.NoError(t, err)
	assert.Equal(t, existing, sum)
}

func TestCompareOrdersByTimestampWhenChecksumUnknown(t *testing.T) {
	s := newSettings()
	ctx := context.Background()

	older, err := resx.Open(ctx, s, "data:,same", resx.OpenOptions{})
	require.NoError(t, err)
	newer := older
	older.Reference.Integrity.Timestamp = fixedTime(1)
	newer.Reference.Integrity.Timestamp = fixedTime(2)

	result, err := resx.Compare(ctx, s, older, newer, resx.CompareOptions{})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, resx.ResultLt, *result)
}

func TestCompareReturnsNilForUnalikeReferences(t *testing.T) {
	s := newSettings()
	ctx := context.Background()

	a, err := resx.Open(ctx, s, "data:,a", resx.OpenOptions{})
	require.NoError(t, err)
	b, err := resx.Open(ctx, s, "data:,b", resx.OpenOptions{})
	require.NoError(t, err)

	result, err := resx.Compare(ctx, s, a, b, resx.CompareOptions{})
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestNewestReturnsTheNewerResource(t *testing.T) {
	s := newSettings()
	ctx := context.Background()

	base, err := resx.Open(ctx, s, "data:,same", resx.OpenOptions{})
	require.NoError(t, err)
	older, newer := base, base
	older.Reference.Integrity.Timestamp = fixedTime(1)
	newer.Reference.Integrity.Timestamp = fixedTime(2)

	best, err := resx.Newest(ctx, s, older, newer, resx.CompareOptions{})
	require.NoError(t, err)
	require.NotNil(t, best)
	assert.Equal(t, newer.Reference.Integrity.Timestamp, best.Reference.Integrity.Timestamp)
}

func fixedTime(sec int64) time.Time {
	return time.Unix(sec, 0)
}
