package etf_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redbco/redb-resx/resx/etf"
)

type sample struct {
	Name  string
	Count int
	Tags  []string
}

func TestEncodeDecodeRoundTripsStruct(t *testing.T) {
	in := sample{Name: "widget", Count: 3, Tags: []string{"a", "b"}}
	b, err := etf.Encode(in)
	require.NoError(t, err)

	var out sample
	require.NoError(t, etf.Decode(b, &out))
	assert.Equal(t, in, out)
}

func TestEncodeDecodeMapRoundTrips(t *testing.T) {
	in := map[string]interface{}{"a": "one", "b": int64(2)}
	b, err := etf.EncodeMap(in)
	require.NoError(t, err)

	out, err := etf.DecodeMap(b)
	require.NoError(t, err)
	assert.Equal(t, "one", out["a"])
	assert.EqualValues(t, 2, out["b"])
}

func TestDecodeMapOfEmptyBytesIsEmptyMap(t *testing.T) {
	out, err := etf.DecodeMap(nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}
