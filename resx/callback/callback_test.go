package callback_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redbco/redb-resx/resx/callback"
)

type staticRegistry map[string]callback.Func

func (r staticRegistry) Resolve(module, function string) (callback.Func, error) {
	fn, ok := r[module+"/"+function]
	if !ok {
		return nil, assert.AnError
	}
	return fn, nil
}

func echo(args []interface{}) (interface{}, error) { return args, nil }

func TestCallExplicitEnforcesArity(t *testing.T) {
	d := callback.Explicit(echo, 2)
	_, err := callback.Call(nil, d, []interface{}{1}, callback.Required)
	assert.Error(t, err)

	v, err := callback.Call(nil, d, []interface{}{1, 2}, callback.Required)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{1, 2}, v)
}

func TestCallBoundArgsAppendsInputs(t *testing.T) {
	reg := staticRegistry{"m/f": echo}
	d := callback.BoundArgs("m", "f", "bound1", "bound2")
	v, err := callback.Call(reg, d, []interface{}{"in1"}, callback.Required)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"bound1", "bound2", "in1"}, v)
}

func TestCallPlacedIndexSplicesInputs(t *testing.T) {
	reg := staticRegistry{"m/f": echo}
	d := callback.Placed("m", "f", []interface{}{"a", "b"}, callback.Placement{Kind: callback.PlacementIndex, Index: 1})
	v, err := callback.Call(reg, d, []interface{}{"x", "y"}, callback.Required)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"a", "x", "y", "b"}, v)
}

func TestCallPlacedListZipsPositions(t *testing.T) {
	reg := staticRegistry{"m/f": echo}
	d := callback.Placed("m", "f", []interface{}{"bound0", "bound2"}, callback.Placement{
		Kind: callback.PlacementList,
		List: []int{1, 3},
	})
	v, err := callback.Call(reg, d, []interface{}{"in1", "in3"}, callback.Required)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"bound0", "in1", "bound2", "in3"}, v)
}

func TestCallPlacedNoneRequiresOptional(t *testing.T) {
	reg := staticRegistry{"m/f": echo}
	d := callback.Placed("m", "f", []interface{}{"only"}, callback.Placement{Kind: callback.PlacementNone})

	_, err := callback.Call(reg, d, []interface{}{"ignored"}, callback.Required)
	assert.Error(t, err)

	v, err := callback.Call(reg, d, []interface{}{"ignored"}, callback.Optional)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"only"}, v)
}

func TestResolveRequiresRegistryForNamedDescriptor(t *testing.T) {
	d := callback.Named("m", "f", 1)
	_, err := callback.Call(nil, d, []interface{}{"x"}, callback.Required)
	assert.Error(t, err)
}
