package pathmatch_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redbco/redb-resx/resx/pathmatch"
)

func TestGlobDoubleStarMatchesAnyDepth(t *testing.T) {
	m, err := pathmatch.Glob("**/bar.txt")
	require.NoError(t, err)
	assert.True(t, m.Match("/any/dir/bar.txt"))
	assert.True(t, m.Match("bar.txt"))
	assert.False(t, m.Match("/any/dir/bar.txt.bak"))
}

func TestGlobSingleStarDoesNotCrossSeparator(t *testing.T) {
	m, err := pathmatch.Glob("/data/*.txt")
	require.NoError(t, err)
	assert.True(t, m.Match("/data/a.txt"))
	assert.False(t, m.Match("/data/sub/a.txt"))
}

func TestGlobCharacterClassAndNegation(t *testing.T) {
	m, err := pathmatch.Glob("/logs/[!0-9].log")
	require.NoError(t, err)
	assert.True(t, m.Match("/logs/a.log"))
	assert.False(t, m.Match("/logs/1.log"))
}

func TestGlobAlternation(t *testing.T) {
	m, err := pathmatch.Glob("/srv/{a,b}.conf")
	require.NoError(t, err)
	assert.True(t, m.Match("/srv/a.conf"))
	assert.True(t, m.Match("/srv/b.conf"))
	assert.False(t, m.Match("/srv/c.conf"))
}

func TestGlobEscapesLiteralSpecialCharacters(t *testing.T) {
	m, err := pathmatch.Glob(`/weird/\*.txt`)
	require.NoError(t, err)
	assert.True(t, m.Match("/weird/*.txt"))
	assert.False(t, m.Match("/weird/x.txt"))
}

func TestRegexpAnchorsWholePath(t *testing.T) {
	m, err := pathmatch.Regexp(`/var/.*\.log`)
	require.NoError(t, err)
	assert.True(t, m.Match("/var/app.log"))
	assert.False(t, m.Match("/var/app.log.old"))
}
