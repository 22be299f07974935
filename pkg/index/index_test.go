package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferenceKeyRoundTrip(t *testing.T) {
	key := ReferenceKey("https://example.com/p/parent", "https://example.com/a", "https://example.com/c")
	p, v, s, err := DecodeReferenceKey(key)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/p/parent", p)
	assert.Equal(t, "https://example.com/a", v)
	assert.Equal(t, "https://example.com/c", s)
}

func TestReferencePrefixMatchesKey(t *testing.T) {
	key := ReferenceKey("p", "v", "s")
	prefix := ReferencePrefixPV("p", "v")
	assert.True(t, len(key) > len(prefix))
	assert.Equal(t, prefix, key[:len(prefix)])

	prefixP := ReferencePrefixP("p")
	assert.Equal(t, prefixP, key[:len(prefixP)])
}

func TestMembersKeyRoundTrip(t *testing.T) {
	key := MembersKey("coll", "00000042", "https://example.com/s")
	c, sv, s, err := DecodeMembersKey(key)
	require.NoError(t, err)
	assert.Equal(t, "coll", c)
	assert.Equal(t, "00000042", sv)
	assert.Equal(t, "https://example.com/s", s)
}

func TestIsExternal(t *testing.T) {
	assert.False(t, IsExternal("https://example.com/res/1", "https://example.com"))
	assert.True(t, IsExternal("https://other.com/res/1", "https://example.com"))
	assert.False(t, IsExternal("https://other.com/res/1", ""))
}
