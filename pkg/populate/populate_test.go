package populate

import (
	"testing"

	"github.com/cuemby/atomstore/pkg/resource"
	"github.com/cuemby/atomstore/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testServerRoot = "https://example.com"

func TestBootstrapSeedsOntologyAndRootAgent(t *testing.T) {
	s, err := storage.Open(t.TempDir(), testServerRoot)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	kp, err := Bootstrap(s, testServerRoot)
	require.NoError(t, err)
	assert.NotEmpty(t, kp.Public)

	agent, err := s.GetPropvals(testServerRoot + "/agents/root")
	require.NoError(t, err)
	assert.Equal(t, "root", agent.Shortname())

	defaultAgent, err := s.GetDefaultAgent()
	require.NoError(t, err)
	assert.Equal(t, testServerRoot+"/agents/root", defaultAgent)

	for _, class := range builtinClasses {
		_, err := s.GetPropvals(class.subject)
		require.NoError(t, err, "expected class %s to be seeded", class.subject)
	}
	for _, prop := range builtinProperties {
		_, err := s.GetPropvals(prop.subject)
		require.NoError(t, err, "expected property %s to be seeded", prop.subject)
	}

	root, err := s.GetPropvals(testServerRoot)
	require.NoError(t, err)
	write, ok := root.Get(resource.PropWrite)
	require.True(t, ok)
	assert.Contains(t, write.ResourceArrayElements(), testServerRoot+"/agents/root")
}

func TestBootstrapIsIdempotent(t *testing.T) {
	s, err := storage.Open(t.TempDir(), testServerRoot)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	_, err = Bootstrap(s, testServerRoot)
	require.NoError(t, err)

	_, err = Bootstrap(s, testServerRoot)
	require.NoError(t, err)

	defaultAgent, err := s.GetDefaultAgent()
	require.NoError(t, err)
	assert.Equal(t, testServerRoot+"/agents/root", defaultAgent)
}
