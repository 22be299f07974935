package storage

import (
	"strconv"
	"testing"

	"github.com/cuemby/atomstore/pkg/atomserrors"
	"github.com/cuemby/atomstore/pkg/resource"
	"github.com/cuemby/atomstore/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), "https://example.com")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func nameValue(t *testing.T, raw string) value.Value {
	t.Helper()
	v, err := value.New(value.String, raw)
	require.NoError(t, err)
	return v
}

func TestAddAndGetResource(t *testing.T) {
	s := openTestStore(t)
	r := resource.New("https://example.com/res/1")
	r.Set(resource.PropShortname, nameValue(t, "alice"))

	require.NoError(t, s.AddResource(r, false))

	got, err := s.GetPropvals("https://example.com/res/1")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Shortname())
}

func TestGetPropvalsNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetPropvals("https://example.com/missing")
	assert.Equal(t, atomserrors.NotFound, atomserrors.KindOf(err))
}

func TestRemoveResourceDeletesIndexEntries(t *testing.T) {
	s := openTestStore(t)
	r := resource.New("https://example.com/res/1")
	r.Set(resource.PropShortname, nameValue(t, "alice"))
	require.NoError(t, s.AddResource(r, false))

	subjects, err := s.TPFLookup(resource.PropShortname, "alice", false)
	require.NoError(t, err)
	assert.Contains(t, subjects, "https://example.com/res/1")

	require.NoError(t, s.RemoveResource("https://example.com/res/1"))

	subjects, err = s.TPFLookup(resource.PropShortname, "alice", false)
	require.NoError(t, err)
	assert.NotContains(t, subjects, "https://example.com/res/1")

	_, err = s.GetPropvals("https://example.com/res/1")
	assert.Equal(t, atomserrors.NotFound, atomserrors.KindOf(err))
}

func TestAllResourcesFiltersExternal(t *testing.T) {
	s := openTestStore(t)
	local := resource.New("https://example.com/res/local")
	local.Set(resource.PropShortname, nameValue(t, "local"))
	external := resource.New("https://other.com/res/external")
	external.Set(resource.PropShortname, nameValue(t, "external"))

	require.NoError(t, s.AddResource(local, false))
	require.NoError(t, s.AddResource(external, false))

	localOnly, err := s.AllResources(false)
	require.NoError(t, err)
	assert.Len(t, localOnly, 1)
	assert.Equal(t, "https://example.com/res/local", localOnly[0].Subject)

	all, err := s.AllResources(true)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRequiredPropertyValidation(t *testing.T) {
	s := openTestStore(t)
	class := resource.New("https://example.com/classes/Widget")
	class.Set(resource.PropRequires, value.NewResourceArray([]string{resource.PropShortname}))
	require.NoError(t, s.AddResource(class, false))

	bad := resource.New("https://example.com/res/bad")
	bad.Set(resource.PropIsA, value.NewResourceArray([]string{"https://example.com/classes/Widget"}))

	err := s.AddResource(bad, true)
	assert.Equal(t, atomserrors.SchemaViolation, atomserrors.KindOf(err))

	bad.Set(resource.PropShortname, nameValue(t, "widget-1"))
	assert.NoError(t, s.AddResource(bad, true))
}

func TestMembersScanOrdersBySortKey(t *testing.T) {
	s := openTestStore(t)
	ages := map[string]int64{
		"https://example.com/res/a": 42,
		"https://example.com/res/b": 7,
		"https://example.com/res/c": 99,
	}
	ageProp := "https://example.com/properties/age"
	statusProp := "https://example.com/properties/status"
	for subject, age := range ages {
		r := resource.New(subject)
		ageVal, err := value.New(value.Integer, strconv.FormatInt(age, 10))
		require.NoError(t, err)
		r.Set(ageProp, ageVal)
		statusVal, err := value.New(value.String, "active")
		require.NoError(t, err)
		r.Set(statusProp, statusVal)
		require.NoError(t, s.AddResource(r, false))
	}

	subjects, err := s.MembersScan(MembersCollectionKey(statusProp, ageProp))
	require.NoError(t, err)
	require.Len(t, subjects, 3)
	assert.Equal(t, []string{
		"https://example.com/res/b",
		"https://example.com/res/a",
		"https://example.com/res/c",
	}, subjects)
}

func TestCreateAgentAndDefaultAgent(t *testing.T) {
	s := openTestStore(t)
	kp, err := s.CreateAgent("https://example.com/agents/alice", "alice")
	require.NoError(t, err)
	assert.NotEmpty(t, kp.Public)

	_, err = s.GetDefaultAgent()
	assert.Equal(t, atomserrors.NotFound, atomserrors.KindOf(err))

	require.NoError(t, s.SetDefaultAgent("https://example.com/agents/alice"))
	got, err := s.GetDefaultAgent()
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/agents/alice", got)
}
