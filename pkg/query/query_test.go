package query

import (
	"strconv"
	"testing"

	"github.com/cuemby/atomstore/pkg/resource"
	"github.com/cuemby/atomstore/pkg/storage"
	"github.com/cuemby/atomstore/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testServerRoot = "https://example.com"

func openTestStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.Open(t.TempDir(), testServerRoot)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

var statusProp = "https://example.com/properties/status"
var ageProp = "https://example.com/properties/age"

func seedPeople(t *testing.T, s *storage.Store) {
	t.Helper()
	people := []struct {
		subject string
		status  string
		age     int64
	}{
		{testServerRoot + "/res/a", "active", 30},
		{testServerRoot + "/res/b", "active", 20},
		{testServerRoot + "/res/c", "inactive", 50},
		{testServerRoot + "/res/d", "active", 40},
	}
	for _, p := range people {
		r := resource.New(p.subject)
		statusVal, err := value.New(value.String, p.status)
		require.NoError(t, err)
		r.Set(statusProp, statusVal)
		ageVal, err := value.New(value.Integer, strconv.FormatInt(p.age, 10))
		require.NoError(t, err)
		r.Set(ageProp, ageVal)
		require.NoError(t, s.AddResource(r, false))
	}
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestExecuteExactReferenceMatch(t *testing.T) {
	s := openTestStore(t)
	seedPeople(t, s)

	result, err := Execute(s, Query{Property: strPtr(statusProp), Value: strPtr("active")})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Count)
	assert.ElementsMatch(t, []string{
		testServerRoot + "/res/a", testServerRoot + "/res/b", testServerRoot + "/res/d",
	}, result.Subjects)
}

func TestExecuteMembersSortedFilterAndSort(t *testing.T) {
	s := openTestStore(t)
	seedPeople(t, s)

	result, err := Execute(s, Query{Property: strPtr(statusProp), SortBy: strPtr(ageProp)})
	require.NoError(t, err)
	require.Len(t, result.Subjects, 4)
	assert.Equal(t, testServerRoot+"/res/b", result.Subjects[0]) // age 20
	assert.Equal(t, testServerRoot+"/res/c", result.Subjects[3]) // age 50
}

func TestExecuteSortDescReversesWindow(t *testing.T) {
	s := openTestStore(t)
	seedPeople(t, s)

	result, err := Execute(s, Query{SortBy: strPtr(ageProp), SortDesc: true})
	require.NoError(t, err)
	require.Len(t, result.Subjects, 4)
	assert.Equal(t, testServerRoot+"/res/c", result.Subjects[0]) // age 50, first after reversal
}

func TestExecutePagination(t *testing.T) {
	s := openTestStore(t)
	seedPeople(t, s)

	result, err := Execute(s, Query{SortBy: strPtr(ageProp), Limit: intPtr(2), Offset: 0})
	require.NoError(t, err)
	assert.Equal(t, 4, result.Count)
	assert.Len(t, result.Subjects, 2)

	result, err = Execute(s, Query{SortBy: strPtr(ageProp), Limit: intPtr(2), Offset: 2})
	require.NoError(t, err)
	assert.Len(t, result.Subjects, 2)
}

func TestExecuteIncludeNestedMaterializesResources(t *testing.T) {
	s := openTestStore(t)
	seedPeople(t, s)

	result, err := Execute(s, Query{Property: strPtr(statusProp), Value: strPtr("active"), IncludeNested: true})
	require.NoError(t, err)
	assert.Len(t, result.Resources, 3)
}

func TestExecuteAuthorizationFiltersWithoutAffectingCount(t *testing.T) {
	s := openTestStore(t)
	r := resource.New(testServerRoot + "/res/secret")
	r.Set(resource.PropRead, value.NewResourceArray([]string{testServerRoot + "/agents/owner"}))
	require.NoError(t, s.AddResource(r, false))

	result, err := Execute(s, Query{ForAgent: strPtr(testServerRoot + "/agents/stranger")})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Count)
	assert.Empty(t, result.Subjects)

	result, err = Execute(s, Query{ForAgent: strPtr(testServerRoot + "/agents/owner")})
	require.NoError(t, err)
	assert.Equal(t, []string{testServerRoot + "/res/secret"}, result.Subjects)
}

func TestExecuteStartEndBoundsOnSortColumn(t *testing.T) {
	s := openTestStore(t)
	seedPeople(t, s)

	ageVal, err := value.New(value.Integer, "30")
	require.NoError(t, err)
	startKey := ageVal.SortKey()

	result, err := Execute(s, Query{SortBy: strPtr(ageProp), StartVal: &startKey})
	require.NoError(t, err)
	for _, subject := range result.Subjects {
		assert.NotEqual(t, testServerRoot+"/res/b", subject) // age 20, excluded by start bound
	}
}
