package collection

import (
	"strconv"
	"testing"

	"github.com/cuemby/atomstore/pkg/atomserrors"
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

func seedN(t *testing.T, s *storage.Store, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		r := resource.New(testServerRoot + "/res/" + strconv.Itoa(i))
		r.Set(resource.PropIsA, value.NewResourceArray([]string{"https://example.com/classes/Thing"}))
		require.NoError(t, s.AddResource(r, false))
	}
}

func TestResolveDefaultPagination(t *testing.T) {
	s := openTestStore(t)
	seedN(t, s, 5)

	r, err := Resolve(s, testServerRoot+"/things", "")
	require.NoError(t, err)

	count, _ := r.Get(PropCollectionMemberCount)
	n, _ := count.Integer()
	assert.Equal(t, int64(5), n)

	page, _ := r.Get(PropCollectionCurrentPage)
	pageN, _ := page.Integer()
	assert.Equal(t, int64(1), pageN)

	pageSize, _ := r.Get(PropCollectionPageSize)
	pageSizeN, _ := pageSize.Integer()
	assert.Equal(t, int64(DefaultPageSize), pageSizeN)
}

func TestResolveOutOfBoundsPage(t *testing.T) {
	s := openTestStore(t)
	seedN(t, s, 1)

	_, err := Resolve(s, testServerRoot+"/things?current_page=2", "")
	assert.Equal(t, atomserrors.OutOfBounds, atomserrors.KindOf(err))
}

func TestResolveCustomPageSizeRejectsPageBeyondCount(t *testing.T) {
	s := openTestStore(t)
	seedN(t, s, 1)

	r, err := Resolve(s, testServerRoot+"/things?current_page=1&page_size=1", "")
	require.NoError(t, err)
	page, _ := r.Get(PropCollectionCurrentPage)
	n, _ := page.Integer()
	assert.Equal(t, int64(1), n)

	_, err = Resolve(s, testServerRoot+"/things?current_page=2&page_size=1", "")
	assert.Equal(t, atomserrors.OutOfBounds, atomserrors.KindOf(err))
}

func TestResolveFilterByProperty(t *testing.T) {
	s := openTestStore(t)
	seedN(t, s, 3)

	r, err := Resolve(s, testServerRoot+"/things?property="+resource.PropIsA, "")
	require.NoError(t, err)
	count, _ := r.Get(PropCollectionMemberCount)
	n, _ := count.Integer()
	assert.Equal(t, int64(3), n)
}

func TestResolveInvalidQueryParam(t *testing.T) {
	s := openTestStore(t)
	_, err := Resolve(s, testServerRoot+"/things?page_size=notanumber", "")
	assert.Equal(t, atomserrors.ParseError, atomserrors.KindOf(err))
}
