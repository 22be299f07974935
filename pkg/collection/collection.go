// Package collection implements the dynamic collection resolver of spec
// §4.6 (Component I): read-time resolution of a query-string-parameterized
// subject into a synthesized Collection resource.
package collection

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/cuemby/atomstore/pkg/atomserrors"
	"github.com/cuemby/atomstore/pkg/metrics"
	"github.com/cuemby/atomstore/pkg/query"
	"github.com/cuemby/atomstore/pkg/resource"
	"github.com/cuemby/atomstore/pkg/storage"
	"github.com/cuemby/atomstore/pkg/value"
)

// Well-known collection propvals, spec §4.6's table.
const (
	PropCollectionProperty      = "https://atomstore.dev/properties/collection-property"
	PropCollectionValue         = "https://atomstore.dev/properties/collection-value"
	PropCollectionSortBy        = "https://atomstore.dev/properties/collection-sort-by"
	PropCollectionSortDesc      = "https://atomstore.dev/properties/collection-sort-desc"
	PropCollectionCurrentPage   = "https://atomstore.dev/properties/collection-current-page"
	PropCollectionPageSize      = "https://atomstore.dev/properties/collection-page-size"
	PropCollectionMemberCount   = "https://atomstore.dev/properties/collection-member-count"
	PropCollectionMembers       = "https://atomstore.dev/properties/collection-members"
	PropCollectionIncludeNested = "https://atomstore.dev/properties/collection-include-nested"
)

// DefaultPageSize is the implementation-chosen constant spec §4.6 leaves
// open, named so the resolver and its tests share a single source of truth.
const DefaultPageSize = 30

// Resolve parses a `base/collection-name?query-string` subject, runs its
// embedded Query, and returns the synthesized Collection resource. It
// does not persist the result; collections are always computed fresh at
// read time.
func Resolve(store *storage.Store, subject string, forAgent string) (*resource.Resource, error) {
	rawQuery := splitSubject(subject)
	params, err := url.ParseQuery(rawQuery)
	if err != nil {
		return nil, atomserrors.Wrap(atomserrors.ParseError, err, "parsing collection query string")
	}

	q, pageSize, currentPage, err := buildQuery(params, forAgent)
	if err != nil {
		return nil, err
	}

	result, err := query.Execute(store, q)
	if err != nil {
		return nil, err
	}

	maxPage := (result.Count + pageSize - 1) / pageSize
	if maxPage == 0 {
		maxPage = 1
	}
	if currentPage > maxPage {
		return nil, atomserrors.Newf(atomserrors.OutOfBounds, "page %d exceeds %d", currentPage, maxPage)
	}

	metrics.CollectionsResolved.Inc()
	return synthesize(subject, q, result, pageSize, currentPage), nil
}

// splitSubject returns the query-string portion of a collection subject,
// or "" if the subject carries no "?".
func splitSubject(subject string) string {
	idx := strings.IndexByte(subject, '?')
	if idx < 0 {
		return ""
	}
	return subject[idx+1:]
}

func buildQuery(params url.Values, forAgent string) (q query.Query, pageSize, currentPage int, err error) {
	pageSize = DefaultPageSize
	currentPage = 1

	if v := params.Get("property"); v != "" {
		q.Property = &v
	}
	if v := params.Get("value"); v != "" {
		q.Value = &v
	}
	if v := params.Get("sort_by"); v != "" {
		q.SortBy = &v
	}
	if v := params.Get("sort_desc"); v != "" {
		q.SortDesc, err = strconv.ParseBool(v)
		if err != nil {
			return q, 0, 0, atomserrors.Wrap(atomserrors.ParseError, err, "invalid sort_desc")
		}
	}
	if v := params.Get("include_nested"); v != "" {
		q.IncludeNested, err = strconv.ParseBool(v)
		if err != nil {
			return q, 0, 0, atomserrors.Wrap(atomserrors.ParseError, err, "invalid include_nested")
		}
	}
	if v := params.Get("page_size"); v != "" {
		pageSize, err = strconv.Atoi(v)
		if err != nil || pageSize <= 0 {
			return q, 0, 0, atomserrors.Newf(atomserrors.ParseError, "invalid page_size %q", v)
		}
	}
	if v := params.Get("current_page"); v != "" {
		currentPage, err = strconv.Atoi(v)
		if err != nil || currentPage <= 0 {
			return q, 0, 0, atomserrors.Newf(atomserrors.ParseError, "invalid current_page %q", v)
		}
	}

	q.Offset = (currentPage - 1) * pageSize
	limit := pageSize
	q.Limit = &limit
	if forAgent != "" {
		q.ForAgent = &forAgent
	}
	return q, pageSize, currentPage, nil
}

func synthesize(subject string, q query.Query, result *query.Result, pageSize, currentPage int) *resource.Resource {
	r := resource.New(subject)
	r.Set(resource.PropIsA, value.NewResourceArray([]string{resource.ClassCollection}))

	if q.Property != nil {
		r.Set(PropCollectionProperty, must(value.New(value.String, *q.Property)))
	}
	if q.Value != nil {
		r.Set(PropCollectionValue, must(value.New(value.String, *q.Value)))
	}
	if q.SortBy != nil {
		r.Set(PropCollectionSortBy, must(value.New(value.String, *q.SortBy)))
	}
	r.Set(PropCollectionSortDesc, must(value.New(value.Boolean, strconv.FormatBool(q.SortDesc))))
	r.Set(PropCollectionCurrentPage, must(value.New(value.Integer, strconv.Itoa(currentPage))))
	r.Set(PropCollectionPageSize, must(value.New(value.Integer, strconv.Itoa(pageSize))))
	r.Set(PropCollectionMemberCount, must(value.New(value.Integer, strconv.Itoa(result.Count))))
	r.Set(PropCollectionMembers, value.NewResourceArray(result.Subjects))
	r.Set(PropCollectionIncludeNested, must(value.New(value.Boolean, strconv.FormatBool(q.IncludeNested))))
	return r
}

func must(v value.Value, err error) value.Value {
	if err != nil {
		panic(err)
	}
	return v
}
