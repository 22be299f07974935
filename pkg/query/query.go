// Package query implements the collection query engine of spec §4.4
// (Component G): a six-step plan that chooses a scan source, bounds and
// paginates it, applies the authorization filter, and optionally
// materializes full resources.
package query

import (
	"sort"
	"strings"

	"github.com/cuemby/atomstore/pkg/atomserrors"
	"github.com/cuemby/atomstore/pkg/auth"
	"github.com/cuemby/atomstore/pkg/metrics"
	"github.com/cuemby/atomstore/pkg/resource"
	"github.com/cuemby/atomstore/pkg/storage"
)

// Query is the filter/sort/page specification of spec §4.4.
type Query struct {
	Property *string
	Value    *string

	SortBy   *string
	SortDesc bool

	StartVal *string
	EndVal   *string

	Limit  *int
	Offset int

	IncludeExternal bool
	IncludeNested   bool

	ForAgent *string
}

// Result is the outcome of Execute: the window of matching subjects (and,
// if requested, their resources), plus the unpaginated match count.
type Result struct {
	Subjects  []string
	Resources []*resource.Resource
	Count     int
}

// scanStrategy names which branch of step 1's source selection ran, for
// the per-strategy metrics spec's ambient stack calls for.
type scanStrategy string

const (
	strategyExactReference scanStrategy = "exact_reference"
	strategyMembersSorted  scanStrategy = "members_sorted"
	strategyPrefix         scanStrategy = "prefix"
	strategyValueFilter    scanStrategy = "value_filter"
	strategyFullScan       scanStrategy = "full_scan"
)

// Execute runs the six-step plan of spec §4.4 against store.
func Execute(store *storage.Store, q Query) (*Result, error) {
	timer := metrics.NewTimer()

	subjects, strategy, err := scan(store, q)
	if err != nil {
		return nil, err
	}
	metrics.QueriesTotal.WithLabelValues(string(strategy)).Inc()
	defer timer.ObserveDurationVec(metrics.QueryDuration, string(strategy))

	subjects = applyBounds(store, q, subjects)

	total := len(subjects)

	subjects = window(subjects, q.Offset, q.Limit)

	if q.SortDesc {
		reverse(subjects)
	}

	resources, err := loadAndFilter(store, q, subjects)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Subjects: make([]string, len(resources)),
		Count:    total,
	}
	for i, r := range resources {
		result.Subjects[i] = r.Subject
	}
	if q.IncludeNested {
		result.Resources = resources
	}
	return result, nil
}

// scan implements step 1: choose scan source.
func scan(store *storage.Store, q Query) ([]string, scanStrategy, error) {
	switch {
	case q.Property != nil && q.Value != nil:
		subjects, err := store.TPFLookup(*q.Property, *q.Value, q.IncludeExternal)
		return dedupe(subjects), strategyExactReference, err

	case q.Property != nil && q.SortBy != nil:
		key := storage.MembersCollectionKey(*q.Property, *q.SortBy)
		subjects, err := store.MembersScan(key)
		return subjects, strategyMembersSorted, err

	case q.Property != nil:
		subjects, err := store.TPFLookup(*q.Property, "", q.IncludeExternal)
		return dedupe(subjects), strategyPrefix, err

	case q.Value != nil:
		all, err := store.AllResources(q.IncludeExternal)
		if err != nil {
			return nil, strategyValueFilter, err
		}
		var subjects []string
		for _, r := range all {
			for _, v := range r.Propvals {
				if v.Raw == *q.Value {
					subjects = append(subjects, r.Subject)
					break
				}
			}
		}
		return subjects, strategyValueFilter, nil

	default:
		if q.SortBy != nil {
			key := storage.MembersCollectionKey("", *q.SortBy)
			subjects, err := store.MembersScan(key)
			return subjects, strategyMembersSorted, err
		}
		all, err := store.AllResources(q.IncludeExternal)
		if err != nil {
			return nil, strategyFullScan, err
		}
		subjects := make([]string, len(all))
		for i, r := range all {
			subjects[i] = r.Subject
		}
		sort.Strings(subjects)
		return subjects, strategyFullScan, nil
	}
}

// applyBounds implements step 2: restrict to [start_val, end_val] on the
// sort column, when one was requested. Only meaningful for the two
// sorted-scan strategies; a nil SortBy makes this a no-op since there is
// no sort column to bound.
func applyBounds(store *storage.Store, q Query, subjects []string) []string {
	if q.SortBy == nil || (q.StartVal == nil && q.EndVal == nil) {
		return subjects
	}
	var out []string
	for _, subject := range subjects {
		r, err := store.GetPropvals(subject)
		if err != nil {
			continue
		}
		v, ok := r.Get(*q.SortBy)
		if !ok {
			continue
		}
		key := v.SortKey()
		if q.StartVal != nil && strings.Compare(key, *q.StartVal) < 0 {
			continue
		}
		if q.EndVal != nil && strings.Compare(key, *q.EndVal) > 0 {
			continue
		}
		out = append(out, subject)
	}
	return out
}

// dedupe drops repeated subjects while preserving first-seen order, since
// a multi-valued (ResourceArray) property contributes one reference_index
// entry per element and a prefix/exact scan would otherwise surface the
// same subject once per matching element.
func dedupe(subjects []string) []string {
	if len(subjects) == 0 {
		return subjects
	}
	seen := make(map[string]bool, len(subjects))
	out := make([]string, 0, len(subjects))
	for _, s := range subjects {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func reverse(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

// window implements step 3: skip offset, take limit.
func window(subjects []string, offset int, limit *int) []string {
	if offset >= len(subjects) {
		return nil
	}
	subjects = subjects[offset:]
	if limit != nil && *limit < len(subjects) {
		subjects = subjects[:*limit]
	}
	return subjects
}

// loadAndFilter implements steps 5 and 6: an authorization-filtered load
// of each surviving subject's resource. Resources are always loaded here
// (not only when IncludeNested) since Execute needs them to report the
// final subjects list net of authorization denials.
func loadAndFilter(store *storage.Store, q Query, subjects []string) ([]*resource.Resource, error) {
	lookup := func(subject string) (*resource.Resource, bool) {
		r, err := store.GetPropvals(subject)
		if err != nil {
			return nil, false
		}
		return r, true
	}

	var out []*resource.Resource
	for _, subject := range subjects {
		r, ok := lookup(subject)
		if !ok {
			continue
		}
		if q.ForAgent != nil {
			if err := auth.Check(lookup, *q.ForAgent, subject, auth.Read); err != nil {
				if atomserrors.KindOf(err) == atomserrors.Unauthorized {
					continue
				}
				return nil, err
			}
		}
		out = append(out, r)
	}
	return out, nil
}
