package storage

import (
	"github.com/cuemby/atomstore/pkg/index"
	"github.com/cuemby/atomstore/pkg/resource"
	"github.com/cuemby/atomstore/pkg/value"
	bolt "go.etcd.io/bbolt"
)

// reindexLocked brings the reference_index and members_index buckets in
// line with replacing old (nil on create) with next (nil on destroy),
// inside the same transaction as the resources bucket write, so index
// maintenance shares the atomic batch boundary of spec §4.1.
func reindexLocked(tx *bolt.Tx, serverRoot string, old, next *resource.Resource) error {
	if old != nil {
		if err := removeResourceIndexEntries(tx, old); err != nil {
			return err
		}
	}
	if next != nil {
		if err := addResourceIndexEntries(tx, next); err != nil {
			return err
		}
	}
	return nil
}

func addResourceIndexEntries(tx *bolt.Tx, r *resource.Resource) error {
	ref := tx.Bucket(bucketReferenceIdx)
	for prop, v := range r.Propvals {
		for _, raw := range referenceValues(v) {
			if err := ref.Put(index.ReferenceKey(prop, raw, r.Subject), nil); err != nil {
				return err
			}
		}
	}
	return addMembersIndexEntries(tx, r)
}

func removeResourceIndexEntries(tx *bolt.Tx, r *resource.Resource) error {
	ref := tx.Bucket(bucketReferenceIdx)
	for prop, v := range r.Propvals {
		for _, raw := range referenceValues(v) {
			if err := ref.Delete(index.ReferenceKey(prop, raw, r.Subject)); err != nil {
				return err
			}
		}
	}
	return removeMembersIndexEntries(tx, r)
}

// referenceValues returns the reference_index value-strings a propval
// contributes: one per element for ResourceArray (spec §4.3), the raw
// encoding itself for every other datatype.
func referenceValues(v value.Value) []string {
	if v.Datatype == value.ResourceArray {
		return v.ResourceArrayElements()
	}
	return []string{v.Raw}
}

// addMembersIndexEntries writes the members_index entries that let the
// query engine (spec §4.4) do a sorted range scan for "filter by property
// p1, sort by property p2" collections without a table scan. Because the
// set of (filter, sort) pairs a query will ask for isn't known ahead of
// time, every ordered pair of properties actually present on the resource
// gets an entry; this is quadratic in the resource's own property count,
// which stays small at embeddable scale. A degenerate entry with an empty
// filter property additionally supports "sort only, no filter" queries.
func addMembersIndexEntries(tx *bolt.Tx, r *resource.Resource) error {
	members := tx.Bucket(bucketMembersIdx)
	props := r.SortedProperties()
	for _, p2 := range props {
		sortVal := r.Propvals[p2].SortKey()
		if err := members.Put(index.MembersKey(membersCollectionKey("", p2), sortVal, r.Subject), nil); err != nil {
			return err
		}
		for _, p1 := range props {
			if p1 == p2 {
				continue
			}
			key := index.MembersKey(membersCollectionKey(p1, p2), sortVal, r.Subject)
			if err := members.Put(key, nil); err != nil {
				return err
			}
		}
	}
	return nil
}

func removeMembersIndexEntries(tx *bolt.Tx, r *resource.Resource) error {
	members := tx.Bucket(bucketMembersIdx)
	props := r.SortedProperties()
	for _, p2 := range props {
		sortVal := r.Propvals[p2].SortKey()
		if err := members.Delete(index.MembersKey(membersCollectionKey("", p2), sortVal, r.Subject)); err != nil {
			return err
		}
		for _, p1 := range props {
			if p1 == p2 {
				continue
			}
			key := index.MembersKey(membersCollectionKey(p1, p2), sortVal, r.Subject)
			if err := members.Delete(key); err != nil {
				return err
			}
		}
	}
	return nil
}

// membersCollectionKey composes the members_index collection key for the
// (filterProperty, sortProperty) pair. filterProperty is "" for the
// sort-only degenerate entries.
func membersCollectionKey(filterProperty, sortProperty string) string {
	return filterProperty + "\x00" + sortProperty
}

// MembersCollectionKey is the exported form pkg/query uses to look up the
// collection key for a given filter/sort property pair.
func MembersCollectionKey(filterProperty, sortProperty string) string {
	return membersCollectionKey(filterProperty, sortProperty)
}

// TPFLookup runs a triple-pattern-fragment scan over the reference_index
// for the given (property, value) pattern, implementing the wildcard
// strategy table of spec §4.3. valueRaw may be "" to mean wildcard; with
// property=="" the lookup returns no subjects and no error, since the index
// isn't keyed for it (callers fall back to AllResources). Subjects
// outside the store's server root are flagged external (spec §4.3); when
// includeExternal is false they are dropped from the scan itself, so a
// caller never needs a backing resource to apply the filter.
func (s *Store) TPFLookup(property, valueRaw string, includeExternal bool) ([]string, error) {
	var subjects []string
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketReferenceIdx).Cursor()
		var prefix []byte
		switch {
		case property != "" && valueRaw != "":
			prefix = index.ReferencePrefixPV(property, valueRaw)
		case property != "":
			prefix = index.ReferencePrefixP(property)
		default:
			return nil // full wildcard: caller should fall back to AllResources
		}
		for k, _ := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, _ = c.Next() {
			_, _, subject, err := index.DecodeReferenceKey(k)
			if err != nil {
				return err
			}
			if !includeExternal && index.IsExternal(subject, s.serverRoot) {
				continue
			}
			subjects = append(subjects, subject)
		}
		return nil
	})
	return subjects, err
}

func hasPrefix(key, prefix []byte) bool {
	if len(key) < len(prefix) {
		return false
	}
	for i := range prefix {
		if key[i] != prefix[i] {
			return false
		}
	}
	return true
}

// MembersScan range-scans the members_index for collectionKey, returning
// subjects in ascending sort-value order (spec §4.4's scan-source step).
// Callers wanting descending order reverse the result themselves, after
// pagination bounds are applied (spec §4.4 step 4).
func (s *Store) MembersScan(collectionKey string) ([]string, error) {
	var subjects []string
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketMembersIdx).Cursor()
		prefix := index.MembersPrefix(collectionKey)
		for k, _ := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, _ = c.Next() {
			_, _, subject, err := index.DecodeMembersKey(k)
			if err != nil {
				return err
			}
			subjects = append(subjects, subject)
		}
		return nil
	})
	return subjects, err
}

// AddAtomToIndex writes a single reference_index entry without touching
// the resources bucket, letting tests (and §8 scenario 3) exercise the
// index independently of a full resource write.
func (s *Store) AddAtomToIndex(property, valueRaw, subject string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketReferenceIdx).Put(index.ReferenceKey(property, valueRaw, subject), nil)
	})
}

// RemoveAtomFromIndex deletes a single reference_index entry.
func (s *Store) RemoveAtomFromIndex(property, valueRaw, subject string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketReferenceIdx).Delete(index.ReferenceKey(property, valueRaw, subject))
	})
}
