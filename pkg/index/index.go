// Package index implements the key encodings and scan-pattern strategy of
// atomstore's two derived indexes (spec §4.3, Component E): the
// triple-pattern-fragment reference index, and the sorted members index.
// It is pure (no storage dependency); pkg/storage owns the bbolt buckets
// these keys are written into and read from.
package index

import (
	"bytes"
	"fmt"
	"strings"
)

// sep is the field separator used inside composite index keys. Subjects,
// property URLs and sort values never contain a NUL byte, so this is an
// unambiguous delimiter the way the teacher's bucket keys use fixed
// prefixes rather than a separator at all.
const sep = "\x00"

// ReferenceKey encodes the TPF index key for an atom: property, then the
// atom's canonical string value, then subject (spec §4.3 table).
func ReferenceKey(property, valueRaw, subject string) []byte {
	return []byte(property + sep + valueRaw + sep + subject)
}

// ReferencePrefixPV returns the range-scan prefix for a (_, p, v) pattern.
func ReferencePrefixPV(property, valueRaw string) []byte {
	return []byte(property + sep + valueRaw + sep)
}

// ReferencePrefixP returns the range-scan prefix for a (_, p, _) pattern.
func ReferencePrefixP(property string) []byte {
	return []byte(property + sep)
}

// DecodeReferenceKey splits a reference_index key back into its parts.
func DecodeReferenceKey(key []byte) (property, valueRaw, subject string, err error) {
	parts := bytes.SplitN(key, []byte(sep), 3)
	if len(parts) != 3 {
		return "", "", "", fmt.Errorf("malformed reference index key %q", key)
	}
	return string(parts[0]), string(parts[1]), string(parts[2]), nil
}

// MembersKey encodes the sorted-members index key: a collection key
// (pkg/storage uses the filter property and sort property joined by sep,
// with an empty filter property for sort-only entries), the zero-padded
// sort value, then the subject, so a byte-order range scan yields
// subjects in sort-value order (spec §4.3 table).
func MembersKey(collectionKey, sortValue, subject string) []byte {
	return []byte(collectionKey + sep + sortValue + sep + subject)
}

// MembersPrefix returns the range-scan prefix for all members of
// collectionKey.
func MembersPrefix(collectionKey string) []byte {
	return []byte(collectionKey + sep)
}

// DecodeMembersKey splits a members_index key back into its parts. The
// collection key may itself contain sep, so the key is split from the
// right: the last field is the subject, the one before it the sort value.
func DecodeMembersKey(key []byte) (collectionKey, sortValue, subject string, err error) {
	last := bytes.LastIndex(key, []byte(sep))
	if last < 0 {
		return "", "", "", fmt.Errorf("malformed members index key %q", key)
	}
	prev := bytes.LastIndex(key[:last], []byte(sep))
	if prev < 0 {
		return "", "", "", fmt.Errorf("malformed members index key %q", key)
	}
	return string(key[:prev]), string(key[prev+1 : last]), string(key[last+1:]), nil
}

// IsExternal reports whether subject is NOT rooted at serverRoot, the
// definition of an "external" atom (spec glossary, §4.3). Re-derived at
// read time from the subject's URL prefix rather than persisted as a flag,
// so that changing serverRoot reclassifies existing data consistently
// (SPEC_FULL.md §4, item 1).
func IsExternal(subject, serverRoot string) bool {
	if serverRoot == "" {
		return false
	}
	return !strings.HasPrefix(subject, serverRoot)
}
