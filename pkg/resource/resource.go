// Package resource implements the in-memory (subject, propvals) bag that
// is atomstore's common currency (spec §3, Component C), plus the
// well-known property URLs and classes of the bootstrap ontology.
package resource

import (
	"encoding/json"
	"sort"

	"github.com/cuemby/atomstore/pkg/value"
)

// Well-known property URLs, shared by every package that reads or writes
// ontology-level propvals (auth, populate, collection).
const (
	PropIsA         = "https://atomstore.dev/properties/is-a"
	PropShortname   = "https://atomstore.dev/properties/shortname"
	PropDescription = "https://atomstore.dev/properties/description"
	PropDatatype    = "https://atomstore.dev/properties/datatype"
	PropClasstype   = "https://atomstore.dev/properties/classtype"
	PropAllowsOnly  = "https://atomstore.dev/properties/allows-only"
	PropParent      = "https://atomstore.dev/properties/parent"
	PropRead        = "https://atomstore.dev/properties/read"
	PropWrite       = "https://atomstore.dev/properties/write"
	PropPublicKey   = "https://atomstore.dev/properties/public-key"
	PropPrivateKey  = "https://atomstore.dev/properties/private-key"

	// Commit wire fields, stored as propvals once a commit is appended as
	// a first-class resource (spec §4.2 stage 10).
	PropCommitSigner         = "https://atomstore.dev/properties/commit/signer"
	PropCommitTarget         = "https://atomstore.dev/properties/commit/target"
	PropCommitCreatedAt      = "https://atomstore.dev/properties/commit/created-at"
	PropCommitSet            = "https://atomstore.dev/properties/commit/set"
	PropCommitRemove         = "https://atomstore.dev/properties/commit/remove"
	PropCommitDestroy        = "https://atomstore.dev/properties/commit/destroy"
	PropCommitPreviousCommit = "https://atomstore.dev/properties/commit/previous-commit"
	PropCommitSignature      = "https://atomstore.dev/properties/commit/signature"

	// Required-properties-by-class declaration on a Class resource.
	PropRequires    = "https://atomstore.dev/properties/requires"
	PropRecommends  = "https://atomstore.dev/properties/recommends"
)

// PublicAgent is the special subject that grants a right to every agent
// (spec §4.5).
const PublicAgent = "https://atomstore.dev/agents/public"

// Well-known classes.
const (
	ClassProperty  = "https://atomstore.dev/classes/Property"
	ClassClass     = "https://atomstore.dev/classes/Class"
	ClassAgent     = "https://atomstore.dev/classes/Agent"
	ClassCommit    = "https://atomstore.dev/classes/Commit"
	ClassCollection = "https://atomstore.dev/classes/Collection"
	ClassDatatype  = "https://atomstore.dev/classes/Datatype"
)

// Resource is an in-memory, mutable bag of (property URL -> Value) for one
// subject. It is not durable on its own; pkg/storage persists it.
type Resource struct {
	Subject  string
	Propvals map[string]value.Value
}

// New creates an empty resource for subject.
func New(subject string) *Resource {
	return &Resource{Subject: subject, Propvals: make(map[string]value.Value)}
}

// Get returns the value at property and whether it was present.
func (r *Resource) Get(property string) (value.Value, bool) {
	v, ok := r.Propvals[property]
	return v, ok
}

// Set assigns property to v, replacing any prior value (spec §4.2 stage 7).
func (r *Resource) Set(property string, v value.Value) {
	if r.Propvals == nil {
		r.Propvals = make(map[string]value.Value)
	}
	r.Propvals[property] = v
}

// Remove deletes property from the resource, a no-op if absent.
func (r *Resource) Remove(property string) {
	delete(r.Propvals, property)
}

// SortedProperties returns property URLs in lexicographic order, the
// deterministic iteration order required for commit signing (spec §3).
func (r *Resource) SortedProperties() []string {
	keys := make([]string, 0, len(r.Propvals))
	for k := range r.Propvals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Shortname returns the shortname propval, or "" if absent. Ground truth
// for spec §8 scenario 1's get_shortname helper.
func (r *Resource) Shortname() string {
	v, ok := r.Get(PropShortname)
	if !ok {
		return ""
	}
	return v.Raw
}

// IsA returns the resource's "is-a" class URLs.
func (r *Resource) IsA() []string {
	v, ok := r.Get(PropIsA)
	if !ok {
		return nil
	}
	return v.ResourceArrayElements()
}

// Clone deep-copies the resource so callers can mutate a working copy
// without corrupting a cached original.
func (r *Resource) Clone() *Resource {
	out := New(r.Subject)
	for k, v := range r.Propvals {
		out.Propvals[k] = v
	}
	return out
}

// jsonResource is the wire/storage encoding: a flat map keyed by property
// URL, each value a {"datatype", "raw"} pair so that round-tripping
// through storage preserves the exact typed value (spec §8's round-trip
// invariant).
type jsonResource struct {
	Subject  string                     `json:"subject"`
	Propvals map[string]jsonPropertyVal `json:"propvals"`
}

type jsonPropertyVal struct {
	Datatype value.DataType `json:"datatype"`
	Raw      string         `json:"raw"`
}

// MarshalJSON renders the resource deterministically: Go's encoding/json
// already sorts map keys, so no extra work is needed to satisfy the
// lexicographic ordering requirement at the wire level.
func (r *Resource) MarshalJSON() ([]byte, error) {
	out := jsonResource{Subject: r.Subject, Propvals: make(map[string]jsonPropertyVal, len(r.Propvals))}
	for k, v := range r.Propvals {
		out.Propvals[k] = jsonPropertyVal{Datatype: v.Datatype, Raw: v.Raw}
	}
	return json.Marshal(out)
}

// UnmarshalJSON parses the storage/wire encoding produced by MarshalJSON.
func (r *Resource) UnmarshalJSON(data []byte) error {
	var in jsonResource
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	r.Subject = in.Subject
	r.Propvals = make(map[string]value.Value, len(in.Propvals))
	for k, v := range in.Propvals {
		r.Propvals[k] = value.Value{Datatype: v.Datatype, Raw: v.Raw}
	}
	return nil
}
