// Package atom implements the (subject, property, value) triple that is
// the unit of storage and indexing across atomstore (spec §3, Component B).
package atom

import (
	"github.com/cuemby/atomstore/pkg/resource"
	"github.com/cuemby/atomstore/pkg/value"
)

// Atom is a plain triple: the value travels as its canonical string form,
// undecoded and without its property schema resolved. This is the form
// persisted in the reference and members indexes.
type Atom struct {
	Subject  string
	Property string
	Value    string
	// External marks an atom whose Subject is not rooted at the store's
	// configured server root (spec §4.3, §"External" in the glossary).
	External bool
}

// Rich is an atom whose value has been decoded against its property's
// datatype, with the property's schema resolved alongside it.
type Rich struct {
	Subject  string
	Property string
	Value    value.Value
	// Schema is the resolved Property schema of Property.
	Schema   *resource.Property
	External bool
}

// Plain discards the decoded value and schema, producing the Atom form.
func (r Rich) Plain() Atom {
	return Atom{
		Subject:  r.Subject,
		Property: r.Property,
		Value:    r.Value.Raw,
		External: r.External,
	}
}
