package resource

import (
	"fmt"

	"github.com/cuemby/atomstore/pkg/value"
)

// Property is the decoded schema for one property resource: its datatype,
// and optionally the class its AtomicURL values must belong to and the
// list of values it allows (spec §3).
type Property struct {
	Subject    string
	Shortname  string
	Datatype   value.DataType
	Classtype  string // non-empty only for AtomicURL/ResourceArray properties with a class restriction
	AllowsOnly []string
}

// PropertyFromResource decodes a Property resource's propvals into a
// Property schema (spec §9's bootstrapping concern: "the property itself
// is a resource"). The commit pipeline does not call it: stage 7 validates
// each value against the datatype carried in the commit itself.
func PropertyFromResource(r *Resource) (*Property, error) {
	dtVal, ok := r.Get(PropDatatype)
	if !ok {
		return nil, fmt.Errorf("property %s missing datatype", r.Subject)
	}
	dt := value.DataType(dtVal.Raw)
	if !dt.Valid() {
		return nil, fmt.Errorf("property %s has unknown datatype %q", r.Subject, dtVal.Raw)
	}

	p := &Property{
		Subject:   r.Subject,
		Shortname: r.Shortname(),
		Datatype:  dt,
	}
	if ct, ok := r.Get(PropClasstype); ok {
		p.Classtype = ct.Raw
	}
	if ao, ok := r.Get(PropAllowsOnly); ok {
		p.AllowsOnly = ao.ResourceArrayElements()
	}
	return p, nil
}
