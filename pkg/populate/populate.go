// Package populate implements the bootstrap of spec §4.7 (Component J):
// seeding the built-in ontology and minting a root agent. Seed resources
// are written directly through storage.Store.AddResource; no commits are
// created or recorded for them.
package populate

import (
	"time"

	"github.com/cuemby/atomstore/pkg/log"
	"github.com/cuemby/atomstore/pkg/resource"
	"github.com/cuemby/atomstore/pkg/security"
	"github.com/cuemby/atomstore/pkg/storage"
	"github.com/cuemby/atomstore/pkg/value"
)

// seedClass describes one built-in Class resource and the properties it
// requires, driving the bootstrap ontology.
type seedClass struct {
	subject  string
	requires []string
}

// seedProperty describes one built-in Property resource's datatype.
type seedProperty struct {
	subject  string
	datatype value.DataType
}

var builtinProperties = []seedProperty{
	{resource.PropIsA, value.ResourceArray},
	{resource.PropShortname, value.Slug},
	{resource.PropDescription, value.Markdown},
	{resource.PropDatatype, value.String},
	{resource.PropClasstype, value.AtomicURL},
	{resource.PropAllowsOnly, value.ResourceArray},
	{resource.PropParent, value.AtomicURL},
	{resource.PropRead, value.ResourceArray},
	{resource.PropWrite, value.ResourceArray},
	{resource.PropPublicKey, value.String},
	{resource.PropRequires, value.ResourceArray},
	{resource.PropRecommends, value.ResourceArray},
}

var builtinClasses = []seedClass{
	{resource.ClassProperty, []string{resource.PropShortname, resource.PropDatatype}},
	{resource.ClassClass, []string{resource.PropShortname}},
	{resource.ClassAgent, []string{resource.PropPublicKey}},
	{resource.ClassCommit, nil},
	{resource.ClassCollection, nil},
	{resource.ClassDatatype, []string{resource.PropShortname}},
}

// Bootstrap seeds an empty store: the built-in properties and classes
// (including the Datatype class), a root agent with write on the server
// root, and records that agent as the store's default signer. No resource
// is created per datatype tag. If the root agent subject already exists,
// it only records that agent as default signer again and returns a nil
// keypair, since the existing private key is not recoverable.
func Bootstrap(store *storage.Store, serverRoot string) (*security.Keypair, error) {
	rootAgentSubject := serverRoot + "/agents/root"
	logger := log.WithComponent("populate")

	if _, err := store.GetPropvals(rootAgentSubject); err == nil {
		logger.Info().Msg("store already populated, skipping bootstrap")
		return nil, store.SetDefaultAgent(rootAgentSubject)
	}

	kp, err := security.GenerateKeypair()
	if err != nil {
		return nil, err
	}

	now := time.Now().UnixMilli()

	root := resource.New(serverRoot)
	root.Set(resource.PropShortname, must(value.New(value.Slug, "root")))
	root.Set(resource.PropWrite, value.NewResourceArray([]string{rootAgentSubject}))
	root.Set(resource.PropRead, value.NewResourceArray([]string{resource.PublicAgent}))
	if err := store.AddResource(root, false); err != nil {
		return nil, err
	}

	rootAgent := resource.New(rootAgentSubject)
	rootAgent.Set(resource.PropIsA, value.NewResourceArray([]string{resource.ClassAgent}))
	rootAgent.Set(resource.PropShortname, must(value.New(value.Slug, "root")))
	rootAgent.Set(resource.PropPublicKey, must(value.New(value.String, security.EncodePublicKey(kp.Public))))
	rootAgent.Set(resource.PropParent, must(value.New(value.AtomicURL, serverRoot)))
	if err := store.AddResource(rootAgent, false); err != nil {
		return nil, err
	}

	if err := store.SetDefaultAgent(rootAgentSubject); err != nil {
		return nil, err
	}

	for _, p := range builtinProperties {
		r := resource.New(p.subject)
		r.Set(resource.PropIsA, value.NewResourceArray([]string{resource.ClassProperty}))
		r.Set(resource.PropDatatype, must(value.New(value.String, string(p.datatype))))
		r.Set(resource.PropShortname, must(value.New(value.Slug, lastSegment(p.subject))))
		r.Set(resource.PropParent, must(value.New(value.AtomicURL, serverRoot)))
		if err := store.AddResource(r, false); err != nil {
			return nil, err
		}
	}

	for _, c := range builtinClasses {
		r := resource.New(c.subject)
		r.Set(resource.PropIsA, value.NewResourceArray([]string{resource.ClassClass}))
		r.Set(resource.PropShortname, must(value.New(value.Slug, lastSegment(c.subject))))
		r.Set(resource.PropParent, must(value.New(value.AtomicURL, serverRoot)))
		if len(c.requires) > 0 {
			r.Set(resource.PropRequires, value.NewResourceArray(c.requires))
		}
		if err := store.AddResource(r, false); err != nil {
			return nil, err
		}
	}

	logger.Info().Str("root_agent", rootAgentSubject).Int64("seeded_at", now).Msg("store bootstrapped")
	return kp, nil
}

func lastSegment(subject string) string {
	for i := len(subject) - 1; i >= 0; i-- {
		if subject[i] == '/' {
			return subject[i+1:]
		}
	}
	return subject
}

func must(v value.Value, err error) value.Value {
	if err != nil {
		panic(err)
	}
	return v
}
