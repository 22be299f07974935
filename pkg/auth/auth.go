// Package auth implements the capability-based authorization check of spec
// §4.5 (Component H): an ancestor-walk over each resource's "parent" chain
// looking for a matching read/write grant.
package auth

import (
	"github.com/cuemby/atomstore/pkg/atomserrors"
	"github.com/cuemby/atomstore/pkg/log"
	"github.com/cuemby/atomstore/pkg/metrics"
	"github.com/cuemby/atomstore/pkg/resource"
)

// Right is one of the two capabilities a resource can grant.
type Right string

const (
	Read  Right = resource.PropRead
	Write Right = resource.PropWrite
)

// maxAncestorDepth bounds the parent walk so a malformed (but acyclic by
// the visited-set check) very long chain can't run unbounded.
const maxAncestorDepth = 64

// Lookup resolves a subject to its Resource, the same contract pkg/storage
// and pkg/commit use so auth can be exercised against either a live store
// or an in-memory working set mid-commit.
type Lookup func(subject string) (*resource.Resource, bool)

// Check implements the §4.5 algorithm: owner/signer shortcut, direct grant
// match (including the PUBLIC_AGENT wildcard), then an ancestor walk via
// each resource's parent property. Returns Unauthorized on deny, NotFound
// if subject itself doesn't resolve, and a cycle is treated as deny.
func Check(lookup Lookup, agent, subject string, right Right) error {
	r, ok := lookup(subject)
	if !ok {
		return atomserrors.Newf(atomserrors.NotFound, "resource not found: %s", subject)
	}

	if owns(r, agent) {
		return nil
	}

	visited := make(map[string]bool, maxAncestorDepth)
	current := r
	for depth := 0; depth < maxAncestorDepth; depth++ {
		if visited[current.Subject] {
			log.WithSubject(subject).Warn().Msg("authorization cycle detected in parent chain")
			metrics.AuthorizationDenials.WithLabelValues(string(right)).Inc()
			return atomserrors.Newf(atomserrors.Unauthorized, "authorization cycle at %s", current.Subject)
		}
		visited[current.Subject] = true

		if grants(current, right, agent) {
			return nil
		}

		parentVal, ok := current.Get(resource.PropParent)
		if !ok {
			break
		}
		parentSubject := parentVal.Raw
		if parentSubject == "" {
			break
		}
		parent, ok := lookup(parentSubject)
		if !ok {
			break
		}
		current = parent
	}

	metrics.AuthorizationDenials.WithLabelValues(string(right)).Inc()
	return atomserrors.Newf(atomserrors.Unauthorized, "agent %s lacks %s on %s", agent, right, subject)
}

func owns(r *resource.Resource, agent string) bool {
	signer, ok := r.Get(resource.PropCommitSigner)
	return ok && signer.Raw == agent
}

func grants(r *resource.Resource, right Right, agent string) bool {
	v, ok := r.Get(string(right))
	if !ok {
		return false
	}
	for _, grantee := range v.ResourceArrayElements() {
		if grantee == agent || grantee == resource.PublicAgent {
			return true
		}
	}
	return false
}
