package commit

import (
	"crypto/ed25519"

	"github.com/cuemby/atomstore/pkg/security"
	"github.com/cuemby/atomstore/pkg/value"
)

// Builder assembles and signs a Commit, hiding the content-addressing and
// canonicalization steps from callers (in this module, the pkg/commit
// tests).
type Builder struct {
	serverRoot string
	c          Commit
}

// NewBuilder starts a commit targeting target, authored by signer at
// createdAt (milliseconds since epoch).
func NewBuilder(serverRoot, signer, target string, createdAt int64) *Builder {
	return &Builder{
		serverRoot: serverRoot,
		c: Commit{
			Target:    target,
			Signer:    signer,
			CreatedAt: createdAt,
			Set:       make(map[string]value.Value),
		},
	}
}

// Previous sets previous_commit for optimistic concurrency.
func (b *Builder) Previous(commitSubject string) *Builder {
	b.c.PreviousCommit = commitSubject
	return b
}

// Set stages a property assignment.
func (b *Builder) Set(property string, v value.Value) *Builder {
	b.c.Set[property] = v
	return b
}

// Remove stages a property removal.
func (b *Builder) Remove(property string) *Builder {
	b.c.Remove = append(b.c.Remove, property)
	return b
}

// Destroy marks the commit as destroying its target.
func (b *Builder) Destroy() *Builder {
	b.c.Destroy = true
	return b
}

// Sign computes the content-addressed subject and the Ed25519 signature,
// returning the finished, ready-to-apply Commit.
func (b *Builder) Sign(priv ed25519.PrivateKey) Commit {
	c := b.c
	c.Subject = c.ContentAddress(b.serverRoot)
	c.Signature = security.Sign(priv, c.Canonicalize())
	return c
}
