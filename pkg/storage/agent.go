package storage

import (
	"github.com/cuemby/atomstore/pkg/atomserrors"
	"github.com/cuemby/atomstore/pkg/resource"
	"github.com/cuemby/atomstore/pkg/security"
	"github.com/cuemby/atomstore/pkg/value"
	bolt "go.etcd.io/bbolt"
)

var defaultAgentKey = []byte("default")

// loadDefaultAgent populates s.defaultAgent from the default_agent bucket,
// leaving it empty if none has been set yet (fresh store, before
// populate.Bootstrap runs).
func (s *Store) loadDefaultAgent() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketDefaultAgent).Get(defaultAgentKey)
		if data != nil {
			s.defaultAgent = string(data)
		}
		return nil
	})
}

// CreateAgent mints a fresh Ed25519 keypair, persists an Agent resource at
// subject holding its public key (spec §4.5), and returns the keypair so
// the caller can sign commits on the agent's behalf. The private key is
// never persisted on the agent resource.
func (s *Store) CreateAgent(subject, shortname string) (*security.Keypair, error) {
	kp, err := security.GenerateKeypair()
	if err != nil {
		return nil, atomserrors.Wrap(atomserrors.Other, err, "generating agent keypair")
	}

	r := resource.New(subject)
	r.Set(resource.PropIsA, value.NewResourceArray([]string{resource.ClassAgent}))
	shortnameVal, err := value.New(value.Slug, shortname)
	if err != nil {
		return nil, atomserrors.Wrap(atomserrors.ParseError, err, "invalid agent shortname")
	}
	r.Set(resource.PropShortname, shortnameVal)
	pubVal, err := value.New(value.String, security.EncodePublicKey(kp.Public))
	if err != nil {
		return nil, atomserrors.Wrap(atomserrors.Other, err, "encoding agent public key")
	}
	r.Set(resource.PropPublicKey, pubVal)

	if err := s.AddResource(r, false); err != nil {
		return nil, err
	}
	return kp, nil
}

// SetDefaultAgent records subject as the identity used to author commits
// when no other agent is specified (SPEC_FULL.md §1.3's config surface).
func (s *Store) SetDefaultAgent(subject string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketDefaultAgent).Put(defaultAgentKey, []byte(subject))
	})
	if err != nil {
		return err
	}
	s.defaultAgent = subject
	return nil
}

// GetDefaultAgent returns the store's default agent subject, or a NotFound
// error if none has been set.
func (s *Store) GetDefaultAgent() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.defaultAgent == "" {
		return "", atomserrors.New(atomserrors.NotFound, "no default agent configured")
	}
	return s.defaultAgent, nil
}
