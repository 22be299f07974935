package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/cuemby/atomstore/pkg/atomserrors"
	"github.com/cuemby/atomstore/pkg/index"
	"github.com/cuemby/atomstore/pkg/metrics"
	"github.com/cuemby/atomstore/pkg/resource"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketResources    = []byte("resources")
	bucketReferenceIdx = []byte("reference_index")
	bucketMembersIdx   = []byte("members_index")
	bucketLastCommit   = []byte("last_commit")
	bucketDefaultAgent = []byte("default_agent")
)

// Store is the persistence façade of spec §4.1 (Component D), backed by a
// single BoltDB file providing the three ordered key-value maps of §6:
// resources, reference_index, and members_index. It additionally tracks,
// in its own bucket, each subject's last-applied commit for optimistic
// concurrency (§4.2 stage 4, SPEC_FULL.md §4 item 2).
//
// *bbolt.DB already serializes writers and allows concurrent snapshot
// reads; Store only needs its own lock around the one mutable scalar bbolt
// transactions don't cover, the default-agent subject (§5).
type Store struct {
	db         *bolt.DB
	serverRoot string

	mu           sync.RWMutex
	defaultAgent string
}

// Open opens (creating if absent) a BoltDB-backed store rooted at dataDir.
// serverRoot is the base URL subjects are considered local to; it governs
// the external-atom flag of spec §4.3.
func Open(dataDir, serverRoot string) (*Store, error) {
	dbPath := filepath.Join(dataDir, "atomstore.db")
	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketResources, bucketReferenceIdx, bucketMembersIdx, bucketLastCommit, bucketDefaultAgent} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{db: db, serverRoot: serverRoot}
	if err := s.loadDefaultAgent(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ServerRoot returns the configured server root URL.
func (s *Store) ServerRoot() string {
	return s.serverRoot
}

// GetPropvals returns the resource stored at subject (spec §4.1).
func (s *Store) GetPropvals(subject string) (*resource.Resource, error) {
	var r resource.Resource
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketResources).Get([]byte(subject))
		if data == nil {
			return atomserrors.Newf(atomserrors.NotFound, "resource not found: %s", subject)
		}
		return json.Unmarshal(data, &r)
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// AllResources returns every persisted resource. When includeExternal is
// false, resources whose subject is not rooted at the store's server root
// are omitted (spec §4.1, §4.3).
func (s *Store) AllResources(includeExternal bool) ([]*resource.Resource, error) {
	var out []*resource.Resource
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketResources).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if !includeExternal && index.IsExternal(string(k), s.serverRoot) {
				continue
			}
			var r resource.Resource
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("corrupt resource %s: %w", k, err)
			}
			out = append(out, &r)
		}
		return nil
	})
	return out, err
}

// AddResource persists r, updating every derived index entry in the same
// batch (spec §4.1's atomicity guarantee). When checkRequiredProps is set,
// every declared class's required properties (resource.PropRequires) must
// be present, or a SchemaViolation is returned and nothing is written.
func (s *Store) AddResource(r *resource.Resource, checkRequiredProps bool) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		if checkRequiredProps {
			if err := s.validateRequiredLocked(tx, r); err != nil {
				return err
			}
		}
		var old *resource.Resource
		if data := tx.Bucket(bucketResources).Get([]byte(r.Subject)); data != nil {
			old = &resource.Resource{}
			if err := json.Unmarshal(data, old); err != nil {
				return fmt.Errorf("corrupt existing resource %s: %w", r.Subject, err)
			}
		}

		data, err := json.Marshal(r)
		if err != nil {
			return err
		}
		if err := tx.Bucket(bucketResources).Put([]byte(r.Subject), data); err != nil {
			return err
		}
		return reindexLocked(tx, s.serverRoot, old, r)
	})
	if err == nil {
		metrics.ResourcesTotal.Inc()
	}
	return err
}

// RemoveResource deletes subject and all index entries derived from it
// (spec §4.1, §4.2 stage 7's destroy handling, §8's destroy invariant).
func (s *Store) RemoveResource(subject string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketResources).Get([]byte(subject))
		if data == nil {
			return atomserrors.Newf(atomserrors.NotFound, "resource not found: %s", subject)
		}
		var old resource.Resource
		if err := json.Unmarshal(data, &old); err != nil {
			return fmt.Errorf("corrupt resource %s: %w", subject, err)
		}
		if err := tx.Bucket(bucketResources).Delete([]byte(subject)); err != nil {
			return err
		}
		if err := tx.Bucket(bucketLastCommit).Delete([]byte(subject)); err != nil {
			return err
		}
		return reindexLocked(tx, s.serverRoot, &old, nil)
	})
	if err == nil {
		metrics.ResourcesTotal.Dec()
	}
	return err
}

// validateRequiredLocked checks that, for every class listed in r's is-a,
// the class's required properties (resource.PropRequires) are present on
// r. Must run inside an open transaction since it reads Class resources.
func (s *Store) validateRequiredLocked(tx *bolt.Tx, r *resource.Resource) error {
	return ValidateRequiredTx(tx, r)
}

// ValidateRequiredTx is the transaction-scoped required-property check,
// exported so pkg/commit's apply batch (spec §4.2 stage 8) can run it in
// the same transaction as the persist step, without going through
// Store.AddResource's own batch.
func ValidateRequiredTx(tx *bolt.Tx, r *resource.Resource) error {
	for _, class := range r.IsA() {
		data := tx.Bucket(bucketResources).Get([]byte(class))
		if data == nil {
			continue // unknown class: nothing to enforce
		}
		var classResource resource.Resource
		if err := json.Unmarshal(data, &classResource); err != nil {
			continue
		}
		requires, ok := classResource.Get(resource.PropRequires)
		if !ok {
			continue
		}
		for _, prop := range requires.ResourceArrayElements() {
			if _, present := r.Get(prop); !present {
				return atomserrors.Newf(atomserrors.SchemaViolation,
					"resource %s missing required property %s for class %s", r.Subject, prop, class)
			}
		}
	}
	return nil
}

// LastCommit returns the subject of the last commit applied to target, or
// a NotFound error if target has never been committed to (spec §4.2 stage
// 4, SPEC_FULL.md §4 item 2).
func (s *Store) LastCommit(target string) (string, error) {
	var out string
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketLastCommit).Get([]byte(target))
		if data == nil {
			return atomserrors.Newf(atomserrors.NotFound, "no commits for %s", target)
		}
		out = string(data)
		return nil
	})
	return out, err
}

// SetLastCommit records commitSubject as the most recent commit applied to
// target. Exposed for pkg/commit to call inside its own mutation batch.
func (s *Store) SetLastCommit(tx *bolt.Tx, target, commitSubject string) error {
	return tx.Bucket(bucketLastCommit).Put([]byte(target), []byte(commitSubject))
}

// Update runs fn inside a single read-write BoltDB transaction, the atomic
// batch boundary commit application uses to make §4.2 stages 7-10
// all-or-nothing.
func (s *Store) Update(fn func(tx *bolt.Tx) error) error {
	return s.db.Update(fn)
}

// View runs fn inside a single read-only, snapshot-consistent transaction.
func (s *Store) View(fn func(tx *bolt.Tx) error) error {
	return s.db.View(fn)
}

// PutResourceTx persists r and reindexes it within an already-open
// transaction, for use by pkg/commit's all-or-nothing apply batch.
func PutResourceTx(tx *bolt.Tx, serverRoot string, r *resource.Resource) error {
	var old *resource.Resource
	if data := tx.Bucket(bucketResources).Get([]byte(r.Subject)); data != nil {
		old = &resource.Resource{}
		if err := json.Unmarshal(data, old); err != nil {
			return fmt.Errorf("corrupt existing resource %s: %w", r.Subject, err)
		}
	}
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	if err := tx.Bucket(bucketResources).Put([]byte(r.Subject), data); err != nil {
		return err
	}
	return reindexLocked(tx, serverRoot, old, r)
}

// DeleteResourceTx removes subject and its index entries within an
// already-open transaction.
func DeleteResourceTx(tx *bolt.Tx, serverRoot, subject string) error {
	data := tx.Bucket(bucketResources).Get([]byte(subject))
	if data == nil {
		return atomserrors.Newf(atomserrors.NotFound, "resource not found: %s", subject)
	}
	var old resource.Resource
	if err := json.Unmarshal(data, &old); err != nil {
		return fmt.Errorf("corrupt resource %s: %w", subject, err)
	}
	if err := tx.Bucket(bucketResources).Delete([]byte(subject)); err != nil {
		return err
	}
	if err := tx.Bucket(bucketLastCommit).Delete([]byte(subject)); err != nil {
		return err
	}
	return reindexLocked(tx, serverRoot, &old, nil)
}

// GetResourceTx reads subject within an already-open transaction.
func GetResourceTx(tx *bolt.Tx, subject string) (*resource.Resource, error) {
	data := tx.Bucket(bucketResources).Get([]byte(subject))
	if data == nil {
		return nil, atomserrors.Newf(atomserrors.NotFound, "resource not found: %s", subject)
	}
	var r resource.Resource
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("corrupt resource %s: %w", subject, err)
	}
	return &r, nil
}

// LastCommitTx reads target's last-commit pointer within an open
// transaction.
func LastCommitTx(tx *bolt.Tx, target string) (string, bool) {
	data := tx.Bucket(bucketLastCommit).Get([]byte(target))
	if data == nil {
		return "", false
	}
	return string(data), true
}
