package commit

import (
	"strconv"
	"time"

	"github.com/cuemby/atomstore/pkg/atomserrors"
	"github.com/cuemby/atomstore/pkg/auth"
	"github.com/cuemby/atomstore/pkg/log"
	"github.com/cuemby/atomstore/pkg/metrics"
	"github.com/cuemby/atomstore/pkg/resource"
	"github.com/cuemby/atomstore/pkg/security"
	"github.com/cuemby/atomstore/pkg/storage"
	"github.com/cuemby/atomstore/pkg/value"
	bolt "go.etcd.io/bbolt"
)

// Options selects which of the pipeline's validation stages run, mirroring
// spec §4.2's opts parameter to apply().
type Options struct {
	ValidateSignature      bool
	ValidateTimestamp      bool
	ValidateRights         bool
	ValidatePreviousCommit bool
	UpdateIndex            bool

	// ClockSkew is the acceptable future-dated window for created_at
	// (spec §4.2 stage 3's default 10s).
	ClockSkew time.Duration

	// Now overrides wall-clock time for the timestamp check; tests set
	// this, production code leaves it zero to mean time.Now().
	Now time.Time
}

// DefaultClockSkew is the 10s future-dated window spec §4.2 stage 3 names;
// created_at is not bounded in the past.
const DefaultClockSkew = 10 * time.Second

// OnCommit is the external subscription hook of spec §4.2 stage 11 /
// §6, invoked after a commit is durably applied.
type OnCommit func(c Commit)

// Apply runs the full 11-stage pipeline against store, returning the
// resulting resource (nil if the commit destroyed it) or a tagged
// atomserrors.Error. Every stage 7-10 side effect happens inside a single
// bbolt transaction so that a mid-pipeline failure leaves no partial
// state (spec §4.2's "stages 7-10 are all-or-nothing").
func Apply(store *storage.Store, c Commit, opts Options, onCommit OnCommit) (*resource.Resource, error) {
	logger := log.WithCommit(c.Subject)
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.CommitApplyDuration)

	if err := stage2Signature(store, c, opts); err != nil {
		metrics.CommitsTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}
	if err := stage3Timestamp(store, c, opts); err != nil {
		metrics.CommitsTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}
	if err := stage4PreviousCommit(store, c, opts); err != nil {
		metrics.CommitsTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}
	if err := stage5Authorization(store, c, opts); err != nil {
		metrics.CommitsTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}

	var result *resource.Resource
	err := store.Update(func(tx *bolt.Tx) error {
		target, err := stage6LoadOrCreate(tx, c)
		if err != nil {
			return err
		}

		target, destroyed, err := stage7ApplyMutations(target, c)
		if err != nil {
			return err
		}

		if !destroyed {
			if err := storage.ValidateRequiredTx(tx, target); err != nil {
				return err
			}
			if err := storage.PutResourceTx(tx, store.ServerRoot(), target); err != nil {
				return err
			}
			result = target
		} else {
			if err := storage.DeleteResourceTx(tx, store.ServerRoot(), c.Target); err != nil && atomserrors.KindOf(err) != atomserrors.NotFound {
				return err
			}
			result = nil
		}

		if err := store.SetLastCommit(tx, c.Target, c.Subject); err != nil {
			return err
		}

		commitResource := asResource(c)
		return storage.PutResourceTx(tx, store.ServerRoot(), commitResource)
	})
	if err != nil {
		metrics.CommitsTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}

	metrics.CommitsTotal.WithLabelValues("applied").Inc()
	logger.Debug().Str("target", c.Target).Msg("commit applied")

	if onCommit != nil {
		onCommit(c)
	}
	return result, nil
}

func stage2Signature(store *storage.Store, c Commit, opts Options) error {
	if !opts.ValidateSignature {
		return nil
	}
	signer, err := store.GetPropvals(c.Signer)
	if err != nil {
		return atomserrors.Wrap(atomserrors.Unauthorized, err, "resolving commit signer")
	}
	pubVal, ok := signer.Get(resource.PropPublicKey)
	if !ok {
		return atomserrors.Newf(atomserrors.Unauthorized, "signer %s has no public key", c.Signer)
	}
	pub, err := security.DecodePublicKey(pubVal.Raw)
	if err != nil {
		return atomserrors.Wrap(atomserrors.InvalidSignature, err, "decoding signer public key")
	}
	ok, err = security.Verify(pub, c.Canonicalize(), c.Signature)
	if err != nil {
		return atomserrors.Wrap(atomserrors.InvalidSignature, err, "verifying commit signature")
	}
	if !ok {
		return atomserrors.New(atomserrors.InvalidSignature, "signature does not match signer's key")
	}
	return nil
}

func stage3Timestamp(store *storage.Store, c Commit, opts Options) error {
	if !opts.ValidateTimestamp {
		return nil
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	skew := opts.ClockSkew
	if skew == 0 {
		skew = DefaultClockSkew
	}
	commitTime := time.UnixMilli(c.CreatedAt)
	if commitTime.After(now.Add(skew)) {
		return atomserrors.Newf(atomserrors.InvalidTimestamp, "created_at %d is more than %s in the future", c.CreatedAt, skew)
	}

	if c.PreviousCommit == "" {
		return nil
	}
	prev, err := store.GetPropvals(c.PreviousCommit)
	if err != nil {
		return nil // previous commit check (stage 4) will catch a missing predecessor
	}
	prevCreatedAt, ok := prev.Get(resource.PropCommitCreatedAt)
	if !ok {
		return nil
	}
	prevMs, err := prevCreatedAt.TimestampMillis()
	if err != nil {
		return nil
	}
	if c.CreatedAt <= prevMs {
		return atomserrors.Newf(atomserrors.InvalidTimestamp, "created_at %d does not exceed previous commit's %d", c.CreatedAt, prevMs)
	}
	return nil
}

func stage4PreviousCommit(store *storage.Store, c Commit, opts Options) error {
	if !opts.ValidatePreviousCommit {
		return nil
	}
	last, err := store.LastCommit(c.Target)
	if err != nil {
		if atomserrors.KindOf(err) == atomserrors.NotFound {
			if c.PreviousCommit != "" {
				return atomserrors.Newf(atomserrors.PreviousCommitMismatch, "target %s has no commits, but previous_commit %q was given", c.Target, c.PreviousCommit)
			}
			return nil
		}
		return err
	}
	if c.PreviousCommit != last {
		return atomserrors.Newf(atomserrors.PreviousCommitMismatch, "target %s: expected previous_commit %q, got %q", c.Target, last, c.PreviousCommit)
	}
	return nil
}

// stage5Authorization checks that the signer holds write on the target.
// When the target does not yet exist, the effective authorization subject
// is the commit's declared (or, failing that, the store's root) parent,
// since there is no existing owner/grant list to consult yet. An existing
// target with no parent is treated as a child of the store's root, so a
// write denied on the target itself is then checked against the root.
func stage5Authorization(store *storage.Store, c Commit, opts Options) error {
	if !opts.ValidateRights {
		return nil
	}
	lookup := func(subject string) (*resource.Resource, bool) {
		r, err := store.GetPropvals(subject)
		if err != nil {
			return nil, false
		}
		return r, true
	}

	if existing, ok := lookup(c.Target); ok {
		err := auth.Check(lookup, c.Signer, c.Target, auth.Write)
		if err == nil || atomserrors.KindOf(err) != atomserrors.Unauthorized {
			return err
		}
		if pv, hasParent := existing.Get(resource.PropParent); hasParent && pv.Raw != "" {
			return err
		}
		root := store.ServerRoot()
		if c.Target == root {
			return err
		}
		if _, ok := lookup(root); !ok {
			return err
		}
		return auth.Check(lookup, c.Signer, root, auth.Write)
	}

	parent := store.ServerRoot()
	if pv, ok := c.Set[resource.PropParent]; ok && pv.Raw != "" {
		parent = pv.Raw
	}
	if _, ok := lookup(parent); !ok {
		return nil // bootstrap: no root resource yet to check against
	}
	return auth.Check(lookup, c.Signer, parent, auth.Write)
}

func stage6LoadOrCreate(tx *bolt.Tx, c Commit) (*resource.Resource, error) {
	existing, err := storage.GetResourceTx(tx, c.Target)
	if err == nil {
		return existing, nil
	}
	if atomserrors.KindOf(err) == atomserrors.NotFound {
		return resource.New(c.Target), nil
	}
	return nil, err
}

// stage7ApplyMutations applies remove, then set, then destroy, in that
// order (spec §4.2 stage 7).
func stage7ApplyMutations(r *resource.Resource, c Commit) (*resource.Resource, bool, error) {
	for _, prop := range c.Remove {
		r.Remove(prop)
	}
	for prop, v := range c.Set {
		validated, err := value.New(v.Datatype, v.Raw)
		if err != nil {
			return nil, false, atomserrors.Wrap(atomserrors.SchemaViolation, err, "invalid value for "+prop)
		}
		r.Set(prop, validated)
	}
	if c.Destroy {
		return r, true, nil
	}
	return r, false, nil
}

// asResource renders a Commit as the first-class resource spec §4.2 stage
// 10 appends to the store.
func asResource(c Commit) *resource.Resource {
	r := resource.New(c.Subject)
	r.Set(resource.PropIsA, value.NewResourceArray([]string{resource.ClassCommit}))
	r.Set(resource.PropCommitSigner, must(value.New(value.AtomicURL, c.Signer)))
	r.Set(resource.PropCommitTarget, must(value.New(value.AtomicURL, c.Target)))
	r.Set(resource.PropCommitCreatedAt, must(value.New(value.Timestamp, itoa(c.CreatedAt))))
	if c.PreviousCommit != "" {
		r.Set(resource.PropCommitPreviousCommit, must(value.New(value.AtomicURL, c.PreviousCommit)))
	}
	if len(c.Set) > 0 {
		keys := make([]string, 0, len(c.Set))
		for k := range c.Set {
			keys = append(keys, k)
		}
		r.Set(resource.PropCommitSet, value.NewResourceArray(keys))
	}
	if len(c.Remove) > 0 {
		r.Set(resource.PropCommitRemove, value.NewResourceArray(c.Remove))
	}
	if c.Destroy {
		destroyVal, _ := value.New(value.Boolean, "true")
		r.Set(resource.PropCommitDestroy, destroyVal)
	}
	r.Set(resource.PropCommitSignature, must(value.New(value.String, c.Signature)))
	return r
}

func must(v value.Value, err error) value.Value {
	if err != nil {
		panic(err)
	}
	return v
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
