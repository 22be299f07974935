/*
Package storage is atomstore's persistence façade (spec §4.1, Component
D), backed by a single embedded BoltDB file.

# Buckets

Five buckets back the store:

  - resources: subject URL -> JSON-encoded Resource, the canonical data.
  - reference_index: TPF index keys (property, value, subject), empty
    values, supporting spec §4.3's six wildcard scan strategies.
  - members_index: sorted (filterProperty\x00sortProperty, sortValue,
    subject) keys feeding the query engine's range scans (spec §4.4).
  - last_commit: subject -> the subject of the most recently applied
    commit targeting it, for optimistic concurrency (spec §4.2 stage 4).
  - default_agent: the single scalar naming which agent authors commits
    when none is specified.

# Atomicity

Every resource write updates resources, reference_index, and
members_index in one bbolt transaction (reindexLocked), so a reader never
observes a resource without its index entries or vice versa. pkg/commit's
apply pipeline additionally writes last_commit inside that same
transaction via the *Tx helpers (PutResourceTx, DeleteResourceTx,
GetResourceTx) and Store.SetLastCommit, giving the pipeline's stages 6-10
one atomic batch boundary; its validation stages 2-5 run before that
transaction opens.

# Concurrency

bbolt allows one writer and unlimited concurrent readers; Store relies on
that directly rather than adding its own write lock. The one exception is
the default-agent scalar, guarded by Store.mu since it's read and written
outside of any bbolt transaction boundary callers control (spec §5).
*/
package storage
