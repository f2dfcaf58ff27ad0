// Package store provides SQLite-backed history of analysis runs.
//
// Each run records:
//   - Runs: library, manifest hash, replay mode and versions
//   - Sequences: per-fixture verdict, metrics, violations and fingerprint
//   - Rankings: the ranked fixture order
//
// # Critical Patterns
//
// Logical Ordering
//   - Runs are ordered by seq INTEGER (logical counter), NEVER timestamps
//   - "Previous run" means the run of the same library with the next lower seq
//
// Deterministic Query Results
//   - Every multi-row query has a total ORDER BY
//
// Idempotent Writes
//   - Writing a run whose id already exists is a no-op
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
