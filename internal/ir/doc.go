// Package ir provides the data model shared by every seqscore component.
//
// This package contains type definitions and canonical encoding only. All other
// internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - InterfaceModel values are immutable once the compiler returns them
//   - HandleInstance values live in a per-replay arena, indexed by synthetic id
//   - All JSON tags use snake_case
//   - Fingerprints use RFC 8785 canonical JSON, never encoding/json output
package ir
