// Package ir provides the data model shared by every stepwise package.
//
// This package contains value types only. All other internal packages
// import ir; ir imports nothing internal.
//
// Key design constraints:
//   - FeatureStep values are immutable once resolved; copy-on-write helpers
//     (WithPath, WithIntent) return modified copies
//   - Argument values form a sealed variant (ArgValue): plain string, int,
//     bool, or a nested statement list. No `any`-typed recursion.
//   - Topic payloads use the sealed Value types; NO floats (use int64)
//   - Sequence paths are unique within one run and totally ordered
//   - Canonical JSON (RFC 8785 key order, NFC strings) is the only
//     serialization used for content-addressed entry IDs
package ir
