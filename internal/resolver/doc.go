// Package resolver matches statement text against the registered step
// definitions and extracts typed arguments.
//
// Three pattern kinds are supported:
//   - exact:    literal equality after normalization
//   - regex:    a caller-supplied *regexp.Regexp; named groups become arguments
//   - template: "set {what} to {value}", "wait( for)? {ms:number}"
//
// Templates are compiled once, at registry construction, into literal
// segments and typed capture slots. Each slot captures a double-quoted
// term, a backquoted term, or the shortest run of text up to the next
// literal. Quotes are stripped from the term and kept in the original.
//
// TIE-BREAK
//
// When several definitions match the same statement:
//  1. unique definitions beat every non-unique one
//  2. definitions named in another match's Precludes list are dropped
//  3. the first registered remaining definition wins (stepper order, then
//     declaration order); the ambiguity is logged at warn level
//
// The {name:statement} domain resolves the captured text recursively into
// a child step, so "not {statement:statement}" carries a fully resolved
// inner step. Resolution is otherwise pure: it reads the registry and the
// input text only.
package resolver
