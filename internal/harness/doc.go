// Package harness runs conformance scenarios against the step engine.
//
// # Scenario Format
//
// Scenarios are YAML files. The feature text runs through a real engine with
// the fixture, variables, logic and activities steppers registered:
//
//	name: ensure_memoizes
//	description: "Proofs run once until the outcome is forgotten"
//	feature: |
//	  Activity: Is ready for {user}
//	      set user to {user}
//	  ensure Is ready for Admin
//	  ensure Is ready for Admin
//	expect: pass
//	assertions:
//	  - type: trace_count
//	    action: variables.set
//	    count: 1
//
// # Assertion Types
//
//   - trace_contains: an entry matches action, statement, path and ok
//   - trace_count: exactly N entries match action and statement
//   - trace_order: actions first appear in the given execution order
//   - trace_paths: the sequence paths of the trace, in path order
//   - path_unique: no path repeats in the stored trace
//
// # Deterministic Testing
//
// Every scenario runs with a fixed run ID, an in-memory SQLite store and
// a discarding logger, so traces are reproducible for golden comparison.
package harness
