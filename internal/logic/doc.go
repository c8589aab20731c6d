// Package logic provides the control-flow steps built on the flow runner:
//
//	not {statement}
//	where {condition}, {action}
//	whenever {condition}, {action}
//	any of {statement}, {statement}, ...
//	every {var} in {source} is {statement}
//	some {var} in {source} is {statement}
//	after every {target}, {statement}
//
// Conditions and probes run with speculative intent and land on negative
// path coordinates; actions run with the caller's intent. The steps hold
// no state of their own: loop counters live in the evaluation and
// bindings live in the World.
package logic
