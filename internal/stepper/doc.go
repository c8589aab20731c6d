// Package stepper defines the contracts between the engine and the modules
// ("steppers") that contribute step definitions.
//
// A stepper supplies a name and an ordered list of Definitions. It may also
// implement any of the optional hook interfaces (BeforeStepHook,
// AfterStepHook, FeatureHook, ExecutionHook), contribute value domains
// (DomainProvider) or offer observation sources to quantifiers
// (ObservationProvider).
//
// Run state is never global. Every action receives the *World of the run it
// belongs to: its trace, variable bindings, outcome cache, logical clock and
// the Flow used to evaluate nested statements. One World serves exactly one
// feature execution on one goroutine.
package stepper
