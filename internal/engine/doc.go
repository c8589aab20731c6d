// Package engine executes resolved statements.
//
// The engine owns three of the core pieces:
//
// Sequence paths: DerivePath places every nested step under its parent.
// Consequence branches count up from [..parent, 1], condition branches count
// down from [..parent, -1], skipping any path already in the run trace.
//
// Executor: Engine.Execute runs before-step hooks, the validator, the action
// and after-step hooks, stamps the entry with the run's logical clock and
// appends it to the trace. Hook controls are interpreted with the fixed
// precedence fail > retry > next > continue.
//
// Flow runner: FlowRunner implements stepper.Flow. Control-flow steppers use
// it to run nested statements with interpolated args and derived paths.
// Speculative intent turns resolution and action errors into failed signals.
//
// RunFeature ties these together for a parsed feature file.
//
// CRITICAL PATTERNS:
//
// Run state lives in *stepper.World, one per feature execution.
// The engine keeps no per-run state and never shares a World.
//
// Trace entries are stamped with World.Clock.Next(), never the wall clock,
// for ordering. Started and Duration are informational only.
package engine
