// Package pipeline executes split runs as an ordered sequence of stages.
//
// A run flows segment → materialize → gains → workbook → verify over a
// shared RunState. Each stage validates its preconditions first: a stage
// whose inputs are absent (no sales export for the gains stage, no workbook
// requested) is skipped, not failed. Execution errors abort the run; a
// section that cannot be materialized is recorded on the state instead and
// surfaces as a partial run outcome once every stage has had its turn.
//
// The Runner instruments each run and stage with OpenTelemetry spans and
// the shared split metrics through RunTracer, and condenses the final state
// into a domain.RunResult for API responses and CLI output.
package pipeline
