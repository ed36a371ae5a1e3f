// Package services implements the business logic layer between the HTTP
// handlers and the split pipeline.
//
// SplitService owns the lifecycle of a split run: it checks that the dump
// exists, allocates a run directory under the configured output root, builds
// the stage list, and maps pipeline outcomes onto transport errors. Section
// failures do not error here; the run result carries them and the handler
// decides the response shape.
//
// HealthService answers the health, readiness, liveness, and version
// endpoints from process state and the configured paths. It holds no locks
// and performs only cheap filesystem probes.
//
// Services take their dependencies through constructors and log through an
// injected *slog.Logger. They return *errors.APIError values for conditions
// with a fixed HTTP mapping (missing dump, filesystem failure) and plain
// errors otherwise; the transport error handler converts both.
package services
