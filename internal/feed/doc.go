// Package feed implements the For You feed ranking engine.
//
// Given a viewer, a candidate pool of chirps and a feed configuration, the
// engine decides which chirps the viewer may see, scores and orders them, and
// relaxes its constraints when too few chirps qualify.
//
// # Pipeline
//
// For each rung of the window ladder (see Windows) the engine runs:
//
//	eligibility (IsEligible) -> scoring (Score) -> ordering (SortScores) -> author diversity (LimitDiversity)
//
// The first rung that yields any eligible chirp wins. Within a rung, a strict
// pass that honors muted topics runs before a relaxed pass that ignores them.
// When every rung is empty the engine falls back to pure recency ordering, so
// the feed is only empty when the candidate pool is.
//
// # Concurrency
//
// Engine holds no mutable state and is safe for concurrent use. Each call is a
// synchronous computation over its inputs; cancellation and timeouts belong to
// the caller.
//
// # Diagnostics
//
// Tuned chirps that are unreachable (missing audience descriptor) or that
// exclude the current viewer are reported through the Diagnostics interface
// rather than returned as errors.
package feed
