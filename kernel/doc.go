// Package kernel implements the logical-clock event scheduler at the
// core of a discrete-event simulation: a priority queue ordered by
// (time, sequence), a run/step/pause lifecycle, blocking continuations,
// and an optional causality arena for post-hoc tracing.
//
// # Architecture
//
// A [Scheduler] owns the event heap and the logical clock. Entities
// ([Entity]) are dispatched by ordinal rather than by name, so the
// scheduler never needs reflection to invoke a method: [Entity.Dispatch]
// is the single total function every transformed type implements.
//
// [Scheduler.Post] and [Scheduler.PostAt] enqueue non-blocking events.
// [Scheduler.PostBlocking] enqueues an event and suspends the calling
// activation until it settles, via [SuspendAndPost]; the suspended state
// is captured in a [Continuation] and consumed exactly once, when the
// scheduler pops the matching resumption record.
//
// # Concurrency model
//
// Only one activation is ever logically running at a time, even though
// each dispatch executes on its own goroutine. [Scheduler.Run] starts
// each dispatch on a fresh goroutine and blocks on that leg's settle
// channel until it yields (suspends on a further blocking call) or
// completes; a suspended leg stays parked on its own goroutine and
// continues there once the scheduler pops its resumption record and
// hands it the reply. This makes goroutines a
// direct implementation of the "lightweight thread" continuation
// strategy, not a source of true parallelism between entities.
//
// # Causality
//
// When [WithCausalityTracking] is enabled, every posted event is
// recorded in an append-only arena with an index back-reference to its
// source event; [Scheduler.CausalTrace] walks that chain back to the
// root trigger. [Scheduler.Clear] drops the whole arena in O(1) by
// discarding the slice.
//
// # Lifecycle
//
// A [Scheduler] starts Fresh, transitions to Running on [Scheduler.Run],
// and to Stopped when the queue drains, an end time is reached, or a
// fatal entity error halts it. [Scheduler.Step] drives exactly one
// record for interactive or debugger use, leaving the scheduler Paused
// between calls.
package kernel
