package kernel

import "container/heap"

// Entity is the runtime contract every transformed class implements
// (spec §4.3, the Entity Proxy Contract). ctx carries the scheduler's
// current activation so that a method body can make further blocking
// calls via SuspendAndPost.
type Entity interface {
	// Dispatch executes the body of the method identified by ordinal.
	// It must be total over valid ordinals, returning an
	// *InvalidOrdinalError otherwise.
	Dispatch(ctx DispatchContext, ordinal int32, args []any) (any, error)

	// SignatureFor returns the human-readable method signature for
	// ordinal, used by loggers and trace dumps.
	SignatureFor(ordinal int32) string

	// Name identifies the entity for logging/diagnostics.
	Name() string
}

// Event is the scheduler's event record (spec §3 "Event record").
type Event struct {
	// Time is the absolute logical time at which this event is due.
	Time int64
	// Sequence breaks ties between events at equal Time (insertion
	// order), strictly increasing within one Scheduler instance.
	Sequence int64

	// Entity is the target of a regular (non-resumption) event.
	Entity Entity
	// Ordinal identifies the method on Entity to dispatch.
	Ordinal int32
	// Args is the heterogeneous argument tuple passed to Dispatch.
	Args []any

	// Blocking is true when the poster of this event is suspended
	// awaiting its completion.
	Blocking bool
	// Continuation is the poster's suspended execution state, present
	// only when Blocking is true.
	Continuation *Continuation

	// Source is the event whose dispatch posted this one; populated
	// only when causality tracking is enabled (spec §3).
	Source *Event

	// DebugSite is an optional creation-site description. None of the
	// scheduler's posting methods set it.
	DebugSite string

	// IsResumption marks a record that resumes a previously suspended
	// continuation rather than invoking Entity.Dispatch directly. For
	// such records, Continuation, ResumeValue and ResumeErr are set and
	// Entity/Ordinal/Args are unused.
	IsResumption bool
	ResumeValue  any
	ResumeErr    error

	// causalIndex is this event's slot in the causality arena, valid
	// only when causality tracking is enabled.
	causalIndex int
}

// eventHeap implements container/heap.Interface, ordered by
// (Time, Sequence) (spec §3 "Event queue").
type eventHeap []*Event

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	if h[i].Time != h[j].Time {
		return h[i].Time < h[j].Time
	}
	return h[i].Sequence < h[j].Sequence
}

func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(*Event))
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	ev := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return ev
}

var _ heap.Interface = (*eventHeap)(nil)
