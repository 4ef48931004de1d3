package coordination

import (
	"github.com/hellblazer/primemover/entity"
	"github.com/hellblazer/primemover/kernel"
	"github.com/hellblazer/primemover/reporter"
)

var (
	_ reporter.Snapshot = (*BoundedBuffer)(nil)
	_ kernel.Entity      = (*BoundedBuffer)(nil)
)

const (
	ordinalBufferPut int32 = iota + 1
	ordinalBufferTake
)

var bufferSignatures = entity.SignatureTable{
	ordinalBufferPut:  "put(value any) error",
	ordinalBufferTake: "take() (any, error)",
}

type bufferWaiter struct {
	cont  *kernel.Continuation
	value any
}

// BoundedBuffer is a FIFO queue of fixed capacity (spec §4.5 "Bounded
// Buffer"): Put suspends when full, Take suspends when empty, and both
// items and waiters preserve FIFO order. Multiple producers and
// consumers are permitted.
type BoundedBuffer struct {
	entity.Base
	sched    *kernel.Scheduler
	capacity int

	items        []any
	pendingPuts  []*bufferWaiter
	pendingTakes []*kernel.Continuation

	puts, takes int64
}

// NewBoundedBuffer creates a buffer of the given capacity, which must be
// positive.
func NewBoundedBuffer(sched *kernel.Scheduler, name string, capacity int) *BoundedBuffer {
	if capacity <= 0 {
		panic("coordination: BoundedBuffer capacity must be > 0")
	}
	return &BoundedBuffer{Base: entity.NewBase(name), sched: sched, capacity: capacity}
}

func (b *BoundedBuffer) SignatureFor(ordinal int32) string { return bufferSignatures.SignatureFor(ordinal) }

// Dispatch executes the body of Put or Take for the posted event.
func (b *BoundedBuffer) Dispatch(ctx kernel.DispatchContext, ordinal int32, args []any) (any, error) {
	switch ordinal {
	case ordinalBufferPut:
		var v any
		if len(args) > 0 {
			v = args[0]
		}
		return nil, b.dispatchPut(ctx, v)
	case ordinalBufferTake:
		return b.dispatchTake(ctx)
	default:
		return nil, &kernel.InvalidOrdinalError{Entity: b.Name(), Ordinal: ordinal}
	}
}

// Put blocks until there is room in the buffer.
func (b *BoundedBuffer) Put(ctx kernel.DispatchContext, value any) error {
	_, err := kernel.SuspendAndPost(ctx, b, ordinalBufferPut, []any{value})
	return err
}

// Take blocks until an item is available.
func (b *BoundedBuffer) Take(ctx kernel.DispatchContext) (any, error) {
	return kernel.SuspendAndPost(ctx, b, ordinalBufferTake, nil)
}

func (b *BoundedBuffer) dispatchPut(ctx kernel.DispatchContext, value any) error {
	b.puts++
	if len(b.pendingTakes) > 0 {
		taker := b.pendingTakes[0]
		b.pendingTakes = b.pendingTakes[1:]
		b.sched.Resume(taker, value, nil)
		return nil
	}
	if len(b.items) < b.capacity {
		b.items = append(b.items, value)
		return nil
	}
	cont := b.sched.NewContinuation()
	b.pendingPuts = append(b.pendingPuts, &bufferWaiter{cont: cont, value: value})
	_, err := kernel.ParkOn(ctx, cont)
	return err
}

func (b *BoundedBuffer) dispatchTake(ctx kernel.DispatchContext) (any, error) {
	b.takes++
	if len(b.items) > 0 {
		v := b.items[0]
		b.items = b.items[1:]
		if len(b.pendingPuts) > 0 {
			putter := b.pendingPuts[0]
			b.pendingPuts = b.pendingPuts[1:]
			b.items = append(b.items, putter.value)
			b.sched.Resume(putter.cont, nil, nil)
		}
		return v, nil
	}
	cont := b.sched.NewContinuation()
	b.pendingTakes = append(b.pendingTakes, cont)
	return kernel.ParkOn(ctx, cont)
}

// Type satisfies reporter.Snapshot.
func (b *BoundedBuffer) Type() string { return "coordination.BoundedBuffer" }

// Statistics satisfies reporter.Snapshot.
func (b *BoundedBuffer) Statistics() map[string]any {
	return map[string]any{
		"puts":           b.puts,
		"takes":          b.takes,
		"size":           int64(len(b.items)),
		"capacity":       int64(b.capacity),
		"blocked_putters": int64(len(b.pendingPuts)),
		"blocked_takers":  int64(len(b.pendingTakes)),
	}
}
