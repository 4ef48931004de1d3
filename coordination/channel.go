// Package coordination implements the C5 coordination primitives —
// synchronous channel, signal, bounded buffer, and counted inventory —
// entirely atop kernel.Scheduler and kernel.Continuation (spec §4.5).
// None use native threading primitives; each primitive is itself a
// kernel.Entity whose blocking methods suspend via kernel.SuspendAndPost
// or kernel.ParkOn rather than a goroutine-level mutex or channel send.
package coordination

import (
	"github.com/hellblazer/primemover/entity"
	"github.com/hellblazer/primemover/kernel"
	"github.com/hellblazer/primemover/reporter"
)

var (
	_ reporter.Snapshot = (*Channel)(nil)
	_ kernel.Entity      = (*Channel)(nil)
)

const (
	ordinalChannelPut int32 = iota + 1
	ordinalChannelTake
)

var channelSignatures = entity.SignatureTable{
	ordinalChannelPut:  "put(value any) error",
	ordinalChannelTake: "take() (any, error)",
}

type channelWaiter struct {
	cont  *kernel.Continuation
	value any
}

// Channel is a zero-capacity rendezvous (spec §4.5 "Synchronous
// Channel"): Put only completes once a Take is waiting and vice versa,
// with FIFO fairness among same-side waiters.
type Channel struct {
	entity.Base
	sched *kernel.Scheduler

	putters []*channelWaiter
	takers  []*channelWaiter

	puts, takes, exchanges int64
}

// NewChannel creates a rendezvous channel dispatched through sched.
func NewChannel(sched *kernel.Scheduler, name string) *Channel {
	return &Channel{Base: entity.NewBase(name), sched: sched}
}

func (c *Channel) SignatureFor(ordinal int32) string { return channelSignatures.SignatureFor(ordinal) }

// Dispatch executes the body of Put or Take for the posted event.
func (c *Channel) Dispatch(ctx kernel.DispatchContext, ordinal int32, args []any) (any, error) {
	switch ordinal {
	case ordinalChannelPut:
		var v any
		if len(args) > 0 {
			v = args[0]
		}
		return nil, c.dispatchPut(ctx, v)
	case ordinalChannelTake:
		return c.dispatchTake(ctx)
	default:
		return nil, &kernel.InvalidOrdinalError{Entity: c.Name(), Ordinal: ordinal}
	}
}

// Put blocks until a Take is waiting to receive value.
func (c *Channel) Put(ctx kernel.DispatchContext, value any) error {
	_, err := kernel.SuspendAndPost(ctx, c, ordinalChannelPut, []any{value})
	return err
}

// Take blocks until a Put is waiting to offer a value.
func (c *Channel) Take(ctx kernel.DispatchContext) (any, error) {
	return kernel.SuspendAndPost(ctx, c, ordinalChannelTake, nil)
}

func (c *Channel) dispatchPut(ctx kernel.DispatchContext, value any) error {
	c.puts++
	if len(c.takers) > 0 {
		taker := c.takers[0]
		c.takers = c.takers[1:]
		c.exchanges++
		c.sched.Resume(taker.cont, value, nil)
		return nil
	}
	cont := c.sched.NewContinuation()
	c.putters = append(c.putters, &channelWaiter{cont: cont, value: value})
	_, err := kernel.ParkOn(ctx, cont)
	return err
}

func (c *Channel) dispatchTake(ctx kernel.DispatchContext) (any, error) {
	c.takes++
	if len(c.putters) > 0 {
		putter := c.putters[0]
		c.putters = c.putters[1:]
		c.exchanges++
		c.sched.Resume(putter.cont, nil, nil)
		return putter.value, nil
	}
	cont := c.sched.NewContinuation()
	c.takers = append(c.takers, &channelWaiter{cont: cont})
	return kernel.ParkOn(ctx, cont)
}

// Type satisfies reporter.Snapshot.
func (c *Channel) Type() string { return "coordination.Channel" }

// Statistics satisfies reporter.Snapshot.
func (c *Channel) Statistics() map[string]any {
	return map[string]any{
		"puts":            c.puts,
		"takes":           c.takes,
		"exchanges":       c.exchanges,
		"waiting_putters": int64(len(c.putters)),
		"waiting_takers":  int64(len(c.takers)),
	}
}
