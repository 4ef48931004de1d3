package coordination

import (
	"github.com/hellblazer/primemover/entity"
	"github.com/hellblazer/primemover/kernel"
	"github.com/hellblazer/primemover/reporter"
)

var (
	_ reporter.Snapshot = (*CountedInventory)(nil)
	_ kernel.Entity      = (*CountedInventory)(nil)
)

const (
	ordinalInventoryDeposit int32 = iota + 1
	ordinalInventoryWithdraw
)

var inventorySignatures = entity.SignatureTable{
	ordinalInventoryDeposit:  "deposit(n int64) error",
	ordinalInventoryWithdraw: "withdraw(n int64) (int64, error)",
}

type inventoryWaiter struct {
	cont   *kernel.Continuation
	amount int64
}

// InventoryOption configures a CountedInventory at construction.
type InventoryOption interface {
	applyInventory(*CountedInventory)
}

type inventoryOptionFunc func(*CountedInventory)

func (f inventoryOptionFunc) applyInventory(inv *CountedInventory) { f(inv) }

// WithPartialWithdraw switches Withdraw from the default strict-exact
// mode (block until the full requested amount is available) to partial
// mode, where Withdraw returns as soon as any stock is available,
// taking min(n, level) rather than waiting for the full n (spec §9 open
// question on withdraw semantics, resolved: strict by default).
func WithPartialWithdraw() InventoryOption {
	return inventoryOptionFunc(func(inv *CountedInventory) { inv.partial = true })
}

// CountedInventory ("stock") tracks a bounded, non-negative quantity
// (spec §4.5 "Counted Inventory"): Deposit suspends until the deposit
// fits under capacity, Withdraw suspends until enough stock exists (or,
// in partial mode, until any stock exists). Both wake FIFO.
type CountedInventory struct {
	entity.Base
	sched    *kernel.Scheduler
	capacity int64
	level    int64
	partial  bool

	pendingDeposits  []*inventoryWaiter
	pendingWithdraws []*inventoryWaiter

	deposits, withdraws int64
}

// NewCountedInventory creates a stock of the given capacity and initial
// level.
func NewCountedInventory(sched *kernel.Scheduler, name string, capacity, initial int64, opts ...InventoryOption) *CountedInventory {
	inv := &CountedInventory{Base: entity.NewBase(name), sched: sched, capacity: capacity, level: initial}
	for _, opt := range opts {
		if opt != nil {
			opt.applyInventory(inv)
		}
	}
	return inv
}

func (inv *CountedInventory) SignatureFor(ordinal int32) string {
	return inventorySignatures.SignatureFor(ordinal)
}

// Dispatch executes the body of Deposit or Withdraw for the posted
// event.
func (inv *CountedInventory) Dispatch(ctx kernel.DispatchContext, ordinal int32, args []any) (any, error) {
	switch ordinal {
	case ordinalInventoryDeposit:
		n, _ := args[0].(int64)
		return nil, inv.dispatchDeposit(ctx, n)
	case ordinalInventoryWithdraw:
		n, _ := args[0].(int64)
		return inv.dispatchWithdraw(ctx, n)
	default:
		return nil, &kernel.InvalidOrdinalError{Entity: inv.Name(), Ordinal: ordinal}
	}
}

// Deposit blocks until level+n fits within capacity.
func (inv *CountedInventory) Deposit(ctx kernel.DispatchContext, n int64) error {
	_, err := kernel.SuspendAndPost(ctx, inv, ordinalInventoryDeposit, []any{n})
	return err
}

// Withdraw blocks until n units are available (or, in partial mode,
// until any units are available) and returns the amount actually taken.
func (inv *CountedInventory) Withdraw(ctx kernel.DispatchContext, n int64) (int64, error) {
	v, err := kernel.SuspendAndPost(ctx, inv, ordinalInventoryWithdraw, []any{n})
	taken, _ := v.(int64)
	return taken, err
}

// Level reports the current stock level.
func (inv *CountedInventory) Level() int64 { return inv.level }

func (inv *CountedInventory) dispatchDeposit(ctx kernel.DispatchContext, n int64) error {
	inv.deposits++
	if inv.level+n <= inv.capacity {
		inv.level += n
		inv.wakePendingWithdraws()
		return nil
	}
	cont := inv.sched.NewContinuation()
	inv.pendingDeposits = append(inv.pendingDeposits, &inventoryWaiter{cont: cont, amount: n})
	_, err := kernel.ParkOn(ctx, cont)
	return err
}

func (inv *CountedInventory) dispatchWithdraw(ctx kernel.DispatchContext, n int64) (any, error) {
	inv.withdraws++
	if !inv.partial {
		if inv.level >= n && len(inv.pendingWithdraws) == 0 {
			inv.level -= n
			inv.wakePendingDeposits()
			return n, nil
		}
	} else if inv.level > 0 {
		taken := n
		if inv.level < taken {
			taken = inv.level
		}
		inv.level -= taken
		inv.wakePendingDeposits()
		return taken, nil
	}
	cont := inv.sched.NewContinuation()
	inv.pendingWithdraws = append(inv.pendingWithdraws, &inventoryWaiter{cont: cont, amount: n})
	return kernel.ParkOn(ctx, cont)
}

// wakePendingWithdraws satisfies queued withdrawers in FIFO order while
// the head of the queue can be satisfied (head-of-line blocking: a
// later, smaller request is never served ahead of an unsatisfied
// earlier one).
func (inv *CountedInventory) wakePendingWithdraws() {
	for len(inv.pendingWithdraws) > 0 {
		w := inv.pendingWithdraws[0]
		if !inv.partial {
			if inv.level < w.amount {
				return
			}
			inv.level -= w.amount
			inv.pendingWithdraws = inv.pendingWithdraws[1:]
			inv.sched.Resume(w.cont, w.amount, nil)
			continue
		}
		if inv.level <= 0 {
			return
		}
		taken := w.amount
		if inv.level < taken {
			taken = inv.level
		}
		inv.level -= taken
		inv.pendingWithdraws = inv.pendingWithdraws[1:]
		inv.sched.Resume(w.cont, taken, nil)
	}
}

func (inv *CountedInventory) wakePendingDeposits() {
	for len(inv.pendingDeposits) > 0 {
		d := inv.pendingDeposits[0]
		if inv.level+d.amount > inv.capacity {
			return
		}
		inv.level += d.amount
		inv.pendingDeposits = inv.pendingDeposits[1:]
		inv.sched.Resume(d.cont, nil, nil)
	}
}

// Type satisfies reporter.Snapshot.
func (inv *CountedInventory) Type() string { return "coordination.CountedInventory" }

// Statistics satisfies reporter.Snapshot.
func (inv *CountedInventory) Statistics() map[string]any {
	return map[string]any{
		"deposits":          inv.deposits,
		"withdraws":         inv.withdraws,
		"level":             inv.level,
		"capacity":          inv.capacity,
		"blocked_depositors": int64(len(inv.pendingDeposits)),
		"blocked_withdrawers": int64(len(inv.pendingWithdraws)),
	}
}
