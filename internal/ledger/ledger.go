// Package ledger maintains the savings goal invariant: a goal's cached
// current amount equals the sum of its non-deleted deposits. All operations
// are pure computations over in-memory records; the caller persists the
// returned state (see services.GoalService for the storage contract).
package ledger

import (
	"sort"
	"time"

	"financebro/internal/core"

	"github.com/google/uuid"
)

// AddDeposit validates and applies a deposit against a goal, returning the
// new deposit record and the goal with its cached total incremented.
//
// Fails with core.ErrInvalidAmount when amount is not positive and with
// core.ErrNotOwner when callerID does not own the goal. On failure the input
// goal is returned unchanged.
func AddDeposit(goal core.SavingsGoal, callerID string, amount core.Money, date core.Date) (core.SavingsDeposit, core.SavingsGoal, error) {
	if goal.OwnerID != callerID {
		return core.SavingsDeposit{}, goal, core.ErrNotOwner
	}
	if err := amount.Validate(); err != nil {
		return core.SavingsDeposit{}, goal, err
	}
	if err := date.Validate(); err != nil {
		return core.SavingsDeposit{}, goal, err
	}

	dep := core.SavingsDeposit{
		ID:        uuid.NewString(),
		OwnerID:   callerID,
		GoalID:    goal.ID,
		Amount:    amount,
		Date:      date,
		CreatedAt: time.Now().UTC(),
	}
	goal.Current = goal.Current.Add(amount)
	return dep, goal, nil
}

// RemoveDeposit detaches a deposit from its goal, decrementing the cached
// total. The decrement floors at zero: deleting never drives the total
// negative, even when the cache was already inconsistent.
func RemoveDeposit(goal core.SavingsGoal, dep core.SavingsDeposit, callerID string) (core.SavingsGoal, error) {
	if goal.OwnerID != callerID || dep.OwnerID != callerID {
		return goal, core.ErrNotOwner
	}
	if dep.GoalID != goal.ID {
		return goal, core.ErrNotFound
	}
	goal.Current = goal.Current.SubFloorZero(dep.Amount)
	return goal, nil
}

// Reconcile recomputes the goal's cached total as the exact sum of its
// deposits, overwriting whatever was cached. Deposits belonging to other
// goals are ignored. The second return reports whether the cache had
// drifted; callers log drift as a warning, never as a failure. Applying
// Reconcile twice in a row yields the same value.
func Reconcile(goal core.SavingsGoal, deposits []core.SavingsDeposit) (core.SavingsGoal, bool) {
	var sum int64
	for _, d := range deposits {
		if d.GoalID != goal.ID {
			continue
		}
		sum += d.Amount.Cents
	}
	drifted := goal.Current.Cents != sum
	goal.Current = core.Money{Cents: sum}
	return goal, drifted
}

// DeleteGoal computes the cascade for removing a goal: the ids of every
// deposit referencing it, children first. The caller must delete deposits
// and goal in a single storage transaction so a failed goal delete never
// strands orphaned deposits.
func DeleteGoal(goal core.SavingsGoal, deposits []core.SavingsDeposit, callerID string) ([]string, error) {
	if goal.OwnerID != callerID {
		return nil, core.ErrNotOwner
	}
	var ids []string
	for _, d := range deposits {
		if d.GoalID == goal.ID {
			ids = append(ids, d.ID)
		}
	}
	return ids, nil
}

// SortDeposits orders deposit history most recent first. Ties on the date
// keep creation order (stable sort).
func SortDeposits(deposits []core.SavingsDeposit) {
	sort.SliceStable(deposits, func(i, j int) bool {
		return deposits[i].Date.Time.After(deposits[j].Date.Time)
	})
}
