package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"financebro/internal/core"
	"financebro/internal/ledger"
	"financebro/internal/storage"

	"github.com/google/uuid"
)

// GoalService orchestrates savings goals and deposits. The ledger computes
// the new state; storage applies balance changes as single-statement atomic
// increments so concurrent deposits against one goal cannot race. Listing
// reconciles cached totals against the deposit history and corrects drift
// in place.
type GoalService struct {
	storage *storage.SQLiteRepository
}

func NewGoalService(storage *storage.SQLiteRepository) *GoalService {
	return &GoalService{storage: storage}
}

// CreateGoal validates and stores a new goal with a zero balance.
func (s *GoalService) CreateGoal(ctx context.Context, ownerID, name string, target core.Money) (core.SavingsGoal, error) {
	g := core.SavingsGoal{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Name:      name,
		Target:    target,
		CreatedAt: time.Now().UTC(),
	}
	if err := g.Validate(); err != nil {
		return core.SavingsGoal{}, err
	}
	if err := s.storage.CreateGoal(ctx, g); err != nil {
		return core.SavingsGoal{}, fmt.Errorf("create goal: %w", err)
	}
	return g, nil
}

// getOwnedGoal loads a goal and verifies ownership. The two failure modes
// stay distinct internally; handlers render both as not-found.
func (s *GoalService) getOwnedGoal(ctx context.Context, ownerID, goalID string) (core.SavingsGoal, error) {
	goal, err := s.storage.GetGoal(ctx, goalID)
	if err != nil {
		return core.SavingsGoal{}, err
	}
	if goal.OwnerID != ownerID {
		slog.WarnContext(ctx, "Ownership violation on goal access",
			"goal_id", goalID,
			"owner_id", goal.OwnerID,
			"caller_id", ownerID)
		return core.SavingsGoal{}, core.ErrNotOwner
	}
	return goal, nil
}

// AddDeposit records a deposit and bumps the goal's cached total.
func (s *GoalService) AddDeposit(ctx context.Context, ownerID, goalID string, amount core.Money, date core.Date) (core.SavingsDeposit, core.SavingsGoal, error) {
	goal, err := s.getOwnedGoal(ctx, ownerID, goalID)
	if err != nil {
		return core.SavingsDeposit{}, core.SavingsGoal{}, err
	}

	dep, updated, err := ledger.AddDeposit(goal, ownerID, amount, date)
	if err != nil {
		return core.SavingsDeposit{}, core.SavingsGoal{}, err
	}

	if err := s.storage.CreateDeposit(ctx, dep); err != nil {
		return core.SavingsDeposit{}, core.SavingsGoal{}, fmt.Errorf("save deposit: %w", err)
	}
	if err := s.storage.ApplyGoalDelta(ctx, goal.ID, amount.Cents); err != nil {
		return core.SavingsDeposit{}, core.SavingsGoal{}, fmt.Errorf("apply deposit to goal: %w", err)
	}

	slog.InfoContext(ctx, "Deposit added",
		"goal_id", goal.ID,
		"deposit_id", dep.ID,
		"amount_cents", amount.Cents)
	return dep, updated, nil
}

// RemoveDeposit deletes a deposit and decrements the goal's cached total,
// floored at zero.
func (s *GoalService) RemoveDeposit(ctx context.Context, ownerID, goalID, depositID string) (core.SavingsGoal, error) {
	goal, err := s.getOwnedGoal(ctx, ownerID, goalID)
	if err != nil {
		return core.SavingsGoal{}, err
	}

	dep, err := s.storage.GetDeposit(ctx, depositID)
	if err != nil {
		return core.SavingsGoal{}, err
	}

	updated, err := ledger.RemoveDeposit(goal, dep, ownerID)
	if err != nil {
		return core.SavingsGoal{}, err
	}

	if err := s.storage.DeleteDeposit(ctx, dep.ID); err != nil {
		return core.SavingsGoal{}, fmt.Errorf("delete deposit: %w", err)
	}
	if err := s.storage.ApplyGoalDelta(ctx, goal.ID, -dep.Amount.Cents); err != nil {
		return core.SavingsGoal{}, fmt.Errorf("apply removal to goal: %w", err)
	}

	slog.InfoContext(ctx, "Deposit removed",
		"goal_id", goal.ID,
		"deposit_id", dep.ID,
		"amount_cents", dep.Amount.Cents)
	return updated, nil
}

// ListGoals returns the owner's goals with reconciled balances. Drift
// between the cached total and the deposit sum is corrected in storage and
// logged as a warning, never surfaced as a failure.
func (s *GoalService) ListGoals(ctx context.Context, ownerID string) ([]core.SavingsGoal, error) {
	goals, err := s.storage.ListGoals(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}

	for i, goal := range goals {
		deposits, err := s.storage.ListDeposits(ctx, goal.ID)
		if err != nil {
			return nil, fmt.Errorf("list deposits for goal %s: %w", goal.ID, err)
		}

		reconciled, drifted := ledger.Reconcile(goal, deposits)
		if drifted {
			slog.WarnContext(ctx, "Goal balance drifted from deposit sum, corrected",
				"goal_id", goal.ID,
				"cached_cents", goal.Current.Cents,
				"actual_cents", reconciled.Current.Cents)
			if err := s.storage.SetGoalCurrent(ctx, goal.ID, reconciled.Current.Cents); err != nil {
				return nil, fmt.Errorf("correct goal balance: %w", err)
			}
		}
		goals[i] = reconciled
	}
	return goals, nil
}

// GetGoal returns one goal with its deposit history, most recent deposit
// first.
func (s *GoalService) GetGoal(ctx context.Context, ownerID, goalID string) (core.SavingsGoal, []core.SavingsDeposit, error) {
	goal, err := s.getOwnedGoal(ctx, ownerID, goalID)
	if err != nil {
		return core.SavingsGoal{}, nil, err
	}

	deposits, err := s.storage.ListDeposits(ctx, goal.ID)
	if err != nil {
		return core.SavingsGoal{}, nil, fmt.Errorf("list deposits: %w", err)
	}
	ledger.SortDeposits(deposits)
	return goal, deposits, nil
}

// DeleteGoal cascades: deposits first, then the goal, inside one storage
// transaction. Returns the ids of the removed deposits.
func (s *GoalService) DeleteGoal(ctx context.Context, ownerID, goalID string) ([]string, error) {
	goal, err := s.getOwnedGoal(ctx, ownerID, goalID)
	if err != nil {
		return nil, err
	}

	deposits, err := s.storage.ListDeposits(ctx, goal.ID)
	if err != nil {
		return nil, fmt.Errorf("list deposits: %w", err)
	}

	ids, err := ledger.DeleteGoal(goal, deposits, ownerID)
	if err != nil {
		return nil, err
	}

	if err := s.storage.DeleteGoalCascade(ctx, goal.ID); err != nil {
		return nil, fmt.Errorf("cascade delete goal: %w", err)
	}
	return ids, nil
}

// SweepOrphans removes deposits whose goal is gone; the compensating action
// for interrupted cascades.
func (s *GoalService) SweepOrphans(ctx context.Context) (int64, error) {
	return s.storage.DeleteOrphanDeposits(ctx)
}

// IsNotFound reports whether err should surface externally as not-found.
// Ownership violations are folded in deliberately.
func IsNotFound(err error) bool {
	return errors.Is(err, core.ErrNotFound) || errors.Is(err, core.ErrNotOwner)
}
