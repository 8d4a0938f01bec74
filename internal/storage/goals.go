package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"financebro/internal/core"
)

func (r *SQLiteRepository) CreateGoal(ctx context.Context, g core.SavingsGoal) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO savings_goals (id, owner_id, name, target_cents, current_cents, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		g.ID, g.OwnerID, g.Name, g.Target.Cents, g.Current.Cents, fmtTime(g.CreatedAt))
	if err != nil {
		return fmt.Errorf("create goal: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetGoal(ctx context.Context, id string) (core.SavingsGoal, error) {
	var g core.SavingsGoal
	var createdAt string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, owner_id, name, target_cents, current_cents, created_at
		 FROM savings_goals WHERE id = ?`, id).
		Scan(&g.ID, &g.OwnerID, &g.Name, &g.Target.Cents, &g.Current.Cents, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.SavingsGoal{}, core.ErrNotFound
	}
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("get goal: %w", err)
	}
	g.CreatedAt = parseTimeCol(createdAt)
	return g, nil
}

func (r *SQLiteRepository) ListGoals(ctx context.Context, ownerID string) ([]core.SavingsGoal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, name, target_cents, current_cents, created_at
		 FROM savings_goals WHERE owner_id = ? ORDER BY created_at`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var goals []core.SavingsGoal
	for rows.Next() {
		var g core.SavingsGoal
		var createdAt string
		if err := rows.Scan(&g.ID, &g.OwnerID, &g.Name, &g.Target.Cents, &g.Current.Cents, &createdAt); err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		g.CreatedAt = parseTimeCol(createdAt)
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

// ApplyGoalDelta adjusts a goal's cached total with a single-statement
// atomic increment, floored at zero. Concurrent deposits against the same
// goal therefore never lose updates, the concurrency contract the ledger
// relies on.
func (r *SQLiteRepository) ApplyGoalDelta(ctx context.Context, goalID string, deltaCents int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE savings_goals SET current_cents = MAX(0, current_cents + ?) WHERE id = ?`,
		deltaCents, goalID)
	if err != nil {
		return fmt.Errorf("apply goal delta: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// SetGoalCurrent overwrites the cached total; the reconcile path.
func (r *SQLiteRepository) SetGoalCurrent(ctx context.Context, goalID string, cents int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE savings_goals SET current_cents = ? WHERE id = ?`, cents, goalID)
	if err != nil {
		return fmt.Errorf("set goal current: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// DeleteGoalCascade removes a goal and all its deposits in one SQL
// transaction; either both steps land or neither does.
func (r *SQLiteRepository) DeleteGoalCascade(ctx context.Context, goalID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM savings_deposits WHERE goal_id = ?`, goalID); err != nil {
		return fmt.Errorf("delete deposits: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM savings_goals WHERE id = ?`, goalID)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Goal deleted with deposit cascade", "goal_id", goalID)
	return nil
}

func (r *SQLiteRepository) CreateDeposit(ctx context.Context, d core.SavingsDeposit) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO savings_deposits (id, owner_id, goal_id, amount_cents, date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		d.ID, d.OwnerID, d.GoalID, d.Amount.Cents, fmtDate(d.Date), fmtTime(d.CreatedAt))
	if err != nil {
		return fmt.Errorf("create deposit: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetDeposit(ctx context.Context, id string) (core.SavingsDeposit, error) {
	var d core.SavingsDeposit
	var date, createdAt string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, owner_id, goal_id, amount_cents, date, created_at
		 FROM savings_deposits WHERE id = ?`, id).
		Scan(&d.ID, &d.OwnerID, &d.GoalID, &d.Amount.Cents, &date, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.SavingsDeposit{}, core.ErrNotFound
	}
	if err != nil {
		return core.SavingsDeposit{}, fmt.Errorf("get deposit: %w", err)
	}
	d.Date = parseDateCol(date)
	d.CreatedAt = parseTimeCol(createdAt)
	return d, nil
}

func (r *SQLiteRepository) DeleteDeposit(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM savings_deposits WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete deposit: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// ListDeposits returns a goal's deposits in insertion order; callers that
// present history apply ledger.SortDeposits.
func (r *SQLiteRepository) ListDeposits(ctx context.Context, goalID string) ([]core.SavingsDeposit, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, goal_id, amount_cents, date, created_at
		 FROM savings_deposits WHERE goal_id = ? ORDER BY created_at`, goalID)
	if err != nil {
		return nil, fmt.Errorf("list deposits: %w", err)
	}
	defer rows.Close()
	return collectDeposits(rows)
}

func collectDeposits(rows *sql.Rows) ([]core.SavingsDeposit, error) {
	var out []core.SavingsDeposit
	for rows.Next() {
		var d core.SavingsDeposit
		var date, createdAt string
		if err := rows.Scan(&d.ID, &d.OwnerID, &d.GoalID, &d.Amount.Cents, &date, &createdAt); err != nil {
			return nil, fmt.Errorf("scan deposit: %w", err)
		}
		d.Date = parseDateCol(date)
		d.CreatedAt = parseTimeCol(createdAt)
		out = append(out, d)
	}
	return out, rows.Err()
}

// DeleteOrphanDeposits removes deposits whose goal no longer exists. It is
// the compensating sweep for cascade deletes interrupted before the storage
// transaction was introduced or corrupted by external writes.
func (r *SQLiteRepository) DeleteOrphanDeposits(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM savings_deposits
		 WHERE goal_id NOT IN (SELECT id FROM savings_goals)`)
	if err != nil {
		return 0, fmt.Errorf("delete orphan deposits: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		slog.WarnContext(ctx, "Removed orphaned deposits", "count", n)
	}
	return n, nil
}
