package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"financebro/internal/core"
)

const txColumns = `id, owner_id, amount_cents, direction, category_id, description, date,
	is_template, frequency, last_generated_date, parent_template_id, created_at`

func scanTransaction(row interface{ Scan(dest ...any) error }) (core.Transaction, error) {
	var t core.Transaction
	var categoryID, frequency, lastGenerated, parentID sql.NullString
	var date, createdAt string
	err := row.Scan(&t.ID, &t.OwnerID, &t.Amount.Cents, &t.Direction, &categoryID,
		&t.Description, &date, &t.IsTemplate, &frequency, &lastGenerated, &parentID, &createdAt)
	if err != nil {
		return core.Transaction{}, err
	}
	t.CategoryID = categoryID.String
	t.Frequency = core.Frequency(frequency.String)
	t.ParentTemplateID = parentID.String
	t.Date = parseDateCol(date)
	if lastGenerated.Valid {
		t.LastGenerated = parseDateCol(lastGenerated.String)
	}
	t.CreatedAt = parseTimeCol(createdAt)
	return t, nil
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullDate(d core.Date) sql.NullString {
	if d.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: fmtDate(d), Valid: true}
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions
		 (id, owner_id, amount_cents, direction, category_id, description, date,
		  is_template, frequency, last_generated_date, parent_template_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.OwnerID, t.Amount.Cents, string(t.Direction), nullStr(t.CategoryID),
		t.Description, fmtDate(t.Date), t.IsTemplate, nullStr(string(t.Frequency)),
		nullDate(t.LastGenerated), nullStr(t.ParentTemplateID), fmtTime(t.CreatedAt))
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", t.ID,
		"owner_id", t.OwnerID,
		"amount_cents", t.Amount.Cents,
		"direction", t.Direction,
		"is_template", t.IsTemplate)
	return nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE id = ? AND deleted_at IS NULL`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// ListTransactions returns one owner's concrete transactions for a month,
// newest first.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, ownerID string, year, month int) ([]core.Transaction, error) {
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+txColumns+` FROM transactions
		 WHERE owner_id = ? AND is_template = 0 AND deleted_at IS NULL
		   AND date >= ? AND date < ?
		 ORDER BY date DESC, created_at DESC`,
		ownerID, from.Format(dateLayout), to.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// ListTemplates returns all of an owner's recurring templates.
func (r *SQLiteRepository) ListTemplates(ctx context.Context, ownerID string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+txColumns+` FROM transactions
		 WHERE owner_id = ? AND is_template = 1 AND deleted_at IS NULL
		 ORDER BY created_at`,
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// ListTemplateOwners returns the distinct owners that have at least one
// active template; the recurring worker iterates these.
func (r *SQLiteRepository) ListTemplateOwners(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT owner_id FROM transactions WHERE is_template = 1 AND deleted_at IS NULL`)
	if err != nil {
		return nil, fmt.Errorf("list template owners: %w", err)
	}
	defer rows.Close()

	var owners []string
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return nil, fmt.Errorf("scan owner: %w", err)
		}
		owners = append(owners, owner)
	}
	return owners, rows.Err()
}

func collectTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// SoftDeleteTransaction marks an owner's transaction deleted without
// removing the row, so the export worker can still propagate the delete.
func (r *SQLiteRepository) SoftDeleteTransaction(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET deleted_at = ? WHERE id = ? AND owner_id = ? AND deleted_at IS NULL`,
		fmtTime(time.Now()), id, ownerID)
	if err != nil {
		return fmt.Errorf("soft delete transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// SaveGenerated persists one generation run atomically: each template's
// last_generated_date advance is guarded against its previous value, and the
// generated instance is inserted only when the guard matched. A concurrent
// run that already advanced the template makes the guard miss, so the same
// occurrence can never be stored twice.
func (r *SQLiteRepository) SaveGenerated(ctx context.Context, generated, updated []core.Transaction) (int, error) {
	if len(generated) != len(updated) {
		return 0, fmt.Errorf("generated/updated length mismatch: %d vs %d", len(generated), len(updated))
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stored := 0
	for i, inst := range generated {
		tpl := updated[i]

		// The previous marker is the occurrence one step before the new one;
		// for a first generation it is NULL.
		res, err := tx.ExecContext(ctx,
			`UPDATE transactions SET last_generated_date = ?
			 WHERE id = ? AND is_template = 1
			   AND (last_generated_date IS NULL OR last_generated_date < ?)`,
			fmtDate(tpl.LastGenerated), tpl.ID, fmtDate(tpl.LastGenerated))
		if err != nil {
			return 0, fmt.Errorf("advance template %s: %w", tpl.ID, err)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			slog.WarnContext(ctx, "Template already advanced by concurrent run, skipping instance",
				"template_id", tpl.ID,
				"occurrence", fmtDate(tpl.LastGenerated))
			continue
		}

		if inst.CreatedAt.IsZero() {
			inst.CreatedAt = time.Now().UTC()
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO transactions
			 (id, owner_id, amount_cents, direction, category_id, description, date,
			  is_template, frequency, last_generated_date, parent_template_id, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, 0, NULL, NULL, ?, ?)`,
			inst.ID, inst.OwnerID, inst.Amount.Cents, string(inst.Direction),
			nullStr(inst.CategoryID), inst.Description, fmtDate(inst.Date),
			inst.ParentTemplateID, fmtTime(inst.CreatedAt))
		if err != nil {
			return 0, fmt.Errorf("insert generated transaction: %w", err)
		}
		stored++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return stored, nil
}

// MarkSynced records that the export worker propagated a transaction.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET synced_at = ? WHERE id = ?`, fmtTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}
	return nil
}

// ListUnsynced returns concrete transactions the export worker has not yet
// propagated, oldest first, up to limit.
func (r *SQLiteRepository) ListUnsynced(ctx context.Context, limit int) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+txColumns+` FROM transactions
		 WHERE is_template = 0 AND deleted_at IS NULL AND synced_at IS NULL
		 ORDER BY created_at LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list unsynced: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// MonthSummary aggregates one owner's month in SQL.
func (r *SQLiteRepository) MonthSummary(ctx context.Context, ownerID string, year, month int) (core.MonthSummary, error) {
	summary := core.MonthSummary{
		Year:       year,
		Month:      month,
		ByCategory: make(map[string]core.Money),
	}

	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	rows, err := r.db.QueryContext(ctx,
		`SELECT direction, COALESCE(category_id, ''), SUM(amount_cents)
		 FROM transactions
		 WHERE owner_id = ? AND is_template = 0 AND deleted_at IS NULL
		   AND date >= ? AND date < ?
		 GROUP BY direction, category_id`,
		ownerID, from.Format(dateLayout), to.Format(dateLayout))
	if err != nil {
		return summary, fmt.Errorf("month summary: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var direction, categoryID string
		var cents int64
		if err := rows.Scan(&direction, &categoryID, &cents); err != nil {
			return summary, fmt.Errorf("scan summary row: %w", err)
		}
		switch core.Direction(direction) {
		case core.Incoming:
			summary.Income.Cents += cents
		case core.Outgoing:
			summary.Expenses.Cents += cents
			if categoryID != "" {
				c := summary.ByCategory[categoryID]
				c.Cents += cents
				summary.ByCategory[categoryID] = c
			}
		}
	}
	if err := rows.Err(); err != nil {
		return summary, err
	}
	summary.Net = core.Money{Cents: summary.Income.Cents - summary.Expenses.Cents}
	return summary, nil
}
