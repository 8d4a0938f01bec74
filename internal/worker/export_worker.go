package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"financebro/internal/amqp"
	"financebro/internal/core"
	"financebro/internal/sheets"
	"financebro/internal/storage"
)

// ExportWorker mirrors concrete transactions into the spreadsheet backup.
// It consumes transaction events from AMQP, fetches the full record from
// storage, and appends or removes the corresponding sheet row.
type ExportWorker struct {
	storage   *storage.SQLiteRepository
	exporter  sheets.TransactionExporter
	remover   sheets.TransactionRemover
	batchSize int
}

func NewExportWorker(storage *storage.SQLiteRepository, exporter sheets.TransactionExporter, remover sheets.TransactionRemover, batchSize int) *ExportWorker {
	return &ExportWorker{
		storage:   storage,
		exporter:  exporter,
		remover:   remover,
		batchSize: batchSize,
	}
}

// HandleEvent processes a single transaction event from AMQP.
func (w *ExportWorker) HandleEvent(ctx context.Context, event *amqp.TransactionEvent) error {
	switch event.Kind {
	case amqp.KindTransactionSync:
		return w.handleSync(ctx, event.ID)
	case amqp.KindTransactionDelete:
		return w.handleDelete(ctx, event.ID)
	default:
		// Unknown kinds are dropped, not requeued.
		slog.WarnContext(ctx, "Unknown event kind, dropping", "kind", event.Kind, "id", event.ID)
		return nil
	}
}

func (w *ExportWorker) handleSync(ctx context.Context, id string) error {
	t, err := w.storage.GetTransaction(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		// Deleted before the event was consumed; nothing to export.
		slog.WarnContext(ctx, "Transaction gone before export, skipping", "id", id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}

	ref, err := w.exporter.Export(ctx, t)
	if err != nil {
		return fmt.Errorf("export transaction: %w", err)
	}
	if err := w.storage.MarkSynced(ctx, id); err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}

	slog.InfoContext(ctx, "Transaction exported", "id", id, "ref", ref)
	return nil
}

func (w *ExportWorker) handleDelete(ctx context.Context, id string) error {
	if w.remover == nil {
		slog.WarnContext(ctx, "No remover configured, skipping sheet delete", "id", id)
		return nil
	}
	if err := w.remover.Remove(ctx, id); err != nil {
		return fmt.Errorf("remove exported transaction: %w", err)
	}
	slog.InfoContext(ctx, "Exported transaction removed", "id", id)
	return nil
}

// StartupSyncCheck exports transactions whose announce events were lost
// (broker down at write time). Runs once at worker startup.
func (w *ExportWorker) StartupSyncCheck(ctx context.Context) error {
	pending, err := w.storage.ListUnsynced(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list unsynced: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Found unsynced transactions at startup", "count", len(pending))

	for _, t := range pending {
		if err := w.handleSync(ctx, t.ID); err != nil {
			slog.ErrorContext(ctx, "Startup export failed",
				"id", t.ID,
				"error", err)
			// Keep going; the row stays unsynced for the next pass.
		}
	}
	return nil
}
