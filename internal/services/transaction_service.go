package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"financebro/internal/amqp"
	"financebro/internal/core"
	"financebro/internal/storage"

	"github.com/google/uuid"
)

// TransactionService orchestrates transaction operations across SQLite and
// the export queue. Writes land locally first; export events are published
// best-effort so a broker outage never fails a request.
type TransactionService struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
}

func NewTransactionService(storage *storage.SQLiteRepository, amqpClient *amqp.Client) *TransactionService {
	return &TransactionService{
		storage:    storage,
		amqpClient: amqpClient,
	}
}

// Create validates and stores a transaction for the owner, then announces it
// on the export queue.
func (s *TransactionService) Create(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	if err := s.storage.CreateTransaction(ctx, t); err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	if !t.IsTemplate {
		s.publish(ctx, amqp.NewSyncEvent(t.ID, t.OwnerID))
	}
	return t, nil
}

// Delete soft-deletes the owner's transaction and announces the removal.
// Missing rows and rows owned by someone else both come back as
// core.ErrNotFound from storage, which handlers render identically.
func (s *TransactionService) Delete(ctx context.Context, ownerID, id string) error {
	if err := s.storage.SoftDeleteTransaction(ctx, ownerID, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	s.publish(ctx, amqp.NewDeleteEvent(id, ownerID))
	return nil
}

// List returns the owner's concrete transactions for a month.
func (s *TransactionService) List(ctx context.Context, ownerID string, year, month int) ([]core.Transaction, error) {
	return s.storage.ListTransactions(ctx, ownerID, year, month)
}

// ListTemplates returns the owner's recurring templates.
func (s *TransactionService) ListTemplates(ctx context.Context, ownerID string) ([]core.Transaction, error) {
	return s.storage.ListTemplates(ctx, ownerID)
}

func (s *TransactionService) publish(ctx context.Context, event *amqp.TransactionEvent) {
	if s.amqpClient == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping event", "kind", event.Kind)
		return
	}
	if err := s.amqpClient.PublishEvent(ctx, event); err != nil {
		// Export is eventually consistent; the worker's startup check
		// picks up anything that was never announced.
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			"kind", event.Kind,
			"id", event.ID,
			"error", err)
	}
}

// Close closes storage and the AMQP connection.
func (s *TransactionService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close transaction service: %v", errs)
	}
	return nil
}
