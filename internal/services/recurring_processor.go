package services

import (
	"context"
	"fmt"
	"log/slog"

	"financebro/internal/amqp"
	"financebro/internal/recurrence"
	"financebro/internal/storage"
)

// RecurringProcessor runs the recurrence engine over stored templates and
// persists the outcome. It is invoked opportunistically when an owner lists
// their transactions and periodically by the recurring worker.
type RecurringProcessor struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
	clock      recurrence.Clock
}

func NewRecurringProcessor(storage *storage.SQLiteRepository, amqpClient *amqp.Client, clock recurrence.Clock) *RecurringProcessor {
	if clock == nil {
		clock = recurrence.SystemClock{}
	}
	return &RecurringProcessor{
		storage:    storage,
		amqpClient: amqpClient,
		clock:      clock,
	}
}

// ProcessOwner generates due transactions for one owner's templates and
// returns how many instances were stored. Skipped templates are logged and
// never abort the run.
func (p *RecurringProcessor) ProcessOwner(ctx context.Context, ownerID string) (int, error) {
	if p.storage == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	templates, err := p.storage.ListTemplates(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("load templates: %w", err)
	}
	if len(templates) == 0 {
		return 0, nil
	}

	res := recurrence.GenerateDue(templates, p.clock)

	for _, skip := range res.Skipped {
		slog.WarnContext(ctx, "Skipped malformed template",
			"template_id", skip.TemplateID,
			"owner_id", ownerID,
			"reason", skip.Reason)
	}

	if len(res.Generated) == 0 {
		return 0, nil
	}

	stored, err := p.storage.SaveGenerated(ctx, res.Generated, res.Updated)
	if err != nil {
		return 0, fmt.Errorf("persist generated transactions: %w", err)
	}

	for _, t := range res.Generated {
		p.announce(ctx, t.ID, t.OwnerID)
	}

	slog.InfoContext(ctx, "Recurring generation complete",
		"owner_id", ownerID,
		"templates", len(templates),
		"generated", len(res.Generated),
		"stored", stored,
		"skipped", len(res.Skipped))

	return stored, nil
}

// ProcessAll runs generation for every owner with active templates.
// Per-owner failures are logged and do not stop the sweep.
func (p *RecurringProcessor) ProcessAll(ctx context.Context) (int, error) {
	owners, err := p.storage.ListTemplateOwners(ctx)
	if err != nil {
		return 0, fmt.Errorf("list template owners: %w", err)
	}

	total := 0
	for _, owner := range owners {
		n, err := p.ProcessOwner(ctx, owner)
		if err != nil {
			slog.ErrorContext(ctx, "Recurring generation failed for owner",
				"owner_id", owner,
				"error", err)
			continue
		}
		total += n
	}
	return total, nil
}

func (p *RecurringProcessor) announce(ctx context.Context, id, ownerID string) {
	if p.amqpClient == nil {
		return
	}
	if err := p.amqpClient.PublishEvent(ctx, amqp.NewSyncEvent(id, ownerID)); err != nil {
		slog.ErrorContext(ctx, "Failed to announce generated transaction",
			"id", id, "error", err)
	}
}
