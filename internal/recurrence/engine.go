package recurrence

import (
	"fmt"

	"financebro/internal/core"

	"github.com/google/uuid"
)

// Skip is a per-template diagnostic for templates the engine could not
// process. Skips never abort the batch; the caller decides how to log them.
type Skip struct {
	TemplateID string
	Reason     error
}

// Result is the outcome of one generation run. Generated holds new concrete
// transactions; Updated holds the templates whose LastGenerated advanced.
// The engine performs no persistence: the caller stores both slices.
type Result struct {
	Generated []core.Transaction
	Updated   []core.Transaction
	Skipped   []Skip
}

// GenerateDue scans templates and spawns a concrete transaction for each one
// whose next occurrence is on or before now.
//
// Per template, the base date is LastGenerated when set, otherwise the
// template's anchor date. The next occurrence is exactly one calendar unit
// after the base (see the Advancer strategies for clamp policy). A template
// is due iff that occurrence is not after now.
//
// At most ONE instance is generated per template per call, even when several
// periods have elapsed: the engine advances only to the immediate next
// occurrence, it does not catch up missed periods. Callers that want to drain
// a backlog invoke the engine repeatedly; once a template's next occurrence
// moves past now, further calls at the same now generate nothing, which makes
// repeated invocation idempotent.
//
// Malformed templates (not flagged as template, missing or unknown frequency,
// zero anchor date) are reported in Result.Skipped and do not stop the batch.
func GenerateDue(templates []core.Transaction, clock Clock) Result {
	var res Result
	now := clock.Now()

	for _, tpl := range templates {
		if !tpl.IsTemplate {
			res.Skipped = append(res.Skipped, Skip{TemplateID: tpl.ID, Reason: core.ErrNotTemplate})
			continue
		}

		base := tpl.LastGenerated
		if base.IsZero() {
			base = tpl.Date
		}
		if base.IsZero() {
			res.Skipped = append(res.Skipped, Skip{
				TemplateID: tpl.ID,
				Reason:     fmt.Errorf("missing anchor date: %w", core.ErrInvalidDate),
			})
			continue
		}

		adv, err := advancerFor(tpl.Frequency)
		if err != nil {
			res.Skipped = append(res.Skipped, Skip{TemplateID: tpl.ID, Reason: err})
			continue
		}

		next := adv.Next(base)
		if next.After(now) {
			continue // not due, template unchanged
		}

		res.Generated = append(res.Generated, instantiate(tpl, next))
		tpl.LastGenerated = next
		res.Updated = append(res.Updated, tpl)
	}

	return res
}

// instantiate copies the template's payload into a concrete transaction
// dated at the computed occurrence.
func instantiate(tpl core.Transaction, occurrence core.Date) core.Transaction {
	return core.Transaction{
		ID:               uuid.NewString(),
		OwnerID:          tpl.OwnerID,
		Amount:           tpl.Amount,
		Direction:        tpl.Direction,
		CategoryID:       tpl.CategoryID,
		Description:      tpl.Description,
		Date:             occurrence,
		IsTemplate:       false,
		ParentTemplateID: tpl.ID,
	}
}
