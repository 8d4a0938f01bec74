package recurrence

import (
	"errors"
	"testing"
	"time"

	"financebro/internal/core"
)

func template(id string, freq core.Frequency, anchor, lastGenerated core.Date) core.Transaction {
	return core.Transaction{
		ID:            id,
		OwnerID:       "user-1",
		Amount:        core.Money{Cents: 999},
		Direction:     core.Outgoing,
		Description:   "netflix",
		Date:          anchor,
		IsTemplate:    true,
		Frequency:     freq,
		LastGenerated: lastGenerated,
	}
}

func fixedNow(year, month, day int) Clock {
	return FixedClock{Instant: time.Date(year, time.Month(month), day, 12, 0, 0, 0, time.UTC)}
}

func TestGenerateDue_NotYetDue(t *testing.T) {
	tpl := template("tpl-1", core.Monthly, core.NewDate(2025, 3, 15), core.Date{})

	res := GenerateDue([]core.Transaction{tpl}, fixedNow(2025, 4, 10))

	if len(res.Generated) != 0 || len(res.Updated) != 0 || len(res.Skipped) != 0 {
		t.Fatalf("expected empty result before the occurrence, got %+v", res)
	}
}

func TestGenerateDue_WeeklyBoundary(t *testing.T) {
	tpl := template("tpl-1", core.Weekly, core.NewDate(2025, 3, 1), core.Date{})

	res := GenerateDue([]core.Transaction{tpl}, fixedNow(2025, 3, 7))
	if len(res.Generated) != 0 {
		t.Fatalf("six days after the anchor: got %d generated, want 0", len(res.Generated))
	}

	res = GenerateDue([]core.Transaction{tpl}, fixedNow(2025, 3, 8))
	if len(res.Generated) != 1 {
		t.Fatalf("seven days after the anchor: got %d generated, want 1", len(res.Generated))
	}
	if !res.Generated[0].Date.Equal(core.NewDate(2025, 3, 8).Time) {
		t.Errorf("instance dated %v, want 2025-03-08", res.Generated[0].Date.Time)
	}
	if !res.Updated[0].LastGenerated.Equal(core.NewDate(2025, 3, 8).Time) {
		t.Errorf("LastGenerated = %v, want 2025-03-08", res.Updated[0].LastGenerated.Time)
	}
}

func TestGenerateDue_DueOnExactDay(t *testing.T) {
	tpl := template("tpl-1", core.Monthly, core.NewDate(2025, 3, 15), core.Date{})

	res := GenerateDue([]core.Transaction{tpl}, fixedNow(2025, 4, 15))

	if len(res.Generated) != 1 {
		t.Fatalf("expected 1 generated, got %d", len(res.Generated))
	}
	gen := res.Generated[0]
	if !gen.Date.Equal(core.NewDate(2025, 4, 15).Time) {
		t.Errorf("instance dated %v, want 2025-04-15", gen.Date.Time)
	}
	if gen.IsTemplate {
		t.Error("generated instance still flagged as template")
	}
	if gen.ParentTemplateID != "tpl-1" {
		t.Errorf("ParentTemplateID = %q, want tpl-1", gen.ParentTemplateID)
	}
	if gen.ID == "" || gen.ID == "tpl-1" {
		t.Errorf("instance must have a fresh id, got %q", gen.ID)
	}
	if gen.Amount != tpl.Amount || gen.Direction != tpl.Direction || gen.Description != tpl.Description {
		t.Error("instance payload differs from template")
	}

	if len(res.Updated) != 1 {
		t.Fatalf("expected 1 updated template, got %d", len(res.Updated))
	}
	if !res.Updated[0].LastGenerated.Equal(core.NewDate(2025, 4, 15).Time) {
		t.Errorf("LastGenerated = %v, want 2025-04-15", res.Updated[0].LastGenerated.Time)
	}
}

// Several elapsed periods still produce exactly one instance per call. The
// backlog drains over repeated calls, one occurrence at a time.
func TestGenerateDue_SingleStepPerCall(t *testing.T) {
	tpl := template("tpl-1", core.Weekly, core.NewDate(2025, 3, 1), core.Date{})
	clock := fixedNow(2025, 3, 22) // three weeks later

	var dates []core.Date
	for i := 0; i < 5; i++ {
		res := GenerateDue([]core.Transaction{tpl}, clock)
		if len(res.Generated) > 1 {
			t.Fatalf("call %d generated %d instances, want at most 1", i, len(res.Generated))
		}
		if len(res.Generated) == 0 {
			break
		}
		dates = append(dates, res.Generated[0].Date)
		tpl = res.Updated[0]
	}

	want := []core.Date{
		core.NewDate(2025, 3, 8),
		core.NewDate(2025, 3, 15),
		core.NewDate(2025, 3, 22),
	}
	if len(dates) != len(want) {
		t.Fatalf("drained %d occurrences, want %d", len(dates), len(want))
	}
	for i := range want {
		if !dates[i].Equal(want[i].Time) {
			t.Errorf("occurrence %d = %v, want %v", i, dates[i].Time, want[i].Time)
		}
	}
}

// Once the backlog is drained, repeating the call at the same instant is a
// no-op.
func TestGenerateDue_Idempotent(t *testing.T) {
	tpl := template("tpl-1", core.Monthly, core.NewDate(2025, 1, 10), core.NewDate(2025, 4, 10))
	clock := fixedNow(2025, 4, 20)

	res := GenerateDue([]core.Transaction{tpl}, clock)
	if len(res.Generated) != 0 {
		t.Fatalf("expected nothing due, got %d generated", len(res.Generated))
	}

	res = GenerateDue([]core.Transaction{tpl}, clock)
	if len(res.Generated) != 0 || len(res.Updated) != 0 {
		t.Error("repeated call at the same instant must stay a no-op")
	}
}

func TestGenerateDue_BaseIsLastGeneratedWhenSet(t *testing.T) {
	// Anchor far in the past but the template is caught up to April; only
	// the May occurrence is due.
	tpl := template("tpl-1", core.Monthly, core.NewDate(2023, 1, 5), core.NewDate(2025, 4, 5))

	res := GenerateDue([]core.Transaction{tpl}, fixedNow(2025, 5, 7))

	if len(res.Generated) != 1 {
		t.Fatalf("expected 1 generated, got %d", len(res.Generated))
	}
	if !res.Generated[0].Date.Equal(core.NewDate(2025, 5, 5).Time) {
		t.Errorf("instance dated %v, want 2025-05-05", res.Generated[0].Date.Time)
	}
}

func TestGenerateDue_Skips(t *testing.T) {
	notTemplate := core.Transaction{ID: "tx-1", Date: core.NewDate(2025, 1, 1)}
	noAnchor := template("tpl-2", core.Weekly, core.Date{}, core.Date{})
	badFreq := template("tpl-3", "daily", core.NewDate(2025, 1, 1), core.Date{})
	good := template("tpl-4", core.Weekly, core.NewDate(2025, 1, 1), core.Date{})

	res := GenerateDue([]core.Transaction{notTemplate, noAnchor, badFreq, good}, fixedNow(2025, 2, 1))

	if len(res.Skipped) != 3 {
		t.Fatalf("expected 3 skips, got %d", len(res.Skipped))
	}
	reasons := map[string]error{}
	for _, s := range res.Skipped {
		reasons[s.TemplateID] = s.Reason
	}
	if !errors.Is(reasons["tx-1"], core.ErrNotTemplate) {
		t.Errorf("tx-1 skip reason = %v, want ErrNotTemplate", reasons["tx-1"])
	}
	if !errors.Is(reasons["tpl-2"], core.ErrInvalidDate) {
		t.Errorf("tpl-2 skip reason = %v, want ErrInvalidDate", reasons["tpl-2"])
	}
	if reasons["tpl-3"] == nil {
		t.Error("tpl-3 should be skipped for its unknown frequency")
	}

	// The healthy template still generates despite its broken neighbours.
	if len(res.Generated) != 1 || res.Generated[0].ParentTemplateID != "tpl-4" {
		t.Fatalf("expected 1 instance from tpl-4, got %+v", res.Generated)
	}
}

func TestGenerateDue_MonthlyClampFromJan31(t *testing.T) {
	tpl := template("tpl-1", core.Monthly, core.NewDate(2025, 1, 31), core.Date{})

	res := GenerateDue([]core.Transaction{tpl}, fixedNow(2025, 3, 1))

	if len(res.Generated) != 1 {
		t.Fatalf("expected 1 generated, got %d", len(res.Generated))
	}
	if !res.Generated[0].Date.Equal(core.NewDate(2025, 2, 28).Time) {
		t.Errorf("instance dated %v, want clamped 2025-02-28", res.Generated[0].Date.Time)
	}
}
