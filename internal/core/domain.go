package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

const (
	Incoming Direction = "incoming"
	Outgoing Direction = "outgoing"
)

type (
	// Frequency is the recurrence cadence of a transaction template.
	Frequency string

	// Direction marks a transaction as income or expense.
	Direction string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Transaction is both a concrete ledger entry and, when IsTemplate is
	// set, a recurring template. For templates Date is the anchor date the
	// recurrence is computed from; LastGenerated is zero until the first
	// instance has been spawned.
	Transaction struct {
		ID               string
		OwnerID          string
		Amount           Money
		Direction        Direction
		CategoryID       string // optional
		Description      string
		Date             Date
		IsTemplate       bool
		Frequency        Frequency // templates only
		LastGenerated    Date      // templates only
		ParentTemplateID string    // instances spawned from a template
		CreatedAt        time.Time
	}

	SavingsGoal struct {
		ID      string
		OwnerID string
		Name    string
		Target  Money
		// Current is a cached derivation of the goal's deposits, never a
		// source of truth. See ledger.Reconcile.
		Current   Money
		CreatedAt time.Time
	}

	SavingsDeposit struct {
		ID        string
		OwnerID   string
		GoalID    string
		Amount    Money
		Date      Date
		CreatedAt time.Time
	}

	Category struct {
		ID      string
		OwnerID string
		Name    string
	}

	// Budget is a per-category monthly spending cap.
	Budget struct {
		ID         string
		OwnerID    string
		CategoryID string
		Limit      Money
	}

	User struct {
		ID           string
		Email        string
		PasswordHash string
		CreatedAt    time.Time
	}

	// MonthSummary aggregates one owner's month for the dashboard.
	MonthSummary struct {
		Year       int
		Month      int
		Income     Money
		Expenses   Money
		Net        Money
		ByCategory map[string]Money
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidFrequency = errors.New("invalid frequency")
	ErrInvalidDirection = errors.New("invalid direction")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyName        = errors.New("empty name")
	ErrTooLong          = errors.New("value too long")
	ErrMissingReference = errors.New("missing reference")
	ErrNotTemplate      = errors.New("transaction is not a recurring template")

	// ErrNotFound covers missing entities. ErrNotOwner is kept distinct so
	// callers can log ownership violations, but handlers must render both
	// identically to avoid leaking other users' data.
	ErrNotFound = errors.New("not found")
	ErrNotOwner = errors.New("not owned by caller")
)

// NewDate creates a Date at midnight UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Day returns the day of the month.
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month as an int.
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year.
func (d Date) Year() int {
	return d.Time.Year()
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (f Frequency) Validate() error {
	switch f {
	case Weekly, Monthly, Yearly:
		return nil
	default:
		return ErrInvalidFrequency
	}
}

func (d Direction) Validate() error {
	switch d {
	case Incoming, Outgoing:
		return nil
	default:
		return ErrInvalidDirection
	}
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if err := t.Direction.Validate(); err != nil {
		return err
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if len(t.Description) > 200 {
		return fmt.Errorf("%w: description exceeds 200 characters", ErrTooLong)
	}
	if t.IsTemplate {
		if err := t.Frequency.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (g SavingsGoal) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return ErrEmptyName
	}
	if len(g.Name) > 100 {
		return fmt.Errorf("%w: name exceeds 100 characters", ErrTooLong)
	}
	if err := g.Target.Validate(); err != nil {
		return err
	}
	if g.Current.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (d SavingsDeposit) Validate() error {
	if err := d.Amount.Validate(); err != nil {
		return err
	}
	if err := d.Date.Validate(); err != nil {
		return err
	}
	if d.GoalID == "" {
		return fmt.Errorf("%w: deposit has no goal", ErrMissingReference)
	}
	return nil
}

func (b Budget) Validate() error {
	if b.CategoryID == "" {
		return fmt.Errorf("%w: budget has no category", ErrMissingReference)
	}
	return b.Limit.Validate()
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if len(c.Name) > 100 {
		return fmt.Errorf("%w: name exceeds 100 characters", ErrTooLong)
	}
	return nil
}
