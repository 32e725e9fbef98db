package models

import (
	"github.com/shopspring/decimal"

	"github.com/tallyup/tallyup/pkg/money"
)

// ExpenseRecord is one expense inside a project: the payer covered Amount
// and the consumers share it.
type ExpenseRecord struct {
	// ID is assigned by the storage gateway on first insert (UUID format).
	ID string

	// ProjectID is the owning project.
	ProjectID string

	// Payer is the member name who paid the full amount.
	Payer string

	// Amount is the expense amount: positive, at most 2 decimal places.
	Amount decimal.Decimal

	// Date is the Unix timestamp of the spend date (not the creation date).
	Date int64

	// ExpenseType is an optional free-text category (e.g. "food", "hotel").
	ExpenseType string

	// Remark is optional free text.
	Remark string

	// Consumers are the member names sharing this expense. Non-empty,
	// no duplicates.
	Consumers []string

	// Version is the per-record optimistic version.
	Version int64

	// CreatedAt is the Unix timestamp when the record was first persisted.
	CreatedAt int64
}

// Validate checks the record's own fields (not project membership).
func (r *ExpenseRecord) Validate() error {
	if r.Payer == "" {
		return &ValidationError{Field: "payer", Reason: "must not be empty"}
	}
	if err := money.Validate(r.Amount); err != nil {
		return &ValidationError{Field: "amount", Reason: err.Error()}
	}
	if len(r.Consumers) == 0 {
		return &ValidationError{Field: "consumers", Reason: "must not be empty"}
	}
	seen := make(map[string]struct{}, len(r.Consumers))
	for _, c := range r.Consumers {
		if c == "" {
			return &ValidationError{Field: "consumers", Reason: "must not contain empty names"}
		}
		if _, dup := seen[c]; dup {
			return &ValidationError{Field: "consumers", Reason: "duplicate consumer " + c}
		}
		seen[c] = struct{}{}
	}
	return nil
}

// Clone returns a deep copy so callers holding a snapshot cannot mutate the
// aggregate's internal state.
func (r *ExpenseRecord) Clone() ExpenseRecord {
	out := *r
	out.Consumers = append([]string(nil), r.Consumers...)
	return out
}
