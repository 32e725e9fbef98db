package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const maxProjectNameLen = 100

// ExpenseProject is the aggregate root and consistency boundary: all member
// and record mutations go through it so the membership invariants hold.
type ExpenseProject struct {
	// ID is assigned by the storage gateway on first insert (UUID format).
	ID string

	// Name is the project display name; required, at most 100 characters.
	Name string

	// Description is optional free text.
	Description string

	// CreateUserID is the owner. Only the owner may mutate the project;
	// the surrounding layer verifies the operator before invoking the core.
	CreateUserID string

	// Locked freezes the project against further edits.
	Locked bool

	// Version is the optimistic-concurrency version, incremented exactly
	// once per successful persisted update.
	Version int64

	// CreatedAt is the Unix timestamp when the project was first persisted.
	CreatedAt int64

	members []Member
	records []*ExpenseRecord
	changes ChangeSet
}

// NewExpenseProject creates a brand-new project owned by createUserID.
func NewExpenseProject(name, description, createUserID string) (*ExpenseProject, error) {
	if err := validateProjectName(name); err != nil {
		return nil, err
	}
	if createUserID == "" {
		return nil, &ValidationError{Field: "createUserId", Reason: "must not be empty"}
	}
	return &ExpenseProject{
		Name:         name,
		Description:  description,
		CreateUserID: createUserID,
		changes: ChangeSet{
			Intent:       IntentNew,
			MembersDirty: true,
			RecordsDirty: true,
		},
	}, nil
}

// ProjectSnapshot is the flat representation the storage gateway uses to
// rebuild an aggregate from its rows.
type ProjectSnapshot struct {
	ID           string
	Name         string
	Description  string
	CreateUserID string
	Locked       bool
	Version      int64
	CreatedAt    int64
	Members      []Member
	Records      []*ExpenseRecord
}

// RestoreProject rebuilds a persisted aggregate. The result has intent
// IntentUnchanged and no dirty collections.
func RestoreProject(s ProjectSnapshot) *ExpenseProject {
	p := &ExpenseProject{
		ID:           s.ID,
		Name:         s.Name,
		Description:  s.Description,
		CreateUserID: s.CreateUserID,
		Locked:       s.Locked,
		Version:      s.Version,
		CreatedAt:    s.CreatedAt,
		changes:      ChangeSet{Intent: IntentUnchanged},
	}
	p.members = append(p.members, s.Members...)
	for _, r := range s.Records {
		cloned := r.Clone()
		p.records = append(p.records, &cloned)
	}
	return p
}

// Changes returns the pending persistence diff.
func (p *ExpenseProject) Changes() ChangeSet {
	return p.changes
}

// ResetChanges is called by the storage gateway after a successful save.
func (p *ExpenseProject) ResetChanges() {
	p.changes = ChangeSet{Intent: IntentUnchanged}
}

// Rename updates the project name and description.
func (p *ExpenseProject) Rename(name, description string) error {
	if p.Locked {
		return fmt.Errorf("%w: %s", ErrProjectLocked, p.ID)
	}
	if err := validateProjectName(name); err != nil {
		return err
	}
	p.Name = name
	p.Description = description
	p.touch()
	return nil
}

// SetLocked freezes or unfreezes the project.
func (p *ExpenseProject) SetLocked(locked bool) {
	if p.Locked == locked {
		return
	}
	p.Locked = locked
	p.touch()
}

// AddMember appends a member. Weight must be at least 1; use 1 for a plain
// equal share. Fails with ErrDuplicateMember on an exact name match.
func (p *ExpenseProject) AddMember(name string, weight int64) error {
	if p.Locked {
		return fmt.Errorf("%w: %s", ErrProjectLocked, p.ID)
	}
	if name == "" {
		return &ValidationError{Field: "member", Reason: "name must not be empty"}
	}
	if weight < 1 {
		return &ValidationError{Field: "weight", Reason: "must be at least 1"}
	}
	if p.HasMember(name) {
		return fmt.Errorf("%w: %s", ErrDuplicateMember, name)
	}
	p.members = append(p.members, Member{Name: name, Weight: weight})
	p.markMembersDirty()
	return nil
}

// HasMember reports whether name is a current member (case-sensitive).
func (p *ExpenseProject) HasMember(name string) bool {
	for _, m := range p.members {
		if m.Name == name {
			return true
		}
	}
	return false
}

// AddExpenseRecord validates and appends a record. The payer and every
// consumer must be current members.
func (p *ExpenseProject) AddExpenseRecord(rec *ExpenseRecord) error {
	if p.Locked {
		return fmt.Errorf("%w: %s", ErrProjectLocked, p.ID)
	}
	if err := p.validateRecord(rec); err != nil {
		return err
	}
	p.records = append(p.records, rec)
	p.markRecordsDirty()
	return nil
}

// UpdateExpenseRecord replaces the record with the same id in place,
// re-validating membership. Fails with ErrRecordNotFound if the id is not
// part of the project.
func (p *ExpenseProject) UpdateExpenseRecord(rec *ExpenseRecord) error {
	if p.Locked {
		return fmt.Errorf("%w: %s", ErrProjectLocked, p.ID)
	}
	if rec.ID == "" {
		return &ValidationError{Field: "recordId", Reason: "must not be empty"}
	}
	idx := p.recordIndex(rec.ID)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrRecordNotFound, rec.ID)
	}
	if err := p.validateRecord(rec); err != nil {
		return err
	}
	rec.CreatedAt = p.records[idx].CreatedAt
	p.records[idx] = rec
	p.markRecordsDirty()
	return nil
}

// RemoveRecord removes the record with the given id. An explicit remove of
// an unknown id fails with ErrRecordNotFound.
func (p *ExpenseProject) RemoveRecord(recordID string) error {
	if p.Locked {
		return fmt.Errorf("%w: %s", ErrProjectLocked, p.ID)
	}
	idx := p.recordIndex(recordID)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrRecordNotFound, recordID)
	}
	p.records = append(p.records[:idx], p.records[idx+1:]...)
	p.markRecordsDirty()
	return nil
}

// Members returns a read-only snapshot of the member list.
func (p *ExpenseProject) Members() []Member {
	return append([]Member(nil), p.members...)
}

// Records returns deep copies of the expense records in insertion order.
func (p *ExpenseProject) Records() []ExpenseRecord {
	out := make([]ExpenseRecord, 0, len(p.records))
	for _, r := range p.records {
		out = append(out, r.Clone())
	}
	return out
}

// TotalMembers returns the member count.
func (p *ExpenseProject) TotalMembers() int {
	return len(p.members)
}

// TotalExpense returns the sum of all record amounts, recomputed on demand.
func (p *ExpenseProject) TotalExpense() decimal.Decimal {
	total := decimal.Zero
	for _, r := range p.records {
		total = total.Add(r.Amount)
	}
	return total
}

func (p *ExpenseProject) validateRecord(rec *ExpenseRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	if !p.HasMember(rec.Payer) {
		return fmt.Errorf("%w: payer %s", ErrMemberNotInProject, rec.Payer)
	}
	for _, c := range rec.Consumers {
		if !p.HasMember(c) {
			return fmt.Errorf("%w: consumer %s", ErrMemberNotInProject, c)
		}
	}
	return nil
}

func (p *ExpenseProject) recordIndex(recordID string) int {
	for i, r := range p.records {
		if r.ID == recordID {
			return i
		}
	}
	return -1
}

// AssignIdentity is used by the storage gateway to stamp generated ids and
// creation timestamps onto the aggregate and any records that lack them.
func (p *ExpenseProject) AssignIdentity(id string, now int64, newRecordID func() string) {
	if p.ID == "" {
		p.ID = id
	}
	if p.CreatedAt == 0 {
		p.CreatedAt = now
	}
	for _, r := range p.records {
		r.ProjectID = p.ID
		if r.ID == "" {
			r.ID = newRecordID()
		}
		if r.CreatedAt == 0 {
			r.CreatedAt = now
		}
	}
}

// touch flips a persisted aggregate to IntentUpdated. A brand-new aggregate
// stays IntentNew until its first save.
func (p *ExpenseProject) touch() {
	if p.changes.Intent != IntentNew {
		p.changes.Intent = IntentUpdated
	}
}

func (p *ExpenseProject) markMembersDirty() {
	p.changes.MembersDirty = true
	p.touch()
}

func (p *ExpenseProject) markRecordsDirty() {
	p.changes.RecordsDirty = true
	p.touch()
}

func validateProjectName(name string) error {
	if name == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if len([]rune(name)) > maxProjectNameLen {
		return &ValidationError{Field: "name", Reason: "must be at most 100 characters"}
	}
	return nil
}
