package models

import "fmt"

// Domain error kinds. Callers discriminate with errors.Is; the concrete
// message carries the offending member or record.
var (
	// ErrDuplicateMember is returned when adding a member name that is
	// already present in the project.
	ErrDuplicateMember = fmt.Errorf("member already exists in project")

	// ErrMemberNotInProject is returned when a record's payer or consumer
	// is not a current project member.
	ErrMemberNotInProject = fmt.Errorf("member not in project")

	// ErrRecordNotFound is returned when updating or removing a record id
	// that does not exist in the project.
	ErrRecordNotFound = fmt.Errorf("expense record not found")

	// ErrProjectLocked is returned by mutating operations while the
	// project is locked.
	ErrProjectLocked = fmt.Errorf("project is locked")
)

// ValidationError reports a malformed field on a command. It is detected
// before any mutation is applied.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
