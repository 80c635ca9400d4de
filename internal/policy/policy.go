// Package policy is the Authorization Gate: the single declaration of which
// role may perform which assignment operation.
package policy

import (
	"errors"

	"github.com/stemsi/tugas-backend/internal/model"
)

var (
	// ErrUnauthenticated means no verified identity accompanied the request.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden means the caller's role may not perform the operation.
	ErrForbidden = errors.New("forbidden")
)

// Operation names an action guarded by the gate.
type Operation string

const (
	OpViewAssignment     Operation = "assignment:view"
	OpCreateAssignment   Operation = "assignment:create"
	OpUpdateAssignment   Operation = "assignment:update"
	OpDeleteAssignment   Operation = "assignment:delete"
	OpSubmitFile         Operation = "submission:submit"
	OpGradeSubmission    Operation = "submission:grade"
	OpViewProgress       Operation = "submission:progress"
	OpDownloadSubmission Operation = "submission:download"
)

// Decision is the outcome of Authorize.
type Decision bool

const (
	Allow Decision = true
	Deny  Decision = false
)

// table is the role/operation policy. Anything absent is denied.
// Download is further restricted to the owner for students by the caller.
var table = map[Operation]map[model.Role]bool{
	OpViewAssignment:     {model.RoleAdmin: true, model.RoleTeacher: true, model.RoleStudent: true},
	OpCreateAssignment:   {model.RoleAdmin: true, model.RoleTeacher: true},
	OpUpdateAssignment:   {model.RoleAdmin: true, model.RoleTeacher: true},
	OpDeleteAssignment:   {model.RoleAdmin: true, model.RoleTeacher: true},
	OpSubmitFile:         {model.RoleStudent: true},
	OpGradeSubmission:    {model.RoleAdmin: true, model.RoleTeacher: true},
	OpViewProgress:       {model.RoleAdmin: true, model.RoleTeacher: true},
	OpDownloadSubmission: {model.RoleAdmin: true, model.RoleTeacher: true, model.RoleStudent: true},
}

// Authorize evaluates the policy table for role and op.
func Authorize(role model.Role, op Operation) Decision {
	return Decision(table[op][role])
}

// Check verifies that a caller is present and permitted to perform op.
// Identity is checked before role.
func Check(caller *model.Identity, op Operation) error {
	if caller == nil || caller.UserID == "" {
		return ErrUnauthenticated
	}
	if Authorize(caller.Role, op) == Deny {
		return ErrForbidden
	}
	return nil
}

// Operations lists every guarded operation, for documentation endpoints and tests.
func Operations() []Operation {
	return []Operation{
		OpViewAssignment,
		OpCreateAssignment,
		OpUpdateAssignment,
		OpDeleteAssignment,
		OpSubmitFile,
		OpGradeSubmission,
		OpViewProgress,
		OpDownloadSubmission,
	}
}
