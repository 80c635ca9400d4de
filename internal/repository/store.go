package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/tugas-backend/internal/model"
)

// ErrNotFound is returned when an assignment or submission does not exist.
var ErrNotFound = errors.New("not found")

// AssignmentStore persists assignments and their embedded submissions.
// It is the single source of truth; implementations must not cache.
type AssignmentStore interface {
	// Create validates a and inserts it with pending status and no submissions.
	Create(ctx context.Context, a *model.Assignment) error
	Get(ctx context.Context, id uuid.UUID) (*model.Assignment, error)
	List(ctx context.Context, filter model.AssignmentFilter) ([]model.Assignment, error)
	// Update replaces the editable fields of an existing assignment after validation.
	Update(ctx context.Context, a *model.Assignment) error
	// Delete removes the assignment together with its submissions and returns
	// the submissions that were removed.
	Delete(ctx context.Context, id uuid.UUID) ([]model.Submission, error)
	// AddOrReplaceSubmission upserts the submission keyed by student and marks
	// the assignment submitted. The replaced submission, if any, is returned.
	AddOrReplaceSubmission(ctx context.Context, assignmentID uuid.UUID, sub model.Submission) (*model.Submission, error)
	// GradeSubmission records awarded marks and flips the submission to graded.
	GradeSubmission(ctx context.Context, assignmentID uuid.UUID, studentID string, awardedMarks int, gradedAt time.Time) error
}

// RosterProvider supplies enrolment counts for a class/section.
type RosterProvider interface {
	CountStudents(ctx context.Context, class, section string) (int, error)
}
