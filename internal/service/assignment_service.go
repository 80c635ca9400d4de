package service

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/tugas-backend/internal/model"
	"github.com/stemsi/tugas-backend/internal/policy"
	"github.com/stemsi/tugas-backend/internal/repository"
)

// BlobReaper schedules deletion of blobs no submission references any more.
type BlobReaper interface {
	Enqueue(ctx context.Context, keys ...string) error
}

// AssignmentService is the lifecycle controller for assignments and grading.
type AssignmentService struct {
	store  repository.AssignmentStore
	roster repository.RosterProvider
	reaper BlobReaper
	log    zerolog.Logger
	now    func() time.Time
}

// NewAssignmentService creates a new AssignmentService. reaper may be nil.
func NewAssignmentService(
	store repository.AssignmentStore,
	roster repository.RosterProvider,
	reaper BlobReaper,
	log zerolog.Logger,
) *AssignmentService {
	return &AssignmentService{
		store:  store,
		roster: roster,
		reaper: reaper,
		log:    log.With().Str("component", "assignment_service").Logger(),
		now:    time.Now,
	}
}

// List returns assignments matching filter. Students only see their own submission.
func (s *AssignmentService) List(ctx context.Context, caller *model.Identity, filter model.AssignmentFilter) ([]model.Assignment, error) {
	if err := policy.Check(caller, policy.OpViewAssignment); err != nil {
		return nil, s.fail(err, "list_assignments", caller, uuid.Nil, "")
	}

	list, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, s.fail(err, "list_assignments", caller, uuid.Nil, "")
	}
	for i := range list {
		visibleTo(caller, &list[i])
	}
	return list, nil
}

// Get returns one assignment.
func (s *AssignmentService) Get(ctx context.Context, caller *model.Identity, id uuid.UUID) (*model.Assignment, error) {
	if err := policy.Check(caller, policy.OpViewAssignment); err != nil {
		return nil, s.fail(err, "get_assignment", caller, id, "")
	}

	a, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, s.fail(err, "get_assignment", caller, id, "")
	}
	visibleTo(caller, a)
	return a, nil
}

// Create validates in and stores a new pending assignment.
// StartDate defaults to the creation time.
func (s *AssignmentService) Create(ctx context.Context, caller *model.Identity, in model.AssignmentInput) (*model.Assignment, error) {
	if err := policy.Check(caller, policy.OpCreateAssignment); err != nil {
		return nil, s.fail(err, "create_assignment", caller, uuid.Nil, "")
	}

	a := &model.Assignment{StartDate: s.now().UTC()}
	in.Apply(a)
	if err := s.store.Create(ctx, a); err != nil {
		return nil, s.fail(err, "create_assignment", caller, uuid.Nil, "")
	}

	s.log.Info().
		Str("assignment_id", a.ID.String()).
		Str("user_id", caller.UserID).
		Str("class", a.Class).
		Str("section", a.Section).
		Msg("Assignment created")
	return a, nil
}

// Update replaces the editable fields of an assignment and re-validates it.
func (s *AssignmentService) Update(ctx context.Context, caller *model.Identity, id uuid.UUID, in model.AssignmentInput) (*model.Assignment, error) {
	if err := policy.Check(caller, policy.OpUpdateAssignment); err != nil {
		return nil, s.fail(err, "update_assignment", caller, id, "")
	}

	a, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, s.fail(err, "update_assignment", caller, id, "")
	}
	in.Apply(a)
	if err := model.CheckMarksCoverGrades(a.Marks, a.Submissions); err != nil {
		return nil, s.fail(err, "update_assignment", caller, id, "")
	}
	if err := s.store.Update(ctx, a); err != nil {
		return nil, s.fail(err, "update_assignment", caller, id, "")
	}

	s.log.Info().Str("assignment_id", id.String()).Str("user_id", caller.UserID).Msg("Assignment updated")
	return a, nil
}

// Delete removes an assignment with all of its submissions. The files of the
// submissions the store actually removed are handed to the reaper.
func (s *AssignmentService) Delete(ctx context.Context, caller *model.Identity, id uuid.UUID) error {
	if err := policy.Check(caller, policy.OpDeleteAssignment); err != nil {
		return s.fail(err, "delete_assignment", caller, id, "")
	}

	removed, err := s.store.Delete(ctx, id)
	if err != nil {
		return s.fail(err, "delete_assignment", caller, id, "")
	}

	keys := make([]string, 0, len(removed))
	for _, sub := range removed {
		if sub.File != "" {
			keys = append(keys, sub.File)
		}
	}
	s.reap(ctx, id, keys...)

	s.log.Info().
		Str("assignment_id", id.String()).
		Str("user_id", caller.UserID).
		Int("submissions", len(removed)).
		Msg("Assignment deleted")
	return nil
}

// GradeSubmission awards marks to a student's submission. Marks must lie in
// [0, assignment marks]; out-of-range values leave the submission unchanged.
func (s *AssignmentService) GradeSubmission(ctx context.Context, caller *model.Identity, id uuid.UUID, studentID string, awardedMarks int) (*model.Submission, error) {
	const op = "grade_submission"
	if err := policy.Check(caller, policy.OpGradeSubmission); err != nil {
		return nil, s.fail(err, op, caller, id, studentID)
	}

	a, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, s.fail(err, op, caller, id, studentID)
	}
	sub := a.FindSubmission(studentID)
	if sub == nil {
		return nil, s.fail(ErrNotFound, op, caller, id, studentID)
	}
	if awardedMarks < 0 || awardedMarks > a.Marks {
		return nil, s.fail(ErrInvalidGrade, op, caller, id, studentID)
	}

	gradedAt := s.now().UTC()
	if err := s.store.GradeSubmission(ctx, id, studentID, awardedMarks, gradedAt); err != nil {
		return nil, s.fail(err, op, caller, id, studentID)
	}

	graded := *sub
	graded.AwardedMarks = awardedMarks
	graded.Status = model.StatusGraded
	graded.GradedAt = &gradedAt

	s.log.Info().
		Str("assignment_id", id.String()).
		Str("student_id", studentID).
		Str("user_id", caller.UserID).
		Int("awarded_marks", awardedMarks).
		Msg("Submission graded")
	return &graded, nil
}

// SubmissionProgress summarises how much of the class/section roster has submitted.
func (s *AssignmentService) SubmissionProgress(ctx context.Context, caller *model.Identity, id uuid.UUID) (*model.SubmissionProgress, error) {
	const op = "submission_progress"
	if err := policy.Check(caller, policy.OpViewProgress); err != nil {
		return nil, s.fail(err, op, caller, id, "")
	}

	a, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, s.fail(err, op, caller, id, "")
	}
	total, err := s.roster.CountStudents(ctx, a.Class, a.Section)
	if err != nil {
		return nil, s.fail(err, op, caller, id, "")
	}

	p := &model.SubmissionProgress{
		AssignmentID:   a.ID,
		SubmittedCount: len(a.Submissions),
		TotalStudents:  total,
		SubmissionRate: SubmissionRate(len(a.Submissions), total),
	}
	for _, sub := range a.Submissions {
		if sub.Status == model.StatusGraded {
			p.GradedCount++
		}
	}
	return p, nil
}

// SubmissionRate is submitted/total as a percentage rounded to the nearest
// integer. An empty roster yields 0.
func SubmissionRate(submitted, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(submitted) / float64(total) * 100))
}

func (s *AssignmentService) reap(ctx context.Context, id uuid.UUID, keys ...string) {
	if s.reaper == nil || len(keys) == 0 {
		return
	}
	if err := s.reaper.Enqueue(context.WithoutCancel(ctx), keys...); err != nil {
		s.log.Error().Err(err).Str("assignment_id", id.String()).Strs("keys", keys).Msg("Failed to enqueue blob cleanup")
	}
}

// fail logs err with the audit identifiers and returns it unchanged.
func (s *AssignmentService) fail(err error, op string, caller *model.Identity, id uuid.UUID, studentID string) error {
	auditEvent(s.log, err, op, caller, id, studentID).Msg("Assignment operation failed")
	return err
}

// visibleTo strips other students' submissions when caller is a student.
func visibleTo(caller *model.Identity, a *model.Assignment) {
	if caller == nil || caller.Role != model.RoleStudent {
		return
	}
	own := make([]model.Submission, 0, 1)
	if sub := a.FindSubmission(caller.UserID); sub != nil {
		own = append(own, *sub)
	}
	a.Submissions = own
}

// auditEvent picks the level from the error kind: caller mistakes are warnings,
// everything else is an error.
func auditEvent(log zerolog.Logger, err error, op string, caller *model.Identity, id uuid.UUID, studentID string) *zerolog.Event {
	ev := log.Error()
	var ve *model.ValidationError
	switch {
	case errors.As(err, &ve),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrForbidden),
		errors.Is(err, ErrUnauthenticated),
		errors.Is(err, ErrInvalidFileType),
		errors.Is(err, ErrFileTooLarge),
		errors.Is(err, ErrDeadlinePassed),
		errors.Is(err, ErrInvalidGrade):
		ev = log.Warn()
	}

	ev = ev.Err(err).Str("op", op)
	if id != uuid.Nil {
		ev = ev.Str("assignment_id", id.String())
	}
	if studentID != "" {
		ev = ev.Str("student_id", studentID)
	}
	if caller != nil {
		ev = ev.Str("user_id", caller.UserID).Str("role", string(caller.Role))
	}
	return ev
}
