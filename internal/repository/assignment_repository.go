package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/tugas-backend/internal/model"
)

const assignmentColumns = `id, subject, title, description, marks, start_date, due_date,
	class, section, status, file, created_at, updated_at`

// AssignmentRepository is the PostgreSQL Assignment Store.
// Submissions live in assignment_submissions keyed by (assignment_id, student_id);
// their seq column preserves first-submission order across re-submissions.
type AssignmentRepository struct {
	pool *pgxpool.Pool
}

// NewAssignmentRepository creates a new AssignmentRepository.
func NewAssignmentRepository(pool *pgxpool.Pool) *AssignmentRepository {
	return &AssignmentRepository{pool: pool}
}

var _ AssignmentStore = (*AssignmentRepository)(nil)

// Create inserts a new assignment.
func (r *AssignmentRepository) Create(ctx context.Context, a *model.Assignment) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.Status = model.StatusPending
	a.Submissions = []model.Submission{}

	return r.pool.QueryRow(ctx,
		`INSERT INTO assignments (id, subject, title, description, marks, start_date, due_date,
		                          class, section, status, file)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING created_at, updated_at`,
		a.ID, a.Subject, a.Title, a.Description, a.Marks, a.StartDate, a.DueDate,
		a.Class, a.Section, a.Status, a.File,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
}

// Get retrieves an assignment with its submissions in submission order.
func (r *AssignmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Assignment, error) {
	a := &model.Assignment{}
	err := scanAssignment(r.pool.QueryRow(ctx,
		`SELECT `+assignmentColumns+` FROM assignments WHERE id = $1`, id), a)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	subs, err := r.listSubmissions(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	a.Submissions = subs[id]
	if a.Submissions == nil {
		a.Submissions = []model.Submission{}
	}
	return a, nil
}

// List returns assignments, optionally narrowed by class and section.
func (r *AssignmentRepository) List(ctx context.Context, filter model.AssignmentFilter) ([]model.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE 1=1`
	var args []interface{}
	if filter.Class != "" {
		args = append(args, filter.Class)
		query += fmt.Sprintf(` AND class = $%d`, len(args))
	}
	if filter.Section != "" {
		args = append(args, filter.Section)
		query += fmt.Sprintf(` AND section = $%d`, len(args))
	}
	query += ` ORDER BY seq`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assignments := []model.Assignment{}
	ids := []uuid.UUID{}
	for rows.Next() {
		var a model.Assignment
		if err := scanAssignment(rows, &a); err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
		ids = append(ids, a.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return assignments, nil
	}

	subs, err := r.listSubmissions(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range assignments {
		assignments[i].Submissions = subs[assignments[i].ID]
		if assignments[i].Submissions == nil {
			assignments[i].Submissions = []model.Submission{}
		}
	}
	return assignments, nil
}

// Update replaces the editable fields of an assignment. Marks may not drop
// below a mark already awarded; the check runs in the same statement so it
// cannot interleave with grading.
func (r *AssignmentRepository) Update(ctx context.Context, a *model.Assignment) error {
	if err := a.Validate(); err != nil {
		return err
	}
	err := r.pool.QueryRow(ctx,
		`UPDATE assignments
		 SET subject = $1, title = $2, description = $3, marks = $4, start_date = $5,
		     due_date = $6, class = $7, section = $8, file = $9, updated_at = NOW()
		 WHERE id = $10
		   AND NOT EXISTS (
		       SELECT 1 FROM assignment_submissions
		       WHERE assignment_id = $10 AND awarded_marks > $4)
		 RETURNING updated_at`,
		a.Subject, a.Title, a.Description, a.Marks, a.StartDate,
		a.DueDate, a.Class, a.Section, a.File, a.ID,
	).Scan(&a.UpdatedAt)
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	// No row updated: either the assignment is gone or a grade blocks the new marks.
	var maxAwarded *int
	err = r.pool.QueryRow(ctx,
		`SELECT (SELECT MAX(awarded_marks) FROM assignment_submissions WHERE assignment_id = a.id)
		 FROM assignments a WHERE a.id = $1`, a.ID,
	).Scan(&maxAwarded)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if maxAwarded != nil && *maxAwarded > a.Marks {
		return model.NewFieldError("marks", fmt.Sprintf("marks must not be below awarded marks (%d)", *maxAwarded))
	}
	return fmt.Errorf("update assignment %s: no row updated", a.ID)
}

// Delete removes an assignment and its submissions in one transaction and
// returns the removed submissions. The assignment row is locked first, so a
// concurrent submission either lands before and is returned, or fails with
// ErrNotFound.
func (r *AssignmentRepository) Delete(ctx context.Context, id uuid.UUID) ([]model.Submission, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var locked uuid.UUID
	err = tx.QueryRow(ctx, `SELECT id FROM assignments WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock assignment: %w", err)
	}

	rows, err := tx.Query(ctx,
		`DELETE FROM assignment_submissions WHERE assignment_id = $1
		 RETURNING student_id, student_name, file, file_size, file_type,
		           submitted_at, status, awarded_marks, graded_at`, id)
	if err != nil {
		return nil, fmt.Errorf("delete submissions: %w", err)
	}
	removed := []model.Submission{}
	for rows.Next() {
		var s model.Submission
		if err := rows.Scan(&s.StudentID, &s.StudentName, &s.File, &s.FileSize, &s.FileType,
			&s.SubmittedAt, &s.Status, &s.AwardedMarks, &s.GradedAt); err != nil {
			rows.Close()
			return nil, err
		}
		removed = append(removed, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("delete submissions: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM assignments WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("delete assignment: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return removed, nil
}

// AddOrReplaceSubmission upserts a student's submission inside one transaction.
func (r *AssignmentRepository) AddOrReplaceSubmission(ctx context.Context, assignmentID uuid.UUID, sub model.Submission) (*model.Submission, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Locks the assignment row so the header and the submission move together.
	tag, err := tx.Exec(ctx,
		`UPDATE assignments SET status = $1, updated_at = NOW() WHERE id = $2`,
		model.StatusSubmitted, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("update assignment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}

	var previous *model.Submission
	prev := model.Submission{}
	err = tx.QueryRow(ctx,
		`SELECT student_id, student_name, file, file_size, file_type, submitted_at,
		        status, awarded_marks, graded_at
		 FROM assignment_submissions
		 WHERE assignment_id = $1 AND student_id = $2`,
		assignmentID, sub.StudentID,
	).Scan(&prev.StudentID, &prev.StudentName, &prev.File, &prev.FileSize, &prev.FileType,
		&prev.SubmittedAt, &prev.Status, &prev.AwardedMarks, &prev.GradedAt)
	switch {
	case err == nil:
		previous = &prev
	case errors.Is(err, pgx.ErrNoRows):
	default:
		return nil, fmt.Errorf("load previous submission: %w", err)
	}

	// A re-submission starts over as an ungraded entry but keeps its position.
	_, err = tx.Exec(ctx,
		`INSERT INTO assignment_submissions
		     (assignment_id, student_id, student_name, file, file_size, file_type,
		      submitted_at, status, awarded_marks, graded_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, NULL)
		 ON CONFLICT (assignment_id, student_id) DO UPDATE
		 SET student_name = EXCLUDED.student_name, file = EXCLUDED.file,
		     file_size = EXCLUDED.file_size, file_type = EXCLUDED.file_type,
		     submitted_at = EXCLUDED.submitted_at, status = EXCLUDED.status,
		     awarded_marks = 0, graded_at = NULL`,
		assignmentID, sub.StudentID, sub.StudentName, sub.File, sub.FileSize, sub.FileType,
		sub.SubmittedAt, sub.Status,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert submission: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return previous, nil
}

// GradeSubmission stores awarded marks for one student's submission.
func (r *AssignmentRepository) GradeSubmission(ctx context.Context, assignmentID uuid.UUID, studentID string, awardedMarks int, gradedAt time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE assignment_submissions
		 SET awarded_marks = $1, status = $2, graded_at = $3
		 WHERE assignment_id = $4 AND student_id = $5`,
		awardedMarks, model.StatusGraded, gradedAt, assignmentID, studentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *AssignmentRepository) listSubmissions(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]model.Submission, error) {
	idStrs := make([]string, len(ids))
	for i, id := range ids {
		idStrs[i] = id.String()
	}

	rows, err := r.pool.Query(ctx,
		`SELECT assignment_id, student_id, student_name, file, file_size, file_type,
		        submitted_at, status, awarded_marks, graded_at
		 FROM assignment_submissions
		 WHERE assignment_id = ANY($1::uuid[])
		 ORDER BY seq`, idStrs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]model.Submission, len(ids))
	for rows.Next() {
		var (
			assignmentID uuid.UUID
			s            model.Submission
		)
		if err := rows.Scan(&assignmentID, &s.StudentID, &s.StudentName, &s.File, &s.FileSize,
			&s.FileType, &s.SubmittedAt, &s.Status, &s.AwardedMarks, &s.GradedAt); err != nil {
			return nil, err
		}
		out[assignmentID] = append(out[assignmentID], s)
	}
	return out, rows.Err()
}

func scanAssignment(row pgx.Row, a *model.Assignment) error {
	return row.Scan(&a.ID, &a.Subject, &a.Title, &a.Description, &a.Marks, &a.StartDate,
		&a.DueDate, &a.Class, &a.Section, &a.Status, &a.File, &a.CreatedAt, &a.UpdatedAt)
}
