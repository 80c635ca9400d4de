package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/tugas-backend/internal/model"
)

// MemoryStore is an in-process Assignment Store for development and tests.
// Stored values are copied in and out so callers never share memory with it.
type MemoryStore struct {
	mu    sync.RWMutex
	order []uuid.UUID
	table map[uuid.UUID]*model.Assignment
	now   func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		table: make(map[uuid.UUID]*model.Assignment),
		now:   time.Now,
	}
}

var _ AssignmentStore = (*MemoryStore)(nil)

func (s *MemoryStore) Create(_ context.Context, a *model.Assignment) error {
	if err := a.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := s.now().UTC()
	a.Status = model.StatusPending
	a.Submissions = []model.Submission{}
	a.CreatedAt = now
	a.UpdatedAt = now

	s.table[a.ID] = clone(a)
	s.order = append(s.order, a.ID)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (*model.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.table[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(a), nil
}

func (s *MemoryStore) List(_ context.Context, filter model.AssignmentFilter) ([]model.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Assignment, 0, len(s.order))
	for _, id := range s.order {
		a := s.table[id]
		if filter.Class != "" && a.Class != filter.Class {
			continue
		}
		if filter.Section != "" && a.Section != filter.Section {
			continue
		}
		out = append(out, *clone(a))
	}
	return out, nil
}

func (s *MemoryStore) Update(_ context.Context, a *model.Assignment) error {
	if err := a.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.table[a.ID]
	if !ok {
		return ErrNotFound
	}
	if err := model.CheckMarksCoverGrades(a.Marks, cur.Submissions); err != nil {
		return err
	}
	cur.Subject = a.Subject
	cur.Title = a.Title
	cur.Description = a.Description
	cur.Marks = a.Marks
	cur.StartDate = a.StartDate
	cur.DueDate = a.DueDate
	cur.Class = a.Class
	cur.Section = a.Section
	cur.File = a.File
	cur.UpdatedAt = s.now().UTC()
	a.UpdatedAt = cur.UpdatedAt
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id uuid.UUID) ([]model.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.table[id]
	if !ok {
		return nil, ErrNotFound
	}
	delete(s.table, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return clone(a).Submissions, nil
}

func (s *MemoryStore) AddOrReplaceSubmission(_ context.Context, assignmentID uuid.UUID, sub model.Submission) (*model.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.table[assignmentID]
	if !ok {
		return nil, ErrNotFound
	}

	sub.AwardedMarks = 0
	sub.GradedAt = nil

	var previous *model.Submission
	if cur := a.FindSubmission(sub.StudentID); cur != nil {
		prev := *cur
		previous = &prev
		*cur = sub
	} else {
		a.Submissions = append(a.Submissions, sub)
	}
	a.Status = model.StatusSubmitted
	a.UpdatedAt = s.now().UTC()
	return previous, nil
}

func (s *MemoryStore) GradeSubmission(_ context.Context, assignmentID uuid.UUID, studentID string, awardedMarks int, gradedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.table[assignmentID]
	if !ok {
		return ErrNotFound
	}
	sub := a.FindSubmission(studentID)
	if sub == nil {
		return ErrNotFound
	}
	sub.AwardedMarks = awardedMarks
	sub.Status = model.StatusGraded
	sub.GradedAt = &gradedAt
	return nil
}

func clone(a *model.Assignment) *model.Assignment {
	c := *a
	if a.File != nil {
		f := *a.File
		c.File = &f
	}
	c.Submissions = make([]model.Submission, len(a.Submissions))
	copy(c.Submissions, a.Submissions)
	for i := range c.Submissions {
		if g := c.Submissions[i].GradedAt; g != nil {
			t := *g
			c.Submissions[i].GradedAt = &t
		}
	}
	return &c
}

// StaticRoster is a RosterProvider backed by a fixed map, keyed "class/section".
type StaticRoster map[string]int

// CountStudents returns the configured enrolment for class/section.
func (r StaticRoster) CountStudents(_ context.Context, class, section string) (int, error) {
	return r[class+"/"+section], nil
}
