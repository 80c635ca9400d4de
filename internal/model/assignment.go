package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status enumerates the lifecycle states of an assignment or a submission.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSubmitted Status = "submitted"
	StatusGraded    Status = "graded"
)

// Assignment is one piece of work issued to a class/section.
//
// Status on the assignment is a coarse summary (pending until the first
// submission arrives, submitted afterwards). The status of each Submission
// is authoritative for grading.
type Assignment struct {
	ID          uuid.UUID    `json:"id"`
	Subject     string       `json:"subject"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Marks       int          `json:"marks"`
	StartDate   time.Time    `json:"startDate"`
	DueDate     time.Time    `json:"dueDate"`
	Class       string       `json:"class"`
	Section     string       `json:"section"`
	Status      Status       `json:"status"`
	File        *string      `json:"file,omitempty"`
	Submissions []Submission `json:"submissions"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// Submission is one student's response, embedded in its Assignment.
type Submission struct {
	StudentID    string     `json:"studentId"`
	StudentName  string     `json:"studentName"`
	File         string     `json:"file"`
	FileSize     int64      `json:"fileSize"`
	FileType     string     `json:"fileType"`
	SubmittedAt  time.Time  `json:"submittedAt"`
	Status       Status     `json:"status"`
	AwardedMarks int        `json:"awardedMarks"`
	GradedAt     *time.Time `json:"gradedAt,omitempty"`
}

// FindSubmission returns the submission of studentID, or nil.
func (a *Assignment) FindSubmission(studentID string) *Submission {
	for i := range a.Submissions {
		if a.Submissions[i].StudentID == studentID {
			return &a.Submissions[i]
		}
	}
	return nil
}

// AssignmentInput carries the editable fields of an assignment.
// Create and Update both take the full set (Update is a full replace).
type AssignmentInput struct {
	Subject     string
	Title       string
	Description string
	Marks       int
	StartDate   *time.Time
	DueDate     time.Time
	Class       string
	Section     string
	File        *string
}

// Apply copies the editable fields onto a. A nil StartDate keeps a's current start.
func (in AssignmentInput) Apply(a *Assignment) {
	a.Subject = strings.TrimSpace(in.Subject)
	a.Title = strings.TrimSpace(in.Title)
	a.Description = strings.TrimSpace(in.Description)
	a.Marks = in.Marks
	if in.StartDate != nil {
		a.StartDate = *in.StartDate
	}
	a.DueDate = in.DueDate
	a.Class = strings.TrimSpace(in.Class)
	a.Section = strings.TrimSpace(in.Section)
	a.File = in.File
}

// Validate checks the invariants shared by create and update.
func (a *Assignment) Validate() error {
	fields := make(map[string]string)

	required := map[string]string{
		"subject":     a.Subject,
		"title":       a.Title,
		"description": a.Description,
		"class":       a.Class,
		"section":     a.Section,
	}
	for name, v := range required {
		if v == "" {
			fields[name] = name + " is a required field"
		}
	}

	if a.Marks <= 0 {
		fields["marks"] = "marks must be greater than 0"
	}
	if a.DueDate.IsZero() {
		fields["dueDate"] = "dueDate is a required field"
	} else if a.DueDate.Before(a.StartDate) {
		fields["dueDate"] = "dueDate must not be before startDate"
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// CheckMarksCoverGrades rejects a marks value below any mark already awarded,
// keeping 0 <= awardedMarks <= marks for every submission.
func CheckMarksCoverGrades(marks int, subs []Submission) error {
	for _, sub := range subs {
		if sub.AwardedMarks > marks {
			return NewFieldError("marks", fmt.Sprintf("marks must not be below awarded marks (%d for %s)", sub.AwardedMarks, sub.StudentID))
		}
	}
	return nil
}

// AssignmentFilter narrows List. Empty fields match everything.
type AssignmentFilter struct {
	Class   string
	Section string
}

// Scoped reports whether the filter names a class or section, in which case
// results keep insertion order.
func (f AssignmentFilter) Scoped() bool {
	return f.Class != "" || f.Section != ""
}

// SubmissionProgress is the teacher-facing submission summary of one assignment.
type SubmissionProgress struct {
	AssignmentID   uuid.UUID `json:"assignmentId"`
	SubmittedCount int       `json:"submittedCount"`
	GradedCount    int       `json:"gradedCount"`
	TotalStudents  int       `json:"totalStudents"`
	SubmissionRate int       `json:"submissionRate"`
}
