package model

import "time"

// AssignmentRequest is the body of POST and PUT /assignments.
// PUT is a full replace, so both operations use the same schema.
type AssignmentRequest struct {
	Subject     string  `json:"subject" binding:"required"`
	Title       string  `json:"title" binding:"required"`
	Description string  `json:"description" binding:"required"`
	Marks       int     `json:"marks" binding:"required,gt=0"`
	StartDate   *Date   `json:"startDate"`
	DueDate     *Date   `json:"dueDate" binding:"required"`
	Class       string  `json:"class" binding:"required"`
	Section     string  `json:"section" binding:"required"`
	File        *string `json:"file"`
}

// Input converts the request, reading calendar dates in loc.
func (r *AssignmentRequest) Input(loc *time.Location) AssignmentInput {
	in := AssignmentInput{
		Subject:     r.Subject,
		Title:       r.Title,
		Description: r.Description,
		Marks:       r.Marks,
		Class:       r.Class,
		Section:     r.Section,
		File:        r.File,
	}
	if r.DueDate != nil {
		in.DueDate = r.DueDate.EndIn(loc)
	}
	if r.StartDate != nil {
		start := r.StartDate.In(loc)
		in.StartDate = &start
	}
	return in
}

// GradeRequest is the body of PUT /assignments/:id/submissions/:student_id/grade.
// Range is checked against the assignment's marks by the service.
type GradeRequest struct {
	AwardedMarks *int `json:"awardedMarks" binding:"required"`
}

// SubmissionForm holds the non-file fields of the multipart upload.
type SubmissionForm struct {
	AssignmentID string `form:"assignmentId" binding:"required,uuid"`
	StudentID    string `form:"studentId" binding:"required"`
	UploadID     string `form:"uploadId" binding:"omitempty,max=64"`
}
