package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stemsi/tugas-backend/internal/middleware"
	"github.com/stemsi/tugas-backend/internal/model"
	"github.com/stemsi/tugas-backend/internal/policy"
	"github.com/stemsi/tugas-backend/internal/response"
	"github.com/stemsi/tugas-backend/internal/service"
	"github.com/stemsi/tugas-backend/internal/validator"
)

// AssignmentHandler handles assignment lifecycle and grading endpoints.
type AssignmentHandler struct {
	assignmentService *service.AssignmentService
	location          *time.Location
}

// NewAssignmentHandler creates a new AssignmentHandler. Calendar dates in
// request bodies are read in loc.
func NewAssignmentHandler(assignmentService *service.AssignmentService, loc *time.Location) *AssignmentHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &AssignmentHandler{assignmentService: assignmentService, location: loc}
}

// ListAssignments godoc
// GET /api/v1/assignments?class=&section=
// Lists assignments. Filtering by class/section keeps creation order.
func (h *AssignmentHandler) ListAssignments(c *gin.Context) {
	filter := model.AssignmentFilter{
		Class:   c.Query("class"),
		Section: c.Query("section"),
	}

	list, err := h.assignmentService.List(c.Request.Context(), middleware.GetIdentity(c), filter)
	if err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"assignments": list})
}

// GetAssignment godoc
// GET /api/v1/assignments/:id
func (h *AssignmentHandler) GetAssignment(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	a, err := h.assignmentService.Get(c.Request.Context(), middleware.GetIdentity(c), id)
	if err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"assignment": a})
}

// CreateAssignment godoc
// POST /api/v1/assignments
// Creates a pending assignment. Teachers and admins only.
func (h *AssignmentHandler) CreateAssignment(c *gin.Context) {
	caller, ok := authorize(c, policy.OpCreateAssignment)
	if !ok {
		return
	}

	var req model.AssignmentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	a, err := h.assignmentService.Create(c.Request.Context(), caller, req.Input(h.location))
	if err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"assignment": a})
}

// UpdateAssignment godoc
// PUT /api/v1/assignments/:id
// Replaces every editable field; the merged document is re-validated.
func (h *AssignmentHandler) UpdateAssignment(c *gin.Context) {
	caller, ok := authorize(c, policy.OpUpdateAssignment)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req model.AssignmentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	a, err := h.assignmentService.Update(c.Request.Context(), caller, id, req.Input(h.location))
	if err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"assignment": a})
}

// DeleteAssignment godoc
// DELETE /api/v1/assignments/:id
// Irreversibly removes the assignment and its submissions.
func (h *AssignmentHandler) DeleteAssignment(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.assignmentService.Delete(c.Request.Context(), middleware.GetIdentity(c), id); err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "Assignment deleted"})
}

// GradeSubmission godoc
// PUT /api/v1/assignments/:id/submissions/:student_id/grade
func (h *AssignmentHandler) GradeSubmission(c *gin.Context) {
	caller, ok := authorize(c, policy.OpGradeSubmission)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req model.GradeRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sub, err := h.assignmentService.GradeSubmission(c.Request.Context(), caller, id, c.Param("student_id"), *req.AwardedMarks)
	if err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"submission": sub})
}

// GetSubmissionProgress godoc
// GET /api/v1/assignments/:id/progress
// Returns the submission rate against the class/section roster.
func (h *AssignmentHandler) GetSubmissionProgress(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	p, err := h.assignmentService.SubmissionProgress(c.Request.Context(), middleware.GetIdentity(c), id)
	if err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"progress": p})
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}
