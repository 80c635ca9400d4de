package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/tugas-backend/internal/middleware"
	"github.com/stemsi/tugas-backend/internal/model"
	"github.com/stemsi/tugas-backend/internal/policy"
	"github.com/stemsi/tugas-backend/internal/progress"
	"github.com/stemsi/tugas-backend/internal/response"
	"github.com/stemsi/tugas-backend/internal/service"
	"github.com/stemsi/tugas-backend/internal/validator"
)

const (
	// formOverhead allows for multipart boundaries and the text fields on
	// top of the file size limit.
	formOverhead = 1 << 20
	// formMemory is how much of the form is buffered before spilling to disk.
	formMemory = 8 << 20
)

// SubmissionHandler handles student file uploads and submission downloads.
type SubmissionHandler struct {
	submissionService *service.SubmissionService
	publisher         progress.Publisher
	maxBytes          int64
	log               zerolog.Logger
}

// NewSubmissionHandler creates a new SubmissionHandler. publisher may be nil,
// in which case progress is not broadcast.
func NewSubmissionHandler(submissionService *service.SubmissionService, publisher progress.Publisher, maxBytes int64, log zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		submissionService: submissionService,
		publisher:         publisher,
		maxBytes:          maxBytes,
		log:               log.With().Str("component", "submission_handler").Logger(),
	}
}

// UploadSubmission godoc
// PUT /api/v1/assignments/upload
// Multipart form: file, assignmentId, studentId and optional uploadId.
// Progress for uploadId is published to /ws/v1/uploads/:upload_id/progress.
func (h *SubmissionHandler) UploadSubmission(c *gin.Context) {
	caller, ok := authorize(c, policy.OpSubmitFile)
	if !ok {
		return
	}

	if h.maxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+formOverhead)
	}
	if err := c.Request.ParseMultipartForm(formMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Fail(c, http.StatusRequestEntityTooLarge, response.ErrFileTooLarge)
			return
		}
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}

	var form model.SubmissionForm
	if fields := validator.BindForm(c, &form); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}
	defer file.Close()

	uploadID := form.UploadID
	if uploadID == "" {
		uploadID = c.GetString(response.ContextKeyRequestID)
	}

	req := service.SubmitRequest{
		AssignmentID: uuid.MustParse(form.AssignmentID),
		StudentID:    form.StudentID,
		UploadID:     uploadID,
		File: service.FileUpload{
			Name: header.Filename,
			Size: header.Size,
			Body: file,
		},
	}

	events := make(chan progress.Event, 32)
	done := make(chan struct{})
	go func() {
		defer close(done)
		progress.Forward(context.WithoutCancel(c.Request.Context()), h.publisher, caller.UserID, events, h.log)
	}()

	result, err := h.submissionService.Submit(c.Request.Context(), caller, req, events)
	close(events)
	<-done

	if err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"uploadId":     uploadID,
		"assignmentId": result.AssignmentID,
		"status":       result.Status,
		"submission":   result.Submission,
		"file":         result.File,
	})
}

// DownloadSubmission godoc
// GET /api/v1/assignments/:id/submissions/:student_id/file
// Streams the stored file. Students may only fetch their own.
func (h *SubmissionHandler) DownloadSubmission(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	rc, sub, err := h.submissionService.OpenSubmissionFile(c.Request.Context(), middleware.GetIdentity(c), id, c.Param("student_id"))
	if err != nil {
		failWith(c, err)
		return
	}
	defer rc.Close()

	c.DataFromReader(http.StatusOK, sub.FileSize, sub.FileType, rc, map[string]string{
		"Content-Disposition": fmt.Sprintf(`attachment; filename="%s"`, path.Base(sub.File)),
	})
}
