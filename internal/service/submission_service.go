package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/tugas-backend/internal/model"
	"github.com/stemsi/tugas-backend/internal/policy"
	"github.com/stemsi/tugas-backend/internal/progress"
	"github.com/stemsi/tugas-backend/internal/repository"
	"github.com/stemsi/tugas-backend/internal/storage"
)

// Accepted submission extensions and the MIME type recorded for each.
var allowedExtensions = map[string]string{
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// AllowedExtensions lists the accepted file extensions.
func AllowedExtensions() []string {
	return []string{".pdf", ".doc", ".docx"}
}

// FileUpload is one file received from a student. The recorded MIME type is
// derived from the extension, not taken from the client.
type FileUpload struct {
	Name string
	Size int64
	Body io.Reader
}

// SubmitRequest identifies the target of an upload.
type SubmitRequest struct {
	AssignmentID uuid.UUID
	StudentID    string
	UploadID     string
	File         FileUpload
}

// FileInfo describes a stored file.
type FileInfo struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	Type string `json:"type"`
}

// SubmitResult is returned once a submission is recorded.
type SubmitResult struct {
	AssignmentID uuid.UUID        `json:"assignmentId"`
	Status       model.Status     `json:"status"`
	Submission   model.Submission `json:"submission"`
	File         FileInfo         `json:"file"`
}

// SubmissionService accepts student uploads and records them on assignments.
type SubmissionService struct {
	store    repository.AssignmentStore
	blobs    storage.BlobStore
	reaper   BlobReaper
	maxBytes int64
	location *time.Location
	log      zerolog.Logger
	now      func() time.Time
}

// NewSubmissionService creates a new SubmissionService. Due dates are compared
// as calendar dates in loc. reaper may be nil.
func NewSubmissionService(
	store repository.AssignmentStore,
	blobs storage.BlobStore,
	reaper BlobReaper,
	maxBytes int64,
	loc *time.Location,
	log zerolog.Logger,
) *SubmissionService {
	if loc == nil {
		loc = time.UTC
	}
	return &SubmissionService{
		store:    store,
		blobs:    blobs,
		reaper:   reaper,
		maxBytes: maxBytes,
		location: loc,
		log:      log.With().Str("component", "submission_service").Logger(),
		now:      time.Now,
	}
}

// Submit validates the upload, stores the file and records the submission.
// Either the submission is recorded with its file, or nothing is.
//
// Progress events are sent on events while the file is transferred, followed
// by one terminal event. events may be nil; the caller owns and closes it.
func (s *SubmissionService) Submit(ctx context.Context, caller *model.Identity, req SubmitRequest, events chan<- progress.Event) (*SubmitResult, error) {
	const op = "submit_file"
	if err := policy.Check(caller, policy.OpSubmitFile); err != nil {
		return nil, s.fail(err, op, caller, req.AssignmentID, req.StudentID)
	}
	if req.StudentID == "" {
		req.StudentID = caller.UserID
	}
	if req.StudentID != caller.UserID {
		return nil, s.fail(ErrForbidden, op, caller, req.AssignmentID, req.StudentID)
	}

	ext := strings.ToLower(filepath.Ext(req.File.Name))
	mime, ok := allowedExtensions[ext]
	if !ok {
		err := fmt.Errorf("%w: %q (allowed: %s)", ErrInvalidFileType, ext, strings.Join(AllowedExtensions(), ", "))
		return nil, s.fail(err, op, caller, req.AssignmentID, req.StudentID)
	}
	if s.maxBytes > 0 && req.File.Size > s.maxBytes {
		err := fmt.Errorf("%w: %d bytes (max: %d)", ErrFileTooLarge, req.File.Size, s.maxBytes)
		return nil, s.fail(err, op, caller, req.AssignmentID, req.StudentID)
	}

	a, err := s.store.Get(ctx, req.AssignmentID)
	if err != nil {
		return nil, s.fail(err, op, caller, req.AssignmentID, req.StudentID)
	}
	now := s.now()
	if PastDeadline(now, a.DueDate, s.location) {
		return nil, s.fail(ErrDeadlinePassed, op, caller, req.AssignmentID, req.StudentID)
	}

	key := storage.SubmissionKey(a.ID, req.File.Name, now)
	body := progress.NewReader(req.File.Body, req.UploadID, req.File.Size, events)

	if err := s.blobs.Put(ctx, key, body, req.File.Size, mime); err != nil {
		s.terminal(ctx, events, req, body.BytesSent(), progress.StateFailed, err)
		// Put leaves nothing behind; a cancelled request is reported the same way.
		err = fmt.Errorf("%w: %v", ErrBlobStoreUnavailable, err)
		return nil, s.fail(err, op, caller, req.AssignmentID, req.StudentID)
	}

	sub := model.Submission{
		StudentID:   req.StudentID,
		StudentName: caller.Name,
		File:        key,
		FileSize:    body.BytesSent(),
		FileType:    mime,
		SubmittedAt: now.UTC(),
		Status:      model.StatusSubmitted,
	}
	prev, err := s.store.AddOrReplaceSubmission(ctx, a.ID, sub)
	if err != nil {
		if delErr := s.blobs.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			s.log.Error().Err(delErr).Str("key", key).Msg("Failed to remove blob of unrecorded submission")
		}
		s.terminal(ctx, events, req, body.BytesSent(), progress.StateFailed, err)
		return nil, s.fail(err, op, caller, req.AssignmentID, req.StudentID)
	}

	if prev != nil && prev.File != "" && prev.File != key && s.reaper != nil {
		if err := s.reaper.Enqueue(context.WithoutCancel(ctx), prev.File); err != nil {
			s.log.Error().Err(err).Str("key", prev.File).Msg("Failed to enqueue superseded blob")
		}
	}
	s.terminal(ctx, events, req, body.BytesSent(), progress.StateStored, nil)

	s.log.Info().
		Str("assignment_id", a.ID.String()).
		Str("student_id", req.StudentID).
		Str("key", key).
		Int64("size", sub.FileSize).
		Bool("resubmission", prev != nil).
		Msg("Submission recorded")

	return &SubmitResult{
		AssignmentID: a.ID,
		Status:       model.StatusSubmitted,
		Submission:   sub,
		File:         FileInfo{Name: req.File.Name, Size: sub.FileSize, Type: mime},
	}, nil
}

// OpenSubmissionFile streams a stored submission file. Students may only open their own.
func (s *SubmissionService) OpenSubmissionFile(ctx context.Context, caller *model.Identity, id uuid.UUID, studentID string) (io.ReadCloser, *model.Submission, error) {
	const op = "download_submission"
	if err := policy.Check(caller, policy.OpDownloadSubmission); err != nil {
		return nil, nil, s.fail(err, op, caller, id, studentID)
	}
	if caller.Role == model.RoleStudent && caller.UserID != studentID {
		return nil, nil, s.fail(ErrForbidden, op, caller, id, studentID)
	}

	a, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, nil, s.fail(err, op, caller, id, studentID)
	}
	sub := a.FindSubmission(studentID)
	if sub == nil {
		return nil, nil, s.fail(ErrNotFound, op, caller, id, studentID)
	}

	rc, err := s.blobs.Open(ctx, sub.File)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, nil, s.fail(ErrNotFound, op, caller, id, studentID)
		}
		err = fmt.Errorf("%w: %v", ErrBlobStoreUnavailable, err)
		return nil, nil, s.fail(err, op, caller, id, studentID)
	}
	return rc, sub, nil
}

// PastDeadline reports whether now falls on a calendar day after due, both
// read in loc. The due date itself is still open.
func PastDeadline(now, due time.Time, loc *time.Location) bool {
	ny, nm, nd := now.In(loc).Date()
	dy, dm, dd := due.In(loc).Date()
	today := time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC)
	dueDay := time.Date(dy, dm, dd, 0, 0, 0, 0, time.UTC)
	return today.After(dueDay)
}

func (s *SubmissionService) terminal(ctx context.Context, events chan<- progress.Event, req SubmitRequest, sent int64, state progress.State, cause error) {
	total := req.File.Size
	if state == progress.StateStored && total <= 0 {
		total = sent
	}
	ev := progress.NewEvent(req.UploadID, sent, total, state)
	if cause != nil {
		ev.Error = "upload failed"
	}
	progress.Send(ctx, events, ev)
}

func (s *SubmissionService) fail(err error, op string, caller *model.Identity, id uuid.UUID, studentID string) error {
	auditEvent(s.log, err, op, caller, id, studentID).Msg("Submission operation failed")
	return err
}
