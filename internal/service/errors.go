package service

import (
	"errors"

	"github.com/stemsi/tugas-backend/internal/policy"
	"github.com/stemsi/tugas-backend/internal/repository"
)

// Domain errors. Handlers map these to response codes with errors.Is.
var (
	ErrNotFound        = repository.ErrNotFound
	ErrForbidden       = policy.ErrForbidden
	ErrUnauthenticated = policy.ErrUnauthenticated

	ErrInvalidFileType      = errors.New("invalid file type")
	ErrFileTooLarge         = errors.New("file too large")
	ErrDeadlinePassed       = errors.New("deadline passed")
	ErrInvalidGrade         = errors.New("awarded marks out of range")
	ErrBlobStoreUnavailable = errors.New("blob store unavailable")
)
