package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/tugas-backend/internal/middleware"
	"github.com/stemsi/tugas-backend/internal/model"
	"github.com/stemsi/tugas-backend/internal/policy"
	"github.com/stemsi/tugas-backend/internal/response"
	"github.com/stemsi/tugas-backend/internal/service"
)

// failWith maps a service error to its HTTP status and error code.
func failWith(c *gin.Context, err error) {
	var ve *model.ValidationError
	switch {
	case errors.As(err, &ve):
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, ve.Fields)
	case errors.Is(err, service.ErrUnauthenticated):
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
	case errors.Is(err, service.ErrForbidden):
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
	case errors.Is(err, service.ErrNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrInvalidFileType):
		response.Fail(c, http.StatusBadRequest, response.ErrUnsupportedFile)
	case errors.Is(err, service.ErrFileTooLarge):
		response.Fail(c, http.StatusRequestEntityTooLarge, response.ErrFileTooLarge)
	case errors.Is(err, service.ErrDeadlinePassed):
		response.Fail(c, http.StatusBadRequest, response.ErrDeadlinePassed)
	case errors.Is(err, service.ErrInvalidGrade):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidGrade)
	case errors.Is(err, service.ErrBlobStoreUnavailable):
		response.Fail(c, http.StatusBadGateway, response.ErrBlobStoreUnavailable)
	default:
		_ = c.Error(err)
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// authorize checks the caller's role for op before the request body is read,
// so a caller without permission gets 401/403 whatever the body holds.
func authorize(c *gin.Context, op policy.Operation) (*model.Identity, bool) {
	caller := middleware.GetIdentity(c)
	if err := policy.Check(caller, op); err != nil {
		failWith(c, err)
		return nil, false
	}
	return caller, true
}
