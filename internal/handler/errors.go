package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stemsi/abroad-backend/internal/lifecycle"
	"github.com/stemsi/abroad-backend/internal/middleware"
	"github.com/stemsi/abroad-backend/internal/model"
	"github.com/stemsi/abroad-backend/internal/repository"
	"github.com/stemsi/abroad-backend/internal/response"
	"github.com/stemsi/abroad-backend/internal/service"
)

// failure pairs an HTTP status with the error code sent to the client.
type failure struct {
	status int
	code   response.ErrCode
}

// domainFailures maps sentinel errors from the service and lifecycle layers
// onto responses. Lookup uses errors.Is, so wrapped errors still match.
var domainFailures = []struct {
	err error
	failure
}{
	// ─── Lookups ───────────────────────────────────────────────────────
	{service.ErrStudentNotFound, failure{http.StatusNotFound, response.ErrNotFound}},
	{service.ErrApplicationNotFound, failure{http.StatusNotFound, response.ErrNotFound}},
	{service.ErrCourseNotFound, failure{http.StatusNotFound, response.ErrNotFound}},
	{service.ErrConversationNotFound, failure{http.StatusNotFound, response.ErrNotFound}},
	{repository.ErrUniversityNotFound, failure{http.StatusNotFound, response.ErrNotFound}},
	{repository.ErrApplicationReference, failure{http.StatusNotFound, response.ErrNotFound}},

	// ─── Uniqueness ────────────────────────────────────────────────────
	{repository.ErrDuplicateStudentEmail, failure{http.StatusConflict, response.ErrConflict}},
	{repository.ErrDuplicateStaffEmail, failure{http.StatusConflict, response.ErrConflict}},
	{repository.ErrDuplicateUniversity, failure{http.StatusConflict, response.ErrConflict}},
	{repository.ErrDuplicateCourse, failure{http.StatusConflict, response.ErrConflict}},

	// ─── Application rules ─────────────────────────────────────────────
	{lifecycle.ErrForbidden, failure{http.StatusForbidden, response.ErrForbidden}},
	{lifecycle.ErrUnknownStatus, failure{http.StatusUnprocessableEntity, response.ErrUnknownStatus}},
	{lifecycle.ErrInvalidPriority, failure{http.StatusUnprocessableEntity, response.ErrInvalidPriority}},
	{lifecycle.ErrPaymentAlreadyUploaded, failure{http.StatusConflict, response.ErrPaymentAlreadyUploaded}},
	{lifecycle.ErrNoApplicationFee, failure{http.StatusUnprocessableEntity, response.ErrNoApplicationFee}},
	{lifecycle.ErrNoPaymentDocument, failure{http.StatusConflict, response.ErrNoPaymentDocument}},
	{lifecycle.ErrPaymentAlreadyVerified, failure{http.StatusConflict, response.ErrPaymentAlreadyVerified}},
	{lifecycle.ErrInvalidPaymentDocument, failure{http.StatusBadRequest, response.ErrValidation}},
	{service.ErrProfileIncomplete, failure{http.StatusUnprocessableEntity, response.ErrProfileIncomplete}},
	{service.ErrCourseUniversityMismatch, failure{http.StatusUnprocessableEntity, response.ErrCourseMismatch}},
	{service.ErrInvalidIntake, failure{http.StatusBadRequest, response.ErrValidation}},
	{service.ErrInvalidYear, failure{http.StatusBadRequest, response.ErrValidation}},

	// ─── Messages & media ──────────────────────────────────────────────
	{lifecycle.ErrEmptyMessage, failure{http.StatusBadRequest, response.ErrEmptyMessage}},
	{lifecycle.ErrTooManyFiles, failure{http.StatusBadRequest, response.ErrTooManyFiles}},
	{service.ErrUnsupportedFileType, failure{http.StatusBadRequest, response.ErrUnsupportedFile}},
	{service.ErrFileTooLarge, failure{http.StatusBadRequest, response.ErrFileTooLarge}},
}

// failWith writes the response matching err, falling back to 500.
func failWith(c *gin.Context, err error) {
	for _, d := range domainFailures {
		if errors.Is(err, d.err) {
			response.Fail(c, d.status, d.code)
			return
		}
	}
	_ = c.Error(err)
	response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
}

// idParam reads a UUID path parameter, responding 400 when malformed.
func idParam(c *gin.Context, name string) (string, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return "", false
	}
	return id.String(), true
}

// pageParams reads page and take; invalid values fall back to service defaults.
func pageParams(c *gin.Context) (page, take int) {
	page, _ = strconv.Atoi(c.Query("page"))
	take, _ = strconv.Atoi(c.Query("take"))
	return page, take
}

// actorOf returns the authenticated actor, responding 401 when absent.
func actorOf(c *gin.Context) (model.Actor, bool) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
	}
	return actor, ok
}
