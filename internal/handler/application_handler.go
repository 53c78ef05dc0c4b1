package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stemsi/abroad-backend/internal/model"
	"github.com/stemsi/abroad-backend/internal/response"
	"github.com/stemsi/abroad-backend/internal/service"
	"github.com/stemsi/abroad-backend/internal/validator"
)

// ApplicationHandler handles applications and their state transitions.
type ApplicationHandler struct {
	applicationService *service.ApplicationService
}

// NewApplicationHandler creates a new ApplicationHandler.
func NewApplicationHandler(applicationService *service.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{applicationService: applicationService}
}

// Statuses godoc
// GET /api/v1/application-statuses
// Returns the configured status catalogue in display order.
func (h *ApplicationHandler) Statuses(c *gin.Context) {
	response.Success(c, http.StatusOK, h.applicationService.Statuses())
}

// List godoc
// GET /api/v1/applications?studentId=&page=&take=
func (h *ApplicationHandler) List(c *gin.Context) {
	studentID, err := uuid.Parse(c.Query("studentId"))
	if err != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{
			"studentId": "studentId must be a valid UUID",
		})
		return
	}

	page, take := pageParams(c)
	result, err := h.applicationService.ListByStudent(c.Request.Context(), studentID.String(), page, take)
	if err != nil {
		failWith(c, err)
		return
	}

	apps := result.Applications
	if apps == nil {
		apps = []model.Application{}
	}
	response.SuccessWithPage(c, http.StatusOK, apps, result.Meta)
}

// Get godoc
// GET /api/v1/applications/:id
func (h *ApplicationHandler) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	app, err := h.applicationService.GetByID(c.Request.Context(), id)
	if err != nil {
		failWith(c, err)
		return
	}
	response.Success(c, http.StatusOK, app)
}

// Create godoc
// POST /api/v1/applications
// Opens an application for a complete student profile, starting at the
// first catalogue status with its admin team conversation.
func (h *ApplicationHandler) Create(c *gin.Context) {
	actor, ok := actorOf(c)
	if !ok {
		return
	}

	var req model.CreateApplicationRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	app, err := h.applicationService.Create(c.Request.Context(), actor, req)
	if err != nil {
		failWith(c, err)
		return
	}
	response.Success(c, http.StatusCreated, app)
}

// Withdraw godoc
// DELETE /api/v1/applications/:id
func (h *ApplicationHandler) Withdraw(c *gin.Context) {
	actor, ok := actorOf(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := h.applicationService.Withdraw(c.Request.Context(), actor, id); err != nil {
		failWith(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "application withdrawn"})
}

// SetStatus godoc
// PATCH /api/v1/applications/:id/status
func (h *ApplicationHandler) SetStatus(c *gin.Context) {
	var req model.UpdateStatusRequest
	h.transition(c, &req, func(actor model.Actor, id string) (*model.Application, error) {
		return h.applicationService.SetStatus(c.Request.Context(), actor, id, req.Status)
	})
}

// SetPriority godoc
// PATCH /api/v1/applications/:id/priority
func (h *ApplicationHandler) SetPriority(c *gin.Context) {
	var req model.UpdatePriorityRequest
	h.transition(c, &req, func(actor model.Actor, id string) (*model.Application, error) {
		return h.applicationService.SetPriority(c.Request.Context(), actor, id, req.Priority)
	})
}

// UploadPayment godoc
// PUT /api/v1/applications/:id/payment
// Attaches an uploaded payment proof. Rejected when one is already attached.
func (h *ApplicationHandler) UploadPayment(c *gin.Context) {
	var req model.UploadPaymentRequest
	h.transition(c, &req, func(actor model.Actor, id string) (*model.Application, error) {
		return h.applicationService.UploadPayment(c.Request.Context(), actor, id, req.PaymentDocument)
	})
}

// VerifyPayment godoc
// POST /api/v1/applications/:id/payment/verify
func (h *ApplicationHandler) VerifyPayment(c *gin.Context) {
	h.transition(c, nil, func(actor model.Actor, id string) (*model.Application, error) {
		return h.applicationService.VerifyPayment(c.Request.Context(), actor, id)
	})
}

// RemovePayment godoc
// DELETE /api/v1/applications/:id/payment
// Detaches the payment proof and clears any verification.
func (h *ApplicationHandler) RemovePayment(c *gin.Context) {
	h.transition(c, nil, func(actor model.Actor, id string) (*model.Application, error) {
		return h.applicationService.RemovePayment(c.Request.Context(), actor, id)
	})
}

// Activities godoc
// GET /api/v1/applications/:id/activities
// Returns the recorded transitions, newest first.
func (h *ApplicationHandler) Activities(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	activities, err := h.applicationService.Activities(c.Request.Context(), id)
	if err != nil {
		failWith(c, err)
		return
	}
	if activities == nil {
		activities = []model.Activity{}
	}
	response.Success(c, http.StatusOK, activities)
}

// transition binds body (when non-nil) and runs apply for the current actor.
func (h *ApplicationHandler) transition(c *gin.Context, body any, apply func(model.Actor, string) (*model.Application, error)) {
	actor, ok := actorOf(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if body != nil {
		if fields := validator.Bind(c, body); fields != nil {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
			return
		}
	}

	app, err := apply(actor, id)
	if err != nil {
		failWith(c, err)
		return
	}
	response.Success(c, http.StatusOK, app)
}
