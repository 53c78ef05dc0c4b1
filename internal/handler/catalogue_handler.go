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

type CatalogueHandler struct {
	catalogueService *service.CatalogueService
}

func NewCatalogueHandler(catalogueService *service.CatalogueService) *CatalogueHandler {
	return &CatalogueHandler{catalogueService: catalogueService}
}

// ListUniversities godoc
// GET /api/v1/universities
func (h *CatalogueHandler) ListUniversities(c *gin.Context) {
	universities, err := h.catalogueService.ListUniversities(c.Request.Context())
	if err != nil {
		failWith(c, err)
		return
	}
	if universities == nil {
		universities = []model.University{}
	}
	response.Success(c, http.StatusOK, universities)
}

// CreateUniversity godoc
// POST /api/v1/universities
func (h *CatalogueHandler) CreateUniversity(c *gin.Context) {
	var req model.CreateUniversityRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	u, err := h.catalogueService.CreateUniversity(c.Request.Context(), req)
	if err != nil {
		failWith(c, err)
		return
	}
	response.Success(c, http.StatusCreated, u)
}

// ListCourses godoc
// GET /api/v1/courses?universityId=
func (h *CatalogueHandler) ListCourses(c *gin.Context) {
	universityID := c.Query("universityId")
	if universityID != "" {
		if _, err := uuid.Parse(universityID); err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
			return
		}
	}

	courses, err := h.catalogueService.ListCourses(c.Request.Context(), universityID)
	if err != nil {
		failWith(c, err)
		return
	}
	if courses == nil {
		courses = []model.Course{}
	}
	response.Success(c, http.StatusOK, courses)
}

// CreateCourse godoc
// POST /api/v1/courses
func (h *CatalogueHandler) CreateCourse(c *gin.Context) {
	var req model.CreateCourseRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	course, err := h.catalogueService.CreateCourse(c.Request.Context(), req)
	if err != nil {
		failWith(c, err)
		return
	}
	response.Success(c, http.StatusCreated, course)
}
