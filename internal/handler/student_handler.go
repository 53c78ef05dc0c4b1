package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/abroad-backend/internal/model"
	"github.com/stemsi/abroad-backend/internal/response"
	"github.com/stemsi/abroad-backend/internal/service"
	"github.com/stemsi/abroad-backend/internal/validator"
)

// StudentHandler handles student records and their profile sections.
type StudentHandler struct {
	studentService *service.StudentService
}

// NewStudentHandler creates a new StudentHandler.
func NewStudentHandler(studentService *service.StudentService) *StudentHandler {
	return &StudentHandler{studentService: studentService}
}

// List godoc
// GET /api/v1/students?search=&page=&take=
// Returns a page of students, newest first, each with its stage and status message.
func (h *StudentHandler) List(c *gin.Context) {
	page, take := pageParams(c)
	result, err := h.studentService.ListStudents(c.Request.Context(), strings.TrimSpace(c.Query("search")), page, take)
	if err != nil {
		failWith(c, err)
		return
	}

	students := result.Students
	if students == nil {
		students = []model.Student{}
	}
	response.SuccessWithPage(c, http.StatusOK, students, result.Meta)
}

// Get godoc
// GET /api/v1/students/:id
func (h *StudentHandler) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	student, err := h.studentService.GetByID(c.Request.Context(), id)
	if err != nil {
		failWith(c, err)
		return
	}
	response.Success(c, http.StatusOK, student)
}

// CreateLead godoc
// POST /api/v1/students
// Creates a lead with contact details only.
func (h *StudentHandler) CreateLead(c *gin.Context) {
	var req model.CreateLeadRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	student, err := h.studentService.CreateLead(c.Request.Context(), req)
	if err != nil {
		failWith(c, err)
		return
	}
	response.Success(c, http.StatusCreated, student)
}

// Register godoc
// POST /api/v1/students/register
// Creates a student with personal information and qualifications filled in.
func (h *StudentHandler) Register(c *gin.Context) {
	var req model.RegisterStudentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	student, err := h.studentService.Register(c.Request.Context(), req)
	if err != nil {
		failWith(c, err)
		return
	}
	response.Success(c, http.StatusCreated, student)
}

// Update godoc
// PUT /api/v1/students/:id
func (h *StudentHandler) Update(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req model.UpdateStudentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	student, err := h.studentService.Update(c.Request.Context(), id, req)
	if err != nil {
		failWith(c, err)
		return
	}
	response.Success(c, http.StatusOK, student)
}

// SavePersonalInfo godoc
// PUT /api/v1/students/:id/personal-info
func (h *StudentHandler) SavePersonalInfo(c *gin.Context) {
	var req model.PersonalInfo
	saveSection(c, &req, func(id string) (*service.StudentView, error) {
		return h.studentService.SavePersonalInfo(c.Request.Context(), id, req)
	})
}

// SaveAcademicQualification godoc
// PUT /api/v1/students/:id/academic-qualification
func (h *StudentHandler) SaveAcademicQualification(c *gin.Context) {
	var req model.AcademicQualification
	saveSection(c, &req, func(id string) (*service.StudentView, error) {
		return h.studentService.SaveAcademicQualification(c.Request.Context(), id, req)
	})
}

// SaveDocuments godoc
// PUT /api/v1/students/:id/documents
func (h *StudentHandler) SaveDocuments(c *gin.Context) {
	var req model.Documents
	saveSection(c, &req, func(id string) (*service.StudentView, error) {
		return h.studentService.SaveDocuments(c.Request.Context(), id, req)
	})
}

// SaveWorkExperiences godoc
// PUT /api/v1/students/:id/work-experiences
// Replaces the whole list; an empty list clears it.
func (h *StudentHandler) SaveWorkExperiences(c *gin.Context) {
	var req model.UpdateWorkExperiencesRequest
	saveSection(c, &req, func(id string) (*service.StudentView, error) {
		items := req.WorkExperiences
		if items == nil {
			items = []model.WorkExperience{}
		}
		return h.studentService.SaveWorkExperiences(c.Request.Context(), id, items)
	})
}

// Delete godoc
// DELETE /api/v1/students/:id
// Hard-deletes the student with its applications and conversations.
func (h *StudentHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := h.studentService.Delete(c.Request.Context(), id); err != nil {
		failWith(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "student deleted successfully"})
}

// saveSection binds a profile section body and hands it to save.
func saveSection(c *gin.Context, dst any, save func(id string) (*service.StudentView, error)) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if fields := validator.Bind(c, dst); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	student, err := save(id)
	if err != nil {
		failWith(c, err)
		return
	}
	response.Success(c, http.StatusOK, student)
}
