package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/abroad-backend/internal/response"
	"github.com/stemsi/abroad-backend/internal/service"
)

// maxFilesPerUpload matches the attachment limit of a message.
const maxFilesPerUpload = 3

// MediaHandler handles media upload endpoints.
type MediaHandler struct {
	mediaService *service.MediaService
}

// NewMediaHandler creates a new MediaHandler.
func NewMediaHandler(mediaService *service.MediaService) *MediaHandler {
	return &MediaHandler{mediaService: mediaService}
}

// Upload godoc
// POST /api/v1/media/upload
// Stores up to three files from the multipart "files" field and returns
// their descriptors. Either every file is stored or none is.
func (h *MediaHandler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}

	headers := form.File["files"]
	switch {
	case len(headers) == 0:
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	case len(headers) > maxFilesPerUpload:
		response.Fail(c, http.StatusBadRequest, response.ErrTooManyFiles)
		return
	}

	stored, err := h.mediaService.SaveUploads(headers)
	if err != nil {
		failWith(c, err)
		return
	}
	response.Success(c, http.StatusOK, stored)
}
