package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-publisher/internal/dto"
	"github.com/noah-isme/lms-publisher/internal/middleware"
	"github.com/noah-isme/lms-publisher/internal/service"
	appErrors "github.com/noah-isme/lms-publisher/pkg/errors"
	"github.com/noah-isme/lms-publisher/pkg/response"
)

type submissionService interface {
	Submit(ctx context.Context, assignmentID, studentID string, upload service.SubmissionUpload) (*dto.SubmissionResponse, error)
	MaxBytes() int64
}

// multipart framing allowance on top of the file limit
const multipartOverhead = 1 << 20

// SubmissionHandler accepts student uploads for assignments.
type SubmissionHandler struct {
	service submissionService
}

// NewSubmissionHandler builds the handler.
func NewSubmissionHandler(service submissionService) *SubmissionHandler {
	return &SubmissionHandler{service: service}
}

// Submit godoc
// @Summary Upload a submission for an assignment
// @Tags Submissions
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Assignment ID"
// @Param file formData file true "Submission file"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Router /assignments/{id}/submissions [post]
func (h *SubmissionHandler) Submit(c *gin.Context) {
	claims, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.service.MaxBytes()+multipartOverhead)
	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			response.Error(c, appErrors.Clone(appErrors.ErrPayloadTooLarge, "file is too large"))
			return
		}
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "file is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable upload"))
		return
	}
	defer file.Close()

	resp, err := h.service.Submit(c.Request.Context(), c.Param("id"), claims.UserID, service.SubmissionUpload{
		Filename: header.Filename,
		Size:     header.Size,
		Body:     file,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, resp)
}
