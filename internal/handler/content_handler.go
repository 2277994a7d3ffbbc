package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-publisher/internal/dto"
	"github.com/noah-isme/lms-publisher/internal/middleware"
	"github.com/noah-isme/lms-publisher/internal/models"
	appErrors "github.com/noah-isme/lms-publisher/pkg/errors"
	"github.com/noah-isme/lms-publisher/pkg/response"
)

type contentService interface {
	ListScheduled(ctx context.Context, kind models.ContentKind, query dto.ListScheduledQuery) ([]models.PublishableItem, *models.Pagination, error)
	UpdatePublication(ctx context.Context, kind models.ContentKind, id string, req dto.UpdatePublicationRequest, actor *models.JWTClaims) (*dto.PublicationResponse, error)
	Notify(ctx context.Context, kind models.ContentKind, id string, actor *models.JWTClaims) (*models.DeliveryReport, error)
	Delete(ctx context.Context, kind models.ContentKind, id string, actor *models.JWTClaims) error
}

// ContentHandler exposes publication endpoints for materials and assignments.
type ContentHandler struct {
	service contentService
}

// NewContentHandler builds the handler.
func NewContentHandler(service contentService) *ContentHandler {
	return &ContentHandler{service: service}
}

func contentKind(c *gin.Context) (models.ContentKind, bool) {
	kind, ok := models.ParseContentKind(c.Param("kind"))
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "unknown content kind"))
	}
	return kind, ok
}

// ListScheduled godoc
// @Summary List scheduled content
// @Tags Content
// @Produce json
// @Param kind path string true "materials or assignments"
// @Param course_id query string false "Course filter"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /content/{kind}/scheduled [get]
func (h *ContentHandler) ListScheduled(c *gin.Context) {
	kind, ok := contentKind(c)
	if !ok {
		return
	}
	var query dto.ListScheduledQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	items, pagination, err := h.service.ListScheduled(c.Request.Context(), kind, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// UpdatePublication godoc
// @Summary Publish, schedule or unpublish content
// @Tags Content
// @Accept json
// @Produce json
// @Param kind path string true "materials or assignments"
// @Param id path string true "Content ID"
// @Param payload body dto.UpdatePublicationRequest true "Publication settings"
// @Success 200 {object} response.Envelope
// @Router /content/{kind}/{id}/publication [put]
func (h *ContentHandler) UpdatePublication(c *gin.Context) {
	kind, ok := contentKind(c)
	if !ok {
		return
	}
	var req dto.UpdatePublicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid publication payload"))
		return
	}
	resp, err := h.service.UpdatePublication(c.Request.Context(), kind, c.Param("id"), req, currentActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// Notify godoc
// @Summary Re-send the publication email
// @Tags Content
// @Produce json
// @Param kind path string true "materials or assignments"
// @Param id path string true "Content ID"
// @Success 200 {object} response.Envelope
// @Router /content/{kind}/{id}/notify [post]
func (h *ContentHandler) Notify(c *gin.Context) {
	kind, ok := contentKind(c)
	if !ok {
		return
	}
	report, err := h.service.Notify(c.Request.Context(), kind, c.Param("id"), currentActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Delete godoc
// @Summary Delete content and its stored files
// @Tags Content
// @Param kind path string true "materials or assignments"
// @Param id path string true "Content ID"
// @Success 204
// @Router /content/{kind}/{id} [delete]
func (h *ContentHandler) Delete(c *gin.Context) {
	kind, ok := contentKind(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), kind, c.Param("id"), currentActor(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// currentActor may return nil; the service answers that with 401.
func currentActor(c *gin.Context) *models.JWTClaims {
	claims, _ := middleware.CurrentUser(c)
	return claims
}
