package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-publisher/internal/dto"
	"github.com/noah-isme/lms-publisher/internal/models"
	appErrors "github.com/noah-isme/lms-publisher/pkg/errors"
	"github.com/noah-isme/lms-publisher/pkg/export"
	"github.com/noah-isme/lms-publisher/pkg/response"
)

type storageAdminService interface {
	Get(ctx context.Context) (*models.StorageConfig, error)
	Create(ctx context.Context, req dto.CreateStorageConfigRequest) (*models.StorageConfig, error)
	Update(ctx context.Context, req dto.UpdateStorageConfigRequest) (*models.StorageConfig, error)
	Usage(ctx context.Context) (*models.UsageSnapshot, error)
	CheckThreshold(ctx context.Context) dto.ThresholdCheckResponse
	ExportUsage(ctx context.Context, format export.Format) (*export.File, error)
}

// StorageHandler exposes storage configuration and usage endpoints.
type StorageHandler struct {
	service storageAdminService
}

// NewStorageHandler builds the handler.
func NewStorageHandler(service storageAdminService) *StorageHandler {
	return &StorageHandler{service: service}
}

// GetConfig godoc
// @Summary Get storage configuration
// @Tags Storage
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /storage/config [get]
func (h *StorageHandler) GetConfig(c *gin.Context) {
	cfg, err := h.service.Get(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cfg, nil)
}

// CreateConfig godoc
// @Summary Create storage configuration
// @Tags Storage
// @Accept json
// @Produce json
// @Param payload body dto.CreateStorageConfigRequest true "Storage configuration"
// @Success 201 {object} response.Envelope
// @Router /storage/config [post]
func (h *StorageHandler) CreateConfig(c *gin.Context) {
	var req dto.CreateStorageConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid storage configuration payload"))
		return
	}
	cfg, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, cfg)
}

// UpdateConfig godoc
// @Summary Update storage configuration
// @Tags Storage
// @Accept json
// @Produce json
// @Param payload body dto.UpdateStorageConfigRequest true "Storage configuration patch"
// @Success 200 {object} response.Envelope
// @Router /storage/config [put]
func (h *StorageHandler) UpdateConfig(c *gin.Context) {
	var req dto.UpdateStorageConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid storage configuration payload"))
		return
	}
	cfg, err := h.service.Update(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cfg, nil)
}

// Usage godoc
// @Summary Current storage usage
// @Tags Storage
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /storage/usage [get]
func (h *StorageHandler) Usage(c *gin.Context) {
	usage, err := h.service.Usage(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, usage, nil)
}

// ExportUsage godoc
// @Summary Download a storage usage report
// @Tags Storage
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /storage/usage/export [get]
func (h *StorageHandler) ExportUsage(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "format must be csv or pdf"))
		return
	}
	file, err := h.service.ExportUsage(c.Request.Context(), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.Filename, file.ContentType, file.Data)
}

// CheckThreshold godoc
// @Summary Run the storage threshold check now
// @Description Respects the alert cooldown, exactly like the periodic check.
// @Tags Storage
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /storage/check [post]
func (h *StorageHandler) CheckThreshold(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.CheckThreshold(c.Request.Context()), nil)
}
