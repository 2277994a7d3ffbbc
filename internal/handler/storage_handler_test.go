package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-publisher/internal/dto"
	"github.com/noah-isme/lms-publisher/internal/models"
	appErrors "github.com/noah-isme/lms-publisher/pkg/errors"
	"github.com/noah-isme/lms-publisher/pkg/export"
)

type storageAdminMock struct {
	cfg        *models.StorageConfig
	getErr     error
	created    *dto.CreateStorageConfigRequest
	exportFmt  export.Format
	checkCalls int
}

func (m *storageAdminMock) Get(ctx context.Context) (*models.StorageConfig, error) {
	return m.cfg, m.getErr
}

func (m *storageAdminMock) Create(ctx context.Context, req dto.CreateStorageConfigRequest) (*models.StorageConfig, error) {
	m.created = &req
	return &models.StorageConfig{ID: "cfg-1", TotalStorageGB: req.TotalStorageGB}, nil
}

func (m *storageAdminMock) Update(ctx context.Context, req dto.UpdateStorageConfigRequest) (*models.StorageConfig, error) {
	return m.cfg, nil
}

func (m *storageAdminMock) Usage(ctx context.Context) (*models.UsageSnapshot, error) {
	return &models.UsageSnapshot{UsedPercent: 42}, nil
}

func (m *storageAdminMock) CheckThreshold(ctx context.Context) dto.ThresholdCheckResponse {
	m.checkCalls++
	return dto.ThresholdCheckResponse{AlertSent: true, Outcome: "SENT", UsedPercent: 85, Threshold: 80}
}

func (m *storageAdminMock) ExportUsage(ctx context.Context, format export.Format) (*export.File, error) {
	m.exportFmt = format
	return &export.File{Filename: "storage-usage.pdf", ContentType: "application/pdf", Data: []byte("%PDF")}, nil
}

func TestStorageHandlerGetConfigNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewStorageHandler(&storageAdminMock{getErr: appErrors.Clone(appErrors.ErrNotFound, "storage configuration not created")})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/storage/config", nil)

	handler.GetConfig(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStorageHandlerCreateConfig(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &storageAdminMock{}
	handler := NewStorageHandler(mock)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/storage/config", bytes.NewBufferString(`{"total_storage_gb":30,"alert_threshold_percent":75}`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.CreateConfig(c)
	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, mock.created)
	assert.Equal(t, 30, mock.created.TotalStorageGB)
	require.NotNil(t, mock.created.AlertThresholdPercent)
	assert.Equal(t, 75, *mock.created.AlertThresholdPercent)
}

func TestStorageHandlerCreateConfigInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewStorageHandler(&storageAdminMock{})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/storage/config", bytes.NewBufferString(`{`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.CreateConfig(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStorageHandlerExportUsage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &storageAdminMock{}
	handler := NewStorageHandler(mock)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/storage/usage/export?format=PDF", nil)

	handler.ExportUsage(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, export.FormatPDF, mock.exportFmt)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "storage-usage.pdf")
}

func TestStorageHandlerExportUsageRejectsFormat(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewStorageHandler(&storageAdminMock{})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/storage/usage/export?format=xlsx", nil)

	handler.ExportUsage(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStorageHandlerCheckThreshold(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &storageAdminMock{}
	handler := NewStorageHandler(mock)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/storage/check", nil)

	handler.CheckThreshold(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, mock.checkCalls)
	assert.Contains(t, w.Body.String(), `"alert_sent":true`)
}
