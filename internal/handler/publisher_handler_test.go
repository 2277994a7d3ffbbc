package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-publisher/internal/models"
)

type sweepRunnerMock struct {
	gotNow time.Time
	report models.SweepReport
}

func (m *sweepRunnerMock) RunSweep(ctx context.Context, now time.Time) models.SweepReport {
	m.gotNow = now
	m.report.Now = now
	return m.report
}

func TestPublisherHandlerSweepUsesQueryTime(t *testing.T) {
	gin.SetMode(gin.TestMode)
	report := models.NewSweepReport(time.Time{})
	report.Published[models.ContentKindMaterial] = 2
	mock := &sweepRunnerMock{report: report}
	handler := NewPublisherHandler(mock)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/publisher/sweep?now=2024-05-01T11:00:00%2B02:00", nil)

	handler.Sweep(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mock.gotNow.Equal(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)))

	var body struct {
		Meta map[string]interface{} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body.Meta["has_failures"])
}

func TestPublisherHandlerSweepRejectsBadTime(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &sweepRunnerMock{}
	handler := NewPublisherHandler(mock)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/publisher/sweep?now=yesterday", nil)

	handler.Sweep(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.True(t, mock.gotNow.IsZero())
}
