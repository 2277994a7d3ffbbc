package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-publisher/internal/models"
	appErrors "github.com/noah-isme/lms-publisher/pkg/errors"
	"github.com/noah-isme/lms-publisher/pkg/response"
)

type sweepRunner interface {
	RunSweep(ctx context.Context, now time.Time) models.SweepReport
}

// PublisherHandler lets admins trigger the publication sweep on demand.
type PublisherHandler struct {
	sweeper sweepRunner
	clock   func() time.Time
}

// NewPublisherHandler builds the handler.
func NewPublisherHandler(sweeper sweepRunner) *PublisherHandler {
	return &PublisherHandler{sweeper: sweeper, clock: time.Now}
}

// Sweep godoc
// @Summary Run the scheduled publication sweep
// @Tags Publisher
// @Produce json
// @Param now query string false "Reference time (RFC3339), defaults to server time"
// @Success 200 {object} response.Envelope
// @Router /publisher/sweep [post]
func (h *PublisherHandler) Sweep(c *gin.Context) {
	now := h.clock().UTC()
	if raw := c.Query("now"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "now must be RFC3339"))
			return
		}
		now = parsed.UTC()
	}
	report := h.sweeper.RunSweep(c.Request.Context(), now)
	response.JSON(c, http.StatusOK, report, nil, map[string]interface{}{"has_failures": report.HasFailures()})
}
