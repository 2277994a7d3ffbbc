package errors

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorWrapsUnknown(t *testing.T) {
	err := FromError(sql.ErrConnDone)
	assert.Equal(t, ErrInternal.Code, err.Code)
	assert.Equal(t, http.StatusInternalServerError, err.Status)
	assert.True(t, errors.Is(err, sql.ErrConnDone))
}

func TestCloneMatchesPredefined(t *testing.T) {
	clone := Clone(ErrNotFound, "storage config not found")
	wrapped := fmt.Errorf("lookup: %w", clone)

	assert.True(t, errors.Is(wrapped, ErrNotFound))
	assert.False(t, errors.Is(wrapped, ErrConflict))
	assert.Equal(t, "storage config not found", FromError(wrapped).Message)
	assert.Equal(t, "resource not found", ErrNotFound.Message)
}

func TestCacheMissSentinel(t *testing.T) {
	err := fmt.Errorf("redis get storage:usage:stats: %w", ErrCacheMiss)
	assert.True(t, errors.Is(err, ErrCacheMiss))
}
