package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-publisher/pkg/storage"
)

func newDownloadFixture(t *testing.T) (*DownloadHandler, *storage.SignedURLSigner, *storage.LocalStorage) {
	t.Helper()
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	_, err = files.SaveStream("materials/guia.pdf", strings.NewReader("%PDF-1.4 guia"))
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	return NewDownloadHandler(signer, files), signer, files
}

func TestDownloadHandlerServesSignedFile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, signer, _ := newDownloadFixture(t)
	token, _, err := signer.Generate("mat-1", "materials/guia.pdf")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/downloads/"+token, nil)
	c.Params = gin.Params{{Key: "token", Value: token}}

	handler.Download(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "%PDF-1.4 guia", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "guia.pdf")
}

func TestDownloadHandlerRejectsTamperedToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _, _ := newDownloadFixture(t)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/downloads/garbage", nil)
	c.Params = gin.Params{{Key: "token", Value: "garbage"}}

	handler.Download(c)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestDownloadHandlerMissingFile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, signer, files := newDownloadFixture(t)
	token, _, err := signer.Generate("mat-1", "materials/guia.pdf")
	require.NoError(t, err)
	require.NoError(t, files.Delete("materials/guia.pdf"))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/downloads/"+token, nil)
	c.Params = gin.Params{{Key: "token", Value: token}}

	handler.Download(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
