package handler

import (
	"errors"
	"net/http"
	"os"
	"path"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/lms-publisher/pkg/errors"
	"github.com/noah-isme/lms-publisher/pkg/response"
	"github.com/noah-isme/lms-publisher/pkg/storage"
)

type downloadTokenParser interface {
	Parse(token string) (resourceID, relPath string, err error)
}

type fileOpener interface {
	Open(name string) (*os.File, error)
}

// DownloadHandler serves stored files behind signed, expiring links.
type DownloadHandler struct {
	tokens downloadTokenParser
	files  fileOpener
}

// NewDownloadHandler builds the handler.
func NewDownloadHandler(tokens downloadTokenParser, files fileOpener) *DownloadHandler {
	return &DownloadHandler{tokens: tokens, files: files}
}

// Download godoc
// @Summary Download a file through a signed link
// @Tags Downloads
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Router /downloads/{token} [get]
func (h *DownloadHandler) Download(c *gin.Context) {
	_, relPath, err := h.tokens.Parse(c.Param("token"))
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "download link expired"))
			return
		}
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "invalid download link"))
		return
	}

	file, err := h.files.Open(relPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "file not found"))
			return
		}
		if errors.Is(err, storage.ErrInvalidPath) {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "invalid download link"))
			return
		}
		response.Error(c, err)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, err)
		return
	}
	name := path.Base(relPath)
	response.Attachment(c, name)
	http.ServeContent(c.Writer, c.Request, name, info.ModTime(), file)
}
