// handlers_upload.go - Spreadsheet upload forwarding
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/sma-monitor/dashboard/internal/backend"
	"github.com/sma-monitor/dashboard/internal/upload"
)

// multipartSlack allows for form boundaries and headers on top of the file.
const multipartSlack = 1 << 20

// UploadHandlerImpl implements the UploadHandler interface
type UploadHandlerImpl struct {
	backend  Backend
	maxBytes int64
	logger   *slog.Logger
}

// NewUploadHandler creates a new upload handler instance
func NewUploadHandler(b Backend, maxBytes int64, logger *slog.Logger) UploadHandler {
	if maxBytes <= 0 {
		maxBytes = upload.MaxFileSize
	}
	return &UploadHandlerImpl{
		backend:  b,
		maxBytes: maxBytes,
		logger:   logger,
	}
}

// HandleUploadExcel accepts a single spreadsheet in multipart field "file" and
// streams it to the backend, returning the backend reply unchanged.
func (h *UploadHandlerImpl) HandleUploadExcel(c echo.Context) error {
	req := c.Request()
	req.Body = http.MaxBytesReader(c.Response(), req.Body, h.maxBytes+multipartSlack)

	file, err := c.FormFile("file")
	if err != nil {
		return uploadFormError(err)
	}

	contentType := file.Header.Get(echo.HeaderContentType)
	if err := upload.Validate(file.Filename, contentType, file.Size, h.maxBytes); err != nil {
		if errors.Is(err, upload.ErrNoFile) {
			return noFileError()
		}
		return NewValidationError(err.Error(), nil)
	}

	src, err := file.Open()
	if err != nil {
		return NewInternalError("failed to open uploaded file", err)
	}
	defer src.Close()

	h.logger.Info("forwarding spreadsheet", "name", file.Filename, "size", file.Size)

	out, err := h.backend.UploadExcel(req.Context(), file.Filename, contentType, src)
	if err != nil {
		h.logger.Error("spreadsheet upload failed", "name", file.Filename, "error", err)
		return NewUpstreamError("error processing the Excel file").WithDetails(upstreamDetails(err))
	}

	return respondPayload(c, out)
}

func uploadFormError(err error) *APIError {
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) || strings.Contains(err.Error(), "request body too large") {
		return NewValidationError(upload.ErrTooLarge.Error(), nil)
	}
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return noFileError()
	}
	return NewBadRequestError("upload error", err)
}

func noFileError() *APIError {
	return NewValidationError(upload.ErrNoFile.Error(), `make sure the file is sent in the "file" form field`)
}

// upstreamDetails is the backend's own error body when there is one, parsed
// when it is JSON, or the transport error message.
func upstreamDetails(err error) any {
	var upErr *backend.UpstreamError
	if !errors.As(err, &upErr) || len(upErr.Body) == 0 {
		return err.Error()
	}
	var parsed any
	if json.Unmarshal(upErr.Body, &parsed) == nil {
		return parsed
	}
	return string(upErr.Body)
}
