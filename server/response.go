package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/fernandomesquita/stenopro/errors"
	"github.com/fernandomesquita/stenopro/logger"
)

// DataResponse is the standard success envelope.
type DataResponse struct {
	Data any `json:"data"`
	Meta any `json:"meta,omitempty"`
}

// RespondWithError inspects err: if it is an *apperrors.AppError the status and
// structured body are derived automatically; otherwise a generic 500 is sent.
// Server-side failures are logged with the request ID.
func RespondWithError(c *gin.Context, err error) {
	_ = c.Error(err)

	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		err = apperrors.PayloadTooLarge(maxBytes.Limit).WithCause(err)
	}

	appErr := apperrors.Wrap(err)
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		logger.Get("server").WithContext(c.Request.Context()).Error("Request failed", logger.Fields(
			"path", c.Request.URL.Path,
			logger.FieldError, err.Error(),
		))
	}
	c.JSON(appErr.HTTPStatus, appErr.ToResponse())
}

// RespondOK sends a 200 response wrapping data.
func RespondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, DataResponse{Data: data})
}

// RespondOKWithMeta sends a 200 response with data and metadata such as
// pagination.
func RespondOKWithMeta(c *gin.Context, data any, meta any) {
	c.JSON(http.StatusOK, DataResponse{Data: data, Meta: meta})
}

// RespondCreated sends a 201 response wrapping data.
func RespondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, DataResponse{Data: data})
}

// RespondAccepted sends a 202 response wrapping data.
func RespondAccepted(c *gin.Context, data any) {
	c.JSON(http.StatusAccepted, DataResponse{Data: data})
}

// RespondNoContent sends a 204 with no body.
func RespondNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
