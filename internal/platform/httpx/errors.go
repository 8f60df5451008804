// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/panelkit/panel/internal/shared"
)

// Sentinel errors shared by handlers and the domain layer.
var (
	ErrValidation = errors.New("validation failed")
	ErrBadRequest = errors.New("malformed request body")
)

// Generic codes for errors that carry no business code.
const (
	CodeBadRequest = 400
	CodeNotFound   = 404
	CodeInternal   = 500
)

// RespondError maps errors to the JSON envelope. Coded errors keep their code and message;
// anything unknown is logged and reported as a generic internal error.
func RespondError(w http.ResponseWriter, logger *slog.Logger, err error) {
	if coded, ok := shared.AsCoded(err); ok {
		Write(w, coded.Status, Envelope{Code: coded.Code, Message: coded.Message})
		return
	}
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrBadRequest):
		Write(w, http.StatusBadRequest, Envelope{Code: CodeBadRequest, Message: err.Error()})
	case errors.Is(err, shared.ErrNotFound):
		Write(w, http.StatusNotFound, Envelope{Code: CodeNotFound, Message: "resource not found"})
	default:
		if logger == nil {
			logger = slog.Default()
		}
		logger.Error("unhandled error", slog.Any("error", err))
		Write(w, http.StatusInternalServerError, Envelope{Code: CodeInternal, Message: "internal server error"})
	}
}
