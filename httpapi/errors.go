package httpapi

import (
	"errors"
	"net/http"

	svcwatch "github.com/svcwatch/svcwatch"
	"github.com/svcwatch/svcwatch/internal/transfer"
)

type errorResponse struct {
	Detail string `json:"detail"`
}

// statusFromError translates the engine's sentinel errors into HTTP status
// codes. Unknown errors are internal by definition and their detail is not
// exposed to the client.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, svcwatch.ErrInvalidCredentials),
		errors.Is(err, svcwatch.ErrMissingToken),
		errors.Is(err, svcwatch.ErrInvalidOrExpiredToken),
		errors.Is(err, svcwatch.ErrTOTPRequired),
		errors.Is(err, transfer.ErrInvalidLink):
		return http.StatusUnauthorized
	case errors.Is(err, svcwatch.ErrInactiveUser),
		errors.Is(err, svcwatch.ErrSamePassword),
		errors.Is(err, svcwatch.ErrPasswordPolicy),
		errors.Is(err, svcwatch.ErrTOTPInvalid),
		errors.Is(err, svcwatch.ErrTOTPNotEnabled),
		errors.Is(err, svcwatch.ErrTOTPNotInitialized):
		return http.StatusBadRequest
	case errors.Is(err, svcwatch.ErrForbidden),
		errors.Is(err, svcwatch.ErrSelfModification),
		errors.Is(err, svcwatch.ErrRefreshReuse),
		errors.Is(err, transfer.ErrKindMismatch):
		return http.StatusForbidden
	case errors.Is(err, svcwatch.ErrUserNotFound),
		errors.Is(err, svcwatch.ErrServiceNotFound),
		errors.Is(err, transfer.ErrTempUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, svcwatch.ErrEmailExists),
		errors.Is(err, svcwatch.ErrServiceExists),
		errors.Is(err, svcwatch.ErrTOTPAlreadyEnabled):
		return http.StatusConflict
	case errors.Is(err, svcwatch.ErrLoginRateLimited),
		errors.Is(err, svcwatch.ErrRefreshRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, svcwatch.ErrMailDelivery):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFromError(err)
	detail := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
		detail = "internal server error"
	}
	s.writeJSON(w, status, errorResponse{Detail: detail})
}

func (s *Server) badRequest(w http.ResponseWriter, detail string) {
	s.writeJSON(w, http.StatusBadRequest, errorResponse{Detail: detail})
}
