package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/digkill/resumegate/internal/service"
)

type errorResponse struct {
	Error string `json:"error"`
}

// writeServiceError maps the service error taxonomy onto status codes. Causes
// are logged; only fixed messages and verification reasons reach the client.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var (
		validation   *service.ValidationError
		verification *service.VerificationError
		upstream     *service.UpstreamError
	)
	switch {
	case errors.As(err, &validation):
		s.writeError(w, http.StatusBadRequest, validation.Error())
	case errors.As(err, &verification):
		switch verification.Kind {
		case service.KindMissingFields:
			s.writeError(w, http.StatusBadRequest, verification.Reason)
		case service.KindTransport:
			s.writeError(w, http.StatusInternalServerError, verification.Reason)
		default:
			s.writeError(w, http.StatusForbidden, "Security Check Failed: "+verification.Reason)
		}
	case errors.Is(err, service.ErrPaymentRequired):
		s.writeError(w, http.StatusPaymentRequired, msgPaymentRequired)
	case errors.Is(err, service.ErrCreditsExhausted):
		s.writeError(w, http.StatusPaymentRequired, msgNoCredits)
	case errors.Is(err, service.ErrUnauthorizedOrigin):
		s.writeError(w, http.StatusForbidden, "Unauthorized origin")
	case errors.Is(err, service.ErrHoneypot):
		s.writeError(w, http.StatusBadRequest, msgInvalidSubmission)
	case errors.Is(err, service.ErrGenerationInvalid):
		s.writeError(w, http.StatusInternalServerError, msgGenerationInvalid)
	case errors.As(err, &upstream):
		s.log.Error("upstream failure", "op", upstream.Op, "err", upstream.Err, "path", r.URL.Path)
		s.writeError(w, http.StatusInternalServerError, fallback)
	case errors.Is(err, context.Canceled):
		s.log.Info("client went away", "path", r.URL.Path)
		s.writeError(w, http.StatusInternalServerError, fallback)
	default:
		s.log.Error("request failed", "path", r.URL.Path, "err", err)
		s.writeError(w, http.StatusInternalServerError, fallback)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, errorResponse{Error: message})
}
