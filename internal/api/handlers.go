package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/digkill/resumegate/internal/models"
	"github.com/digkill/resumegate/internal/service"
)

const (
	msgPayloadTooLarge   = "Payload too large"
	msgInvalidJSON       = "Invalid JSON body"
	msgInvalidSubmission = "Invalid submission"
	msgMissingData       = "Missing required data"
	msgPaymentRequired   = "Payment required: Please complete your purchase."
	msgNoCredits         = "No credits remaining."
	msgGenerationInvalid = "Failed to generate valid content. Please try again."
	msgUnavailable       = "Service currently unavailable"
	msgVerifyUnexpected  = "An unexpected error occurred during the verification process."
)

type verifyRequest struct {
	Identifier  string `json:"identifier"`
	PaymentID   string `json:"paymentId"`
	OrderID     string `json:"orderId"`
	Signature   string `json:"signature"`
	PackageType string `json:"packageType"`
}

type verifyResponse struct {
	Success     bool               `json:"success"`
	Credits     int                `json:"credits"`
	PackageType models.PackageType `json:"packageType"`
}

type generateRequest struct {
	Identifier string          `json:"identifier"`
	UserData   *models.Profile `json:"userData"`
	Feedback   string          `json:"feedback"`
	BotCheck   json.RawMessage `json:"botCheck"`
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Identifier) == "" || strings.TrimSpace(req.PaymentID) == "" {
		s.writeError(w, http.StatusBadRequest, "Incomplete payment information received.")
		return
	}
	pkg, err := models.ParsePackageType(req.PackageType)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "A valid package type is required.")
		return
	}

	record, err := s.verifier.Verify(r.Context(), req.Identifier, models.PaymentClaim{
		PaymentID:   req.PaymentID,
		OrderID:     req.OrderID,
		Signature:   req.Signature,
		PackageType: pkg,
	})
	if err != nil {
		s.writeServiceError(w, r, err, msgVerifyUnexpected)
		return
	}

	s.writeJSON(w, http.StatusOK, verifyResponse{
		Success:     true,
		Credits:     record.Credits,
		PackageType: record.PackageType,
	})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if honeypotFilled(req.BotCheck) {
		s.log.Warn("honeypot triggered", "remote", clientIP(r))
		s.writeServiceError(w, r, service.ErrHoneypot, msgUnavailable)
		return
	}
	if strings.TrimSpace(req.Identifier) == "" || req.UserData == nil {
		s.writeError(w, http.StatusBadRequest, msgMissingData)
		return
	}
	if err := s.opts.Limits.CheckProfile(*req.UserData); err != nil {
		s.writeServiceError(w, r, err, msgUnavailable)
		return
	}

	doc, err := s.gateway.AuthorizeAndGenerate(r.Context(), service.GenerationRequest{
		Identifier: req.Identifier,
		Profile:    *req.UserData,
		Feedback:   req.Feedback,
	})
	if err != nil {
		s.writeServiceError(w, r, err, msgUnavailable)
		return
	}
	s.writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.plans.List())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.health.Ping(ctx); err != nil {
			s.log.Error("health check failed", "err", err)
			s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLookupEntitlement(w http.ResponseWriter, r *http.Request) {
	identifier := r.URL.Query().Get("identifier")
	hashedID, record, err := s.entitlement.Lookup(r.Context(), identifier)
	if err != nil {
		s.writeServiceError(w, r, err, msgUnavailable)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"hashedId": hashedID,
		"found":    record != nil,
		"record":   record,
	})
}

// decodeBody reads at most MaxPayloadBytes and decodes JSON into dst. It writes
// the error response itself and reports whether the handler may continue.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.ContentLength > s.opts.MaxPayloadBytes {
		s.writeError(w, http.StatusRequestEntityTooLarge, msgPayloadTooLarge)
		return false
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.opts.MaxPayloadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, msgPayloadTooLarge)
			return false
		}
		s.writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		s.writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return false
	}
	return true
}

// honeypotFilled treats any truthy JSON value as a bot submission.
func honeypotFilled(raw json.RawMessage) bool {
	v := bytes.TrimSpace(raw)
	if len(v) == 0 {
		return false
	}
	switch string(v) {
	case "null", "false", `""`, "0":
		return false
	}
	return true
}
