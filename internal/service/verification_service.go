package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/digkill/resumegate/internal/events"
	"github.com/digkill/resumegate/internal/identity"
	"github.com/digkill/resumegate/internal/metrics"
	"github.com/digkill/resumegate/internal/models"
	"github.com/digkill/resumegate/internal/razorpay"
)

const (
	PathSignature    = "signature"
	PathStatusLookup = "status_lookup"

	providerRazorpay = "razorpay"
)

// VerificationService turns a payment claim into an entitlement record.
type VerificationService struct {
	log      *slog.Logger
	hasher   *identity.Hasher
	store    EntitlementStore
	provider PaymentFetcher
	secret   string

	fallback bool
	ledger   PaymentLedger
	events   EventSink
	now      func() time.Time
}

func NewVerificationService(log *slog.Logger, hasher *identity.Hasher, store EntitlementStore, provider PaymentFetcher, keySecret string) *VerificationService {
	return &VerificationService{
		log:      log,
		hasher:   hasher,
		store:    store,
		provider: provider,
		secret:   keySecret,
		fallback: true,
		now:      time.Now,
	}
}

// WithStatusFallback toggles the provider status lookup used when the
// signature is absent or does not match.
func (s *VerificationService) WithStatusFallback(enabled bool) *VerificationService {
	s.fallback = enabled
	return s
}

func (s *VerificationService) WithLedger(ledger PaymentLedger) *VerificationService {
	s.ledger = ledger
	return s
}

func (s *VerificationService) WithEvents(sink EventSink) *VerificationService {
	s.events = sink
	return s
}

// Verify checks the claim and, on the first success for a payment, writes a
// fresh grant for the claimed package. A payment is single use: verifying it
// again returns the current record unchanged, and any other identity is
// rejected. Nothing is written on failure.
func (s *VerificationService) Verify(ctx context.Context, identifier string, claim models.PaymentClaim) (*models.EntitlementRecord, error) {
	claim.PaymentID = strings.TrimSpace(claim.PaymentID)
	if strings.TrimSpace(identifier) == "" || claim.PaymentID == "" {
		return nil, &VerificationError{Kind: KindMissingFields, Reason: "Incomplete payment information received."}
	}
	if !claim.PackageType.Valid() {
		return nil, &VerificationError{Kind: KindMissingFields, Reason: "A valid package type is required."}
	}

	path, status, err := s.confirm(ctx, claim)
	if err != nil {
		s.recordFailure(claim, err)
		return nil, err
	}

	hashedID := s.hasher.Hash(identifier)

	owner, fresh, err := s.store.ClaimPayment(ctx, claim.PaymentID, hashedID)
	if err != nil {
		return nil, fmt.Errorf("claim payment: %w", err)
	}
	if owner != hashedID {
		verr := &VerificationError{Kind: KindReplay, Reason: "Payment has already been used for a different account."}
		s.recordFailure(claim, verr)
		return nil, verr
	}
	if !fresh {
		current, err := s.store.Get(ctx, hashedID)
		if err != nil {
			return nil, fmt.Errorf("load entitlement: %w", err)
		}
		// A missing record means an earlier attempt claimed the payment but
		// failed before writing the grant; that attempt is completed below.
		if current != nil {
			metrics.VerificationsTotal.WithLabelValues(path, "already_verified").Inc()
			s.log.Info("payment already verified",
				"payment_id", claim.PaymentID,
				"hashed_id", hashedID,
				"credits", current.Credits,
			)
			return current, nil
		}
	}

	if s.ledger != nil {
		owner, err := s.ledger.Claim(ctx, &models.Payment{
			HashedID:       hashedID,
			Provider:       providerRazorpay,
			ProviderCharge: claim.PaymentID,
			OrderID:        strings.TrimSpace(claim.OrderID),
			PackageType:    claim.PackageType,
			Method:         path,
			Status:         status,
		})
		if err != nil {
			return nil, fmt.Errorf("record payment: %w", err)
		}
		if owner != "" && owner != hashedID {
			verr := &VerificationError{Kind: KindReplay, Reason: "Payment has already been used for a different account."}
			s.recordFailure(claim, verr)
			return nil, verr
		}
	}

	record := models.EntitlementRecord{
		VerifiedAt:  s.now().UTC(),
		Credits:     models.InitialCredits,
		PackageType: claim.PackageType,
	}
	if err := s.store.Set(ctx, hashedID, record); err != nil {
		return nil, fmt.Errorf("store entitlement: %w", err)
	}

	metrics.VerificationsTotal.WithLabelValues(path, "verified").Inc()
	s.log.Info("payment verified",
		"payment_id", claim.PaymentID,
		"path", path,
		"tier", claim.PackageType.Tier(),
		"hashed_id", hashedID,
	)

	if s.events != nil {
		evt := events.New(events.TypePaymentVerified, hashedID, record.PackageType, record.Credits)
		evt.PaymentID = claim.PaymentID
		evt.VerificationPath = path
		if err := s.events.Publish(ctx, evt); err != nil {
			s.log.Warn("publish payment event failed", "payment_id", claim.PaymentID, "err", err)
		}
	}

	return &record, nil
}

// confirm returns the path that proved the payment and the provider status
// when a lookup was made.
func (s *VerificationService) confirm(ctx context.Context, claim models.PaymentClaim) (string, string, error) {
	var sigErr error
	if strings.TrimSpace(claim.OrderID) != "" && strings.TrimSpace(claim.Signature) != "" {
		if razorpay.VerifySignature(claim.OrderID, claim.PaymentID, claim.Signature, s.secret) {
			return PathSignature, "", nil
		}
		sigErr = &VerificationError{Kind: KindSignatureMismatch, Reason: "Signature verification mismatch."}
		s.log.Warn("payment signature mismatch", "payment_id", claim.PaymentID, "fallback", s.fallback)
	}

	if !s.fallback {
		if sigErr != nil {
			return "", "", sigErr
		}
		return "", "", &VerificationError{Kind: KindMissingFields, Reason: "Order id and signature are required."}
	}

	payment, err := s.provider.FetchPayment(ctx, claim.PaymentID)
	if err != nil {
		var apiErr *razorpay.APIError
		if errors.As(err, &apiErr) {
			return "", "", &VerificationError{Kind: KindProviderRejected, Reason: apiErr.Error(), Err: err}
		}
		s.log.Error("payment provider unreachable", "payment_id", claim.PaymentID, "err", err)
		return "", "", &VerificationError{
			Kind:   KindTransport,
			Reason: "Network Error: could not reach the payment provider.",
			Err:    err,
		}
	}

	if !payment.Settled() {
		return "", "", &VerificationError{
			Kind:   KindProviderRejected,
			Status: payment.Status,
			Reason: fmt.Sprintf("Payment status is '%s', expected 'captured' or 'authorized'.", payment.Status),
		}
	}
	if price, ok := models.Pricing[claim.PackageType]; ok && payment.Amount < int64(price.AmountPaise) {
		return "", "", &VerificationError{
			Kind:   KindProviderRejected,
			Status: payment.Status,
			Reason: fmt.Sprintf("Payment amount %d does not cover the %s package.", payment.Amount, claim.PackageType),
		}
	}
	if orderID := strings.TrimSpace(claim.OrderID); orderID != "" && payment.OrderID != "" && payment.OrderID != orderID {
		return "", "", &VerificationError{
			Kind:   KindSignatureMismatch,
			Status: payment.Status,
			Reason: "Payment does not belong to the supplied order.",
		}
	}

	return PathStatusLookup, payment.Status, nil
}

func (s *VerificationService) recordFailure(claim models.PaymentClaim, err error) {
	kind := "error"
	var verr *VerificationError
	if errors.As(err, &verr) {
		kind = string(verr.Kind)
	}
	path := PathStatusLookup
	if !s.fallback {
		path = PathSignature
	}
	metrics.VerificationsTotal.WithLabelValues(path, kind).Inc()
	s.log.Warn("payment verification failed", "payment_id", claim.PaymentID, "kind", kind, "err", err)
}
