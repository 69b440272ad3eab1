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
	"github.com/digkill/resumegate/internal/prompt"
)

type GenerationService struct {
	log       *slog.Logger
	hasher    *identity.Hasher
	store     EntitlementStore
	generator Generator
	timeout   time.Duration
	limits    Limits

	generations GenerationLedger
	archive     DocumentArchive
	events      EventSink
	sideEffects time.Duration
}

type GenerationRequest struct {
	Identifier string
	Profile    models.Profile
	Feedback   string
}

func NewGenerationService(log *slog.Logger, hasher *identity.Hasher, store EntitlementStore, generator Generator, timeout time.Duration, limits Limits) *GenerationService {
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	if limits.MaxFreeTextRunes <= 0 {
		limits.MaxFreeTextRunes = prompt.DefaultMaxRunes
	}
	return &GenerationService{
		log:         log,
		hasher:      hasher,
		store:       store,
		generator:   generator,
		timeout:     timeout,
		limits:      limits,
		sideEffects: 5 * time.Second,
	}
}

func (s *GenerationService) WithLedger(generations GenerationLedger) *GenerationService {
	s.generations = generations
	return s
}

func (s *GenerationService) WithArchive(archive DocumentArchive) *GenerationService {
	s.archive = archive
	return s
}

func (s *GenerationService) WithEvents(sink EventSink) *GenerationService {
	s.events = sink
	return s
}

// AuthorizeAndGenerate checks the caller's entitlement, generates the document
// and charges one credit. Credits change only when a valid document is returned.
func (s *GenerationService) AuthorizeAndGenerate(ctx context.Context, req GenerationRequest) (*models.DocumentResult, error) {
	if strings.TrimSpace(req.Identifier) == "" {
		return nil, &ValidationError{Field: "identifier", Message: "is required"}
	}
	if err := s.limits.CheckProfile(req.Profile); err != nil {
		return nil, err
	}

	hashedID := s.hasher.Hash(req.Identifier)
	record, err := s.store.Get(ctx, hashedID)
	if err != nil {
		return nil, fmt.Errorf("load entitlement: %w", err)
	}
	if record == nil {
		metrics.GenerationsTotal.WithLabelValues("none", "payment_required").Inc()
		return nil, ErrPaymentRequired
	}
	tier := record.PackageType.Tier()
	if record.Credits <= 0 {
		metrics.GenerationsTotal.WithLabelValues(tier, "exhausted").Inc()
		return nil, ErrCreditsExhausted
	}

	fields := models.FieldsFor(record.PackageType)
	input := models.GenerationInput{
		Profile:     prompt.SanitizeProfile(req.Profile, s.limits.MaxFreeTextRunes),
		Feedback:    prompt.Sanitize(req.Feedback, s.limits.MaxFreeTextRunes),
		PackageType: record.PackageType,
		Fields:      fields,
	}

	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	started := time.Now()
	doc, err := s.generator.Generate(genCtx, input)
	metrics.GenerationDuration.WithLabelValues(tier).Observe(time.Since(started).Seconds())
	if err != nil {
		return nil, s.generationFailure(ctx, genCtx, tier, err)
	}
	if doc == nil || strings.TrimSpace(doc.ResumeSummary) == "" {
		metrics.GenerationsTotal.WithLabelValues(tier, "invalid").Inc()
		return nil, ErrGenerationInvalid
	}

	// Client gone: nothing is delivered so nothing is charged.
	if err := ctx.Err(); err != nil {
		metrics.GenerationsTotal.WithLabelValues(tier, "cancelled").Inc()
		return nil, fmt.Errorf("request cancelled before charging: %w", err)
	}

	result := doc.Restrict(fields)
	remaining, ok, err := s.store.ConsumeCredit(ctx, hashedID)
	if err != nil {
		return nil, fmt.Errorf("consume credit: %w", err)
	}
	if !ok {
		// A concurrent request spent the last credit while this one generated.
		metrics.GenerationsTotal.WithLabelValues(tier, "exhausted").Inc()
		return nil, ErrCreditsExhausted
	}
	result.RemainingCredits = &remaining

	metrics.CreditsConsumed.WithLabelValues(tier).Inc()
	metrics.GenerationsTotal.WithLabelValues(tier, "success").Inc()
	s.log.Info("document generated", "hashed_id", hashedID, "tier", tier, "remaining_credits", remaining)

	s.afterCharge(ctx, hashedID, record.PackageType, remaining, &result)
	return &result, nil
}

func (s *GenerationService) generationFailure(ctx, genCtx context.Context, tier string, err error) error {
	switch {
	case ctx.Err() != nil:
		metrics.GenerationsTotal.WithLabelValues(tier, "cancelled").Inc()
		return fmt.Errorf("request cancelled during generation: %w", ctx.Err())
	case errors.Is(err, models.ErrMalformedDocument):
		metrics.GenerationsTotal.WithLabelValues(tier, "invalid").Inc()
		s.log.Warn("generator returned invalid document", "tier", tier, "err", err)
		return fmt.Errorf("%w: %v", ErrGenerationInvalid, err)
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(genCtx.Err(), context.DeadlineExceeded):
		metrics.GenerationsTotal.WithLabelValues(tier, "timeout").Inc()
		s.log.Warn("generator timed out", "tier", tier, "timeout", s.timeout)
		return fmt.Errorf("%w: generation timed out after %s", ErrGenerationInvalid, s.timeout)
	default:
		metrics.GenerationsTotal.WithLabelValues(tier, "upstream_error").Inc()
		s.log.Error("generator failed", "tier", tier, "err", err)
		return &UpstreamError{Op: "generate", Err: err}
	}
}

// afterCharge runs the best-effort side effects of a delivered document. The
// credit is already spent, so they outlive a cancelled request but share one
// short budget; the response must not wait on a slow ledger or bucket.
func (s *GenerationService) afterCharge(ctx context.Context, hashedID string, pkg models.PackageType, remaining int, doc *models.DocumentResult) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.sideEffects)
	defer cancel()
	if s.generations != nil {
		entry := &models.GenerationLog{HashedID: hashedID, PackageType: pkg, RemainingCredits: remaining}
		if err := s.generations.Log(ctx, entry); err != nil {
			s.log.Error("failed to log generation", "hashed_id", hashedID, "err", err)
		}
	}

	var archiveKey string
	if s.archive != nil {
		key, err := s.archive.ArchiveDocument(ctx, hashedID, doc)
		if err != nil {
			s.log.Error("failed to archive document", "hashed_id", hashedID, "err", err)
		} else {
			archiveKey = key
		}
	}

	if s.events != nil {
		evt := events.New(events.TypeGenerationCompleted, hashedID, pkg, remaining)
		evt.ArchiveKey = archiveKey
		if err := s.events.Publish(ctx, evt); err != nil {
			s.log.Warn("publish generation event failed", "hashed_id", hashedID, "err", err)
		}
	}
}
