package service

import (
	"context"

	"github.com/digkill/resumegate/internal/events"
	"github.com/digkill/resumegate/internal/models"
	"github.com/digkill/resumegate/internal/razorpay"
)

type EntitlementStore interface {
	Get(ctx context.Context, hashedID string) (*models.EntitlementRecord, error)
	Set(ctx context.Context, hashedID string, record models.EntitlementRecord) error
	ConsumeCredit(ctx context.Context, hashedID string) (int, bool, error)
	// ClaimPayment binds a provider payment to the first identity that
	// verified it and returns that owner and whether this call bound it.
	ClaimPayment(ctx context.Context, paymentID, hashedID string) (string, bool, error)
}

type PaymentFetcher interface {
	FetchPayment(ctx context.Context, paymentID string) (*razorpay.Payment, error)
}

// PaymentLedger binds a provider payment to the first identity that claimed it
// and returns that owner.
type PaymentLedger interface {
	Claim(ctx context.Context, payment *models.Payment) (string, error)
}

type GenerationLedger interface {
	Log(ctx context.Context, entry *models.GenerationLog) error
}

type Generator interface {
	Generate(ctx context.Context, in models.GenerationInput) (*models.DocumentResult, error)
}

// DocumentArchive stores a delivered document and returns its object key.
type DocumentArchive interface {
	ArchiveDocument(ctx context.Context, hashedID string, doc *models.DocumentResult) (string, error)
}

type EventSink interface {
	Publish(ctx context.Context, evt events.Event) error
}
