// Package events defines the domain events emitted by the quota service and
// the sinks that deliver them.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/digkill/resumegate/internal/models"
)

type Type string

const (
	TypePaymentVerified     Type = "payment.verified"
	TypeGenerationCompleted Type = "generation.completed"
)

// Event carries only the hashed identifier; raw identifiers never leave the request.
type Event struct {
	ID               string             `json:"id"`
	Type             Type               `json:"type"`
	HashedID         string             `json:"hashed_id"`
	PackageType      models.PackageType `json:"package_type"`
	Credits          int                `json:"credits"`
	PaymentID        string             `json:"payment_id,omitempty"`
	VerificationPath string             `json:"verification_path,omitempty"`
	ArchiveKey       string             `json:"archive_key,omitempty"`
	OccurredAt       time.Time          `json:"occurred_at"`
}

func New(t Type, hashedID string, pkg models.PackageType, credits int) Event {
	return Event{
		ID:          uuid.NewString(),
		Type:        t,
		HashedID:    hashedID,
		PackageType: pkg,
		Credits:     credits,
		OccurredAt:  time.Now().UTC(),
	}
}

type Sink interface {
	Publish(ctx context.Context, evt Event) error
}

// Fanout delivers each event to every sink and joins their errors.
type Fanout []Sink

func (f Fanout) Publish(ctx context.Context, evt Event) error {
	var errs []error
	for _, sink := range f {
		if sink == nil {
			continue
		}
		if err := sink.Publish(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
