package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/digkill/resumegate/internal/models"
)

type PaymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Claim records a verified payment and returns the hashed identifier that owns
// it. The first identifier to claim a provider payment keeps it; later claims
// only refresh the status, so a different owner signals a replay.
func (r *PaymentRepository) Claim(ctx context.Context, payment *models.Payment) (string, error) {
	const upsert = `
INSERT INTO payments (hashed_id, provider, provider_payment_id, order_id, package_type, method, status)
VALUES (?, ?, ?, NULLIF(?, ''), ?, ?, ?)
ON DUPLICATE KEY UPDATE status = VALUES(status), method = VALUES(method), updated_at = NOW()`
	if _, err := r.db.ExecContext(ctx, upsert, payment.HashedID, payment.Provider, payment.ProviderCharge, payment.OrderID, payment.PackageType, payment.Method, payment.Status); err != nil {
		return "", fmt.Errorf("upsert payment: %w", err)
	}

	existing, err := r.FindByProviderCharge(ctx, payment.Provider, payment.ProviderCharge)
	if err != nil {
		return "", err
	}
	if existing == nil {
		return "", fmt.Errorf("payment %s vanished after upsert", payment.ProviderCharge)
	}
	payment.ID = existing.ID
	payment.CreatedAt = existing.CreatedAt
	return existing.HashedID, nil
}

func (r *PaymentRepository) FindByProviderCharge(ctx context.Context, provider, chargeID string) (*models.Payment, error) {
	const query = `
SELECT id, hashed_id, provider, provider_payment_id, COALESCE(order_id, ''), package_type, method, status, created_at
FROM payments WHERE provider = ? AND provider_payment_id = ? LIMIT 1`
	row := r.db.QueryRowContext(ctx, query, provider, chargeID)
	var p models.Payment
	if err := row.Scan(&p.ID, &p.HashedID, &p.Provider, &p.ProviderCharge, &p.OrderID, &p.PackageType, &p.Method, &p.Status, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan payment: %w", err)
	}
	return &p, nil
}
