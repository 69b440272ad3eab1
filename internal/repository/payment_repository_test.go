package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digkill/resumegate/internal/models"
)

const (
	upsertPaymentQuery = `(?s)^\s*INSERT\s+INTO\s+payments\s*\(hashed_id,.*ON\s+DUPLICATE\s+KEY\s+UPDATE`
	selectPaymentQuery = `(?s)^\s*SELECT\s+id,\s*hashed_id,.*FROM\s+payments\s+WHERE\s+provider\s*=\s*\?\s+AND\s+provider_payment_id\s*=\s*\?`
)

var paymentColumns = []string{"id", "hashed_id", "provider", "provider_payment_id", "order_id", "package_type", "method", "status", "created_at"}

func newSQLMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func testPayment() *models.Payment {
	return &models.Payment{
		HashedID:       "h1",
		Provider:       "razorpay",
		ProviderCharge: "pay_1",
		OrderID:        "ord_1",
		PackageType:    models.PackagePro,
		Method:         "signature",
		Status:         "captured",
	}
}

func TestPaymentClaimNew(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewPaymentRepository(db)
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(upsertPaymentQuery).
		WithArgs("h1", "razorpay", "pay_1", "ord_1", "RESUME_COVER", "signature", "captured").
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectQuery(selectPaymentQuery).
		WithArgs("razorpay", "pay_1").
		WillReturnRows(sqlmock.NewRows(paymentColumns).
			AddRow(int64(7), "h1", "razorpay", "pay_1", "ord_1", "RESUME_COVER", "signature", "captured", created))

	payment := testPayment()
	owner, err := repo.Claim(context.Background(), payment)
	require.NoError(t, err)
	assert.Equal(t, "h1", owner)
	assert.Equal(t, int64(7), payment.ID)
	assert.Equal(t, created, payment.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentClaimOwnedByOther(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewPaymentRepository(db)

	mock.ExpectExec(upsertPaymentQuery).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery(selectPaymentQuery).
		WithArgs("razorpay", "pay_1").
		WillReturnRows(sqlmock.NewRows(paymentColumns).
			AddRow(int64(3), "someone-else", "razorpay", "pay_1", "", "RESUME_ONLY", "status_lookup", "captured", time.Now()))

	owner, err := repo.Claim(context.Background(), testPayment())
	require.NoError(t, err)
	assert.Equal(t, "someone-else", owner)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentClaimExecError(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewPaymentRepository(db)

	mock.ExpectExec(upsertPaymentQuery).WillReturnError(errors.New("db down"))

	_, err := repo.Claim(context.Background(), testPayment())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upsert payment")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByProviderChargeNotFound(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewPaymentRepository(db)

	mock.ExpectQuery(selectPaymentQuery).
		WithArgs("razorpay", "pay_missing").
		WillReturnError(sql.ErrNoRows)

	payment, err := repo.FindByProviderCharge(context.Background(), "razorpay", "pay_missing")
	require.NoError(t, err)
	assert.Nil(t, payment)
}
