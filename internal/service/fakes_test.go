package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/digkill/resumegate/internal/events"
	"github.com/digkill/resumegate/internal/identity"
	"github.com/digkill/resumegate/internal/models"
	"github.com/digkill/resumegate/internal/razorpay"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testHasher(t *testing.T) *identity.Hasher {
	t.Helper()
	h, err := identity.NewHasher("test-salt")
	require.NoError(t, err)
	return h
}

type memStore struct {
	mu        sync.Mutex
	records   map[string]models.EntitlementRecord
	claims    map[string]string
	sets      int
	consumes  int
	getErr    error
	denySpend bool
}

func newMemStore() *memStore {
	return &memStore{records: map[string]models.EntitlementRecord{}, claims: map[string]string{}}
}

func (m *memStore) ClaimPayment(_ context.Context, paymentID, hashedID string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if owner, ok := m.claims[paymentID]; ok {
		return owner, false, nil
	}
	m.claims[paymentID] = hashedID
	return hashedID, true, nil
}

func (m *memStore) Get(_ context.Context, hashedID string) (*models.EntitlementRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	rec, ok := m.records[hashedID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *memStore) Set(_ context.Context, hashedID string, record models.EntitlementRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	m.records[hashedID] = record
	return nil
}

func (m *memStore) ConsumeCredit(_ context.Context, hashedID string) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.consumes++
	rec, ok := m.records[hashedID]
	if !ok || rec.Credits <= 0 || m.denySpend {
		return 0, false, nil
	}
	rec.Credits--
	m.records[hashedID] = rec
	return rec.Credits, true, nil
}

func (m *memStore) credits(hashedID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[hashedID].Credits
}

type fakeProvider struct {
	payment *razorpay.Payment
	err     error
	calls   int
}

func (f *fakeProvider) FetchPayment(_ context.Context, paymentID string) (*razorpay.Payment, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	p := *f.payment
	p.ID = paymentID
	return &p, nil
}

type fakeLedger struct {
	owners map[string]string
}

func (f *fakeLedger) Claim(_ context.Context, payment *models.Payment) (string, error) {
	if f.owners == nil {
		f.owners = map[string]string{}
	}
	if owner, ok := f.owners[payment.ProviderCharge]; ok {
		return owner, nil
	}
	f.owners[payment.ProviderCharge] = payment.HashedID
	return payment.HashedID, nil
}

type fakeGenerator struct {
	mu     sync.Mutex
	doc    *models.DocumentResult
	err    error
	calls  int
	input  models.GenerationInput
	before func(ctx context.Context) error
}

func (f *fakeGenerator) Generate(ctx context.Context, in models.GenerationInput) (*models.DocumentResult, error) {
	f.mu.Lock()
	f.calls++
	f.input = in
	f.mu.Unlock()
	if f.before != nil {
		if err := f.before(ctx); err != nil {
			return nil, err
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	doc := *f.doc
	return &doc, nil
}

func (f *fakeGenerator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recordingSink struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingSink) Publish(_ context.Context, evt events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

type fakeGenerationLedger struct {
	entries []*models.GenerationLog
	err     error
}

func (f *fakeGenerationLedger) Log(_ context.Context, entry *models.GenerationLog) error {
	f.entries = append(f.entries, entry)
	return f.err
}

type fakeArchive struct {
	key   string
	err   error
	stall bool
	docs  []*models.DocumentResult
}

func (f *fakeArchive) ArchiveDocument(ctx context.Context, _ string, doc *models.DocumentResult) (string, error) {
	f.docs = append(f.docs, doc)
	if f.stall {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.key, f.err
}
