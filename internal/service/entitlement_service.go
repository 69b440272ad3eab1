package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/digkill/resumegate/internal/identity"
	"github.com/digkill/resumegate/internal/models"
)

// EntitlementService is the read-only view used by operators.
type EntitlementService struct {
	hasher *identity.Hasher
	store  EntitlementStore
}

func NewEntitlementService(hasher *identity.Hasher, store EntitlementStore) *EntitlementService {
	return &EntitlementService{hasher: hasher, store: store}
}

// Lookup returns the hashed id and the current record, nil when none exists.
func (s *EntitlementService) Lookup(ctx context.Context, identifier string) (string, *models.EntitlementRecord, error) {
	if strings.TrimSpace(identifier) == "" {
		return "", nil, &ValidationError{Field: "identifier", Message: "is required"}
	}
	hashedID := s.hasher.Hash(identifier)
	record, err := s.store.Get(ctx, hashedID)
	if err != nil {
		return "", nil, fmt.Errorf("get entitlement: %w", err)
	}
	return hashedID, record, nil
}
