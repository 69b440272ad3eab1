package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/digkill/resumegate/internal/models"
)

const (
	entitlementKeyPrefix = "paid_v2_"
	paymentKeyPrefix     = "payment_used_"
)

// consumeCreditScript decrements credits only while they are positive, so two
// concurrent generations can never spend the same last credit.
// Returns -2 when the record is absent, -1 when exhausted, otherwise the remainder.
var consumeCreditScript = redis.NewScript(`
local raw = redis.call('GET', KEYS[1])
if not raw then
	return -2
end
local record = cjson.decode(raw)
local credits = tonumber(record['credits']) or 0
if credits <= 0 then
	return -1
end
credits = credits - 1
record['credits'] = credits
redis.call('SET', KEYS[1], cjson.encode(record))
return credits
`)

// EntitlementRepository stores one JSON entitlement per hashed identifier.
// Nothing is cached in process; every call reads Redis.
type EntitlementRepository struct {
	rdb *redis.Client
}

func NewEntitlementRepository(rdb *redis.Client) *EntitlementRepository {
	return &EntitlementRepository{rdb: rdb}
}

func EntitlementKey(hashedID string) string {
	return entitlementKeyPrefix + hashedID
}

func PaymentKey(paymentID string) string {
	return paymentKeyPrefix + paymentID
}

// ClaimPayment marks paymentID as spent by hashedID. The first claim wins and
// the marker never expires. It returns the owning identity and whether this
// call created the marker.
func (r *EntitlementRepository) ClaimPayment(ctx context.Context, paymentID, hashedID string) (string, bool, error) {
	created, err := r.rdb.SetNX(ctx, PaymentKey(paymentID), hashedID, 0).Result()
	if err != nil {
		return "", false, fmt.Errorf("claim payment: %w", err)
	}
	if created {
		return hashedID, true, nil
	}
	owner, err := r.rdb.Get(ctx, PaymentKey(paymentID)).Result()
	if err != nil {
		return "", false, fmt.Errorf("read payment owner: %w", err)
	}
	return owner, false, nil
}

func (r *EntitlementRepository) Get(ctx context.Context, hashedID string) (*models.EntitlementRecord, error) {
	raw, err := r.rdb.Get(ctx, EntitlementKey(hashedID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get entitlement: %w", err)
	}
	var record models.EntitlementRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("decode entitlement: %w", err)
	}
	return &record, nil
}

func (r *EntitlementRepository) Set(ctx context.Context, hashedID string, record models.EntitlementRecord) error {
	if record.Credits < 0 {
		record.Credits = 0
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode entitlement: %w", err)
	}
	if err := r.rdb.Set(ctx, EntitlementKey(hashedID), payload, 0).Err(); err != nil {
		return fmt.Errorf("set entitlement: %w", err)
	}
	return nil
}

// ConsumeCredit atomically spends one credit. ok is false when the record is
// missing or already at zero; nothing is written in that case.
func (r *EntitlementRepository) ConsumeCredit(ctx context.Context, hashedID string) (int, bool, error) {
	res, err := consumeCreditScript.Run(ctx, r.rdb, []string{EntitlementKey(hashedID)}).Int64()
	if err != nil {
		return 0, false, fmt.Errorf("consume credit: %w", err)
	}
	if res < 0 {
		return 0, false, nil
	}
	return int(res), true, nil
}

func (r *EntitlementRepository) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}
