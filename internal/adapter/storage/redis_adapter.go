package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/storefront/internal/core/domain"
)

const (
	idempotencyKeyPrefix = "idempotency:"
	idempotencyKeyTTL    = 24 * time.Hour
	banksKey             = "paystack:banks"
	defaultBanksTTL      = 6 * time.Hour
)

type RedisAdapter struct {
	client   *redis.Client
	banksTTL time.Duration
}

func NewRedisAdapter(client *redis.Client, banksTTL time.Duration) *RedisAdapter {
	if banksTTL <= 0 {
		banksTTL = defaultBanksTTL
	}
	return &RedisAdapter{client: client, banksTTL: banksTTL}
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, idempotencyKeyPrefix+key, 1, idempotencyKeyTTL).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

func (r *RedisAdapter) ReleaseIdempotency(ctx context.Context, key string) error {
	return r.client.Del(ctx, idempotencyKeyPrefix+key).Err()
}

func (r *RedisAdapter) GetBanks(ctx context.Context) ([]domain.Bank, bool, error) {
	raw, err := r.client.Get(ctx, banksKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var banks []domain.Bank
	if err := json.Unmarshal(raw, &banks); err != nil {
		return nil, false, fmt.Errorf("decode cached banks: %w", err)
	}
	return banks, true, nil
}

func (r *RedisAdapter) SetBanks(ctx context.Context, banks []domain.Bank) error {
	raw, err := json.Marshal(banks)
	if err != nil {
		return fmt.Errorf("encode banks: %w", err)
	}
	return r.client.Set(ctx, banksKey, raw, r.banksTTL).Err()
}
