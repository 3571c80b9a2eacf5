package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/pricesync/backend/internal/domain/pricing"
)

// ConfigurationKeyPrefix prefixes every cached shop configuration
const ConfigurationKeyPrefix = "pricesync:config:"

// DefaultConfigurationTTL is used when no TTL is configured
const DefaultConfigurationTTL = 5 * time.Minute

// cachedConfiguration is the Redis representation of a resolve result.
// Found is false for a shop without a stored record.
type cachedConfiguration struct {
	Found            bool             `json:"found"`
	ID               uuid.UUID        `json:"id,omitempty"`
	Shop             string           `json:"shop"`
	DiscountRate     *decimal.Decimal `json:"discount_rate,omitempty"`
	ShippingCost     *decimal.Decimal `json:"shipping_cost,omitempty"`
	TaxRate          *decimal.Decimal `json:"tax_rate,omitempty"`
	NormalMultiplier *decimal.Decimal `json:"normal_multiplier,omitempty"`
	OOAKMultiplier   *decimal.Decimal `json:"ooak_multiplier,omitempty"`
	MarkupRate       *decimal.Decimal `json:"markup_rate,omitempty"`
	HourlyRate       *decimal.Decimal `json:"hourly_rate,omitempty"`
	DefaultRarity    *string          `json:"default_rarity,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

func fromConfiguration(c *pricing.TenantConfiguration) cachedConfiguration {
	return cachedConfiguration{
		Found:            true,
		ID:               c.ID,
		Shop:             c.Shop,
		DiscountRate:     c.DiscountRate,
		ShippingCost:     c.ShippingCost,
		TaxRate:          c.TaxRate,
		NormalMultiplier: c.NormalMultiplier,
		OOAKMultiplier:   c.OOAKMultiplier,
		MarkupRate:       c.MarkupRate,
		HourlyRate:       c.HourlyRate,
		DefaultRarity:    c.DefaultRarity,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
}

func (c cachedConfiguration) toConfiguration() *pricing.TenantConfiguration {
	return &pricing.TenantConfiguration{
		ID:               c.ID,
		Shop:             c.Shop,
		DiscountRate:     c.DiscountRate,
		ShippingCost:     c.ShippingCost,
		TaxRate:          c.TaxRate,
		NormalMultiplier: c.NormalMultiplier,
		OOAKMultiplier:   c.OOAKMultiplier,
		MarkupRate:       c.MarkupRate,
		HourlyRate:       c.HourlyRate,
		DefaultRarity:    c.DefaultRarity,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
}

// CachedConfigurationRepository is a read-through Redis cache in front of a
// pricing.ConfigurationStore. Absence is cached too, so a shop that never
// saved settings does not hit the database on every notification.
// Redis failures are logged and the store is consulted directly.
type CachedConfigurationRepository struct {
	store  pricing.ConfigurationStore
	client redis.Cmdable
	ttl    time.Duration
	logger *zap.Logger
}

// CachedConfigurationOption is a functional option for the cache
type CachedConfigurationOption func(*CachedConfigurationRepository)

// WithConfigurationTTL sets how long a resolve result is cached
func WithConfigurationTTL(ttl time.Duration) CachedConfigurationOption {
	return func(r *CachedConfigurationRepository) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithConfigurationLogger sets the logger for the cache
func WithConfigurationLogger(logger *zap.Logger) CachedConfigurationOption {
	return func(r *CachedConfigurationRepository) {
		r.logger = logger
	}
}

// NewCachedConfigurationRepository wraps store. A nil client disables caching.
func NewCachedConfigurationRepository(store pricing.ConfigurationStore, client redis.Cmdable, opts ...CachedConfigurationOption) *CachedConfigurationRepository {
	r := &CachedConfigurationRepository{
		store:  store,
		client: client,
		ttl:    DefaultConfigurationTTL,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the cached resolve result of shop, loading it from the store on a miss
func (r *CachedConfigurationRepository) Resolve(ctx context.Context, shop string) (*pricing.TenantConfiguration, error) {
	if r.client == nil {
		return r.store.Resolve(ctx, shop)
	}

	if cached, ok := r.get(ctx, shop); ok {
		if !cached.Found {
			return nil, pricing.ErrConfigurationNotFound
		}
		return cached.toConfiguration(), nil
	}

	cfg, err := r.store.Resolve(ctx, shop)
	switch {
	case errors.Is(err, pricing.ErrConfigurationNotFound):
		r.set(ctx, shop, cachedConfiguration{Found: false, Shop: shop})
		return nil, err
	case err != nil:
		return nil, err
	}
	r.set(ctx, shop, fromConfiguration(cfg))
	return cfg, nil
}

// Save writes through to the store and drops the cached entry
func (r *CachedConfigurationRepository) Save(ctx context.Context, cfg *pricing.TenantConfiguration) error {
	if err := r.store.Save(ctx, cfg); err != nil {
		return err
	}
	return r.Invalidate(ctx, cfg.Shop)
}

// Invalidate drops the cached entry of shop
func (r *CachedConfigurationRepository) Invalidate(ctx context.Context, shop string) error {
	if r.client == nil {
		return nil
	}
	if err := r.client.Del(ctx, ConfigurationKeyPrefix+shop).Err(); err != nil {
		return fmt.Errorf("invalidate cached configuration: %w", err)
	}
	return nil
}

func (r *CachedConfigurationRepository) get(ctx context.Context, shop string) (cachedConfiguration, bool) {
	raw, err := r.client.Get(ctx, ConfigurationKeyPrefix+shop).Bytes()
	if errors.Is(err, redis.Nil) {
		return cachedConfiguration{}, false
	}
	if err != nil {
		r.logger.Warn("configuration cache read failed",
			zap.String("shop", shop),
			zap.Error(err))
		return cachedConfiguration{}, false
	}
	var cached cachedConfiguration
	if err := json.Unmarshal(raw, &cached); err != nil {
		r.logger.Warn("discarding undecodable cached configuration",
			zap.String("shop", shop),
			zap.Error(err))
		return cachedConfiguration{}, false
	}
	return cached, true
}

func (r *CachedConfigurationRepository) set(ctx context.Context, shop string, cached cachedConfiguration) {
	raw, err := json.Marshal(cached)
	if err != nil {
		r.logger.Warn("failed to encode configuration for cache", zap.String("shop", shop), zap.Error(err))
		return
	}
	if err := r.client.Set(ctx, ConfigurationKeyPrefix+shop, raw, r.ttl).Err(); err != nil {
		r.logger.Warn("configuration cache write failed",
			zap.String("shop", shop),
			zap.Error(err))
	}
}

var _ pricing.ConfigurationStore = (*CachedConfigurationRepository)(nil)
