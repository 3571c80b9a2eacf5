package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pricesync/backend/internal/domain/pricing"
	"github.com/pricesync/backend/internal/infrastructure/persistence/models"
)

// GormTenantConfigurationRepository implements pricing.ConfigurationStore using GORM
type GormTenantConfigurationRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormTenantConfigurationRepository creates a new GormTenantConfigurationRepository
func NewGormTenantConfigurationRepository(db *gorm.DB) *GormTenantConfigurationRepository {
	return &GormTenantConfigurationRepository{db: db, now: time.Now}
}

// WithTx returns a new repository instance with the given transaction
func (r *GormTenantConfigurationRepository) WithTx(tx *gorm.DB) *GormTenantConfigurationRepository {
	return &GormTenantConfigurationRepository{db: tx, now: r.now}
}

// Resolve returns the stored configuration of shop, or pricing.ErrConfigurationNotFound
func (r *GormTenantConfigurationRepository) Resolve(ctx context.Context, shop string) (*pricing.TenantConfiguration, error) {
	shop = strings.TrimSpace(shop)
	if shop == "" {
		return nil, pricing.ErrInvalidShop
	}
	var model models.PricingSettingsModel
	err := r.db.WithContext(ctx).Where("shop = ?", shop).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pricing.ErrConfigurationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find pricing settings: %w", err)
	}
	return model.ToDomain(), nil
}

// Save replaces the stored configuration of cfg.Shop. Absent fields become NULL.
func (r *GormTenantConfigurationRepository) Save(ctx context.Context, cfg *pricing.TenantConfiguration) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	model := models.PricingSettingsModelFromDomain(cfg, r.now())
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "shop"}},
			DoUpdates: clause.AssignmentColumns(models.PricingSettingsColumns),
		}).
		Create(model).Error
	if err != nil {
		return fmt.Errorf("save pricing settings: %w", err)
	}
	cfg.ID = model.ID
	cfg.CreatedAt = model.CreatedAt
	cfg.UpdatedAt = model.UpdatedAt
	return nil
}

// Delete removes the stored configuration of shop
func (r *GormTenantConfigurationRepository) Delete(ctx context.Context, shop string) error {
	result := r.db.WithContext(ctx).Where("shop = ?", shop).Delete(&models.PricingSettingsModel{})
	if result.Error != nil {
		return fmt.Errorf("delete pricing settings: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return pricing.ErrConfigurationNotFound
	}
	return nil
}
