package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pricesync/backend/internal/domain/integration"
	"github.com/pricesync/backend/internal/infrastructure/persistence/models"
)

// GormShopSessionRepository implements integration.CredentialProvider using GORM.
// Sessions are written by the installation flow; the pipeline only reads them.
type GormShopSessionRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormShopSessionRepository creates a new GormShopSessionRepository
func NewGormShopSessionRepository(db *gorm.DB) *GormShopSessionRepository {
	return &GormShopSessionRepository{db: db, now: time.Now}
}

// Credential returns the stored session of shop, or integration.ErrCredentialNotFound
func (r *GormShopSessionRepository) Credential(ctx context.Context, shop string) (*integration.Credential, error) {
	var model models.ShopSessionModel
	err := r.db.WithContext(ctx).Where("shop = ?", shop).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, integration.ErrCredentialNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find shop session: %w", err)
	}
	return model.ToDomain(), nil
}

// Store creates or replaces the session of cred.Shop
func (r *GormShopSessionRepository) Store(ctx context.Context, cred *integration.Credential) error {
	if !cred.IsUsable() {
		return fmt.Errorf("%w: shop and access token are required", integration.ErrInvalidCredential)
	}
	model := models.ShopSessionModelFromDomain(cred, r.now())
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "shop"}},
			DoUpdates: clause.AssignmentColumns([]string{"access_token", "scope", "updated_at"}),
		}).
		Create(model).Error
	if err != nil {
		return fmt.Errorf("store shop session: %w", err)
	}
	cred.ID = model.ID
	return nil
}
