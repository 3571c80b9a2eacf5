package persistence

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/pricesync/backend/internal/domain/integration"
	"github.com/pricesync/backend/internal/domain/pricing"
)

const testShop = "crafts.myshopify.com"

// newMockGormDB creates a GORM DB backed by sqlmock with the postgres dialect
func newMockGormDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return gormDB, mock, mockDB
}

var pricingSettingsColumns = []string{
	"id", "created_at", "updated_at", "shop",
	"discount_rate", "shipping_cost", "tax_rate", "normal_multiplier",
	"ooak_multiplier", "markup_rate", "hourly_rate", "default_rarity",
}

func TestGormTenantConfigurationRepository_Resolve(t *testing.T) {
	t.Run("maps NULL columns to absent fields", func(t *testing.T) {
		db, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormTenantConfigurationRepository(db)

		id := uuid.New()
		now := time.Now()
		rows := sqlmock.NewRows(pricingSettingsColumns).AddRow(
			id, now, now, testShop,
			"10", nil, "21.5", nil,
			"2", nil, "15", "OOAK",
		)
		mock.ExpectQuery(`SELECT \* FROM "pricing_settings" WHERE shop = \$1`).
			WithArgs(testShop, 1).
			WillReturnRows(rows)

		cfg, err := repo.Resolve(context.Background(), testShop)

		require.NoError(t, err)
		assert.Equal(t, id, cfg.ID)
		assert.Equal(t, testShop, cfg.Shop)
		require.NotNil(t, cfg.DiscountRate)
		assert.True(t, cfg.DiscountRate.Equal(decimal.NewFromInt(10)))
		assert.True(t, cfg.TaxRate.Equal(decimal.RequireFromString("21.5")))
		assert.Nil(t, cfg.ShippingCost)
		assert.Nil(t, cfg.NormalMultiplier)
		assert.Nil(t, cfg.MarkupRate)
		require.NotNil(t, cfg.DefaultRarity)
		assert.Equal(t, "OOAK", *cfg.DefaultRarity)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns ErrConfigurationNotFound when no row exists", func(t *testing.T) {
		db, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormTenantConfigurationRepository(db)

		mock.ExpectQuery(`SELECT \* FROM "pricing_settings" WHERE shop = \$1`).
			WithArgs("unknown.myshopify.com", 1).
			WillReturnError(gorm.ErrRecordNotFound)

		cfg, err := repo.Resolve(context.Background(), "unknown.myshopify.com")

		assert.Nil(t, cfg)
		assert.ErrorIs(t, err, pricing.ErrConfigurationNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wraps database errors", func(t *testing.T) {
		db, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormTenantConfigurationRepository(db)
		dbErr := errors.New("connection refused")

		mock.ExpectQuery(`SELECT \* FROM "pricing_settings"`).WillReturnError(dbErr)

		_, err := repo.Resolve(context.Background(), testShop)

		assert.ErrorIs(t, err, dbErr)
		assert.NotErrorIs(t, err, pricing.ErrConfigurationNotFound)
	})

	t.Run("rejects blank shop without querying", func(t *testing.T) {
		db, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()

		_, err := NewGormTenantConfigurationRepository(db).Resolve(context.Background(), "  ")

		assert.ErrorIs(t, err, pricing.ErrInvalidShop)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormTenantConfigurationRepository_Save(t *testing.T) {
	t.Run("upserts on shop", func(t *testing.T) {
		db, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormTenantConfigurationRepository(db)

		tax := decimal.RequireFromString("21")
		cfg := &pricing.TenantConfiguration{Shop: testShop, TaxRate: &tax}

		mock.ExpectExec(`INSERT INTO "pricing_settings" .* ON CONFLICT \("shop"\) DO UPDATE SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Save(context.Background(), cfg)

		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, cfg.ID)
		assert.False(t, cfg.UpdatedAt.IsZero())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects invalid configuration", func(t *testing.T) {
		db, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormTenantConfigurationRepository(db)

		discount := decimal.NewFromInt(100)
		err := repo.Save(context.Background(), &pricing.TenantConfiguration{Shop: testShop, DiscountRate: &discount})

		assert.ErrorIs(t, err, pricing.ErrInvalidConfiguration)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormTenantConfigurationRepository_Delete(t *testing.T) {
	db, mock, mockDB := newMockGormDB(t)
	defer mockDB.Close()
	repo := NewGormTenantConfigurationRepository(db)

	mock.ExpectExec(`DELETE FROM "pricing_settings" WHERE shop = \$1`).
		WithArgs(testShop).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), testShop)

	assert.ErrorIs(t, err, pricing.ErrConfigurationNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormShopSessionRepository_Credential(t *testing.T) {
	t.Run("finds stored session", func(t *testing.T) {
		db, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormShopSessionRepository(db)

		now := time.Now()
		rows := sqlmock.NewRows([]string{"id", "created_at", "updated_at", "shop", "access_token", "scope"}).
			AddRow(uuid.New(), now, now, testShop, "shpat_abc", "write_products")
		mock.ExpectQuery(`SELECT \* FROM "shop_sessions" WHERE shop = \$1`).
			WithArgs(testShop, 1).
			WillReturnRows(rows)

		cred, err := repo.Credential(context.Background(), testShop)

		require.NoError(t, err)
		assert.True(t, cred.IsUsable())
		assert.Equal(t, "shpat_abc", cred.AccessToken)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns ErrCredentialNotFound for unknown shop", func(t *testing.T) {
		db, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormShopSessionRepository(db)

		mock.ExpectQuery(`SELECT \* FROM "shop_sessions"`).WillReturnError(gorm.ErrRecordNotFound)

		cred, err := repo.Credential(context.Background(), testShop)

		assert.Nil(t, cred)
		assert.ErrorIs(t, err, integration.ErrCredentialNotFound)
	})
}

func TestGormShopSessionRepository_Store(t *testing.T) {
	t.Run("upserts on shop", func(t *testing.T) {
		db, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormShopSessionRepository(db)

		mock.ExpectExec(`INSERT INTO "shop_sessions" .* ON CONFLICT \("shop"\) DO UPDATE SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		cred := &integration.Credential{Shop: testShop, AccessToken: "shpat_abc"}
		require.NoError(t, repo.Store(context.Background(), cred))
		assert.NotEqual(t, uuid.Nil, cred.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects credential without token", func(t *testing.T) {
		db, _, mockDB := newMockGormDB(t)
		defer mockDB.Close()

		err := NewGormShopSessionRepository(db).Store(context.Background(), &integration.Credential{Shop: testShop})

		assert.ErrorIs(t, err, integration.ErrInvalidCredential)
	})
}
