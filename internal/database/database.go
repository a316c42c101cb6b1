package database

import (
	"vaultyield-backend/internal/domain"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Open opens a GORM DB from DSN (Postgres pooler URL).
// PreferSimpleProtocol disables prepared statement caching to avoid 42P05
// ("prepared statement already exists") when using connection poolers (e.g. PgBouncer, Supabase, Render).
func Open(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{TranslateError: true})
}

// AutoMigrate runs migrations for all core models and adds the partial unique
// index backing the "at most one ACTIVE investment per user" invariant. The
// index is what actually closes the check-then-insert race; the orchestrator's
// existence check only exists to return a clean domain error first.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&domain.User{},
		&domain.UserProfile{},
		&domain.Wallet{},
		&domain.LedgerEntry{},
		&domain.InvestmentPlan{},
		&domain.Investment{},
	); err != nil {
		return err
	}
	// Partial indexes have the same syntax on Postgres and SQLite.
	return db.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS uidx_one_active_investment_per_user
		 ON investments (user_id) WHERE status = 'ACTIVE'`,
	).Error
}
