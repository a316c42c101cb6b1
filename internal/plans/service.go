package plans

import (
	"context"
	"fmt"

	"vaultyield-backend/internal/domain"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Service struct {
	DB *gorm.DB
}

// List returns the active catalog ordered by level.
func (s *Service) List(ctx context.Context) ([]domain.InvestmentPlan, error) {
	var out []domain.InvestmentPlan
	if err := s.DB.WithContext(ctx).
		Where("is_active = ?", true).
		Order("level asc").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

type CreateInput struct {
	Name              string           `json:"name"`
	Description       string           `json:"description"`
	MinimumInvestment decimal.Decimal  `json:"minimum_investment"`
	MaximumInvestment *decimal.Decimal `json:"maximum_investment"`
	DailyReturn       decimal.Decimal  `json:"daily_return"`
	Level             int              `json:"level"`
}

// Create adds a plan to the catalog (admin only). Levels must stay unique so
// that upgrades keep a strict ordering.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.InvestmentPlan, error) {
	if in.Name == "" || in.Level < 1 {
		return nil, ErrInvalidPlan
	}
	if in.MinimumInvestment.Sign() <= 0 || in.DailyReturn.Sign() <= 0 {
		return nil, ErrInvalidPlan
	}
	if in.MaximumInvestment != nil && in.MaximumInvestment.LessThan(in.MinimumInvestment) {
		return nil, ErrInvalidPlan
	}

	plan := &domain.InvestmentPlan{
		Name:              in.Name,
		Description:       in.Description,
		MinimumInvestment: in.MinimumInvestment,
		MaximumInvestment: in.MaximumInvestment,
		DailyReturn:       in.DailyReturn,
		Level:             in.Level,
		IsActive:          true,
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var clash int64
		if err := tx.Model(&domain.InvestmentPlan{}).Where("level = ?", in.Level).Count(&clash).Error; err != nil {
			return err
		}
		if clash > 0 {
			return ErrDuplicateLevel
		}
		return tx.Create(plan).Error
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}

// Seed inserts the initial catalog when the table is empty.
func Seed(db *gorm.DB) error {
	var count int64
	if err := db.Model(&domain.InvestmentPlan{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	maxStarter := decimal.RequireFromString("28.99")
	maxAdvanced := decimal.RequireFromString("49.99")
	catalog := []domain.InvestmentPlan{
		{
			Name:              "Starter",
			Description:       "Entry tier, 0.05% daily return",
			MinimumInvestment: decimal.NewFromInt(10),
			MaximumInvestment: &maxStarter,
			DailyReturn:       decimal.RequireFromString("0.05"),
			Level:             1,
			IsActive:          true,
		},
		{
			Name:              "Advanced",
			Description:       "Mid tier, 0.1% daily return",
			MinimumInvestment: decimal.NewFromInt(29),
			MaximumInvestment: &maxAdvanced,
			DailyReturn:       decimal.RequireFromString("0.1"),
			Level:             2,
			IsActive:          true,
		},
		{
			Name:              "Premium",
			Description:       "Top tier, 0.15% daily return",
			MinimumInvestment: decimal.NewFromInt(50),
			DailyReturn:       decimal.RequireFromString("0.15"),
			Level:             3,
			IsActive:          true,
		},
	}
	if err := db.Create(&catalog).Error; err != nil {
		return fmt.Errorf("seed plans: %w", err)
	}
	log.Info().Int("plans", len(catalog)).Msg("seeded investment plan catalog")
	return nil
}
