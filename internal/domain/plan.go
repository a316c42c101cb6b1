package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InvestmentPlan is an immutable-after-creation catalog entry.
// DailyReturn is a percentage per day (0.05 means 0.05%/day).
// Level strictly orders plans; an upgrade target must have a strictly
// greater level than the source plan.
type InvestmentPlan struct {
	PlanID            uuid.UUID        `gorm:"column:plan_id;type:uuid;primaryKey" json:"plan_id"`
	Name              string           `gorm:"column:name;size:100;not null" json:"name"`
	Description       string           `gorm:"column:description" json:"description"`
	MinimumInvestment decimal.Decimal  `gorm:"column:minimum_investment;type:decimal(10,2);not null" json:"minimum_investment"`
	MaximumInvestment *decimal.Decimal `gorm:"column:maximum_investment;type:decimal(10,2)" json:"maximum_investment"`
	DailyReturn       decimal.Decimal  `gorm:"column:daily_return;type:decimal(5,3);not null" json:"daily_return"`
	Level             int              `gorm:"column:level;not null;default:1;index" json:"level"`
	IsActive          bool             `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

func (InvestmentPlan) TableName() string {
	return "investment_plans"
}

func (p *InvestmentPlan) BeforeCreate(tx *gorm.DB) error {
	if p.PlanID == uuid.Nil {
		p.PlanID = uuid.New()
	}
	return nil
}
