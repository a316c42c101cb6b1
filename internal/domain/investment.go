package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	InvestmentStatusPending   = "PENDING"
	InvestmentStatusActive    = "ACTIVE"
	InvestmentStatusCompleted = "COMPLETED"
	InvestmentStatusCancelled = "CANCELLED"
	InvestmentStatusUpgraded  = "UPGRADED"
)

// Investment is a user's position in a plan. At most one ACTIVE position per
// user (partial unique index, see database.AutoMigrate). Earnings are never
// stored: they are derived on demand from AmountInvested, the plan rate and
// whole elapsed days since StartDate. CurrentValue defaults to the principal
// and is recomputed only at upgrade time. UpgradedToID makes upgrade history
// a forward-only chain: StartDate strictly increases along it.
type Investment struct {
	InvestmentID   uuid.UUID       `gorm:"column:investment_id;type:uuid;primaryKey" json:"investment_id"`
	UserID         uuid.UUID       `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	PlanID         uuid.UUID       `gorm:"column:plan_id;type:uuid;not null" json:"plan_id"`
	Plan           InvestmentPlan  `gorm:"foreignKey:PlanID;references:PlanID" json:"plan"`
	AmountInvested decimal.Decimal `gorm:"column:amount_invested;type:decimal(10,2);not null" json:"amount_invested"`
	CurrentValue   decimal.Decimal `gorm:"column:current_value;type:decimal(10,2);not null;default:0" json:"current_value"`
	TotalWithdrawn decimal.Decimal `gorm:"column:total_withdrawn;type:decimal(10,2);not null;default:0" json:"total_withdrawn"`
	Status         string          `gorm:"column:status;size:20;not null;default:PENDING" json:"status"`
	StartDate      *time.Time      `gorm:"column:start_date" json:"start_date"`
	EndDate        *time.Time      `gorm:"column:end_date" json:"end_date"`
	UpgradedToID   *uuid.UUID      `gorm:"column:upgraded_to_id;type:uuid" json:"upgraded_to_id"`
	LedgerEntryID  *uuid.UUID      `gorm:"column:ledger_entry_id;type:uuid" json:"ledger_entry_id"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func (Investment) TableName() string {
	return "investments"
}

func (i *Investment) BeforeCreate(tx *gorm.DB) error {
	if i.InvestmentID == uuid.Nil {
		i.InvestmentID = uuid.New()
	}
	return nil
}
