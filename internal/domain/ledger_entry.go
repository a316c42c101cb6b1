package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	EntryTypeDeposit           = "DEPOSIT"
	EntryTypeInvestment        = "INVESTMENT"
	EntryTypeWithdrawal        = "WITHDRAWAL"
	EntryTypeEarnings          = "EARNINGS"
	EntryTypeReferralBonus     = "REFERRAL_BONUS"
	EntryTypeInvestmentUpgrade = "INVESTMENT_UPGRADE"
)

const (
	EntryStatusPending   = "PENDING"
	EntryStatusCompleted = "COMPLETED"
	EntryStatusFailed    = "FAILED"
)

// LedgerEntry is the append-only evidence of a wallet balance change.
// Amount and WalletID never change after creation; only Status may move
// PENDING -> COMPLETED/FAILED (withdrawal finalization sets TxHash too).
// The unique index on tx_hash is the deposit replay guard: a verified
// on-chain transaction can be credited at most once.
type LedgerEntry struct {
	EntryID     uuid.UUID       `gorm:"column:entry_id;type:uuid;primaryKey" json:"entry_id"`
	WalletID    uuid.UUID       `gorm:"column:wallet_id;type:uuid;not null;index" json:"wallet_id"`
	Type        string          `gorm:"column:type;size:20;not null" json:"type"`
	Amount      decimal.Decimal `gorm:"column:amount;type:decimal(20,6);not null" json:"amount"`
	Status      string          `gorm:"column:status;size:10;not null;default:PENDING" json:"status"`
	TxHash      *string         `gorm:"column:tx_hash;size:100;uniqueIndex" json:"tx_hash"`
	Description string          `gorm:"column:description" json:"description"`
	Metadata    datatypes.JSON  `gorm:"column:metadata" json:"metadata,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (LedgerEntry) TableName() string {
	return "ledger_entries"
}

func (e *LedgerEntry) BeforeCreate(tx *gorm.DB) error {
	if e.EntryID == uuid.Nil {
		e.EntryID = uuid.New()
	}
	return nil
}
