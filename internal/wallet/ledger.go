package wallet

import (
	"errors"

	"vaultyield-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// The ledger is the only code allowed to change a wallet balance. Every
// mutation pairs the balance update with exactly one LedgerEntry in the same
// atomic unit. Both funcs run inside db.Transaction, so a caller that is
// already in a transaction gets a savepoint and stays atomic end to end.

// Credit increases the wallet balance and records a COMPLETED entry.
// txHash (if set) carries the verified on-chain deposit hash; the unique
// index on it makes replayed deposits fail at commit time.
func Credit(db *gorm.DB, walletID uuid.UUID, amount decimal.Decimal, entryType, description string, txHash *string, metadata datatypes.JSON) (*domain.LedgerEntry, error) {
	if amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	var entry *domain.LedgerEntry
	err := db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Wallet{}).
			Where("wallet_id = ?", walletID).
			UpdateColumn("balance", gorm.Expr("balance + ?", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrWalletNotFound
		}
		e := &domain.LedgerEntry{
			WalletID:    walletID,
			Type:        entryType,
			Amount:      amount,
			Status:      domain.EntryStatusCompleted,
			TxHash:      txHash,
			Description: description,
			Metadata:    metadata,
		}
		if err := tx.Create(e).Error; err != nil {
			return err
		}
		entry = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Debit decreases the wallet balance and records a COMPLETED entry. The
// balance precondition is part of the UPDATE itself (balance >= amount), so
// two concurrent debits can never both pass against a stale read: the loser
// matches zero rows and gets ErrInsufficientBalance.
func Debit(db *gorm.DB, walletID uuid.UUID, amount decimal.Decimal, entryType, description string) (*domain.LedgerEntry, error) {
	if amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	var entry *domain.LedgerEntry
	err := db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Wallet{}).
			Where("wallet_id = ? AND balance >= ?", walletID, amount).
			UpdateColumn("balance", gorm.Expr("balance - ?", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&domain.Wallet{}).Where("wallet_id = ?", walletID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return ErrWalletNotFound
			}
			return ErrInsufficientBalance
		}
		e := &domain.LedgerEntry{
			WalletID:    walletID,
			Type:        entryType,
			Amount:      amount,
			Status:      domain.EntryStatusCompleted,
			Description: description,
		}
		if err := tx.Create(e).Error; err != nil {
			return err
		}
		entry = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// IsDomainErr reports whether err is one of the ledger's own domain errors
// (as opposed to a storage failure).
func IsDomainErr(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrWalletNotFound)
}
