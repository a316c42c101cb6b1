package transactions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"vaultyield-backend/internal/blockchain"
	"vaultyield-backend/internal/domain"
	"vaultyield-backend/internal/wallet"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// referralRate is the commission a referrer earns on a referred deposit.
var referralRate = decimal.RequireFromString("0.05")

type Service struct {
	DB      *gorm.DB
	Gateway blockchain.Gateway
	// DepositAddress is the platform custodial receive address deposits
	// must be sent to.
	DepositAddress string
}

// Deposit verifies an on-chain USDT transfer and credits the depositor's
// wallet. If the depositor was referred, the referrer earns 5% of the amount
// in the same transaction. Write order is fixed (depositor wallet before
// referrer wallet) so two deposits crossing a referral chain cannot deadlock.
// The tx hash is recorded on the DEPOSIT entry; together with the unique
// index on tx_hash this makes replays of the same hash fail cleanly.
func (s *Service) Deposit(ctx context.Context, userID uuid.UUID, txHash string) (*domain.LedgerEntry, error) {
	if strings.TrimSpace(txHash) == "" {
		return nil, fmt.Errorf("%w: transaction hash is required", ErrVerificationFailed)
	}
	if s.Gateway == nil {
		return nil, fmt.Errorf("%w: no blockchain gateway configured", ErrVerificationFailed)
	}

	res, err := s.Gateway.VerifyTransaction(ctx, txHash)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}
	if !res.Valid {
		return nil, fmt.Errorf("%w: %s", ErrVerificationFailed, res.Reason)
	}
	if !strings.EqualFold(res.ToAddress, s.DepositAddress) {
		return nil, fmt.Errorf("%w: recipient is not the platform deposit address", ErrVerificationFailed)
	}
	if res.Amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: transfer amount is zero", ErrVerificationFailed)
	}

	var entry *domain.LedgerEntry
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var seen int64
		if err := tx.Model(&domain.LedgerEntry{}).Where("tx_hash = ?", txHash).Count(&seen).Error; err != nil {
			return err
		}
		if seen > 0 {
			return ErrDepositAlreadyProcessed
		}

		var w domain.Wallet
		if err := tx.Where("user_id = ?", userID).First(&w).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return wallet.ErrWalletNotFound
			}
			return err
		}

		meta, _ := json.Marshal(map[string]string{
			"verified_recipient": res.ToAddress,
			"verified_amount":    res.Amount.String(),
		})
		e, err := wallet.Credit(tx, w.WalletID, res.Amount, domain.EntryTypeDeposit,
			"USDT deposit", &txHash, datatypes.JSON(meta))
		if err != nil {
			return err
		}
		entry = e

		return s.payReferralBonus(tx, userID, res.Amount)
	})
	if err != nil {
		// Two requests racing past the pre-check: the unique index on
		// tx_hash fails the loser at commit.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDepositAlreadyProcessed
		}
		return nil, err
	}

	log.Info().
		Str("user_id", userID.String()).
		Str("tx_hash", txHash).
		Str("amount", res.Amount.String()).
		Msg("deposit credited")
	return entry, nil
}

// payReferralBonus credits 5% of amount to the depositor's referrer, if any,
// and bumps the referrer profile's running total. Runs inside the deposit
// transaction.
func (s *Service) payReferralBonus(tx *gorm.DB, depositorID uuid.UUID, amount decimal.Decimal) error {
	var profile domain.UserProfile
	if err := tx.Where("user_id = ?", depositorID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if profile.ReferredByID == nil {
		return nil
	}

	var referrer domain.UserProfile
	if err := tx.Where("profile_id = ?", *profile.ReferredByID).First(&referrer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn().Str("profile_id", profile.ReferredByID.String()).Msg("referrer profile missing, skipping bonus")
			return nil
		}
		return err
	}
	var refWallet domain.Wallet
	if err := tx.Where("user_id = ?", referrer.UserID).First(&refWallet).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn().Str("user_id", referrer.UserID.String()).Msg("referrer wallet missing, skipping bonus")
			return nil
		}
		return err
	}

	bonus := amount.Mul(referralRate)
	if _, err := wallet.Credit(tx, refWallet.WalletID, bonus, domain.EntryTypeReferralBonus,
		"Referral bonus on referred deposit", nil, nil); err != nil {
		return err
	}
	return tx.Model(&domain.UserProfile{}).
		Where("profile_id = ?", referrer.ProfileID).
		UpdateColumn("total_referral_earnings", gorm.Expr("total_referral_earnings + ?", bonus)).Error
}

// List returns the user's ledger entries, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]domain.LedgerEntry, error) {
	var w domain.Wallet
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&w).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, wallet.ErrWalletNotFound
		}
		return nil, err
	}
	var entries []domain.LedgerEntry
	if err := s.DB.WithContext(ctx).
		Where("wallet_id = ?", w.WalletID).
		Order("created_at desc").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
