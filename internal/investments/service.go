package investments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vaultyield-backend/internal/blockchain"
	"vaultyield-backend/internal/domain"
	"vaultyield-backend/internal/wallet"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Service struct {
	DB      *gorm.DB
	Gateway blockchain.Gateway
	// Now is the injectable clock; accrual math depends on wall-clock time,
	// so tests pin it.
	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Create funds a new ACTIVE position from the wallet. The funding debit and
// the position insert commit together; the partial unique index on
// (user_id) WHERE status = 'ACTIVE' backs the in-transaction existence check
// against a check-then-insert race.
func (s *Service) Create(ctx context.Context, userID, planID uuid.UUID, amount decimal.Decimal) (*domain.Investment, error) {
	var plan domain.InvestmentPlan
	if err := s.DB.WithContext(ctx).Where("plan_id = ? AND is_active = ?", planID, true).First(&plan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	if amount.LessThan(plan.MinimumInvestment) {
		return nil, ErrAmountOutOfRange
	}
	if plan.MaximumInvestment != nil && amount.GreaterThan(*plan.MaximumInvestment) {
		return nil, ErrAmountOutOfRange
	}

	now := s.now()
	var inv *domain.Investment
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var active int64
		if err := tx.Model(&domain.Investment{}).
			Where("user_id = ? AND status = ?", userID, domain.InvestmentStatusActive).
			Count(&active).Error; err != nil {
			return err
		}
		if active > 0 {
			return ErrActiveInvestmentExists
		}

		var w domain.Wallet
		if err := tx.Where("user_id = ?", userID).First(&w).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return wallet.ErrWalletNotFound
			}
			return err
		}
		entry, err := wallet.Debit(tx, w.WalletID, amount, domain.EntryTypeInvestment,
			"Subscription to plan "+plan.Name)
		if err != nil {
			return err
		}

		start := now
		created := &domain.Investment{
			UserID:         userID,
			PlanID:         plan.PlanID,
			AmountInvested: amount,
			CurrentValue:   amount,
			Status:         domain.InvestmentStatusActive,
			StartDate:      &start,
			LedgerEntryID:  &entry.EntryID,
		}
		if err := tx.Omit("Plan").Create(created).Error; err != nil {
			return err
		}
		created.Plan = plan
		inv = created
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrActiveInvestmentExists
		}
		return nil, err
	}
	return inv, nil
}

// Upgrade rolls an ACTIVE position into a higher-level plan. The source's
// current value is recomputed from accrued earnings at upgrade time, the new
// principal is current value plus any additional funding, and the source row
// flips to UPGRADED pointing at its successor. All of it, including the
// optional funding debit, is one transaction.
func (s *Service) Upgrade(ctx context.Context, userID, investmentID, newPlanID uuid.UUID, additional decimal.Decimal) (*domain.Investment, error) {
	if additional.Sign() < 0 {
		return nil, wallet.ErrInvalidAmount
	}

	now := s.now()
	var created *domain.Investment
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inv domain.Investment
		if err := tx.Preload("Plan").
			Where("investment_id = ? AND user_id = ?", investmentID, userID).
			First(&inv).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvestmentNotFound
			}
			return err
		}
		if inv.Status != domain.InvestmentStatusActive {
			return ErrInvestmentNotActive
		}

		var newPlan domain.InvestmentPlan
		if err := tx.Where("plan_id = ? AND is_active = ?", newPlanID, true).First(&newPlan).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPlanNotFound
			}
			return err
		}
		if newPlan.Level <= inv.Plan.Level {
			return ErrInvalidUpgrade
		}

		var fundingID *uuid.UUID
		if additional.Sign() > 0 {
			var w domain.Wallet
			if err := tx.Where("user_id = ?", userID).First(&w).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return wallet.ErrWalletNotFound
				}
				return err
			}
			entry, err := wallet.Debit(tx, w.WalletID, additional, domain.EntryTypeInvestmentUpgrade,
				"Additional funding for upgrade to plan "+newPlan.Name)
			if err != nil {
				return err
			}
			fundingID = &entry.EntryID
		}

		currentValue := inv.AmountInvested.Add(CalculateEarnings(&inv, now))
		newPrincipal := currentValue.Add(additional)

		// The source must leave ACTIVE before the successor is inserted or
		// the one-active-per-user index rejects the insert.
		res := tx.Model(&domain.Investment{}).
			Where("investment_id = ? AND status = ?", inv.InvestmentID, domain.InvestmentStatusActive).
			Updates(map[string]interface{}{
				"status":        domain.InvestmentStatusUpgraded,
				"current_value": currentValue,
				"end_date":      now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvestmentNotActive
		}

		start := now
		successor := &domain.Investment{
			UserID:         userID,
			PlanID:         newPlan.PlanID,
			AmountInvested: newPrincipal,
			CurrentValue:   newPrincipal,
			Status:         domain.InvestmentStatusActive,
			StartDate:      &start,
			LedgerEntryID:  fundingID,
		}
		if err := tx.Omit("Plan").Create(successor).Error; err != nil {
			return err
		}
		if err := tx.Model(&domain.Investment{}).
			Where("investment_id = ?", inv.InvestmentID).
			UpdateColumn("upgraded_to_id", successor.InvestmentID).Error; err != nil {
			return err
		}
		successor.Plan = newPlan
		created = successor
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Cancel flips an ACTIVE position to CANCELLED. Principal handling after
// cancellation is an operator concern and out of scope here.
func (s *Service) Cancel(ctx context.Context, userID, investmentID uuid.UUID) error {
	now := s.now()
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Investment{}).
			Where("investment_id = ? AND user_id = ? AND status = ?",
				investmentID, userID, domain.InvestmentStatusActive).
			Updates(map[string]interface{}{
				"status":   domain.InvestmentStatusCancelled,
				"end_date": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&domain.Investment{}).
				Where("investment_id = ? AND user_id = ?", investmentID, userID).
				Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return ErrInvestmentNotFound
			}
			return ErrInvestmentNotActive
		}
		return nil
	})
}

// Withdraw pays out accrued earnings to an external address. Because the
// on-chain send is slow, irreversible and must not hold a database lock, it
// is bracketed by two transactions:
//
//  1. reserve: check limits, bump total_withdrawn and write a PENDING
//     WITHDRAWAL entry. An optimistic guard on total_withdrawn closes the
//     race between two concurrent withdrawals.
//  2. send funds via the gateway (no transaction open).
//  3. finalize: COMPLETED with the tx hash, or FAILED plus reservation
//     release on a definite send failure. An ambiguous outcome keeps the
//     PENDING reservation so nothing can double-pay until reconciled.
func (s *Service) Withdraw(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, destination string) (*domain.LedgerEntry, error) {
	if destination == "" {
		return nil, fmt.Errorf("%w: destination address is required", ErrWithdrawalNotAllowed)
	}
	if s.Gateway == nil {
		return nil, fmt.Errorf("%w: no blockchain gateway configured", blockchain.ErrTransferFailed)
	}

	now := s.now()
	var entry *domain.LedgerEntry
	var invID uuid.UUID
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inv domain.Investment
		if err := tx.Preload("Plan").
			Where("user_id = ? AND status = ?", userID, domain.InvestmentStatusActive).
			First(&inv).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoActiveInvestment
			}
			return err
		}
		if ok, reason := CanWithdraw(&inv, amount, now); !ok {
			return fmt.Errorf("%w: %s", ErrWithdrawalNotAllowed, reason)
		}

		var w domain.Wallet
		if err := tx.Where("user_id = ?", userID).First(&w).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return wallet.ErrWalletNotFound
			}
			return err
		}

		res := tx.Model(&domain.Investment{}).
			Where("investment_id = ? AND status = ? AND total_withdrawn = ?",
				inv.InvestmentID, domain.InvestmentStatusActive, inv.TotalWithdrawn).
			UpdateColumn("total_withdrawn", gorm.Expr("total_withdrawn + ?", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrWithdrawalConflict
		}

		e := &domain.LedgerEntry{
			WalletID:    w.WalletID,
			Type:        domain.EntryTypeWithdrawal,
			Amount:      amount,
			Status:      domain.EntryStatusPending,
			Description: "Earnings withdrawal to " + destination,
		}
		if err := tx.Create(e).Error; err != nil {
			return err
		}
		entry = e
		invID = inv.InvestmentID
		return nil
	})
	if err != nil {
		return nil, err
	}

	txHash, sendErr := s.Gateway.SendFunds(ctx, destination, amount)
	if sendErr != nil {
		if errors.Is(sendErr, blockchain.ErrUnknownOutcome) {
			// The transfer may have landed. The PENDING entry and the
			// reservation stay so the earnings cannot be withdrawn again
			// before an operator re-queries the chain.
			log.Error().
				Str("entry_id", entry.EntryID.String()).
				Str("investment_id", invID.String()).
				Str("destination", destination).
				Str("amount", amount.String()).
				Msg("withdrawal outcome unknown, manual reconciliation required")
			return nil, sendErr
		}
		if relErr := s.release(ctx, entry.EntryID, invID, amount); relErr != nil {
			log.Error().
				Err(relErr).
				Str("entry_id", entry.EntryID.String()).
				Msg("failed to release withdrawal reservation after transfer failure")
		}
		return nil, sendErr
	}

	finErr := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Model(&domain.LedgerEntry{}).
			Where("entry_id = ?", entry.EntryID).
			Updates(map[string]interface{}{
				"status":  domain.EntryStatusCompleted,
				"tx_hash": txHash,
			}).Error
	})
	if finErr != nil {
		// Funds left the treasury but the local record is still PENDING.
		log.Error().
			Err(finErr).
			Str("entry_id", entry.EntryID.String()).
			Str("tx_hash", txHash).
			Str("amount", amount.String()).
			Msg("withdrawal sent on chain but finalization failed, manual reconciliation required")
		return nil, fmt.Errorf("%w: tx %s", ErrReconciliationRequired, txHash)
	}

	entry.Status = domain.EntryStatusCompleted
	entry.TxHash = &txHash
	log.Info().
		Str("entry_id", entry.EntryID.String()).
		Str("tx_hash", txHash).
		Str("amount", amount.String()).
		Msg("withdrawal completed")
	return entry, nil
}

// release marks the reserved entry FAILED and returns the reserved amount to
// the position's withdrawable earnings after a definite transfer failure.
func (s *Service) release(ctx context.Context, entryID, investmentID uuid.UUID, amount decimal.Decimal) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.LedgerEntry{}).
			Where("entry_id = ?", entryID).
			UpdateColumn("status", domain.EntryStatusFailed).Error; err != nil {
			return err
		}
		return tx.Model(&domain.Investment{}).
			Where("investment_id = ?", investmentID).
			UpdateColumn("total_withdrawn", gorm.Expr("total_withdrawn - ?", amount)).Error
	})
}

// Earnings is the read model for the earnings endpoint.
type Earnings struct {
	InvestmentID      uuid.UUID       `json:"investment_id"`
	Status            string          `json:"status"`
	AmountInvested    decimal.Decimal `json:"amount_invested"`
	AccruedEarnings   decimal.Decimal `json:"accrued_earnings"`
	TotalWithdrawn    decimal.Decimal `json:"total_withdrawn"`
	AvailableEarnings decimal.Decimal `json:"available_earnings"`
}

// EarningsOf computes the position's accrual snapshot at now.
func (s *Service) EarningsOf(ctx context.Context, userID, investmentID uuid.UUID) (*Earnings, error) {
	var inv domain.Investment
	if err := s.DB.WithContext(ctx).Preload("Plan").
		Where("investment_id = ? AND user_id = ?", investmentID, userID).
		First(&inv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvestmentNotFound
		}
		return nil, err
	}
	now := s.now()
	return &Earnings{
		InvestmentID:      inv.InvestmentID,
		Status:            inv.Status,
		AmountInvested:    inv.AmountInvested,
		AccruedEarnings:   CalculateEarnings(&inv, now),
		TotalWithdrawn:    inv.TotalWithdrawn,
		AvailableEarnings: AvailableEarnings(&inv, now),
	}, nil
}

// List returns the user's positions, newest first, plans preloaded.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]domain.Investment, error) {
	var out []domain.Investment
	if err := s.DB.WithContext(ctx).Preload("Plan").
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns a single position owned by the user.
func (s *Service) Get(ctx context.Context, userID, investmentID uuid.UUID) (*domain.Investment, error) {
	var inv domain.Investment
	if err := s.DB.WithContext(ctx).Preload("Plan").
		Where("investment_id = ? AND user_id = ?", investmentID, userID).
		First(&inv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvestmentNotFound
		}
		return nil, err
	}
	return &inv, nil
}
