package wallet

import (
	"context"
	"errors"

	"vaultyield-backend/internal/blockchain"
	"vaultyield-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Service struct {
	DB *gorm.DB
	// GenerateAddress is swappable for tests; defaults to the secp256k1
	// generator from the blockchain package.
	GenerateAddress func() (string, error)
}

func (s *Service) generator() func() (string, error) {
	if s.GenerateAddress != nil {
		return s.GenerateAddress
	}
	return blockchain.GenerateAddress
}

// CreateForUser creates the user's custodial wallet inside the given
// transaction handle (registration creates user, profile and wallet in one
// unit). Address collisions are absurdly unlikely but the unique index makes
// them loud rather than silent, so we retry a few times anyway.
func (s *Service) CreateForUser(tx *gorm.DB, userID uuid.UUID) (*domain.Wallet, error) {
	var existing int64
	if err := tx.Model(&domain.Wallet{}).Where("user_id = ?", userID).Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, ErrWalletExists
	}

	gen := s.generator()
	for attempt := 0; attempt < 3; attempt++ {
		address, err := gen()
		if err != nil {
			return nil, err
		}
		var taken int64
		if err := tx.Model(&domain.Wallet{}).Where("address = ?", address).Count(&taken).Error; err != nil {
			return nil, err
		}
		if taken > 0 {
			continue
		}
		w := &domain.Wallet{UserID: userID, Address: address}
		if err := tx.Create(w).Error; err != nil {
			return nil, err
		}
		return w, nil
	}
	return nil, errors.New("could not generate a unique wallet address")
}

// WalletOf returns the user's wallet.
func (s *Service) WalletOf(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	var w domain.Wallet
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&w).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	return &w, nil
}
