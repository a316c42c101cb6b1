package wallet

import (
	"sync"
	"testing"

	"vaultyield-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupLedgerTest(t *testing.T) (*gorm.DB, *domain.Wallet) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// In-memory sqlite gives each pooled connection its own database.
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.Wallet{}, &domain.LedgerEntry{}))

	w := &domain.Wallet{
		UserID:  uuid.New(),
		Address: "0x1f9090aaE28b8a3dCeaDf281B0F12828e676c326",
	}
	require.NoError(t, db.Create(w).Error)
	return db, w
}

func walletBalance(t *testing.T, db *gorm.DB, walletID uuid.UUID) decimal.Decimal {
	t.Helper()
	var w domain.Wallet
	require.NoError(t, db.Where("wallet_id = ?", walletID).First(&w).Error)
	return w.Balance
}

func TestCredit_IncreasesBalanceAndRecordsEntry(t *testing.T) {
	db, w := setupLedgerTest(t)

	entry, err := Credit(db, w.WalletID, decimal.RequireFromString("150.25"), domain.EntryTypeDeposit, "USDT deposit", nil, nil)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, domain.EntryStatusCompleted, entry.Status)
	assert.Equal(t, domain.EntryTypeDeposit, entry.Type)

	assert.True(t, walletBalance(t, db, w.WalletID).Equal(decimal.RequireFromString("150.25")))

	var count int64
	require.NoError(t, db.Model(&domain.LedgerEntry{}).Where("wallet_id = ?", w.WalletID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestCredit_RejectsNonPositiveAmounts(t *testing.T) {
	db, w := setupLedgerTest(t)

	for _, raw := range []string{"0", "-1", "-0.000001"} {
		_, err := Credit(db, w.WalletID, decimal.RequireFromString(raw), domain.EntryTypeDeposit, "", nil, nil)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	}

	assert.True(t, walletBalance(t, db, w.WalletID).IsZero())
	var count int64
	require.NoError(t, db.Model(&domain.LedgerEntry{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestCredit_UnknownWallet(t *testing.T) {
	db, _ := setupLedgerTest(t)

	_, err := Credit(db, uuid.New(), decimal.NewFromInt(10), domain.EntryTypeDeposit, "", nil, nil)
	assert.ErrorIs(t, err, ErrWalletNotFound)
}

func TestDebit_InsufficientBalanceLeavesWalletUntouched(t *testing.T) {
	db, w := setupLedgerTest(t)
	_, err := Credit(db, w.WalletID, decimal.NewFromInt(50), domain.EntryTypeDeposit, "", nil, nil)
	require.NoError(t, err)

	_, err = Debit(db, w.WalletID, decimal.RequireFromString("50.000001"), domain.EntryTypeWithdrawal, "")
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	assert.True(t, walletBalance(t, db, w.WalletID).Equal(decimal.NewFromInt(50)))
	var count int64
	require.NoError(t, db.Model(&domain.LedgerEntry{}).Where("type = ?", domain.EntryTypeWithdrawal).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestDebit_ExactBalanceSucceeds(t *testing.T) {
	db, w := setupLedgerTest(t)
	_, err := Credit(db, w.WalletID, decimal.RequireFromString("75.5"), domain.EntryTypeDeposit, "", nil, nil)
	require.NoError(t, err)

	entry, err := Debit(db, w.WalletID, decimal.RequireFromString("75.5"), domain.EntryTypeInvestment, "plan subscription")
	require.NoError(t, err)
	assert.Equal(t, domain.EntryStatusCompleted, entry.Status)
	assert.True(t, walletBalance(t, db, w.WalletID).IsZero())
}

// Two debits of 600 against a balance of 1000: exactly one must win. The
// losing one must not leave a ledger entry behind.
func TestDebit_ConcurrentOverdraftBlocked(t *testing.T) {
	db, w := setupLedgerTest(t)
	_, err := Credit(db, w.WalletID, decimal.NewFromInt(1000), domain.EntryTypeDeposit, "", nil, nil)
	require.NoError(t, err)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = Debit(db, w.WalletID, decimal.NewFromInt(600), domain.EntryTypeWithdrawal, "")
		}(i)
	}
	wg.Wait()

	failures := 0
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, ErrInsufficientBalance)
			failures++
		}
	}
	assert.Equal(t, 1, failures)

	assert.True(t, walletBalance(t, db, w.WalletID).Equal(decimal.NewFromInt(400)))
	var count int64
	require.NoError(t, db.Model(&domain.LedgerEntry{}).Where("type = ?", domain.EntryTypeWithdrawal).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestCreateForUser_SecondWalletRejected(t *testing.T) {
	db, _ := setupLedgerTest(t)
	svc := &Service{DB: db}

	userID := uuid.New()
	w, err := svc.CreateForUser(db, userID)
	require.NoError(t, err)
	assert.Len(t, w.Address, 42)
	assert.True(t, w.Balance.IsZero())

	_, err = svc.CreateForUser(db, userID)
	assert.ErrorIs(t, err, ErrWalletExists)
}
