package investments

import (
	"context"
	"testing"
	"time"

	"vaultyield-backend/internal/blockchain"
	"vaultyield-backend/internal/database"
	"vaultyield-backend/internal/domain"
	"vaultyield-backend/internal/wallet"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeGateway scripts SendFunds outcomes and records calls.
type fakeGateway struct {
	sendHash  string
	sendErr   error
	sendCalls int
	lastTo    string
	lastAmt   decimal.Decimal
}

func (f *fakeGateway) SendFunds(ctx context.Context, toAddress string, amount decimal.Decimal) (string, error) {
	f.sendCalls++
	f.lastTo = toAddress
	f.lastAmt = amount
	if f.sendErr != nil {
		return "", f.sendErr
	}
	return f.sendHash, nil
}

func (f *fakeGateway) VerifyTransaction(ctx context.Context, txHash string) (*blockchain.VerifyResult, error) {
	return &blockchain.VerifyResult{Valid: true}, nil
}

type invFixture struct {
	svc      *Service
	gw       *fakeGateway
	db       *gorm.DB
	userID   uuid.UUID
	walletID uuid.UUID
	starter  *domain.InvestmentPlan
	advanced *domain.InvestmentPlan
	premium  *domain.InvestmentPlan
	now      time.Time
}

func setupInvestmentsTest(t *testing.T) *invFixture {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.AutoMigrate(db))

	userID := uuid.New()
	w := &domain.Wallet{UserID: userID, Address: "0x0000000000000000000000000000000000000aaa"}
	require.NoError(t, db.Create(w).Error)

	maxStarter := decimal.RequireFromString("28.99")
	starter := &domain.InvestmentPlan{
		Name: "Starter", MinimumInvestment: decimal.NewFromInt(10),
		MaximumInvestment: &maxStarter,
		DailyReturn:       decimal.RequireFromString("0.05"), Level: 1, IsActive: true,
	}
	advanced := &domain.InvestmentPlan{
		Name: "Advanced", MinimumInvestment: decimal.NewFromInt(29),
		DailyReturn: decimal.RequireFromString("0.1"), Level: 2, IsActive: true,
	}
	premium := &domain.InvestmentPlan{
		Name: "Premium", MinimumInvestment: decimal.NewFromInt(50),
		DailyReturn: decimal.RequireFromString("0.15"), Level: 3, IsActive: true,
	}
	require.NoError(t, db.Create(starter).Error)
	require.NoError(t, db.Create(advanced).Error)
	require.NoError(t, db.Create(premium).Error)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	gw := &fakeGateway{sendHash: "0xsent"}
	svc := &Service{DB: db, Gateway: gw, Now: func() time.Time { return now }}
	return &invFixture{
		svc: svc, gw: gw, db: db,
		userID: userID, walletID: w.WalletID,
		starter: starter, advanced: advanced, premium: premium,
		now: now,
	}
}

func (f *invFixture) fund(t *testing.T, amount string) {
	t.Helper()
	_, err := wallet.Credit(f.db, f.walletID, decimal.RequireFromString(amount),
		domain.EntryTypeDeposit, "", nil, nil)
	require.NoError(t, err)
}

func (f *invFixture) balance(t *testing.T) decimal.Decimal {
	t.Helper()
	var w domain.Wallet
	require.NoError(t, f.db.Where("wallet_id = ?", f.walletID).First(&w).Error)
	return w.Balance
}

func (f *invFixture) reload(t *testing.T, id uuid.UUID) *domain.Investment {
	t.Helper()
	var inv domain.Investment
	require.NoError(t, f.db.Preload("Plan").Where("investment_id = ?", id).First(&inv).Error)
	return &inv
}

func TestCreate_DebitsWalletAndActivates(t *testing.T) {
	f := setupInvestmentsTest(t)
	f.fund(t, "100")

	inv, err := f.svc.Create(context.Background(), f.userID, f.advanced.PlanID, decimal.NewFromInt(60))
	require.NoError(t, err)

	assert.Equal(t, domain.InvestmentStatusActive, inv.Status)
	require.NotNil(t, inv.StartDate)
	assert.True(t, inv.StartDate.Equal(f.now))
	assert.True(t, inv.AmountInvested.Equal(decimal.NewFromInt(60)))
	assert.True(t, inv.CurrentValue.Equal(decimal.NewFromInt(60)))
	require.NotNil(t, inv.LedgerEntryID)

	var entry domain.LedgerEntry
	require.NoError(t, f.db.Where("entry_id = ?", *inv.LedgerEntryID).First(&entry).Error)
	assert.Equal(t, domain.EntryTypeInvestment, entry.Type)
	assert.True(t, entry.Amount.Equal(decimal.NewFromInt(60)))

	assert.True(t, f.balance(t).Equal(decimal.NewFromInt(40)))
}

func TestCreate_SecondActivePositionRejected(t *testing.T) {
	f := setupInvestmentsTest(t)
	f.fund(t, "200")

	_, err := f.svc.Create(context.Background(), f.userID, f.advanced.PlanID, decimal.NewFromInt(30))
	require.NoError(t, err)

	_, err = f.svc.Create(context.Background(), f.userID, f.advanced.PlanID, decimal.NewFromInt(30))
	assert.ErrorIs(t, err, ErrActiveInvestmentExists)
	assert.True(t, f.balance(t).Equal(decimal.NewFromInt(170)))
}

func TestCreate_AmountRangeEnforced(t *testing.T) {
	f := setupInvestmentsTest(t)
	f.fund(t, "500")

	_, err := f.svc.Create(context.Background(), f.userID, f.starter.PlanID, decimal.RequireFromString("9.99"))
	assert.ErrorIs(t, err, ErrAmountOutOfRange)

	_, err = f.svc.Create(context.Background(), f.userID, f.starter.PlanID, decimal.NewFromInt(29))
	assert.ErrorIs(t, err, ErrAmountOutOfRange)

	assert.True(t, f.balance(t).Equal(decimal.NewFromInt(500)))
}

func TestCreate_InsufficientBalanceLeavesNoPosition(t *testing.T) {
	f := setupInvestmentsTest(t)
	f.fund(t, "20")

	_, err := f.svc.Create(context.Background(), f.userID, f.advanced.PlanID, decimal.NewFromInt(30))
	assert.ErrorIs(t, err, wallet.ErrInsufficientBalance)

	var count int64
	require.NoError(t, f.db.Model(&domain.Investment{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

// seedActive inserts an ACTIVE position directly, started daysAgo before the
// fixture clock.
func (f *invFixture) seedActive(t *testing.T, plan *domain.InvestmentPlan, principal string, daysAgo int) *domain.Investment {
	t.Helper()
	start := f.now.Add(-time.Duration(daysAgo) * 24 * time.Hour)
	inv := &domain.Investment{
		UserID:         f.userID,
		PlanID:         plan.PlanID,
		AmountInvested: decimal.RequireFromString(principal),
		CurrentValue:   decimal.RequireFromString(principal),
		Status:         domain.InvestmentStatusActive,
		StartDate:      &start,
	}
	require.NoError(t, f.db.Omit("Plan").Create(inv).Error)
	return inv
}

func TestUpgrade_RollsValueIntoNewPosition(t *testing.T) {
	f := setupInvestmentsTest(t)
	f.fund(t, "100")
	// 100 principal at 0.1%/day for 200 days: earnings 20, current value 120.
	src := f.seedActive(t, f.advanced, "100", 200)

	got, err := f.svc.Upgrade(context.Background(), f.userID, src.InvestmentID, f.premium.PlanID, decimal.NewFromInt(50))
	require.NoError(t, err)

	assert.Equal(t, domain.InvestmentStatusActive, got.Status)
	assert.True(t, got.AmountInvested.Equal(decimal.NewFromInt(170)), "got %s", got.AmountInvested)
	assert.Equal(t, f.premium.PlanID, got.PlanID)
	require.NotNil(t, got.StartDate)
	assert.True(t, got.StartDate.Equal(f.now))

	old := f.reload(t, src.InvestmentID)
	assert.Equal(t, domain.InvestmentStatusUpgraded, old.Status)
	require.NotNil(t, old.UpgradedToID)
	assert.Equal(t, got.InvestmentID, *old.UpgradedToID)
	require.NotNil(t, old.EndDate)
	assert.True(t, old.CurrentValue.Equal(decimal.NewFromInt(120)))

	// the 50 additional came out of the wallet
	assert.True(t, f.balance(t).Equal(decimal.NewFromInt(50)))
	var entry domain.LedgerEntry
	require.NoError(t, f.db.Where("type = ?", domain.EntryTypeInvestmentUpgrade).First(&entry).Error)
	assert.True(t, entry.Amount.Equal(decimal.NewFromInt(50)))
}

func TestUpgrade_NoAdditionalFunding(t *testing.T) {
	f := setupInvestmentsTest(t)
	src := f.seedActive(t, f.advanced, "100", 100) // earnings 10

	got, err := f.svc.Upgrade(context.Background(), f.userID, src.InvestmentID, f.premium.PlanID, decimal.Zero)
	require.NoError(t, err)
	assert.True(t, got.AmountInvested.Equal(decimal.NewFromInt(110)))
	assert.Nil(t, got.LedgerEntryID)
}

func TestUpgrade_RequiresStrictlyHigherLevel(t *testing.T) {
	f := setupInvestmentsTest(t)
	src := f.seedActive(t, f.advanced, "100", 10)

	_, err := f.svc.Upgrade(context.Background(), f.userID, src.InvestmentID, f.starter.PlanID, decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidUpgrade)

	_, err = f.svc.Upgrade(context.Background(), f.userID, src.InvestmentID, f.advanced.PlanID, decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidUpgrade)

	assert.Equal(t, domain.InvestmentStatusActive, f.reload(t, src.InvestmentID).Status)
}

func TestUpgrade_NegativeAdditionalRejected(t *testing.T) {
	f := setupInvestmentsTest(t)
	src := f.seedActive(t, f.advanced, "100", 10)

	_, err := f.svc.Upgrade(context.Background(), f.userID, src.InvestmentID, f.premium.PlanID, decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, wallet.ErrInvalidAmount)
}

func TestUpgrade_InsufficientFundingAborts(t *testing.T) {
	f := setupInvestmentsTest(t)
	f.fund(t, "10")
	src := f.seedActive(t, f.advanced, "100", 10)

	_, err := f.svc.Upgrade(context.Background(), f.userID, src.InvestmentID, f.premium.PlanID, decimal.NewFromInt(50))
	assert.ErrorIs(t, err, wallet.ErrInsufficientBalance)

	old := f.reload(t, src.InvestmentID)
	assert.Equal(t, domain.InvestmentStatusActive, old.Status)
	assert.Nil(t, old.UpgradedToID)
	assert.True(t, f.balance(t).Equal(decimal.NewFromInt(10)))
}

func TestCancel_Transitions(t *testing.T) {
	f := setupInvestmentsTest(t)
	src := f.seedActive(t, f.advanced, "100", 10)

	require.NoError(t, f.svc.Cancel(context.Background(), f.userID, src.InvestmentID))
	old := f.reload(t, src.InvestmentID)
	assert.Equal(t, domain.InvestmentStatusCancelled, old.Status)
	require.NotNil(t, old.EndDate)

	err := f.svc.Cancel(context.Background(), f.userID, src.InvestmentID)
	assert.ErrorIs(t, err, ErrInvestmentNotActive)

	err = f.svc.Cancel(context.Background(), f.userID, uuid.New())
	assert.ErrorIs(t, err, ErrInvestmentNotFound)
}

func TestWithdraw_HappyPath(t *testing.T) {
	f := setupInvestmentsTest(t)
	// 1000 at 0.1%/day for 10 days: 10 available.
	src := f.seedActive(t, f.advanced, "1000", 10)

	entry, err := f.svc.Withdraw(context.Background(), f.userID, decimal.NewFromInt(5), "0x000000000000000000000000000000000000beef")
	require.NoError(t, err)

	assert.Equal(t, 1, f.gw.sendCalls)
	assert.Equal(t, "0x000000000000000000000000000000000000beef", f.gw.lastTo)
	assert.True(t, f.gw.lastAmt.Equal(decimal.NewFromInt(5)))

	assert.Equal(t, domain.EntryStatusCompleted, entry.Status)
	require.NotNil(t, entry.TxHash)
	assert.Equal(t, "0xsent", *entry.TxHash)

	after := f.reload(t, src.InvestmentID)
	assert.True(t, after.TotalWithdrawn.Equal(decimal.NewFromInt(5)))
	// invariant: never withdraw past accrued earnings
	assert.True(t, after.TotalWithdrawn.LessThanOrEqual(CalculateEarnings(after, f.now)))
}

func TestWithdraw_OverLimitNeverReachesGateway(t *testing.T) {
	f := setupInvestmentsTest(t)
	f.seedActive(t, f.advanced, "1000", 10) // available: 10

	_, err := f.svc.Withdraw(context.Background(), f.userID, decimal.NewFromInt(50), "0x000000000000000000000000000000000000beef")
	assert.ErrorIs(t, err, ErrWithdrawalNotAllowed)
	assert.Equal(t, 0, f.gw.sendCalls)

	var count int64
	require.NoError(t, f.db.Model(&domain.LedgerEntry{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestWithdraw_NoActivePosition(t *testing.T) {
	f := setupInvestmentsTest(t)

	_, err := f.svc.Withdraw(context.Background(), f.userID, decimal.NewFromInt(1), "0x000000000000000000000000000000000000beef")
	assert.ErrorIs(t, err, ErrNoActiveInvestment)
	assert.Equal(t, 0, f.gw.sendCalls)
}

func TestWithdraw_TransferFailureReleasesReservation(t *testing.T) {
	f := setupInvestmentsTest(t)
	src := f.seedActive(t, f.advanced, "1000", 10)
	f.gw.sendErr = blockchain.ErrTransferFailed

	_, err := f.svc.Withdraw(context.Background(), f.userID, decimal.NewFromInt(5), "0x000000000000000000000000000000000000beef")
	assert.ErrorIs(t, err, blockchain.ErrTransferFailed)

	after := f.reload(t, src.InvestmentID)
	assert.True(t, after.TotalWithdrawn.IsZero())

	var entry domain.LedgerEntry
	require.NoError(t, f.db.Where("type = ?", domain.EntryTypeWithdrawal).First(&entry).Error)
	assert.Equal(t, domain.EntryStatusFailed, entry.Status)
	assert.Nil(t, entry.TxHash)
}

func TestWithdraw_UnknownOutcomeKeepsReservation(t *testing.T) {
	f := setupInvestmentsTest(t)
	src := f.seedActive(t, f.advanced, "1000", 10)
	f.gw.sendErr = blockchain.ErrUnknownOutcome

	_, err := f.svc.Withdraw(context.Background(), f.userID, decimal.NewFromInt(5), "0x000000000000000000000000000000000000beef")
	assert.ErrorIs(t, err, ErrUnknownTransferOutcome)

	// The reservation must survive: the send may have landed, so the amount
	// stays unavailable until someone re-queries the chain.
	after := f.reload(t, src.InvestmentID)
	assert.True(t, after.TotalWithdrawn.Equal(decimal.NewFromInt(5)))

	var entry domain.LedgerEntry
	require.NoError(t, f.db.Where("type = ?", domain.EntryTypeWithdrawal).First(&entry).Error)
	assert.Equal(t, domain.EntryStatusPending, entry.Status)
}

func TestWithdraw_SecondWithdrawalSeesReducedAvailability(t *testing.T) {
	f := setupInvestmentsTest(t)
	f.seedActive(t, f.advanced, "1000", 10) // available: 10

	_, err := f.svc.Withdraw(context.Background(), f.userID, decimal.NewFromInt(8), "0x000000000000000000000000000000000000beef")
	require.NoError(t, err)

	_, err = f.svc.Withdraw(context.Background(), f.userID, decimal.NewFromInt(8), "0x000000000000000000000000000000000000beef")
	assert.ErrorIs(t, err, ErrWithdrawalNotAllowed)
	assert.Equal(t, 1, f.gw.sendCalls)
}

func TestEarningsOf_Snapshot(t *testing.T) {
	f := setupInvestmentsTest(t)
	src := f.seedActive(t, f.advanced, "1000", 10)
	require.NoError(t, f.db.Model(&domain.Investment{}).
		Where("investment_id = ?", src.InvestmentID).
		UpdateColumn("total_withdrawn", decimal.NewFromInt(4)).Error)

	got, err := f.svc.EarningsOf(context.Background(), f.userID, src.InvestmentID)
	require.NoError(t, err)
	assert.True(t, got.AccruedEarnings.Equal(decimal.NewFromInt(10)))
	assert.True(t, got.AvailableEarnings.Equal(decimal.NewFromInt(6)))
	assert.True(t, got.TotalWithdrawn.Equal(decimal.NewFromInt(4)))

	_, err = f.svc.EarningsOf(context.Background(), uuid.New(), src.InvestmentID)
	assert.ErrorIs(t, err, ErrInvestmentNotFound)
}
