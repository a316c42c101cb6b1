package investments

import (
	"time"

	"vaultyield-backend/internal/domain"

	"github.com/shopspring/decimal"
)

var oneHundred = decimal.NewFromInt(100)

// CalculateEarnings derives the simple daily interest an ACTIVE position has
// accrued by now. Nothing is ever stored: earnings are always a function of
// principal, plan rate and whole elapsed days since the start date. Partial
// days earn nothing (floor truncation), so the value is flat within a day and
// steps up at each 24h boundary.
func CalculateEarnings(inv *domain.Investment, now time.Time) decimal.Decimal {
	if inv.Status != domain.InvestmentStatusActive || inv.StartDate == nil {
		return decimal.Zero
	}
	elapsed := now.Sub(*inv.StartDate)
	if elapsed < 24*time.Hour {
		return decimal.Zero
	}
	days := int64(elapsed / (24 * time.Hour))
	dailyRate := inv.Plan.DailyReturn.Div(oneHundred)
	return inv.AmountInvested.Mul(dailyRate).Mul(decimal.NewFromInt(days))
}

// AvailableEarnings is what the user can still withdraw: accrued earnings
// minus what was already taken, floored at zero.
func AvailableEarnings(inv *domain.Investment, now time.Time) decimal.Decimal {
	if inv.Status != domain.InvestmentStatusActive {
		return decimal.Zero
	}
	available := CalculateEarnings(inv, now).Sub(inv.TotalWithdrawn)
	if available.Sign() < 0 {
		return decimal.Zero
	}
	return available
}

// CanWithdraw checks whether amount may be withdrawn from the position now.
// The reason string is user-facing.
func CanWithdraw(inv *domain.Investment, amount decimal.Decimal, now time.Time) (bool, string) {
	if inv.Status != domain.InvestmentStatusActive {
		return false, "investment is not active"
	}
	if amount.Sign() <= 0 {
		return false, "amount must be positive"
	}
	if amount.GreaterThan(AvailableEarnings(inv, now)) {
		return false, "amount exceeds available earnings"
	}
	return true, ""
}
