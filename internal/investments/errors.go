package investments

import (
	"errors"

	"vaultyield-backend/internal/blockchain"
)

var (
	ErrPlanNotFound           = errors.New("plan not found")
	ErrActiveInvestmentExists = errors.New("user already has an active investment")
	ErrAmountOutOfRange       = errors.New("amount is outside the plan's investment range")
	ErrInvalidUpgrade         = errors.New("invalid upgrade")
	ErrInvestmentNotFound     = errors.New("investment not found")
	ErrInvestmentNotActive    = errors.New("investment is not active")
	ErrNoActiveInvestment     = errors.New("no active investment")
	ErrWithdrawalNotAllowed   = errors.New("withdrawal not allowed")
	// ErrWithdrawalConflict: another withdrawal touched the position between
	// our read and our reservation. Safe to retry from scratch.
	ErrWithdrawalConflict = errors.New("concurrent withdrawal in progress, try again")
	// ErrReconciliationRequired: funds were sent on chain but the local record
	// could not be finalized. Operators must reconcile before anything retries.
	ErrReconciliationRequired = errors.New("withdrawal sent on chain but not recorded, reconciliation required")
)

// ErrUnknownTransferOutcome surfaces the gateway's ambiguous-send sentinel
// under the orchestrator's taxonomy.
var ErrUnknownTransferOutcome = blockchain.ErrUnknownOutcome
