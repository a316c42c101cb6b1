package blockchain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrTransferFailed: the send definitely did not land on chain
	// (signing/broadcast rejected, or the transaction reverted).
	ErrTransferFailed = errors.New("on-chain transfer failed")
	// ErrUnknownOutcome: the send was broadcast but confirmation timed out.
	// Callers must treat this as "outcome unknown", never as "did not happen",
	// and must not retry with the same parameters.
	ErrUnknownOutcome = errors.New("on-chain transfer outcome unknown")
)

// VerifyResult reports what a deposit transaction actually did on chain:
// the decoded token-transfer recipient and amount, not merely "tx exists".
type VerifyResult struct {
	Valid     bool            `json:"valid"`
	Amount    decimal.Decimal `json:"amount"`
	ToAddress string          `json:"to_address"`
	Reason    string          `json:"reason,omitempty"`
}

// Gateway is the blockchain collaborator. Both operations may block and be
// slow; SendFunds is not retractable once broadcast.
type Gateway interface {
	SendFunds(ctx context.Context, toAddress string, amount decimal.Decimal) (string, error)
	VerifyTransaction(ctx context.Context, txHash string) (*VerifyResult, error)
}
