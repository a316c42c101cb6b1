package transactions

import "errors"

var (
	ErrVerificationFailed      = errors.New("deposit verification failed")
	ErrDepositAlreadyProcessed = errors.New("deposit transaction already processed")
)
