package blockchain

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
)

// USDT uses 6 fixed decimals on chain.
const usdtDecimals = 6

// transfer(address,uint256)
var transferMethodID = common.FromHex("0xa9059cbb")

const transferGasLimit = 100_000

// USDTClient implements Gateway against an Ethereum JSON-RPC node. Sends are
// signed locally with the treasury key; verification decodes the ERC-20
// transfer calldata of the submitted transaction.
type USDTClient struct {
	eth            *ethclient.Client
	token          common.Address
	key            *ecdsa.PrivateKey
	from           common.Address
	chainID        *big.Int
	confirmTimeout time.Duration
	pollInterval   time.Duration
}

// NewUSDTClient dials the node and prepares the treasury signer.
func NewUSDTClient(rpcURL, tokenAddress, treasuryKeyHex string, chainID int64, confirmTimeout time.Duration) (*USDTClient, error) {
	eth, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial eth node: %w", err)
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(treasuryKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse treasury key: %w", err)
	}
	return &USDTClient{
		eth:            eth,
		token:          common.HexToAddress(tokenAddress),
		key:            key,
		from:           crypto.PubkeyToAddress(key.PublicKey),
		chainID:        big.NewInt(chainID),
		confirmTimeout: confirmTimeout,
		pollInterval:   2 * time.Second,
	}, nil
}

// SendFunds builds, signs and broadcasts a USDT transfer, then waits for the
// receipt. Errors before broadcast are definite failures; once the
// transaction is out, a confirmation timeout is an unknown outcome and the
// returned hash identifies the in-flight transfer for reconciliation.
func (c *USDTClient) SendFunds(ctx context.Context, toAddress string, amount decimal.Decimal) (string, error) {
	units := amount.Shift(usdtDecimals).BigInt()
	if units.Sign() <= 0 {
		return "", fmt.Errorf("%w: non-positive amount %s", ErrTransferFailed, amount)
	}

	nonce, err := c.eth.PendingNonceAt(ctx, c.from)
	if err != nil {
		return "", fmt.Errorf("%w: nonce: %v", ErrTransferFailed, err)
	}
	gasPrice, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: gas price: %v", ErrTransferFailed, err)
	}

	data := packTransfer(common.HexToAddress(toAddress), units)
	tx := types.NewTransaction(nonce, c.token, big.NewInt(0), transferGasLimit, gasPrice, data)
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.key)
	if err != nil {
		return "", fmt.Errorf("%w: sign: %v", ErrTransferFailed, err)
	}

	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			// The node may or may not have accepted the broadcast.
			return signed.Hash().Hex(), fmt.Errorf("%w: broadcast interrupted: %v", ErrUnknownOutcome, err)
		}
		return "", fmt.Errorf("%w: broadcast: %v", ErrTransferFailed, err)
	}

	hash := signed.Hash()
	deadline := time.Now().Add(c.confirmTimeout)
	for {
		receipt, err := c.eth.TransactionReceipt(ctx, hash)
		if err == nil {
			if receipt.Status == types.ReceiptStatusSuccessful {
				return hash.Hex(), nil
			}
			return hash.Hex(), fmt.Errorf("%w: transaction reverted", ErrTransferFailed)
		}
		if !errors.Is(err, ethereum.NotFound) {
			return hash.Hex(), fmt.Errorf("%w: receipt: %v", ErrUnknownOutcome, err)
		}
		if time.Now().After(deadline) {
			return hash.Hex(), fmt.Errorf("%w: no receipt after %s", ErrUnknownOutcome, c.confirmTimeout)
		}
		select {
		case <-ctx.Done():
			return hash.Hex(), fmt.Errorf("%w: %v", ErrUnknownOutcome, ctx.Err())
		case <-time.After(c.pollInterval):
		}
	}
}

// VerifyTransaction fetches the transaction and its receipt, requires a
// successful receipt addressed at the USDT contract, and decodes the
// transfer recipient and amount from calldata.
func (c *USDTClient) VerifyTransaction(ctx context.Context, txHash string) (*VerifyResult, error) {
	hash := common.HexToHash(txHash)

	tx, pending, err := c.eth.TransactionByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return &VerifyResult{Valid: false, Reason: "transaction not found"}, nil
		}
		return nil, fmt.Errorf("fetch transaction: %w", err)
	}
	if pending {
		return &VerifyResult{Valid: false, Reason: "transaction not yet mined"}, nil
	}

	receipt, err := c.eth.TransactionReceipt(ctx, hash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return &VerifyResult{Valid: false, Reason: "receipt not found"}, nil
		}
		return nil, fmt.Errorf("fetch receipt: %w", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return &VerifyResult{Valid: false, Reason: "transaction reverted"}, nil
	}

	if tx.To() == nil || *tx.To() != c.token {
		return &VerifyResult{Valid: false, Reason: "not addressed at the USDT contract"}, nil
	}
	to, units, ok := decodeTransfer(tx.Data())
	if !ok {
		return &VerifyResult{Valid: false, Reason: "not an ERC-20 transfer call"}, nil
	}

	return &VerifyResult{
		Valid:     true,
		Amount:    decimal.NewFromBigInt(units, -usdtDecimals),
		ToAddress: to.Hex(),
	}, nil
}

// GenerateAddress creates a fresh custodial deposit address. Only the address
// is kept; the throwaway key never leaves this function.
func GenerateAddress() (string, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return "", err
	}
	return crypto.PubkeyToAddress(key.PublicKey).Hex(), nil
}

func packTransfer(to common.Address, units *big.Int) []byte {
	data := make([]byte, 0, 4+32+32)
	data = append(data, transferMethodID...)
	data = append(data, common.LeftPadBytes(to.Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(units.Bytes(), 32)...)
	return data
}

func decodeTransfer(data []byte) (common.Address, *big.Int, bool) {
	if len(data) != 4+32+32 || !bytes.Equal(data[:4], transferMethodID) {
		return common.Address{}, nil, false
	}
	to := common.BytesToAddress(data[4:36])
	units := new(big.Int).SetBytes(data[36:68])
	return to, units, true
}
