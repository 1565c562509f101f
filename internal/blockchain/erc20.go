package blockchain

import (
	"context"
	"errors"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/mnee-gate/gatekeeper/internal/models"
	"github.com/mnee-gate/gatekeeper/pkg/logger"
	"github.com/mnee-gate/gatekeeper/pkg/validation"
)

// ERC20ABI is the minimal ABI of the MNEE token contract: the Transfer
// event plus the read functions the service may query.
const ERC20ABI = `[{"anonymous":false,"inputs":[{"indexed":true,"internalType":"address","name":"from","type":"address"},{"indexed":true,"internalType":"address","name":"to","type":"address"},{"indexed":false,"internalType":"uint256","name":"value","type":"uint256"}],"name":"Transfer","type":"event"},{"constant":true,"inputs":[{"internalType":"address","name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"internalType":"uint256","name":"balance","type":"uint256"}],"stateMutability":"view","type":"function"},{"constant":true,"inputs":[],"name":"decimals","outputs":[{"internalType":"uint8","name":"","type":"uint8"}],"stateMutability":"view","type":"function"},{"constant":false,"inputs":[{"internalType":"address","name":"_to","type":"address"},{"internalType":"uint256","name":"_value","type":"uint256"}],"name":"transfer","outputs":[{"internalType":"bool","name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"}]`

// TokenDecimals is the number of decimals of the MNEE token (standard
// ERC-20 is 18).
const TokenDecimals = 18

// Verifier verifies claimed token payments against receipt logs.
type Verifier struct {
	logger *logger.Logger

	chain        ReceiptFetcher
	tokenAddress common.Address
	tokenABI     abi.ABI
	transferID   common.Hash
}

// NewVerifier creates a Verifier for the given token contract address.
func NewVerifier(chain ReceiptFetcher, tokenContract string, logger *logger.Logger) (*Verifier, error) {
	parsed, err := abi.JSON(strings.NewReader(ERC20ABI))
	if err != nil {
		return nil, err
	}
	return &Verifier{
		logger:       logger,
		chain:        chain,
		tokenAddress: common.HexToAddress(tokenContract),
		tokenABI:     parsed,
		transferID:   parsed.Events["Transfer"].ID,
	}, nil
}

// VerifyTransfer fetches the receipt for txHash and scans its logs for
// the first token transfer to expectedRecipient. The transfer amount must
// be at least minAmount in the token's smallest unit; equality or excess
// is accepted.
func (v *Verifier) VerifyTransfer(ctx context.Context, txHash, expectedRecipient string, minAmount *big.Int) (*models.TransferProof, error) {
	receipt, err := v.chain.GetTransactionReceipt(ctx, txHash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) || errors.Is(err, context.DeadlineExceeded) {
			return nil, models.NewVerificationError(models.TxNotFound, "transaction %s not found", txHash)
		}
		return nil, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, models.NewVerificationError(models.TxFailed, "transaction %s failed on-chain", txHash)
	}

	recipient := common.HexToAddress(expectedRecipient)

	var proof *models.TransferProof
	for _, entry := range receipt.Logs {
		if entry.Address != v.tokenAddress {
			continue
		}
		from, to, amount, ok := v.decodeTransfer(entry)
		if !ok {
			continue
		}
		if to != recipient {
			continue
		}
		// First matching transfer wins.
		proof = &models.TransferProof{
			From:   validation.NormalizeAddress(from.Hex()),
			To:     validation.NormalizeAddress(to.Hex()),
			Amount: amount,
		}
		break
	}

	if proof == nil {
		return nil, models.NewVerificationError(models.NoMatchingTransfer,
			"no token transfer to %s found in transaction %s", expectedRecipient, txHash)
	}

	if proof.Amount.Cmp(minAmount) < 0 {
		return nil, models.NewVerificationError(models.InsufficientAmount,
			"transferred %s, expected at least %s", proof.Amount, minAmount)
	}

	return proof, nil
}

// decodeTransfer decodes a receipt log as an ERC-20 Transfer event.
// Returns ok=false for logs that are not transfers.
func (v *Verifier) decodeTransfer(entry *types.Log) (from, to common.Address, amount *big.Int, ok bool) {
	if len(entry.Topics) != 3 || entry.Topics[0] != v.transferID {
		return common.Address{}, common.Address{}, nil, false
	}
	values, err := v.tokenABI.Unpack("Transfer", entry.Data)
	if err != nil || len(values) != 1 {
		return common.Address{}, common.Address{}, nil, false
	}
	amount, ok = values[0].(*big.Int)
	if !ok {
		return common.Address{}, common.Address{}, nil, false
	}
	from = common.BytesToAddress(entry.Topics[1].Bytes())
	to = common.BytesToAddress(entry.Topics[2].Bytes())
	return from, to, amount, true
}

// ToWei converts a token amount in human units to the smallest unit,
// truncating toward zero.
func ToWei(amount float64) *big.Int {
	scaled := new(big.Float).Mul(big.NewFloat(amount), big.NewFloat(1e18))
	wei, _ := scaled.Int(nil)
	return wei
}
