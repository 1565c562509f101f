package models

import (
	"context"
	"math/big"
)

// TransferProof is the verified token transfer extracted from a receipt.
type TransferProof struct {
	// From is the sender address of the matched transfer.
	From string
	// To is the recipient address, matching the expected channel wallet.
	To string
	// Amount is the transferred value in the token's smallest unit.
	Amount *big.Int
}

// ChainVerifier verifies claimed on-chain token payments. Read-only
// against the chain.
type ChainVerifier interface {
	// VerifyTransfer checks that txHash carries a successful token
	// transfer of at least minAmount (smallest unit) to expectedRecipient.
	// Failures are returned as *VerificationError.
	VerifyTransfer(ctx context.Context, txHash, expectedRecipient string, minAmount *big.Int) (*TransferProof, error)
}
