package blockchain

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/mnee-gate/gatekeeper/pkg/logger"
)

const (
	// RPCTimeout bounds every call against the RPC node.
	RPCTimeout = 10 * time.Second
)

// ReceiptFetcher fetches transaction receipts by hash.
type ReceiptFetcher interface {
	GetTransactionReceipt(ctx context.Context, txHash string) (*types.Receipt, error)
}

type Client struct {
	logger *logger.Logger
	apiURL string
	client *ethclient.Client
}

// NewClient creates a new Client instance.
func NewClient(apiURL string, logger *logger.Logger) *Client {
	return &Client{apiURL: apiURL, logger: logger}
}

func (c *Client) Connect() error {
	client, err := ethclient.Dial(c.apiURL)
	if err != nil {
		return fmt.Errorf("failed to connect to the Ethereum RPC server: %w", err)
	}
	c.client = client
	return nil
}

func (c *Client) Close() error {
	if c.client != nil {
		c.client.Close()
	}
	return nil
}

func (c *Client) GetTransactionReceipt(ctx context.Context, txHash string) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, RPCTimeout)
	defer cancel()

	receipt, err := c.client.TransactionReceipt(ctx, common.HexToHash(txHash))
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction receipt: %w", err)
	}
	return receipt, nil
}
