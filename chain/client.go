package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/ethclient/gethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/sfi-network/sfi-bridge-bot/types"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultPollInterval = 2 * time.Second
)

// Client wraps the JSON-RPC connection to a single chain. It does not retry
// failed calls; errors are returned to the caller as they are.
type Client struct {
	client *ethclient.Client
	geth   *gethclient.Client
	chain  types.Chain
	logger *slog.Logger
	Opts   *ClientOpts

	mu      sync.Mutex
	chainId *big.Int
}

type ClientOpts struct {
	Chain        types.Chain
	Endpoint     string
	Logger       *slog.Logger
	Timeout      time.Duration // per HTTP request
	PollInterval time.Duration // receipt polling while waiting for a transaction
}

// NewClient dials the endpoint over HTTP and checks the connection by fetching
// the chain id.
func NewClient(ctx context.Context, opts ClientOpts) (*Client, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Timeout == 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.PollInterval == 0 {
		opts.PollInterval = defaultPollInterval
	}

	rpcClient, err := rpc.DialOptions(ctx, opts.Endpoint, rpc.WithHTTPClient(&http.Client{Timeout: opts.Timeout}))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", opts.Chain, err)
	}

	c := &Client{
		client: ethclient.NewClient(rpcClient),
		geth:   gethclient.New(rpcClient),
		chain:  opts.Chain,
		logger: opts.Logger,
		Opts:   &opts,
	}

	chainId, err := c.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chainId: %w", err)
	}

	opts.Logger.Info("Connected to "+string(opts.Chain), "chainId", chainId, "endpoint", opts.Endpoint)

	return c, nil
}

func (c *Client) Chain() types.Chain {
	return c.chain
}

// ChainID is fetched once and cached for the lifetime of the client.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.chainId != nil {
		return new(big.Int).Set(c.chainId), nil
	}

	id, err := c.client.ChainID(ctx)
	if err != nil {
		return nil, err
	}
	c.chainId = id
	return new(big.Int).Set(id), nil
}

func (c *Client) HeaderByNumber(ctx context.Context, number *big.Int) (*gethtypes.Header, error) {
	return c.client.HeaderByNumber(ctx, number)
}

func (c *Client) TransactionReceipt(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error) {
	return c.client.TransactionReceipt(ctx, txHash)
}

func (c *Client) TransactionByHash(ctx context.Context, txHash common.Hash) (*gethtypes.Transaction, bool, error) {
	return c.client.TransactionByHash(ctx, txHash)
}

func (c *Client) GetProof(ctx context.Context, account common.Address, keys []string, blockNumber *big.Int) (*gethclient.AccountResult, error) {
	return c.geth.GetProof(ctx, account, keys, blockNumber)
}

func (c *Client) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return c.client.CallContract(ctx, call, blockNumber)
}

func (c *Client) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return c.client.PendingNonceAt(ctx, account)
}

func (c *Client) EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
	return c.client.EstimateGas(ctx, call)
}

func (c *Client) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return c.client.SuggestGasTipCap(ctx)
}

func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return c.client.SuggestGasPrice(ctx)
}

func (c *Client) SendTransaction(ctx context.Context, tx *gethtypes.Transaction) error {
	return c.client.SendTransaction(ctx, tx)
}

// WaitForReceipt polls until the transaction is mined. It only returns early
// on an RPC error other than "not found" or when ctx is done.
func (c *Client) WaitForReceipt(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error) {
	return waitForReceipt(ctx, c.client, txHash, c.Opts.PollInterval, c.logger)
}

type receiptFetcher interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error)
}

func waitForReceipt(ctx context.Context, r receiptFetcher, txHash common.Hash, interval time.Duration, logger *slog.Logger) (*gethtypes.Receipt, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		receipt, err := r.TransactionReceipt(ctx, txHash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("failed to get transaction receipt: %w", err)
		}

		logger.Debug("transaction not yet mined", "tx_hash", txHash.Hex())

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// IsContract reports whether code is deployed at addr.
func (c *Client) IsContract(ctx context.Context, addr common.Address) (bool, error) {
	code, err := c.client.CodeAt(ctx, addr, nil)
	if err != nil {
		return false, err
	}
	return len(code) > 0, nil
}
