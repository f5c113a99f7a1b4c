// Package gelato talks to the Gelato RaaS bridge API, which indexes the
// withdrawals of the rollup.
package gelato

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-resty/resty/v2"
)

const (
	DefaultEndpoint = "https://api.gelato.digital/raas/public/bridge/transactions"
	DefaultSlug     = "singularity-finance-testnet"

	// RecentLimit is how many of the most recent withdrawals are returned.
	RecentLimit = 5
)

// BridgeToken is the token address the bridge UI uses for native SFI.
var BridgeToken = common.HexToAddress("0x9a3f60032941C91cdeF5dBB58f2cE80e47e3ddCA")

// Withdrawal is one entry of the bridge transaction listing.
type Withdrawal struct {
	TransactionHash string `json:"transactionHash"`
	From            string `json:"from,omitempty"`
	To              string `json:"to,omitempty"`
	Amount          string `json:"amount,omitempty"`
	MessageStatus   int    `json:"messageStatus,omitempty"`
	Timestamp       int64  `json:"timestamp,omitempty"`
	IsWithdraw      bool   `json:"isWithdraw,omitempty"`
}

// Registration is the body posted for a freshly initiated withdrawal.
type Registration struct {
	Direction       int            `json:"direction"`
	From            common.Address `json:"from"`
	To              common.Address `json:"to"`
	L1Token         common.Address `json:"l1Token"`
	L2Token         common.Address `json:"l2Token"`
	Amount          string         `json:"amount"`
	Data            string         `json:"data"`
	LogIndex        int            `json:"logIndex"`
	BlockNumber     int            `json:"blockNumber"`
	TransactionHash string         `json:"transactionHash"`
	Timestamp       int64          `json:"timestamp"`
	MessageStatus   int            `json:"messageStatus"`
	Button          bool           `json:"button"`
	Slug            string         `json:"slug"`
	IsWithdraw      bool           `json:"isWithdraw"`
	RawTx           string         `json:"rawTx"`
}

// NewWithdrawalRegistration describes a withdrawal of amount from account to
// itself. The slug is filled in by the client.
func NewWithdrawalRegistration(account common.Address, amount *big.Int, txHash common.Hash, rawTx string) Registration {
	return Registration{
		Direction:       1,
		From:            account,
		To:              account,
		L1Token:         BridgeToken,
		L2Token:         BridgeToken,
		Amount:          amount.String(),
		Data:            "0x",
		TransactionHash: txHash.Hex(),
		Timestamp:       time.Now().UnixMilli(),
		MessageStatus:   2,
		Button:          true,
		IsWithdraw:      true,
		RawTx:           rawTx,
	}
}

type listResponse struct {
	Data []Withdrawal `json:"data"`
}

type Client struct {
	http   *resty.Client
	logger *slog.Logger
	Opts   *ClientOpts
}

type ClientOpts struct {
	Endpoint string
	Slug     string
	Timeout  time.Duration
	Logger   *slog.Logger
}

func NewClient(opts ClientOpts) *Client {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.Slug == "" {
		opts.Slug = DefaultSlug
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}

	rc := resty.New().
		SetTimeout(opts.Timeout).
		SetHeader("Accept", "application/json")

	return &Client{
		http:   rc,
		logger: opts.Logger.With("component", "gelato"),
		Opts:   &opts,
	}
}

// ListRecentWithdrawals returns the last RecentLimit withdrawals of account in
// the order the API lists them.
func (c *Client) ListRecentWithdrawals(ctx context.Context, account common.Address) ([]Withdrawal, error) {
	res := &listResponse{}
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"isWithdraw":  "true",
			"slug":        c.Opts.Slug,
			"fromAddress": account.Hex(),
		}).
		SetResult(res).
		Get(c.Opts.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to list withdrawals: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("failed to list withdrawals: %s: %s", resp.Status(), resp.String())
	}

	withdrawals := res.Data
	if len(withdrawals) > RecentLimit {
		withdrawals = withdrawals[len(withdrawals)-RecentLimit:]
	}
	c.logger.Info(fmt.Sprintf("Got %d withdrawal(s).", len(withdrawals)))
	return withdrawals, nil
}

// Register posts reg to the bridge API.
func (c *Client) Register(ctx context.Context, reg Registration) error {
	if reg.Slug == "" {
		reg.Slug = c.Opts.Slug
	}

	c.logger.Info("Calling Gelato API...", "tx_hash", reg.TransactionHash)
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(reg).
		Post(c.Opts.Endpoint)
	if err != nil {
		return fmt.Errorf("failed to register withdrawal: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("gelato API error: %s: %s", resp.Status(), resp.String())
	}

	c.logger.Debug("gelato response", "body", resp.String())
	return nil
}
