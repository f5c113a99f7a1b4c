package ethereum

import (
	"fmt"
	"log/slog"

	"github.com/sfi-network/sfi-bridge-bot/chain"
	"github.com/sfi-network/sfi-bridge-bot/contracts"
	"github.com/sfi-network/sfi-bridge-bot/types"
)

// Client reads withdrawal and output state from the settlement chain.
type Client struct {
	reader chain.Reader
	portal contracts.Contract
	oracle contracts.Contract
	logger *slog.Logger
	Opts   *ClientOpts
}

type ClientOpts struct {
	Reader     chain.Reader
	Catalog    *contracts.Catalog
	Logger     *slog.Logger
	PortalName string
	OracleName string
}

// NewClient resolves the portal and output oracle from the catalog. Missing
// catalog entries are an error.
func NewClient(opts ClientOpts) (*Client, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Reader == nil {
		return nil, fmt.Errorf("no settlement chain reader given")
	}
	if opts.Catalog == nil {
		catalog, err := contracts.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load contract catalog: %w", err)
		}
		opts.Catalog = catalog
	}
	if opts.PortalName == "" {
		opts.PortalName = "portal"
	}
	if opts.OracleName == "" {
		opts.OracleName = "oracle"
	}

	portal, err := opts.Catalog.Resolve(types.Settlement, opts.PortalName)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve portal: %w", err)
	}

	oracle, err := opts.Catalog.Resolve(types.Settlement, opts.OracleName)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output oracle: %w", err)
	}

	return &Client{
		reader: opts.Reader,
		portal: portal,
		oracle: oracle,
		logger: opts.Logger.With("component", "settlement"),
		Opts:   &opts,
	}, nil
}

// Portal is the resolved portal contract.
func (c *Client) Portal() contracts.Contract { return c.portal }

// Oracle is the resolved output oracle contract.
func (c *Client) Oracle() contracts.Contract { return c.oracle }
