package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sfi-network/sfi-bridge-bot/api"
	"github.com/sfi-network/sfi-bridge-bot/chain"
	"github.com/sfi-network/sfi-bridge-bot/config"
	"github.com/sfi-network/sfi-bridge-bot/contracts"
	"github.com/sfi-network/sfi-bridge-bot/gelato"
	"github.com/sfi-network/sfi-bridge-bot/operations"
	"github.com/sfi-network/sfi-bridge-bot/scheduler"
	"github.com/sfi-network/sfi-bridge-bot/txmgr"
	"github.com/sfi-network/sfi-bridge-bot/types"
	"github.com/sfi-network/sfi-bridge-bot/withdrawal"
)

// bot holds everything a command needs. It is built once per process and
// passed down explicitly.
type bot struct {
	rollup     *chain.Client
	settlement *chain.Client
	submitter  *txmgr.TxManager
	machine    *withdrawal.StateMachine
	operator   *operations.Operator
	scheduler  *scheduler.Scheduler
	delay      time.Duration
	logger     *slog.Logger
}

func newBot(ctx context.Context, env *config.Env, logger *slog.Logger) (*bot, error) {
	catalog, err := contracts.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load contract catalog: %w", err)
	}

	rollup, err := chain.NewClient(ctx, chain.ClientOpts{
		Chain:    types.Rollup,
		Endpoint: env.RollupRPC,
		Logger:   logger.With("component", "sfi-client"),
	})
	if err != nil {
		return nil, err
	}

	settlement, err := chain.NewClient(ctx, chain.ClientOpts{
		Chain:    types.Settlement,
		Endpoint: env.SettlementRPC,
		Logger:   logger.With("component", "sepolia-client"),
	})
	if err != nil {
		return nil, err
	}

	checkContracts(ctx, rollup, catalog, logger)
	checkContracts(ctx, settlement, catalog, logger)

	submitter, err := txmgr.New(txmgr.Opts{
		PrivateKey: env.PrivateKey,
		Logger:     logger.With("component", "txmgr"),
	})
	if err != nil {
		return nil, err
	}

	bridgeAPI := gelato.NewClient(gelato.ClientOpts{
		Endpoint: env.GelatoAPI,
		Slug:     env.GelatoSlug,
		Logger:   logger,
	})

	machine, err := withdrawal.NewStateMachine(withdrawal.StateMachineOpts{
		Rollup:     rollup,
		Settlement: settlement,
		Catalog:    catalog,
		Submitter:  submitter,
		Listing:    bridgeAPI,
		Registrar:  bridgeAPI,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create withdrawal state machine: %w", err)
	}

	operator, err := operations.New(operations.Opts{
		Rollup:    rollup,
		Submitter: submitter,
		Catalog:   catalog,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create rollup operator: %w", err)
	}

	if env.APIPort != "" {
		server, err := api.NewServer(api.ServerOpts{
			Logger:  logger.With("component", "api-server"),
			Port:    env.APIPort,
			Records: machine.Tracker(),
			Version: Version,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create api server: %w", err)
		}
		go server.StartServer()
	}

	return &bot{
		rollup:     rollup,
		settlement: settlement,
		submitter:  submitter,
		machine:    machine,
		operator:   operator,
		scheduler:  scheduler.New(scheduler.Opts{Logger: logger}),
		delay:      env.RetryDelay,
		logger:     logger,
	}, nil
}

func (b *bot) run(ctx context.Context, steps []scheduler.Step) error {
	b.logger.Info("--- Address: " + b.submitter.From().Hex() + " ---")

	results := scheduler.NewWorkflow(b.scheduler, b.delay, steps...).Run(ctx)
	for i, r := range results {
		b.logger.Debug("operation summary", "operation", steps[i].Name, "attempts", r.Attempts, "failures", r.Failures, "elapsed", r.Elapsed)
	}
	return nil
}

// checkContracts warns about catalog entries without code on chain. The
// message passer is a predeploy and always has code on a live rollup.
func checkContracts(ctx context.Context, c *chain.Client, catalog *contracts.Catalog, logger *slog.Logger) {
	for _, contract := range catalog.Contracts(c.Chain()) {
		ok, err := c.IsContract(ctx, contract.Address)
		if err != nil {
			logger.Warn("Failed to check contract code", "chain", c.Chain(), "contract", contract.Name, "error", err)
			continue
		}
		if !ok {
			logger.Warn("No code at contract address", "chain", c.Chain(), "contract", contract.Name, "address", contract.Address.Hex())
		}
	}
}
