package main

import (
	"context"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/sfi-network/sfi-bridge-bot/config"
	"github.com/sfi-network/sfi-bridge-bot/operations"
	"github.com/sfi-network/sfi-bridge-bot/scheduler"
	"github.com/sfi-network/sfi-bridge-bot/types"
)

type rollupOperator interface {
	Wrap(ctx context.Context, amount *big.Int) types.OperationOutcome
	Unwrap(ctx context.Context, amount *big.Int) types.OperationOutcome
	Stake(ctx context.Context, amount *big.Int) types.OperationOutcome
	Unstake(ctx context.Context, amount *big.Int) types.OperationOutcome
	Claim(ctx context.Context) types.OperationOutcome
	Swap(ctx context.Context, amount *big.Int, pair operations.Pair, slippage decimal.Decimal) types.OperationOutcome
	AddLiquidity(ctx context.Context, amount *big.Int, pair operations.Pair, slippage decimal.Decimal) types.OperationOutcome
	RemoveLiquidity(ctx context.Context, percentage decimal.Decimal, pair operations.Pair, slippage decimal.Decimal) types.OperationOutcome
}

type withdrawer interface {
	ProveRecent(ctx context.Context) types.OperationOutcome
	FinalizeRecent(ctx context.Context) types.OperationOutcome
	Bridge(ctx context.Context, amount *big.Int) types.OperationOutcome
}

func withAmount(fn func(context.Context, *big.Int) types.OperationOutcome, amount *big.Int) scheduler.Operation {
	return func(ctx context.Context) types.OperationOutcome { return fn(ctx, amount) }
}

// defaultSteps is the rollup activity run by the run command.
func defaultSteps(o rollupOperator, cfg *config.Config) []scheduler.Step {
	pair := operations.Pair{cfg.Citea.Pair[0], cfg.Citea.Pair[1]}
	slippage := cfg.Citea.Slippage

	return []scheduler.Step{
		{Name: "wrap", Op: withAmount(o.Wrap, cfg.WrapAmount), Times: 2},
		{Name: "unwrap", Op: withAmount(o.Unwrap, cfg.UnwrapAmount), Times: 2},
		{Name: "stake", Op: withAmount(o.Stake, cfg.StakeAmount), Times: 2},
		{Name: "unstake", Op: withAmount(o.Unstake, cfg.UnstakeAmount), Times: 1},
		{Name: "claim", Op: o.Claim, Times: 2},
		{Name: "swap", Op: func(ctx context.Context) types.OperationOutcome {
			return o.Swap(ctx, cfg.Citea.SwapAmount, pair, slippage)
		}, Times: 3},
		{Name: "addLiquidity", Op: func(ctx context.Context) types.OperationOutcome {
			return o.AddLiquidity(ctx, cfg.Citea.AddLiquidityAmount, pair, slippage)
		}, Times: 1},
		{Name: "removeLiquidity", Op: func(ctx context.Context) types.OperationOutcome {
			return o.RemoveLiquidity(ctx, cfg.Citea.RemoveLiquidityPerc, pair, slippage)
		}, Times: 1},
	}
}

func proveSteps(w withdrawer) []scheduler.Step {
	return []scheduler.Step{{Name: "proveWithdrawals", Op: w.ProveRecent, Times: 1}}
}

func finalizeSteps(w withdrawer) []scheduler.Step {
	return []scheduler.Step{{Name: "finalizeWithdrawals", Op: w.FinalizeRecent, Times: 1}}
}

func bridgeSteps(w withdrawer, amount *big.Int, times int) []scheduler.Step {
	return []scheduler.Step{{Name: "initWithdrawal", Op: withAmount(w.Bridge, amount), Times: times}}
}
