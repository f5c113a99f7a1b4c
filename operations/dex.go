package operations

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/sfi-network/sfi-bridge-bot/contracts"
	"github.com/sfi-network/sfi-bridge-bot/types"
)

// Pair names two catalog tokens, e.g. {"wsfi", "aimm"}.
type Pair [2]string

func (p Pair) String() string { return p[0] + "/" + p[1] }

// Tokens resolves both sides of the pair on the rollup.
func (o *Operator) Tokens(pair Pair) ([2]contracts.Contract, error) {
	var tokens [2]contracts.Contract
	for i, name := range pair {
		c, err := o.catalog.Resolve(types.Rollup, name)
		if err != nil {
			return tokens, fmt.Errorf("token %q: %w", name, err)
		}
		tokens[i] = c
	}
	return tokens, nil
}

// Swap sells amount of pair[0] for pair[1], accepting at most slippage less
// than the router quote.
func (o *Operator) Swap(ctx context.Context, amount *big.Int, pair Pair, slippage decimal.Decimal) types.OperationOutcome {
	tokens, err := o.Tokens(pair)
	if err != nil {
		return types.Failed(err)
	}

	o.logger.Info("Approving swapping amount", "amount", amount, "token", pair[0])
	if !o.approveAndWait(ctx, tokens[0], amount, o.router.Address) {
		return types.Failed(fmt.Errorf("approval failed"))
	}

	path := []common.Address{tokens[0].Address, tokens[1].Address}
	quote, err := o.amountsOut(ctx, amount, path)
	if err != nil {
		return types.Failed(err)
	}
	minOut := ApplySlippage(quote[1], slippage)

	o.logger.Info(fmt.Sprintf("Swapping %s %s for %s %s", amount, pair[0], minOut, pair[1]), "slippage", slippage.String())
	return o.send(ctx, o.router, nil, "swapExactTokensForTokensSupportingFeeOnTransferTokens",
		amount, minOut, path, o.submitter.From(), MaxDeadline)
}

// AddLiquidity adds amount of pair[0] and the quoted equivalent of pair[1].
func (o *Operator) AddLiquidity(ctx context.Context, amount *big.Int, pair Pair, slippage decimal.Decimal) types.OperationOutcome {
	tokens, err := o.Tokens(pair)
	if err != nil {
		return types.Failed(err)
	}

	quote, err := o.amountsOut(ctx, amount, []common.Address{tokens[0].Address, tokens[1].Address})
	if err != nil {
		return types.Failed(err)
	}
	amountA, amountB := amount, quote[1]

	for i, a := range []*big.Int{amountA, amountB} {
		o.logger.Info("Approving adding liquidity amount", "amount", a, "token", pair[i])
		if !o.approveAndWait(ctx, tokens[i], a, o.router.Address) {
			return types.Failed(fmt.Errorf("approval failed"))
		}
	}

	o.logger.Info(fmt.Sprintf("Adding %s %s and %s %s to liquidity pool", amountA, pair[0], amountB, pair[1]), "slippage", slippage.String())
	return o.send(ctx, o.router, nil, "addLiquidity",
		tokens[0].Address, tokens[1].Address,
		amountA, amountB,
		ApplySlippage(amountA, slippage), ApplySlippage(amountB, slippage),
		o.submitter.From(), MaxDeadline)
}

// RemoveLiquidity burns percentage of the bot's LP tokens of pair.
func (o *Operator) RemoveLiquidity(ctx context.Context, percentage decimal.Decimal, pair Pair, slippage decimal.Decimal) types.OperationOutcome {
	tokens, err := o.Tokens(pair)
	if err != nil {
		return types.Failed(err)
	}

	lp, err := o.pairToken(ctx, tokens[0].Address, tokens[1].Address)
	if err != nil {
		return types.Failed(err)
	}

	balance, err := o.callUint(ctx, lp, "balanceOf", o.submitter.From())
	if err != nil {
		return types.Failed(err)
	}
	liquidity := decimal.NewFromBigInt(balance, 0).Mul(percentage).Floor().BigInt()
	if liquidity.Sign() <= 0 {
		return types.Failed(fmt.Errorf("no liquidity to remove from %s", pair))
	}

	o.logger.Info("Approving removing liquidity amount", "amount", liquidity)
	if !o.approveAndWait(ctx, lp, liquidity, o.router.Address) {
		return types.Failed(fmt.Errorf("approval failed"))
	}

	supply, err := o.callUint(ctx, lp, "totalSupply")
	if err != nil {
		return types.Failed(err)
	}
	reserves, err := lp.Call(ctx, o.rollup, "getReserves")
	if err != nil {
		return types.Failed(err)
	}
	reserve0, ok0 := reserves[0].(*big.Int)
	reserve1, ok1 := reserves[1].(*big.Int)
	if !ok0 || !ok1 {
		return types.Failed(fmt.Errorf("unexpected getReserves result types %T, %T", reserves[0], reserves[1]))
	}

	min0 := ShareOfReserve(reserve0, liquidity, supply, slippage)
	min1 := ShareOfReserve(reserve1, liquidity, supply, slippage)

	o.logger.Info(fmt.Sprintf("Removing %s liquidity from pool", liquidity), "slippage", slippage.String())
	return o.send(ctx, o.router, nil, "removeLiquidity",
		tokens[0].Address, tokens[1].Address,
		liquidity, min0, min1,
		o.submitter.From(), MaxDeadline)
}

// ApplySlippage is floor(amount * (1 - slippage)).
func ApplySlippage(amount *big.Int, slippage decimal.Decimal) *big.Int {
	return decimal.NewFromBigInt(amount, 0).Mul(decimal.NewFromInt(1).Sub(slippage)).Floor().BigInt()
}

// ShareOfReserve is floor(reserve * liquidity / supply * (1 - slippage)), the
// least amount of a reserve returned for burning liquidity out of supply.
func ShareOfReserve(reserve, liquidity, supply *big.Int, slippage decimal.Decimal) *big.Int {
	if supply.Sign() == 0 {
		return new(big.Int)
	}
	share := decimal.NewFromBigInt(reserve, 0).Mul(decimal.NewFromBigInt(liquidity, 0))
	share = share.Mul(decimal.NewFromInt(1).Sub(slippage)).Div(decimal.NewFromBigInt(supply, 0))
	return share.Floor().BigInt()
}

func (o *Operator) amountsOut(ctx context.Context, amount *big.Int, path []common.Address) ([]*big.Int, error) {
	out, err := o.router.Call(ctx, o.rollup, "getAmountsOut", amount, path)
	if err != nil {
		return nil, err
	}
	amounts, ok := out[0].([]*big.Int)
	if !ok || len(amounts) != len(path) {
		return nil, fmt.Errorf("unexpected getAmountsOut result %v", out)
	}
	return amounts, nil
}

func (o *Operator) pairToken(ctx context.Context, a, b common.Address) (contracts.Contract, error) {
	out, err := o.factory.Call(ctx, o.rollup, "getPair", a, b)
	if err != nil {
		return contracts.Contract{}, err
	}
	addr, ok := out[0].(common.Address)
	if !ok {
		return contracts.Contract{}, fmt.Errorf("unexpected getPair result type %T", out[0])
	}
	return o.catalog.Bind(types.Rollup, "pair", addr)
}

func (o *Operator) callUint(ctx context.Context, c contracts.Contract, method string, args ...interface{}) (*big.Int, error) {
	out, err := c.Call(ctx, o.rollup, method, args...)
	if err != nil {
		return nil, err
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected %s.%s result type %T", c.Name, method, out[0])
	}
	return v, nil
}
