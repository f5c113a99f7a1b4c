// Package operations holds the rollup-side actions of the bot: wrapping,
// staking and trading on the Citea exchange.
package operations

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jonboulle/clockwork"

	"github.com/sfi-network/sfi-bridge-bot/chain"
	"github.com/sfi-network/sfi-bridge-bot/contracts"
	"github.com/sfi-network/sfi-bridge-bot/txmgr"
	"github.com/sfi-network/sfi-bridge-bot/types"
)

const (
	// DefaultApprovalPause is waited after an approval before the spending call.
	DefaultApprovalPause = 5 * time.Second

	// DefaultLockPeriod is used when the staking contract reports no lock
	// period for the account, 100 days in seconds.
	DefaultLockPeriod = 8_640_000
)

// MaxDeadline never expires.
var MaxDeadline = new(big.Int).Sub(new(big.Int).Lsh(common.Big1, 256), common.Big1)

type Operator struct {
	rollup    chain.Backend
	submitter txmgr.Submitter
	catalog   *contracts.Catalog
	clock     clockwork.Clock
	pause     time.Duration
	logger    *slog.Logger

	wsfi    contracts.Contract
	stake   contracts.Contract
	router  contracts.Contract
	factory contracts.Contract
}

type Opts struct {
	Rollup        chain.Backend
	Submitter     txmgr.Submitter
	Catalog       *contracts.Catalog
	Clock         clockwork.Clock
	ApprovalPause time.Duration
	Logger        *slog.Logger
}

func New(opts Opts) (*Operator, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.ApprovalPause == 0 {
		opts.ApprovalPause = DefaultApprovalPause
	}
	if opts.Rollup == nil || opts.Submitter == nil {
		return nil, fmt.Errorf("rollup backend and submitter are required")
	}
	if opts.Catalog == nil {
		catalog, err := contracts.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load contract catalog: %w", err)
		}
		opts.Catalog = catalog
	}

	o := &Operator{
		rollup:    opts.Rollup,
		submitter: opts.Submitter,
		catalog:   opts.Catalog,
		clock:     opts.Clock,
		pause:     opts.ApprovalPause,
		logger:    opts.Logger.With("component", "operations"),
	}

	for name, dst := range map[string]*contracts.Contract{
		"wsfi":         &o.wsfi,
		"stake":        &o.stake,
		"citeaRouter":  &o.router,
		"citeaFactory": &o.factory,
	} {
		c, err := opts.Catalog.Resolve(types.Rollup, name)
		if err != nil {
			return nil, err
		}
		*dst = c
	}

	return o, nil
}

// Approve lets spender move amount of token on behalf of the bot.
func (o *Operator) Approve(ctx context.Context, token contracts.Contract, amount *big.Int, spender common.Address) types.OperationOutcome {
	return o.send(ctx, token, nil, "approve", spender, amount)
}

// Wrap deposits amount of native SFI into wSFI.
func (o *Operator) Wrap(ctx context.Context, amount *big.Int) types.OperationOutcome {
	return o.send(ctx, o.wsfi, amount, "deposit")
}

// Unwrap burns amount of wSFI for native SFI.
func (o *Operator) Unwrap(ctx context.Context, amount *big.Int) types.OperationOutcome {
	return o.send(ctx, o.wsfi, nil, "withdraw", amount)
}

// Stake approves and deposits amount of wSFI in the staking contract, keeping
// the lock period the account already has.
func (o *Operator) Stake(ctx context.Context, amount *big.Int) types.OperationOutcome {
	o.logger.Info("Approving staking amount", "amount", amount)
	if !o.approveAndWait(ctx, o.wsfi, amount, o.stake.Address) {
		return types.Failed(fmt.Errorf("approval failed"))
	}

	lockPeriod, err := o.LockPeriod(ctx)
	if err != nil {
		return types.Failed(err)
	}
	if lockPeriod.Sign() <= 0 {
		o.logger.Warn("Invalid lock period detected, setting to default (100 days).")
		lockPeriod = big.NewInt(DefaultLockPeriod)
	}

	o.logger.Info("Staking", "amount", amount, "lock_period", lockPeriod)
	return o.send(ctx, o.stake, nil, "deposit", amount, lockPeriod)
}

// LockPeriod is unlockDate - lockDate of the bot's current stake.
func (o *Operator) LockPeriod(ctx context.Context) (*big.Int, error) {
	out, err := o.stake.Call(ctx, o.rollup, "userInfo", o.submitter.From())
	if err != nil {
		return nil, err
	}
	if len(out) < 3 {
		return nil, fmt.Errorf("unexpected userInfo result length %d", len(out))
	}
	lockDate, ok1 := out[1].(*big.Int)
	unlockDate, ok2 := out[2].(*big.Int)
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("unexpected userInfo result types %T, %T", out[1], out[2])
	}
	return new(big.Int).Sub(unlockDate, lockDate), nil
}

// Unstake withdraws amount from the staking contract and claims rewards.
func (o *Operator) Unstake(ctx context.Context, amount *big.Int) types.OperationOutcome {
	return o.send(ctx, o.stake, nil, "withdrawAndClaim", amount)
}

// Claim collects staking rewards.
func (o *Operator) Claim(ctx context.Context) types.OperationOutcome {
	return o.send(ctx, o.stake, nil, "claim")
}

// approveAndWait approves and then pauses so the allowance is visible to the
// node serving the next call.
func (o *Operator) approveAndWait(ctx context.Context, token contracts.Contract, amount *big.Int, spender common.Address) bool {
	out := o.Approve(ctx, token, amount, spender)
	if !out.OK() {
		o.logger.Error("Approval failed.", "token", token.Name, "error", out.Error)
		return false
	}
	o.clock.Sleep(o.pause)
	return true
}

func (o *Operator) send(ctx context.Context, c contracts.Contract, value *big.Int, method string, args ...interface{}) types.OperationOutcome {
	data, err := c.Pack(method, args...)
	if err != nil {
		o.logger.Error("Error building transaction", "contract", c.Name, "method", method, "error", err)
		return types.Failed(err)
	}
	return o.submitter.Send(ctx, o.rollup, txmgr.Request{To: c.Address, Data: data, Value: value})
}
