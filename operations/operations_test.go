package operations

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/sfi-network/sfi-bridge-bot/chain/chaintest"
	"github.com/sfi-network/sfi-bridge-bot/contracts"
	"github.com/sfi-network/sfi-bridge-bot/txmgr"
	"github.com/sfi-network/sfi-bridge-bot/types"
)

const testKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

var pairAddress = common.HexToAddress("0x5afe00000000000000000000000000000000beef")

func newOperator(t *testing.T) (*Operator, *chaintest.Backend, *contracts.Catalog) {
	catalog, err := contracts.Load()
	require.NoError(t, err)
	mgr, err := txmgr.New(txmgr.Opts{PrivateKey: testKey})
	require.NoError(t, err)

	backend := chaintest.NewBackend(types.Rollup, 751)
	o, err := New(Opts{
		Rollup:        backend,
		Submitter:     mgr,
		Catalog:       catalog,
		ApprovalPause: time.Millisecond,
	})
	require.NoError(t, err)
	return o, backend, catalog
}

// call decodes a sent transaction as a call of method on c.
func call(t *testing.T, c contracts.Contract, method string, tx *gethtypes.Transaction) []interface{} {
	require.Equal(t, c.Address, *tx.To(), "transaction target")
	m := c.ABI.Methods[method]
	require.Equal(t, m.ID, tx.Data()[:4], "method %s", method)
	args, err := m.Inputs.Unpack(tx.Data()[4:])
	require.NoError(t, err)
	return args
}

func TestApplySlippage(t *testing.T) {
	require.Equal(t, big.NewInt(980), ApplySlippage(big.NewInt(1000), decimal.RequireFromString("0.02")))
	require.Equal(t, big.NewInt(979), ApplySlippage(big.NewInt(999), decimal.RequireFromString("0.02")))
	require.Equal(t, big.NewInt(1000), ApplySlippage(big.NewInt(1000), decimal.Zero))

	wei, _ := new(big.Int).SetString("15000000000000000", 10)
	want, _ := new(big.Int).SetString("14700000000000000", 10)
	require.Equal(t, want, ApplySlippage(wei, decimal.RequireFromString("0.02")))
}

func TestShareOfReserve(t *testing.T) {
	s := decimal.RequireFromString("0.02")
	require.Equal(t, big.NewInt(98), ShareOfReserve(big.NewInt(5000), big.NewInt(200), big.NewInt(10000), s))
	require.Equal(t, big.NewInt(156), ShareOfReserve(big.NewInt(8000), big.NewInt(200), big.NewInt(10000), s))
	require.Equal(t, big.NewInt(0), ShareOfReserve(big.NewInt(8000), big.NewInt(200), big.NewInt(0), s))
}

func TestWrapUnwrap(t *testing.T) {
	o, backend, catalog := newOperator(t)
	wsfi := catalog.MustResolve(types.Rollup, "wsfi")

	require.True(t, o.Wrap(context.Background(), big.NewInt(20)).OK())
	require.True(t, o.Unwrap(context.Background(), big.NewInt(10)).OK())
	require.Equal(t, 2, backend.SentCount())

	call(t, wsfi, "deposit", backend.Sent[0])
	require.Equal(t, big.NewInt(20), backend.Sent[0].Value())

	args := call(t, wsfi, "withdraw", backend.Sent[1])
	require.Equal(t, big.NewInt(10), args[0])
	require.Zero(t, backend.Sent[1].Value().Sign())
}

func TestStake(t *testing.T) {
	for _, tc := range []struct {
		name       string
		lock       int64
		unlock     int64
		lockPeriod int64
	}{
		{"existing stake", 1_700_000_000, 1_700_086_400, 86_400},
		{"no stake", 0, 0, DefaultLockPeriod},
	} {
		t.Run(tc.name, func(t *testing.T) {
			o, backend, catalog := newOperator(t)
			wsfi := catalog.MustResolve(types.Rollup, "wsfi")
			stake := catalog.MustResolve(types.Rollup, "stake")

			backend.Handle(stake, "userInfo", chaintest.Returns(big.NewInt(0), big.NewInt(tc.lock), big.NewInt(tc.unlock), big.NewInt(0)))

			out := o.Stake(context.Background(), big.NewInt(10))
			require.True(t, out.OK(), out.Error)
			require.Equal(t, 2, backend.SentCount())

			args := call(t, wsfi, "approve", backend.Sent[0])
			require.Equal(t, stake.Address, args[0])
			require.Equal(t, big.NewInt(10), args[1])

			args = call(t, stake, "deposit", backend.Sent[1])
			require.Equal(t, big.NewInt(10), args[0])
			require.Equal(t, big.NewInt(tc.lockPeriod), args[1])
		})
	}
}

func TestStakeApprovalFailure(t *testing.T) {
	o, backend, _ := newOperator(t)
	backend.MineStatus = func(*gethtypes.Transaction) uint64 { return gethtypes.ReceiptStatusFailed }

	out := o.Stake(context.Background(), big.NewInt(10))
	require.Equal(t, types.StatusFailed, out.Status)
	require.Equal(t, 1, backend.SentCount())
}

func TestUnstakeAndClaim(t *testing.T) {
	o, backend, catalog := newOperator(t)
	stake := catalog.MustResolve(types.Rollup, "stake")

	require.True(t, o.Unstake(context.Background(), big.NewInt(5)).OK())
	require.True(t, o.Claim(context.Background()).OK())

	args := call(t, stake, "withdrawAndClaim", backend.Sent[0])
	require.Equal(t, big.NewInt(5), args[0])
	call(t, stake, "claim", backend.Sent[1])
}

func TestSwap(t *testing.T) {
	o, backend, catalog := newOperator(t)
	wsfi := catalog.MustResolve(types.Rollup, "wsfi")
	aimm := catalog.MustResolve(types.Rollup, "aimm")
	router := catalog.MustResolve(types.Rollup, "citeaRouter")

	backend.Handle(router, "getAmountsOut", func(args []interface{}) ([]interface{}, error) {
		return []interface{}{[]*big.Int{args[0].(*big.Int), big.NewInt(5000)}}, nil
	})

	out := o.Swap(context.Background(), big.NewInt(1500), Pair{"wsfi", "aimm"}, decimal.RequireFromString("0.02"))
	require.True(t, out.OK(), out.Error)
	require.Equal(t, 2, backend.SentCount())

	args := call(t, wsfi, "approve", backend.Sent[0])
	require.Equal(t, router.Address, args[0])

	args = call(t, router, "swapExactTokensForTokensSupportingFeeOnTransferTokens", backend.Sent[1])
	require.Equal(t, big.NewInt(1500), args[0])
	require.Equal(t, big.NewInt(4900), args[1])
	require.Equal(t, []common.Address{wsfi.Address, aimm.Address}, args[2])
	require.Equal(t, o.submitter.From(), args[3])
	require.Equal(t, MaxDeadline, args[4])
}

func TestSwapUnknownToken(t *testing.T) {
	o, backend, _ := newOperator(t)
	out := o.Swap(context.Background(), big.NewInt(1), Pair{"wsfi", "doge"}, decimal.Zero)
	require.Equal(t, types.StatusFailed, out.Status)
	require.Contains(t, out.Error, "doge")
	require.Zero(t, backend.SentCount())
}

func TestAddLiquidity(t *testing.T) {
	o, backend, catalog := newOperator(t)
	wsfi := catalog.MustResolve(types.Rollup, "wsfi")
	usdc := catalog.MustResolve(types.Rollup, "usdc")
	router := catalog.MustResolve(types.Rollup, "citeaRouter")

	backend.Handle(router, "getAmountsOut", chaintest.Returns([]*big.Int{big.NewInt(1000), big.NewInt(300)}))

	out := o.AddLiquidity(context.Background(), big.NewInt(1000), Pair{"wsfi", "usdc"}, decimal.RequireFromString("0.1"))
	require.True(t, out.OK(), out.Error)
	require.Equal(t, 3, backend.SentCount())

	require.Equal(t, big.NewInt(1000), call(t, wsfi, "approve", backend.Sent[0])[1])
	require.Equal(t, big.NewInt(300), call(t, usdc, "approve", backend.Sent[1])[1])

	args := call(t, router, "addLiquidity", backend.Sent[2])
	require.Equal(t, wsfi.Address, args[0])
	require.Equal(t, usdc.Address, args[1])
	require.Equal(t, big.NewInt(1000), args[2])
	require.Equal(t, big.NewInt(300), args[3])
	require.Equal(t, big.NewInt(900), args[4])
	require.Equal(t, big.NewInt(270), args[5])
}

func TestRemoveLiquidity(t *testing.T) {
	o, backend, catalog := newOperator(t)
	router := catalog.MustResolve(types.Rollup, "citeaRouter")
	factory := catalog.MustResolve(types.Rollup, "citeaFactory")
	lp, err := catalog.Bind(types.Rollup, "pair", pairAddress)
	require.NoError(t, err)

	backend.Handle(factory, "getPair", chaintest.Returns(pairAddress))
	backend.Handle(lp, "balanceOf", chaintest.Returns(big.NewInt(1000)))
	backend.Handle(lp, "totalSupply", chaintest.Returns(big.NewInt(10000)))
	backend.Handle(lp, "getReserves", chaintest.Returns(big.NewInt(5000), big.NewInt(8000), uint32(1_700_000_000)))

	out := o.RemoveLiquidity(context.Background(), decimal.RequireFromString("0.2"), Pair{"wsfi", "aimm"}, decimal.RequireFromString("0.02"))
	require.True(t, out.OK(), out.Error)
	require.Equal(t, 2, backend.SentCount())

	args := call(t, lp, "approve", backend.Sent[0])
	require.Equal(t, router.Address, args[0])
	require.Equal(t, big.NewInt(200), args[1])

	args = call(t, router, "removeLiquidity", backend.Sent[1])
	require.Equal(t, big.NewInt(200), args[2])
	require.Equal(t, big.NewInt(98), args[3])
	require.Equal(t, big.NewInt(156), args[4])
}

func TestRemoveLiquidityWithoutPair(t *testing.T) {
	o, backend, catalog := newOperator(t)
	backend.Handle(catalog.MustResolve(types.Rollup, "citeaFactory"), "getPair", chaintest.Returns(common.Address{}))

	out := o.RemoveLiquidity(context.Background(), decimal.RequireFromString("0.2"), Pair{"wsfi", "aimm"}, decimal.Zero)
	require.Equal(t, types.StatusFailed, out.Status)
	require.Zero(t, backend.SentCount())
}
