package ethereum

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

type OptimismPortal interface {
	ProvenWithdrawal(ctx context.Context, withdrawalHash common.Hash) (ProvenWithdrawal, error)
	IsProven(ctx context.Context, withdrawalHash common.Hash) (bool, error)
	IsFinalized(ctx context.Context, withdrawalHash common.Hash) (bool, error)
	IsOutputFinalized(ctx context.Context, l2OutputIndex *big.Int) (bool, error)
}

var _ OptimismPortal = &Client{}

// ProvenWithdrawal is the portal's record of a prove call. It is all zero for
// withdrawals that were never proven.
type ProvenWithdrawal struct {
	OutputRoot    common.Hash
	Timestamp     *big.Int
	L2OutputIndex *big.Int
}

func (p ProvenWithdrawal) Proven() bool {
	return p.OutputRoot != (common.Hash{}) ||
		(p.Timestamp != nil && p.Timestamp.Sign() != 0) ||
		(p.L2OutputIndex != nil && p.L2OutputIndex.Sign() != 0)
}

func (c *Client) ProvenWithdrawal(ctx context.Context, withdrawalHash common.Hash) (ProvenWithdrawal, error) {
	out, err := c.portal.Call(ctx, c.reader, "provenWithdrawals", withdrawalHash)
	if err != nil {
		return ProvenWithdrawal{}, err
	}
	if len(out) != 3 {
		return ProvenWithdrawal{}, fmt.Errorf("unexpected provenWithdrawals result length %d", len(out))
	}

	return ProvenWithdrawal{
		OutputRoot:    *abi.ConvertType(out[0], new([32]byte)).(*[32]byte),
		Timestamp:     *abi.ConvertType(out[1], new(*big.Int)).(**big.Int),
		L2OutputIndex: *abi.ConvertType(out[2], new(*big.Int)).(**big.Int),
	}, nil
}

func (c *Client) IsProven(ctx context.Context, withdrawalHash common.Hash) (bool, error) {
	p, err := c.ProvenWithdrawal(ctx, withdrawalHash)
	if err != nil {
		return false, err
	}
	return p.Proven(), nil
}

func (c *Client) IsFinalized(ctx context.Context, withdrawalHash common.Hash) (bool, error) {
	return c.callBool(ctx, "finalizedWithdrawals", withdrawalHash)
}

// IsOutputFinalized reports whether the challenge period of the given output
// has passed.
func (c *Client) IsOutputFinalized(ctx context.Context, l2OutputIndex *big.Int) (bool, error) {
	return c.callBool(ctx, "isOutputFinalized", l2OutputIndex)
}

func (c *Client) callBool(ctx context.Context, method string, args ...interface{}) (bool, error) {
	out, err := c.portal.Call(ctx, c.reader, method, args...)
	if err != nil {
		return false, err
	}
	if len(out) != 1 {
		return false, fmt.Errorf("unexpected %s result length %d", method, len(out))
	}
	v, ok := out[0].(bool)
	if !ok {
		return false, fmt.Errorf("unexpected %s result type %T", method, out[0])
	}
	return v, nil
}
