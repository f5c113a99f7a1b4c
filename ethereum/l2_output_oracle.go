package ethereum

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/sfi-network/sfi-bridge-bot/types"
)

type L2OutputOracle interface {
	LatestBlockNumber(ctx context.Context) (*big.Int, error)
	L2OutputIndexAfter(ctx context.Context, l2BlockNumber *big.Int) (*big.Int, error)
	L2Output(ctx context.Context, index *big.Int) (types.OutputCheckpoint, error)
}

var _ L2OutputOracle = &Client{}

type outputProposal struct {
	OutputRoot    [32]byte
	Timestamp     *big.Int
	L2BlockNumber *big.Int
}

// LatestBlockNumber is the rollup block covered by the most recent output.
func (c *Client) LatestBlockNumber(ctx context.Context) (*big.Int, error) {
	return c.callUint(ctx, "latestBlockNumber")
}

// L2OutputIndexAfter is the index of the first output covering l2BlockNumber.
// The oracle reverts when no such output exists yet.
func (c *Client) L2OutputIndexAfter(ctx context.Context, l2BlockNumber *big.Int) (*big.Int, error) {
	return c.callUint(ctx, "getL2OutputIndexAfter", l2BlockNumber)
}

func (c *Client) L2Output(ctx context.Context, index *big.Int) (types.OutputCheckpoint, error) {
	out, err := c.oracle.Call(ctx, c.reader, "getL2Output", index)
	if err != nil {
		return types.OutputCheckpoint{}, err
	}
	if len(out) != 1 {
		return types.OutputCheckpoint{}, fmt.Errorf("unexpected getL2Output result length %d", len(out))
	}

	proposal := *abi.ConvertType(out[0], new(outputProposal)).(*outputProposal)

	return types.OutputCheckpoint{
		Index:         new(big.Int).Set(index),
		OutputRoot:    common.Hash(proposal.OutputRoot),
		Timestamp:     proposal.Timestamp,
		L2BlockNumber: proposal.L2BlockNumber,
	}, nil
}

func (c *Client) callUint(ctx context.Context, method string, args ...interface{}) (*big.Int, error) {
	out, err := c.oracle.Call(ctx, c.reader, method, args...)
	if err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("unexpected %s result length %d", method, len(out))
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected %s result type %T", method, out[0])
	}
	return v, nil
}
