package contracts

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/sfi-network/sfi-bridge-bot/types"
)

// Contract is a deployed contract together with its interface.
type Contract struct {
	Name    string
	Chain   types.Chain
	Address common.Address
	ABI     abi.ABI
}

// Pack encodes a call to method.
func (c Contract) Pack(method string, args ...interface{}) ([]byte, error) {
	data, err := c.ABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s.%s: %w", c.Name, method, err)
	}
	return data, nil
}

// Call runs a read-only call against the latest block and returns the decoded outputs.
func (c Contract) Call(ctx context.Context, caller ethereum.ContractCaller, method string, args ...interface{}) ([]interface{}, error) {
	data, err := c.Pack(method, args...)
	if err != nil {
		return nil, err
	}

	to := c.Address
	res, err := caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s.%s: %w", c.Name, method, err)
	}

	out, err := c.ABI.Unpack(method, res)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s.%s: %w", c.Name, method, err)
	}
	return out, nil
}
