// Package withdrawal implements the rollup to settlement withdrawal flow:
// initiating on the rollup, proving the withdrawal against a published output
// on the settlement chain and finalizing it once the output is final.
package withdrawal

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/sfi-network/sfi-bridge-bot/contracts"
	"github.com/sfi-network/sfi-bridge-bot/events"
)

var (
	// ErrOutputNotReady means no output covering the withdrawal block has been
	// published yet. It clears by itself once the proposer catches up.
	ErrOutputNotReady = errors.New("no output covers the withdrawal block yet")

	ErrEventNotFound   = errors.New("unable to find MessagePassed event")
	ErrIncompleteEvent = errors.New("incomplete MessagePassed event")
	ErrHashMismatch    = errors.New("computed withdrawal hash does not match event")
	ErrEmptyProof      = errors.New("storage proof is empty")
	ErrNotProven       = errors.New("withdrawal is not proven")
)

// Transaction is the withdrawal tuple committed to by the message passer. Field
// names match the components of Types.WithdrawalTransaction.
type Transaction struct {
	Nonce    *big.Int
	Sender   common.Address
	Target   common.Address
	Value    *big.Int
	GasLimit *big.Int
	Data     []byte
}

// MessagePassed is a decoded MessagePassed event.
type MessagePassed struct {
	Transaction
	WithdrawalHash common.Hash
	TxHash         common.Hash
	BlockNumber    *big.Int
}

var (
	uint256Type, _ = abi.NewType("uint256", "", nil)
	bytesType, _   = abi.NewType("bytes", "", nil)
	addressType, _ = abi.NewType("address", "", nil)

	withdrawalArgs = abi.Arguments{
		{Name: "nonce", Type: uint256Type},
		{Name: "sender", Type: addressType},
		{Name: "target", Type: addressType},
		{Name: "value", Type: uint256Type},
		{Name: "gasLimit", Type: uint256Type},
		{Name: "data", Type: bytesType},
	}
)

// Hash is keccak256(abi.encode(nonce, sender, target, value, gasLimit, data)).
func Hash(tx Transaction) (common.Hash, error) {
	data := tx.Data
	if data == nil {
		data = []byte{}
	}
	enc, err := withdrawalArgs.Pack(tx.Nonce, tx.Sender, tx.Target, tx.Value, tx.GasLimit, data)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to pack for withdrawal hash: %w", err)
	}
	return crypto.Keccak256Hash(enc), nil
}

// StorageSlot is the message passer slot recording the withdrawal. The
// sentMessages mapping sits at slot 0, so the key is
// keccak256(withdrawalHash ++ uint256(0)).
func StorageSlot(withdrawalHash common.Hash) common.Hash {
	buf := make([]byte, 64)
	copy(buf, withdrawalHash[:])
	return crypto.Keccak256Hash(buf)
}

// ParseMessagePassed decodes the MessagePassed event of passer from receipt
// and checks that its withdrawal hash matches the tuple.
func ParseMessagePassed(receipt *gethtypes.Receipt, passer contracts.Contract) (*MessagePassed, error) {
	fields, err := events.Decode(receipt, passer.ABI, "MessagePassed")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIncompleteEvent, err)
	}
	if len(fields) == 0 {
		return nil, ErrEventNotFound
	}

	ev := &MessagePassed{TxHash: receipt.TxHash, BlockNumber: receipt.BlockNumber}
	var ok bool
	if ev.Nonce, ok = fields["nonce"].(*big.Int); !ok {
		return nil, fmt.Errorf("%w: nonce", ErrIncompleteEvent)
	}
	if ev.Sender, ok = fields["sender"].(common.Address); !ok {
		return nil, fmt.Errorf("%w: sender", ErrIncompleteEvent)
	}
	if ev.Target, ok = fields["target"].(common.Address); !ok {
		return nil, fmt.Errorf("%w: target", ErrIncompleteEvent)
	}
	if ev.Value, ok = fields["value"].(*big.Int); !ok {
		return nil, fmt.Errorf("%w: value", ErrIncompleteEvent)
	}
	if ev.GasLimit, ok = fields["gasLimit"].(*big.Int); !ok {
		return nil, fmt.Errorf("%w: gasLimit", ErrIncompleteEvent)
	}
	if ev.Data, ok = fields["data"].([]byte); !ok {
		return nil, fmt.Errorf("%w: data", ErrIncompleteEvent)
	}
	hash, ok := fields["withdrawalHash"].([32]byte)
	if !ok || hash == [32]byte{} {
		return nil, fmt.Errorf("%w: withdrawalHash", ErrIncompleteEvent)
	}
	ev.WithdrawalHash = hash
	if ev.BlockNumber == nil {
		return nil, fmt.Errorf("%w: receipt has no block number", ErrIncompleteEvent)
	}

	computed, err := Hash(ev.Transaction)
	if err != nil {
		return nil, err
	}
	if computed != ev.WithdrawalHash {
		return nil, fmt.Errorf("%w: got %s, event has %s", ErrHashMismatch, computed.Hex(), ev.WithdrawalHash.Hex())
	}

	return ev, nil
}
