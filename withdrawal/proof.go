package withdrawal

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/sfi-network/sfi-bridge-bot/chain"
	"github.com/sfi-network/sfi-bridge-bot/contracts"
	"github.com/sfi-network/sfi-bridge-bot/ethereum"
	"github.com/sfi-network/sfi-bridge-bot/types"
)

// OutputRootProof field names match Types.OutputRootProof.
type OutputRootProof struct {
	Version                  [32]byte
	StateRoot                [32]byte
	MessagePasserStorageRoot [32]byte
	LatestBlockhash          [32]byte
}

// ProveParams is everything proveWithdrawalTransaction takes.
type ProveParams struct {
	Withdrawal      Transaction
	WithdrawalHash  common.Hash
	L2OutputIndex   *big.Int
	Output          types.OutputCheckpoint
	OutputRootProof OutputRootProof
	WithdrawalProof [][]byte // trie nodes proving the storage slot
}

// ProofBuilder gathers withdrawal proofs from the rollup and the output oracle.
type ProofBuilder struct {
	rollup chain.Reader
	oracle ethereum.L2OutputOracle
	passer contracts.Contract
	logger *slog.Logger
}

type ProofBuilderOpts struct {
	Rollup        chain.Reader
	Oracle        ethereum.L2OutputOracle
	MessagePasser contracts.Contract
	Logger        *slog.Logger
}

func NewProofBuilder(opts ProofBuilderOpts) *ProofBuilder {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &ProofBuilder{
		rollup: opts.Rollup,
		oracle: opts.Oracle,
		passer: opts.MessagePasser,
		logger: opts.Logger.With("component", "proof-builder"),
	}
}

// Event fetches the receipt of the initiating transaction and decodes its
// MessagePassed event.
func (b *ProofBuilder) Event(ctx context.Context, txHash common.Hash) (*MessagePassed, error) {
	receipt, err := b.rollup.TransactionReceipt(ctx, txHash)
	if err != nil {
		return nil, fmt.Errorf("failed to get withdrawal receipt: %w", err)
	}
	if receipt.TxHash == (common.Hash{}) {
		receipt.TxHash = txHash
	}
	return ParseMessagePassed(receipt, b.passer)
}

// Build locates the first output covering the withdrawal block and fetches the
// storage proof of the withdrawal at that output's block. ErrOutputNotReady is
// returned while no such output exists.
func (b *ProofBuilder) Build(ctx context.Context, ev *MessagePassed) (*ProveParams, error) {
	latest, err := b.oracle.LatestBlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest output block: %w", err)
	}
	if latest.Cmp(ev.BlockNumber) < 0 {
		return nil, fmt.Errorf("%w: withdrawal at block %s, latest output at %s", ErrOutputNotReady, ev.BlockNumber, latest)
	}

	index, err := b.oracle.L2OutputIndexAfter(ctx, ev.BlockNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to get l2OutputIndex: %w", err)
	}

	output, err := b.oracle.L2Output(ctx, index)
	if err != nil {
		return nil, fmt.Errorf("failed to get l2Output %s: %w", index, err)
	}
	if output.L2BlockNumber.Cmp(ev.BlockNumber) < 0 {
		return nil, fmt.Errorf("output %s covers block %s, before withdrawal block %s", index, output.L2BlockNumber, ev.BlockNumber)
	}

	header, err := b.rollup.HeaderByNumber(ctx, output.L2BlockNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to get l2Block %s: %w", output.L2BlockNumber, err)
	}

	slot := StorageSlot(ev.WithdrawalHash)
	p, err := b.rollup.GetProof(ctx, b.passer.Address, []string{slot.Hex()}, output.L2BlockNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to get withdrawal proof: %w", err)
	}
	if p == nil || len(p.StorageProof) == 0 || len(p.StorageProof[0].Proof) == 0 {
		return nil, ErrEmptyProof
	}

	nodes := make([][]byte, len(p.StorageProof[0].Proof))
	for i, s := range p.StorageProof[0].Proof {
		nodes[i] = common.FromHex(s)
	}

	b.logger.Debug("built withdrawal proof",
		"withdrawal_hash", ev.WithdrawalHash.Hex(),
		"l2_output_index", index,
		"l2_block", output.L2BlockNumber,
		"nodes", len(nodes))

	return &ProveParams{
		Withdrawal:     ev.Transaction,
		WithdrawalHash: ev.WithdrawalHash,
		L2OutputIndex:  index,
		Output:         output,
		OutputRootProof: OutputRootProof{
			Version:                  [32]byte{},
			StateRoot:                header.Root,
			MessagePasserStorageRoot: p.StorageHash,
			LatestBlockhash:          header.Hash(),
		},
		WithdrawalProof: nodes,
	}, nil
}
