// Package chaintest provides an in-memory chain backend for tests.
package chaintest

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient/gethclient"

	"github.com/sfi-network/sfi-bridge-bot/chain"
	"github.com/sfi-network/sfi-bridge-bot/contracts"
	"github.com/sfi-network/sfi-bridge-bot/types"
)

// CallHandler answers a contract call with already decoded arguments.
type CallHandler func(args []interface{}) ([]interface{}, error)

// ProofFunc answers eth_getProof.
type ProofFunc func(account common.Address, keys []string, blockNumber *big.Int) (*gethclient.AccountResult, error)

type callKey struct {
	to       common.Address
	selector [4]byte
}

type handler struct {
	contract contracts.Contract
	method   string
	fn       CallHandler
}

// Backend implements chain.Backend entirely in memory. Transactions passed to
// SendTransaction are recorded and mined immediately with the status returned
// by MineStatus.
type Backend struct {
	mu sync.Mutex

	chain    types.Chain
	chainID  *big.Int
	headers  map[uint64]*gethtypes.Header
	latest   uint64
	receipts map[common.Hash]*gethtypes.Receipt
	txs      map[common.Hash]*gethtypes.Transaction
	handlers map[callKey]handler
	nonces   map[common.Address]uint64

	Proof      ProofFunc
	MineStatus func(tx *gethtypes.Transaction) uint64
	SendErr    error
	GasLimit   uint64
	GasTipCap  *big.Int
	GasPrice   *big.Int
	BaseFee    *big.Int

	Sent []*gethtypes.Transaction
}

var _ chain.Backend = &Backend{}

func NewBackend(c types.Chain, chainID int64) *Backend {
	return &Backend{
		chain:     c,
		chainID:   big.NewInt(chainID),
		headers:   make(map[uint64]*gethtypes.Header),
		receipts:  make(map[common.Hash]*gethtypes.Receipt),
		txs:       make(map[common.Hash]*gethtypes.Transaction),
		handlers:  make(map[callKey]handler),
		nonces:    make(map[common.Address]uint64),
		GasLimit:  100_000,
		GasTipCap: big.NewInt(1_000_000_000),
		GasPrice:  big.NewInt(2_000_000_000),
		BaseFee:   big.NewInt(1_000_000_000),
	}
}

func (b *Backend) Chain() types.Chain { return b.chain }

// AddHeader registers a header under its number and tracks the highest one as latest.
func (b *Backend) AddHeader(h *gethtypes.Header) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := h.Number.Uint64()
	b.headers[n] = h
	if n > b.latest {
		b.latest = n
	}
}

// AddReceipt registers a receipt under its TxHash.
func (b *Backend) AddReceipt(r *gethtypes.Receipt) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.receipts[r.TxHash] = r
}

func (b *Backend) AddTransaction(tx *gethtypes.Transaction) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.txs[tx.Hash()] = tx
}

// Handle routes calls of method on contract to fn.
func (b *Backend) Handle(contract contracts.Contract, method string, fn CallHandler) {
	m, ok := contract.ABI.Methods[method]
	if !ok {
		panic(fmt.Sprintf("chaintest: %s has no method %s", contract.Name, method))
	}
	var sel [4]byte
	copy(sel[:], m.ID)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[callKey{contract.Address, sel}] = handler{contract: contract, method: method, fn: fn}
}

// Returns is a CallHandler that always answers with values.
func Returns(values ...interface{}) CallHandler {
	return func([]interface{}) ([]interface{}, error) { return values, nil }
}

// SentCount is the number of transactions broadcast so far.
func (b *Backend) SentCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Sent)
}

func (b *Backend) ChainID(context.Context) (*big.Int, error) {
	return new(big.Int).Set(b.chainID), nil
}

func (b *Backend) HeaderByNumber(_ context.Context, number *big.Int) (*gethtypes.Header, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.latest
	if number != nil {
		n = number.Uint64()
	}
	if h, ok := b.headers[n]; ok {
		return h, nil
	}
	if number == nil {
		return &gethtypes.Header{Number: new(big.Int), BaseFee: b.BaseFee}, nil
	}
	return nil, ethereum.NotFound
}

func (b *Backend) TransactionReceipt(_ context.Context, txHash common.Hash) (*gethtypes.Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if r, ok := b.receipts[txHash]; ok {
		return r, nil
	}
	return nil, ethereum.NotFound
}

func (b *Backend) TransactionByHash(_ context.Context, txHash common.Hash) (*gethtypes.Transaction, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if tx, ok := b.txs[txHash]; ok {
		return tx, false, nil
	}
	return nil, false, ethereum.NotFound
}

func (b *Backend) GetProof(_ context.Context, account common.Address, keys []string, blockNumber *big.Int) (*gethclient.AccountResult, error) {
	if b.Proof == nil {
		return nil, fmt.Errorf("chaintest: no proof configured")
	}
	return b.Proof(account, keys, blockNumber)
}

func (b *Backend) CallContract(_ context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if call.To == nil || len(call.Data) < 4 {
		return nil, fmt.Errorf("chaintest: malformed call")
	}
	var sel [4]byte
	copy(sel[:], call.Data[:4])

	b.mu.Lock()
	h, ok := b.handlers[callKey{*call.To, sel}]
	b.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("chaintest: no handler for %x on %s", sel, call.To.Hex())
	}

	m := h.contract.ABI.Methods[h.method]
	args, err := m.Inputs.Unpack(call.Data[4:])
	if err != nil {
		return nil, fmt.Errorf("chaintest: failed to unpack %s args: %w", h.method, err)
	}
	out, err := h.fn(args)
	if err != nil {
		return nil, err
	}
	return m.Outputs.Pack(out...)
}

func (b *Backend) PendingNonceAt(_ context.Context, account common.Address) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.nonces[account], nil
}

func (b *Backend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return b.GasLimit, nil
}

func (b *Backend) SuggestGasTipCap(context.Context) (*big.Int, error) {
	return new(big.Int).Set(b.GasTipCap), nil
}

func (b *Backend) SuggestGasPrice(context.Context) (*big.Int, error) {
	return new(big.Int).Set(b.GasPrice), nil
}

func (b *Backend) SendTransaction(_ context.Context, tx *gethtypes.Transaction) error {
	if b.SendErr != nil {
		return b.SendErr
	}

	status := gethtypes.ReceiptStatusSuccessful
	if b.MineStatus != nil {
		status = b.MineStatus(tx)
	}

	signer := gethtypes.LatestSignerForChainID(b.chainID)
	from, err := gethtypes.Sender(signer, tx)
	if err != nil {
		return fmt.Errorf("chaintest: invalid signature: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.Sent = append(b.Sent, tx)
	b.txs[tx.Hash()] = tx
	b.nonces[from] = tx.Nonce() + 1
	b.latest++
	b.receipts[tx.Hash()] = &gethtypes.Receipt{
		Status:      status,
		TxHash:      tx.Hash(),
		BlockNumber: new(big.Int).SetUint64(b.latest),
		GasUsed:     tx.Gas(),
	}
	return nil
}

func (b *Backend) WaitForReceipt(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error) {
	return b.TransactionReceipt(ctx, txHash)
}
