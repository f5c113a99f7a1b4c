package txmgr

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/sfi-network/sfi-bridge-bot/chain"
	"github.com/sfi-network/sfi-bridge-bot/metrics"
	"github.com/sfi-network/sfi-bridge-bot/types"
)

// Request is an unsigned contract call.
type Request struct {
	To       common.Address
	Data     []byte
	Value    *big.Int
	GasLimit uint64 // estimated when zero
}

// Submitter builds, signs and broadcasts a request on a chain and waits for it
// to be mined.
type Submitter interface {
	From() common.Address
	Send(ctx context.Context, backend chain.Sender, req Request) types.OperationOutcome
}

// TxManager holds the single signing key of the bot. All state-mutating calls
// go through Send, which never panics or returns an error: failures are
// reported in the outcome.
type TxManager struct {
	key    *ecdsa.PrivateKey
	from   common.Address
	logger *slog.Logger
}

type Opts struct {
	PrivateKey string // hex, with or without 0x prefix
	Logger     *slog.Logger
}

var _ Submitter = &TxManager{}

var ErrReverted = errors.New("transaction reverted")

func New(opts Opts) (*TxManager, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(opts.PrivateKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	return &TxManager{
		key:    key,
		from:   crypto.PubkeyToAddress(key.PublicKey),
		logger: opts.Logger,
	}, nil
}

// From is the address of the signing key.
func (m *TxManager) From() common.Address {
	return m.from
}

func (m *TxManager) Send(ctx context.Context, backend chain.Sender, req Request) types.OperationOutcome {
	txHash, err := m.send(ctx, backend, req)
	if txHash != (common.Hash{}) {
		result := "success"
		if err != nil {
			result = "failed"
		}
		metrics.TransactionsSent.WithLabelValues(chainLabel(backend), result).Inc()
	}
	if err != nil {
		m.logger.Error("Transaction error", "to", req.To.Hex(), "error", err)
		if txHash != (common.Hash{}) {
			return types.OperationOutcome{Status: types.StatusFailed, TxHash: txHash.Hex(), Error: err.Error()}
		}
		return types.Failed(err)
	}

	m.logger.Info("Transaction successful", "tx_hash", txHash.Hex())
	return types.Success(txHash.Hex())
}

func (m *TxManager) send(ctx context.Context, backend chain.Sender, req Request) (common.Hash, error) {
	chainId, err := backend.ChainID(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get chainId: %w", err)
	}

	tx, err := m.build(ctx, backend, chainId, req)
	if err != nil {
		return common.Hash{}, err
	}

	signed, err := gethtypes.SignTx(tx, gethtypes.LatestSignerForChainID(chainId), m.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := backend.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	m.logger.Debug("transaction broadcast", "tx_hash", signed.Hash().Hex(), "nonce", signed.Nonce(), "gas", signed.Gas())

	receipt, err := backend.WaitForReceipt(ctx, signed.Hash())
	if err != nil {
		return signed.Hash(), fmt.Errorf("failed to wait for receipt: %w", err)
	}
	if receipt.Status != gethtypes.ReceiptStatusSuccessful {
		return signed.Hash(), ErrReverted
	}

	return signed.Hash(), nil
}

func chainLabel(backend chain.Sender) string {
	if c, ok := backend.(interface{ Chain() types.Chain }); ok {
		return string(c.Chain())
	}
	return "unknown"
}

// build fills nonce, gas and fees. A dynamic fee transaction is used when the
// chain reports a base fee, a legacy one otherwise.
func (m *TxManager) build(ctx context.Context, backend chain.Sender, chainId *big.Int, req Request) (*gethtypes.Transaction, error) {
	value := req.Value
	if value == nil {
		value = new(big.Int)
	}

	nonce, err := backend.PendingNonceAt(ctx, m.from)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}

	gas := req.GasLimit
	if gas == 0 {
		to := req.To
		gas, err = backend.EstimateGas(ctx, ethereum.CallMsg{From: m.from, To: &to, Value: value, Data: req.Data})
		if err != nil {
			return nil, fmt.Errorf("failed to estimate gas: %w", err)
		}
	}

	head, err := backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest header: %w", err)
	}

	to := req.To
	if head.BaseFee == nil {
		gasPrice, err := backend.SuggestGasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get gas price: %w", err)
		}
		return gethtypes.NewTx(&gethtypes.LegacyTx{
			Nonce:    nonce,
			To:       &to,
			Value:    value,
			Gas:      gas,
			GasPrice: gasPrice,
			Data:     req.Data,
		}), nil
	}

	tip, err := backend.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas tip cap: %w", err)
	}
	feeCap := new(big.Int).Add(tip, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))

	return gethtypes.NewTx(&gethtypes.DynamicFeeTx{
		ChainID:   chainId,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &to,
		Value:     value,
		Data:      req.Data,
	}), nil
}
