package withdrawal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/hashicorp/go-multierror"
	"github.com/jonboulle/clockwork"

	"github.com/sfi-network/sfi-bridge-bot/chain"
	"github.com/sfi-network/sfi-bridge-bot/contracts"
	"github.com/sfi-network/sfi-bridge-bot/ethereum"
	"github.com/sfi-network/sfi-bridge-bot/gelato"
	"github.com/sfi-network/sfi-bridge-bot/metrics"
	"github.com/sfi-network/sfi-bridge-bot/txmgr"
	"github.com/sfi-network/sfi-bridge-bot/types"
)

// DefaultGasLimit is the gas forwarded to the target when the withdrawal is
// relayed on the settlement chain.
const DefaultGasLimit = 100_000

// ErrChallengePeriod means the output a withdrawal was proven against has not
// passed its challenge period yet.
var ErrChallengePeriod = errors.New("proven output is still in its challenge period")

// Listing returns recent withdrawals of an account, oldest first.
type Listing interface {
	ListRecentWithdrawals(ctx context.Context, account common.Address) ([]gelato.Withdrawal, error)
}

// Registrar announces an initiated withdrawal to the bridge indexer.
type Registrar interface {
	Register(ctx context.Context, reg gelato.Registration) error
}

// StateMachine drives withdrawals through initiate, prove and finalize. Every
// phase first checks the portal and skips work that is already done on chain.
type StateMachine struct {
	rollup     chain.Backend
	settlement chain.Backend
	portal     ethereum.OptimismPortal
	passer     contracts.Contract
	proofs     *ProofBuilder
	submitter  txmgr.Submitter
	listing    Listing
	registrar  Registrar
	tracker    *Tracker
	logger     *slog.Logger
	Opts       *StateMachineOpts

	portalContract contracts.Contract
}

type StateMachineOpts struct {
	Rollup     chain.Backend
	Settlement chain.Backend
	Catalog    *contracts.Catalog
	Submitter  txmgr.Submitter
	Listing    Listing
	Registrar  Registrar // optional
	Tracker    *Tracker  // optional
	GasLimit   uint64
	Logger     *slog.Logger
}

func NewStateMachine(opts StateMachineOpts) (*StateMachine, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Rollup == nil || opts.Settlement == nil {
		return nil, fmt.Errorf("both rollup and settlement backends are required")
	}
	if opts.Submitter == nil {
		return nil, fmt.Errorf("no transaction submitter given")
	}
	if opts.GasLimit == 0 {
		opts.GasLimit = DefaultGasLimit
	}
	if opts.Catalog == nil {
		catalog, err := contracts.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load contract catalog: %w", err)
		}
		opts.Catalog = catalog
	}
	if opts.Tracker == nil {
		tracker, err := NewTracker(DefaultTrackerSize, clockwork.NewRealClock())
		if err != nil {
			return nil, fmt.Errorf("failed to create withdrawal tracker: %w", err)
		}
		opts.Tracker = tracker
	}

	passer, err := opts.Catalog.Resolve(types.Rollup, "msgpasser")
	if err != nil {
		return nil, fmt.Errorf("failed to resolve message passer: %w", err)
	}

	settlement, err := ethereum.NewClient(ethereum.ClientOpts{
		Reader:  opts.Settlement,
		Catalog: opts.Catalog,
		Logger:  opts.Logger,
	})
	if err != nil {
		return nil, err
	}

	logger := opts.Logger.With("component", "withdrawal")

	return &StateMachine{
		rollup:     opts.Rollup,
		settlement: opts.Settlement,
		portal:     settlement,
		passer:     passer,
		proofs: NewProofBuilder(ProofBuilderOpts{
			Rollup:        opts.Rollup,
			Oracle:        settlement,
			MessagePasser: passer,
			Logger:        opts.Logger,
		}),
		submitter:      opts.Submitter,
		listing:        opts.Listing,
		registrar:      opts.Registrar,
		tracker:        opts.Tracker,
		logger:         logger,
		Opts:           &opts,
		portalContract: settlement.Portal(),
	}, nil
}

// Tracker holds the withdrawals seen by this state machine.
func (m *StateMachine) Tracker() *Tracker { return m.tracker }

// Initiate sends amount to recipient through the message passer. The mined
// transaction hash identifies the withdrawal in the later phases.
func (m *StateMachine) Initiate(ctx context.Context, amount *big.Int, recipient common.Address) types.OperationOutcome {
	data, err := m.passer.Pack("initiateWithdrawal", recipient, new(big.Int).SetUint64(m.Opts.GasLimit), []byte{})
	if err != nil {
		return m.fail("initiate", err)
	}

	out := m.submitter.Send(ctx, m.rollup, txmgr.Request{To: m.passer.Address, Data: data, Value: amount})
	if !out.OK() {
		metrics.WithdrawalPhases.WithLabelValues("initiate", "failed").Inc()
		return out
	}
	metrics.WithdrawalPhases.WithLabelValues("initiate", "success").Inc()

	if ev, err := m.proofs.Event(ctx, common.HexToHash(out.TxHash)); err != nil {
		m.logger.Warn("failed to decode initiated withdrawal", "tx_hash", out.TxHash, "error", err)
	} else {
		m.tracker.Observe(ev)
		m.logger.Info("Withdrawal initiated", "tx_hash", out.TxHash, "withdrawal_hash", ev.WithdrawalHash.Hex())
	}
	return out
}

// Bridge initiates a withdrawal of amount to the bot's own address and
// registers it with the bridge indexer so it shows up in the listing.
func (m *StateMachine) Bridge(ctx context.Context, amount *big.Int) types.OperationOutcome {
	from := m.submitter.From()

	out := m.Initiate(ctx, amount, from)
	if !out.OK() || m.registrar == nil {
		return out
	}

	txHash := common.HexToHash(out.TxHash)
	tx, _, err := m.rollup.TransactionByHash(ctx, txHash)
	if err != nil {
		return withTx(m.fail("register", fmt.Errorf("failed to get withdrawal transaction: %w", err)), out.TxHash)
	}
	raw, err := tx.MarshalBinary()
	if err != nil {
		return withTx(m.fail("register", fmt.Errorf("failed to encode withdrawal transaction: %w", err)), out.TxHash)
	}

	reg := gelato.NewWithdrawalRegistration(from, amount, txHash, hexutil.Encode(raw))
	if err := m.registrar.Register(ctx, reg); err != nil {
		return withTx(m.fail("register", err), out.TxHash)
	}

	m.logger.Info("Withdrawal registered", "tx_hash", out.TxHash)
	return out
}

// Prove submits the proof of the withdrawal initiated by txHash. A withdrawal
// that is already proven succeeds without sending a transaction.
func (m *StateMachine) Prove(ctx context.Context, txHash common.Hash) types.OperationOutcome {
	log := m.logger.With("tx_hash", txHash.Hex())

	ev, err := m.proofs.Event(ctx, txHash)
	if err != nil {
		return m.fail("prove", err)
	}
	m.tracker.Observe(ev)

	proven, err := m.portal.IsProven(ctx, ev.WithdrawalHash)
	if err != nil {
		return m.fail("prove", fmt.Errorf("failed to check proven status: %w", err))
	}
	if proven {
		log.Info("Withdrawal is already proven")
		m.tracker.MarkProven(txHash, "")
		metrics.WithdrawalPhases.WithLabelValues("prove", "skipped").Inc()
		return types.Success("")
	}

	params, err := m.proofs.Build(ctx, ev)
	if err != nil {
		return m.fail("prove", err)
	}

	data, err := m.portalContract.Pack("proveWithdrawalTransaction",
		params.Withdrawal,
		params.L2OutputIndex,
		params.OutputRootProof,
		params.WithdrawalProof,
	)
	if err != nil {
		return m.fail("prove", err)
	}

	out := m.submitter.Send(ctx, m.settlement, txmgr.Request{To: m.portalContract.Address, Data: data})
	if !out.OK() {
		metrics.WithdrawalPhases.WithLabelValues("prove", "failed").Inc()
		return out
	}

	m.tracker.MarkProven(txHash, out.TxHash)
	metrics.WithdrawalPhases.WithLabelValues("prove", "success").Inc()
	log.Info("Withdrawal proven", "prove_tx", out.TxHash, "l2_output_index", params.L2OutputIndex)
	return out
}

// Finalize releases the withdrawal initiated by txHash on the settlement
// chain. A withdrawal that is already finalized succeeds without sending a
// transaction; one that is not proven fails without sending one.
func (m *StateMachine) Finalize(ctx context.Context, txHash common.Hash) types.OperationOutcome {
	log := m.logger.With("tx_hash", txHash.Hex())

	ev, err := m.proofs.Event(ctx, txHash)
	if err != nil {
		return m.fail("finalize", err)
	}
	m.tracker.Observe(ev)

	finalized, err := m.portal.IsFinalized(ctx, ev.WithdrawalHash)
	if err != nil {
		return m.fail("finalize", fmt.Errorf("failed to check finalized status: %w", err))
	}
	if finalized {
		log.Info("Withdrawal already finalized")
		m.tracker.MarkFinalized(txHash, "")
		metrics.WithdrawalPhases.WithLabelValues("finalize", "skipped").Inc()
		return types.Success("")
	}

	proven, err := m.portal.ProvenWithdrawal(ctx, ev.WithdrawalHash)
	if err != nil {
		return m.fail("finalize", fmt.Errorf("failed to check proven status: %w", err))
	}
	if !proven.Proven() {
		return m.fail("finalize", ErrNotProven)
	}
	m.tracker.MarkProven(txHash, "")

	ready, err := m.portal.IsOutputFinalized(ctx, proven.L2OutputIndex)
	if err != nil {
		return m.fail("finalize", fmt.Errorf("failed to check output finalization: %w", err))
	}
	if !ready {
		return m.fail("finalize", fmt.Errorf("%w: output %s", ErrChallengePeriod, proven.L2OutputIndex))
	}

	data, err := m.portalContract.Pack("finalizeWithdrawalTransaction", ev.Transaction)
	if err != nil {
		return m.fail("finalize", err)
	}

	out := m.submitter.Send(ctx, m.settlement, txmgr.Request{To: m.portalContract.Address, Data: data})
	if !out.OK() {
		metrics.WithdrawalPhases.WithLabelValues("finalize", "failed").Inc()
		return out
	}

	m.tracker.MarkFinalized(txHash, out.TxHash)
	metrics.WithdrawalPhases.WithLabelValues("finalize", "success").Inc()
	log.Info("Withdrawal finalized", "finalize_tx", out.TxHash)
	return out
}

// ProveRecent proves the recent withdrawals of the bot's account. Failures of
// single withdrawals are logged and do not stop the batch.
func (m *StateMachine) ProveRecent(ctx context.Context) types.OperationOutcome {
	return m.forRecent(ctx, "prove", m.Prove)
}

// FinalizeRecent finalizes the recent withdrawals of the bot's account.
// Failures of single withdrawals are logged and do not stop the batch.
func (m *StateMachine) FinalizeRecent(ctx context.Context) types.OperationOutcome {
	return m.forRecent(ctx, "finalize", m.Finalize)
}

func (m *StateMachine) forRecent(ctx context.Context, phase string, fn func(context.Context, common.Hash) types.OperationOutcome) types.OperationOutcome {
	if m.listing == nil {
		return types.Failed(fmt.Errorf("no withdrawal listing configured"))
	}

	withdrawals, err := m.listing.ListRecentWithdrawals(ctx, m.submitter.From())
	if err != nil {
		return types.Failed(fmt.Errorf("failed to list withdrawals: %w", err))
	}
	if len(withdrawals) == 0 {
		m.logger.Info("No withdrawals found")
		return types.Success("")
	}
	m.logger.Info(fmt.Sprintf("Got %d withdrawal(s)", len(withdrawals)), "phase", phase)

	var result *multierror.Error
	for _, w := range withdrawals {
		txHash, err := parseTxHash(w.TransactionHash)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		m.logger.Info("Processing withdrawal", "tx_hash", txHash.Hex(), "phase", phase)

		out := fn(ctx, txHash)
		if !out.OK() {
			result = multierror.Append(result, fmt.Errorf("%s: %s", txHash.Hex(), out.Error))
			continue
		}
		m.logger.Info("Successfully processed withdrawal", "tx_hash", txHash.Hex(), "phase", phase)
	}

	if err := result.ErrorOrNil(); err != nil {
		m.logger.Warn("Some withdrawals were not processed", "phase", phase, "failed", len(result.Errors), "error", err)
	}
	return types.Success("")
}

func (m *StateMachine) fail(phase string, err error) types.OperationOutcome {
	out := types.Failed(err)
	result := "failed"
	if errors.Is(err, ErrOutputNotReady) || errors.Is(err, ErrChallengePeriod) {
		out.NotReady = true
		result = "not_ready"
		m.logger.Info("Withdrawal not ready yet, try again later", "phase", phase, "reason", err)
	} else {
		m.logger.Error("Withdrawal phase failed", "phase", phase, "error", err)
	}
	metrics.WithdrawalPhases.WithLabelValues(phase, result).Inc()
	return out
}

func withTx(out types.OperationOutcome, txHash string) types.OperationOutcome {
	out.TxHash = txHash
	return out
}

// parseTxHash accepts the doubled 0x prefix the indexer stores for
// withdrawals registered by older bot versions.
func parseTxHash(s string) (common.Hash, error) {
	s = strings.TrimSpace(s)
	for strings.HasPrefix(s, "0x0x") {
		s = s[2:]
	}
	b, err := hexutil.Decode(s)
	if err != nil || len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("%q: invalid transaction hash", s)
	}
	return common.BytesToHash(b), nil
}
