package withdrawal

import (
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jonboulle/clockwork"

	"github.com/sfi-network/sfi-bridge-bot/metrics"
	"github.com/sfi-network/sfi-bridge-bot/types"
)

const DefaultTrackerSize = 256

// Tracker keeps the most recently seen withdrawals in memory, keyed by the
// hash of the initiating rollup transaction. Nothing is persisted.
type Tracker struct {
	mu      sync.Mutex
	records *lru.Cache[common.Hash, types.WithdrawalRecord]
	clock   clockwork.Clock
}

func NewTracker(size int, clock clockwork.Clock) (*Tracker, error) {
	if size <= 0 {
		size = DefaultTrackerSize
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	records, err := lru.New[common.Hash, types.WithdrawalRecord](size)
	if err != nil {
		return nil, err
	}
	return &Tracker{records: records, clock: clock}, nil
}

// Observe records a decoded withdrawal, keeping the phase already known for it.
func (t *Tracker) Observe(ev *MessagePassed) types.WithdrawalRecord {
	return t.update(ev.TxHash, func(r *types.WithdrawalRecord) {
		r.WithdrawalHash = ev.WithdrawalHash
		r.CommitmentKey = StorageSlot(ev.WithdrawalHash)
	})
}

func (t *Tracker) MarkProven(txHash common.Hash, proveTx string) types.WithdrawalRecord {
	return t.update(txHash, func(r *types.WithdrawalRecord) {
		r.Proven = true
		if proveTx != "" {
			r.ProveTx = proveTx
		}
	})
}

// MarkFinalized also marks the withdrawal proven, finalization implies it.
func (t *Tracker) MarkFinalized(txHash common.Hash, finalizeTx string) types.WithdrawalRecord {
	return t.update(txHash, func(r *types.WithdrawalRecord) {
		r.Proven = true
		r.Finalized = true
		if finalizeTx != "" {
			r.FinalizeTx = finalizeTx
		}
	})
}

func (t *Tracker) Get(txHash common.Hash) (types.WithdrawalRecord, bool) {
	return t.records.Get(txHash)
}

// Records returns all tracked withdrawals, most recently updated first.
func (t *Tracker) Records() []types.WithdrawalRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]types.WithdrawalRecord, 0, t.records.Len())
	for _, k := range t.records.Keys() {
		if r, ok := t.records.Peek(k); ok {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out
}

func (t *Tracker) update(txHash common.Hash, fn func(r *types.WithdrawalRecord)) types.WithdrawalRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	r, ok := t.records.Peek(txHash)
	if !ok {
		r = types.WithdrawalRecord{TxHash: txHash}
	}
	fn(&r)

	switch {
	case r.Finalized:
		r.State = types.Finalized
	case r.Proven:
		r.State = types.Proven
	default:
		r.State = types.Initiated
	}
	r.UpdatedAt = t.clock.Now().UTC().Truncate(time.Millisecond)

	t.records.Add(txHash, r)
	metrics.TrackedWithdrawals.Set(float64(t.records.Len()))
	return r
}
