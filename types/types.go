package types

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Chain identifies one of the two networks the bot talks to.
type Chain string

const (
	// Rollup is the SingularityFinance L2 execution chain.
	Rollup Chain = "sfi"

	// Settlement is the L1 chain (Sepolia) hosting the portal and output oracle.
	Settlement Chain = "sep"
)

// Status is the result class of a state-mutating action.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// OperationOutcome is returned by every action that may send a transaction.
// Status is always set. TxHash is set when a transaction was mined, Error when
// the action failed. NotReady marks failures caused by the settlement chain not
// having caught up yet, which are expected to clear on a later attempt.
type OperationOutcome struct {
	Status   Status `json:"status"`
	TxHash   string `json:"tx,omitempty"`
	Error    string `json:"error,omitempty"`
	NotReady bool   `json:"not_ready,omitempty"`
}

// Success builds a successful outcome. txHash may be empty when no transaction
// had to be sent.
func Success(txHash string) OperationOutcome {
	return OperationOutcome{Status: StatusSuccess, TxHash: txHash}
}

// Failed builds a failed outcome from err. A nil err still yields a failed
// outcome with a generic message.
func Failed(err error) OperationOutcome {
	msg := "operation failed"
	if err != nil {
		msg = err.Error()
	}
	return OperationOutcome{Status: StatusFailed, Error: msg}
}

// OK reports whether the outcome is a success.
func (o OperationOutcome) OK() bool {
	return o.Status == StatusSuccess
}

// WithdrawalState represents the phase a rollup to settlement withdrawal is in.
type WithdrawalState string

const (
	// Initiated - withdrawal was sent on the rollup and nothing happened on L1 yet
	Initiated WithdrawalState = "INITIATED"

	// Proven - the withdrawal was proven on the settlement portal and is in its challenge period
	Proven WithdrawalState = "PROVEN"

	// Finalized - the withdrawal has been finalized and funds were released on L1
	Finalized WithdrawalState = "FINALIZED"
)

// OutputCheckpoint is an output proposal published on the settlement chain by
// the output oracle, covering the rollup state at L2BlockNumber.
type OutputCheckpoint struct {
	Index         *big.Int    `json:"index"`
	OutputRoot    common.Hash `json:"outputRoot"`
	Timestamp     *big.Int    `json:"timestamp"`
	L2BlockNumber *big.Int    `json:"l2BlockNumber"`
}

// WithdrawalRecord is what the bot knows about a withdrawal during the
// lifetime of the process.
type WithdrawalRecord struct {
	TxHash         common.Hash     `json:"txHash"`
	WithdrawalHash common.Hash     `json:"withdrawalHash"`
	CommitmentKey  common.Hash     `json:"commitmentKey"`
	State          WithdrawalState `json:"state"`
	Proven         bool            `json:"proven"`
	Finalized      bool            `json:"finalized"`
	ProveTx        string          `json:"proveTx,omitempty"`
	FinalizeTx     string          `json:"finalizeTx,omitempty"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}
