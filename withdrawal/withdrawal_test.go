package withdrawal

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/sfi-network/sfi-bridge-bot/contracts"
	"github.com/sfi-network/sfi-bridge-bot/events"
	"github.com/sfi-network/sfi-bridge-bot/types"
)

func testPasser(t *testing.T) contracts.Contract {
	catalog, err := contracts.Load()
	require.NoError(t, err)
	return catalog.MustResolve(types.Rollup, "msgpasser")
}

func testTransaction(account common.Address) Transaction {
	return Transaction{
		Nonce:    new(big.Int).Add(new(big.Int).Lsh(big.NewInt(1), 240), big.NewInt(17)),
		Sender:   account,
		Target:   account,
		Value:    big.NewInt(1_000_000_000_000_000),
		GasLimit: big.NewInt(DefaultGasLimit),
		Data:     []byte{},
	}
}

// messagePassedLog builds the log the message passer emits for tx. A zero
// hash means the correct withdrawal hash.
func messagePassedLog(t *testing.T, passer contracts.Contract, tx Transaction, hash common.Hash) *gethtypes.Log {
	if hash == (common.Hash{}) {
		var err error
		hash, err = Hash(tx)
		require.NoError(t, err)
	}
	l, err := events.Encode(passer.Address, passer.ABI.Events["MessagePassed"], map[string]interface{}{
		"nonce":          tx.Nonce,
		"sender":         tx.Sender,
		"target":         tx.Target,
		"value":          tx.Value,
		"gasLimit":       tx.GasLimit,
		"data":           tx.Data,
		"withdrawalHash": [32]byte(hash),
	})
	require.NoError(t, err)
	return l
}

func TestStorageSlot(t *testing.T) {
	h := crypto.Keccak256Hash([]byte("withdrawal"))
	want := crypto.Keccak256Hash(h.Bytes(), common.Hash{}.Bytes())
	require.Equal(t, want, StorageSlot(h))
	require.NotEqual(t, StorageSlot(h), StorageSlot(crypto.Keccak256Hash([]byte("other"))))
}

func TestHashCoversEveryField(t *testing.T) {
	tx := testTransaction(common.HexToAddress("0x01"))
	base, err := Hash(tx)
	require.NoError(t, err)

	nilData := tx
	nilData.Data = nil
	h, err := Hash(nilData)
	require.NoError(t, err)
	require.Equal(t, base, h)

	mutations := []func(*Transaction){
		func(tx *Transaction) { tx.Nonce = big.NewInt(1) },
		func(tx *Transaction) { tx.Sender = common.HexToAddress("0x02") },
		func(tx *Transaction) { tx.Target = common.HexToAddress("0x02") },
		func(tx *Transaction) { tx.Value = big.NewInt(1) },
		func(tx *Transaction) { tx.GasLimit = big.NewInt(1) },
		func(tx *Transaction) { tx.Data = []byte{1} },
	}
	for i, mutate := range mutations {
		m := testTransaction(common.HexToAddress("0x01"))
		mutate(&m)
		h, err := Hash(m)
		require.NoError(t, err)
		require.NotEqual(t, base, h, i)
	}
}

func TestParseMessagePassed(t *testing.T) {
	passer := testPasser(t)
	account := common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	tx := testTransaction(account)

	receipt := &gethtypes.Receipt{
		TxHash:      common.HexToHash("0xfeed"),
		BlockNumber: big.NewInt(1000),
		Logs:        []*gethtypes.Log{messagePassedLog(t, passer, tx, common.Hash{})},
	}

	ev, err := ParseMessagePassed(receipt, passer)
	require.NoError(t, err)
	require.Zero(t, tx.Nonce.Cmp(ev.Nonce))
	require.Equal(t, account, ev.Sender)
	require.Equal(t, account, ev.Target)
	require.Zero(t, tx.Value.Cmp(ev.Value))
	require.Zero(t, tx.GasLimit.Cmp(ev.GasLimit))
	require.Equal(t, common.HexToHash("0xfeed"), ev.TxHash)
	require.Equal(t, int64(1000), ev.BlockNumber.Int64())

	want, err := Hash(tx)
	require.NoError(t, err)
	require.Equal(t, want, ev.WithdrawalHash)
}

func TestParseMessagePassedErrors(t *testing.T) {
	passer := testPasser(t)
	tx := testTransaction(common.HexToAddress("0x01"))

	_, err := ParseMessagePassed(&gethtypes.Receipt{BlockNumber: big.NewInt(1)}, passer)
	require.ErrorIs(t, err, ErrEventNotFound)

	bad := &gethtypes.Receipt{
		BlockNumber: big.NewInt(1),
		Logs:        []*gethtypes.Log{messagePassedLog(t, passer, tx, common.HexToHash("0x1234"))},
	}
	_, err = ParseMessagePassed(bad, passer)
	require.ErrorIs(t, err, ErrHashMismatch)

	l := messagePassedLog(t, passer, tx, common.Hash{})
	l.Topics = l.Topics[:2]
	_, err = ParseMessagePassed(&gethtypes.Receipt{BlockNumber: big.NewInt(1), Logs: []*gethtypes.Log{l}}, passer)
	require.ErrorIs(t, err, ErrIncompleteEvent)

	zero := &gethtypes.Receipt{
		BlockNumber: big.NewInt(1),
		Logs:        []*gethtypes.Log{messagePassedLog(t, passer, tx, common.Hash{})},
	}
	zero.Logs[0].Data = make([]byte, len(zero.Logs[0].Data))
	_, err = ParseMessagePassed(zero, passer)
	require.Error(t, err)
}
