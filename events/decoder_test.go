package events

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/sfi-network/sfi-bridge-bot/contracts"
	"github.com/sfi-network/sfi-bridge-bot/types"
)

func messagePasser(t *testing.T) contracts.Contract {
	catalog, err := contracts.Load()
	require.NoError(t, err)
	c, err := catalog.Resolve(types.Rollup, "msgpasser")
	require.NoError(t, err)
	return c
}

func TestDecodeRoundTrip(t *testing.T) {
	c := messagePasser(t)
	ev := c.ABI.Events["MessagePassed"]

	cases := []map[string]interface{}{
		{
			"nonce":          new(big.Int).Lsh(big.NewInt(1), 240),
			"sender":         common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"),
			"target":         common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8"),
			"value":          big.NewInt(1_000_000_000_000_000),
			"gasLimit":       big.NewInt(100_000),
			"data":           []byte{},
			"withdrawalHash": [32]byte(crypto.Keccak256Hash([]byte("a"))),
		},
		{
			"nonce":          big.NewInt(7),
			"sender":         common.HexToAddress("0x01"),
			"target":         common.HexToAddress("0x02"),
			"value":          big.NewInt(0),
			"gasLimit":       big.NewInt(21_000),
			"data":           []byte("calldata that spans more than one word of abi encoding"),
			"withdrawalHash": [32]byte(crypto.Keccak256Hash([]byte("b"))),
		},
	}

	for _, want := range cases {
		l, err := Encode(c.Address, ev, want)
		require.NoError(t, err)
		require.Len(t, l.Topics, 4)

		other := &gethtypes.Log{Topics: []common.Hash{crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))}}
		receipt := &gethtypes.Receipt{Logs: []*gethtypes.Log{other, l}}

		got, err := Decode(receipt, c.ABI, "MessagePassed")
		require.NoError(t, err)
		require.Len(t, got, len(want))
		for k, v := range want {
			if n, ok := v.(*big.Int); ok {
				require.Zero(t, n.Cmp(got[k].(*big.Int)), k)
				continue
			}
			require.Equal(t, v, got[k], k)
		}
	}
}

func TestDecodeNoMatch(t *testing.T) {
	c := messagePasser(t)

	got, err := Decode(&gethtypes.Receipt{}, c.ABI, "MessagePassed")
	require.NoError(t, err)
	require.Empty(t, got)

	got, err = Decode(nil, c.ABI, "MessagePassed")
	require.NoError(t, err)
	require.Empty(t, got)

	got, err = Decode(&gethtypes.Receipt{}, abi.ABI{}, "MessagePassed")
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestDecodeMalformedTopics(t *testing.T) {
	c := messagePasser(t)
	ev := c.ABI.Events["MessagePassed"]

	receipt := &gethtypes.Receipt{Logs: []*gethtypes.Log{{Topics: []common.Hash{ev.ID, common.BigToHash(big.NewInt(1))}}}}
	got, err := Decode(receipt, c.ABI, "MessagePassed")
	require.Error(t, err)
	require.Empty(t, got)
}

func TestEncodeMissingValue(t *testing.T) {
	c := messagePasser(t)
	_, err := Encode(c.Address, c.ABI.Events["MessagePassed"], map[string]interface{}{"nonce": big.NewInt(1)})
	require.Error(t, err)
}
