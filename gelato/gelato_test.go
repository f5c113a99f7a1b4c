package gelato

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var account = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")

func TestListRecentWithdrawals(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "true", r.URL.Query().Get("isWithdraw"))
		assert.Equal(t, "test-slug", r.URL.Query().Get("slug"))
		assert.Equal(t, account.Hex(), r.URL.Query().Get("fromAddress"))

		var data []Withdrawal
		for i := 0; i < 8; i++ {
			data = append(data, Withdrawal{TransactionHash: fmt.Sprintf("0x%064x", i)})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(listResponse{Data: data})
	}))
	defer srv.Close()

	c := NewClient(ClientOpts{Endpoint: srv.URL, Slug: "test-slug"})
	got, err := c.ListRecentWithdrawals(context.Background(), account)
	require.NoError(t, err)
	require.Len(t, got, RecentLimit)
	require.Equal(t, fmt.Sprintf("0x%064x", 3), got[0].TransactionHash)
	require.Equal(t, fmt.Sprintf("0x%064x", 7), got[4].TransactionHash)
}

func TestListRecentWithdrawalsFewer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"transactionHash":"0x01"}]}`))
	}))
	defer srv.Close()

	got, err := NewClient(ClientOpts{Endpoint: srv.URL}).ListRecentWithdrawals(context.Background(), account)
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestListRecentWithdrawalsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(ClientOpts{Endpoint: srv.URL}).ListRecentWithdrawals(context.Background(), account)
	require.ErrorContains(t, err, "502")
}

func TestRegister(t *testing.T) {
	var got Registration
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	txHash := common.HexToHash("0xabc")
	reg := NewWithdrawalRegistration(account, big.NewInt(1e15), txHash, "0x02f8")
	require.NoError(t, NewClient(ClientOpts{Endpoint: srv.URL}).Register(context.Background(), reg))

	require.Equal(t, DefaultSlug, got.Slug)
	require.Equal(t, txHash.Hex(), got.TransactionHash)
	require.Equal(t, "1000000000000000", got.Amount)
	require.Equal(t, account, got.From)
	require.Equal(t, account, got.To)
	require.Equal(t, BridgeToken, got.L1Token)
	require.True(t, got.IsWithdraw)
	require.Equal(t, "0x02f8", got.RawTx)
}

func TestRegisterRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"duplicate"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	reg := NewWithdrawalRegistration(account, big.NewInt(1), common.HexToHash("0x01"), "0x")
	err := NewClient(ClientOpts{Endpoint: srv.URL}).Register(context.Background(), reg)
	require.ErrorContains(t, err, "duplicate")
}
