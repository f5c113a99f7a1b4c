package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	"github.com/sfi-network/sfi-bridge-bot/types"
)

func (s *Server) handleWithdrawalsGet(w http.ResponseWriter, r *http.Request) {
	records := s.records.Records()

	state := types.WithdrawalState(strings.ToUpper(r.URL.Query().Get("state")))
	if state != "" {
		filtered := make([]types.WithdrawalRecord, 0, len(records))
		for _, rec := range records {
			if rec.State == state {
				filtered = append(filtered, rec)
			}
		}
		records = filtered
	}

	JSON(w, http.StatusOK, Response{StatusCode: http.StatusOK, Response: records})
}

func (s *Server) handleWithdrawalGet(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "txHash")
	if len(common.FromHex(raw)) != common.HashLength {
		ERROR(w, http.StatusBadRequest, errors.New("invalid transaction hash"))
		return
	}
	txHash := common.HexToHash(raw)

	for _, rec := range s.records.Records() {
		if rec.TxHash == txHash {
			JSON(w, http.StatusOK, Response{StatusCode: http.StatusOK, Response: rec})
			return
		}
	}

	ERROR(w, http.StatusNotFound, errors.New("withdrawal not tracked"))
}
