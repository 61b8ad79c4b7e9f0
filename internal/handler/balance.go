package handler

import (
	"context"
	"net/http"

	"github.com/web3-frozen/ton-storefront/internal/model"
	"github.com/web3-frozen/ton-storefront/internal/resolver"
)

// balanceCacheControl lets a CDN hold a balance for 15s and serve it for
// another 15s while revalidating.
const balanceCacheControl = "public, s-maxage=15, stale-while-revalidate=15"

// Balances resolves on-chain balances.
type Balances interface {
	Balance(ctx context.Context, address string, chain model.Chain) resolver.Result[float64]
	JettonBalance(ctx context.Context, q model.JettonQuery, chain model.Chain) resolver.Result[float64]
}

type balanceResponse struct {
	Balance float64 `json:"balance"`
}

// Balance serves /api/balance. Any chain other than testnet is mainnet.
func Balance(b Balances) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		address := r.URL.Query().Get("address")
		if address == "" {
			writeError(w, http.StatusBadRequest, "Missing address")
			return
		}
		chain := model.Mainnet
		if r.URL.Query().Get("chain") == string(model.Testnet) {
			chain = model.Testnet
		}

		res := b.Balance(r.Context(), address, chain)
		if !res.OK() {
			writeError(w, http.StatusBadGateway, "Unable to fetch balance")
			return
		}
		w.Header().Set("Cache-Control", balanceCacheControl)
		writeJSON(w, http.StatusOK, balanceResponse{Balance: res.Value})
	}
}

// JettonBalance serves /api/jetton-balance. Any chain other than mainnet
// is testnet.
func JettonBalance(b Balances) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := model.JettonQuery{
			Owner:  r.URL.Query().Get("owner"),
			Master: r.URL.Query().Get("master"),
		}
		if q.Owner == "" || q.Master == "" {
			writeError(w, http.StatusBadRequest, "Missing owner or master")
			return
		}
		chain := model.Testnet
		if r.URL.Query().Get("chain") == string(model.Mainnet) {
			chain = model.Mainnet
		}

		res := b.JettonBalance(r.Context(), q, chain)
		if !res.OK() {
			writeError(w, http.StatusBadGateway, "Failed to fetch jettons")
			return
		}
		w.Header().Set("Cache-Control", balanceCacheControl)
		writeJSON(w, http.StatusOK, balanceResponse{Balance: res.Value})
	}
}
