package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/web3-frozen/ton-storefront/internal/catalog"
	"github.com/web3-frozen/ton-storefront/internal/transfer"
)

type collectionSummary struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Slug     string        `json:"slug"`
	ImageURL string        `json:"image_url"`
	Verified bool          `json:"verified"`
	NumItems int           `json:"num_items"`
	Stats    catalog.Stats `json:"stats"`
}

func ListCollections(cat *catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cols := cat.Collections()
		out := make([]collectionSummary, 0, len(cols))
		for _, c := range cols {
			out = append(out, collectionSummary{
				ID:       c.ID,
				Name:     c.Name,
				Slug:     c.Slug,
				ImageURL: c.ImageURL,
				Verified: c.Verified,
				NumItems: len(c.NFTs),
				Stats:    c.Stats,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func GetCollection(cat *catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		col, err := cat.Collection(chi.URLParam(r, "slug"))
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Collection not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Internal error")
			return
		}
		writeJSON(w, http.StatusOK, col)
	}
}

func GetNFT(cat *catalog.Catalog) http.HandlerFunc {
	type response struct {
		catalog.Item
		CollectionSlug string `json:"collection_slug"`
		CollectionName string `json:"collection_name"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		it, err := cat.Item(chi.URLParam(r, "id"))
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, http.StatusNotFound, "NFT not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Internal error")
			return
		}
		writeJSON(w, http.StatusOK, response{
			Item:           it,
			CollectionSlug: it.Collection.Slug,
			CollectionName: it.Collection.Name,
		})
	}
}

// TransferIntent builds the wallet-connector request for a purchase. The
// amount comes from ?amount= (TON) or, when absent, from the list price of
// ?nft=.
func TransferIntent(cat *catalog.Catalog, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		to := q.Get("to")
		if to == "" {
			writeError(w, http.StatusBadRequest, "Missing to")
			return
		}
		if !transfer.ValidRecipient(to) {
			writeError(w, http.StatusBadRequest, "Wrong recipient address format")
			return
		}

		var amount float64
		switch {
		case q.Get("amount") != "":
			v, err := strconv.ParseFloat(q.Get("amount"), 64)
			if err != nil {
				writeError(w, http.StatusBadRequest, "Invalid amount")
				return
			}
			amount = v
		case q.Get("nft") != "":
			it, err := cat.Item(q.Get("nft"))
			if err != nil {
				writeError(w, http.StatusNotFound, "NFT not found")
				return
			}
			amount = it.PriceTon
		default:
			writeError(w, http.StatusBadRequest, "Missing amount or nft")
			return
		}

		intent, err := transfer.NewIntent(to, amount, now())
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid amount")
			return
		}
		writeJSON(w, http.StatusOK, intent.Request())
	}
}
