// Package catalog serves the read-only NFT collection dataset bundled with
// the binary.
package catalog

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

//go:embed catalog.json
var raw []byte

var ErrNotFound = errors.New("catalog: not found")

type Stats struct {
	FloorPriceTon       float64 `json:"floor_price_ton"`
	AverageSalePriceTon float64 `json:"average_sale_price_ton"`
	Volume24hTon        float64 `json:"volume_24h_ton"`
	VolumeAllTimeTon    float64 `json:"volume_all_time_ton"`
	NumOwners           int     `json:"num_owners"`
	NumSales24h         int     `json:"num_sales_24h"`
}

type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     string `json:"value"`
}

type Metadata struct {
	Description string      `json:"description"`
	Attributes  []Attribute `json:"attributes"`
}

type Details struct {
	MintedTimestamp time.Time `json:"minted_timestamp"`
	RoyaltyPercent  float64   `json:"royalty_percent"`
	ListingStatus   string    `json:"listing_status"`
}

type Event struct {
	Event     string    `json:"event"` // mint, sale or transfer
	From      *string   `json:"from"`
	To        *string   `json:"to"`
	PriceTon  *float64  `json:"price_ton"`
	Timestamp time.Time `json:"timestamp"`
}

type Bid struct {
	Bidder    string    `json:"bidder"`
	PriceTon  float64   `json:"price_ton"`
	Timestamp time.Time `json:"timestamp"`
}

type NFT struct {
	TokenID      string   `json:"token_id"`
	Name         string   `json:"name"`
	ImageURL     string   `json:"image_url"`
	OwnerAddress string   `json:"owner_address"`
	Metadata     Metadata `json:"metadata"`
	Details      Details  `json:"details"`
	History      []Event  `json:"history"`
	Bids         []Bid    `json:"bids"`
}

type Collection struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Slug            string   `json:"slug"`
	Description     string   `json:"description"`
	ImageURL        string   `json:"image_url"`
	CoverImageURL   string   `json:"cover_image_url"`
	ContractAddress string   `json:"contract_address"`
	TotalSupply     int      `json:"total_supply"`
	Verified        bool     `json:"verified"`
	SocialLinks     []string `json:"social_links"`
	Stats           Stats    `json:"stats"`
	NFTs            []NFT    `json:"nfts"`
}

// Item is one NFT together with the collection it belongs to.
type Item struct {
	ID         string      `json:"id"`
	PriceTon   float64     `json:"price_ton"`
	NFT        NFT         `json:"nft"`
	Collection *Collection `json:"-"`
}

// ItemID is the storefront-wide id of an NFT: "<collection id>-<token id>".
func ItemID(collectionID, tokenID string) string {
	return collectionID + "-" + tokenID
}

// Catalog indexes the collections by slug and item id.
type Catalog struct {
	collections []Collection
	bySlug      map[string]int
	items       map[string]Item
}

// Parse decodes and indexes a catalog document.
func Parse(data []byte) (*Catalog, error) {
	var doc struct {
		Collections []Collection `json:"collections"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	c := &Catalog{
		collections: doc.Collections,
		bySlug:      make(map[string]int, len(doc.Collections)),
		items:       make(map[string]Item),
	}
	for i := range c.collections {
		col := &c.collections[i]
		if _, dup := c.bySlug[col.Slug]; dup {
			return nil, fmt.Errorf("duplicate collection slug %q", col.Slug)
		}
		c.bySlug[col.Slug] = i
		for _, n := range col.NFTs {
			id := ItemID(col.ID, n.TokenID)
			c.items[id] = Item{ID: id, PriceTon: listPrice(col.Stats), NFT: n, Collection: col}
		}
	}
	return c, nil
}

// listPrice is what the storefront charges for any item of a collection:
// the average sale price, or the floor when there have been no sales.
func listPrice(s Stats) float64 {
	if s.AverageSalePriceTon > 0 {
		return s.AverageSalePriceTon
	}
	return s.FloorPriceTon
}

var (
	loadOnce sync.Once
	loaded   *Catalog
	loadErr  error
)

// Load returns the embedded catalog, parsing it on first use.
func Load() (*Catalog, error) {
	loadOnce.Do(func() {
		loaded, loadErr = Parse(raw)
	})
	return loaded, loadErr
}

// Collections returns every collection in file order.
func (c *Catalog) Collections() []Collection {
	return c.collections
}

// Collection returns the collection with the given slug.
func (c *Catalog) Collection(slug string) (Collection, error) {
	i, ok := c.bySlug[strings.ToLower(slug)]
	if !ok {
		return Collection{}, fmt.Errorf("collection %q: %w", slug, ErrNotFound)
	}
	return c.collections[i], nil
}

// Item returns the NFT with the given storefront id.
func (c *Catalog) Item(id string) (Item, error) {
	it, ok := c.items[id]
	if !ok {
		return Item{}, fmt.Errorf("nft %q: %w", id, ErrNotFound)
	}
	return it, nil
}
