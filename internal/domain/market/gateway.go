package market

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Coin identifies a tradable asset as known by the market data provider.
type Coin struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// Metadata carries the display details shown when an asset is selected.
type Metadata struct {
	ID           string
	Name         string
	Symbol       string
	Rank         int
	CurrentPrice decimal.Decimal
}

// Gateway provides point-in-time and historical price lookups.
// Implementations map provider outages to errors.ErrUpstreamUnavailable
// and unknown assets to errors.ErrNotFound.
type Gateway interface {
	// CurrentPrice returns the latest quote-currency price of the asset.
	CurrentPrice(ctx context.Context, assetID string) (decimal.Decimal, error)

	// HistoricalPrice returns the price of the asset on the given date (UTC midnight).
	HistoricalPrice(ctx context.Context, assetID string, date time.Time) (decimal.Decimal, error)

	// Metadata returns display details for an asset.
	Metadata(ctx context.Context, assetID string) (*Metadata, error)

	// Search returns assets matching the query, best match first. May be empty.
	Search(ctx context.Context, query string) ([]Coin, error)

	// TopCoins returns up to limit assets ordered by market cap.
	TopCoins(ctx context.Context, limit int) ([]Coin, error)
}
