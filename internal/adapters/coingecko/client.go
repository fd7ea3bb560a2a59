package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"simufolio/internal/adapters/config"
	"simufolio/internal/domain/market"
	"simufolio/internal/metrics"
	"simufolio/pkg/errors"
	"simufolio/pkg/logger"
)

const vsCurrency = "usd"

// Compile-time check that we implement the interface
var _ market.Gateway = (*Client)(nil)

// Client implements market.Gateway against the CoinGecko v3 REST API.
// Every request is bounded by the configured HTTP timeout.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *logger.Logger
}

// NewClient creates a new CoinGecko client
func NewClient(cfg config.CoinGeckoConfig, log *logger.Logger) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.HTTPTimeout,
		},
		log: log.With("component", "coingecko"),
	}
}

// CurrentPrice returns the latest USD price of the asset
func (c *Client) CurrentPrice(ctx context.Context, assetID string) (decimal.Decimal, error) {
	params := url.Values{}
	params.Set("ids", assetID)
	params.Set("vs_currencies", vsCurrency)

	var payload map[string]map[string]json.Number
	if err := c.getJSON(ctx, "/simple/price", params, &payload); err != nil {
		return decimal.Zero, err
	}

	raw, ok := payload[assetID][vsCurrency]
	if !ok {
		return decimal.Zero, errors.Wrapf(errors.ErrNotFound, "no %s price for asset %q", vsCurrency, assetID)
	}

	price, err := decimal.NewFromString(raw.String())
	if err != nil {
		return decimal.Zero, errors.Wrapf(errors.ErrUpstreamUnavailable, "bad price %q for asset %q", raw, assetID)
	}

	return price, nil
}

// HistoricalPrice returns the USD price of the asset at the given date
func (c *Client) HistoricalPrice(ctx context.Context, assetID string, date time.Time) (decimal.Decimal, error) {
	params := url.Values{}
	// CoinGecko expects dd-mm-yyyy for the history endpoint
	params.Set("date", date.UTC().Format("02-01-2006"))
	params.Set("localization", "false")

	var payload struct {
		MarketData *struct {
			CurrentPrice map[string]json.Number `json:"current_price"`
		} `json:"market_data"`
	}
	if err := c.getJSON(ctx, "/coins/"+url.PathEscape(assetID)+"/history", params, &payload); err != nil {
		return decimal.Zero, err
	}

	if payload.MarketData == nil {
		return decimal.Zero, errors.Wrapf(errors.ErrUpstreamUnavailable, "no historical market data for asset %q", assetID)
	}

	raw, ok := payload.MarketData.CurrentPrice[vsCurrency]
	if !ok {
		return decimal.Zero, errors.Wrapf(errors.ErrUpstreamUnavailable, "no %s historical price for asset %q", vsCurrency, assetID)
	}

	price, err := decimal.NewFromString(raw.String())
	if err != nil {
		return decimal.Zero, errors.Wrapf(errors.ErrUpstreamUnavailable, "bad historical price %q for asset %q", raw, assetID)
	}

	return price, nil
}

// Metadata returns display details for an asset
func (c *Client) Metadata(ctx context.Context, assetID string) (*market.Metadata, error) {
	params := url.Values{}
	params.Set("localization", "false")

	var payload struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		Symbol     string `json:"symbol"`
		MarketData *struct {
			CurrentPrice  map[string]json.Number `json:"current_price"`
			MarketCapRank int                    `json:"market_cap_rank"`
		} `json:"market_data"`
	}
	if err := c.getJSON(ctx, "/coins/"+url.PathEscape(assetID), params, &payload); err != nil {
		return nil, err
	}

	if payload.MarketData == nil {
		return nil, errors.Wrapf(errors.ErrUpstreamUnavailable, "no market data for asset %q", assetID)
	}

	price := decimal.Zero
	if raw, ok := payload.MarketData.CurrentPrice[vsCurrency]; ok {
		if p, err := decimal.NewFromString(raw.String()); err == nil {
			price = p
		}
	}

	return &market.Metadata{
		ID:           payload.ID,
		Name:         payload.Name,
		Symbol:       payload.Symbol,
		Rank:         payload.MarketData.MarketCapRank,
		CurrentPrice: price,
	}, nil
}

// Search returns assets matching the query, best match first
func (c *Client) Search(ctx context.Context, query string) ([]market.Coin, error) {
	params := url.Values{}
	params.Set("query", query)

	var payload struct {
		Coins []market.Coin `json:"coins"`
	}
	if err := c.getJSON(ctx, "/search", params, &payload); err != nil {
		return nil, err
	}

	return payload.Coins, nil
}

// TopCoins returns up to limit assets ordered by market cap
func (c *Client) TopCoins(ctx context.Context, limit int) ([]market.Coin, error) {
	params := url.Values{}
	params.Set("vs_currency", vsCurrency)
	params.Set("order", "market_cap_desc")
	params.Set("per_page", strconv.Itoa(limit))
	params.Set("page", "1")

	var payload []market.Coin
	if err := c.getJSON(ctx, "/coins/markets", params, &payload); err != nil {
		return nil, err
	}

	if len(payload) > limit {
		payload = payload[:limit]
	}
	return payload, nil
}

// getJSON performs a GET request and decodes the JSON response.
// 404 maps to ErrNotFound, everything else non-200 to ErrUpstreamUnavailable.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, dest interface{}) error {
	if c.apiKey != "" {
		params.Set("x_cg_demo_api_key", c.apiKey)
	}

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return errors.Wrapf(errors.ErrInternal, "failed to build request for %s: %v", path, err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.GatewayRequests.WithLabelValues(path, "transport_error").Inc()
		return errors.Wrapf(errors.ErrUpstreamUnavailable, "request to %s failed: %v", path, err)
	}
	defer resp.Body.Close()

	metrics.GatewayRequests.WithLabelValues(path, strconv.Itoa(resp.StatusCode)).Inc()

	c.log.Debugw("CoinGecko request",
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errors.Wrapf(errors.ErrNotFound, "coingecko %s returned 404", path)
	case resp.StatusCode != http.StatusOK:
		return errors.Wrapf(errors.ErrUpstreamUnavailable, "coingecko %s returned status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return errors.Wrapf(errors.ErrUpstreamUnavailable, "failed to decode %s response: %v", path, err)
	}

	return nil
}
