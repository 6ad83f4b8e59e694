package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"walletbridge/shared/logger"
)

const coingeckoBaseURL = "https://api.coingecko.com/api/v3"

// PriceQuote is the validated shape of one price-feed response.
type PriceQuote struct {
	Price     decimal.Decimal
	Change24h decimal.Decimal
	Volume24h decimal.Decimal
	MarketCap decimal.Decimal
	FetchedAt time.Time
}

// PriceFeed fetches the current reference price for one configured asset
// from CoinGecko. Malformed or incomplete upstream payloads surface as
// ErrUnavailable; nothing downstream parses raw feed JSON.
type PriceFeed struct {
	assetID string
	client  *http.Client
	baseURL string
	log     *logger.Logger
}

func NewPriceFeed(assetID string, log *logger.Logger) *PriceFeed {
	return &PriceFeed{
		assetID: assetID,
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: coingeckoBaseURL,
		log:     log,
	}
}

// CurrentPrice returns one quote for the configured asset.
func (f *PriceFeed) CurrentPrice(ctx context.Context) (*PriceQuote, error) {
	endpoint := fmt.Sprintf(
		"%s/simple/price?ids=%s&vs_currencies=usd&include_market_cap=true&include_24hr_vol=true&include_24hr_change=true",
		f.baseURL, url.QueryEscape(f.assetID),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build price request: %v", ErrUnavailable, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: price feed request failed: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: price feed returned status %d", ErrUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read price response: %v", ErrUnavailable, err)
	}

	var payload map[string]map[string]json.Number
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: parse price response: %v", ErrUnavailable, err)
	}

	asset, ok := payload[f.assetID]
	if !ok {
		return nil, fmt.Errorf("%w: asset %q missing from price response", ErrUnavailable, f.assetID)
	}

	price, err := requireDecimal(asset, "usd")
	if err != nil {
		return nil, err
	}

	quote := &PriceQuote{
		Price:     price,
		Change24h: optionalDecimal(asset, "usd_24h_change"),
		Volume24h: optionalDecimal(asset, "usd_24h_vol"),
		MarketCap: optionalDecimal(asset, "usd_market_cap"),
		FetchedAt: time.Now(),
	}
	f.log.Debug("price fetched", "asset", f.assetID, "price", quote.Price.String())
	return quote, nil
}

func requireDecimal(fields map[string]json.Number, key string) (decimal.Decimal, error) {
	raw, ok := fields[key]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: field %q missing from price response", ErrUnavailable, key)
	}
	d, err := decimal.NewFromString(raw.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: field %q is not numeric: %v", ErrUnavailable, key, err)
	}
	return d, nil
}

func optionalDecimal(fields map[string]json.Number, key string) decimal.Decimal {
	raw, ok := fields[key]
	if !ok {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}
