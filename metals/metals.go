// Package metals quotes the spot price of precious metals with the gold-api.com
// API.
package metals

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/etnz/networth"
	"github.com/etnz/networth/query"
	"github.com/shopspring/decimal"
)

const baseURL = "https://api.gold-api.com"

// Currency of every quote.
const Currency = "USD"

// Client queries gold-api.com. It implements networth.PriceSource.
type Client struct {
	Cache *query.Cache

	base string
}

func New(cache *query.Cache) *Client { return &Client{Cache: cache, base: baseURL} }

// quote is the payload of /price/{symbol}
//
//	{"name": "Gold", "price": 2345.6, "symbol": "XAU", "updatedAt": "2024-05-01T12:00:00Z"}
type quote struct {
	Price  *decimal.Decimal `json:"price"`
	Symbol string           `json:"symbol"`
}

func (q quote) Validate() error {
	if q.Price == nil {
		return errors.New("missing price")
	}
	if !q.Price.IsPositive() {
		return fmt.Errorf("invalid price %v", q.Price)
	}
	return nil
}

// Price returns the price of a troy ounce of the metal symbol (XAU, XAG, XPT,
// XPD). Quotes are always in USD, whatever currency is asked.
func (c *Client) Price(ctx context.Context, symbol, _ string) (networth.Money, error) {
	q, err := query.Get[quote](ctx, c.Cache, query.Request{
		URL:         fmt.Sprintf("%s/price/%s", c.base, url.PathEscape(symbol)),
		Tolerate:    []int{400, 404},
		ServerError: query.ErrorAt("$.error", "$.message"),
	})
	if err != nil {
		return networth.Money{}, err
	}
	return networth.M(*q.Price, Currency), nil
}
