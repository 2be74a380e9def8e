// Package cryptocompare quotes crypto currencies with the CryptoCompare API.
package cryptocompare

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/etnz/networth"
	"github.com/etnz/networth/query"
	"github.com/shopspring/decimal"
)

const baseURL = "https://min-api.cryptocompare.com"

// Client queries CryptoCompare. It implements networth.PriceSource.
type Client struct {
	Cache *query.Cache

	base string
}

func New(cache *query.Cache) *Client { return &Client{Cache: cache, base: baseURL} }

// prices is the payload of /data/price?fsym=BTC&tsyms=EUR
//
//	{"EUR": 61234.5}
//
// or, on failure
//
//	{"Response": "Error", "Message": "fsym is a required param.", ...}
type prices map[string]decimal.Decimal

// Price returns the price of one unit of symbol in currency.
func (c *Client) Price(ctx context.Context, symbol, currency string) (networth.Money, error) {
	currency = strings.ToUpper(currency)
	p, err := query.Get[prices](ctx, c.Cache, query.Request{
		URL: fmt.Sprintf("%s/data/price?fsym=%s&tsyms=%s", c.base, url.QueryEscape(symbol), url.QueryEscape(currency)),
		ServerError: func(body any) string {
			if query.Lookup("$.Response", body) != "Error" {
				return ""
			}
			return query.Lookup("$.Message", body)
		},
	})
	if err != nil {
		return networth.Money{}, err
	}
	v, ok := p[currency]
	if !ok {
		return networth.Money{}, query.Errorf(query.Validation, "cryptocompare has no %s price for %s", currency, symbol)
	}
	return networth.M(v, currency), nil
}
