// Package ethplorer reads the ether and ERC20 token balances of Ethereum
// addresses with the Ethplorer API.
package ethplorer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/etnz/networth"
	"github.com/etnz/networth/query"
	"github.com/shopspring/decimal"
)

// FreeKey is the public, heavily rate limited, API key.
const FreeKey = "freekey"

const baseURL = "https://api.ethplorer.io"

// Client queries Ethplorer. It implements networth.WalletSource.
type Client struct {
	Cache *query.Cache
	Key   string

	base string
}

// New returns a client using key, or FreeKey if empty.
func New(cache *query.Cache, key string) *Client {
	if key == "" {
		key = FreeKey
	}
	return &Client{Cache: cache, Key: key, base: baseURL}
}

// addressInfo is the payload of /getAddressInfo/{address}
//
//	{
//	  "address": "0x...",
//	  "ETH": {"balance": 1.5, "price": {...}},
//	  "tokens": [
//	    {
//	      "tokenInfo": {"address": "0xdac1...", "symbol": "USDT", "name": "Tether USD", "decimals": "6", "price": {"rate": 1.0, "currency": "USD"}},
//	      "rawBalance": "1500000",
//	      ...
//	    }
//	  ]
//	}
//
// tokenInfo.price is false when unknown.
type addressInfo struct {
	ETH *struct {
		Balance decimal.Decimal `json:"balance"`
	} `json:"ETH"`
	Tokens []struct {
		TokenInfo struct {
			Address  string          `json:"address"`
			Symbol   string          `json:"symbol"`
			Name     string          `json:"name"`
			Decimals decimal.Decimal `json:"decimals"`
			Price    json.RawMessage `json:"price"`
		} `json:"tokenInfo"`
		RawBalance decimal.Decimal `json:"rawBalance"`
	} `json:"tokens"`
}

func (a addressInfo) Validate() error {
	if a.ETH == nil {
		return errors.New("missing ETH")
	}
	return nil
}

type price struct {
	Rate     decimal.Decimal `json:"rate"`
	Currency string          `json:"currency"`
}

// Wallet returns the ether balance of address and every token it holds.
func (c *Client) Wallet(ctx context.Context, address string) (networth.Wallet, error) {
	info, err := query.Get[addressInfo](ctx, c.Cache, query.Request{
		URL:         fmt.Sprintf("%s/getAddressInfo/%s?apiKey=%s", c.base, url.PathEscape(address), url.QueryEscape(c.Key)),
		Tolerate:    []int{400, 401, 403, 429},
		ServerError: query.ErrorAt("$.error.message"),
	})
	if err != nil {
		return networth.Wallet{}, err
	}

	w := networth.Wallet{Balance: networth.Q(info.ETH.Balance)}
	for _, t := range info.Tokens {
		tb := networth.TokenBalance{
			Symbol:   t.TokenInfo.Symbol,
			Contract: t.TokenInfo.Address,
			Name:     t.TokenInfo.Name,
			Balance:  networth.Q(t.RawBalance.Shift(-int32(t.TokenInfo.Decimals.IntPart()))),
		}
		var p price
		if json.Unmarshal(t.TokenInfo.Price, &p) == nil && p.Currency != "" {
			m := networth.M(p.Rate, p.Currency)
			tb.Price = &m
		}
		w.Tokens = append(w.Tokens, tb)
	}
	return w, nil
}
