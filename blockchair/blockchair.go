// Package blockchair summarises sets of addresses of bitcoin-like blockchains
// with the Blockchair API.
package blockchair

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/etnz/networth/query"
	"github.com/etnz/networth/scan"
	"github.com/etnz/networth/taskqueue"
	"github.com/shopspring/decimal"
)

// DefaultPerMinute is the request quota of the free Blockchair tier.
const DefaultPerMinute = 30

const baseURL = "https://api.blockchair.com"

// Client queries Blockchair. Its Throttle is shared by every chain, the quota
// being per client, not per chain. Cached responses do not count.
type Client struct {
	Cache    *query.Cache
	Key      string // optional API key
	Throttle *taskqueue.Throttle

	base string
}

// New returns a client honouring perMinute requests per minute.
func New(cache *query.Cache, key string, perMinute int) *Client {
	return &Client{Cache: cache, Key: key, Throttle: taskqueue.NewThrottle(perMinute), base: baseURL}
}

// Chain returns the scanner of one blockchain, identified by its Blockchair
// name ("bitcoin", "litecoin", "dash", "bitcoin-cash", "dogecoin").
func (c *Client) Chain(name string, deriver scan.Deriver) *scan.Scanner {
	return &scan.Scanner{
		Deriver: deriver,
		Source:  &source{client: c, chain: name},
	}
}

// dashboard is the payload of /{chain}/dashboards/addresses/{a},{b}...
//
//	{
//	  "data": {
//	    "set": {
//	      "address_count": 2,
//	      "balance": 65000,
//	      "received": 130000,
//	      "transaction_count": 4,
//	      ...
//	    },
//	    "addresses": {...}
//	  },
//	  "context": {"code": 200, ...}
//	}
type dashboard struct {
	Data *struct {
		Set *struct {
			Balance          decimal.Decimal `json:"balance"` // in satoshis
			TransactionCount int             `json:"transaction_count"`
		} `json:"set"`
	} `json:"data"`
}

func (d dashboard) Validate() error {
	if d.Data == nil || d.Data.Set == nil {
		return errors.New("missing data.set")
	}
	return nil
}

// source implements scan.Source for one chain.
type source struct {
	client *Client
	chain  string
}

// Summary returns the aggregated balance, in coins, and transaction count of
// addresses.
func (s *source) Summary(ctx context.Context, addresses []string) (scan.Summary, error) {
	addr := fmt.Sprintf("%s/%s/dashboards/addresses/%s", s.client.base, s.chain, strings.Join(addresses, ","))
	if s.client.Key != "" {
		addr += "?key=" + url.QueryEscape(s.client.Key)
	}
	d, err := query.Get[dashboard](ctx, s.client.Cache, query.Request{
		URL: addr,
		// Blockchair explains quota and payment errors in the body.
		Tolerate:    []int{402, 429, 430, 434, 435},
		ServerError: query.ErrorAt("$.context.error"),
		Throttle:    s.client.Throttle,
	})
	if err != nil {
		return scan.Summary{}, err
	}
	return scan.Summary{
		Balance: d.Data.Set.Balance.Shift(-8),
		TxCount: d.Data.Set.TransactionCount,
	}, nil
}
