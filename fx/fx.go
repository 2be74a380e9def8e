// Package fx converts currencies with the open.er-api.com exchange rates.
package fx

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/etnz/networth/query"
	"github.com/shopspring/decimal"
)

const baseURL = "https://open.er-api.com"

// Client queries open.er-api.com. It implements networth.RateSource.
type Client struct {
	Cache *query.Cache

	base string
}

func New(cache *query.Cache) *Client { return &Client{Cache: cache, base: baseURL} }

// latest is the payload of /v6/latest/{currency}
//
//	{
//	  "result": "success",
//	  "base_code": "USD",
//	  "time_last_update_unix": 1714521601,
//	  "rates": {"USD": 1, "EUR": 0.93, ...}
//	}
//
// or, on failure
//
//	{"result": "error", "error-type": "unsupported-code"}
type latest struct {
	BaseCode string                     `json:"base_code"`
	Rates    map[string]decimal.Decimal `json:"rates"`
}

func (l latest) Validate() error {
	if len(l.Rates) == 0 {
		return errors.New("missing rates")
	}
	return nil
}

// Rate returns how many units of to one unit of from is worth.
func (c *Client) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if from == to {
		return decimal.NewFromInt(1), nil
	}
	l, err := query.Get[latest](ctx, c.Cache, query.Request{
		URL:         fmt.Sprintf("%s/v6/latest/%s", c.base, url.PathEscape(from)),
		Tolerate:    []int{400, 404},
		ServerError: query.ErrorAt(`$["error-type"]`),
	})
	if err != nil {
		return decimal.Decimal{}, err
	}
	rate, ok := l.Rates[to]
	if !ok {
		return decimal.Decimal{}, query.Errorf(query.Validation, "no exchange rate from %s to %s", from, to)
	}
	return rate, nil
}
