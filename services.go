package networth

import (
	"context"
	"fmt"

	"github.com/etnz/networth/query"
	"github.com/etnz/networth/scan"
	"github.com/shopspring/decimal"
)

// PriceSource quotes the price of one unit of symbol. The returned money may be
// in any currency, the requested one being a preference.
type PriceSource interface {
	Price(ctx context.Context, symbol, currency string) (Money, error)
}

// BalanceSource returns the balance held at an address or extended public key
// on the blockchain of the coin symbol.
type BalanceSource interface {
	Balance(ctx context.Context, symbol, address string) (Quantity, error)
}

// WalletSource returns everything held by an account based blockchain address.
type WalletSource interface {
	Wallet(ctx context.Context, address string) (Wallet, error)
}

// RateSource returns the exchange rate from one currency to another.
type RateSource interface {
	Rate(ctx context.Context, from, to string) (decimal.Decimal, error)
}

// Wallet is the content of an account based address.
type Wallet struct {
	Balance Quantity
	Tokens  []TokenBalance
}

// TokenBalance is a token found on a wallet.
type TokenBalance struct {
	Symbol   string
	Contract string // the token contract address, empty if the provider does not tell
	Name     string
	Balance  Quantity
	Price    *Money // nil if the provider does not know it
}

// Services gathers every data source an asset can be queried from. Any source
// may be nil, assets depending on it then report an unknown value.
type Services struct {
	Currency string // base currency of every value
	Cache    *query.Cache

	Prices   PriceSource // crypto currencies
	Metals   PriceSource // spot price of a troy ounce
	Balances BalanceSource
	Wallets  WalletSource
	Rates    RateSource
}

// convert returns m in the base currency.
func (s *Services) convert(ctx context.Context, m Money) (Money, error) {
	if m.Currency() == s.Currency || m.Currency() == "" {
		return m, nil
	}
	if s.Rates == nil {
		return Money{}, fmt.Errorf("cannot convert %s to %s: %w", m.Currency(), s.Currency, errNoSource)
	}
	rate, err := s.Rates.Rate(ctx, m.Currency(), s.Currency)
	if err != nil {
		return Money{}, err
	}
	return m.Convert(rate, s.Currency), nil
}

// Scanners implements BalanceSource with one wallet scanner per coin symbol.
type Scanners map[string]*scan.Scanner

func (s Scanners) Balance(ctx context.Context, symbol, address string) (Quantity, error) {
	sc, ok := s[symbol]
	if !ok {
		return Quantity{}, fmt.Errorf("no blockchain explorer for %s", symbol)
	}
	res, err := sc.Scan(ctx, address)
	if err != nil {
		return Quantity{}, err
	}
	return Q(res.Balance), nil
}
