package networth

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Kind is the type of an asset.
type Kind string

// Precious metals.
const (
	Silver    Kind = "silver"
	Palladium Kind = "palladium"
	Platinum  Kind = "platinum"
	Gold      Kind = "gold"
)

// Crypto currencies.
const (
	Bitcoin     Kind = "bitcoin"
	Litecoin    Kind = "litecoin"
	Dash        Kind = "dash"
	BitcoinCash Kind = "bitcoin-cash"
	Dogecoin    Kind = "dogecoin"
	Ethereum    Kind = "ethereum"
	// Token is an ERC20 token discovered on an Ethereum wallet. It only exists
	// as a secondary asset.
	Token Kind = "token"
)

// Class groups kinds valued the same way.
type Class int

const (
	PreciousMetal Class = iota
	CryptoCurrency
)

// kind holds how assets of one Kind are queried. A nil query means the
// information is declared by the user.
type kind struct {
	class  Class
	symbol string

	unitValue func(ctx context.Context, s *Services, symbol string, a *Asset) (Money, error)
	quantity  func(ctx context.Context, s *Services, symbol string, a *Asset) (Quantity, error)
	discover  func(ctx context.Context, s *Services, a *Asset) ([]TokenBalance, error)
}

// kinds is the dispatch table of every Kind.
var kinds = map[Kind]kind{
	Silver:    metal("XAG"),
	Palladium: metal("XPD"),
	Platinum:  metal("XPT"),
	Gold:      metal("XAU"),

	Bitcoin:     coin("BTC"),
	Litecoin:    coin("LTC"),
	Dash:        coin("DASH"),
	BitcoinCash: coin("BCH"),
	Dogecoin:    coin("DOGE"),
	Ethereum: {
		class:     CryptoCurrency,
		symbol:    "ETH",
		unitValue: coinUnitValue,
		quantity:  etherQuantity,
		discover:  tokens,
	},

	Token: {class: CryptoCurrency},
}

// Kinds returns every known kind, in display order.
func Kinds() []Kind {
	return []Kind{Silver, Palladium, Platinum, Gold, Bitcoin, Litecoin, Dash, BitcoinCash, Dogecoin, Ethereum, Token}
}

// Class returns the class of k.
func (k Kind) Class() Class { return kinds[k].class }

// Symbol returns the ticker symbol k is priced with.
func (k Kind) Symbol() string { return kinds[k].symbol }

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	_, ok := kinds[k]
	return ok
}

func metal(symbol string) kind {
	return kind{class: PreciousMetal, symbol: symbol, unitValue: metalUnitValue}
}

func coin(symbol string) kind {
	return kind{class: CryptoCurrency, symbol: symbol, unitValue: coinUnitValue, quantity: walletQuantity}
}

var errNoSource = errors.New("no data source configured")

// metalUnitValue is the value of one item: its fine weight times the spot
// price of a troy ounce.
func metalUnitValue(ctx context.Context, s *Services, symbol string, a *Asset) (Money, error) {
	if s.Metals == nil {
		return Money{}, errNoSource
	}
	perOunce, err := s.Metals.Price(ctx, symbol, s.Currency)
	if err != nil {
		return Money{}, err
	}
	perOunce, err = s.convert(ctx, perOunce)
	if err != nil {
		return Money{}, err
	}
	fine := a.Weight.Mul(a.WeightUnit.troyOunces()).Mul(a.Fineness)
	return perOunce.Scale(fine), nil
}

func coinUnitValue(ctx context.Context, s *Services, symbol string, a *Asset) (Money, error) {
	if s.Prices == nil {
		return Money{}, errNoSource
	}
	price, err := s.Prices.Price(ctx, symbol, s.Currency)
	if err != nil {
		return Money{}, err
	}
	return s.convert(ctx, price)
}

func walletQuantity(ctx context.Context, s *Services, symbol string, a *Asset) (Quantity, error) {
	if s.Balances == nil {
		return Quantity{}, errNoSource
	}
	return s.Balances.Balance(ctx, symbol, a.Address)
}

func etherQuantity(ctx context.Context, s *Services, _ string, a *Asset) (Quantity, error) {
	if s.Wallets == nil {
		return Quantity{}, errNoSource
	}
	w, err := s.Wallets.Wallet(ctx, a.Address)
	if err != nil {
		return Quantity{}, err
	}
	return w.Balance, nil
}

func tokens(ctx context.Context, s *Services, a *Asset) ([]TokenBalance, error) {
	if s.Wallets == nil {
		return nil, errNoSource
	}
	w, err := s.Wallets.Wallet(ctx, a.Address)
	if err != nil {
		return nil, err
	}
	return w.Tokens, nil
}

// WeightUnit is the unit of a metal item's weight.
type WeightUnit string

const (
	Gram      WeightUnit = "g"
	Kilogram  WeightUnit = "kg"
	TroyOunce WeightUnit = "oz"
	Grain     WeightUnit = "gr"
)

var gramsPerTroyOunce = decimal.RequireFromString("31.1034768")

// troyOunces returns the number of troy ounces in one unit.
func (u WeightUnit) troyOunces() decimal.Decimal {
	switch u {
	case Gram:
		return decimal.NewFromInt(1).Div(gramsPerTroyOunce)
	case Kilogram:
		return decimal.NewFromInt(1000).Div(gramsPerTroyOunce)
	case Grain:
		return decimal.NewFromInt(1).Div(decimal.NewFromInt(480))
	default:
		return decimal.NewFromInt(1)
	}
}

// ParseWeightUnit parses the unit symbol s.
func ParseWeightUnit(s string) (WeightUnit, error) {
	switch u := WeightUnit(s); u {
	case Gram, Kilogram, TroyOunce, Grain:
		return u, nil
	case "":
		return TroyOunce, nil
	default:
		return "", fmt.Errorf("unknown weight unit %q, want one of g, kg, oz, gr", s)
	}
}
