package networth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/etnz/networth/query"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
)

// fakePrices quotes a fixed price per symbol.
type fakePrices map[string]Money

func (f fakePrices) Price(ctx context.Context, symbol, currency string) (Money, error) {
	p, ok := f[symbol]
	if !ok {
		return Money{}, query.Errorf(query.Application, "unknown symbol %s", symbol)
	}
	return p, nil
}

// fakeBalances holds a fixed balance per address.
type fakeBalances map[string]Quantity

func (f fakeBalances) Balance(ctx context.Context, symbol, address string) (Quantity, error) {
	q, ok := f[address]
	if !ok {
		return Quantity{}, query.Errorf(query.InvalidKey, "invalid address %s", address)
	}
	return q, nil
}

// fakeWallets returns whatever wallet it currently holds.
type fakeWallets struct {
	mu     sync.Mutex
	wallet Wallet
	err    error
}

func (f *fakeWallets) set(w Wallet) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.wallet = w
}

func (f *fakeWallets) Wallet(ctx context.Context, address string) (Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.wallet, f.err
}

// fakeRates converts with fixed rates keyed "FROM/TO".
type fakeRates map[string]decimal.Decimal

func (f fakeRates) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	r, ok := f[from+"/"+to]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("no rate %s/%s", from, to)
	}
	return r, nil
}

func token(symbol string, balance float64, price float64) TokenBalance {
	p := USD(price)
	return TokenBalance{Symbol: symbol, Name: symbol + " token", Balance: Q(balance), Price: &p}
}

func symbols(assets []*Asset) []string {
	var s []string
	for _, a := range assets {
		if a.Kind == Token {
			s = append(s, a.Symbol)
		} else {
			s = append(s, string(a.Kind))
		}
	}
	return s
}

func ethServices(w *fakeWallets) *Services {
	return &Services{
		Currency: "EUR",
		Prices:   fakePrices{"ETH": EUR(1000)},
		Wallets:  w,
		Rates:    fakeRates{"USD/EUR": decimal.RequireFromString("0.5")},
	}
}

func TestBundle_QueryData_Splice(t *testing.T) {
	w := &fakeWallets{}
	b := newBundle(&Asset{Kind: Ethereum, Location: "Metamask", Address: "0xabc"}, ethServices(w))

	w.set(Wallet{Balance: Q(2), Tokens: []TokenBalance{token("A", 10, 2), token("B", 1, 4)}})
	b.QueryData(context.Background())
	if diff := cmp.Diff([]string{"ethereum", "A", "B"}, symbols(b.Assets())); diff != "" {
		t.Fatalf("first discovery mismatch (-want +got):\n%s", diff)
	}
	a := b.Assets()[1]

	w.set(Wallet{Balance: Q(2), Tokens: []TokenBalance{token("A", 20, 2), token("C", 1, 1)}})
	b.QueryData(context.Background())
	assets := b.Assets()
	if diff := cmp.Diff([]string{"ethereum", "A", "C"}, symbols(assets)); diff != "" {
		t.Fatalf("second discovery mismatch (-want +got):\n%s", diff)
	}
	if assets[1] != a {
		t.Error("a token still held must keep its instance")
	}
	if q, _ := a.Quantity(); !q.Equal(Q(20)) {
		t.Errorf("token quantity = %v, want 20", q)
	}
	// 20 tokens at 2 USD, 0.5 EUR per USD.
	if v, ok := a.TotalValue(); !ok || !v.Equal(EUR(20)) {
		t.Errorf("token value = %v, %v, want %v", v, ok, EUR(20))
	}
	if got := assets[2].Location; got != "Metamask" {
		t.Errorf("discovered token location = %q, want the wallet's", got)
	}
}

func TestBundle_QueryData_SameSymbol(t *testing.T) {
	tether, spam := token("USDT", 1, 1), token("USDT", 500, 1)
	tether.Contract, spam.Contract = "0xdAC17F", "0xbad"
	twice := token("DAI", 2, 1)
	w := &fakeWallets{wallet: Wallet{Balance: Q(1), Tokens: []TokenBalance{tether, spam, twice, twice}}}
	b := newBundle(&Asset{Kind: Ethereum, Address: "0xabc"}, ethServices(w))

	quantities := func() map[string]string {
		got := make(map[string]string)
		for _, a := range b.Assets()[1:] {
			q, _ := a.Quantity()
			got[a.Symbol+" "+a.Contract] = q.String()
		}
		return got
	}
	want := map[string]string{"USDT 0xdAC17F": "1", "USDT 0xbad": "500", "DAI ": "4"}

	b.QueryData(context.Background())
	first := b.Assets()
	if diff := cmp.Diff(want, quantities()); diff != "" {
		t.Fatalf("first discovery mismatch (-want +got):\n%s", diff)
	}
	b.QueryData(context.Background())
	if diff := cmp.Diff(want, quantities()); diff != "" {
		t.Errorf("second discovery mismatch (-want +got):\n%s", diff)
	}
	if len(first) != 4 || len(b.Assets()) != 4 {
		t.Fatalf("got %d then %d assets, want the wallet and 3 tokens", len(first), len(b.Assets()))
	}
	for i, a := range b.Assets() {
		if a != first[i] {
			t.Errorf("asset #%d is a new instance, an unchanged wallet must keep them", i)
		}
	}

	b.DeleteAsset(first[2]) // the spam USDT
	b.QueryData(context.Background())
	if diff := cmp.Diff([]string{"ethereum", "USDT", "DAI"}, symbols(b.Assets())); diff != "" {
		t.Errorf("deleting one USDT contract mismatch (-want +got):\n%s", diff)
	}
}

func TestBundle_DeleteAsset_NotRediscovered(t *testing.T) {
	w := &fakeWallets{}
	b := newBundle(&Asset{Kind: Ethereum, Address: "0xabc"}, ethServices(w))
	w.set(Wallet{Balance: Q(1), Tokens: []TokenBalance{token("A", 1, 1), token("B", 1, 1)}})
	b.QueryData(context.Background())

	if empty := b.DeleteAsset(b.Assets()[2]); empty {
		t.Fatal("deleting a secondary must not empty the bundle")
	}
	b.QueryData(context.Background())
	if diff := cmp.Diff([]string{"ethereum", "A"}, symbols(b.Assets())); diff != "" {
		t.Errorf("deleted token came back (-want +got):\n%s", diff)
	}
}

func TestBundle_DeleteAsset_Primary(t *testing.T) {
	w := &fakeWallets{}
	b := newBundle(&Asset{Kind: Ethereum, Address: "0xabc"}, ethServices(w))
	w.set(Wallet{Balance: Q(1), Tokens: []TokenBalance{token("A", 1, 1)}})
	b.QueryData(context.Background())

	if empty := b.DeleteAsset(b.Primary()); !empty {
		t.Error("deleting the primary must empty the bundle")
	}
	if got := b.Assets(); len(got) != 0 {
		t.Errorf("Assets() = %v, want none", symbols(got))
	}
}

func TestBundle_QueryData_NoAddress(t *testing.T) {
	w := &fakeWallets{wallet: Wallet{Tokens: []TokenBalance{token("A", 1, 1)}}}
	b := newBundle(&Asset{Kind: Ethereum, Amount: Q(3)}, ethServices(w))
	b.QueryData(context.Background())

	if got := b.Assets(); len(got) != 1 {
		t.Errorf("Assets() = %v, want the primary only", symbols(got))
	}
	if v, ok := b.Primary().TotalValue(); !ok || !v.Equal(EUR(3000)) {
		t.Errorf("declared wallet value = %v, %v, want %v", v, ok, EUR(3000))
	}
}

func TestBundle_QueryData_Hints(t *testing.T) {
	tests := []struct {
		name         string
		svc          *Services
		asset        *Asset
		quantityHint string
		valueHint    string
	}{
		{
			name:         "no source",
			svc:          &Services{Currency: "EUR"},
			asset:        &Asset{Kind: Bitcoin, Address: "1A"},
			quantityHint: "no data source configured",
			valueHint:    "no data source configured",
		},
		{
			name:         "invalid address",
			svc:          &Services{Currency: "EUR", Prices: fakePrices{"BTC": EUR(1)}, Balances: fakeBalances{}},
			asset:        &Asset{Kind: Bitcoin, Address: "xpubbad"},
			quantityHint: "invalid address xpubbad",
		},
		{
			name:      "unknown price",
			svc:       &Services{Currency: "EUR", Prices: fakePrices{}, Balances: fakeBalances{"1A": Q(1)}},
			asset:     &Asset{Kind: Dash, Address: "1A"},
			valueHint: "unknown symbol DASH",
		},
		{
			name:      "no rate",
			svc:       &Services{Currency: "EUR", Prices: fakePrices{"BTC": USD(1)}, Balances: fakeBalances{"1A": Q(1)}},
			asset:     &Asset{Kind: Bitcoin, Address: "1A"},
			valueHint: "cannot convert USD to EUR",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBundle(tt.asset, tt.svc)
			b.QueryData(context.Background())
			a := b.Primary()
			if got := a.QuantityHint(); !strings.Contains(got, tt.quantityHint) || (tt.quantityHint == "") != (got == "") {
				t.Errorf("quantity hint = %q, want %q", got, tt.quantityHint)
			}
			if got := a.UnitValueHint(); !strings.Contains(got, tt.valueHint) || (tt.valueHint == "") != (got == "") {
				t.Errorf("unit value hint = %q, want %q", got, tt.valueHint)
			}
			if _, ok := a.TotalValue(); ok {
				t.Error("TotalValue() is known despite a failure")
			}
		})
	}
}

func TestBundle_QueryData_Metal(t *testing.T) {
	svc := &Services{
		Currency: "EUR",
		Metals:   fakePrices{"XAU": USD(2000)},
		Rates:    fakeRates{"USD/EUR": decimal.RequireFromString("0.5")},
	}
	a := &Asset{
		Kind:       Gold,
		Weight:     decimal.NewFromInt(1),
		WeightUnit: TroyOunce,
		Fineness:   decimal.RequireFromString("0.5"),
		Amount:     Q(2),
	}
	newBundle(a, svc).QueryData(context.Background())

	if v, ok := a.UnitValue(); !ok || !v.Equal(EUR(500)) {
		t.Errorf("UnitValue() = %v, %v, want %v", v, ok, EUR(500))
	}
	if v, ok := a.TotalValue(); !ok || !v.Equal(EUR(1000)) {
		t.Errorf("TotalValue() = %v, %v, want %v", v, ok, EUR(1000))
	}
}

func TestNewBundle_Token(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("newBundle() accepted a token as primary")
		}
	}()
	newBundle(&Asset{Kind: Token, Symbol: "A"}, &Services{})
}

func TestWeightUnit(t *testing.T) {
	tests := []struct {
		unit   WeightUnit
		weight string
		want   string
	}{
		{TroyOunce, "1", "1"},
		{Grain, "480", "1"},
		{Gram, "31.1034768", "1"},
		{Kilogram, "0.0311034768", "1"},
	}
	for _, tt := range tests {
		t.Run(string(tt.unit), func(t *testing.T) {
			got := decimal.RequireFromString(tt.weight).Mul(tt.unit.troyOunces()).Round(8)
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("%s%s = %v oz t, want %s", tt.weight, tt.unit, got, tt.want)
			}
		})
	}
}
