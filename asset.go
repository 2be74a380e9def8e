package networth

import (
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// Asset is a holding whose quantity and unit value are derived from third
// party services.
//
// Identity fields are set at creation and never change. Derived fields are
// written by the asset's bundle and read through the accessors, which are safe
// for concurrent use.
type Asset struct {
	Kind        Kind
	Location    string
	Description string

	Address  string // wallets: an address or an extended public key
	Symbol   string // tokens: the token symbol
	Contract string // tokens: the contract address, with Symbol stable across discoveries

	// Metals: the weight of one item and its fineness in ]0, 1].
	Weight     decimal.Decimal
	WeightUnit WeightUnit
	Fineness   decimal.Decimal

	// Amount is the quantity declared by the user, for kinds that cannot query
	// it: metals, and wallets without address.
	Amount Quantity

	mu            sync.RWMutex
	quantity      *Quantity
	unitValue     *Money
	quantityHint  string
	unitValueHint string
}

// Quantity returns the quantity held, false if unknown yet.
func (a *Asset) Quantity() (Quantity, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.quantity == nil {
		return Quantity{}, false
	}
	return *a.quantity, true
}

// UnitValue returns the value of one unit in the base currency, false if
// unknown yet.
func (a *Asset) UnitValue() (Money, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.unitValue == nil {
		return Money{}, false
	}
	return *a.unitValue, true
}

// TotalValue returns quantity times unit value, false if either is unknown.
func (a *Asset) TotalValue() (Money, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.quantity == nil || a.unitValue == nil {
		return Money{}, false
	}
	return a.unitValue.Mul(*a.quantity), true
}

// QuantityHint explains why the quantity is unknown, or "".
func (a *Asset) QuantityHint() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.quantityHint
}

// UnitValueHint explains why the unit value is unknown, or "".
func (a *Asset) UnitValueHint() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.unitValueHint
}

// Hint returns every hint of the asset in one line.
func (a *Asset) Hint() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var hints []string
	for _, h := range []string{a.quantityHint, a.unitValueHint} {
		if h != "" && !containsString(hints, h) {
			hints = append(hints, h)
		}
	}
	return strings.Join(hints, "; ")
}

func containsString(list []string, s string) bool {
	for _, e := range list {
		if e == s {
			return true
		}
	}
	return false
}

func (a *Asset) setQuantity(q Quantity, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		a.quantity = nil
		a.quantityHint = err.Error()
		return
	}
	a.quantity = &q
	a.quantityHint = ""
}

func (a *Asset) setUnitValue(m Money, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		a.unitValue = nil
		a.unitValueHint = err.Error()
		return
	}
	a.unitValue = &m
	a.unitValueHint = ""
}

// tokenKey identifies a token within a wallet. Many contracts share a symbol.
func tokenKey(symbol, contract string) string {
	return symbol + "@" + strings.ToLower(contract)
}

// Name returns a short human readable name of the asset.
func (a *Asset) Name() string {
	name := string(a.Kind)
	if a.Kind == Token {
		name = a.Symbol
	}
	if a.Description != "" {
		name += " " + a.Description
	}
	return name
}

// Identity returns a string that changes whenever an identity field changes.
func (a *Asset) Identity() string {
	return fmt.Sprintf("%s|%s|%s|%s|%s|%s|%s|%s|%s|%s",
		a.Kind, a.Location, a.Description, a.Address, a.Symbol, a.Contract,
		a.Weight, a.WeightUnit, a.Fineness, a.Amount)
}
