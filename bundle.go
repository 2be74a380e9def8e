package networth

import (
	"context"
	"fmt"
	"log"
	"sync"
)

// Bundle pairs an asset declared by the user, the primary, with the secondary
// assets discovered at the primary's address, like the tokens held by an
// Ethereum wallet.
type Bundle struct {
	svc  *Services
	kind kind // resolved once from primary.Kind

	primary *Asset

	mu          sync.Mutex
	secondaries []*Asset
	deleted     map[string]bool // token keys of secondaries deleted by the user
	gone        bool            // the primary has been deleted
}

// newBundle returns the bundle of a primary asset. It panics if a's kind cannot
// be a primary.
func newBundle(a *Asset, svc *Services) *Bundle {
	k, ok := kinds[a.Kind]
	if !ok {
		panic(fmt.Sprintf("unknown asset kind %q", a.Kind))
	}
	if a.Kind == Token {
		panic("a token is discovered, it cannot be a primary asset")
	}
	return &Bundle{svc: svc, kind: k, primary: a, deleted: make(map[string]bool)}
}

// Primary returns the asset declared by the user.
func (b *Bundle) Primary() *Asset { return b.primary }

// Assets returns the primary followed by the secondaries. It is empty once the
// primary has been deleted.
func (b *Bundle) Assets() []*Asset {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.gone {
		return nil
	}
	assets := make([]*Asset, 0, 1+len(b.secondaries))
	assets = append(assets, b.primary)
	return append(assets, b.secondaries...)
}

// contains reports whether a is one of the bundle's assets.
func (b *Bundle) contains(a *Asset) bool {
	for _, x := range b.Assets() {
		if x == a {
			return true
		}
	}
	return false
}

// DeleteAsset removes a from the bundle and reports whether the bundle is now
// empty, which happens when a is the primary. A deleted secondary is never
// discovered again.
func (b *Bundle) DeleteAsset(a *Asset) (empty bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if a == b.primary {
		b.gone = true
		b.secondaries = nil
		return true
	}
	for i, s := range b.secondaries {
		if s == a {
			b.secondaries = append(b.secondaries[:i:i], b.secondaries[i+1:]...)
			b.deleted[tokenKey(a.Symbol, a.Contract)] = true
			break
		}
	}
	return b.gone
}

// QueryData queries the primary's unit value and quantity, then discovers the
// secondaries. Failures are never returned: they become hints on the assets
// concerned.
func (b *Bundle) QueryData(ctx context.Context) {
	a := b.primary

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.setUnitValue(b.kind.unitValue(ctx, b.svc, b.kind.symbol, a))
	}()
	if b.kind.quantity != nil && a.Address != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.setQuantity(b.kind.quantity(ctx, b.svc, b.kind.symbol, a))
		}()
	} else {
		a.setQuantity(a.Amount, nil)
	}
	wg.Wait()

	if b.kind.discover == nil {
		return
	}
	if a.Address == "" {
		b.mu.Lock()
		b.secondaries = nil
		b.mu.Unlock()
		return
	}

	found, err := b.kind.discover(ctx, b.svc, a)
	if err != nil {
		log.Printf("warning: cannot discover the tokens of %s: %v", a.Name(), err)
		b.mu.Lock()
		defer b.mu.Unlock()
		for _, s := range b.secondaries {
			s.setQuantity(Quantity{}, err)
		}
		return
	}

	// Values are resolved before splicing so that the lock is never held
	// during a query. A token reported twice is one holding: balances add up.
	type value struct {
		balance TokenBalance
		price   Money
		err     error
	}
	var keys []string
	values := make(map[string]*value, len(found))
	for _, t := range found {
		if t.Symbol == "" || !t.Balance.IsPositive() {
			continue
		}
		k := tokenKey(t.Symbol, t.Contract)
		if v, ok := values[k]; ok {
			v.balance.Balance = v.balance.Balance.Add(t.Balance)
			continue
		}
		v := &value{balance: t}
		if t.Price == nil {
			v.err = fmt.Errorf("no price known for %s", t.Symbol)
		} else {
			v.price, v.err = b.svc.convert(ctx, *t.Price)
		}
		keys = append(keys, k)
		values[k] = v
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.gone {
		return
	}

	spliced := make([]*Asset, 0, len(keys))
	for _, s := range b.secondaries {
		k := tokenKey(s.Symbol, s.Contract)
		v, ok := values[k]
		if !ok {
			continue
		}
		delete(values, k)
		s.setQuantity(v.balance.Balance, nil)
		s.setUnitValue(v.price, v.err)
		spliced = append(spliced, s)
	}
	for _, k := range keys {
		v, ok := values[k]
		if !ok || b.deleted[k] {
			continue
		}
		s := &Asset{
			Kind:        Token,
			Location:    a.Location,
			Description: v.balance.Name,
			Address:     a.Address,
			Symbol:      v.balance.Symbol,
			Contract:    v.balance.Contract,
		}
		s.setQuantity(v.balance.Balance, nil)
		s.setUnitValue(v.price, v.err)
		spliced = append(spliced, s)
	}
	b.secondaries = spliced
}
