// Package scan discovers the balance of hierarchical-deterministic wallets.
//
// An extended public key is expanded, chain by chain, into batches of BatchSize
// consecutive addresses. Each batch is summarised in a single request, and a
// chain is considered exhausted as soon as a batch shows no transaction at all.
// Like most wallet software, it therefore assumes that funded addresses are
// never more than BatchSize apart.
package scan

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/etnz/networth/query"
	"github.com/shopspring/decimal"
)

// BatchSize is the number of addresses summarised per request, and the gap
// limit of the scan.
const BatchSize = 20

// Conventional derivation chains.
const (
	Receive uint32 = 0
	Change  uint32 = 1
)

// Node is a derived key node. It is opaque to the scanner and only handed back
// to the Deriver that produced it.
type Node any

// Deriver derives addresses from an extended public key. It must be
// deterministic.
type Deriver interface {
	DeriveNode(extendedKey string, chain uint32) (Node, error)
	DeriveAddressRange(node Node, first, last uint32) ([]string, error)
}

// Summary is the aggregate of a set of addresses.
type Summary struct {
	Balance decimal.Decimal
	TxCount int
}

// Source summarises a set of addresses in one request.
type Source interface {
	Summary(ctx context.Context, addresses []string) (Summary, error)
}

// Result of a wallet scan.
type Result struct {
	Balance decimal.Decimal
	Scanned bool // true if the key was an extended key and got scanned
}

// Scanner computes wallet balances from a Source. Rate limits are the
// Source's concern.
type Scanner struct {
	Deriver Deriver
	Source  Source
}

// Scan returns the balance of key, a plain address or an extended public key.
func (s *Scanner) Scan(ctx context.Context, key string) (Result, error) {
	if !IsExtendedKey(key) {
		sum, err := s.Source.Summary(ctx, []string{key})
		if err != nil {
			return Result{}, err
		}
		return Result{Balance: sum.Balance}, nil
	}

	chains := []uint32{Receive, Change}
	balances := make([]decimal.Decimal, len(chains))
	errs := make([]error, len(chains))
	var wg sync.WaitGroup
	for i, chain := range chains {
		wg.Add(1)
		go func() {
			defer wg.Done()
			balances[i], errs[i] = s.scanChain(ctx, key, chain)
		}()
	}
	wg.Wait()

	if err := firstQueryError(errs); err != nil {
		return Result{}, err
	}
	total := decimal.Zero
	for _, b := range balances {
		total = total.Add(b)
	}
	return Result{Balance: total, Scanned: true}, nil
}

// state of one chain scan.
type state struct {
	chain   uint32
	offset  uint32
	balance decimal.Decimal
	txCount int
}

// scanChain sums the balance of one chain, batch after batch, until a batch has
// no transaction.
func (s *Scanner) scanChain(ctx context.Context, key string, chain uint32) (decimal.Decimal, error) {
	node, err := s.Deriver.DeriveNode(key, chain)
	if err != nil {
		return decimal.Zero, &query.Error{Kind: query.InvalidKey, Msg: fmt.Sprintf("invalid extended key: %v", err), Err: err}
	}

	st := state{chain: chain, balance: decimal.Zero}
	for {
		addresses, err := s.Deriver.DeriveAddressRange(node, st.offset, st.offset+BatchSize-1)
		if err != nil {
			return decimal.Zero, &query.Error{Kind: query.InvalidKey, Msg: fmt.Sprintf("cannot derive addresses %d/%d: %v", st.chain, st.offset, err), Err: err}
		}
		sum, err := s.Source.Summary(ctx, addresses)
		if err != nil {
			return decimal.Zero, err
		}
		st.balance = st.balance.Add(sum.Balance)
		st.txCount += sum.TxCount
		if sum.TxCount == 0 {
			return st.balance, nil
		}
		st.offset += BatchSize
	}
}

// firstQueryError returns the first non nil error, preferring an invalid key
// error so that the user gets the actionable one.
func firstQueryError(errs []error) error {
	var first error
	for _, err := range errs {
		if err == nil {
			continue
		}
		if query.IsKind(err, query.InvalidKey) {
			return err
		}
		if first == nil {
			first = err
		}
	}
	return first
}

// prefixes of the extended public keys this package knows about.
var extendedKeyPrefixes = []string{
	"xpub", "ypub", "zpub", // bitcoin
	"tpub", "upub", "vpub", // bitcoin testnet
	"Ltub", "Mtub", // litecoin
	"drkp", // dash
	"dgub", // dogecoin
}

// IsExtendedKey reports whether s looks like a base58 extended public key
// rather than an address.
func IsExtendedKey(s string) bool {
	if len(s) != 111 {
		return false
	}
	for _, p := range extendedKeyPrefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
