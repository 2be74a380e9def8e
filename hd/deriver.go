// Package hd derives pay-to-pubkey-hash addresses from BIP32 extended public
// keys.
package hd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/etnz/networth/scan"
)

// Address encoding of the supported chains. Only the pay-to-pubkey-hash prefix
// matters here.
var (
	Bitcoin     = &chaincfg.MainNetParams
	BitcoinCash = withPrefix("bitcoincash", 0x00)
	Litecoin    = withPrefix("litecoin", 0x30)
	Dash        = withPrefix("dash", 0x4c)
	Dogecoin    = withPrefix("dogecoin", 0x1e)
)

func withPrefix(name string, pubKeyHashAddrID byte) *chaincfg.Params {
	p := chaincfg.MainNetParams
	p.Name = name
	p.PubKeyHashAddrID = pubKeyHashAddrID
	return &p
}

// Deriver implements scan.Deriver for one chain.
type Deriver struct {
	Params *chaincfg.Params
}

// segwitPrefixes are extended keys of wallets whose addresses are not
// pay-to-pubkey-hash. Scanning them as such would report an empty wallet.
var segwitPrefixes = []string{"ypub", "zpub", "upub", "vpub", "Mtub"}

// DeriveNode returns the node of chain below the account key.
func (d Deriver) DeriveNode(extendedKey string, chain uint32) (scan.Node, error) {
	for _, p := range segwitPrefixes {
		if strings.HasPrefix(extendedKey, p) {
			return nil, fmt.Errorf("%s keys derive segwit addresses, which are not supported: use the wallet's address instead", p)
		}
	}
	key, err := hdkeychain.NewKeyFromString(extendedKey)
	if err != nil {
		return nil, err
	}
	if key.IsPrivate() {
		return nil, errors.New("refusing a private extended key, use the public one")
	}
	node, err := key.Derive(chain)
	if err != nil {
		return nil, fmt.Errorf("cannot derive chain %d: %w", chain, err)
	}
	return node, nil
}

// DeriveAddressRange returns the addresses of node's children first to last,
// both included.
func (d Deriver) DeriveAddressRange(node scan.Node, first, last uint32) ([]string, error) {
	key, ok := node.(*hdkeychain.ExtendedKey)
	if !ok {
		return nil, fmt.Errorf("unexpected node type %T", node)
	}
	addrs := make([]string, 0, last-first+1)
	for i := first; i <= last; i++ {
		child, err := key.Derive(i)
		if err != nil {
			return nil, fmt.Errorf("cannot derive child %d: %w", i, err)
		}
		addr, err := child.Address(d.Params)
		if err != nil {
			return nil, fmt.Errorf("cannot encode address of child %d: %w", i, err)
		}
		addrs = append(addrs, addr.EncodeAddress())
	}
	return addrs, nil
}
