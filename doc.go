// Package networth values a collection of assets, precious-metal holdings and
// crypto-currency wallets, from third-party price and balance services.
//
// The core functionalities include:
//   - Assets: a closed set of kinds, each resolved to the queries that value it.
//   - Bundles: a wallet declared by the user together with the tokens discovered
//     on it, queried as a whole.
//   - Collections: the set of bundles, updated one cycle at a time, whose
//     display groups are rebuilt as query results arrive.
//   - Holdings: decoding of the YAML file the user declares assets in.
//
// This package serves as the foundational logic for the `nw` command-line
// tool. Network access goes through the query package, which deduplicates and
// memoizes every request.
package networth
