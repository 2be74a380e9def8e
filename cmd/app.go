// Package cmd implements the CLI application to value a net worth.
package cmd

import (
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/networth"
	"github.com/etnz/networth/blockchair"
	"github.com/etnz/networth/cryptocompare"
	"github.com/etnz/networth/ethplorer"
	"github.com/etnz/networth/fx"
	"github.com/etnz/networth/hd"
	"github.com/etnz/networth/metals"
	"github.com/etnz/networth/query"
	"github.com/etnz/networth/renderer"
	"github.com/google/subcommands"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&valueCmd{}, "")
	c.Register(&watchCmd{}, "")
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

const (
	ethplorer_api_key  = "ETHPLORER_API_KEY"
	blockchair_api_key = "BLOCKCHAIR_API_KEY"
)

var holdingsFile = flag.String("holdings", "holdings.yaml", "Path to the holdings file (YAML format)")
var currencyFlag = flag.String("currency", "", "Base currency of every value. Defaults to the currency of the holdings file.")
var cacheDir = flag.String("cache-dir", "", "If set, responses are also cached on disk in this folder, for the day.")
var ethplorerApiFlag = flag.String("ethplorer-api-key", "", "Ethplorer API key.\n If missing it will read for the environment variable \""+ethplorer_api_key+"\", and fall back to the free key.")
var blockchairApiFlag = flag.String("blockchair-api-key", "", "Blockchair API key.\n If missing it will read for the environment variable \""+blockchair_api_key+"\".")
var blockchairRate = flag.Int("blockchair-rate", blockchair.DefaultPerMinute, "Maximum number of requests per minute sent to Blockchair, 0 for no limit")

// Flags of the displayed groups, shared by every subcommand.
type orderingFlags struct {
	groupBy    string
	sortBy     string
	descending bool
	collapsed  bool
}

func (o *orderingFlags) SetFlags(f *flag.FlagSet) {
	f.StringVar(&o.groupBy, "group-by", "kind", "Group assets by kind, location, description or value (a single group)")
	f.StringVar(&o.sortBy, "sort-by", "value", "Sort assets and groups by kind, location, description or value")
	f.BoolVar(&o.descending, "desc", false, "Sort in descending order")
	f.BoolVar(&o.collapsed, "collapsed", false, "Only display group totals")
}

func (o *orderingFlags) ordering() (networth.FieldOrdering, error) {
	groupBy, err := networth.ParseField(o.groupBy)
	if err != nil {
		return networth.FieldOrdering{}, fmt.Errorf("invalid -group-by: %w", err)
	}
	sortBy, err := networth.ParseField(o.sortBy)
	if err != nil {
		return networth.FieldOrdering{}, fmt.Errorf("invalid -sort-by: %w", err)
	}
	return networth.FieldOrdering{GroupBy: groupBy, SortBy: sortBy, Descending: o.descending}, nil
}

// envFlag returns the flag value, or the environment variable env if the flag
// is not set.
func envFlag(value *string, env string) string {
	if *value == "" {
		*value = os.Getenv(env)
	}
	return *value
}

// DecodeHoldings decodes the app holdings file.
func DecodeHoldings() (*networth.Holdings, error) {
	f, err := os.Open(*holdingsFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	h, err := networth.DecodeHoldings(f)
	if err != nil {
		return nil, fmt.Errorf("invalid holdings file %q: %w", *holdingsFile, err)
	}
	if *currencyFlag != "" {
		h.Currency = *currencyFlag
	}
	return h, nil
}

// NewServices returns every data source of the app, sharing one cache.
func NewServices(currency string) *networth.Services {
	var client *http.Client
	if *cacheDir != "" {
		client = query.NewDailyClient(*cacheDir)
	}
	cache := query.NewCache(client)

	chair := blockchair.New(cache, envFlag(blockchairApiFlag, blockchair_api_key), *blockchairRate)
	return &networth.Services{
		Currency: currency,
		Cache:    cache,
		Prices:   cryptocompare.New(cache),
		Metals:   metals.New(cache),
		Rates:    fx.New(cache),
		Wallets:  ethplorer.New(cache, envFlag(ethplorerApiFlag, ethplorer_api_key)),
		Balances: networth.Scanners{
			networth.Bitcoin.Symbol():     chair.Chain("bitcoin", hd.Deriver{Params: hd.Bitcoin}),
			networth.Litecoin.Symbol():    chair.Chain("litecoin", hd.Deriver{Params: hd.Litecoin}),
			networth.Dash.Symbol():        chair.Chain("dash", hd.Deriver{Params: hd.Dash}),
			networth.BitcoinCash.Symbol(): chair.Chain("bitcoin-cash", hd.Deriver{Params: hd.BitcoinCash}),
			networth.Dogecoin.Symbol():    chair.Chain("dogecoin", hd.Deriver{Params: hd.Dogecoin}),
		},
	}
}

// report renders the current state of c as markdown.
func report(c *networth.Collection, currency string, o orderingFlags) string {
	if !o.collapsed {
		for _, g := range c.Grouped() {
			c.SetExpanded(g.Key, true)
		}
	}
	total, known := c.GrandTotal()
	return renderer.RenderReport(renderer.NewReport(currency, c.Grouped(), total, known))
}

// printMarkdown prints md rendered for the terminal, or as is if it cannot.
func printMarkdown(md string) {
	out, err := glamour.Render(md, "auto")
	if err != nil {
		fmt.Print(md)
		return
	}
	fmt.Print(out)
}
