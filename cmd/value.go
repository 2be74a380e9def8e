package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/etnz/networth"
	"github.com/google/subcommands"
)

// valueCmd holds the flags for the 'value' subcommand.
type valueCmd struct {
	orderingFlags
	timeout time.Duration
}

func (*valueCmd) Name() string     { return "value" }
func (*valueCmd) Synopsis() string { return "value every asset of the holdings file" }
func (*valueCmd) Usage() string {
	return `nw value [-group-by <field>] [-sort-by <field>] [-desc] [-collapsed] [-timeout <duration>]

  Queries the quantity and price of every asset declared in the holdings file,
  and displays them grouped, with their total value.
`
}

func (c *valueCmd) SetFlags(f *flag.FlagSet) {
	c.orderingFlags.SetFlags(f)
	f.DurationVar(&c.timeout, "timeout", 5*time.Minute, "Maximum time to wait for every value, unknown values are displayed as is")
}

func (c *valueCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ordering, err := c.ordering()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	h, err := DecodeHoldings()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading holdings: %v\n", err)
		return subcommands.ExitFailure
	}

	col := networth.NewCollection(NewServices(h.Currency), ordering)
	col.Add(h.Assets...)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := col.Wait(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: some values are still unknown: %v\n", err)
	}

	printMarkdown(report(col, h.Currency, c.orderingFlags))
	return subcommands.ExitSuccess
}
