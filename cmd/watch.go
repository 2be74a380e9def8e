package cmd

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/etnz/networth"
	"github.com/fsnotify/fsnotify"
	"github.com/google/subcommands"
)

// watchCmd holds the flags for the 'watch' subcommand.
type watchCmd struct {
	orderingFlags
	refresh time.Duration
}

func (*watchCmd) Name() string     { return "watch" }
func (*watchCmd) Synopsis() string { return "value the holdings file and keep the values up to date" }
func (*watchCmd) Usage() string {
	return `nw watch [-group-by <field>] [-sort-by <field>] [-desc] [-collapsed] [-refresh <duration>]

  Like 'value', but keeps running: every change to the holdings file is applied
  and the report printed again. Prices and balances are queried again every
  refresh period.
`
}

func (c *watchCmd) SetFlags(f *flag.FlagSet) {
	c.orderingFlags.SetFlags(f)
	f.DurationVar(&c.refresh, "refresh", 15*time.Minute, "Period between two refreshes of every value, 0 to never refresh")
}

func (c *watchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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

	// Editors often replace the file rather than writing it: watch its folder.
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating watcher: %v\n", err)
		return subcommands.ExitFailure
	}
	defer watcher.Close()
	path, err := filepath.Abs(*holdingsFile)
	if err == nil {
		err = watcher.Add(filepath.Dir(path))
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error watching %q: %v\n", *holdingsFile, err)
		return subcommands.ExitFailure
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	col := networth.NewCollection(NewServices(h.Currency), ordering)
	live := networth.Sync(col, nil, h.Assets)

	var tick <-chan time.Time
	if c.refresh > 0 {
		ticker := time.NewTicker(c.refresh)
		defer ticker.Stop()
		tick = ticker.C
	}

	// Debounce timer to apply a burst of file events once.
	debounce := time.NewTimer(time.Hour)
	debounce.Stop()
	const debounceDuration = 300 * time.Millisecond

	idle := col.Idle()
	for {
		select {
		case <-idle:
			printMarkdown(report(col, h.Currency, c.orderingFlags))
			idle = nil

		case event, ok := <-watcher.Events:
			if !ok {
				return subcommands.ExitSuccess
			}
			if filepath.Clean(event.Name) != path || !event.Has(fsnotify.Create|fsnotify.Write|fsnotify.Rename) {
				continue
			}
			debounce.Reset(debounceDuration)

		case <-debounce.C:
			next, err := DecodeHoldings()
			if err != nil {
				log.Printf("warning, holdings file ignored: %v", err)
				continue
			}
			if next.Currency != h.Currency {
				log.Printf("warning, the currency changed from %s to %s: restart to apply", h.Currency, next.Currency)
			}
			live = networth.Sync(col, live, next.Assets)
			idle = col.Idle()

		case <-tick:
			col.Refresh()
			idle = col.Idle()

		case err, ok := <-watcher.Errors:
			if !ok {
				return subcommands.ExitSuccess
			}
			log.Printf("watcher error: %v", err)

		case <-ctx.Done():
			return subcommands.ExitSuccess
		}
	}
}
