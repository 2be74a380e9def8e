package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/etnz/networth/cmd"
	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

var fields = predict.Set{"kind", "location", "description", "value"}

// completion describes the command line for shell completion.
func completion() *complete.Command {
	ordering := map[string]complete.Predictor{
		"group-by":  fields,
		"sort-by":   fields,
		"desc":      predict.Nothing,
		"collapsed": predict.Nothing,
	}
	value := &complete.Command{Flags: map[string]complete.Predictor{"timeout": predict.Something}}
	watch := &complete.Command{Flags: map[string]complete.Predictor{"refresh": predict.Something}}
	for name, p := range ordering {
		value.Flags[name] = p
		watch.Flags[name] = p
	}
	return &complete.Command{
		Sub: map[string]*complete.Command{
			"value": value,
			"watch": watch,
			"help":  {},
		},
		Flags: map[string]complete.Predictor{
			"holdings":           predict.Files("*.yaml"),
			"currency":           predict.Set{"EUR", "USD", "CHF", "GBP", "JPY"},
			"cache-dir":          predict.Dirs("*"),
			"ethplorer-api-key":  predict.Something,
			"blockchair-api-key": predict.Something,
			"blockchair-rate":    predict.Something,
		},
	}
}

func main() {
	// Exits when invoked by the shell for completion.
	completion().Complete("nw")

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	cmd.Register(commander)

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
