package main

import (
	"flag"
	"fmt"
	"os"

	"phpcore/pkg/config"
	"phpcore/pkg/dump"
)

var (
	configFile = flag.String("config", "", "YAML runtime config (defaults apply when empty)")
	producers  = flag.Int("producers", 4, "Number of producing contexts")
	consumers  = flag.Int("consumers", 2, "Number of consuming contexts")
	items      = flag.Int("items", 1000, "Values sent by each producer")
	capacity   = flag.Int("capacity", -1, "Channel capacity (-1 uses channel.default_capacity)")
	verbose    = flag.Bool("v", false, "Verbose output (debug logging)")
	dumpMode   = flag.String("dump", "", "Dump a sample of the store: print_r, var_dump or zval")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "phpcore - value and concurrency substrate workload driver\n\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -producers 8 -items 500       # Larger run\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -config runtime.yaml -v        # Custom limits, debug logs\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -dump var_dump -items 3        # Show what was stored\n", os.Args[0])
	}
	flag.Parse()

	cfg := config.Default()
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
	if *verbose {
		cfg.Log.Level = "debug"
	}
	cfg.ApplyMemoryLimit()
	log := cfg.NewLogger(os.Stderr)

	w := Workload{
		Producers:   *producers,
		Consumers:   *consumers,
		Items:       *items,
		Capacity:    *capacity,
		TrackOwners: cfg.Diagnostics.TrackOwners,
	}
	if w.Capacity < 0 {
		w.Capacity = cfg.Channel.DefaultCapacity
	}

	rep, err := w.Run(log)
	if err != nil {
		log.Errorf("workload failed: %v", err)
		os.Exit(1)
	}

	if err := dump.Table(os.Stdout, dump.Row{Key: "metric", Value: "value"}, rep.Rows()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *dumpMode != "" {
		out, err := rep.Dump(*dumpMode)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Print(out)
	}
	rep.Release()
}
