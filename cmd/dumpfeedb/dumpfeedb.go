// Copyright (c) 2018-2020 The Decred developers
// Copyright (c) 2024 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Tool dumpfeedb can be used to dump the internal state of the buckets of an
// estimator's feedb so that it can be externally analyzed.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/smartfee/database/engine"
	_ "github.com/btcsuite/smartfee/database/engine/leveldb"
	_ "github.com/btcsuite/smartfee/database/engine/pebbledb"
	"github.com/btcsuite/smartfee/fees"
	"github.com/btcsuite/smartfee/fees/feedb"
	"github.com/davecgh/go-spew/spew"
	flags "github.com/jessevdk/go-flags"
)

type config struct {
	DB        string  `short:"b" long:"db" description:"Path to fee database"`
	DbType    string  `long:"dbtype" description:"Database backend of the fee database"`
	Horizon   string  `long:"horizon" description:"Only dump or query the given horizon {short, medium, long}"`
	Raw       bool    `long:"raw" description:"Dump the stored snapshot as is instead of the bucket tables"`
	Target    int     `short:"t" long:"target" description:"Query the raw estimate of every horizon for this confirmation target instead of dumping the buckets"`
	Threshold float64 `long:"threshold" description:"Success threshold of --target queries, in (0, 1]"`
}

// selectHorizons returns the horizons named by the config, or all of them.
func selectHorizons(cfg *config) ([]fees.Horizon, error) {
	if cfg.Horizon == "" {
		return []fees.Horizon{fees.ShortHorizon, fees.MediumHorizon,
			fees.LongHorizon}, nil
	}
	h, err := fees.ParseHorizon(cfg.Horizon)
	if err != nil {
		return nil, err
	}
	return []fees.Horizon{h}, nil
}

// writeBuckets writes the bucket table of every horizon.
func writeBuckets(w io.Writer, est *fees.Estimator, horizons []fees.Horizon) error {
	stats := est.Stats()
	fmt.Fprintf(w, "Best seen height: %d\n", stats.BestSeenHeight)
	fmt.Fprintf(w, "Historical range: %d - %d\n", stats.HistoricalFirst,
		stats.HistoricalBest)
	for _, h := range horizons {
		table, err := est.DumpBuckets(h)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "\n%s horizon\n%s\n", h, table)
	}
	return nil
}

// writeRawFees writes the raw estimate of every horizon for a target and
// success threshold together with the passing and failing ranges it was
// derived from.  Horizons that do not track the target are reported as such.
func writeRawFees(w io.Writer, est *fees.Estimator, horizons []fees.Horizon,
	target int, threshold float64) error {

	if threshold <= 0 || threshold > 1 {
		return fmt.Errorf("threshold %v is not in (0, 1]", threshold)
	}

	fmt.Fprintf(w, "Raw estimates for target %d at %.0f%% success\n", target,
		100*threshold)
	for _, h := range horizons {
		highest, err := est.HighestTargetTracked(h)
		if err != nil {
			return err
		}
		if target < 1 || target > highest {
			fmt.Fprintf(w, "%s: target not tracked (1 - %d)\n", h, highest)
			continue
		}

		rate, result, err := est.EstimateRawFee(target, threshold, h)
		if err != nil {
			return err
		}
		if rate < 0 {
			fmt.Fprintf(w, "%s: no estimate\n", h)
		} else {
			fmt.Fprintf(w, "%s: %v\n", h, rate)
		}
		fmt.Fprintf(w, "  decay %g scale %d\n", result.Decay, result.Scale)
		fmt.Fprintf(w, "  pass %v\n", result.Pass)
		fmt.Fprintf(w, "  fail %v\n", result.Fail)
	}
	return nil
}

func dump(w io.Writer, cfg *config) error {
	horizons, err := selectHorizons(cfg)
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfg.DB); err != nil {
		return err
	}
	db, err := engine.Open(cfg.DbType, cfg.DB, false)
	if err != nil {
		return err
	}
	defer db.Close()

	snap, err := feedb.New(db).Load()
	if err != nil {
		return err
	}

	if cfg.Raw {
		spew.Fdump(w, snap)
		return nil
	}

	est, err := fees.NewEstimator(fees.DefaultEstimatorConfig())
	if err != nil {
		return err
	}
	if err := est.Restore(snap); err != nil {
		return fmt.Errorf("%w (use --raw to dump it anyway)", err)
	}

	if cfg.Target != 0 {
		return writeRawFees(w, est, horizons, cfg.Target, cfg.Threshold)
	}
	return writeBuckets(w, est, horizons)
}

func main() {
	cfg := config{
		DB: filepath.Join(btcutil.AppDataDir("smartfeed", false), "data",
			"feesdb_leveldb"),
		DbType:    "leveldb",
		Threshold: 0.95,
	}

	parser := flags.NewParser(&cfg, flags.Default)
	_, err := parser.Parse()
	if err != nil {
		var e *flags.Error
		if !errors.As(err, &e) || e.Type != flags.ErrHelp {
			parser.WriteHelp(os.Stderr)
		}
		return
	}

	if err := dump(os.Stdout, &cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
