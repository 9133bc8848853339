// Copyright (c) 2024 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Tool feesim feeds a synthetic fee market to a fee estimator and prints the
// resulting estimates.  Transactions arrive with log-normally distributed fee
// rates and every block includes the best paying ones up to its capacity.
package main

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sort"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/smartfee/database/engine"
	_ "github.com/btcsuite/smartfee/database/engine/leveldb"
	_ "github.com/btcsuite/smartfee/database/engine/pebbledb"
	"github.com/btcsuite/smartfee/fees"
	"github.com/btcsuite/smartfee/fees/feedb"
	flags "github.com/jessevdk/go-flags"
)

const txSize = 250

type config struct {
	Blocks     int     `short:"n" long:"blocks" description:"Number of blocks to simulate"`
	Arrivals   int     `long:"arrivals" description:"Average number of transactions entering the mempool per block"`
	Capacity   int     `long:"capacity" description:"Number of transactions included per block"`
	MedianRate float64 `long:"medianrate" description:"Median fee rate of new transactions in sat/kB"`
	Sigma      float64 `long:"sigma" description:"Standard deviation of the log of the fee rates"`
	Seed       int64   `long:"seed" description:"Random seed"`
	Targets    []int   `short:"t" long:"target" description:"Confirmation target to print; may be repeated"`
	SaveDB     string  `long:"savedb" description:"Save the final estimator state into this database"`
	DbType     string  `long:"dbtype" description:"Database backend used with --savedb"`
}

type simTx struct {
	hash chainhash.Hash
	rate fees.FeeRate
}

type simulator struct {
	cfg     *config
	rng     *rand.Rand
	est     *fees.Estimator
	mempool []simTx
	nextTx  uint64
}

func (s *simulator) newTx(height int64) {
	var h chainhash.Hash
	binary.LittleEndian.PutUint64(h[:], s.nextTx)
	s.nextTx++

	rate := s.cfg.MedianRate * math.Exp(s.rng.NormFloat64()*s.cfg.Sigma)
	fee := btcutil.Amount(rate * txSize / 1000)
	tx := &fees.MemPoolTx{Hash: h, Height: height, Fee: fee, Size: txSize}
	s.est.AddMemPoolTransaction(tx, true)
	s.mempool = append(s.mempool, simTx{hash: h, rate: fees.NewFeeRate(fee, txSize)})
}

// mineBlock includes the best paying transactions in a new block.
func (s *simulator) mineBlock(height int64) error {
	sort.Slice(s.mempool, func(i, j int) bool {
		return s.mempool[i].rate > s.mempool[j].rate
	})
	n := min(len(s.mempool), s.cfg.Capacity)
	hashes := make([]chainhash.Hash, 0, n)
	for _, tx := range s.mempool[:n] {
		hashes = append(hashes, tx.hash)
	}
	s.mempool = append(s.mempool[:0], s.mempool[n:]...)
	return s.est.ProcessBlock(height, hashes)
}

func (s *simulator) run() error {
	for i := 0; i < s.cfg.Blocks; i++ {
		height := s.est.BestSeenHeight()
		// Poisson arrivals approximated by a uniform spread around the mean.
		arrivals := s.rng.Intn(2*s.cfg.Arrivals + 1)
		for j := 0; j < arrivals; j++ {
			s.newTx(height)
		}
		if err := s.mineBlock(height + 1); err != nil {
			return err
		}
	}
	return nil
}

func (s *simulator) report() {
	stats := s.est.Stats()
	fmt.Printf("height %d, %d transactions left in the mempool, max usable "+
		"target %d\n\n", stats.BestSeenHeight, stats.TrackedMemPoolTxs,
		stats.MaxUsableEstimate)
	fmt.Printf("%7s %14s %8s %14s %8s  %s\n", "target", "economical",
		"blocks", "conservative", "blocks", "reason")
	for _, target := range s.cfg.Targets {
		econ, econCalc := s.est.EstimateSmartFee(target, false)
		cons, consCalc := s.est.EstimateSmartFee(target, true)
		fmt.Printf("%7d %14v %8d %14v %8d  %s\n", target, econ,
			econCalc.ReturnedTarget, cons, consCalc.ReturnedTarget,
			consCalc.Reason)
	}
}

func saveState(cfg *config, est *fees.Estimator) error {
	db, err := engine.Open(cfg.DbType, cfg.SaveDB, false)
	if err != nil {
		return err
	}
	defer db.Close()
	return feedb.New(db).Save(est.Snapshot())
}

func main() {
	cfg := config{
		Blocks:     500,
		Arrivals:   300,
		Capacity:   250,
		MedianRate: 10000,
		Sigma:      1,
		Seed:       1,
		DbType:     "leveldb",
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
	if len(cfg.Targets) == 0 {
		cfg.Targets = []int{1, 2, 3, 6, 12, 24, 48, 144, 504, 1008}
	}
	if cfg.Blocks < 0 || cfg.Arrivals < 0 || cfg.Capacity < 0 ||
		cfg.MedianRate <= 0 || cfg.Sigma < 0 {

		fmt.Fprintln(os.Stderr, "negative simulation parameters are not "+
			"allowed")
		os.Exit(1)
	}

	est, err := fees.NewEstimator(fees.DefaultEstimatorConfig())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	sim := &simulator{
		cfg: &cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
		est: est,
	}
	if err := sim.run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	sim.report()

	if cfg.SaveDB != "" {
		if err := saveState(&cfg, est); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
}
