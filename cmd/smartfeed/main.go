// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2016 The Decred developers
// Copyright (c) 2024 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/btcsuite/btcd/rpcclient"
	"github.com/btcsuite/smartfee/chainsync"
	"github.com/btcsuite/smartfee/database/engine"
	"github.com/btcsuite/smartfee/fees"
	"github.com/btcsuite/smartfee/fees/feedb"
	"github.com/btcsuite/smartfee/internal/limits"
	"github.com/btcsuite/smartfee/internal/log"
	"github.com/btcsuite/smartfee/internal/version"
	"github.com/btcsuite/smartfee/monitoring"
)

// loadEstimator creates the fee estimator and restores the last saved
// snapshot when there is one.
func loadEstimator(store *feedb.Store) (*fees.Estimator, error) {
	est, err := fees.NewEstimator(fees.DefaultEstimatorConfig())
	if err != nil {
		return nil, err
	}

	snap, err := store.Load()
	switch {
	case errors.Is(err, feedb.ErrNoSnapshot):
		log.SfedLog.Infof("No saved fee estimates, starting from scratch")
		return est, nil

	case err != nil:
		// A corrupt database only costs the history, which is rebuilt
		// from new blocks.
		log.SfedLog.Warnf("Unable to load saved fee estimates: %v", err)
		return est, nil
	}

	if err := est.Restore(snap); err != nil {
		log.SfedLog.Warnf("Discarding saved fee estimates: %v", err)
		return est, nil
	}
	log.SfedLog.Infof("Restored fee estimates last updated at height %d",
		snap.BestSeenHeight)
	return est, nil
}

// newRPCClient returns a client polling the configured node over HTTP POST.
func newRPCClient(cfg *config) (*rpcclient.Client, error) {
	connCfg := &rpcclient.ConnConfig{
		Host:         cfg.RPCServer,
		User:         cfg.RPCUser,
		Pass:         cfg.RPCPass,
		HTTPPostMode: true,
		DisableTLS:   cfg.NoTLS,
	}
	if !cfg.NoTLS {
		certs, err := os.ReadFile(cfg.RPCCert)
		if err != nil {
			return nil, fmt.Errorf("unable to read RPC certificate: %w",
				err)
		}
		connCfg.Certificates = certs
	}
	return rpcclient.New(connCfg, nil)
}

// smartfeedMain is the real main function for smartfeed.  It is necessary to
// work around the fact that deferred functions do not run when os.Exit() is
// called.
func smartfeedMain() error {
	// Load configuration and parse command line.  This function also
	// initializes logging and configures it accordingly.
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() {
		if log.LogRotator != nil {
			log.LogRotator.Close()
		}
	}()

	// Get a channel that will be closed when a shutdown signal has been
	// triggered from an OS signal such as SIGINT (Ctrl+C).
	interrupt := interruptListener()

	log.SfedLog.Infof("Version %s", version.String())

	db, err := engine.Open(cfg.DbType, cfg.dbPath(), false)
	if err != nil {
		log.SfedLog.Errorf("Unable to open %s database at %s: %v",
			cfg.DbType, cfg.dbPath(), err)
		return err
	}
	defer func() {
		log.SfedLog.Infof("Closing fee estimator database")
		if err := db.Close(); err != nil {
			log.SfedLog.Errorf("Unable to close database: %v", err)
		}
	}()
	store := feedb.New(db)

	est, err := loadEstimator(store)
	if err != nil {
		log.SfedLog.Errorf("Unable to create fee estimator: %v", err)
		return err
	}

	client, err := newRPCClient(cfg)
	if err != nil {
		log.SfedLog.Errorf("Unable to create RPC client: %v", err)
		return err
	}
	defer client.Shutdown()

	// Return now if an interrupt signal was triggered.
	if interruptRequested(interrupt) {
		return nil
	}

	exporter := monitoring.NewPrometheusExporter(&cfg.Prometheus)
	collector := monitoring.NewEstimatorCollector(est, cfg.ConfTargets)
	if err := exporter.Register(collector); err != nil {
		log.SfedLog.Errorf("Unable to register metrics: %v", err)
		return err
	}
	if err := exporter.Start(); err != nil {
		log.SfedLog.Errorf("Unable to start prometheus exporter: %v", err)
		return err
	}
	defer exporter.Stop()

	syncer := chainsync.New(&chainsync.Config{
		Source:       client,
		Estimator:    est,
		StateWriter:  store,
		PollInterval: cfg.PollInterval,
	})
	syncer.Start()

	<-interrupt

	syncer.Stop()

	// Transactions still in the mempool at shutdown have failed to confirm
	// within every target tracked since they were seen.
	if !cfg.NoFlush {
		n := est.FlushUnconfirmed()
		log.SfedLog.Infof("Recorded %d unconfirmed %s as failures", n,
			log.PickNoun(uint64(n), "transaction", "transactions"))
	}
	if err := store.Save(est.Snapshot()); err != nil {
		log.SfedLog.Errorf("Unable to save fee estimates: %v", err)
	}

	log.SfedLog.Infof("Shutdown complete")
	return nil
}

func main() {
	// Up some limits.
	if err := limits.SetLimits(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to set limits: %v\n", err)
		os.Exit(1)
	}

	// Work around defer not working after os.Exit()
	if err := smartfeedMain(); err != nil {
		os.Exit(1)
	}
}
