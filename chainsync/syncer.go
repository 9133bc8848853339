// Copyright (c) 2024 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainsync

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/rpcclient"
	"github.com/btcsuite/smartfee/fees"
)

// DefaultPollInterval is how often the node is polled when no interval is
// configured.
const DefaultPollInterval = 5 * time.Second

// ChainSource is the subset of the node RPC interface the syncer needs.
type ChainSource interface {
	GetBlockCount() (int64, error)
	GetBlockHash(blockHeight int64) (*chainhash.Hash, error)
	GetBlockVerbose(blockHash *chainhash.Hash) (*btcjson.GetBlockVerboseResult, error)
	GetRawMempoolVerbose() (map[string]btcjson.GetRawMempoolVerboseResult, error)
}

var _ ChainSource = (*rpcclient.Client)(nil)

// StateWriter persists estimator snapshots.
type StateWriter interface {
	Save(snap *fees.Snapshot) error
}

// Config is the configuration of a Syncer.
type Config struct {
	// Source is the node polled for blocks and mempool contents.
	Source ChainSource

	// Estimator receives the mempool and block events.
	Estimator *fees.Estimator

	// StateWriter, when set, receives a snapshot after every processed
	// block.
	StateWriter StateWriter

	// PollInterval is the delay between two polls.
	PollInterval time.Duration
}

// Syncer polls a node and feeds its mempool and blocks to an estimator.
type Syncer struct {
	started  int32
	shutdown int32

	cfg Config

	// mtx serializes polls.
	mtx         sync.Mutex
	initialized bool
	bestHeight  int64
	mempool     map[chainhash.Hash]struct{}

	quit chan struct{}
	wg   sync.WaitGroup
}

// New returns a syncer for the given configuration.
func New(cfg *Config) *Syncer {
	c := *cfg
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	return &Syncer{
		cfg:     c,
		mempool: make(map[chainhash.Hash]struct{}),
		quit:    make(chan struct{}),
	}
}

// Start begins polling the node.
func (s *Syncer) Start() {
	// Already started?
	if atomic.AddInt32(&s.started, 1) != 1 {
		return
	}
	log.Trace("Starting chain syncer")
	s.wg.Add(1)
	go s.pollHandler()
}

// Stop gracefully shuts down the syncer, waiting for an in flight poll to
// finish.
func (s *Syncer) Stop() error {
	if atomic.AddInt32(&s.shutdown, 1) != 1 {
		log.Warnf("Chain syncer is already in the process of shutting down")
		return nil
	}
	log.Infof("Chain syncer shutting down")
	close(s.quit)
	s.wg.Wait()
	return nil
}

// pollHandler polls the node until the syncer is stopped.
//
// NOTE: Must be run as a goroutine.
func (s *Syncer) pollHandler() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

out:
	for {
		if err := s.Poll(); err != nil {
			log.Errorf("Unable to poll node: %v", err)
		}

		select {
		case <-ticker.C:
		case <-s.quit:
			break out
		}
	}

	log.Trace("Chain syncer poll handler done")
}

// BestHeight returns the height of the last processed block.
func (s *Syncer) BestHeight() int64 {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.bestHeight
}

// Poll runs a single synchronization round: new blocks are processed in
// height order and the mempool is diffed against the previous round.  The
// first round only adopts the current tip since the mempool history before it
// is unknown.
//
// The mempool is fetched before the block count so that every transaction
// missing from it was either mined in a block processed by this round or
// evicted.  New entries are handed to the estimator at the height they were
// accepted at, interleaved with the blocks, so that an entry that was already
// waiting when a later block arrived is still tracked.
func (s *Syncer) Poll() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	entries, err := s.cfg.Source.GetRawMempoolVerbose()
	if err != nil {
		return err
	}
	tip, err := s.cfg.Source.GetBlockCount()
	if err != nil {
		return err
	}
	current := parseMempool(entries)

	est := s.cfg.Estimator
	var added int
	processed := false
	switch {
	case !s.initialized:
		if err := est.ProcessBlock(tip, nil); err != nil {
			log.Errorf("Unable to adopt tip %d: %v", tip, err)
		}
		s.bestHeight = tip
		s.initialized = true
		log.Infof("Fee estimation starting at height %d", tip)
		added += s.addMempoolTxs(current, tip)

	case tip < s.bestHeight:
		log.Warnf("Node tip %d is below the last processed height %d, "+
			"waiting for it to catch up", tip, s.bestHeight)

	default:
		added += s.addMempoolTxs(current, s.bestHeight)
		for height := s.bestHeight + 1; height <= tip; height++ {
			if err := s.processBlock(height, current); err != nil {
				return err
			}
			processed = true
			added += s.addMempoolTxs(current, height)
		}
	}

	if processed && s.cfg.StateWriter != nil {
		if err := s.cfg.StateWriter.Save(est.Snapshot()); err != nil {
			log.Errorf("Unable to save fee estimates: %v", err)
		}
	}

	removed := s.removeEvicted(current)
	if added > 0 || removed > 0 {
		log.Debugf("Mempool update: %d new, %d evicted, %d total", added,
			removed, len(current))
	}
	return nil
}

// processBlock fetches the block at height and feeds its transactions to the
// estimator.  Mined transactions are dropped from the known and current
// mempool sets.
//
// This function MUST be called with the syncer lock held.
func (s *Syncer) processBlock(height int64,
	current map[chainhash.Hash]btcjson.GetRawMempoolVerboseResult) error {

	hash, err := s.cfg.Source.GetBlockHash(height)
	if err != nil {
		return err
	}
	block, err := s.cfg.Source.GetBlockVerbose(hash)
	if err != nil {
		return err
	}

	txHashes := make([]chainhash.Hash, 0, len(block.Tx))
	for _, txid := range block.Tx {
		txHash, err := chainhash.NewHashFromStr(txid)
		if err != nil {
			log.Warnf("Skipping malformed txid %q in block %v: %v", txid,
				hash, err)
			continue
		}
		txHashes = append(txHashes, *txHash)
		delete(s.mempool, *txHash)
		delete(current, *txHash)
	}

	err = s.cfg.Estimator.ProcessBlock(height, txHashes)
	if err != nil {
		// Invariant violations only affect single transactions and the
		// rest of the block was still processed.
		var rerr fees.RuleError
		if !errors.As(err, &rerr) {
			return err
		}
		log.Errorf("Block %d (%v) processed with errors: %v", height,
			hash, err)
	}
	s.bestHeight = height

	log.Debugf("Processed block %d (%v) with %d transactions", height, hash,
		len(txHashes))
	return nil
}

// parseMempool keys the verbose mempool entries by transaction hash.
func parseMempool(entries map[string]btcjson.GetRawMempoolVerboseResult) map[chainhash.Hash]btcjson.GetRawMempoolVerboseResult {
	current := make(map[chainhash.Hash]btcjson.GetRawMempoolVerboseResult,
		len(entries))
	for txid, entry := range entries {
		txHash, err := chainhash.NewHashFromStr(txid)
		if err != nil {
			log.Warnf("Skipping malformed mempool txid %q: %v", txid, err)
			continue
		}
		current[*txHash] = entry
	}
	return current
}

// addMempoolTxs adds the unknown mempool entries that were accepted at the
// given height to the estimator and returns how many were added.
//
// This function MUST be called with the syncer lock held.
func (s *Syncer) addMempoolTxs(current map[chainhash.Hash]btcjson.GetRawMempoolVerboseResult,
	height int64) int {

	var added int
	for txHash, entry := range current {
		if entry.Height != height {
			continue
		}
		if _, ok := s.mempool[txHash]; ok {
			continue
		}
		s.mempool[txHash] = struct{}{}

		fee, err := btcutil.NewAmount(entry.Fee)
		if err != nil {
			log.Warnf("Skipping mempool tx %v with invalid fee %v: %v",
				txHash, entry.Fee, err)
			continue
		}
		size := int64(entry.Vsize)
		if size <= 0 {
			size = int64(entry.Size)
		}

		// Transactions depending on other unconfirmed transactions are
		// mined according to the fee rate of the whole package.
		s.cfg.Estimator.AddMemPoolTransaction(&fees.MemPoolTx{
			Hash:   txHash,
			Height: entry.Height,
			Fee:    fee,
			Size:   size,
		}, len(entry.Depends) == 0)
		added++
	}
	return added
}

// removeEvicted removes the known transactions that left the mempool without
// being mined from the estimator and makes the current mempool the known one.
// It returns how many tracked transactions were removed.
//
// This function MUST be called with the syncer lock held.
func (s *Syncer) removeEvicted(current map[chainhash.Hash]btcjson.GetRawMempoolVerboseResult) int {
	est := s.cfg.Estimator
	var removed int
	for txHash := range s.mempool {
		if _, ok := current[txHash]; ok {
			continue
		}
		txHash := txHash
		ok, err := est.RemoveMemPoolTransaction(&txHash)
		if err != nil {
			log.Errorf("Unable to remove evicted tx %v: %v", txHash, err)
			continue
		}
		if ok {
			removed++
		}
	}

	// Entries accepted at heights the estimator never saw are remembered
	// too so they are not offered again.
	s.mempool = make(map[chainhash.Hash]struct{}, len(current))
	for txHash := range current {
		s.mempool[txHash] = struct{}{}
	}
	return removed
}
