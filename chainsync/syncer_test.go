// Copyright (c) 2024 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainsync

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/smartfee/fees"
	"github.com/stretchr/testify/require"
)

// fakeChain is an in memory ChainSource.
type fakeChain struct {
	mtx     sync.Mutex
	blocks  [][]string
	mempool map[string]btcjson.GetRawMempoolVerboseResult
	failAt  string
}

func newFakeChain(tip int64) *fakeChain {
	return &fakeChain{
		blocks:  make([][]string, tip+1),
		mempool: make(map[string]btcjson.GetRawMempoolVerboseResult),
	}
}

func blockHash(height int64) *chainhash.Hash {
	var h chainhash.Hash
	h[0], h[1] = byte(height), byte(height>>8)
	h[31] = 0xbb
	return &h
}

func txid(n int) string {
	var h chainhash.Hash
	h[0], h[1] = byte(n), byte(n>>8)
	return h.String()
}

func (c *fakeChain) tip() int64 {
	return int64(len(c.blocks) - 1)
}

// accept adds a transaction paying rate sat/kB to the mempool.
func (c *fakeChain) accept(n int, rate float64, depends ...string) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.mempool[txid(n)] = btcjson.GetRawMempoolVerboseResult{
		Vsize:   250,
		Fee:     rate * 250 / 1000 / 1e8,
		Height:  c.tip(),
		Depends: depends,
	}
}

// mine connects a block confirming the given mempool transactions.
func (c *fakeChain) mine(ns ...int) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	var txs []string
	for _, n := range ns {
		txs = append(txs, txid(n))
		delete(c.mempool, txid(n))
	}
	c.blocks = append(c.blocks, txs)
}

// evict drops a transaction from the mempool without mining it.
func (c *fakeChain) evict(n int) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	delete(c.mempool, txid(n))
}

func (c *fakeChain) GetBlockCount() (int64, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.failAt == "count" {
		return 0, errors.New("count unavailable")
	}
	return c.tip(), nil
}

func (c *fakeChain) GetBlockHash(height int64) (*chainhash.Hash, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if height > c.tip() {
		return nil, fmt.Errorf("no block at height %d", height)
	}
	return blockHash(height), nil
}

func (c *fakeChain) GetBlockVerbose(hash *chainhash.Hash) (*btcjson.GetBlockVerboseResult, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	for height := range c.blocks {
		if *blockHash(int64(height)) == *hash {
			return &btcjson.GetBlockVerboseResult{
				Hash:   hash.String(),
				Height: int64(height),
				Tx:     c.blocks[height],
			}, nil
		}
	}
	return nil, fmt.Errorf("unknown block %v", hash)
}

func (c *fakeChain) GetRawMempoolVerbose() (map[string]btcjson.GetRawMempoolVerboseResult, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	res := make(map[string]btcjson.GetRawMempoolVerboseResult, len(c.mempool))
	for k, v := range c.mempool {
		res[k] = v
	}
	return res, nil
}

// memWriter records saved snapshots.
type memWriter struct {
	saved []*fees.Snapshot
}

func (w *memWriter) Save(snap *fees.Snapshot) error {
	w.saved = append(w.saved, snap)
	return nil
}

func hashOf(t *testing.T, n int) *chainhash.Hash {
	t.Helper()
	h, err := chainhash.NewHashFromStr(txid(n))
	require.NoError(t, err)
	return h
}

func newTestSyncer(t *testing.T, chain *fakeChain) (*Syncer, *fees.Estimator, *memWriter) {
	t.Helper()
	est, err := fees.NewEstimator(fees.DefaultEstimatorConfig())
	require.NoError(t, err)
	w := &memWriter{}
	s := New(&Config{
		Source:       chain,
		Estimator:    est,
		StateWriter:  w,
		PollInterval: time.Millisecond,
	})
	return s, est, w
}

func TestSyncerFirstPollAdoptsTip(t *testing.T) {
	chain := newFakeChain(100)
	chain.accept(1, 5000)
	s, est, w := newTestSyncer(t, chain)

	require.NoError(t, s.Poll())
	require.Equal(t, int64(100), s.BestHeight())
	require.Equal(t, int64(100), est.BestSeenHeight())
	require.Empty(t, w.saved)

	// The mempool entry was accepted at the tip and is tracked.
	require.True(t, est.IsTracked(hashOf(t, 1)))
}

func TestSyncerBlocksAndEvictions(t *testing.T) {
	chain := newFakeChain(10)
	s, est, w := newTestSyncer(t, chain)
	require.NoError(t, s.Poll())

	chain.accept(1, 5000)
	chain.accept(2, 3000)
	chain.accept(3, 8000, txid(1))
	require.NoError(t, s.Poll())
	require.True(t, est.IsTracked(hashOf(t, 1)))
	require.True(t, est.IsTracked(hashOf(t, 2)))

	// Transactions with unconfirmed parents are not tracked.
	require.False(t, est.IsTracked(hashOf(t, 3)))

	chain.mine(1)
	chain.mine()
	chain.evict(2)
	require.NoError(t, s.Poll())
	require.Equal(t, int64(12), s.BestHeight())
	require.Equal(t, int64(12), est.BestSeenHeight())
	require.False(t, est.IsTracked(hashOf(t, 1)))
	require.False(t, est.IsTracked(hashOf(t, 2)))
	require.Len(t, w.saved, 1)
	require.Equal(t, int64(11), est.Stats().FirstRecordedHeight)

	// Nothing new means nothing to save.
	require.NoError(t, s.Poll())
	require.Len(t, w.saved, 1)
}

func TestSyncerMempoolAcrossBlocks(t *testing.T) {
	tests := []struct {
		name      string
		run       func(chain *fakeChain)
		tracked   []int
		untracked []int
	}{{
		name: "accepted before the block",
		run: func(chain *fakeChain) {
			chain.accept(1, 5000)
			chain.mine()
		},
		tracked: []int{1},
	}, {
		name: "accepted after the block",
		run: func(chain *fakeChain) {
			chain.mine()
			chain.accept(1, 5000)
		},
		tracked: []int{1},
	}, {
		name: "accepted between blocks",
		run: func(chain *fakeChain) {
			chain.accept(1, 5000)
			chain.mine()
			chain.accept(2, 6000)
			chain.mine()
			chain.accept(3, 7000)
		},
		tracked: []int{1, 2, 3},
	}, {
		name: "mined in the same round",
		run: func(chain *fakeChain) {
			chain.accept(1, 5000)
			chain.accept(2, 6000)
			chain.mine(2)
		},
		tracked:   []int{1},
		untracked: []int{2},
	}}

	for _, test := range tests {
		chain := newFakeChain(10)
		s, est, _ := newTestSyncer(t, chain)
		require.NoError(t, s.Poll(), test.name)

		test.run(chain)
		require.NoError(t, s.Poll(), test.name)
		require.Equal(t, chain.tip(), est.BestSeenHeight(), test.name)
		for _, n := range test.tracked {
			require.True(t, est.IsTracked(hashOf(t, n)), "%s: tx %d",
				test.name, n)
		}
		for _, n := range test.untracked {
			require.False(t, est.IsTracked(hashOf(t, n)), "%s: tx %d",
				test.name, n)
		}
	}

	// A transaction waiting through a block is recorded when it is finally
	// mined.
	chain := newFakeChain(10)
	s, est, _ := newTestSyncer(t, chain)
	require.NoError(t, s.Poll())
	chain.accept(1, 5000)
	chain.mine()
	require.NoError(t, s.Poll())
	chain.mine(1)
	require.NoError(t, s.Poll())
	require.False(t, est.IsTracked(hashOf(t, 1)))
	require.Equal(t, int64(12), est.Stats().FirstRecordedHeight)
}

func TestSyncerSourceError(t *testing.T) {
	chain := newFakeChain(10)
	chain.failAt = "count"
	s, est, _ := newTestSyncer(t, chain)

	require.Error(t, s.Poll())
	require.Zero(t, est.BestSeenHeight())
}

func TestSyncerStartStop(t *testing.T) {
	chain := newFakeChain(10)
	s, est, _ := newTestSyncer(t, chain)

	s.Start()
	s.Start()
	require.Eventually(t, func() bool {
		return est.BestSeenHeight() == 10
	}, time.Second, time.Millisecond)

	chain.mine()
	require.Eventually(t, func() bool {
		return est.BestSeenHeight() == 11
	}, time.Second, time.Millisecond)

	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop())
}
