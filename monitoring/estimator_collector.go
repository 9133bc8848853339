// Copyright (c) 2024 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package monitoring

import (
	"strconv"

	"github.com/btcsuite/smartfee/fees"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// bestHeight is the height of the last block processed by the
	// estimator.
	bestHeight = "smartfee_best_height"

	// firstRecordedHeight is the first block that confirmed a tracked
	// transaction since the estimator started.
	firstRecordedHeight = "smartfee_first_recorded_height"

	// trackedTxs is the number of mempool transactions currently tracked.
	trackedTxs = "smartfee_tracked_txs"

	// maxUsableTarget is the highest confirmation target the recorded
	// history supports.
	maxUsableTarget = "smartfee_max_usable_target"

	// estimate is the smart fee estimate in sat/kB per confirmation target
	// and mode.  No estimate is exported as zero.
	estimate = "smartfee_estimate_sat_per_kb"

	labelConfTarget = "conf_target"
	labelMode       = "mode"
)

// DefaultConfTargets are the confirmation targets exported by default.
var DefaultConfTargets = []int{2, 3, 6, 12, 24, 144, 504, 1008}

// EstimatorCollector exports the state and estimates of a fee estimator.
type EstimatorCollector struct {
	est     *fees.Estimator
	targets []int

	g gauges
}

// A compile-time check to ensure EstimatorCollector implements the
// prometheus.Collector interface.
var _ prometheus.Collector = (*EstimatorCollector)(nil)

// NewEstimatorCollector returns a collector for est exporting estimates for
// the given confirmation targets, or DefaultConfTargets when none are given.
func NewEstimatorCollector(est *fees.Estimator, targets []int) *EstimatorCollector {
	if len(targets) == 0 {
		targets = DefaultConfTargets
	}

	g := make(gauges)
	g.addGauge(bestHeight, "height of the last processed block", nil)
	g.addGauge(firstRecordedHeight, "first block with recorded "+
		"confirmations", nil)
	g.addGauge(trackedTxs, "number of tracked mempool transactions", nil)
	g.addGauge(maxUsableTarget, "highest confirmation target with "+
		"enough history", nil)
	g.addGauge(estimate, "smart fee estimate in sat/kB",
		[]string{labelConfTarget, labelMode})

	return &EstimatorCollector{
		est:     est,
		targets: targets,
		g:       g,
	}
}

// Describe sends the super-set of all possible descriptors of metrics
// collected by this Collector to the provided channel and returns once the
// last descriptor has been sent.
//
// NOTE: Part of the prometheus.Collector interface.
func (c *EstimatorCollector) Describe(ch chan<- *prometheus.Desc) {
	c.g.describe(ch)
}

// Collect is called by the Prometheus registry when collecting metrics.
//
// NOTE: Part of the prometheus.Collector interface.
func (c *EstimatorCollector) Collect(ch chan<- prometheus.Metric) {
	// We must reset our metrics that we collect from the estimator here
	// since targets may stop having an estimate.
	c.g.reset()

	stats := c.est.Stats()
	c.g[bestHeight].With(nil).Set(float64(stats.BestSeenHeight))
	c.g[firstRecordedHeight].With(nil).Set(
		float64(stats.FirstRecordedHeight),
	)
	c.g[trackedTxs].With(nil).Set(float64(stats.TrackedMemPoolTxs))
	c.g[maxUsableTarget].With(nil).Set(float64(stats.MaxUsableEstimate))

	for _, target := range c.targets {
		for _, conservative := range []bool{false, true} {
			mode := "economical"
			if conservative {
				mode = "conservative"
			}
			rate, _ := c.est.EstimateSmartFee(target, conservative)
			c.g[estimate].With(prometheus.Labels{
				labelConfTarget: strconv.Itoa(target),
				labelMode:       mode,
			}).Set(float64(rate))
		}
	}

	c.g.collect(ch)
}
