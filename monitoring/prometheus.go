// Copyright (c) 2024 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package monitoring

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// gauges is a map type to store gauge vectors by name.
type gauges map[string]*prometheus.GaugeVec

// addGauge adds a new gauge vector to the map.
func (g gauges) addGauge(name, help string, labels []string) {
	g[name] = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: name,
			Help: help,
		},
		labels,
	)
}

// describe describes all gauges contained in the map to the given channel.
func (g gauges) describe(ch chan<- *prometheus.Desc) {
	for _, gauge := range g {
		gauge.Describe(ch)
	}
}

// collect collects all metrics of the map's gauges to the given channel.
func (g gauges) collect(ch chan<- prometheus.Metric) {
	for _, gauge := range g {
		gauge.Collect(ch)
	}
}

// reset resets all gauges in the map.
func (g gauges) reset() {
	for _, gauge := range g {
		gauge.Reset()
	}
}

// PrometheusConfig is the set of configuration data that specifies if
// Prometheus metric exporting is activated, and if so the listening address of
// the Prometheus server.
type PrometheusConfig struct {
	// Active, if true, then Prometheus metrics will be exported.
	Active bool `long:"active" description:"if true prometheus metrics will be exported"`

	// ListenAddr is the listening address that we should use to allow the
	// main Prometheus server to scrape our metrics.
	ListenAddr string `long:"listenaddr" description:"the interface we should listen on for prometheus"`
}

// PrometheusExporter serves the metrics of a set of collectors over HTTP.
type PrometheusExporter struct {
	config   *PrometheusConfig
	registry *prometheus.Registry
	server   *http.Server
	wg       sync.WaitGroup
}

// NewPrometheusExporter makes a new instance of the PrometheusExporter given
// the config.
func NewPrometheusExporter(cfg *PrometheusConfig) *PrometheusExporter {
	return &PrometheusExporter{
		config:   cfg,
		registry: prometheus.NewRegistry(),
	}
}

// Register adds a collector to the exported metrics.
func (p *PrometheusExporter) Register(c prometheus.Collector) error {
	return p.registry.Register(c)
}

// Start launches the HTTP server that Prometheus will hit to scrape our
// metrics.
func (p *PrometheusExporter) Start() error {
	// If we're not active, then there's nothing more to do.
	if !p.config.Active {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(
		p.registry, promhttp.HandlerOpts{},
	))
	p.server = &http.Server{
		Addr:              p.config.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		log.Infof("Prometheus exporter listening on %s",
			p.config.ListenAddr)
		err := p.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("Prometheus exporter stopped: %v", err)
		}
	}()

	return nil
}

// Stop shuts the HTTP server down.
func (p *PrometheusExporter) Stop() error {
	if p.server == nil {
		return nil
	}
	err := p.server.Close()
	p.wg.Wait()
	return err
}
