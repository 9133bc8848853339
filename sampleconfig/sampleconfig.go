// Copyright (c) 2017 The Decred developers
// Copyright (c) 2024 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package sampleconfig

// FileContents is a string containing the commented example config for
// smartfeed.
const FileContents = `[Application Options]

; ------------------------------------------------------------------------------
; Data settings
; ------------------------------------------------------------------------------

; The directory to store the fee estimator state.  The default is
; ~/.smartfeed/data on POSIX OSes, $LOCALAPPDATA/Smartfeed/data on Windows,
; ~/Library/Application Support/Smartfeed/data on macOS.  Environment variables
; are expanded so they may be used.
; datadir=~/.smartfeed/data

; Database backend used for the estimator state {leveldb, pebble}.
; dbtype=leveldb


; ------------------------------------------------------------------------------
; Node RPC settings
; ------------------------------------------------------------------------------

; Address of the node RPC server polled for blocks and mempool contents.
; rpcserver=localhost:8332

; Credentials of the node RPC server.
; rpcuser=
; rpcpass=

; Certificate chain of the node RPC server, unused with notls.
; rpccert=~/.btcd/rpc.cert

; Connect to the node without TLS.  Only use this for a node on localhost.
; notls=1

; Delay between two polls of the node.
; pollinterval=5s


; ------------------------------------------------------------------------------
; Estimation settings
; ------------------------------------------------------------------------------

; Do not record transactions still unconfirmed at shutdown as failures.
; noflush=1


; ------------------------------------------------------------------------------
; Debug
; ------------------------------------------------------------------------------

; Debug logging level.
; Valid levels are {trace, debug, info, warn, error, critical}
; You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set
; log level for individual subsystems.  Use smartfeed --debuglevel=show to list
; available subsystems.
; debuglevel=info

; The directory to store log files.
; logdir=~/.smartfeed/logs


; ------------------------------------------------------------------------------
; Metrics
; ------------------------------------------------------------------------------

; Confirmation targets exported as smart fee estimate gauges.  May be repeated.
; conftarget=2
; conftarget=6
; conftarget=144

; Export metrics over HTTP for Prometheus to scrape.
; prometheus.active=1

; Listening address of the metrics server.
; prometheus.listenaddr=localhost:9191
`
