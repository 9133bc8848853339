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
	"path/filepath"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/smartfee/chainsync"
	"github.com/btcsuite/smartfee/database/engine"
	_ "github.com/btcsuite/smartfee/database/engine/leveldb"
	_ "github.com/btcsuite/smartfee/database/engine/pebbledb"
	"github.com/btcsuite/smartfee/fees"
	"github.com/btcsuite/smartfee/internal/log"
	"github.com/btcsuite/smartfee/internal/version"
	"github.com/btcsuite/smartfee/monitoring"
	"github.com/btcsuite/smartfee/sampleconfig"
	flags "github.com/jessevdk/go-flags"
)

const (
	defaultConfigFilename = "smartfeed.conf"
	defaultLogLevel       = "info"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "smartfeed.log"
	defaultDbDirname      = "feesdb"
	defaultDbType         = "leveldb"
	defaultRPCServer      = "localhost:8332"
	defaultPrometheusAddr = "localhost:9191"
)

var (
	defaultHomeDir     = btcutil.AppDataDir("smartfeed", false)
	defaultConfigFile  = filepath.Join(defaultHomeDir, defaultConfigFilename)
	defaultDataDir     = filepath.Join(defaultHomeDir, "data")
	defaultLogDir      = filepath.Join(defaultHomeDir, defaultLogDirname)
	defaultRPCCertFile = filepath.Join(btcutil.AppDataDir("btcd", false),
		"rpc.cert")
)

// config defines the configuration options for smartfeed.
//
// See loadConfig for details on the configuration load process.
type config struct {
	ShowVersion  bool          `short:"V" long:"version" description:"Display version information and exit"`
	ConfigFile   string        `short:"C" long:"configfile" description:"Path to configuration file"`
	DataDir      string        `short:"b" long:"datadir" description:"Directory to store the fee estimator state"`
	LogDir       string        `long:"logdir" description:"Directory to log output"`
	DebugLevel   string        `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems -- Use show to list available subsystems"`
	DbType       string        `long:"dbtype" description:"Database backend to use for the estimator state"`
	RPCServer    string        `short:"s" long:"rpcserver" description:"Node RPC server to poll"`
	RPCUser      string        `short:"u" long:"rpcuser" description:"Username for the node RPC connection"`
	RPCPass      string        `short:"P" long:"rpcpass" default-mask:"-" description:"Password for the node RPC connection"`
	PromptPass   bool          `long:"promptpass" description:"Prompt for the node RPC password instead of reading it from the configuration"`
	RPCCert      string        `short:"c" long:"rpccert" description:"Certificate chain of the node RPC server"`
	NoTLS        bool          `long:"notls" description:"Disable TLS for the node RPC connection"`
	PollInterval time.Duration `long:"pollinterval" description:"Delay between two polls of the node"`
	ConfTargets  []int         `long:"conftarget" description:"Confirmation target exported as a metric; may be repeated"`
	NoFlush      bool          `long:"noflush" description:"Do not count transactions still unconfirmed at shutdown as failures"`

	Prometheus monitoring.PrometheusConfig `group:"Prometheus" namespace:"prometheus"`
}

// validDbType returns whether or not dbType is a supported database type.
func validDbType(dbType string) bool {
	for _, knownType := range engine.SupportedKinds() {
		if dbType == knownType {
			return true
		}
	}
	return false
}

// parseAndSetDebugLevels attempts to parse the specified debug level and set
// the levels accordingly.  An appropriate error is returned if anything is
// invalid.
func parseAndSetDebugLevels(debugLevel string) error {
	// When the specified string doesn't have any delimiters, treat it as
	// the log level for all subsystems.
	if !strings.Contains(debugLevel, ",") && !strings.Contains(debugLevel, "=") {
		if !log.ValidLogLevel(debugLevel) {
			return fmt.Errorf("the specified debug level [%v] is invalid",
				debugLevel)
		}
		log.SetLogLevels(debugLevel)
		return nil
	}

	// Split the specified string into subsystem/level pairs while detecting
	// issues and update the log levels accordingly.
	for _, logLevelPair := range strings.Split(debugLevel, ",") {
		if !strings.Contains(logLevelPair, "=") {
			return fmt.Errorf("the specified debug level contains an "+
				"invalid subsystem/level pair [%v]", logLevelPair)
		}

		fields := strings.Split(logLevelPair, "=")
		subsysID, logLevel := fields[0], fields[1]

		if _, exists := log.SubsystemLoggers[subsysID]; !exists {
			return fmt.Errorf("the specified subsystem [%v] is invalid "+
				"-- supported subsystems %v", subsysID,
				log.SupportedSubsystems())
		}
		if !log.ValidLogLevel(logLevel) {
			return fmt.Errorf("the specified debug level [%v] is "+
				"invalid", logLevel)
		}

		log.SetLogLevel(subsysID, logLevel)
	}

	return nil
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		path = strings.Replace(path, "~", defaultHomeDir, 1)
	}
	return filepath.Clean(os.ExpandEnv(path))
}

// createDefaultConfigFile writes the sample configuration to path when no
// file exists there yet.
func createDefaultConfigFile(path string) error {
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(sampleconfig.FileContents), 0600)
}

// loadConfig initializes and parses the config using a config file and command
// line options.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Pre-parse the command line to check for an alternative config file
//  3. Load configuration file overwriting defaults with any specified options
//  4. Parse CLI options and overwrite/add any specified options
//  5. Validate and initialize logging
//
// The above results in smartfeed functioning properly without any config
// settings while still allowing the user to override settings with config
// files and command line options.  Command line options always take
// precedence.
func loadConfig() (*config, []string, error) {
	// Default config.
	cfg := config{
		ConfigFile:   defaultConfigFile,
		DataDir:      defaultDataDir,
		LogDir:       defaultLogDir,
		DebugLevel:   defaultLogLevel,
		DbType:       defaultDbType,
		RPCServer:    defaultRPCServer,
		RPCCert:      defaultRPCCertFile,
		PollInterval: chainsync.DefaultPollInterval,
		Prometheus: monitoring.PrometheusConfig{
			ListenAddr: defaultPrometheusAddr,
		},
	}

	// Pre-parse the command line options to see if an alternative config
	// file or the version flag was specified.
	preCfg := cfg
	preParser := flags.NewParser(&preCfg, flags.Default)
	_, err := preParser.Parse()
	if err != nil {
		var e *flags.Error
		if !errors.As(err, &e) || e.Type != flags.ErrHelp {
			preParser.WriteHelp(os.Stderr)
		}
		return nil, nil, err
	}

	// Show the version and exit if the version flag was specified.
	if preCfg.ShowVersion {
		fmt.Println(version.UserAgent("smartfeed"))
		os.Exit(0)
	}

	// Write the sample config file the first time the default location is
	// used.
	if preCfg.ConfigFile == defaultConfigFile {
		if err := createDefaultConfigFile(preCfg.ConfigFile); err != nil {
			log.SfedLog.Warnf("Unable to create config file: %v", err)
		}
	}

	// Load additional config from file.
	parser := flags.NewParser(&cfg, flags.Default)
	err = flags.NewIniParser(parser).ParseFile(cleanAndExpandPath(preCfg.ConfigFile))
	if err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			fmt.Fprintln(os.Stderr, err)
			parser.WriteHelp(os.Stderr)
			return nil, nil, err
		}
		log.SfedLog.Warnf("%v", err)
	}

	// Parse command line options again to ensure they take precedence.
	remainingArgs, err := parser.Parse()
	if err != nil {
		var e *flags.Error
		if !errors.As(err, &e) || e.Type != flags.ErrHelp {
			parser.WriteHelp(os.Stderr)
		}
		return nil, nil, err
	}

	// Special show command to list supported subsystems and exit.
	if cfg.DebugLevel == "show" {
		fmt.Println("Supported subsystems", log.SupportedSubsystems())
		os.Exit(0)
	}

	funcName := "loadConfig"
	fail := func(err error) (*config, []string, error) {
		fmt.Fprintln(os.Stderr, err)
		parser.WriteHelp(os.Stderr)
		return nil, nil, err
	}

	// Validate database type.
	if !validDbType(cfg.DbType) {
		str := "%s: the specified database type [%v] is invalid -- " +
			"supported types %v"
		return fail(fmt.Errorf(str, funcName, cfg.DbType,
			engine.SupportedKinds()))
	}

	if cfg.PollInterval <= 0 {
		str := "%s: the poll interval must be positive -- parsed [%v]"
		return fail(fmt.Errorf(str, funcName, cfg.PollInterval))
	}

	maxTarget := fees.DefaultEstimatorConfig().Horizons[fees.LongHorizon].MaxConfirms()
	for _, target := range cfg.ConfTargets {
		if target < 1 || target > maxTarget {
			str := "%s: the confirmation target %d is out of range " +
				"[1, %d]"
			return fail(fmt.Errorf(str, funcName, target, maxTarget))
		}
	}

	if cfg.PromptPass {
		pass, err := promptRPCPass()
		if err != nil {
			return fail(fmt.Errorf("%s: %w", funcName, err))
		}
		cfg.RPCPass = pass
	}

	cfg.DataDir = cleanAndExpandPath(cfg.DataDir)
	cfg.LogDir = cleanAndExpandPath(cfg.LogDir)
	cfg.RPCCert = cleanAndExpandPath(cfg.RPCCert)

	// Initialize log rotation.  After log rotation has been initialized, the
	// logger variables may be used.
	err = log.InitLogRotator(filepath.Join(cfg.LogDir, defaultLogFilename))
	if err != nil {
		return fail(fmt.Errorf("%s: %w", funcName, err))
	}

	// Parse, validate, and set debug log level(s).
	if err := parseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		return fail(fmt.Errorf("%s: %w", funcName, err))
	}

	return &cfg, remainingArgs, nil
}

// dbPath returns the path of the estimator database for the configured
// backend.
func (cfg *config) dbPath() string {
	return filepath.Join(cfg.DataDir, defaultDbDirname+"_"+cfg.DbType)
}
