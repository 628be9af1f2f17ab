package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/lightlink-network/ll-bridge-relayer/api"
	"github.com/lightlink-network/ll-bridge-relayer/config"
	"github.com/lightlink-network/ll-bridge-relayer/database"
	"github.com/lightlink-network/ll-bridge-relayer/ethereum"
	"github.com/lightlink-network/ll-bridge-relayer/gasprice"
	"github.com/lightlink-network/ll-bridge-relayer/logging"
	"github.com/lightlink-network/ll-bridge-relayer/relayer"
	"github.com/lightlink-network/ll-bridge-relayer/state"
	"github.com/lightlink-network/ll-bridge-relayer/telemetry"
	"github.com/spf13/cobra"
)

var (
	configPath string
	envFile    string
	rootCmd    = &cobra.Command{
		Use:           "ll-bridge-relayer",
		Short:         "Relays TokensLocked events into prepared mint transactions",
		RunE:          run,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.json", "path to the JSON config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional .env file loaded before the config")
}

func run(cmd *cobra.Command, args []string) error {
	bootLogger := logging.New(os.Stderr, slog.LevelInfo)

	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		bootLogger.Error("failed to load env file", "path", envFile, "error", err)
		return err
	}

	cfg, err := config.Load(configPath, os.Environ())
	if err != nil {
		bootLogger.Error("failed to load config", "path", configPath, "error", err)
		return err
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		bootLogger.Warn("unknown log level, using info", "level", cfg.Log.Level)
	}
	Logger := logging.New(os.Stderr, level)
	slog.SetDefault(Logger)

	Logger.Info("Starting ll-bridge-relayer ("+Version+")",
		"Go Version", runtime.Version(),
		"Operating System", runtime.GOOS,
		"Architecture", runtime.GOARCH)

	// Create context that will be canceled on SIGINT or SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.InitTracer(ctx, cfg.Telemetry.OTLPEndpoint, cfg.Telemetry.ServiceName)
	if err != nil {
		Logger.Warn("tracing disabled", "error", err)
	}
	defer shutdownTracer()

	source, err := ethereum.NewClient(ethereum.ClientOpts{
		Name:              cfg.SourceChain.Name,
		Endpoint:          cfg.SourceChain.RPCURL,
		ContractAddress:   mustAddress(cfg.SourceChain.ContractAddress),
		ABI:               ethereum.SourceBridgeABI,
		Logger:            Logger.With("component", "source-chain"),
		Timeout:           cfg.RPC.Timeout(),
		ConnectRetries:    cfg.RPC.ConnectRetries,
		ConnectRetryDelay: cfg.RPC.ConnectRetryDelay(),
		RequestsPerSecond: cfg.RPC.RequestsPerSecond,
	})
	if err != nil {
		return err
	}
	defer source.Close()

	destination, err := ethereum.NewClient(ethereum.ClientOpts{
		Name:              cfg.DestinationChain.Name,
		Endpoint:          cfg.DestinationChain.RPCURL,
		ContractAddress:   mustAddress(cfg.DestinationChain.ContractAddress),
		ABI:               ethereum.DestinationBridgeABI,
		Logger:            Logger.With("component", "destination-chain"),
		Timeout:           cfg.RPC.Timeout(),
		ConnectRetries:    cfg.RPC.ConnectRetries,
		ConnectRetryDelay: cfg.RPC.ConnectRetryDelay(),
		RequestsPerSecond: cfg.RPC.RequestsPerSecond,
	})
	if err != nil {
		return err
	}
	defer destination.Close()

	wallet, err := destination.ChecksumAddress(cfg.DestinationChain.RelayerWallet)
	if err != nil {
		return fmt.Errorf("invalid relayer wallet: %w", err)
	}

	// The archive runs first so a rejected mint never reaches stdout.
	var sinks relayer.MultiSink

	var db *database.Database
	if cfg.Database.URI != "" {
		db, err = database.NewDatabase(database.DatabaseOpts{
			URI:          cfg.Database.URI,
			DatabaseName: cfg.Database.Name,
			Logger:       Logger.With("component", "database"),
		})
		if err != nil {
			Logger.Error("failed to create database", "error", err)
			return err
		}
		defer db.Close(context.Background())

		if err := db.CreateIndexes(ctx); err != nil {
			Logger.Error("failed to create database indexes", "error", err)
			return err
		}
		sinks = append(sinks, db)
	}
	sinks = append(sinks, relayer.NewLogSink(os.Stdout, Logger.With("component", "sink")))

	r, err := relayer.New(ctx, relayer.Opts{
		Source:      source,
		Destination: destination,
		GasOracle: gasprice.NewOracle(gasprice.OracleOpts{
			URL:     cfg.API.GasStationURL,
			Timeout: cfg.API.Timeout(),
			Retries: cfg.API.Retries,
			Logger:  Logger.With("component", "gas-oracle"),
		}),
		Sink:          sinks,
		Store:         state.NewMemoryStore(),
		EventName:     cfg.SourceChain.EventName,
		StartBlock:    cfg.SourceChain.StartBlock,
		BlockLimit:    cfg.BlockProcessingLimit,
		RunInterval:   cfg.RunInterval(),
		FaultBackoff:  cfg.FaultBackoff(),
		RelayerWallet: wallet,
		GasLimit:      cfg.Gas.Limit,
		MaxRetries:    cfg.Retry.MaxAttempts,
		Logger:        Logger.With("component", "relayer"),
	})
	if err != nil {
		logging.Critical(Logger, "failed to initialize relayer", "error", err)
		return err
	}

	if cfg.Server.Enabled {
		opts := api.ServerOpts{
			Logger: Logger.With("component", "api-server"),
			Port:   cfg.Server.Port,
			Status: r,
		}
		if db != nil {
			opts.Mints = db
		}
		server := api.NewServer(opts)
		go func() {
			if err := server.StartServer(ctx); err != nil {
				Logger.Error("api server stopped", "error", err)
			}
		}()
	}

	return r.Run(ctx)
}

// mustAddress converts an address the config validator already accepted.
func mustAddress(s string) common.Address {
	if !common.IsHexAddress(s) {
		panic("invalid address " + s)
	}
	return common.HexToAddress(s)
}
