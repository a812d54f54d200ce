package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"orren/internal/baseline"
	"orren/internal/cache"
	"orren/internal/config"
	"orren/internal/fees"
	"orren/internal/ledger"
	"orren/internal/observability"
	"orren/internal/quote"
	"orren/internal/server"
	"orren/internal/storage"
	"orren/internal/storage/postgres"
	"orren/internal/txbuild"
)

// DefaultFeeAccount receives routing fees when no account is configured.
const DefaultFeeAccount = "rPT1Sjq2YGrBMTttX4GZHjKu9dyfzbpAYe"

func main() {
	root := &cobra.Command{
		Use:          "router",
		Short:        "Quote aggregation and guaranteed-fee routing engine",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the quote router",
		RunE:  runServe,
	}

	serveCmd.Flags().String("listen", "0.0.0.0:5000", "HTTP listen address")
	serveCmd.Flags().String("ledger-url", "wss://s1.ripple.com", "ledger websocket URL")
	serveCmd.Flags().Float64("fee-alpha", 0.5, "fraction of improvement captured as fee")
	serveCmd.Flags().Int64("fee-min-bps", 1, "minimum fee in basis points")
	serveCmd.Flags().Int64("fee-cap-bps", 5, "maximum fee in basis points")
	serveCmd.Flags().String("fee-account", "", "fee collection account")
	serveCmd.Flags().Int("cache-size", 100, "quote cache capacity")
	serveCmd.Flags().Duration("cache-ttl", 5*time.Second, "quote cache TTL")
	serveCmd.Flags().Bool("native-comparison", false, "compare quotes against the ledger path-finder")
	serveCmd.Flags().String("baseline-account", "", "account used for baseline path-finding")
	serveCmd.Flags().Bool("external-bridges", false, "include external cross-chain bridge routes")
	serveCmd.Flags().String("destination-chain", "ethereum", "destination chain for external bridge routes")
	serveCmd.Flags().String("audit-out", "", "quote audit JSONL path")
	serveCmd.Flags().String("pg-dsn", "", "Postgres DSN for the quote audit store")
	serveCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(serveCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := ledger.NewClient(cfg.LedgerURL, logger)
	defer client.Close()

	metrics := observability.NewMetrics()

	ammCache := cache.New(cfg.CacheSize, cfg.CacheTTL)
	clobCache := cache.New(cfg.CacheSize, cfg.CacheTTL)

	amm := quote.NewAMMQuoter(client, ammCache, metrics, logger)
	clob := quote.NewCLOBQuoter(client, clobCache, metrics, logger)
	quoters := []quote.Quoter{
		amm,
		clob,
		quote.NewBridgeQuoter(amm, clob, logger),
		quote.NewHybridQuoter(amm, clob, logger),
	}
	if cfg.ExternalBridges {
		quoters = append(quoters,
			quote.NewAxelarQuoter(cfg.DestinationChain),
			quote.NewWormholeQuoter(cfg.DestinationChain),
		)
	}
	router := quote.NewRouter(logger, quoters...)

	var comparator *baseline.Comparator
	if cfg.NativeComparison {
		comparator = baseline.NewComparator(client, cfg.BaselineAccount, logger)
	}

	var audit storage.AuditSink
	switch {
	case cfg.PGDSN != "":
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return err
		}
		defer store.Close()
		audit = store
	case cfg.AuditOut != "":
		audit = storage.NewJsonlStorage(cfg.AuditOut)
	}

	feeAccount := cfg.FeeAccount
	if feeAccount == "" {
		feeAccount = DefaultFeeAccount
	}
	builder := txbuild.NewBuilder(feeAccount)

	feeConfig := fees.Config{
		Alpha:  cfg.FeeAlpha,
		MinBps: cfg.FeeMinBps,
		CapBps: cfg.FeeCapBps,
	}

	srv := server.New(router, builder, comparator, audit, metrics, feeConfig, logger)

	logger.Info("router start",
		zap.String("listen", cfg.ListenAddr),
		zap.String("ledger_url", cfg.LedgerURL),
		zap.Float64("fee_alpha", cfg.FeeAlpha),
		zap.Int64("fee_min_bps", cfg.FeeMinBps),
		zap.Int64("fee_cap_bps", cfg.FeeCapBps),
		zap.Int("cache_size", cfg.CacheSize),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Bool("native_comparison", cfg.NativeComparison),
		zap.Bool("external_bridges", cfg.ExternalBridges),
	)

	return srv.Run(ctx, cfg.ListenAddr)
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
