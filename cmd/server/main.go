package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"querybridge/internal/api"
	"querybridge/internal/bridge"
	"querybridge/internal/bridge/native"
	"querybridge/internal/bridge/wsbridge"
	"querybridge/internal/db/docstore"
	"querybridge/internal/db/embedded"
	"querybridge/internal/db/simulation"
	"querybridge/internal/dialect"
	"querybridge/internal/logger"
	"querybridge/internal/router"
	"querybridge/pkg/config"
)

var (
	cfgPath  string
	port     int
	webDir   string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "querybridge",
	Short: "One query and schema API over embedded, simulated and remote databases",
	RunE:  runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

var dialectsCmd = &cobra.Command{
	Use:   "dialects",
	Short: "List the supported dialects and their insights",
	RunE:  runDialects,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", filepath.Join(".", "configs", "example.yaml"), "path to config YAML")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	serveCmd.Flags().IntVar(&port, "port", 0, fmt.Sprintf("http port (overrides config, default %d)", config.DefaultPort))
	serveCmd.Flags().StringVar(&webDir, "web", "", "web ui directory (overrides config)")
	rootCmd.Flags().AddFlagSet(serveCmd.Flags())

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(dialectsCmd)
	rootCmd.SilenceUsage = true
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file when present. A missing file at the
// default path is not an error: defaults apply.
func loadConfig(cmd *cobra.Command) (config.AppConfig, error) {
	cfg, err := config.LoadFile(cfgPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) || cmd.Flags().Changed("config") {
			return config.AppConfig{}, err
		}
		logger.Warn("config file %s not found, using defaults", cfgPath)
	}
	cfg = cfg.WithDefaults()
	if port != 0 {
		cfg.Server.Port = port
	}
	if webDir != "" {
		cfg.Server.WebDir = webDir
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, cfg.Validate()
}

func runDialects(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	reg := dialect.NewRegistry().WithOverrides(cfg.InsightOverrides)
	out := cmd.OutOrStdout()
	for _, d := range reg.Dialects() {
		def := reg.DefinitionFor(d)
		fmt.Fprintf(out, "%-9s %s\n", d, def.Label)
		for _, in := range def.Insights {
			fmt.Fprintf(out, "  %-24s %-8s %-8s %s\n", in.ID, in.Context, in.Impact, in.Title)
		}
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger.Configure(cfg.Log.Level, nil)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := dialect.NewRegistry().WithOverrides(cfg.InsightOverrides)
	latency := time.Duration(*cfg.Simulation.LatencyMs) * time.Millisecond

	dataDir := cfg.Embedded.DataDir
	if dataDir == "" {
		if dataDir, err = os.MkdirTemp("", "querybridge-"); err != nil {
			return err
		}
		defer os.RemoveAll(dataDir)
	}
	emb := embedded.New(reg, dataDir)
	sim := simulation.New(latency)
	docs := docstore.New(latency)
	for _, e := range []interface{ Init(context.Context) error }{emb, sim, docs} {
		if err := e.Init(ctx); err != nil {
			return err
		}
	}
	defer emb.Close()

	client, bridgeHandler, closeBridge, err := openBridge(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeBridge()

	rt := router.New(router.Options{
		Registry:   reg,
		Embedded:   emb,
		Simulation: sim,
		DocStore:   docs,
		Bridge:     client,
		Simulated:  cfg.Simulation.Connections,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      api.NewServer(rt, api.Options{WebDir: cfg.Server.WebDir, Bridge: bridgeHandler}),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening on %s, serving %s, bridge %s", addr, cfg.Server.WebDir, cfg.Bridge.Mode)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openBridge builds the bridge client for the configured mode. In native
// mode the in-process host is also offered to websocket clients.
func openBridge(ctx context.Context, cfg config.AppConfig) (*bridge.Client, http.Handler, func(), error) {
	switch cfg.Bridge.Mode {
	case config.BridgeNative:
		host := native.New(cfg.Credentials, cfg.Bridge.ConnectTimeout)
		logger.Info("native bridge with %d credentials", len(cfg.Credentials))
		return bridge.NewClient(host), wsbridge.NewHandler(host), func() { _ = host.Close() }, nil

	case config.BridgeWebSocket:
		dialCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Bridge.ConnectTimeout)*time.Second)
		defer cancel()
		sender, err := wsbridge.Dial(dialCtx, cfg.Bridge.URL, nil)
		if err != nil {
			return nil, nil, nil, err
		}
		client := bridge.NewClient(sender)
		if !client.Detect(dialCtx, cfg.Bridge.Href) {
			logger.Warn("bridge at %s did not answer the origin handshake", cfg.Bridge.URL)
		}
		return client, nil, func() { _ = sender.Close() }, nil

	default:
		return bridge.NewClient(nil), nil, func() {}, nil
	}
}
