package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bhandras/replbox/internal/api"
	"github.com/bhandras/replbox/internal/config"
	"github.com/bhandras/replbox/internal/database"
	"github.com/bhandras/replbox/internal/engine"
	"github.com/bhandras/replbox/internal/engine/esbuildengine"
	"github.com/bhandras/replbox/internal/engine/fakeengine"
	"github.com/bhandras/replbox/internal/fragment"
	"github.com/bhandras/replbox/internal/offline"
	"github.com/bhandras/replbox/internal/preset"
	"github.com/bhandras/replbox/internal/session"
	"github.com/bhandras/replbox/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var serveFlags struct {
	addr         string
	dbPath       string
	debug        bool
	logLevel     string
	engine       string
	buildTimeout time.Duration
	presets      string
	publicURL    string
	tlsCert      string
	tlsKey       string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Long: `Run the replbox HTTP server.

Flags override the corresponding environment variables (PORT, DATABASE_PATH,
DEBUG, LOG_LEVEL, REPLBOX_ENGINE, REPLBOX_BUILD_TIMEOUT, REPLBOX_PRESETS_FILE,
REPLBOX_PUBLIC_URL).`,
	RunE: runServe,
}

func init() {
	addServeFlags(serveCmd)
	addServeFlags(rootCmd)
	rootCmd.AddCommand(serveCmd)
}

// addServeFlags registers the server flags on cmd. The root command gets them
// too because it serves when no subcommand is given.
func addServeFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&serveFlags.addr, "addr", "", "Listen address (default :$PORT or :3010)")
	f.StringVar(&serveFlags.dbPath, "db", "", "SQLite database path")
	f.BoolVar(&serveFlags.debug, "debug", false, "Enable debug mode")
	f.StringVar(&serveFlags.logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	f.StringVar(&serveFlags.engine, "engine", "", "Bundling engine (esbuild or fake)")
	f.DurationVar(&serveFlags.buildTimeout, "build-timeout", 0, "Abort builds after this long (0 disables)")
	f.StringVar(&serveFlags.presets, "presets", "", "TOML file with extra presets")
	f.StringVar(&serveFlags.publicURL, "public-url", "", "Base URL used in share links")
	f.StringVar(&serveFlags.tlsCert, "tls-cert", "", "PEM certificate chain for HTTPS")
	f.StringVar(&serveFlags.tlsKey, "tls-key", "", "PEM private key for HTTPS")
}

// serveOverrides converts the flags the user set into config overrides.
func serveOverrides(cmd *cobra.Command) (config.Overrides, error) {
	var o config.Overrides
	f := cmd.Flags()
	if f.Changed("addr") {
		o.Addr = &serveFlags.addr
	}
	if f.Changed("db") {
		o.DatabasePath = &serveFlags.dbPath
	}
	if f.Changed("debug") {
		o.Debug = &serveFlags.debug
	}
	if f.Changed("log-level") {
		o.LogLevel = &serveFlags.logLevel
	}
	if f.Changed("engine") {
		o.Engine = &serveFlags.engine
	}
	if f.Changed("build-timeout") {
		o.BuildTimeout = &serveFlags.buildTimeout
	}
	if f.Changed("presets") {
		o.PresetsFile = &serveFlags.presets
	}
	if f.Changed("public-url") {
		o.PublicURL = &serveFlags.publicURL
	}
	if serveFlags.tlsCert != "" || serveFlags.tlsKey != "" {
		if serveFlags.tlsCert == "" || serveFlags.tlsKey == "" {
			return o, fmt.Errorf("--tls-cert and --tls-key must be set together")
		}
		o.TLS = &config.TLSConfig{CertFile: serveFlags.tlsCert, KeyFile: serveFlags.tlsKey}
	}
	return o, nil
}

// engineFactory returns the per-session engine constructor for kind.
func engineFactory(kind engine.Kind) func() engine.Engine {
	if kind == engine.KindFake {
		return func() engine.Engine { return fakeengine.New() }
	}
	return func() engine.Engine { return esbuildengine.New() }
}

func runServe(cmd *cobra.Command, args []string) error {
	overrides, err := serveOverrides(cmd)
	if err != nil {
		return err
	}
	cfg, err := config.Load(overrides)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger.SetLevel(cfg.LogLevel)
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	catalog, err := preset.Load(cfg.PresetsFile)
	if err != nil {
		return fmt.Errorf("failed to load presets: %w", err)
	}

	logger.Infof("Opening database: %s", cfg.DatabasePath)
	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	queries := db.Queries()

	worker := offline.NewWorker(queries)
	worker.Start()
	defer func() {
		worker.Stop()
		<-worker.Done()
	}()

	manager, err := session.NewManager(session.ManagerConfig{
		Catalog:   catalog,
		NewEngine: engineFactory(cfg.Engine),
		Locations: func(id string) fragment.Location {
			return queries.Location(id)
		},
		Offline:      worker,
		BuildTimeout: cfg.BuildTimeout,
	})
	if err != nil {
		return err
	}
	defer manager.Close()

	router := api.NewRouter(api.Deps{
		Manager:        manager,
		Offline:        worker,
		PublicURL:      cfg.PublicURL,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if cfg.TLS != nil {
			logger.Infof("replbox starting on https://%s (engine=%s)", cfg.Addr, cfg.Engine)
			errCh <- srv.ListenAndServeTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile)
			return
		}
		logger.Infof("replbox starting on http://localhost%s (engine=%s)", cfg.Addr, cfg.Engine)
		errCh <- srv.ListenAndServe()
	}()
	logger.Infof("Share links use %s", cfg.PublicURL)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Infof("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("Graceful shutdown failed: %v", err)
	}
	return nil
}
