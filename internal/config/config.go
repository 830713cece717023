package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bhandras/replbox/internal/engine"
	"github.com/bhandras/replbox/pkg/logger"
)

// Config holds server configuration.
type Config struct {
	// Addr is the listen address for the HTTP(S) server.
	Addr         string
	DatabasePath string
	Debug        bool
	LogLevel     logger.Level
	// Engine selects the bundler used for new sessions.
	Engine engine.Kind
	// BuildTimeout bounds each build. Zero means builds run to completion.
	BuildTimeout time.Duration
	// PresetsFile is an optional TOML file with extra presets.
	PresetsFile string
	// PublicURL is the externally visible base URL used in share links.
	PublicURL      string
	AllowedOrigins []string
	// TLS holds HTTPS configuration. If nil, the server runs in plain HTTP mode.
	TLS *TLSConfig
}

// TLSConfig holds file paths for serving HTTPS directly from the server.
type TLSConfig struct {
	// CertFile is a PEM-encoded certificate chain.
	CertFile string
	// KeyFile is a PEM-encoded private key.
	KeyFile string
}

// Overrides optionally overrides values from environment variables.
//
// A nil pointer means "use the environment/default value".
type Overrides struct {
	Addr         *string
	DatabasePath *string
	Debug        *bool
	LogLevel     *string
	Engine       *string
	BuildTimeout *time.Duration
	PresetsFile  *string
	PublicURL    *string
	TLS          *TLSConfig
}

// Load loads server configuration from environment variables and applies any
// explicit overrides.
func Load(overrides Overrides) (*Config, error) {
	port := 3010
	if portStr := os.Getenv("PORT"); portStr != "" {
		if p, err := strconv.Atoi(portStr); err == nil {
			port = p
		}
	}

	addr := fmt.Sprintf(":%d", port)
	if overrides.Addr != nil {
		addr = *overrides.Addr
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "./replbox.db"
	}
	if overrides.DatabasePath != nil {
		dbPath = *overrides.DatabasePath
	}

	debug := false
	if debugStr := os.Getenv("DEBUG"); debugStr == "true" || debugStr == "1" {
		debug = true
	}
	if overrides.Debug != nil {
		debug = *overrides.Debug
	}

	levelStr := os.Getenv("LOG_LEVEL")
	if overrides.LogLevel != nil {
		levelStr = *overrides.LogLevel
	}
	level := logger.LevelInfo
	if debug {
		level = logger.LevelDebug
	}
	if levelStr != "" {
		parsed, err := logger.ParseLevel(levelStr)
		if err != nil {
			return nil, err
		}
		level = parsed
	}

	kind := engine.Kind(os.Getenv("REPLBOX_ENGINE"))
	if overrides.Engine != nil {
		kind = engine.Kind(*overrides.Engine)
	}
	if kind == "" {
		kind = engine.KindEsbuild
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown engine %q (want %q or %q)", kind, engine.KindEsbuild, engine.KindFake)
	}

	var timeout time.Duration
	if raw := os.Getenv("REPLBOX_BUILD_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("REPLBOX_BUILD_TIMEOUT: %w", err)
		}
		timeout = d
	}
	if overrides.BuildTimeout != nil {
		timeout = *overrides.BuildTimeout
	}
	if timeout < 0 {
		return nil, fmt.Errorf("build timeout must not be negative")
	}

	presets := os.Getenv("REPLBOX_PRESETS_FILE")
	if overrides.PresetsFile != nil {
		presets = *overrides.PresetsFile
	}

	publicURL := os.Getenv("REPLBOX_PUBLIC_URL")
	if overrides.PublicURL != nil {
		publicURL = *overrides.PublicURL
	}
	if publicURL == "" {
		host := addr
		if strings.HasPrefix(host, ":") {
			host = "localhost" + host
		}
		scheme := "http"
		if overrides.TLS != nil {
			scheme = "https"
		}
		publicURL = scheme + "://" + host
	}
	publicURL = strings.TrimRight(publicURL, "/")

	origins := []string{"*"} // For self-hosted, allow all origins
	if raw := os.Getenv("REPLBOX_ALLOWED_ORIGINS"); raw != "" {
		origins = origins[:0]
		for _, o := range strings.Split(raw, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}

	return &Config{
		Addr:           addr,
		DatabasePath:   dbPath,
		Debug:          debug,
		LogLevel:       level,
		Engine:         kind,
		BuildTimeout:   timeout,
		PresetsFile:    presets,
		PublicURL:      publicURL,
		AllowedOrigins: origins,
		TLS:            overrides.TLS,
	}, nil
}
