// Command crm-mcp serves the CRM tools to an MCP client over stdio, or over
// streamable HTTP when an address is configured.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"crm-mcp/internal/server"
)

var logger = xlog.NewPackageLogger("crm-mcp/cmd", "crm-mcp")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logger.KV(xlog.ERROR, "reason", "fatal", "err", err.Error())
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		envFile  string
		httpAddr string
	)

	root := &cobra.Command{
		Use:           "crm-mcp",
		Short:         "MCP server exposing CRM catalog, order and ticket tools",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadEnvFile(envFile); err != nil {
				return err
			}
			// stdout carries the MCP stream
			xlog.SetFormatter(xlog.NewStringFormatter(os.Stderr))
			xlog.SetGlobalLogLevel(parseLevel(os.Getenv("LOG_LEVEL")))

			cfg := configFromEnv()
			if httpAddr != "" {
				cfg.HTTPAddr = httpAddr
			}
			if cfg.APIBase == "" {
				logger.KV(xlog.WARNING, "reason", "API_BASE not set; every CRM call will fail")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := server.New(cfg)
			if cfg.HTTPAddr != "" {
				return serveHTTP(ctx, srv, cfg)
			}
			if err := srv.RunStdio(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return errors.Wrap(err, "stdio transport")
			}
			return nil
		},
	}

	root.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	root.Flags().StringVar(&httpAddr, "http", "", "serve streamable HTTP on this address instead of stdio (overrides MCP_HTTP_ADDR)")
	return root
}

func serveHTTP(ctx context.Context, srv *server.Server, cfg server.Config) error {
	if cfg.Token == "" {
		logger.KV(xlog.WARNING, "reason", "MCP_TOKEN not set; /mcp will be open")
	}

	hs := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = hs.Shutdown(shutdownCtx)
	}()

	certFile := os.Getenv("TLS_CERT_FILE")
	keyFile := os.Getenv("TLS_KEY_FILE")

	var err error
	if certFile != "" && keyFile != "" {
		logger.KV(xlog.INFO, "status", "listening", "addr", cfg.HTTPAddr, "tls", true)
		err = hs.ListenAndServeTLS(certFile, keyFile)
	} else {
		logger.KV(xlog.INFO, "status", "listening", "addr", cfg.HTTPAddr, "tls", false)
		err = hs.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "http transport")
	}
	return nil
}

// loadEnvFile seeds the environment from path. A missing file is not an error;
// variables already set in the environment win.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return errors.Wrapf(err, "failed to load %s", path)
	}
	return nil
}

func configFromEnv() server.Config {
	return server.Config{
		Name:           getEnv("SERVER_NAME", "Nocobase MCP Server"),
		Version:        getEnv("SERVER_VERSION", "1.0.0"),
		APIBase:        os.Getenv("API_BASE"),
		APIToken:       os.Getenv("TOKEN"),
		UserAgent:      getEnv("USER_AGENT", "nocobase-mcp-agent/1.0"),
		RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
		HTTPAddr:       os.Getenv("MCP_HTTP_ADDR"),
		Token:          os.Getenv("MCP_TOKEN"),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseLevel(v string) xlog.LogLevel {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "trace":
		return xlog.TRACE
	case "debug":
		return xlog.DEBUG
	case "notice":
		return xlog.NOTICE
	case "warn", "warning":
		return xlog.WARNING
	case "error":
		return xlog.ERROR
	default:
		return xlog.INFO
	}
}
