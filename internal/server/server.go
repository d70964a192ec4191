// Package server exposes the CRM tools over the Model Context Protocol.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/effective-security/xlog"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"crm-mcp/internal/crm"
)

var logger = xlog.NewPackageLogger("crm-mcp/internal", "server")

// Config contains server configuration values such as the MCP identity,
// CRM connection settings and the optional HTTP transport.
type Config struct {
	Name    string
	Version string

	APIBase        string
	APIToken       string
	UserAgent      string
	RequestTimeout time.Duration

	// HTTPAddr enables the streamable HTTP transport when set.
	HTTPAddr string
	// Token protects /mcp on the HTTP transport when set.
	Token string
}

// Server contains the MCP server, the CRM client and the HTTP router.
type Server struct {
	cfg      Config
	mcp      *mcp.Server
	crm      *crm.Client
	router   *chi.Mux
	validate *validator.Validate
}

// New constructs a Server with every tool registered and routes configured.
func New(cfg Config) *Server {
	if cfg.Name == "" {
		cfg.Name = "crm-mcp"
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}

	var httpClient *http.Client
	if cfg.RequestTimeout > 0 {
		httpClient = &http.Client{Timeout: cfg.RequestTimeout}
	}

	s := &Server{
		cfg: cfg,
		mcp: mcp.NewServer(&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		}, nil),
		crm:      crm.New(cfg.APIBase, cfg.APIToken, cfg.UserAgent, httpClient),
		router:   chi.NewRouter(),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}

	s.registerTools()

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  requestLogger{},
		NoColor: true,
	}))
	s.router.Use(middleware.Recoverer)

	s.router.Get("/health", s.handleHealth)

	mcpHandler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return s.mcp }, nil)
	s.router.Group(func(r chi.Router) {
		r.Use(s.auth)
		r.Handle("/mcp", mcpHandler)
	})

	return s
}

// Router exposes the root HTTP handler for the streamable HTTP transport.
func (s *Server) Router() http.Handler { return s.router }

// RunStdio serves a single MCP client over stdin/stdout until the client
// disconnects or ctx is cancelled.
func (s *Server) RunStdio(ctx context.Context) error {
	logger.KV(xlog.INFO, "status", "running", "transport", "stdio", "name", s.cfg.Name, "version", s.cfg.Version)
	return s.run(ctx, &mcp.StdioTransport{})
}

// run starts the server with the given transport. Tests use in-memory transports.
func (s *Server) run(ctx context.Context, transport mcp.Transport) error {
	return s.mcp.Run(ctx, transport)
}

func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Token == "" {
			next.ServeHTTP(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer "+s.cfg.Token {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// requestLogger feeds chi's request log lines into the package logger.
type requestLogger struct{}

func (requestLogger) Print(v ...any) {
	logger.KV(xlog.INFO, "http", strings.TrimSpace(fmt.Sprint(v...)))
}
