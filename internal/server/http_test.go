package server

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/effective-security/xlog"
	"github.com/stretchr/testify/assert"
)

func TestHealth(t *testing.T) {
	s := New(Config{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestMCPRequiresToken(t *testing.T) {
	s := New(Config{Token: "x"})

	initialize := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-06-18","capabilities":{},"clientInfo":{"name":"t","version":"1"}}}`

	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(initialize))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req = httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(initialize))
	req.Header.Set("Authorization", "Bearer x")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	rr = httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"serverInfo"`)
}

func TestRequestsLoggedThroughXlog(t *testing.T) {
	var buf bytes.Buffer
	xlog.SetFormatter(xlog.NewStringFormatter(&buf))
	xlog.SetGlobalLogLevel(xlog.INFO)
	t.Cleanup(func() { xlog.SetFormatter(xlog.NewStringFormatter(os.Stderr)) })

	s := New(Config{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	assert.Contains(t, buf.String(), "/health")
}
