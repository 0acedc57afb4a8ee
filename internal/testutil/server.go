package testutil

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"
)

// TestServer wraps a real HTTP server for integration testing. Tests make
// actual HTTP requests through the full middleware chain (auth, rate
// limiting, decompression).
type TestServer struct {
	Server   *http.Server
	URL      string // Base URL (e.g., "http://127.0.0.1:54321")
	Env      *TestEnvironment
	listener net.Listener
}

// StartTestServer starts a real HTTP server with the given handler on a
// random available port. It is cleaned up when the test completes.
func StartTestServer(t *testing.T, env *TestEnvironment, handler http.Handler) *TestServer {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to create listener: %v", err)
	}

	port := listener.Addr().(*net.TCPAddr).Port
	baseURL := fmt.Sprintf("http://127.0.0.1:%d", port)

	server := &http.Server{
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	ts := &TestServer{
		Server:   server,
		URL:      baseURL,
		Env:      env,
		listener: listener,
	}

	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			t.Logf("test server error: %v", err)
		}
	}()

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			t.Logf("failed to shut down test server: %v", err)
		}
	})

	return ts
}
