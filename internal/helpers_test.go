package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

const (
	testAdminName     = "admin"
	testAdminPassword = "admin-secret"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Storage = StorageMemory
	cfg.JWTSecret = "test-secret"
	cfg.JWTIssuer = "palpite-test"
	cfg.AdminUsername = testAdminName
	cfg.AdminPassword = testAdminPassword
	return cfg
}

// newTestApp returns a seeded app on the memory store with its dispatcher
// running until the test ends.
func newTestApp(t *testing.T) *App {
	t.Helper()
	return newTestAppWithLogger(t, discardLogger())
}

func newTestAppWithLogger(t *testing.T, logger *slog.Logger) *App {
	t.Helper()
	gin.SetMode(gin.TestMode)
	a := NewApp(testConfig(), NewMemStore(), logger)
	a.Identity.cost = bcrypt.MinCost
	if err := a.Seed(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go a.Run(ctx)
	t.Cleanup(cancel)
	return a
}

func newTestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping test; listen unavailable: %v", err)
	}
	ts := &httptest.Server{
		Listener: listener,
		Config:   &http.Server{Handler: handler},
	}
	ts.Start()
	t.Cleanup(ts.Close)
	return ts
}

func doRequest(t *testing.T, ts *httptest.Server, method, path, token string, payload any) *http.Response {
	t.Helper()
	body := bytes.NewReader(nil)
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, ts.URL+path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	t.Cleanup(func() {
		_ = resp.Body.Close()
	})
	return resp
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		var body bytes.Buffer
		_, _ = body.ReadFrom(resp.Body)
		t.Fatalf("%s %s: expected status %d, got %d: %s",
			resp.Request.Method, resp.Request.URL.Path, want, resp.StatusCode, body.String())
	}
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func decodeInto(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

func registerUser(t *testing.T, ts *httptest.Server, name string) string {
	t.Helper()
	resp := doRequest(t, ts, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username":  name,
		"password":  "secret123",
		"password2": "secret123",
	})
	expectStatus(t, resp, http.StatusCreated)
	return decodeBody(t, resp)["token"].(string)
}

func loginAdmin(t *testing.T, ts *httptest.Server) string {
	t.Helper()
	resp := doRequest(t, ts, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": testAdminName,
		"password": testAdminPassword,
	})
	expectStatus(t, resp, http.StatusOK)
	return decodeBody(t, resp)["token"].(string)
}

// syncBuffer is a log sink safe to read while the server is still writing.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
