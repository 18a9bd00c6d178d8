package configserver

import (
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/muurk/wifiman/internal/auth"
	"github.com/muurk/wifiman/internal/networks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const storedDoc = `{"schema_version": 2, "known_networks": [{"ssid": "HomeNetwork", "password": "hunter2"}], "access_point": {"config": {"essid": "Micropython-Dev"}, "start_policy": "fallback"}}`

type countingSetup struct {
	calls atomic.Int32
	ok    bool
}

func (c *countingSetup) Setup(ctx context.Context) bool {
	c.calls.Add(1)
	return c.ok
}

type testServer struct {
	srv   *Server
	path  string
	setup *countingSetup
}

func startServer(t *testing.T, cfg networks.ConfigServer) *testServer {
	t.Helper()

	path := filepath.Join(t.TempDir(), "networks.json")
	require.NoError(t, os.WriteFile(path, []byte(storedDoc), 0o600))

	setup := &countingSetup{}
	srv, err := New(&Config{
		Host:          "127.0.0.1",
		AcceptTimeout: 20 * time.Millisecond,
		ReadTimeout:   time.Second,
		MaxBody:       1024,
		NetworksPath:  path,
		Store:         networks.NewFileStore(),
		Setup:         setup,
	})
	require.NoError(t, err)
	srv.config.Port = 0 // ephemeral
	require.NoError(t, srv.Start(cfg))
	t.Cleanup(srv.Stop)

	return &testServer{srv: srv, path: path, setup: setup}
}

func (ts *testServer) roundTrip(t *testing.T, raw string) string {
	t.Helper()

	conn, err := net.Dial("tcp", ts.srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))
	_, err = conn.Write([]byte(raw))
	require.NoError(t, err)

	resp, err := io.ReadAll(conn)
	require.NoError(t, err)
	return string(resp)
}

func body(resp string) string {
	_, b, _ := strings.Cut(resp, "\r\n\r\n")
	return b
}

func statusLine(resp string) string {
	line, _, _ := strings.Cut(resp, "\r\n")
	return line
}

func get(path, authz string) string {
	raw := "GET " + path + " HTTP/1.1\r\nHost: pi\r\n"
	if authz != "" {
		raw += "Authorization: " + authz + "\r\n"
	}
	return raw + "\r\n"
}

func post(path, authz, payload string) string {
	raw := "POST " + path + " HTTP/1.1\r\nHost: pi\r\nContent-Length: " + strconv.Itoa(len(payload)) + "\r\n"
	if authz != "" {
		raw += "Authorization: " + authz + "\r\n"
	}
	return raw + "\r\n" + payload
}

func TestAuthGate(t *testing.T) {
	ts := startServer(t, networks.ConfigServer{Enabled: true, Password: "s3cret"})

	tests := []struct {
		name  string
		authz string
	}{
		{"missing header", ""},
		{"wrong password", BasicAuthHeader("guess")},
		{"wrong user", "Basic " + "cm9vdDpzM2NyZXQ="}, // root:s3cret
		{"wrong scheme", "Bearer s3cret"},
		{"garbage base64", "Basic !!!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.roundTrip(t, get("/config", tt.authz))

			assert.Equal(t, "HTTP/1.1 401 Unauthorized", statusLine(resp))
			assert.Contains(t, resp, "WWW-Authenticate: Basic realm=\"WiFi Config\"\r\n")
			assert.Equal(t, "Authentication required", body(resp))
			assert.NotContains(t, resp, "HomeNetwork")
		})
	}
}

func TestGetConfigReturnsStoredBytes(t *testing.T) {
	ts := startServer(t, networks.ConfigServer{Enabled: true, Password: "s3cret"})

	resp := ts.roundTrip(t, get("/config", BasicAuthHeader("s3cret")))

	assert.Equal(t, "HTTP/1.1 200 OK", statusLine(resp))
	assert.Contains(t, resp, "Content-Type: application/json\r\n")
	assert.Equal(t, storedDoc, body(resp))
}

func TestArgonHashedPassword(t *testing.T) {
	hash, err := auth.HashPassword("s3cret")
	require.NoError(t, err)
	ts := startServer(t, networks.ConfigServer{Enabled: true, Password: hash})

	resp := ts.roundTrip(t, get("/config", BasicAuthHeader("s3cret")))
	assert.Equal(t, "HTTP/1.1 200 OK", statusLine(resp))

	resp = ts.roundTrip(t, get("/config", BasicAuthHeader(hash)))
	assert.Equal(t, "HTTP/1.1 401 Unauthorized", statusLine(resp))
}

func TestPostConfigRoundTrip(t *testing.T) {
	ts := startServer(t, networks.ConfigServer{Enabled: true, Password: "s3cret"})
	authz := BasicAuthHeader("s3cret")

	update := `{"known_networks": [{"ssid": "Cabin", "password": "pine"}], "access_point": {"start_policy": "always"}}`
	resp := ts.roundTrip(t, post("/config", authz, update))

	assert.Equal(t, "HTTP/1.1 200 OK", statusLine(resp))
	assert.Equal(t, "Configuration updated", body(resp))
	assert.EqualValues(t, 1, ts.setup.calls.Load())

	onDisk, err := os.ReadFile(ts.path)
	require.NoError(t, err)
	assert.Equal(t, update, string(onDisk))

	resp = ts.roundTrip(t, get("/config", authz))
	assert.Equal(t, update, body(resp))
}

func TestPostConfigSetupFailureStillOK(t *testing.T) {
	ts := startServer(t, networks.ConfigServer{Enabled: true, Password: "s3cret"})

	resp := ts.roundTrip(t, post("/config", BasicAuthHeader("s3cret"), `{"known_networks": [], "access_point": {}}`))
	assert.Equal(t, "HTTP/1.1 200 OK", statusLine(resp))
}

func TestPostConfigMissingSection(t *testing.T) {
	ts := startServer(t, networks.ConfigServer{Enabled: true, Password: "s3cret"})

	tests := []struct {
		name    string
		payload string
	}{
		{"no access point", `{"known_networks": []}`},
		{"no known networks", `{"access_point": {}}`},
		{"not json", `known_networks=1`},
		{"array", `[]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.roundTrip(t, post("/config", BasicAuthHeader("s3cret"), tt.payload))

			assert.Equal(t, "HTTP/1.1 400 Bad Request", statusLine(resp))
			assert.True(t, strings.HasPrefix(body(resp), "Error: "), body(resp))
		})
	}

	onDisk, err := os.ReadFile(ts.path)
	require.NoError(t, err)
	assert.Equal(t, storedDoc, string(onDisk))
	assert.Zero(t, ts.setup.calls.Load())
}

func TestRoutes(t *testing.T) {
	ts := startServer(t, networks.ConfigServer{Enabled: true, Password: "s3cret"})
	authz := BasicAuthHeader("s3cret")

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"editor root", get("/", authz), "HTTP/1.1 200 OK"},
		{"editor index", get("/index", authz), "HTTP/1.1 200 OK"},
		{"unknown path", get("/status", authz), "HTTP/1.1 404 Not Found"},
		{"post root", post("/", authz, "{}"), "HTTP/1.1 404 Not Found"},
		{"delete config", "DELETE /config HTTP/1.1\r\nAuthorization: " + authz + "\r\n\r\n", "HTTP/1.1 404 Not Found"},
		{"malformed", "NONSENSE\r\n\r\n", "HTTP/1.1 400 Bad Request"},
		{"too large", "POST /config HTTP/1.1\r\nContent-Length: 4096\r\n\r\n", "HTTP/1.1 413 Payload Too Large"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusLine(ts.roundTrip(t, tt.raw)))
		})
	}
}

func TestEditorPage(t *testing.T) {
	ts := startServer(t, networks.ConfigServer{Enabled: true, Password: "s3cret"})

	resp := ts.roundTrip(t, get("/", BasicAuthHeader("s3cret")))
	assert.Contains(t, resp, "Content-Type: text/html; charset=utf-8\r\n")
	assert.Equal(t, string(editorPage), body(resp))
}

func TestAllowUnauthenticated(t *testing.T) {
	ts := startServer(t, networks.ConfigServer{Enabled: true, AllowUnauthenticated: true})

	resp := ts.roundTrip(t, get("/config", ""))
	assert.Equal(t, "HTTP/1.1 200 OK", statusLine(resp))
	assert.Equal(t, storedDoc, body(resp))
}

func TestEmptyPasswordRefused(t *testing.T) {
	srv, err := New(&Config{Host: "127.0.0.1", Store: networks.NewFileStore()})
	require.NoError(t, err)

	err = srv.Start(networks.ConfigServer{Enabled: true})
	assert.ErrorIs(t, err, ErrUnauthenticatedRefused)
	assert.False(t, srv.Running())
	assert.Nil(t, srv.Addr())
}

func TestEnsureRunningIgnoresDisabled(t *testing.T) {
	srv, err := New(&Config{Host: "127.0.0.1", Store: networks.NewFileStore()})
	require.NoError(t, err)

	srv.EnsureRunning(networks.ConfigServer{Enabled: false, Password: "x"})
	assert.False(t, srv.Running())
}

func TestEnsureRunningTwiceKeepsListener(t *testing.T) {
	ts := startServer(t, networks.ConfigServer{Enabled: true, Password: "one"})
	addr := ts.srv.Addr().String()

	ts.srv.EnsureRunning(networks.ConfigServer{Enabled: true, Password: "two"})
	assert.Equal(t, addr, ts.srv.Addr().String())

	resp := ts.roundTrip(t, get("/config", BasicAuthHeader("two")))
	assert.Equal(t, "HTTP/1.1 200 OK", statusLine(resp))
}

func TestBindFailureIsSticky(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	srv, err := New(&Config{
		Host:  "127.0.0.1",
		Port:  busy.Addr().(*net.TCPAddr).Port,
		Store: networks.NewFileStore(),
	})
	require.NoError(t, err)

	first := srv.Start(networks.ConfigServer{Enabled: true, Password: "x"})
	require.Error(t, first)
	assert.False(t, srv.Running())

	busy.Close()
	assert.Equal(t, first, srv.Start(networks.ConfigServer{Enabled: true, Password: "x"}))
}

func TestStopWithinAcceptTimeout(t *testing.T) {
	ts := startServer(t, networks.ConfigServer{Enabled: true, Password: "s3cret"})
	require.True(t, ts.srv.Running())

	start := time.Now()
	ts.srv.Stop()

	assert.Less(t, time.Since(start), time.Second)
	assert.False(t, ts.srv.Running())
	assert.Nil(t, ts.srv.Addr())
	assert.NoError(t, ts.srv.Wait(context.Background()))
}

func TestClientHangupIsIgnored(t *testing.T) {
	ts := startServer(t, networks.ConfigServer{Enabled: true, Password: "s3cret"})

	conn, err := net.Dial("tcp", ts.srv.Addr().String())
	require.NoError(t, err)
	conn.Close()

	resp := ts.roundTrip(t, get("/config", BasicAuthHeader("s3cret")))
	assert.Equal(t, "HTTP/1.1 200 OK", statusLine(resp))
}
