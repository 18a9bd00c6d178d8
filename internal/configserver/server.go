package configserver

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/muurk/wifiman/internal/discovery"
	"github.com/muurk/wifiman/internal/logging"
	"github.com/muurk/wifiman/internal/networks"
	"github.com/muurk/wifiman/internal/version"
	"go.uber.org/zap"
)

const (
	DefaultPort          = 8080
	DefaultAcceptTimeout = time.Second
	DefaultReadTimeout   = 5 * time.Second
)

// ErrUnauthenticatedRefused is returned when a server is asked to run
// without a password and without the explicit opt-in.
var ErrUnauthenticatedRefused = errors.New("config server has no password and allow_unauthenticated is not set")

// RequestError is a request failure mapped to a response status.
type RequestError struct {
	Status int
	Msg    string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, StatusText(e.Status), e.Msg)
}

// classify maps a ReadRequest error to the status the client sees.
func classify(err error) *RequestError {
	status := StatusBadRequest
	if errors.Is(err, ErrBodyTooLarge) {
		status = StatusRequestTooLarge
	} else if errors.Is(err, ErrTransferEncoding) {
		status = StatusNotImplemented
	}
	return &RequestError{Status: status, Msg: err.Error()}
}

// Config holds the server configuration
type Config struct {
	Host          string
	Port          int
	AcceptTimeout time.Duration
	ReadTimeout   time.Duration
	MaxBody       int

	// Advertise registers the listener over mDNS.
	Advertise bool

	NetworksPath string
	Store        networks.Store
	Setup        Setupper

	// Context is passed to setup cycles triggered by POST /config.
	Context context.Context
}

// Server accepts one connection at a time and answers it from a Handler.
type Server struct {
	config  *Config
	handler *Handler

	mu       sync.Mutex
	listener *net.TCPListener
	ad       *discovery.Advertisement
	done     chan struct{}
	bindErr  error

	enabled atomic.Bool
}

// New creates a new Server instance
func New(config *Config) (*Server, error) {
	if config.Store == nil {
		return nil, errors.New("config server needs a store")
	}
	if config.NetworksPath == "" {
		config.NetworksPath = networks.DefaultPath
	}
	if config.Port == 0 {
		config.Port = DefaultPort
	}
	if config.AcceptTimeout <= 0 {
		config.AcceptTimeout = DefaultAcceptTimeout
	}
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = DefaultReadTimeout
	}
	if config.MaxBody <= 0 {
		config.MaxBody = DefaultMaxBody
	}
	if config.Context == nil {
		config.Context = context.Background()
	}

	return &Server{
		config:  config,
		handler: NewHandler(config.NetworksPath, config.Store, config.Setup, ""),
	}, nil
}

// Handler returns the request router.
func (s *Server) Handler() *Handler {
	return s.handler
}

// EnsureRunning starts the server for cfg unless it is already running. A
// running server only picks up the new password. Bind failures are logged
// and not retried.
func (s *Server) EnsureRunning(cfg networks.ConfigServer) {
	if !cfg.Enabled {
		return
	}
	if err := s.Start(cfg); err != nil {
		logging.Error("Config server not started", zap.Error(err))
	}
}

// Start binds the listener and launches the accept loop. Calling Start on a
// running server updates the password and returns nil. After a bind
// failure the same error is returned on every later call.
func (s *Server) Start(cfg networks.ConfigServer) error {
	if cfg.Password == "" && !cfg.AllowUnauthenticated {
		return ErrUnauthenticatedRefused
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.handler.SetPassword(cfg.Password)
	if s.bindErr != nil {
		return s.bindErr
	}
	if s.listener != nil {
		return nil
	}

	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		s.bindErr = fmt.Errorf("failed to resolve %s: %w", addr, err)
		return s.bindErr
	}
	listener, err := net.ListenTCP("tcp", tcpAddr)
	if err != nil {
		s.bindErr = fmt.Errorf("failed to listen on %s: %w", addr, err)
		return s.bindErr
	}

	s.listener = listener
	s.done = make(chan struct{})
	s.enabled.Store(true)

	port := listener.Addr().(*net.TCPAddr).Port
	logging.Info("Config server listening",
		zap.String("addr", listener.Addr().String()),
		zap.Bool("auth", cfg.Password != ""),
	)

	if s.config.Advertise {
		authMode := "basic"
		if cfg.Password == "" {
			authMode = "none"
		}
		ad, err := discovery.Advertise("", port, []string{
			"version=" + version.Version,
			"auth=" + authMode,
			"path=/config",
		})
		if err != nil {
			logging.Warn("mDNS advertisement failed", zap.Error(err))
		} else {
			s.ad = ad
		}
	}

	go s.acceptLoop(listener, s.done)
	return nil
}

// Addr returns the bound address, or nil when not running.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Running reports whether the accept loop is active.
func (s *Server) Running() bool {
	return s.enabled.Load()
}

// Stop clears the enabled flag and waits for the accept loop to notice it,
// which takes at most one accept timeout plus any request in progress.
func (s *Server) Stop() {
	s.mu.Lock()
	done := s.done
	ad := s.ad
	s.ad = nil
	s.mu.Unlock()

	if done == nil {
		return
	}
	s.enabled.Store(false)
	ad.Shutdown()
	<-done
}

// Wait blocks until the accept loop exits or ctx ends.
func (s *Server) Wait(ctx context.Context) error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) acceptLoop(listener *net.TCPListener, done chan struct{}) {
	defer func() {
		_ = listener.Close()
		s.mu.Lock()
		s.listener = nil
		s.done = nil
		s.mu.Unlock()
		close(done)
		logging.Info("Config server stopped")
	}()

	for s.enabled.Load() {
		if err := listener.SetDeadline(time.Now().Add(s.config.AcceptTimeout)); err != nil {
			logging.Error("Failed to set accept deadline", zap.Error(err))
			return
		}
		conn, err := listener.AcceptTCP()
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			logging.Error("Failed to accept connection", zap.Error(err))
			continue
		}
		s.handleConnection(conn)
	}
}

// handleConnection reads one request, writes one response and closes.
func (s *Server) handleConnection(conn net.Conn) {
	remoteAddr := conn.RemoteAddr().String()
	defer func() {
		_ = conn.Close()
		logging.LogConnection(remoteAddr, "connection_closed")
	}()
	logging.LogConnection(remoteAddr, "connection_accepted")

	if err := conn.SetDeadline(time.Now().Add(s.config.ReadTimeout)); err != nil {
		logging.Error("Failed to set read deadline", zap.String("remote_addr", remoteAddr), zap.Error(err))
		return
	}

	req, err := ReadRequest(bufio.NewReader(conn), s.config.MaxBody)
	if err != nil {
		var ne net.Error
		if errors.Is(err, io.EOF) || (errors.As(err, &ne) && ne.Timeout()) {
			logging.Debug("Client went away before sending a request",
				zap.String("remote_addr", remoteAddr),
				zap.Error(err),
			)
			return
		}
		reqErr := classify(err)
		logging.Warn("Rejected malformed config request",
			zap.String("remote_addr", remoteAddr),
			zap.Error(reqErr),
		)
		s.write(conn, remoteAddr, textResponse(reqErr.Status, "Error: "+reqErr.Msg))
		return
	}

	logging.LogHTTPRequest(remoteAddr, req.Method, req.Target, req.Headers)
	logging.LogRawBytes("request body", req.Body)

	// The setup cycle may outlast the read deadline.
	_ = conn.SetDeadline(time.Time{})
	resp := s.handler.Handle(s.config.Context, req)
	_ = conn.SetWriteDeadline(time.Now().Add(s.config.ReadTimeout))
	s.write(conn, remoteAddr, resp)
}

func (s *Server) write(conn net.Conn, remoteAddr string, resp *Response) {
	if _, err := resp.WriteTo(conn); err != nil {
		logging.Error("Failed to write response",
			zap.String("remote_addr", remoteAddr),
			zap.Error(err),
		)
		return
	}
	logging.LogHTTPResponse(remoteAddr, resp.Status, len(resp.Body))
}
