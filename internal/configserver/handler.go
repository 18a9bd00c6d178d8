package configserver

import (
	"context"
	_ "embed"
	"fmt"
	"sync"

	"github.com/muurk/wifiman/internal/logging"
	"github.com/muurk/wifiman/internal/networks"
	"go.uber.org/zap"
)

//go:embed editor.html
var editorPage []byte

// Setupper runs a setup cycle after a document update.
type Setupper interface {
	Setup(ctx context.Context) bool
}

// Handler routes parsed requests.
type Handler struct {
	Path  string
	Store networks.Store
	Setup Setupper

	mu       sync.RWMutex
	password string
}

// NewHandler serves the document at path from store.
func NewHandler(path string, store networks.Store, setup Setupper, password string) *Handler {
	return &Handler{Path: path, Store: store, Setup: setup, password: password}
}

// SetPassword replaces the credentials. Empty disables authentication.
func (h *Handler) SetPassword(password string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.password = password
}

func (h *Handler) currentPassword() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.password
}

// Handle produces the response for req. Panics become 500 responses.
func (h *Handler) Handle(ctx context.Context, req *Request) (resp *Response) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Config request handler panicked", zap.Any("panic", r))
			resp = textResponse(StatusInternalServerError, fmt.Sprintf("Error: %v", r))
		}
	}()

	if !authorized(req.Header("Authorization"), h.currentPassword()) {
		logging.Warn("Rejected unauthenticated config request",
			zap.String("method", req.Method),
			zap.String("path", req.Path),
		)
		return challenge()
	}

	switch {
	case req.Method == "GET" && (req.Path == "/" || req.Path == "/index"):
		return &Response{
			Status:  StatusOK,
			Headers: []header{{"Content-Type", "text/html; charset=utf-8"}},
			Body:    editorPage,
		}
	case req.Method == "GET" && req.Path == "/config":
		return h.getConfig()
	case req.Method == "POST" && req.Path == "/config":
		return h.postConfig(ctx, req.Body)
	default:
		return textResponse(StatusNotFound, "Not found")
	}
}

func (h *Handler) getConfig() *Response {
	data, err := h.Store.Read(h.Path)
	if err != nil {
		logging.Error("Failed to read network config", zap.Error(err))
		return textResponse(StatusInternalServerError, fmt.Sprintf("Error: %v", err))
	}
	return &Response{
		Status:  StatusOK,
		Headers: []header{{"Content-Type", "application/json"}},
		Body:    data,
	}
}

func (h *Handler) postConfig(ctx context.Context, body []byte) *Response {
	if err := networks.CheckSections(body); err != nil {
		return textResponse(StatusBadRequest, fmt.Sprintf("Error: %v", err))
	}

	if err := h.Store.Write(h.Path, body); err != nil {
		logging.Error("Failed to write network config", zap.Error(err))
		return textResponse(StatusInternalServerError, fmt.Sprintf("Error: %v", err))
	}
	logging.Info("Network config replaced", zap.Int("bytes", len(body)))

	if h.Setup != nil {
		if !h.Setup.Setup(ctx) {
			logging.Warn("Setup after config update did not connect")
		}
	}
	return textResponse(StatusOK, "Configuration updated")
}
