package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docmodel/internal/core/domain"
	"github.com/custodia-labs/docmodel/internal/core/ports/driving"
	"github.com/custodia-labs/docmodel/internal/logger"
)

// Version is the MCP server version.
const Version = "0.1.0"

// Server is the MCP server for docmodel. Documents opened through the
// open_document tool stay referenced until close_document or Close.
type Server struct {
	ports  *Ports
	server *mcp.Server

	mu   sync.Mutex
	open map[domain.ResourceID]driving.Reference
}

// NewServer creates a new MCP server with the given ports.
func NewServer(ports *Ports) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}

	impl := &mcp.Implementation{
		Name:    "docmodel",
		Version: Version,
	}

	s := &Server{
		ports:  ports,
		server: mcp.NewServer(impl, nil),
		open:   make(map[domain.ResourceID]driving.Reference),
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Run starts the MCP server over stdio.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Run(ctx context.Context) error {
	defer s.Close()
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP starts the MCP server over HTTP on the specified address.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	defer s.Close()

	handler := mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown when context is cancelled
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background()) //nolint:errcheck
	}()

	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Close releases every document still open.
func (s *Server) Close() {
	s.mu.Lock()
	open := s.open
	s.open = make(map[domain.ResourceID]driving.Reference)
	s.mu.Unlock()

	for id, ref := range open {
		if err := ref.Release(); err != nil {
			logger.Warn("mcp: releasing %s: %v", id, err)
		}
	}
}

// hold keeps ref open under id. A second open of the same id keeps the
// first reference and releases the new one.
func (s *Server) hold(id domain.ResourceID, ref driving.Reference) driving.Document {
	s.mu.Lock()
	existing, ok := s.open[id]
	if !ok {
		s.open[id] = ref
	}
	s.mu.Unlock()

	if ok {
		ref.Release() //nolint:errcheck // duplicate handle
		return existing.Document()
	}
	return ref.Document()
}

// document returns the open document for id.
func (s *Server) document(id domain.ResourceID) (driving.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref, ok := s.open[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotOpen, id)
	}
	return ref.Document(), nil
}

// release drops the reference held for id.
func (s *Server) release(id domain.ResourceID) error {
	s.mu.Lock()
	ref, ok := s.open[id]
	delete(s.open, id)
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrNotOpen, id)
	}
	return ref.Release()
}
