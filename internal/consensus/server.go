// Package consensus provides the socket-based ABCI server and the Tendermint
// RPC broadcast client. The node runs the ABCI server on a Unix socket;
// Tendermint runs as a separate process, connects over the socket, and feeds
// the application one confirmed transaction at a time. This repository never
// implements consensus or peer networking itself; it only defines the state
// transition function behind the socket.
package consensus

import (
	"fmt"
	"os"
	"strings"

	abciserver "github.com/tendermint/tendermint/abci/server"
	abci "github.com/tendermint/tendermint/abci/types"
	"github.com/tendermint/tendermint/libs/service"
)

// Server wraps an ABCI socket server.
type Server struct {
	server service.Service
	socket string
}

// NewServer creates a socket-based ABCI server for the given application.
// The server is created but not started; call Start to begin listening.
func NewServer(app abci.Application, socketAddr string) (*Server, error) {
	if app == nil {
		return nil, fmt.Errorf("ABCI application cannot be nil")
	}
	if socketAddr == "" {
		return nil, fmt.Errorf("socket address cannot be empty")
	}
	return &Server{
		server: abciserver.NewSocketServer(socketAddr, app),
		socket: socketAddr,
	}, nil
}

// Start begins listening on the socket for Tendermint connections.
func (s *Server) Start() error {
	if err := s.server.Start(); err != nil {
		return fmt.Errorf("failed to start ABCI server: %w", err)
	}
	return nil
}

// Stop shuts down the server and removes the socket file.
func (s *Server) Stop() error {
	if s.server.IsRunning() {
		if err := s.server.Stop(); err != nil {
			return fmt.Errorf("failed to stop ABCI server: %w", err)
		}
	}
	path := strings.TrimPrefix(s.socket, "unix://")
	if _, err := os.Stat(path); err == nil {
		os.Remove(path)
	}
	return nil
}

// IsRunning reports whether the server is running.
func (s *Server) IsRunning() bool {
	return s.server.IsRunning()
}
