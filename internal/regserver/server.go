// SPDX-License-Identifier: MPL-2.0

package regserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Bakobiibizo/module-validator-rust/pkg/types"
)

// DefaultAddr is the listen address used when Config.Addr is empty.
const DefaultAddr = "127.0.0.1:8080"

type (
	// Registry is the read side of the registrar the server exposes.
	Registry interface {
		ListModules() []string
		EncodedEntry(name types.ModuleName) (string, error)
		PublicKey() (string, error)
	}

	// Config configures a Server.
	Config struct {
		Addr     string
		Registry Registry
		Logger   *log.Logger
	}

	// Server serves a Registry over HTTP.
	Server struct {
		cfg    Config
		logger *log.Logger

		state   atomic.Int32
		stateMu sync.Mutex
		lastErr error

		httpSrv  *http.Server
		listener net.Listener
		wg       sync.WaitGroup
		errCh    chan error
	}
)

// New creates a server in the Created state.
func New(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	s := &Server{cfg: cfg, logger: logger, errCh: make(chan error, 1)}
	s.state.Store(int32(StateCreated))
	return s
}

// State returns the current lifecycle state.
func (s *Server) State() State { return State(s.state.Load()) }

// Err delivers a serve failure after the server was running.
func (s *Server) Err() <-chan error { return s.errCh }

// LastError returns the error that moved the server to Failed, or nil.
func (s *Server) LastError() error {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.lastErr
}

// Addr returns the bound listen address once running, else the configured
// address.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.cfg.Addr
}

// URL returns the base URL clients pass to registrar.Fetch.
func (s *Server) URL() string { return "http://" + s.Addr() }

// Start binds the listener and serves in the background. It returns once
// the server accepts connections.
func (s *Server) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		s.fail(fmt.Errorf("context cancelled before start: %w", err))
		return s.LastError()
	}
	if !s.state.CompareAndSwap(int32(StateCreated), int32(StateStarting)) {
		return fmt.Errorf("cannot start server in state %s", s.State())
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Addr)
	if err != nil {
		s.fail(fmt.Errorf("listen on %s: %w", s.cfg.Addr, err))
		return s.LastError()
	}
	s.listener = ln
	s.httpSrv = &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.fail(fmt.Errorf("serve: %w", err))
		}
	}()

	s.state.CompareAndSwap(int32(StateStarting), int32(StateRunning))
	s.logger.Info("registry server listening", "addr", s.Addr())
	return nil
}

// Stop shuts the server down gracefully, waiting for in-flight requests
// until ctx expires. Stopping a server that never started marks it stopped.
func (s *Server) Stop(ctx context.Context) error {
	for {
		cur := s.State()
		switch cur {
		case StateStopped, StateFailed, StateStopping:
			return nil
		case StateCreated:
			if s.state.CompareAndSwap(int32(StateCreated), int32(StateStopped)) {
				return nil
			}
			continue
		}
		if s.state.CompareAndSwap(int32(cur), int32(StateStopping)) {
			break
		}
	}

	err := s.httpSrv.Shutdown(ctx)
	s.wg.Wait()
	s.state.Store(int32(StateStopped))
	s.logger.Info("registry server stopped")
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) fail(err error) {
	s.stateMu.Lock()
	s.lastErr = err
	s.stateMu.Unlock()
	s.state.Store(int32(StateFailed))
	select {
	case s.errCh <- err:
	default:
	}
}
