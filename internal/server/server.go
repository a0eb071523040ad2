// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

// Package server exposes the system statistics accessors as a JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/akyoto/cache"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-logr/logr"

	"github.com/antimetal/procstat/pkg/procps"
	"github.com/antimetal/procstat/pkg/sysinfo"
)

// NeverExpires is the TTL of responses that cannot change while the process runs.
const NeverExpires = 100 * 365 * 24 * time.Hour

// NoCache disables caching for a route. Any negative TTL has the same effect.
const NoCache time.Duration = -1

// Config controls how long each response is cached. A zero TTL selects the default,
// a negative one turns caching off for that route.
type Config struct {
	MemInfoTTL  time.Duration
	LoadInfoTTL time.Duration
	UptimeTTL   time.Duration
	StatTTL     time.Duration
	DiskStatTTL time.Duration
	// ShutdownTimeout bounds how long Start waits for in-flight requests.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns the standard TTLs.
func DefaultConfig() Config {
	return Config{
		MemInfoTTL:      time.Second,
		LoadInfoTTL:     time.Minute,
		UptimeTTL:       time.Second,
		StatTTL:         time.Second,
		DiskStatTTL:     time.Second,
		ShutdownTimeout: 5 * time.Second,
	}
}

// ApplyDefaults fills in zero values with defaults
func (c *Config) ApplyDefaults() {
	defaults := DefaultConfig()

	if c.MemInfoTTL == 0 {
		c.MemInfoTTL = defaults.MemInfoTTL
	}
	if c.LoadInfoTTL == 0 {
		c.LoadInfoTTL = defaults.LoadInfoTTL
	}
	if c.UptimeTTL == 0 {
		c.UptimeTTL = defaults.UptimeTTL
	}
	if c.StatTTL == 0 {
		c.StatTTL = defaults.StatTTL
	}
	if c.DiskStatTTL == 0 {
		c.DiskStatTTL = defaults.DiskStatTTL
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = defaults.ShutdownTimeout
	}
}

// Validate checks if the configuration is valid
func (c Config) Validate() error {
	if c.ShutdownTimeout < 0 {
		return fmt.Errorf("ShutdownTimeout must not be negative, got %s", c.ShutdownTimeout)
	}
	return nil
}

// Server serves the statistics of one session.
type Server struct {
	config  Config
	logger  logr.Logger
	session *procps.Session
	reader  *sysinfo.Reader
	cache   *cache.Cache
	router  chi.Router
	marshal func(any) ([]byte, error)
}

// New builds a Server over session.
func New(logger logr.Logger, session *procps.Session, config Config) (*Server, error) {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server config: %w", err)
	}

	logger = logger.WithName("server")
	s := &Server{
		config:  config,
		logger:  logger,
		session: session,
		reader:  sysinfo.NewReader(session, logger),
		cache:   cache.New(time.Minute),
		marshal: json.Marshal,
	}
	s.router = s.routes()
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start listens on addr and blocks until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	defer s.cache.Close()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// requestLogger logs one line per request at V(1).
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.logger.V(1).Info("Request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"requestID", middleware.GetReqID(r.Context()),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}
