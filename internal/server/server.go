// Package server serves cluster snapshots over HTTP: the topology-data
// document the charts consume, a websocket stream of changes and the
// prometheus metrics.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"kube-topology/internal/config"
	"kube-topology/internal/logger"
	"kube-topology/internal/metrics"
	"kube-topology/internal/source"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	writeWait       = 10 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Server polls a source and serves the latest snapshot.
type Server struct {
	source   source.Source
	cfg      config.ServerConfig
	log      *logrus.Entry
	metrics  *metrics.Registry
	router   *gin.Engine
	upgrader websocket.Upgrader

	refreshMu sync.Mutex

	mu      sync.RWMutex
	current []byte
	version uint64
	subs    map[chan []byte]struct{}
	closing chan struct{}
	closed  bool
}

// New creates a server for src. m may be nil, in which case /metrics
// serves an empty registry.
func New(src source.Source, cfg config.ServerConfig, log *logrus.Entry, m *metrics.Registry) *Server {
	s := &Server{
		source:  src,
		cfg:     cfg,
		log:     logger.OrDiscard(log).WithField("component", "server"),
		metrics: m,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		subs:    make(map[chan []byte]struct{}),
		closing: make(chan struct{}),
	}
	s.router = s.setupRouter()
	return s
}

func (s *Server) setupRouter() *gin.Engine {
	if !s.log.Logger.IsLevelEnabled(logrus.DebugLevel) {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	registry := metrics.NewRegistry()
	if s.metrics != nil {
		registry = s.metrics
	}
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry.GetPrometheusRegistry(), promhttp.HandlerOpts{})))

	api := router.Group("/api")
	{
		v1 := api.Group("/v1")
		{
			v1.GET("/topology-data", s.topologyData)
			v1.GET("/topology-data/watch", s.watchTopology)
		}
	}

	return router
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).Debug("request")
	}
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Version returns how many distinct snapshots have been published.
func (s *Server) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Refresh fetches a snapshot and publishes it if it differs from the
// current one.
func (s *Server) Refresh(ctx context.Context) (bool, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	snap, err := s.source.Snapshot(ctx)
	if err != nil {
		s.metrics.RecordRefresh("error")
		return false, fmt.Errorf("failed to refresh snapshot from %s: %w", s.source.Name(), err)
	}
	if err := snap.Validate(); err != nil {
		s.metrics.RecordRefresh("error")
		return false, fmt.Errorf("failed to refresh snapshot from %s: %w", s.source.Name(), err)
	}
	snap.Normalize()

	data, err := json.Marshal(snap)
	if err != nil {
		s.metrics.RecordRefresh("error")
		return false, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	s.mu.Lock()
	if bytes.Equal(data, s.current) {
		s.mu.Unlock()
		s.metrics.RecordRefresh("unchanged")
		return false, nil
	}
	s.current = data
	s.version++
	for ch := range s.subs {
		publish(ch, data)
	}
	version := s.version
	s.mu.Unlock()

	s.metrics.RecordRefresh("changed")
	s.log.WithFields(logrus.Fields{
		"version": version,
		"items":   snap.Items.Len(),
	}).Info("published snapshot")
	return true, nil
}

// publish replaces whatever update ch still holds with data.
func publish(ch chan []byte, data []byte) {
	for {
		select {
		case ch <- data:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

func (s *Server) subscribe() (<-chan []byte, []byte, func()) {
	ch := make(chan []byte, 1)

	s.mu.Lock()
	s.subs[ch] = struct{}{}
	current := s.current
	s.mu.Unlock()
	s.metrics.WatchClientConnected(1)

	return ch, current, func() {
		s.mu.Lock()
		delete(s.subs, ch)
		s.mu.Unlock()
		s.metrics.WatchClientConnected(-1)
	}
}

func (s *Server) snapshot(ctx context.Context) ([]byte, error) {
	s.mu.RLock()
	current := s.current
	s.mu.RUnlock()
	if current != nil {
		return current, nil
	}

	if _, err := s.Refresh(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, nil
}

func (s *Server) topologyData(c *gin.Context) {
	data, err := s.snapshot(c.Request.Context())
	if err != nil {
		s.log.WithError(err).Warn("serving topology data")
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/json", data)
}

func (s *Server) watchTopology(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.WithError(err).Warn("upgrading topology watch")
		return
	}
	defer conn.Close()

	updates, current, unsubscribe := s.subscribe()
	defer unsubscribe()

	if current == nil {
		if data, err := s.snapshot(c.Request.Context()); err == nil {
			current = data
		}
	}
	// Subscribing first means a refresh triggered by snapshot above also
	// queues its data on updates; last drops that copy.
	last := current
	if last != nil {
		if err := write(conn, last); err != nil {
			return
		}
	}

	// The client never sends anything; reading only detects the close.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case <-s.closing:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeWait))
			return
		case data := <-updates:
			if bytes.Equal(data, last) {
				continue
			}
			if err := write(conn, data); err != nil {
				return
			}
			last = data
		}
	}
}

func write(conn *websocket.Conn, data []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

// Poll refreshes the snapshot every poll interval, and whenever a watching
// source reports a change, until ctx is done.
func (s *Server) Poll(ctx context.Context) error {
	trigger := make(chan struct{}, 1)
	if w, ok := s.source.(source.Watcher); ok {
		err := w.Watch(ctx, func() {
			select {
			case trigger <- struct{}{}:
			default:
			}
		})
		if err != nil {
			s.log.WithError(err).Warn("source cannot be watched, polling only")
		}
	}

	if _, err := s.Refresh(ctx); err != nil {
		s.log.WithError(err).Warn("initial snapshot")
	}

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-trigger:
		}
		if _, err := s.Refresh(ctx); err != nil {
			s.log.WithError(err).Warn("refreshing snapshot")
		}
	}
}

// Run serves on the configured address and polls the source until ctx is
// done, then shuts the HTTP server down.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: writeWait,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.Poll(ctx)
	})
	g.Go(func() error {
		s.log.WithField("addr", s.cfg.Addr).Info("serving topology data")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		s.close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func (s *Server) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.closing)
	}
}
