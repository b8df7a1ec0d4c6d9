package gateway

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	reuseport "github.com/kavu/go_reuseport"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var ErrNotStarted = errors.New("Gateway was not started")

// Server exposes a Device and a catalog Store over HTTP.
type Server struct {
	addr      string
	reuseport bool

	router *gin.Engine
	http   *http.Server

	mu       sync.Mutex
	listener net.Listener
	done     chan struct{}

	h   *handlers
	log *zap.Logger
}

func New(options Options) *Server {
	log := options.Log
	if log == nil {
		log = zap.NewNop()
	}

	s := &Server{
		addr:      net.JoinHostPort(options.Host, strconv.Itoa(options.Port)),
		reuseport: options.Reuseport,
		done:      make(chan struct{}),
		h: &handlers{
			store:  options.Store,
			device: options.Device,
			log:    log.Named("handlers"),
		},
		log: log,
	}

	s.router = setupRouter(options.DebugHTTP, log)
	s.h.register(s.router)

	s.http = &http.Server{
		Handler: s.router,
	}

	return s
}

// Handler returns the router, mostly useful for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins listening and serves requests in the background until ctx is
// done or Shutdown/Close is called.
func (s *Server) Start(ctx context.Context) error {
	listener, err := s.listen()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	s.log.Info("Listening", zap.String("addr", listener.Addr().String()), zap.Bool("reuseport", s.reuseport))

	// Initializing the server in a goroutine so that
	// it won't block the graceful shutdown handling
	go func() {
		defer close(s.done)

		if err := s.http.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("Http server errored", zap.Error(err))
		}
	}()

	go func() {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := s.Shutdown(shutdownCtx); err != nil {
				s.log.Warn("Gateway did not shut down cleanly", zap.Error(err))
			}

		case <-s.done:
		}
	}()

	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil
	}

	return s.listener.Addr()
}

// Shutdown stops accepting requests and waits for in flight ones to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.Addr() == nil {
		return ErrNotStarted
	}

	s.http.SetKeepAlivesEnabled(false)

	return s.http.Shutdown(ctx)
}

// Close immediately closes the listener and all connections along with the
// catalog store.
//
// For a graceful shutdown, use Shutdown()
func (s *Server) Close() (err error) {
	s.log.Info("Stopping gateway")

	if s.Addr() != nil {
		err = multierr.Append(err, s.http.Close())
	}

	if s.h.store != nil {
		err = multierr.Append(err, s.h.store.Close())
	}

	return err
}

func (s *Server) listen() (net.Listener, error) {
	if s.reuseport {
		return reuseport.Listen("tcp", s.addr)
	}

	return net.Listen("tcp", s.addr)
}

func setupRouter(debugHTTP bool, log *zap.Logger) *gin.Engine {
	gin.DisableConsoleColor()
	if !debugHTTP {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Logs all requests, like a combined access and error log, in UTC RFC3339
	r.Use(ginzap.GinzapWithConfig(log, &ginzap.Config{
		TimeFormat: time.RFC3339,
		UTC:        true,
		SkipPaths:  []string{"/ping"},
	}))

	// Logs all panic to error log
	//   - stack means whether output the stack info.
	r.Use(ginzap.RecoveryWithZap(log, true))

	return r
}
