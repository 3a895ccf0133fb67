// Package server runs the HTTP endpoint exposing metrics and pool status,
// together with the background daemons of the process.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caasmo/litepool/config"
	"github.com/caasmo/litepool/log"
	"golang.org/x/sync/errgroup"
)

// Daemon is a background component started before the server listens and
// stopped during the graceful shutdown.
type Daemon interface {
	Name() string
	Start() error
	Stop(ctx context.Context) error
}

type Server struct {
	provider *config.Provider
	handler  http.Handler
	logger   *slog.Logger
	reload   func() error
	daemons  []Daemon
	fmt      *log.MessageFormatter

	addr  string
	ready chan struct{}
}

// NewServer creates a server reading its address and shutdown timeout from
// the metrics section. reload is called on SIGHUP.
func NewServer(provider *config.Provider, handler http.Handler, logger *slog.Logger, reload func() error) *Server {
	return &Server{
		provider: provider,
		handler:  handler,
		logger:   logger,
		reload:   reload,
		fmt:      log.NewMessageFormatter().WithComponent("server", "🌐"),
		ready:    make(chan struct{}),
	}
}

func (s *Server) AddDaemon(d Daemon) {
	s.daemons = append(s.daemons, d)
}

// Ready is closed once the server is listening.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the listening address. Only valid after Ready.
func (s *Server) Addr() string {
	return s.addr
}

// Run starts the daemons and the HTTP server and blocks until SIGINT,
// SIGTERM, SIGQUIT or a server error. It returns the process exit code.
func (s *Server) Run() int {
	cfg := s.provider.Get().Metrics

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	started := make([]Daemon, 0, len(s.daemons))
	for _, d := range s.daemons {
		if err := d.Start(); err != nil {
			s.logger.Error(s.fmt.Fail("daemon failed to start"), "daemon", d.Name(), "err", err)
			s.stopDaemons(started, cfg.ShutdownTimeout.Duration)
			return 1
		}
		started = append(started, d)
	}

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		s.logger.Error(s.fmt.Fail("listen failed"), "addr", cfg.Addr, "err", err)
		s.stopDaemons(started, cfg.ShutdownTimeout.Duration)
		return 1
	}
	s.addr = ln.Addr().String()

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 2 * time.Second,
		IdleTimeout:       time.Minute,
	}

	serverError := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			serverError <- err
		}
	}()
	s.logger.Info(s.fmt.Active("listening"), "addr", s.addr)
	close(s.ready)

	code := 0
wait:
	for {
		select {
		case <-ctx.Done():
			s.logger.Info(s.fmt.Start("received shutdown signal, gracefully shutting down"))
			break wait
		case <-hup:
			s.logger.Info("received SIGHUP, reloading configuration")
			if err := s.reload(); err != nil {
				s.logger.Error(s.fmt.Warn("reload failed, keeping current configuration"), "err", err)
			}
		case err := <-serverError:
			s.logger.Error(s.fmt.Fail("server error, initiating shutdown"), "err", err)
			code = 1
			break wait
		}
	}

	timeout := s.provider.Get().Metrics.ShutdownTimeout.Duration
	gracefulCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	g, _ := errgroup.WithContext(gracefulCtx)
	g.Go(func() error {
		if err := srv.Shutdown(gracefulCtx); err != nil {
			s.logger.Error("HTTP server shutdown error", "err", err)
			return err
		}
		return nil
	})
	for _, d := range started {
		g.Go(func() error {
			if err := d.Stop(gracefulCtx); err != nil {
				s.logger.Error("daemon shutdown error", "daemon", d.Name(), "err", err)
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.logger.Error(s.fmt.Fail("error during shutdown"), "err", err)
		return 1
	}
	s.logger.Info(s.fmt.Complete("all systems stopped gracefully"))
	return code
}

// stopDaemons stops daemons in reverse start order.
func (s *Server) stopDaemons(daemons []Daemon, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	for i := len(daemons) - 1; i >= 0; i-- {
		if err := daemons[i].Stop(ctx); err != nil {
			s.logger.Error("daemon shutdown error", "daemon", daemons[i].Name(), "err", err)
		}
	}
}
