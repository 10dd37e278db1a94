package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/dmitrymomot/tenantguard/pkg/logger"
)

// ShutdownHook releases a resource during graceful shutdown, e.g. draining
// the audit queue.
type ShutdownHook func(ctx context.Context) error

type config struct {
	addr              string
	listener          net.Listener
	readHeaderTimeout time.Duration
	readTimeout       time.Duration
	writeTimeout      time.Duration
	idleTimeout       time.Duration
	shutdownTimeout   time.Duration
	logger            *slog.Logger
	hooks             []ShutdownHook
}

// Server runs an http.Server until its context ends, then shuts down
// gracefully and runs the shutdown hooks in order. Hooks also run when the
// server fails to serve.
type Server struct {
	cfg *config
}

func New(opts ...Option) *Server {
	cfg := &config{
		addr:            ":8080",
		shutdownTimeout: 10 * time.Second,
		logger:          logger.Discard(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Server{cfg: cfg}
}

// Run blocks until ctx is done or the server fails. Cancel ctx (for example
// with signal.NotifyContext) to stop it.
func (s *Server) Run(ctx context.Context, handler http.Handler) error {
	cfg := s.cfg
	srv := &http.Server{
		Addr:              cfg.addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.readHeaderTimeout,
		ReadTimeout:       cfg.readTimeout,
		WriteTimeout:      cfg.writeTimeout,
		IdleTimeout:       cfg.idleTimeout,
		ErrorLog:          slog.NewLogLogger(cfg.logger.Handler(), slog.LevelError),
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	ln := cfg.listener
	if ln == nil {
		var err error
		if ln, err = net.Listen("tcp", cfg.addr); err != nil {
			return errors.Join(append([]error{ErrStart, err}, s.runHooks(ctx)...)...)
		}
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	cfg.logger.InfoContext(ctx, "http server started", logger.Component("httpserver"), slog.String("addr", ln.Addr().String()))

	var errs []error
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, errors.Join(ErrStart, err))
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.shutdownTimeout)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, errors.Join(ErrShutdown, err))
		}
		cancel()
		<-errCh
	}

	errs = append(errs, s.runHooks(ctx)...)
	cfg.logger.InfoContext(ctx, "http server stopped", logger.Component("httpserver"))
	return errors.Join(errs...)
}

// runHooks gives the hooks their own shutdown budget, independent of the
// time srv.Shutdown spent draining connections.
func (s *Server) runHooks(ctx context.Context) []error {
	if len(s.cfg.hooks) == 0 {
		return nil
	}
	hookCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.shutdownTimeout)
	defer cancel()

	var errs []error
	for _, hook := range s.cfg.hooks {
		if err := hook(hookCtx); err != nil {
			errs = append(errs, errors.Join(ErrShutdown, err))
		}
	}
	return errs
}
