package webhook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/pithecene-io/segwire/transport"
)

// DefaultPath is the default request path served by Server.
const DefaultPath = "/units"

// DefaultMaxBodySize bounds a single unit request body (1 MiB).
const DefaultMaxBodySize = 1 << 20

// DefaultShutdownTimeout bounds graceful shutdown of the HTTP server.
const DefaultShutdownTimeout = 5 * time.Second

// ServerConfig configures the webhook receiver.
type ServerConfig struct {
	// Addr is the listen address (required), e.g. ":8080" or "127.0.0.1:0".
	Addr string
	// Path is the request path (default /units).
	Path string
	// MaxBodySize bounds each request body in bytes (default 1 MiB).
	MaxBodySize int64
	// ShutdownTimeout bounds graceful shutdown (default 5s).
	ShutdownTimeout time.Duration
}

// Server receives units over HTTP.
type Server struct {
	config ServerConfig
}

// NewServer creates a webhook receiver from the given config.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Addr == "" {
		return nil, errors.New("webhook server requires a listen address")
	}
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = DefaultMaxBodySize
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	return &Server{config: cfg}, nil
}

// Subscribe binds the listen address. Requests are served once Run is called.
func (s *Server) Subscribe(_ context.Context) (transport.Subscription, error) {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return nil, fmt.Errorf("webhook: listen %s: %w", s.config.Addr, err)
	}
	return &Subscription{config: s.config, ln: ln}, nil
}

// Subscription serves one bound listener.
type Subscription struct {
	config ServerConfig
	ln     net.Listener
	once   sync.Once
}

// Addr returns the bound listen address.
func (s *Subscription) Addr() net.Addr {
	return s.ln.Addr()
}

// Run serves requests until ctx is canceled or h fails.
// A handler failure is answered with 500 and ends Run with that error.
func (s *Subscription) Run(ctx context.Context, h transport.Handler) error {
	failed := make(chan error, 1)
	guarded := func(ctx context.Context, unit string) error {
		err := h(ctx, unit)
		if err != nil {
			select {
			case failed <- err:
			default:
			}
		}
		return err
	}

	mux := http.NewServeMux()
	mux.Handle(s.config.Path, NewHandler(guarded, s.config.MaxBodySize))
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(s.ln)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-failed:
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("webhook: serve: %w", err)
		}
		return transport.ErrClosed
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("webhook: shutdown: %w", err)
	}
	return runErr
}

// Close releases the listener. Safe to call after Run has returned.
func (s *Subscription) Close() error {
	var err error
	s.once.Do(func() {
		if cerr := s.ln.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
			err = cerr
		}
	})
	return err
}

// NewHandler returns an http.Handler that passes each POST body to h as one
// unit. Responds 204 on success, 405 for other methods, 413 for bodies over
// maxBody, and 500 when h fails.
func NewHandler(h transport.Handler, maxBody int64) http.Handler {
	if maxBody <= 0 {
		maxBody = DefaultMaxBodySize
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				http.Error(w, "unit too large", http.StatusRequestEntityTooLarge)
				return
			}
			http.Error(w, "read body", http.StatusBadRequest)
			return
		}

		if err := h(r.Context(), string(body)); err != nil {
			http.Error(w, "unit not accepted", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

var (
	_ transport.Subscriber   = (*Server)(nil)
	_ transport.Subscription = (*Subscription)(nil)
)
