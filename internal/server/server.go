// Package server serves a generated gallery over HTTP and answers selective-export requests.
package server

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/didip/tollbooth/v7"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/net/netutil"

	"github.com/mydehq/imgpack/internal/export"
	"github.com/mydehq/imgpack/internal/manifest"
	"github.com/mydehq/imgpack/internal/types"
)

const (
	ExportPath = "/download-zip"
	HealthPath = "/healthz"

	shutdownTimeout = 5 * time.Second
	maxFormSize     = 1 << 20
)

// Options configures the preview server.
type Options struct {
	Addr       string
	MaxConns   int     // 0 = unlimited
	ExportRate float64 // exports per second per client, 0 = unlimited
}

// Server serves one gallery directory.
type Server struct {
	dir     string
	media   string
	opts    Options
	logger  *log.Logger
	handler http.Handler
}

// New returns a server for the gallery rooted at dir.
func New(dir string, opts Options, logger *log.Logger) *Server {
	s := &Server{
		dir:    dir,
		media:  filepath.Join(dir, manifest.MediaDir),
		opts:   opts,
		logger: logger,
	}
	s.handler = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	rtr := mux.NewRouter()

	var exportHandler http.Handler = http.HandlerFunc(s.handleExport)
	if s.opts.ExportRate > 0 {
		limiter := tollbooth.NewLimiter(s.opts.ExportRate, nil)
		limiter.SetIPLookups([]string{"X-Forwarded-For", "X-Real-IP", "RemoteAddr"})
		limiter.SetTokenBucketExpirationTTL(time.Hour)
		limiter.SetBurst(int(math.Max(1, math.Ceil(s.opts.ExportRate))))
		limiter.SetMessage("too many export requests, slow down")
		limiter.SetMessageContentType("text/plain; charset=utf-8")
		exportHandler = tollbooth.LimitHandler(limiter, exportHandler)
	}

	rtr.Handle(ExportPath, exportHandler).Methods(http.MethodPost)
	rtr.HandleFunc(HealthPath, s.handleHealth).Methods(http.MethodGet, http.MethodHead)
	rtr.PathPrefix("/").Handler(http.FileServer(http.Dir(s.dir))).Methods(http.MethodGet, http.MethodHead)
	return s.securityHeaders(s.logRequests(rtr))
}

// Listen binds the configured address, bounding concurrent connections when configured.
func (s *Server) Listen() (net.Listener, error) {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", s.opts.Addr, err)
	}
	if s.opts.MaxConns > 0 {
		ln = netutil.LimitListener(ln, s.opts.MaxConns)
	}
	return ln, nil
}

// Run listens and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := s.Listen()
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("Serving gallery", "url", "http://"+ln.Addr().String(), "dir", s.dir)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.Debug("Server stopped")
	return nil
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()
	w.Header().Set("X-Request-Id", id)
	logger := s.logger.With("request", id)

	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if err := r.ParseMultipartForm(maxFormSize); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		logger.Warn("Bad export form", "err", err)
		http.Error(w, "invalid form: "+err.Error(), http.StatusBadRequest)
		return
	}
	values, ok := r.PostForm["files"]
	if !ok || len(values) == 0 {
		http.Error(w, "missing files field", http.StatusBadRequest)
		return
	}

	sel, err := export.ParseSelection(values[0])
	if err != nil {
		logger.Warn("Bad export selection", "err", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	data, err := export.ArchiveSelection(s.media, sel)
	if err != nil {
		var archiveErr types.ErrArchive
		if errors.As(err, &archiveErr) {
			logger.Error("Export failed", "path", archiveErr.Path, "err", archiveErr.Err)
		} else {
			logger.Error("Export failed", "err", err)
		}
		http.Error(w, "failed to build archive", http.StatusInternalServerError)
		return
	}

	logger.Info("Exported selection", "requested", len(sel), "bytes", len(data))
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.SelectionFilename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("Request", "method", r.Method, "path", r.URL.Path, "took", time.Since(start))
	})
}
