package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lightlink-network/ll-bridge-relayer/database/models"
	"github.com/lightlink-network/ll-bridge-relayer/relayer"
)

type StatusProvider interface {
	Status() relayer.Status
}

// MintReader serves archived prepared mints.
type MintReader interface {
	GetPreparedMints(ctx context.Context, filter models.Filter, page, pageSize int64) (*models.PaginatedResult, error)
	GetPreparedMintByNonce(ctx context.Context, sourceNonce string) (models.PreparedMint, error)
}

// API server
type Server struct {
	r      chi.Router
	log    *slog.Logger
	status StatusProvider
	mints  MintReader
	opts   ServerOpts
}

type ServerOpts struct {
	Logger *slog.Logger
	Port   string
	Status StatusProvider
	Mints  MintReader // optional, mint endpoints answer 503 without it
}

// Create API server
func NewServer(opts ServerOpts) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &Server{
		log:    opts.Logger,
		status: opts.Status,
		mints:  opts.Mints,
		opts:   opts,
	}
	s.routes()
	return s
}

// StartServer listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) StartServer(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.opts.Port,
		Handler:           s.r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Error("server shutdown error", "error", err)
		}
	}()

	s.log.Info("📡 Server Started. API Server is now listening on http://localhost:" + s.opts.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Turns server into http server
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.r.ServeHTTP(w, r)
}

// Returns JSON response to the API user. HTTP status code
// and data must be provided
func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.WriteHeader(statusCode)
	err := json.NewEncoder(w).Encode(data)
	if err != nil {
		fmt.Fprintf(w, "%s", err.Error())
	}
}

// Returns ann error to the API user
func ERROR(w http.ResponseWriter, statusCode int, err error) {
	w.WriteHeader(statusCode)
	err = json.NewEncoder(w).Encode(map[string]interface{}{"error": err.Error()})
	if err != nil {
		fmt.Fprintf(w, "%s", err.Error())
	}
}
