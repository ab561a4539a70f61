// Package server exposes the gain solver over HTTP for browser front ends.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/san-kum/lqrdrive/internal/control"
	"github.com/san-kum/lqrdrive/internal/plant"
)

const (
	DefaultQ = 10.0
	DefaultR = 1.0

	shutdownTimeout = 5 * time.Second
	maxBodyBytes    = 1 << 16
)

// SolveRequest carries the weights to solve for. Missing fields take
// DefaultQ and DefaultR.
type SolveRequest struct {
	Q *float64 `json:"q"`
	R *float64 `json:"r"`
}

type SolveResponse struct {
	K        []float64 `json:"K"`
	Q        float64   `json:"q"`
	R        float64   `json:"r"`
	Fallback bool      `json:"fallback"`
	Reason   string    `json:"reason,omitempty"`
}

// Server answers gain requests for the normalized steering model. Each
// request gets its own tuner, so requests share no state.
type Server struct {
	tuning control.TunerConfig
	logger *log.Logger
	srv    *http.Server
}

func New(addr string, tuning control.TunerConfig, logger *log.Logger) (*Server, error) {
	if err := tuning.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{tuning: tuning, logger: logger}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s, nil
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/solve_lqr", s.solveHandler)
	mux.HandleFunc("OPTIONS /api/solve_lqr", s.preflightHandler)
	return mux
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("gain service listening", "addr", ln.Addr().String())
		errc <- s.srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("shutdown failed, closing", "err", err)
		return s.srv.Close()
	}
	s.logger.Info("gain service stopped")
	return nil
}

func cors(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type")
}

func (s *Server) preflightHandler(w http.ResponseWriter, r *http.Request) {
	cors(w)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) solveHandler(w http.ResponseWriter, r *http.Request) {
	cors(w)

	var req SolveRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.logger.Debug("bad solve request", "remote", r.RemoteAddr, "err", err)
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	cfg := s.tuning
	cfg.Q, cfg.R = DefaultQ, DefaultR
	if req.Q != nil {
		cfg.Q = *req.Q
	}
	if req.R != nil {
		cfg.R = *req.R
	}

	tuner, err := control.NewTuner(plant.NewNormalized(), cfg)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	res := tuner.Gain()
	q, rw := tuner.Weights()

	resp := SolveResponse{K: res.Gain(), Q: q, R: rw, Fallback: res.Degraded()}
	if res.Reason != nil {
		resp.Reason = res.Reason.Error()
	}
	s.logger.Debug("solved", "q", q, "r", rw, "K", resp.K, "fallback", resp.Fallback)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("write response", "err", err)
	}
}
