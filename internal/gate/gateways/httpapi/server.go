// Package httpapi exposes the evaluation pipeline over HTTP. It is the sole
// integration point for the submission pipeline that hosts the gate: one
// code string in, a pass-through signal or refusal message out.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/quellen/codegate/internal/gate/common/log"
	"github.com/quellen/codegate/internal/gate/domain"
	"github.com/quellen/codegate/internal/gate/services/refusal"
)

// Service is the evaluation seam the gateway delegates to.
type Service interface {
	Evaluate(ctx context.Context, code string) domain.Decision
}

// RuleInfo reports rule set metadata for the health endpoint.
type RuleInfo interface {
	Len() int
	Version() uint64
}

// Server handles evaluation requests over HTTP. It owns socket management
// and JSON framing while delegating all policy logic to the service layer.
type Server struct {
	addr     string
	svc      Service
	renderer *refusal.Renderer
	rules    RuleInfo
	maxBody  int64
	logger   log.Logger

	// Synchronization for graceful shutdown
	mu       sync.Mutex
	running  bool
	listener net.Listener
	httpSrv  *http.Server
}

// NewServer creates a new evaluation gateway bound to addr. maxInput is the
// evaluator's submission size limit; request bodies are capped slightly above
// it so oversized submissions are cut off at the socket instead of being
// materialized in memory before the guard refuses them. The headroom covers
// JSON framing and escaping of the code field. maxInput <= 0 leaves the body
// unbounded.
func NewServer(addr string, svc Service, renderer *refusal.Renderer, rules RuleInfo, maxInput int, logger log.Logger) *Server {
	var maxBody int64
	if maxInput > 0 {
		maxBody = int64(maxInput)*2 + 1024
	}
	return &Server{
		addr:     addr,
		svc:      svc,
		renderer: renderer,
		rules:    rules,
		maxBody:  maxBody,
		logger:   logger,
	}
}

// evaluateRequest is the wire shape of one submission.
type evaluateRequest struct {
	Code string `json:"code"`
}

// evaluateResponse is the wire shape of one decision. Message is empty for
// allow verdicts; RuleIDs lists triggering rules in registry order.
type evaluateResponse struct {
	Verdict string   `json:"verdict"`
	Message string   `json:"message,omitempty"`
	RuleIDs []string `json:"rule_ids,omitempty"`
}

// Start binds the listener and begins serving requests. It returns once the
// listener is up; serving continues in the background until Stop.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("http gateway already running")
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", s.addr, err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/evaluate", s.handleEvaluate)
	mux.HandleFunc("/healthz", s.handleHealth)

	s.listener = ln
	s.httpSrv = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.running = true

	s.logger.Info(map[string]any{
		"transport": "http",
		"address":   ln.Addr().String(),
	}, "evaluation gateway started")

	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error(map[string]any{"error": err.Error()}, "gateway serve failed")
		}
	}()

	return nil
}

// Stop gracefully shuts down the gateway.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	err := s.httpSrv.Shutdown(ctx)
	s.logger.Info(map[string]any{
		"transport": "http",
		"address":   s.addr,
	}, "evaluation gateway stopped")
	return err
}

// Address returns the network address the gateway is bound to. Before Start
// it is the configured address; after Start it is the resolved listen address.
func (s *Server) Address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// handleEvaluate decodes one submission, runs the pipeline, and writes the
// decision. Malformed requests are client errors; evaluation itself cannot
// fail (guard errors surface as refuse decisions).
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body := r.Body
	if s.maxBody > 0 {
		body = http.MaxBytesReader(w, r.Body, s.maxBody)
	}

	var req evaluateRequest
	dec := json.NewDecoder(body)
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.logger.Warn(map[string]any{
				"client": r.RemoteAddr,
				"limit":  tooLarge.Limit,
			}, "evaluate request body too large")
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		s.logger.Warn(map[string]any{
			"client": r.RemoteAddr,
			"error":  err.Error(),
		}, "failed to decode evaluate request")
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	d := s.svc.Evaluate(r.Context(), req.Code)
	msg, refused := s.renderer.Render(d)

	resp := evaluateResponse{Verdict: d.Verdict.String()}
	if refused {
		resp.Message = msg
		resp.RuleIDs = d.RuleIDs()
	}

	s.logger.Debug(map[string]any{
		"client":      r.RemoteAddr,
		"verdict":     resp.Verdict,
		"rules":       resp.RuleIDs,
		"content_len": len(req.Code),
	}, "evaluation served")

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error(map[string]any{
			"client": r.RemoteAddr,
			"error":  err.Error(),
		}, "failed to encode evaluate response")
	}
}

// handleHealth reports liveness plus rule set metadata.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"rules":   s.rules.Len(),
		"version": fmt.Sprintf("%016x", s.rules.Version()),
	})
}
