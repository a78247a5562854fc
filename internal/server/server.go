// Package server exposes a trained tokenizer over HTTP. It only ever wraps
// a finished model, so request handlers run concurrently without locking.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/example/go-pocket-bpe/internal/bpe"
	"github.com/example/go-pocket-bpe/internal/config"
)

// ParseLogLevel converts a case-insensitive level string to slog.Level.
// An empty string returns slog.LevelInfo. Unknown strings return an error.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q (want debug|info|warn|error)", s)
	}
}

// Codec is the tokenizer surface the HTTP handlers consume.
type Codec interface {
	Encode(text string, allowedSpecial []string) ([]int, error)
	Decode(ids []int) (string, error)
	VocabSize() int
	MergesCount() int
}

// ---------------------------------------------------------------------------
// Functional options
// ---------------------------------------------------------------------------

type options struct {
	maxTextBytes int
	workers      int
	logger       *slog.Logger
}

func defaultOptions() options {
	return options{
		maxTextBytes: 65536,
		workers:      2,
		logger:       slog.Default(),
	}
}

// Option configures the HTTP handler.
type Option func(*options)

// WithMaxTextBytes sets the maximum allowed text length in bytes for POST /encode.
func WithMaxTextBytes(n int) Option {
	return func(o *options) { o.maxTextBytes = n }
}

// WithWorkers sets the maximum number of concurrent encode/decode calls.
// Zero disables throttling.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithLogger sets the slog.Logger used for request logging.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// ---------------------------------------------------------------------------
// handler
// ---------------------------------------------------------------------------

// handler holds the dependencies needed to serve HTTP requests.
type handler struct {
	codec Codec
	opts  options
	sem   chan struct{} // semaphore for worker pool
	log   *slog.Logger
}

// NewHandler returns an http.Handler serving /health, /model, POST /encode,
// and POST /decode over the given tokenizer.
func NewHandler(codec Codec, optFns ...Option) http.Handler {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	h := &handler{
		codec: codec,
		opts:  opts,
		log:   opts.logger,
	}
	if opts.workers > 0 {
		h.sem = make(chan struct{}, opts.workers)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/model", h.handleModel)
	mux.HandleFunc("/encode", h.handleEncode)
	mux.HandleFunc("/decode", h.handleDecode)
	return mux
}

func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func (h *handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildVersion(),
	})
}

func (h *handler) handleModel(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{
		"vocab_size":   h.codec.VocabSize(),
		"merges_count": h.codec.MergesCount(),
	})
}

type encodeRequest struct {
	Text           string   `json:"text"`
	AllowedSpecial []string `json:"allowed_special"`
}

type encodeResponse struct {
	IDs []int `json:"ids"`
}

func (h *handler) handleEncode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req encodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	if len(req.Text) > h.opts.maxTextBytes {
		writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("text exceeds maximum size of %d bytes", h.opts.maxTextBytes))
		return
	}

	if !h.acquire(w, r) {
		return
	}
	defer h.release()

	start := time.Now()
	ids, err := h.codec.Encode(req.Text, req.AllowedSpecial)
	durationMS := time.Since(start).Milliseconds()

	if err != nil {
		status := tokenizeErrorStatus(err)
		h.log.WarnContext(r.Context(), "encode failed",
			slog.Int("text_len", len(req.Text)),
			slog.Int64("duration_ms", durationMS),
			slog.String("error", err.Error()),
		)
		writeError(w, status, err.Error())
		return
	}

	h.log.InfoContext(r.Context(), "encode complete",
		slog.Int("text_len", len(req.Text)),
		slog.Int("token_count", len(ids)),
		slog.Int64("duration_ms", durationMS),
	)

	writeJSON(w, http.StatusOK, encodeResponse{IDs: ids})
}

type decodeRequest struct {
	IDs []int `json:"ids"`
}

type decodeResponse struct {
	Text string `json:"text"`
}

func (h *handler) handleDecode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req decodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	if !h.acquire(w, r) {
		return
	}
	defer h.release()

	start := time.Now()
	text, err := h.codec.Decode(req.IDs)
	durationMS := time.Since(start).Milliseconds()

	if err != nil {
		h.log.WarnContext(r.Context(), "decode failed",
			slog.Int("token_count", len(req.IDs)),
			slog.Int64("duration_ms", durationMS),
			slog.String("error", err.Error()),
		)
		writeError(w, tokenizeErrorStatus(err), err.Error())
		return
	}

	h.log.InfoContext(r.Context(), "decode complete",
		slog.Int("token_count", len(req.IDs)),
		slog.Int("text_len", len(text)),
		slog.Int64("duration_ms", durationMS),
	)

	writeJSON(w, http.StatusOK, decodeResponse{Text: text})
}

// acquire takes a worker slot, honouring context cancellation while waiting.
// It reports false after writing an error response.
func (h *handler) acquire(w http.ResponseWriter, r *http.Request) bool {
	if h.sem == nil {
		return true
	}
	select {
	case h.sem <- struct{}{}:
		return true
	case <-r.Context().Done():
		writeError(w, http.StatusServiceUnavailable, "request cancelled while waiting for worker")
		return false
	}
}

func (h *handler) release() {
	if h.sem != nil {
		<-h.sem
	}
}

// tokenizeErrorStatus maps tokenizer error kinds to HTTP statuses. Inputs
// the model cannot represent are client errors; anything else is a server
// fault.
func tokenizeErrorStatus(err error) int {
	var charErr *bpe.CharNotFoundError
	var spErr *bpe.SpecialTokenError
	var idErr *bpe.TokenIDError

	switch {
	case errors.As(err, &charErr), errors.As(err, &spErr), errors.As(err, &idErr):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// ---------------------------------------------------------------------------
// Server — wires handler into net/http.Server with graceful shutdown
// ---------------------------------------------------------------------------

// Server wires the HTTP handler into a net/http.Server with graceful shutdown.
type Server struct {
	cfg             config.Config
	codec           Codec
	shutdownTimeout time.Duration
}

func New(cfg config.Config, codec Codec) *Server {
	return &Server{
		cfg:             cfg,
		codec:           codec,
		shutdownTimeout: 30 * time.Second,
	}
}

// WithShutdownTimeout overrides the graceful-shutdown drain period.
func (s *Server) WithShutdownTimeout(d time.Duration) *Server {
	s.shutdownTimeout = d
	return s
}

func (s *Server) Start(ctx context.Context) error {
	h := NewHandler(s.codec,
		WithWorkers(s.cfg.Server.Workers),
		WithMaxTextBytes(s.cfg.Server.MaxTextBytes),
	)

	httpServer := &http.Server{
		Addr:              s.cfg.Server.ListenAddr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return fmt.Errorf("http listen: %w", err)
	}
}

func ProbeHTTP(addr string) error {
	resp, err := http.Get("http://" + addr + "/health") //nolint:noctx
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected health status: %s", resp.Status)
	}
	return nil
}
