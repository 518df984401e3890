// Package server exposes the bridge over HTTP for tools that cannot speak
// native messaging.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/byteowlz/pagebridge/internal/messaging"
	"github.com/byteowlz/pagebridge/internal/page"
)

// FetchAttempts is the default number of tries /fetch-html makes before failing
const FetchAttempts = 3

// PageFetcher loads a page for /fetch-html
type PageFetcher interface {
	FetchWithRetry(ctx context.Context, url string, opts page.Options, attempts int) (*page.Document, error)
}

type Options struct {
	Addr          string
	FetchOpts     page.Options
	FetchAttempts int
	ReadTimeout   time.Duration
}

type Server struct {
	bus     *messaging.Bus
	fetcher PageFetcher
	logger  *zap.Logger
	opts    Options
	mux     *http.ServeMux
}

type extractRequest struct {
	Mode string `json:"mode"`
}

type fetchRequest struct {
	URL string `json:"url"`
}

type fetchResponse struct {
	HTML string `json:"html"`
	URL  string `json:"url"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func New(bus *messaging.Bus, fetcher PageFetcher, logger *zap.Logger, opts Options) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.FetchAttempts <= 0 {
		opts.FetchAttempts = FetchAttempts
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 30 * time.Second
	}
	s := &Server{
		bus:     bus,
		fetcher: fetcher,
		logger:  logger,
		opts:    opts,
		mux:     http.NewServeMux(),
	}
	s.mux.HandleFunc("POST /extract", s.handleExtract)
	s.mux.HandleFunc("POST /fetch-html", s.handleFetchHTML)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe serves until ctx is done, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.mux,
		ReadHeaderTimeout: s.opts.ReadTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http bridge listening", zap.String("addr", s.opts.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Detail: "invalid request body"})
		return
	}

	sender := messaging.Sender{ID: uuid.NewString(), Origin: r.RemoteAddr}
	res, err := s.bus.SendMessage(r.Context(), messaging.Message{
		Action: messaging.ActionExtractContent,
		Mode:   req.Mode,
	}, sender)
	if err != nil {
		s.logger.Warn("extract request unanswered", zap.String("request_id", sender.ID), zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Detail: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, res.Response)
}

func (s *Server) handleFetchHTML(w http.ResponseWriter, r *http.Request) {
	var req fetchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !validURL(req.URL) {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Detail: "invalid url"})
		return
	}

	doc, err := s.fetcher.FetchWithRetry(r.Context(), req.URL, s.opts.FetchOpts, s.opts.FetchAttempts)
	if err != nil {
		s.logger.Error("failed to fetch page", zap.String("url", req.URL), zap.Error(err))
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, fetchResponse{HTML: doc.HTML, URL: doc.URL})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func validURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
