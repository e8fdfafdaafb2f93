package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/gogpu/sdftext"
	"github.com/gogpu/sdftext/atlas"
)

const (
	defaultAddr        = ":8080"
	maxRequestBytes    = 1 << 20
	defaultRenderLimit = 30 * time.Second
	shutdownTimeout    = 10 * time.Second
)

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	addr    string
	timeout time.Duration
}

// serveCommand creates the serve command running the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	opts := serveOpts{addr: defaultAddr, timeout: defaultRenderLimit}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve render requests and atlas textures over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), &opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", opts.addr, "listen address")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", opts.timeout, "per-request render timeout")
	return cmd
}

func (c *CLI) runServe(ctx context.Context, opts *serveOpts) error {
	logger := loggerFromContext(ctx)

	r, cleanup, err := c.newRenderer(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	srv := &http.Server{
		Addr:              opts.addr,
		Handler:           newServer(r, logger).routes(opts.timeout),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("Listening", "addr", opts.addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// server exposes a renderer over HTTP.
type server struct {
	renderer *sdftext.Renderer
	logger   *log.Logger
}

func newServer(r *sdftext.Renderer, logger *log.Logger) *server {
	return &server{renderer: r, logger: logger}
}

// routes builds the router:
//
//	POST /render              render a JSON sdftext.Request, reply with the render info
//	GET  /atlas.png?font=&size=  current atlas texture for a key
//	GET  /atlases             statistics of every atlas
//	GET  /healthz             liveness and renderer statistics
func (s *server) routes(timeout time.Duration) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestSize(maxRequestBytes))
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Get("/atlases", s.handleAtlases)
	r.Get("/atlas.png", s.handleAtlasPNG)
	r.With(middleware.Timeout(timeout)).Post("/render", s.handleRender)
	return r
}

func (s *server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed", time.Since(start).Round(time.Microsecond),
			"id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := s.renderer.Stats()
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"renders":    st.Renders,
		"failures":   st.Failures,
		"lanes":      st.Lanes,
		"liveLanes":  st.LiveLanes,
		"dispatched": st.Dispatched,
		"atlases":    len(st.Atlases),
		"cache": map[string]uint64{
			"hits":   st.Cache.Hits,
			"misses": st.Cache.Misses,
			"errors": st.Cache.Errors,
		},
	})
}

// atlasSummary is the JSON form of atlas.Stats.
type atlasSummary struct {
	FontURL   string `json:"font"`
	GlyphSize int    `json:"size"`
	Glyphs    int    `json:"glyphs"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
}

func (s *server) handleAtlases(w http.ResponseWriter, r *http.Request) {
	stats := s.renderer.Stats().Atlases
	out := make([]atlasSummary, len(stats))
	for i, st := range stats {
		out[i] = atlasSummary{
			FontURL:   st.Key.FontURL,
			GlyphSize: st.Key.GlyphSize,
			Glyphs:    st.Glyphs,
			Width:     st.Width,
			Height:    st.Height,
			Hits:      st.Hits,
			Misses:    st.Misses,
		}
	}
	writeJSONResponse(w, http.StatusOK, out)
}

func (s *server) handleAtlasPNG(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	size, err := strconv.Atoi(q.Get("size"))
	if err != nil || q.Get("font") == "" {
		writeError(w, http.StatusBadRequest, errors.New("font and size query parameters are required"))
		return
	}
	a := s.renderer.Atlas(atlas.Key{FontURL: q.Get("font"), GlyphSize: size})
	if a == nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("no atlas for %s@%d", q.Get("font"), size))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := png.Encode(w, a.Image()); err != nil {
		s.logger.Warn("Encoding atlas failed", "err", err)
	}
}

func (s *server) handleRender(w http.ResponseWriter, r *http.Request) {
	var req sdftext.Request
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	info, err := s.renderer.Render(r.Context(), req)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("Render failed", "err", err, "id", middleware.GetReqID(r.Context()))
		}
		writeError(w, status, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, info)
}

// statusFor maps render errors to HTTP status codes.
func statusFor(err error) int {
	var cfgErr *sdftext.ConfigError
	var tooLarge *atlas.TextureTooLargeError
	switch {
	case errors.Is(err, sdftext.ErrInvalidRequest), errors.Is(err, sdftext.ErrInvalidColor), errors.As(err, &cfgErr):
		return http.StatusBadRequest
	case errors.As(err, &tooLarge):
		return http.StatusInsufficientStorage
	case errors.Is(err, sdftext.ErrRendererClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSONResponse(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSONResponse(w, status, map[string]string{"error": err.Error()})
}
