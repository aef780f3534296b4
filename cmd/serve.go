package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/research-verify/internal/config"
	"github.com/sells-group/research-verify/internal/metrics"
	"github.com/sells-group/research-verify/internal/model"
)

var servePort int

// researcher is the subset of research.Pipeline used by the HTTP surface.
type researcher interface {
	Research(ctx context.Context, query string, maxResults int) ([]model.Article, error)
	ClearCache(ctx context.Context) error
}

type articleLister interface {
	All() []model.Article
}

type historyStore interface {
	ListResearch(ctx context.Context, limit int) ([]model.ResearchRecord, error)
	ClearResearch(ctx context.Context) (int, error)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the research HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}

		env, err := initEnv(ctx, config.ModeServe)
		if err != nil {
			return err
		}
		defer env.Close()

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           buildRouter(env.Pipeline, env.Cache, env.Store, env.Metrics, cfg.Research.MaxResults),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

type researchRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type researchResponse struct {
	Results []model.Article `json:"results"`
	Error   string          `json:"error,omitempty"`
}

func buildRouter(rs researcher, cached articleLister, hist historyStore, m *metrics.Metrics, defaultMax int) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", m.Handler())

	r.Post("/research", func(w http.ResponseWriter, req *http.Request) {
		var body researchRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, researchResponse{Results: []model.Article{}, Error: "invalid request body"})
			return
		}
		body.Query = model.SearchRequest{Query: body.Query}.Normalize().Query
		if body.Query == "" {
			writeJSON(w, http.StatusBadRequest, researchResponse{Results: []model.Article{}, Error: "query is required"})
			return
		}
		if body.MaxResults <= 0 {
			body.MaxResults = defaultMax
		}

		articles, err := rs.Research(req.Context(), body.Query, body.MaxResults)
		if err != nil {
			zap.L().Error("research request failed", zap.String("query", body.Query), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, researchResponse{Results: []model.Article{}, Error: err.Error()})
			return
		}
		if articles == nil {
			articles = []model.Article{}
		}
		writeJSON(w, http.StatusOK, researchResponse{Results: articles})
	})

	r.Get("/cache", func(w http.ResponseWriter, _ *http.Request) {
		articles := cached.All()
		writeJSON(w, http.StatusOK, map[string]any{"count": len(articles), "articles": articles})
	})
	r.Delete("/cache", func(w http.ResponseWriter, req *http.Request) {
		if err := rs.ClearCache(req.Context()); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "cache_cleared"})
	})

	r.Get("/history", func(w http.ResponseWriter, req *http.Request) {
		limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
		recs, err := hist.ListResearch(req.Context(), limit)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if recs == nil {
			recs = []model.ResearchRecord{}
		}
		writeJSON(w, http.StatusOK, recs)
	})
	r.Delete("/history", func(w http.ResponseWriter, req *http.Request) {
		n, err := hist.ClearResearch(req.Context())
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "history_cleared", "deleted": n})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("write response failed", zap.Error(err))
	}
}
