package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/partsight/inspect-cli/internal/feedback"
	"github.com/partsight/inspect-cli/internal/model"
	"github.com/partsight/inspect-cli/internal/monitoring"
	"github.com/partsight/inspect-cli/internal/pipeline"
	"github.com/partsight/inspect-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server for inspection requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		e, err := initEnv(ctx, nil)
		if err != nil {
			return err
		}
		defer e.Close()

		checker := monitoring.NewChecker(e.Collector, e.Alerter, cfg.Monitoring)
		go checker.Run(ctx)

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))

		r.Get("/health", handleHealth)
		r.Post("/inspect", handleInspect(ctx, e))
		r.Post("/feedback", handleFeedback(e))
		r.Get("/jobs", handleListJobs(e))
		r.Get("/jobs/{id}", handleGetJob(e))
		r.Get("/metrics", handleMetrics(e))

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx) //nolint:errcheck // best effort on exit
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleInspect accepts a photo pair and runs the analysis asynchronously.
// The request context dies with the connection, so the background work runs
// on the server's lifetime context instead.
func handleInspect(serverCtx context.Context, e *env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ReferencePath string `json:"reference_path"`
			PartPath      string `json:"part_path"`
			PartType      string `json:"part_type"`
			Complexity    string `json:"complexity"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.ReferencePath == "" || req.PartPath == "" {
			writeError(w, http.StatusBadRequest, "reference_path and part_path are required")
			return
		}
		complexity := model.Complexity(req.Complexity)
		if req.Complexity == "" {
			complexity = model.ComplexityModerate
		} else if !complexity.Valid() {
			writeError(w, http.StatusBadRequest, "unknown complexity")
			return
		}

		go func() {
			analysis, err := e.Pipeline.AnalyzePair(serverCtx, pipeline.Request{
				ReferencePath: req.ReferencePath,
				PartPath:      req.PartPath,
				PartType:      req.PartType,
				Complexity:    complexity,
			})
			if err != nil {
				zap.L().Error("async inspection failed",
					zap.String("part", req.PartPath),
					zap.Error(err),
				)
				return
			}
			zap.L().Info("async inspection complete",
				zap.String("analysis_id", analysis.ID),
				zap.String("status", string(analysis.Status)),
			)
		}()

		writeJSON(w, http.StatusAccepted, map[string]string{
			"status": "accepted",
			"part":   req.PartPath,
		})
	}
}

func handleFeedback(e *env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			AnalysisID         string   `json:"analysis_id"`
			Satisfaction       int      `json:"satisfaction"`
			AccuracyRating     int      `json:"accuracy_rating"`
			ReportedConfidence float64  `json:"reported_confidence"`
			ActualConfidence   float64  `json:"actual_confidence"`
			Comments           string   `json:"comments"`
			ReportedIssues     []string `json:"reported_issues"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		fb, err := e.Feedback.Collect(r.Context(), feedback.CollectParams{
			AnalysisID:         req.AnalysisID,
			Satisfaction:       req.Satisfaction,
			AccuracyRating:     req.AccuracyRating,
			ReportedConfidence: req.ReportedConfidence,
			ActualConfidence:   req.ActualConfidence,
			Comments:           req.Comments,
			ReportedIssues:     req.ReportedIssues,
		})
		if err != nil {
			var vErr *model.ValidationError
			if eris.As(err, &vErr) {
				writeError(w, http.StatusBadRequest, vErr.Error())
				return
			}
			zap.L().Error("feedback collect failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to record feedback")
			return
		}
		writeJSON(w, http.StatusCreated, fb)
	}
}

func handleListJobs(e *env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobs, err := e.Store.ListJobs(r.Context(), store.JobFilter{
			Status: model.JobStatus(r.URL.Query().Get("status")),
			Limit:  50,
		})
		if err != nil {
			zap.L().Error("list jobs failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to list jobs")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
	}
}

func handleGetJob(e *env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := e.Store.GetJob(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		writeJSON(w, http.StatusOK, job)
	}
}

func handleMetrics(e *env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lookback := cfg.Monitoring.LookbackHours
		if lookback <= 0 {
			lookback = 24
		}
		snap, err := e.Collector.Collect(r.Context(), lookback)
		if err != nil {
			zap.L().Error("collect metrics failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to collect metrics")
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // response already committed
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
