package main

import (
	"context"
	"encoding/json"
	"errors"
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

	"github.com/sells-group/formfill-cli/internal/fetcher"
	"github.com/sells-group/formfill-cli/internal/formdata"
	"github.com/sells-group/formfill-cli/internal/model"
	"github.com/sells-group/formfill-cli/internal/monitoring"
	"github.com/sells-group/formfill-cli/internal/pipeline"
	"github.com/sells-group/formfill-cli/internal/store"
)

const maxRequestBytes = 1 << 20

var servePort int

// formRunner is the part of the pipeline the HTTP API drives.
type formRunner interface {
	Run(ctx context.Context, formURL string) (*model.RunResult, error)
	Inspect(ctx context.Context, formURL string) (*model.RunResult, error)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the pre-fill HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, envOptions{mode: "serve"})
		if err != nil {
			return err
		}
		defer env.Close()

		if env.Store != nil {
			checker := monitoring.NewChecker(
				monitoring.NewCollector(env.Store),
				monitoring.NewAlerter(cfg.Monitoring),
				cfg.Monitoring,
				monitoring.WithCachePruner(env.Store),
			)
			go checker.Run(ctx)
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           buildRouter(env.Pipeline, env.Store),
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

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// buildRouter wires the API routes. st may be nil, in which case the run
// history endpoints answer 503.
func buildRouter(runner formRunner, st store.Store) http.Handler {
	h := &apiHandler{runner: runner, store: st}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/prefill", h.prefill)
		r.Post("/inspect", h.inspect)
		r.Get("/runs", h.listRuns)
		r.Get("/runs/{id}", h.getRun)
	})
	return r
}

type apiHandler struct {
	runner formRunner
	store  store.Store
}

type formRequest struct {
	URL string `json:"url"`
}

func (h *apiHandler) decodeForm(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req formRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return "", false
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return "", false
	}
	return req.URL, true
}

func (h *apiHandler) prefill(w http.ResponseWriter, r *http.Request) {
	formURL, ok := h.decodeForm(w, r)
	if !ok {
		return
	}
	result, err := h.runner.Run(r.Context(), formURL)
	if err != nil {
		h.fail(w, r, formURL, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *apiHandler) inspect(w http.ResponseWriter, r *http.Request) {
	formURL, ok := h.decodeForm(w, r)
	if !ok {
		return
	}
	result, err := h.runner.Inspect(r.Context(), formURL)
	if err != nil {
		h.fail(w, r, formURL, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *apiHandler) listRuns(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusServiceUnavailable, "run history is disabled")
		return
	}

	q := r.URL.Query()
	filter := store.RunFilter{
		Status:  model.RunStatus(q.Get("status")),
		FormURL: q.Get("form_url"),
	}
	for key, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		if v := q.Get(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				writeError(w, http.StatusBadRequest, key+" must be a non-negative integer")
				return
			}
			*dst = n
		}
	}

	runs, err := h.store.ListRuns(r.Context(), filter)
	if err != nil {
		zap.L().Error("api: list runs failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list runs failed")
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (h *apiHandler) getRun(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusServiceUnavailable, "run history is disabled")
		return
	}

	id := chi.URLParam(r, "id")
	run, err := h.store.GetRun(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		zap.L().Error("api: get run failed", zap.String("run_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "get run failed")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (h *apiHandler) fail(w http.ResponseWriter, r *http.Request, formURL string, err error) {
	status := statusFor(err)
	zap.L().Warn("api: request failed",
		zap.String("path", r.URL.Path),
		zap.String("form_url", formURL),
		zap.Int("status", status),
		zap.Error(err),
	)
	writeError(w, status, err.Error())
}

// statusFor maps pipeline failures to HTTP status codes.
func statusFor(err error) int {
	var se *pipeline.StageError
	var pe *formdata.SchemaParseError
	switch {
	case errors.As(err, &se) && se.Stage == pipeline.StageURL:
		return http.StatusBadRequest
	case errors.Is(err, fetcher.ErrRestrictedForm),
		errors.Is(err, fetcher.ErrFormClosed),
		errors.Is(err, formdata.ErrSchemaNotFound),
		errors.As(err, &pe):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case se != nil && se.Stage == pipeline.StageFetch:
		return http.StatusBadGateway
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

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
