package status

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hupe1980/trainmesh/core"
	"github.com/hupe1980/trainmesh/logging"
)

// Source provides the snapshots served by the handler.
type Source interface {
	Active() []core.RunningJob
	Results() []core.JobResult
}

type jobsResponse struct {
	Active int               `json:"active"`
	Jobs   []core.RunningJob `json:"jobs"`
}

type resultsResponse struct {
	Recorded int              `json:"recorded"`
	Results  []core.JobResult `json:"results"`
}

// NewHandler builds the status routes.
func NewHandler(src Source) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/jobs", func(w http.ResponseWriter, _ *http.Request) {
		jobs := src.Active()
		if jobs == nil {
			jobs = []core.RunningJob{}
		}
		writeJSON(w, http.StatusOK, jobsResponse{Active: len(jobs), Jobs: jobs})
	})
	r.Get("/results", func(w http.ResponseWriter, _ *http.Request) {
		results := src.Results()
		if results == nil {
			results = []core.JobResult{}
		}
		writeJSON(w, http.StatusOK, resultsResponse{Recorded: len(results), Results: results})
	})
	r.Get("/results/{name}", func(w http.ResponseWriter, req *http.Request) {
		name := chi.URLParam(req, "name")
		for _, res := range src.Results() {
			if res.Name == name {
				writeJSON(w, http.StatusOK, res)
				return
			}
		}
		writeError(w, http.StatusNotFound, "no result for job "+name)
	})
	return r
}

// Serve runs an HTTP server on addr until ctx ends.
func Serve(ctx context.Context, addr string, handler http.Handler, logger logging.Logger) error {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("Status endpoint listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
