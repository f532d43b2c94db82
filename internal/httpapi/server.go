package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"launcherd/internal/launcher"
	"launcherd/internal/monitor"
	"launcherd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Tools() []types.Tool
	Status() types.StatusResponse
	StartInstance(tool string) (int, error)
	StartInstanceWith(tool string, command []string, dir string) (int, error)
	StopInstance(tool string, index int) error
	RemoveInstance(tool string, index int) error
	InstanceStatus(tool string, index int) (types.InstanceStatus, error)
	Output(tool string, index int, f launcher.Filter) ([]types.OutputEntry, error)
	ClearOutput(tool string, index int) error
	VRAMSummary() types.VRAMSummary
	VRAMHistory() []types.VRAMSample
	Ready() bool
}

// startRequest optionally overrides the cataloged command for one start.
type startRequest struct {
	Command []string `json:"command,omitempty"`
	WorkDir string   `json:"work_dir,omitempty"`
}

// mapError translates launcher errors to HTTP status codes.
func mapError(err error) int {
	var he HTTPError
	if errors.As(err, &he) {
		return he.StatusCode()
	}
	switch {
	case launcher.IsNotFound(err):
		return http.StatusNotFound
	case launcher.IsSpawn(err):
		return http.StatusUnprocessableEntity
	case monitor.IsBackendUnavailable(err):
		return http.StatusServiceUnavailable
	case launcher.IsStop(err):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
	}
}

// indexParam parses the {index} URL parameter.
func indexParam(r *http.Request) (int, bool) {
	idx, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || idx < 0 {
		return 0, false
	}
	return idx, true
}

func logRequest(r *http.Request, what string, status int, start time.Time, err error) {
	if requestLogLevel(r) < LevelInfo {
		return
	}
	if zlog != nil {
		z := zlog.Info().Str("path", r.URL.Path).Int("status", status).Dur("dur", time.Since(start))
		if rid := middleware.GetReqID(r.Context()); rid != "" {
			z = z.Str("request_id", rid)
		}
		if err != nil {
			z = z.Err(err)
		}
		z.Msg(what)
		return
	}
	log.Printf("%s path=%s status=%d dur=%s err=%v", what, r.URL.Path, status, time.Since(start), err)
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	r.Use(MetricsMiddleware)
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}))
	}

	r.Get("/tools", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, types.ToolsResponse{Tools: svc.Tools()})
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, svc.Status())
	})

	r.Post("/instances/{tool}/start", func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		tool := chi.URLParam(r, "tool")
		var req startRequest
		if r.ContentLength > 0 {
			ct := r.Header.Get("Content-Type")
			if ct != "" && !strings.HasPrefix(strings.ToLower(ct), "application/json") {
				writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
				return
			}
		}

		var (
			idx int
			err error
		)
		if len(req.Command) > 0 {
			idx, err = svc.StartInstanceWith(tool, req.Command, req.WorkDir)
		} else {
			idx, err = svc.StartInstance(tool)
		}
		if err != nil {
			status := mapError(err)
			writeJSONError(w, status, err.Error())
			logRequest(r, "instance start", status, start, err)
			return
		}
		resp := types.StartResponse{Tool: tool, Index: idx}
		if is, err := svc.InstanceStatus(tool, idx); err == nil {
			resp.PID = is.PID
		}
		writeJSON(w, resp)
		logRequest(r, "instance start", http.StatusOK, start, nil)
	})

	r.Post("/instances/{tool}/{index}/stop", func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		tool := chi.URLParam(r, "tool")
		idx, ok := indexParam(r)
		if !ok {
			writeJSONError(w, http.StatusBadRequest, "invalid instance index")
			return
		}
		if err := svc.StopInstance(tool, idx); err != nil {
			status := mapError(err)
			writeJSONError(w, status, err.Error())
			logRequest(r, "instance stop", status, start, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		logRequest(r, "instance stop", http.StatusNoContent, start, nil)
	})

	r.Delete("/instances/{tool}/{index}", func(w http.ResponseWriter, r *http.Request) {
		tool := chi.URLParam(r, "tool")
		idx, ok := indexParam(r)
		if !ok {
			writeJSONError(w, http.StatusBadRequest, "invalid instance index")
			return
		}
		if err := svc.RemoveInstance(tool, idx); err != nil {
			writeJSONError(w, mapError(err), err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	r.Get("/instances/{tool}/{index}", func(w http.ResponseWriter, r *http.Request) {
		tool := chi.URLParam(r, "tool")
		idx, ok := indexParam(r)
		if !ok {
			writeJSONError(w, http.StatusBadRequest, "invalid instance index")
			return
		}
		is, err := svc.InstanceStatus(tool, idx)
		if err != nil {
			writeJSONError(w, mapError(err), err.Error())
			return
		}
		writeJSON(w, is)
	})

	r.Get("/instances/{tool}/{index}/output", func(w http.ResponseWriter, r *http.Request) {
		tool := chi.URLParam(r, "tool")
		idx, ok := indexParam(r)
		if !ok {
			writeJSONError(w, http.StatusBadRequest, "invalid instance index")
			return
		}
		q := r.URL.Query()
		f := launcher.Filter{
			ErrorsOnly:   q.Get("errors") == "1" || q.Get("errors") == "true",
			WarningsOnly: q.Get("warnings") == "1" || q.Get("warnings") == "true",
			Search:       q.Get("q"),
		}
		entries, err := svc.Output(tool, idx, f)
		if err != nil {
			writeJSONError(w, mapError(err), err.Error())
			return
		}
		writeJSON(w, types.OutputResponse{Tool: tool, Index: idx, Entries: entries})
	})

	r.Delete("/instances/{tool}/{index}/output", func(w http.ResponseWriter, r *http.Request) {
		tool := chi.URLParam(r, "tool")
		idx, ok := indexParam(r)
		if !ok {
			writeJSONError(w, http.StatusBadRequest, "invalid instance index")
			return
		}
		if err := svc.ClearOutput(tool, idx); err != nil {
			writeJSONError(w, mapError(err), err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	r.Get("/vram", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, svc.VRAMSummary())
	})

	r.Get("/vram/history", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, types.VRAMHistoryResponse{Samples: svc.VRAMHistory()})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("shutting down"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	return r
}
