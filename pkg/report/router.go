package report

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/dmitrymomot/revenuekit/pkg/cohort"
	"github.com/dmitrymomot/revenuekit/pkg/health"
	"github.com/dmitrymomot/revenuekit/pkg/logger"
	"github.com/dmitrymomot/revenuekit/pkg/mrr"
)

// RouterOptions wires the read API's data sources. Nil sources disable their
// routes, so a deployment can expose only what it stores.
type RouterOptions struct {
	Snapshots mrr.SnapshotStore
	Cohorts   cohort.RecordStore
	Health    health.LatestCache

	// Probes run per dependency on /healthz; any failure reports 503.
	Probes map[string]func(context.Context) error

	Logger *slog.Logger
}

// Router builds the read-only JSON API for dashboards:
//
//	GET /tenants/{tenantID}/snapshots?granularity=daily&from=2024-01-01&to=2024-06-30
//	GET /tenants/{tenantID}/cohorts
//	GET /tenants/{tenantID}/health
//	GET /health/platform
//	GET /healthz
func Router(opts RouterOptions) chi.Router {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	h := &handlers{opts: opts, log: log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/tenants/{tenantID}", func(t chi.Router) {
		if opts.Snapshots != nil {
			t.Get("/snapshots", h.listSnapshots)
		}
		if opts.Cohorts != nil {
			t.Get("/cohorts", h.listCohorts)
		}
		if opts.Health != nil {
			t.Get("/health", h.latestHealth)
		}
	})
	if opts.Health != nil {
		r.Get("/health/platform", h.platformHealth)
	}
	r.Get("/healthz", h.healthz)

	return r
}

type handlers struct {
	opts RouterOptions
	log  *slog.Logger
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *handlers) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Warn("response encode failed", logger.Error(err))
	}
}

func (h *handlers) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, errorResponse{Error: msg})
}

func tenantParam(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "tenantID"))
}

// dateParam parses a YYYY-MM-DD query value, with a fallback when absent.
func dateParam(r *http.Request, name string, fallback time.Time) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	return time.Parse("2006-01-02", raw)
}

func (h *handlers) listSnapshots(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantParam(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid tenant id")
		return
	}

	g := mrr.Granularity(r.URL.Query().Get("granularity"))
	if g == "" {
		g = mrr.GranularityDaily
	}
	if err := g.Validate(); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	now := time.Now().UTC()
	from, err := dateParam(r, "from", now.AddDate(0, -1, 0))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid from date, expected YYYY-MM-DD")
		return
	}
	to, err := dateParam(r, "to", now)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid to date, expected YYYY-MM-DD")
		return
	}

	snapshots, err := h.opts.Snapshots.List(r.Context(), tenantID, g, from, to)
	if err != nil {
		h.log.ErrorContext(r.Context(), "snapshot list failed", logger.TenantID(tenantID), logger.Error(err))
		h.writeError(w, http.StatusInternalServerError, "snapshot query failed")
		return
	}
	if snapshots == nil {
		snapshots = []mrr.Snapshot{}
	}
	h.writeJSON(w, http.StatusOK, snapshots)
}

func (h *handlers) listCohorts(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantParam(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid tenant id")
		return
	}

	records, err := h.opts.Cohorts.List(r.Context(), tenantID)
	if err != nil {
		h.log.ErrorContext(r.Context(), "cohort list failed", logger.TenantID(tenantID), logger.Error(err))
		h.writeError(w, http.StatusInternalServerError, "cohort query failed")
		return
	}
	if records == nil {
		records = []cohort.Record{}
	}
	h.writeJSON(w, http.StatusOK, records)
}

func (h *handlers) latestHealth(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantParam(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid tenant id")
		return
	}
	h.serveHealth(w, r, tenantID)
}

func (h *handlers) platformHealth(w http.ResponseWriter, r *http.Request) {
	h.serveHealth(w, r, uuid.Nil)
}

func (h *handlers) serveHealth(w http.ResponseWriter, r *http.Request, tenantID uuid.UUID) {
	report, err := h.opts.Health.GetLatest(r.Context(), tenantID)
	if err != nil {
		if errors.Is(err, health.ErrCacheMiss) {
			h.writeError(w, http.StatusNotFound, "no recent health report, run a health check first")
			return
		}
		h.log.ErrorContext(r.Context(), "health report read failed", logger.TenantID(tenantID), logger.Error(err))
		h.writeError(w, http.StatusInternalServerError, "health report read failed")
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

type healthzResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// healthz probes every wired dependency and degrades to 503 on any failure.
func (h *handlers) healthz(w http.ResponseWriter, r *http.Request) {
	resp := healthzResponse{Status: "ok", Checks: make(map[string]string, len(h.opts.Probes))}
	status := http.StatusOK

	for name, probe := range h.opts.Probes {
		if err := probe(r.Context()); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	h.writeJSON(w, status, resp)
}
