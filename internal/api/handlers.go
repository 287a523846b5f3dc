// Package api exposes the cached series over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/moznion/go-optional"

	"TaiexCache/internal/analysis"
	"TaiexCache/internal/cache"
	"TaiexCache/internal/logger"
	"TaiexCache/internal/model"
	"TaiexCache/internal/recorder"
)

const healthTimeout = 2 * time.Second

// SeriesCache is the cache surface the handlers use.
type SeriesCache interface {
	Get(ctx context.Context, instrument string, force bool) (*model.Series, error)
	GetMany(ctx context.Context, instruments []string, force bool) (map[string]*model.Series, error)
	Entry(instrument string) (model.Entry, bool)
	Instruments() []string
	Clear(ctx context.Context, instrument string) error
	ClearAll(ctx context.Context) error
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Handler serves series, analysis and cache maintenance endpoints.
type Handler struct {
	cache    SeriesCache
	recorder recorder.Recorder
	allowed  map[string]bool
	checks   map[string]HealthCheck
}

// NewHandler creates a handler serving only the given instruments.
func NewHandler(c SeriesCache, rec recorder.Recorder, instruments []string) *Handler {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	allowed := make(map[string]bool, len(instruments))
	for _, inst := range instruments {
		allowed[inst] = true
	}
	return &Handler{cache: c, recorder: rec, allowed: allowed, checks: map[string]HealthCheck{}}
}

// AddHealthCheck registers a dependency checked by /healthz.
func (h *Handler) AddHealthCheck(name string, check HealthCheck) {
	h.checks[name] = check
}

// NewRouter registers every route. metrics may be nil.
func NewRouter(h *Handler, metrics http.Handler) *mux.Router {
	router := mux.NewRouter()

	routes := router.PathPrefix("/api").Subrouter()
	routes.HandleFunc("/series", h.GetSeriesMany).Methods("GET")
	routes.HandleFunc("/series/{instrument}", h.GetSeries).Methods("GET")
	routes.HandleFunc("/analysis/{instrument}", h.GetAnalysis).Methods("GET")
	routes.HandleFunc("/refreshes/{instrument}", h.ListRefreshes).Methods("GET")
	routes.HandleFunc("/cache", h.ListCache).Methods("GET")
	routes.HandleFunc("/cache", h.ClearAll).Methods("DELETE")
	routes.HandleFunc("/cache/{instrument}", h.ClearInstrument).Methods("DELETE")

	router.HandleFunc("/healthz", h.Health).Methods("GET")
	if metrics != nil {
		router.Handle("/metrics", metrics)
	}
	return router
}

type rowJSON struct {
	Date     string   `json:"date"`
	Open     float64  `json:"open"`
	High     float64  `json:"high"`
	Low      float64  `json:"low"`
	Close    float64  `json:"close"`
	Amount   float64  `json:"amount"`
	Volume   float64  `json:"volume"`
	DIF      *float64 `json:"dif"`
	MACD     *float64 `json:"macd"`
	MACDHist *float64 `json:"macd_hist"`
	MA5      *float64 `json:"ma5"`
	MA20     *float64 `json:"ma20"`
	MA60     *float64 `json:"ma60"`
	MA120    *float64 `json:"ma120"`
}

type seriesResponse struct {
	Instrument            string     `json:"instrument"`
	Stale                 bool       `json:"stale"`
	LastHistoricalRefresh *time.Time `json:"last_historical_refresh"`
	LastRealtimeRefresh   *time.Time `json:"last_realtime_refresh"`
	LastError             string     `json:"last_error,omitempty"`
	Count                 int        `json:"count"`
	Rows                  []rowJSON  `json:"rows"`
}

type entryStatus struct {
	Instrument            string     `json:"instrument"`
	Rows                  int        `json:"rows"`
	LastDate              string     `json:"last_date,omitempty"`
	LastHistoricalRefresh *time.Time `json:"last_historical_refresh"`
	LastRealtimeRefresh   *time.Time `json:"last_realtime_refresh"`
	LastError             string     `json:"last_error,omitempty"`
}

// GetSeries handles GET /api/series/{instrument}?force=true&limit=N
func (h *Handler) GetSeries(w http.ResponseWriter, r *http.Request) {
	inst, ok := h.instrument(w, r)
	if !ok {
		return
	}
	force, limit, ok := seriesParams(w, r)
	if !ok {
		return
	}

	s, err := h.cache.Get(r.Context(), inst, force)
	if err != nil {
		h.respondCacheError(w, inst, err)
		return
	}
	respondWithJSON(w, http.StatusOK, h.seriesResponse(s, limit))
}

// GetSeriesMany handles GET /api/series?instruments=TSE,OTC&force=true&limit=N.
// All instruments are refreshed together, so at most one snapshot call is
// made. Instruments without data are listed under "errors"; the status is
// 503 only when none has data.
func (h *Handler) GetSeriesMany(w http.ResponseWriter, r *http.Request) {
	var insts []string
	for _, part := range strings.Split(r.URL.Query().Get("instruments"), ",") {
		inst := strings.TrimSpace(part)
		if inst == "" {
			continue
		}
		if !h.allowed[inst] {
			respondWithError(w, http.StatusNotFound, "Unknown instrument "+inst)
			return
		}
		insts = append(insts, inst)
	}
	if len(insts) == 0 {
		respondWithError(w, http.StatusBadRequest, "instruments is required")
		return
	}
	force, limit, ok := seriesParams(w, r)
	if !ok {
		return
	}

	got, err := h.cache.GetMany(r.Context(), insts, force)
	if err != nil && !errors.Is(err, cache.ErrNoData) {
		logger.Error("get series", logger.Strings("instruments", insts), logger.ErrorField(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve series")
		return
	}

	series := make(map[string]seriesResponse, len(got))
	failed := make(map[string]string)
	for _, inst := range insts {
		s, ok := got[inst]
		if !ok {
			failed[inst] = fmt.Sprintf("%s for %s", cache.ErrNoData, inst)
			continue
		}
		series[inst] = h.seriesResponse(s, limit)
	}
	code := http.StatusOK
	if len(series) == 0 {
		code = http.StatusServiceUnavailable
		logger.Warn("no data to serve", logger.Strings("instruments", insts), logger.ErrorField(err))
	}
	respondWithJSON(w, code, map[string]interface{}{
		"series": series,
		"errors": failed,
		"count":  len(series),
	})
}

// GetAnalysis handles GET /api/analysis/{instrument}
func (h *Handler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	inst, ok := h.instrument(w, r)
	if !ok {
		return
	}
	s, err := h.cache.Get(r.Context(), inst, false)
	if err != nil {
		h.respondCacheError(w, inst, err)
		return
	}
	res, err := analysis.Analyze(s)
	if err != nil {
		respondWithError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, res)
}

// ListRefreshes handles GET /api/refreshes/{instrument}?limit=N
func (h *Handler) ListRefreshes(w http.ResponseWriter, r *http.Request) {
	inst, ok := h.instrument(w, r)
	if !ok {
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondWithError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}
	events, err := h.recorder.RecentRefreshes(inst, limit)
	if err != nil {
		logger.Error("list refreshes", logger.Instrument(inst), logger.ErrorField(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve refresh history")
		return
	}

	out := make([]map[string]interface{}, 0, len(events))
	for _, e := range events {
		out = append(out, map[string]interface{}{
			"at":          e.At,
			"kind":        e.Kind,
			"reason":      e.Reason,
			"source":      e.Source,
			"rows":        e.Rows,
			"dropped":     e.Dropped,
			"duration_ms": e.Duration.Milliseconds(),
			"error":       e.Err,
		})
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"instrument": inst,
		"refreshes":  out,
		"count":      len(out),
	})
}

// ListCache handles GET /api/cache
func (h *Handler) ListCache(w http.ResponseWriter, r *http.Request) {
	insts := h.cache.Instruments()
	out := make([]entryStatus, 0, len(insts))
	for _, inst := range insts {
		e, ok := h.cache.Entry(inst)
		if !ok {
			continue
		}
		st := entryStatus{
			Instrument:            inst,
			Rows:                  e.Series.Len(),
			LastHistoricalRefresh: timePtr(e.LastHistoricalRefresh),
			LastRealtimeRefresh:   timePtr(e.LastRealtimeRefresh),
		}
		if last, ok := e.Series.Last(); ok {
			st.LastDate = last.Date.Format("2006-01-02")
		}
		if err := e.Err(); err != nil {
			st.LastError = err.Error()
		}
		out = append(out, st)
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"entries": out,
		"count":   len(out),
	})
}

// ClearInstrument handles DELETE /api/cache/{instrument}
func (h *Handler) ClearInstrument(w http.ResponseWriter, r *http.Request) {
	inst, ok := h.instrument(w, r)
	if !ok {
		return
	}
	if err := h.cache.Clear(r.Context(), inst); err != nil {
		logger.Error("clear cache", logger.Instrument(inst), logger.ErrorField(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to clear cache")
		return
	}
	logger.Info("cache cleared", logger.Instrument(inst))
	w.WriteHeader(http.StatusNoContent)
}

// ClearAll handles DELETE /api/cache
func (h *Handler) ClearAll(w http.ResponseWriter, r *http.Request) {
	if err := h.cache.ClearAll(r.Context()); err != nil {
		logger.Error("clear all caches", logger.ErrorField(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to clear cache")
		return
	}
	logger.Info("all caches cleared")
	w.WriteHeader(http.StatusNoContent)
}

// Health handles GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	status := map[string]string{}
	healthy := true
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			logger.Warn("health check failed", logger.String("check", name), logger.ErrorField(err))
			status[name] = err.Error()
			healthy = false
			continue
		}
		status[name] = "ok"
	}
	if !healthy {
		respondWithJSON(w, http.StatusServiceUnavailable, map[string]interface{}{"status": "unhealthy", "checks": status})
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"status": "healthy", "checks": status})
}

func (h *Handler) seriesResponse(s *model.Series, limit int) seriesResponse {
	rows := s.Rows
	if limit > 0 && len(rows) > limit {
		rows = rows[len(rows)-limit:]
	}
	resp := seriesResponse{
		Instrument: s.Instrument,
		Stale:      s.Stale,
		Count:      len(rows),
		Rows:       make([]rowJSON, 0, len(rows)),
	}
	if e, ok := h.cache.Entry(s.Instrument); ok {
		resp.LastHistoricalRefresh = timePtr(e.LastHistoricalRefresh)
		resp.LastRealtimeRefresh = timePtr(e.LastRealtimeRefresh)
		if err := e.Err(); err != nil {
			resp.LastError = err.Error()
		}
	}
	for _, row := range rows {
		resp.Rows = append(resp.Rows, toRowJSON(row))
	}
	return resp
}

func seriesParams(w http.ResponseWriter, r *http.Request) (force bool, limit int, ok bool) {
	force, _ = strconv.ParseBool(r.URL.Query().Get("force"))
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondWithError(w, http.StatusBadRequest, "Invalid limit")
			return false, 0, false
		}
		limit = n
	}
	return force, limit, true
}

func (h *Handler) instrument(w http.ResponseWriter, r *http.Request) (string, bool) {
	inst := mux.Vars(r)["instrument"]
	if !h.allowed[inst] {
		respondWithError(w, http.StatusNotFound, "Unknown instrument")
		return "", false
	}
	return inst, true
}

func (h *Handler) respondCacheError(w http.ResponseWriter, inst string, err error) {
	if errors.Is(err, cache.ErrNoData) {
		logger.Warn("no data to serve", logger.Instrument(inst), logger.ErrorField(err))
		respondWithError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	logger.Error("get series", logger.Instrument(inst), logger.ErrorField(err))
	respondWithError(w, http.StatusInternalServerError, "Failed to retrieve series")
}

func toRowJSON(r model.Row) rowJSON {
	return rowJSON{
		Date:     r.Date.Format("2006-01-02"),
		Open:     r.Open,
		High:     r.High,
		Low:      r.Low,
		Close:    r.Close,
		Amount:   r.Amount,
		Volume:   r.Volume(),
		DIF:      optPtr(r.DIF),
		MACD:     optPtr(r.MACD),
		MACDHist: optPtr(r.MACDHist),
		MA5:      optPtr(r.MA5),
		MA20:     optPtr(r.MA20),
		MA60:     optPtr(r.MA60),
		MA120:    optPtr(r.MA120),
	}
}

func optPtr(o optional.Option[float64]) *float64 {
	if o.IsNone() {
		return nil
	}
	v := o.Unwrap()
	return &v
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
