package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	models "CellScope/internal/domain/models"
	icache "CellScope/internal/service/cache"
	"CellScope/internal/service/metrics"
	"CellScope/internal/service/ratelimit"
	"CellScope/internal/usecase"
	xhttp "CellScope/pkg/http"
	xlogger "CellScope/pkg/logger"

	"github.com/labstack/echo/v4"
)

// FlagsEchoHandler exposes the detection endpoints over Echo.
type FlagsEchoHandler struct {
	logger  *xlogger.Logger
	analyze *usecase.AnalyzeUseCase
	cache   icache.BytesCache
	rl      *ratelimit.Limiter
}

func NewFlagsEchoHandler(logger *xlogger.Logger, analyze *usecase.AnalyzeUseCase) *FlagsEchoHandler {
	metrics.Register()
	return &FlagsEchoHandler{logger: logger, analyze: analyze, rl: ratelimit.New()}
}

// SetCache injects a byte cache for flag query results.
func (h *FlagsEchoHandler) SetCache(c icache.BytesCache) { h.cache = c }

func (h *FlagsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/cells/analyze", h.Analyze)
	g.GET("/cells/flags", h.CellFlags)
	g.GET("/experiments/flags", h.ExperimentFlags)
	g.GET("/experiments/summary", h.ExperimentSummary)
}

// Analyze runs detection over an inline series without touching storage.
func (h *FlagsEchoHandler) Analyze(c echo.Context) error {
	start := time.Now()
	endpoint := "analyze"
	defer func() { metrics.DetectionLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := &models.AnalyzeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.analyze.AnalyzeSeries(c.Request().Context(), req.ToSeries(), req.SiblingFirstDischarges)
	if err != nil {
		if errors.Is(err, models.ErrInvalidSeries) {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
		}
		metrics.DetectionErrors.WithLabelValues(endpoint).Inc()
		h.logger.Error("analyze usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	recordFlagsEmitted(res.Summary)
	return xhttp.SuccessResponse(c, res)
}

// CellFlags returns the flag set for one stored cell.
func (h *FlagsEchoHandler) CellFlags(c echo.Context) error {
	start := time.Now()
	endpoint := "cell_flags"
	defer func() { metrics.DetectionLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := &models.CellFlagsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.rl.Allow(c.RealIP()+":cell_flags", 10, 5) {
		h.logger.Warn("flags.cell rate_limited", xlogger.String("remote", c.RealIP()))
		return echo.NewHTTPError(429, "rate limited")
	}

	cacheKey := "flags:" + req.Experiment + ":" + req.Cell
	if set, ok := h.cached(cacheKey, &models.FlagSet{}); ok {
		return xhttp.SuccessResponse(c, set)
	}

	res, err := h.analyze.AnalyzeCell(c.Request().Context(), req.Experiment, req.Cell)
	if err != nil {
		if errors.Is(err, models.ErrInvalidSeries) {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
		}
		metrics.DetectionErrors.WithLabelValues(endpoint).Inc()
		h.logger.Error("flags.cell usecase error",
			xlogger.String("experiment", req.Experiment),
			xlogger.String("cell", req.Cell),
			xlogger.Error(err),
		)
		return xhttp.AppErrorResponse(c, err)
	}
	recordFlagsEmitted(res.Summary)
	h.store(cacheKey, res, 30*time.Second)
	return xhttp.SuccessResponse(c, res)
}

// ExperimentFlags returns per-cell flag sets across an experiment.
func (h *FlagsEchoHandler) ExperimentFlags(c echo.Context) error {
	start := time.Now()
	endpoint := "experiment_flags"
	defer func() { metrics.DetectionLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := &models.ExperimentFlagsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.rl.Allow(c.RealIP()+":experiment_flags", 3, 1) {
		h.logger.Warn("flags.experiment rate_limited", xlogger.String("remote", c.RealIP()))
		return echo.NewHTTPError(429, "rate limited")
	}

	cacheKey := fmt.Sprintf("expflags:%s:%d", req.Experiment, req.MaxCells)
	if res, ok := h.cached(cacheKey, &usecase.ExperimentFlagsResult{}); ok {
		return xhttp.SuccessResponse(c, res)
	}

	res, err := h.analyze.AnalyzeExperiment(c.Request().Context(), req.Experiment, req.MaxCells)
	if err != nil {
		metrics.DetectionErrors.WithLabelValues(endpoint).Inc()
		h.logger.Error("flags.experiment usecase error",
			xlogger.String("experiment", req.Experiment),
			xlogger.Error(err),
		)
		return xhttp.AppErrorResponse(c, err)
	}
	recordFlagsEmitted(res.Summary)
	h.store(cacheKey, res, 60*time.Second)
	return xhttp.SuccessResponse(c, res)
}

// ExperimentSummary returns the severity tally for an experiment.
func (h *FlagsEchoHandler) ExperimentSummary(c echo.Context) error {
	start := time.Now()
	endpoint := "experiment_summary"
	defer func() { metrics.DetectionLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := &models.ExperimentFlagsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	cacheKey := "expsummary:" + req.Experiment
	if res, ok := h.cached(cacheKey, &usecase.ExperimentSummary{}); ok {
		return xhttp.SuccessResponse(c, res)
	}

	res, err := h.analyze.SummarizeExperiment(c.Request().Context(), req.Experiment)
	if err != nil {
		metrics.DetectionErrors.WithLabelValues(endpoint).Inc()
		h.logger.Error("flags.summary usecase error",
			xlogger.String("experiment", req.Experiment),
			xlogger.Error(err),
		)
		return xhttp.AppErrorResponse(c, err)
	}
	h.store(cacheKey, res, 60*time.Second)
	return xhttp.SuccessResponse(c, res)
}

// recordFlagsEmitted bumps the per-severity emission counters for one
// freshly computed result; cached responses are not re-counted.
func recordFlagsEmitted(s models.FlagSummary) {
	if s.Critical > 0 {
		metrics.FlagsEmitted.WithLabelValues("critical").Add(float64(s.Critical))
	}
	if s.Warning > 0 {
		metrics.FlagsEmitted.WithLabelValues("warning").Add(float64(s.Warning))
	}
	if s.Info > 0 {
		metrics.FlagsEmitted.WithLabelValues("info").Add(float64(s.Info))
	}
}

// cached loads and decodes a cache entry into out; ok is false on miss,
// decode failure, or when no cache is configured.
func (h *FlagsEchoHandler) cached(key string, out interface{}) (interface{}, bool) {
	if h.cache == nil {
		return nil, false
	}
	b, ok, err := h.cache.GetBytes(key)
	if err != nil {
		h.logger.Warn("flags cache_get_error", xlogger.String("key", key), xlogger.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	if err := json.Unmarshal(b, out); err != nil {
		h.logger.Warn("flags cache_decode_error", xlogger.String("key", key), xlogger.Error(err))
		return nil, false
	}
	return out, true
}

func (h *FlagsEchoHandler) store(key string, v interface{}, ttl time.Duration) {
	if h.cache == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := h.cache.SetBytes(key, b, ttl); err != nil {
		h.logger.Warn("flags cache_set_error", xlogger.String("key", key), xlogger.Error(err))
	}
}
