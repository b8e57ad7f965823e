package usecase

import (
	"context"
	"sort"
	"time"

	"CellScope/internal/domain/models"
	domrepo "CellScope/internal/domain/repository"
	domsvc "CellScope/internal/domain/service"
	"CellScope/internal/services/cellmetrics"
)

// FlagAggregator runs the full rule set over one cell series and
// assembles the ordered result. It holds no per-call state and is safe
// for concurrent use.
type FlagAggregator struct {
	detectors []domsvc.Detector
	metrics   domrepo.Metrics
}

func NewFlagAggregator(detectors []domsvc.Detector, metrics domrepo.Metrics) *FlagAggregator {
	return &FlagAggregator{detectors: detectors, metrics: metrics}
}

// Aggregate validates the series, extracts metrics once, evaluates
// every detector, and returns flags sorted by severity then confidence.
// The sole error it can return wraps models.ErrInvalidSeries; detectors
// themselves never fail.
func (a *FlagAggregator) Aggregate(ctx context.Context, series *models.CellSeries, siblingFirstDischarges []float64) (*models.FlagSet, error) {
	if err := series.Validate(); err != nil {
		if a.metrics != nil {
			a.metrics.RecordError("invalid_series")
		}
		return nil, err
	}

	start := time.Now()
	env := &domsvc.DetectContext{
		Metrics:                cellmetrics.Extract(series),
		SiblingFirstDischarges: siblingFirstDischarges,
	}

	set := &models.FlagSet{
		CellID:       series.CellID,
		ExperimentID: series.ExperimentID,
		Flags:        []models.Flag{},
	}
	for _, d := range a.detectors {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		set.Flags = append(set.Flags, d.Evaluate(series, env)...)
	}

	// Stable sort with a type tiebreak keeps output deterministic across
	// runs regardless of registry order.
	sort.SliceStable(set.Flags, func(i, j int) bool {
		a, b := set.Flags[i], set.Flags[j]
		if a.Severity != b.Severity {
			return a.Severity > b.Severity
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		return a.Type < b.Type
	})

	for _, f := range set.Flags {
		switch f.Severity {
		case models.SeverityCritical:
			set.Summary.Critical++
		case models.SeverityWarning:
			set.Summary.Warning++
		default:
			set.Summary.Info++
		}
		if a.metrics != nil {
			a.metrics.RecordFlags(f.Severity.String(), 1)
		}
	}

	if a.metrics != nil {
		a.metrics.RecordLatency("detect", time.Since(start).Seconds())
	}
	return set, nil
}
