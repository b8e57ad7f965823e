package detectors

import (
	"fmt"
	"sort"
	"strings"

	"CellScope/internal/domain/models"
	domsvc "CellScope/internal/domain/service"
	"CellScope/internal/services/cellmetrics"
)

// Data integrity rules: truncated datasets, suspicious endings, gaps,
// and malformed values.

const (
	incompleteMinCycles      = 30
	incompleteRetention      = 0.8
	prematureTailWindow      = 5
	prematureStabilityCV     = 0.05
	prematureRetentionFloor  = 0.7
	missingFractionThreshold = 0.2
	zeroFractionThreshold    = 0.3
)

// IncompleteDataset flags healthy cells whose dataset stops well before
// a meaningful cycle count.
type IncompleteDataset struct{}

func (IncompleteDataset) Name() string { return "heuristic_incomplete_data" }

func (d IncompleteDataset) Evaluate(series *models.CellSeries, env *domsvc.DetectContext) []models.Flag {
	m := env.Metrics
	if m.LastRetention == nil || len(m.Capacities) < 5 {
		return nil
	}
	n := len(m.Capacities)
	if *m.LastRetention <= incompleteRetention || n >= incompleteMinCycles {
		return nil
	}
	return []models.Flag{{
		Type:           models.FlagIncompleteDataset,
		Severity:       models.SeverityInfo,
		Category:       models.CategoryDataIntegrity,
		Confidence:     70,
		Message:        fmt.Sprintf("Dataset appears incomplete: only %d cycles with %.1f%% retention", n, *m.LastRetention*100),
		Recommendation: "Cell appears healthy but testing stopped early. Check if test is still running or was interrupted.",
		Algorithm:      d.Name(),
		MetricValue:    ptr(float64(n)),
		ThresholdValue: ptr(float64(incompleteMinCycles)),
	}}
}

// PrematureTermination flags tests that end while the capacity trace is
// still flat and healthy, which usually means the run was stopped by
// hand or by an unrelated fault.
type PrematureTermination struct{}

func (PrematureTermination) Name() string { return "heuristic_premature_end" }

func (d PrematureTermination) Evaluate(series *models.CellSeries, env *domsvc.DetectContext) []models.Flag {
	m := env.Metrics
	if m.LastRetention == nil || len(m.Capacities) <= 10 {
		return nil
	}
	if *m.LastRetention <= prematureRetentionFloor {
		return nil
	}

	tail := m.Capacities[len(m.Capacities)-prematureTailWindow:]
	mean := cellmetrics.Mean(tail)
	std := cellmetrics.Std(tail)
	if mean == nil || std == nil || *mean == 0 {
		return nil
	}
	cv := *std / *mean
	if cv >= prematureStabilityCV {
		return nil
	}

	lastCycle := m.CapacityCycles[len(m.CapacityCycles)-1]
	return []models.Flag{{
		Type:           models.FlagPrematureTermination,
		Severity:       models.SeverityInfo,
		Category:       models.CategoryDataIntegrity,
		Confidence:     70,
		Message:        fmt.Sprintf("Test terminated at cycle %d while cell was stable (%.1f%% retention)", lastCycle, *m.LastRetention*100),
		Recommendation: "Cell was performing well when test ended. Consider if termination was intentional or due to equipment issues.",
		Algorithm:      d.Name(),
		MetricValue:    ptr(cv),
		ThresholdValue: ptr(prematureStabilityCV),
		CycleRange:     &models.CycleRange{First: lastCycle, Last: lastCycle},
	}}
}

// MissingData flags critical columns with more than 20% of values
// absent. At most one flag is emitted, covering every affected column.
type MissingData struct{}

func (MissingData) Name() string { return "completeness_scan" }

func (d MissingData) Evaluate(series *models.CellSeries, env *domsvc.DetectContext) []models.Flag {
	m := env.Metrics
	if len(series.Records) == 0 {
		return nil
	}

	var affected []string
	maxFrac := 0.0
	for _, col := range models.CriticalColumns {
		frac := m.MissingFractions[col]
		if frac <= missingFractionThreshold {
			continue
		}
		affected = append(affected, fmt.Sprintf("%s (%.0f%%)", col, frac*100))
		if frac > maxFrac {
			maxFrac = frac
		}
	}
	if len(affected) == 0 {
		return nil
	}
	sort.Strings(affected)

	// Confidence tracks how much of the worst column is gone.
	conf := 100*maxFrac + 40
	if conf > 99 {
		conf = 99
	}
	return []models.Flag{{
		Type:           models.FlagMissingData,
		Severity:       models.SeverityWarning,
		Category:       models.CategoryDataIntegrity,
		Confidence:     conf,
		Message:        fmt.Sprintf("Significant missing data: %s", strings.Join(affected, ", ")),
		Recommendation: "Check data export process and cycler connectivity. Missing data may affect analysis reliability.",
		Algorithm:      d.Name(),
		MetricValue:    ptr(maxFrac * 100),
		ThresholdValue: ptr(missingFractionThreshold * 100),
	}}
}

// DataInconsistency flags physically invalid capacity values: negatives,
// or an implausible share of exact zeros.
type DataInconsistency struct{}

func (DataInconsistency) Name() string { return "sanity_scan" }

func (d DataInconsistency) Evaluate(series *models.CellSeries, env *domsvc.DetectContext) []models.Flag {
	if len(series.Records) == 0 {
		return nil
	}

	var issues []string
	negatives, zeros, present := 0, 0, 0
	for _, r := range series.Records {
		c := r.Capacity()
		if c == nil {
			continue
		}
		present++
		switch {
		case *c < 0:
			negatives++
		case *c == 0:
			zeros++
		}
	}
	if negatives > 0 {
		issues = append(issues, fmt.Sprintf("%d negative capacity values", negatives))
	}
	if present > 0 {
		zeroFrac := float64(zeros) / float64(present)
		if zeroFrac > zeroFractionThreshold {
			issues = append(issues, fmt.Sprintf("%.0f%% zero capacity values", zeroFrac*100))
		}
	}
	if len(issues) == 0 {
		return nil
	}

	return []models.Flag{{
		Type:           models.FlagDataInconsistency,
		Severity:       models.SeverityWarning,
		Category:       models.CategoryDataIntegrity,
		Confidence:     80,
		Message:        fmt.Sprintf("Data quality issues detected: %s", strings.Join(issues, "; ")),
		Recommendation: "Review raw data for sensor errors, export problems, or cycler malfunctions.",
		Algorithm:      d.Name(),
		MetricValue:    ptr(float64(negatives + zeros)),
		ThresholdValue: ptr(0),
	}}
}
