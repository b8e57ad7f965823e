package detectors

import (
	"fmt"

	"CellScope/internal/domain/models"
	domsvc "CellScope/internal/domain/service"
)

// Performance rules: capacity fade, failure, efficiency level and
// stability, degradation shape.

const (
	rapidFadeRetentionPct   = 80.0
	rapidFadeCriticalPct    = 70.0
	failureRetentionPct     = 50.0
	failureCycleWindow      = 50
	lowCEMeanPct            = 95.0
	lowCECriticalPct        = 90.0
	highCEStdPct            = 5.0
	highCEStdCriticalPct    = 10.0
	highCEMeanGuardPct      = 90.0
	accelFadeFactor         = 2.0
	accelFadeFloorPctCycle  = 0.2
	firstCycleCEWarnPct     = 60.0
	firstCycleCECriticalPct = 40.0
)

// RapidCapacityFade flags cells losing more than 20% of their initial
// capacity within the first ten cycles.
type RapidCapacityFade struct{}

func (RapidCapacityFade) Name() string { return "pattern_rapid_fade" }

func (d RapidCapacityFade) Evaluate(series *models.CellSeries, env *domsvc.DetectContext) []models.Flag {
	m := env.Metrics
	if m.RetentionAt10 == nil {
		return nil
	}
	pct := *m.RetentionAt10 * 100
	if pct >= rapidFadeRetentionPct {
		return nil
	}

	severity := models.SeverityWarning
	confidence := 85.0
	if pct < rapidFadeCriticalPct {
		severity = models.SeverityCritical
		confidence = 95.0
	}

	last := 10
	if len(m.CapacityCycles) < 10 {
		last = m.CapacityCycles[len(m.CapacityCycles)-1]
	} else {
		last = m.CapacityCycles[9]
	}
	return []models.Flag{{
		Type:           models.FlagRapidCapacityFade,
		Severity:       severity,
		Category:       models.CategoryPerformance,
		Confidence:     confidence,
		Message:        fmt.Sprintf("Cell shows rapid capacity loss: %.1f%% retention after %d cycles", pct, last),
		Recommendation: "Check electrode processing quality, electrolyte compatibility, and cycling conditions. Consider cell manufacturing defects.",
		Algorithm:      d.Name(),
		MetricValue:    ptr(pct),
		ThresholdValue: ptr(rapidFadeRetentionPct),
		CycleRange:     &models.CycleRange{First: 1, Last: last},
	}}
}

// CellFailure flags cells whose retention first falls below 50% within
// the first fifty cycles.
type CellFailure struct{}

func (CellFailure) Name() string { return "pattern_cell_failure" }

func (d CellFailure) Evaluate(series *models.CellSeries, env *domsvc.DetectContext) []models.Flag {
	m := env.Metrics
	if m.FirstCapacity == nil || len(m.Capacities) < 5 {
		return nil
	}
	first := *m.FirstCapacity
	for i, c := range m.Capacities {
		retention := c / first
		if retention >= failureRetentionPct/100 {
			continue
		}
		cycle := m.CapacityCycles[i]
		if cycle > failureCycleWindow {
			// Late fade is expected wear, not early failure.
			return nil
		}
		pct := retention * 100
		return []models.Flag{{
			Type:           models.FlagCellFailure,
			Severity:       models.SeverityCritical,
			Category:       models.CategoryPerformance,
			Confidence:     98,
			Message:        fmt.Sprintf("Cell failure detected: capacity dropped to %.1f%% of initial value by cycle %d", pct, cycle),
			Recommendation: "Cell has failed. Check for internal short, dendrite formation, or severe degradation. Data may not be reliable.",
			Algorithm:      d.Name(),
			MetricValue:    ptr(pct),
			ThresholdValue: ptr(failureRetentionPct),
			CycleRange:     &models.CycleRange{First: cycle, Last: cycle},
		}}
	}
	return nil
}

// LowCoulombicEfficiency flags a stable-window CE mean below 95%.
type LowCoulombicEfficiency struct{}

func (LowCoulombicEfficiency) Name() string { return "statistical_low_ce" }

func (d LowCoulombicEfficiency) Evaluate(series *models.CellSeries, env *domsvc.DetectContext) []models.Flag {
	m := env.Metrics
	if m.CEMean == nil {
		return nil
	}
	mean := *m.CEMean
	if mean >= lowCEMeanPct {
		return nil
	}

	severity := models.SeverityWarning
	if mean < lowCECriticalPct {
		severity = models.SeverityCritical
	}
	return []models.Flag{{
		Type:           models.FlagLowCoulombicEfficiency,
		Severity:       severity,
		Category:       models.CategoryPerformance,
		Confidence:     scaledConfidence(70, 4, lowCEMeanPct-mean),
		Message:        fmt.Sprintf("Consistently low coulombic efficiency: %.2f%% average", mean),
		Recommendation: "Low CE indicates side reactions or active material loss. Check electrolyte stability and electrode-electrolyte interface.",
		Algorithm:      d.Name(),
		MetricValue:    ptr(mean),
		ThresholdValue: ptr(lowCEMeanPct),
	}}
}

// HighCEVariation flags unstable efficiency during stable cycling. The
// mean guard keeps it from double-reporting cells already caught by
// LowCoulombicEfficiency.
type HighCEVariation struct{}

func (HighCEVariation) Name() string { return "statistical_ce_variation" }

func (d HighCEVariation) Evaluate(series *models.CellSeries, env *domsvc.DetectContext) []models.Flag {
	m := env.Metrics
	if m.CEMean == nil || m.CEStd == nil {
		return nil
	}
	mean, std := *m.CEMean, *m.CEStd
	if mean <= highCEMeanGuardPct || std <= highCEStdPct {
		return nil
	}

	severity := models.SeverityWarning
	if std > highCEStdCriticalPct {
		severity = models.SeverityCritical
	}
	return []models.Flag{{
		Type:           models.FlagHighCEVariation,
		Severity:       severity,
		Category:       models.CategoryPerformance,
		Confidence:     scaledConfidence(70, 3, std-highCEStdPct),
		Message:        fmt.Sprintf("High coulombic efficiency variation: %.1f%% std dev (mean: %.1f%%)", std, mean),
		Recommendation: "Check for inconsistent cycling conditions, temperature fluctuations, or electrode stability issues.",
		Algorithm:      d.Name(),
		MetricValue:    ptr(std),
		ThresholdValue: ptr(highCEStdPct),
	}}
}

// AcceleratingDegradation flags a second-half fade rate more than twice
// the first-half rate and above 0.2%/cycle.
type AcceleratingDegradation struct{}

func (AcceleratingDegradation) Name() string { return "pattern_accelerating_fade" }

func (d AcceleratingDegradation) Evaluate(series *models.CellSeries, env *domsvc.DetectContext) []models.Flag {
	m := env.Metrics
	if m.EarlyFadeRate == nil || m.LateFadeRate == nil {
		return nil
	}
	early, late := *m.EarlyFadeRate, *m.LateFadeRate
	if late <= early*accelFadeFactor || late <= accelFadeFloorPctCycle {
		return nil
	}
	return []models.Flag{{
		Type:           models.FlagAcceleratingDegradation,
		Severity:       models.SeverityWarning,
		Category:       models.CategoryPerformance,
		Confidence:     75,
		Message:        fmt.Sprintf("Degradation rate increasing: early %.2f%%/cycle, late %.2f%%/cycle", early, late),
		Recommendation: "Accelerating degradation suggests progressive failure mechanism. Check for dendrite growth or SEI instability.",
		Algorithm:      d.Name(),
		MetricValue:    ptr(late),
		ThresholdValue: ptr(early * accelFadeFactor),
	}}
}

// PoorFirstCycleEfficiency flags a first-cycle CE below 60%.
type PoorFirstCycleEfficiency struct{}

func (PoorFirstCycleEfficiency) Name() string { return "threshold_first_efficiency" }

func (d PoorFirstCycleEfficiency) Evaluate(series *models.CellSeries, env *domsvc.DetectContext) []models.Flag {
	m := env.Metrics
	if m.FirstCycleCE == nil {
		return nil
	}
	pct := *m.FirstCycleCE * 100
	if pct >= firstCycleCEWarnPct {
		return nil
	}

	severity := models.SeverityWarning
	if pct < firstCycleCECriticalPct {
		severity = models.SeverityCritical
	}
	return []models.Flag{{
		Type:           models.FlagPoorFirstCycleEfficiency,
		Severity:       severity,
		Category:       models.CategoryPerformance,
		Confidence:     scaledConfidence(75, 1, firstCycleCEWarnPct-pct),
		Message:        fmt.Sprintf("Very low first cycle efficiency: %.1f%%", pct),
		Recommendation: "Low first cycle efficiency indicates excessive SEI formation or irreversible capacity loss. Check electrode surface area and electrolyte composition.",
		Algorithm:      d.Name(),
		MetricValue:    ptr(pct),
		ThresholdValue: ptr(firstCycleCEWarnPct),
		CycleRange:     &models.CycleRange{First: 1, Last: 1},
	}}
}
