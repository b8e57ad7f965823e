package service

import (
	"CellScope/internal/domain/models"
)

// DetectContext carries everything a detector may consume besides the
// series itself: per-series metrics computed once per pass, and the
// sibling first-discharge population for cross-cell rules. It is
// read-only for the duration of a pass.
type DetectContext struct {
	Metrics *models.SeriesMetrics

	// SiblingFirstDischarges holds the first-discharge capacity of every
	// cell in the same experiment, including this one. Cross-cell
	// detectors abstain when fewer than three siblings remain after
	// excluding the cell under analysis.
	SiblingFirstDischarges []float64
}

// Detector is a single anomaly rule. Implementations must be pure
// functions of their inputs: no shared mutable state, no I/O, and zero
// flags (never an error) on insufficient or missing data.
type Detector interface {
	Name() string
	Evaluate(series *models.CellSeries, env *DetectContext) []models.Flag
}
