package models

// Column names fields whose completeness is tracked per series.
type Column string

const (
	ColumnDischarge  Column = "discharge_capacity"
	ColumnCharge     Column = "charge_capacity"
	ColumnEfficiency Column = "coulombic_efficiency"
)

// CriticalColumns are the fields whose absence degrades analysis.
var CriticalColumns = []Column{ColumnDischarge, ColumnCharge, ColumnEfficiency}

// SeriesMetrics holds the per-series intermediates shared by detectors,
// computed exactly once per detection pass. Optional statistics are
// pointers: nil means "undefined" (insufficient or missing data), which
// detectors must treat as non-triggering.
type SeriesMetrics struct {
	// Capacities holds the canonical capacity of every cycle that has
	// one, in series order; CapacityCycles holds the aligned cycle
	// numbers. Missing-capacity cycles are skipped, not zero-filled.
	Capacities     []float64
	CapacityCycles []int

	FirstCapacity  *float64 // reference for retention, first valid capacity
	FirstDischarge *float64 // first valid specific discharge capacity, mAh/g
	FirstCycleCE   *float64 // ratio

	LastRetention *float64 // 0..1, capacity at last valid cycle / first
	RetentionAt10 *float64 // 0..1, at the 10th valid cycle (or last, >=5 points)

	CEMean *float64 // percent, stable cycling window
	CEStd  *float64 // percent, stable cycling window

	EarlyFadeRate *float64 // %/cycle, first half of the capacity series
	LateFadeRate  *float64 // %/cycle, second half

	MissingFractions map[Column]float64
}
