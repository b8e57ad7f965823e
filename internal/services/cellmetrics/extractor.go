package cellmetrics

import (
	"math"

	"CellScope/internal/domain/models"
)

// Pure, stateless metric extraction over a cell series. Every function
// returns nil for "undefined" instead of raising when there is not
// enough data; detectors treat nil as non-triggering.

const (
	// minCapacityPoints is the fewest valid capacity values needed
	// before retention-based statistics are considered defined.
	minCapacityPoints = 5

	// minStableCEPoints is the fewest stable-window efficiency values
	// needed for CE mean/std.
	minStableCEPoints = 5

	// minZScorePopulation is the smallest population a z-score can be
	// computed against.
	minZScorePopulation = 3
)

// Extract computes the shared per-series intermediates exactly once.
func Extract(series *models.CellSeries) *models.SeriesMetrics {
	m := &models.SeriesMetrics{
		MissingFractions: MissingFractions(series),
	}

	for _, r := range series.Records {
		if c := r.Capacity(); c != nil {
			m.Capacities = append(m.Capacities, *c)
			m.CapacityCycles = append(m.CapacityCycles, r.CycleNumber)
		}
		if m.FirstDischarge == nil && r.SpecificDischargeCapacity != nil {
			v := *r.SpecificDischargeCapacity
			m.FirstDischarge = &v
		}
	}

	if len(series.Records) > 0 && series.Records[0].CoulombicEfficiency != nil {
		v := *series.Records[0].CoulombicEfficiency
		m.FirstCycleCE = &v
	}

	if len(m.Capacities) > 0 && m.Capacities[0] > 0 {
		first := m.Capacities[0]
		m.FirstCapacity = &first

		last := m.Capacities[len(m.Capacities)-1] / first
		m.LastRetention = &last

		if len(m.Capacities) >= 10 {
			r10 := m.Capacities[9] / first
			m.RetentionAt10 = &r10
		} else if len(m.Capacities) >= minCapacityPoints &&
			m.CapacityCycles[len(m.CapacityCycles)-1] <= 10 {
			// Short series: the last cycle stands in for cycle 10. A
			// sparse series whose few points span a long test says
			// nothing about early fade, so it stays undefined.
			r := m.Capacities[len(m.Capacities)-1] / first
			m.RetentionAt10 = &r
		}
	}

	stable := StableWindowCE(series)
	m.CEMean = Mean(stable)
	m.CEStd = Std(stable)

	if len(m.Capacities) >= 20 {
		mid := len(m.Capacities) / 2
		m.EarlyFadeRate = FadeRate(m.Capacities[:mid])
		m.LateFadeRate = FadeRate(m.Capacities[mid:])
	}

	return m
}

// Retention returns capacity at index i of the valid-capacity sequence
// divided by the first valid capacity, or nil when undefined.
func Retention(capacities []float64, i int) *float64 {
	if i < 0 || i >= len(capacities) || len(capacities) == 0 || capacities[0] <= 0 {
		return nil
	}
	r := capacities[i] / capacities[0]
	return &r
}

// StableWindowCE returns coulombic efficiencies, in percent, for cycles
// strictly after the formation cycles.
func StableWindowCE(series *models.CellSeries) []float64 {
	skip := series.FormationCycleCount
	out := make([]float64, 0, len(series.Records))
	for _, r := range series.Records {
		if r.CycleNumber <= skip || r.CoulombicEfficiency == nil {
			continue
		}
		out = append(out, *r.CoulombicEfficiency*100)
	}
	if len(out) < minStableCEPoints {
		return nil
	}
	return out
}

// Mean returns the arithmetic mean, or nil for an empty input.
func Mean(xs []float64) *float64 {
	if len(xs) == 0 {
		return nil
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	m := sum / float64(len(xs))
	return &m
}

// Std returns the sample standard deviation, or nil below two points.
func Std(xs []float64) *float64 {
	if len(xs) < 2 {
		return nil
	}
	mean := *Mean(xs)
	sum2 := 0.0
	for _, x := range xs {
		d := x - mean
		sum2 += d * d
	}
	s := math.Sqrt(sum2 / float64(len(xs)-1))
	return &s
}

// FadeRate computes the mean fractional capacity loss per cycle over a
// window, as a percentage, from the linear slope of capacity against
// cycle index. Returns nil below two points or for a non-positive
// initial capacity.
func FadeRate(capacities []float64) *float64 {
	n := len(capacities)
	if n < 2 || capacities[0] <= 0 {
		return nil
	}

	// Least-squares slope with x = 0..n-1.
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range capacities {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	fn := float64(n)
	denom := fn*sumXX - sumX*sumX
	if denom == 0 {
		return nil
	}
	slope := (fn*sumXY - sumX*sumY) / denom

	rate := math.Abs(slope/capacities[0]) * 100
	return &rate
}

// ZScore computes (value - mean) / std against a population, using the
// population standard deviation. Undefined (nil) when the population has
// fewer than three members or zero spread.
func ZScore(value float64, population []float64) *float64 {
	if len(population) < minZScorePopulation {
		return nil
	}
	mean := *Mean(population)
	sum2 := 0.0
	for _, x := range population {
		d := x - mean
		sum2 += d * d
	}
	std := math.Sqrt(sum2 / float64(len(population)))
	if std == 0 {
		return nil
	}
	z := (value - mean) / std
	return &z
}

// MissingFractions computes the fraction of absent values per critical
// column. Capacity columns count a row as present when either the
// specific or the absolute measurement exists.
func MissingFractions(series *models.CellSeries) map[models.Column]float64 {
	out := make(map[models.Column]float64, len(models.CriticalColumns))
	n := len(series.Records)
	if n == 0 {
		return out
	}
	missing := map[models.Column]int{}
	for _, r := range series.Records {
		if r.SpecificDischargeCapacity == nil && r.DischargeCapacity == nil {
			missing[models.ColumnDischarge]++
		}
		if r.SpecificChargeCapacity == nil && r.ChargeCapacity == nil {
			missing[models.ColumnCharge]++
		}
		if r.CoulombicEfficiency == nil {
			missing[models.ColumnEfficiency]++
		}
	}
	for _, col := range models.CriticalColumns {
		out[col] = float64(missing[col]) / float64(n)
	}
	return out
}
