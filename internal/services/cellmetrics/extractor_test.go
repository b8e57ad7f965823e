package cellmetrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"CellScope/internal/domain/models"
)

func fp(v float64) *float64 { return &v }

func seriesOf(caps []float64, ces []float64, formation int) *models.CellSeries {
	s := &models.CellSeries{
		CellID:              "cell-1",
		ExperimentID:        "exp-1",
		FormationCycleCount: formation,
	}
	n := len(caps)
	if len(ces) > n {
		n = len(ces)
	}
	for i := 0; i < n; i++ {
		r := models.CycleRecord{CycleNumber: i + 1}
		if i < len(caps) {
			r.SpecificDischargeCapacity = fp(caps[i])
		}
		if i < len(ces) {
			r.CoulombicEfficiency = fp(ces[i])
		}
		s.Records = append(s.Records, r)
	}
	return s
}

func TestExtractBasics(t *testing.T) {
	caps := []float64{100, 98, 96, 94, 92, 90, 88, 86, 84, 82, 80}
	ces := []float64{0.90, 0.98, 0.98, 0.98, 0.98, 0.98, 0.98, 0.98, 0.98, 0.98, 0.98}
	m := Extract(seriesOf(caps, ces, 0))

	require.Len(t, m.Capacities, 11)
	require.NotNil(t, m.FirstCapacity)
	require.Equal(t, 100.0, *m.FirstCapacity)
	require.NotNil(t, m.FirstDischarge)
	require.Equal(t, 100.0, *m.FirstDischarge)
	require.NotNil(t, m.FirstCycleCE)
	require.Equal(t, 0.90, *m.FirstCycleCE)

	require.NotNil(t, m.RetentionAt10)
	require.InDelta(t, 0.82, *m.RetentionAt10, 1e-9)
	require.NotNil(t, m.LastRetention)
	require.InDelta(t, 0.80, *m.LastRetention, 1e-9)
}

func TestExtractShortSeriesFallsBackToLastCycle(t *testing.T) {
	m := Extract(seriesOf([]float64{100, 95, 90, 85, 78}, nil, 0))
	require.NotNil(t, m.RetentionAt10)
	require.InDelta(t, 0.78, *m.RetentionAt10, 1e-9)
}

func TestExtractNoFallbackPastCycleTen(t *testing.T) {
	// Few points spread over a long test: the last cycle sits far past
	// cycle 10, so it cannot stand in for early retention.
	s := &models.CellSeries{CellID: "cell-1", ExperimentID: "exp-1"}
	caps := []float64{100, 96, 91, 86, 80, 75}
	for i, n := range []int{1, 8, 16, 24, 32, 40} {
		s.Records = append(s.Records, models.CycleRecord{
			CycleNumber:               n,
			SpecificDischargeCapacity: fp(caps[i]),
		})
	}

	m := Extract(s)
	require.Nil(t, m.RetentionAt10)
	require.NotNil(t, m.LastRetention)
	require.InDelta(t, 0.75, *m.LastRetention, 1e-9)
}

func TestExtractUndefinedOnSparseData(t *testing.T) {
	m := Extract(seriesOf([]float64{100, 90}, []float64{0.99, 0.99}, 0))
	require.Nil(t, m.RetentionAt10)
	require.Nil(t, m.CEMean)
	require.Nil(t, m.CEStd)
	require.Nil(t, m.EarlyFadeRate)
	require.Nil(t, m.LateFadeRate)
}

func TestExtractEmptySeries(t *testing.T) {
	m := Extract(&models.CellSeries{CellID: "cell-1"})
	require.Nil(t, m.FirstCapacity)
	require.Nil(t, m.FirstDischarge)
	require.Nil(t, m.FirstCycleCE)
	require.Nil(t, m.LastRetention)
	require.Empty(t, m.Capacities)
}

func TestStableWindowCESkipsFormation(t *testing.T) {
	ces := []float64{0.70, 0.80, 0.99, 0.99, 0.99, 0.99, 0.99, 0.99}
	s := seriesOf(nil, ces, 2)

	window := StableWindowCE(s)
	require.Len(t, window, 6)
	for _, v := range window {
		require.InDelta(t, 99.0, v, 1e-9)
	}

	m := Extract(s)
	require.NotNil(t, m.CEMean)
	require.InDelta(t, 99.0, *m.CEMean, 1e-9)
	require.NotNil(t, m.CEStd)
	require.InDelta(t, 0.0, *m.CEStd, 1e-9)
}

func TestMeanAndStd(t *testing.T) {
	require.Nil(t, Mean(nil))
	require.Nil(t, Std([]float64{5}))

	xs := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	require.InDelta(t, 5.0, *Mean(xs), 1e-9)
	// Sample std dev of the classic example set.
	require.InDelta(t, math.Sqrt(32.0/7.0), *Std(xs), 1e-9)
}

func TestFadeRate(t *testing.T) {
	t.Run("linear loss", func(t *testing.T) {
		r := FadeRate([]float64{100, 99, 98, 97, 96})
		require.NotNil(t, r)
		require.InDelta(t, 1.0, *r, 1e-9)
	})

	t.Run("flat trace", func(t *testing.T) {
		r := FadeRate([]float64{100, 100, 100, 100})
		require.NotNil(t, r)
		require.InDelta(t, 0.0, *r, 1e-9)
	})

	t.Run("undefined below two points", func(t *testing.T) {
		require.Nil(t, FadeRate([]float64{100}))
	})
}

func TestZScore(t *testing.T) {
	t.Run("standard case", func(t *testing.T) {
		z := ZScore(400, []float64{100, 102, 98, 101})
		require.NotNil(t, z)
		require.Greater(t, *z, 100.0)
	})

	t.Run("undefined below three members", func(t *testing.T) {
		require.Nil(t, ZScore(400, []float64{100, 102}))
	})

	t.Run("undefined at zero spread", func(t *testing.T) {
		require.Nil(t, ZScore(400, []float64{100, 100, 100}))
	})
}

func TestMissingFractions(t *testing.T) {
	s := &models.CellSeries{CellID: "cell-1"}
	for i := 0; i < 10; i++ {
		r := models.CycleRecord{CycleNumber: i + 1}
		if i < 8 {
			r.SpecificDischargeCapacity = fp(100)
		}
		if i < 5 {
			// Absolute charge capacity stands in for the specific column.
			r.ChargeCapacity = fp(2.5)
		}
		s.Records = append(s.Records, r)
	}

	fr := MissingFractions(s)
	require.InDelta(t, 0.2, fr[models.ColumnDischarge], 1e-9)
	require.InDelta(t, 0.5, fr[models.ColumnCharge], 1e-9)
	require.InDelta(t, 1.0, fr[models.ColumnEfficiency], 1e-9)
}
