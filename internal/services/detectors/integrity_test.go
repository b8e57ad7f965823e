package detectors

import (
	"testing"

	"github.com/stretchr/testify/require"

	"CellScope/internal/domain/models"
)

func TestIncompleteDataset(t *testing.T) {
	flat := func(n int) []float64 {
		caps := make([]float64, n)
		for i := range caps {
			caps[i] = 100
		}
		return caps
	}

	t.Run("flags a healthy cell with few cycles", func(t *testing.T) {
		s := capSeries(flat(10)...)
		flags := IncompleteDataset{}.Evaluate(s, ctxFor(s))
		require.Len(t, flags, 1)
		f := flags[0]
		require.Equal(t, models.FlagIncompleteDataset, f.Type)
		require.Equal(t, models.SeverityInfo, f.Severity)
		require.Equal(t, 70.0, f.Confidence)
	})

	t.Run("no flag at thirty cycles", func(t *testing.T) {
		s := capSeries(flat(30)...)
		require.Empty(t, IncompleteDataset{}.Evaluate(s, ctxFor(s)))
	})

	t.Run("no flag when the cell is degraded", func(t *testing.T) {
		s := capSeries(100, 95, 90, 85, 80, 78, 77, 76, 76, 75)
		require.Empty(t, IncompleteDataset{}.Evaluate(s, ctxFor(s)))
	})
}

func TestPrematureTermination(t *testing.T) {
	t.Run("flags a stable trace that just stops", func(t *testing.T) {
		caps := make([]float64, 15)
		for i := range caps {
			caps[i] = 100
		}
		s := capSeries(caps...)
		flags := PrematureTermination{}.Evaluate(s, ctxFor(s))
		require.Len(t, flags, 1)
		f := flags[0]
		require.Equal(t, models.SeverityInfo, f.Severity)
		require.Equal(t, 70.0, f.Confidence)
		require.NotNil(t, f.CycleRange)
		require.Equal(t, 15, f.CycleRange.Last)
	})

	t.Run("no flag when the tail is still moving", func(t *testing.T) {
		s := capSeries(100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 95, 105, 85)
		require.Empty(t, PrematureTermination{}.Evaluate(s, ctxFor(s)))
	})

	t.Run("abstains at ten cycles or fewer", func(t *testing.T) {
		s := capSeries(100, 100, 100, 100, 100, 100, 100, 100, 100, 100)
		require.Empty(t, PrematureTermination{}.Evaluate(s, ctxFor(s)))
	})
}

func TestMissingData(t *testing.T) {
	// seriesWithMissingCE keeps every capacity column populated and drops
	// the efficiency on the first `gaps` rows.
	seriesWithMissingCE := func(n, gaps int) *models.CellSeries {
		s := &models.CellSeries{CellID: "cell-1", ExperimentID: "exp-1"}
		for i := 0; i < n; i++ {
			r := models.CycleRecord{
				CycleNumber:               i + 1,
				SpecificDischargeCapacity: fp(100),
				SpecificChargeCapacity:    fp(101),
			}
			if i >= gaps {
				r.CoulombicEfficiency = fp(0.99)
			}
			s.Records = append(s.Records, r)
		}
		return s
	}

	t.Run("flags a column above 20 percent missing", func(t *testing.T) {
		s := seriesWithMissingCE(20, 5)
		flags := MissingData{}.Evaluate(s, ctxFor(s))
		require.Len(t, flags, 1)
		f := flags[0]
		require.Equal(t, models.FlagMissingData, f.Type)
		require.Equal(t, models.SeverityWarning, f.Severity)
		require.InDelta(t, 65.0, f.Confidence, 1e-6)
		require.Contains(t, f.Message, "coulombic_efficiency")
	})

	t.Run("no flag at 10 percent missing", func(t *testing.T) {
		s := seriesWithMissingCE(20, 2)
		require.Empty(t, MissingData{}.Evaluate(s, ctxFor(s)))
	})

	t.Run("one flag covers multiple columns", func(t *testing.T) {
		s := &models.CellSeries{CellID: "cell-1", ExperimentID: "exp-1"}
		for i := 0; i < 10; i++ {
			r := models.CycleRecord{CycleNumber: i + 1}
			if i >= 5 {
				r.SpecificDischargeCapacity = fp(100)
				r.SpecificChargeCapacity = fp(101)
				r.CoulombicEfficiency = fp(0.99)
			}
			s.Records = append(s.Records, r)
		}
		flags := MissingData{}.Evaluate(s, ctxFor(s))
		require.Len(t, flags, 1)
		require.Contains(t, flags[0].Message, "discharge_capacity")
		require.Contains(t, flags[0].Message, "charge_capacity")
		require.Contains(t, flags[0].Message, "coulombic_efficiency")
	})
}

func TestDataInconsistency(t *testing.T) {
	t.Run("flags negative capacities", func(t *testing.T) {
		s := capSeries(100, 99, -5, 98, 97)
		flags := DataInconsistency{}.Evaluate(s, ctxFor(s))
		require.Len(t, flags, 1)
		require.Equal(t, models.SeverityWarning, flags[0].Severity)
		require.Equal(t, 80.0, flags[0].Confidence)
		require.Contains(t, flags[0].Message, "negative")
	})

	t.Run("flags excessive zero values", func(t *testing.T) {
		s := capSeries(100, 0, 0, 0, 99, 98, 0, 97, 0, 96)
		flags := DataInconsistency{}.Evaluate(s, ctxFor(s))
		require.Len(t, flags, 1)
		require.Contains(t, flags[0].Message, "zero capacity")
	})

	t.Run("tolerates a few zeros", func(t *testing.T) {
		s := capSeries(100, 99, 0, 98, 97, 96, 95, 94, 93, 92)
		require.Empty(t, DataInconsistency{}.Evaluate(s, ctxFor(s)))
	})
}
