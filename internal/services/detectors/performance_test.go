package detectors

import (
	"testing"

	"github.com/stretchr/testify/require"

	"CellScope/internal/domain/models"
)

func TestRapidCapacityFade(t *testing.T) {
	t.Run("warning below 80 percent", func(t *testing.T) {
		s := capSeries(100, 98, 96, 94, 92, 90, 88, 86, 84, 79)
		flags := RapidCapacityFade{}.Evaluate(s, ctxFor(s))
		require.Len(t, flags, 1)
		f := flags[0]
		require.Equal(t, models.FlagRapidCapacityFade, f.Type)
		require.Equal(t, models.SeverityWarning, f.Severity)
		require.Equal(t, 85.0, f.Confidence)
		require.NotNil(t, f.MetricValue)
		require.InDelta(t, 79.0, *f.MetricValue, 1e-9)
	})

	t.Run("critical below 70 percent", func(t *testing.T) {
		s := capSeries(100, 96, 92, 88, 84, 80, 76, 72, 70, 65)
		flags := RapidCapacityFade{}.Evaluate(s, ctxFor(s))
		require.Len(t, flags, 1)
		require.Equal(t, models.SeverityCritical, flags[0].Severity)
		require.Equal(t, 95.0, flags[0].Confidence)
	})

	t.Run("no flag at 81 percent", func(t *testing.T) {
		s := capSeries(100, 98, 96, 94, 92, 90, 88, 86, 84, 81)
		require.Empty(t, RapidCapacityFade{}.Evaluate(s, ctxFor(s)))
	})

	t.Run("abstains below five capacity points", func(t *testing.T) {
		s := capSeries(100, 70, 60)
		require.Empty(t, RapidCapacityFade{}.Evaluate(s, ctxFor(s)))
	})

	t.Run("no flag for sparse measurements spanning a long test", func(t *testing.T) {
		// Six points across 40 cycles fading normally to 75 percent:
		// nothing is known about retention at cycle 10.
		s := &models.CellSeries{CellID: "cell-1", ExperimentID: "exp-1"}
		caps := []float64{100, 96, 91, 86, 80, 75}
		for i, n := range []int{1, 8, 16, 24, 32, 40} {
			s.Records = append(s.Records, models.CycleRecord{
				CycleNumber:               n,
				SpecificDischargeCapacity: fp(caps[i]),
			})
		}
		require.Empty(t, RapidCapacityFade{}.Evaluate(s, ctxFor(s)))
	})
}

func TestCellFailure(t *testing.T) {
	ramp := func(n int, from, to float64) []float64 {
		caps := make([]float64, n)
		step := (from - to) / float64(n-1)
		for i := range caps {
			caps[i] = from - float64(i)*step
		}
		return caps
	}

	t.Run("flags drop below half within fifty cycles", func(t *testing.T) {
		s := capSeries(ramp(40, 100, 49)...)
		flags := CellFailure{}.Evaluate(s, ctxFor(s))
		require.Len(t, flags, 1)
		f := flags[0]
		require.Equal(t, models.FlagCellFailure, f.Type)
		require.Equal(t, models.SeverityCritical, f.Severity)
		require.Equal(t, 98.0, f.Confidence)
		require.NotNil(t, f.CycleRange)
		require.Equal(t, 40, f.CycleRange.First)
	})

	t.Run("no flag when retention stays above half", func(t *testing.T) {
		s := capSeries(ramp(40, 100, 51)...)
		require.Empty(t, CellFailure{}.Evaluate(s, ctxFor(s)))
	})

	t.Run("no flag when the drop happens after cycle fifty", func(t *testing.T) {
		s := capSeries(ramp(60, 100, 49)...)
		require.Empty(t, CellFailure{}.Evaluate(s, ctxFor(s)))
	})
}

func TestLowCoulombicEfficiency(t *testing.T) {
	t.Run("warning below 95 percent mean", func(t *testing.T) {
		s := ceSeries(0.93, 0.93, 0.93, 0.93, 0.93, 0.93)
		flags := LowCoulombicEfficiency{}.Evaluate(s, ctxFor(s))
		require.Len(t, flags, 1)
		require.Equal(t, models.SeverityWarning, flags[0].Severity)
		require.InDelta(t, 78.0, flags[0].Confidence, 1e-6)
	})

	t.Run("critical below 90 percent mean", func(t *testing.T) {
		s := ceSeries(0.88, 0.88, 0.88, 0.88, 0.88, 0.88)
		flags := LowCoulombicEfficiency{}.Evaluate(s, ctxFor(s))
		require.Len(t, flags, 1)
		require.Equal(t, models.SeverityCritical, flags[0].Severity)
	})

	t.Run("no flag at healthy mean", func(t *testing.T) {
		s := ceSeries(0.99, 0.99, 0.99, 0.99, 0.99, 0.99)
		require.Empty(t, LowCoulombicEfficiency{}.Evaluate(s, ctxFor(s)))
	})

	t.Run("abstains below five stable cycles", func(t *testing.T) {
		s := ceSeries(0.80, 0.80, 0.80)
		require.Empty(t, LowCoulombicEfficiency{}.Evaluate(s, ctxFor(s)))
	})
}

func TestHighCEVariation(t *testing.T) {
	t.Run("flags unstable efficiency", func(t *testing.T) {
		s := ceSeries(0.99, 0.89, 0.99, 0.89, 0.99, 0.89)
		flags := HighCEVariation{}.Evaluate(s, ctxFor(s))
		require.Len(t, flags, 1)
		require.Equal(t, models.FlagHighCEVariation, flags[0].Type)
		require.Equal(t, models.SeverityWarning, flags[0].Severity)
	})

	t.Run("suppressed when the mean is already low", func(t *testing.T) {
		s := ceSeries(0.95, 0.75, 0.95, 0.75, 0.95, 0.75)
		require.Empty(t, HighCEVariation{}.Evaluate(s, ctxFor(s)))
	})

	t.Run("no flag on steady efficiency", func(t *testing.T) {
		s := ceSeries(0.99, 0.99, 0.99, 0.99, 0.99, 0.99)
		require.Empty(t, HighCEVariation{}.Evaluate(s, ctxFor(s)))
	})
}

func TestAcceleratingDegradation(t *testing.T) {
	t.Run("flags a fade rate that doubles late in life", func(t *testing.T) {
		caps := make([]float64, 0, 20)
		for i := 0; i < 10; i++ {
			caps = append(caps, 100)
		}
		for i := 1; i <= 10; i++ {
			caps = append(caps, 100-float64(i))
		}
		s := capSeries(caps...)
		flags := AcceleratingDegradation{}.Evaluate(s, ctxFor(s))
		require.Len(t, flags, 1)
		require.Equal(t, models.SeverityWarning, flags[0].Severity)
		require.Equal(t, 75.0, flags[0].Confidence)
	})

	t.Run("no flag for a constant fade rate", func(t *testing.T) {
		caps := make([]float64, 0, 20)
		for i := 0; i < 20; i++ {
			caps = append(caps, 100-float64(i))
		}
		s := capSeries(caps...)
		require.Empty(t, AcceleratingDegradation{}.Evaluate(s, ctxFor(s)))
	})

	t.Run("abstains below twenty cycles", func(t *testing.T) {
		s := capSeries(100, 100, 100, 100, 100, 95, 90, 85, 80, 75)
		require.Empty(t, AcceleratingDegradation{}.Evaluate(s, ctxFor(s)))
	})
}

func TestPoorFirstCycleEfficiency(t *testing.T) {
	t.Run("warning below 60 percent", func(t *testing.T) {
		s := ceSeries(0.55, 0.99, 0.99)
		flags := PoorFirstCycleEfficiency{}.Evaluate(s, ctxFor(s))
		require.Len(t, flags, 1)
		require.Equal(t, models.SeverityWarning, flags[0].Severity)
		require.InDelta(t, 80.0, flags[0].Confidence, 1e-6)
	})

	t.Run("critical below 40 percent", func(t *testing.T) {
		s := ceSeries(0.35, 0.99, 0.99)
		flags := PoorFirstCycleEfficiency{}.Evaluate(s, ctxFor(s))
		require.Len(t, flags, 1)
		require.Equal(t, models.SeverityCritical, flags[0].Severity)
		require.Equal(t, 99.0, flags[0].Confidence)
	})

	t.Run("no flag at 65 percent", func(t *testing.T) {
		s := ceSeries(0.65, 0.99, 0.99)
		require.Empty(t, PoorFirstCycleEfficiency{}.Evaluate(s, ctxFor(s)))
	})
}
