package detectors

import (
	"testing"

	"github.com/stretchr/testify/require"

	"CellScope/internal/domain/models"
)

func TestImpossibleEfficiency(t *testing.T) {
	t.Run("flags efficiency above 105 percent", func(t *testing.T) {
		s := ceSeries(0.99, 1.10, 0.99)
		flags := ImpossibleEfficiency{}.Evaluate(s, ctxFor(s))
		require.Len(t, flags, 1)
		f := flags[0]
		require.Equal(t, models.FlagImpossibleEfficiency, f.Type)
		require.Equal(t, models.SeverityCritical, f.Severity)
		require.Equal(t, 99.0, f.Confidence)
		require.NotNil(t, f.CycleRange)
		require.Equal(t, 2, f.CycleRange.First)
	})

	t.Run("reports the worst cycle", func(t *testing.T) {
		s := ceSeries(1.06, 1.30, 1.07)
		flags := ImpossibleEfficiency{}.Evaluate(s, ctxFor(s))
		require.Len(t, flags, 1)
		require.Equal(t, 2, flags[0].CycleRange.First)
		require.InDelta(t, 130.0, *flags[0].MetricValue, 1e-9)
	})

	t.Run("tolerates measurement noise up to 105 percent", func(t *testing.T) {
		s := ceSeries(0.99, 1.04, 1.05)
		require.Empty(t, ImpossibleEfficiency{}.Evaluate(s, ctxFor(s)))
	})
}

func TestExceedsTheoreticalCapacity(t *testing.T) {
	t.Run("flags capacity above 450 mAh/g", func(t *testing.T) {
		s := capSeries(200, 500, 210)
		flags := ExceedsTheoreticalCapacity{}.Evaluate(s, ctxFor(s))
		require.Len(t, flags, 1)
		f := flags[0]
		require.Equal(t, models.FlagExceedsTheoreticalCap, f.Type)
		require.Equal(t, models.SeverityWarning, f.Severity)
		require.Equal(t, 80.0, f.Confidence)
		require.InDelta(t, 500.0, *f.MetricValue, 1e-9)
		require.Equal(t, 2, f.CycleRange.First)
	})

	t.Run("no flag at exactly the limit", func(t *testing.T) {
		s := capSeries(200, 450, 210)
		require.Empty(t, ExceedsTheoreticalCapacity{}.Evaluate(s, ctxFor(s)))
	})

	t.Run("ignores absolute capacities", func(t *testing.T) {
		s := &models.CellSeries{CellID: "cell-1", ExperimentID: "exp-1"}
		s.Records = append(s.Records, models.CycleRecord{
			CycleNumber:       1,
			DischargeCapacity: fp(600), // mAh, not mAh/g
		})
		require.Empty(t, ExceedsTheoreticalCapacity{}.Evaluate(s, ctxFor(s)))
	})
}
