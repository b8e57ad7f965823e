package detectors

import (
	"testing"

	"github.com/stretchr/testify/require"

	"CellScope/internal/domain/models"
)

func TestAnomalousFirstDischarge(t *testing.T) {
	siblings := []float64{100, 102, 98, 101, 400}

	t.Run("flags the outlier cell", func(t *testing.T) {
		s := capSeries(400, 398, 396)
		flags := AnomalousFirstDischarge{}.Evaluate(s, ctxFor(s, siblings...))
		require.Len(t, flags, 1)
		f := flags[0]
		require.Equal(t, models.FlagAnomalousFirstDischarge, f.Type)
		require.Equal(t, models.SeverityCritical, f.Severity)
		require.Equal(t, 99.0, f.Confidence)
		require.InDelta(t, 400.0, *f.MetricValue, 1e-9)
	})

	t.Run("does not flag a typical cell against the same population", func(t *testing.T) {
		s := capSeries(100, 99, 98)
		require.Empty(t, AnomalousFirstDischarge{}.Evaluate(s, ctxFor(s, siblings...)))
	})

	t.Run("abstains with fewer than three peers", func(t *testing.T) {
		s := capSeries(400, 398, 396)
		require.Empty(t, AnomalousFirstDischarge{}.Evaluate(s, ctxFor(s, 100, 102, 400)))
	})

	t.Run("abstains with no sibling population", func(t *testing.T) {
		s := capSeries(400, 398, 396)
		require.Empty(t, AnomalousFirstDischarge{}.Evaluate(s, ctxFor(s)))
	})

	t.Run("abstains when peers have zero spread", func(t *testing.T) {
		s := capSeries(400, 398, 396)
		require.Empty(t, AnomalousFirstDischarge{}.Evaluate(s, ctxFor(s, 100, 100, 100, 100, 400)))
	})
}
