package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"CellScope/internal/domain/models"
	"CellScope/internal/services/detectors"
)

func fp(v float64) *float64 { return &v }

// degradedSeries trips several rules at once: rapid fade, low CE, and
// an impossible efficiency spike.
func degradedSeries() *models.CellSeries {
	s := &models.CellSeries{CellID: "cell-7", ExperimentID: "exp-1"}
	caps := []float64{100, 95, 90, 85, 80, 76, 72, 70, 68, 65}
	for i, c := range caps {
		ce := 0.88
		if i == 4 {
			ce = 1.20
		}
		s.Records = append(s.Records, models.CycleRecord{
			CycleNumber:               i + 1,
			SpecificDischargeCapacity: fp(c),
			SpecificChargeCapacity:    fp(c / ce),
			CoulombicEfficiency:       fp(ce),
		})
	}
	return s
}

// healthySeries is a cell cycled to end of life: gradual linear fade to
// 65% retention over 200 cycles, steady efficiency. Nothing to flag.
func healthySeries() *models.CellSeries {
	s := &models.CellSeries{CellID: "cell-1", ExperimentID: "exp-1"}
	for i := 0; i < 200; i++ {
		cap := 100 - 0.175*float64(i)
		s.Records = append(s.Records, models.CycleRecord{
			CycleNumber:               i + 1,
			SpecificDischargeCapacity: fp(cap),
			SpecificChargeCapacity:    fp(cap / 0.995),
			CoulombicEfficiency:       fp(0.995),
		})
	}
	return s
}

func TestAggregateOrdersBySeverityThenConfidence(t *testing.T) {
	agg := NewFlagAggregator(detectors.Registry(), nil)
	set, err := agg.Aggregate(context.Background(), degradedSeries(), nil)
	require.NoError(t, err)
	require.NotEmpty(t, set.Flags)

	for i := 1; i < len(set.Flags); i++ {
		prev, cur := set.Flags[i-1], set.Flags[i]
		require.GreaterOrEqual(t, int(prev.Severity), int(cur.Severity))
		if prev.Severity == cur.Severity {
			require.GreaterOrEqual(t, prev.Confidence, cur.Confidence)
		}
	}

	require.Equal(t, set.Summary.Total(), len(set.Flags))
}

func TestAggregateIsDeterministic(t *testing.T) {
	agg := NewFlagAggregator(detectors.Registry(), nil)
	s := degradedSeries()

	first, err := agg.Aggregate(context.Background(), s, nil)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := agg.Aggregate(context.Background(), s, nil)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

func TestAggregateHealthyCellIsClean(t *testing.T) {
	agg := NewFlagAggregator(detectors.Registry(), nil)
	set, err := agg.Aggregate(context.Background(), healthySeries(), nil)
	require.NoError(t, err)
	require.Empty(t, set.Flags)
	require.Equal(t, 0, set.Summary.Total())
	require.Equal(t, "cell-1", set.CellID)
}

func TestAggregateRejectsInvalidSeries(t *testing.T) {
	agg := NewFlagAggregator(detectors.Registry(), nil)

	t.Run("duplicate cycle numbers", func(t *testing.T) {
		s := &models.CellSeries{CellID: "cell-1", Records: []models.CycleRecord{
			{CycleNumber: 1}, {CycleNumber: 2}, {CycleNumber: 2},
		}}
		_, err := agg.Aggregate(context.Background(), s, nil)
		require.Error(t, err)
		require.True(t, errors.Is(err, models.ErrInvalidSeries))
	})

	t.Run("non-monotonic cycle numbers", func(t *testing.T) {
		s := &models.CellSeries{CellID: "cell-1", Records: []models.CycleRecord{
			{CycleNumber: 2}, {CycleNumber: 1},
		}}
		_, err := agg.Aggregate(context.Background(), s, nil)
		require.True(t, errors.Is(err, models.ErrInvalidSeries))
	})

	t.Run("non-positive cycle number", func(t *testing.T) {
		s := &models.CellSeries{CellID: "cell-1", Records: []models.CycleRecord{
			{CycleNumber: 0},
		}}
		_, err := agg.Aggregate(context.Background(), s, nil)
		require.True(t, errors.Is(err, models.ErrInvalidSeries))
	})
}

func TestAggregateEmptySeriesYieldsNoFlags(t *testing.T) {
	agg := NewFlagAggregator(detectors.Registry(), nil)
	set, err := agg.Aggregate(context.Background(), &models.CellSeries{CellID: "cell-1"}, nil)
	require.NoError(t, err)
	require.Empty(t, set.Flags)
}
