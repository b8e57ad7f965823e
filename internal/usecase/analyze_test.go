package usecase

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"CellScope/internal/domain/models"
	"CellScope/internal/services/detectors"
)

// fakeCycleStore serves pre-built series from memory.
type fakeCycleStore struct {
	series map[string]*models.CellSeries // key: experiment/cell
	stored []*models.CycleUpdate
}

func newFakeCycleStore() *fakeCycleStore {
	return &fakeCycleStore{series: map[string]*models.CellSeries{}}
}

func (f *fakeCycleStore) add(s *models.CellSeries) {
	f.series[s.ExperimentID+"/"+s.CellID] = s
}

func (f *fakeCycleStore) Init(ctx context.Context) error { return nil }

func (f *fakeCycleStore) Store(ctx context.Context, u *models.CycleUpdate) error {
	f.stored = append(f.stored, u)
	return nil
}

func (f *fakeCycleStore) StoreBatch(ctx context.Context, updates []*models.CycleUpdate) error {
	f.stored = append(f.stored, updates...)
	return nil
}

func (f *fakeCycleStore) GetCellSeries(ctx context.Context, experiment, cell string) (*models.CellSeries, error) {
	s, ok := f.series[experiment+"/"+cell]
	if !ok {
		return nil, fmt.Errorf("cell %s not found", cell)
	}
	return s, nil
}

func (f *fakeCycleStore) ListCells(ctx context.Context, experiment string) ([]string, error) {
	var out []string
	for _, s := range f.series {
		if s.ExperimentID == experiment {
			out = append(out, s.CellID)
		}
	}
	return out, nil
}

func (f *fakeCycleStore) GetFirstDischarges(ctx context.Context, experiment string) (map[string]float64, error) {
	out := map[string]float64{}
	for _, s := range f.series {
		if s.ExperimentID != experiment {
			continue
		}
		for _, r := range s.Records {
			if r.SpecificDischargeCapacity != nil {
				out[s.CellID] = *r.SpecificDischargeCapacity
				break
			}
		}
	}
	return out, nil
}

func (f *fakeCycleStore) Health(ctx context.Context) error { return nil }
func (f *fakeCycleStore) Close() error                     { return nil }

// flatSeries builds n cycles at constant capacity for a named cell.
func flatSeries(experiment, cell string, cap float64, n int) *models.CellSeries {
	s := &models.CellSeries{CellID: cell, ExperimentID: experiment}
	for i := 0; i < n; i++ {
		s.Records = append(s.Records, models.CycleRecord{
			CycleNumber:               i + 1,
			SpecificDischargeCapacity: fp(cap),
			SpecificChargeCapacity:    fp(cap / 0.995),
			CoulombicEfficiency:       fp(0.995),
		})
	}
	return s
}

func newAnalyzeUC(store *fakeCycleStore) *AnalyzeUseCase {
	return NewAnalyzeUseCase(store, NewFlagAggregator(detectors.Registry(), nil))
}

func TestAnalyzeCellFlagsCrossCellOutlier(t *testing.T) {
	store := newFakeCycleStore()
	for i, cap := range []float64{100, 102, 98, 101} {
		store.add(flatSeries("exp-1", fmt.Sprintf("cell-%d", i+1), cap, 5))
	}
	store.add(flatSeries("exp-1", "cell-5", 400, 5))

	uc := newAnalyzeUC(store)
	set, err := uc.AnalyzeCell(context.Background(), "exp-1", "cell-5")
	require.NoError(t, err)

	var outlier []models.Flag
	for _, f := range set.Flags {
		if f.Type == models.FlagAnomalousFirstDischarge {
			outlier = append(outlier, f)
		}
	}
	require.Len(t, outlier, 1)
	require.Equal(t, models.SeverityCritical, outlier[0].Severity)

	// Typical siblings must stay clean of the cross-cell rule.
	set, err = uc.AnalyzeCell(context.Background(), "exp-1", "cell-1")
	require.NoError(t, err)
	for _, f := range set.Flags {
		require.NotEqual(t, models.FlagAnomalousFirstDischarge, f.Type)
	}
}

func TestAnalyzeCellValidatesArguments(t *testing.T) {
	uc := newAnalyzeUC(newFakeCycleStore())
	_, err := uc.AnalyzeCell(context.Background(), "", "cell-1")
	require.Error(t, err)
	_, err = uc.AnalyzeCell(context.Background(), "exp-1", "")
	require.Error(t, err)
}

func TestAnalyzeExperimentCollectsPerCellErrors(t *testing.T) {
	store := newFakeCycleStore()
	store.add(flatSeries("exp-1", "cell-1", 100, 5))
	// cell-2 has a broken history.
	broken := flatSeries("exp-1", "cell-2", 100, 3)
	broken.Records[2].CycleNumber = broken.Records[1].CycleNumber
	store.add(broken)

	uc := newAnalyzeUC(store)
	res, err := uc.AnalyzeExperiment(context.Background(), "exp-1", 0)
	require.NoError(t, err)
	require.Len(t, res.Cells, 1)
	require.Equal(t, "cell-1", res.Cells[0].CellID)
	require.Contains(t, res.Errors, "cell-2")
}

func TestAnalyzeExperimentOrdersCells(t *testing.T) {
	store := newFakeCycleStore()
	for _, cell := range []string{"cell-3", "cell-1", "cell-2"} {
		store.add(flatSeries("exp-1", cell, 100, 5))
	}

	uc := newAnalyzeUC(store)
	res, err := uc.AnalyzeExperiment(context.Background(), "exp-1", 0)
	require.NoError(t, err)
	require.Len(t, res.Cells, 3)
	require.Equal(t, "cell-1", res.Cells[0].CellID)
	require.Equal(t, "cell-2", res.Cells[1].CellID)
	require.Equal(t, "cell-3", res.Cells[2].CellID)
}

func TestSummarizeExperiment(t *testing.T) {
	store := newFakeCycleStore()
	for i, cap := range []float64{100, 102, 98, 101} {
		store.add(flatSeries("exp-1", fmt.Sprintf("cell-%d", i+1), cap, 5))
	}
	store.add(flatSeries("exp-1", "cell-5", 400, 5))

	uc := newAnalyzeUC(store)
	sum, err := uc.SummarizeExperiment(context.Background(), "exp-1")
	require.NoError(t, err)
	require.Equal(t, "exp-1", sum.ExperimentID)
	require.Equal(t, 5, sum.CellCount)
	require.GreaterOrEqual(t, sum.Summary.Critical, 1)
	require.Contains(t, sum.WorstCells, "cell-5")
}
