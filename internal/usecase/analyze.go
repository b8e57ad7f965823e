package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"CellScope/internal/domain/models"
	domrepo "CellScope/internal/domain/repository"
)

// AnalyzeUseCase answers flag queries by joining the cycle store with
// the detection core: it reconstructs series, gathers the sibling
// population, and runs the aggregator per cell.
type AnalyzeUseCase struct {
	store    domrepo.CycleStore
	agg      *FlagAggregator
	timeout  time.Duration
	maxCells int
}

func NewAnalyzeUseCase(store domrepo.CycleStore, agg *FlagAggregator) *AnalyzeUseCase {
	return &AnalyzeUseCase{store: store, agg: agg, timeout: 30 * time.Second, maxCells: 512}
}

// AnalyzeSeries runs detection over a caller-supplied series with an
// explicit sibling population. No storage access happens.
func (uc *AnalyzeUseCase) AnalyzeSeries(ctx context.Context, series *models.CellSeries, siblings []float64) (*models.FlagSet, error) {
	return uc.agg.Aggregate(ctx, series, siblings)
}

// AnalyzeCell reconstructs one cell from storage and runs detection
// against its experiment siblings.
func (uc *AnalyzeUseCase) AnalyzeCell(ctx context.Context, experiment, cell string) (*models.FlagSet, error) {
	if experiment == "" || cell == "" {
		return nil, fmt.Errorf("experiment and cell required")
	}

	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	series, err := uc.store.GetCellSeries(ctx, experiment, cell)
	if err != nil {
		return nil, fmt.Errorf("get cell series: %w", err)
	}

	siblings, err := uc.siblingPopulation(ctx, experiment)
	if err != nil {
		return nil, err
	}
	return uc.agg.Aggregate(ctx, series, siblings)
}

// ExperimentFlagsResult is the per-cell outcome of an experiment-wide
// pass. Cells that could not be analyzed land in Errors instead of
// failing the whole request.
type ExperimentFlagsResult struct {
	ExperimentID string             `json:"experiment_id"`
	Cells        []*models.FlagSet  `json:"cells"`
	Summary      models.FlagSummary `json:"summary"`
	Errors       map[string]string  `json:"errors,omitempty"`
}

// AnalyzeExperiment fans detection out across every cell of an
// experiment. Cells are analyzed concurrently; per-cell failures are
// collected, not propagated.
func (uc *AnalyzeUseCase) AnalyzeExperiment(ctx context.Context, experiment string, maxCells int) (*ExperimentFlagsResult, error) {
	if experiment == "" {
		return nil, fmt.Errorf("experiment required")
	}
	if maxCells <= 0 || maxCells > uc.maxCells {
		maxCells = uc.maxCells
	}

	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	cells, err := uc.store.ListCells(ctx, experiment)
	if err != nil {
		return nil, fmt.Errorf("list cells: %w", err)
	}
	if len(cells) > maxCells {
		cells = cells[:maxCells]
	}

	siblings, err := uc.siblingPopulation(ctx, experiment)
	if err != nil {
		return nil, err
	}

	res := &ExperimentFlagsResult{
		ExperimentID: experiment,
		Cells:        []*models.FlagSet{},
		Errors:       map[string]string{},
	}

	type item struct {
		cell string
		set  *models.FlagSet
		err  error
	}
	ch := make(chan item, len(cells))
	var wg sync.WaitGroup

	for _, cell := range cells {
		wg.Add(1)
		go func(cell string) {
			defer wg.Done()
			series, err := uc.store.GetCellSeries(ctx, experiment, cell)
			if err != nil {
				ch <- item{cell: cell, err: fmt.Errorf("get cell series: %w", err)}
				return
			}
			set, err := uc.agg.Aggregate(ctx, series, siblings)
			ch <- item{cell: cell, set: set, err: err}
		}(cell)
	}
	go func() { wg.Wait(); close(ch) }()

	for it := range ch {
		if it.err != nil {
			res.Errors[it.cell] = it.err.Error()
			continue
		}
		res.Cells = append(res.Cells, it.set)
		res.Summary.Add(it.set.Summary)
	}

	// Fan-in order is nondeterministic; restore cell order for callers.
	sort.Slice(res.Cells, func(i, j int) bool { return res.Cells[i].CellID < res.Cells[j].CellID })

	if len(res.Errors) == 0 {
		res.Errors = nil
	}
	return res, nil
}

// ExperimentSummary is the severity tally across an experiment plus the
// worst cells, for dashboard headlines.
type ExperimentSummary struct {
	ExperimentID string             `json:"experiment_id"`
	CellCount    int                `json:"cell_count"`
	FlaggedCells int                `json:"flagged_cells"`
	Summary      models.FlagSummary `json:"summary"`
	WorstCells   []string           `json:"worst_cells,omitempty"`
}

// SummarizeExperiment reduces an experiment-wide pass to the tally and
// the cells carrying critical flags.
func (uc *AnalyzeUseCase) SummarizeExperiment(ctx context.Context, experiment string) (*ExperimentSummary, error) {
	res, err := uc.AnalyzeExperiment(ctx, experiment, 0)
	if err != nil {
		return nil, err
	}

	sum := &ExperimentSummary{
		ExperimentID: experiment,
		CellCount:    len(res.Cells),
		Summary:      res.Summary,
	}
	for _, set := range res.Cells {
		if set.Summary.Total() > 0 {
			sum.FlaggedCells++
		}
		if set.Summary.Critical > 0 {
			sum.WorstCells = append(sum.WorstCells, set.CellID)
		}
	}
	return sum, nil
}

// siblingPopulation collects first discharge capacities across the
// experiment, ordered by cell id so the population is stable between
// calls.
func (uc *AnalyzeUseCase) siblingPopulation(ctx context.Context, experiment string) ([]float64, error) {
	byCell, err := uc.store.GetFirstDischarges(ctx, experiment)
	if err != nil {
		return nil, fmt.Errorf("get first discharges: %w", err)
	}
	cells := make([]string, 0, len(byCell))
	for c := range byCell {
		cells = append(cells, c)
	}
	sort.Strings(cells)
	out := make([]float64, 0, len(cells))
	for _, c := range cells {
		out = append(out, byCell[c])
	}
	return out, nil
}
