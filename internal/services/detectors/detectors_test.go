package detectors

import (
	"testing"

	"github.com/stretchr/testify/require"

	"CellScope/internal/domain/models"
	domsvc "CellScope/internal/domain/service"
	"CellScope/internal/services/cellmetrics"
)

func fp(v float64) *float64 { return &v }

// capSeries builds a series with one record per capacity, cycles 1..n,
// all columns populated and a benign efficiency.
func capSeries(caps ...float64) *models.CellSeries {
	s := &models.CellSeries{
		CellID:       "cell-1",
		ExperimentID: "exp-1",
		ProjectKind:  models.ProjectFullCell,
	}
	for i, c := range caps {
		ce := 0.99
		s.Records = append(s.Records, models.CycleRecord{
			CycleNumber:               i + 1,
			SpecificDischargeCapacity: fp(c),
			SpecificChargeCapacity:    fp(c / ce),
			CoulombicEfficiency:       &ce,
		})
	}
	return s
}

// ceSeries builds a series with constant capacity and the given
// efficiencies (as ratios), cycles 1..n, no formation cycles skipped.
func ceSeries(ces ...float64) *models.CellSeries {
	s := &models.CellSeries{
		CellID:       "cell-1",
		ExperimentID: "exp-1",
		ProjectKind:  models.ProjectFullCell,
	}
	for i, ce := range ces {
		v := ce
		s.Records = append(s.Records, models.CycleRecord{
			CycleNumber:               i + 1,
			SpecificDischargeCapacity: fp(100),
			SpecificChargeCapacity:    fp(100 / v),
			CoulombicEfficiency:       &v,
		})
	}
	return s
}

func ctxFor(s *models.CellSeries, siblings ...float64) *domsvc.DetectContext {
	return &domsvc.DetectContext{
		Metrics:                cellmetrics.Extract(s),
		SiblingFirstDischarges: siblings,
	}
}

func flagsOfType(flags []models.Flag, t models.FlagType) []models.Flag {
	var out []models.Flag
	for _, f := range flags {
		if f.Type == t {
			out = append(out, f)
		}
	}
	return out
}

func TestRegistryCoversAllFlagTypes(t *testing.T) {
	reg := Registry()
	require.Len(t, reg, 13)

	names := make(map[string]bool, len(reg))
	for _, d := range reg {
		require.NotEmpty(t, d.Name())
		require.False(t, names[d.Name()], "duplicate detector name %q", d.Name())
		names[d.Name()] = true
	}
}

func TestDetectorsAbstainOnEmptySeries(t *testing.T) {
	s := &models.CellSeries{CellID: "cell-1", ExperimentID: "exp-1"}
	env := ctxFor(s)
	for _, d := range Registry() {
		require.Empty(t, d.Evaluate(s, env), "detector %s must abstain on empty series", d.Name())
	}
}

func TestDetectorsAbstainOnTwoPointSeries(t *testing.T) {
	s := capSeries(100, 60)
	env := ctxFor(s)
	for _, d := range Registry() {
		require.Empty(t, d.Evaluate(s, env), "detector %s must abstain on a 2-cycle series", d.Name())
	}
}
