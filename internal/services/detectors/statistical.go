package detectors

import (
	"fmt"
	"math"

	"CellScope/internal/domain/models"
	domsvc "CellScope/internal/domain/service"
	"CellScope/internal/services/cellmetrics"
)

// Cross-cell statistical rules: a cell compared against its experiment
// siblings rather than against fixed thresholds.

const (
	firstDischargeZWarn     = 3.0
	firstDischargeZCritical = 4.0
)

// AnomalousFirstDischarge flags a first discharge capacity that is a
// statistical outlier among sibling cells of the same experiment. The
// cell's own value is excluded from the reference population so a
// single extreme cell cannot mask itself by inflating the spread.
type AnomalousFirstDischarge struct{}

func (AnomalousFirstDischarge) Name() string { return "statistical_sibling_zscore" }

func (d AnomalousFirstDischarge) Evaluate(series *models.CellSeries, env *domsvc.DetectContext) []models.Flag {
	m := env.Metrics
	if m.FirstDischarge == nil {
		return nil
	}
	value := *m.FirstDischarge

	peers := excludeSelf(env.SiblingFirstDischarges, value)
	z := cellmetrics.ZScore(value, peers)
	if z == nil {
		return nil
	}
	abs := math.Abs(*z)
	if abs <= firstDischargeZWarn {
		return nil
	}

	severity := models.SeverityWarning
	if abs > firstDischargeZCritical {
		severity = models.SeverityCritical
	}
	conf := 60 + 10*abs
	if conf > 99 {
		conf = 99
	}
	return []models.Flag{{
		Type:           models.FlagAnomalousFirstDischarge,
		Severity:       severity,
		Category:       models.CategoryQuality,
		Confidence:     conf,
		Message:        fmt.Sprintf("First discharge capacity is anomalous: %.1f mAh/g (%.1f sigma from %d sibling cells)", value, *z, len(peers)),
		Recommendation: "Outlier first discharge suggests a cell build or weighing inconsistency. Verify electrode mass and assembly records.",
		Algorithm:      d.Name(),
		MetricValue:    ptr(value),
		ThresholdValue: ptr(firstDischargeZWarn),
		CycleRange:     &models.CycleRange{First: 1, Last: 1},
	}}
}

// excludeSelf removes one occurrence of the cell's own value from the
// sibling population.
func excludeSelf(population []float64, own float64) []float64 {
	out := make([]float64, 0, len(population))
	removed := false
	for _, v := range population {
		if !removed && v == own {
			removed = true
			continue
		}
		out = append(out, v)
	}
	return out
}
