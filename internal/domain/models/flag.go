package models

import "fmt"

// Severity is the three-level urgency classification for a flag.
// Larger values sort first; severity never gates detector execution.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityCritical:
		return "critical"
	case SeverityWarning:
		return "warning"
	default:
		return "info"
	}
}

// MarshalJSON renders severity as its lowercase name.
func (s Severity) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON accepts the three lowercase names, so cached flag sets
// decode back to the same values they marshaled from.
func (s *Severity) UnmarshalJSON(b []byte) error {
	switch string(b) {
	case `"critical"`:
		*s = SeverityCritical
	case `"warning"`:
		*s = SeverityWarning
	case `"info"`:
		*s = SeverityInfo
	default:
		return fmt.Errorf("unknown severity %s", b)
	}
	return nil
}

// FlagCategory groups flags for display.
type FlagCategory string

const (
	CategoryPerformance      FlagCategory = "Performance"
	CategoryQuality          FlagCategory = "Quality Assurance"
	CategoryDataIntegrity    FlagCategory = "Data Integrity"
	CategoryElectrochemistry FlagCategory = "Electrochemistry"
)

// FlagType is the fixed taxonomy of detector findings.
type FlagType string

const (
	FlagRapidCapacityFade        FlagType = "Rapid Capacity Fade"
	FlagCellFailure              FlagType = "Cell Failure"
	FlagLowCoulombicEfficiency   FlagType = "Low Coulombic Efficiency"
	FlagHighCEVariation          FlagType = "High CE Variation"
	FlagAcceleratingDegradation  FlagType = "Accelerating Degradation"
	FlagPoorFirstCycleEfficiency FlagType = "Poor First Cycle Efficiency"
	FlagIncompleteDataset        FlagType = "Incomplete Dataset"
	FlagPrematureTermination     FlagType = "Premature Termination"
	FlagMissingData              FlagType = "Missing Data"
	FlagDataInconsistency        FlagType = "Data Inconsistency"
	FlagImpossibleEfficiency     FlagType = "Impossible Efficiency"
	FlagExceedsTheoreticalCap    FlagType = "Exceeds Theoretical Capacity"
	FlagAnomalousFirstDischarge  FlagType = "Anomalous First Discharge"
)

// CycleRange localizes a flag to the cycles that produced it.
type CycleRange struct {
	First int `json:"first"`
	Last  int `json:"last"`
}

// Flag is a single immutable detector finding.
type Flag struct {
	Type           FlagType     `json:"type"`
	Severity       Severity     `json:"severity"`
	Category       FlagCategory `json:"category"`
	Confidence     float64      `json:"confidence"` // 0..100, detector-local, not cross-comparable
	Message        string       `json:"message"`
	Recommendation string       `json:"recommendation"`
	Algorithm      string       `json:"algorithm"`
	MetricValue    *float64     `json:"metric_value,omitempty"`
	ThresholdValue *float64     `json:"threshold_value,omitempty"`
	CycleRange     *CycleRange  `json:"cycle_range,omitempty"`
}

// FlagSummary tallies flags per severity.
type FlagSummary struct {
	Critical int `json:"critical"`
	Warning  int `json:"warning"`
	Info     int `json:"info"`
}

// Total returns the flag count across severities.
func (s FlagSummary) Total() int { return s.Critical + s.Warning + s.Info }

// Add merges another summary into this one.
func (s *FlagSummary) Add(o FlagSummary) {
	s.Critical += o.Critical
	s.Warning += o.Warning
	s.Info += o.Info
}

// FlagSet is the ordered detection result for one cell: flags sorted by
// (severity desc, confidence desc) plus the per-severity tally. It is
// owned by the caller for display and never persisted by the core.
type FlagSet struct {
	CellID       string      `json:"cell_id"`
	ExperimentID string      `json:"experiment_id"`
	Flags        []Flag      `json:"flags"`
	Summary      FlagSummary `json:"summary"`
}
