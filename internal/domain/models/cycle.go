package models

import (
	"errors"
	"fmt"
)

// ProjectKind identifies which electrode an experiment characterizes.
// It changes how upstream ingestion computes efficiency; the detection
// core carries it through unchanged for display context.
type ProjectKind string

const (
	ProjectFullCell ProjectKind = "full_cell"
	ProjectCathode  ProjectKind = "cathode"
	ProjectAnode    ProjectKind = "anode"
)

// IsValidProjectKind returns true if pk is a supported project kind.
func IsValidProjectKind(pk ProjectKind) bool {
	switch pk {
	case ProjectFullCell, ProjectCathode, ProjectAnode:
		return true
	default:
		return false
	}
}

// DefaultProjectKind returns the default project kind.
func DefaultProjectKind() ProjectKind { return ProjectFullCell }

// NormalizeProjectKind converts a raw string to a valid project kind (or default).
func NormalizeProjectKind(s string) ProjectKind {
	if s == "" {
		return DefaultProjectKind()
	}
	pk := ProjectKind(s)
	if IsValidProjectKind(pk) {
		return pk
	}
	return DefaultProjectKind()
}

// CycleRecord is one row of cycling data for one cell. Optional
// measurements are pointers: nil means "not measured", which is distinct
// from zero and never triggers a detector by itself.
type CycleRecord struct {
	CycleNumber               int      `json:"cycle_number"`
	ChargeCapacity            *float64 `json:"charge_capacity,omitempty"`             // mAh
	DischargeCapacity         *float64 `json:"discharge_capacity,omitempty"`          // mAh
	SpecificChargeCapacity    *float64 `json:"specific_charge_capacity,omitempty"`    // mAh/g
	SpecificDischargeCapacity *float64 `json:"specific_discharge_capacity,omitempty"` // mAh/g
	CoulombicEfficiency       *float64 `json:"coulombic_efficiency,omitempty"`        // ratio, discharge/charge
}

// Capacity returns the canonical capacity for the record: specific
// discharge capacity (mAh/g) when present, absolute discharge capacity
// (mAh) otherwise. Returns nil when neither was measured.
func (r *CycleRecord) Capacity() *float64 {
	if r.SpecificDischargeCapacity != nil {
		return r.SpecificDischargeCapacity
	}
	return r.DischargeCapacity
}

// CellSeries is the complete, immutable cycling history of one physical
// cell plus its metadata. It is constructed once by ingestion and is the
// sole input the detection core consumes; the core never mutates it.
type CellSeries struct {
	CellID                string
	ExperimentID          string
	LoadingMg             float64
	ActiveMaterialPercent float64
	ProjectKind           ProjectKind
	FormationCycleCount   int
	Records               []CycleRecord
}

// ErrInvalidSeries is returned when a series violates the cycle-number
// invariant. It is the only hard failure detection can raise; every
// other data problem resolves to detector abstention.
var ErrInvalidSeries = errors.New("invalid cell series")

// Validate checks the series invariant: cycle numbers positive, unique,
// strictly increasing.
func (s *CellSeries) Validate() error {
	prev := 0
	for i, r := range s.Records {
		if r.CycleNumber <= prev {
			return fmt.Errorf("%w: cycle number %d at row %d (previous %d)",
				ErrInvalidSeries, r.CycleNumber, i, prev)
		}
		prev = r.CycleNumber
	}
	return nil
}

// CycleUpdate is a single cycle-complete event flowing through the
// ingest pipeline (gateway stream -> Kafka -> ClickHouse).
type CycleUpdate struct {
	ExperimentID string      `json:"experiment_id"`
	CellID       string      `json:"cell_id"`
	Record       CycleRecord `json:"record"`
}
