package detectors

import (
	"fmt"

	"CellScope/internal/domain/models"
	domsvc "CellScope/internal/domain/service"
)

// Electrochemistry rules: values no real cell can produce.

const (
	// Measurement noise allows CE slightly above unity; beyond 1.05 the
	// value is physically impossible.
	impossibleCERatio = 1.05

	// theoreticalSpecificCapacity is a generous ceiling in mAh/g covering
	// current commercial cathode chemistries.
	theoreticalSpecificCapacity = 450.0
)

// ImpossibleEfficiency flags coulombic efficiency above 105%.
type ImpossibleEfficiency struct{}

func (ImpossibleEfficiency) Name() string { return "physics_ce_bound" }

func (d ImpossibleEfficiency) Evaluate(series *models.CellSeries, env *domsvc.DetectContext) []models.Flag {
	maxCE := 0.0
	maxCycle := 0
	count := 0
	for _, r := range series.Records {
		if r.CoulombicEfficiency == nil || *r.CoulombicEfficiency <= impossibleCERatio {
			continue
		}
		count++
		if *r.CoulombicEfficiency > maxCE {
			maxCE = *r.CoulombicEfficiency
			maxCycle = r.CycleNumber
		}
	}
	if count == 0 {
		return nil
	}
	return []models.Flag{{
		Type:           models.FlagImpossibleEfficiency,
		Severity:       models.SeverityCritical,
		Category:       models.CategoryElectrochemistry,
		Confidence:     99,
		Message:        fmt.Sprintf("Impossible coulombic efficiency: %.1f%% at cycle %d (%d cycles affected)", maxCE*100, maxCycle, count),
		Recommendation: "CE > 105% indicates measurement error or data corruption. Check current sensor calibration and data processing.",
		Algorithm:      d.Name(),
		MetricValue:    ptr(maxCE * 100),
		ThresholdValue: ptr(impossibleCERatio * 100),
		CycleRange:     &models.CycleRange{First: maxCycle, Last: maxCycle},
	}}
}

// ExceedsTheoreticalCapacity flags specific discharge capacities above
// the theoretical ceiling for known cathode materials.
type ExceedsTheoreticalCapacity struct{}

func (ExceedsTheoreticalCapacity) Name() string { return "physics_capacity_bound" }

func (d ExceedsTheoreticalCapacity) Evaluate(series *models.CellSeries, env *domsvc.DetectContext) []models.Flag {
	maxCap := 0.0
	maxCycle := 0
	count := 0
	for _, r := range series.Records {
		if r.SpecificDischargeCapacity == nil || *r.SpecificDischargeCapacity <= theoreticalSpecificCapacity {
			continue
		}
		count++
		if *r.SpecificDischargeCapacity > maxCap {
			maxCap = *r.SpecificDischargeCapacity
			maxCycle = r.CycleNumber
		}
	}
	if count == 0 {
		return nil
	}
	return []models.Flag{{
		Type:           models.FlagExceedsTheoreticalCap,
		Severity:       models.SeverityWarning,
		Category:       models.CategoryElectrochemistry,
		Confidence:     80,
		Message:        fmt.Sprintf("Capacity exceeds theoretical limit: %.0f mAh/g at cycle %d (limit %.0f mAh/g)", maxCap, maxCycle, theoreticalSpecificCapacity),
		Recommendation: "Check active material mass entry and capacity normalization. Value may indicate a weighing or data entry error.",
		Algorithm:      d.Name(),
		MetricValue:    ptr(maxCap),
		ThresholdValue: ptr(theoreticalSpecificCapacity),
		CycleRange:     &models.CycleRange{First: maxCycle, Last: maxCycle},
	}}
}
