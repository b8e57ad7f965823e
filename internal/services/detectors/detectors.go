package detectors

import (
	domsvc "CellScope/internal/domain/service"
)

// Registry returns the full standard rule set. Order is stable for
// readability only; the aggregator re-sorts all output, and no rule
// depends on another's result.
func Registry() []domsvc.Detector {
	return []domsvc.Detector{
		RapidCapacityFade{},
		CellFailure{},
		LowCoulombicEfficiency{},
		HighCEVariation{},
		AcceleratingDegradation{},
		PoorFirstCycleEfficiency{},
		IncompleteDataset{},
		PrematureTermination{},
		MissingData{},
		DataInconsistency{},
		ImpossibleEfficiency{},
		ExceedsTheoreticalCapacity{},
		AnomalousFirstDischarge{},
	}
}

// scaledConfidence maps deviation beyond a rule's threshold to a
// confidence in [base, 99]. A linear ramp: deviation units are the
// rule's own (percentage points, sigma), so values are comparable only
// within one flag type.
func scaledConfidence(base, perUnit, deviation float64) float64 {
	c := base + perUnit*deviation
	if c < base {
		c = base
	}
	if c > 99 {
		c = 99
	}
	return c
}

func ptr(v float64) *float64 { return &v }
