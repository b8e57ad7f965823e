package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSeverityJSONRoundTrip(t *testing.T) {
	for _, sev := range []Severity{SeverityInfo, SeverityWarning, SeverityCritical} {
		b, err := json.Marshal(sev)
		require.NoError(t, err)
		require.Equal(t, `"`+sev.String()+`"`, string(b))

		var back Severity
		require.NoError(t, json.Unmarshal(b, &back))
		require.Equal(t, sev, back)
	}

	var s Severity
	require.Error(t, json.Unmarshal([]byte(`"fatal"`), &s))
}

func TestFlagSetJSONRoundTrip(t *testing.T) {
	v := 65.0
	set := &FlagSet{
		CellID:       "cell-1",
		ExperimentID: "exp-1",
		Flags: []Flag{
			{
				Type:        FlagRapidCapacityFade,
				Severity:    SeverityCritical,
				Category:    CategoryPerformance,
				Confidence:  95,
				Message:     "65.0% retention after 10 cycles",
				Algorithm:   "pattern_rapid_fade",
				MetricValue: &v,
				CycleRange:  &CycleRange{First: 1, Last: 10},
			},
			{
				Type:       FlagIncompleteDataset,
				Severity:   SeverityInfo,
				Category:   CategoryDataIntegrity,
				Confidence: 70,
			},
		},
		Summary: FlagSummary{Critical: 1, Info: 1},
	}

	b, err := json.Marshal(set)
	require.NoError(t, err)

	var back FlagSet
	require.NoError(t, json.Unmarshal(b, &back))
	require.Equal(t, *set, back)
}
