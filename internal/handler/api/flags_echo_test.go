package api

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"CellScope/internal/domain/models"
	icache "CellScope/internal/service/cache"
	"CellScope/internal/service/metrics"
	xlogger "CellScope/pkg/logger"
)

func TestRecordFlagsEmitted(t *testing.T) {
	critical := testutil.ToFloat64(metrics.FlagsEmitted.WithLabelValues("critical"))
	warning := testutil.ToFloat64(metrics.FlagsEmitted.WithLabelValues("warning"))
	info := testutil.ToFloat64(metrics.FlagsEmitted.WithLabelValues("info"))

	recordFlagsEmitted(models.FlagSummary{Critical: 2, Warning: 1})
	recordFlagsEmitted(models.FlagSummary{Info: 3})

	require.Equal(t, critical+2, testutil.ToFloat64(metrics.FlagsEmitted.WithLabelValues("critical")))
	require.Equal(t, warning+1, testutil.ToFloat64(metrics.FlagsEmitted.WithLabelValues("warning")))
	require.Equal(t, info+3, testutil.ToFloat64(metrics.FlagsEmitted.WithLabelValues("info")))
}

func TestFlagSetCacheRoundTrip(t *testing.T) {
	l, err := xlogger.New(&xlogger.Config{Level: "info", Format: "console", Output: "stdout"})
	require.NoError(t, err)
	h := &FlagsEchoHandler{logger: l, cache: icache.NewTTLCache()}

	set := &models.FlagSet{
		CellID:       "cell-1",
		ExperimentID: "exp-1",
		Flags: []models.Flag{
			{Type: models.FlagCellFailure, Severity: models.SeverityCritical, Confidence: 98},
		},
		Summary: models.FlagSummary{Critical: 1},
	}
	h.store("flags:exp-1:cell-1", set, time.Minute)

	out, ok := h.cached("flags:exp-1:cell-1", &models.FlagSet{})
	require.True(t, ok)
	require.Equal(t, set, out)
}
