package metrics_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coredex-source/Cryovex-Launcher/internal/exchange"
	"github.com/coredex-source/Cryovex-Launcher/internal/metrics"
)

func TestPipelineMetrics_Success(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewPipelineMetrics(reg)
	ctx := context.Background()

	m.OnEvent(ctx, exchange.Event{Stage: exchange.StageXsts, Phase: exchange.PhaseStarted})
	m.OnEvent(ctx, exchange.Event{Stage: exchange.StageXsts, Phase: exchange.PhaseSucceeded, Duration: 20 * time.Millisecond})
	m.OnEvent(ctx, exchange.Event{State: exchange.StateDone, Phase: exchange.PhaseCompleted})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.StagesTotal.WithLabelValues("XSTS Auth", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("success")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("failure")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.StageDuration))
}

func TestPipelineMetrics_Failure(t *testing.T) {
	m := metrics.NewPipelineMetrics(prometheus.NewRegistry())
	ctx := context.Background()
	perr := &exchange.PipelineError{Stage: exchange.StageTokenExchange, Kind: exchange.KindProviderRejected, StatusCode: 400}

	m.OnEvent(ctx, exchange.Event{Stage: exchange.StageTokenExchange, Phase: exchange.PhaseFailed, Err: perr, Duration: time.Millisecond})
	m.OnEvent(ctx, exchange.Event{Phase: exchange.PhaseAborted, Err: perr})
	m.OnEvent(ctx, exchange.Event{Stage: exchange.StageXboxLive, Phase: exchange.PhaseFailed, Err: errors.New("odd")})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.StageFailuresTotal.WithLabelValues("Microsoft Token Exchange", "ProviderRejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StageFailuresTotal.WithLabelValues("Xbox Live Auth", "Unknown")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("failure")))
}

func TestPipelineMetrics_DoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.NewPipelineMetrics(reg)
	assert.NotPanics(t, func() { metrics.NewPipelineMetrics(reg) })
	assert.NotPanics(t, func() { metrics.NewPipelineMetrics(nil) })
}

func TestWriteText(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewPipelineMetrics(reg)
	m.OnEvent(context.Background(), exchange.Event{Phase: exchange.PhaseCompleted})

	var buf bytes.Buffer
	require.NoError(t, metrics.WriteText(&buf, reg))
	assert.Contains(t, buf.String(), `cryovex_exchange_runs_total{outcome="success"} 1`)
	assert.Contains(t, buf.String(), "# HELP cryovex_exchange_runs_total")
}
