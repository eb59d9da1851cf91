// Package metrics records exchange pipeline outcomes in Prometheus.
package metrics

import (
	"context"
	"errors"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/rs/zerolog/log"

	"github.com/coredex-source/Cryovex-Launcher/internal/exchange"
)

const namespace = "cryovex"

// PipelineMetrics is an exchange.Observer that counts runs and stage outcomes.
type PipelineMetrics struct {
	RunsTotal          *prometheus.CounterVec
	StagesTotal        *prometheus.CounterVec
	StageFailuresTotal *prometheus.CounterVec
	StageDuration      *prometheus.HistogramVec
}

// NewPipelineMetrics creates the collectors and registers them on reg. A nil
// reg leaves them unregistered.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	m := &PipelineMetrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exchange_runs_total",
			Help:      "Total number of pipeline runs by outcome.",
		}, []string{"outcome"}),
		StagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exchange_stage_total",
			Help:      "Total number of stage executions by stage and result.",
		}, []string{"stage", "result"}),
		StageFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exchange_stage_failures_total",
			Help:      "Total number of stage failures by stage and failure kind.",
		}, []string{"stage", "kind"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "exchange_stage_duration_seconds",
			Help:      "Duration of stage executions.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
	}

	if reg == nil {
		log.Warn().Msg("Prometheus registry is nil, pipeline metrics are not registered")
		return m
	}
	for _, c := range []prometheus.Collector{m.RunsTotal, m.StagesTotal, m.StageFailuresTotal, m.StageDuration} {
		if err := reg.Register(c); err != nil {
			log.Warn().Err(err).Msg("Failed to register pipeline metric")
		}
	}
	return m
}

// OnEvent implements exchange.Observer.
func (m *PipelineMetrics) OnEvent(_ context.Context, ev exchange.Event) {
	stage := string(ev.Stage)
	switch ev.Phase {
	case exchange.PhaseSucceeded:
		m.StagesTotal.WithLabelValues(stage, "success").Inc()
		m.StageDuration.WithLabelValues(stage).Observe(ev.Duration.Seconds())
	case exchange.PhaseFailed:
		m.StagesTotal.WithLabelValues(stage, "failure").Inc()
		m.StageFailuresTotal.WithLabelValues(stage, failureKind(ev.Err)).Inc()
		if ev.Duration > 0 {
			m.StageDuration.WithLabelValues(stage).Observe(ev.Duration.Seconds())
		}
	case exchange.PhaseCompleted:
		m.RunsTotal.WithLabelValues("success").Inc()
	case exchange.PhaseAborted:
		m.RunsTotal.WithLabelValues("failure").Inc()
	}
}

func failureKind(err error) string {
	var perr *exchange.PipelineError
	if errors.As(err, &perr) {
		return perr.Kind.String()
	}
	return "Unknown"
}

// WriteText dumps every metric family of g in the Prometheus text format.
func WriteText(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

var _ exchange.Observer = (*PipelineMetrics)(nil)
