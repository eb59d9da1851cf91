package exchange

import (
	"context"
	"time"

	"github.com/coredex-source/Cryovex-Launcher/log"
)

// Phase is the point in a run an Event reports.
type Phase string

const (
	PhaseStarted   Phase = "started"
	PhaseSucceeded Phase = "succeeded"
	PhaseFailed    Phase = "failed"
	PhaseCompleted Phase = "completed" // run produced a Result
	PhaseAborted   Phase = "aborted"   // run stopped on a stage failure
)

// Event is emitted before and after every stage and once when the run ends.
// Run level events carry an empty Stage.
type Event struct {
	RunID    string
	Stage    StageName
	State    State
	Phase    Phase
	Err      error
	Duration time.Duration
}

// Observer receives progress events. It must not block; it has no influence on
// the run.
type Observer interface {
	OnEvent(ctx context.Context, ev Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, ev Event)

func (f ObserverFunc) OnEvent(ctx context.Context, ev Event) { f(ctx, ev) }

// LogObserver writes events to a Logger. Token values never reach the log.
type LogObserver struct {
	logger log.Logger
}

func NewLogObserver(logger log.Logger) *LogObserver {
	return &LogObserver{logger: logger}
}

func (o *LogObserver) OnEvent(ctx context.Context, ev Event) {
	fields := map[string]interface{}{
		"run_id": ev.RunID,
		"state":  ev.State.String(),
		"phase":  string(ev.Phase),
	}
	if ev.Stage != "" {
		fields["stage"] = string(ev.Stage)
	}
	if ev.Duration > 0 {
		fields["duration_ms"] = ev.Duration.Milliseconds()
	}

	switch ev.Phase {
	case PhaseStarted:
		o.logger.Debug(ctx, "exchange stage started", fields)
	case PhaseSucceeded:
		o.logger.Info(ctx, "exchange stage succeeded", fields)
	case PhaseFailed:
		o.logger.Warn(ctx, "exchange stage failed", fields, errorFields(ev.Err))
	case PhaseCompleted:
		o.logger.Info(ctx, "exchange completed", fields)
	case PhaseAborted:
		o.logger.Error(ctx, "exchange aborted", ev.Err, fields)
	}
}

func errorFields(err error) map[string]interface{} {
	fields := map[string]interface{}{}
	if err == nil {
		return fields
	}
	fields["error"] = err.Error()
	if perr, ok := err.(*PipelineError); ok {
		fields["kind"] = perr.Kind.String()
		if perr.StatusCode != 0 {
			fields["status"] = perr.StatusCode
		}
	}
	return fields
}

var _ Observer = (*LogObserver)(nil)
