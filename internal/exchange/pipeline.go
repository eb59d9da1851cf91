// Package exchange turns a Microsoft authorization code into a Minecraft
// access token and profile.
//
// The chain is a fixed linear state machine:
//
//	TokenExchange -> XboxLive -> Xsts -> ResourceAuth -> Profile -> Done
//
// Every transition requires the previous stage's fully parsed output. The
// first failure moves the run to Failed and no later stage is invoked.
package exchange

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/coredex-source/Cryovex-Launcher/internal/transport"
)

const tracerName = "github.com/coredex-source/Cryovex-Launcher/internal/exchange"

// State is a node of the run state machine.
type State int

const (
	StateTokenExchange State = iota
	StateXboxLive
	StateXsts
	StateResourceAuth
	StateProfile
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateTokenExchange:
		return "token_exchange"
	case StateXboxLive:
		return "xbox_live"
	case StateXsts:
		return "xsts"
	case StateResourceAuth:
		return "resource_auth"
	case StateProfile:
		return "profile"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithObserver registers observers for progress events.
func WithObserver(observers ...Observer) Option {
	return func(p *Pipeline) {
		for _, o := range observers {
			if o != nil {
				p.observers = append(p.observers, o)
			}
		}
	}
}

// WithTracer sets the tracer used for run and stage spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(p *Pipeline) {
		if tracer != nil {
			p.tracer = tracer
		}
	}
}

// RunOption configures a single Run.
type RunOption func(*runOptions)

type runOptions struct {
	codeVerifier string
}

// WithCodeVerifier sends the PKCE verifier with the token exchange.
func WithCodeVerifier(verifier string) RunOption {
	return func(o *runOptions) {
		o.codeVerifier = verifier
	}
}

// Pipeline runs the five stages. It keeps no per-run state, so one Pipeline
// may serve concurrent runs.
type Pipeline struct {
	tokenExchange Stage[CodeGrant, TokenSet]
	xboxLive      Stage[TokenSet, XblToken]
	xsts          Stage[XblToken, XstsSession]
	resourceAuth  Stage[XstsSession, ResourceToken]
	profile       Stage[ResourceToken, Profile]

	observers []Observer
	tracer    trace.Tracer
}

// New wires the production stages on top of t.
func New(t transport.Transport, cfg Config, opts ...Option) *Pipeline {
	cfg = cfg.withDefaults()
	p := &Pipeline{
		tokenExchange: NewTokenExchangeStage(t, cfg),
		xboxLive:      NewXboxLiveStage(t, cfg.Endpoints),
		xsts:          NewXstsStage(t, cfg.Endpoints),
		resourceAuth:  NewResourceAuthStage(t, cfg.Endpoints),
		profile:       NewProfileStage(t, cfg.Endpoints),
		tracer:        otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Stages lists the stage names in execution order.
func (p *Pipeline) Stages() []StageName {
	return []StageName{
		p.tokenExchange.Name(),
		p.xboxLive.Name(),
		p.xsts.Name(),
		p.resourceAuth.Name(),
		p.profile.Name(),
	}
}

// Run executes the chain for code. On failure the error is a *PipelineError
// unless code is empty, in which case no stage runs and
// ErrEmptyAuthorizationCode is returned.
func (p *Pipeline) Run(ctx context.Context, code AuthorizationCode, opts ...RunOption) (*Result, error) {
	if code == "" {
		return nil, ErrEmptyAuthorizationCode
	}
	var ro runOptions
	for _, opt := range opts {
		opt(&ro)
	}

	r := &run{p: p, id: uuid.NewString(), started: time.Now()}
	ctx, span := p.tracer.Start(ctx, "exchange.Run",
		trace.WithAttributes(attribute.String("exchange.run_id", r.id)))
	defer span.End()

	tokens, err := runStage(ctx, r, StateTokenExchange, p.tokenExchange, CodeGrant{Code: code, CodeVerifier: ro.codeVerifier})
	if err != nil {
		return nil, r.abort(ctx, span, err)
	}
	xbl, err := runStage(ctx, r, StateXboxLive, p.xboxLive, tokens)
	if err != nil {
		return nil, r.abort(ctx, span, err)
	}
	xsts, err := runStage(ctx, r, StateXsts, p.xsts, xbl)
	if err != nil {
		return nil, r.abort(ctx, span, err)
	}
	resource, err := runStage(ctx, r, StateResourceAuth, p.resourceAuth, xsts)
	if err != nil {
		return nil, r.abort(ctx, span, err)
	}
	profile, err := runStage(ctx, r, StateProfile, p.profile, resource)
	if err != nil {
		return nil, r.abort(ctx, span, err)
	}

	result := Assemble(tokens, resource, profile)
	span.SetStatus(codes.Ok, "")
	r.emit(ctx, Event{State: StateDone, Phase: PhaseCompleted, Duration: time.Since(r.started)})
	return &result, nil
}

type run struct {
	p       *Pipeline
	id      string
	started time.Time
}

func (r *run) emit(ctx context.Context, ev Event) {
	ev.RunID = r.id
	for _, o := range r.p.observers {
		o.OnEvent(ctx, ev)
	}
}

func (r *run) abort(ctx context.Context, span trace.Span, err error) error {
	span.SetStatus(codes.Error, err.Error())
	r.emit(ctx, Event{State: StateFailed, Phase: PhaseAborted, Err: err, Duration: time.Since(r.started)})
	return err
}

// runStage performs one guarded transition. It is a function rather than a
// method because Go methods cannot take type parameters.
func runStage[In, Out any](ctx context.Context, r *run, state State, stage Stage[In, Out], in In) (Out, error) {
	var zero Out
	name := stage.Name()

	if err := ctx.Err(); err != nil {
		perr := &PipelineError{Stage: name, State: state, Kind: KindTransportFailure, Err: err}
		r.emit(ctx, Event{Stage: name, State: state, Phase: PhaseFailed, Err: perr})
		return zero, perr
	}

	ctx, span := r.p.tracer.Start(ctx, string(name),
		trace.WithAttributes(
			attribute.String("exchange.run_id", r.id),
			attribute.String("exchange.state", state.String()),
		))
	defer span.End()

	r.emit(ctx, Event{Stage: name, State: state, Phase: PhaseStarted})
	started := time.Now()
	out, err := stage.Execute(ctx, in)
	elapsed := time.Since(started)

	if err != nil {
		perr := newPipelineError(name, state, err)
		span.RecordError(perr)
		span.SetAttributes(attribute.String("exchange.failure_kind", perr.Kind.String()))
		if perr.StatusCode != 0 {
			span.SetAttributes(attribute.Int("http.response.status_code", perr.StatusCode))
		}
		span.SetStatus(codes.Error, perr.Kind.String())
		r.emit(ctx, Event{Stage: name, State: state, Phase: PhaseFailed, Err: perr, Duration: elapsed})
		return zero, perr
	}

	span.SetStatus(codes.Ok, "")
	r.emit(ctx, Event{Stage: name, State: state, Phase: PhaseSucceeded, Duration: elapsed})
	return out, nil
}
