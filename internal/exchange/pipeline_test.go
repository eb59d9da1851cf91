package exchange_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/mock/gomock"

	"github.com/coredex-source/Cryovex-Launcher/internal/exchange"
	"github.com/coredex-source/Cryovex-Launcher/internal/transport"
	mock_transport "github.com/coredex-source/Cryovex-Launcher/internal/transport/mock"
)

type eventRecorder struct {
	mu     sync.Mutex
	events []exchange.Event
}

func (r *eventRecorder) OnEvent(_ context.Context, ev exchange.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *eventRecorder) phases() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, string(ev.Stage)+":"+string(ev.Phase))
	}
	return out
}

func TestPipeline_ScenarioA(t *testing.T) {
	stub := newStub(ok(msBody), ok(xblBody), ok(xstsBody), ok(mcBody), ok(profileBody))
	p := exchange.New(stub, testConfig)

	result, err := p.Run(context.Background(), "code-1")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "MC1", result.AccessToken)
	assert.Equal(t, "RT1", result.RefreshToken)
	assert.Equal(t, "Steve", result.Username)
	assert.Equal(t, "UUID-1", result.UUID)
	assert.Equal(t, 5, stub.calls())

	assert.Equal(t, exchange.MicrosoftTokenURL, stub.request(0).URL)
	assert.Equal(t, exchange.XboxLiveAuthURL, stub.request(1).URL)
	assert.Equal(t, exchange.XstsAuthURL, stub.request(2).URL)
	assert.Equal(t, exchange.MinecraftAuthURL, stub.request(3).URL)
	assert.Equal(t, exchange.MinecraftProfileURL, stub.request(4).URL)
	assert.JSONEq(t, `{"identityToken":"XBL3.0 x=UH1;XSTS1"}`, string(stub.request(3).Body))
	assert.Equal(t, "Bearer MC1", stub.request(4).Header.Get("Authorization"))
}

func TestPipeline_ScenarioB(t *testing.T) {
	stub := newStub(ok(msBody), ok(xblBody), ok(`{"Token":"XSTS1"}`), ok(mcBody), ok(profileBody))

	result, err := exchange.New(stub, testConfig).Run(context.Background(), "code-1")
	require.Error(t, err)
	assert.Nil(t, result)

	var perr *exchange.PipelineError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, exchange.StageXsts, perr.Stage)
	assert.Equal(t, exchange.StateXsts, perr.State)
	assert.Equal(t, exchange.KindMalformedResponse, perr.Kind)
	assert.ErrorIs(t, err, exchange.ErrMalformedResponse)
	assert.False(t, perr.Retryable())
	assert.Equal(t, 3, stub.calls())
}

func TestPipeline_ScenarioC(t *testing.T) {
	stub := newStub(reply{status: http.StatusBadRequest, body: `{"error":"invalid_grant"}`})

	_, err := exchange.New(stub, testConfig).Run(context.Background(), "code-1")
	var perr *exchange.PipelineError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, exchange.StageTokenExchange, perr.Stage)
	assert.Equal(t, exchange.KindProviderRejected, perr.Kind)
	assert.Equal(t, http.StatusBadRequest, perr.StatusCode)
	assert.JSONEq(t, `{"error":"invalid_grant"}`, string(perr.Body))
	assert.ErrorIs(t, err, exchange.ErrProviderRejected)
	assert.Contains(t, err.Error(), "Microsoft Token Exchange")
	assert.Contains(t, err.Error(), "status 400")
	assert.Contains(t, err.Error(), "invalid_grant")
	assert.Equal(t, 1, stub.calls())
}

func TestPipeline_FailFastAtEveryStage(t *testing.T) {
	good := []reply{ok(msBody), ok(xblBody), ok(xstsBody), ok(mcBody), ok(profileBody)}
	stages := []exchange.StageName{
		exchange.StageTokenExchange,
		exchange.StageXboxLive,
		exchange.StageXsts,
		exchange.StageResourceAuth,
		exchange.StageProfile,
	}
	for i, name := range stages {
		t.Run(string(name), func(t *testing.T) {
			replies := append([]reply(nil), good...)
			replies[i] = reply{status: http.StatusUnauthorized}
			stub := newStub(replies...)

			_, err := exchange.New(stub, testConfig).Run(context.Background(), "code-1")
			var perr *exchange.PipelineError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, name, perr.Stage)
			assert.Equal(t, http.StatusUnauthorized, perr.StatusCode)
			assert.Equal(t, i+1, stub.calls())
		})
	}
}

func TestPipeline_EmptyCode(t *testing.T) {
	stub := newStub()
	_, err := exchange.New(stub, testConfig).Run(context.Background(), "")
	assert.ErrorIs(t, err, exchange.ErrEmptyAuthorizationCode)
	assert.Zero(t, stub.calls())
}

func TestPipeline_TransportFailureIsRetryableOnlyAtFirstStage(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")

	_, err := exchange.New(newStub(reply{err: cause}), testConfig).Run(context.Background(), "code-1")
	var perr *exchange.PipelineError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, exchange.KindTransportFailure, perr.Kind)
	assert.ErrorIs(t, err, cause)
	assert.True(t, perr.Retryable())

	_, err = exchange.New(newStub(ok(msBody), reply{err: cause}), testConfig).Run(context.Background(), "code-1")
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, exchange.StageXboxLive, perr.Stage)
	assert.False(t, perr.Retryable())
}

type cancelAfter struct {
	*stubTransport
	n      int
	cancel context.CancelFunc
}

func (c *cancelAfter) Do(ctx context.Context, req transport.Request) (transport.Response, error) {
	resp, err := c.stubTransport.Do(ctx, req)
	if c.stubTransport.calls() == c.n {
		c.cancel()
	}
	return resp, err
}

func TestPipeline_CancelledBetweenStages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tr := &cancelAfter{stubTransport: newStub(ok(msBody), ok(xblBody), ok(xstsBody)), n: 2, cancel: cancel}

	_, err := exchange.New(tr, testConfig).Run(ctx, "code-1")
	var perr *exchange.PipelineError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, exchange.StageXsts, perr.Stage)
	assert.Equal(t, exchange.KindTransportFailure, perr.Kind)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, tr.calls())
}

func TestPipeline_Events(t *testing.T) {
	rec := &eventRecorder{}
	stub := newStub(ok(msBody), ok(xblBody), ok(xstsBody), ok(mcBody), ok(profileBody))

	_, err := exchange.New(stub, testConfig, exchange.WithObserver(rec, nil)).Run(context.Background(), "code-1")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Microsoft Token Exchange:started", "Microsoft Token Exchange:succeeded",
		"Xbox Live Auth:started", "Xbox Live Auth:succeeded",
		"XSTS Auth:started", "XSTS Auth:succeeded",
		"Resource Auth:started", "Resource Auth:succeeded",
		"Profile Fetch:started", "Profile Fetch:succeeded",
		":completed",
	}, rec.phases())

	runID := rec.events[0].RunID
	assert.NotEmpty(t, runID)
	for _, ev := range rec.events {
		assert.Equal(t, runID, ev.RunID)
	}
	assert.Equal(t, exchange.StateDone, rec.events[len(rec.events)-1].State)
}

func TestPipeline_EventsOnFailure(t *testing.T) {
	rec := &eventRecorder{}
	stub := newStub(ok(msBody), reply{status: http.StatusForbidden})

	_, err := exchange.New(stub, testConfig, exchange.WithObserver(rec)).Run(context.Background(), "code-1")
	require.Error(t, err)

	assert.Equal(t, []string{
		"Microsoft Token Exchange:started", "Microsoft Token Exchange:succeeded",
		"Xbox Live Auth:started", "Xbox Live Auth:failed",
		":aborted",
	}, rec.phases())
	last := rec.events[len(rec.events)-1]
	assert.Equal(t, exchange.StateFailed, last.State)
	assert.ErrorIs(t, last.Err, exchange.ErrProviderRejected)
}

func TestPipeline_SeparateRunIDs(t *testing.T) {
	rec := &eventRecorder{}
	p := exchange.New(newStub(reply{status: http.StatusBadRequest}, reply{status: http.StatusBadRequest}), testConfig, exchange.WithObserver(rec))

	_, _ = p.Run(context.Background(), "a")
	_, _ = p.Run(context.Background(), "b")
	require.Len(t, rec.events, 6)
	assert.NotEqual(t, rec.events[0].RunID, rec.events[3].RunID)
}

func TestPipeline_Spans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	stub := newStub(ok(msBody), ok(xblBody), ok(`[]`))
	_, err := exchange.New(stub, testConfig, exchange.WithTracer(tp.Tracer("test"))).Run(context.Background(), "code-1")
	require.Error(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 4)
	assert.Equal(t, string(exchange.StageTokenExchange), spans[0].Name())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
	assert.Equal(t, string(exchange.StageXsts), spans[2].Name())
	assert.Equal(t, codes.Error, spans[2].Status().Code)
	assert.Equal(t, "exchange.Run", spans[3].Name())
	assert.Equal(t, codes.Error, spans[3].Status().Code)
	assert.Equal(t, spans[3].SpanContext().SpanID(), spans[0].Parent().SpanID())
}

func TestPipeline_CodeVerifier(t *testing.T) {
	stub := newStub(reply{status: http.StatusBadRequest})
	_, _ = exchange.New(stub, testConfig).Run(context.Background(), "code-1", exchange.WithCodeVerifier("pkce-verifier"))
	assert.Contains(t, string(stub.request(0).Body), "code_verifier=pkce-verifier")
}

func TestPipeline_Stages(t *testing.T) {
	assert.Equal(t, []exchange.StageName{
		exchange.StageTokenExchange,
		exchange.StageXboxLive,
		exchange.StageXsts,
		exchange.StageResourceAuth,
		exchange.StageProfile,
	}, exchange.New(newStub(), testConfig).Stages())
}

func TestPipeline_WithMockTransport(t *testing.T) {
	ctrl := gomock.NewController(t)
	tr := mock_transport.NewMockTransport(ctrl)

	gomock.InOrder(
		tr.EXPECT().Do(gomock.Any(), gomock.Any()).Return(transport.Response{StatusCode: http.StatusOK, Body: []byte(msBody)}, nil),
		tr.EXPECT().Do(gomock.Any(), gomock.Any()).Return(transport.Response{StatusCode: http.StatusOK, Body: []byte(xblBody)}, nil),
		tr.EXPECT().Do(gomock.Any(), gomock.Any()).Return(transport.Response{StatusCode: http.StatusServiceUnavailable}, nil),
	)

	_, err := exchange.New(tr, testConfig).Run(context.Background(), "code-1")
	var perr *exchange.PipelineError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, exchange.StageXsts, perr.Stage)
	assert.Equal(t, http.StatusServiceUnavailable, perr.StatusCode)
}

func TestPipeline_ConcurrentRuns(t *testing.T) {
	p := exchange.New(newConcurrentStub(), testConfig)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := p.Run(context.Background(), "code")
			if assert.NoError(t, err) {
				assert.Equal(t, "Steve", result.Username)
			}
		}()
	}
	wg.Wait()
}

// concurrentStub answers by URL so interleaved runs all succeed.
type concurrentStub struct{}

func newConcurrentStub() concurrentStub { return concurrentStub{} }

func (concurrentStub) Do(_ context.Context, req transport.Request) (transport.Response, error) {
	bodies := map[string]string{
		exchange.MicrosoftTokenURL:   msBody,
		exchange.XboxLiveAuthURL:     xblBody,
		exchange.XstsAuthURL:         xstsBody,
		exchange.MinecraftAuthURL:    mcBody,
		exchange.MinecraftProfileURL: profileBody,
	}
	return transport.Response{StatusCode: http.StatusOK, Body: []byte(bodies[req.URL])}, nil
}
