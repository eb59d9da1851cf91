package exchange_test

import (
	"bytes"
	"context"
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coredex-source/Cryovex-Launcher/internal/exchange"
	"github.com/coredex-source/Cryovex-Launcher/log"
)

func TestLogObserver_NeverLogsTokens(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewZerologAdapterWriter(&buf, zerolog.DebugLevel)
	stub := newStub(ok(msBody), ok(xblBody), ok(xstsBody), ok(mcBody), ok(profileBody))

	_, err := exchange.New(stub, testConfig, exchange.WithObserver(exchange.NewLogObserver(logger))).
		Run(context.Background(), "code-1")
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "exchange completed")
	assert.Contains(t, out, `"stage":"XSTS Auth"`)
	for _, secret := range []string{"MT1", "RT1", "XBL1", "XSTS1", "MC1", "code-1"} {
		assert.NotContains(t, out, secret)
	}
}

func TestLogObserver_Failure(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewZerologAdapterWriter(&buf, zerolog.InfoLevel)
	stub := newStub(reply{status: http.StatusBadRequest, body: `{"error":"invalid_grant"}`})

	_, err := exchange.New(stub, testConfig, exchange.WithObserver(exchange.NewLogObserver(logger))).
		Run(context.Background(), "code-1")
	require.Error(t, err)

	out := buf.String()
	assert.Contains(t, out, "exchange stage failed")
	assert.Contains(t, out, `"kind":"ProviderRejected"`)
	assert.Contains(t, out, `"status":400`)
	assert.Contains(t, out, "exchange aborted")
	assert.NotContains(t, out, "exchange stage started")
}

func TestObserverFunc(t *testing.T) {
	var got []exchange.Phase
	obs := exchange.ObserverFunc(func(_ context.Context, ev exchange.Event) { got = append(got, ev.Phase) })

	_, _ = exchange.New(newStub(reply{status: http.StatusBadRequest}), testConfig, exchange.WithObserver(obs)).
		Run(context.Background(), "code-1")
	assert.Equal(t, []exchange.Phase{exchange.PhaseStarted, exchange.PhaseFailed, exchange.PhaseAborted}, got)
}
