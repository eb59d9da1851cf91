package exchange_test

import (
	"context"
	"net/http"
	"sync"

	"github.com/coredex-source/Cryovex-Launcher/internal/transport"
)

type reply struct {
	status int
	body   string
	err    error
}

func ok(body string) reply { return reply{status: http.StatusOK, body: body} }

// stubTransport answers calls from a fixed queue and records every request.
type stubTransport struct {
	mu       sync.Mutex
	replies  []reply
	requests []transport.Request
}

func newStub(replies ...reply) *stubTransport {
	return &stubTransport{replies: replies}
}

func (s *stubTransport) Do(ctx context.Context, req transport.Request) (transport.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if err := ctx.Err(); err != nil {
		return transport.Response{}, err
	}
	if len(s.requests) > len(s.replies) {
		return transport.Response{StatusCode: http.StatusTeapot, Body: []byte(`{"error":"unexpected call"}`)}, nil
	}
	r := s.replies[len(s.requests)-1]
	if r.err != nil {
		return transport.Response{}, r.err
	}
	return transport.Response{StatusCode: r.status, Body: []byte(r.body)}, nil
}

func (s *stubTransport) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *stubTransport) request(i int) transport.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[i]
}

const (
	msBody      = `{"access_token":"MT1","refresh_token":"RT1","expires_in":3600}`
	xblBody     = `{"Token":"XBL1"}`
	xstsBody    = `{"Token":"XSTS1","DisplayClaims":{"xui":[{"uhs":"UH1"}]}}`
	mcBody      = `{"access_token":"MC1"}`
	profileBody = `{"name":"Steve","id":"UUID-1"}`
)
