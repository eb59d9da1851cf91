// Package transport performs the HTTP calls issued by the exchange stages.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	ContentTypeForm = "application/x-www-form-urlencoded"
	ContentTypeJSON = "application/json"

	defaultTimeout         = 30 * time.Second
	defaultUserAgent       = "CryovexLauncher/1.0.0"
	defaultMaxResponseBody int64 = 1 << 20
)

// Request is a single outbound call.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response is what came back from the provider. Any status code is a Response;
// only failures to obtain one are reported as errors.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Success reports whether the status code is 2xx.
func (r Response) Success() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Transport executes requests.
//
//go:generate go run go.uber.org/mock/mockgen -source=$GOFILE -destination=mock/mock_$GOFILE -package=mock_$GOPACKAGE Transport
type Transport interface {
	Do(ctx context.Context, req Request) (Response, error)
}

// NewFormRequest builds a form-encoded POST.
func NewFormRequest(endpoint string, form url.Values) Request {
	h := http.Header{}
	h.Set("Content-Type", ContentTypeForm)
	return Request{
		Method: http.MethodPost,
		URL:    endpoint,
		Header: h,
		Body:   []byte(form.Encode()),
	}
}

// NewJSONRequest builds a JSON POST with both Content-Type and Accept set.
func NewJSONRequest(endpoint string, payload any) (Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Request{}, fmt.Errorf("encode request body: %w", err)
	}
	h := http.Header{}
	h.Set("Content-Type", ContentTypeJSON)
	h.Set("Accept", ContentTypeJSON)
	return Request{
		Method: http.MethodPost,
		URL:    endpoint,
		Header: h,
		Body:   body,
	}, nil
}

// NewGetRequest builds a GET authenticated with a bearer token.
func NewGetRequest(endpoint, bearer string) Request {
	h := http.Header{}
	h.Set("Accept", ContentTypeJSON)
	if bearer != "" {
		h.Set("Authorization", "Bearer "+bearer)
	}
	return Request{
		Method: http.MethodGet,
		URL:    endpoint,
		Header: h,
	}
}

// Config is the explicit client configuration. There is no package level
// client or header state.
type Config struct {
	Client               *http.Client
	Timeout              time.Duration
	UserAgent            string
	DefaultHeaders       map[string]string
	MaxResponseBodyBytes int64
}

// HTTPTransport is the net/http implementation of Transport.
type HTTPTransport struct {
	client         *http.Client
	timeout        time.Duration
	userAgent      string
	defaultHeaders map[string]string
	maxBodyBytes   int64
}

// NewHTTPTransport creates an HTTPTransport, filling defaults for zero values.
func NewHTTPTransport(cfg Config) *HTTPTransport {
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	maxBody := cfg.MaxResponseBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxResponseBody
	}
	headers := make(map[string]string, len(cfg.DefaultHeaders))
	for k, v := range cfg.DefaultHeaders {
		if strings.TrimSpace(k) == "" {
			continue
		}
		headers[k] = v
	}
	return &HTTPTransport{
		client:         client,
		timeout:        timeout,
		userAgent:      userAgent,
		defaultHeaders: headers,
		maxBodyBytes:   maxBody,
	}
}

// Do implements Transport.
func (t *HTTPTransport) Do(ctx context.Context, req Request) (Response, error) {
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}

	reqCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(reqCtx, method, req.URL, body)
	if err != nil {
		return Response{}, &Error{Op: "build request", Method: method, URL: req.URL, Err: err}
	}
	httpReq.Header.Set("User-Agent", t.userAgent)
	for k, v := range t.defaultHeaders {
		httpReq.Header.Set(k, v)
	}
	for k, values := range req.Header {
		httpReq.Header.Del(k)
		for _, v := range values {
			httpReq.Header.Add(k, v)
		}
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return Response{}, &Error{Op: "execute request", Method: method, URL: req.URL, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, t.maxBodyBytes+1))
	if err != nil {
		return Response{}, &Error{Op: "read response", Method: method, URL: req.URL, Err: err}
	}
	if int64(len(data)) > t.maxBodyBytes {
		return Response{}, &Error{
			Op:     "read response",
			Method: method,
			URL:    req.URL,
			Err:    fmt.Errorf("%w: limit %d bytes", ErrResponseTooLarge, t.maxBodyBytes),
		}
	}

	return Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       data,
	}, nil
}

var _ Transport = (*HTTPTransport)(nil)
