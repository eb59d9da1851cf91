package exchange

import (
	"errors"
	"fmt"
)

var (
	ErrTransportFailure  = errors.New("transport failure")
	ErrProviderRejected  = errors.New("provider rejected request")
	ErrMalformedResponse = errors.New("malformed response")

	ErrMissingField           = errors.New("required field missing")
	ErrEmptyAuthorizationCode = errors.New("authorization code is empty")
	ErrStateMismatch          = errors.New("state parameter does not match")
	ErrMissingCode            = errors.New("redirect carries no authorization code")
)

// Kind classifies a stage failure.
type Kind int

const (
	// KindTransportFailure means no response was obtained.
	KindTransportFailure Kind = iota + 1
	// KindProviderRejected means a non-2xx status was returned.
	KindProviderRejected
	// KindMalformedResponse means a 2xx body lacked a required field or had the wrong shape.
	KindMalformedResponse
)

func (k Kind) String() string {
	switch k {
	case KindTransportFailure:
		return "TransportFailure"
	case KindProviderRejected:
		return "ProviderRejected"
	case KindMalformedResponse:
		return "MalformedResponse"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindTransportFailure:
		return ErrTransportFailure
	case KindProviderRejected:
		return ErrProviderRejected
	case KindMalformedResponse:
		return ErrMalformedResponse
	default:
		return nil
	}
}

// StageError is returned by a Stage.
type StageError struct {
	Kind       Kind
	StatusCode int    // set for KindProviderRejected
	Body       []byte // raw response body, if one was received
	Err        error
}

func (e *StageError) Error() string {
	msg := e.Kind.sentinel().Error()
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StageError) Unwrap() []error {
	return unwrapKind(e.Kind, e.Err)
}

// PipelineError is returned by Run when a stage fails. It names the stage so
// callers can tell a Microsoft rejection from a profile service rejection.
type PipelineError struct {
	Stage      StageName
	State      State
	Kind       Kind
	StatusCode int
	Body       []byte
	Err        error
}

const maxBodyInMessage = 256

func (e *PipelineError) Error() string {
	msg := fmt.Sprintf("exchange: %s: %s", e.Stage, e.Kind.sentinel())
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Kind == KindProviderRejected && len(e.Body) > 0 {
		body := e.Body
		if len(body) > maxBodyInMessage {
			body = body[:maxBodyInMessage]
		}
		msg += fmt.Sprintf(", body: %s", body)
	}
	return msg
}

func (e *PipelineError) Unwrap() []error {
	return unwrapKind(e.Kind, e.Err)
}

// Retryable reports whether running again with the same authorization code can
// succeed. Only a transport failure of the token exchange qualifies: once stage
// one has answered, the code is redeemed and the flow must restart from the
// authorization URL.
func (e *PipelineError) Retryable() bool {
	return e.Kind == KindTransportFailure && e.State == StateTokenExchange
}

func unwrapKind(k Kind, cause error) []error {
	errs := make([]error, 0, 2)
	if s := k.sentinel(); s != nil {
		errs = append(errs, s)
	}
	if cause != nil {
		errs = append(errs, cause)
	}
	return errs
}

func newPipelineError(stage StageName, state State, err error) *PipelineError {
	var serr *StageError
	if errors.As(err, &serr) {
		return &PipelineError{
			Stage:      stage,
			State:      state,
			Kind:       serr.Kind,
			StatusCode: serr.StatusCode,
			Body:       serr.Body,
			Err:        serr.Err,
		}
	}
	return &PipelineError{Stage: stage, State: state, Kind: KindTransportFailure, Err: err}
}

func transportFailure(err error) *StageError {
	return &StageError{Kind: KindTransportFailure, Err: err}
}

func rejected(status int, body []byte) *StageError {
	return &StageError{Kind: KindProviderRejected, StatusCode: status, Body: body}
}

func malformed(body []byte, err error) *StageError {
	return &StageError{Kind: KindMalformedResponse, Body: body, Err: err}
}

func missingField(body []byte, field string) *StageError {
	return malformed(body, fmt.Errorf("%w: %s", ErrMissingField, field))
}
