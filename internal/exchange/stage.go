package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"

	"github.com/coredex-source/Cryovex-Launcher/internal/transport"
)

// StageName identifies a stage in events and errors.
type StageName string

const (
	StageTokenExchange StageName = "Microsoft Token Exchange"
	StageXboxLive      StageName = "Xbox Live Auth"
	StageXsts          StageName = "XSTS Auth"
	StageResourceAuth  StageName = "Resource Auth"
	StageProfile       StageName = "Profile Fetch"
)

// Stage is one exchange step. Execute issues exactly one transport call and
// returns either a fully populated Out or a *StageError.
type Stage[In, Out any] interface {
	Name() StageName
	Execute(ctx context.Context, in In) (Out, error)
}

var errNotObject = errors.New("response body is not a JSON object")

// call performs the request and classifies transport failures and non-2xx
// statuses. The returned body belongs to a 2xx response.
func call(ctx context.Context, t transport.Transport, req transport.Request) ([]byte, *StageError) {
	resp, err := t.Do(ctx, req)
	if err != nil {
		return nil, transportFailure(err)
	}
	if !resp.Success() {
		return nil, rejected(resp.StatusCode, resp.Body)
	}
	return resp.Body, nil
}

// decode unmarshals a JSON object. Arrays, scalars, null and type mismatches
// are all malformed.
func decode(body []byte, dst any) *StageError {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return malformed(body, errNotObject)
	}
	if err := json.Unmarshal(trimmed, dst); err != nil {
		return malformed(body, err)
	}
	return nil
}
