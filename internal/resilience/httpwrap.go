package resilience

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// HTTPClient wraps an http.Client with a per-request timeout and a circuit
// breaker. Requests are issued exactly once.
type HTTPClient struct {
	Client  *http.Client
	Breaker *Breaker
	Timeout time.Duration
}

// Do executes req under the configured timeout. Responses with a 5xx status
// count as breaker failures but are still returned to the caller. When the
// breaker is open ErrOpenCircuit is returned without touching the network.
// The returned cancel func must be called once the body has been consumed.
func (cl HTTPClient) Do(ctx context.Context, req *http.Request) (*http.Response, context.CancelFunc, error) {
	if cl.Client == nil {
		return nil, nil, errors.New("resilience: http client not configured")
	}
	if cl.Breaker != nil && !cl.Breaker.Allow(ctx) {
		return nil, nil, ErrOpenCircuit
	}

	var callCtx context.Context
	var cancel context.CancelFunc
	if cl.Timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, cl.Timeout)
	} else {
		callCtx, cancel = context.WithCancel(ctx)
	}

	resp, err := cl.Client.Do(req.WithContext(callCtx))
	if err != nil {
		cancel()
		cl.report(ctx, false)
		return nil, nil, err
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		cl.report(ctx, false)
		return resp, cancel, fmt.Errorf("resilience: upstream status %s", resp.Status)
	}
	cl.report(ctx, true)
	return resp, cancel, nil
}

func (cl HTTPClient) report(ctx context.Context, success bool) {
	if cl.Breaker != nil {
		cl.Breaker.Report(ctx, success)
	}
}
