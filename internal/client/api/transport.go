package api

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/storeadmin/internal/common"
	"github.com/dmitrijs2005/storeadmin/internal/logging"
	"github.com/google/uuid"
)

// TokenSource returns the access token to attach to an outgoing request, or
// "" when there is none.
type TokenSource func(ctx context.Context) string

// bearerTransport attaches the persisted access token to every request.
type bearerTransport struct {
	tokens TokenSource
	next   http.RoundTripper
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.tokens != nil {
		if token := t.tokens(req.Context()); token != "" {
			req = req.Clone(req.Context())
			req.Header.Set(common.AuthorizationHeaderName, "Bearer "+token)
		}
	}
	return t.next.RoundTrip(req)
}

// tracingTransport stamps a request id and logs each round trip.
type tracingTransport struct {
	log  logging.Logger
	next http.RoundTripper
}

func (t *tracingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	if req.Header.Get(common.RequestIDHeaderName) == "" {
		req = req.Clone(ctx)
		req.Header.Set(common.RequestIDHeaderName, uuid.NewString())
	}

	start := time.Now()
	resp, err := t.next.RoundTrip(req)

	args := []any{
		"method", req.Method,
		"path", req.URL.Path,
		"request_id", req.Header.Get(common.RequestIDHeaderName),
		"duration", time.Since(start),
	}
	if err != nil {
		t.log.Debug(ctx, "api request failed", append(args, "err", err)...)
		return nil, err
	}
	t.log.Debug(ctx, "api request", append(args, "status", resp.StatusCode)...)
	return resp, nil
}
