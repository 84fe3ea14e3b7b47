// Package api is the HTTP client for the EscuelaJS store API.
//
// A single Client is shared by the whole process. Two interceptors sit around
// every call:
//
//   - outbound, a RoundTripper reads the persisted access token through a
//     TokenSource and sends it as "Authorization: Bearer <token>";
//   - inbound, once InstallUnauthorizedHandler has been called, any 401 on a
//     request that carried a bearer token triggers a best-effort logout and a
//     navigation to the login view marked as expired. The caller still gets
//     the original *Error. A 401 from the logout endpoint itself is exempt.
//
// Non-2xx responses are returned as *Error, which matches ErrUnauthorized,
// ErrNotFound and friends through errors.Is. Transport failures wrap
// ErrUnavailable.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/storeadmin/internal/client/router"
	"github.com/dmitrijs2005/storeadmin/internal/logging"
	"golang.org/x/time/rate"
)

const DefaultBaseURL = "https://api.escuelajs.co/api/v1"

// SessionTerminator is the part of the session store the 401 handler needs.
type SessionTerminator interface {
	Logout(ctx context.Context) error
}

// Navigator is the part of the router the 401 handler needs.
type Navigator interface {
	Push(ctx context.Context, to router.Location) (router.Location, error)
}

type Options struct {
	BaseURL string
	Tokens  TokenSource

	// RequestsPerSecond throttles outgoing calls; zero or less disables it.
	RequestsPerSecond float64

	// Timeout bounds a whole request; zero means no timeout.
	Timeout time.Duration

	// Transport is the innermost RoundTripper; nil means http.DefaultTransport.
	Transport http.RoundTripper

	Logger logging.Logger
}

type Client struct {
	baseURL string
	tokens  TokenSource
	http    *http.Client
	limiter *rate.Limiter
	log     logging.Logger

	installOnce sync.Once
	installed   atomic.Bool
	sessionFn   func() SessionTerminator
	navFn       func() Navigator
	handling    atomic.Bool
}

func New(opts Options) (*Client, error) {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", opts.BaseURL, err)
	}

	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}

	inner := opts.Transport
	if inner == nil {
		inner = http.DefaultTransport
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	return &Client{
		baseURL: base,
		tokens:  opts.Tokens,
		http: &http.Client{
			Timeout: opts.Timeout,
			Transport: &tracingTransport{
				log:  log,
				next: &bearerTransport{tokens: opts.Tokens, next: inner},
			},
		},
		limiter: rate.NewLimiter(limit, 1),
		log:     log,
	}, nil
}

// InstallUnauthorizedHandler wires the 401 reaction. The accessors are
// called lazily on each 401 so the session store and router may be built
// after the client. It can be installed only once.
func (c *Client) InstallUnauthorizedHandler(session func() SessionTerminator, nav func() Navigator) error {
	err := ErrHandlerInstalled
	c.installOnce.Do(func() {
		c.sessionFn = session
		c.navFn = nav
		c.installed.Store(true)
		err = nil
	})
	return err
}

// handleUnauthorized logs the session out and sends the user to the login
// view. Failures are logged only. A 401 raised by the logout call itself is
// ignored.
func (c *Client) handleUnauthorized(ctx context.Context) {
	if !c.installed.Load() || !c.handling.CompareAndSwap(false, true) {
		return
	}
	defer c.handling.Store(false)

	c.log.Warn(ctx, "session rejected by server, logging out")

	if c.sessionFn != nil {
		if s := c.sessionFn(); s != nil {
			if err := s.Logout(ctx); err != nil {
				c.log.Warn(ctx, "logout after 401 failed", "err", err)
			}
		}
	}

	if c.navFn != nil {
		if n := c.navFn(); n != nil {
			if _, err := n.Push(ctx, router.ExpiredLogin()); err != nil {
				c.log.Warn(ctx, "redirect to login after 401 failed", "err", err)
			}
		}
	}
}

type request struct {
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string

	// ignoreUnauthorized keeps a 401 from reaching the handler.
	ignoreUnauthorized bool
}

func (c *Client) do(ctx context.Context, r request, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s %s: %w", r.method, r.path, err)
	}

	u := c.baseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u, r.body)
	if err != nil {
		return fmt.Errorf("build request %s %s: %w", r.method, r.path, err)
	}
	contentType := r.contentType
	if contentType == "" {
		contentType = "application/json"
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	// Same read the bearer transport is about to make.
	authenticated := c.tokens != nil && c.tokens(ctx) != ""

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w: %w", r.method, r.path, ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", r.method, r.path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{
			Method:  r.method,
			Path:    r.path,
			Status:  resp.StatusCode,
			Message: serverMessage(body),
			Body:    body,
		}
		if resp.StatusCode == http.StatusUnauthorized && authenticated && !r.ignoreUnauthorized {
			c.handleUnauthorized(ctx)
		}
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", r.method, r.path, err)
	}
	return nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, in, out any) error {
	r := request{method: method, path: path, query: query}
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		r.body = bytes.NewReader(b)
	}
	return c.do(ctx, r, out)
}
