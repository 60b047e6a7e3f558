// Package remote is a triage.Classifier backed by an external
// classification API that speaks the careline triage wire format.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/linnemanlabs/careline/internal/triage"
)

var tracer = otel.Tracer("github.com/linnemanlabs/careline/internal/triage/remote")

const (
	defaultAttemptTimeout = 5 * time.Second
	defaultMaxTries       = 3
	maxResponseBytes      = 1 << 20
)

// StatusError is a non-2xx answer from the classifier.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("classifier returned %d: %s", e.StatusCode, e.Body)
}

// Options configures a Client. Zero values select defaults.
type Options struct {
	// AttemptTimeout bounds a single HTTP attempt.
	AttemptTimeout time.Duration

	// MaxTries is the total number of attempts, including the first.
	MaxTries uint

	// Token is sent as a bearer token when set.
	Token string

	// BackOff overrides the retry schedule. It is shared by concurrent calls
	// and must be stateless, e.g. *backoff.ZeroBackOff.
	BackOff backoff.BackOff

	// HTTPClient overrides the default otelhttp-instrumented client.
	HTTPClient *http.Client
}

// Client posts triage requests to a remote classifier.
type Client struct {
	endpoint   string
	token      string
	httpClient *http.Client
	attempt    time.Duration
	maxTries   uint
	newBackOff func() backoff.BackOff
}

// New creates a Client for endpoint, the full URL of the triage operation
// (for another careline instance: https://host/api/v1/triage).
func New(endpoint string, opts Options) *Client {
	c := &Client{
		endpoint:   endpoint,
		token:      opts.Token,
		httpClient: opts.HTTPClient,
		attempt:    opts.AttemptTimeout,
		maxTries:   opts.MaxTries,
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	if c.attempt <= 0 {
		c.attempt = defaultAttemptTimeout
	}
	if c.maxTries == 0 {
		c.maxTries = defaultMaxTries
	}
	if opts.BackOff != nil {
		b := opts.BackOff
		c.newBackOff = func() backoff.BackOff { return b }
	} else {
		c.newBackOff = func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxInterval = 2 * time.Second
			return b
		}
	}
	return c
}

// Assess implements triage.Classifier. Transport errors and 5xx answers are
// retried; 4xx answers and undecodable bodies are not.
func (c *Client) Assess(ctx context.Context, req triage.Request) (triage.Assessment, error) {
	ctx, span := tracer.Start(ctx, "remote.Assess")
	defer span.End()

	body, err := json.Marshal(req)
	if err != nil {
		return triage.Assessment{}, fmt.Errorf("marshal request: %w", err)
	}

	tries := 0
	a, err := backoff.Retry(ctx, func() (triage.Assessment, error) {
		tries++
		return c.do(ctx, body)
	},
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(c.maxTries),
	)
	span.SetAttributes(attribute.Int("careline.remote.attempts", tries))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return triage.Assessment{}, fmt.Errorf("remote classifier: %w", err)
	}
	span.SetAttributes(attribute.String("careline.triage.urgency", string(a.Urgency)))
	return a, nil
}

func (c *Client) do(ctx context.Context, body []byte) (triage.Assessment, error) {
	actx, cancel := context.WithTimeout(ctx, c.attempt)
	defer cancel()

	hreq, err := http.NewRequestWithContext(actx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return triage.Assessment{}, backoff.Permanent(fmt.Errorf("create request: %w", err))
	}
	hreq.Header.Set("Content-Type", "application/json")
	hreq.Header.Set("Accept", "application/json")
	if c.token != "" {
		hreq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(hreq)
	if err != nil {
		// the caller's deadline is final; only per-attempt timeouts are retried
		if ctx.Err() != nil {
			return triage.Assessment{}, backoff.Permanent(err)
		}
		return triage.Assessment{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return triage.Assessment{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		serr := &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(data), 256)}
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return triage.Assessment{}, serr
		}
		return triage.Assessment{}, backoff.Permanent(serr)
	}

	var a triage.Assessment
	if err := json.Unmarshal(data, &a); err != nil {
		return triage.Assessment{}, backoff.Permanent(fmt.Errorf("decode assessment: %w", err))
	}
	return a, nil
}

// IsStatus reports whether err carries a classifier answer with the given code.
func IsStatus(err error, code int) bool {
	var serr *StatusError
	return errors.As(err, &serr) && serr.StatusCode == code
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
