package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/singleflight"

	"github.com/linnemanlabs/go-core/log"
)

const (
	maxDirectoryBytes = 4 << 20
	fetchTimeout      = 10 * time.Second
)

// HTTPDirectory reads providers from an external directory service that
// answers GET with {"providers":[...]}. Concurrent List calls share one
// upstream fetch.
type HTTPDirectory struct {
	url        string
	httpClient *http.Client
	logger     log.Logger
	group      singleflight.Group
}

// NewHTTPDirectory creates a directory client for url. A nil client gets an
// otelhttp-instrumented one with a 10s timeout.
func NewHTTPDirectory(url string, client *http.Client, logger log.Logger) *HTTPDirectory {
	if client == nil {
		client = &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &HTTPDirectory{url: url, httpClient: client, logger: logger}
}

// List implements Directory. Entries that fail Provider.Valid are dropped.
// A caller that gives up does not cancel the fetch for the others.
func (d *HTTPDirectory) List(ctx context.Context) ([]Provider, error) {
	ch := d.group.DoChan("list", func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()
		return d.fetch(fctx)
	})
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return slices.Clone(res.Val.([]Provider)), nil
	}
}

func (d *HTTPDirectory) fetch(ctx context.Context) ([]Provider, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %w", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: directory returned %d", ErrUnavailable, resp.StatusCode)
	}

	var body struct {
		Providers []Provider `json:"providers"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxDirectoryBytes)).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ErrUnavailable, err)
	}

	out := make([]Provider, 0, len(body.Providers))
	for _, p := range body.Providers {
		if !p.Valid() {
			d.logger.Warn(ctx, "dropping invalid provider record", "provider_id", p.ID, "rating", p.Rating)
			continue
		}
		out = append(out, p)
	}
	sortByID(out)
	return out, nil
}
