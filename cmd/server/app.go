package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/linnemanlabs/careline/internal/authmw"
	cc "github.com/linnemanlabs/careline/internal/cfg"
	"github.com/linnemanlabs/careline/internal/notify/slack"
	"github.com/linnemanlabs/careline/internal/postgres"
	"github.com/linnemanlabs/careline/internal/providers"
	"github.com/linnemanlabs/careline/internal/triage"
	"github.com/linnemanlabs/careline/internal/triage/memstore"
	"github.com/linnemanlabs/careline/internal/triage/pgstore"
	"github.com/linnemanlabs/careline/internal/triage/remote"
	"github.com/linnemanlabs/careline/internal/triageapi"
)

// app is the careline wiring behind the API listener.
type app struct {
	api   *triageapi.API
	close func()
}

// newApp loads the lexicon, opens the session store and builds the triage
// service, provider directory and API handlers. close releases the store.
func newApp(ctx context.Context, c cc.Config, L log.Logger, reg prometheus.Registerer) (*app, error) {
	// a bad lexicon file is fatal
	lexicon, err := loadLexicon(c.LexiconPath)
	if err != nil {
		return nil, err
	}
	engine := triage.NewEngine(lexicon)

	store, closeStore, err := newStore(ctx, c, L)
	if err != nil {
		return nil, err
	}

	// per-query DB duration histogram
	dbQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "careline_db_query_duration_seconds",
		Help:    "Duration of individual database queries.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "outcome"})
	reg.MustRegister(dbQueryDuration)
	postgres.SetQueryObserver(postgres.QueryObserverFunc(
		func(_ context.Context, method, route, outcome string, dur time.Duration) {
			dbQueryDuration.WithLabelValues(method, route, outcome).Observe(dur.Seconds())
		},
	))

	classifier, opts := newClassifier(c, engine)
	if c.ClassifierURL != "" {
		L.Info(ctx, "using external classifier",
			"url", c.ClassifierURL,
			"max_tries", c.ClassifierMaxTries,
			"fallback", opts.Fallback != nil,
		)
	}
	opts.Hooks = triage.NewMetrics(reg).Hooks()
	if c.SlackWebhookURL != "" {
		opts.Notifier = slack.New(c.SlackWebhookURL, L)
		L.Info(ctx, "notifier enabled", "type", "slack")
	}
	svc := triage.NewService(classifier, store, L, opts)

	// /api/v1 is behind the bearer token when one is configured
	api := triageapi.New(L, svc, newDirectory(c, L, reg), triageapi.Options{
		SessionListLimit: c.SessionListLimit,
		Middlewares:      []func(http.Handler) http.Handler{authmw.BearerToken(c.APIToken)},
	})
	return &app{api: api, close: closeStore}, nil
}

func newStore(ctx context.Context, c cc.Config, L log.Logger) (triage.Store, func(), error) {
	if c.DatabaseURL == "" {
		L.Info(ctx, "using in-memory session store (no database-url configured)")
		return memstore.New(), func() {}, nil
	}
	pool, err := postgres.NewPool(ctx, c.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres pool: %w", err)
	}
	store, err := pgstore.New(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("pgstore init: %w", err)
	}
	L.Info(ctx, "using postgres session store")
	return store, pool.Close, nil
}

func loadLexicon(path string) (*triage.Lexicon, error) {
	if path == "" {
		return triage.DefaultLexicon(), nil
	}
	lx, err := triage.LoadLexicon(path)
	if err != nil {
		return nil, fmt.Errorf("lexicon: %w", err)
	}
	return lx, nil
}

// newClassifier returns the primary classifier and the service options that
// depend on it. A remote primary is always floored by the local engine; the
// engine is also its fallback when fallback is enabled.
func newClassifier(c cc.Config, engine *triage.Engine) (triage.Classifier, triage.ServiceOptions) {
	opts := triage.ServiceOptions{
		ClassifyTimeout: time.Duration(c.ClassifierTimeoutSeconds) * time.Second,
	}
	if c.ClassifierURL == "" {
		return engine, opts
	}
	tries := uint(max(c.ClassifierMaxTries, 1)) //nolint:gosec // G115: validated to 1..10
	client := remote.New(c.ClassifierURL, remote.Options{
		AttemptTimeout: max(opts.ClassifyTimeout/time.Duration(tries), time.Second),
		MaxTries:       tries,
	})
	opts.Floor = engine
	if c.ClassifierFallback {
		opts.Fallback = engine
	}
	return client, opts
}

func newDirectory(c cc.Config, L log.Logger, reg prometheus.Registerer) providers.Directory {
	var d providers.Directory = providers.Default()
	if c.ProviderDirectoryURL != "" {
		d = providers.NewHTTPDirectory(c.ProviderDirectoryURL, nil, L)
	}
	return providers.Instrument(d, reg)
}
