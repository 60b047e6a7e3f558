// Package cfg holds careline's application configuration. Logging, tracing,
// metrics and profiling register their own flags through go-core.
package cfg

import (
	"errors"
	"flag"
	"fmt"
	"net/url"
)

// Config adds app-specific configuration fields to the
// common cfg.Registerable and cfg.Validatable interfaces
type Config struct {
	DrainSeconds             int
	ShutdownBudgetSeconds    int
	APIPort                  int
	DatabaseURL              string
	LexiconPath              string
	ClassifierURL            string
	ClassifierTimeoutSeconds int
	ClassifierMaxTries       int
	ClassifierFallback       bool
	ProviderDirectoryURL     string
	SlackWebhookURL          string
	APIToken                 string
	SessionListLimit         int
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL (empty = in-memory session store)")
	fs.StringVar(&c.LexiconPath, "lexicon-path", "", "YAML symptom lexicon (empty = built-in lexicon)")
	fs.StringVar(&c.ClassifierURL, "classifier-url", "", "external classification API endpoint (empty = local rule engine)")
	fs.IntVar(&c.ClassifierTimeoutSeconds, "classifier-timeout-seconds", 10, "overall budget for the external classifier per request (1..60)")
	fs.IntVar(&c.ClassifierMaxTries, "classifier-max-tries", 3, "attempts against the external classifier before giving up (1..10)")
	fs.BoolVar(&c.ClassifierFallback, "classifier-fallback", true, "answer with the local rule engine when the external classifier fails")
	fs.StringVar(&c.ProviderDirectoryURL, "provider-directory-url", "", "upstream provider directory (empty = built-in listing)")
	fs.StringVar(&c.SlackWebhookURL, "slack-webhook-url", "", "Slack webhook URL for emergency escalations")
	fs.StringVar(&c.APIToken, "api-token", "", "bearer token required on /api/v1 (empty = open)")
	fs.IntVar(&c.SessionListLimit, "session-list-limit", 20, "default page size for patient session listings (1..100)")
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}

	// Shutdown budget must be greater than drain time
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	if c.ClassifierTimeoutSeconds <= 0 || c.ClassifierTimeoutSeconds > 60 {
		errs = append(errs, fmt.Errorf("invalid CLASSIFIER_TIMEOUT_SECONDS %d (must be 1..60)", c.ClassifierTimeoutSeconds))
	}
	if c.ClassifierMaxTries <= 0 || c.ClassifierMaxTries > 10 {
		errs = append(errs, fmt.Errorf("invalid CLASSIFIER_MAX_TRIES %d (must be 1..10)", c.ClassifierMaxTries))
	}
	if c.SessionListLimit <= 0 || c.SessionListLimit > 100 {
		errs = append(errs, fmt.Errorf("invalid SESSION_LIST_LIMIT %d (must be 1..100)", c.SessionListLimit))
	}

	// Optional upstream endpoints must be absolute http(s) URLs when set
	for _, u := range []struct{ name, value string }{
		{"CLASSIFIER_URL", c.ClassifierURL},
		{"PROVIDER_DIRECTORY_URL", c.ProviderDirectoryURL},
		{"SLACK_WEBHOOK_URL", c.SlackWebhookURL},
	} {
		if err := checkHTTPURL(u.value); err != nil {
			errs = append(errs, fmt.Errorf("invalid %s: %w", u.name, err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func checkHTTPURL(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme %q must be http or https", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}
