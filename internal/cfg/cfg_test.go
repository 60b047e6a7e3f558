package cfg

import (
	"flag"
	"math"
	"strings"
	"testing"
)

// validBase returns a Config with all required fields set to valid values.
func validBase() Config {
	return Config{
		DrainSeconds:             60,
		ShutdownBudgetSeconds:    90,
		APIPort:                  8080,
		ClassifierTimeoutSeconds: 10,
		ClassifierMaxTries:       3,
		ClassifierFallback:       true,
		SessionListLimit:         20,
	}
}

func TestRegisterFlags_Defaults(t *testing.T) {
	t.Parallel()

	var c Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.RegisterFlags(fs)

	if err := fs.Parse(nil); err != nil {
		t.Fatalf("parse empty args: %v", err)
	}

	if c != validBase() {
		t.Errorf("defaults = %+v, want %+v", c, validBase())
	}
	if err := c.Validate(); err != nil {
		t.Errorf("defaults should validate, got: %v", err)
	}
}

func TestRegisterFlags_Override(t *testing.T) {
	t.Parallel()

	var c Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.RegisterFlags(fs)

	args := []string{
		"-drain-seconds", "30",
		"-shutdown-budget-seconds", "120",
		"-http-port", "9090",
		"-database-url", "postgres://careline@db/careline",
		"-lexicon-path", "/etc/careline/lexicon.yaml",
		"-classifier-url", "https://classify.internal/v1/assess",
		"-classifier-timeout-seconds", "4",
		"-classifier-max-tries", "5",
		"-classifier-fallback=false",
		"-provider-directory-url", "http://directory:8080/providers",
		"-slack-webhook-url", "https://hooks.slack.com/services/T/B/X",
		"-api-token", "tok",
		"-session-list-limit", "50",
	}
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse args: %v", err)
	}

	want := Config{
		DrainSeconds:             30,
		ShutdownBudgetSeconds:    120,
		APIPort:                  9090,
		DatabaseURL:              "postgres://careline@db/careline",
		LexiconPath:              "/etc/careline/lexicon.yaml",
		ClassifierURL:            "https://classify.internal/v1/assess",
		ClassifierTimeoutSeconds: 4,
		ClassifierMaxTries:       5,
		ClassifierFallback:       false,
		ProviderDirectoryURL:     "http://directory:8080/providers",
		SlackWebhookURL:          "https://hooks.slack.com/services/T/B/X",
		APIToken:                 "tok",
		SessionListLimit:         50,
	}
	if c != want {
		t.Errorf("config = %+v\nwant     %+v", c, want)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("overrides should validate, got: %v", err)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	with := func(mut func(*Config)) Config {
		c := validBase()
		mut(&c)
		return c
	}

	tests := []struct {
		name      string
		cfg       Config
		wantErr   bool
		errSubstr []string // substrings that must appear in error message
	}{
		{name: "defaults are valid", cfg: validBase()},
		{
			name: "minimum valid values",
			cfg: Config{
				DrainSeconds: 1, ShutdownBudgetSeconds: 2, APIPort: 1,
				ClassifierTimeoutSeconds: 1, ClassifierMaxTries: 1, SessionListLimit: 1,
			},
		},
		{
			name: "maximum valid values",
			cfg: Config{
				DrainSeconds: 299, ShutdownBudgetSeconds: 300, APIPort: 65535,
				ClassifierTimeoutSeconds: 60, ClassifierMaxTries: 10, SessionListLimit: 100,
			},
		},
		// DrainSeconds boundaries
		{name: "drain zero", cfg: with(func(c *Config) { c.DrainSeconds = 0 }), wantErr: true, errSubstr: []string{"DRAIN_SECONDS"}},
		{name: "drain negative", cfg: with(func(c *Config) { c.DrainSeconds = -1 }), wantErr: true, errSubstr: []string{"DRAIN_SECONDS"}},
		{name: "drain above max", cfg: with(func(c *Config) { c.DrainSeconds, c.ShutdownBudgetSeconds = 301, 302 }), wantErr: true, errSubstr: []string{"DRAIN_SECONDS"}},
		{name: "drain at upper bound", cfg: with(func(c *Config) { c.DrainSeconds, c.ShutdownBudgetSeconds = 300, 300 }), wantErr: true},
		// ShutdownBudgetSeconds boundaries
		{name: "budget zero", cfg: with(func(c *Config) { c.ShutdownBudgetSeconds = 0 }), wantErr: true, errSubstr: []string{"SHUTDOWN_BUDGET_SECONDS"}},
		{name: "budget above max", cfg: with(func(c *Config) { c.ShutdownBudgetSeconds = 301 }), wantErr: true, errSubstr: []string{"SHUTDOWN_BUDGET_SECONDS"}},
		// Cross-field: budget vs drain
		{name: "budget equals drain", cfg: with(func(c *Config) { c.ShutdownBudgetSeconds = 60 }), wantErr: true, errSubstr: []string{"must be greater than"}},
		{name: "budget less than drain", cfg: with(func(c *Config) { c.ShutdownBudgetSeconds = 30 }), wantErr: true, errSubstr: []string{"must be greater than"}},
		{name: "budget is drain plus one", cfg: with(func(c *Config) { c.ShutdownBudgetSeconds = 61 })},
		// APIPort boundaries
		{name: "port zero", cfg: with(func(c *Config) { c.APIPort = 0 }), wantErr: true, errSubstr: []string{"HTTP_PORT"}},
		{name: "port above max", cfg: with(func(c *Config) { c.APIPort = 65536 }), wantErr: true, errSubstr: []string{"HTTP_PORT"}},
		// Classifier
		{name: "classifier timeout zero", cfg: with(func(c *Config) { c.ClassifierTimeoutSeconds = 0 }), wantErr: true, errSubstr: []string{"CLASSIFIER_TIMEOUT_SECONDS"}},
		{name: "classifier timeout above max", cfg: with(func(c *Config) { c.ClassifierTimeoutSeconds = 61 }), wantErr: true, errSubstr: []string{"CLASSIFIER_TIMEOUT_SECONDS"}},
		{name: "classifier tries zero", cfg: with(func(c *Config) { c.ClassifierMaxTries = 0 }), wantErr: true, errSubstr: []string{"CLASSIFIER_MAX_TRIES"}},
		{name: "classifier tries above max", cfg: with(func(c *Config) { c.ClassifierMaxTries = 11 }), wantErr: true, errSubstr: []string{"CLASSIFIER_MAX_TRIES"}},
		{name: "fallback disabled", cfg: with(func(c *Config) { c.ClassifierFallback = false })},
		// Session listings
		{name: "list limit zero", cfg: with(func(c *Config) { c.SessionListLimit = 0 }), wantErr: true, errSubstr: []string{"SESSION_LIST_LIMIT"}},
		{name: "list limit above max", cfg: with(func(c *Config) { c.SessionListLimit = 101 }), wantErr: true, errSubstr: []string{"SESSION_LIST_LIMIT"}},
		// Upstream URLs
		{name: "classifier url https", cfg: with(func(c *Config) { c.ClassifierURL = "https://classify.example/v1" })},
		{name: "classifier url relative", cfg: with(func(c *Config) { c.ClassifierURL = "/v1/assess" }), wantErr: true, errSubstr: []string{"CLASSIFIER_URL"}},
		{name: "classifier url no host", cfg: with(func(c *Config) { c.ClassifierURL = "http://" }), wantErr: true, errSubstr: []string{"CLASSIFIER_URL", "missing host"}},
		{name: "directory url ftp", cfg: with(func(c *Config) { c.ProviderDirectoryURL = "ftp://dir.example/providers" }), wantErr: true, errSubstr: []string{"PROVIDER_DIRECTORY_URL"}},
		{name: "slack url unparseable", cfg: with(func(c *Config) { c.SlackWebhookURL = "http://[::1" }), wantErr: true, errSubstr: []string{"SLACK_WEBHOOK_URL"}},
		{name: "database url is not checked", cfg: with(func(c *Config) { c.DatabaseURL = "host=db user=careline" })},
		// Error accumulation: all fields invalid
		{
			name:      "all fields invalid",
			cfg:       Config{ClassifierURL: "nope"},
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS", "SHUTDOWN_BUDGET_SECONDS", "HTTP_PORT", "CLASSIFIER_TIMEOUT_SECONDS", "CLASSIFIER_MAX_TRIES", "SESSION_LIST_LIMIT", "CLASSIFIER_URL"},
		},
		// Extreme values
		{
			name:      "extreme negative values",
			cfg:       Config{DrainSeconds: math.MinInt32, ShutdownBudgetSeconds: math.MinInt32, APIPort: math.MinInt32},
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS", "SHUTDOWN_BUDGET_SECONDS", "HTTP_PORT"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				errMsg := err.Error()
				for _, sub := range tt.errSubstr {
					if !strings.Contains(errMsg, sub) {
						t.Errorf("error %q does not contain %q", errMsg, sub)
					}
				}
			}
		})
	}
}

func FuzzValidate(f *testing.F) {
	// Seeds: defaults, boundaries, extremes
	seeds := []struct{ drain, budget, port, timeout, tries, limit int }{
		{60, 90, 8080, 10, 3, 20},
		{1, 2, 1, 1, 1, 1},
		{299, 300, 65535, 60, 10, 100},
		{0, 0, 0, 0, 0, 0},
		{-1, -1, -1, -1, -1, -1},
		{300, 300, 65535, 61, 11, 101},
		{150, 100, 8080, 10, 3, 20},
		{math.MinInt32, math.MinInt32, math.MinInt32, math.MinInt32, math.MinInt32, math.MinInt32},
		{math.MaxInt32, math.MaxInt32, math.MaxInt32, math.MaxInt32, math.MaxInt32, math.MaxInt32},
	}
	for _, s := range seeds {
		f.Add(s.drain, s.budget, s.port, s.timeout, s.tries, s.limit)
	}

	f.Fuzz(func(t *testing.T, drain, budget, port, timeout, tries, limit int) {
		c := Config{
			DrainSeconds:             drain,
			ShutdownBudgetSeconds:    budget,
			APIPort:                  port,
			ClassifierTimeoutSeconds: timeout,
			ClassifierMaxTries:       tries,
			SessionListLimit:         limit,
		}
		err := c.Validate()

		allValid := drain >= 1 && drain <= 300 &&
			budget >= 1 && budget <= 300 &&
			budget > drain &&
			port >= 1 && port <= 65535 &&
			timeout >= 1 && timeout <= 60 &&
			tries >= 1 && tries <= 10 &&
			limit >= 1 && limit <= 100

		if allValid && err != nil {
			t.Errorf("expected no error for valid config %+v, got: %v", c, err)
		}
		if !allValid && err == nil {
			t.Errorf("expected error for invalid config %+v, got nil", c)
		}
	})
}
