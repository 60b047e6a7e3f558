package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	cc "github.com/linnemanlabs/careline/internal/cfg"
	"github.com/linnemanlabs/careline/internal/providers"
	"github.com/linnemanlabs/careline/internal/triage"
	"github.com/linnemanlabs/careline/internal/triage/remote"
)

func TestNotifySystemd_NoSocket(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", "")

	err := notifySystemd()
	if err == nil {
		t.Fatal("expected error when NOTIFY_SOCKET is empty")
	}
	if !strings.Contains(err.Error(), "NOTIFY_SOCKET not set") {
		t.Errorf("error = %q, want substring %q", err, "NOTIFY_SOCKET not set")
	}
}

func TestNotifySystemd_InvalidPath(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", filepath.Join(t.TempDir(), "nonexistent.sock"))

	err := notifySystemd()
	if err == nil {
		t.Fatal("expected error for nonexistent socket")
	}
	if !strings.Contains(err.Error(), "dial failed") {
		t.Errorf("error = %q, want substring %q", err, "dial failed")
	}
}

func TestNotifySystemd_Success(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "notify.sock")

	// Create a real unixgram listener.
	var lc net.ListenConfig
	conn, err := lc.ListenPacket(context.Background(), "unixgram", sockPath)
	if err != nil {
		t.Fatalf("listen unixgram: %v", err)
	}
	defer func() { _ = conn.Close() }()

	t.Setenv("NOTIFY_SOCKET", sockPath)

	if err := notifySystemd(); err != nil {
		t.Fatalf("notifySystemd() = %v, want nil", err)
	}

	buf := make([]byte, 256)
	n, _, err := conn.ReadFrom(buf)
	if err != nil {
		t.Fatalf("read from socket: %v", err)
	}

	got := string(buf[:n])
	if got != "READY=1" {
		t.Errorf("payload = %q, want %q", got, "READY=1")
	}
}

func TestLoadLexicon(t *testing.T) {
	t.Parallel()

	lx, err := loadLexicon("")
	if err != nil || lx == nil {
		t.Fatalf("loadLexicon(\"\") = %v, %v; want built-in lexicon", lx, err)
	}

	if _, err := loadLexicon(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing lexicon file")
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("critical: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := loadLexicon(bad); err == nil || !strings.Contains(err.Error(), "lexicon") {
		t.Errorf("loadLexicon(bad) error = %v, want lexicon error", err)
	}
}

func TestNewClassifier(t *testing.T) {
	t.Parallel()

	engine := triage.NewEngine(nil)
	base := cc.Config{ClassifierTimeoutSeconds: 10, ClassifierMaxTries: 3, ClassifierFallback: true}

	primary, opts := newClassifier(base, engine)
	if primary != triage.Classifier(engine) || opts.Fallback != nil || opts.Floor != nil {
		t.Errorf("no classifier url: got (%T, %+v), want engine without fallback or floor", primary, opts)
	}
	if opts.ClassifyTimeout != 10*time.Second {
		t.Errorf("classify timeout = %v, want 10s", opts.ClassifyTimeout)
	}

	withURL := base
	withURL.ClassifierURL = "https://classify.example/v1/assess"
	primary, opts = newClassifier(withURL, engine)
	if _, ok := primary.(*remote.Client); !ok {
		t.Errorf("primary = %T, want *remote.Client", primary)
	}
	if opts.Fallback != engine || opts.Floor != engine {
		t.Error("fallback and floor should be the local engine when fallback is enabled")
	}

	withURL.ClassifierFallback = false
	_, opts = newClassifier(withURL, engine)
	if opts.Fallback != nil {
		t.Error("fallback should be nil when disabled")
	}
	if opts.Floor != engine {
		t.Error("a remote classifier should stay floored by the local engine when fallback is disabled")
	}
}

func TestNewApp(t *testing.T) {
	t.Parallel()

	// the remote classifier under-triages everything
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"urgency":"low","confidence":0.4,"recommendedAction":"Rest at home","nextSteps":[]}`))
	}))
	defer srv.Close()

	c := cc.Config{
		ClassifierURL:            srv.URL,
		ClassifierTimeoutSeconds: 5,
		ClassifierMaxTries:       1,
		SessionListLimit:         20,
	}
	reg := prometheus.NewRegistry()
	a, err := newApp(context.Background(), c, log.Nop(), reg)
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	defer a.close()

	r := chi.NewRouter()
	a.api.RegisterRoutes(r)

	body := `{"symptoms":["chest pain"],"duration":"10 minutes","severity":"mild","patientId":"p-1"}`
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/triage", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if src := rec.Header().Get("X-Triage-Source"); src != string(triage.SourceFallback) {
		t.Errorf("source = %q, want fallback after flooring", src)
	}
	var got triage.Assessment
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Urgency != triage.UrgencyEmergency || got.Confidence < 0.9 {
		t.Errorf("assessment = %s@%v, want emergency >= 0.9", got.Urgency, got.Confidence)
	}
	if n := testutil.CollectAndCount(reg, "careline_classifier_fallbacks_total"); n != 1 {
		t.Errorf("fallback series = %d, want 1", n)
	}
}

func TestNewApp_BadLexicon(t *testing.T) {
	t.Parallel()

	c := cc.Config{LexiconPath: filepath.Join(t.TempDir(), "missing.yaml")}
	if _, err := newApp(context.Background(), c, log.Nop(), prometheus.NewRegistry()); err == nil {
		t.Error("expected error for missing lexicon file")
	}
}

func TestNewDirectory(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	d := newDirectory(cc.Config{}, log.Nop(), reg)

	list, err := d.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != len(mustList(t, providers.Default())) {
		t.Errorf("got %d providers, want built-in listing", len(list))
	}
	if n := testutil.CollectAndCount(reg, "careline_provider_lookups_total"); n != 1 {
		t.Errorf("lookup series = %d, want 1", n)
	}
}

func mustList(t *testing.T, d providers.Directory) []providers.Provider {
	t.Helper()
	list, err := d.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	return list
}
