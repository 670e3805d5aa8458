package core

import (
	"context"
	"sync"
	"testing"
)

type capturedCounter struct {
	name  string
	value int64
	tags  map[string]string
}

type capturedHistogram struct {
	name  string
	value float64
	tags  map[string]string
}

type captureMetricsRecorder struct {
	mu         sync.Mutex
	counters   []capturedCounter
	histograms []capturedHistogram
}

func (m *captureMetricsRecorder) IncCounter(_ context.Context, name string, value int64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters = append(m.counters, capturedCounter{name: name, value: value, tags: cloneTags(tags)})
}

func (m *captureMetricsRecorder) ObserveHistogram(_ context.Context, name string, value float64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histograms = append(m.histograms, capturedHistogram{name: name, value: value, tags: cloneTags(tags)})
}

type capturedLog struct {
	level  string
	msg    string
	fields map[string]any
}

type captureLogger struct {
	mu       *sync.Mutex
	records  *[]capturedLog
	defaults map[string]any
}

func newCaptureLogger() *captureLogger {
	records := []capturedLog{}
	return &captureLogger{mu: &sync.Mutex{}, records: &records, defaults: map[string]any{}}
}

func (l *captureLogger) WithFields(fields map[string]any) Logger {
	merged := cloneFields(l.defaults)
	for key, value := range fields {
		merged[key] = value
	}
	return &captureLogger{mu: l.mu, records: l.records, defaults: merged}
}

func (l *captureLogger) Trace(msg string, args ...any) { l.record("trace", msg, args...) }
func (l *captureLogger) Debug(msg string, args ...any) { l.record("debug", msg, args...) }
func (l *captureLogger) Info(msg string, args ...any)  { l.record("info", msg, args...) }
func (l *captureLogger) Warn(msg string, args ...any)  { l.record("warn", msg, args...) }
func (l *captureLogger) Error(msg string, args ...any) { l.record("error", msg, args...) }
func (l *captureLogger) Fatal(msg string, args ...any) { l.record("fatal", msg, args...) }

func (l *captureLogger) WithContext(context.Context) Logger {
	return &captureLogger{mu: l.mu, records: l.records, defaults: cloneFields(l.defaults)}
}

func (l *captureLogger) record(level string, msg string, args ...any) {
	fields := cloneFields(l.defaults)
	for index := 0; index+1 < len(args); index += 2 {
		key, ok := args[index].(string)
		if !ok {
			continue
		}
		fields[key] = args[index+1]
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.records = append(*l.records, capturedLog{level: level, msg: msg, fields: fields})
}

func (l *captureLogger) snapshot() []capturedLog {
	l.mu.Lock()
	defer l.mu.Unlock()
	items := *l.records
	out := make([]capturedLog, len(items))
	copy(out, items)
	return out
}

func hasCounter(counters []capturedCounter, name string, status string) bool {
	for _, counter := range counters {
		if counter.name == name && counter.tags["status"] == status {
			return true
		}
	}
	return false
}

func hasHistogram(histograms []capturedHistogram, name string, status string) bool {
	for _, histogram := range histograms {
		if histogram.name == name && histogram.tags["status"] == status {
			return true
		}
	}
	return false
}

func hasLog(logs []capturedLog, level string, msg string, eventType string) bool {
	for _, entry := range logs {
		if entry.level == level && entry.msg == msg && entry.fields["event_type"] == eventType {
			return true
		}
	}
	return false
}

func TestServiceObservability_RegisterApplicationSuccess(t *testing.T) {
	metrics := &captureMetricsRecorder{}
	logger := newCaptureLogger()
	svc, _ := newTestService(t, DefaultConfig(),
		WithMetricsRecorder(metrics),
		WithLoggerProvider(stubLoggerProvider{logger: logger}),
		WithLogger(logger),
	)

	registerApp(t, svc, RegisterApplicationRequest{Name: "observed"})

	if !hasCounter(metrics.counters, "oauth.register_application.total", "success") {
		t.Fatalf("expected oauth.register_application.total success counter")
	}
	if !hasHistogram(metrics.histograms, "oauth.register_application.duration_ms", "success") {
		t.Fatalf("expected oauth.register_application.duration_ms histogram")
	}
	if !hasLog(logger.snapshot(), "info", "register_application succeeded", "register_application") {
		t.Fatalf("expected register_application succeeded structured log")
	}
}

func TestServiceObservability_ExchangeFailureTagsClient(t *testing.T) {
	metrics := &captureMetricsRecorder{}
	logger := newCaptureLogger()
	svc, _ := newTestService(t, DefaultConfig(),
		WithMetricsRecorder(metrics),
		WithLoggerProvider(stubLoggerProvider{logger: logger}),
		WithLogger(logger),
	)
	app := registerApp(t, svc, RegisterApplicationRequest{Name: "observed"})

	_, err := svc.ExchangeGrant(context.Background(), ExchangeGrantRequest{
		ClientID:    app.ClientID,
		Code:        "missing",
		RedirectURI: "http://localhost/callback",
	})
	if !IsInvalidGrant(err) {
		t.Fatalf("expected invalid grant, got %v", err)
	}
	found := false
	for _, counter := range metrics.counters {
		if counter.name == "oauth.exchange_grant.total" && counter.tags["status"] == "failure" &&
			counter.tags["client_id"] == app.ClientID {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected exchange failure counter tagged with client id")
	}
	if !hasLog(logger.snapshot(), "error", "exchange_grant failed", "exchange_grant") {
		t.Fatalf("expected exchange_grant failure log")
	}
}

func TestFlattenFields_SortedPairs(t *testing.T) {
	args := flattenFields(map[string]any{"b": 2, "a": 1})
	if len(args) != 4 || args[0] != "a" || args[2] != "b" {
		t.Fatalf("unexpected flattened fields %#v", args)
	}
}

func TestRedactFields_MasksCredentials(t *testing.T) {
	fields := map[string]any{
		"client_id":     "client-1",
		"refresh_token": "r-123",
		"Code":          "abc",
		"client_secret": "",
	}
	redacted := redactFields(fields)
	if redacted["client_id"] != "client-1" {
		t.Fatalf("expected client id to be kept, got %v", redacted["client_id"])
	}
	if redacted["refresh_token"] != redactedValue || redacted["Code"] != redactedValue {
		t.Fatalf("expected credentials to be masked, got %#v", redacted)
	}
	if redacted["client_secret"] != "" {
		t.Fatalf("expected empty secret to stay empty, got %v", redacted["client_secret"])
	}
	if fields["refresh_token"] != "r-123" {
		t.Fatalf("expected input fields to be left untouched")
	}
}
