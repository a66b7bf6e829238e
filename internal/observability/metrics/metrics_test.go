package metrics

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("auth_method", "api_key"),
		attribute.String("user_id", "456"),
		attribute.String("outcome", "accepted"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	if attrs[0].Key != "auth_method" && attrs[1].Key != "auth_method" {
		t.Fatalf("expected auth_method to be retained")
	}
	if attrs[0].Key != "outcome" && attrs[1].Key != "outcome" {
		t.Fatalf("expected outcome to be retained")
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordAuthAttempt(context.Background(), "session", "accepted")
	m.RecordTargetValidation(context.Background(), false, "internal")
	m.RecordCSRFRejection(context.Background(), "/api/keys")
	m.RecordAPIKeyEvent(context.Background(), "created")
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{ServiceName: "gatekeeper"}, noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m.RecordAuthAttempt(context.Background(), "api_key", "rejected")
}
