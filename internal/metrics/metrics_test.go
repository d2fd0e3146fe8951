package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewIsSingleton(t *testing.T) {
	if New() != New() {
		t.Fatalf("expected shared metrics instance")
	}
}

func TestObserveGenerationLabelsOutcome(t *testing.T) {
	m := New()
	okBefore := testutil.ToFloat64(m.GenerationRequestsTotal.WithLabelValues("refine", OutcomeOK))
	failBefore := testutil.ToFloat64(m.GenerationRequestsTotal.WithLabelValues("refine", OutcomeGenerationFailed))

	m.ObserveGeneration("refine", 2*time.Second, nil)
	m.ObserveGeneration("refine", time.Second, errors.New("boom"))

	if got := testutil.ToFloat64(m.GenerationRequestsTotal.WithLabelValues("refine", OutcomeOK)); got != okBefore+1 {
		t.Fatalf("ok count = %v, want %v", got, okBefore+1)
	}
	if got := testutil.ToFloat64(m.GenerationRequestsTotal.WithLabelValues("refine", OutcomeGenerationFailed)); got != failBefore+1 {
		t.Fatalf("failed count = %v, want %v", got, failBefore+1)
	}
}

func TestRecordTransitionAndRateLimit(t *testing.T) {
	m := New()
	before := testutil.ToFloat64(m.TransitionsTotal.WithLabelValues("create_post", OutcomeNotFound))
	m.RecordTransition("create_post", OutcomeNotFound)
	if got := testutil.ToFloat64(m.TransitionsTotal.WithLabelValues("create_post", OutcomeNotFound)); got != before+1 {
		t.Fatalf("transition count = %v, want %v", got, before+1)
	}
	rlBefore := testutil.ToFloat64(m.RateLimitRejectionsTotal.WithLabelValues("auth"))
	m.RecordRateLimited("auth")
	if got := testutil.ToFloat64(m.RateLimitRejectionsTotal.WithLabelValues("auth")); got != rlBefore+1 {
		t.Fatalf("ratelimit count = %v, want %v", got, rlBefore+1)
	}
}
