package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordTyping(t *testing.T) {
	before := testutil.ToFloat64(TypingSignals.WithLabelValues("false"))
	RecordTyping(false)
	after := testutil.ToFloat64(TypingSignals.WithLabelValues("false"))
	if after-before != 1 {
		t.Errorf("typing false counter delta = %v, want 1", after-before)
	}
}

func TestObserveRequestOutcome(t *testing.T) {
	ObserveRequest("history", time.Now(), errors.New("boom"))
	if n := testutil.CollectAndCount(RequestDuration); n == 0 {
		t.Error("expected at least one histogram series")
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	ReadMarks.Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "deskchat_read_marks_total") {
		t.Error("metrics output missing deskchat_read_marks_total")
	}
}
