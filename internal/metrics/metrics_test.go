package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveEntry(t *testing.T) {
	before := testutil.ToFloat64(entriesTotal.WithLabelValues("accepted"))
	ObserveEntry("accepted")
	ObserveEntry("accepted")
	if got := testutil.ToFloat64(entriesTotal.WithLabelValues("accepted")) - before; got != 2 {
		t.Fatalf("expected 2 accepted entries, got %f", got)
	}
}

func TestObserveRecordsPersistedIgnoresEmpty(t *testing.T) {
	before := testutil.ToFloat64(recordsPersistedTotal.WithLabelValues("test"))
	ObserveRecordsPersisted("test", 0)
	ObserveRecordsPersisted("test", 3)
	if got := testutil.ToFloat64(recordsPersistedTotal.WithLabelValues("test")) - before; got != 3 {
		t.Fatalf("expected 3 persisted records, got %f", got)
	}
}

func TestMiddleware(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/test", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "418"))
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusTeapot {
		t.Fatalf("expected 418, got %d", rec.Code)
	}
	if got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "418")) - before; got != 1 {
		t.Fatalf("expected one recorded request, got %f", got)
	}
}

func TestObserveRateLimitDelay(t *testing.T) {
	ObserveRateLimitDelay("geocode", 50*time.Millisecond)
	if n := testutil.CollectAndCount(rateLimitDelaySeconds); n == 0 {
		t.Fatal("expected rate limit histogram to have samples")
	}
}
