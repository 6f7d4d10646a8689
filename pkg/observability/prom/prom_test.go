package prom

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/matzehuels/pathminer/pkg/observability"
)

func TestSolveMetrics(t *testing.T) {
	ctx := context.Background()
	m := New("test")

	m.OnSolveComplete(ctx, "greedy", 3, 12, time.Millisecond, nil)
	m.OnSolveComplete(ctx, "greedy", 0, 0, time.Millisecond, errors.New("boom"))
	m.OnSolveCancelled(ctx, "aco")
	m.OnSolvePanic(ctx, "optimal", "boom")

	if got := testutil.ToFloat64(m.SolveTotal.WithLabelValues("greedy", "ok")); got != 1 {
		t.Errorf("ok solves = %v", got)
	}
	if got := testutil.ToFloat64(m.SolveTotal.WithLabelValues("greedy", "error")); got != 1 {
		t.Errorf("failed solves = %v", got)
	}
	if got := testutil.ToFloat64(m.SolveFitness.WithLabelValues("greedy")); got != 12 {
		t.Errorf("best fitness = %v, failed solves must not overwrite it", got)
	}
	if got := testutil.ToFloat64(m.SolveCancelled.WithLabelValues("aco")); got != 1 {
		t.Errorf("cancelled = %v", got)
	}
	if got := testutil.ToFloat64(m.SolvePanics.WithLabelValues("optimal")); got != 1 {
		t.Errorf("panics = %v", got)
	}
}

func TestCacheAndHTTPMetrics(t *testing.T) {
	ctx := context.Background()
	m := New("test")

	m.OnCacheHit(ctx, "results")
	m.OnCacheMiss(ctx, "results")
	m.OnCacheMiss(ctx, "results")
	m.OnCacheSet(ctx, "results", 512)
	m.OnRequest(ctx, "GET", "/v1/runs/{id}", 404, time.Millisecond)

	if got := testutil.ToFloat64(m.CacheOps.WithLabelValues("results", "miss")); got != 2 {
		t.Errorf("misses = %v", got)
	}
	if got := testutil.ToFloat64(m.CacheBytes); got != 512 {
		t.Errorf("bytes = %v", got)
	}
	if got := testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/v1/runs/{id}", "404")); got != 1 {
		t.Errorf("requests = %v", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New("pathminer")
	m.OnSolveComplete(context.Background(), "optimal", 1, 5, time.Second, nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `pathminer_solves_total{status="ok",strategy="optimal"} 1`) {
		t.Errorf("metrics output missing solve counter:\n%s", body)
	}
}

func TestRegister(t *testing.T) {
	defer observability.Reset()
	m := New("test")
	m.Register()
	if observability.Solve() != observability.SolveHooks(m) {
		t.Error("Register should install solve hooks")
	}
	if observability.Cache() != observability.CacheHooks(m) {
		t.Error("Register should install cache hooks")
	}
}
