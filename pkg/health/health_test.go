package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/timagonch/bowtie-diagram/pkg/risk"
)

func healthy(ctx context.Context) Check   { return Check{Status: StatusHealthy} }
func degraded(ctx context.Context) Check  { return Check{Status: StatusDegraded} }
func unhealthy(ctx context.Context) Check { return Check{Status: StatusUnhealthy} }

func TestChecker_Separation(t *testing.T) {
	c := NewChecker(0)

	calls := map[string]int{}
	c.Register("status", func(ctx context.Context) Check { calls["status"]++; return healthy(ctx) })
	c.RegisterReadiness("ready", func(ctx context.Context) Check { calls["ready"]++; return healthy(ctx) })
	c.RegisterLiveness("live", func(ctx context.Context) Check { calls["live"]++; return healthy(ctx) })

	ctx := context.Background()
	if resp := c.Check(ctx); len(resp.Checks) != 1 || resp.Checks["status"].Name != "status" {
		t.Errorf("Check() = %+v, want only the status check named after its key", resp.Checks)
	}
	c.CheckReadiness(ctx)
	c.CheckLiveness(ctx)

	for _, name := range []string{"status", "ready", "live"} {
		if calls[name] != 1 {
			t.Errorf("%s called %d times, want 1", name, calls[name])
		}
	}
}

func TestChecker_WorstStatusWins(t *testing.T) {
	tests := []struct {
		name   string
		checks []CheckFunc
		want   Status
	}{
		{"empty", nil, StatusHealthy},
		{"all healthy", []CheckFunc{healthy, healthy}, StatusHealthy},
		{"one degraded", []CheckFunc{healthy, degraded}, StatusDegraded},
		{"unhealthy beats degraded", []CheckFunc{degraded, unhealthy, healthy}, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker(time.Second)
			for i, fn := range tt.checks {
				c.Register(string(rune('a'+i)), fn)
			}
			if got := c.Check(context.Background()).Status; got != tt.want {
				t.Errorf("status = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestChecker_Timeout(t *testing.T) {
	c := NewChecker(10 * time.Millisecond)
	c.Register("slow", func(ctx context.Context) Check {
		<-ctx.Done()
		return Check{Status: StatusHealthy}
	})

	resp := c.Check(context.Background())
	if resp.Status != StatusUnhealthy {
		t.Fatalf("status = %s, want unhealthy", resp.Status)
	}
	if msg := resp.Checks["slow"].Message; msg != "check timed out" {
		t.Errorf("message = %q", msg)
	}
}

func TestStoreCheck(t *testing.T) {
	ok := StoreCheck("file", func(ctx context.Context) error { return nil })(context.Background())
	if ok.Status != StatusHealthy || ok.Details["backend"] != "file" {
		t.Errorf("reachable store: %+v", ok)
	}

	down := StoreCheck("s3", func(ctx context.Context) error { return errors.New("no such bucket") })(context.Background())
	if down.Status != StatusUnhealthy || down.Message != "no such bucket" {
		t.Errorf("unreachable store: %+v", down)
	}
}

func TestWorkspaceCheck(t *testing.T) {
	check := WorkspaceCheck(func() int { return 3 })(context.Background())
	if check.Details["open_diagrams"] != 3 {
		t.Errorf("details = %v", check.Details)
	}
}

func TestEngineCheck(t *testing.T) {
	for _, shared := range []bool{true, false} {
		engine := risk.NewEngine(risk.WithSharedCenterCredit(shared))
		check := EngineCheck(engine)(context.Background())
		if check.Status != StatusHealthy {
			t.Errorf("shared=%v: %s: %s", shared, check.Status, check.Message)
		}
	}
}

func TestMemoryCheck(t *testing.T) {
	tests := []struct {
		alloc, sys uint64
		want       Status
	}{
		{50, 100, StatusHealthy},
		{95, 100, StatusDegraded},
		{0, 0, StatusHealthy},
	}
	for _, tt := range tests {
		got := MemoryCheck(func() (uint64, uint64) { return tt.alloc, tt.sys })(context.Background())
		if got.Status != tt.want {
			t.Errorf("alloc=%d sys=%d: status %s, want %s", tt.alloc, tt.sys, got.Status, tt.want)
		}
	}

	alloc, sys := RuntimeMemory()
	if alloc == 0 || sys == 0 {
		t.Errorf("RuntimeMemory() = %d, %d", alloc, sys)
	}
}

func TestHandlers(t *testing.T) {
	c := NewChecker(0)
	c.RegisterReadiness("store", unhealthy)
	c.RegisterLiveness("engine", healthy)

	rr := httptest.NewRecorder()
	c.ReadinessHandler()(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("readiness code = %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	c.LivenessHandler()(rr, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("liveness code = %d", rr.Code)
	}
	var resp Response
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Checks["engine"].Status != StatusHealthy {
		t.Errorf("engine check = %+v", resp.Checks["engine"])
	}

	if HTTPStatus(StatusDegraded) != http.StatusOK || HTTPStatus(StatusUnhealthy) != http.StatusServiceUnavailable {
		t.Error("HTTPStatus mapping")
	}
}
