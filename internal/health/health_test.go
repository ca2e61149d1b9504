package health

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// mockPinger implements Pinger for tests.
type mockPinger struct {
	mu      sync.Mutex
	pingErr error
	calls   int
}

func (m *mockPinger) Ping(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.pingErr
}

func (m *mockPinger) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockPolicyChecker implements PolicyChecker for tests.
type mockPolicyChecker struct {
	healthErr error
}

func (m *mockPolicyChecker) HealthCheck(context.Context) error {
	return m.healthErr
}

func servingStatus(t *testing.T, c *Checker, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := c.Server().Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		t.Fatalf("Check(%q): %v", service, err)
	}
	return resp.GetStatus()
}

func TestChecker_Probe(t *testing.T) {
	testCases := []struct {
		name   string
		pinger Pinger
		policy PolicyChecker
		want   healthpb.HealthCheckResponse_ServingStatus
	}{
		{"nil checks", nil, nil, healthpb.HealthCheckResponse_SERVING},
		{"pinger success", &mockPinger{}, nil, healthpb.HealthCheckResponse_SERVING},
		{"pinger failure", &mockPinger{pingErr: errors.New("connection refused")}, nil, healthpb.HealthCheckResponse_NOT_SERVING},
		{"policy success", nil, &mockPolicyChecker{}, healthpb.HealthCheckResponse_SERVING},
		{"policy failure", nil, &mockPolicyChecker{healthErr: errors.New("rego compile failed")}, healthpb.HealthCheckResponse_NOT_SERVING},
		{"both, policy fails", &mockPinger{}, &mockPolicyChecker{healthErr: errors.New("policy error")}, healthpb.HealthCheckResponse_NOT_SERVING},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := NewChecker(tc.pinger, tc.policy, time.Minute, nil)
			if got := c.Probe(context.Background()); got != tc.want {
				t.Errorf("Probe = %v, want %v", got, tc.want)
			}
			for _, svc := range []string{"", ServiceName} {
				if got := servingStatus(t, c, svc); got != tc.want {
					t.Errorf("status(%q) = %v, want %v", svc, got, tc.want)
				}
			}
		})
	}
}

func TestChecker_NotServingBeforeFirstProbe(t *testing.T) {
	c := NewChecker(nil, nil, time.Minute, nil)
	if got := servingStatus(t, c, ""); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("status = %v, want NOT_SERVING", got)
	}
}

func TestChecker_RunProbesUntilCancelled(t *testing.T) {
	p := &mockPinger{}
	c := NewChecker(p, nil, 10*time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for p.callCount() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	if p.callCount() < 3 {
		t.Errorf("pinged %d times, want at least 3", p.callCount())
	}
	if got := servingStatus(t, c, ""); got != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("status = %v, want SERVING", got)
	}
}

func TestChecker_ShutdownReportsNotServing(t *testing.T) {
	c := NewChecker(nil, nil, time.Minute, nil)
	c.Probe(context.Background())
	c.Shutdown()
	c.Probe(context.Background())
	if got := servingStatus(t, c, ServiceName); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("status = %v, want NOT_SERVING", got)
	}
}
