package health

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"market_gateway/models"
)

// switchableProbe fails or succeeds on demand.
type switchableProbe struct {
	mu      sync.Mutex
	failing bool
}

func (p *switchableProbe) set(failing bool) {
	p.mu.Lock()
	p.failing = failing
	p.mu.Unlock()
}

func (p *switchableProbe) fn(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failing {
		return errors.New("probe refused")
	}
	return nil
}

func stateOf(m *Monitor, name string) models.HealthState {
	for _, s := range m.Snapshot() {
		if s.Name == name {
			return s.State
		}
	}
	return ""
}

func TestHealthyProbe(t *testing.T) {
	m := NewMonitor(time.Hour, 1, nil)
	m.Register("crypto", (&switchableProbe{}).fn)

	m.ProbeAll(context.Background())

	if got := stateOf(m, "crypto"); got != models.StateHealthy {
		t.Fatalf("expected healthy, got %s", got)
	}
	if m.Composite() != models.StateHealthy {
		t.Fatalf("expected healthy composite, got %s", m.Composite())
	}
}

func TestDebounceBelowThreshold(t *testing.T) {
	probe := &switchableProbe{failing: true}
	m := NewMonitor(time.Hour, 3, nil)
	m.Register("equity", probe.fn)

	m.ProbeAll(context.Background())
	if got := stateOf(m, "equity"); got != models.StateDegraded {
		t.Fatalf("one failure below threshold must show degraded, got %s", got)
	}

	m.ProbeAll(context.Background())
	if got := stateOf(m, "equity"); got != models.StateDegraded {
		t.Fatalf("two failures below threshold must show degraded, got %s", got)
	}

	m.ProbeAll(context.Background())
	if got := stateOf(m, "equity"); got != models.StateUnreachable {
		t.Fatalf("threshold consecutive failures must flip to unreachable, got %s", got)
	}
}

func TestSuccessRestoresHealthyImmediately(t *testing.T) {
	probe := &switchableProbe{failing: true}
	m := NewMonitor(time.Hour, 1, nil)
	m.Register("workflow", probe.fn)

	m.ProbeAll(context.Background())
	if got := stateOf(m, "workflow"); got != models.StateUnreachable {
		t.Fatalf("expected unreachable at threshold 1, got %s", got)
	}

	probe.set(false)
	m.ProbeAll(context.Background())
	if got := stateOf(m, "workflow"); got != models.StateHealthy {
		t.Fatalf("one success must restore healthy, got %s", got)
	}
}

func TestSuccessResetsFailureStreak(t *testing.T) {
	probe := &switchableProbe{failing: true}
	m := NewMonitor(time.Hour, 2, nil)
	m.Register("metal", probe.fn)

	m.ProbeAll(context.Background()) // 1 fail
	probe.set(false)
	m.ProbeAll(context.Background()) // reset
	probe.set(true)
	m.ProbeAll(context.Background()) // 1 fail again

	if got := stateOf(m, "metal"); got != models.StateDegraded {
		t.Fatalf("non-consecutive failures must not reach unreachable, got %s", got)
	}
}

func TestCompositeIsWorstState(t *testing.T) {
	failing := &switchableProbe{failing: true}
	m := NewMonitor(time.Hour, 1, nil)
	m.Register("equity", (&switchableProbe{}).fn)
	m.Register("notebook", failing.fn)

	m.ProbeAll(context.Background())

	if m.Composite() != models.StateUnreachable {
		t.Fatalf("composite must be worst state, got %s", m.Composite())
	}
}

func TestOnChangeFiresOnCompositeFlip(t *testing.T) {
	probe := &switchableProbe{}
	var mu sync.Mutex
	var changes []models.HealthState
	m := NewMonitor(time.Hour, 1, func(s models.HealthState) {
		mu.Lock()
		changes = append(changes, s)
		mu.Unlock()
	})
	m.Register("crypto", probe.fn)

	m.ProbeAll(context.Background()) // healthy, no change
	probe.set(true)
	m.ProbeAll(context.Background()) // flips to unreachable
	m.ProbeAll(context.Background()) // stays, no new notification
	probe.set(false)
	m.ProbeAll(context.Background()) // back to healthy

	mu.Lock()
	defer mu.Unlock()
	want := []models.HealthState{models.StateUnreachable, models.StateHealthy}
	if len(changes) != len(want) {
		t.Fatalf("expected %d notifications, got %v", len(want), changes)
	}
	for i := range want {
		if changes[i] != want[i] {
			t.Fatalf("notification %d: expected %s, got %s", i, want[i], changes[i])
		}
	}
}
