package health

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"market_gateway/models"
)

// ProbeFunc checks one downstream's liveness. A nil error means healthy.
type ProbeFunc func(ctx context.Context) error

type probe struct {
	name string
	fn   ProbeFunc
}

// Monitor tracks one ServiceHealth record per downstream and probes them on
// a fixed interval, independent of request traffic. The probe loop is the
// only writer; request handlers read snapshots concurrently.
type Monitor struct {
	mu      sync.RWMutex
	records map[string]*models.ServiceHealth
	probes  []probe

	interval  time.Duration
	threshold int
	timeout   time.Duration

	// onChange is called with the new composite state whenever it flips.
	onChange func(models.HealthState)

	isRunning bool
	stopChan  chan struct{}
	lastWorst models.HealthState
}

// NewMonitor creates a monitor. threshold is the number of consecutive probe
// failures before a service is marked unreachable; failures below it show as
// degraded. onChange may be nil.
func NewMonitor(interval time.Duration, threshold int, onChange func(models.HealthState)) *Monitor {
	if threshold < 1 {
		threshold = 1
	}
	return &Monitor{
		records:   make(map[string]*models.ServiceHealth),
		interval:  interval,
		threshold: threshold,
		timeout:   10 * time.Second,
		onChange:  onChange,
		stopChan:  make(chan struct{}),
		lastWorst: models.StateHealthy,
	}
}

// Register adds a downstream to track. Must be called before Start.
func (m *Monitor) Register(name string, fn ProbeFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.probes = append(m.probes, probe{name: name, fn: fn})
	m.records[name] = &models.ServiceHealth{Name: name, State: models.StateHealthy}
}

// Start begins the probe loop. A second Start while running is an error.
func (m *Monitor) Start() error {
	m.mu.Lock()
	if m.isRunning {
		m.mu.Unlock()
		return fmt.Errorf("health monitor already running")
	}
	m.isRunning = true
	m.stopChan = make(chan struct{})
	count := len(m.probes)
	m.mu.Unlock()

	go m.run()

	log.Printf("Health monitor started for %d services (interval: %v)", count, m.interval)
	return nil
}

// Stop halts the probe loop.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.isRunning {
		return
	}
	close(m.stopChan)
	m.isRunning = false
	log.Println("Health monitor stopped")
}

func (m *Monitor) run() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	// Initial probe so the first snapshot is never empty-handed.
	m.ProbeAll(context.Background())

	for {
		select {
		case <-m.stopChan:
			return
		case <-ticker.C:
			m.ProbeAll(context.Background())
		}
	}
}

// ProbeAll runs one probe cycle over every registered downstream and updates
// the records. Exposed so tests can drive cycles without the ticker.
func (m *Monitor) ProbeAll(ctx context.Context) {
	m.mu.RLock()
	probes := make([]probe, len(m.probes))
	copy(probes, m.probes)
	m.mu.RUnlock()

	for _, p := range probes {
		pctx, cancel := context.WithTimeout(ctx, m.timeout)
		start := time.Now()
		err := p.fn(pctx)
		latency := time.Since(start)
		cancel()

		m.record(p.name, err, latency)
	}

	m.mu.Lock()
	worst := m.worstLocked()
	changed := worst != m.lastWorst
	m.lastWorst = worst
	onChange := m.onChange
	m.mu.Unlock()

	if changed {
		log.Printf("Composite health changed to %s", worst)
		if onChange != nil {
			onChange(worst)
		}
	}
}

func (m *Monitor) record(name string, err error, latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := m.records[name]
	rec.LastCheckedAt = time.Now()
	rec.LatencyMillis = latency.Milliseconds()

	if err == nil {
		// One success restores healthy immediately.
		if rec.State != models.StateHealthy {
			log.Printf("Service %s recovered", name)
		}
		rec.State = models.StateHealthy
		rec.ConsecutiveFails = 0
		return
	}

	rec.ConsecutiveFails++
	if rec.ConsecutiveFails >= m.threshold {
		rec.State = models.StateUnreachable
	} else {
		rec.State = models.StateDegraded
	}
	log.Printf("Probe failed for %s (%d consecutive): %v", name, rec.ConsecutiveFails, err)
}

// Snapshot returns a copy of every record in registration order.
func (m *Monitor) Snapshot() []models.ServiceHealth {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.ServiceHealth, 0, len(m.probes))
	for _, p := range m.probes {
		out = append(out, *m.records[p.name])
	}
	return out
}

// Composite returns the worst state among all tracked services.
func (m *Monitor) Composite() models.HealthState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.worstLocked()
}

func (m *Monitor) worstLocked() models.HealthState {
	out := make([]models.ServiceHealth, 0, len(m.probes))
	for _, p := range m.probes {
		out = append(out, *m.records[p.name])
	}
	return models.WorstState(out)
}

// HTTPProbe builds a ProbeFunc for auxiliary services (notebook server,
// workflow engine) reachable only by a liveness GET.
func HTTPProbe(client *http.Client, url string) ProbeFunc {
	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("liveness probe returned status %d", resp.StatusCode)
		}
		return nil
	}
}
