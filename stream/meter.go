package stream

import (
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/rotblauer/trailhud/common"
)

func init() {
	// Meters are no-ops without this global setting.
	metrics.Enabled = true
}

// Meter counts samples and periodically logs the rate.
// Registered meters are also visible to the metrics endpoint.
type Meter struct {
	name    string
	started time.Time
	ticker  *time.Ticker
	done    chan struct{}
	once    sync.Once

	mu   sync.Mutex
	last time.Time

	count metrics.Counter
	rate  metrics.Meter
	drops metrics.Counter
}

// NewMeter registers <name>/count, <name>/rate and <name>/drops in reg
// (the default registry if nil). If interval > 0 the rate is logged
// every interval until Stop.
func NewMeter(reg metrics.Registry, name string, interval time.Duration) *Meter {
	if reg == nil {
		reg = metrics.DefaultRegistry
	}
	m := &Meter{
		name:    name,
		started: time.Now(),
		done:    make(chan struct{}),
		count:   metrics.GetOrRegisterCounter(name+"/count", reg),
		rate:    metrics.GetOrRegisterMeter(name+"/rate", reg),
		drops:   metrics.GetOrRegisterCounter(name+"/drops", reg),
	}
	if interval > 0 {
		m.ticker = time.NewTicker(interval)
		go m.run()
	}
	return m
}

// Mark records one sample taken at label.
func (m *Meter) Mark(label time.Time) {
	m.mu.Lock()
	m.last = label
	m.mu.Unlock()
	m.count.Inc(1)
	m.rate.Mark(1)
}

// Drop records a sample that was skipped or lost.
func (m *Meter) Drop() {
	m.drops.Inc(1)
}

func (m *Meter) Count() int64 {
	return m.count.Snapshot().Count()
}

func (m *Meter) Drops() int64 {
	return m.drops.Snapshot().Count()
}

func (m *Meter) run() {
	for {
		select {
		case <-m.done:
			return
		case <-m.ticker.C:
			m.log()
		}
	}
}

func (m *Meter) log() {
	snap := m.rate.Snapshot()
	m.mu.Lock()
	last := m.last
	m.mu.Unlock()
	slog.Info("Sampled", "meter", m.name,
		"n", humanize.Comma(snap.Count()),
		"drops", humanize.Comma(m.Drops()),
		"last", last.Format(time.DateTime),
		"hz", common.DecimalToFixed(snap.Rate1(), 1),
		"running", time.Since(m.started).Round(time.Second))
}

func (m *Meter) Stop() {
	if m == nil {
		return
	}
	m.once.Do(func() {
		close(m.done)
		if m.ticker != nil {
			m.ticker.Stop()
		}
		m.rate.Stop()
	})
}
