package pool

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"provkit/internal/connection"
	"provkit/internal/errors"
	"provkit/pkg/plan"
	"provkit/pkg/remote"
)

// Defaults applied when a tuning value is absent from the plan.
const (
	DefaultMaxSize             = 10
	DefaultIdleTimeout         = 300 * time.Second
	DefaultHealthCheckInterval = 60 * time.Second
)

// Options tunes a pool instance.
type Options struct {
	MaxSize             int
	IdleTimeout         time.Duration
	HealthCheckInterval time.Duration
}

// DefaultOptions returns the documented 10 / 300s / 60s tuning.
func DefaultOptions() Options {
	return Options{
		MaxSize:             DefaultMaxSize,
		IdleTimeout:         DefaultIdleTimeout,
		HealthCheckInterval: DefaultHealthCheckInterval,
	}
}

// OptionsFromSettings maps plan pool settings onto Options, falling back to
// the defaults for zero or negative values.
func OptionsFromSettings(s plan.PoolSettings) Options {
	opts := DefaultOptions()
	if s.MaxSize > 0 {
		opts.MaxSize = s.MaxSize
	}
	if s.IdleTimeoutSeconds > 0 {
		opts.IdleTimeout = time.Duration(s.IdleTimeoutSeconds) * time.Second
	}
	if s.HealthCheckIntervalSeconds > 0 {
		opts.HealthCheckInterval = time.Duration(s.HealthCheckIntervalSeconds) * time.Second
	}
	return opts
}

// Dialer constructs a Connection for a config. Swappable for tests.
type Dialer func(cfg *plan.ConnectionConfig) (remote.Connection, error)

// Pool is a shared registry of live connections keyed by (type, host, port,
// username), reused across flows to amortize setup cost. It must be
// constructed explicitly and shut down when the caller is done; there is no
// global instance.
type Pool struct {
	mu           sync.Mutex
	entries      map[connection.Key]*entry
	opts         Options
	dialer       Dialer
	shuttingDown bool
	stop         chan struct{}
	wg           sync.WaitGroup
}

// New builds a pool and starts its background scheduler: one goroutine
// running the health-check and idle-eviction sweeps on independent tickers.
func New(opts Options) *Pool {
	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultMaxSize
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = DefaultIdleTimeout
	}
	if opts.HealthCheckInterval <= 0 {
		opts.HealthCheckInterval = DefaultHealthCheckInterval
	}

	p := &Pool{
		entries: make(map[connection.Key]*entry),
		opts:    opts,
		dialer:  connection.New,
		stop:    make(chan struct{}),
	}

	p.wg.Add(1)
	go p.runScheduler()
	return p
}

// SetDialer replaces the connection constructor. Call before the first Get.
func (p *Pool) SetDialer(d Dialer) {
	p.mu.Lock()
	p.dialer = d
	p.mu.Unlock()
}

// Get returns the pooled connection for the config's key, constructing and
// connecting one if absent. The entry's reference count is incremented; the
// caller must pair every successful Get with a Release. An unhealthy entry
// is reconnected before it is handed out, and that reconnect failure
// propagates to the caller.
func (p *Pool) Get(ctx context.Context, cfg *plan.ConnectionConfig) (remote.Connection, error) {
	key := connection.KeyFor(cfg)

	p.mu.Lock()
	if p.shuttingDown {
		p.mu.Unlock()
		return nil, errors.NewShutdownError(
			"Connection pool is shutting down",
			"no new connections are handed out during shutdown",
			"Retry after the pool has been recreated",
			fmt.Errorf("pool shutdown in progress, cannot acquire %s", key),
		)
	}

	if e, ok := p.entries[key]; ok {
		e.refs.Add(1)
		e.touch()
		p.mu.Unlock()
		return p.checkout(ctx, key, e)
	}

	// New entry. Make room first; a full registry with nothing evictable
	// is a capacity error, never a silent retry.
	if len(p.entries) >= p.opts.MaxSize {
		p.evictIdleLocked(time.Now())
	}
	if len(p.entries) >= p.opts.MaxSize {
		p.mu.Unlock()
		return nil, errors.NewCapacityError(
			"Connection pool is full",
			fmt.Sprintf("all %d entries are in use or not yet idle", p.opts.MaxSize),
			"Increase pool.maxSize in the plan or release connections sooner",
			fmt.Errorf("pool at capacity (%d), cannot register %s", p.opts.MaxSize, key),
		)
	}

	conn, err := p.dialer(cfg)
	if err != nil {
		p.mu.Unlock()
		return nil, err
	}

	e := newEntry(conn)
	e.refs.Store(1)
	e.touch()
	// Hold the entry lock across the registry insert so that concurrent
	// getters for the same key block here instead of dialing a second
	// time.
	e.mu.Lock()
	p.entries[key] = e
	p.mu.Unlock()

	if err := conn.Connect(ctx); err != nil {
		e.closed = true
		e.mu.Unlock()
		p.remove(key, e)
		return nil, err
	}
	e.mu.Unlock()

	slog.Info("Connection registered in pool", "key", key.String())
	return &PooledConnection{pool: p, key: key, entry: e}, nil
}

// checkout finishes an acquisition of an existing entry: waits out any
// in-flight connect or reconnect, then revives the entry if it went
// unhealthy. Failures here decrement the count taken in Get.
func (p *Pool) checkout(ctx context.Context, key connection.Key, e *entry) (remote.Connection, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		e.refs.Add(-1)
		return nil, errors.NewConnectivityError(
			fmt.Sprintf("Connection %s is gone", key.String()),
			"the pooled entry was closed while being acquired",
			"Retry the acquisition",
			fmt.Errorf("pooled connection %s closed during acquisition", key),
		)
	}
	if !e.conn.IsConnected() {
		if err := e.conn.Connect(ctx); err != nil {
			e.mu.Unlock()
			e.refs.Add(-1)
			return nil, err
		}
		slog.Info("Reconnected pooled connection on acquisition", "key", key.String())
	}
	e.mu.Unlock()
	return &PooledConnection{pool: p, key: key, entry: e}, nil
}

// Release decrements the entry's reference count. When the count reaches
// zero and the entry is already past the idle timeout it is closed and
// removed immediately rather than waiting for the next sweep.
func (p *Pool) Release(cfg *plan.ConnectionConfig) {
	key := connection.KeyFor(cfg)

	p.mu.Lock()
	e, ok := p.entries[key]
	p.mu.Unlock()
	if !ok {
		return
	}

	for {
		refs := e.refs.Load()
		if refs <= 0 {
			slog.Warn("Release on connection with zero references", "key", key.String())
			return
		}
		if e.refs.CompareAndSwap(refs, refs-1) {
			if refs-1 == 0 && e.idleSince(time.Now()) >= p.opts.IdleTimeout {
				p.closeIfUnreferenced(key, e)
			}
			return
		}
	}
}

// closeIfUnreferenced retires a stale entry, re-checking the reference
// count under the registry lock. A Get takes its reference while holding
// p.mu, so an entry whose count was bumped back up between the caller's
// zero transition and this check is left alone.
func (p *Pool) closeIfUnreferenced(key connection.Key, e *entry) {
	p.mu.Lock()
	if cur, ok := p.entries[key]; !ok || cur != e || e.refs.Load() > 0 {
		p.mu.Unlock()
		return
	}
	delete(p.entries, key)
	p.mu.Unlock()

	if err := e.close(); err != nil {
		slog.Warn("Close failed on idle eviction", "key", key.String(), "error", err)
	} else {
		slog.Info("Idle connection evicted", "key", key.String())
	}
}

// CloseConnection force-removes and closes the entry for the config's key
// regardless of its reference count.
func (p *Pool) CloseConnection(cfg *plan.ConnectionConfig) {
	key := connection.KeyFor(cfg)
	p.mu.Lock()
	e, ok := p.entries[key]
	if ok {
		delete(p.entries, key)
	}
	p.mu.Unlock()
	if ok {
		e.close()
		slog.Info("Connection force-closed", "key", key.String())
	}
}

// Stats is a point-in-time view of the registry.
type Stats struct {
	Total   int
	Active  int
	Idle    int
	Healthy int
}

// GetStats snapshots the registry counters.
func (p *Pool) GetStats() Stats {
	p.mu.Lock()
	snapshot := make([]*entry, 0, len(p.entries))
	for _, e := range p.entries {
		snapshot = append(snapshot, e)
	}
	p.mu.Unlock()

	stats := Stats{Total: len(snapshot)}
	for _, e := range snapshot {
		if e.refs.Load() > 0 {
			stats.Active++
		} else {
			stats.Idle++
		}
		if e.conn.IsConnected() {
			stats.Healthy++
		}
	}
	return stats
}

// Shutdown stops the background scheduler, then drains the registry:
// zero-ref entries are closed in passes with a short sleep in between until
// the registry is empty or the timeout elapses, after which every remaining
// entry is force-closed. The registry is always empty on return.
func (p *Pool) Shutdown(timeout time.Duration) {
	p.mu.Lock()
	if p.shuttingDown {
		p.mu.Unlock()
		return
	}
	p.shuttingDown = true
	p.mu.Unlock()

	close(p.stop)
	p.wg.Wait()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		p.closeZeroRefEntries()

		p.mu.Lock()
		remaining := len(p.entries)
		p.mu.Unlock()
		if remaining == 0 {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}

	// Timeout: force-close whatever is left, ref-counts notwithstanding.
	p.mu.Lock()
	leftovers := p.entries
	p.entries = make(map[connection.Key]*entry)
	p.mu.Unlock()
	for key, e := range leftovers {
		slog.Warn("Force-closing connection at shutdown", "key", key.String(), "refs", e.refs.Load())
		e.close()
	}
}

func (p *Pool) closeZeroRefEntries() {
	p.mu.Lock()
	victims := make(map[connection.Key]*entry)
	for key, e := range p.entries {
		if e.refs.Load() == 0 {
			victims[key] = e
			delete(p.entries, key)
		}
	}
	p.mu.Unlock()

	for key, e := range victims {
		if err := e.close(); err != nil {
			slog.Warn("Close failed during shutdown drain", "key", key.String(), "error", err)
		}
	}
}

// remove deletes the entry from the registry if it is still the registered
// one for the key.
func (p *Pool) remove(key connection.Key, e *entry) {
	p.mu.Lock()
	if cur, ok := p.entries[key]; ok && cur == e {
		delete(p.entries, key)
	}
	p.mu.Unlock()
}

// evictIdleLocked closes zero-ref entries past the idle timeout. Caller
// holds p.mu.
func (p *Pool) evictIdleLocked(now time.Time) {
	for key, e := range p.entries {
		if e.refs.Load() == 0 && e.idleSince(now) >= p.opts.IdleTimeout {
			delete(p.entries, key)
			// Closing outside the registry lock would be nicer, but
			// eviction only runs on cold entries so the close is cheap.
			if err := e.close(); err != nil {
				slog.Warn("Close failed on capacity eviction", "key", key.String(), "error", err)
			}
		}
	}
}

// runScheduler is the pool's single background goroutine: two independent
// periodic sweeps, health-check and idle-eviction.
func (p *Pool) runScheduler() {
	defer p.wg.Done()

	health := time.NewTicker(p.opts.HealthCheckInterval)
	defer health.Stop()
	evict := time.NewTicker(p.opts.IdleTimeout)
	defer evict.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-health.C:
			p.healthSweep()
		case <-evict.C:
			p.evictSweep()
		}
	}
}

// healthSweep probes every entry and reconnects unhealthy in-use ones.
// Failures are logged, never propagated: the sweep must not take the
// scheduler down.
func (p *Pool) healthSweep() {
	p.mu.Lock()
	snapshot := make(map[connection.Key]*entry, len(p.entries))
	for key, e := range p.entries {
		snapshot[key] = e
	}
	p.mu.Unlock()

	for key, e := range snapshot {
		if e.conn.IsConnected() || e.refs.Load() == 0 {
			continue
		}
		// Serialize the reconnect against in-flight executes on the
		// same entry so a command is never sent mid-teardown.
		e.mu.Lock()
		if e.closed {
			e.mu.Unlock()
			continue
		}
		err := e.conn.Connect(context.Background())
		e.mu.Unlock()
		if err != nil {
			slog.Warn("Health sweep reconnect failed", "key", key.String(), "error", err)
		} else {
			slog.Info("Health sweep reconnected connection", "key", key.String())
		}
	}
}

func (p *Pool) evictSweep() {
	now := time.Now()
	p.mu.Lock()
	victims := make(map[connection.Key]*entry)
	for key, e := range p.entries {
		if e.refs.Load() == 0 && e.idleSince(now) >= p.opts.IdleTimeout {
			victims[key] = e
			delete(p.entries, key)
		}
	}
	p.mu.Unlock()

	for key, e := range victims {
		if err := e.close(); err != nil {
			slog.Warn("Close failed on idle eviction", "key", key.String(), "error", err)
		} else {
			slog.Info("Idle connection evicted", "key", key.String())
		}
	}
}
