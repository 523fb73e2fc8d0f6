package pool

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"provkit/internal/connection"
	"provkit/pkg/remote"
)

// entry is the pool-internal wrapper around one live connection: an atomic
// reference count and last-access timestamp, plus a mutex that serializes
// execute, reconnect and close on the entry.
type entry struct {
	mu         sync.Mutex
	conn       remote.Connection
	refs       atomic.Int32
	lastAccess atomic.Int64
	closed     bool
}

func newEntry(conn remote.Connection) *entry {
	return &entry{conn: conn}
}

func (e *entry) touch() {
	e.lastAccess.Store(time.Now().UnixNano())
}

func (e *entry) idleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, e.lastAccess.Load()))
}

func (e *entry) close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	return e.conn.Disconnect()
}

// PooledConnection is the reference-counted handle the pool hands out. It
// satisfies the Connection contract by delegating under the entry mutex, so
// a caller's execute can never interleave with a sweep-triggered reconnect
// or a close on the same entry.
type PooledConnection struct {
	pool  *Pool
	key   connection.Key
	entry *entry
}

// Key identifies the underlying pool entry.
func (pc *PooledConnection) Key() connection.Key {
	return pc.key
}

func (pc *PooledConnection) Connect(ctx context.Context) error {
	pc.entry.mu.Lock()
	defer pc.entry.mu.Unlock()
	pc.entry.touch()
	return pc.entry.conn.Connect(ctx)
}

func (pc *PooledConnection) Execute(ctx context.Context, command string, timeout time.Duration) *remote.ExecResult {
	pc.entry.mu.Lock()
	defer pc.entry.mu.Unlock()
	pc.entry.touch()
	return pc.entry.conn.Execute(ctx, command, timeout)
}

func (pc *PooledConnection) Upload(ctx context.Context, localPath, remotePath string) *remote.TransferResult {
	pc.entry.mu.Lock()
	defer pc.entry.mu.Unlock()
	pc.entry.touch()
	return pc.entry.conn.Upload(ctx, localPath, remotePath)
}

func (pc *PooledConnection) Download(ctx context.Context, remotePath, localPath string) *remote.TransferResult {
	pc.entry.mu.Lock()
	defer pc.entry.mu.Unlock()
	pc.entry.touch()
	return pc.entry.conn.Download(ctx, remotePath, localPath)
}

// Disconnect is a no-op on a pooled handle; the pool owns the underlying
// connection's lifetime. Use Release or CloseConnection on the pool.
func (pc *PooledConnection) Disconnect() error {
	return nil
}

func (pc *PooledConnection) IsConnected() bool {
	return pc.entry.conn.IsConnected()
}
