// Located in pkg/remote/remote.go
package remote

import (
	"context"
	"time"
)

// ExecResult is the outcome of one remote command execution. A non-zero
// exit code, a launch failure, or a timeout all surface here as a failed
// result rather than an error.
type ExecResult struct {
	Success  bool
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// TransferResult is the outcome of one file upload or download.
type TransferResult struct {
	Success          bool
	BytesTransferred int64
	Stderr           string
}

// Connection is the uniform contract over all remote-execution channels.
// Each call spawns at most one external client process; no implicit state
// persists between calls beyond what Connect/Disconnect bracket.
type Connection interface {
	// Connect probes the channel and marks the connection live.
	Connect(ctx context.Context) error

	// Execute runs a single command on the remote side, bounded by the
	// caller timeout. On timeout the spawned process is forcibly
	// terminated and a failed result returned.
	Execute(ctx context.Context, command string, timeout time.Duration) *ExecResult

	// Upload copies a local file to the remote path.
	Upload(ctx context.Context, localPath, remotePath string) *TransferResult

	// Download copies a remote file to the local path.
	Download(ctx context.Context, remotePath, localPath string) *TransferResult

	Disconnect() error
	IsConnected() bool
}
