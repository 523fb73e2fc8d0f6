package connection

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"provkit/pkg/remote"
)

// Timeout ceilings shared by the CLI-backed variants. Connectivity probes
// are bounded short; transfers get a longer fixed ceiling.
const (
	connectProbeTimeout = 15 * time.Second
	transferTimeout     = 30 * time.Minute
	defaultExecTimeout  = 120 * time.Second
)

// clientConnection is the shared runtime state of every CLI-backed variant:
// the connected flag and the last-used timestamp, guarded by one mutex.
type clientConnection struct {
	mu        sync.Mutex
	connected bool
	lastUsed  time.Time
}

func (c *clientConnection) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *clientConnection) markConnected(up bool) {
	c.mu.Lock()
	c.connected = up
	c.lastUsed = time.Now()
	c.mu.Unlock()
}

func (c *clientConnection) touch() {
	c.mu.Lock()
	c.lastUsed = time.Now()
	c.mu.Unlock()
}

// LastUsed reports when the connection last carried a call.
func (c *clientConnection) LastUsed() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastUsed
}

// runClient spawns one external client process with the constructed argument
// vector, captures its output, and enforces the timeout. On timeout the
// process is forcibly terminated and a failed result returned; it is never
// left hanging.
func runClient(ctx context.Context, timeout time.Duration, env []string, name string, args ...string) *remote.ExecResult {
	if timeout <= 0 {
		timeout = defaultExecTimeout
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, name, args...)
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	res := &remote.ExecResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	switch {
	case err == nil:
		res.Success = true
	case cctx.Err() == context.DeadlineExceeded:
		res.ExitCode = -1
		res.Stderr = appendLine(res.Stderr, fmt.Sprintf("%s timed out after %s", name, timeout))
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else {
			// Launch failure: client binary missing or not executable.
			res.ExitCode = -1
			res.Stderr = appendLine(res.Stderr, err.Error())
		}
	}
	return res
}

// transferResult maps an external client's exit into the transfer shape,
// attaching the size of the file that changed hands on success.
func transferResult(res *remote.ExecResult, localPath string) *remote.TransferResult {
	tr := &remote.TransferResult{Success: res.Success, Stderr: res.Stderr}
	if !res.Success {
		return tr
	}
	if info, err := os.Stat(localPath); err == nil {
		tr.BytesTransferred = info.Size()
	}
	return tr
}

func unsupportedTransfer(client, direction string) *remote.TransferResult {
	return &remote.TransferResult{
		Success: false,
		Stderr:  fmt.Sprintf("%s does not support file %s", client, direction),
	}
}

func appendLine(existing, line string) string {
	if existing == "" {
		return line
	}
	return strings.TrimRight(existing, "\n") + "\n" + line
}
