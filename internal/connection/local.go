package connection

import (
	"context"
	"io"
	"os"
	"time"

	"provkit/pkg/plan"
	"provkit/pkg/remote"
)

// localConnection runs commands against the local shell. Transfers are
// plain filesystem copies.
type localConnection struct {
	clientConnection
	cfg *plan.ConnectionConfig
}

func newLocalConnection(cfg *plan.ConnectionConfig) (*localConnection, error) {
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return &localConnection{cfg: cfg}, nil
}

func (c *localConnection) Connect(ctx context.Context) error {
	c.markConnected(true)
	return nil
}

func (c *localConnection) Execute(ctx context.Context, command string, timeout time.Duration) *remote.ExecResult {
	c.touch()
	return runClient(ctx, timeout, nil, "/bin/sh", "-c", command)
}

func (c *localConnection) Upload(ctx context.Context, localPath, remotePath string) *remote.TransferResult {
	c.touch()
	return copyFile(localPath, remotePath)
}

func (c *localConnection) Download(ctx context.Context, remotePath, localPath string) *remote.TransferResult {
	c.touch()
	return copyFile(remotePath, localPath)
}

func (c *localConnection) Disconnect() error {
	c.markConnected(false)
	return nil
}

func copyFile(src, dst string) *remote.TransferResult {
	in, err := os.Open(src)
	if err != nil {
		return &remote.TransferResult{Stderr: err.Error()}
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return &remote.TransferResult{Stderr: err.Error()}
	}
	defer out.Close()

	n, err := io.Copy(out, in)
	if err != nil {
		return &remote.TransferResult{Stderr: err.Error()}
	}
	return &remote.TransferResult{Success: true, BytesTransferred: n}
}
