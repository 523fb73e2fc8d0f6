package connection

import (
	"context"
	"fmt"
	"time"

	"provkit/internal/errors"
	"provkit/pkg/plan"
	"provkit/pkg/remote"
)

// winrmConnection executes against Windows hosts through the winrs client.
// winrs carries no file-transfer verb, so uploads and downloads report an
// unsupported-transfer failure.
type winrmConnection struct {
	clientConnection
	cfg *plan.ConnectionConfig
}

func newWinRMConnection(cfg *plan.ConnectionConfig) (*winrmConnection, error) {
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return &winrmConnection{cfg: cfg}, nil
}

func (c *winrmConnection) args(command string) []string {
	return []string{
		fmt.Sprintf("-r:http://%s:%d", c.cfg.Host, portFor(c.cfg)),
		"-u:" + c.cfg.Credentials.Username,
		"-p:" + c.cfg.Credentials.Password,
		command,
	}
}

func (c *winrmConnection) Connect(ctx context.Context) error {
	res := runClient(ctx, connectProbeTimeout, nil, "winrs", c.args("exit 0")...)
	if !res.Success {
		c.markConnected(false)
		return errors.NewConnectivityError(
			fmt.Sprintf("Cannot reach WinRM endpoint on %s", c.cfg.Host),
			res.Stderr,
			"Verify the WinRM listener is enabled and the credentials are valid",
			fmt.Errorf("winrs probe to %s failed: %s", c.cfg.Host, res.Stderr),
		)
	}
	c.markConnected(true)
	return nil
}

func (c *winrmConnection) Execute(ctx context.Context, command string, timeout time.Duration) *remote.ExecResult {
	c.touch()
	return runClient(ctx, timeout, nil, "winrs", c.args(command)...)
}

func (c *winrmConnection) Upload(ctx context.Context, localPath, remotePath string) *remote.TransferResult {
	return unsupportedTransfer("winrs", "uploads")
}

func (c *winrmConnection) Download(ctx context.Context, remotePath, localPath string) *remote.TransferResult {
	return unsupportedTransfer("winrs", "downloads")
}

func (c *winrmConnection) Disconnect() error {
	c.markConnected(false)
	return nil
}
