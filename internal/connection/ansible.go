package connection

import (
	"context"
	"fmt"
	"time"

	"provkit/internal/errors"
	"provkit/pkg/plan"
	"provkit/pkg/remote"
)

// ansibleConnection wraps the ansible ad-hoc CLI: every call is one ansible
// module invocation against a single-host inline inventory.
type ansibleConnection struct {
	clientConnection
	cfg *plan.ConnectionConfig
}

func newAnsibleConnection(cfg *plan.ConnectionConfig) (*ansibleConnection, error) {
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return &ansibleConnection{cfg: cfg}, nil
}

func (c *ansibleConnection) args(module, moduleArgs string) []string {
	return []string{
		"all",
		"-i", c.cfg.Host + ",",
		"-u", c.cfg.Credentials.Username,
		"-e", fmt.Sprintf("ansible_port=%d", portFor(c.cfg)),
		"-m", module,
		"-a", moduleArgs,
	}
}

func (c *ansibleConnection) Connect(ctx context.Context) error {
	res := runClient(ctx, connectProbeTimeout, nil, "ansible", c.args("ping", "")...)
	if !res.Success {
		c.markConnected(false)
		return errors.NewConnectivityError(
			fmt.Sprintf("Ansible cannot reach %s", c.cfg.Host),
			res.Stderr,
			"Verify the host resolves and SSH access works for the configured user",
			fmt.Errorf("ansible ping to %s failed: %s", c.cfg.Host, res.Stderr),
		)
	}
	c.markConnected(true)
	return nil
}

func (c *ansibleConnection) Execute(ctx context.Context, command string, timeout time.Duration) *remote.ExecResult {
	c.touch()
	return runClient(ctx, timeout, nil, "ansible", c.args("shell", command)...)
}

func (c *ansibleConnection) Upload(ctx context.Context, localPath, remotePath string) *remote.TransferResult {
	c.touch()
	moduleArgs := fmt.Sprintf("src=%s dest=%s", localPath, remotePath)
	res := runClient(ctx, transferTimeout, nil, "ansible", c.args("copy", moduleArgs)...)
	return transferResult(res, localPath)
}

func (c *ansibleConnection) Download(ctx context.Context, remotePath, localPath string) *remote.TransferResult {
	c.touch()
	moduleArgs := fmt.Sprintf("src=%s dest=%s flat=yes", remotePath, localPath)
	res := runClient(ctx, transferTimeout, nil, "ansible", c.args("fetch", moduleArgs)...)
	return transferResult(res, localPath)
}

func (c *ansibleConnection) Disconnect() error {
	c.markConnected(false)
	return nil
}
