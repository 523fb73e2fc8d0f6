package connection

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"provkit/internal/errors"
	"provkit/pkg/plan"
	"provkit/pkg/remote"
)

// sshConnection covers the SSH, SSH_AGENT, SSH_CERTIFICATE and SSH_BASTION
// variants. Every call shells out to the ssh/scp clients with a constructed
// argument vector; the variant only changes how authentication material is
// passed.
type sshConnection struct {
	clientConnection
	cfg *plan.ConnectionConfig
}

func newSSHConnection(cfg *plan.ConnectionConfig) (*sshConnection, error) {
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return &sshConnection{cfg: cfg}, nil
}

func (c *sshConnection) target() string {
	return fmt.Sprintf("%s@%s", c.cfg.Credentials.Username, c.cfg.Host)
}

// commonArgs builds the option vector shared by ssh and scp. scp spells the
// port flag -P instead of -p.
func (c *sshConnection) commonArgs(portFlag string) []string {
	args := []string{portFlag, strconv.Itoa(portFor(c.cfg))}
	if !c.cfg.Options.StrictHostKeyChecking {
		args = append(args, "-o", "StrictHostKeyChecking=no")
	}
	if c.cfg.Options.Compression {
		args = append(args, "-C")
	}
	if c.cfg.Options.KeepAlive {
		args = append(args, "-o", "ServerAliveInterval=30")
	}
	switch c.cfg.Type {
	case plan.SSHCertificate:
		args = append(args,
			"-i", c.cfg.Credentials.KeyPath,
			"-o", "CertificateFile="+c.cfg.Credentials.CertificatePath,
		)
	case plan.SSHBastion:
		b := c.cfg.Bastion
		hop := b.Host
		if b.Credentials.Username != "" {
			hop = b.Credentials.Username + "@" + hop
		}
		if b.Port != 0 {
			hop = fmt.Sprintf("%s:%d", hop, b.Port)
		}
		args = append(args, "-J", hop)
		if c.cfg.Credentials.KeyPath != "" {
			args = append(args, "-i", c.cfg.Credentials.KeyPath)
		}
	}
	return args
}

// clientFor wraps the base client invocation for the variant: the password
// variant goes through sshpass, the agent variant pins SSH_AUTH_SOCK.
func (c *sshConnection) clientFor(client string, args []string) (string, []string, []string) {
	var env []string
	switch c.cfg.Type {
	case plan.SSH:
		return "sshpass", append([]string{"-p", c.cfg.Credentials.Password, client}, args...), nil
	case plan.SSHAgent:
		if c.cfg.Credentials.AgentSocket != "" {
			env = []string{"SSH_AUTH_SOCK=" + c.cfg.Credentials.AgentSocket}
		}
	}
	return client, args, env
}

func (c *sshConnection) Connect(ctx context.Context) error {
	args := append(c.commonArgs("-p"), c.target(), "exit 0")
	name, argv, env := c.clientFor("ssh", args)

	res := runClient(ctx, connectProbeTimeout, env, name, argv...)
	if !res.Success {
		c.markConnected(false)
		return errors.NewConnectivityError(
			fmt.Sprintf("Cannot reach %s", c.target()),
			res.Stderr,
			"Verify the host is up and the credentials are valid",
			fmt.Errorf("ssh probe to %s failed: %s", c.target(), res.Stderr),
		)
	}
	c.markConnected(true)
	return nil
}

func (c *sshConnection) Execute(ctx context.Context, command string, timeout time.Duration) *remote.ExecResult {
	c.touch()
	args := append(c.commonArgs("-p"), c.target(), command)
	name, argv, env := c.clientFor("ssh", args)
	return runClient(ctx, timeout, env, name, argv...)
}

func (c *sshConnection) Upload(ctx context.Context, localPath, remotePath string) *remote.TransferResult {
	c.touch()
	args := append(c.commonArgs("-P"), localPath, c.target()+":"+remotePath)
	name, argv, env := c.clientFor("scp", args)
	return transferResult(runClient(ctx, transferTimeout, env, name, argv...), localPath)
}

func (c *sshConnection) Download(ctx context.Context, remotePath, localPath string) *remote.TransferResult {
	c.touch()
	args := append(c.commonArgs("-P"), c.target()+":"+remotePath, localPath)
	name, argv, env := c.clientFor("scp", args)
	return transferResult(runClient(ctx, transferTimeout, env, name, argv...), localPath)
}

func (c *sshConnection) Disconnect() error {
	c.markConnected(false)
	return nil
}
