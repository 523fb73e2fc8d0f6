package connection

import (
	"context"
	"fmt"
	"time"

	"provkit/internal/errors"
	"provkit/pkg/plan"
	"provkit/pkg/remote"
)

// kubernetesConnection execs into a pod through kubectl. Transfers go
// through kubectl cp.
type kubernetesConnection struct {
	clientConnection
	cfg *plan.ConnectionConfig
}

func newKubernetesConnection(cfg *plan.ConnectionConfig) (*kubernetesConnection, error) {
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return &kubernetesConnection{cfg: cfg}, nil
}

func (c *kubernetesConnection) namespace() string {
	if c.cfg.Container.Namespace != "" {
		return c.cfg.Container.Namespace
	}
	return "default"
}

func (c *kubernetesConnection) execArgs(command string) []string {
	args := []string{"exec", "-n", c.namespace(), c.cfg.Container.Pod}
	if c.cfg.Container.Name != "" {
		args = append(args, "-c", c.cfg.Container.Name)
	}
	return append(args, "--", "/bin/sh", "-c", command)
}

func (c *kubernetesConnection) Connect(ctx context.Context) error {
	args := []string{"get", "pod", "-n", c.namespace(), c.cfg.Container.Pod, "-o", "name"}
	res := runClient(ctx, connectProbeTimeout, nil, "kubectl", args...)
	if !res.Success {
		c.markConnected(false)
		return errors.NewConnectivityError(
			fmt.Sprintf("Cannot reach pod %s/%s", c.namespace(), c.cfg.Container.Pod),
			res.Stderr,
			"Verify the pod exists and kubectl is pointed at the right cluster",
			fmt.Errorf("kubectl probe for %s/%s failed: %s", c.namespace(), c.cfg.Container.Pod, res.Stderr),
		)
	}
	c.markConnected(true)
	return nil
}

func (c *kubernetesConnection) Execute(ctx context.Context, command string, timeout time.Duration) *remote.ExecResult {
	c.touch()
	return runClient(ctx, timeout, nil, "kubectl", c.execArgs(command)...)
}

func (c *kubernetesConnection) Upload(ctx context.Context, localPath, remotePath string) *remote.TransferResult {
	c.touch()
	target := fmt.Sprintf("%s/%s:%s", c.namespace(), c.cfg.Container.Pod, remotePath)
	args := []string{"cp", localPath, target}
	if c.cfg.Container.Name != "" {
		args = append(args, "-c", c.cfg.Container.Name)
	}
	return transferResult(runClient(ctx, transferTimeout, nil, "kubectl", args...), localPath)
}

func (c *kubernetesConnection) Download(ctx context.Context, remotePath, localPath string) *remote.TransferResult {
	c.touch()
	source := fmt.Sprintf("%s/%s:%s", c.namespace(), c.cfg.Container.Pod, remotePath)
	args := []string{"cp", source, localPath}
	if c.cfg.Container.Name != "" {
		args = append(args, "-c", c.cfg.Container.Name)
	}
	return transferResult(runClient(ctx, transferTimeout, nil, "kubectl", args...), localPath)
}

func (c *kubernetesConnection) Disconnect() error {
	c.markConnected(false)
	return nil
}
