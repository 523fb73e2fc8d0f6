package connection

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"provkit/internal/errors"
	"provkit/pkg/plan"
	"provkit/pkg/remote"
)

// dockerConnection executes inside a running container through the Docker
// Engine API. Unlike the CLI-backed variants it talks to the daemon
// directly, which is the Go-native equivalent of shelling out to the docker
// client.
type dockerConnection struct {
	clientConnection
	cfg    *plan.ConnectionConfig
	client *client.Client
}

func newDockerConnection(cfg *plan.ConnectionConfig) (*dockerConnection, error) {
	if err := Validate(cfg); err != nil {
		return nil, err
	}

	dockerClient, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, errors.NewConfigurationError(
			"Cannot create Docker client",
			err.Error(),
			"Check DOCKER_HOST and related environment variables",
			fmt.Errorf("failed to create Docker client: %w", err),
		)
	}

	return &dockerConnection{cfg: cfg, client: dockerClient}, nil
}

func (c *dockerConnection) Connect(ctx context.Context) error {
	pctx, cancel := context.WithTimeout(ctx, connectProbeTimeout)
	defer cancel()

	if _, err := c.client.Ping(pctx); err != nil {
		c.markConnected(false)
		return errors.NewConnectivityError(
			"Cannot reach the Docker daemon",
			err.Error(),
			"Verify the Docker daemon is running and accessible",
			fmt.Errorf("failed to connect to Docker daemon: %w", err),
		)
	}

	info, err := c.client.ContainerInspect(pctx, c.cfg.Container.Name)
	if err != nil {
		c.markConnected(false)
		return errors.NewConnectivityError(
			fmt.Sprintf("Container %s is not available", c.cfg.Container.Name),
			err.Error(),
			"Verify the container exists and is running",
			fmt.Errorf("failed to inspect container %s: %w", c.cfg.Container.Name, err),
		)
	}
	if info.State == nil || !info.State.Running {
		c.markConnected(false)
		return errors.NewConnectivityError(
			fmt.Sprintf("Container %s is not running", c.cfg.Container.Name),
			"the container exists but its state is not running",
			"Start the container before provisioning against it",
			fmt.Errorf("container %s is not running", c.cfg.Container.Name),
		)
	}

	c.markConnected(true)
	return nil
}

func (c *dockerConnection) Execute(ctx context.Context, command string, timeout time.Duration) *remote.ExecResult {
	c.touch()
	if timeout <= 0 {
		timeout = defaultExecTimeout
	}
	ectx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	fail := func(format string, args ...any) *remote.ExecResult {
		msg := fmt.Sprintf(format, args...)
		if ectx.Err() == context.DeadlineExceeded {
			msg = fmt.Sprintf("docker exec timed out after %s", timeout)
		}
		return &remote.ExecResult{ExitCode: -1, Stderr: msg, Duration: time.Since(start)}
	}

	execResp, err := c.client.ContainerExecCreate(ectx, c.cfg.Container.Name, container.ExecOptions{
		Cmd:          []string{"/bin/sh", "-c", command},
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return fail("failed to create exec: %v", err)
	}

	attach, err := c.client.ContainerExecAttach(ectx, execResp.ID, container.ExecAttachOptions{})
	if err != nil {
		return fail("failed to attach to exec: %v", err)
	}
	defer attach.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, attach.Reader); err != nil {
		return fail("failed to stream exec output: %v", err)
	}

	inspect, err := c.client.ContainerExecInspect(ectx, execResp.ID)
	if err != nil {
		return fail("failed to inspect exec: %v", err)
	}

	return &remote.ExecResult{
		Success:  inspect.ExitCode == 0,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: inspect.ExitCode,
		Duration: time.Since(start),
	}
}

func (c *dockerConnection) Upload(ctx context.Context, localPath, remotePath string) *remote.TransferResult {
	c.touch()
	tctx, cancel := context.WithTimeout(ctx, transferTimeout)
	defer cancel()

	info, err := os.Stat(localPath)
	if err != nil {
		return &remote.TransferResult{Stderr: err.Error()}
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		return &remote.TransferResult{Stderr: err.Error()}
	}

	buf, err := packUploadArchive(filepath.Base(remotePath), info.Mode(), data)
	if err != nil {
		return &remote.TransferResult{Stderr: err.Error()}
	}

	dstDir := filepath.Dir(remotePath)
	if err := c.client.CopyToContainer(tctx, c.cfg.Container.Name, dstDir, buf, container.CopyToContainerOptions{}); err != nil {
		return &remote.TransferResult{Stderr: fmt.Sprintf("failed to copy to container: %v", err)}
	}

	return &remote.TransferResult{Success: true, BytesTransferred: int64(len(data))}
}

// packUploadArchive wraps a single file in the tar stream the engine API
// consumes, carrying the local file's permission bits so scripts stay
// executable inside the container.
func packUploadArchive(name string, mode os.FileMode, data []byte) (*bytes.Buffer, error) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	if err := tw.WriteHeader(&tar.Header{
		Name: name,
		Mode: int64(mode.Perm()),
		Size: int64(len(data)),
	}); err != nil {
		return nil, err
	}
	if _, err := tw.Write(data); err != nil {
		return nil, err
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}
	return &buf, nil
}

func (c *dockerConnection) Download(ctx context.Context, remotePath, localPath string) *remote.TransferResult {
	c.touch()
	tctx, cancel := context.WithTimeout(ctx, transferTimeout)
	defer cancel()

	reader, _, err := c.client.CopyFromContainer(tctx, c.cfg.Container.Name, remotePath)
	if err != nil {
		return &remote.TransferResult{Stderr: fmt.Sprintf("failed to copy from container: %v", err)}
	}
	defer reader.Close()

	tr := tar.NewReader(reader)
	if _, err := tr.Next(); err != nil {
		return &remote.TransferResult{Stderr: fmt.Sprintf("failed to read transfer stream: %v", err)}
	}

	out, err := os.Create(localPath)
	if err != nil {
		return &remote.TransferResult{Stderr: err.Error()}
	}
	defer out.Close()

	n, err := io.Copy(out, tr)
	if err != nil {
		return &remote.TransferResult{Stderr: err.Error()}
	}
	return &remote.TransferResult{Success: true, BytesTransferred: n}
}

func (c *dockerConnection) Disconnect() error {
	c.markConnected(false)
	return c.client.Close()
}
