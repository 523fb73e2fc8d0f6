package connection

import (
	"context"
	"fmt"
	"time"

	"provkit/internal/errors"
	"provkit/pkg/plan"
	"provkit/pkg/remote"
)

// cloudConnection covers the AWS_SSM, AZURE_SERIAL and GCP_OS_LOGIN
// variants, each backed by its vendor CLI (aws / az / gcloud). The
// abstraction only constructs argument vectors; session management stays
// inside the vendor client.
type cloudConnection struct {
	clientConnection
	cfg *plan.ConnectionConfig
}

func newCloudConnection(cfg *plan.ConnectionConfig) (*cloudConnection, error) {
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return &cloudConnection{cfg: cfg}, nil
}

func (c *cloudConnection) execArgs(command string) (string, []string) {
	cloud := c.cfg.Cloud
	switch c.cfg.Type {
	case plan.AWSSSM:
		args := []string{
			"ssm", "start-session",
			"--target", cloud.InstanceID,
			"--document-name", "AWS-StartNonInteractiveCommand",
			"--parameters", fmt.Sprintf(`command="%s"`, command),
		}
		if cloud.Region != "" {
			args = append(args, "--region", cloud.Region)
		}
		if cloud.Profile != "" {
			args = append(args, "--profile", cloud.Profile)
		}
		return "aws", args
	case plan.AzureSerial:
		return "az", []string{
			"vm", "run-command", "invoke",
			"--resource-group", cloud.ResourceGroup,
			"--name", cloud.InstanceID,
			"--command-id", "RunShellScript",
			"--scripts", command,
		}
	default: // plan.GCPOSLogin
		args := []string{
			"compute", "ssh", c.sshTarget(),
			"--zone", cloud.Zone,
			"--command", command,
		}
		if cloud.Project != "" {
			args = append(args, "--project", cloud.Project)
		}
		return "gcloud", args
	}
}

func (c *cloudConnection) sshTarget() string {
	if c.cfg.Credentials.Username != "" {
		return c.cfg.Credentials.Username + "@" + c.cfg.Cloud.InstanceID
	}
	return c.cfg.Cloud.InstanceID
}

func (c *cloudConnection) Connect(ctx context.Context) error {
	name, args := c.execArgs("exit 0")
	res := runClient(ctx, 2*connectProbeTimeout, nil, name, args...)
	if !res.Success {
		c.markConnected(false)
		return errors.NewConnectivityError(
			fmt.Sprintf("Cannot open a %s session to %s", c.cfg.Type, c.cfg.Cloud.InstanceID),
			res.Stderr,
			"Verify the instance exists and the cloud CLI is authenticated",
			fmt.Errorf("%s probe to %s failed: %s", c.cfg.Type, c.cfg.Cloud.InstanceID, res.Stderr),
		)
	}
	c.markConnected(true)
	return nil
}

func (c *cloudConnection) Execute(ctx context.Context, command string, timeout time.Duration) *remote.ExecResult {
	c.touch()
	name, args := c.execArgs(command)
	return runClient(ctx, timeout, nil, name, args...)
}

func (c *cloudConnection) Upload(ctx context.Context, localPath, remotePath string) *remote.TransferResult {
	c.touch()
	if c.cfg.Type != plan.GCPOSLogin {
		return unsupportedTransfer(string(c.cfg.Type), "uploads")
	}
	args := []string{"compute", "scp", localPath, c.sshTarget() + ":" + remotePath, "--zone", c.cfg.Cloud.Zone}
	if c.cfg.Cloud.Project != "" {
		args = append(args, "--project", c.cfg.Cloud.Project)
	}
	return transferResult(runClient(ctx, transferTimeout, nil, "gcloud", args...), localPath)
}

func (c *cloudConnection) Download(ctx context.Context, remotePath, localPath string) *remote.TransferResult {
	c.touch()
	if c.cfg.Type != plan.GCPOSLogin {
		return unsupportedTransfer(string(c.cfg.Type), "downloads")
	}
	args := []string{"compute", "scp", c.sshTarget() + ":" + remotePath, localPath, "--zone", c.cfg.Cloud.Zone}
	if c.cfg.Cloud.Project != "" {
		args = append(args, "--project", c.cfg.Cloud.Project)
	}
	return transferResult(runClient(ctx, transferTimeout, nil, "gcloud", args...), localPath)
}

func (c *cloudConnection) Disconnect() error {
	c.markConnected(false)
	return nil
}
