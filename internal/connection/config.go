package connection

import (
	"fmt"

	"provkit/internal/errors"
	"provkit/pkg/plan"
)

// Default ports applied when a config leaves Port at zero.
const (
	defaultSSHPort   = 22
	defaultWinRMPort = 5985
)

// Key is the pool identity of a connection: (type, host, port, account).
type Key struct {
	Type ConnTypeKey
	Host string
	Port int
	User string
}

// ConnTypeKey keeps the plan type in the key without importing plan at
// every call site.
type ConnTypeKey = plan.ConnType

// KeyFor derives the registry key for a connection config.
func KeyFor(cfg *plan.ConnectionConfig) Key {
	return Key{
		Type: cfg.Type,
		Host: cfg.Host,
		Port: portFor(cfg),
		User: cfg.Credentials.Username,
	}
}

func (k Key) String() string {
	return fmt.Sprintf("%s://%s@%s:%d", k.Type, k.User, k.Host, k.Port)
}

func portFor(cfg *plan.ConnectionConfig) int {
	if cfg.Port != 0 {
		return cfg.Port
	}
	switch cfg.Type {
	case plan.WinRM:
		return defaultWinRMPort
	case plan.SSH, plan.SSHAgent, plan.SSHCertificate, plan.SSHBastion, plan.Ansible:
		return defaultSSHPort
	default:
		return 0
	}
}

// Validate performs the type-dependent checks a config must pass before any
// connection is constructed. Missing credential material or absent
// sub-configs are configuration errors, surfaced before any network attempt.
func Validate(cfg *plan.ConnectionConfig) error {
	switch cfg.Type {
	case plan.SSH:
		if err := requireHost(cfg); err != nil {
			return err
		}
		if cfg.Credentials.Username == "" || cfg.Credentials.Password == "" {
			return configErr(cfg, "SSH connections require credentials.username and credentials.password")
		}
	case plan.SSHAgent:
		if err := requireHost(cfg); err != nil {
			return err
		}
		if cfg.Credentials.Username == "" {
			return configErr(cfg, "SSH_AGENT connections require credentials.username")
		}
	case plan.SSHCertificate:
		if err := requireHost(cfg); err != nil {
			return err
		}
		if cfg.Credentials.Username == "" || cfg.Credentials.KeyPath == "" || cfg.Credentials.CertificatePath == "" {
			return configErr(cfg, "SSH_CERTIFICATE connections require credentials.username, credentials.keyPath and credentials.certificatePath")
		}
	case plan.SSHBastion:
		if err := requireHost(cfg); err != nil {
			return err
		}
		if cfg.Credentials.Username == "" {
			return configErr(cfg, "SSH_BASTION connections require credentials.username")
		}
		if cfg.Bastion == nil || cfg.Bastion.Host == "" {
			return configErr(cfg, "SSH_BASTION connections require a bastion sub-config with a host")
		}
	case plan.WinRM:
		if err := requireHost(cfg); err != nil {
			return err
		}
		if cfg.Credentials.Username == "" || cfg.Credentials.Password == "" {
			return configErr(cfg, "WINRM connections require credentials.username and credentials.password")
		}
	case plan.Ansible:
		if err := requireHost(cfg); err != nil {
			return err
		}
		if cfg.Credentials.Username == "" {
			return configErr(cfg, "ANSIBLE connections require credentials.username")
		}
	case plan.Docker:
		if cfg.Container == nil || cfg.Container.Name == "" {
			return configErr(cfg, "DOCKER connections require a container sub-config with a name")
		}
	case plan.Kubernetes:
		if cfg.Container == nil || cfg.Container.Pod == "" {
			return configErr(cfg, "KUBERNETES connections require a container sub-config with a pod")
		}
	case plan.AWSSSM:
		if cfg.Cloud == nil || cfg.Cloud.InstanceID == "" {
			return configErr(cfg, "AWS_SSM connections require a cloud sub-config with an instanceId")
		}
	case plan.AzureSerial:
		if cfg.Cloud == nil || cfg.Cloud.InstanceID == "" || cfg.Cloud.ResourceGroup == "" {
			return configErr(cfg, "AZURE_SERIAL connections require a cloud sub-config with an instanceId and a resourceGroup")
		}
	case plan.GCPOSLogin:
		if cfg.Cloud == nil || cfg.Cloud.InstanceID == "" || cfg.Cloud.Zone == "" {
			return configErr(cfg, "GCP_OS_LOGIN connections require a cloud sub-config with an instanceId and a zone")
		}
	case plan.Local:
		// Nothing to validate; runs against the local shell.
	default:
		return configErr(cfg, fmt.Sprintf("unknown connection type: %s", cfg.Type))
	}
	return nil
}

func requireHost(cfg *plan.ConnectionConfig) error {
	if cfg.Host == "" {
		return configErr(cfg, fmt.Sprintf("%s connections require a host", cfg.Type))
	}
	return nil
}

func configErr(cfg *plan.ConnectionConfig, cause string) error {
	return errors.NewConfigurationError(
		fmt.Sprintf("Connection '%s' is misconfigured", cfg.Name),
		cause,
		"Fix the connection entry in the plan file and re-run",
		fmt.Errorf("invalid connection config %q: %s", cfg.Name, cause),
	)
}
