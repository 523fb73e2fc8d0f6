package connection

import (
	"fmt"

	"provkit/internal/errors"
	"provkit/pkg/plan"
	"provkit/pkg/remote"
)

// New returns the Connection implementation for the config's type. This is
// where construction-time failures surface: a config that is missing
// credential material or a required sub-config never reaches the network.
func New(cfg *plan.ConnectionConfig) (remote.Connection, error) {
	switch cfg.Type {
	case plan.SSH, plan.SSHAgent, plan.SSHCertificate, plan.SSHBastion:
		return newSSHConnection(cfg)
	case plan.WinRM:
		return newWinRMConnection(cfg)
	case plan.Ansible:
		return newAnsibleConnection(cfg)
	case plan.Docker:
		return newDockerConnection(cfg)
	case plan.Kubernetes:
		return newKubernetesConnection(cfg)
	case plan.AWSSSM, plan.AzureSerial, plan.GCPOSLogin:
		return newCloudConnection(cfg)
	case plan.Local:
		return newLocalConnection(cfg)
	default:
		return nil, errors.NewConfigurationError(
			fmt.Sprintf("Connection '%s' has an unsupported type", cfg.Name),
			fmt.Sprintf("type %q is not a known remote-execution channel", cfg.Type),
			"Use one of the documented connection types",
			fmt.Errorf("unsupported connection type: %s", cfg.Type),
		)
	}
}
