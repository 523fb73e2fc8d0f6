package plan

// Plan is the root object that holds the entire configuration for a ProvKit
// execution. It's populated by parsing the user's provisioning plan YAML file.
type Plan struct {
	APIVersion string   `yaml:"apiVersion" validate:"required"`
	Kind       string   `yaml:"kind" validate:"required,eq=Plan"`
	Metadata   Metadata `yaml:"metadata" validate:"required"`
	Spec       Spec     `yaml:"spec" validate:"required"`
}

// Metadata contains plan-level metadata.
type Metadata struct {
	Name        string            `yaml:"name" validate:"required"`
	Description string            `yaml:"description"`
	Labels      map[string]string `yaml:"labels,omitempty"`
}

// Spec contains the detailed specifications for the provisioning run.
type Spec struct {
	Pool        PoolSettings       `yaml:"pool"`
	Connections []ConnectionConfig `yaml:"connections" validate:"required,min=1,dive"`
	Flows       []FlowSpec         `yaml:"flows" validate:"required,min=1,dive"`
}

// PoolSettings tunes the shared connection pool. Zero values fall back to
// the defaults (10 entries, 300s idle timeout, 60s health interval).
type PoolSettings struct {
	MaxSize                    int `yaml:"maxSize"`
	IdleTimeoutSeconds         int `yaml:"idleTimeoutSeconds"`
	HealthCheckIntervalSeconds int `yaml:"healthCheckIntervalSeconds"`
}

// ConnType identifies the remote-execution channel a connection uses.
type ConnType string

const (
	SSH            ConnType = "SSH"
	SSHAgent       ConnType = "SSH_AGENT"
	SSHCertificate ConnType = "SSH_CERTIFICATE"
	SSHBastion     ConnType = "SSH_BASTION"
	WinRM          ConnType = "WINRM"
	Ansible        ConnType = "ANSIBLE"
	Docker         ConnType = "DOCKER"
	Kubernetes     ConnType = "KUBERNETES"
	AWSSSM         ConnType = "AWS_SSM"
	AzureSerial    ConnType = "AZURE_SERIAL"
	GCPOSLogin     ConnType = "GCP_OS_LOGIN"
	Local          ConnType = "LOCAL"
)

// ConnectionConfig describes one named remote-execution target. Validation
// beyond the struct tags is type-dependent: SSH_BASTION requires Bastion,
// DOCKER and KUBERNETES require Container, cloud types require Cloud.
type ConnectionConfig struct {
	Name        string           `yaml:"name" validate:"required"`
	Type        ConnType         `yaml:"type" validate:"required,oneof=SSH SSH_AGENT SSH_CERTIFICATE SSH_BASTION WINRM ANSIBLE DOCKER KUBERNETES AWS_SSM AZURE_SERIAL GCP_OS_LOGIN LOCAL"`
	Host        string           `yaml:"host"`
	Port        int              `yaml:"port" validate:"gte=0,lte=65535"`
	Credentials Credentials      `yaml:"credentials"`
	Options     Options          `yaml:"options"`
	Bastion     *BastionConfig   `yaml:"bastion,omitempty"`
	Cloud       *CloudConfig     `yaml:"cloud,omitempty"`
	Container   *ContainerConfig `yaml:"container,omitempty"`
}

// Credentials holds the authentication material for a connection. Which
// fields are required depends on the connection type.
type Credentials struct {
	Username        string `yaml:"username"`
	Password        string `yaml:"password,omitempty"`
	KeyPath         string `yaml:"keyPath,omitempty"`
	CertificatePath string `yaml:"certificatePath,omitempty"`
	AgentSocket     string `yaml:"agentSocket,omitempty"`
}

// Options carries per-connection tuning knobs.
type Options struct {
	TimeoutSeconds        int               `yaml:"timeoutSeconds"`
	Retries               int               `yaml:"retries"`
	RetryDelaySeconds     int               `yaml:"retryDelaySeconds"`
	HealthCheck           bool              `yaml:"healthCheck"`
	Compression           bool              `yaml:"compression"`
	KeepAlive             bool              `yaml:"keepAlive"`
	StrictHostKeyChecking bool              `yaml:"strictHostKeyChecking"`
	Properties            map[string]string `yaml:"properties,omitempty"`
}

// BastionConfig describes the intermediate hop for SSH_BASTION connections.
type BastionConfig struct {
	Host        string      `yaml:"host" validate:"required"`
	Port        int         `yaml:"port" validate:"gte=0,lte=65535"`
	Credentials Credentials `yaml:"credentials"`
}

// CloudConfig identifies the cloud resource behind AWS_SSM, AZURE_SERIAL
// and GCP_OS_LOGIN connections.
type CloudConfig struct {
	InstanceID    string `yaml:"instanceId,omitempty"`
	Region        string `yaml:"region,omitempty"`
	Zone          string `yaml:"zone,omitempty"`
	Project       string `yaml:"project,omitempty"`
	ResourceGroup string `yaml:"resourceGroup,omitempty"`
	Profile       string `yaml:"profile,omitempty"`
}

// ContainerConfig identifies the container behind DOCKER and KUBERNETES
// connections.
type ContainerConfig struct {
	Name      string `yaml:"name"`
	Namespace string `yaml:"namespace,omitempty"`
	Pod       string `yaml:"pod,omitempty"`
}

// FlowSpec declares one ordered sequence of installation steps bound to a
// named connection. After chains this flow to a parent flow; OnlyOnSuccess
// gates the chain on the parent's aggregate outcome.
type FlowSpec struct {
	Name          string     `yaml:"name" validate:"required"`
	Connection    string     `yaml:"connection" validate:"required"`
	After         string     `yaml:"after,omitempty"`
	OnlyOnSuccess bool       `yaml:"onlyOnSuccess,omitempty"`
	Steps         []StepSpec `yaml:"steps" validate:"required,min=1,dive"`
}

// StepSpec declares one installation step. Type selects the recipe that
// turns it into terminal operations.
type StepSpec struct {
	Type           string     `yaml:"type" validate:"required"`
	Name           string     `yaml:"name"`
	Command        string     `yaml:"command,omitempty"`
	Fatal          bool       `yaml:"fatal,omitempty"`
	TimeoutSeconds int        `yaml:"timeoutSeconds,omitempty"`
	Source         string     `yaml:"source,omitempty"`
	Destination    string     `yaml:"destination,omitempty"`
	Steps          []StepSpec `yaml:"steps,omitempty"`
}
