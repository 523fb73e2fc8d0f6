package connection

import (
	stderrors "errors"
	"testing"

	"provkit/internal/errors"
	"provkit/pkg/plan"
)

func TestKeyFor(t *testing.T) {
	cfg := &plan.ConnectionConfig{
		Name:        "web",
		Type:        plan.SSH,
		Host:        "10.0.0.1",
		Credentials: plan.Credentials{Username: "deploy", Password: "secret"},
	}
	key := KeyFor(cfg)
	if key.Port != 22 {
		t.Errorf("Expected SSH default port 22, got %d", key.Port)
	}
	if key.String() != "SSH://deploy@10.0.0.1:22" {
		t.Errorf("Unexpected key string: %s", key.String())
	}

	// Same endpoint and account, different declared name: one pool entry.
	other := &plan.ConnectionConfig{
		Name:        "web-again",
		Type:        plan.SSH,
		Host:        "10.0.0.1",
		Credentials: plan.Credentials{Username: "deploy", Password: "different"},
	}
	if KeyFor(other) != key {
		t.Error("Keys must match on (type, host, port, username) only")
	}

	// Different account on the same endpoint: distinct entries.
	other.Credentials.Username = "root"
	if KeyFor(other) == key {
		t.Error("Different usernames must produce distinct keys")
	}
}

func TestPortFor(t *testing.T) {
	tests := []struct {
		connType plan.ConnType
		port     int
		expected int
	}{
		{plan.SSH, 0, 22},
		{plan.SSHAgent, 0, 22},
		{plan.SSHBastion, 0, 22},
		{plan.Ansible, 0, 22},
		{plan.WinRM, 0, 5985},
		{plan.SSH, 2222, 2222},
		{plan.Docker, 0, 0},
		{plan.Local, 0, 0},
	}
	for _, tt := range tests {
		cfg := &plan.ConnectionConfig{Type: tt.connType, Port: tt.port}
		if got := portFor(cfg); got != tt.expected {
			t.Errorf("portFor(%s, %d) = %d, expected %d", tt.connType, tt.port, got, tt.expected)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		cfg         plan.ConnectionConfig
		expectError bool
	}{
		{
			name: "valid SSH",
			cfg: plan.ConnectionConfig{
				Name: "web", Type: plan.SSH, Host: "10.0.0.1",
				Credentials: plan.Credentials{Username: "deploy", Password: "secret"},
			},
		},
		{
			name: "SSH without password",
			cfg: plan.ConnectionConfig{
				Name: "web", Type: plan.SSH, Host: "10.0.0.1",
				Credentials: plan.Credentials{Username: "deploy"},
			},
			expectError: true,
		},
		{
			name:        "SSH without host",
			cfg:         plan.ConnectionConfig{Name: "web", Type: plan.SSH, Credentials: plan.Credentials{Username: "deploy", Password: "secret"}},
			expectError: true,
		},
		{
			name: "valid SSH agent",
			cfg: plan.ConnectionConfig{
				Name: "web", Type: plan.SSHAgent, Host: "10.0.0.1",
				Credentials: plan.Credentials{Username: "deploy"},
			},
		},
		{
			name: "SSH certificate without certificate path",
			cfg: plan.ConnectionConfig{
				Name: "web", Type: plan.SSHCertificate, Host: "10.0.0.1",
				Credentials: plan.Credentials{Username: "deploy", KeyPath: "/keys/id_ed25519"},
			},
			expectError: true,
		},
		{
			name: "valid SSH certificate",
			cfg: plan.ConnectionConfig{
				Name: "web", Type: plan.SSHCertificate, Host: "10.0.0.1",
				Credentials: plan.Credentials{Username: "deploy", KeyPath: "/keys/id_ed25519", CertificatePath: "/keys/id_ed25519-cert.pub"},
			},
		},
		{
			name: "bastion without bastion sub-config",
			cfg: plan.ConnectionConfig{
				Name: "web", Type: plan.SSHBastion, Host: "10.0.0.1",
				Credentials: plan.Credentials{Username: "deploy"},
			},
			expectError: true,
		},
		{
			name: "valid bastion",
			cfg: plan.ConnectionConfig{
				Name: "web", Type: plan.SSHBastion, Host: "10.0.0.1",
				Credentials: plan.Credentials{Username: "deploy"},
				Bastion:     &plan.BastionConfig{Host: "jump.example.com"},
			},
		},
		{
			name: "valid WinRM",
			cfg: plan.ConnectionConfig{
				Name: "win", Type: plan.WinRM, Host: "10.0.0.2",
				Credentials: plan.Credentials{Username: "Administrator", Password: "secret"},
			},
		},
		{
			name:        "Docker without container name",
			cfg:         plan.ConnectionConfig{Name: "ctr", Type: plan.Docker, Container: &plan.ContainerConfig{}},
			expectError: true,
		},
		{
			name: "valid Docker",
			cfg:  plan.ConnectionConfig{Name: "ctr", Type: plan.Docker, Container: &plan.ContainerConfig{Name: "app"}},
		},
		{
			name:        "Kubernetes without pod",
			cfg:         plan.ConnectionConfig{Name: "pod", Type: plan.Kubernetes, Container: &plan.ContainerConfig{Name: "app"}},
			expectError: true,
		},
		{
			name:        "AWS SSM without instance",
			cfg:         plan.ConnectionConfig{Name: "ec2", Type: plan.AWSSSM, Cloud: &plan.CloudConfig{}},
			expectError: true,
		},
		{
			name: "valid AWS SSM",
			cfg:  plan.ConnectionConfig{Name: "ec2", Type: plan.AWSSSM, Cloud: &plan.CloudConfig{InstanceID: "i-0abc"}},
		},
		{
			name:        "Azure serial without resource group",
			cfg:         plan.ConnectionConfig{Name: "vm", Type: plan.AzureSerial, Cloud: &plan.CloudConfig{InstanceID: "vm-1"}},
			expectError: true,
		},
		{
			name:        "GCP OS Login without zone",
			cfg:         plan.ConnectionConfig{Name: "vm", Type: plan.GCPOSLogin, Cloud: &plan.CloudConfig{InstanceID: "vm-1"}},
			expectError: true,
		},
		{
			name: "valid local",
			cfg:  plan.ConnectionConfig{Name: "here", Type: plan.Local},
		},
		{
			name:        "unknown type",
			cfg:         plan.ConnectionConfig{Name: "x", Type: plan.ConnType("TELNET")},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(&tt.cfg)
			if tt.expectError {
				if err == nil {
					t.Fatal("Expected validation error, got none")
				}
				if !stderrors.Is(err, errors.ErrConfiguration) {
					t.Errorf("Expected ErrConfiguration, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected validation error: %v", err)
			}
		})
	}
}

func TestNew_UnsupportedType(t *testing.T) {
	_, err := New(&plan.ConnectionConfig{Name: "x", Type: plan.ConnType("TELNET")})
	if err == nil {
		t.Fatal("Expected error for unsupported connection type")
	}
	if !stderrors.Is(err, errors.ErrConfiguration) {
		t.Errorf("Expected ErrConfiguration, got %v", err)
	}
}

func TestNew_ValidationRunsAtConstruction(t *testing.T) {
	_, err := New(&plan.ConnectionConfig{Name: "web", Type: plan.SSH, Host: "10.0.0.1"})
	if err == nil {
		t.Fatal("Expected construction to fail on missing credentials")
	}
	if !stderrors.Is(err, errors.ErrConfiguration) {
		t.Errorf("Expected ErrConfiguration, got %v", err)
	}
}
