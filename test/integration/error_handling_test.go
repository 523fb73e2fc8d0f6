package integration

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// buildCLI compiles the provkit binary into dir and returns its path.
func buildCLI(t *testing.T, dir string) string {
	t.Helper()
	originalDir, _ := os.Getwd()
	binaryPath := filepath.Join(dir, "provkit")
	buildCmd := exec.Command("go", "build", "-o", binaryPath, "../../cmd/provkit")
	buildCmd.Dir = originalDir
	if err := buildCmd.Run(); err != nil {
		t.Fatalf("Failed to build CLI binary: %v", err)
	}
	return binaryPath
}

func TestCLI_ErrorHandling_PlanNotFound(t *testing.T) {
	tempDir := t.TempDir()
	binaryPath := buildCLI(t, tempDir)

	// Run validate against a plan file that does not exist
	cmd := exec.Command(binaryPath, "validate", "-f", filepath.Join(tempDir, "missing.yaml"))
	cmd.Env = append(os.Environ(), "PROVKIT_LOG_DIR="+tempDir)
	output, err := cmd.CombinedOutput()

	// Should exit with non-zero code
	if err == nil {
		t.Error("Expected command to fail but it succeeded")
	}

	outputStr := string(output)
	if !strings.Contains(outputStr, "Error:") {
		t.Errorf("Expected error output, but got: %s", outputStr)
	}
	if !strings.Contains(outputStr, "not found") {
		t.Errorf("Expected a not-found message, but got: %s", outputStr)
	}
}

func TestCLI_ErrorHandling_InvalidPlanFile(t *testing.T) {
	tempDir := t.TempDir()
	binaryPath := buildCLI(t, tempDir)

	// Create invalid YAML file
	invalidYAML := `invalid: yaml: content:
  - this is not valid
    yaml: structure
      with: improper
    indentation`

	planPath := filepath.Join(tempDir, "plan.yaml")
	if err := os.WriteFile(planPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("Failed to create invalid plan file: %v", err)
	}

	cmd := exec.Command(binaryPath, "validate", "-f", planPath)
	cmd.Env = append(os.Environ(), "PROVKIT_LOG_DIR="+tempDir)
	output, err := cmd.CombinedOutput()

	if err == nil {
		t.Error("Expected command to fail but it succeeded")
	}
	if !strings.Contains(string(output), "Error:") {
		t.Errorf("Expected error output, but got: %s", string(output))
	}
}

func TestCLI_ErrorHandling_InvalidFlag(t *testing.T) {
	tempDir := t.TempDir()
	binaryPath := buildCLI(t, tempDir)

	cmd := exec.Command(binaryPath, "apply", "--invalid-flag")
	output, err := cmd.CombinedOutput()

	if err == nil {
		t.Error("Expected command to fail but it succeeded")
	}

	outputStr := string(output)
	if !strings.Contains(outputStr, "Error:") && !strings.Contains(outputStr, "unknown flag") {
		t.Errorf("Expected error output about unknown flag, but got: %s", outputStr)
	}
}

func TestCLI_ErrorHandling_MissingFileFlag(t *testing.T) {
	tempDir := t.TempDir()
	binaryPath := buildCLI(t, tempDir)

	cmd := exec.Command(binaryPath, "apply")
	output, err := cmd.CombinedOutput()

	if err == nil {
		t.Error("Expected command to fail but it succeeded")
	}

	outputStr := string(output)
	if !strings.Contains(outputStr, "required") && !strings.Contains(outputStr, "Error:") {
		t.Errorf("Expected a required-flag error, but got: %s", outputStr)
	}
}

func TestCLI_ValidateAndDryRunSucceed(t *testing.T) {
	tempDir := t.TempDir()
	binaryPath := buildCLI(t, tempDir)

	validYAML := `apiVersion: v1
kind: Plan
metadata:
  name: smoke
spec:
  connections:
    - name: here
      type: LOCAL
  flows:
    - name: check
      connection: here
      steps:
        - type: command
          name: report kernel
          command: uname -a
`
	planPath := filepath.Join(tempDir, "plan.yaml")
	if err := os.WriteFile(planPath, []byte(validYAML), 0644); err != nil {
		t.Fatalf("Failed to create plan file: %v", err)
	}

	cmd := exec.Command(binaryPath, "validate", "-f", planPath)
	cmd.Env = append(os.Environ(), "PROVKIT_LOG_DIR="+tempDir)
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("validate failed: %v\n%s", err, output)
	}
	if !strings.Contains(string(output), "Plan is valid") {
		t.Errorf("Expected validation success message, got: %s", string(output))
	}

	cmd = exec.Command(binaryPath, "apply", "-f", planPath, "--dry-run")
	cmd.Env = append(os.Environ(), "PROVKIT_LOG_DIR="+tempDir)
	output, err = cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("dry-run apply failed: %v\n%s", err, output)
	}
	outputStr := string(output)
	if !strings.Contains(outputStr, "DRY RUN") {
		t.Errorf("Expected dry-run banner, got: %s", outputStr)
	}
	if !strings.Contains(outputStr, "report kernel") {
		t.Errorf("Expected the step to be listed, got: %s", outputStr)
	}
}
