package connection

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"provkit/pkg/plan"
)

func TestRunClient_Success(t *testing.T) {
	res := runClient(context.Background(), 5*time.Second, nil, "/bin/sh", "-c", "echo hello")
	if !res.Success {
		t.Fatalf("Expected success, got %+v", res)
	}
	if strings.TrimSpace(res.Stdout) != "hello" {
		t.Errorf("Unexpected stdout: %q", res.Stdout)
	}
	if res.ExitCode != 0 {
		t.Errorf("Expected exit code 0, got %d", res.ExitCode)
	}
}

func TestRunClient_NonZeroExit(t *testing.T) {
	res := runClient(context.Background(), 5*time.Second, nil, "/bin/sh", "-c", "echo broken >&2; exit 3")
	if res.Success {
		t.Fatal("Expected failure")
	}
	if res.ExitCode != 3 {
		t.Errorf("Expected exit code 3, got %d", res.ExitCode)
	}
	if !strings.Contains(res.Stderr, "broken") {
		t.Errorf("Expected stderr captured, got %q", res.Stderr)
	}
}

func TestRunClient_TimeoutTerminatesProcess(t *testing.T) {
	start := time.Now()
	res := runClient(context.Background(), 100*time.Millisecond, nil, "/bin/sh", "-c", "sleep 10")
	elapsed := time.Since(start)

	if res.Success {
		t.Fatal("Expected timeout failure")
	}
	if res.ExitCode != -1 {
		t.Errorf("Expected exit code -1 on timeout, got %d", res.ExitCode)
	}
	if !strings.Contains(res.Stderr, "timed out") {
		t.Errorf("Expected timeout notice in stderr, got %q", res.Stderr)
	}
	if elapsed > 5*time.Second {
		t.Errorf("Process was not terminated promptly, took %s", elapsed)
	}
}

func TestRunClient_MissingBinary(t *testing.T) {
	res := runClient(context.Background(), time.Second, nil, "/no/such/client")
	if res.Success {
		t.Fatal("Expected launch failure")
	}
	if res.ExitCode != -1 {
		t.Errorf("Expected exit code -1 for a launch failure, got %d", res.ExitCode)
	}
	if res.Stderr == "" {
		t.Error("Expected launch error in stderr")
	}
}

func TestRunClient_ZeroTimeoutUsesDefault(t *testing.T) {
	res := runClient(context.Background(), 0, nil, "/bin/sh", "-c", "true")
	if !res.Success {
		t.Fatalf("Expected success with the default timeout, got %+v", res)
	}
}

func TestRunClient_Environment(t *testing.T) {
	res := runClient(context.Background(), 5*time.Second, []string{"PROVKIT_PROBE=42"}, "/bin/sh", "-c", "echo $PROVKIT_PROBE")
	if !res.Success {
		t.Fatalf("Expected success, got %+v", res)
	}
	if strings.TrimSpace(res.Stdout) != "42" {
		t.Errorf("Extra environment not applied, stdout: %q", res.Stdout)
	}
}

func TestLocalConnection_ExecuteAndTransfer(t *testing.T) {
	conn, err := newLocalConnection(&plan.ConnectionConfig{Name: "here", Type: plan.Local})
	if err != nil {
		t.Fatalf("Construction failed: %v", err)
	}

	if conn.IsConnected() {
		t.Error("Expected disconnected state before Connect")
	}
	if err := conn.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !conn.IsConnected() {
		t.Error("Expected connected state after Connect")
	}

	res := conn.Execute(context.Background(), "printf local-check", 5*time.Second)
	if !res.Success || res.Stdout != "local-check" {
		t.Errorf("Unexpected execute result: %+v", res)
	}

	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "dst.txt")
	if err := os.WriteFile(src, []byte("payload"), 0644); err != nil {
		t.Fatal(err)
	}

	tr := conn.Upload(context.Background(), src, dst)
	if !tr.Success || tr.BytesTransferred != int64(len("payload")) {
		t.Errorf("Unexpected upload result: %+v", tr)
	}
	back := filepath.Join(dir, "back.txt")
	tr = conn.Download(context.Background(), dst, back)
	if !tr.Success {
		t.Errorf("Unexpected download result: %+v", tr)
	}

	tr = conn.Upload(context.Background(), filepath.Join(dir, "missing.txt"), dst)
	if tr.Success {
		t.Error("Expected upload of a missing file to fail")
	}

	if err := conn.Disconnect(); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if conn.IsConnected() {
		t.Error("Expected disconnected state after Disconnect")
	}
}
