package errors

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// withLogDir points the handler at a temp log directory for the test.
func withLogDir(t *testing.T) string {
	t.Helper()
	original := os.Getenv("PROVKIT_LOG_DIR")
	t.Cleanup(func() {
		if original != "" {
			os.Setenv("PROVKIT_LOG_DIR", original)
		} else {
			os.Unsetenv("PROVKIT_LOG_DIR")
		}
	})

	logDir := filepath.Join(t.TempDir(), "logs")
	os.Setenv("PROVKIT_LOG_DIR", logDir)
	return logDir
}

func TestNewErrorHandler(t *testing.T) {
	withLogDir(t)

	handler, err := NewErrorHandler()
	if err != nil {
		t.Fatalf("NewErrorHandler() failed: %v", err)
	}

	if handler == nil {
		t.Fatal("NewErrorHandler() returned nil handler")
	}

	if handler.logger == nil {
		t.Error("ErrorHandler.logger is nil")
	}

	if handler.console == nil {
		t.Error("ErrorHandler.console is nil")
	}
}

func TestErrorHandler_Handle_ProvKitError(t *testing.T) {
	logDir := withLogDir(t)

	handler, err := NewErrorHandler()
	if err != nil {
		t.Fatalf("NewErrorHandler() failed: %v", err)
	}

	testErr := NewConnectivityError(
		"Test context",
		"Test cause",
		"Test suggestion",
		errors.New("original error"),
	)

	handler.Handle(testErr)

	// Verify log file was created
	logFile := filepath.Join(logDir, "provkit.log")
	if _, err := os.Stat(logFile); os.IsNotExist(err) {
		t.Error("Log file was not created")
	}
}

func TestErrorHandler_Handle_GenericError(t *testing.T) {
	logDir := withLogDir(t)

	handler, err := NewErrorHandler()
	if err != nil {
		t.Fatalf("NewErrorHandler() failed: %v", err)
	}

	handler.Handle(errors.New("plain error"))

	logFile := filepath.Join(logDir, "provkit.log")
	if _, err := os.Stat(logFile); os.IsNotExist(err) {
		t.Error("Log file was not created")
	}
}

func TestErrorHandler_Handle_NilError(t *testing.T) {
	withLogDir(t)

	handler, err := NewErrorHandler()
	if err != nil {
		t.Fatalf("NewErrorHandler() failed: %v", err)
	}

	// Should not panic
	handler.Handle(nil)
}

func TestGetErrorTypeName(t *testing.T) {
	tests := []struct {
		errType  error
		expected string
	}{
		{ErrPlanNotFound, "plan_not_found"},
		{ErrPlanParseFailed, "plan_parse_failed"},
		{ErrConfiguration, "configuration_invalid"},
		{ErrConnectivity, "connectivity_failed"},
		{ErrExecution, "execution_failed"},
		{ErrTransfer, "transfer_failed"},
		{ErrCapacity, "pool_capacity"},
		{ErrPoolShutdown, "pool_shutdown"},
		{ErrFlowFailed, "flow_failed"},
		{ErrFileSystemFailed, "filesystem_failed"},
		{errors.New("unknown"), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := getErrorTypeName(tt.errType); got != tt.expected {
				t.Errorf("getErrorTypeName() = %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestGetDefaultHandler(t *testing.T) {
	withLogDir(t)
	resetDefaultHandler()

	first, err := GetDefaultHandler()
	if err != nil {
		t.Fatalf("GetDefaultHandler() failed: %v", err)
	}

	second, err := GetDefaultHandler()
	if err != nil {
		t.Fatalf("GetDefaultHandler() second call failed: %v", err)
	}

	if first != second {
		t.Error("GetDefaultHandler() returned different instances")
	}
}

func TestProvKitError_Error(t *testing.T) {
	original := errors.New("original error message")
	err := NewExecutionError("context", "cause", "suggestion", original)

	if err.Error() != "original error message" {
		t.Errorf("Error() = %s, want original error message", err.Error())
	}
}

func TestProvKitError_Unwrap(t *testing.T) {
	original := errors.New("original")
	err := NewTransferError("context", "cause", "suggestion", original)

	if !errors.Is(err, original) {
		t.Error("errors.Is() did not match the wrapped error")
	}
}

func TestProvKitError_IsMatchesTaxonomy(t *testing.T) {
	err := NewCapacityError("pool full", "all entries in use", "increase maxSize", errors.New("pool at capacity"))

	if !errors.Is(err, ErrCapacity) {
		t.Error("errors.Is() did not match ErrCapacity sentinel")
	}
	if errors.Is(err, ErrConnectivity) {
		t.Error("errors.Is() matched the wrong sentinel")
	}
}

func TestErrorConstructors(t *testing.T) {
	original := errors.New("boom")

	tests := []struct {
		name     string
		build    func() *ProvKitError
		wantType error
	}{
		{"plan", func() *ProvKitError { return NewPlanError("c", "", "", original) }, ErrPlanNotFound},
		{"parse", func() *ProvKitError { return NewParseError("c", "", "", original) }, ErrPlanParseFailed},
		{"configuration", func() *ProvKitError { return NewConfigurationError("c", "", "", original) }, ErrConfiguration},
		{"connectivity", func() *ProvKitError { return NewConnectivityError("c", "", "", original) }, ErrConnectivity},
		{"execution", func() *ProvKitError { return NewExecutionError("c", "", "", original) }, ErrExecution},
		{"transfer", func() *ProvKitError { return NewTransferError("c", "", "", original) }, ErrTransfer},
		{"capacity", func() *ProvKitError { return NewCapacityError("c", "", "", original) }, ErrCapacity},
		{"shutdown", func() *ProvKitError { return NewShutdownError("c", "", "", original) }, ErrPoolShutdown},
		{"flow", func() *ProvKitError { return NewFlowError("c", "", "", original) }, ErrFlowFailed},
		{"filesystem", func() *ProvKitError { return NewFileSystemError("c", "", "", original) }, ErrFileSystemFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.build()
			if err.Type != tt.wantType {
				t.Errorf("Type = %v, want %v", err.Type, tt.wantType)
			}
			if err.OriginalErr != original {
				t.Error("OriginalErr not preserved")
			}
		})
	}
}

func TestCheckLogRotation(t *testing.T) {
	tempDir := t.TempDir()
	logPath := filepath.Join(tempDir, "provkit.log")

	// Missing file: nothing to rotate
	if err := checkLogRotation(logPath); err != nil {
		t.Errorf("checkLogRotation() on missing file failed: %v", err)
	}

	// Small file: left in place
	if err := os.WriteFile(logPath, []byte("small"), 0600); err != nil {
		t.Fatalf("failed to write log file: %v", err)
	}
	if err := checkLogRotation(logPath); err != nil {
		t.Errorf("checkLogRotation() on small file failed: %v", err)
	}
	if _, err := os.Stat(logPath); err != nil {
		t.Error("small log file should not have been rotated")
	}
}

func TestRotateLogFile(t *testing.T) {
	tempDir := t.TempDir()
	logPath := filepath.Join(tempDir, "provkit.log")

	if err := os.WriteFile(logPath, []byte("current"), 0600); err != nil {
		t.Fatalf("failed to write log file: %v", err)
	}

	if err := rotateLogFile(logPath); err != nil {
		t.Fatalf("rotateLogFile() failed: %v", err)
	}

	if _, err := os.Stat(logPath + ".1"); err != nil {
		t.Error("rotated file .1 was not created")
	}
	if _, err := os.Stat(logPath); !os.IsNotExist(err) {
		t.Error("current log file should have been moved aside")
	}
}
