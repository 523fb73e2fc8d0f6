package ui

import (
	"strings"
	"testing"
)

func TestConsole_formatMessage(t *testing.T) {
	console := &Console{useColors: true}

	tests := []struct {
		name    string
		style   ConsoleStyle
		message string
		styled  bool
	}{
		{"normal passes through", StyleNormal, "provisioning web-01", false},
		{"error is styled", StyleError, "connection refused", true},
		{"warning is styled", StyleWarning, "step skipped", true},
		{"success is styled", StyleSuccess, "flow completed", true},
		{"info is styled", StyleInfo, "3 steps queued", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := console.formatMessage(tt.style, tt.message)

			if !strings.Contains(result, tt.message) {
				t.Errorf("formatMessage(%v, %q) lost the message, got %q", tt.style, tt.message, result)
			}
			if tt.styled != strings.HasSuffix(result, ansiReset) {
				t.Errorf("formatMessage(%v, %q) = %q, styled=%v", tt.style, tt.message, result, tt.styled)
			}
		})
	}
}

func TestConsole_formatMessage_NoColors(t *testing.T) {
	console := &Console{useColors: false}

	result := console.formatMessage(StyleError, "connection refused")
	if result != "connection refused" {
		t.Errorf("Expected plain message without colors, got %q", result)
	}
}

func TestNewConsole_HonorsNoColorEnv(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	console := NewConsole()
	if console.useColors {
		t.Error("NO_COLOR must disable colored output")
	}
}

func TestConsole_FormatErrorMessage(t *testing.T) {
	console := NewConsole()

	tests := []struct {
		name       string
		context    string
		cause      string
		suggestion string
		want       string
	}{
		{
			name:       "all sections",
			context:    "Unable to reach host web-01",
			cause:      "dial tcp: connection refused",
			suggestion: "Check that the host is reachable and sshd is running",
			want:       "Unable to reach host web-01\nCause: dial tcp: connection refused\nSuggestion: Check that the host is reachable and sshd is running",
		},
		{
			name:    "context only",
			context: "Plan validation failed",
			want:    "Plan validation failed",
		},
		{
			name:  "cause only",
			cause: "yaml: unmarshal error",
			want:  "Cause: yaml: unmarshal error",
		},
		{
			name:       "context and suggestion",
			context:    "Upload failed",
			suggestion: "Verify the remote directory exists",
			want:       "Upload failed\nSuggestion: Verify the remote directory exists",
		},
		{
			name: "all empty",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := console.FormatErrorMessage(tt.context, tt.cause, tt.suggestion)
			if got != tt.want {
				t.Errorf("FormatErrorMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}
