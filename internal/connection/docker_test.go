package connection

import (
	"archive/tar"
	"io"
	"os"
	"testing"
)

func TestPackUploadArchive_KeepsFileMode(t *testing.T) {
	tests := []struct {
		name string
		mode os.FileMode
		want int64
	}{
		{name: "executable script", mode: 0755, want: 0755},
		{name: "private key", mode: 0600, want: 0600},
		{name: "setuid bits are not permission bits", mode: os.ModeSetuid | 0744, want: 0744},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := []byte("#!/bin/sh\nexit 0\n")
			buf, err := packUploadArchive("deploy.sh", tt.mode, body)
			if err != nil {
				t.Fatalf("packUploadArchive failed: %v", err)
			}

			tr := tar.NewReader(buf)
			hdr, err := tr.Next()
			if err != nil {
				t.Fatalf("Failed to read archive header: %v", err)
			}
			if hdr.Name != "deploy.sh" {
				t.Errorf("Expected entry name 'deploy.sh', got %q", hdr.Name)
			}
			if hdr.Mode != tt.want {
				t.Errorf("Expected mode %o, got %o", tt.want, hdr.Mode)
			}
			got, err := io.ReadAll(tr)
			if err != nil {
				t.Fatalf("Failed to read archive body: %v", err)
			}
			if string(got) != string(body) {
				t.Errorf("Archive body does not match the source file")
			}
			if _, err := tr.Next(); err != io.EOF {
				t.Errorf("Expected a single-entry archive, got %v", err)
			}
		})
	}
}
