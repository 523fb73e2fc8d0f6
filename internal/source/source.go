package source

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	git "github.com/go-git/go-git/v5"

	"provkit/internal/errors"
)

// Stage materializes a deploy payload into a local staging directory and
// returns the path to hand to the connection's upload. Git URLs are
// shallow-cloned; local paths are copied. The caller owns the returned
// directory and should remove it when the upload is done.
func Stage(ctx context.Context, src string) (string, error) {
	stageDir, err := os.MkdirTemp("", "provkit-stage-*")
	if err != nil {
		return "", errors.NewFileSystemError(
			"Cannot create staging directory",
			err.Error(),
			"Check that the system temp directory is writable",
			fmt.Errorf("failed to create staging directory: %w", err),
		)
	}

	if IsGitSource(src) {
		if err := cloneSource(ctx, src, stageDir); err != nil {
			os.RemoveAll(stageDir)
			return "", err
		}
		return stageDir, nil
	}

	if err := copySource(src, stageDir); err != nil {
		os.RemoveAll(stageDir)
		return "", err
	}
	return stageDir, nil
}

// IsGitSource reports whether the source names a git remote rather than a
// local path.
func IsGitSource(src string) bool {
	if strings.HasPrefix(src, "git@") || strings.HasPrefix(src, "git://") {
		return true
	}
	if (strings.HasPrefix(src, "https://") || strings.HasPrefix(src, "http://")) && strings.HasSuffix(src, ".git") {
		return true
	}
	return false
}

// cloneSource shallow-clones the remote into the staging directory and
// drops the .git metadata; only the working tree gets deployed.
func cloneSource(ctx context.Context, url, dst string) error {
	_, err := git.PlainCloneContext(ctx, dst, false, &git.CloneOptions{
		URL:   url,
		Depth: 1,
	})
	if err != nil {
		return errors.NewTransferError(
			fmt.Sprintf("Cannot fetch deploy source %s", url),
			err.Error(),
			"Verify the repository URL and your access to it",
			fmt.Errorf("failed to clone %s: %w", url, err),
		)
	}
	return os.RemoveAll(filepath.Join(dst, ".git"))
}

func copySource(src, dst string) error {
	info, err := os.Stat(src)
	if os.IsNotExist(err) {
		return errors.NewFileSystemError(
			fmt.Sprintf("Deploy source not found: %s", src),
			"the path does not exist on the local machine",
			"Fix the step's source path in the plan",
			fmt.Errorf("deploy source not found: %s", src),
		)
	}
	if err != nil {
		return errors.NewFileSystemError(
			fmt.Sprintf("Cannot read deploy source: %s", src),
			err.Error(),
			"Check the path and its permissions",
			fmt.Errorf("failed to stat deploy source %s: %w", src, err),
		)
	}

	if !info.IsDir() {
		return copyFile(src, filepath.Join(dst, filepath.Base(src)))
	}
	return copyDirectory(src, dst)
}

// copyDirectory recursively copies a directory from src to dst.
func copyDirectory(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}

		destPath := filepath.Join(dst, relPath)

		if d.IsDir() {
			return os.MkdirAll(destPath, 0750)
		}

		return copyFile(path, destPath)
	})
}

// copyFile copies a single file from src to dst, preserving its mode.
func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file %s: %w", src, err)
	}
	defer srcFile.Close()

	dstFile, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create destination file %s: %w", dst, err)
	}
	defer dstFile.Close()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return fmt.Errorf("failed to copy file content: %w", err)
	}

	srcInfo, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("failed to get source file info: %w", err)
	}

	return os.Chmod(dst, srcInfo.Mode())
}

// Files lists the staged regular files relative to the staging root, in
// walk order. Deploy recipes iterate this to upload each file.
func Files(stageDir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(stageDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(stageDir, path)
		if err != nil {
			return err
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk staging directory: %w", err)
	}
	return files, nil
}
