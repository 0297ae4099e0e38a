package remote

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/sftp"
)

// UploadFile copies a local file to a temporary path on the remote host
// over SFTP and returns that path.
//
// The remote name keeps the full extension chain of the source (the
// upload pipeline depends on it) but carries a per-call unique suffix,
// so two uploads of files with the same base name cannot collide.
func (e *Executor) UploadFile(ctx context.Context, localPath string) (string, error) {
	remotePath := TempPathFor(localPath)

	e.log.WithField("remote_path", remotePath).Debug("transferring file over SFTP")

	client, err := sftp.NewClient(e.client)
	if err != nil {
		return "", fmt.Errorf("failed to open SFTP channel: %w", err)
	}
	defer func() { _ = client.Close() }()

	src, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open local file: %w", err)
	}
	defer func() { _ = src.Close() }()

	dst, err := client.Create(remotePath)
	if err != nil {
		return "", fmt.Errorf("failed to create remote file %s: %w", remotePath, err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return "", fmt.Errorf("failed to transfer %s: %w", localPath, err)
	}

	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize remote file %s: %w", remotePath, err)
	}

	return remotePath, nil
}

// TempPathFor derives the remote temporary path for a local file.
func TempPathFor(localPath string) string {
	suffix := uuid.NewString()[:8]
	return path.Join("/tmp", fmt.Sprintf("pvedeploy-%s-%s", suffix, filepath.Base(localPath)))
}
