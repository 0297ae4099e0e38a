package cloudinit

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/kdomanski/iso9660"
	"github.com/sirupsen/logrus"
)

// Builder writes NoCloud seed ISOs to local temporary files.
type Builder struct {
	log *logrus.Entry
}

// NewBuilder creates a Builder.
func NewBuilder(log *logrus.Entry) *Builder {
	return &Builder{log: log}
}

// Build generates the seed ISO for params and returns the path of the
// temporary file it was written to. The caller owns the file and is
// responsible for removing it.
func (b *Builder) Build(_ context.Context, p Params) (string, error) {
	userData, err := GenerateUserData(p)
	if err != nil {
		return "", fmt.Errorf("failed to generate user-data: %w", err)
	}

	metaData, err := GenerateMetaData(p)
	if err != nil {
		return "", fmt.Errorf("failed to generate meta-data: %w", err)
	}

	writer, err := iso9660.NewWriter()
	if err != nil {
		return "", fmt.Errorf("failed to create ISO writer: %w", err)
	}
	defer func() {
		// Temporary files of the writer itself; the ISO is already on
		// disk when this runs.
		_ = writer.Cleanup()
	}()

	if err := writer.AddFile(bytes.NewReader([]byte(userData)), "user-data"); err != nil {
		return "", fmt.Errorf("failed to add user-data: %w", err)
	}
	if err := writer.AddFile(bytes.NewReader([]byte(metaData)), "meta-data"); err != nil {
		return "", fmt.Errorf("failed to add meta-data: %w", err)
	}

	out, err := os.CreateTemp("", "cloudinit-seed-*.iso")
	if err != nil {
		return "", fmt.Errorf("failed to create seed file: %w", err)
	}

	b.log.WithField("path", out.Name()).Info("generating cloud-init seed ISO")

	if err := writer.WriteTo(out, "cidata"); err != nil {
		_ = out.Close()
		_ = os.Remove(out.Name())
		return "", fmt.Errorf("failed to write ISO image: %w", err)
	}

	if err := out.Close(); err != nil {
		_ = os.Remove(out.Name())
		return "", fmt.Errorf("failed to finalize seed file: %w", err)
	}

	return out.Name(), nil
}
