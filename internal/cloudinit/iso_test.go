package cloudinit

import (
	"context"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/kdomanski/iso9660"
	"github.com/sirupsen/logrus"
)

func testLog() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

func TestBuildWritesSeedISO(t *testing.T) {
	b := NewBuilder(testLog())

	path, err := b.Build(context.Background(), Params{
		Name:    "web-01",
		SSHKeys: []string{"ssh-ed25519 AAAAC3NzaC1lZDI1NTE5AAAAIEtest user@host"},
	})
	if err != nil {
		t.Fatalf("Build() unexpected error: %v", err)
	}
	defer func() {
		if err := os.Remove(path); err != nil {
			t.Errorf("failed to remove seed file: %v", err)
		}
	}()

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("seed file missing: %v", err)
	}
	if info.Size() == 0 {
		t.Fatal("seed file is empty")
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open seed file: %v", err)
	}
	defer func() { _ = f.Close() }()

	img, err := iso9660.OpenImage(f)
	if err != nil {
		t.Fatalf("seed file is not a readable ISO image: %v", err)
	}
	root, err := img.RootDir()
	if err != nil {
		t.Fatalf("failed to read ISO root directory: %v", err)
	}
	children, err := root.GetChildren()
	if err != nil {
		t.Fatalf("failed to list ISO root directory: %v", err)
	}

	found := map[string]bool{}
	for _, child := range children {
		found[strings.ToLower(child.Name())] = true
	}
	if !found["user-data"] {
		t.Errorf("ISO missing user-data, got %v", names(children))
	}
	if !found["meta-data"] {
		t.Errorf("ISO missing meta-data, got %v", names(children))
	}
}

func names(files []*iso9660.File) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Name()
	}
	return out
}

func TestBuildRejectsMissingName(t *testing.T) {
	b := NewBuilder(testLog())
	if _, err := b.Build(context.Background(), Params{}); err == nil {
		t.Fatal("Build() expected error for missing name")
	}
}
