package wizard

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pvetools/pvedeploy/internal/questions"
	"github.com/pvetools/pvedeploy/internal/storage"
)

// collectAnswers fills an answer index from fixed values, in order.
func collectAnswers(t *testing.T, pairs ...any) *questions.Answers {
	t.Helper()
	if len(pairs)%2 != 0 {
		t.Fatal("pairs must be key/value")
	}

	var tree []questions.Node
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			t.Fatalf("key %v is not a string", pairs[i])
		}
		tree = append(tree, questions.NewPrompt(key, questions.Fixed{Value: pairs[i+1]}))
	}

	answers := questions.NewAnswers()
	if err := questions.Collect(context.Background(), tree, answers); err != nil {
		t.Fatalf("Collect() unexpected error: %v", err)
	}
	return answers
}

func writeSSHKey(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "id_ed25519.pub")
	key := "ssh-ed25519 AAAAC3NzaC1lZDI1NTE5AAAAIEtest user@host\n"
	if err := os.WriteFile(path, []byte(key), 0o600); err != nil {
		t.Fatalf("failed to write key file: %v", err)
	}
	return path
}

func TestBuildParams(t *testing.T) {
	keyPath := writeSSHKey(t)
	answers := collectAnswers(t,
		"node", "pve1",
		"storage", "local",
		"cpu", 4,
		"cpu_family", "host",
		"memory", 4096,
		"disk", 20,
		"vmid", 105,
		"name", "web-01",
		"image", "fedora.qcow2",
		"ssh_key_file", keyPath,
		"use_vlan", false,
		"start_vm", true,
	)

	params, err := BuildParams(answers, "/var/lib/cloud-images")
	if err != nil {
		t.Fatalf("BuildParams() unexpected error: %v", err)
	}

	if params.Spec.Node != "pve1" || params.Spec.VMID != 105 || params.Spec.Name != "web-01" {
		t.Errorf("unexpected spec: %+v", params.Spec)
	}
	if params.Spec.CPUs != 4 || params.Spec.CPUFamily != "host" || params.Spec.MemoryMB != 4096 {
		t.Errorf("unexpected resources: %+v", params.Spec)
	}
	if params.Spec.VLANTag != 0 {
		t.Errorf("VLANTag = %d, want 0 without use_vlan", params.Spec.VLANTag)
	}
	if params.Storage != "local" {
		t.Errorf("Storage = %q", params.Storage)
	}
	if params.ImagePath != "/var/lib/cloud-images/fedora.qcow2" {
		t.Errorf("ImagePath = %q", params.ImagePath)
	}
	// 20 GB in kilobytes.
	if params.DiskSizeKiB != 20971520 {
		t.Errorf("DiskSizeKiB = %d, want 20971520", params.DiskSizeKiB)
	}
	if !params.StartVM {
		t.Error("StartVM = false, want true")
	}

	if len(params.Seed.SSHKeys) != 1 || params.Seed.SSHKeys[0] != "ssh-ed25519 AAAAC3NzaC1lZDI1NTE5AAAAIEtest user@host" {
		t.Errorf("Seed.SSHKeys = %v, want trimmed key file content", params.Seed.SSHKeys)
	}
	if params.Seed.Name != "web-01" {
		t.Errorf("Seed.Name = %q", params.Seed.Name)
	}
}

func TestBuildParamsVLAN(t *testing.T) {
	keyPath := writeSSHKey(t)
	answers := collectAnswers(t,
		"node", "pve1",
		"storage", "local",
		"cpu", 2,
		"cpu_family", "host",
		"memory", 2048,
		"disk", 8,
		"vmid", 106,
		"name", "db-01",
		"image", "fedora.qcow2",
		"ssh_key_file", keyPath,
		"use_vlan", true,
		"vlan_id", 42,
		"start_vm", false,
	)

	params, err := BuildParams(answers, "/var/lib/cloud-images")
	if err != nil {
		t.Fatalf("BuildParams() unexpected error: %v", err)
	}
	if params.Spec.VLANTag != 42 {
		t.Errorf("VLANTag = %d, want 42", params.Spec.VLANTag)
	}
	if params.StartVM {
		t.Error("StartVM = true, want false")
	}
}

func TestBuildParamsMissingKeyFile(t *testing.T) {
	answers := collectAnswers(t,
		"node", "pve1",
		"ssh_key_file", filepath.Join(t.TempDir(), "missing.pub"),
	)

	if _, err := BuildParams(answers, "/var/lib/cloud-images"); err == nil {
		t.Fatal("BuildParams() expected error for missing key file")
	}
}

func TestListImages(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		"fedora.qcow2",
		"debian.img.xz",
		"alpine.iso",
		"ubuntu.raw.gz",
		"notes.txt",
		"checksum.sha256",
	}
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(dir, f), nil, 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", f, err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "archive.qcow2"), 0o755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}

	got, err := listImages(dir)
	if err != nil {
		t.Fatalf("listImages() unexpected error: %v", err)
	}

	want := []string{"alpine.iso", "debian.img.xz", "fedora.qcow2", "ubuntu.raw.gz"}
	if len(got) != len(want) {
		t.Fatalf("listImages() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("listImages()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestMaxDiskGB(t *testing.T) {
	backends := []storage.Backend{
		{Name: "local", Avail: 107374182400},
		{Name: "data", Avail: 5368709120},
	}

	if got := maxDiskGB(backends, "local"); got != 100 {
		t.Errorf("maxDiskGB(local) = %d, want 100", got)
	}
	if got := maxDiskGB(backends, "data"); got != 5 {
		t.Errorf("maxDiskGB(data) = %d, want 5", got)
	}
	if got := maxDiskGB(backends, "missing"); got != 0 {
		t.Errorf("maxDiskGB(missing) = %d, want 0", got)
	}
}

func TestValidateVMName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "simple", input: "web01"},
		{name: "hyphenated", input: "web-01"},
		{name: "single char", input: "a"},
		{name: "empty", input: "", wantErr: true},
		{name: "leading hyphen", input: "-web", wantErr: true},
		{name: "trailing hyphen", input: "web-", wantErr: true},
		{name: "uppercase", input: "Web01", wantErr: true},
		{name: "underscore", input: "web_01", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateVMName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateVMName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestCPUFamiliesIncludesHost(t *testing.T) {
	found := false
	for _, f := range CPUFamilies {
		if f == "host" {
			found = true
		}
	}
	if !found {
		t.Error(`CPUFamilies is missing "host"`)
	}
}
