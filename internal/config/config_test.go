package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pvedeploy.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
api_url: https://pve1.example.com:8006
api_user: deploy@pve
api_password: sekrit
ssh_key_path: /root/.ssh/id_ed25519
cloud_images_dir: /var/lib/cloud-images
`)

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() unexpected error: %v", err)
	}

	if cfg.APIURL != "https://pve1.example.com:8006" {
		t.Errorf("APIURL = %q", cfg.APIURL)
	}
	if cfg.APIUser != "deploy@pve" {
		t.Errorf("APIUser = %q", cfg.APIUser)
	}

	// Defaults filled in by Normalize.
	if cfg.SSHHost != "pve1.example.com" {
		t.Errorf("SSHHost = %q, want the API host", cfg.SSHHost)
	}
	if cfg.SSHPort != 22 {
		t.Errorf("SSHPort = %d, want 22", cfg.SSHPort)
	}
	if cfg.SSHUser != "root" {
		t.Errorf("SSHUser = %q, want root", cfg.SSHUser)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
}

func TestLoadFromFileExplicitSSH(t *testing.T) {
	path := writeConfig(t, `
api_url: https://pve1.example.com:8006
api_user: root@pam
api_password: sekrit
ssh_host: 10.0.0.5
ssh_port: 2222
ssh_user: provision
ssh_key_path: /root/.ssh/id_ed25519
cloud_images_dir: /var/lib/cloud-images
log_level: debug
`)

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() unexpected error: %v", err)
	}

	if cfg.SSHHost != "10.0.0.5" {
		t.Errorf("SSHHost = %q, explicit value was overridden", cfg.SSHHost)
	}
	if cfg.SSHPort != 2222 {
		t.Errorf("SSHPort = %d, explicit value was overridden", cfg.SSHPort)
	}
	if cfg.SSHUser != "provision" {
		t.Errorf("SSHUser = %q, explicit value was overridden", cfg.SSHUser)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, explicit value was overridden", cfg.LogLevel)
	}
}

func TestLoadFromFilePasswordFromEnv(t *testing.T) {
	t.Setenv("PVEDEPLOY_API_PASSWORD", "from-env")

	path := writeConfig(t, `
api_url: https://pve1.example.com:8006
api_user: root@pam
ssh_key_path: /root/.ssh/id_ed25519
cloud_images_dir: /var/lib/cloud-images
`)

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() unexpected error: %v", err)
	}
	if cfg.APIPassword != "from-env" {
		t.Errorf("APIPassword = %q, want the environment value", cfg.APIPassword)
	}
}

func TestLoadFromFileValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantIn  string
	}{
		{
			name: "missing api_url",
			content: `
api_user: root@pam
api_password: x
cloud_images_dir: /var/lib/cloud-images
`,
			wantIn: "api_url",
		},
		{
			name: "api_url not http",
			content: `
api_url: ftp://pve1.example.com
api_user: root@pam
api_password: x
cloud_images_dir: /var/lib/cloud-images
`,
			wantIn: "api_url",
		},
		{
			name: "user without realm",
			content: `
api_url: https://pve1.example.com:8006
api_user: root
api_password: x
cloud_images_dir: /var/lib/cloud-images
`,
			wantIn: "realm",
		},
		{
			name: "missing password",
			content: `
api_url: https://pve1.example.com:8006
api_user: root@pam
cloud_images_dir: /var/lib/cloud-images
`,
			wantIn: "api_password",
		},
		{
			name: "bad ssh port",
			content: `
api_url: https://pve1.example.com:8006
api_user: root@pam
api_password: x
ssh_port: 70000
cloud_images_dir: /var/lib/cloud-images
`,
			wantIn: "ssh_port",
		},
		{
			name: "missing images dir",
			content: `
api_url: https://pve1.example.com:8006
api_user: root@pam
api_password: x
`,
			wantIn: "cloud_images_dir",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("PVEDEPLOY_API_PASSWORD", "")
			path := writeConfig(t, tt.content)
			_, err := LoadFromFile(path)
			if err == nil {
				t.Fatal("LoadFromFile() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantIn) {
				t.Errorf("error = %v, want mention of %q", err, tt.wantIn)
			}
		})
	}
}

func TestLoadFromFileMissingFile(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("LoadFromFile() expected error for missing file")
	}
}

func TestLoadFromFileBadYAML(t *testing.T) {
	path := writeConfig(t, "api_url: [unclosed")
	if _, err := LoadFromFile(path); err == nil {
		t.Fatal("LoadFromFile() expected error for bad YAML")
	}
}
