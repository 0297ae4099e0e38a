package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// passwordEnvVar overrides the api_password setting when present, so
// the password does not have to live in the config file.
const passwordEnvVar = "PVEDEPLOY_API_PASSWORD"

// Config holds the connection settings for the Proxmox cluster: the
// management API on one side, SSH to the node on the other.
type Config struct {
	APIURL         string `yaml:"api_url"`
	APIUser        string `yaml:"api_user"`
	APIPassword    string `yaml:"api_password,omitempty"`
	APIInsecureTLS bool   `yaml:"api_insecure_tls,omitempty"`

	SSHHost    string `yaml:"ssh_host,omitempty"`
	SSHPort    int    `yaml:"ssh_port,omitempty"`
	SSHUser    string `yaml:"ssh_user,omitempty"`
	SSHKeyPath string `yaml:"ssh_key_path"`

	CloudImagesDir string `yaml:"cloud_images_dir"`

	LogLevel      string `yaml:"log_level,omitempty"`
	EchoCommands  bool   `yaml:"echo_commands,omitempty"`
	CommandPrefix string `yaml:"command_prefix,omitempty"`
}

// Validate checks the configuration for errors. It does not verify
// that the endpoints are reachable, only that the settings are usable.
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("api_url is required")
	}
	u, err := url.Parse(c.APIURL)
	if err != nil {
		return fmt.Errorf("invalid api_url %q: %w", c.APIURL, err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("api_url must be an http(s) URL, got %q", c.APIURL)
	}

	if c.APIUser == "" {
		return fmt.Errorf("api_user is required")
	}
	// Proxmox users carry their authentication realm, e.g. root@pam.
	if !strings.Contains(c.APIUser, "@") {
		return fmt.Errorf("api_user must include a realm (e.g. root@pam), got %q", c.APIUser)
	}

	if c.APIPassword == "" {
		return fmt.Errorf("api_password is not set and %s is empty", passwordEnvVar)
	}

	if c.SSHPort < 1 || c.SSHPort > 65535 {
		return fmt.Errorf("ssh_port must be between 1 and 65535, got %d", c.SSHPort)
	}

	if c.CloudImagesDir == "" {
		return fmt.Errorf("cloud_images_dir is required")
	}

	return nil
}

// Normalize fills in derived values and defaults. This is called
// automatically by LoadFromFile before validation.
func (c *Config) Normalize() {
	if c.APIPassword == "" {
		c.APIPassword = os.Getenv(passwordEnvVar)
	}

	// Disk provisioning runs over SSH on the same host the API lives
	// on unless told otherwise.
	if c.SSHHost == "" {
		if u, err := url.Parse(c.APIURL); err == nil {
			c.SSHHost = u.Hostname()
		}
	}
	if c.SSHPort == 0 {
		c.SSHPort = 22
	}
	if c.SSHUser == "" {
		c.SSHUser = "root"
	}

	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// LoadFromFile loads the tool configuration from a YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	config.Normalize()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}
