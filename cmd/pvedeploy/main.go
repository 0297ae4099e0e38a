package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pvetools/pvedeploy/internal/config"
	"github.com/pvetools/pvedeploy/internal/logging"
	"github.com/pvetools/pvedeploy/internal/proxmox"
)

var (
	version = "dev"
	commit  = "unknown"
)

var (
	configPath   string
	apiURLFlag   string
	sshHostFlag  string
	outputFormat string
	noHeaders    bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "pvedeploy",
	Short: "pvedeploy - Proxmox VE cloud image deployment tool",
	Long: `pvedeploy provisions virtual machines on a Proxmox VE cluster from
cloud images.

It walks through the VM properties interactively, uploads the chosen
cloud image to the cluster, converts it into a VM disk on the selected
storage, and attaches a cloud-init seed ISO so the VM configures itself
on first boot.`,
	Version: fmt.Sprintf("%s (commit: %s)", version, commit),
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "pvedeploy.yaml", "Path to the configuration file")
	rootCmd.PersistentFlags().StringVar(&apiURLFlag, "api-url", "", "Override the api_url setting")
	rootCmd.PersistentFlags().StringVar(&sshHostFlag, "ssh-host", "", "Override the ssh_host setting")

	nodesCmd.Flags().StringVarP(&outputFormat, "output", "o", "table", "Output format (table, yaml, json)")
	nodesCmd.Flags().BoolVar(&noHeaders, "no-headers", false, "Omit headers in table output")
	storagesCmd.Flags().StringVarP(&outputFormat, "output", "o", "table", "Output format (table, yaml, json)")
	storagesCmd.Flags().BoolVar(&noHeaders, "no-headers", false, "Omit headers in table output")

	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(nodesCmd)
	rootCmd.AddCommand(storagesCmd)
}

// setup loads the configuration, builds the logger, and connects to
// the management API. Shared by every subcommand.
func setup(ctx context.Context) (*config.Config, *logrus.Logger, *proxmox.Client, error) {
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	if apiURLFlag != "" {
		cfg.APIURL = apiURLFlag
	}
	if sshHostFlag != "" {
		cfg.SSHHost = sshHostFlag
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, err
	}

	log := logging.New(cfg.LogLevel)

	client, err := proxmox.NewClient(ctx, cfg.APIURL, cfg.APIUser, cfg.APIPassword, cfg.APIInsecureTLS, logging.Component(log, "api"))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect to the Proxmox API: %w", err)
	}

	return cfg, log, client, nil
}
