package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/pvetools/pvedeploy/internal/cloudinit"
	"github.com/pvetools/pvedeploy/internal/logging"
	"github.com/pvetools/pvedeploy/internal/provision"
	"github.com/pvetools/pvedeploy/internal/remote"
	"github.com/pvetools/pvedeploy/internal/uploader"
	"github.com/pvetools/pvedeploy/internal/wizard"
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy a VM from a cloud image",
	Long: `Deploy a new virtual machine interactively.

The command asks for the VM properties (node, storage, resources,
cloud image, SSH key), then creates the VM, provisions its disks on
the cluster, and optionally starts it.

Aborting the questionnaire cancels the deployment without error.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		cfg, log, client, err := setup(ctx)
		if err != nil {
			return err
		}

		answers, err := wizard.Run(ctx, client, cfg.CloudImagesDir)
		if err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				log.Info("Deployment aborted by user")
				return nil
			}
			return err
		}

		params, err := wizard.BuildParams(answers, cfg.CloudImagesDir)
		if err != nil {
			return err
		}

		executor, err := remote.Connect(remote.Config{
			Host:          cfg.SSHHost,
			Port:          cfg.SSHPort,
			User:          cfg.SSHUser,
			KeyPath:       cfg.SSHKeyPath,
			EchoCommands:  cfg.EchoCommands,
			CommandPrefix: cfg.CommandPrefix,
		}, logging.Component(log, "ssh"))
		if err != nil {
			return fmt.Errorf("failed to connect to %s over SSH: %w", cfg.SSHHost, err)
		}
		defer func() {
			if closeErr := executor.Close(); closeErr != nil {
				log.WithError(closeErr).Warn("Failed to close SSH connection")
			}
		}()

		provisioner := provision.New(
			client,
			uploader.New(executor, client, logging.Component(log, "uploader")),
			cloudinit.NewBuilder(logging.Component(log, "cloudinit")),
			logging.Component(log, "provision"),
		)

		if err := provisioner.Run(ctx, params); err != nil {
			// Remote command failures carry the command's output,
			// which is usually the part worth reading.
			var detailed interface{ CommandOutput() (string, string) }
			if errors.As(err, &detailed) {
				stdout, stderr := detailed.CommandOutput()
				if stdout != "" {
					fmt.Fprintf(os.Stderr, "stdout:\n%s\n", stdout)
				}
				if stderr != "" {
					fmt.Fprintf(os.Stderr, "stderr:\n%s\n", stderr)
				}
			}
			return fmt.Errorf("deployment failed: %w", err)
		}

		fmt.Printf("✓ VM %d (%s) deployed successfully!\n", params.Spec.VMID, params.Spec.Name)
		return nil
	},
}
