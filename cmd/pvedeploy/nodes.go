package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pvetools/pvedeploy/internal/output"
)

var nodesCmd = &cobra.Command{
	Use:   "nodes",
	Short: "List cluster nodes",
	Long: `List the nodes of the Proxmox cluster with their capacity.

Output formats:
  -o table  Human-readable table (default)
  -o yaml   YAML listing
  -o json   JSON listing`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := output.ValidateFormat(outputFormat); err != nil {
			return err
		}

		ctx := context.Background()
		_, _, client, err := setup(ctx)
		if err != nil {
			return err
		}

		names, err := client.Nodes(ctx)
		if err != nil {
			return fmt.Errorf("failed to list nodes: %w", err)
		}

		rows := make([]output.NodeRow, 0, len(names))
		for _, name := range names {
			status, err := client.NodeStatus(ctx, name)
			if err != nil {
				return fmt.Errorf("failed to get status of node %s: %w", name, err)
			}
			rows = append(rows, output.NodeRow{
				Name:        name,
				CPUs:        status.CPUs,
				Sockets:     status.Sockets,
				MemoryBytes: status.MemoryBytes,
			})
		}

		formatter, err := output.NewFormatter(output.Options{
			Format:    output.Format(outputFormat),
			NoHeaders: noHeaders,
		})
		if err != nil {
			return err
		}

		result, err := formatter.FormatNodes(rows)
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}

		fmt.Print(result)
		return nil
	},
}
