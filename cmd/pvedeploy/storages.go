package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pvetools/pvedeploy/internal/output"
)

var storagesNode string

func init() {
	storagesCmd.Flags().StringVar(&storagesNode, "node", "", "Node to list storage for (default: first node)")
}

var storagesCmd = &cobra.Command{
	Use:   "storages",
	Short: "List image-capable storage",
	Long: `List the storage backends of a node that can hold VM disk images.

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

		node := storagesNode
		if node == "" {
			names, err := client.Nodes(ctx)
			if err != nil {
				return fmt.Errorf("failed to list nodes: %w", err)
			}
			if len(names) == 0 {
				return fmt.Errorf("cluster reports no nodes")
			}
			node = names[0]
		}

		backends, err := client.Storages(ctx, node)
		if err != nil {
			return fmt.Errorf("failed to list storage on node %s: %w", node, err)
		}

		rows := make([]output.StorageRow, 0, len(backends))
		for _, b := range backends {
			rows = append(rows, output.StorageRow{
				Name:       b.Name,
				Type:       string(b.Type),
				TotalBytes: b.Total,
				UsedBytes:  b.Used,
				AvailBytes: b.Avail,
			})
		}

		formatter, err := output.NewFormatter(output.Options{
			Format:    output.Format(outputFormat),
			NoHeaders: noHeaders,
		})
		if err != nil {
			return err
		}

		result, err := formatter.FormatStorages(rows)
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}

		fmt.Print(result)
		return nil
	},
}
