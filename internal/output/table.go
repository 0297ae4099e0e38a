package output

import (
	"bytes"
	"fmt"
	"text/tabwriter"
)

// TableFormatter formats resources as human-readable tables.
type TableFormatter struct {
	// NoHeaders omits the header row.
	NoHeaders bool
}

// FormatNodes formats a list of cluster nodes as a table.
func (f *TableFormatter) FormatNodes(nodes []NodeRow) (string, error) {
	if len(nodes) == 0 {
		return "No nodes found\n", nil
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	if !f.NoHeaders {
		_, _ = fmt.Fprintln(w, "NAME\tCPUs\tSOCKETS\tMEMORY")
	}

	for _, n := range nodes {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%s\n",
			n.Name, n.CPUs, n.Sockets, formatBytes(n.MemoryBytes))
	}

	_ = w.Flush()
	return buf.String(), nil
}

// FormatStorages formats a list of storage backends as a table.
func (f *TableFormatter) FormatStorages(storages []StorageRow) (string, error) {
	if len(storages) == 0 {
		return "No storage found\n", nil
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	if !f.NoHeaders {
		_, _ = fmt.Fprintln(w, "NAME\tTYPE\tTOTAL\tUSED\tAVAIL")
	}

	for _, s := range storages {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			s.Name, s.Type,
			formatBytes(s.TotalBytes), formatBytes(s.UsedBytes), formatBytes(s.AvailBytes))
	}

	_ = w.Flush()
	return buf.String(), nil
}

// formatBytes formats a byte count as a human-readable size string.
// Examples: "512 B", "4.0 KiB", "20.5 GiB"
func formatBytes(n int64) string {
	if n < 0 {
		return "unknown"
	}

	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}

	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
