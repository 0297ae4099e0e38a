// Package output provides formatters for displaying cluster resources
// in various formats (table, YAML, JSON).
package output

import "fmt"

// Format represents an output format type.
type Format string

const (
	// FormatTable is a human-readable table format.
	FormatTable Format = "table"
	// FormatYAML is a YAML format for declarative configs.
	FormatYAML Format = "yaml"
	// FormatJSON is a JSON format for machine consumption.
	FormatJSON Format = "json"
)

// NodeRow is one node in a listing.
type NodeRow struct {
	Name        string `json:"name" yaml:"name"`
	CPUs        int    `json:"cpus" yaml:"cpus"`
	Sockets     int    `json:"sockets" yaml:"sockets"`
	MemoryBytes int64  `json:"memoryBytes" yaml:"memoryBytes"`
}

// StorageRow is one storage backend in a listing.
type StorageRow struct {
	Name       string `json:"name" yaml:"name"`
	Type       string `json:"type" yaml:"type"`
	TotalBytes int64  `json:"totalBytes" yaml:"totalBytes"`
	UsedBytes  int64  `json:"usedBytes" yaml:"usedBytes"`
	AvailBytes int64  `json:"availBytes" yaml:"availBytes"`
}

// Formatter formats cluster resources for output.
type Formatter interface {
	// FormatNodes formats a list of cluster nodes.
	FormatNodes(nodes []NodeRow) (string, error)

	// FormatStorages formats a list of storage backends.
	FormatStorages(storages []StorageRow) (string, error)
}

// Options contains options for formatting output.
type Options struct {
	// Format specifies the output format.
	Format Format
	// NoHeaders omits headers in table format.
	NoHeaders bool
}

// NewFormatter creates a new Formatter based on the specified format.
func NewFormatter(opts Options) (Formatter, error) {
	switch opts.Format {
	case FormatTable:
		return &TableFormatter{NoHeaders: opts.NoHeaders}, nil
	case FormatYAML:
		return &YAMLFormatter{}, nil
	case FormatJSON:
		return &JSONFormatter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s (supported: table, yaml, json)", opts.Format)
	}
}

// ValidateFormat checks if a format string is valid.
func ValidateFormat(format string) error {
	f := Format(format)
	switch f {
	case FormatTable, FormatYAML, FormatJSON:
		return nil
	default:
		return fmt.Errorf("invalid format: %s (valid formats: table, yaml, json)", format)
	}
}
