package output

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// YAMLFormatter formats resources as YAML.
type YAMLFormatter struct{}

// FormatNodes formats a list of cluster nodes as YAML.
func (f *YAMLFormatter) FormatNodes(nodes []NodeRow) (string, error) {
	if len(nodes) == 0 {
		return "", nil
	}

	data, err := yaml.Marshal(nodes)
	if err != nil {
		return "", fmt.Errorf("failed to marshal nodes to YAML: %w", err)
	}

	return string(data), nil
}

// FormatStorages formats a list of storage backends as YAML.
func (f *YAMLFormatter) FormatStorages(storages []StorageRow) (string, error) {
	if len(storages) == 0 {
		return "", nil
	}

	data, err := yaml.Marshal(storages)
	if err != nil {
		return "", fmt.Errorf("failed to marshal storages to YAML: %w", err)
	}

	return string(data), nil
}
