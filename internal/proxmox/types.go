package proxmox

import "fmt"

// VmSpec describes the virtual machine skeleton to create. It is
// assembled from user input before any disk operation and must not be
// modified once CreateVM has been invoked for it.
type VmSpec struct {
	Node      string
	VMID      int
	Name      string
	CPUs      int
	CPUFamily string
	MemoryMB  int
	// VLANTag is the VLAN id for the virtual NIC; 0 means untagged.
	VLANTag int
}

// NodeStatus reports the capacity of a cluster node.
type NodeStatus struct {
	CPUs        int
	Sockets     int
	MemoryBytes int64
}

// MaxCPUs returns the number of CPUs a VM on this node may use.
func (s NodeStatus) MaxCPUs() int {
	return s.CPUs * s.Sockets
}

// MaxMemoryMB returns the node memory in megabytes, rounded down.
func (s NodeStatus) MaxMemoryMB() int {
	return int(s.MemoryBytes / (1024 * 1024))
}

// ApiError reports a failed management-API operation.
type ApiError struct {
	Op  string
	Err error
}

func (e *ApiError) Error() string {
	return fmt.Sprintf("proxmox api: %s: %v", e.Op, e.Err)
}

func (e *ApiError) Unwrap() error {
	return e.Err
}
