package proxmox

import (
	"errors"
	"testing"
)

func TestNodeStatusLimits(t *testing.T) {
	tests := []struct {
		name      string
		status    NodeStatus
		wantCPUs  int
		wantMemMB int
	}{
		{
			name:      "single socket",
			status:    NodeStatus{CPUs: 16, Sockets: 1, MemoryBytes: 68719476736},
			wantCPUs:  16,
			wantMemMB: 65536,
		},
		{
			name:      "dual socket",
			status:    NodeStatus{CPUs: 32, Sockets: 2, MemoryBytes: 137438953472},
			wantCPUs:  64,
			wantMemMB: 131072,
		},
		{
			name:      "memory rounds down",
			status:    NodeStatus{CPUs: 4, Sockets: 1, MemoryBytes: 1048577},
			wantCPUs:  4,
			wantMemMB: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.MaxCPUs(); got != tt.wantCPUs {
				t.Errorf("MaxCPUs() = %d, want %d", got, tt.wantCPUs)
			}
			if got := tt.status.MaxMemoryMB(); got != tt.wantMemMB {
				t.Errorf("MaxMemoryMB() = %d, want %d", got, tt.wantMemMB)
			}
		})
	}
}

func TestApiErrorUnwrap(t *testing.T) {
	inner := errors.New("596 connection timed out")
	err := &ApiError{Op: "create vm 105", Err: inner}

	if !errors.Is(err, inner) {
		t.Error("ApiError does not unwrap to the inner error")
	}
	want := "proxmox api: create vm 105: 596 connection timed out"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
