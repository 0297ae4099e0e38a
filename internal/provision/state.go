package provision

// State tracks how far a provisioning run has progressed.
//
// A run moves Created → SeedAttached → BaseDiskAttached →
// SerialAttached → Started or Stopped → Done; Failed is reachable from
// any non-terminal state.
type State string

const (
	// StateCreated is set once the VM skeleton exists.
	StateCreated State = "Created"
	// StateSeedAttached is set once the cloud-init seed disk is
	// uploaded and attached.
	StateSeedAttached State = "SeedAttached"
	// StateBaseDiskAttached is set once the base disk is uploaded,
	// attached and resized.
	StateBaseDiskAttached State = "BaseDiskAttached"
	// StateSerialAttached is set once the serial console is attached.
	StateSerialAttached State = "SerialAttached"
	// StateStarted is set when the VM was started on request.
	StateStarted State = "Started"
	// StateStopped is set when no start was requested.
	StateStopped State = "Stopped"
	// StateDone is the terminal success state.
	StateDone State = "Done"
	// StateFailed is the terminal failure state.
	StateFailed State = "Failed"
)

// IsTerminal returns true for the two states a run can end in.
func (s State) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}
