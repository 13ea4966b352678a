package domain

// ProcessStatus is the lifecycle stage of a process.
type ProcessStatus string

const (
	StatusCreated     ProcessStatus = "created"     // Instantiated for the run, no hook ran yet
	StatusInitialized ProcessStatus = "initialized" // Initializer ran
	StatusRunning     ProcessStatus = "running"     // Initiated or received at least one message
	StatusTerminated  ProcessStatus = "terminated"  // Self-declared end state (absorbing)
	StatusErrored     ProcessStatus = "errored"     // A hook failed (absorbing)
)

// Final reports whether the status is absorbing.
func (s ProcessStatus) Final() bool {
	return s == StatusTerminated || s == StatusErrored
}

// Parent is the parent a process declared for itself.
// The zero value means no parent.
type Parent struct {
	// Self is set when the process is its own parent (the root of a tree).
	Self bool `json:"self,omitempty"`
	// Channel is the label of the channel leading to the parent.
	Channel string `json:"channel,omitempty"`
}

// IsZero reports whether no parent was declared.
func (p Parent) IsZero() bool {
	return !p.Self && p.Channel == ""
}

func (p Parent) String() string {
	switch {
	case p.Self:
		return "self"
	case p.Channel != "":
		return p.Channel
	default:
		return ""
	}
}

// ProcessSnapshot is the externally visible state of a process, for rendering and reporting.
type ProcessSnapshot struct {
	ID        VertexID       `json:"id"`
	Label     string         `json:"label"`
	Initiator bool           `json:"initiator,omitempty"`
	Status    ProcessStatus  `json:"status"`
	Decided   bool           `json:"decided,omitempty"`
	Parent    Parent         `json:"parent"`
	Sent      int            `json:"sent"`
	Received  int            `json:"received"`
	Fields    map[string]any `json:"fields,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// Report summarizes a settle pass over the simulation.
type Report struct {
	RunID     string            `json:"run_id"`
	Now       float64           `json:"now"` // simulated units
	InFlight  int               `json:"in_flight"`
	Quiescent bool              `json:"quiescent"`
	Delivered int               `json:"delivered"`
	Processes []ProcessSnapshot `json:"processes"`
}
