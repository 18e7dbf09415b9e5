package domain

// ExecutionStatus is the lifecycle stage of a node's most recent (or
// current) run.
type ExecutionStatus string

const (
	StatusPending   ExecutionStatus = "pending"
	StatusQueued    ExecutionStatus = "queued"
	StatusRunning   ExecutionStatus = "running"
	StatusCompleted ExecutionStatus = "completed"
	StatusFailed    ExecutionStatus = "failed"
	// StatusUnknown is unreachable by normal flow; it exists for operator
	// override through the Inspector.
	StatusUnknown ExecutionStatus = "unknown"
)

// Valid reports whether s is a member of the status enumeration.
func (s ExecutionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusQueued, StatusRunning, StatusCompleted,
		StatusFailed, StatusUnknown:
		return true
	}
	return false
}

// Terminal reports whether s ends a run.
func (s ExecutionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}
