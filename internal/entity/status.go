package entity

// Status represents the workflow state of a task.
type Status string

const (
	StatusPlanning   Status = "planning"
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

// ValidStatuses returns all valid task status values.
func ValidStatuses() []Status {
	return []Status{StatusPlanning, StatusTodo, StatusInProgress, StatusDone}
}

// IsValidStatus returns true if the status is a valid task status value.
func IsValidStatus(s Status) bool {
	switch s {
	case StatusPlanning, StatusTodo, StatusInProgress, StatusDone:
		return true
	default:
		return false
	}
}

// EpicStatus represents the workflow state of an epic.
type EpicStatus string

const (
	EpicStatusOpen       EpicStatus = "open"
	EpicStatusInProgress EpicStatus = "in_progress"
	EpicStatusDone       EpicStatus = "done"
)

// IsValidEpicStatus returns true if the status is a valid epic status value.
func IsValidEpicStatus(s EpicStatus) bool {
	switch s {
	case EpicStatusOpen, EpicStatusInProgress, EpicStatusDone:
		return true
	default:
		return false
	}
}

// Visibility controls who can see a project.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// IsValidVisibility returns true if the visibility is a valid value.
func IsValidVisibility(v Visibility) bool {
	return v == VisibilityPublic || v == VisibilityPrivate
}

// Priority bounds. Lower values sort first in the ready queue.
const (
	PriorityHigh   = 0
	PriorityMedium = 1
	PriorityLow    = 2
)

// IsValidPriority returns true if p is within the allowed range.
func IsValidPriority(p int) bool {
	return p >= PriorityHigh && p <= PriorityLow
}

// EffectivePriority returns the priority used for ready-queue ordering.
// An unset priority orders as low without being rewritten in storage.
func EffectivePriority(p *int) int {
	if p == nil {
		return PriorityLow
	}
	return *p
}
