package model

type StepStatus string

const (
	StepStatusPending    StepStatus = "pending"
	StepStatusInProgress StepStatus = "in_progress"
	StepStatusCompleted  StepStatus = "completed"
)

func (s StepStatus) Valid() bool {
	switch s {
	case StepStatusPending, StepStatusInProgress, StepStatusCompleted:
		return true
	}
	return false
}

// Step position within its workflow is its identity: there is no
// independent step id, partial updates address (workflow id, index).
type Step struct {
	Title      string     `json:"title" validate:"required"`
	AssignedTo string     `json:"assigned_to" validate:"required"`
	Status     StepStatus `json:"status,omitempty" validate:"omitempty,oneof=pending in_progress completed"`
}

type Workflow struct {
	ID    int64  `json:"id"`
	Title string `json:"title" validate:"required"`
	Steps []Step `json:"steps"`
}

// StepPatch carries the optional fields of a partial step update.
type StepPatch struct {
	Title      *string     `json:"title,omitempty"`
	AssignedTo *string     `json:"assigned_to,omitempty"`
	Status     *StepStatus `json:"status,omitempty" validate:"omitempty,oneof=pending in_progress completed"`
}

type WorkflowStats struct {
	Total           int `json:"total"`
	WithSteps       int `json:"with_steps"`
	WithoutSteps    int `json:"without_steps"`
	TotalSteps      int `json:"total_steps"`
	PendingSteps    int `json:"pending_steps"`
	InProgressSteps int `json:"in_progress_steps"`
	CompletedSteps  int `json:"completed_steps"`
}

type AnalyticsOverview struct {
	Workflows WorkflowStats `json:"workflows"`
	Team      TeamStats     `json:"team"`
}
