package n8n

import (
	"fmt"
	"time"
)

// EngineCallError is any non-2xx response from the workflow engine. The
// caller decides per operation whether it is fatal.
type EngineCallError struct {
	StatusCode int
	Message    string
}

func (e *EngineCallError) Error() string {
	return fmt.Sprintf("engine call failed with status %d: %s", e.StatusCode, e.Message)
}

// EngineUser is a user account inside the workflow engine.
type EngineUser struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// UserProvision links a marketplace user to an engine identity. APIKey is the
// personal key when one could be minted, or the administrative key otherwise.
type UserProvision struct {
	UserID string
	APIKey string
}

// WorkflowSummary is one entry of the engine's workflow listing.
type WorkflowSummary struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Active    bool       `json:"active"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// CreatedWorkflow is the result of a successful workflow creation. WebhookURL
// is derived from the created document's trigger node and is empty when the
// document has no trigger.
type CreatedWorkflow struct {
	ID         string
	WebhookURL string
}

// ExecutionSummary is one entry of the engine's execution listing.
type ExecutionSummary struct {
	ID         int64      `json:"id"`
	WorkflowID string     `json:"workflowId,omitempty"`
	Status     string     `json:"status,omitempty"`
	Finished   bool       `json:"finished,omitempty"`
	Mode       string     `json:"mode,omitempty"`
	StartedAt  *time.Time `json:"startedAt,omitempty"`
	StoppedAt  *time.Time `json:"stoppedAt,omitempty"`
}

// ExecutionListOptions filters an execution listing.
type ExecutionListOptions struct {
	Limit  int
	Status string
}
