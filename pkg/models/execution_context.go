package models

// Well-known variable keys passed between node executors. An AI node writes
// both; email and SMS nodes read them ahead of their own config.
const (
	VarAIGeneratedMessage = "aiGeneratedMessage"
	VarAIGeneratedSubject = "aiGeneratedSubject"
)

// ExecutionContext is the in-memory state of one run, owned exclusively by the
// worker processing it. Lead and Persona are point-in-time snapshots loaded at
// run start; Variables is shared by reference across the whole traversal, so
// the last writer on a given path wins.
type ExecutionContext struct {
	WorkflowID  string
	ExecutionID string
	LeadID      string
	Lead        *Lead
	PersonaID   string
	Persona     *Persona
	Variables   map[string]any
}

// NewExecutionContext builds the context for a run from loaded snapshots.
func NewExecutionContext(execution *WorkflowExecution, lead *Lead, persona *Persona) *ExecutionContext {
	ctx := &ExecutionContext{
		WorkflowID:  execution.WorkflowID,
		ExecutionID: execution.ID,
		LeadID:      execution.LeadID,
		Lead:        lead,
		Persona:     persona,
		Variables:   make(map[string]any),
	}
	if persona != nil {
		ctx.PersonaID = persona.ID
	}

	return ctx
}

// StringVar returns a string variable, or the empty string when unset.
func (c *ExecutionContext) StringVar(key string) string {
	if s, ok := c.Variables[key].(string); ok {
		return s
	}

	return ""
}
