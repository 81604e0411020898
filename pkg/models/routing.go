package models

import "time"

// TraceSchemaVersion is the version written into every run trace.
const TraceSchemaVersion = 1

// RoutingCandidate is one scored direct report considered for delegation.
type RoutingCandidate struct {
	AgentID      string   `json:"agentId"`
	AgentName    string   `json:"agentName"`
	Score        float64  `json:"score"`
	MatchedTerms []string `json:"matchedTerms"`
	Reason       string   `json:"reason"`
}

// RoutingDecision is the result of one delegation decision.
type RoutingDecision struct {
	// EntryAgentID is the agent that received the message.
	EntryAgentID string `json:"entryAgentId"`
	// TargetAgentID is the agent that will handle it. Equals EntryAgentID when
	// no delegation occurs.
	TargetAgentID string `json:"targetAgentId"`
	// Confidence is in [0,1], rounded to 2 decimals.
	Confidence float64 `json:"confidence"`
	// Reason is human-readable.
	Reason string `json:"reason"`
	// RewrittenMessage is the message as sent to the target.
	RewrittenMessage string `json:"rewrittenMessage"`
	// Candidates are ordered by score descending.
	Candidates []RoutingCandidate `json:"candidates"`
}

// Delegated reports whether the decision hands the message to another agent.
func (d RoutingDecision) Delegated() bool {
	return d.TargetAgentID != d.EntryAgentID
}

// Execution records one provider invocation.
type Execution struct {
	AgentID    string `json:"agentId"`
	ProviderID string `json:"providerId"`
	ExitCode   int    `json:"code"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	DurationMs int64  `json:"durationMs"`
}

// RunTrace is the immutable audit record of one orchestration run.
type RunTrace struct {
	SchemaVersion int             `json:"schemaVersion"`
	RunID         string          `json:"runId"`
	StartedAt     time.Time       `json:"startedAt"`
	CompletedAt   time.Time       `json:"completedAt"`
	EntryAgentID  string          `json:"entryAgentId"`
	UserMessage   string          `json:"userMessage"`
	Routing       RoutingDecision `json:"routing"`
	Execution     Execution       `json:"execution"`
}
