package models

// AgentType is the declared role of an agent in the organization.
type AgentType string

const (
	// AgentTypeManager marks an agent that may delegate to direct reports.
	AgentTypeManager AgentType = "manager"
	// AgentTypeIndividual marks an agent that handles work itself.
	AgentTypeIndividual AgentType = "individual"
)

// Valid returns true if the type is a known value.
func (t AgentType) Valid() bool {
	switch t {
	case AgentTypeManager, AgentTypeIndividual:
		return true
	default:
		return false
	}
}

// ManifestSource records where a manifest's metadata came from.
type ManifestSource string

const (
	// ManifestSourceFrontMatter means the record was parsed from AGENTS.md front matter.
	ManifestSourceFrontMatter ManifestSource = "frontmatter"
	// ManifestSourceConfig means the record came from the config file.
	ManifestSourceConfig ManifestSource = "config"
	// ManifestSourceDerived means no explicit record existed and defaults were synthesized.
	ManifestSourceDerived ManifestSource = "derived"
)

// Delegation holds an agent's delegation capabilities.
type Delegation struct {
	// CanReceive reports whether managers may hand work to this agent.
	CanReceive bool `json:"canReceive" yaml:"canReceive"`
	// CanDelegate reports whether this agent may hand work to its reports.
	CanDelegate bool `json:"canDelegate" yaml:"canDelegate"`
}

// AgentManifest is the normalized identity and policy record for one agent.
type AgentManifest struct {
	// ID is the canonical lowercase slug.
	ID string `json:"id"`
	// Name is the display name.
	Name string `json:"name"`
	// Description is a short summary of what the agent does.
	Description string `json:"description"`
	// Type is the effective type after normalization.
	Type AgentType `json:"type"`
	// ReportsTo is the manager's id, or nil for the root manager.
	ReportsTo *string `json:"reportsTo"`
	// Discoverable reports whether the agent may be offered as a delegation target.
	Discoverable bool `json:"discoverable"`
	// Tags are normalized short keywords.
	Tags []string `json:"tags"`
	// Skills are normalized skill ids with legacy aliases rewritten.
	Skills []string `json:"skills"`
	// Delegation holds the delegation capabilities.
	Delegation Delegation `json:"delegation"`
	// Priority weights routing scores. Defaults to 50.
	Priority int `json:"priority"`
	// Provider is the provider id bound to this agent, if the source declares one.
	Provider string `json:"provider,omitempty"`
	// Body is the markdown body following the front matter.
	Body string `json:"-"`
	// Source records where the metadata came from.
	Source ManifestSource `json:"source"`
}

// ReportsToID returns the manager id or "" for a root agent.
func (m AgentManifest) ReportsToID() string {
	if m.ReportsTo == nil {
		return ""
	}
	return *m.ReportsTo
}
