package routing

import (
	"context"
	"fmt"
	"strings"

	"github.com/ShayCichocki/herd/pkg/models"
)

// ManifestLister is the part of the organization graph routing reads.
type ManifestLister interface {
	ListManifests(ctx context.Context) ([]models.AgentManifest, error)
	RootID() string
}

// Route lists the current manifests, resolves the entry agent and decides.
func (e *Engine) Route(ctx context.Context, graph ManifestLister, entryAgentID, message string) (models.RoutingDecision, error) {
	manifests, err := graph.ListManifests(ctx)
	if err != nil {
		return models.RoutingDecision{}, fmt.Errorf("list manifests: %w", err)
	}
	entry := ResolveEntryAgent(entryAgentID, graph.RootID(), manifests)
	return e.Decide(entry, message, manifests), nil
}

// ResolveEntryAgent maps a requested entry id onto a known agent. Unknown ids
// fall back to the root manager, then to the first manifest, then to the
// requested id itself.
func ResolveEntryAgent(entryAgentID, rootID string, manifests []models.AgentManifest) string {
	requested := strings.ToLower(strings.TrimSpace(entryAgentID))
	if requested == "" {
		requested = rootID
	}
	if _, ok := findManifest(manifests, requested); ok {
		return requested
	}
	if _, ok := findManifest(manifests, rootID); ok {
		return rootID
	}
	if len(manifests) > 0 {
		return manifests[0].ID
	}
	return requested
}
