package org

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/ShayCichocki/herd/internal/logging"
	"github.com/ShayCichocki/herd/pkg/models"
)

// ErrInvalidAgentID is returned for ids that normalize to nothing.
var ErrInvalidAgentID = errors.New("invalid agent id")

// Graph is the normalized, read-only view of every agent manifest.
// Nothing is cached: every call reads the source again.
type Graph struct {
	source Source
	rootID string
	logger *slog.Logger
}

// Option configures a Graph.
type Option func(*Graph)

// WithLogger sets the logger used for degraded-manifest warnings.
func WithLogger(l *slog.Logger) Option {
	return func(g *Graph) {
		if l != nil {
			g.logger = l
		}
	}
}

// New creates a Graph over source with rootID as the root manager.
func New(source Source, rootID string, opts ...Option) *Graph {
	g := &Graph{
		source: source,
		rootID: NormalizeID(rootID),
		logger: logging.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// RootID returns the root manager id.
func (g *Graph) RootID() string {
	return g.rootID
}

// ListManifests returns every known agent's manifest sorted by id ascending.
// The order is the routing tie-break order.
func (g *Graph) ListManifests(ctx context.Context) ([]models.AgentManifest, error) {
	ids, err := g.source.IDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list agent ids: %w", err)
	}

	manifests := make([]models.AgentManifest, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		m, err := g.load(ctx, id)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		manifests = append(manifests, m)
	}

	sort.SliceStable(manifests, func(i, j int) bool {
		return manifests[i].ID < manifests[j].ID
	})
	return manifests, nil
}

// GetManifest returns the manifest for agentID. A missing record is not an
// error: a default manifest is synthesized instead.
func (g *Graph) GetManifest(ctx context.Context, agentID string) (models.AgentManifest, error) {
	id := NormalizeID(agentID)
	if id == "" {
		return models.AgentManifest{}, fmt.Errorf("%w: %q", ErrInvalidAgentID, agentID)
	}
	return g.load(ctx, id)
}

// Exists reports whether the source has any entry for agentID.
func (g *Graph) Exists(ctx context.Context, agentID string) (bool, error) {
	id := NormalizeID(agentID)
	ids, err := g.source.IDs(ctx)
	if err != nil {
		return false, fmt.Errorf("list agent ids: %w", err)
	}
	for _, candidate := range ids {
		if NormalizeID(candidate) == id {
			return true, nil
		}
	}
	return false, nil
}

// DirectReports returns the manifests whose reportsTo is managerID, sorted by id.
func (g *Graph) DirectReports(ctx context.Context, managerID string) ([]models.AgentManifest, error) {
	all, err := g.ListManifests(ctx)
	if err != nil {
		return nil, err
	}
	return directReports(all, NormalizeID(managerID)), nil
}

// AllReportees returns every agent below managerID, breadth first.
// Cycles in reportsTo edges are tolerated.
func (g *Graph) AllReportees(ctx context.Context, managerID string) ([]models.AgentManifest, error) {
	all, err := g.ListManifests(ctx)
	if err != nil {
		return nil, err
	}

	root := NormalizeID(managerID)
	visited := map[string]bool{root: true}
	var out []models.AgentManifest
	queue := []string{root}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, m := range directReports(all, current) {
			if visited[m.ID] {
				continue
			}
			visited[m.ID] = true
			out = append(out, m)
			queue = append(queue, m.ID)
		}
	}
	return out, nil
}

func directReports(all []models.AgentManifest, managerID string) []models.AgentManifest {
	var out []models.AgentManifest
	for _, m := range all {
		if m.ID != managerID && IsDirectReport(m, managerID) {
			out = append(out, m)
		}
	}
	return out
}

func (g *Graph) load(ctx context.Context, id string) (models.AgentManifest, error) {
	rec, found, err := g.source.Load(ctx, id)
	if err != nil {
		if ctx.Err() != nil {
			return models.AgentManifest{}, err
		}
		// A malformed record degrades to defaults rather than hiding the agent.
		g.logger.Warn("manifest unreadable, using defaults", "agent", id, "error", err)
		found = false
	}

	var md Metadata
	if found && rec.Metadata != nil {
		md = DecodeMetadata(rec.Metadata)
		// The id the record is stored under is authoritative.
		md.ID = nil
	}

	m := Normalize(id, rec.DisplayName, g.rootID, md)
	m.Body = rec.Body
	m.Source = rec.Source
	if !found || rec.Metadata == nil {
		m.Source = models.ManifestSourceDerived
	}
	return m, nil
}
