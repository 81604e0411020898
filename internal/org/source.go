package org

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ShayCichocki/herd/pkg/models"
)

// ManifestFileName is the per-agent manifest inside a workspace directory.
const ManifestFileName = "AGENTS.md"

// WorkspaceMetadataFileName holds optional workspace metadata such as displayName.
const WorkspaceMetadataFileName = "workspace.json"

// Record is one agent's raw manifest data as read from a Source.
type Record struct {
	// AgentID is the id the record was requested under.
	AgentID string
	// DisplayName is a fallback name when the metadata has none.
	DisplayName string
	// Metadata is the raw front matter or config bag.
	Metadata map[string]any
	// Body is free-form text following the metadata.
	Body string
	// Source tags the origin for auditing.
	Source models.ManifestSource
}

// Source is a read-only provider of manifest records.
type Source interface {
	// IDs lists every agent id the source knows about.
	IDs(ctx context.Context) ([]string, error)
	// Load reads the record for agentID. The boolean is false when the source
	// has no explicit record; the returned Record may still carry a DisplayName.
	Load(ctx context.Context, agentID string) (Record, bool, error)
}

// DirSource reads manifests from <dir>/<agent-id>/AGENTS.md.
type DirSource struct {
	dir string
}

// NewDirSource creates a source rooted at the workspaces directory.
func NewDirSource(dir string) *DirSource {
	return &DirSource{dir: dir}
}

// Dir returns the workspaces directory.
func (s *DirSource) Dir() string {
	return s.dir
}

// IDs lists the agent workspace directories.
func (s *DirSource) IDs(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list workspaces: %w", err)
	}

	var ids []string
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		ids = append(ids, e.Name())
	}
	return ids, nil
}

// Load reads the workspace's AGENTS.md and workspace.json.
func (s *DirSource) Load(ctx context.Context, agentID string) (Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, false, err
	}

	workspace := s.workspaceDir(agentID)
	rec := Record{
		AgentID:     agentID,
		DisplayName: readDisplayName(workspace),
		Source:      models.ManifestSourceDerived,
	}

	data, err := os.ReadFile(filepath.Join(workspace, ManifestFileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return rec, false, nil
		}
		return rec, false, fmt.Errorf("read manifest %s: %w", agentID, err)
	}

	parsed, err := ParseManifestMarkdown(string(data))
	rec.Body = parsed.Body
	if err != nil {
		return rec, false, fmt.Errorf("manifest %s: %w", agentID, err)
	}
	if parsed.HasFrontMatter {
		rec.Metadata = parsed.Metadata
		rec.Source = models.ManifestSourceFrontMatter
	}
	return rec, true, nil
}

// workspaceDir returns the directory for agentID. An exact name wins; otherwise
// the first directory whose name normalizes to the same id is used, so ids from
// IDs always resolve.
func (s *DirSource) workspaceDir(agentID string) string {
	exact := filepath.Join(s.dir, agentID)
	if info, err := os.Stat(exact); err == nil && info.IsDir() {
		return exact
	}
	want := NormalizeID(agentID)
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return exact
	}
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") && NormalizeID(e.Name()) == want {
			return filepath.Join(s.dir, e.Name())
		}
	}
	return exact
}

// WriteManifest writes m and body to the workspace for m.ID, creating it if needed.
// Routing and board code never call this; it exists for agent management.
func (s *DirSource) WriteManifest(m models.AgentManifest, body string) (string, error) {
	workspace := filepath.Join(s.dir, m.ID)
	if err := os.MkdirAll(workspace, 0755); err != nil {
		return "", fmt.Errorf("create workspace: %w", err)
	}
	path := filepath.Join(workspace, ManifestFileName)
	if err := os.WriteFile(path, []byte(FormatManifestMarkdown(m, body)), 0644); err != nil {
		return "", fmt.Errorf("write manifest: %w", err)
	}
	return path, nil
}

func readDisplayName(workspace string) string {
	data, err := os.ReadFile(filepath.Join(workspace, WorkspaceMetadataFileName))
	if err != nil {
		return ""
	}
	var meta struct {
		DisplayName string `json:"displayName"`
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return ""
	}
	return strings.TrimSpace(meta.DisplayName)
}

// MapSource serves records held in memory, typically the config file's
// "agents" section keyed by agent id.
type MapSource struct {
	records map[string]map[string]any
	bodies  map[string]string
}

// NewMapSource creates a source from id -> metadata bags.
func NewMapSource(records map[string]map[string]any) *MapSource {
	normalized := make(map[string]map[string]any, len(records))
	for id, bag := range records {
		if nid := NormalizeID(id); nid != "" {
			normalized[nid] = bag
		}
	}
	return &MapSource{records: normalized, bodies: map[string]string{}}
}

// NewMapSourceFromAny accepts the shape viper returns for a nested section.
func NewMapSourceFromAny(raw map[string]any) *MapSource {
	records := make(map[string]map[string]any, len(raw))
	for id, v := range raw {
		if bag, ok := asMap(v); ok {
			records[id] = bag
		}
	}
	return NewMapSource(records)
}

// SetBody attaches a free-form body to an agent's record.
func (s *MapSource) SetBody(agentID, body string) {
	s.bodies[NormalizeID(agentID)] = body
}

// IDs returns the configured ids.
func (s *MapSource) IDs(ctx context.Context) ([]string, error) {
	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Load returns the configured record for agentID.
func (s *MapSource) Load(ctx context.Context, agentID string) (Record, bool, error) {
	id := NormalizeID(agentID)
	bag, ok := s.records[id]
	if !ok {
		return Record{AgentID: agentID, Source: models.ManifestSourceDerived}, false, nil
	}
	return Record{
		AgentID:  agentID,
		Metadata: bag,
		Body:     s.bodies[id],
		Source:   models.ManifestSourceConfig,
	}, true, nil
}

// MultiSource consults sources in order; the first explicit record wins.
type MultiSource []Source

// IDs returns the union of all sources' ids.
func (m MultiSource) IDs(ctx context.Context) ([]string, error) {
	seen := map[string]struct{}{}
	var ids []string
	for _, src := range m {
		srcIDs, err := src.IDs(ctx)
		if err != nil {
			return nil, err
		}
		for _, id := range srcIDs {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Load returns the first explicit record, or a derived one carrying the first
// display name any source offered.
func (m MultiSource) Load(ctx context.Context, agentID string) (Record, bool, error) {
	fallback := Record{AgentID: agentID, Source: models.ManifestSourceDerived}
	for _, src := range m {
		rec, ok, err := src.Load(ctx, agentID)
		if err != nil {
			return rec, false, err
		}
		if ok {
			if rec.DisplayName == "" {
				rec.DisplayName = fallback.DisplayName
			}
			return rec, true, nil
		}
		if fallback.DisplayName == "" {
			fallback.DisplayName = rec.DisplayName
		}
	}
	return fallback, false, nil
}
