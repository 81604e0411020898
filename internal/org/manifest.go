// Package org builds the normalized organization graph of agents.
//
// Manifests arrive from loosely-typed sources (markdown front matter, config
// maps) as an untyped key-value bag. Normalize is the single boundary that maps
// that bag into a strict models.AgentManifest, filling defaults along the way.
package org

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/ShayCichocki/herd/pkg/models"
)

// Skill markers that grant or describe board roles.
const (
	ManagerSkillID    = "og-board-manager"
	IndividualSkillID = "og-board-individual"

	legacyManagerSkillID    = "board-manager"
	legacyIndividualSkillID = "board-individual"
)

// DefaultPriority is used when a manifest has no usable priority.
const DefaultPriority = 50

const managerDescription = "Manager agent coordinating direct reports."

var nonSlugChars = regexp.MustCompile(`[^a-z0-9-]+`)

// NormalizeID lowercases value and collapses anything outside [a-z0-9-] into
// dashes, trimming leading and trailing dashes.
func NormalizeID(value string) string {
	s := strings.ToLower(strings.TrimSpace(value))
	s = nonSlugChars.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// HasManagerSkill reports whether skills contain the manager marker or its legacy alias.
func HasManagerSkill(skills []string) bool {
	for _, skill := range skills {
		id := NormalizeID(skill)
		if id == ManagerSkillID || id == legacyManagerSkillID {
			return true
		}
	}
	return false
}

func canonicalSkillID(id string) string {
	switch id {
	case legacyManagerSkillID:
		return ManagerSkillID
	case legacyIndividualSkillID:
		return IndividualSkillID
	default:
		return id
	}
}

// Metadata is the decoded, still-optional view of a manifest record.
// Nil fields mean the source did not specify them.
type Metadata struct {
	ID           *string
	Name         *string
	Description  *string
	Type         *models.AgentType
	ReportsTo    *string
	Discoverable *bool
	Tags         []string
	Skills       []string
	CanReceive   *bool
	CanDelegate  *bool
	Priority     *int
	Provider     string
}

// DecodeMetadata maps an untyped bag into Metadata. Keys are matched
// case-insensitively with '_' and '-' ignored, so "reportsTo", "reports_to"
// and viper's lowercased "reportsto" are equivalent. Unknown keys and values
// of the wrong shape are dropped.
func DecodeMetadata(bag map[string]any) Metadata {
	var md Metadata
	for rawKey, value := range bag {
		switch bagKey(rawKey) {
		case "id":
			if s, ok := asString(value); ok {
				id := NormalizeID(s)
				md.ID = &id
			}
		case "name":
			if s, ok := asString(value); ok {
				md.Name = &s
			}
		case "description":
			if s, ok := asString(value); ok {
				md.Description = &s
			}
		case "type":
			if s, ok := asString(value); ok {
				t := models.AgentType(strings.ToLower(strings.TrimSpace(s)))
				if t.Valid() {
					md.Type = &t
				}
			}
		case "reportsto":
			if s, ok := asString(value); ok {
				switch v := strings.ToLower(strings.TrimSpace(s)); v {
				case "", "null", "none", "~":
				default:
					if id := NormalizeID(v); id != "" {
						md.ReportsTo = &id
					}
				}
			}
		case "discoverable":
			if b, ok := asBool(value); ok {
				md.Discoverable = &b
			}
		case "tags":
			md.Tags = asStringList(value)
		case "skills":
			md.Skills = asStringList(value)
		case "delegation":
			if nested, ok := asMap(value); ok {
				for k, v := range nested {
					switch bagKey(k) {
					case "canreceive":
						if b, ok := asBool(v); ok {
							md.CanReceive = &b
						}
					case "candelegate":
						if b, ok := asBool(v); ok {
							md.CanDelegate = &b
						}
					}
				}
			}
		case "priority":
			if n, ok := asInt(value); ok {
				md.Priority = &n
			}
		case "provider":
			if s, ok := asString(value); ok {
				md.Provider = NormalizeID(s)
			}
		}
	}
	return md
}

// Normalize produces the canonical manifest for agentID.
//
// Rules: legacy skill ids are rewritten before dedup; managers carry the
// manager skill marker; the effective type is manager whenever the agent can
// delegate or holds the marker; the root agent never reports to anyone while
// every other agent without a valid manager reports to root; priority falls
// back to DefaultPriority.
func Normalize(agentID, displayName, rootID string, md Metadata) models.AgentManifest {
	rootID = NormalizeID(rootID)

	id := ""
	if md.ID != nil {
		id = NormalizeID(*md.ID)
	}
	if id == "" {
		id = NormalizeID(agentID)
	}
	if id == "" {
		id = "agent"
	}

	skills := dedupe(mapSkills(md.Skills))

	var inferred models.AgentType
	switch {
	case md.Type != nil:
		inferred = *md.Type
	case md.CanDelegate != nil && *md.CanDelegate, HasManagerSkill(skills), id == rootID:
		inferred = models.AgentTypeManager
	default:
		inferred = models.AgentTypeIndividual
	}

	name := ""
	if md.Name != nil {
		name = strings.TrimSpace(*md.Name)
	}
	if name == "" {
		name = strings.TrimSpace(displayName)
	}
	if name == "" {
		name = id
	}

	description := ""
	if md.Description != nil {
		description = strings.TrimSpace(*md.Description)
	}
	if description == "" {
		if inferred == models.AgentTypeManager {
			description = managerDescription
		} else {
			description = "Agent " + name + "."
		}
	}

	if inferred == models.AgentTypeManager && !HasManagerSkill(skills) {
		skills = append([]string{ManagerSkillID}, skills...)
	}

	delegation := models.Delegation{CanReceive: true}
	if md.CanReceive != nil {
		delegation.CanReceive = *md.CanReceive
	}
	if md.CanDelegate != nil {
		delegation.CanDelegate = *md.CanDelegate
	} else {
		delegation.CanDelegate = inferred == models.AgentTypeManager || HasManagerSkill(skills)
	}

	effective := inferred
	if delegation.CanDelegate || HasManagerSkill(skills) {
		effective = models.AgentTypeManager
	}

	discoverable := true
	if md.Discoverable != nil {
		discoverable = *md.Discoverable
	}

	priority := DefaultPriority
	if md.Priority != nil {
		priority = *md.Priority
	}

	var reportsTo *string
	if id != rootID {
		manager := rootID
		if md.ReportsTo != nil && *md.ReportsTo != "" && *md.ReportsTo != id {
			manager = *md.ReportsTo
		}
		reportsTo = &manager
	}

	return models.AgentManifest{
		ID:           id,
		Name:         name,
		Description:  description,
		Type:         effective,
		ReportsTo:    reportsTo,
		Discoverable: discoverable,
		Tags:         dedupe(mapIDs(md.Tags)),
		Skills:       skills,
		Delegation:   delegation,
		Priority:     priority,
		Provider:     md.Provider,
	}
}

// IsManagerAgent reports whether m may delegate.
func IsManagerAgent(m models.AgentManifest) bool {
	return m.Delegation.CanDelegate || HasManagerSkill(m.Skills)
}

// IsDirectReport reports whether m reports to managerID.
func IsDirectReport(m models.AgentManifest, managerID string) bool {
	id := NormalizeID(managerID)
	if id == "" || m.ReportsTo == nil {
		return false
	}
	return *m.ReportsTo == id
}

// IsDiscoverableByManager reports whether m may be offered as a delegation target.
func IsDiscoverableByManager(m models.AgentManifest) bool {
	return m.Discoverable && m.Delegation.CanReceive
}

func mapSkills(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if id := canonicalSkillID(NormalizeID(v)); id != "" {
			out = append(out, id)
		}
	}
	return out
}

func mapIDs(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if id := NormalizeID(v); id != "" {
			out = append(out, id)
		}
	}
	return out
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func bagKey(key string) string {
	k := strings.ToLower(strings.TrimSpace(key))
	k = strings.ReplaceAll(k, "_", "")
	return strings.ReplaceAll(k, "-", "")
}

func asString(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", true
	case string:
		return x, true
	case bool:
		return strconv.FormatBool(x), true
	case int:
		return strconv.Itoa(x), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	default:
		return "", false
	}
}

func asBool(v any) (bool, bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case int:
		return x != 0, true
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true", "yes", "1":
			return true, true
		case "false", "no", "0":
			return false, true
		}
	}
	return false, false
}

func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0, false
		}
		return int(x), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func asStringList(v any) []string {
	switch x := v.(type) {
	case []string:
		return x
	case []any:
		out := make([]string, 0, len(x))
		for _, item := range x {
			if s, ok := asString(item); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		s := strings.TrimSpace(x)
		s = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
		var out []string
		for _, part := range strings.Split(s, ",") {
			part = strings.Trim(strings.TrimSpace(part), `"'`)
			if part != "" {
				out = append(out, part)
			}
		}
		return out
	default:
		return nil
	}
}

func asMap(v any) (map[string]any, bool) {
	switch x := v.(type) {
	case map[string]any:
		return x, true
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			if ks, ok := k.(string); ok {
				out[ks] = val
			}
		}
		return out, true
	default:
		return nil, false
	}
}
