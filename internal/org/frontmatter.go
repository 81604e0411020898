package org

import (
	"fmt"
	"strconv"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/ShayCichocki/herd/pkg/models"
)

const frontMatterDelim = "---"

// ParsedMarkdown is the result of splitting an AGENTS.md document.
type ParsedMarkdown struct {
	// Metadata is the raw front matter bag, nil when the document has none.
	Metadata map[string]any
	// Body is everything after the closing delimiter, or the whole document.
	Body string
	// HasFrontMatter is true when a complete front matter block was found.
	HasFrontMatter bool
}

// ParseManifestMarkdown splits markdown into YAML front matter and body.
// A document without an opening and closing "---" line has no front matter.
func ParseManifestMarkdown(markdown string) (ParsedMarkdown, error) {
	normalized := strings.ReplaceAll(markdown, "\r\n", "\n")
	if !strings.HasPrefix(normalized, frontMatterDelim+"\n") {
		return ParsedMarkdown{Body: normalized}, nil
	}

	rest := normalized[len(frontMatterDelim)+1:]
	var header, body string
	switch {
	case strings.HasPrefix(rest, frontMatterDelim+"\n"):
		body = rest[len(frontMatterDelim)+1:]
	default:
		end := strings.Index(rest, "\n"+frontMatterDelim+"\n")
		if end < 0 {
			if !strings.HasSuffix(rest, "\n"+frontMatterDelim) {
				return ParsedMarkdown{Body: normalized}, nil
			}
			end = len(rest) - len(frontMatterDelim) - 1
			header = rest[:end]
		} else {
			header = rest[:end]
			body = rest[end+len(frontMatterDelim)+2:]
		}
	}

	bag := map[string]any{}
	if strings.TrimSpace(header) != "" {
		if err := yaml.Unmarshal([]byte(header), &bag); err != nil {
			return ParsedMarkdown{Body: normalized}, fmt.Errorf("parse front matter: %w", err)
		}
	}

	return ParsedMarkdown{
		Metadata:       bag,
		Body:           strings.TrimPrefix(body, "\n"),
		HasFrontMatter: true,
	}, nil
}

// FormatManifestMarkdown renders m as an AGENTS.md document with body appended.
func FormatManifestMarkdown(m models.AgentManifest, body string) string {
	reportsTo := "null"
	if m.ReportsTo != nil {
		reportsTo = *m.ReportsTo
	}

	lines := []string{
		frontMatterDelim,
		"id: " + m.ID,
		"name: " + quoteIfNeeded(m.Name),
		"description: " + quoteIfNeeded(m.Description),
		"type: " + string(m.Type),
		"reportsTo: " + reportsTo,
		"discoverable: " + strconv.FormatBool(m.Discoverable),
		"tags: [" + strings.Join(m.Tags, ", ") + "]",
		"skills: [" + strings.Join(m.Skills, ", ") + "]",
		"delegation:",
		"  canReceive: " + strconv.FormatBool(m.Delegation.CanReceive),
		"  canDelegate: " + strconv.FormatBool(m.Delegation.CanDelegate),
		"priority: " + strconv.Itoa(m.Priority),
	}
	if m.Provider != "" {
		lines = append(lines, "provider: "+m.Provider)
	}
	lines = append(lines, frontMatterDelim, "")

	body = strings.TrimPrefix(body, "\n")
	body = strings.TrimSuffix(body, "\n")
	return strings.Join(append(lines, body), "\n") + "\n"
}

// quoteIfNeeded wraps values that YAML would otherwise misread.
func quoteIfNeeded(s string) string {
	if s == "" || strings.ContainsAny(s, ":#[]{}&*!|>'\"%@`") || strings.TrimSpace(s) != s {
		return strconv.Quote(s)
	}
	return s
}
