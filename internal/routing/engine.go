// Package routing decides whether a manager keeps a message or delegates it
// to one of its direct reports.
package routing

import (
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/ShayCichocki/herd/internal/logging"
	"github.com/ShayCichocki/herd/internal/org"
	"github.com/ShayCichocki/herd/pkg/models"
)

const (
	// maxBodyTokens bounds how much of a manifest body contributes to matching.
	maxBodyTokens = 80
	// maxReportedTerms caps MatchedTerms on each candidate.
	maxReportedTerms = 8

	explicitMentionBonus = 4
	maxPriorityBoost     = 3

	// NoDelegationConfidence is used when no candidate scored above zero.
	NoDelegationConfidence = 0.35
	maxConfidence          = 0.99
)

// Decision reasons for the non-delegating outcomes.
const (
	ReasonEmptyMessage = "Empty message; keeping current agent."
	ReasonNotManager   = "Entry agent is not a manager (missing manager skill)."
	ReasonNoMatch      = "No direct-report agent strongly matched the request."
)

const delegationInstruction = "Please execute the task and return a concise, user-ready response."

var tokenSplit = regexp.MustCompile(`[^a-z0-9]+`)

// Engine scores direct reports against a message.
type Engine struct {
	logger *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for decision debug output.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// NewEngine creates a routing engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = logging.OrNop(e.logger)
	return e
}

// Decide picks a target for message. manifests must be sorted by id; that
// order is the tie-break between equal scores.
func (e *Engine) Decide(entryAgentID, message string, manifests []models.AgentManifest) models.RoutingDecision {
	entryID := strings.ToLower(strings.TrimSpace(entryAgentID))
	message = strings.TrimSpace(message)

	keep := func(confidence float64, reason string, candidates []models.RoutingCandidate) models.RoutingDecision {
		if candidates == nil {
			candidates = []models.RoutingCandidate{}
		}
		return models.RoutingDecision{
			EntryAgentID:     entryID,
			TargetAgentID:    entryID,
			Confidence:       confidence,
			Reason:           reason,
			RewrittenMessage: message,
			Candidates:       candidates,
		}
	}

	if message == "" {
		return keep(1, ReasonEmptyMessage, nil)
	}

	entry, ok := findManifest(manifests, entryID)
	if !ok || !org.IsManagerAgent(entry) {
		return keep(1, ReasonNotManager, nil)
	}

	candidates := make([]models.RoutingCandidate, 0)
	for _, m := range manifests {
		if m.ID == entryID || !org.IsDirectReport(m, entryID) || !org.IsDiscoverableByManager(m) {
			continue
		}
		candidates = append(candidates, scoreCandidate(message, m))
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	if len(candidates) == 0 || candidates[0].Score <= 0 {
		e.logger.Debug("routing kept message", "entry", entryID, "candidates", len(candidates))
		return keep(NoDelegationConfidence, ReasonNoMatch, candidates)
	}

	top := candidates[0]
	denominator := math.Max(4, float64(len(Tokenize(message))+1))
	confidence := round2(math.Min(maxConfidence, top.Score/denominator))
	reason := fmt.Sprintf("Matched %d relevant term(s) for %s.", len(top.MatchedTerms), top.AgentName)

	e.logger.Debug("routing delegated message",
		"entry", entryID,
		"target", top.AgentID,
		"score", top.Score,
		"confidence", confidence,
	)

	return models.RoutingDecision{
		EntryAgentID:     entryID,
		TargetAgentID:    top.AgentID,
		Confidence:       confidence,
		Reason:           reason,
		RewrittenMessage: RewriteForDelegation(message, top.AgentName, reason),
		Candidates:       candidates,
	}
}

// RewriteForDelegation wraps message with the delegation header sent to the target.
func RewriteForDelegation(message, agentName, reason string) string {
	return strings.Join([]string{
		"Original user request:\n" + message,
		"Delegation target: " + agentName,
		"Delegation reason: " + reason,
		delegationInstruction,
	}, "\n\n")
}

// Tokenize lowercases value, splits on non-alphanumeric runs and drops
// tokens shorter than two characters.
func Tokenize(value string) []string {
	parts := tokenSplit.Split(strings.ToLower(value), -1)
	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		if len(p) >= 2 {
			tokens = append(tokens, p)
		}
	}
	return tokens
}

func scoreCandidate(message string, m models.AgentManifest) models.RoutingCandidate {
	metadata := append([]string{m.ID, m.Name, m.Description}, m.Tags...)
	vocabulary := make(map[string]struct{})
	for _, tok := range Tokenize(strings.Join(metadata, " ")) {
		vocabulary[tok] = struct{}{}
	}
	body := Tokenize(m.Body)
	if len(body) > maxBodyTokens {
		body = body[:maxBodyTokens]
	}
	for _, tok := range body {
		vocabulary[tok] = struct{}{}
	}

	matched := intersect(Tokenize(message), vocabulary)
	explicit := containsWord(message, m.ID) || containsWord(message, m.Name)

	relevance := float64(len(matched) * 2)
	if explicit {
		relevance += explicitMentionBonus
	}
	var boost float64
	if relevance > 0 {
		boost = math.Max(0, math.Min(maxPriorityBoost, float64(m.Priority)/50))
	}

	reason := fmt.Sprintf("%d matched metadata terms.", len(matched))
	if explicit {
		reason = fmt.Sprintf("Explicit mention and %d matched metadata terms.", len(matched))
	}

	reported := matched
	if len(reported) > maxReportedTerms {
		reported = reported[:maxReportedTerms]
	}

	return models.RoutingCandidate{
		AgentID:      m.ID,
		AgentName:    m.Name,
		Score:        round2(relevance + boost),
		MatchedTerms: reported,
		Reason:       reason,
	}
}

// intersect returns the tokens of left found in right, in first-seen order
// and without duplicates.
func intersect(left []string, right map[string]struct{}) []string {
	matches := make([]string, 0)
	seen := make(map[string]struct{})
	for _, tok := range left {
		if _, ok := right[tok]; !ok {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		matches = append(matches, tok)
	}
	return matches
}

// containsWord reports whether needle occurs in haystack as a whole word,
// ignoring case.
func containsWord(haystack, needle string) bool {
	needle = strings.TrimSpace(needle)
	if needle == "" {
		return false
	}
	re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(needle) + `\b`)
	if err != nil {
		return false
	}
	return re.MatchString(haystack)
}

func findManifest(manifests []models.AgentManifest, id string) (models.AgentManifest, bool) {
	for _, m := range manifests {
		if m.ID == id {
			return m, true
		}
	}
	return models.AgentManifest{}, false
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
