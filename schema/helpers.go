package schema

import (
	"fmt"
	"hash/fnv"
	"strings"
)

// Namespace prefixes shared across the signal, evidence and graph layers.
const (
	ComponentPrefix = "comp:"
	DocPrefix       = "doc:"
	IssuePrefix     = "issue:"
	PRPrefix        = "pr:"
	APIPrefix       = "api:"
	ServicePrefix   = "svc:"
	SignalPrefix    = "signal:"
)

// SignalID derives the stable identifier for a normalized signal from its
// source, kind and natural key. Re-ingesting the same raw event always yields
// the same ID, which is what makes ingestion idempotent.
func SignalID(source Source, kind, naturalKey string) string {
	key := sanitizeKey(naturalKey)
	if key == "" {
		h := fnv.New64a()
		_, _ = h.Write([]byte(string(source) + "|" + kind + "|" + naturalKey))
		key = fmt.Sprintf("%x", h.Sum64())
	}
	return fmt.Sprintf("%s%s:%s:%s", SignalPrefix, source, kind, key)
}

// sanitizeKey keeps natural keys readable in IDs when they are already
// ID-safe; anything else falls back to hashing in SignalID.
func sanitizeKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.' || r == '#' || r == '/' || r == '@':
		default:
			return ""
		}
	}
	return key
}

// ComponentID normalizes a component identifier into the comp: namespace.
func ComponentID(id string) string {
	if strings.HasPrefix(id, ComponentPrefix) {
		return id
	}
	return ComponentPrefix + id
}

// NodeKindForID infers the node kind from a namespaced identifier. Unknown
// prefixes default to ComponentNode so un-namespaced legacy IDs keep working.
func NodeKindForID(id string) NodeKind {
	switch {
	case strings.HasPrefix(id, DocPrefix):
		return DocNode
	case strings.HasPrefix(id, IssuePrefix):
		return IssueNode
	case strings.HasPrefix(id, PRPrefix):
		return PRNode
	case strings.HasPrefix(id, APIPrefix):
		return APINode
	case strings.HasPrefix(id, ServicePrefix):
		return ServiceNode
	case strings.HasPrefix(id, SignalPrefix+string(SlackSource)):
		return ThreadNode
	default:
		return ComponentNode
	}
}

// SeverityLevelScore maps an upstream severity label to a 0-1 scale.
// Unknown labels land in the middle rather than at zero so a mislabeled
// critical case is not silently discounted.
func SeverityLevelScore(label string) float64 {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "critical":
		return 1.0
	case "high":
		return 0.75
	case "medium", "moderate":
		return 0.5
	case "low":
		return 0.25
	case "":
		return 0.0
	default:
		return 0.5
	}
}

// ImpactLevelScore maps a doc impact level to a 0-1 scale.
func ImpactLevelScore(label string) float64 {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "high":
		return 1.0
	case "medium", "moderate":
		return 0.6
	case "low":
		return 0.3
	default:
		return 0.0
	}
}

// TimeWindowLabel renders a window in hours as the human label used in CLI
// and API payloads, e.g. "7d" or "36h".
func TimeWindowLabel(windowHours float64) string {
	if windowHours >= 24 && windowHours == float64(int(windowHours)) && int(windowHours)%24 == 0 {
		return fmt.Sprintf("%dd", int(windowHours)/24)
	}
	return fmt.Sprintf("%gh", windowHours)
}
