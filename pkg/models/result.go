package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Reason identifies a single heuristic that fired inside a probe.
type Reason uint32

const (
	ReasonNoCandidates Reason = 1 << iota
	ReasonNoLocalIP
	ReasonRelayOnly
	ReasonMultiplePublicIPs
	ReasonVPNIPPattern
	ReasonFewCandidates
	ReasonWebRTCBlocked
	ReasonWebRTCError
	ReasonInsufficientData
	ReasonHighVariance
	ReasonHighAvgLatency
	ReasonInconsistentTiming
	ReasonSlowResponses
	ReasonVPNKeyword
	ReasonOperaGX
	ReasonWebRTCDisabled
	ReasonNoPlugins
	ReasonSuspiciousScreen
	ReasonConnectionMismatch
	ReasonLocaleMismatch
	ReasonDNSAnomaly
	ReasonRequestPattern
	ReasonProbeFailed

	reasonSentinel
)

var reasonTags = map[Reason]string{
	ReasonNoCandidates:       "no_candidates",
	ReasonNoLocalIP:          "no_local_ip",
	ReasonRelayOnly:          "relay_only",
	ReasonMultiplePublicIPs:  "multiple_public_ips",
	ReasonVPNIPPattern:       "vpn_ip_pattern",
	ReasonFewCandidates:      "few_candidates",
	ReasonWebRTCBlocked:      "webrtc_blocked",
	ReasonWebRTCError:        "webrtc_error",
	ReasonInsufficientData:   "insufficient_data",
	ReasonHighVariance:       "high_variance",
	ReasonHighAvgLatency:     "high_avg_latency",
	ReasonInconsistentTiming: "inconsistent_timing",
	ReasonSlowResponses:      "slow_responses",
	ReasonVPNKeyword:         "vpn_keyword",
	ReasonOperaGX:            "opera_gx",
	ReasonWebRTCDisabled:     "webrtc_disabled",
	ReasonNoPlugins:          "no_plugins",
	ReasonSuspiciousScreen:   "suspicious_screen",
	ReasonConnectionMismatch: "connection_mismatch",
	ReasonLocaleMismatch:     "locale_mismatch",
	ReasonDNSAnomaly:         "dns_anomaly",
	ReasonRequestPattern:     "request_pattern",
	ReasonProbeFailed:        "probe_failed",
}

// String returns the wire tag of a single reason.
func (r Reason) String() string {
	if tag, ok := reasonTags[r]; ok {
		return tag
	}
	return fmt.Sprintf("reason(%d)", uint32(r))
}

// ParseReason maps a wire tag back to its Reason.
func ParseReason(tag string) (Reason, error) {
	for r, t := range reasonTags {
		if t == tag {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown reason tag %q", tag)
}

// ReasonSet is a bitmask of reasons. The zero value is the empty set.
type ReasonSet uint32

// NewReasonSet builds a set from the given reasons.
func NewReasonSet(reasons ...Reason) ReasonSet {
	var s ReasonSet
	for _, r := range reasons {
		s = s.Add(r)
	}
	return s
}

// Add returns a copy of s with r set.
func (s ReasonSet) Add(r Reason) ReasonSet { return s | ReasonSet(r) }

// Has reports whether r is in the set.
func (s ReasonSet) Has(r Reason) bool { return s&ReasonSet(r) != 0 }

// Empty reports whether no reason fired.
func (s ReasonSet) Empty() bool { return s == 0 }

// Reasons lists the members in declaration order.
func (s ReasonSet) Reasons() []Reason {
	var out []Reason
	for r := Reason(1); r < reasonSentinel; r <<= 1 {
		if s.Has(r) {
			out = append(out, r)
		}
	}
	return out
}

// Tags lists the wire tags of the members in declaration order.
func (s ReasonSet) Tags() []string {
	reasons := s.Reasons()
	tags := make([]string, len(reasons))
	for i, r := range reasons {
		tags[i] = r.String()
	}
	return tags
}

// String joins the member tags with commas. Empty sets render as "".
func (s ReasonSet) String() string {
	return strings.Join(s.Tags(), ",")
}

func (s ReasonSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Tags())
}

func (s *ReasonSet) UnmarshalJSON(data []byte) error {
	var tags []string
	if err := json.Unmarshal(data, &tags); err != nil {
		return err
	}
	var set ReasonSet
	for _, tag := range tags {
		r, err := ParseReason(tag)
		if err != nil {
			return err
		}
		set = set.Add(r)
	}
	*s = set
	return nil
}

// ProbeResult is the evidence produced by one probe run.
//
// Score is always defined, including when the probe failed internally; in that
// case Error carries the failure text and Reasons contains ReasonProbeFailed
// unless the probe mapped the failure to its own tag.
type ProbeResult struct {
	// Probe is the short probe name ("webrtc", "latency", "fingerprint", "network").
	Probe string `json:"probe"`

	// Score is the non-negative, additive contribution to the verdict.
	Score int `json:"score"`

	// Reasons holds every heuristic that fired.
	Reasons ReasonSet `json:"reasons"`

	// Details is diagnostic payload for operators. It never affects the verdict.
	Details map[string]any `json:"details,omitempty"`

	// Error is set when the probe failed and a fallback score was used.
	Error string `json:"error,omitempty"`
}

// Reason renders the reason field the way operators read it: the joined tags,
// or "normal_<probe>" when nothing fired.
func (p ProbeResult) Reason() string {
	if p.Reasons.Empty() {
		return "normal_" + p.Probe
	}
	return p.Reasons.String()
}

// Verdict is the output of one detection run together with its diagnostic record.
// It is computed fresh on every run.
type Verdict struct {
	ID         string        `json:"id"`
	StartedAt  time.Time     `json:"started_at"`
	DurationMs int64         `json:"duration_ms"`
	Results    []ProbeResult `json:"results"`

	// TotalScore is the sum of all probe scores.
	TotalScore int `json:"total_score"`

	// Threshold is the configured cutoff the total was compared against.
	Threshold int `json:"threshold"`

	// IsVPN is TotalScore >= Threshold.
	IsVPN bool `json:"is_vpn"`
}

// Result returns the result of the named probe, if present.
func (v *Verdict) Result(probe string) (ProbeResult, bool) {
	for _, r := range v.Results {
		if r.Probe == probe {
			return r, true
		}
	}
	return ProbeResult{}, false
}
