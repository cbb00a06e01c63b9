package probes

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/gokaycavdar/go-vpnsense/pkg/models"
	"github.com/gokaycavdar/go-vpnsense/pkg/netaddr"
)

// Topology probe weights.
const (
	ScoreNoCandidates      = 25
	ScoreNoLocalIP         = 20
	ScoreRelayOnly         = 30
	ScoreMultiplePublicIPs = 25
	ScoreVPNIPPattern      = 15
	ScoreFewCandidates     = 10
	ScoreWebRTCBlocked     = 20
	ScoreWebRTCError       = 15
)

// DefaultSTUNServers are the public relays used to trigger candidate discovery.
var DefaultSTUNServers = []string{
	"stun:stun.l.google.com:19302",
	"stun:stun1.l.google.com:19302",
	"stun:stun.services.mozilla.com",
}

// DefaultCollectionWindow is how long candidates are collected.
const DefaultCollectionWindow = 4 * time.Second

// TopologyProbe inspects the network paths discovered while negotiating a
// peer connection that never connects to anyone.
//
// A VPN typically hides local interfaces from the negotiation, forces relayed
// paths, or exposes several public exits at once.
type TopologyProbe struct {
	Gatherer    CandidateGatherer // nil means the capability is absent
	STUNServers []string
	Window      time.Duration
}

// NewTopologyProbe creates the probe with the default relays and window.
func NewTopologyProbe(g CandidateGatherer) *TopologyProbe {
	return &TopologyProbe{
		Gatherer:    g,
		STUNServers: DefaultSTUNServers,
		Window:      DefaultCollectionWindow,
	}
}

func (t *TopologyProbe) Name() string { return "webrtc" }

// Ceiling leaves a second of slack over the collection window for teardown.
func (t *TopologyProbe) Ceiling() time.Duration { return t.Window + time.Second }

func (t *TopologyProbe) Run(ctx context.Context) (models.ProbeResult, error) {
	if t.Gatherer == nil {
		return t.flat(ScoreWebRTCBlocked, models.ReasonWebRTCBlocked, nil), nil
	}

	candidates, err := t.Gatherer.Gather(ctx, t.STUNServers, t.Window)
	switch {
	case errors.Is(err, ErrCapabilityAbsent):
		return t.flat(ScoreWebRTCBlocked, models.ReasonWebRTCBlocked, err), nil
	case err != nil:
		return t.flat(ScoreWebRTCError, models.ReasonWebRTCError, err), nil
	}

	return ScoreCandidates(candidates), nil
}

func (t *TopologyProbe) flat(score int, reason models.Reason, err error) models.ProbeResult {
	res := models.ProbeResult{
		Probe:   t.Name(),
		Score:   score,
		Reasons: models.NewReasonSet(reason),
	}
	if err != nil {
		res.Error = err.Error()
	}
	return res
}

// ScoreCandidates scores a discovered candidate set. Conditions are additive.
func ScoreCandidates(candidates []models.Candidate) models.ProbeResult {
	var (
		count      = len(candidates)
		hasLocalIP bool
		publicIPs  = make(map[string]struct{})
		types      = make(map[string]struct{})
	)

	for _, c := range candidates {
		types[c.Type] = struct{}{}
		switch netaddr.Classify(c.Address) {
		case netaddr.ClassPrivate:
			hasLocalIP = true
		case netaddr.ClassPublic:
			publicIPs[c.Address] = struct{}{}
		}
	}

	var (
		score   int
		reasons models.ReasonSet
	)

	if count == 0 {
		score += ScoreNoCandidates
		reasons = reasons.Add(models.ReasonNoCandidates)
	}

	if !hasLocalIP && count > 0 {
		score += ScoreNoLocalIP
		reasons = reasons.Add(models.ReasonNoLocalIP)
	}

	_, hasRelay := types["relay"]
	_, hasHost := types["host"]
	if hasRelay && !hasHost {
		score += ScoreRelayOnly
		reasons = reasons.Add(models.ReasonRelayOnly)
	}

	if len(publicIPs) > 1 {
		score += ScoreMultiplePublicIPs
		reasons = reasons.Add(models.ReasonMultiplePublicIPs)
	}

	for ip := range publicIPs {
		if netaddr.MatchesVPNPattern(ip) {
			score += ScoreVPNIPPattern
			reasons = reasons.Add(models.ReasonVPNIPPattern)
			break
		}
	}

	if count > 0 && count < 3 {
		score += ScoreFewCandidates
		reasons = reasons.Add(models.ReasonFewCandidates)
	}

	return models.ProbeResult{
		Probe:   "webrtc",
		Score:   score,
		Reasons: reasons,
		Details: map[string]any{
			"candidate_count": count,
			"has_local_ip":    hasLocalIP,
			"public_ip_count": len(publicIPs),
			"candidate_types": sortedKeys(types),
			"public_prefixes": maskedKeys(publicIPs),
		},
	}
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func maskedKeys(m map[string]struct{}) []string {
	seen := make(map[string]struct{}, len(m))
	for k := range m {
		if p := netaddr.MaskIP(k); p != "" {
			seen[p] = struct{}{}
		}
	}
	return sortedKeys(seen)
}
