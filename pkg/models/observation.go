package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Candidate is a network path discovered during connectivity negotiation.
type Candidate struct {
	Address  string `json:"address"`
	Port     int    `json:"port"`
	Protocol string `json:"protocol"`

	// Type is the ICE candidate type: host, srflx, prflx or relay.
	Type string `json:"type"`
}

// ParseCandidate parses an ICE candidate attribute, as exposed by browsers:
//
//	candidate:842163049 1 udp 1677729535 203.0.113.7 54321 typ srflx raddr 0.0.0.0 rport 0
//
// The "a=" prefix is accepted. Only the address, port, protocol and type are kept.
func ParseCandidate(line string) (Candidate, error) {
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "a=")
	if !strings.HasPrefix(line, "candidate:") {
		return Candidate{}, fmt.Errorf("not a candidate line: %q", line)
	}

	parts := strings.Fields(line)
	if len(parts) < 8 || parts[6] != "typ" {
		return Candidate{}, fmt.Errorf("malformed candidate: %q", line)
	}

	port, err := strconv.Atoi(parts[5])
	if err != nil {
		return Candidate{}, fmt.Errorf("malformed candidate port %q: %w", parts[5], err)
	}

	return Candidate{
		Address:  parts[4],
		Port:     port,
		Protocol: strings.ToLower(parts[2]),
		Type:     parts[7],
	}, nil
}

// HTTPObservation is the outcome of one outbound request made by a probe.
type HTTPObservation struct {
	Method    string  `json:"method"`
	URL       string  `json:"url"`
	ElapsedMs float64 `json:"elapsed_ms"`
	Status    int     `json:"status,omitempty"`

	// Failed marks transport failures and timeouts.
	Failed bool `json:"failed,omitempty"`

	// Body holds at most a few KiB of the response, for diagnostics.
	Body string `json:"body,omitempty"`

	// Probe optionally names the probe ("latency" or "network") a reported
	// observation belongs to. Unlabelled observations are offered to both.
	Probe string `json:"probe,omitempty"`
}

// OK reports whether the request completed with a 2xx status.
func (o HTTPObservation) OK() bool {
	return !o.Failed && o.Status >= 200 && o.Status < 300
}

// NetworkInfo mirrors the browser network-information hints.
type NetworkInfo struct {
	// EffectiveType is one of slow-2g, 2g, 3g, 4g.
	EffectiveType string `json:"effective_type"`

	// DownlinkMbps is the estimated bandwidth.
	DownlinkMbps float64 `json:"downlink_mbps"`
}

// Environment is the introspectable state of the client environment.
//
// Values that were not reported stay at their zero value (nil pointers, zero
// screen size, empty timezone) and never trigger a heuristic.
type Environment struct {
	UserAgent       string       `json:"user_agent"`
	Plugins         *int         `json:"plugins,omitempty"`
	ScreenWidth     int          `json:"screen_width,omitempty"`
	ScreenHeight    int          `json:"screen_height,omitempty"`
	Connection      *NetworkInfo `json:"connection,omitempty"`
	Languages       []string     `json:"languages,omitempty"`
	Timezone        string       `json:"timezone,omitempty"`
	WebRTCAvailable bool         `json:"webrtc_available"`
}

// WebRTCReport carries what a client observed while negotiating connectivity.
type WebRTCReport struct {
	// Available is false when the client has no peer-connection support.
	Available bool `json:"available"`

	// Error is set when the offer/local-description step failed.
	Error string `json:"error,omitempty"`

	// Candidates are raw ICE candidate lines.
	Candidates []string `json:"candidates,omitempty"`
}

// Report is the raw evidence a remote client collected and submits for scoring.
type Report struct {
	WebRTC       WebRTCReport      `json:"webrtc"`
	Observations []HTTPObservation `json:"observations,omitempty"`
	Environment  Environment       `json:"environment"`
}
