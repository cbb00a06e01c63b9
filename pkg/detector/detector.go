// Package detector assembles the four probes from configuration, either over
// live host capabilities or over a client-submitted report.
package detector

import (
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/gokaycavdar/go-vpnsense/pkg/config"
	"github.com/gokaycavdar/go-vpnsense/pkg/engine"
	"github.com/gokaycavdar/go-vpnsense/pkg/gather"
	"github.com/gokaycavdar/go-vpnsense/pkg/httpclient"
	"github.com/gokaycavdar/go-vpnsense/pkg/models"
	"github.com/gokaycavdar/go-vpnsense/pkg/probes"
)

// Annotations enrich the network probe's exit diagnostics. Both are optional
// and neither changes a score.
type Annotations struct {
	ASN     probes.ASNResolver
	Proxies probes.ProxyLister
}

// Dependencies are the capabilities the probes collect evidence through.
// A nil Gatherer means peer connectivity is unavailable.
type Dependencies struct {
	Gatherer       probes.CandidateGatherer
	LatencyProber  probes.HTTPProber
	NetworkProber  probes.HTTPProber
	Environment    probes.EnvironmentSource
	Annotations    Annotations
	NoRoundPausing bool
}

// Build wires the webrtc, latency, fingerprint and network probes, in that order.
func Build(cfg config.Config, deps Dependencies) []probes.Probe {
	pc := cfg.Probes

	topology := probes.NewTopologyProbe(deps.Gatherer)
	topology.STUNServers = pc.WebRTC.STUNServers
	topology.Window = pc.WebRTC.Window

	latency := probes.NewLatencyProbe(deps.LatencyProber)
	latency.URLs = pc.Latency.URLs
	latency.Rounds = pc.Latency.Rounds
	latency.PerRound = pc.Latency.PerRound
	latency.CallTimeout = pc.Latency.CallTimeout
	latency.Pause = pc.Latency.Pause
	if deps.NoRoundPausing {
		latency.Pause = 0
	}

	network := probes.NewNetworkProbe(deps.NetworkProber)
	network.ReachabilityURLs = pc.Network.ReachabilityURLs
	network.EchoURLs = pc.Network.EchoURLs
	network.CallTimeout = pc.Network.CallTimeout
	network.SlowAfter = pc.Network.SlowAfter
	network.ASN = deps.Annotations.ASN
	network.Proxies = deps.Annotations.Proxies

	return []probes.Probe{
		topology,
		latency,
		probes.NewFingerprintProbe(deps.Environment),
		network,
	}
}

// ForHost builds probes that examine the machine running the binary.
func ForHost(cfg config.Config, ann Annotations) ([]probes.Probe, error) {
	client, err := newHTTPClient(cfg)
	if err != nil {
		return nil, err
	}
	prober := gather.NewHTTPProber(client)

	deps := Dependencies{
		LatencyProber: prober,
		NetworkProber: prober,
		Environment:   gather.NewHostEnvironment(cfg.HTTP.UserAgent, cfg.Probes.WebRTC.Enabled),
		Annotations:   ann,
	}
	if cfg.Probes.WebRTC.Enabled {
		deps.Gatherer = gather.NewWebRTCGatherer()
	}
	return Build(cfg, deps), nil
}

// ForReport builds probes that replay a client's report. Replayed requests take
// no wall-clock time, so latency rounds are not paced.
func ForReport(cfg config.Config, r models.Report, ann Annotations) []probes.Probe {
	return Build(cfg, Dependencies{
		Gatherer:       gather.NewReplayGatherer(r.WebRTC),
		LatencyProber:  gather.NewReplayProber(observationsFor("latency", r.Observations)),
		NetworkProber:  gather.NewReplayProber(observationsFor("network", r.Observations)),
		Environment:    gather.StaticEnvironment{Env: r.Environment},
		Annotations:    ann,
		NoRoundPausing: true,
	})
}

// NewHost returns a ready detector for host mode.
func NewHost(cfg config.Config, logger *zap.Logger, ann Annotations) (*engine.Detector, error) {
	ps, err := ForHost(cfg, ann)
	if err != nil {
		return nil, err
	}
	return engine.New(cfg.EngineConfig(), logger, ps...), nil
}

func observationsFor(probe string, all []models.HTTPObservation) []models.HTTPObservation {
	var out []models.HTTPObservation
	for _, o := range all {
		if o.Probe == "" || o.Probe == probe {
			out = append(out, o)
		}
	}
	return out
}

func newHTTPClient(cfg config.Config) (*http.Client, error) {
	proxy := http.ProxyFromEnvironment
	if cfg.HTTP.Proxy != "" {
		u, err := url.Parse(cfg.HTTP.Proxy)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		proxy = http.ProxyURL(u)
	}

	return httpclient.New(httpclient.Config{
		Timeout:   max(cfg.Probes.Latency.CallTimeout, cfg.Probes.Network.CallTimeout),
		Proxy:     proxy,
		UserAgent: cfg.HTTP.UserAgent,
		Insecure:  cfg.HTTP.Insecure,
	}), nil
}
