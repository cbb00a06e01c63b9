package detector

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokaycavdar/go-vpnsense/pkg/config"
	"github.com/gokaycavdar/go-vpnsense/pkg/engine"
	"github.com/gokaycavdar/go-vpnsense/pkg/gather"
	"github.com/gokaycavdar/go-vpnsense/pkg/models"
	"github.com/gokaycavdar/go-vpnsense/pkg/probes"
	"github.com/gokaycavdar/go-vpnsense/pkg/reputation"
)

func intPtr(n int) *int { return &n }

func cleanEnvironment() models.Environment {
	return models.Environment{
		UserAgent:       "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36",
		Plugins:         intPtr(3),
		ScreenWidth:     1920,
		ScreenHeight:    1080,
		Languages:       []string{"tr-TR", "en"},
		Timezone:        "Europe/Istanbul",
		WebRTCAvailable: true,
	}
}

// observations times every latency URL three times and every network URL once.
func observations(cfg config.Config, latencyMs float64, reachFails int) []models.HTTPObservation {
	var out []models.HTTPObservation
	for _, u := range cfg.Probes.Latency.URLs {
		for n := 0; n < 3; n++ {
			out = append(out, models.HTTPObservation{Method: http.MethodHead, URL: u, ElapsedMs: latencyMs, Status: 200, Probe: "latency"})
		}
	}
	for i, u := range cfg.Probes.Network.ReachabilityURLs {
		o := models.HTTPObservation{Method: http.MethodHead, URL: u, ElapsedMs: 90, Status: 200, Probe: "network"}
		if i < reachFails {
			o = models.HTTPObservation{Method: http.MethodHead, URL: u, Failed: true, Probe: "network"}
		}
		out = append(out, o)
	}
	for _, u := range cfg.Probes.Network.EchoURLs {
		out = append(out, models.HTTPObservation{Method: http.MethodGet, URL: u, ElapsedMs: 80, Status: 200, Body: "203.0.113.7", Probe: "network"})
	}
	return out
}

func detect(t *testing.T, cfg config.Config, r models.Report) *models.Verdict {
	t.Helper()
	d := engine.New(cfg.EngineConfig(), nil, ForReport(cfg, r, Annotations{})...)
	return d.Detect(context.Background())
}

func TestReportCleanClient(t *testing.T) {
	cfg := config.Default()
	v := detect(t, cfg, models.Report{
		WebRTC: models.WebRTCReport{Available: true, Candidates: []string{
			"candidate:1 1 udp 2122260223 192.168.1.20 61000 typ host",
			"candidate:2 1 udp 2122194687 fe80::1c2a 61001 typ host",
			"candidate:3 1 udp 1686052607 203.0.113.7 61000 typ srflx raddr 192.168.1.20 rport 61000",
		}},
		Observations: observations(cfg, 45, 0),
		Environment:  cleanEnvironment(),
	})

	assert.Equal(t, 0, v.TotalScore)
	assert.False(t, v.IsVPN)
	for _, r := range v.Results {
		assert.Equal(t, "normal_"+r.Probe, r.Reason())
	}
}

func TestReportBlockedWebRTCClient(t *testing.T) {
	cfg := config.Default()
	env := cleanEnvironment()
	env.WebRTCAvailable = false

	v := detect(t, cfg, models.Report{
		WebRTC:       models.WebRTCReport{Available: false},
		Observations: observations(cfg, 45, 2),
		Environment:  env,
	})

	scores := map[string]int{}
	for _, r := range v.Results {
		scores[r.Probe] = r.Score
	}
	assert.Equal(t, map[string]int{"webrtc": 20, "latency": 0, "fingerprint": 10, "network": 10}, scores)
	assert.Equal(t, 40, v.TotalScore)
	assert.True(t, v.IsVPN)
}

func TestReportTunnelledClient(t *testing.T) {
	cfg := config.Default()
	env := cleanEnvironment()
	env.UserAgent += " SecureVPN/3.2"

	v := detect(t, cfg, models.Report{
		WebRTC: models.WebRTCReport{Available: true, Candidates: []string{
			"candidate:1 1 udp 41885439 198.18.4.2 3478 typ relay raddr 0.0.0.0 rport 0",
		}},
		Observations: observations(cfg, 1800, 0),
		Environment:  env,
	})

	webrtc, _ := v.Result("webrtc")
	assert.Equal(t, probes.ScoreNoLocalIP+probes.ScoreRelayOnly+probes.ScoreVPNIPPattern+probes.ScoreFewCandidates, webrtc.Score)

	latency, _ := v.Result("latency")
	assert.Equal(t, probes.ScoreHighAvgLatency, latency.Score)

	fp, _ := v.Result("fingerprint")
	assert.Equal(t, probes.ScoreVPNKeyword, fp.Score)
	assert.True(t, v.IsVPN)
}

func TestReportWithoutObservations(t *testing.T) {
	cfg := config.Default()
	v := detect(t, cfg, models.Report{
		WebRTC:      models.WebRTCReport{Available: true, Error: "InvalidStateError"},
		Environment: cleanEnvironment(),
	})

	webrtc, _ := v.Result("webrtc")
	assert.Equal(t, "webrtc_error", webrtc.Reason())

	// Every unobserved request counts as failed.
	network, _ := v.Result("network")
	assert.Equal(t, probes.ScoreReachabilityFailures+probes.ScoreEchoNone, network.Score)

	latency, _ := v.Result("latency")
	assert.Equal(t, probes.ScoreHighAvgLatency, latency.Score)
}

func TestBuildAppliesConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Probes.WebRTC.Window = 2 * time.Second
	cfg.Probes.Latency.Rounds = 2
	cfg.Probes.Network.SlowAfter = time.Second

	ps := Build(cfg, Dependencies{NoRoundPausing: true})
	require.Len(t, ps, 4)

	names := []string{}
	for _, p := range ps {
		names = append(names, p.Name())
	}
	assert.Equal(t, []string{"webrtc", "latency", "fingerprint", "network"}, names)

	assert.Equal(t, 2*time.Second, ps[0].(*probes.TopologyProbe).Window)
	lat := ps[1].(*probes.LatencyProbe)
	assert.Equal(t, 2, lat.Rounds)
	assert.Zero(t, lat.Pause)
	assert.Equal(t, time.Second, ps[3].(*probes.NetworkProbe).SlowAfter)
}

func TestReportExitAnnotations(t *testing.T) {
	cfg := config.Default()
	proxies := reputation.NewProxyList("203.0.113.200")

	ps := ForReport(cfg, models.Report{
		Observations: observations(cfg, 45, 0),
		Environment:  cleanEnvironment(),
	}, Annotations{Proxies: proxies})

	v := engine.New(cfg.EngineConfig(), nil, ps...).Detect(context.Background())
	network, ok := v.Result("network")
	require.True(t, ok)

	exit := network.Details["exit"].(map[string]any)
	assert.Equal(t, "203.0.113.0/24", exit["prefix"])
	assert.Equal(t, true, exit["known_proxy"])
	assert.Equal(t, 0, network.Score)
}

func TestForHost(t *testing.T) {
	cfg := config.Default()
	cfg.Probes.WebRTC.Enabled = false

	ps, err := ForHost(cfg, Annotations{})
	require.NoError(t, err)
	assert.Nil(t, ps[0].(*probes.TopologyProbe).Gatherer)
	assert.Equal(t, cfg.Probes.Latency.Pause, ps[1].(*probes.LatencyProbe).Pause)

	cfg.HTTP.Proxy = "http://[::1"
	_, err = ForHost(cfg, Annotations{})
	assert.Error(t, err)
}

func TestHostDefaultUserAgentIsNotFlagged(t *testing.T) {
	cfg := config.Default()
	env, err := gather.NewHostEnvironment(cfg.HTTP.UserAgent, true).Environment(context.Background())
	require.NoError(t, err)

	res := probes.ScoreFingerprint(env)
	assert.False(t, res.Reasons.Has(models.ReasonVPNKeyword), "user agent %q", env.UserAgent)
}
