package probes

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gokaycavdar/go-vpnsense/pkg/models"
	"github.com/gokaycavdar/go-vpnsense/pkg/netaddr"
)

// Network probe weights.
const (
	ScoreReachabilityFailures = 10
	ScoreReachabilityDegraded = 5
	ScoreEchoNone             = 8
	ScoreEchoSingle           = 3
)

var (
	// DefaultReachabilityURLs are resolved and contacted to detect filtering.
	DefaultReachabilityURLs = []string{
		"https://dns.google/favicon.ico",
		"https://1.1.1.1/favicon.ico",
		"https://www.cloudflare.com/favicon.ico",
	}

	// DefaultEchoURLs are public "what is my IP" services. VPN clients and
	// privacy extensions commonly block them.
	DefaultEchoURLs = []string{
		"https://httpbin.org/ip",
		"https://api.ipify.org?format=json",
		"https://icanhazip.com",
	}
)

// NetworkProbe runs a reachability check and an IP-echo check, one after the other.
type NetworkProbe struct {
	Prober HTTPProber

	ReachabilityURLs []string
	EchoURLs         []string

	// CallTimeout bounds each request.
	CallTimeout time.Duration

	// SlowAfter marks a completed reachability request as slow.
	SlowAfter time.Duration

	// ASN and Proxies annotate the echoed address in diagnostics. Both optional.
	ASN     ASNResolver
	Proxies ProxyLister
}

// NewNetworkProbe creates the probe with the default endpoints.
func NewNetworkProbe(p HTTPProber) *NetworkProbe {
	return &NetworkProbe{
		Prober:           p,
		ReachabilityURLs: DefaultReachabilityURLs,
		EchoURLs:         DefaultEchoURLs,
		CallTimeout:      3 * time.Second,
		SlowAfter:        2 * time.Second,
	}
}

func (n *NetworkProbe) Name() string { return "network" }

func (n *NetworkProbe) Ceiling() time.Duration {
	calls := time.Duration(len(n.ReachabilityURLs) + len(n.EchoURLs))
	return calls*n.CallTimeout + time.Second
}

func (n *NetworkProbe) Run(ctx context.Context) (models.ProbeResult, error) {
	failures, slow := n.checkReachability(ctx)
	successes, bodies := n.checkEcho(ctx)

	reach := ScoreReachability(failures, slow)
	echo := ScoreEcho(successes)

	var reasons models.ReasonSet
	if reach > 0 {
		reasons = reasons.Add(models.ReasonDNSAnomaly)
	}
	if echo > 0 {
		reasons = reasons.Add(models.ReasonRequestPattern)
	}

	details := map[string]any{
		"reachability": map[string]any{
			"fail_count": failures,
			"slow_count": slow,
			"score":      reach,
		},
		"echo": map[string]any{
			"success_count": successes,
			"total_tests":   len(n.EchoURLs),
			"score":         echo,
		},
	}
	if exit := n.describeExit(bodies); exit != nil {
		details["exit"] = exit
	}

	return models.ProbeResult{
		Probe:   n.Name(),
		Score:   reach + echo,
		Reasons: reasons,
		Details: details,
	}, nil
}

func (n *NetworkProbe) checkReachability(ctx context.Context) (failures, slow int) {
	for _, url := range n.ReachabilityURLs {
		obs, err := n.call(ctx, http.MethodHead, url)
		if err != nil || obs.Failed {
			failures++
			continue
		}
		if obs.ElapsedMs > float64(n.SlowAfter.Milliseconds()) {
			slow++
		}
	}
	return failures, slow
}

func (n *NetworkProbe) checkEcho(ctx context.Context) (successes int, bodies []string) {
	for _, url := range n.EchoURLs {
		obs, err := n.call(ctx, http.MethodGet, url)
		if err != nil || !obs.OK() {
			continue
		}
		successes++
		bodies = append(bodies, obs.Body)
	}
	return successes, bodies
}

func (n *NetworkProbe) call(ctx context.Context, method, url string) (models.HTTPObservation, error) {
	callCtx, cancel := context.WithTimeout(ctx, n.CallTimeout)
	defer cancel()
	return n.Prober.Probe(callCtx, method, url)
}

// describeExit extracts the first public address echoed back and annotates it.
// The address itself is only ever reported masked.
func (n *NetworkProbe) describeExit(bodies []string) map[string]any {
	for _, body := range bodies {
		ip := ExtractIPv4(body)
		if ip == "" {
			continue
		}

		exit := map[string]any{"prefix": netaddr.MaskIP(ip)}
		if n.ASN != nil {
			if asn, org, err := n.ASN.LookupASN(ip); err == nil && asn != 0 {
				exit["asn"] = asn
				exit["org"] = org
				if provider, ok := DatacenterProvider(asn); ok {
					exit["datacenter"] = provider
				}
			}
		}
		if n.Proxies != nil && n.Proxies.Contains(ip) {
			exit["known_proxy"] = true
		}
		return exit
	}
	return nil
}

// ExtractIPv4 returns the first public IPv4 address found in an echo service body,
// whether it is plain text or JSON.
func ExtractIPv4(body string) string {
	fields := strings.FieldsFunc(body, func(r rune) bool {
		return !(r == '.' || (r >= '0' && r <= '9'))
	})
	for _, f := range fields {
		if netaddr.IsPublicIPv4(f) {
			return f
		}
	}
	return ""
}

// ScoreReachability scores the reachability sub-check.
func ScoreReachability(failures, slow int) int {
	switch {
	case failures >= 2:
		return ScoreReachabilityFailures
	case failures == 1 && slow >= 1:
		return ScoreReachabilityDegraded
	default:
		return 0
	}
}

// ScoreEcho scores the IP-echo sub-check.
func ScoreEcho(successes int) int {
	switch successes {
	case 0:
		return ScoreEchoNone
	case 1:
		return ScoreEchoSingle
	default:
		return 0
	}
}
