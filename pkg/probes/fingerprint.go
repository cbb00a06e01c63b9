package probes

import (
	"context"
	"math"
	"regexp"
	"strings"

	"github.com/gokaycavdar/go-vpnsense/pkg/models"
)

// Fingerprint probe weights.
const (
	ScoreVPNKeyword         = 25
	ScoreOperaGX            = 5
	ScoreWebRTCDisabled     = 10
	ScoreNoPlugins          = 12
	ScoreScreenExact        = 10
	ScoreScreenRatio        = 5
	ScoreConnectionMismatch = 8
	ScoreLocaleMismatch     = 8
)

var (
	vpnKeywords = []string{"vpn", "proxy", "tor", "tunnel", "private", "secure"}

	mobileUA = regexp.MustCompile(`(?i)Android|iPhone|iPad|iPod|BlackBerry|IEMobile|Opera Mini`)

	// Resolutions typical of virtual machines and proxy browsing services.
	suspiciousResolutions = [][2]int{
		{800, 600}, {1024, 768}, {1152, 864}, {1280, 960}, {1280, 1024},
	}
	suspiciousRatios = []float64{1.25, 1.333, 1.6}
)

const (
	resolutionTolerancePx = 5
	ratioTolerance        = 0.01
)

// FingerprintProbe is a synchronous scan of environment properties. It makes no
// network calls.
type FingerprintProbe struct {
	Source EnvironmentSource
}

// NewFingerprintProbe creates the probe over the given environment source.
func NewFingerprintProbe(src EnvironmentSource) *FingerprintProbe {
	return &FingerprintProbe{Source: src}
}

func (f *FingerprintProbe) Name() string { return "fingerprint" }

func (f *FingerprintProbe) Run(ctx context.Context) (models.ProbeResult, error) {
	env, err := f.Source.Environment(ctx)
	if err != nil {
		return models.ProbeResult{}, err
	}
	return ScoreFingerprint(env), nil
}

// HasVPNKeyword reports whether a user agent names a VPN, proxy or tunnel.
func HasVPNKeyword(ua string) bool {
	ua = strings.ToLower(ua)
	for _, kw := range vpnKeywords {
		if strings.Contains(ua, kw) {
			return true
		}
	}
	return false
}

// ScoreFingerprint scores an environment. Conditions are additive.
func ScoreFingerprint(env models.Environment) models.ProbeResult {
	var (
		score   int
		reasons models.ReasonSet
	)

	ua := strings.ToLower(env.UserAgent)
	if HasVPNKeyword(ua) {
		score += ScoreVPNKeyword
		reasons = reasons.Add(models.ReasonVPNKeyword)
	}

	// Opera GX ships a built-in VPN. Informational weight only.
	if strings.Contains(ua, "oprgx") {
		score += ScoreOperaGX
		reasons = reasons.Add(models.ReasonOperaGX)
	}

	if !env.WebRTCAvailable {
		score += ScoreWebRTCDisabled
		reasons = reasons.Add(models.ReasonWebRTCDisabled)
	}

	if env.Plugins != nil && *env.Plugins == 0 && !IsMobile(env.UserAgent) {
		score += ScoreNoPlugins
		reasons = reasons.Add(models.ReasonNoPlugins)
	}

	if s := screenScore(env.ScreenWidth, env.ScreenHeight); s > 0 {
		score += s
		reasons = reasons.Add(models.ReasonSuspiciousScreen)
	}

	if c := env.Connection; c != nil && c.EffectiveType == "slow-2g" && c.DownlinkMbps > 5 {
		score += ScoreConnectionMismatch
		reasons = reasons.Add(models.ReasonConnectionMismatch)
	}

	if LocaleMismatch(env.Languages, env.Timezone) {
		score += ScoreLocaleMismatch
		reasons = reasons.Add(models.ReasonLocaleMismatch)
	}

	details := map[string]any{
		"indicators": reasons.Tags(),
		"timezone":   env.Timezone,
		"languages":  firstN(env.Languages, 3),
		"ua_snippet": truncate(env.UserAgent, 50),
	}
	if env.Plugins != nil {
		details["plugin_count"] = *env.Plugins
	}

	return models.ProbeResult{
		Probe:   "fingerprint",
		Score:   score,
		Reasons: reasons,
		Details: details,
	}
}

// IsMobile reports whether the user agent identifies a mobile form factor.
func IsMobile(userAgent string) bool {
	return mobileUA.MatchString(userAgent)
}

// screenScore returns the exact-resolution weight, else the aspect-ratio weight,
// else zero. Unreported sizes score zero.
func screenScore(width, height int) int {
	if width <= 0 || height <= 0 {
		return 0
	}

	for _, r := range suspiciousResolutions {
		if abs(width-r[0]) < resolutionTolerancePx && abs(height-r[1]) < resolutionTolerancePx {
			return ScoreScreenExact
		}
	}

	ratio := float64(width) / float64(height)
	for _, r := range suspiciousRatios {
		if math.Abs(ratio-r) < ratioTolerance {
			return ScoreScreenRatio
		}
	}
	return 0
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func firstN(xs []string, n int) []string {
	if len(xs) <= n {
		return xs
	}
	return xs[:n]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
