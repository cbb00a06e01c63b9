package probes

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/gokaycavdar/go-vpnsense/pkg/models"
)

// Latency probe weights and thresholds.
const (
	ScoreInsufficientData   = 10
	ScoreLatencyFailed      = 5
	ScoreHighVariance       = 15
	ScoreHighAvgLatency     = 12
	ScoreInconsistentTiming = 10
	ScoreSlowResponses      = 8

	highVarianceMs2     = 50000.0
	highAvgLatencyMs    = 1500.0
	inconsistentRangeMs = 2000.0
	slowResponseMs      = 4000.0
	maxPlausibleMs      = 10000.0
	minValidSamples     = 4
)

// DefaultLatencyURLs is the pool of well-known endpoints timed by the probe.
var DefaultLatencyURLs = []string{
	"https://www.google.com/favicon.ico",
	"https://www.github.com/favicon.ico",
	"https://www.cloudflare.com/favicon.ico",
	"https://www.microsoft.com/favicon.ico",
}

// LatencyProbe times lightweight requests to several endpoints over a few
// sequential rounds. Tunnelled traffic tends to be slower and far less stable.
type LatencyProbe struct {
	Prober HTTPProber
	URLs   []string

	Rounds   int
	PerRound int

	// CallTimeout bounds each request.
	CallTimeout time.Duration

	// Pause separates rounds so consecutive samples do not interfere.
	Pause time.Duration

	// FailurePenalty is recorded in place of a failed request's latency.
	FailurePenalty time.Duration
}

// NewLatencyProbe creates the probe with the default pool and pacing.
func NewLatencyProbe(p HTTPProber) *LatencyProbe {
	return &LatencyProbe{
		Prober:         p,
		URLs:           DefaultLatencyURLs,
		Rounds:         3,
		PerRound:       3,
		CallTimeout:    4 * time.Second,
		Pause:          500 * time.Millisecond,
		FailurePenalty: 2 * time.Second,
	}
}

func (l *LatencyProbe) Name() string { return "latency" }

func (l *LatencyProbe) FallbackScore() int { return ScoreLatencyFailed }

func (l *LatencyProbe) Ceiling() time.Duration {
	calls := time.Duration(l.Rounds * l.PerRound)
	pauses := time.Duration(max(l.Rounds-1, 0))
	return calls*l.CallTimeout + pauses*l.Pause + time.Second
}

func (l *LatencyProbe) Run(ctx context.Context) (models.ProbeResult, error) {
	samples := make([]float64, 0, l.Rounds*l.PerRound)
	for round := 0; round < l.Rounds; round++ {
		samples = append(samples, l.measureRound(ctx, round)...)
		if round < l.Rounds-1 {
			sleep(ctx, l.Pause)
		}
	}
	return ScoreLatency(samples), nil
}

// measureRound times PerRound distinct endpoints, rotating through the pool so
// every round starts at a different site.
func (l *LatencyProbe) measureRound(ctx context.Context, round int) []float64 {
	n := min(l.PerRound, len(l.URLs))
	out := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		url := l.URLs[(round+i)%len(l.URLs)]
		out = append(out, l.measure(ctx, url))
	}
	return out
}

func (l *LatencyProbe) measure(ctx context.Context, url string) float64 {
	callCtx, cancel := context.WithTimeout(ctx, l.CallTimeout)
	defer cancel()

	obs, err := l.Prober.Probe(callCtx, http.MethodHead, url)
	if err != nil || obs.Failed {
		return float64(l.FailurePenalty.Milliseconds())
	}
	return obs.ElapsedMs
}

// ScoreLatency scores latency samples in milliseconds. Samples outside (0, 10000)
// are discarded before any statistic is computed.
func ScoreLatency(samples []float64) models.ProbeResult {
	valid := make([]float64, 0, len(samples))
	for _, s := range samples {
		if s > 0 && s < maxPlausibleMs {
			valid = append(valid, s)
		}
	}

	if len(valid) < minValidSamples {
		return models.ProbeResult{
			Probe:   "latency",
			Score:   ScoreInsufficientData,
			Reasons: models.NewReasonSet(models.ReasonInsufficientData),
			Details: map[string]any{"sample_count": len(valid)},
		}
	}

	mean, variance := meanVariance(valid)
	lo, hi := valid[0], valid[0]
	for _, s := range valid[1:] {
		lo = math.Min(lo, s)
		hi = math.Max(hi, s)
	}
	spread := hi - lo

	var (
		score   int
		reasons models.ReasonSet
	)

	if variance > highVarianceMs2 {
		score += ScoreHighVariance
		reasons = reasons.Add(models.ReasonHighVariance)
	}
	if mean > highAvgLatencyMs {
		score += ScoreHighAvgLatency
		reasons = reasons.Add(models.ReasonHighAvgLatency)
	}
	if spread > inconsistentRangeMs {
		score += ScoreInconsistentTiming
		reasons = reasons.Add(models.ReasonInconsistentTiming)
	}
	if hi > slowResponseMs {
		score += ScoreSlowResponses
		reasons = reasons.Add(models.ReasonSlowResponses)
	}

	return models.ProbeResult{
		Probe:   "latency",
		Score:   score,
		Reasons: reasons,
		Details: map[string]any{
			"avg_latency_ms": math.Round(mean),
			"variance":       math.Round(variance),
			"range_ms":       math.Round(spread),
			"sample_count":   len(valid),
		},
	}
}

// meanVariance returns the mean and population variance of xs.
func meanVariance(xs []float64) (float64, float64) {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))

	var sq float64
	for _, x := range xs {
		d := x - mean
		sq += d * d
	}
	return mean, sq / float64(len(xs))
}
