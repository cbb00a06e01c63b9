package gather

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gokaycavdar/go-vpnsense/pkg/models"
	"github.com/gokaycavdar/go-vpnsense/pkg/probes"
)

var (
	// ErrNotObserved is returned when a report holds no (more) observations for a request.
	ErrNotObserved = errors.New("request not observed by client")

	errObservedFailure = errors.New("request failed on client")
)

// ReplayGatherer returns the candidates a client reported.
type ReplayGatherer struct {
	report models.WebRTCReport
}

func NewReplayGatherer(r models.WebRTCReport) *ReplayGatherer {
	return &ReplayGatherer{report: r}
}

// Gather ignores the servers and window; the client already chose them.
// Malformed candidate lines are skipped.
func (g *ReplayGatherer) Gather(context.Context, []string, time.Duration) ([]models.Candidate, error) {
	if !g.report.Available {
		return nil, probes.ErrCapabilityAbsent
	}
	if g.report.Error != "" {
		return nil, fmt.Errorf("%w: %s", probes.ErrNegotiation, g.report.Error)
	}

	out := make([]models.Candidate, 0, len(g.report.Candidates))
	for _, line := range g.report.Candidates {
		c, err := models.ParseCandidate(line)
		if err != nil {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// ReplayProber answers requests from a client's recorded observations.
//
// Observations for the same method and URL are consumed in order. An
// observation without a method matches any method.
type ReplayProber struct {
	mu     sync.Mutex
	queues map[string][]models.HTTPObservation
}

func NewReplayProber(observations []models.HTTPObservation) *ReplayProber {
	p := &ReplayProber{queues: make(map[string][]models.HTTPObservation)}
	for _, o := range observations {
		k := replayKey(o.Method, o.URL)
		p.queues[k] = append(p.queues[k], o)
	}
	return p
}

func replayKey(method, url string) string {
	if method == "" {
		method = "*"
	}
	return strings.ToUpper(method) + " " + url
}

func (p *ReplayProber) Probe(ctx context.Context, method, url string) (models.HTTPObservation, error) {
	if err := ctx.Err(); err != nil {
		return models.HTTPObservation{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, k := range []string{replayKey(method, url), replayKey("", url)} {
		q := p.queues[k]
		if len(q) == 0 {
			continue
		}
		obs := q[0]
		p.queues[k] = q[1:]

		if obs.Failed {
			return obs, fmt.Errorf("%s %s: %w", method, url, errObservedFailure)
		}
		return obs, nil
	}
	return models.HTTPObservation{Method: method, URL: url, Failed: true},
		fmt.Errorf("%s %s: %w", method, url, ErrNotObserved)
}

// StaticEnvironment returns a fixed, client-reported environment.
type StaticEnvironment struct {
	Env models.Environment
}

func (s StaticEnvironment) Environment(context.Context) (models.Environment, error) {
	return s.Env, nil
}
