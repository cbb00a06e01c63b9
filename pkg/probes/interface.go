package probes

import (
	"context"
	"errors"
	"time"

	"github.com/gokaycavdar/go-vpnsense/pkg/models"
)

// Probe is one independent heuristic check contributing a score to the verdict.
//
// Run may return an error; the engine turns it into a fallback result, so a
// probe never has to special-case its own failure.
type Probe interface {
	// Name is the short probe name used in results ("webrtc", "latency", ...).
	Name() string

	// Run gathers evidence and scores it.
	Run(ctx context.Context) (models.ProbeResult, error)
}

// Bounded is implemented by probes that know their own wall-clock ceiling.
// The engine stops waiting for the probe once the ceiling elapses.
type Bounded interface {
	Ceiling() time.Duration
}

// Fallback is implemented by probes whose failure is itself weak evidence and
// should contribute a non-zero score.
type Fallback interface {
	FallbackScore() int
}

var (
	// ErrCapabilityAbsent means the environment cannot negotiate peer connectivity at all.
	ErrCapabilityAbsent = errors.New("peer connection capability absent")

	// ErrNegotiation means the offer/local-description step failed.
	ErrNegotiation = errors.New("connectivity negotiation failed")
)

// CandidateGatherer triggers candidate discovery against the given STUN servers and
// returns whatever was discovered when the window closes.
type CandidateGatherer interface {
	Gather(ctx context.Context, stunServers []string, window time.Duration) ([]models.Candidate, error)
}

// HTTPProber issues one outbound request. Transport failures and timeouts are
// returned as errors; the deadline is carried by ctx.
type HTTPProber interface {
	Probe(ctx context.Context, method, url string) (models.HTTPObservation, error)
}

// EnvironmentSource exposes the client environment to the fingerprint probe.
type EnvironmentSource interface {
	Environment(ctx context.Context) (models.Environment, error)
}

// ASNResolver maps an address to its autonomous system.
type ASNResolver interface {
	LookupASN(ip string) (uint, string, error)
}

// ProxyLister reports whether an address belongs to a known open proxy or Tor exit.
type ProxyLister interface {
	Contains(addr string) bool
}

// sleep pauses for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
