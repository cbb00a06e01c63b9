package probes

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gokaycavdar/go-vpnsense/pkg/models"
)

type fakeGatherer struct {
	candidates []models.Candidate
	err        error

	gotServers []string
	gotWindow  time.Duration
}

func (f *fakeGatherer) Gather(_ context.Context, servers []string, window time.Duration) ([]models.Candidate, error) {
	f.gotServers = servers
	f.gotWindow = window
	return f.candidates, f.err
}

var errUnreachable = errors.New("unreachable")

// fakeProber answers from a handler and records every call in order.
type fakeProber struct {
	mu      sync.Mutex
	calls   []string
	handler func(method, url string) (models.HTTPObservation, error)
}

func (f *fakeProber) Probe(ctx context.Context, method, url string) (models.HTTPObservation, error) {
	f.mu.Lock()
	f.calls = append(f.calls, method+" "+url)
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return models.HTTPObservation{}, err
	}
	return f.handler(method, url)
}

func fixedLatency(ms float64) func(string, string) (models.HTTPObservation, error) {
	return func(method, url string) (models.HTTPObservation, error) {
		return models.HTTPObservation{Method: method, URL: url, ElapsedMs: ms, Status: 200}, nil
	}
}

func alwaysFail(string, string) (models.HTTPObservation, error) {
	return models.HTTPObservation{}, errUnreachable
}

type staticSource struct {
	env models.Environment
	err error
}

func (s staticSource) Environment(context.Context) (models.Environment, error) {
	return s.env, s.err
}

type fakeASN struct {
	asn uint
	org string
}

func (f fakeASN) LookupASN(string) (uint, string, error) { return f.asn, f.org, nil }

func intPtr(n int) *int { return &n }

type fakeProxies map[string]bool

func (f fakeProxies) Contains(addr string) bool { return f[addr] }
