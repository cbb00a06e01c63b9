package gather

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokaycavdar/go-vpnsense/pkg/probes"
)

func TestWebRTCGathererHostOnly(t *testing.T) {
	if testing.Short() {
		t.Skip("opens a real peer connection")
	}

	// No STUN servers: only host candidates, no network access needed.
	got, err := NewWebRTCGatherer().Gather(context.Background(), nil, 500*time.Millisecond)
	require.NoError(t, err)
	for _, c := range got {
		assert.NotEmpty(t, c.Address)
		assert.NotEmpty(t, c.Type)
	}
}

func TestWebRTCGathererRejectsBadServer(t *testing.T) {
	_, err := NewWebRTCGatherer().Gather(context.Background(), []string{"http://not-a-stun-url"}, 100*time.Millisecond)
	assert.ErrorIs(t, err, probes.ErrNegotiation)
}

func TestWebRTCGathererStopsOnContext(t *testing.T) {
	if testing.Short() {
		t.Skip("opens a real peer connection")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := NewWebRTCGatherer().Gather(ctx, []string{"stun:192.0.2.1:3478"}, 10*time.Second)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestWebRTCGathererWaitsForWindow(t *testing.T) {
	if testing.Short() {
		t.Skip("opens a real peer connection")
	}

	// Host-only gathering completes almost immediately.
	window := 400 * time.Millisecond
	start := time.Now()
	_, err := NewWebRTCGatherer().Gather(context.Background(), nil, window)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), window)
}
