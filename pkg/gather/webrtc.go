// Package gather provides the capabilities the probes collect evidence through:
// live ones for the host the binary runs on, and replay ones that feed a
// client-submitted report back through the same scoring code.
package gather

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/gokaycavdar/go-vpnsense/pkg/models"
	"github.com/gokaycavdar/go-vpnsense/pkg/probes"
)

// WebRTCGatherer discovers ICE candidates by opening a real peer connection.
type WebRTCGatherer struct {
	api *webrtc.API
}

// NewWebRTCGatherer creates a gatherer using the default pion stack.
func NewWebRTCGatherer() *WebRTCGatherer {
	return &WebRTCGatherer{api: webrtc.NewAPI()}
}

// Gather creates a peer connection with a single data channel, sets the local
// offer and collects candidates until the window closes or ctx is done. The connection is always closed before returning.
func (g *WebRTCGatherer) Gather(ctx context.Context, stunServers []string, window time.Duration) ([]models.Candidate, error) {
	cfg := webrtc.Configuration{}
	if len(stunServers) > 0 {
		cfg.ICEServers = []webrtc.ICEServer{{URLs: stunServers}}
	}

	pc, err := g.api.NewPeerConnection(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: new peer connection: %v", probes.ErrNegotiation, err)
	}
	defer pc.Close()

	var (
		mu         sync.Mutex
		candidates []models.Candidate
	)
	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		mu.Lock()
		candidates = append(candidates, models.Candidate{
			Address:  c.Address,
			Port:     int(c.Port),
			Protocol: c.Protocol.String(),
			Type:     c.Typ.String(),
		})
		mu.Unlock()
	})

	if _, err := pc.CreateDataChannel("probe", nil); err != nil {
		return nil, fmt.Errorf("%w: create data channel: %v", probes.ErrNegotiation, err)
	}

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create offer: %v", probes.ErrNegotiation, err)
	}

	if err := pc.SetLocalDescription(offer); err != nil {
		return nil, fmt.Errorf("%w: set local description: %v", probes.ErrNegotiation, err)
	}

	timer := time.NewTimer(window)
	defer timer.Stop()

	// Collection is timer-bound; gathering completing early does not end it.
	select {
	case <-timer.C:
	case <-ctx.Done():
	}

	mu.Lock()
	defer mu.Unlock()
	out := make([]models.Candidate, len(candidates))
	copy(out, candidates)
	return out, nil
}
