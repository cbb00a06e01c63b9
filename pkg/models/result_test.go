package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReasonSet(t *testing.T) {
	s := NewReasonSet(ReasonRelayOnly, ReasonNoLocalIP)
	assert.True(t, s.Has(ReasonNoLocalIP))
	assert.False(t, s.Has(ReasonFewCandidates))
	assert.Equal(t, []string{"no_local_ip", "relay_only"}, s.Tags())
	assert.Equal(t, "no_local_ip,relay_only", s.String())

	var empty ReasonSet
	assert.True(t, empty.Empty())
	assert.Equal(t, "", empty.String())
}

func TestEveryReasonHasATag(t *testing.T) {
	for r := Reason(1); r < reasonSentinel; r <<= 1 {
		tag, ok := reasonTags[r]
		require.True(t, ok, "reason %d has no tag", uint32(r))

		parsed, err := ParseReason(tag)
		require.NoError(t, err)
		assert.Equal(t, r, parsed)
	}
}

func TestReasonSetJSON(t *testing.T) {
	res := ProbeResult{
		Probe:   "latency",
		Score:   27,
		Reasons: NewReasonSet(ReasonHighVariance, ReasonHighAvgLatency),
	}

	data, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"probe":"latency","score":27,"reasons":["high_variance","high_avg_latency"]}`, string(data))

	var back ProbeResult
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, res.Reasons, back.Reasons)

	err = json.Unmarshal([]byte(`{"reasons":["teleport"]}`), &back)
	assert.Error(t, err)
}

func TestProbeResultReason(t *testing.T) {
	assert.Equal(t, "normal_webrtc", ProbeResult{Probe: "webrtc"}.Reason())
	assert.Equal(t, "webrtc_blocked", ProbeResult{Probe: "webrtc", Reasons: NewReasonSet(ReasonWebRTCBlocked)}.Reason())
}

func TestVerdictResult(t *testing.T) {
	v := &Verdict{Results: []ProbeResult{{Probe: "webrtc", Score: 20}, {Probe: "network", Score: 8}}}

	r, ok := v.Result("network")
	require.True(t, ok)
	assert.Equal(t, 8, r.Score)

	_, ok = v.Result("latency")
	assert.False(t, ok)
}
