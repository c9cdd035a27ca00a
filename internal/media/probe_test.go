package media

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProbe(t *testing.T) {
	raw := []byte(`{
  "streams": [
    {"index": 0, "codec_name": "h264", "codec_type": "video", "pix_fmt": "yuv420p"},
    {"index": 1, "codec_name": "aac", "codec_type": "audio", "bit_rate": "192000"}
  ],
  "format": {"filename": "x.mp4", "duration": "183.466000", "format_name": "mov,mp4,m4a,3gp,3g2,mj2"}
}`)

	res, err := parseProbe(raw)
	require.NoError(t, err)
	assert.InDelta(t, 183.466, res.DurationSeconds(), 0.0001)

	a, ok := res.Stream("AUDIO")
	require.True(t, ok)
	assert.Equal(t, "192000", a.BitRate)

	_, ok = res.Stream("subtitle")
	assert.False(t, ok)
}

func TestDurationSecondsUnavailable(t *testing.T) {
	assert.Zero(t, ProbeResult{}.DurationSeconds())
	assert.Zero(t, ProbeResult{Format: ProbeFormat{Duration: "N/A"}}.DurationSeconds())
}

func TestProbeEmptyPath(t *testing.T) {
	_, err := Probe(context.Background(), "", " ")
	assert.Error(t, err)
}
