package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Stream/internal/domain"
)

func TestPayloadTable(t *testing.T) {
	tests := []struct {
		format string
		codec  string
		pt     int
		pay    string
		depay  string
	}{
		{"vp8", "VP8", 96, "rtpvp8pay", "rtpvp8depay"},
		{"VP9", "VP9", 96, "rtpvp9pay", "rtpvp9depay"},
		{"h264", "H264", 103, "rtph264pay", "rtph264depay"},
		{"h265", "H265", 103, "rtph265pay", "rtph265depay"},
		{"mjpeg", "JPEG", 96, "rtpjpegpay", "rtpjpegdepay"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			assert.Equal(t, tt.codec, Normalize(tt.format))
			assert.Equal(t, tt.pt, PayloadFor(tt.format))
			assert.Equal(t, tt.pay, PayloaderFor(tt.format))
			assert.Equal(t, tt.depay, DepayloaderFor(tt.format))
		})
	}
	assert.Empty(t, PayloaderFor("theora"))
	assert.Empty(t, DepayloaderFor("theora"))
}

func TestQueueAndPayloaderParams(t *testing.T) {
	assert.Equal(t, map[string]string{"leaky": "2", "max-size-buffers": "1"}, QueueParams("VP8"))
	assert.Equal(t, map[string]string{"leaky": "0"}, QueueParams("H264"))
	assert.Equal(t, map[string]string{"pt": "103", "config-interval": "1"}, PayloaderParams("h264", 103))
	assert.Equal(t, "application/x-rtp,media=video,encoding-name=VP8,payload=96", TransceiverCaps("vp8", 96))
}

const browserOffer = "v=0\r\n" +
	"o=- 123 2 IN IP4 127.0.0.1\r\n" +
	"s=-\r\n" +
	"t=0 0\r\n" +
	"a=group:BUNDLE 0\r\n" +
	"m=video 9 UDP/TLS/RTP/SAVPF 96\r\n" +
	"c=IN IP4 0.0.0.0\r\n" +
	"a=ice-ufrag:abcd\r\n" +
	"a=ice-pwd:0123456789abcdef012345\r\n" +
	"a=mid:0\r\n" +
	"a=recvonly\r\n" +
	"a=rtpmap:96 VP8/90000\r\n"

func TestValidateOffer(t *testing.T) {
	require.NoError(t, ValidateOffer(browserOffer))
	require.ErrorIs(t, ValidateOffer("not an sdp"), domain.ErrInvalidSDP)
	require.ErrorIs(t, ValidateOffer("v=0\r\no=- 1 1 IN IP4 0.0.0.0\r\ns=-\r\nt=0 0\r\n"), domain.ErrInvalidSDP)
}

func TestICECredentials(t *testing.T) {
	ufrag, pwd, err := ICECredentials(browserOffer)
	require.NoError(t, err)
	require.Equal(t, "abcd", ufrag)
	require.Equal(t, "0123456789abcdef012345", pwd)
}
