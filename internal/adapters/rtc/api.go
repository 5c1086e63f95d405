// Package rtc adapts pion PeerConnections to the engine's webrtcbin contract.
package rtc

import (
	"fmt"
	"strings"

	"github.com/pion/interceptor"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
)

type Options struct {
	// Codec and Payload are what the pipeline emits; the codec is registered under Payload.
	Codec   string
	Payload int
	// LogLevel caps pion's own logging.
	LogLevel zerolog.Level
}

// Codecs the media engine can negotiate, with the payload type used when not the configured one.
var videoCodecs = []struct {
	name string
	mime string
	pt   webrtc.PayloadType
	fmtp string
}{
	{"VP8", webrtc.MimeTypeVP8, 96, ""},
	{"VP9", webrtc.MimeTypeVP9, 98, "profile-id=0"},
	{"H264", webrtc.MimeTypeH264, 102, "level-asymmetry-allowed=1;packetization-mode=1;profile-level-id=42e01f"},
	{"H265", webrtc.MimeTypeH265, 104, ""},
}

var videoFeedback = []webrtc.RTCPFeedback{
	{Type: "goog-remb"},
	{Type: "ccm", Parameter: "fir"},
	{Type: "nack"},
	{Type: "nack", Parameter: "pli"},
}

// MimeType maps a normalized codec name to its RTP mime type.
func MimeType(codec string) (string, bool) {
	for _, c := range videoCodecs {
		if strings.EqualFold(c.name, codec) {
			return c.mime, true
		}
	}
	return "", false
}

// Capability is the track capability for codec.
func Capability(codec string) (webrtc.RTPCodecCapability, error) {
	mime, ok := MimeType(codec)
	if !ok {
		return webrtc.RTPCodecCapability{}, fmt.Errorf("codec %q has no webrtc mapping", codec)
	}
	return webrtc.RTPCodecCapability{MimeType: mime, ClockRate: 90000, RTCPFeedback: videoFeedback}, nil
}

// NewAPI builds a pion API with the video codecs, the default interceptors and zerolog logging.
func NewAPI(opts Options) (*webrtc.API, error) {
	m := &webrtc.MediaEngine{}
	used := map[webrtc.PayloadType]bool{}
	if opts.Payload > 0 {
		used[webrtc.PayloadType(opts.Payload)] = true
	}
	for _, c := range videoCodecs {
		pt := c.pt
		if strings.EqualFold(c.name, opts.Codec) && opts.Payload > 0 {
			pt = webrtc.PayloadType(opts.Payload)
		} else if used[pt] {
			pt++
		}
		used[pt] = true
		err := m.RegisterCodec(webrtc.RTPCodecParameters{
			RTPCodecCapability: webrtc.RTPCodecCapability{
				MimeType:     c.mime,
				ClockRate:    90000,
				SDPFmtpLine:  c.fmtp,
				RTCPFeedback: videoFeedback,
			},
			PayloadType: pt,
		}, webrtc.RTPCodecTypeVideo)
		if err != nil {
			return nil, fmt.Errorf("register %s: %w", c.name, err)
		}
	}

	ir := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(m, ir); err != nil {
		return nil, fmt.Errorf("register interceptors: %w", err)
	}

	se := webrtc.SettingEngine{LoggerFactory: LoggerFactory{Level: opts.LogLevel}}

	return webrtc.NewAPI(
		webrtc.WithMediaEngine(m),
		webrtc.WithInterceptorRegistry(ir),
		webrtc.WithSettingEngine(se),
	), nil
}

// ICEServer converts a gst style "stun://host:port" to pion's "stun:host:port".
func ICEServer(url string) string {
	for _, scheme := range []string{"stun", "stuns", "turn", "turns"} {
		if rest, ok := strings.CutPrefix(url, scheme+"://"); ok {
			return scheme + ":" + rest
		}
	}
	return url
}

func BundlePolicy(s string) webrtc.BundlePolicy {
	switch s {
	case "max-compat":
		return webrtc.BundlePolicyMaxCompat
	case "max-bundle":
		return webrtc.BundlePolicyMaxBundle
	default:
		return webrtc.BundlePolicyBalanced
	}
}
