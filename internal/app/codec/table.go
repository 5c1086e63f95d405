package codec

import "strings"

// Normalize maps an encoder name to the codec name used in SDP.
func Normalize(format string) string {
	f := strings.ToUpper(strings.TrimSpace(format))
	if f == "MJPEG" {
		return "JPEG"
	}
	return f
}

// PayloadFor is the RTP payload type the payloader is configured with for codec.
func PayloadFor(codec string) int {
	switch Normalize(codec) {
	case "H264", "H265":
		return 103
	default:
		return 96
	}
}

var payloaders = map[string]string{
	"VP8":  "rtpvp8pay",
	"VP9":  "rtpvp9pay",
	"H264": "rtph264pay",
	"H265": "rtph265pay",
	"JPEG": "rtpjpegpay",
}

// PayloaderFor returns the payloader element factory for codec, "" when unsupported.
func PayloaderFor(codec string) string {
	return payloaders[Normalize(codec)]
}

// DepayloaderFor returns the depayloader factory matching PayloaderFor.
func DepayloaderFor(codec string) string {
	pay := PayloaderFor(codec)
	if pay == "" {
		return ""
	}
	return strings.TrimSuffix(pay, "pay") + "depay"
}

// ClockRate is the RTP clock of every supported video codec.
const ClockRate = 90000

// MimeType returns the "video/<codec>" mime type used by the WebRTC engine.
func MimeType(codec string) string {
	return "video/" + Normalize(codec)
}

// QueueParams are the per-branch queue properties: realtime codecs drop stale frames, H.26x
// keeps every buffer so parameter sets are not lost.
func QueueParams(codec string) map[string]string {
	switch Normalize(codec) {
	case "H264", "H265":
		return map[string]string{"leaky": "0"}
	default:
		return map[string]string{"leaky": "2", "max-size-buffers": "1"}
	}
}

// PayloaderParams are the payloader properties for codec and payload type.
func PayloaderParams(codec string, pt int) map[string]string {
	p := map[string]string{"pt": itoa(pt)}
	switch Normalize(codec) {
	case "H264", "H265":
		p["config-interval"] = "1"
	}
	return p
}

// TransceiverCaps describes a send-only video transceiver for codec/pt.
func TransceiverCaps(codec string, pt int) string {
	return "application/x-rtp,media=video,encoding-name=" + Normalize(codec) + ",payload=" + itoa(pt)
}
