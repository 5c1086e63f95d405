// Package codec normalizes negotiated SDP to the single codec and payload type the pipeline emits.
package codec

import (
	"regexp"
	"strconv"

	"github.com/rs/zerolog/log"
)

var (
	rtpmapRe = regexp.MustCompile(`a=rtpmap:(\d+)\s+([A-Za-z0-9]+)/(\d+)`)
	mlineRe  = regexp.MustCompile(`m=video\s+\d+\s+\S+\s+[\d ]+`)
)

// ForceEncoder rewrites every codec map line that disagrees with codec or pt so the answer
// advertises exactly what the pipeline sends. With pt > 0 the video media line is reduced to pt
// and the fmtp/rtcp-fb/rtpmap lines of the last mapped payload are renumbered to it.
// The result is stable: ForceEncoder(ForceEncoder(s)) == ForceEncoder(s).
func ForceEncoder(sdp, codec string, pt int) string {
	want := ""
	if pt > 0 {
		want = strconv.Itoa(pt)
	}

	lastPT := ""
	out := rtpmapRe.ReplaceAllStringFunc(sdp, func(line string) string {
		m := rtpmapRe.FindStringSubmatch(line)
		gotPT, gotCodec, rate := m[1], m[2], m[3]
		lastPT = gotPT
		if gotCodec == codec && (want == "" || gotPT == want) {
			return line
		}
		repl := "a=rtpmap:" + gotPT + " " + codec + "/" + rate
		log.Debug().Str("module", "app.codec").Str("from", line).Str("to", repl).Msg("rewrote rtpmap")
		return repl
	})

	if want == "" {
		return out
	}
	out = mlineRe.ReplaceAllString(out, "m=video 9 UDP/TLS/RTP/SAVPF "+want)
	if lastPT == "" {
		return out
	}
	for _, attr := range []string{"a=fmtp:", "a=rtcp-fb:", "a=rtpmap:"} {
		re := regexp.MustCompile(regexp.QuoteMeta(attr+lastPT) + `( [^\r\n]*)(\r?\n)`)
		out = re.ReplaceAllString(out, attr+want+"${1}${2}")
	}
	if lastPT != want {
		log.Debug().Str("module", "app.codec").Str("from", lastPT).Str("to", want).Msg("renumbered payload type")
	}
	return out
}
