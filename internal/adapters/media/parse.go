package media

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dkeye/Stream/internal/core"
)

var ErrParse = errors.New("invalid pipeline description")

// ParseLaunch builds a linear pipeline from "factory key=value ! factory ...". A chunk whose
// first word contains "/" is shorthand for a capsfilter. Linking into a webrtcbin takes a new
// "sink_%u" pad.
func (e *Engine) ParseLaunch(desc string) (core.Pipeline, error) {
	chunks := splitUnquoted(desc, '!')
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrParse)
	}
	p := e.NewPipeline("")
	var prev core.Element
	for _, chunk := range chunks {
		el, err := e.parseChunk(chunk)
		if err != nil {
			_ = p.Close()
			return nil, err
		}
		if err := p.Add(el); err != nil {
			_ = p.Close()
			return nil, fmt.Errorf("%w: %w", ErrParse, err)
		}
		if prev != nil {
			if err := linkLaunch(prev, el); err != nil {
				_ = p.Close()
				return nil, fmt.Errorf("%w: link %s ! %s: %w", ErrParse, prev.Name(), el.Name(), err)
			}
		}
		prev = el
	}
	return p, nil
}

func linkLaunch(src, dst core.Element) error {
	if bin, ok := dst.(*WebRTCBin); ok {
		pad, err := bin.RequestPad("sink_%u")
		if err != nil {
			return err
		}
		return pad.Link(src)
	}
	return src.Link(dst)
}

func (e *Engine) parseChunk(chunk string) (core.Element, error) {
	fields := splitUnquoted(chunk, ' ')
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty element", ErrParse)
	}
	factory, props := fields[0], fields[1:]
	if strings.Contains(factory, "/") {
		props = append([]string{"caps=" + factory}, props...)
		factory = "capsfilter"
	}

	name := ""
	var kv [][2]string
	for _, f := range props {
		k, v, ok := strings.Cut(f, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("%w: bad property %q", ErrParse, f)
		}
		v = unquote(v)
		if k == "name" {
			name = v
			continue
		}
		kv = append(kv, [2]string{k, v})
	}

	el, err := e.MakeElement(factory, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	for _, p := range kv {
		if err := el.SetProperty(p[0], p[1]); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrParse, err)
		}
	}
	return el, nil
}

// splitUnquoted splits s on sep outside double quotes and drops empty parts.
func splitUnquoted(s string, sep rune) []string {
	var (
		out    []string
		cur    strings.Builder
		quoted bool
	)
	flush := func() {
		if t := strings.TrimSpace(cur.String()); t != "" {
			out = append(out, t)
		}
		cur.Reset()
	}
	for _, r := range s {
		switch {
		case r == '"':
			quoted = !quoted
			cur.WriteRune(r)
		case r == sep && !quoted:
			flush()
		case sep == ' ' && !quoted && (r == '\t' || r == '\n'):
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return out
}

func unquote(v string) string {
	if len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"' {
		return v[1 : len(v)-1]
	}
	return v
}
