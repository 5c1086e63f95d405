package orch

import "github.com/dkeye/Stream/internal/app/session"

// Stat is the introspection document behind GET /stat. Every section is read live.
type Stat struct {
	Sessions []session.Snapshot `json:"sessions"`
	Server   map[string]any     `json:"server"`
	Flags    map[string]bool    `json:"flags"`
	ICE      map[string]any     `json:"ice"`
	Elements map[string]string  `json:"elements"`
	Pipeline map[string]any     `json:"pipeline"`
	Routes   map[string]string  `json:"routes,omitempty"`
}

func (o *Orchestrator) Stat() Stat {
	st := Stat{Sessions: o.Registry.Status()}
	if o.Topology != nil {
		st.Pipeline = map[string]any{
			"shared":           o.Topology.Shared(),
			"webrtcbin_shared": o.Topology.WebRTCBinShared(),
			"rtppay_shared":    o.Topology.PayloaderShared(),
			"playing":          o.Topology.Playing(),
		}
	}
	if o.Store == nil {
		return st
	}
	cfg := o.Store.Config()
	st.Server = map[string]any{
		"address":        cfg.Address,
		"port":           cfg.Port,
		"stun_server":    cfg.StunServer,
		"bundle_policy":  cfg.BundlePolicy,
		"rtppay_payload": cfg.Payload(),
		"encoder_format": cfg.Codec(),
		"rtppay_elem":    cfg.Payloader(),
		"content_file":   cfg.ContentFile,
		"source":         cfg.Source.URL,
	}
	st.Flags = map[string]bool{
		"identity_using":     cfg.Flags.IdentityUsing,
		"debugger_using":     cfg.Flags.DebuggerUsing,
		"sdpdebug_using":     cfg.Flags.SDPDebugUsing,
		"multiple_peers":     cfg.Flags.MultiplePeers,
		"reset_on_create":    cfg.Flags.ResetOnCreate,
		"state_switching":    cfg.Flags.StateSwitching,
		"transceiver_adding": cfg.Flags.TransceiverAdding,
	}
	st.ICE = map[string]any{
		"step_ms": cfg.ICE.Step.Milliseconds(),
		"wait_ms": cfg.ICE.Wait.Milliseconds(),
		"gather":  cfg.ICE.Gather,
	}
	st.Elements = map[string]string{
		"source_name":    cfg.Elements.Source,
		"convert_name":   cfg.Elements.Convert,
		"encoder_name":   cfg.Elements.Encoder,
		"parser_name":    cfg.Elements.Parser,
		"rtppay_name":    cfg.Elements.RTPPay,
		"tee_name":       cfg.Elements.Tee,
		"webrtcbin_name": cfg.Elements.WebRTCBin,
	}
	if st.Pipeline == nil {
		st.Pipeline = map[string]any{}
	}
	st.Pipeline["init"] = cfg.Pipeline.Init
	return st
}
