package orch

import (
	"context"
	"fmt"

	"github.com/dkeye/Stream/internal/domain"
	"github.com/rs/zerolog/log"
)

// Reply is a command result: plain text, or a JSON document when JSON is set.
type Reply struct {
	Text string
	JSON any
}

type CommandFunc func(ctx context.Context, args map[string]any) (Reply, error)

const (
	CmdMakeUUID   = "make_uuid"
	CmdDisconnect = "disconnect"
	CmdSessions   = "sessions"
	CmdConfig     = "config"
	CmdSave       = "save"
	CmdArgs       = "args"
)

// Register adds or replaces a command.
func (o *Orchestrator) Register(name string, fn CommandFunc) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cmds[name] = fn
}

func (o *Orchestrator) Commands() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]string, 0, len(o.cmds))
	for k := range o.cmds {
		out = append(out, k)
	}
	return out
}

// Command runs args["command"] with args.
func (o *Orchestrator) Command(ctx context.Context, args map[string]any) (Reply, error) {
	name, ok := args["command"].(string)
	if !ok || name == "" {
		return Reply{}, domain.ErrMissingCommand
	}
	o.mu.RLock()
	fn, ok := o.cmds[name]
	o.mu.RUnlock()
	if !ok {
		log.Warn().Str("module", "orch").Str("command", name).Msg("unknown command")
		return Reply{}, fmt.Errorf("%w: %s", domain.ErrUnknownCommand, name)
	}
	o.Metrics.Command(name)
	log.Info().Str("module", "orch").Str("command", name).Msg("running command")
	return fn(ctx, args)
}

func (o *Orchestrator) registerDefaults() {
	o.cmds[CmdMakeUUID] = func(context.Context, map[string]any) (Reply, error) {
		return Reply{Text: domain.NewPeerID().String()}, nil
	}
	o.cmds[CmdDisconnect] = func(_ context.Context, args map[string]any) (Reply, error) {
		raw, _ := args["peer_id"].(string)
		peer, err := domain.ParsePeerID(raw)
		if err != nil {
			return Reply{}, err
		}
		if err := o.Disconnect(peer); err != nil {
			return Reply{}, err
		}
		return Reply{Text: domain.ErrSessionClosed.Error()}, nil
	}
	o.cmds[CmdSessions] = func(context.Context, map[string]any) (Reply, error) {
		return Reply{JSON: o.Registry.Peers()}, nil
	}
	if o.Store == nil {
		return
	}
	o.cmds[CmdConfig] = func(_ context.Context, args map[string]any) (Reply, error) {
		values := make(map[string]any, len(args))
		for k, v := range args {
			if k != "command" {
				values[k] = v
			}
		}
		if len(values) == 0 {
			return Reply{JSON: o.Store.Settings()}, nil
		}
		changed, err := o.Store.Apply(values)
		if err != nil {
			return Reply{}, err
		}
		if changed == nil {
			changed = []string{}
		}
		return Reply{JSON: map[string]any{"changed": changed}}, nil
	}
	o.cmds[CmdSave] = func(_ context.Context, args map[string]any) (Reply, error) {
		path, _ := args["path"].(string)
		saved, err := o.Store.Save(path)
		if err != nil {
			return Reply{}, err
		}
		return Reply{Text: "configuration saved to " + saved}, nil
	}
	o.cmds[CmdArgs] = func(_ context.Context, args map[string]any) (Reply, error) {
		all := true
		if v, ok := args["all"].(bool); ok {
			all = v
		}
		return Reply{JSON: o.Store.Args(all)}, nil
	}
}
