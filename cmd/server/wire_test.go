package main

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Stream/internal/config"
)

func TestOptionsFromConfig(t *testing.T) {
	store, err := config.New(nil)
	require.NoError(t, err)
	cfg := store.Config()
	cfg.EncoderFormat = "h264"
	cfg.Flags.MultiplePeers = false
	cfg.ICE.Wait = time.Second

	svc := serviceOptions(cfg)
	assert.False(t, svc.MultiplePeers)
	assert.Equal(t, "H264", svc.Session.Codec)
	assert.Equal(t, 103, svc.Session.Payload)
	assert.Equal(t, time.Second, svc.Session.Wait)
	assert.Equal(t, 30*time.Second, svc.SessionTimeout)

	topo := topologyOptions(cfg)
	assert.Equal(t, "rtph264pay", topo.PayloaderFactory)
	assert.Equal(t, "103", topo.PayloaderParams["pt"])
	assert.Equal(t, "pay", topo.Names.Payloader)
	assert.True(t, topo.StateSwitching)
}

func TestLogLevels(t *testing.T) {
	cfg := &config.Config{LogLevel: "debug"}
	assert.Equal(t, zerolog.DebugLevel, logLevel(cfg))
	cfg.LogLevel = "loud"
	assert.Equal(t, zerolog.InfoLevel, logLevel(cfg))
	assert.Equal(t, zerolog.WarnLevel, pionLevel(cfg))
	cfg.Flags.DebuggerUsing = true
	assert.Equal(t, zerolog.DebugLevel, pionLevel(cfg))
}
