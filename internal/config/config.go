package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/dkeye/Stream/internal/app/codec"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type ICE struct {
	Step   time.Duration `mapstructure:"step"`
	Wait   time.Duration `mapstructure:"wait"`
	Gather string        `mapstructure:"gather"`
}

type Flags struct {
	IdentityUsing     bool `mapstructure:"identity_using"`
	DebuggerUsing     bool `mapstructure:"debugger_using"`
	SDPDebugUsing     bool `mapstructure:"sdpdebug_using"`
	MultiplePeers     bool `mapstructure:"multiple_peers"`
	ResetOnCreate     bool `mapstructure:"reset_on_create"`
	StateSwitching    bool `mapstructure:"state_switching"`
	TransceiverAdding bool `mapstructure:"transceiver_adding"`
}

type Pipeline struct {
	// Init gives every session its own pipeline built from this description.
	Init string `mapstructure:"init"`
	// Shared overrides the shared pipeline otherwise derived from Source.
	Shared string `mapstructure:"shared"`
}

type Elements struct {
	Source    string `mapstructure:"source"`
	Convert   string `mapstructure:"convert"`
	Encoder   string `mapstructure:"encoder"`
	Parser    string `mapstructure:"parser"`
	RTPPay    string `mapstructure:"rtppay"`
	Tee       string `mapstructure:"tee"`
	WebRTCBin string `mapstructure:"webrtcbin"`
}

type Source struct {
	// URL is rtsp://host/path or udp://:port carrying RTP of the configured codec.
	URL     string `mapstructure:"url"`
	Latency int    `mapstructure:"latency"`
	Payload int    `mapstructure:"payload"`
}

type HTTP struct {
	OfferRate  float64 `mapstructure:"offer_rate"`
	OfferBurst int     `mapstructure:"offer_burst"`
	StickyPeer bool    `mapstructure:"sticky_peer"`
	Secret     string  `mapstructure:"secret"`
}

type Metrics struct {
	Enabled bool `mapstructure:"enabled"`
}

type Config struct {
	Mode           string        `mapstructure:"mode"`
	LogLevel       string        `mapstructure:"log_level"`
	Address        string        `mapstructure:"address"`
	Port           int           `mapstructure:"port"`
	ContentFile    string        `mapstructure:"content_file"`
	StunServer     string        `mapstructure:"stun_server"`
	BundlePolicy   string        `mapstructure:"bundle_policy"`
	EncoderFormat  string        `mapstructure:"encoder_format"`
	RTPPayElem     string        `mapstructure:"rtppay_elem"`
	RTPPayPayload  int           `mapstructure:"rtppay_payload"`
	SessionTimeout time.Duration `mapstructure:"session_timeout"`
	ICE            ICE           `mapstructure:"ice"`
	Flags          Flags         `mapstructure:"flags"`
	Pipeline       Pipeline      `mapstructure:"pipeline"`
	Elements       Elements      `mapstructure:"elements"`
	Source         Source        `mapstructure:"source"`
	HTTP           HTTP          `mapstructure:"http"`
	Metrics        Metrics       `mapstructure:"metrics"`
}

// Codec is the SDP codec name of the encoder.
func (c *Config) Codec() string { return codec.Normalize(c.EncoderFormat) }

// Payload is the configured payload type, derived from the codec when unset.
func (c *Config) Payload() int {
	if c.RTPPayPayload > 0 {
		return c.RTPPayPayload
	}
	return codec.PayloadFor(c.EncoderFormat)
}

// Payloader is the payloader element factory, derived from the codec when unset.
func (c *Config) Payloader() string {
	if c.RTPPayElem != "" {
		return c.RTPPayElem
	}
	return codec.PayloaderFor(c.EncoderFormat)
}

// Addr is the listen address of the HTTP server.
func (c *Config) Addr() string { return fmt.Sprintf("%s:%d", c.Address, c.Port) }

// SharedDescription is the shared pipeline: Pipeline.Shared verbatim, otherwise
// source -> depayloader -> payloader built from Source. Empty in custom mode.
func (c *Config) SharedDescription() (string, error) {
	if c.Pipeline.Init != "" {
		return "", nil
	}
	if c.Pipeline.Shared != "" {
		return c.Pipeline.Shared, nil
	}
	if c.Source.URL == "" {
		return "", fmt.Errorf("neither pipeline.shared nor source.url is set")
	}
	u, err := url.Parse(c.Source.URL)
	if err != nil {
		return "", fmt.Errorf("parse source.url: %w", err)
	}
	in := c.Source.Payload
	if in <= 0 {
		in = c.Payload()
	}
	caps := fmt.Sprintf("application/x-rtp,media=video,encoding-name=%s,payload=%d", c.Codec(), in)

	var src string
	switch u.Scheme {
	case "rtsp", "rtsps":
		src = fmt.Sprintf("rtspsrc name=%s location=%s latency=%d", c.Elements.Source, c.Source.URL, c.Source.Latency)
	case "udp":
		src = fmt.Sprintf("udpsrc name=%s address=%s port=%s", c.Elements.Source, hostOr(u.Hostname(), "0.0.0.0"), u.Port())
	default:
		return "", fmt.Errorf("unsupported source scheme %q", u.Scheme)
	}
	return fmt.Sprintf("%s ! %s ! %s name=%s ! %s name=%s pt=%d",
		src, caps,
		codec.DepayloaderFor(c.EncoderFormat), c.Elements.Parser,
		c.Payloader(), c.Elements.RTPPay, c.Payload(),
	), nil
}

func hostOr(h, def string) string {
	if h == "" {
		return def
	}
	return h
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("log_level", "info")
	v.SetDefault("address", "0.0.0.0")
	v.SetDefault("port", 8000)
	v.SetDefault("content_file", "")
	v.SetDefault("stun_server", "stun://stun.l.google.com:19302")
	v.SetDefault("bundle_policy", "max-bundle")
	v.SetDefault("encoder_format", "VP8")
	v.SetDefault("rtppay_elem", "")
	v.SetDefault("rtppay_payload", 0)
	v.SetDefault("session_timeout", "30s")

	v.SetDefault("ice.step", "50ms")
	v.SetDefault("ice.wait", "500ms")
	v.SetDefault("ice.gather", "poll")

	v.SetDefault("flags.identity_using", false)
	v.SetDefault("flags.debugger_using", false)
	v.SetDefault("flags.sdpdebug_using", false)
	v.SetDefault("flags.multiple_peers", true)
	v.SetDefault("flags.reset_on_create", false)
	v.SetDefault("flags.state_switching", true)
	v.SetDefault("flags.transceiver_adding", false)

	v.SetDefault("pipeline.init", "")
	v.SetDefault("pipeline.shared", "")

	v.SetDefault("elements.source", "source")
	v.SetDefault("elements.convert", "convert")
	v.SetDefault("elements.encoder", "encoder")
	v.SetDefault("elements.parser", "parser")
	v.SetDefault("elements.rtppay", "pay")
	v.SetDefault("elements.tee", "tee")
	v.SetDefault("elements.webrtcbin", "webrtcbin")

	v.SetDefault("source.url", "udp://:5004")
	v.SetDefault("source.latency", 0)
	v.SetDefault("source.payload", 0)

	v.SetDefault("http.offer_rate", 5.0)
	v.SetDefault("http.offer_burst", 10)
	v.SetDefault("http.sticky_peer", false)
	v.SetDefault("http.secret", "")

	v.SetDefault("metrics.enabled", true)
}

// flagKeys maps command line flags onto config keys.
var flagKeys = map[string]string{
	"mode":            "mode",
	"log-level":       "log_level",
	"address":         "address",
	"port":            "port",
	"encoder-format":  "encoder_format",
	"source":          "source.url",
	"pipeline-init":   "pipeline.init",
	"pipeline-shared": "pipeline.shared",
	"multiple-peers":  "flags.multiple_peers",
	"sdp-debug":       "flags.sdpdebug_using",
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("stream", pflag.ContinueOnError)
	fs.String("config", "", "config file (default config/config.<CONFIG_ENV>.yaml)")
	fs.String("mode", "release", "gin mode: debug|release|test")
	fs.String("log-level", "info", "log level")
	fs.String("address", "0.0.0.0", "listen address")
	fs.Int("port", 8000, "listen port")
	fs.String("encoder-format", "VP8", "codec the pipeline emits")
	fs.String("source", "udp://:5004", "rtsp:// or udp:// RTP source")
	fs.String("pipeline-init", "", "per-session pipeline description")
	fs.String("pipeline-shared", "", "shared pipeline description")
	fs.Bool("multiple-peers", true, "allow several viewers at once")
	fs.Bool("sdp-debug", false, "log full answer SDP")
	return fs
}

// Load reads defaults, the YAML file, STREAM_* environment variables and args, in increasing
// priority.
func Load(args []string) (*Store, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	fs := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}
	for name, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", name, err)
		}
	}

	v.SetEnvPrefix("STREAM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	fileName, _ := fs.GetString("config")
	if fileName == "" {
		env := os.Getenv("CONFIG_ENV")
		if env == "" {
			env = "dev"
		}
		fileName = fmt.Sprintf("config/config.%s.yaml", env)
	}
	v.SetConfigFile(fileName)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	s := &Store{v: v, path: fileName, changed: map[string]bool{}}
	if err := s.reload(); err != nil {
		return nil, err
	}
	cfg := s.Config()
	log.Info().
		Str("module", "config").
		Str("mode", cfg.Mode).
		Str("addr", cfg.Addr()).
		Str("codec", cfg.Codec()).
		Int("payload", cfg.Payload()).
		Bool("multiple_peers", cfg.Flags.MultiplePeers).
		Msg("config ready")
	return s, nil
}
