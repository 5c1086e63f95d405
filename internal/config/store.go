package config

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

var ErrUnknownKey = errors.New("unknown config key")

// Store is the runtime view of the configuration behind the config, save and args commands.
// Applied values take effect for components built afterwards.
type Store struct {
	mu      sync.RWMutex
	v       *viper.Viper
	path    string
	cfg     *Config
	changed map[string]bool
	hooks   []func(*Config)
}

// OnChange registers fn to run with the new configuration after Apply changed something.
func (s *Store) OnChange(fn func(*Config)) {
	s.mu.Lock()
	s.hooks = append(s.hooks, fn)
	s.mu.Unlock()
}

func (s *Store) reload() error {
	var cfg Config
	if err := s.v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	s.cfg = &cfg
	return nil
}

// Config returns a copy of the current configuration.
func (s *Store) Config() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := *s.cfg
	return &c
}

func (s *Store) Path() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.path
}

// Settings is every key with its effective value, nested as in the YAML file.
func (s *Store) Settings() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v.AllSettings()
}

// Apply sets known keys from values and returns the keys whose value changed. Nested maps address
// dotted keys. Unknown keys fail the whole call without applying anything.
func (s *Store) Apply(values map[string]any) ([]string, error) {
	changed, hooks, err := s.apply(values)
	if err != nil || len(changed) == 0 {
		return changed, err
	}
	cfg := s.Config()
	for _, fn := range hooks {
		fn(cfg)
	}
	return changed, nil
}

func (s *Store) apply(values map[string]any) ([]string, []func(*Config), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values = flatten("", values, map[string]any{})

	known := map[string]bool{}
	for _, k := range s.v.AllKeys() {
		known[k] = true
	}
	for k := range values {
		if !known[strings.ToLower(k)] {
			return nil, nil, fmt.Errorf("%w: %s", ErrUnknownKey, k)
		}
	}

	var changed []string
	for _, k := range slices.Sorted(maps.Keys(values)) {
		key := strings.ToLower(k)
		if fmt.Sprint(s.v.Get(key)) == fmt.Sprint(values[k]) {
			continue
		}
		s.v.Set(key, values[k])
		s.changed[key] = true
		changed = append(changed, key)
	}
	if err := s.reload(); err != nil {
		return nil, nil, err
	}
	if len(changed) > 0 {
		log.Info().Str("module", "config").Strs("keys", changed).Msg("configuration changed")
	}
	return changed, slices.Clone(s.hooks), nil
}

// Save writes the effective configuration to path, or to the loaded file when path is empty.
func (s *Store) Save(path string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if path == "" {
		path = s.path
	}
	if err := s.v.WriteConfigAs(path); err != nil {
		return path, fmt.Errorf("write config %s: %w", path, err)
	}
	s.path = path
	log.Info().Str("module", "config").Str("file", path).Msg("configuration saved")
	return path, nil
}

// Args renders the changed keys as command line style arguments, all keys when all is set.
func (s *Store) Args(all bool) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := s.v.AllKeys()
	slices.Sort(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if !all && !s.changed[k] {
			continue
		}
		out = append(out, fmt.Sprintf("--%s=%v", k, s.v.Get(k)))
	}
	return out
}

// New wraps an already populated viper instance; used by tests and embedders.
func New(v *viper.Viper) (*Store, error) {
	if v == nil {
		v = viper.New()
	}
	setDefaults(v)
	s := &Store{v: v, changed: map[string]bool{}}
	if err := s.reload(); err != nil {
		return nil, err
	}
	return s, nil
}

func flatten(prefix string, in, out map[string]any) map[string]any {
	for k, v := range in {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if m, ok := v.(map[string]any); ok {
			flatten(key, m, out)
			continue
		}
		out[key] = v
	}
	return out
}
