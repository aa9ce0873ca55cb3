package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Config represents the lombridge.yml configuration
type Config struct {
	Version string       `yaml:"version,omitempty" json:"version,omitempty" toml:"version,omitempty" jsonschema:"description=Configuration version (e.g. 1.0)"`
	Host    HostConfig   `yaml:"host,omitempty" json:"host,omitempty" toml:"host,omitempty" jsonschema:"description=Settings for the process that owns the object graph"`
	Client  ClientConfig `yaml:"client,omitempty" json:"client,omitempty" toml:"client,omitempty" jsonschema:"description=Settings for the remote automation client"`
	Search  SearchConfig `yaml:"search,omitempty" json:"search,omitempty" toml:"search,omitempty" jsonschema:"description=Browser search policy used to load devices and samples"`
	Batch   BatchConfig  `yaml:"batch,omitempty" json:"batch,omitempty" toml:"batch,omitempty" jsonschema:"description=Batch executor settings"`

	// Extensions captures all other top-level keys (e.g. logging).
	Extensions map[string]interface{} `yaml:",inline" json:"-" toml:"-" jsonschema:"-"`
}

// HostConfig configures the listener side.
type HostConfig struct {
	// Listen is the TCP address the protocol server binds.
	Listen string `yaml:"listen,omitempty" json:"listen,omitempty" toml:"listen,omitempty" jsonschema:"description=TCP address for the JSON command protocol"`
	// HTTPAddr enables the websocket gateway and metrics endpoint when set.
	HTTPAddr        string   `yaml:"http_addr,omitempty" json:"http_addr,omitempty" toml:"http_addr,omitempty" jsonschema:"description=Optional HTTP address serving /ws /metrics and /health"`
	Tick            Duration `yaml:"tick,omitempty" json:"tick,omitempty" toml:"tick,omitempty" jsonschema:"description=Host cycle between task queue drains"`
	DispatchTimeout Duration `yaml:"dispatch_timeout,omitempty" json:"dispatch_timeout,omitempty" toml:"dispatch_timeout,omitempty" jsonschema:"description=Upper bound a connection waits for the graph owner"`
	MaxFrameBytes   int      `yaml:"max_frame_bytes,omitempty" json:"max_frame_bytes,omitempty" toml:"max_frame_bytes,omitempty" jsonschema:"description=Largest request accepted before the buffer is rejected,minimum=0"`
	AcceptRate      float64  `yaml:"accept_rate,omitempty" json:"accept_rate,omitempty" toml:"accept_rate,omitempty" jsonschema:"description=Accept retries per second after listener errors,minimum=0"`
	StatusInterval  Duration `yaml:"status_interval,omitempty" json:"status_interval,omitempty" toml:"status_interval,omitempty" jsonschema:"description=How often the host snapshots session state for /api/state"`
}

// ClientConfig configures the ConnectionManager.
type ClientConfig struct {
	Address           string              `yaml:"address,omitempty" json:"address,omitempty" toml:"address,omitempty" jsonschema:"description=Host address to dial"`
	DialTimeout       Duration            `yaml:"dial_timeout,omitempty" json:"dial_timeout,omitempty" toml:"dial_timeout,omitempty" jsonschema:"description=Bound on a single connect attempt"`
	DefaultTimeout    Duration            `yaml:"default_timeout,omitempty" json:"default_timeout,omitempty" toml:"default_timeout,omitempty" jsonschema:"description=Response timeout for commands without an entry in command_timeouts"`
	CommandTimeouts   map[string]Duration `yaml:"command_timeouts,omitempty" json:"command_timeouts,omitempty" toml:"command_timeouts,omitempty" jsonschema:"description=Per-command response timeouts"`
	SettleDelay       Duration            `yaml:"settle_delay,omitempty" json:"settle_delay,omitempty" toml:"settle_delay,omitempty" jsonschema:"description=Pause around modifying commands; a negative value such as -1ms turns it off"`
	ModifyingCommands []string            `yaml:"modifying_commands,omitempty" json:"modifying_commands,omitempty" toml:"modifying_commands,omitempty" jsonschema:"description=Commands that mutate the host and get the settle delay"`
	MonitorInterval   Duration            `yaml:"monitor_interval,omitempty" json:"monitor_interval,omitempty" toml:"monitor_interval,omitempty" jsonschema:"description=Period of the background liveness probe"`
}

// SearchConfig holds the policy for TreeSearch callers.
type SearchConfig struct {
	StripWords  []string          `yaml:"strip_words,omitempty" json:"strip_words,omitempty" toml:"strip_words,omitempty" jsonschema:"description=Qualifier words removed from device names before searching"`
	Aliases     map[string]string `yaml:"aliases,omitempty" json:"aliases,omitempty" toml:"aliases,omitempty" jsonschema:"description=Colloquial names mapped to concrete browser item names"`
	DeviceRoots []string          `yaml:"device_roots,omitempty" json:"device_roots,omitempty" toml:"device_roots,omitempty" jsonschema:"description=Browser categories searched for devices in priority order"`
	SampleRoots []string          `yaml:"sample_roots,omitempty" json:"sample_roots,omitempty" toml:"sample_roots,omitempty" jsonschema:"description=Browser categories searched for samples in priority order"`
}

// BatchConfig configures the batch executor.
type BatchConfig struct {
	VerifyTimeout  Duration `yaml:"verify_timeout,omitempty" json:"verify_timeout,omitempty" toml:"verify_timeout,omitempty" jsonschema:"description=How long a device load is polled for confirmation"`
	VerifyInterval Duration `yaml:"verify_interval,omitempty" json:"verify_interval,omitempty" toml:"verify_interval,omitempty" jsonschema:"description=Delay between device count polls"`
}

// Default values.
const (
	DefaultListen          = "127.0.0.1:9877"
	DefaultMaxFrameBytes   = 8 << 20
	DefaultAcceptRate      = 10
	DefaultCommandTimeout  = 15 * time.Second
	DefaultLoadTimeout     = 35 * time.Second
	DefaultSettleDelay     = 100 * time.Millisecond
	DefaultMonitorInterval = 5 * time.Second
)

// SettleDisabled turns the settle delay off; zero means unset.
const SettleDisabled = Duration(-1)

// DefaultModifyingCommands lists the commands that change host state.
var DefaultModifyingCommands = []string{
	"add_midi_notes",
	"load_device",
	"universal_accessor",
	"set_device_param",
	"add_automation",
}

// SetDefaults sets default values for configuration
func (c *Config) SetDefaults() {
	if c.Version == "" {
		c.Version = "1.0"
	}

	h := &c.Host
	if h.Listen == "" {
		h.Listen = DefaultListen
	}
	if h.Tick == 0 {
		h.Tick = Duration(10 * time.Millisecond)
	}
	if h.DispatchTimeout == 0 {
		h.DispatchTimeout = Duration(30 * time.Second)
	}
	if h.MaxFrameBytes == 0 {
		h.MaxFrameBytes = DefaultMaxFrameBytes
	}
	if h.AcceptRate == 0 {
		h.AcceptRate = DefaultAcceptRate
	}
	if h.StatusInterval == 0 {
		h.StatusInterval = Duration(time.Second)
	}

	cl := &c.Client
	if cl.Address == "" {
		cl.Address = h.Listen
	}
	if cl.DialTimeout == 0 {
		cl.DialTimeout = Duration(5 * time.Second)
	}
	if cl.DefaultTimeout == 0 {
		cl.DefaultTimeout = Duration(DefaultCommandTimeout)
	}
	if cl.CommandTimeouts == nil {
		cl.CommandTimeouts = make(map[string]Duration)
	}
	if _, ok := cl.CommandTimeouts["load_device"]; !ok {
		cl.CommandTimeouts["load_device"] = Duration(DefaultLoadTimeout)
	}
	if cl.SettleDelay == 0 {
		cl.SettleDelay = Duration(DefaultSettleDelay)
	}
	if cl.ModifyingCommands == nil {
		cl.ModifyingCommands = append([]string(nil), DefaultModifyingCommands...)
	}
	if cl.MonitorInterval == 0 {
		cl.MonitorInterval = Duration(DefaultMonitorInterval)
	}

	s := &c.Search
	if s.StripWords == nil {
		s.StripWords = []string{"vsti", "vst3", "vst", "plugin", "audio unit", "au"}
	}
	if s.Aliases == nil {
		s.Aliases = map[string]string{
			"drum rack": "909 core kit",
			"drumrack":  "909 core kit",
			"drums":     "909 core kit",
		}
	}
	if s.DeviceRoots == nil {
		s.DeviceRoots = []string{"instruments", "drums", "audio_effects", "plugins", "max_for_live"}
	}
	if s.SampleRoots == nil {
		s.SampleRoots = []string{"user_library", "user_folders", "packs"}
	}

	b := &c.Batch
	if b.VerifyTimeout == 0 {
		b.VerifyTimeout = Duration(10 * time.Second)
	}
	if b.VerifyInterval == 0 {
		b.VerifyInterval = Duration(500 * time.Millisecond)
	}
}

// Default returns a configuration holding only default values.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// TimeoutFor returns the response timeout for a command type.
func (c ClientConfig) TimeoutFor(command string) time.Duration {
	if d, ok := c.CommandTimeouts[command]; ok && d > 0 {
		return d.Std()
	}
	if c.DefaultTimeout > 0 {
		return c.DefaultTimeout.Std()
	}
	return DefaultCommandTimeout
}

// IsModifying reports whether a command changes host state.
func (c ClientConfig) IsModifying(command string) bool {
	for _, m := range c.ModifyingCommands {
		if strings.EqualFold(m, command) {
			return true
		}
	}
	return false
}

// UnmarshalExtension decodes a specific extension's configuration from the
// loaded lombridge.yml into the provided target struct. The target must be a pointer.
//
// Example:
//
//	var logCfg logging.Config
//	err := cfg.UnmarshalExtension("logging", &logCfg)
func (c *Config) UnmarshalExtension(key string, target interface{}) error {
	extensionConfig, ok := c.Extensions[key]
	if !ok {
		// It's not an error if the key doesn't exist.
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  target,
		TagName: "yaml",
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(extensionConfig); err != nil {
		return fmt.Errorf("failed to decode extension config for '%s': %w", key, err)
	}

	return nil
}

// ConfigSource identifies the origin of a configuration value.
type ConfigSource string

const (
	SourceDefault  ConfigSource = "default"
	SourceGlobal   ConfigSource = "global"
	SourceProject  ConfigSource = "project"
	SourceOverride ConfigSource = "override"
)

// OverrideSource holds a raw configuration from an override file and its path.
type OverrideSource struct {
	Path   string
	Config *Config
}

// LayeredConfig holds the raw configuration from each source file,
// as well as the final merged configuration, for analysis purposes.
type LayeredConfig struct {
	Default   *Config                 // Config with only default values applied.
	Global    *Config                 // Raw config from the global file.
	Project   *Config                 // Raw config from the project file.
	Overrides []OverrideSource        // Raw configs from override files, in order of application.
	Final     *Config                 // The fully merged and validated config.
	FilePaths map[ConfigSource]string // Maps sources to their file paths.
}
