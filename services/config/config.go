package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"eventnode-go/errcode"
	"eventnode-go/services/hal/halcore"
)

// Config holds every tunable of the node. Durations are milliseconds.
type Config struct {
	Device    string          `mapstructure:"device" yaml:"device"`
	Bus       BusConfig       `mapstructure:"bus" yaml:"bus"`
	Heartbeat HeartbeatConfig `mapstructure:"heartbeat" yaml:"heartbeat"`
	Button    ButtonConfig    `mapstructure:"button" yaml:"button"`
	PWM       PWMConfig       `mapstructure:"pwm" yaml:"pwm"`
	Counter   CounterConfig   `mapstructure:"counter" yaml:"counter"`
	Link      LinkConfig      `mapstructure:"link" yaml:"link"`
	Net       NetConfig       `mapstructure:"net" yaml:"net"`
}

type BusConfig struct {
	QueueLen int `mapstructure:"queue_len" yaml:"queue_len"`
}

// HeartbeatConfig is the periodic status blinker.
type HeartbeatConfig struct {
	Pin       int  `mapstructure:"pin" yaml:"pin"`
	ActiveLow bool `mapstructure:"active_low" yaml:"active_low"`
	PeriodMs  int  `mapstructure:"period_ms" yaml:"period_ms"`
}

// ButtonConfig is the interrupt input and the output it toggles.
type ButtonConfig struct {
	Pin    int    `mapstructure:"pin" yaml:"pin"`
	Edge   string `mapstructure:"edge" yaml:"edge"`
	LEDPin int    `mapstructure:"led_pin" yaml:"led_pin"`
}

type PWMConfig struct {
	Channel        int    `mapstructure:"channel" yaml:"channel"`
	Pin            int    `mapstructure:"pin" yaml:"pin"`
	FreqHz         uint32 `mapstructure:"freq_hz" yaml:"freq_hz"`
	ResolutionBits uint8  `mapstructure:"resolution_bits" yaml:"resolution_bits"`
	Duty           uint32 `mapstructure:"duty" yaml:"duty"`
	OnMs           int    `mapstructure:"on_ms" yaml:"on_ms"`
	OffMs          int    `mapstructure:"off_ms" yaml:"off_ms"`
}

type CounterConfig struct {
	Capacity int `mapstructure:"capacity" yaml:"capacity"`
	PeriodMs int `mapstructure:"period_ms" yaml:"period_ms"`
}

// LinkConfig holds the association credentials, kept out of code.
type LinkConfig struct {
	SSID           string `mapstructure:"ssid" yaml:"ssid"`
	Password       string `mapstructure:"password" yaml:"password"`
	ReconnectMs    int    `mapstructure:"reconnect_ms" yaml:"reconnect_ms"`
	ConnectDelayMs int    `mapstructure:"connect_delay_ms" yaml:"connect_delay_ms"`
}

type NetConfig struct {
	Host            string `mapstructure:"host" yaml:"host"`
	Port            int    `mapstructure:"port" yaml:"port"`
	RecvTimeoutMs   int    `mapstructure:"recv_timeout_ms" yaml:"recv_timeout_ms"`
	MaxDatagram     int    `mapstructure:"max_datagram" yaml:"max_datagram"`
	ConnectedPollMs int    `mapstructure:"connected_poll_ms" yaml:"connected_poll_ms"`
	RetryBackoffMs  int    `mapstructure:"retry_backoff_ms" yaml:"retry_backoff_ms"`
}

// Ms converts a millisecond setting to a Duration.
func Ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

func setDefaults(v *viper.Viper) {
	v.SetDefault("device", "eventnode")
	v.SetDefault("bus.queue_len", 16)

	v.SetDefault("heartbeat.pin", 1)
	v.SetDefault("heartbeat.active_low", false)
	v.SetDefault("heartbeat.period_ms", 4000)

	v.SetDefault("button.pin", 9)
	v.SetDefault("button.edge", "falling")
	v.SetDefault("button.led_pin", 8)

	v.SetDefault("pwm.channel", 0)
	v.SetDefault("pwm.pin", 4)
	v.SetDefault("pwm.freq_hz", 5000)
	v.SetDefault("pwm.resolution_bits", 13)
	v.SetDefault("pwm.duty", 4096)
	v.SetDefault("pwm.on_ms", 1000)
	v.SetDefault("pwm.off_ms", 10000)

	v.SetDefault("counter.capacity", 10)
	v.SetDefault("counter.period_ms", 1000)

	v.SetDefault("link.ssid", "")
	v.SetDefault("link.password", "")
	v.SetDefault("link.reconnect_ms", 5000)
	v.SetDefault("link.connect_delay_ms", 500)

	v.SetDefault("net.host", "")
	v.SetDefault("net.port", 3358)
	v.SetDefault("net.recv_timeout_ms", 2000)
	v.SetDefault("net.max_datagram", 512)
	v.SetDefault("net.connected_poll_ms", 1000)
	v.SetDefault("net.retry_backoff_ms", 1000)
}

// Default returns the built-in configuration, ignoring file and environment.
func Default() Config {
	v := viper.New()
	setDefaults(v)
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		panic(err) // defaults alone always decode
	}
	return c
}

// Load reads defaults, then the YAML file at path when non-empty, then
// EVENTNODE_* environment overrides (EVENTNODE_NET_PORT=9000). The result is
// validated.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	v.SetEnvPrefix("EVENTNODE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errcode.Wrap(errcode.ConfigFailed, "config.read", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, errcode.Wrap(errcode.ConfigFailed, "config.unmarshal", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	bad := func(msg string) error {
		return &errcode.E{C: errcode.InvalidParams, Op: "config.validate", Msg: msg}
	}
	switch {
	case c.Bus.QueueLen <= 0:
		return bad("bus.queue_len must be > 0")
	case c.Heartbeat.PeriodMs <= 0:
		return bad("heartbeat.period_ms must be > 0")
	case c.Button.Edge != "" && c.Button.Edge != "none" && halcore.ParseEdge(c.Button.Edge) == halcore.EdgeNone:
		return bad("button.edge must be rising, falling, both or none")
	case c.PWM.FreqHz == 0:
		return bad("pwm.freq_hz must be > 0")
	case c.PWM.ResolutionBits == 0 || c.PWM.ResolutionBits > 32:
		return bad("pwm.resolution_bits must be 1..32")
	case c.PWM.OnMs <= 0 || c.PWM.OffMs < 0:
		return bad("pwm.on_ms must be > 0 and pwm.off_ms >= 0")
	case c.Counter.Capacity <= 0:
		return bad("counter.capacity must be > 0")
	case c.Counter.PeriodMs <= 0:
		return bad("counter.period_ms must be > 0")
	case c.Link.ReconnectMs <= 0:
		return bad("link.reconnect_ms must be > 0")
	case c.Net.Port < 0 || c.Net.Port > 65535:
		return bad("net.port out of range")
	case c.Net.RecvTimeoutMs <= 0:
		return bad("net.recv_timeout_ms must be > 0")
	case c.Net.MaxDatagram < 2:
		return bad("net.max_datagram must be >= 2")
	}
	return nil
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	if c.Link.Password != "" {
		c.Link.Password = "***"
	}
	return c
}

// Encode renders c as YAML, the same shape Load reads.
func Encode(c Config) ([]byte, error) {
	b, err := yaml.Marshal(c)
	if err != nil {
		return nil, errcode.Wrap(errcode.Error, "config.encode", err)
	}
	return b, nil
}

// Sections splits c into its top-level YAML sections, one generic map each.
func Sections(c Config) (map[string]any, error) {
	b, err := Encode(c)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, errcode.Wrap(errcode.Error, "config.sections", err)
	}
	return m, nil
}
