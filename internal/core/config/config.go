package config

import (
	"fmt"
	"strings"
	"time"

	coreagg "github.com/aevon-lab/jfrtel/internal/core/aggregation"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "JFRTEL_"

// Config represents the top-level application config plus values resolved by Load.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Pipeline PipelineConfig `koanf:"pipeline"`
	Sink     SinkConfig     `koanf:"sink"`
	Database DatabaseConfig `koanf:"database"`
	Sources  SourcesConfig  `koanf:"sources"`

	// Resolved is populated by Load after parsing durations and rule files.
	Resolved Resolved `koanf:"-"`
}

type ServerConfig struct {
	Port            int    `koanf:"port"`
	Host            string `koanf:"host"`
	MaxBodySizeMB   int    `koanf:"max_body_size_mb"`
	MaxBatchRecords int    `koanf:"max_batch_records"`
	Mode            string `koanf:"mode"` // debug | release
}

type PipelineConfig struct {
	FlushInterval     string   `koanf:"flush_interval"`
	StartTime         string   `koanf:"start_time"` // RFC 3339; empty means process start
	RuntimeVersion    int      `koanf:"runtime_version"`
	DisabledEvents    []string `koanf:"disabled_events"`
	ChannelBufferSize int      `koanf:"channel_buffer_size"`
	RulesDir          string   `koanf:"rules_dir"`
	BuiltinRules      bool     `koanf:"builtin_rules"`
}

type SinkConfig struct {
	Type        string `koanf:"type"` // log | postgres
	Workers     int    `koanf:"workers"`
	SendTimeout string `koanf:"send_timeout"`
}

type DatabaseConfig struct {
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
	AutoMigrate  bool   `koanf:"auto_migrate"`
}

type SourcesConfig struct {
	HTTP  HTTPSourceConfig  `koanf:"http"`
	Tail  TailSourceConfig  `koanf:"tail"`
	Kafka KafkaSourceConfig `koanf:"kafka"`
}

type HTTPSourceConfig struct {
	Enabled bool `koanf:"enabled"`
}

type TailSourceConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Path      string `koanf:"path"`
	Follow    bool   `koanf:"follow"`
	FromStart bool   `koanf:"from_start"`
}

type KafkaSourceConfig struct {
	Enabled        bool     `koanf:"enabled"`
	Brokers        []string `koanf:"brokers"`
	Topics         []string `koanf:"topics"`
	GroupID        string   `koanf:"group_id"`
	Version        string   `koanf:"version"`
	ClientID       string   `koanf:"client_id"`
	OffsetsInitial string   `koanf:"offsets_initial"` // newest | oldest
	CommitInterval string   `koanf:"commit_interval"`
}

// Resolved holds typed values derived from the raw config.
type Resolved struct {
	FlushInterval  time.Duration
	StartTime      time.Time // zero when pipeline.start_time is unset
	SendTimeout    time.Duration
	CommitInterval time.Duration
	DisabledEvents map[string]bool
	Rules          []coreagg.SummaryRule
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d (must be 1-65535)", c.Server.Port)
	}
	if strings.TrimSpace(c.Server.Host) == "" {
		return fmt.Errorf("server.host is required")
	}
	if c.Server.MaxBodySizeMB <= 0 {
		return fmt.Errorf("server.max_body_size_mb must be > 0")
	}
	if c.Server.MaxBatchRecords <= 0 {
		return fmt.Errorf("server.max_batch_records must be > 0")
	}
	if c.Server.Mode != "debug" && c.Server.Mode != "release" {
		return fmt.Errorf("invalid server.mode %q (must be debug or release)", c.Server.Mode)
	}

	if _, err := coreagg.ParseFlushInterval(c.Pipeline.FlushInterval); err != nil {
		return fmt.Errorf("invalid pipeline.flush_interval: %w", err)
	}
	if c.Pipeline.StartTime != "" {
		if _, err := time.Parse(time.RFC3339, c.Pipeline.StartTime); err != nil {
			return fmt.Errorf("invalid pipeline.start_time %q: %w", c.Pipeline.StartTime, err)
		}
	}
	if c.Pipeline.RuntimeVersion < 0 {
		return fmt.Errorf("pipeline.runtime_version must be >= 0")
	}
	if c.Pipeline.ChannelBufferSize < 0 {
		return fmt.Errorf("pipeline.channel_buffer_size must be >= 0")
	}

	switch c.Sink.Type {
	case "log":
	case "postgres":
		if strings.TrimSpace(c.Database.DSN) == "" {
			return fmt.Errorf("database.dsn is required for the postgres sink")
		}
		if c.Database.MaxOpenConns <= 0 {
			return fmt.Errorf("database.max_open_conns must be > 0")
		}
		if c.Database.MaxIdleConns <= 0 {
			return fmt.Errorf("database.max_idle_conns must be > 0")
		}
	default:
		return fmt.Errorf("unsupported sink.type %q (must be log or postgres)", c.Sink.Type)
	}
	if c.Sink.Workers <= 0 {
		return fmt.Errorf("sink.workers must be > 0")
	}
	if err := positiveDuration("sink.send_timeout", c.Sink.SendTimeout); err != nil {
		return err
	}

	if c.Sources.Tail.Enabled && strings.TrimSpace(c.Sources.Tail.Path) == "" {
		return fmt.Errorf("sources.tail.path is required when the tail source is enabled")
	}
	if k := c.Sources.Kafka; k.Enabled {
		if len(k.Brokers) == 0 {
			return fmt.Errorf("sources.kafka.brokers is required when the kafka source is enabled")
		}
		if len(k.Topics) == 0 {
			return fmt.Errorf("sources.kafka.topics is required when the kafka source is enabled")
		}
		if strings.TrimSpace(k.GroupID) == "" {
			return fmt.Errorf("sources.kafka.group_id is required when the kafka source is enabled")
		}
		if k.OffsetsInitial != "newest" && k.OffsetsInitial != "oldest" {
			return fmt.Errorf("invalid sources.kafka.offsets_initial %q (must be newest or oldest)", k.OffsetsInitial)
		}
		if err := positiveDuration("sources.kafka.commit_interval", k.CommitInterval); err != nil {
			return err
		}
	}
	if !c.Sources.HTTP.Enabled && !c.Sources.Tail.Enabled && !c.Sources.Kafka.Enabled {
		return fmt.Errorf("at least one source must be enabled")
	}

	return nil
}

func positiveDuration(key, value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if d <= 0 {
		return fmt.Errorf("%s must be > 0", key)
	}
	return nil
}

// Load parses config from defaults, file and env, validates it, then loads summary rules.
// JFRTEL_PIPELINE__FLUSH_INTERVAL=30s overrides pipeline.flush_interval.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"server.port":                   8080,
		"server.host":                   "0.0.0.0",
		"server.max_body_size_mb":       4,
		"server.max_batch_records":      10000,
		"server.mode":                   "release",
		"pipeline.flush_interval":       "60s",
		"pipeline.start_time":           "",
		"pipeline.runtime_version":      0,
		"pipeline.disabled_events":      []string{},
		"pipeline.channel_buffer_size":  1024,
		"pipeline.rules_dir":            "./config/rules",
		"pipeline.builtin_rules":        true,
		"sink.type":                     "log",
		"sink.workers":                  4,
		"sink.send_timeout":             "10s",
		"database.dsn":                  "",
		"database.max_open_conns":       10,
		"database.max_idle_conns":       10,
		"database.auto_migrate":         true,
		"sources.http.enabled":          true,
		"sources.tail.enabled":          false,
		"sources.tail.follow":           true,
		"sources.tail.from_start":       false,
		"sources.kafka.enabled":         false,
		"sources.kafka.version":         "2.4.0",
		"sources.kafka.client_id":       "jfrtel",
		"sources.kafka.offsets_initial": "newest",
		"sources.kafka.commit_interval": "1s",
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.resolve(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// resolve fills Resolved. Validate must have passed.
func (c *Config) resolve() error {
	c.Resolved.FlushInterval, _ = coreagg.ParseFlushInterval(c.Pipeline.FlushInterval)
	if c.Pipeline.StartTime != "" {
		c.Resolved.StartTime, _ = time.Parse(time.RFC3339, c.Pipeline.StartTime)
	}
	c.Resolved.SendTimeout, _ = time.ParseDuration(c.Sink.SendTimeout)
	if c.Sources.Kafka.Enabled {
		c.Resolved.CommitInterval, _ = time.ParseDuration(c.Sources.Kafka.CommitInterval)
	}

	c.Resolved.DisabledEvents = make(map[string]bool, len(c.Pipeline.DisabledEvents))
	for _, name := range c.Pipeline.DisabledEvents {
		if name = strings.TrimSpace(name); name != "" {
			c.Resolved.DisabledEvents[name] = true
		}
	}

	repo, err := coreagg.NewFileSystemRuleRepository(c.Pipeline.RulesDir)
	if err != nil {
		return fmt.Errorf("failed to load summary rules: %w", err)
	}
	var base []coreagg.SummaryRule
	if c.Pipeline.BuiltinRules {
		base = coreagg.BuiltinRules()
	}
	rules := coreagg.MergeRules(base, repo.GetRules())
	for i := range rules {
		if c.Resolved.DisabledEvents[rules[i].SourceEvent] {
			rules[i].Enabled = false
		}
	}
	c.Resolved.Rules = rules
	return nil
}
