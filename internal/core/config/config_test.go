package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, root, body string) string {
	t.Helper()
	cfgPath := filepath.Join(root, "jfrtel.yaml")
	requireNoError(t, os.WriteFile(cfgPath, []byte(body), 0o644))
	return cfgPath
}

func TestLoad_Defaults(t *testing.T) {
	root := t.TempDir()
	cfgPath := writeConfig(t, root, fmt.Sprintf(`
pipeline:
  rules_dir: "%s"
`, filepath.Join(root, "missing")))

	cfg, err := Load(cfgPath)
	requireNoError(t, err)

	if cfg.Resolved.FlushInterval != time.Minute {
		t.Fatalf("expected default flush interval 1m, got %s", cfg.Resolved.FlushInterval)
	}
	if cfg.Sink.Type != "log" {
		t.Fatalf("expected log sink by default, got %q", cfg.Sink.Type)
	}
	if !cfg.Resolved.StartTime.IsZero() {
		t.Fatalf("expected zero start time, got %s", cfg.Resolved.StartTime)
	}
	if len(cfg.Resolved.Rules) != 5 {
		t.Fatalf("expected 5 built-in rules, got %d", len(cfg.Resolved.Rules))
	}
}

func TestLoad_RulesOverlayBuiltins(t *testing.T) {
	root := t.TempDir()
	rulesDir := filepath.Join(root, "rules")
	requireNoError(t, os.MkdirAll(rulesDir, 0o755))

	requireNoError(t, os.WriteFile(filepath.Join(rulesDir, "socket_read.yaml"), []byte(`
name: "jfr.SocketRead.bytesRead"
source_event: "jdk.SocketRead"
field: "bytesRead"
enabled: false
`), 0o644))
	requireNoError(t, os.WriteFile(filepath.Join(rulesDir, "file_read.yaml"), []byte(`
name: "jfr.FileRead.bytesRead"
source_event: "jdk.FileRead"
field: "bytesRead"
group_by: "thread"
`), 0o644))

	cfgPath := writeConfig(t, root, fmt.Sprintf(`
pipeline:
  flush_interval: "10s"
  start_time: "2026-02-11T10:00:00Z"
  rules_dir: "%s"
  disabled_events: ["jdk.SocketWrite"]
`, rulesDir))

	cfg, err := Load(cfgPath)
	requireNoError(t, err)

	if len(cfg.Resolved.Rules) != 6 {
		t.Fatalf("expected 6 rules, got %d", len(cfg.Resolved.Rules))
	}
	enabled := map[string]bool{}
	for _, r := range cfg.Resolved.Rules {
		enabled[r.Name] = r.Enabled
	}
	if enabled["jfr.SocketRead.bytesRead"] {
		t.Fatalf("expected overlay to disable jfr.SocketRead.bytesRead")
	}
	if enabled["jfr.SocketWrite.bytesWritten"] {
		t.Fatalf("expected disabled_events to disable jfr.SocketWrite.bytesWritten")
	}
	if !enabled["jfr.FileRead.bytesRead"] {
		t.Fatalf("expected loaded rule jfr.FileRead.bytesRead to be enabled")
	}
	if !cfg.Resolved.DisabledEvents["jdk.SocketWrite"] {
		t.Fatalf("expected jdk.SocketWrite in disabled events")
	}
	want := time.Date(2026, 2, 11, 10, 0, 0, 0, time.UTC)
	if !cfg.Resolved.StartTime.Equal(want) {
		t.Fatalf("expected start time %s, got %s", want, cfg.Resolved.StartTime)
	}
	if cfg.Resolved.FlushInterval != 10*time.Second {
		t.Fatalf("expected flush interval 10s, got %s", cfg.Resolved.FlushInterval)
	}
}

func TestLoad_WithoutBuiltins(t *testing.T) {
	root := t.TempDir()
	cfgPath := writeConfig(t, root, fmt.Sprintf(`
pipeline:
  builtin_rules: false
  rules_dir: "%s"
`, filepath.Join(root, "missing")))

	cfg, err := Load(cfgPath)
	requireNoError(t, err)
	if len(cfg.Resolved.Rules) != 0 {
		t.Fatalf("expected no rules, got %d", len(cfg.Resolved.Rules))
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	root := t.TempDir()
	cfgPath := writeConfig(t, root, `
server:
  port: 8080
pipeline:
  flush_interval: "10s"
`)

	t.Setenv("JFRTEL_SERVER__PORT", "9090")
	t.Setenv("JFRTEL_PIPELINE__FLUSH_INTERVAL", "30s")

	cfg, err := Load(cfgPath)
	requireNoError(t, err)
	if cfg.Server.Port != 9090 {
		t.Fatalf("expected env port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Resolved.FlushInterval != 30*time.Second {
		t.Fatalf("expected env flush interval 30s, got %s", cfg.Resolved.FlushInterval)
	}
}

func TestLoad_InvalidRuleFileFailsStartup(t *testing.T) {
	root := t.TempDir()
	rulesDir := filepath.Join(root, "rules")
	requireNoError(t, os.MkdirAll(rulesDir, 0o755))
	requireNoError(t, os.WriteFile(filepath.Join(rulesDir, "bad.yaml"), []byte(`
name: "jfr.FileRead.bytesRead"
source_event: "jdk.FileRead"
`), 0o644))

	cfgPath := writeConfig(t, root, fmt.Sprintf(`
pipeline:
  rules_dir: "%s"
`, rulesDir))

	_, err := Load(cfgPath)
	if err == nil || !strings.Contains(err.Error(), "failed to load summary rules") {
		t.Fatalf("expected rule loading error, got %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil || !strings.Contains(err.Error(), "failed to load config file") {
		t.Fatalf("expected config file error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid"},
		{
			name:    "sub-second flush interval",
			mutate:  func(c *Config) { c.Pipeline.FlushInterval = "500ms" },
			wantErr: "invalid pipeline.flush_interval",
		},
		{
			name:    "fractional flush interval",
			mutate:  func(c *Config) { c.Pipeline.FlushInterval = "1500ms" },
			wantErr: "invalid pipeline.flush_interval",
		},
		{
			name:    "bad start time",
			mutate:  func(c *Config) { c.Pipeline.StartTime = "yesterday" },
			wantErr: "invalid pipeline.start_time",
		},
		{
			name:    "unknown sink",
			mutate:  func(c *Config) { c.Sink.Type = "s3" },
			wantErr: "unsupported sink.type",
		},
		{
			name:    "postgres sink without dsn",
			mutate:  func(c *Config) { c.Sink.Type = "postgres" },
			wantErr: "database.dsn is required",
		},
		{
			name:    "bad mode",
			mutate:  func(c *Config) { c.Server.Mode = "verbose" },
			wantErr: "invalid server.mode",
		},
		{
			name:    "tail without path",
			mutate:  func(c *Config) { c.Sources.Tail.Enabled = true },
			wantErr: "sources.tail.path is required",
		},
		{
			name: "kafka without brokers",
			mutate: func(c *Config) {
				c.Sources.Kafka.Enabled = true
				c.Sources.Kafka.Topics = []string{"jfr"}
				c.Sources.Kafka.GroupID = "jfrtel"
			},
			wantErr: "sources.kafka.brokers is required",
		},
		{
			name: "kafka bad offsets",
			mutate: func(c *Config) {
				c.Sources.Kafka.Enabled = true
				c.Sources.Kafka.Brokers = []string{"localhost:9092"}
				c.Sources.Kafka.Topics = []string{"jfr"}
				c.Sources.Kafka.GroupID = "jfrtel"
				c.Sources.Kafka.OffsetsInitial = "latest"
			},
			wantErr: "invalid sources.kafka.offsets_initial",
		},
		{
			name:    "no sources",
			mutate:  func(c *Config) { c.Sources.HTTP.Enabled = false },
			wantErr: "at least one source must be enabled",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			if tc.mutate != nil {
				tc.mutate(&cfg)
			}
			err := cfg.Validate()
			if tc.wantErr == "" {
				requireNoError(t, err)
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func validConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			Host:            "127.0.0.1",
			MaxBodySizeMB:   1,
			MaxBatchRecords: 100,
			Mode:            "release",
		},
		Pipeline: PipelineConfig{FlushInterval: "10s"},
		Sink:     SinkConfig{Type: "log", Workers: 1, SendTimeout: "5s"},
		Database: DatabaseConfig{MaxOpenConns: 1, MaxIdleConns: 1},
		Sources: SourcesConfig{
			HTTP: HTTPSourceConfig{Enabled: true},
			Kafka: KafkaSourceConfig{
				OffsetsInitial: "newest",
				CommitInterval: "1s",
			},
		},
	}
}

func requireNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
