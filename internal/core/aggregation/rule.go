package aggregation

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// GroupByThread groups observations by the record's originating thread.
const GroupByThread = "thread"

// ErrRuleNotFound is returned by RuleRepository.Get for unknown names.
var ErrRuleNotFound = errors.New("summary rule not found")

// SummaryRule binds one event kind to one windowed summary metric.
// Rules are built in or loaded at startup from YAML files.
type SummaryRule struct {
	Name           string // metric name of emitted summary points
	SourceEvent    string // recorder event name, e.g. "jdk.ObjectAllocationOutsideTLAB"
	Field          string // numeric record field to summarize
	GroupBy        string // GroupByThread, a field name, or empty for a single group
	GroupAttribute string // attribute name the grouping key is reported under
	Enabled        bool
	Fingerprint    string // SHA-256 of the raw YAML file; empty for built-ins
}

// rawRule is the on-disk YAML shape.
type rawRule struct {
	Name           string `yaml:"name"`
	SourceEvent    string `yaml:"source_event"`
	Field          string `yaml:"field"`
	GroupBy        string `yaml:"group_by"`
	GroupAttribute string `yaml:"group_attribute"`
	Enabled        *bool  `yaml:"enabled"` // defaults to true
}

// BuiltinRules returns the summaries every pipeline carries unless disabled.
func BuiltinRules() []SummaryRule {
	return []SummaryRule{
		{
			Name:           "jfr.ObjectAllocationOutsideTLAB.allocation",
			SourceEvent:    "jdk.ObjectAllocationOutsideTLAB",
			Field:          "allocationSize",
			GroupBy:        GroupByThread,
			GroupAttribute: "thread.name",
			Enabled:        true,
		},
		{
			Name:           "jfr.ObjectAllocationInNewTLAB.allocation",
			SourceEvent:    "jdk.ObjectAllocationInNewTLAB",
			Field:          "tlabSize",
			GroupBy:        GroupByThread,
			GroupAttribute: "thread.name",
			Enabled:        true,
		},
		{
			Name:           "jfr.SocketRead.bytesRead",
			SourceEvent:    "jdk.SocketRead",
			Field:          "bytesRead",
			GroupBy:        GroupByThread,
			GroupAttribute: "thread.name",
			Enabled:        true,
		},
		{
			Name:           "jfr.SocketWrite.bytesWritten",
			SourceEvent:    "jdk.SocketWrite",
			Field:          "bytesWritten",
			GroupBy:        GroupByThread,
			GroupAttribute: "thread.name",
			Enabled:        true,
		},
		{
			Name:        "jfr.G1GarbageCollection.duration",
			SourceEvent: "jdk.G1GarbageCollection",
			Field:       DurationField,
			Enabled:     true,
		},
	}
}

// RuleRepository defines the interface for loading summary rules.
type RuleRepository interface {
	// Get returns the rule with the given name, or ErrRuleNotFound.
	Get(ctx context.Context, name string) (*SummaryRule, error)

	// List returns all loaded rules, optionally filtered by source event.
	List(ctx context.Context, sourceEvent string) ([]SummaryRule, error)

	// GetRules returns all rules ordered by name.
	GetRules() []SummaryRule
}

// FileSystemRuleRepository loads summary rules from *.yaml files in a directory.
// Each file contains exactly one rule at the top level. Rules are loaded once
// at startup; there is no hot reload.
type FileSystemRuleRepository struct {
	dir   string
	rules map[string]SummaryRule // keyed by Name
}

// NewFileSystemRuleRepository creates a new repository and eagerly loads all
// rules from dir. A missing directory yields an empty repository.
func NewFileSystemRuleRepository(dir string) (*FileSystemRuleRepository, error) {
	repo := &FileSystemRuleRepository{
		dir:   dir,
		rules: make(map[string]SummaryRule),
	}
	if err := repo.load(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *FileSystemRuleRepository) load() error {
	if r.dir == "" {
		return nil
	}
	info, err := os.Stat(r.dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("summary rule dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("summary rule path %q is not a directory", r.dir)
	}

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return fmt.Errorf("reading summary rule dir: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() || (!strings.HasSuffix(e.Name(), ".yaml") && !strings.HasSuffix(e.Name(), ".yml")) {
			continue
		}

		path := filepath.Join(r.dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading rule file %s: %w", path, err)
		}

		rule, skip, err := parseRule(data)
		if err != nil {
			return fmt.Errorf("rule file %s: %w", path, err)
		}
		if skip {
			continue // empty / comment-only file
		}

		if _, exists := r.rules[rule.Name]; exists {
			return fmt.Errorf("rule %q: duplicate rule name (check multiple YAML files)", rule.Name)
		}
		r.rules[rule.Name] = rule
	}
	return nil
}

func parseRule(data []byte) (rule SummaryRule, skip bool, err error) {
	var raw rawRule
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return SummaryRule{}, false, fmt.Errorf("parsing: %w", err)
	}
	if raw.Name == "" {
		return SummaryRule{}, true, nil
	}
	if raw.SourceEvent == "" {
		return SummaryRule{}, false, fmt.Errorf("rule %q: source_event must not be empty", raw.Name)
	}
	if raw.Field == "" {
		return SummaryRule{}, false, fmt.Errorf("rule %q: field must not be empty", raw.Name)
	}

	attr := raw.GroupAttribute
	if attr == "" {
		switch raw.GroupBy {
		case GroupByThread:
			attr = "thread.name"
		default:
			attr = raw.GroupBy
		}
	}

	enabled := true
	if raw.Enabled != nil {
		enabled = *raw.Enabled
	}

	return SummaryRule{
		Name:           raw.Name,
		SourceEvent:    raw.SourceEvent,
		Field:          raw.Field,
		GroupBy:        raw.GroupBy,
		GroupAttribute: attr,
		Enabled:        enabled,
		Fingerprint:    fmt.Sprintf("%x", sha256.Sum256(data)),
	}, false, nil
}

// Get returns the rule with the given name.
func (r *FileSystemRuleRepository) Get(_ context.Context, name string) (*SummaryRule, error) {
	rule, ok := r.rules[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrRuleNotFound)
	}
	return &rule, nil
}

// List returns all loaded rules, optionally filtered by source event.
func (r *FileSystemRuleRepository) List(_ context.Context, sourceEvent string) ([]SummaryRule, error) {
	var out []SummaryRule
	for _, rule := range r.GetRules() {
		if sourceEvent != "" && rule.SourceEvent != sourceEvent {
			continue
		}
		out = append(out, rule)
	}
	return out, nil
}

// GetRules returns all rules ordered by name.
func (r *FileSystemRuleRepository) GetRules() []SummaryRule {
	rules := make([]SummaryRule, 0, len(r.rules))
	for _, rule := range r.rules {
		rules = append(rules, rule)
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].Name < rules[j].Name })
	return rules
}

// MergeRules overlays loaded on top of base. A loaded rule replaces the base
// rule of the same name, which is how a built-in is tuned or disabled.
func MergeRules(base, loaded []SummaryRule) []SummaryRule {
	byName := make(map[string]SummaryRule, len(base)+len(loaded))
	for _, rule := range base {
		byName[rule.Name] = rule
	}
	for _, rule := range loaded {
		byName[rule.Name] = rule
	}
	out := make([]SummaryRule, 0, len(byName))
	for _, rule := range byName {
		out = append(out, rule)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
