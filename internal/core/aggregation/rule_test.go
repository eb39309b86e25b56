package aggregation

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeRule is a test helper that writes a single rule YAML file into dir.
func writeRule(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestFileSystemRuleRepository_LoadAndList(t *testing.T) {
	dir := t.TempDir()
	writeRule(t, dir, "monitor_wait.yaml", `
name: "jfr.JavaMonitorWait.duration"
source_event: "jdk.JavaMonitorWait"
field: "duration"
group_by: "monitorClass"
`)
	writeRule(t, dir, "file_read.yml", `
name: "jfr.FileRead.bytesRead"
source_event: "jdk.FileRead"
field: "bytesRead"
group_by: "thread"
enabled: false
`)
	writeRule(t, dir, "notes.txt", `not a rule`)
	writeRule(t, dir, "empty.yaml", `# placeholder`)

	repo, err := NewFileSystemRuleRepository(dir)
	require.NoError(t, err)

	all, err := repo.List(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "jfr.FileRead.bytesRead", all[0].Name)
	require.Equal(t, "jfr.JavaMonitorWait.duration", all[1].Name)

	fileRead := all[0]
	require.False(t, fileRead.Enabled)
	require.Equal(t, "thread.name", fileRead.GroupAttribute)

	monitor := all[1]
	require.True(t, monitor.Enabled)
	require.Equal(t, "monitorClass", monitor.GroupAttribute)
	require.Len(t, monitor.Fingerprint, 64)

	filtered, err := repo.List(context.Background(), "jdk.JavaMonitorWait")
	require.NoError(t, err)
	require.Len(t, filtered, 1)

	noMatch, err := repo.List(context.Background(), "jdk.Compilation")
	require.NoError(t, err)
	require.Empty(t, noMatch)
}

func TestFileSystemRuleRepository_Get(t *testing.T) {
	dir := t.TempDir()
	writeRule(t, dir, "rule.yaml", `
name: "jfr.ThreadPark.duration"
source_event: "jdk.ThreadPark"
field: "duration"
group_by: "thread"
group_attribute: "thread"
`)

	repo, err := NewFileSystemRuleRepository(dir)
	require.NoError(t, err)

	rule, err := repo.Get(context.Background(), "jfr.ThreadPark.duration")
	require.NoError(t, err)
	require.Equal(t, "jdk.ThreadPark", rule.SourceEvent)
	require.Equal(t, "thread", rule.GroupAttribute)

	_, err = repo.Get(context.Background(), "missing")
	require.ErrorIs(t, err, ErrRuleNotFound)
}

func TestFileSystemRuleRepository_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
	}{
		{
			name: "missing source event",
			files: map[string]string{"a.yaml": `
name: "a"
field: "bytesRead"
`},
		},
		{
			name: "missing field",
			files: map[string]string{"a.yaml": `
name: "a"
source_event: "jdk.SocketRead"
`},
		},
		{
			name: "malformed yaml",
			files: map[string]string{"a.yaml": "name: [unclosed"},
		},
		{
			name: "duplicate names",
			files: map[string]string{
				"a.yaml": "name: dup\nsource_event: jdk.SocketRead\nfield: bytesRead\n",
				"b.yaml": "name: dup\nsource_event: jdk.SocketWrite\nfield: bytesWritten\n",
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			for name, content := range tc.files {
				writeRule(t, dir, name, content)
			}
			_, err := NewFileSystemRuleRepository(dir)
			require.Error(t, err)
		})
	}
}

func TestFileSystemRuleRepository_MissingDirIsEmpty(t *testing.T) {
	repo, err := NewFileSystemRuleRepository(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	require.Empty(t, repo.GetRules())

	repo, err = NewFileSystemRuleRepository("")
	require.NoError(t, err)
	require.Empty(t, repo.GetRules())
}

func TestFileSystemRuleRepository_PathIsFile(t *testing.T) {
	dir := t.TempDir()
	writeRule(t, dir, "file.yaml", "name: x\n")
	_, err := NewFileSystemRuleRepository(filepath.Join(dir, "file.yaml"))
	require.Error(t, err)
}

func TestMergeRules_OverridesBuiltins(t *testing.T) {
	builtins := BuiltinRules()
	override := builtins[0]
	override.Enabled = false
	extra := SummaryRule{Name: "jfr.FileRead.bytesRead", SourceEvent: "jdk.FileRead", Field: "bytesRead", Enabled: true}

	merged := MergeRules(builtins, []SummaryRule{override, extra})
	require.Len(t, merged, len(builtins)+1)

	for i := 1; i < len(merged); i++ {
		require.Less(t, merged[i-1].Name, merged[i].Name)
	}
	for _, rule := range merged {
		if rule.Name == override.Name {
			require.False(t, rule.Enabled)
		}
	}
}

func TestBuiltinRules_AreValid(t *testing.T) {
	seen := map[string]bool{}
	for _, rule := range BuiltinRules() {
		require.NotEmpty(t, rule.Name)
		require.NotEmpty(t, rule.SourceEvent)
		require.NotEmpty(t, rule.Field)
		require.True(t, rule.Enabled)
		require.False(t, seen[rule.Name], "duplicate built-in %q", rule.Name)
		seen[rule.Name] = true
	}
}
