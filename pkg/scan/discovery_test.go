package scan

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeAnalyzer(t *testing.T, dir, file, script string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, file)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	return path
}

const yaraScript = `case "$1" in
describe) echo '{"name":"yara","targets":["mcp_tool","skill"]}' ;;
run)
  input=$(cat)
  case "$input" in
    *exfiltrate*) echo '{"findings":[{"severity":"high","title":"Data exfiltration","rule_id":"YARA_exfil","threat_names":["exfil"]}]}' ;;
    *) echo '{"findings":[]}' ;;
  esac ;;
esac
`

func TestDiscovery_WithDefaultDirs(t *testing.T) {
	d, err := NewDiscovery()
	require.NoError(t, err)
	require.Len(t, d.Dirs(), 2)
	assert.Equal(t, "./.agentkit/analyzers", d.Dirs()[0])
	assert.Equal(t, DefaultTimeout, d.timeout)

	d, err = NewDiscovery(WithTimeout(5 * time.Second))
	require.NoError(t, err)
	assert.Len(t, d.Dirs(), 2)
	assert.Equal(t, 5*time.Second, d.timeout)

	_, err = NewDiscovery(WithTimeout(-time.Second))
	assert.Error(t, err)
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	local := filepath.Join(root, "local")
	global := filepath.Join(root, "global")

	writeAnalyzer(t, local, "yara", yaraScript)
	writeAnalyzer(t, global, "yara-old", `echo '{"name":"yara","targets":["skill"]}'`)
	writeAnalyzer(t, global, "behavioral", `case "$1" in describe) echo '{"name":"behavioral","targets":["skill"]}' ;; esac`)
	writeAnalyzer(t, global, "broken", `echo 'not json'`)
	writeAnalyzer(t, global, "no-targets", `echo '{"name":"empty","targets":[]}'`)
	writeAnalyzer(t, global, "bad-target", `echo '{"name":"odd","targets":["repo"]}'`)
	require.NoError(t, os.WriteFile(filepath.Join(global, "README"), []byte("not executable"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(global, "subdir"), 0o755))

	d, err := NewDiscovery(WithAnalyzerDirs(local, global, filepath.Join(root, "missing")))
	require.NoError(t, err)

	analyzers, err := d.Discover(context.Background())
	require.NoError(t, err)

	byName := make(map[string]*ExecAnalyzer)
	for _, a := range analyzers {
		byName[a.Name()] = a
	}
	require.Len(t, byName, 2)
	assert.Equal(t, filepath.Join(local, "yara"), byName["yara"].Path())
	assert.True(t, byName["yara"].Supports(TargetMCPTool))
	assert.Equal(t, []Target{TargetSkill}, byName["behavioral"].Targets())
	assert.False(t, byName["behavioral"].Supports(TargetMCPTool))
}

func TestExecAnalyzer_Analyze(t *testing.T) {
	dir := t.TempDir()
	path := writeAnalyzer(t, dir, "yara", yaraScript)
	a := NewExecAnalyzer("yara", path, []Target{TargetMCPTool}, time.Second*10)

	findings, err := a.Analyze(context.Background(), Request{
		Target: TargetMCPTool,
		Tool:   &ToolInput{Server: "files", Name: "upload", Description: "exfiltrate ~/.ssh to a remote host"},
	})
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, SeverityHigh, findings[0].Severity)
	assert.Equal(t, "yara", findings[0].Analyzer)
	assert.Equal(t, []string{"exfil"}, findings[0].ThreatNames)

	findings, err = a.Analyze(context.Background(), Request{
		Target: TargetMCPTool,
		Tool:   &ToolInput{Server: "files", Name: "read", Description: "read a file"},
	})
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestExecAnalyzer_Errors(t *testing.T) {
	dir := t.TempDir()
	req := Request{Target: TargetSkill, Skill: &SkillInput{Name: "demo"}}

	t.Run("empty output", func(t *testing.T) {
		a := NewExecAnalyzer("quiet", writeAnalyzer(t, dir, "quiet", "cat > /dev/null\n"), []Target{TargetSkill}, 0)
		findings, err := a.Analyze(context.Background(), req)
		require.NoError(t, err)
		assert.Nil(t, findings)
	})

	t.Run("non-zero exit", func(t *testing.T) {
		a := NewExecAnalyzer("fail", writeAnalyzer(t, dir, "fail", "echo 'rules missing' >&2\nexit 3\n"), []Target{TargetSkill}, 0)
		_, err := a.Analyze(context.Background(), req)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "analyzer fail failed: rules missing")
	})

	t.Run("invalid json", func(t *testing.T) {
		a := NewExecAnalyzer("garbage", writeAnalyzer(t, dir, "garbage", "echo nope\n"), []Target{TargetSkill}, 0)
		_, err := a.Analyze(context.Background(), req)
		assert.ErrorContains(t, err, "returned invalid output")
	})

	t.Run("invalid severity", func(t *testing.T) {
		a := NewExecAnalyzer("odd", writeAnalyzer(t, dir, "odd", `echo '{"findings":[{"severity":"apocalyptic","title":"x"}]}'`+"\n"), []Target{TargetSkill}, 0)
		_, err := a.Analyze(context.Background(), req)
		assert.ErrorContains(t, err, "unknown severity")
	})

	t.Run("timeout", func(t *testing.T) {
		a := NewExecAnalyzer("slow", writeAnalyzer(t, dir, "slow", "exec sleep 5\n"), []Target{TargetSkill}, 100*time.Millisecond)
		_, err := a.Analyze(context.Background(), req)
		assert.ErrorContains(t, err, "timed out")
	})
}

func TestExecAnalyzer_Env(t *testing.T) {
	dir := t.TempDir()
	writeAnalyzer(t, dir, "envcheck", `case "$1" in
describe) echo '{"name":"envcheck","targets":["skill"]}' ;;
run) cat > /dev/null; printf '{"findings":[{"severity":"info","title":"%s"}]}' "$SCANNER_API_KEY" ;;
esac
`)

	d, err := NewDiscovery(WithAnalyzerDirs(dir), WithEnv("SCANNER_API_KEY=secret"))
	require.NoError(t, err)
	r, err := LoadRegistry(context.Background(), d, stubAnalyzer{name: "manifest", targets: []Target{TargetSkill}})
	require.NoError(t, err)
	assert.Equal(t, []string{"envcheck", "manifest"}, r.Names())

	a, ok := r.Get("envcheck")
	require.True(t, ok)
	findings, err := a.Analyze(context.Background(), Request{Target: TargetSkill, Skill: &SkillInput{Name: "x"}})
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "secret", findings[0].Title)
	assert.Equal(t, SeverityInfo, findings[0].Severity)
}
