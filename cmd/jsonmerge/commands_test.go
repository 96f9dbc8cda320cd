package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/scott-cotton/cli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentflare-ai/go-jsonmerge"
	"github.com/agentflare-ai/go-jsonmerge/internal/config"
)

type buffer struct{ bytes.Buffer }

func (*buffer) Close() error { return nil }

type result struct {
	out, err string
	runErr   error
}

// runCommand runs the subcommand args[0] the way the root command would,
// without exiting the process.
func runCommand(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	var out, errOut buffer
	cc := &cli.Context{
		In:  io.NopCloser(strings.NewReader(stdin)),
		Out: &out,
		Err: &errOut,
		Go:  context.Background(),
	}
	sub := MainCommand(config.Default()).FindSub(cc, args[0])
	require.NotNil(t, sub, "no command %q", args[0])
	err := sub.Run(cc, args[1:])
	return result{out: out.String(), err: errOut.String(), runErr: err}
}

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, data := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	}
	return dir
}

func TestMergeCommand(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"base.json":    `{"name":"A","n":1}`,
		"local.json":   `{"name":"B","n":1}`,
		"remote.json":  `{"name":"C","n":2}`,
		"clean.json":   `{"name":"A","n":3}`,
		"remote.yaml":  "name: A\nn: 5\n",
		"invalid.json": `{"name":`,
	})
	at := func(name string) string { return filepath.Join(dir, name) }

	tests := []struct {
		name    string
		args    []string
		stdin   string
		out     string
		stderr  []string
		wantErr error
	}{
		{
			name: "clean",
			args: []string{at("base.json"), at("local.json"), at("clean.json")},
			out:  "{\n  \"name\": \"B\",\n  \"n\": 3\n}\n",
		},
		{
			name:    "conflict exits 1",
			args:    []string{at("base.json"), at("local.json"), at("remote.json")},
			out:     "{\n  \"name\": \"B\",\n  \"n\": 2\n}\n",
			stderr:  []string{"CONFLICT /name\n", "1 conflict\n"},
			wantErr: cli.ExitCodeErr(1),
		},
		{
			name:    "remote strategy",
			args:    []string{"-strategy", "remote", at("base.json"), at("local.json"), at("remote.json")},
			out:     "{\n  \"name\": \"C\",\n  \"n\": 2\n}\n",
			wantErr: cli.ExitCodeErr(1),
		},
		{
			name:    "conflicts as JSON",
			args:    []string{"-conflicts-json", at("base.json"), at("local.json"), at("remote.json")},
			stderr:  []string{`"path": "/name"`, `"remote_value": "C"`},
			wantErr: cli.ExitCodeErr(1),
		},
		{
			name:  "local from stdin and remote as YAML",
			args:  []string{at("base.json"), "-", at("remote.yaml")},
			stdin: `{"name":"A","n":1,"extra":true}`,
			out:   "{\n  \"name\": \"A\",\n  \"n\": 5,\n  \"extra\": true\n}\n",
		},
		{
			name:    "missing argument",
			args:    []string{at("base.json"), at("local.json")},
			wantErr: cli.ErrUsage,
		},
		{
			name:    "unknown strategy",
			args:    []string{"-strategy", "newest", at("base.json"), at("local.json"), at("remote.json")},
			wantErr: jsonmerge.ErrUnknownStrategy,
		},
		{
			name:    "malformed record",
			args:    []string{at("base.json"), at("invalid.json"), at("remote.json")},
			wantErr: jsonmerge.ErrMalformedRecord,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := runCommand(t, tt.stdin, append([]string{"merge"}, tt.args...)...)
			if tt.wantErr != nil {
				require.Error(t, res.runErr)
				assert.True(t, errors.Is(res.runErr, tt.wantErr), "got %v, want %v", res.runErr, tt.wantErr)
			} else {
				require.NoError(t, res.runErr)
			}
			if tt.out != "" {
				assert.Equal(t, tt.out, res.out)
			}
			for _, s := range tt.stderr {
				assert.Contains(t, res.err, s)
			}
		})
	}
}

func TestMergeCommandWritesFile(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"base.yaml":   "tags: [a]\n",
		"local.yaml":  "tags: [a]\nowner: me\n",
		"remote.yaml": "tags: [a, b]\n",
	})
	out := filepath.Join(dir, "merged.yaml")
	res := runCommand(t, "", "merge", "-o", out,
		filepath.Join(dir, "base.yaml"), filepath.Join(dir, "local.yaml"), filepath.Join(dir, "remote.yaml"))
	require.NoError(t, res.runErr)
	assert.Empty(t, res.out)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	merged, err := jsonmerge.ParseYAML(data)
	require.NoError(t, err)
	assert.Equal(t, `{"tags":["a","b"],"owner":"me"}`, merged.String())
}

func TestApplyCommand(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"patch.json": `[{"op":"add","path":"/items/-","value":"x"},{"op":"remove","path":"/old"}]`,
		"test.json":  `[{"op":"test","path":"/old","value":2}]`,
		"bad.json":   `[{"op":"add","path":"/a"}]`,
	})
	doc := `{"items":["y"],"old":1}`

	res := runCommand(t, doc, "apply", filepath.Join(dir, "patch.json"), "-")
	require.NoError(t, res.runErr)
	assert.Equal(t, "{\n  \"items\": [\n    \"y\",\n    \"x\"\n  ]\n}\n", res.out)

	res = runCommand(t, doc, "apply", filepath.Join(dir, "test.json"), "-")
	assert.ErrorIs(t, res.runErr, jsonmerge.ErrTestFailed)
	assert.Empty(t, res.out)

	res = runCommand(t, doc, "apply", filepath.Join(dir, "bad.json"), "-")
	assert.ErrorIs(t, res.runErr, jsonmerge.ErrMissingValue)

	res = runCommand(t, doc, "apply", filepath.Join(dir, "patch.json"))
	assert.ErrorIs(t, res.runErr, cli.ErrUsage)
}

func TestReplayCommand(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"doc.json":     `{"n":0}`,
		"one.json":     `[{"op":"replace","path":"/n","value":1}]`,
		"two.yaml":     "- op: add\n  path: /tags\n  value: [t]\n",
		"missing.json": `[{"op":"remove","path":"/missing"}]`,
		"log.json": `[
			{"seq": 1, "patch": [{"op":"replace","path":"/n","value":1}]},
			{"seq": 3, "patch": [{"op":"add","path":"/m","value":2}]}
		]`,
		"unordered.json": `[
			{"seq": 3, "patch": []},
			{"seq": 1, "patch": []}
		]`,
	})
	at := func(name string) string { return filepath.Join(dir, name) }

	res := runCommand(t, "", "replay", at("doc.json"), at("one.json"), at("two.yaml"))
	require.NoError(t, res.runErr)
	assert.Equal(t, "{\n  \"n\": 1,\n  \"tags\": [\n    \"t\"\n  ]\n}\n", res.out)

	res = runCommand(t, "", "replay", at("doc.json"), at("one.json"), at("missing.json"))
	var replayErr *jsonmerge.ReplayError
	require.True(t, errors.As(res.runErr, &replayErr), "got %v", res.runErr)
	assert.Equal(t, 1, replayErr.Index)
	assert.Empty(t, res.out)

	res = runCommand(t, "", "replay", "-log", at("log.json"), at("doc.json"))
	require.NoError(t, res.runErr)
	assert.Equal(t, "{\n  \"n\": 1,\n  \"m\": 2\n}\n", res.out)

	res = runCommand(t, "", "replay", "-log", at("unordered.json"), at("doc.json"))
	assert.ErrorIs(t, res.runErr, jsonmerge.ErrOutOfOrder)

	res = runCommand(t, "", "replay", "-log", at("log.json"), at("doc.json"), at("one.json"))
	assert.ErrorIs(t, res.runErr, cli.ErrUsage)
}

func TestBatchCommand(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"one/base.json":   `{"a":1}`,
		"one/local.json":  `{"a":1,"b":2}`,
		"one/remote.json": `{"a":3}`,
		"two/base.json":   `{"s":"a"}`,
		"two/local.json":  `{"s":"b"}`,
		"two/remote.json": `{"s":"c"}`,
		"batch.yml": `documents:
  - id: one
    base: one/base.json
    local: one/local.json
    remote: one/remote.json
    out: one/merged.json
  - id: two
    base: two/base.json
    local: two/local.json
    remote: two/remote.json
`,
	})

	res := runCommand(t, "", "batch", "-workers", "2", filepath.Join(dir, "batch.yml"))
	assert.Equal(t, cli.ExitCodeErr(1), res.runErr)
	assert.Equal(t, "one\t0 conflicts\ntwo\t1 conflicts\n", res.out)
	assert.Contains(t, res.err, "CONFLICT /s\n")

	data, err := os.ReadFile(filepath.Join(dir, "one/merged.json"))
	require.NoError(t, err)
	merged, err := jsonmerge.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, `{"a":3,"b":2}`, merged.String())

	res = runCommand(t, "", "batch", filepath.Join(dir, "none.yml"))
	assert.ErrorIs(t, res.runErr, os.ErrNotExist)
}

func TestDiffAndIndexCommands(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"a.json": `{"l":[1],"k":"v"}`,
		"b.json": `{"l":[1,2],"k":"v"}`,
	})

	res := runCommand(t, "", "diff", filepath.Join(dir, "a.json"), filepath.Join(dir, "b.json"))
	require.NoError(t, res.runErr)
	var patch []map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.out), &patch))
	assert.Equal(t, []map[string]any{{"op": "add", "path": "/l/-", "value": 2.0}}, patch)

	res = runCommand(t, "", "diff", filepath.Join(dir, "a.json"), filepath.Join(dir, "a.json"))
	require.NoError(t, res.runErr)
	assert.Equal(t, "[]\n", res.out)

	res = runCommand(t, "", "index", "-sort", filepath.Join(dir, "b.json"))
	require.NoError(t, res.runErr)
	assert.Equal(t, "/k\t\"v\"\n/l/0\t1\n/l/1\t2\n", res.out)

	res = runCommand(t, "", "get", filepath.Join(dir, "b.json"), "/l/1")
	require.NoError(t, res.runErr)
	assert.Equal(t, "2\n", res.out)

	res = runCommand(t, "", "get", filepath.Join(dir, "b.json"), "/x")
	assert.Equal(t, cli.ExitCodeErr(1), res.runErr)
	assert.Equal(t, "/x: absent\n", res.out)
}
