package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logflow/procmine/pkg/errors"
)

const exampleLog = "123 a 1\n456 b 2\n789 a 3\n123 b 4\n789 b 5\n123 c 6\n"

func writeLog(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// execute runs the root command and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--no-color", "--no-progress"}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestTraces(t *testing.T) {
	path := writeLog(t, "events.txt", exampleLog)

	out, _, err := execute(t, "traces", path)
	require.NoError(t, err)
	assert.Equal(t, "Traces: 3\n"+
		"789:\t2 activities: a b\n"+
		"456:\t1 activities: b\n"+
		"123:\t3 activities: a b c\n", out)

	out, _, err = execute(t, "traces", "-n", "1", path)
	require.NoError(t, err)
	assert.Contains(t, out, "... 2 more")
}

func TestActivities(t *testing.T) {
	path := writeLog(t, "events.txt", exampleLog)

	out, _, err := execute(t, "activities", path)
	require.NoError(t, err)
	assert.Equal(t, "Start activities (2): a, b\n", out)

	out, _, err = execute(t, "activities", "--end", path)
	require.NoError(t, err)
	assert.Equal(t, "End activities (2): b, c\n", out)
}

func TestAnalyze(t *testing.T) {
	path := writeLog(t, "events.txt", exampleLog)

	out, _, err := execute(t, "analyze", path)
	require.NoError(t, err)
	for _, want := range []string{
		"Records:",
		"min 1, avg 2.00, max 3",
		"Start activities (2): a, b",
		"End activities (2): b, c",
		"Distinct variants:",
		"Most frequent:",
		"a -> b (33.3%)",
		"Done",
	} {
		assert.Contains(t, out, want)
	}
}

func TestAnalyze_EmptyLog(t *testing.T) {
	path := writeLog(t, "empty.txt", "")

	out, _, err := execute(t, "analyze", path)
	require.NoError(t, err)
	assert.Contains(t, out, "No traces in log")
}

func TestStatsJSON(t *testing.T) {
	path := writeLog(t, "events.txt", exampleLog+"bad line\n")

	out, stderr, err := execute(t, "stats", "--json", path)
	require.NoError(t, err)

	var got statsOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 7, got.Records)
	assert.Equal(t, 1, got.Malformed)
	assert.Equal(t, 3, got.Summary.Traces)
	assert.Equal(t, 6, got.Summary.Events)
	assert.InDelta(t, 2.0, got.Summary.AverageLength, 1e-9)
	assert.Equal(t, 3, got.Variants)
	assert.NotEmpty(t, got.RunID)

	assert.Contains(t, stderr, "skipping malformed record")
	assert.Contains(t, stderr, "line=7")
}

func TestStrictPolicy(t *testing.T) {
	path := writeLog(t, "events.txt", "1 a 0\noops\n2 b 0\n")

	_, _, err := execute(t, "--error-policy", "strict", "traces", path)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeMalformedRecord), "got %v", err)
}

func TestQuarantineFile(t *testing.T) {
	path := writeLog(t, "events.txt", "1 a 0\noops\n2 b 0\nx y z\n")
	qpath := filepath.Join(t.TempDir(), "bad.jsonl")

	out, _, err := execute(t, "--quarantine", qpath, "traces", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Traces: 2")

	f, err := os.Open(qpath)
	require.NoError(t, err)
	defer f.Close()

	var lines []quarantineRecord
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var rec quarantineRecord
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		lines = append(lines, rec)
	}
	require.Len(t, lines, 2)
	assert.Equal(t, 2, lines[0].Line)
	assert.Equal(t, "oops", lines[0].Raw)
	assert.Equal(t, 4, lines[1].Line)
}

func TestMissingSource(t *testing.T) {
	_, _, err := execute(t, "traces", filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeFileNotFound), "got %v", err)
}

func TestInvalidFlag(t *testing.T) {
	path := writeLog(t, "events.txt", exampleLog)

	_, _, err := execute(t, "--prefix-scale", "0", "traces", path)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidConfig), "got %v", err)

	_, _, err = execute(t, "--error-policy", "lenient", "traces", path)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidConfig), "got %v", err)
}

func TestCountAndBuckets(t *testing.T) {
	path := writeLog(t, "events.txt", "1 a 0\n200001 b 0\n2 c 0")

	out, _, err := execute(t, "count", path)
	require.NoError(t, err)
	assert.Equal(t, "3\n", out)

	out, _, err = execute(t, "buckets", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Traces: 3 in 2 buckets (scale 100000)")
	assert.Contains(t, out, "299999")

	out, _, err = execute(t, "--prefix-scale", "10", "buckets", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Traces: 3 in 2 buckets (scale 10)")
}

func TestVariants(t *testing.T) {
	path := writeLog(t, "events.txt", "1 a 0\n1 b 0\n2 a 0\n2 b 0\n3 c 0\n")

	out, _, err := execute(t, "variants", path)
	require.NoError(t, err)
	assert.Contains(t, out, "a -> b")
	assert.Contains(t, out, "66.7%")

	out, _, err = execute(t, "variants", "--traces", path)
	require.NoError(t, err)
	assert.Equal(t, "Traces: 2\n"+
		"2:\t2 activities: a b\n"+
		"3:\t1 activities: c\n", out)
}

func TestGenerateThenBatch(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.txt", "b.txt"} {
		_, _, err := execute(t, "generate", "-o", filepath.Join(dir, name), "--cases", "20")
		require.NoError(t, err)
	}

	out, _, err := execute(t, "batch", "--workers", "2", filepath.Join(dir, "*.txt"))
	require.NoError(t, err)
	assert.Contains(t, out, "a.txt")
	assert.Contains(t, out, "b.txt")
	assert.NotContains(t, out, "error")
}

func TestBatch_ReportsFailures(t *testing.T) {
	good := writeLog(t, "good.txt", exampleLog)
	missing := filepath.Join(t.TempDir(), "missing.txt")

	out, _, err := execute(t, "batch", good, missing)
	require.Error(t, err)
	assert.Contains(t, out, "error E101")
	assert.Contains(t, err.Error(), "1 of 2 logs failed")
}

func TestGenerate_Stdout(t *testing.T) {
	out, _, err := execute(t, "generate", "--cases", "3", "--open", "1")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.GreaterOrEqual(t, len(lines), 3*4)
	assert.True(t, strings.HasPrefix(lines[0], "1 register "), lines[0])
}
