package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"detective_lab/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("STORE_DRIVER", "json")
	t.Setenv("STORE_DIR", filepath.Join(dir, "data"))
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("LOG_LEVEL", "error")
	return dir
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCLI_RegisterGradeAndReport(t *testing.T) {
	dir := setupEnv(t)

	out, err := run(t, "s3cret\n", "register", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "registered alice (learner)")

	_, err = run(t, "", "register", "teach", "--role", "instructor", "--password", "pw")
	require.NoError(t, err)

	_, err = run(t, "", "register", "alice", "--password", "again")
	assert.Error(t, err)

	solution := filepath.Join(dir, "solution.lua")
	require.NoError(t, os.WriteFile(solution, []byte(`evidence = {table.unpack(log, #log - 4)}`), 0o644))

	out, err = run(t, "", "grade", "-u", "alice", "-c", "log-triage", "-f", solution)
	require.NoError(t, err)
	var outcome model.Outcome
	require.NoError(t, json.Unmarshal([]byte(out), &outcome), out)
	assert.Equal(t, model.VerdictAccepted, outcome.Verdict)

	out, err = run(t, "var visits = 1", "grade", "-u", "alice", "-c", "suspicious-connections", "-r", "go")
	require.NoError(t, err)
	assert.Contains(t, out, string(model.VerdictIncorrect))

	out, err = run(t, "", "leaderboard")
	require.NoError(t, err)
	assert.Contains(t, out, "RANK")
	assert.Regexp(t, `(?m)^\s*1\s+alice\s+10\s+1\s*$`, out)
	assert.NotContains(t, out, "teach", "instructors are not ranked")

	out, err = run(t, "", "cases", "-u", "alice")
	require.NoError(t, err)
	assert.Regexp(t, `log-triage\s+Log Triage\s+slicing\s+solved`, out)
	assert.Regexp(t, `suspicious-connections\s+.*\s+open`, out)
	assert.Regexp(t, `alias-board\s+.*\s+locked`, out)

	_, err = os.Stat(filepath.Join(dir, "data", "progress.json"))
	assert.NoError(t, err)
}

func TestCLI_CasesWithoutUser(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "", "cases")
	require.NoError(t, err)
	assert.Contains(t, out, "chain-of-custody")
	assert.Regexp(t, `log-triage\s+Log Triage\s+slicing\s+-`, out)
}

func TestCLI_GradeUnknownUser(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "x = 1", "grade", "-u", "ghost", "-c", "log-triage")
	assert.Error(t, err)
}

func TestCLI_BadConfig(t *testing.T) {
	setupEnv(t)
	t.Setenv("STORE_DRIVER", "sqlite")

	_, err := run(t, "", "cases")
	assert.Error(t, err)
}
