package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jenian/envinject/internal/config"
)

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	t.Setenv(config.EnvConfigDir, t.TempDir())
	var stdout, stderr bytes.Buffer
	code := execute(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestRun_VarFlags(t *testing.T) {
	dir := t.TempDir()
	app := writeFile(t, dir, "app.xml", "<b>${DB_URL}</b><c>${DB_USER}</c>")

	code, stdout, stderr := runCLI(t, "run", "-C", dir, "-f", "app.xml",
		"--no-env-files", "--no-exported-env",
		"--var", "DB_URL=host1", "--var", "DB_USER=admin")
	require.Equal(t, 0, code, stderr)

	assert.Equal(t, "<b>host1</b><c>admin</c>", readFile(t, app))
	assert.Contains(t, stdout, "Injected variables into 1 of 1 file(s).")
}

func TestRun_EnvFilesAndPrecedence(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".env", "DB_URL=from-dotenv\nDB_USER=dotenv-user\n")
	writeFile(t, dir, "build.env", "DB_USER=build-user\n")
	app := writeFile(t, dir, "conf/app.properties", "url=${DB_URL}\nuser=${DB_USER}\n")

	code, _, stderr := runCLI(t, "run", "-C", dir, "--files", "conf/*.properties",
		"--env-file", "build.env", "--no-exported-env",
		"--var", "DB_URL=from-flag")
	require.Equal(t, 0, code, stderr)

	assert.Equal(t, "url=from-flag\nuser=build-user\n", readFile(t, app))
}

func TestRun_MissingVariable(t *testing.T) {
	dir := t.TempDir()
	app := writeFile(t, dir, "app.xml", "<b>${DB_URL}</b><c>${DB_USER}</c>")

	code, _, stderr := runCLI(t, "run", "-C", dir, "-f", "app.xml",
		"--no-env-files", "--no-exported-env", "--var", "DB_URL=host1")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "requires a variable named 'DB_USER'")
	assert.Equal(t, "<b>${DB_URL}</b><c>${DB_USER}</c>", readFile(t, app))
}

func TestRun_IgnoreMissing(t *testing.T) {
	dir := t.TempDir()
	app := writeFile(t, dir, "app.xml", "<b>${DB_URL}</b><c>${DB_USER}</c>")

	code, _, stderr := runCLI(t, "run", "-C", dir, "-f", "app.xml", "--ignore-missing",
		"--no-env-files", "--no-exported-env", "--var", "DB_URL=host1")
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "<b>host1</b><c>${DB_USER}</c>", readFile(t, app))
}

func TestRun_JSONFailure(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "app.xml", "${MISSING}")

	code, stdout, _ := runCLI(t, "run", "-C", dir, "-f", "app.xml", "--json",
		"--no-env-files", "--no-exported-env")
	assert.Equal(t, 1, code)

	var report map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	assert.Equal(t, "MISSING_VARIABLE", report["code"])
	assert.Equal(t, []interface{}{}, report["written"])
}

func TestRun_SilentFailure(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "app.xml", "${MISSING}")

	code, stdout, stderr := runCLI(t, "run", "-C", dir, "-f", "app.xml", "--silent",
		"--no-env-files", "--no-exported-env")
	assert.Equal(t, 1, code)
	assert.Empty(t, stdout)
	assert.Empty(t, stderr)
}

func TestRun_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".envinject.yaml", "files:\n  - '*.ini'\npattern: '@([A-Z_]+)@'\nignore_case: true\n")
	app := writeFile(t, dir, "app.ini", "host=@db_host@\n")

	code, _, stderr := runCLI(t, "run", "-C", dir, "--no-env-files", "--no-exported-env", "--var", "DB_HOST=db")
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "host=db\n", readFile(t, app))
}

func TestRun_DryRun(t *testing.T) {
	dir := t.TempDir()
	app := writeFile(t, dir, "app.xml", "${V}")

	code, stdout, stderr := runCLI(t, "run", "-C", dir, "-f", "app.xml", "--dry-run",
		"--no-env-files", "--no-exported-env", "--var", "V=x")
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "${V}", readFile(t, app))
	assert.Contains(t, stdout, "would change")
}

func TestRun_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no files", []string{"run", "-C", dir}, "no files to inject"},
		{"bad var", []string{"run", "-C", dir, "-f", "a", "--var", "NOVALUE"}, "expected KEY=VALUE"},
		{"bad pattern", []string{"run", "-C", dir, "-f", "a", "--pattern", "(a)(b)"}, "invalid pattern"},
		{"bad dir", []string{"run", "-C", filepath.Join(dir, "missing"), "-f", "a"}, "missing"},
		{"unknown flag", []string{"run", "--nope"}, "unknown flag"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := runCLI(t, append(tt.args, "--no-exported-env")...)
			assert.Equal(t, 1, code)
			assert.Contains(t, stderr, tt.want)
		})
	}
}

func TestInitConfig(t *testing.T) {
	dir := t.TempDir()

	code, stdout, stderr := runCLI(t, "init-config", "-C", dir)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "Created")
	assert.FileExists(t, filepath.Join(dir, ".envinject.yaml"))

	code, _, stderr = runCLI(t, "init-config", "-C", dir)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "already exists")
}

func TestVersion(t *testing.T) {
	code, stdout, _ := runCLI(t, "version")
	assert.Equal(t, 0, code)
	assert.Equal(t, Version+"\n", stdout)
}

func TestRun_VerboseLogsCarryRunID(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "app.xml", "${V}")

	code, _, stderr := runCLI(t, "run", "-v", "-C", dir, "-f", "app.xml",
		"--no-env-files", "--no-exported-env", "--var", "V=x")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stderr, `"run_id":"`)
	assert.Contains(t, stderr, "Injection completed")
}
