package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/Melonai/ka/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cli struct {
	t      *testing.T
	root   string
	config string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, config.Init(cfgPath, false))
	return &cli{t: t, root: t.TempDir(), config: cfgPath}
}

func (c *cli) run(args ...string) (string, error) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--repo", c.root, "--config", c.config, "--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func (c *cli) mustRun(args ...string) string {
	c.t.Helper()
	out, err := c.run(args...)
	require.NoError(c.t, err, out)
	return out
}

func (c *cli) write(rel, content string) {
	c.t.Helper()
	path := filepath.Join(c.root, rel)
	require.NoError(c.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(c.t, os.WriteFile(path, []byte(content), 0o644))
}

func (c *cli) read(rel string) string {
	c.t.Helper()
	data, err := os.ReadFile(filepath.Join(c.root, rel))
	require.NoError(c.t, err)
	return string(data)
}

func TestCLI_Workflow(t *testing.T) {
	c := newCLI(t)
	c.write("notes/a", "one\n")

	out := c.mustRun("create")
	assert.Contains(t, out, "Created ka repository in "+c.root)
	assert.Contains(t, out, "Recorded version 1 with 1 file(s)")

	assert.Contains(t, c.mustRun("status"), "Working tree matches the current version")

	c.write("notes/a", "two\n")
	c.write("b", "bee\n")
	out = c.mustRun("status")
	assert.Contains(t, out, "Modified files:\n\tM notes/a\n")
	assert.Contains(t, out, "Untracked files:\n\t? b\n")

	out = c.mustRun("diff", filepath.Join(c.root, "notes", "a"))
	assert.Contains(t, out, "diff --ka a/notes/a b/notes/a")
	assert.Contains(t, out, "- one\n+ two\n")

	out = c.mustRun("update")
	assert.Contains(t, out, "Recorded version 2 with 2 file(s)")
	assert.Contains(t, c.mustRun("update"), "Nothing to record, still at version 2")

	out = c.mustRun("shift", "1")
	assert.Contains(t, out, "Shifted from 2 to 1")
	assert.Equal(t, "one\n", c.read("notes/a"))
	assert.Equal(t, "", c.read("b"))

	assert.Equal(t, "two\n", c.mustRun("show", "--cursor", "2", filepath.Join(c.root, "notes", "a")))
	assert.Equal(t, "one\n", c.mustRun("show", filepath.Join(c.root, "notes", "a")))

	out = c.mustRun("log", "--files")
	assert.Contains(t, out, "*    1")
	assert.Contains(t, out, "\tnotes/a\n")
}

func TestCLI_Errors(t *testing.T) {
	c := newCLI(t)

	_, err := c.run("update")
	assert.ErrorContains(t, err, "not a ka repository")

	c.write("a", "x")
	c.mustRun("create")

	_, err = c.run("shift", "minus-one")
	assert.ErrorContains(t, err, "invalid cursor")

	_, err = c.run("show", filepath.Join(c.root, "missing"))
	assert.ErrorContains(t, err, "no history for missing")

	_, err = c.run("show", filepath.Join(t.TempDir(), "elsewhere"))
	assert.ErrorContains(t, err, "is not inside")
}

func TestCLI_ConfigInit(t *testing.T) {
	c := newCLI(t)
	path := filepath.Join(t.TempDir(), "ka.yaml")

	out := c.mustRun("config", "init", path)
	assert.Contains(t, out, "Wrote default configuration to "+path)

	_, err := c.run("config", "init", path)
	assert.ErrorContains(t, err, "already exists")

	c.mustRun("config", "init", "--force", path)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, ".ka", cfg.Repository.MetaDir)
}
