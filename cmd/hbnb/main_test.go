package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"hbnb/internal/config"
)

type cli struct {
	t          *testing.T
	configPath string
	dataPath   string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	for _, key := range []string{"HBNB_STORAGE_DRIVER", "HBNB_FILE_PATH", "HBNB_LOG_LEVEL"} {
		t.Setenv(key, "")
	}
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Storage.File.Path = filepath.Join(dir, "file.json")
	cfg.Logging.Level = "error"
	path := filepath.Join(dir, "hbnb.yaml")
	require.NoError(t, cfg.Save(path))
	return &cli{t: t, configPath: path, dataPath: cfg.Storage.File.Path}
}

func (c *cli) run(stdin string, args ...string) (string, error) {
	c.t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--config", c.configPath}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestExecCreatesAndPersists(t *testing.T) {
	c := newCLI(t)
	out, err := c.run("", "exec", "create User")
	require.NoError(t, err)
	id := strings.TrimSpace(out)
	_, err = uuid.Parse(id)
	require.NoError(t, err, "expected uuid, got %q", out)

	out, err = c.run("", "exec", "show User "+id, "User.count()")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	require.True(t, strings.HasPrefix(lines[0], "[User] ("+id+")"), lines[0])
	require.Equal(t, "1", lines[1])

	out, err = c.run("", "dump")
	require.NoError(t, err)
	require.Contains(t, out, `"User.`+id+`": {`)
	require.Contains(t, out, `"__class__": "User"`)
}

func TestExecStopsAtQuit(t *testing.T) {
	c := newCLI(t)
	_, err := c.run("", "exec", "create State", "quit", "create State")
	require.NoError(t, err)
	out, err := c.run("", "exec", "count State")
	require.NoError(t, err)
	require.Equal(t, "1\n", out)
}

func TestConsoleReadsPipedInput(t *testing.T) {
	c := newCLI(t)
	out, err := c.run("create City\ncount City\nquit\n")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	require.Equal(t, "1", lines[1])
	require.NotContains(t, out, "(hbnb)")
}

func TestDumpWithoutSnapshot(t *testing.T) {
	c := newCLI(t)
	out, err := c.run("", "dump")
	require.NoError(t, err)
	require.Equal(t, "{}\n", out)
}

func TestCorruptSnapshotDoesNotPreventStartup(t *testing.T) {
	c := newCLI(t)
	require.NoError(t, os.WriteFile(c.dataPath, []byte("{not json"), 0o644))
	out, err := c.run("", "exec", "count User")
	require.NoError(t, err)
	require.Equal(t, "0\n", out)

	_, err = c.run("", "dump")
	require.Error(t, err)
}

func TestDriverFlagOverridesConfig(t *testing.T) {
	c := newCLI(t)
	_, err := c.run("", "--driver", "memory", "exec", "create User")
	require.NoError(t, err)
	_, statErr := os.Stat(c.dataPath)
	require.True(t, os.IsNotExist(statErr), "memory driver must not write the file")

	_, err = c.run("", "--driver", "floppy", "exec", "count User")
	require.Error(t, err)
}

func TestVerboseLogsMetrics(t *testing.T) {
	c := newCLI(t)
	_, err := c.run("", "--verbose", "exec", "create Amenity")
	require.NoError(t, err)
}
