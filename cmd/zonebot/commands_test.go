package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/m3rciful/zonebot/core/buildinfo"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	users := filepath.Join(dir, "users.txt")
	stats := filepath.Join(dir, "stats.csv")
	require.NoError(t, os.WriteFile(users, []byte("11\n22\n"), 0o600))
	require.NoError(t, os.WriteFile(stats, []byte("day,week,month,total,last_update_week\n1,2,3,5,1\n"), 0o600))

	body := strings.Join([]string{
		"telegram:",
		`  token: "123:abc"`,
		"bot:",
		`  admin_password: "pw"`,
		"storage:",
		"  driver: file",
		"  counterparties_file: " + users,
		"  catalog_file: " + filepath.Join(dir, "coins.csv"),
		"  stats_file: " + stats,
		"  image_dir: " + filepath.Join(dir, "images"),
		"",
	}, "\n")
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	require.Contains(t, out, "zonebot "+buildinfo.Version)
	require.Contains(t, out, buildinfo.Commit)
}

func TestStatsCommandText(t *testing.T) {
	path := writeFixture(t)
	out, err := execute(t, "--config", path, "stats")
	require.NoError(t, err)
	require.Contains(t, out, "Total requests: 5")
	require.Contains(t, out, "Total users: 2")
}

func TestStatsCommandJSON(t *testing.T) {
	path := writeFixture(t)
	out, err := execute(t, "stats", "-c", path, "--json")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.EqualValues(t, 5, got["total"])
	require.EqualValues(t, 2, got["users"])
}

func TestStatsCommandMissingConfig(t *testing.T) {
	_, err := execute(t, "--config", filepath.Join(t.TempDir(), "absent.yaml"), "stats")
	require.Error(t, err)
}
