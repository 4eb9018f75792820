package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const profileJSON = `{"name":"Ada Lovelace","email":"ada@example.com","username":"ada","about":"First programmer.","skills":["Math","Poetry"],"github":"https://github.com/ada"}`

func runCmd(t *testing.T, stdin string, args ...string) (string, error) {
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

func exportFixture(t *testing.T) (dir, in string) {
	t.Helper()
	dir = t.TempDir()
	in = filepath.Join(dir, "profile.json")
	require.NoError(t, os.WriteFile(in, []byte(profileJSON), 0o600))
	return dir, in
}

func TestExportCmdRequiresInput(t *testing.T) {
	_, err := runCmd(t, "", "export", "--env-file", filepath.Join(t.TempDir(), "none.env"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--in is required")
}

func TestExportCmdWritesPDF(t *testing.T) {
	dir, in := exportFixture(t)
	out := filepath.Join(dir, "ada.pdf")

	stdout, err := runCmd(t, "", "export", "--in", in, "--out", out, "--yes",
		"--env-file", filepath.Join(dir, "none.env"))
	require.NoError(t, err)
	assert.Contains(t, stdout, "wrote "+out)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestExportCmdPromptDeclined(t *testing.T) {
	dir, in := exportFixture(t)
	out := filepath.Join(dir, "portfolio.pdf")

	stdout, err := runCmd(t, "n\n", "export", "--in", in, "--out", out,
		"--env-file", filepath.Join(dir, "none.env"))
	require.NoError(t, err)

	assert.Contains(t, stdout, "[y/N]")
	assert.Contains(t, stdout, "export cancelled")
	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestExportCmdPromptAccepted(t *testing.T) {
	dir, in := exportFixture(t)
	out := filepath.Join(dir, "portfolio.pdf")

	_, err := runCmd(t, "yes\n", "export", "--in", in, "--out", out,
		"--env-file", filepath.Join(dir, "none.env"))
	require.NoError(t, err)

	_, statErr := os.Stat(out)
	assert.NoError(t, statErr)
}

func TestExportCmdRejectsBadJSON(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "profile.json")
	require.NoError(t, os.WriteFile(in, []byte("{"), 0o600))

	_, err := runCmd(t, "", "export", "--in", in, "--yes", "--env-file", filepath.Join(dir, "none.env"))
	assert.Error(t, err)
}

func TestServeCmdValidatesConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORTFOLIO_FIREBASE_API_KEY", "")

	_, err := runCmd(t, "", "serve", "--env-file", "none.env")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}
