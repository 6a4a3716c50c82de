package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"jobmonitor-engine/internal/domain"
)

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 1, exitCode(domain.ConfigErrorf("bad")))
	assert.Equal(t, 1, exitCode(fmt.Errorf("wrap: %w", domain.LedgerErrorf("disk"))))
	assert.Equal(t, 2, exitCode(errors.New("other")))
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := runCmd(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "jobmonitor dev")
}

func TestRunRejectsConflictingSelection(t *testing.T) {
	_, err := runCmd(t, "run", "--only", "html", "--google-only")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConfig))
}

func TestInitThenValidate(t *testing.T) {
	dir := t.TempDir()
	keyring.MockInit()

	out, err := runCmd(t, "init", "--config-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "sites_config.yaml")
	_, err = os.Stat(filepath.Join(dir, "sites_config.yaml"))
	require.NoError(t, err)

	out, err = runCmd(t, "init", "--config-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "already present")

	out, err = runCmd(t, "validate", "--config-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "weworkremotely")
	assert.Contains(t, out, "keywords:")
}

func TestRunWithCorruptLedgerExitsOne(t *testing.T) {
	keyring.MockInit()
	dir := t.TempDir()
	_, err := runCmd(t, "init", "--config-dir", dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "seen_jobs.json"), []byte("{not json"), 0o644))

	_, err = runCmd(t, "run", "--config-dir", dir, "--dry-run", "--only", "nosuchsite")
	require.Error(t, err)
	assert.Equal(t, 1, exitCode(err))
}
