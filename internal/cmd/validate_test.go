package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFixture(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "org.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRunValidateAcceptsValidConfiguration(t *testing.T) {
	orig := validateConfigFile
	defer func() { validateConfigFile = orig }()

	validateConfigFile = writeConfigFixture(t, `github_id: acme
repositories:
  - name: api
    description: API service
`)
	assert.NoError(t, runValidate(validateCmd, nil))
}

func TestRunValidateReportsErrors(t *testing.T) {
	orig := validateConfigFile
	defer func() { validateConfigFile = orig }()

	validateConfigFile = writeConfigFixture(t, `github_id: acme
settings:
  plan: enterprise
`)
	err := runValidate(validateCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 validation error(s)")
}

func TestRunValidateRejectsUnknownField(t *testing.T) {
	orig := validateConfigFile
	defer func() { validateConfigFile = orig }()

	validateConfigFile = writeConfigFixture(t, `github_id: acme
repositories:
  - name: api
    descriptions: typo
`)
	err := runValidate(validateCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown field")
}

func TestRunValidateMissingFile(t *testing.T) {
	orig := validateConfigFile
	defer func() { validateConfigFile = orig }()

	validateConfigFile = filepath.Join(t.TempDir(), "absent.yaml")
	assert.Error(t, runValidate(validateCmd, nil))
}
