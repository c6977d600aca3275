package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "Workdesk", cfg.AppName)
	assert.Equal(t, 5, cfg.NumberingMaxAttempts)
	assert.False(t, cfg.SMTPConfigured())
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigReadsDotenv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("APP_NAME=Acme Desk\nSMTP_HOST=mail.test\n"), 0o600))
	t.Chdir(dir)
	t.Setenv("NUMBERING_MAX_ATTEMPTS", "3")
	t.Cleanup(func() {
		os.Unsetenv("APP_NAME")
		os.Unsetenv("SMTP_HOST")
	})

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "Acme Desk", cfg.AppName)
	assert.Equal(t, 3, cfg.NumberingMaxAttempts)
	assert.True(t, cfg.SMTPConfigured())
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{PGDSN: "postgres://x", NumberingMaxAttempts: 0}
	require.Error(t, cfg.Validate())

	cfg.NumberingMaxAttempts = 1
	cfg.SMTPHost = "mail.test"
	require.Error(t, cfg.Validate())

	cfg.SMTPFrom = "a@b.c"
	require.NoError(t, cfg.Validate())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", parseLevel("debug").String())
	assert.Equal(t, "WARN", parseLevel("WARNING").String())
	assert.Equal(t, "INFO", parseLevel("").String())
}
