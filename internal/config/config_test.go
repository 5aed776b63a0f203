package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	var cfg Config
	cfg.App.Port = 38472
	cfg.Cache.Backend = "sqlite"
	cfg.Provider.Endpoint = "https://api.search.example/v1"
	cfg.Provider.MaxRequestsPerSecond = 1
	cfg.Provider.MonthlyQuota = 2000
	cfg.Fallback.Endpoint = "https://fallback.example/html/"
	cfg.Region.Tokens = []string{"méxico"}
	cfg.Collect.MinPer = 10
	cfg.Categories = []CategoryRule{{Name: "salud", Any: []string{"salud"}}}
	cfg.Areas = []AreaRule{{Name: "social", Categories: []string{"salud"}}}
	return cfg
}

func TestNormalizeAndValidateOK(t *testing.T) {
	_, vr := NormalizeAndValidate(validConfig())
	require.True(t, vr.OK(), "unexpected errors: %v", vr.Errors)
}

func TestNormalizeTrimsAndDedupsLists(t *testing.T) {
	cfg := validConfig()
	cfg.Region.Tokens = []string{" méxico ", "cdmx", "MÉXICO", ""}

	out, vr := NormalizeAndValidate(cfg)
	require.True(t, vr.OK())
	require.Equal(t, []string{"méxico", "cdmx"}, out.Region.Tokens)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := validConfig()
	cfg.App.Port = 0
	cfg.Cache.Backend = "redis"
	cfg.Provider.MaxRequestsPerSecond = 0
	cfg.Categories = []CategoryRule{{Name: "", Any: nil}}

	_, vr := NormalizeAndValidate(cfg)
	require.False(t, vr.OK())
	require.GreaterOrEqual(t, len(vr.Errors), 4)
}

func TestEmailValidationOnlyWhenEnabled(t *testing.T) {
	cfg := validConfig()
	cfg.Sources.Email.Enabled = true

	_, vr := NormalizeAndValidate(cfg)
	require.False(t, vr.OK())

	cfg.Sources.Email.IMAPHost = "imap.example.com"
	cfg.Sources.Email.IMAPPort = 993
	cfg.Sources.Email.Username = "me@example.com"
	_, vr = NormalizeAndValidate(cfg)
	require.True(t, vr.OK(), "unexpected errors: %v", vr.Errors)
}

func TestSaveAtomicRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")

	cfg := validConfig()
	require.NoError(t, SaveAtomic(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.App.Port, loaded.App.Port)
	require.Equal(t, cfg.Provider.Endpoint, loaded.Provider.Endpoint)

	// second save keeps a .bak of the previous file
	cfg.App.Port = 38473
	require.NoError(t, SaveAtomic(path, cfg))
	_, err = os.Stat(path + ".bak")
	require.NoError(t, err)
}

func TestSaveAtomicRejectsInvalid(t *testing.T) {
	cfg := validConfig()
	cfg.App.Port = -1
	err := SaveAtomic(filepath.Join(t.TempDir(), "config.yml"), cfg)
	require.Error(t, err)
}

func TestEnsureUserConfigSeedsOnce(t *testing.T) {
	dir := t.TempDir()
	defaultPath := filepath.Join(dir, "default.yml")
	require.NoError(t, os.WriteFile(defaultPath, []byte("app:\n  port: 38472\n"), 0o644))

	dataDir := filepath.Join(dir, "data")
	userPath, err := EnsureUserConfig(dataDir, defaultPath)
	require.NoError(t, err)
	require.FileExists(t, userPath)

	// user edits survive a second bootstrap
	require.NoError(t, os.WriteFile(userPath, []byte("app:\n  port: 40000\n"), 0o644))
	again, err := EnsureUserConfig(dataDir, defaultPath)
	require.NoError(t, err)
	require.Equal(t, userPath, again)

	loaded, err := Load(userPath)
	require.NoError(t, err)
	require.Equal(t, 40000, loaded.App.Port)
}
