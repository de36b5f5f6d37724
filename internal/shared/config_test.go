package shared_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"hostiq/internal/shared"
)

// isolate points HOME and the working directory at a temp dir so neither a
// real config file nor a stray .env leaks into the test.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	home := isolate(t)

	c, err := shared.Load("")
	require.NoError(t, err)
	require.Equal(t, 120*time.Second, c.RequestTimeout)
	require.Equal(t, 3*time.Second, c.PollInterval)
	require.Equal(t, "file", c.TokenStore)
	require.False(t, c.RefreshDedupe)
	require.Equal(t, filepath.Join(home, ".config/hostiq/tokens.json"), c.TokenFile)
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "hostiq.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
api_url = "https://file.example/api"
request_timeout_ms = 5000
refresh_dedupe = true
token_store = "redis"
profile = "owner"
`), 0o600))

	t.Setenv("API_URL", "https://env.example/api")

	c, err := shared.Load(path)
	require.NoError(t, err)
	require.Equal(t, "https://env.example/api", c.APIURL)
	require.Equal(t, 5*time.Second, c.RequestTimeout)
	require.True(t, c.RefreshDedupe)
	require.Equal(t, "redis", c.TokenStore)
	require.Equal(t, "owner", c.Profile)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("POLL_INTERVAL_MS=750\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("POLL_INTERVAL_MS") })

	c, err := shared.Load("")
	require.NoError(t, err)
	require.Equal(t, 750*time.Millisecond, c.PollInterval)
}

func TestLoad_ExplicitMissingFileFails(t *testing.T) {
	dir := isolate(t)
	_, err := shared.Load(filepath.Join(dir, "nope.toml"))
	require.Error(t, err)
}

func TestLoad_InvalidStore(t *testing.T) {
	isolate(t)
	t.Setenv("TOKEN_STORE", "keychain")
	_, err := shared.Load("")
	require.ErrorContains(t, err, "TOKEN_STORE")
}

func TestLoad_ServerTimeout(t *testing.T) {
	isolate(t)

	c, err := shared.Load("")
	require.NoError(t, err)
	require.Equal(t, 15*time.Second, c.ServerTimeout)

	t.Setenv("SERVER_TIMEOUT_MS", "2500")
	c, err = shared.Load("")
	require.NoError(t, err)
	require.Equal(t, 2500*time.Millisecond, c.ServerTimeout)
}
