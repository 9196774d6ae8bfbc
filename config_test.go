package timepin

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "libil2cpp.so", cfg.Module)
	assert.Equal(t, "il2cpp_resolve_icall", cfg.Capability)
	assert.Equal(t, []string{
		"UnityEngine.Time::set_timeScale(System.Single)",
		"UnityEngine.Time::set_timeScale",
		"Time::set_timeScale",
	}, cfg.Candidates)
	assert.Equal(t, 8*time.Second, cfg.SettleDelay)
	assert.Equal(t, 1.0, cfg.Override)
}

func TestDecodeConfig(t *testing.T) {
	assert := assert.New(t)

	cfg, err := DecodeConfig(strings.NewReader(`
module = "libgame.so"
candidates = ["Game::SetSpeed"]
settle_delay = "250ms"
override = 0.5

[log]
verbosity = 2
file = "/tmp/timepin.log"
`))
	require.NoError(t, err)

	assert.Equal("libgame.so", cfg.Module)
	assert.Equal([]string{"Game::SetSpeed"}, cfg.Candidates)
	assert.Equal(250*time.Millisecond, cfg.SettleDelay)
	assert.Equal(0.5, cfg.Override)
	assert.Equal(LogConfig{Verbosity: 2, File: "/tmp/timepin.log"}, cfg.Log)

	// Untouched keys keep their defaults.
	assert.Equal("il2cpp_resolve_icall", cfg.Capability)
	assert.Equal(DefaultConfig().Watch, cfg.Watch)
}

func TestDecodeConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"empty module", `module = ""`, "module is required"},
		{"no candidates", `candidates = []`, "at least one candidate"},
		{"negative settle", `settle_delay = "-1s"`, "settle_delay must not be negative"},
		{"syntax", `module = `, "parse config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeConfig(strings.NewReader(tt.doc))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timepin.toml")
	require.NoError(t, os.WriteFile(path, []byte(`override = 3.0`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 3.0, cfg.Override)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv(ConfigEnv, "")
	cfg, err := ConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	path := filepath.Join(t.TempDir(), "timepin.toml")
	require.NoError(t, os.WriteFile(path, []byte(`module = "libother.so"`), 0o600))
	t.Setenv(ConfigEnv, path)

	cfg, err = ConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "libother.so", cfg.Module)
}
