package timepin

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/tliron/commonlog"
)

// ConfigEnv names the environment variable holding the config file path.
const ConfigEnv = "TIMEPIN_CONFIG"

// Config selects the module, the callback and the target to hook.
type Config struct {
	// Module is the file name (or path) of the module hosting the target.
	Module string `toml:"module"`

	// Capability is the exported name resolution callback.
	Capability string `toml:"capability"`

	// Candidates are tried in order against the callback.
	Candidates []string `toml:"candidates"`

	// Watch names are resolved and logged each time the override is applied.
	Watch []string `toml:"watch"`

	SettleDelay time.Duration `toml:"settle_delay"`
	Override    float64       `toml:"override"`

	Log LogConfig `toml:"log"`
}

// LogConfig is handed to commonlog.
type LogConfig struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// DefaultConfig targets UnityEngine.Time::set_timeScale in libil2cpp.so.
func DefaultConfig() Config {
	return Config{
		Module:     "libil2cpp.so",
		Capability: "il2cpp_resolve_icall",
		Candidates: []string{
			"UnityEngine.Time::set_timeScale(System.Single)",
			"UnityEngine.Time::set_timeScale",
			"Time::set_timeScale",
		},
		Watch: []string{
			"UnityEngine.Time::get_timeScale",
			"UnityEngine.Time::set_fixedDeltaTime",
		},
		SettleDelay: DefaultSettleDelay,
		Override:    DefaultOverride,
		Log: LogConfig{
			Verbosity: 1,
		},
	}
}

// DecodeConfig reads TOML from r on top of DefaultConfig. Keys missing
// from the document keep their defaults.
func DecodeConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads a TOML config file.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("cannot read %s: %w", path, err)
	}
	defer f.Close()

	cfg, err := DecodeConfig(f)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ConfigFromEnv loads the file named by $TIMEPIN_CONFIG, or returns
// DefaultConfig when the variable is unset.
func ConfigFromEnv() (Config, error) {
	path := os.Getenv(ConfigEnv)
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadConfig(path)
}

// Validate reports every missing or out of range field.
func (c Config) Validate() error {
	var errs []error
	if c.Module == "" {
		errs = append(errs, errors.New("module is required"))
	}
	if c.Capability == "" {
		errs = append(errs, errors.New("capability is required"))
	}
	if len(c.Candidates) == 0 {
		errs = append(errs, errors.New("at least one candidate is required"))
	}
	if c.SettleDelay < 0 {
		errs = append(errs, fmt.Errorf("settle_delay must not be negative: %v", c.SettleDelay))
	}
	return errors.Join(errs...)
}

// Apply configures commonlog. An empty File logs to stderr.
func (c LogConfig) Apply() {
	var path *string
	if c.File != "" {
		path = &c.File
	}
	commonlog.Configure(c.Verbosity, path)
}
