package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/streamop/errors"
	"github.com/kbukum/streamop/flatmap"
	"github.com/kbukum/streamop/version"
)

func TestServiceConfigApplyDefaults(t *testing.T) {
	t.Run("empty environment defaults to development", func(t *testing.T) {
		cfg := ServiceConfig{Name: "tokenizer"}
		cfg.ApplyDefaults()
		if cfg.Environment != "development" {
			t.Errorf("expected 'development', got %q", cfg.Environment)
		}
		if !cfg.Debug {
			t.Error("expected debug=true for development")
		}
		if cfg.Logging.ServiceName != "tokenizer" {
			t.Errorf("expected logging service name to follow config name, got %q", cfg.Logging.ServiceName)
		}
	})

	t.Run("production environment keeps debug false", func(t *testing.T) {
		cfg := ServiceConfig{Name: "tokenizer", Environment: "production"}
		cfg.ApplyDefaults()
		if cfg.Debug {
			t.Error("expected debug=false for production")
		}
		if cfg.Tracing.Environment != "production" || cfg.Metrics.Environment != "production" {
			t.Error("expected observability environment to follow config")
		}
	})

	t.Run("version defaults to build version", func(t *testing.T) {
		cfg := ServiceConfig{Name: "tokenizer"}
		cfg.ApplyDefaults()
		if cfg.Version != version.Short() || cfg.Tracing.ServiceVersion != cfg.Version {
			t.Errorf("expected build version, got %q/%q", cfg.Version, cfg.Tracing.ServiceVersion)
		}
	})

	t.Run("operator defaults", func(t *testing.T) {
		cfg := ServiceConfig{Name: "tokenizer"}
		cfg.ApplyDefaults()
		if cfg.Operator.Name != flatmap.DefaultName {
			t.Errorf("expected operator name %q, got %q", flatmap.DefaultName, cfg.Operator.Name)
		}
		if cfg.Operator.ShutdownTimeout != flatmap.DefaultShutdownTimeout {
			t.Errorf("expected default shutdown timeout, got %v", cfg.Operator.ShutdownTimeout)
		}
	})
}

func TestServiceConfigValidate(t *testing.T) {
	valid := func() ServiceConfig {
		cfg := ServiceConfig{Name: "tokenizer", Environment: "staging"}
		cfg.ApplyDefaults()
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*ServiceConfig)
		errMsg string
	}{
		{"valid", func(*ServiceConfig) {}, ""},
		{"missing name", func(c *ServiceConfig) { c.Name = "" }, "name: is required"},
		{"invalid environment", func(c *ServiceConfig) { c.Environment = "qa" }, "environment: must be one of"},
		{"sample rate out of range", func(c *ServiceConfig) { c.Tracing.SampleRate = 2 }, "tracing.sample_rate"},
		{"invalid log level", func(c *ServiceConfig) { c.Logging.Level = "loud" }, "config.logging"},
		{"negative parallelism", func(c *ServiceConfig) { c.Operator.Parallelism = -1 }, "config.operator"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.errMsg == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.errMsg) {
				t.Errorf("expected error containing %q, got %q", tc.errMsg, err.Error())
			}
		})
	}
}

func TestServiceConfigValidateOperatorCode(t *testing.T) {
	cfg := ServiceConfig{Name: "tokenizer"}
	cfg.ApplyDefaults()
	cfg.Operator.ShutdownTimeout = -time.Second

	err := cfg.Validate()
	if !errors.HasCode(err, errors.ErrCodeInvalidConfiguration) {
		t.Errorf("expected INVALID_CONFIGURATION, got %v", err)
	}
}

func TestLoadConfigWithYAML(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yml")

	yamlContent := `
name: tokenizer
environment: staging
version: "1.0.0"
operator:
  name: tokenize
  parallelism: 4
  shutdown_timeout: 250ms
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	var cfg ServiceConfig
	if err := LoadConfig("tokenizer", &cfg, WithConfigFile(configPath)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Environment != "staging" {
		t.Errorf("expected environment 'staging', got %q", cfg.Environment)
	}
	if cfg.Operator.Name != "tokenize" || cfg.Operator.Parallelism != 4 {
		t.Errorf("unexpected operator config %+v", cfg.Operator)
	}
	if cfg.Operator.ShutdownTimeout != 250*time.Millisecond {
		t.Errorf("expected 250ms shutdown timeout, got %v", cfg.Operator.ShutdownTimeout)
	}
}

func TestLoadAppliesDefaultsAndValidates(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yml")
	bad := filepath.Join(dir, "bad.yml")
	os.WriteFile(good, []byte("name: tokenizer\noperator:\n  parallelism: 2\n"), 0644)
	os.WriteFile(bad, []byte("name: tokenizer\noperator:\n  parallelism: -3\n"), 0644)

	cfg, err := Load[ServiceConfig]("tokenizer", WithConfigFile(good))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Operator.ShutdownTimeout != flatmap.DefaultShutdownTimeout {
		t.Errorf("expected defaults applied, got %v", cfg.Operator.ShutdownTimeout)
	}
	if cfg.Operator.Mode() != flatmap.ModeParallel {
		t.Errorf("expected parallel mode, got %s", cfg.Operator.Mode())
	}

	if _, err := Load[ServiceConfig]("tokenizer", WithConfigFile(bad)); !errors.HasCode(err, errors.ErrCodeInvalidConfiguration) {
		t.Errorf("expected INVALID_CONFIGURATION, got %v", err)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("OPERATOR_PARALLELISM", "8")
	t.Setenv("OPERATOR_SHUTDOWN_TIMEOUT", "750ms")

	var cfg ServiceConfig
	if err := LoadConfig("tokenizer", &cfg, WithFileSystem(&mockFS{})); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Operator.Parallelism != 8 {
		t.Errorf("expected parallelism from environment, got %d", cfg.Operator.Parallelism)
	}
	if cfg.Operator.ShutdownTimeout != 750*time.Millisecond {
		t.Errorf("expected 750ms shutdown timeout from environment, got %v", cfg.Operator.ShutdownTimeout)
	}
}

func TestLoadConfigEnvOverridesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	os.WriteFile(path, []byte("name: tokenizer\noperator:\n  name: tokenize\n  parallelism: 4\n"), 0644)
	t.Setenv("OPERATOR_PARALLELISM", "0")
	t.Setenv("LOGGING_LEVEL", "debug")

	var cfg ServiceConfig
	if err := LoadConfig("tokenizer", &cfg, WithConfigFile(path)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Operator.Parallelism != 0 || cfg.Operator.Mode() != flatmap.ModeInline {
		t.Errorf("expected environment to switch the operator inline, got %+v", cfg.Operator)
	}
	if cfg.Operator.Name != "tokenize" {
		t.Errorf("expected file values to survive, got %q", cfg.Operator.Name)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected nested logging key from environment, got %q", cfg.Logging.Level)
	}
}

func TestLoadRejectsInvalidOperatorFromEnv(t *testing.T) {
	t.Setenv("NAME", "tokenizer")
	t.Setenv("OPERATOR_PARALLELISM", "-1")

	_, err := Load[ServiceConfig]("tokenizer", WithFileSystem(&mockFS{}))
	if !errors.HasCode(err, errors.ErrCodeInvalidConfiguration) {
		t.Fatalf("expected INVALID_CONFIGURATION, got %v", err)
	}
	if !strings.Contains(err.Error(), "parallelism") {
		t.Errorf("expected the rejected field in %q", err.Error())
	}
}

func TestLoadConfigEnvPrefix(t *testing.T) {
	t.Setenv("OPERATOR_PARALLELISM", "2")
	t.Setenv("TOK_OPERATOR_PARALLELISM", "6")

	var cfg ServiceConfig
	if err := LoadConfig("tokenizer", &cfg, WithFileSystem(&mockFS{}), WithEnvPrefix("TOK")); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Operator.Parallelism != 6 {
		t.Errorf("expected prefixed variable to be used, got %d", cfg.Operator.Parallelism)
	}
}

func TestLoadConfigDotEnvFile(t *testing.T) {
	const key = "OPERATOR_SHUTDOWN_TIMEOUT"
	os.Unsetenv(key)
	t.Cleanup(func() { os.Unsetenv(key) })

	envPath := filepath.Join(t.TempDir(), ".env")
	os.WriteFile(envPath, []byte(key+"=1200ms\n"), 0644)

	var cfg ServiceConfig
	if err := LoadConfig("tokenizer", &cfg, WithEnvFile(envPath)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Operator.ShutdownTimeout != 1200*time.Millisecond {
		t.Errorf("expected shutdown timeout from .env, got %v", cfg.Operator.ShutdownTimeout)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	var cfg ServiceConfig
	err := LoadConfig("nonexistent-service", &cfg, WithConfigFile("/nonexistent/path.yml"))
	if err != nil {
		t.Fatalf("expected LoadConfig to succeed with missing file, got %v", err)
	}
}

func TestDiscover(t *testing.T) {
	fs := &mockFS{files: map[string]bool{
		"cmd/tokenizer/config.yml": true,
		"config/config.yml":        true,
		".env":                     true,
	}}
	got := Discover(fs, "tokenizer")
	if got.ConfigFile != "cmd/tokenizer/config.yml" {
		t.Errorf("expected the pipeline's own config first, got %q", got.ConfigFile)
	}
	if got.EnvFile != ".env" {
		t.Errorf("expected .env, got %q", got.EnvFile)
	}

	if got := Discover(&mockFS{}, "tokenizer"); got != (Sources{}) {
		t.Errorf("expected no sources, got %+v", got)
	}
}

func TestLoadConfigExplicitSourcesWin(t *testing.T) {
	fs := &mockFS{files: map[string]bool{".env": true, "/etc/tok.env": true}}
	var cfg ServiceConfig
	if err := LoadConfig("tokenizer", &cfg, WithFileSystem(fs), WithEnvFile("/etc/tok.env")); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if len(fs.loaded) != 1 || fs.loaded[0] != "/etc/tok.env" {
		t.Errorf("expected only the explicit env file to load, got %v", fs.loaded)
	}
}

type mockFS struct {
	files  map[string]bool
	loaded []string
}

func (m *mockFS) Exists(path string) bool { return m.files[path] }

func (m *mockFS) LoadEnv(path string) error {
	m.loaded = append(m.loaded, path)
	return nil
}
