package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestServiceConfigApplyDefaults(t *testing.T) {
	t.Run("empty environment defaults to development", func(t *testing.T) {
		cfg := ServiceConfig{Name: "parbuild"}
		cfg.ApplyDefaults()
		if cfg.Environment != "development" {
			t.Errorf("expected 'development', got %q", cfg.Environment)
		}
		if !cfg.Debug {
			t.Error("expected debug=true for development")
		}
		if cfg.Logging.Level != "debug" {
			t.Errorf("expected debug logging in development, got %q", cfg.Logging.Level)
		}
		if cfg.Logging.ServiceName != "parbuild" {
			t.Errorf("expected service name propagated to logging, got %q", cfg.Logging.ServiceName)
		}
	})

	t.Run("ci keeps debug false", func(t *testing.T) {
		cfg := ServiceConfig{Name: "parbuild", Environment: "ci"}
		cfg.ApplyDefaults()
		if cfg.Debug {
			t.Error("expected debug=false for ci")
		}
		if cfg.Logging.Level != "info" {
			t.Errorf("expected info logging, got %q", cfg.Logging.Level)
		}
	})
}

func TestServiceConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ServiceConfig
		wantErr bool
		errMsg  string
	}{
		{"valid development", ServiceConfig{Name: "parbuild", Environment: "development"}, false, ""},
		{"valid ci", ServiceConfig{Name: "parbuild", Environment: "ci"}, false, ""},
		{"missing name", ServiceConfig{Environment: "production"}, true, "name: is required"},
		{"invalid environment", ServiceConfig{Name: "parbuild", Environment: "staging"}, true, "environment: must be one of"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.cfg.Logging.ApplyDefaults()
			err := tc.cfg.Validate()
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if !strings.Contains(err.Error(), tc.errMsg) {
					t.Errorf("expected error containing %q, got %q", tc.errMsg, err.Error())
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

type testConfig struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`
	Scheduler     struct {
		Parallelism  int           `mapstructure:"parallelism"`
		DrainTimeout time.Duration `mapstructure:"drain_timeout"`
	} `mapstructure:"scheduler"`
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestLoadConfigWithYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yml", `
name: parbuild
environment: ci
scheduler:
  parallelism: 3
  drain_timeout: 2s
`)

	var cfg testConfig
	if err := LoadConfig("parbuild", &cfg, WithConfigFile(path), WithEnvPrefix("PBTEST")); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Name != "parbuild" || cfg.Environment != "ci" {
		t.Errorf("unexpected service section %+v", cfg.ServiceConfig)
	}
	if cfg.Scheduler.Parallelism != 3 {
		t.Errorf("expected parallelism 3, got %d", cfg.Scheduler.Parallelism)
	}
	if cfg.Scheduler.DrainTimeout != 2*time.Second {
		t.Errorf("expected drain timeout 2s, got %v", cfg.Scheduler.DrainTimeout)
	}
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yml", "name: parbuild\nscheduler:\n  parallelism: 3\n")
	t.Setenv("PBTEST_SCHEDULER_PARALLELISM", "7")

	var cfg testConfig
	if err := LoadConfig("parbuild", &cfg, WithConfigFile(path), WithEnvPrefix("PBTEST_")); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Scheduler.Parallelism != 7 {
		t.Errorf("expected env override 7, got %d", cfg.Scheduler.Parallelism)
	}
}

func TestLoadConfig_EnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := writeFile(t, dir, ".env", "PBENV_NAME=from-dotenv\n")
	t.Cleanup(func() { os.Unsetenv("PBENV_NAME") })

	var cfg testConfig
	err := LoadConfig("parbuild", &cfg,
		WithConfigFile(filepath.Join(dir, "missing.yml")),
		WithEnvFile(envPath),
		WithEnvPrefix("PBENV"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Name != "from-dotenv" {
		t.Errorf("expected name from .env, got %q", cfg.Name)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	var cfg testConfig
	err := LoadConfig("parbuild", &cfg,
		WithConfigFile("/nonexistent/path.yml"),
		WithEnvPrefix("PBNONE"),
		WithDefaults(map[string]any{"scheduler.drain_timeout": "5s", "name": "parbuild"}))
	if err != nil {
		t.Fatalf("expected LoadConfig to succeed with missing file, got %v", err)
	}
	if cfg.Scheduler.DrainTimeout != 5*time.Second || cfg.Name != "parbuild" {
		t.Errorf("expected defaults applied, got %+v", cfg)
	}
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yml", "name: [unterminated\n")
	var cfg testConfig
	err := LoadConfig("parbuild", &cfg, WithConfigFile(path), WithEnvPrefix("PBNONE"))
	if err == nil || !strings.Contains(err.Error(), "INVALID_CONFIG") {
		t.Fatalf("expected INVALID_CONFIG, got %v", err)
	}
}

type mockFS struct {
	files map[string]bool
}

func (m *mockFS) Exists(path string) bool   { return m.files[path] }
func (m *mockFS) LoadEnv(path string) error { return nil }

func TestResolverWithMockFS(t *testing.T) {
	fs := &mockFS{files: map[string]bool{
		"./cmd/parbuild/config.yml": true,
		"./config/.env":             true,
	}}
	resolver := &Resolver{FileSystem: fs}
	files := resolver.ResolveFiles("parbuild", LoaderConfig{})
	if files.ConfigFile != "./cmd/parbuild/config.yml" {
		t.Errorf("unexpected config file %q", files.ConfigFile)
	}
	if files.EnvFile != "./config/.env" {
		t.Errorf("unexpected env file %q", files.EnvFile)
	}

	explicit := resolver.ResolveFiles("parbuild", LoaderConfig{ConfigFile: "x.yml"})
	if explicit.ConfigFile != "x.yml" {
		t.Errorf("explicit path should win, got %q", explicit.ConfigFile)
	}
}

func TestEnvKeyVariants(t *testing.T) {
	got := envKeyVariants("SCHEDULER_DRAIN_TIMEOUT")
	for _, want := range []string{"scheduler.drain_timeout", "scheduler_drain_timeout", "scheduler.drain.timeout"} {
		found := false
		for _, g := range got {
			if g == want {
				found = true
			}
		}
		if !found {
			t.Errorf("expected variant %q in %v", want, got)
		}
	}
	if v := envKeyVariants("NAME"); len(v) != 1 || v[0] != "name" {
		t.Errorf("unexpected variants %v", v)
	}
}

func TestLoaderOptions(t *testing.T) {
	var lc LoaderConfig
	WithFileSystem(&mockFS{})(&lc)
	WithConfigFile("/a.yml")(&lc)
	WithEnvFile("/b.env")(&lc)
	WithEnvPrefix("parbuild_")(&lc)
	if lc.FileSystem == nil || lc.ConfigFile != "/a.yml" || lc.EnvFile != "/b.env" {
		t.Errorf("unexpected loader config %+v", lc)
	}
	if lc.EnvPrefix != "PARBUILD" {
		t.Errorf("expected normalized prefix, got %q", lc.EnvPrefix)
	}
}
