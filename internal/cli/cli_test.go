package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/pathminer/pkg/cache"
	"github.com/matzehuels/pathminer/pkg/config"
)

func TestCacheDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "")

	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}

	home, _ := os.UserHomeDir()
	expected := filepath.Join(home, ".cache", appName)
	if dir != expected {
		t.Errorf("cacheDir() = %q, want %q", dir, expected)
	}
}

func TestCacheDirXDG(t *testing.T) {
	customCache := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", customCache)

	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}

	expected := filepath.Join(customCache, appName)
	if dir != expected {
		t.Errorf("cacheDir() with XDG_CACHE_HOME = %q, want %q", dir, expected)
	}
}

func TestResultCacheDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg")

	tests := []struct {
		name    string
		cfg     config.Cache
		want    string
		wantErr bool
	}{
		{name: "default", want: filepath.Join("/tmp/xdg", appName)},
		{name: "configured dir", cfg: config.Cache{Dir: "/var/cache/pm"}, want: "/var/cache/pm"},
		{name: "redis", cfg: config.Cache{Redis: "redis://localhost:6379/0"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resultCacheDir(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("resultCacheDir() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("resultCacheDir() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	tomlPath := filepath.Join(dir, "pathminer.toml")
	if err := os.WriteFile(tomlPath, []byte("k = 3\nstrategy = \"aco\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	yamlPath := filepath.Join(dir, "pathminer.yaml")
	if err := os.WriteFile(yamlPath, []byte("k: 5\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Run("defaults", func(t *testing.T) {
		t.Setenv(configEnv, "")
		c := New(io.Discard, LogInfo)
		f, err := c.loadConfig()
		if err != nil {
			t.Fatalf("loadConfig() error: %v", err)
		}
		if f.K != config.Default().K {
			t.Errorf("K = %d, want default %d", f.K, config.Default().K)
		}
	})

	t.Run("env", func(t *testing.T) {
		t.Setenv(configEnv, tomlPath)
		c := New(io.Discard, LogInfo)
		f, err := c.loadConfig()
		if err != nil {
			t.Fatalf("loadConfig() error: %v", err)
		}
		if f.K != 3 || f.Strategy != "aco" {
			t.Errorf("got K=%d strategy=%q, want K=3 strategy=aco", f.K, f.Strategy)
		}
	})

	t.Run("flag wins over env", func(t *testing.T) {
		t.Setenv(configEnv, tomlPath)
		c := New(io.Discard, LogInfo)
		c.configPath = yamlPath
		f, err := c.loadConfig()
		if err != nil {
			t.Fatalf("loadConfig() error: %v", err)
		}
		if f.K != 5 {
			t.Errorf("K = %d, want 5", f.K)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		c := New(io.Discard, LogInfo)
		c.configPath = filepath.Join(dir, "missing.toml")
		if _, err := c.loadConfig(); err == nil {
			t.Error("loadConfig() should fail for a missing file")
		}
	})
}

func TestNewCache(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled", func(t *testing.T) {
		cc, err := newCache(ctx, config.Cache{Dir: t.TempDir()}, true)
		if err != nil {
			t.Fatalf("newCache() error: %v", err)
		}
		if _, ok := cc.(*cache.NullCache); !ok {
			t.Errorf("newCache(noCache) = %T, want *cache.NullCache", cc)
		}
	})

	t.Run("disabled by config", func(t *testing.T) {
		cc, err := newCache(ctx, config.Cache{Disabled: true}, false)
		if err != nil {
			t.Fatalf("newCache() error: %v", err)
		}
		if _, ok := cc.(*cache.NullCache); !ok {
			t.Errorf("newCache() = %T, want *cache.NullCache", cc)
		}
	})

	t.Run("directory", func(t *testing.T) {
		dir := t.TempDir()
		cc, err := newCache(ctx, config.Cache{Dir: dir}, false)
		if err != nil {
			t.Fatalf("newCache() error: %v", err)
		}
		fc, ok := cc.(*cache.FileCache)
		if !ok {
			t.Fatalf("newCache() = %T, want *cache.FileCache", cc)
		}
		if fc.Dir() != dir {
			t.Errorf("Dir() = %q, want %q", fc.Dir(), dir)
		}
	})

	t.Run("xdg default", func(t *testing.T) {
		xdg := t.TempDir()
		t.Setenv("XDG_CACHE_HOME", xdg)
		cc, err := newCache(ctx, config.Cache{}, false)
		if err != nil {
			t.Fatalf("newCache() error: %v", err)
		}
		fc, ok := cc.(*cache.FileCache)
		if !ok {
			t.Fatalf("newCache() = %T, want *cache.FileCache", cc)
		}
		if !strings.HasPrefix(fc.Dir(), xdg) {
			t.Errorf("Dir() = %q, want under %q", fc.Dir(), xdg)
		}
	})
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := New(io.Discard, LogInfo).RootCommand()
	for _, name := range []string{"solve", "contract", "serve", "runs", "cache"} {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}
