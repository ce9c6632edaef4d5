package app

import (
	"context"
	"path/filepath"
	"testing"
)

func TestRun_ConfigError(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	if err := Run(context.Background()); err == nil {
		t.Fatal("Run() expected error for missing config file")
	}
}

func TestBuildVersion(t *testing.T) {
	Version, Commit, BuildTime = "1.2.3", "abc", "today"
	t.Cleanup(func() { Version, Commit, BuildTime = "dev", "unknown", "unknown" })

	if got, want := BuildVersion(), "1.2.3 (commit: abc, built: today)"; got != want {
		t.Fatalf("BuildVersion() = %q, want %q", got, want)
	}
}
