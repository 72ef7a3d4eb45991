package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestResolveConfigPath(t *testing.T) {
	cases := []struct {
		flag, env, want string
	}{
		{"", "", "config.json"},
		{"", "/etc/lotus/config-stg.json", "/etc/lotus/config-stg.json"},
		{"local.yaml", "/etc/lotus/config-stg.json", "local.yaml"},
	}
	for _, tc := range cases {
		if got := resolveConfigPath(tc.flag, tc.env); got != tc.want {
			t.Fatalf("resolveConfigPath(%q, %q) = %q, want %q", tc.flag, tc.env, got, tc.want)
		}
	}
}

func execute(args ...string) error {
	cmd := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	return cmd.ExecuteContext(context.Background())
}

func TestRootCommandRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"MYSQL_HOST": "localhost"}`), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := execute("--config", path, "--once"); err == nil {
		t.Fatalf("expected config validation error")
	}
}

func TestRootCommandReadsConfigFromEnv(t *testing.T) {
	t.Setenv(configEnv, filepath.Join(t.TempDir(), "missing.json"))
	err := execute("--once")
	if err == nil || !strings.Contains(err.Error(), "missing.json") {
		t.Fatalf("expected load error for env path, got %v", err)
	}
}

func TestRootCommandRejectsUnknownFlag(t *testing.T) {
	if err := execute("--bogus"); err == nil {
		t.Fatalf("expected flag parse error")
	}
}

func TestRootCommandRejectsPositionalArgs(t *testing.T) {
	if err := execute("extra"); err == nil {
		t.Fatalf("expected positional argument error")
	}
}

func TestRootCommandFlags(t *testing.T) {
	cmd := newRootCommand()
	for _, name := range []string{"config", "once"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Fatalf("flag --%s not registered", name)
		}
	}
	if cmd.Flags().ShorthandLookup("c") == nil {
		t.Fatalf("shorthand -c not registered")
	}
}
