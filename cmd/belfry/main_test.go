package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestVersionCmd(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("version command failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "belfry dev") {
		t.Errorf("expected output to contain 'belfry dev', got: %s", out)
	}
	if !strings.Contains(out, "commit: none") {
		t.Errorf("expected output to contain 'commit: none', got: %s", out)
	}
}

func TestVersionCmdWithCustomValues(t *testing.T) {
	origVersion, origCommit, origDate := Version, Commit, Date
	Version, Commit, Date = "1.0.0", "abc123", "2026-01-01"
	defer func() { Version, Commit, Date = origVersion, origCommit, origDate }()

	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("version command failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "belfry 1.0.0") {
		t.Errorf("expected output to contain 'belfry 1.0.0', got: %s", out)
	}
	if !strings.Contains(out, "built: 2026-01-01") {
		t.Errorf("expected output to contain 'built: 2026-01-01', got: %s", out)
	}
}

func TestRootCmdHelp(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("help failed: %v", err)
	}

	out := buf.String()
	for _, sub := range []string{"serve", "worker", "migrate", "user", "import", "version"} {
		if !strings.Contains(out, sub) {
			t.Errorf("help missing subcommand %q", sub)
		}
	}
}

func TestServeCmd_MissingConfig(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"serve", "--config", "/nonexistent/belfry.yaml"})

	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestMigrateCmd_Sqlite(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "belfry.yaml")
	dbPath := filepath.Join(dir, "belfry.db")
	yaml := "database:\n  driver: sqlite\n  path: " + dbPath + "\n"
	if err := os.WriteFile(configPath, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"migrate", "--config", configPath})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Migrated 11 tables") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestUserCreateCmd(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "belfry.yaml")
	dbPath := filepath.Join(dir, "belfry.db")
	yaml := "database:\n  driver: sqlite\n  path: " + dbPath + "\n"
	if err := os.WriteFile(configPath, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	run := func(args ...string) string {
		cmd := newRootCmd()
		buf := new(bytes.Buffer)
		cmd.SetOut(buf)
		cmd.SetErr(buf)
		cmd.SetArgs(args)
		if err := cmd.Execute(); err != nil {
			t.Fatalf("%v failed: %v", args, err)
		}
		return buf.String()
	}

	run("migrate", "--config", configPath)
	out := run("user", "create", "--config", configPath, "--email", "a@b.org", "--name", "Ann")

	if !strings.Contains(out, "a@b.org") {
		t.Errorf("output missing email: %q", out)
	}
	if !strings.Contains(out, "API key: ") {
		t.Errorf("output missing API key: %q", out)
	}

	// Creating again keeps the key.
	key := out[strings.Index(out, "API key: ")+len("API key: "):]
	key = strings.TrimSpace(key)
	out2 := run("user", "create", "--config", configPath, "--email", "a@b.org")
	if !strings.Contains(out2, key) {
		t.Errorf("API key changed on re-create:\nfirst: %q\nsecond: %q", out, out2)
	}
}

func TestUserCreateCmd_MissingEmail(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"user", "create", "--config", "/nonexistent/belfry.yaml"})

	// Stdin is not a terminal under go test, so no prompt happens.
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error without --email")
	}
}
