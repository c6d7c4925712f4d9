package main

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
)

// runCLI executes the root command against a temporary database.
func runCLI(t *testing.T, dbPath string, args ...string) string {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--db", dbPath, "--log-level", "error"}, args...))
	if err := cmd.Execute(); err != nil {
		t.Fatalf("ossms %v: %v", args, err)
	}
	return out.String()
}

func setupCLI(t *testing.T) string {
	t.Helper()

	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("OSSMS_CONFIG", "")
	t.Setenv("OSSMS_BCRYPT_COST", "4")
	t.Setenv("OSSMS_SEED_SAMPLE", "true")
	return filepath.Join(dir, "ossms.sqlite3")
}

func TestVersionCommand(t *testing.T) {
	dbPath := setupCLI(t)

	out := runCLI(t, dbPath, "version")
	if !strings.HasPrefix(out, "OSSMS ") {
		t.Errorf("version output = %q", out)
	}
}

func TestInitAndReports(t *testing.T) {
	dbPath := setupCLI(t)

	out := runCLI(t, dbPath, "init")
	if !strings.Contains(out, "Admin account: admin") {
		t.Errorf("init output = %q", out)
	}

	// Running init twice must not duplicate sample data.
	runCLI(t, dbPath, "init")

	out = runCLI(t, dbPath, "recalc")
	if !strings.Contains(out, "Stock status recalculated for 22 items") {
		t.Errorf("recalc output = %q", out)
	}

	out = runCLI(t, dbPath, "report", "valuation")
	if !strings.Contains(out, "TOTAL") || !strings.Contains(out, "Blue Ballpoint Pens") {
		t.Errorf("valuation output = %q", out)
	}

	out = runCLI(t, dbPath, "report", "low-stock")
	if strings.Contains(out, "Blue Ballpoint Pens") {
		t.Errorf("pens should not be low on stock: %q", out)
	}
}

func TestUnknownLogLevel(t *testing.T) {
	dbPath := setupCLI(t)

	cmd := newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--db", dbPath, "--log-level", "loud", "version"})
	if err := cmd.Execute(); err == nil {
		t.Error("expected error for unknown log level")
	}
}
