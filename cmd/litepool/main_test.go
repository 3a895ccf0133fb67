package main

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "litepool.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file %s: %v", path, err)
	}
	return path
}

// runOK runs the command and fails the test on error. It returns stdout.
func runOK(t *testing.T, args ...string) string {
	t.Helper()
	var stdout bytes.Buffer
	if err := run(args, &stdout, io.Discard); err != nil {
		t.Fatalf("run(%q) failed: %v", args, err)
	}
	return stdout.String()
}

func TestRun_Errors(t *testing.T) {
	testCases := []struct {
		name        string
		setup       func(t *testing.T, dir string) []string
		expectedErr error
	}{
		{
			name:        "MissingCommand",
			setup:       func(t *testing.T, dir string) []string { return nil },
			expectedErr: ErrMissingCommand,
		},
		{
			name: "UnknownCommand",
			setup: func(t *testing.T, dir string) []string {
				return []string{"--db", filepath.Join(dir, "test.db"), "nonexistent"}
			},
			expectedErr: ErrUnknownCommand,
		},
		{
			name:        "InvalidGlobalFlag",
			setup:       func(t *testing.T, dir string) []string { return []string{"--nope", "exec"} },
			expectedErr: ErrInvalidFlag,
		},
		{
			name: "InvalidCommandFlag",
			setup: func(t *testing.T, dir string) []string {
				return []string{"--db", filepath.Join(dir, "test.db"), "query", "--nope", "SELECT 1"}
			},
			expectedErr: ErrInvalidFlag,
		},
		{
			name: "InvalidLogLevel",
			setup: func(t *testing.T, dir string) []string {
				return []string{"--log-level", "loud", "--db", filepath.Join(dir, "test.db"), "exec", "SELECT 1"}
			},
			expectedErr: ErrInvalidFlag,
		},
		{
			name: "ExecMissingSQL",
			setup: func(t *testing.T, dir string) []string {
				return []string{"--db", filepath.Join(dir, "test.db"), "exec"}
			},
			expectedErr: ErrMissingArgument,
		},
		{
			name: "BenchTakesNoArguments",
			setup: func(t *testing.T, dir string) []string {
				return []string{"--db", filepath.Join(dir, "test.db"), "bench", "extra"}
			},
			expectedErr: ErrTooManyArguments,
		},
		{
			name: "BenchInvalidWritePercent",
			setup: func(t *testing.T, dir string) []string {
				return []string{"--db", filepath.Join(dir, "test.db"), "bench", "--write-percent", "101"}
			},
			expectedErr: ErrInvalidFlag,
		},
		{
			name: "MissingConfigFile",
			setup: func(t *testing.T, dir string) []string {
				return []string{"--config", filepath.Join(dir, "missing.toml"), "exec", "SELECT 1"}
			},
			expectedErr: ErrLoadConfig,
		},
		{
			name: "UnknownConfigKey",
			setup: func(t *testing.T, dir string) []string {
				path := writeConfig(t, dir, "[db]\nflavour = \"mint\"\n")
				return []string{"--config", path, "exec", "SELECT 1"}
			},
			expectedErr: ErrLoadConfig,
		},
		{
			name: "UnknownHelpTopic",
			setup: func(t *testing.T, dir string) []string {
				return []string{"help", "nonexistent"}
			},
			expectedErr: ErrUnknownHelpTopic,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			args := tc.setup(t, t.TempDir())
			err := run(args, io.Discard, io.Discard)
			if !errors.Is(err, tc.expectedErr) {
				t.Errorf("expected error %v, got %v", tc.expectedErr, err)
			}
		})
	}
}

func TestRun_ExecAndQuery(t *testing.T) {
	drivers := []string{"zombiezen", "crawshaw"}
	for _, driver := range drivers {
		t.Run(driver, func(t *testing.T) {
			dir := t.TempDir()
			cfgPath := writeConfig(t, dir, "[db]\ndriver = \""+driver+"\"\n\n[pool]\ntopology = \"multi\"\nreaders = 2\n")
			dbPath := filepath.Join(dir, "test.db")
			global := []string{"--config", cfgPath, "--db", dbPath}

			runOK(t, append(global, "exec", "CREATE TABLE kv (k TEXT PRIMARY KEY, v TEXT, b BLOB)")...)
			out := runOK(t, append(global, "exec", "INSERT INTO kv (k, v) VALUES (?, ?)", "color", "blue")...)
			if !strings.Contains(out, "1 row(s) changed") {
				t.Errorf("exec output = %q", out)
			}
			runOK(t, append(global, "exec", "INSERT INTO kv (k, v, b) VALUES ('shape', NULL, x'cafe')")...)

			out = runOK(t, append(global, "query", "SELECT k, v, b FROM kv ORDER BY k")...)
			lines := strings.Split(strings.TrimSpace(out), "\n")
			if len(lines) != 3 {
				t.Fatalf("expected header and 2 rows, got %q", out)
			}
			if fields := strings.Fields(lines[0]); strings.Join(fields, ",") != "k,v,b" {
				t.Errorf("header = %q", lines[0])
			}
			if fields := strings.Fields(lines[1]); strings.Join(fields, ",") != "color,blue,NULL" {
				t.Errorf("row 1 = %q", lines[1])
			}
			if fields := strings.Fields(lines[2]); strings.Join(fields, ",") != "shape,NULL,x'cafe'" {
				t.Errorf("row 2 = %q", lines[2])
			}

			out = runOK(t, append(global, "query", "--no-header", "SELECT v FROM kv WHERE k = ?", "color")...)
			if strings.TrimSpace(out) != "blue" {
				t.Errorf("query --no-header output = %q", out)
			}
		})
	}
}

func TestRun_BatchLogPersistsRecords(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, `
[log.batch]
enabled = true
level = "info"
flush_interval = "50ms"
`)
	global := []string{"--config", cfgPath, "--db", filepath.Join(dir, "test.db")}

	runOK(t, append(global, "exec", "CREATE TABLE t (x INTEGER)")...)

	out := runOK(t, append(global, "query", "--no-header",
		"SELECT message, data FROM logs WHERE message = ?", "statement executed")...)
	if !strings.Contains(out, "statement executed") || !strings.Contains(out, `"changes":0`) {
		t.Errorf("expected the exec log record in the logs table, got %q", out)
	}
}

func TestRun_Bench(t *testing.T) {
	dir := t.TempDir()
	out := runOK(t, "--db", filepath.Join(dir, "bench.db"), "bench",
		"--workers", "4", "--ops", "50", "--write-percent", "20")

	expected := []string{
		"bench: 4 workers, 200 ops (80 writes, 120 reads)",
		"topology:",
		"writer: capacity=1",
		"top statements:",
		benchSelect,
	}
	for _, sub := range expected {
		if !strings.Contains(out, sub) {
			t.Errorf("expected output to contain %q, got:\n%s", sub, out)
		}
	}

	count := runOK(t, "--db", filepath.Join(dir, "bench.db"), "query", "--no-header", "SELECT count(*) FROM bench_items")
	if strings.TrimSpace(count) != "80" {
		t.Errorf("bench_items count = %q, want 80", count)
	}
}

func TestRun_Help(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if err := run([]string{"help"}, &stdout, &stderr); err != nil {
		t.Fatalf("help failed: %v", err)
	}
	for _, sub := range []string{"exec", "query", "bench", "serve", "--config", "--db", "--log-level"} {
		if !strings.Contains(stderr.String(), sub) {
			t.Errorf("global usage missing %q:\n%s", sub, stderr.String())
		}
	}

	stdout.Reset()
	if err := run([]string{"help", "bench"}, &stdout, io.Discard); err != nil {
		t.Fatalf("help bench failed: %v", err)
	}
	for _, sub := range []string{"litepool bench [options]", "--workers", "--write-percent"} {
		if !strings.Contains(stdout.String(), sub) {
			t.Errorf("bench help missing %q:\n%s", sub, stdout.String())
		}
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	cfg, err := loadConfig("", "other.db", "debug")
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Db.Path != "other.db" {
		t.Errorf("Db.Path = %q, want other.db", cfg.Db.Path)
	}
	if cfg.Log.Level.String() != "DEBUG" {
		t.Errorf("Log.Level = %v, want DEBUG", cfg.Log.Level)
	}
}
