package config

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lateralusd/machpatch"
	"github.com/lateralusd/machpatch/internal/macho"
)

func newFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("library", "", "")
	fs.String("cpu", "", "")
	fs.String("platform", "", "")
	fs.String("output-dir", "", "")
	fs.String("log-level", "", "")
	fs.BoolP("verbose", "v", false, "")
	return fs
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, DefaultConfigFile)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
	assert.Equal(t, machpatch.DefaultLibrary, cfg.Library)

	cpu, err := cfg.CPUType()
	require.NoError(t, err)
	assert.Equal(t, macho.CPU_TYPE_ARM64, cpu)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeConfig(t, dir, `
library: /usr/lib/libSystem.B.dylib
cpu: x86_64
platform: macos
output_dir: /tmp/from-file
`)
	t.Setenv("MACHPATCH_PLATFORM", "tvos")
	t.Setenv("MACHPATCH_OUTPUT_DIR", "/tmp/from-env")

	flags := newFlags()
	require.NoError(t, flags.Parse([]string{"--output-dir", "/tmp/from-flag"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)

	assert.Equal(t, "/usr/lib/libSystem.B.dylib", cfg.Library, "file over default")
	assert.Equal(t, "x86_64", cfg.CPU)
	assert.Equal(t, "tvos", cfg.Platform, "env over file")
	assert.Equal(t, "/tmp/from-flag", cfg.OutputDir, "flag over env")
}

func TestLoadUnsetFlagsDoNotOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("MACHPATCH_CPU", "x86_64")

	flags := newFlags()
	require.NoError(t, flags.Parse(nil))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, "x86_64", cfg.CPU)
}

func TestLoadExplicitFile(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeConfig(t, t.TempDir(), "addr: 127.0.0.1:9000\nhistory_file: /tmp/hist\n")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Addr)
	assert.Equal(t, "/tmp/hist", cfg.HistoryFile)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		explicit  string
		errSubstr string
	}{
		{name: "missing explicit file", explicit: "nope.yaml", errSubstr: "error reading config file"},
		{name: "bad yaml", content: "cpu: [unterminated", errSubstr: "error reading config file"},
		{name: "unknown cpu", content: "cpu: sparc", errSubstr: "unknown cpu type"},
		{name: "unknown platform", content: "platform: amiga", errSubstr: "unknown platform"},
		{name: "bad log level", content: "log_level: loud", errSubstr: "invalid log level"},
		{name: "empty library", content: "library: \"\"", errSubstr: "library must not be empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			t.Chdir(dir)
			if tt.content != "" {
				writeConfig(t, dir, tt.content)
			}
			_, err := Load(tt.explicit, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestLevel(t *testing.T) {
	tests := []struct {
		level   string
		verbose bool
		want    slog.Level
	}{
		{"info", false, slog.LevelInfo},
		{"debug", false, slog.LevelDebug},
		{"WARN", false, slog.LevelWarn},
		{"error", false, slog.LevelError},
		{"error", true, slog.LevelDebug},
	}
	for _, tt := range tests {
		cfg := &Config{LogLevel: tt.level, Verbose: tt.verbose}
		got, err := cfg.Level()
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s verbose=%v", tt.level, tt.verbose)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&Config{LogLevel: "warn"}, &buf)
	log.Info("hidden")
	log.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestContext(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, Defaults(), FromContext(ctx))
	assert.NotNil(t, GetLogger(ctx))

	cfg := &Config{CPU: "arm"}
	log := slog.New(slog.DiscardHandler)
	ctx = WithLogger(WithConfig(ctx, cfg), log)
	assert.Same(t, cfg, FromContext(ctx))
	assert.Same(t, log, GetLogger(ctx))
}

func TestLoadExpandsHome(t *testing.T) {
	t.Chdir(t.TempDir())
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("MACHPATCH_HISTORY_FILE", "~/.machpatch_history")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".machpatch_history"), cfg.HistoryFile)
	assert.Equal(t, ".", cfg.OutputDir)
}
