package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mediascan/internal/config"
	"mediascan/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
}

func setupCLITestEnv(t *testing.T, kinds ...string) *cliTestEnv {
	t.Helper()

	t.Setenv("MEDIASCAN_LIBRARY_DIR", "")
	if len(kinds) == 0 {
		kinds = []string{"fingerprint"}
	}
	cfg := testsupport.NewConfig(t, testsupport.WithKinds(kinds...), testsupport.WithBatchSize(4))
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	quoted := make([]string, len(cfg.Analysis.Kinds))
	for i, kind := range cfg.Analysis.Kinds {
		quoted[i] = fmt.Sprintf("%q", kind)
	}
	content := fmt.Sprintf(
		"[paths]\nlibrary_dir = %q\ndata_dir = %q\n\n[analysis]\nbatch_size = %d\nnice = 0\nkinds = [%s]\n\n[logging]\nformat = \"json\"\nlevel = \"warn\"\n",
		cfg.Paths.LibraryDir,
		cfg.Paths.DataDir,
		cfg.Analysis.BatchSize,
		strings.Join(quoted, ", "),
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
