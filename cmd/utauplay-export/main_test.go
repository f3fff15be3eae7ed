// ABOUTME: Tests for the batch exporter command
// ABOUTME: Covers usage errors and exit codes for failed exports
package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunExitCodes(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "prefs.yaml")
	missing := filepath.Join(dir, "missing.yaml")

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"no projects", []string{"-config", configPath}, 2},
		{"unknown flag", []string{"-bogus"}, 2},
		{"out with several projects", []string{"-config", configPath, "-out", "x.wav", "a.yaml", "b.yaml"}, 2},
		{"missing project", []string{"-config", configPath, "-log-file", filepath.Join(dir, "export.log"), missing}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if got := run(tt.args, &stdout, &stderr); got != tt.want {
				t.Errorf("Expected exit code %d, got %d (stderr %q)", tt.want, got, stderr.String())
			}
			if stdout.Len() != 0 {
				t.Errorf("Expected no exported paths, got %q", stdout.String())
			}
		})
	}
}

func TestRunUsage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	run(nil, &stdout, &stderr)
	if !strings.Contains(stderr.String(), "usage: utauplay-export") {
		t.Errorf("Expected usage on stderr, got %q", stderr.String())
	}
}
