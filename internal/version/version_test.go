// ABOUTME: Tests for version constants
// ABOUTME: Ensures version information is properly defined
package version

import (
	"regexp"
	"strings"
	"testing"
)

func TestConstantsDefined(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"Version", Version},
		{"Product", Product},
		{"Manufacturer", Manufacturer},
	}

	placeholders := []string{"TODO", "FIXME", "XXX", "placeholder"}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value == "" {
				t.Errorf("%s should not be empty", tt.name)
			}
			if len(tt.value) > 100 {
				t.Errorf("%s is unreasonably long", tt.name)
			}
			for _, p := range placeholders {
				if tt.value == p {
					t.Errorf("%s should not be placeholder value: %s", tt.name, p)
				}
			}
		})
	}
}

func TestVersionIsSemver(t *testing.T) {
	if !regexp.MustCompile(`^\d+\.\d+\.\d+$`).MatchString(Version) {
		t.Errorf("expected a semantic version, got %q", Version)
	}
}

func TestString(t *testing.T) {
	s := String()
	if !strings.HasPrefix(s, Product) || !strings.HasSuffix(s, Version) {
		t.Errorf("expected %q to name product and version", s)
	}
}
