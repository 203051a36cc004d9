package buildspec

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hpcforge/atlasbuild/pkgs/buildsys"
)

var recognized = []buildsys.OptionSpec{
	{Name: "ignorethrottling", Default: false},
	{Name: "full_lapack", Default: false},
	{Name: "sharedlibs", Default: true},
}

func writeSpec(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "atlas.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParse(t *testing.T) {
	path := writeSpec(t, `package: atlas
version: 3.10.3
prefix: /opt/atlas
jobs: 4
runtest: check
options:
  full_lapack: true
  sharedlibs: false
`)
	f, err := Parse(path, recognized)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if f.Package != "atlas" || f.Version != "3.10.3" || f.Prefix != "/opt/atlas" {
		t.Errorf("parsed %+v", f)
	}
	if f.Jobs != 4 || f.RunTest != "check" {
		t.Errorf("jobs/runtest = %d/%q, want 4/check", f.Jobs, f.RunTest)
	}
	if !f.Options["full_lapack"] || f.Options["sharedlibs"] {
		t.Errorf("options = %v", f.Options)
	}
}

func TestParseMinimal(t *testing.T) {
	f, err := Parse(writeSpec(t, "package: atlas\n"), recognized)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if f.Version != "" || len(f.Options) != 0 {
		t.Errorf("parsed %+v, want empty defaults", f)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"missing package", "version: 3.10.3\n", "package is required"},
		{"unknown option", "package: atlas\noptions:\n  fastmath: true\n", `unknown build option "fastmath"`},
		{"unknown top-level key", "package: atlas\nparallel: 8\n", "parallel"},
		{"bad version", "package: atlas\nversion: not-a-version\n", "invalid version"},
		{"negative jobs", "package: atlas\njobs: -1\n", "jobs"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(writeSpec(t, tt.content), recognized)
			if err == nil {
				t.Fatal("Parse succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestParseMissingFile(t *testing.T) {
	if _, err := Parse(filepath.Join(t.TempDir(), "nope.yaml"), recognized); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestCanonicalVersion(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"3.10.3", "v3.10.3", false},
		{"v3.11.41", "v3.11.41", false},
		{"3.8.0", "v3.8.0", false},
		{"3.10", "v3.10.0", false},
		{"", "", true},
		{"not-a-version", "", true},
		{"3.7.9", "", true}, // older than MinVersion
	}
	for _, tt := range tests {
		got, err := CanonicalVersion(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("CanonicalVersion(%q) = %q, want error", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("CanonicalVersion(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("CanonicalVersion(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
