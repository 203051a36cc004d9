package buildsys

import (
	"testing"
	"time"
)

func TestWriteAndReadReceipt(t *testing.T) {
	cfg := NewConfig([]OptionSpec{{Name: "sharedlibs", Default: true}})
	cfg.SourceDir = "/src/atlas"
	cfg.InstallDir = t.TempDir()
	cfg.AddConfigOpt(Flag{Opt: "-b", Args: []string{"64"}})

	before := time.Now().Add(-time.Second)
	if err := WriteReceipt(cfg, "atlas", "3.10.3"); err != nil {
		t.Fatalf("WriteReceipt: %v", err)
	}

	r, err := ReadReceipt(cfg.InstallDir)
	if err != nil {
		t.Fatalf("ReadReceipt: %v", err)
	}
	if r.Package != "atlas" || r.Version != "3.10.3" {
		t.Errorf("receipt = %s@%s, want atlas@3.10.3", r.Package, r.Version)
	}
	if !r.Options["sharedlibs"] {
		t.Errorf("Options = %v, want sharedlibs true", r.Options)
	}
	if want := ConfigureCommand(cfg); r.Configure != want {
		t.Errorf("Configure = %q, want %q", r.Configure, want)
	}
	if r.BuildTime.Before(before) {
		t.Errorf("BuildTime = %v, want recent", r.BuildTime)
	}
}

func TestReadReceiptMissing(t *testing.T) {
	if _, err := ReadReceipt(t.TempDir()); err == nil {
		t.Fatal("expected error for missing receipt")
	}
}
