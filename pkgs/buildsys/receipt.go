package buildsys

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

const receiptFile = ".receipt.json"

// Receipt records what a finished build installed. It is written into the
// install prefix after verification succeeds and is informational only;
// nothing reads it back to decide whether to rebuild.
type Receipt struct {
	Package   string          `json:"package"`
	Version   string          `json:"version"`
	Options   map[string]bool `json:"options"`
	Configure string          `json:"configure"`
	BuildTime time.Time       `json:"build_time"`
}

// WriteReceipt stores the build receipt for cfg in its install prefix.
func WriteReceipt(cfg *Config, pkg, version string) error {
	r := Receipt{
		Package:   pkg,
		Version:   version,
		Options:   cfg.Options(),
		Configure: ConfigureCommand(cfg),
		BuildTime: time.Now(),
	}
	data, err := json.MarshalIndent(&r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(cfg.InstallDir, receiptFile), data, 0o644)
}

// ReadReceipt loads the receipt previously written to installDir.
func ReadReceipt(installDir string) (*Receipt, error) {
	data, err := os.ReadFile(filepath.Join(installDir, receiptFile))
	if err != nil {
		return nil, err
	}
	var r Receipt
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
