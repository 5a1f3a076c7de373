package scenarios

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/laddvakt/laddvakt/core/model"
)

func TestScenarios(t *testing.T) {
	files, err := filepath.Glob("*.yaml")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("no scenario files found")
	}
	for _, f := range files {
		sc, err := Load(f)
		if err != nil {
			t.Fatalf("load %s: %v", f, err)
		}
		t.Run(sc.Name, func(t *testing.T) {
			RunScenario(t, sc)
		})
	}
}

func TestParseMode(t *testing.T) {
	cases := map[string]model.OperatingMode{
		"disconnected":      model.ModeDisconnected,
		"connected_waiting": model.ModeConnectedWaiting,
		"charging":          model.ModeCharging,
		"charge_done":       model.ModeChargeDone,
		"bogus":             model.ModeUnknown,
	}
	for s, want := range cases {
		if got := parseMode(s); got != want {
			t.Errorf("parseMode(%q) = %v, want %v", s, got, want)
		}
	}
}

func TestLoadInvalid(t *testing.T) {
	if _, err := Load("no-file.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("{\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); err == nil {
		t.Fatal("expected unmarshal error")
	}
}
