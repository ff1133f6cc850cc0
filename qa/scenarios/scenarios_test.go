package scenarios

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kilianp07/dessplan/core/strategy"
)

func TestScenario(t *testing.T) {
	files, err := filepath.Glob("*.yaml")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("no scenario files")
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

func TestLoadDecodesCodes(t *testing.T) {
	sc, err := Load("cheap_grid_charge.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if len(sc.Expected.Decisions) != 2 {
		t.Fatalf("expected 2 decisions, got %d", len(sc.Expected.Decisions))
	}
	d := sc.Expected.Decisions[0]
	if d.Strategy == nil || *d.Strategy != strategy.StrategyProBattery {
		t.Fatalf("unexpected strategy %v", d.Strategy)
	}
	if d.Restrictions == nil || *d.Restrictions != strategy.RestrictBatteryToGrid {
		t.Fatalf("unexpected restrictions %v", d.Restrictions)
	}
}

func TestExpectedDecisionCheck(t *testing.T) {
	blocked := strategy.FeedInBlocked
	exp := ExpectedDecision{FeedIn: &blocked}
	if diffs := exp.Check(strategy.Decision{Strategy: strategy.StrategyProGrid, FeedIn: strategy.FeedInBlocked}); len(diffs) != 0 {
		t.Fatalf("unexpected diffs %v", diffs)
	}
	if diffs := exp.Check(strategy.Decision{FeedIn: strategy.FeedInAllowed}); len(diffs) != 1 {
		t.Fatalf("expected one diff, got %v", diffs)
	}
}

func TestLoadInvalid(t *testing.T) {
	if _, err := Load("no-file.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte(":"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); err == nil {
		t.Fatal("expected unmarshal error")
	}
	unnamed := filepath.Join(dir, "unnamed.yaml")
	if err := os.WriteFile(unnamed, []byte("plan: {}\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(unnamed); err == nil {
		t.Fatal("expected missing name error")
	}
}

func TestScenarioConfigErrors(t *testing.T) {
	sc := &Scenario{Name: "bad", Plan: map[string]any{"terminal_valuation": "bogus"}}
	if _, err := sc.Config(); err == nil {
		t.Fatal("expected plan error")
	}
	sc = &Scenario{Name: "bad", Plan: map[string]any{"battery_capacity_wh": 1000}}
	if _, err := sc.Config(); err == nil {
		t.Fatal("expected inputs error")
	}
}
