package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testConfig = `plan:
  battery_capacity_wh: 10000
  min_soc_percent: 10
  max_soc_percent: 90
  initial_soc_percent: 10
  max_charge_w: 3000
  max_discharge_w: 3000
  max_grid_import_w: 10000
  max_grid_export_w: 10000
  wear_cost_cents_per_kwh: 1
logging:
  backend: none
`

const testInputs = `start: "2024-05-01T00:00:00Z"
slot_minutes: 15
load_w: [500]
pv_w: [0]
import_price: [10]
export_price: [5]
`

func setup(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	c := filepath.Join(dir, "config.yaml")
	i := filepath.Join(dir, "inputs.yaml")
	if err := os.WriteFile(c, []byte(testConfig), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := os.WriteFile(i, []byte(testInputs), 0o600); err != nil {
		t.Fatalf("write inputs: %v", err)
	}
	return c, i
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("execute %v: %v", args, err)
	}
	return out.String()
}

func TestModelCommand(t *testing.T) {
	c, i := setup(t)
	out := execute(t, "model", "-c", c, "-i", i)
	for _, want := range []string{"Minimize", "Subject To", "Bounds", "End", "grid_to_load_0"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in model output", want)
		}
	}
}

func TestDecodeCommand(t *testing.T) {
	c, i := setup(t)
	sol := filepath.Join(t.TempDir(), "solution.json")
	data := `{"Status":"Optimal","ObjectiveValue":1.25,"Columns":{"grid_to_load_0":{"Primal":500},"soc_0":{"Primal":1000}}}`
	if err := os.WriteFile(sol, []byte(data), 0o600); err != nil {
		t.Fatalf("write solution: %v", err)
	}
	out := execute(t, "decode", "-c", c, "-i", i, "-s", sol)
	if !strings.Contains(out, "self_consumption") || !strings.Contains(out, "both_blocked") {
		t.Fatalf("unexpected decode output:\n%s", out)
	}
	if !strings.Contains(out, "status: Optimal") {
		t.Fatalf("missing status line:\n%s", out)
	}
}

func TestPlanCommandJSON(t *testing.T) {
	c, i := setup(t)
	out := execute(t, "plan", "-c", c, "-i", i, "--json")
	if !strings.Contains(out, `"status": "Optimal"`) {
		t.Fatalf("unexpected plan output:\n%s", out)
	}
	planJSON = false
}

func TestDecodeCommandCSV(t *testing.T) {
	c, i := setup(t)
	sol := filepath.Join(t.TempDir(), "solution.json")
	data := `{"status":"Optimal","columns":[{"name":"grid_to_load_0","value":500},{"name":"soc_0","value":1000}]}`
	if err := os.WriteFile(sol, []byte(data), 0o600); err != nil {
		t.Fatalf("write solution: %v", err)
	}
	out := execute(t, "decode", "-c", c, "-i", i, "-s", sol, "--csv")
	decodeCSV = false
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header and one row, got:\n%s", out)
	}
	if !strings.HasPrefix(lines[1], "2024-05-01T00:00:00Z,900,1,3,1,") {
		t.Fatalf("unexpected row %q", lines[1])
	}
}
