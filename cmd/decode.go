package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kilianp07/dessplan/config"
	"github.com/kilianp07/dessplan/core/decoder"
	"github.com/kilianp07/dessplan/core/inputs"
	"github.com/kilianp07/dessplan/core/model"
	"github.com/kilianp07/dessplan/core/solver"
	"github.com/kilianp07/dessplan/core/strategy"
)

var (
	solutionPath string
	decodeJSON   bool
	decodeCSV    bool
)

var decodeCmd = &cobra.Command{
	Use:   "decode",
	Short: "Decode an external solver's JSON output into a schedule",
	RunE:  runDecode,
}

func init() {
	decodeCmd.Flags().StringVarP(&solutionPath, "solution", "s", "solution.json", "solver output in JSON")
	decodeCmd.Flags().BoolVar(&decodeJSON, "json", false, "print the result as JSON")
	decodeCmd.Flags().BoolVar(&decodeCSV, "csv", false, "print the schedule as CSV")
	rootCmd.AddCommand(decodeCmd)
}

func runDecode(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	params, err := cfg.Plan.Params()
	if err != nil {
		return err
	}
	in, err := inputs.LoadInputs(inputsPath)
	if err != nil {
		return fmt.Errorf("load inputs: %w", err)
	}
	data, err := os.ReadFile(solutionPath)
	if err != nil {
		return err
	}
	res, err := solver.DecodeJSON(data)
	if err != nil {
		return fmt.Errorf("solution: %w", err)
	}

	run, err := in.Config(params)
	if err != nil {
		return err
	}
	flows, err := decoder.Decode(res, run)
	if err != nil {
		return err
	}
	plan := strategy.Map(flows, run.Params.Normalize())
	if decodeJSON {
		return writeJSON(cmd.OutOrStdout(), struct {
			Status         solver.Status        `json:"status"`
			ObjectiveValue float64              `json:"objective_value"`
			Flows          []model.SolvedFlow   `json:"flows"`
			Decisions      []strategy.Decision  `json:"decisions"`
			Diagnostics    strategy.Diagnostics `json:"diagnostics"`
		}{res.Status, res.ObjectiveValue, flows, plan.Decisions, plan.Diagnostics})
	}
	if decodeCSV {
		return writeCSV(cmd.OutOrStdout(), flows, plan.Decisions)
	}
	return writeTable(cmd.OutOrStdout(), res.Status, res.ObjectiveValue, flows, plan.Decisions)
}
