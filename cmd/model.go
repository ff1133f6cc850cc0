package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/dessplan/config"
	"github.com/kilianp07/dessplan/core/inputs"
	"github.com/kilianp07/dessplan/core/lpmodel"
)

var modelCmd = &cobra.Command{
	Use:   "model",
	Short: "Print the LP model for the configured horizon",
	RunE:  runModel,
}

func init() {
	rootCmd.AddCommand(modelCmd)
}

func runModel(cmd *cobra.Command, args []string) error {
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
	run, err := in.Config(params)
	if err != nil {
		return err
	}
	text, err := lpmodel.Build(run.Series, run.Params.Normalize())
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), text)
	return err
}
