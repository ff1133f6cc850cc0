package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kilianp07/dessplan/app"
	"github.com/kilianp07/dessplan/config"
	"github.com/kilianp07/dessplan/core/model"
	"github.com/kilianp07/dessplan/core/planner"
	"github.com/kilianp07/dessplan/core/solver"
	"github.com/kilianp07/dessplan/core/strategy"
	"github.com/kilianp07/dessplan/infra/logger"
	"github.com/kilianp07/dessplan/pkg/export"
)

var (
	planPublish bool
	planJSON    bool
	planCSV     bool
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Run the optimisation once and print the schedule",
	RunE:  runPlan,
}

func init() {
	planCmd.Flags().BoolVar(&planPublish, "publish", false, "publish the schedule over MQTT")
	planCmd.Flags().BoolVar(&planJSON, "json", false, "print the result as JSON")
	planCmd.Flags().BoolVar(&planCSV, "csv", false, "print the schedule as CSV")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	opts := app.Options{InputsPath: inputsPath}
	if cmd.Flags().Changed("publish") {
		opts.Publish = &planPublish
	}
	svc, err := app.New(cfg, opts)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("plan-command").Errorf("service close: %v", err)
		}
	}()

	res, err := svc.PlanOnce(ctx)
	if err != nil {
		return err
	}
	if planJSON {
		return writeJSON(cmd.OutOrStdout(), res)
	}
	if planCSV {
		return writeCSV(cmd.OutOrStdout(), res.Flows, res.Decisions)
	}
	out := cmd.OutOrStdout()
	if err := writeTable(out, res.Status, res.ObjectiveValue, res.Flows, res.Decisions); err != nil {
		return err
	}
	writeSummary(out, res)
	return nil
}

func writeCSV(w io.Writer, flows []model.SolvedFlow, decisions []strategy.Decision) error {
	rows, err := export.Rows(flows, decisions)
	if err != nil {
		return err
	}
	return export.WriteCSV(w, rows)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeTable prints one line per slot followed by the solver status.
func writeTable(w io.Writer, status solver.Status, objective float64, flows []model.SolvedFlow, decisions []strategy.Decision) error {
	if !status.IsOptimal() {
		fmt.Fprintf(w, "WARNING: solver status %q, the schedule may not be usable\n", status)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SLOT\tSTART\tLOAD_W\tPV_W\tIMPORT_W\tEXPORT_W\tSOC_%\tSTRATEGY\tRESTRICTIONS\tFEED_IN")
	for i, f := range flows {
		if i >= len(decisions) {
			break
		}
		d := decisions[i]
		fmt.Fprintf(tw, "%d\t%s\t%.0f\t%.0f\t%.0f\t%.0f\t%.1f\t%s\t%s\t%s\n",
			f.Slot, f.Time.Format("2006-01-02 15:04"), f.LoadW, f.PVW, f.GridImport, f.GridExport,
			f.SoCPercent, d.Strategy, d.Restrictions, d.FeedIn)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "status: %s  objective: %.4f\n", status, objective)
	return nil
}

func writeSummary(w io.Writer, res planner.Result) {
	fmt.Fprintf(w, "run: %s  import: %s Wh  export: %s Wh  net cost: %s c\n",
		res.RunID, res.Summary.ImportWh, res.Summary.ExportWh, res.Summary.NetCostCents)
	if res.MessageID != "" {
		fmt.Fprintf(w, "schedule published: %s (acknowledged: %t)\n", res.MessageID, res.Acknowledged)
	}
}
