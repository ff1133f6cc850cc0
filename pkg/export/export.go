// Package export writes a planned schedule in formats meant for other tools.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/kilianp07/dessplan/core/model"
	"github.com/kilianp07/dessplan/core/strategy"
)

// Row joins a slot's decision with the flows it was derived from.
type Row struct {
	Start        time.Time             `json:"start"`
	Duration     time.Duration         `json:"duration"`
	Strategy     strategy.Strategy     `json:"strategy"`
	Restrictions strategy.Restrictions `json:"restrictions"`
	FeedIn       strategy.FeedIn       `json:"feed_in"`
	SoCTargetWh  float64               `json:"soc_target_wh"`
	GridImportW  float64               `json:"grid_import_w"`
	GridExportW  float64               `json:"grid_export_w"`
}

// Rows pairs flows and decisions by slot index.
func Rows(flows []model.SolvedFlow, decisions []strategy.Decision) ([]Row, error) {
	if len(flows) != len(decisions) {
		return nil, fmt.Errorf("export: %d flows for %d decisions", len(flows), len(decisions))
	}
	rows := make([]Row, len(decisions))
	for i, d := range decisions {
		rows[i] = Row{
			Start:        d.Start,
			Duration:     d.Duration,
			Strategy:     d.Strategy,
			Restrictions: d.Restrictions,
			FeedIn:       d.FeedIn,
			SoCTargetWh:  d.SoCTargetWh,
			GridImportW:  flows[i].GridImport,
			GridExportW:  flows[i].GridExport,
		}
	}
	return rows, nil
}

// WriteJSON writes the rows to w in JSON format.
func WriteJSON(w io.Writer, rows []Row) error {
	enc := json.NewEncoder(w)
	return enc.Encode(rows)
}

// WriteCSV writes the rows to w in CSV format. Codes are written as their
// numeric values so the file can be loaded by a controller directly.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	header := []string{"start", "duration_s", "strategy", "restrictions", "feed_in", "soc_target_wh", "grid_import_w", "grid_export_w"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.Start.Format(time.RFC3339),
			strconv.FormatInt(int64(r.Duration/time.Second), 10),
			strconv.Itoa(int(r.Strategy)),
			strconv.Itoa(int(r.Restrictions)),
			strconv.Itoa(int(r.FeedIn)),
			strconv.FormatFloat(r.SoCTargetWh, 'f', -1, 64),
			strconv.FormatFloat(r.GridImportW, 'f', -1, 64),
			strconv.FormatFloat(r.GridExportW, 'f', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
