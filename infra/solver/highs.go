package solver

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	coresolver "github.com/kilianp07/dessplan/core/solver"
)

// HighsSolver runs the HiGHS command line solver on the LP text.
type HighsSolver struct {
	Binary    string
	TimeLimit time.Duration
	Threads   int
}

// Solve writes the model to a temporary directory, runs the binary and
// reads back its raw solution file.
func (h HighsSolver) Solve(ctx context.Context, text string) (coresolver.Result, error) {
	dir, err := os.MkdirTemp("", "dessplan-highs-")
	if err != nil {
		return coresolver.Result{}, fmt.Errorf("highs: %w", err)
	}
	defer os.RemoveAll(dir)

	modelPath := filepath.Join(dir, "model.lp")
	solPath := filepath.Join(dir, "model.sol")
	if err := os.WriteFile(modelPath, []byte(text), 0o600); err != nil {
		return coresolver.Result{}, fmt.Errorf("highs: write model: %w", err)
	}

	bin := h.Binary
	if bin == "" {
		bin = "highs"
	}
	args := []string{"--model_file", modelPath, "--solution_file", solPath}
	if h.TimeLimit > 0 {
		args = append(args, "--time_limit", strconv.FormatFloat(h.TimeLimit.Seconds(), 'f', -1, 64))
	}
	if h.Threads > 0 {
		args = append(args, "--threads", strconv.Itoa(h.Threads))
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return coresolver.Result{}, ctx.Err()
		}
		return coresolver.Result{}, fmt.Errorf("highs: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	f, err := os.Open(solPath)
	if err != nil {
		return coresolver.Result{}, fmt.Errorf("highs: read solution: %w", err)
	}
	defer f.Close()
	return ParseHighsSolution(f)
}

// ParseHighsSolution reads a HiGHS raw solution file: the model status,
// the primal objective and the "# Columns" block of name/value pairs.
func ParseHighsSolution(r io.Reader) (coresolver.Result, error) {
	var res coresolver.Result
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	var (
		wantStatus bool
		remaining  = -1
		cols       coresolver.ColumnList
		line       int
	)
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		switch {
		case remaining > 0:
			fields := strings.Fields(text)
			if len(fields) < 2 {
				return res, fmt.Errorf("highs: line %d: malformed column %q", line, text)
			}
			v, err := strconv.ParseFloat(fields[len(fields)-1], 64)
			if err != nil {
				return res, fmt.Errorf("highs: line %d: %w", line, err)
			}
			cols = append(cols, coresolver.Column{Name: fields[0], Value: v})
			remaining--
			if remaining == 0 {
				res.Columns = cols
				return res, nil
			}
		case text == "":
		case text == "Model status":
			wantStatus = true
		case wantStatus:
			res.Status = coresolver.Status(text)
			wantStatus = false
		case strings.HasPrefix(text, "Objective"):
			fields := strings.Fields(text)
			if len(fields) == 2 {
				if v, err := strconv.ParseFloat(fields[1], 64); err == nil {
					res.ObjectiveValue = v
				}
			}
		case strings.HasPrefix(text, "# Columns"):
			n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(text, "# Columns")))
			if err != nil {
				return res, fmt.Errorf("highs: line %d: %w", line, err)
			}
			if n == 0 {
				res.Columns = coresolver.ColumnList{}
				return res, nil
			}
			remaining = n
		}
	}
	if err := sc.Err(); err != nil {
		return res, fmt.Errorf("highs: %w", err)
	}
	if remaining > 0 {
		return res, fmt.Errorf("highs: solution truncated, %d columns missing", remaining)
	}
	if res.Status == "" {
		return res, fmt.Errorf("highs: no model status in solution")
	}
	return res, nil
}
