package solver

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnsupportedShape is returned when solver output cannot be recognised.
var ErrUnsupportedShape = errors.New("unsupported solver output shape")

// ColumnSet is a named primal solution.
type ColumnSet interface {
	// Each calls fn for every column in a stable order.
	Each(fn func(name string, value float64))
	Len() int
}

// Column is a single named value.
type Column struct {
	Name  string
	Value float64
}

// ColumnList keeps columns in the order the solver reported them.
type ColumnList []Column

func (l ColumnList) Each(fn func(string, float64)) {
	for _, c := range l {
		fn(c.Name, c.Value)
	}
}

func (l ColumnList) Len() int { return len(l) }

// ColumnMap holds columns keyed by name. Each visits names in sorted order.
type ColumnMap map[string]float64

func (m ColumnMap) Each(fn func(string, float64)) {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		fn(n, m[n])
	}
}

func (m ColumnMap) Len() int { return len(m) }

// valueKeys lists the field names under which engines report a column value.
var valueKeys = []string{"Primal", "primal", "Value", "value", "x"}

var nameKeys = []string{"Name", "name"}

// columnShape decodes one known layout of the columns field.
type columnShape interface {
	decode(raw json.RawMessage) (ColumnSet, error)
}

type listShape struct{}

type mapShape struct{}

func (listShape) decode(raw json.RawMessage) (ColumnSet, error) {
	var entries []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode column list: %w", err)
	}
	out := make(ColumnList, 0, len(entries))
	for i, e := range entries {
		var name string
		if !lookup(e, nameKeys, &name) {
			return nil, fmt.Errorf("%w: column %d has no name", ErrUnsupportedShape, i)
		}
		v, ok := entryValue(e)
		if !ok {
			return nil, fmt.Errorf("%w: column %q has no value", ErrUnsupportedShape, name)
		}
		out = append(out, Column{Name: name, Value: v})
	}
	return out, nil
}

func (mapShape) decode(raw json.RawMessage) (ColumnSet, error) {
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode column map: %w", err)
	}
	out := make(ColumnMap, len(entries))
	for name, r := range entries {
		var v float64
		if err := json.Unmarshal(r, &v); err == nil {
			out[name] = v
			continue
		}
		var e map[string]json.RawMessage
		if err := json.Unmarshal(r, &e); err != nil {
			return nil, fmt.Errorf("%w: column %q", ErrUnsupportedShape, name)
		}
		v, ok := entryValue(e)
		if !ok {
			return nil, fmt.Errorf("%w: column %q has no value", ErrUnsupportedShape, name)
		}
		out[name] = v
	}
	return out, nil
}

// shapeOf selects the decoder by inspecting the first significant byte.
func shapeOf(raw json.RawMessage) (columnShape, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, ErrUnsupportedShape
	}
	switch trimmed[0] {
	case '[':
		return listShape{}, nil
	case '{':
		return mapShape{}, nil
	}
	return nil, fmt.Errorf("%w: columns start with %q", ErrUnsupportedShape, trimmed[0])
}

func entryValue(e map[string]json.RawMessage) (float64, bool) {
	var v float64
	return v, lookup(e, valueKeys, &v)
}

func lookup[T any](e map[string]json.RawMessage, keys []string, out *T) bool {
	for _, k := range keys {
		if r, ok := e[k]; ok {
			if err := json.Unmarshal(r, out); err == nil {
				return true
			}
		}
	}
	return false
}

// DecodeJSON reads solver output serialised as JSON. The columns may be a
// list of named entries or an object keyed by variable name.
func DecodeJSON(data []byte) (Result, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return Result{}, fmt.Errorf("decode solver output: %w", err)
	}
	fields := make(map[string]json.RawMessage, len(top))
	for k, v := range top {
		fields[strings.ToLower(strings.ReplaceAll(k, "_", ""))] = v
	}

	var res Result
	var status string
	if r, ok := fields["status"]; ok {
		if err := json.Unmarshal(r, &status); err != nil {
			return Result{}, fmt.Errorf("decode status: %w", err)
		}
	}
	res.Status = Status(status)
	for _, k := range []string{"objectivevalue", "objective"} {
		if r, ok := fields[k]; ok {
			if err := json.Unmarshal(r, &res.ObjectiveValue); err != nil {
				return Result{}, fmt.Errorf("decode objective: %w", err)
			}
			break
		}
	}
	raw, ok := fields["columns"]
	if !ok {
		res.Columns = ColumnList{}
		return res, nil
	}
	shape, err := shapeOf(raw)
	if err != nil {
		return Result{}, err
	}
	cols, err := shape.decode(raw)
	if err != nil {
		return Result{}, err
	}
	res.Columns = cols
	return res, nil
}
