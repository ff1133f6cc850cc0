// Package lpfile reads linear programs written in the plain-text LP format:
// an objective section, a Subject To section with named rows, an optional
// Bounds section and End. Backslash starts a comment.
package lpfile

import (
	"bufio"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrSyntax is wrapped by every parse error.
var ErrSyntax = errors.New("lp syntax error")

// Op is a row comparison operator.
type Op int

const (
	LE Op = iota
	GE
	EQ
)

func (o Op) String() string {
	switch o {
	case LE:
		return "<="
	case GE:
		return ">="
	default:
		return "="
	}
}

// Term is a coefficient applied to a variable index.
type Term struct {
	Var  int
	Coef float64
}

// Constraint is one named row.
type Constraint struct {
	Name  string
	Terms []Term
	Op    Op
	RHS   float64
}

// Model is a parsed linear program. Variables keep the order in which they
// first appear. Lower bounds default to 0 and upper bounds to +Inf.
type Model struct {
	Maximize    bool
	Vars        []string
	Objective   []Term
	Constraints []Constraint
	Lower       []float64
	Upper       []float64

	index map[string]int
}

// Index returns the position of a variable and whether it exists.
func (m *Model) Index(name string) (int, bool) {
	i, ok := m.index[name]
	return i, ok
}

func (m *Model) variable(name string) int {
	if i, ok := m.index[name]; ok {
		return i
	}
	i := len(m.Vars)
	m.index[name] = i
	m.Vars = append(m.Vars, name)
	m.Lower = append(m.Lower, 0)
	m.Upper = append(m.Upper, math.Inf(1))
	return i
}

type section int

const (
	secNone section = iota
	secObjective
	secConstraints
	secBounds
	secEnd
)

type statement struct {
	line int
	text string
}

// Parse reads an LP model from text.
func Parse(text string) (*Model, error) {
	m := &Model{index: make(map[string]int)}
	sec := secNone
	var objective []statement
	var rows []statement
	var bounds []statement

	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if i := strings.IndexByte(line, '\\'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if next, ok := sectionKeyword(line); ok {
			if next == secObjective {
				m.Maximize = strings.HasPrefix(strings.ToLower(line), "max")
			}
			sec = next
			continue
		}
		switch sec {
		case secObjective:
			objective = appendStatement(objective, lineNo, line, len(objective) == 0)
		case secConstraints:
			rows = appendStatement(rows, lineNo, line, strings.Contains(line, ":") || len(rows) == 0)
		case secBounds:
			bounds = append(bounds, statement{lineNo, line})
		case secEnd:
			return nil, fmt.Errorf("%w: line %d: content after End", ErrSyntax, lineNo)
		default:
			return nil, fmt.Errorf("%w: line %d: content outside of a section", ErrSyntax, lineNo)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if sec != secEnd {
		return nil, fmt.Errorf("%w: missing End", ErrSyntax)
	}

	for _, st := range objective {
		_, expr := splitName(st.text)
		terms, err := m.parseExpr(expr, st.line)
		if err != nil {
			return nil, err
		}
		m.Objective = append(m.Objective, terms...)
	}
	for _, st := range rows {
		c, err := m.parseRow(st)
		if err != nil {
			return nil, err
		}
		m.Constraints = append(m.Constraints, c)
	}
	for _, st := range bounds {
		if err := m.parseBound(st); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func appendStatement(list []statement, line int, text string, start bool) []statement {
	if start {
		return append(list, statement{line, text})
	}
	list[len(list)-1].text += " " + text
	return list
}

func sectionKeyword(line string) (section, bool) {
	switch strings.ToLower(strings.Join(strings.Fields(line), " ")) {
	case "minimize", "minimise", "minimum", "min", "maximize", "maximise", "maximum", "max":
		return secObjective, true
	case "subject to", "such that", "st", "s.t.":
		return secConstraints, true
	case "bounds", "bound":
		return secBounds, true
	case "end":
		return secEnd, true
	}
	return secNone, false
}

func splitName(text string) (string, string) {
	if i := strings.IndexByte(text, ':'); i >= 0 {
		return strings.TrimSpace(text[:i]), text[i+1:]
	}
	return "", text
}

func (m *Model) parseRow(st statement) (Constraint, error) {
	name, body := splitName(st.text)
	pos, width, op, ok := findOp(body)
	if !ok {
		return Constraint{}, fmt.Errorf("%w: line %d: row %q has no operator", ErrSyntax, st.line, name)
	}
	rhs, err := parseNum(strings.TrimSpace(body[pos+width:]))
	if err != nil {
		return Constraint{}, fmt.Errorf("%w: line %d: row %q: %v", ErrSyntax, st.line, name, err)
	}
	terms, err := m.parseExpr(body[:pos], st.line)
	if err != nil {
		return Constraint{}, err
	}
	return Constraint{Name: name, Terms: terms, Op: op, RHS: rhs}, nil
}

func findOp(s string) (pos, width int, op Op, ok bool) {
	for _, cand := range []struct {
		tok string
		op  Op
	}{{"<=", LE}, {"=<", LE}, {">=", GE}, {"=>", GE}, {"<", LE}, {">", GE}, {"=", EQ}} {
		if i := strings.Index(s, cand.tok); i >= 0 {
			return i, len(cand.tok), cand.op, true
		}
	}
	return 0, 0, EQ, false
}

func (m *Model) parseExpr(expr string, line int) ([]Term, error) {
	var terms []Term
	sign := 1.0
	coef := 1.0
	pendingCoef := false
	for _, tok := range strings.Fields(expr) {
		switch tok {
		case "+":
			continue
		case "-":
			sign = -sign
			continue
		}
		if strings.HasPrefix(tok, "-") && len(tok) > 1 {
			sign = -sign
			tok = tok[1:]
		} else if strings.HasPrefix(tok, "+") && len(tok) > 1 {
			tok = tok[1:]
		}
		if v, err := strconv.ParseFloat(tok, 64); err == nil {
			if pendingCoef {
				return nil, fmt.Errorf("%w: line %d: two consecutive coefficients", ErrSyntax, line)
			}
			coef = v
			pendingCoef = true
			continue
		}
		terms = append(terms, Term{Var: m.variable(tok), Coef: sign * coef})
		sign, coef, pendingCoef = 1, 1, false
	}
	if pendingCoef {
		return nil, fmt.Errorf("%w: line %d: dangling coefficient", ErrSyntax, line)
	}
	return terms, nil
}

func (m *Model) parseBound(st statement) error {
	f := strings.Fields(st.text)
	bad := func() error { return fmt.Errorf("%w: line %d: bad bound %q", ErrSyntax, st.line, st.text) }
	switch len(f) {
	case 2:
		if strings.EqualFold(f[1], "free") {
			i := m.variable(f[0])
			m.Lower[i], m.Upper[i] = math.Inf(-1), math.Inf(1)
			return nil
		}
		return bad()
	case 3:
		_, _, op, ok := findOp(f[1])
		if !ok {
			return bad()
		}
		if v, err := parseNum(f[2]); err == nil {
			m.applyBound(m.variable(f[0]), op, v)
			return nil
		}
		v, err := parseNum(f[0])
		if err != nil {
			return bad()
		}
		// "v <= x" reads as "x >= v"
		switch op {
		case LE:
			op = GE
		case GE:
			op = LE
		}
		m.applyBound(m.variable(f[2]), op, v)
		return nil
	case 5:
		lo, err1 := parseNum(f[0])
		hi, err2 := parseNum(f[4])
		_, _, op1, ok1 := findOp(f[1])
		_, _, op2, ok2 := findOp(f[3])
		if err1 != nil || err2 != nil || !ok1 || !ok2 || op1 != LE || op2 != LE {
			return bad()
		}
		i := m.variable(f[2])
		m.Lower[i], m.Upper[i] = lo, hi
		return nil
	}
	return bad()
}

func (m *Model) applyBound(i int, op Op, v float64) {
	switch op {
	case LE:
		m.Upper[i] = v
	case GE:
		m.Lower[i] = v
	default:
		m.Lower[i], m.Upper[i] = v, v
	}
}

func parseNum(s string) (float64, error) {
	switch strings.ToLower(s) {
	case "inf", "+inf", "infinity", "+infinity":
		return math.Inf(1), nil
	case "-inf", "-infinity":
		return math.Inf(-1), nil
	}
	return strconv.ParseFloat(s, 64)
}
