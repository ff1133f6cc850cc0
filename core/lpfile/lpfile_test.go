package lpfile

import (
	"errors"
	"math"
	"testing"
)

const sample = `\ toy model
Minimize
 obj: 2 x + 3 y
   - z
Subject To
 c1: x + y >= 2
 c2: x - 0.5 z
     <= 4
 c3: y = 1
Bounds
 0 <= x <= 10
 y >= -1
 z <= 3
 w free
End
`

func TestParse(t *testing.T) {
	m, err := Parse(sample)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if m.Maximize {
		t.Fatalf("expected minimisation")
	}
	if len(m.Vars) != 4 {
		t.Fatalf("expected 4 vars got %v", m.Vars)
	}
	if len(m.Objective) != 3 || m.Objective[2].Coef != -1 {
		t.Fatalf("bad objective %+v", m.Objective)
	}
	if len(m.Constraints) != 3 {
		t.Fatalf("expected 3 rows got %d", len(m.Constraints))
	}
	c2 := m.Constraints[1]
	if c2.Name != "c2" || c2.Op != LE || c2.RHS != 4 || c2.Terms[1].Coef != -0.5 {
		t.Fatalf("bad continuation row %+v", c2)
	}
	if m.Constraints[0].Op != GE || m.Constraints[2].Op != EQ {
		t.Fatalf("bad operators")
	}
	x, _ := m.Index("x")
	y, _ := m.Index("y")
	z, _ := m.Index("z")
	w, _ := m.Index("w")
	if m.Upper[x] != 10 || m.Lower[y] != -1 || m.Upper[z] != 3 || m.Lower[z] != 0 {
		t.Fatalf("bad bounds lower=%v upper=%v", m.Lower, m.Upper)
	}
	if !math.IsInf(m.Lower[w], -1) {
		t.Fatalf("free variable not unbounded")
	}
}

func TestParseErrors(t *testing.T) {
	cases := map[string]string{
		"missing end":    "Minimize\n obj: x\nSubject To\n c: x >= 1\n",
		"no operator":    "Minimize\n obj: x\nSubject To\n c: x 1\nEnd\n",
		"orphan content": "x + y\nEnd\n",
		"bad bound":      "Minimize\n obj: x\nSubject To\n c: x >= 1\nBounds\n x ~ 2\nEnd\n",
	}
	for name, text := range cases {
		if _, err := Parse(text); !errors.Is(err, ErrSyntax) {
			t.Errorf("%s: expected syntax error got %v", name, err)
		}
	}
}
