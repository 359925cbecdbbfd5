// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package dd

import (
	"fmt"
	"math"
)

func (b *ADD) isTerminal(n ID) bool { return b.nodes[n].leaf }

func (b *ADD) isZero(n ID) bool {
	return b.nodes[n].leaf && closeEnoughEps(b.nodes[n].value, 0, b.epsilon)
}

func (b *ADD) isOne(n ID) bool {
	return b.nodes[n].leaf && closeEnoughEps(b.nodes[n].value, 1, b.epsilon)
}

// ApplyInt is the public entry point for the generic binary combinator
// of spec.md §4.2. It validates both operands, rejects a division whose
// right-hand side can reach a terminal zero, and otherwise delegates to
// applyBinary.
func (b *ADD) ApplyInt(f, g ID, op Op) (ID, error) {
	if err := b.checkID(f); err != nil {
		return 0, err
	}
	if err := b.checkID(g); err != nil {
		return 0, err
	}
	if op == DIV && b.containsTerminal(g, 0) {
		return 0, failf(ErrDivisionByZero, "right operand (id %d) contains a terminal zero", g)
	}
	return b.applyBinary(f, g, op), nil
}

func (b *ADD) containsTerminal(f ID, v float64) bool {
	return b.containsTerminalRec(f, v, make(map[ID]bool))
}

func (b *ADD) containsTerminalRec(f ID, v float64, visited map[ID]bool) bool {
	if visited[f] {
		return false
	}
	visited[f] = true
	if b.nodes[f].leaf {
		return closeEnoughEps(b.nodes[f].value, v, b.epsilon)
	}
	return b.containsTerminalRec(b.nodes[f].low, v, visited) || b.containsTerminalRec(b.nodes[f].high, v, visited)
}

// applyBinary implements the apply/restrict skeleton of spec.md §4.2:
// terminal/terminal calls evaluate directly; otherwise we split on the
// minimum variable of the two operands and rebuild via getInternal. A
// handful of algebraic short-circuits (0*x=0, 1*x=x, x-x=0 for
// identifier-equal operands) skip the recursion entirely, mirroring the
// constant-folding switch at the top of the teacher's apply.
func (b *ADD) applyBinary(f, g ID, op Op) ID {
	switch op {
	case SUM:
		if b.isZero(f) {
			return g
		}
		if b.isZero(g) {
			return f
		}
	case PROD:
		if b.isZero(f) || b.isZero(g) {
			return 0
		}
		if b.isOne(f) {
			return g
		}
		if b.isOne(g) {
			return f
		}
	case MINUS:
		if f == g {
			return 0
		}
		if b.isZero(g) {
			return f
		}
	case DIV:
		if b.isOne(g) {
			return f
		}
	case EQ:
		if f == g {
			return 1
		}
	case NOTEQ:
		if f == g {
			return 0
		}
	}

	if b.nodes[f].leaf && b.nodes[g].leaf {
		return b.GetConstantNode(eval(op, b.nodes[f].value, b.nodes[g].value))
	}

	key := canonicalKey(op, f, 1, 0, g, 1, 0)
	if res, ok := b.cache.get(key); ok {
		return res
	}

	flevel, glevel := b.level(f), b.level(g)
	v := flevel
	if glevel < v {
		v = glevel
	}
	flo, fhi := f, f
	if flevel == v {
		flo, fhi = b.low(f), b.high(f)
	}
	glo, ghi := g, g
	if glevel == v {
		glo, ghi = b.low(g), b.high(g)
	}
	lo := b.applyBinary(flo, glo, op)
	hi := b.applyBinary(fhi, ghi, op)
	res := b.getInternal(v, lo, hi)
	b.cache.set(key, res)
	return res
}

// Restrict substitutes variable varID by the constant mode (0 or 1) in
// f, by structural recursion (spec.md §4.2).
func (b *ADD) Restrict(f ID, varID int32, mode int) (ID, error) {
	if err := b.checkID(f); err != nil {
		return 0, err
	}
	level := b.levelOf(varID)
	if level < 0 {
		return 0, failf(ErrBadVariable, "%d", varID)
	}
	return b.restrict(f, level, mode), nil
}

func (b *ADD) restrict(f ID, level int32, mode int) ID {
	if b.nodes[f].leaf || b.nodes[f].level > level {
		return f
	}
	if b.nodes[f].level == level {
		if mode == 0 {
			return b.nodes[f].low
		}
		return b.nodes[f].high
	}
	lo := b.restrict(b.nodes[f].low, level, mode)
	hi := b.restrict(b.nodes[f].high, level, mode)
	return b.getInternal(b.nodes[f].level, lo, hi)
}

// GetMinValue and GetMaxValue compute, and memoize, the pointwise
// minimum/maximum of the function rooted at f (spec.md §4.2 "Bounds").
func (b *ADD) GetMinValue(f ID) float64 {
	if v, ok := b.minCache[f]; ok {
		return v
	}
	var v float64
	if b.nodes[f].leaf {
		v = b.nodes[f].value
	} else {
		v = math.Min(b.GetMinValue(b.nodes[f].low), b.GetMinValue(b.nodes[f].high))
	}
	b.minCache[f] = v
	return v
}

func (b *ADD) GetMaxValue(f ID) float64 {
	if v, ok := b.maxCache[f]; ok {
		return v
	}
	var v float64
	if b.nodes[f].leaf {
		v = b.nodes[f].value
	} else {
		v = math.Max(b.GetMaxValue(b.nodes[f].low), b.GetMaxValue(b.nodes[f].high))
	}
	b.maxCache[f] = v
	return v
}

// PruneNodes implements the bounded-error pruning of spec.md §4.5,
// using the mode and error configured by SetPruneInfo. It walks the DAG
// bottom-up (post-order over a memo table) and replaces a sub-diagram
// with a terminal as soon as its range collapses within 2*maxError.
func (b *ADD) PruneNodes(f ID) ID {
	memo := make(map[ID]ID)
	return b.prune(f, memo)
}

func (b *ADD) prune(f ID, memo map[ID]ID) ID {
	if v, ok := memo[f]; ok {
		return v
	}
	if b.nodes[f].leaf {
		memo[f] = f
		return f
	}
	lo := b.prune(b.nodes[f].low, memo)
	hi := b.prune(b.nodes[f].high, memo)
	node := b.getInternal(b.nodes[f].level, lo, hi)

	lo2, hi2 := b.GetMinValue(f), b.GetMaxValue(f)
	var res ID
	if hi2-lo2 <= 2*b.pruneErr {
		switch b.pruneMode {
		case PruneMin:
			res = b.GetConstantNode(lo2)
		case PruneMax:
			res = b.GetConstantNode(hi2)
		default: // PruneAvg
			res = b.GetConstantNode((lo2 + hi2) / 2)
		}
	} else {
		res = node
	}
	memo[f] = res
	return res
}

// CountExactNodes returns the number of distinct nodes reachable from
// f, terminals included.
func (b *ADD) CountExactNodes(f ID) int {
	visited := make(map[ID]bool)
	b.collect(f, visited)
	return len(visited)
}

func (b *ADD) collect(f ID, visited map[ID]bool) {
	if visited[f] {
		return
	}
	visited[f] = true
	if !b.nodes[f].leaf {
		b.collect(b.nodes[f].low, visited)
		b.collect(b.nodes[f].high, visited)
	}
}

// PrintNode returns a depth-first, indented textual dump of the
// sub-diagram rooted at f, in the spirit of the teacher's node-table
// debug printer (debug.go's logTable).
func (b *ADD) PrintNode(f ID) string {
	visited := make(map[ID]bool)
	var buf []byte
	buf = b.printRec(f, visited, buf)
	return string(buf)
}

func (b *ADD) printRec(f ID, visited map[ID]bool, buf []byte) []byte {
	if visited[f] {
		return buf
	}
	visited[f] = true
	n := b.nodes[f]
	if n.leaf {
		buf = append(buf, []byte(fmt.Sprintf("%d: leaf %g\n", f, n.value))...)
		return buf
	}
	buf = append(buf, []byte(fmt.Sprintf("%d: (level %d, low %d, high %d)\n", f, n.level, n.low, n.high))...)
	buf = b.printRec(n.low, visited, buf)
	buf = b.printRec(n.high, visited, buf)
	return buf
}

// GetGraph returns a DAG export of the sub-diagram rooted at f, the
// data a Graphviz-style viewer would consume (spec.md §6).
func (b *ADD) GetGraph(f ID) Graph {
	visited := make(map[ID]bool)
	g := Graph{Root: f}
	b.graphRec(f, visited, &g)
	return g
}

func (b *ADD) graphRec(f ID, visited map[ID]bool, g *Graph) {
	if visited[f] {
		return
	}
	visited[f] = true
	n := b.nodes[f]
	gn := GraphNode{ID: f, Level: n.level, Low: n.low, High: n.high, Leaf: n.leaf, Value: n.value}
	g.Nodes = append(g.Nodes, gn)
	if !n.leaf {
		b.graphRec(n.low, visited, g)
		b.graphRec(n.high, visited, g)
	}
}
