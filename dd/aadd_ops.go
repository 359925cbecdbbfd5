// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package dd

import (
	"fmt"
	"math"
)

// ApplyInt is AADD's counterpart to ADD's ApplyInt: same operand
// validation, delegating to applyBinary. Its division guard rejects any
// divisor whose range [min, max] contains zero, which is stricter than
// ADD's scan for a terminal zero.
func (b *AADD) ApplyInt(f, g ID, op Op) (ID, error) {
	if err := b.checkID(f); err != nil {
		return 0, err
	}
	if err := b.checkID(g); err != nil {
		return 0, err
	}
	if op == DIV && b.GetMinValue(g) <= 0 && b.GetMaxValue(g) >= 0 {
		return 0, failf(ErrDivisionByZero, "right operand (id %d) can reach zero", g)
	}
	return b.applyBinary(f, g, op), nil
}

// applyBinary is the AADD generalization of ADD's applyBinary: operands
// are affine references rather than bare node ids, so the terminal case
// evaluates c*1+b for each side, and the recursive case composes the
// outer affine factor into each cofactor before descending (spec.md
// §4.3's "Apply" subsection).
func (b *AADD) applyBinary(f, g ID, op Op) ID {
	if b.isConstRef(f) && b.isConstRef(g) {
		return b.GetConstantNode(eval(op, b.valueOf(f), b.valueOf(g)))
	}

	key := canonicalKey(op, f, 1, 0, g, 1, 0)
	if res, ok := b.cache.get(key); ok {
		return res
	}

	flevel, glevel := b.nodeLevel(f), b.nodeLevel(g)
	v := flevel
	if glevel < v {
		v = glevel
	}
	fr, gr := b.refs[f], b.refs[g]
	var flo, fhi ID
	if flevel == v {
		n := b.nodes[fr.node]
		flo = b.composeChild(fr.c, fr.b, n.low)
		fhi = b.composeChild(fr.c, fr.b, n.high)
	} else {
		flo, fhi = f, f
	}
	var glo, ghi ID
	if glevel == v {
		n := b.nodes[gr.node]
		glo = b.composeChild(gr.c, gr.b, n.low)
		ghi = b.composeChild(gr.c, gr.b, n.high)
	} else {
		glo, ghi = g, g
	}
	lo := b.applyBinary(flo, glo, op)
	hi := b.applyBinary(fhi, ghi, op)
	res := b.mk(v, lo, hi)
	b.cache.set(key, res)
	return res
}

// Restrict substitutes variable varID by the constant mode (0 or 1),
// composing the outer affine factor down through the recursion exactly
// like applyBinary's cofactoring.
func (b *AADD) Restrict(f ID, varID int32, mode int) (ID, error) {
	if err := b.checkID(f); err != nil {
		return 0, err
	}
	level := b.levelOf(varID)
	if level < 0 {
		return 0, failf(ErrBadVariable, "%d", varID)
	}
	return b.restrict(f, level, mode), nil
}

func (b *AADD) restrict(f ID, level int32, mode int) ID {
	fl := b.nodeLevel(f)
	if fl > level {
		return f
	}
	fr := b.refs[f]
	if fl == level {
		n := b.nodes[fr.node]
		if mode == 0 {
			return b.composeChild(fr.c, fr.b, n.low)
		}
		return b.composeChild(fr.c, fr.b, n.high)
	}
	n := b.nodes[fr.node]
	lo := b.restrict(b.composeChild(fr.c, fr.b, n.low), level, mode)
	hi := b.restrict(b.composeChild(fr.c, fr.b, n.high), level, mode)
	return b.mk(fl, lo, hi)
}

func (b *AADD) GetMinValue(f ID) float64 {
	if v, ok := b.minCache[f]; ok {
		return v
	}
	var v float64
	if b.isConstRef(f) {
		v = b.valueOf(f)
	} else {
		fr := b.refs[f]
		n := b.nodes[fr.node]
		lo := b.composeChild(fr.c, fr.b, n.low)
		hi := b.composeChild(fr.c, fr.b, n.high)
		v = math.Min(b.GetMinValue(lo), b.GetMinValue(hi))
	}
	b.minCache[f] = v
	return v
}

func (b *AADD) GetMaxValue(f ID) float64 {
	if v, ok := b.maxCache[f]; ok {
		return v
	}
	var v float64
	if b.isConstRef(f) {
		v = b.valueOf(f)
	} else {
		fr := b.refs[f]
		n := b.nodes[fr.node]
		lo := b.composeChild(fr.c, fr.b, n.low)
		hi := b.composeChild(fr.c, fr.b, n.high)
		v = math.Max(b.GetMaxValue(lo), b.GetMaxValue(hi))
	}
	b.maxCache[f] = v
	return v
}

// PruneNodes mirrors ADD's bottom-up bounded-error replacement
// (add_ops.go), operating on references instead of bare ids.
func (b *AADD) PruneNodes(f ID) ID {
	memo := make(map[ID]ID)
	return b.prune(f, memo)
}

func (b *AADD) prune(f ID, memo map[ID]ID) ID {
	if v, ok := memo[f]; ok {
		return v
	}
	if b.isConstRef(f) {
		memo[f] = f
		return f
	}
	fr := b.refs[f]
	n := b.nodes[fr.node]
	lo := b.prune(b.composeChild(fr.c, fr.b, n.low), memo)
	hi := b.prune(b.composeChild(fr.c, fr.b, n.high), memo)
	node := b.mk(n.level, lo, hi)

	lo2, hi2 := b.GetMinValue(f), b.GetMaxValue(f)
	var res ID
	if hi2-lo2 <= 2*b.pruneErr {
		switch b.pruneMode {
		case PruneMin:
			res = b.GetConstantNode(lo2)
		case PruneMax:
			res = b.GetConstantNode(hi2)
		default:
			res = b.GetConstantNode((lo2 + hi2) / 2)
		}
	} else {
		res = node
	}
	memo[f] = res
	return res
}

func (b *AADD) CountExactNodes(f ID) int {
	visited := make(map[ID]bool)
	b.collect(f, visited)
	return len(visited)
}

func (b *AADD) collect(f ID, visited map[ID]bool) {
	if visited[f] {
		return
	}
	visited[f] = true
	if !b.isConstRef(f) {
		n := b.nodes[b.refs[f].node]
		b.collect(n.low, visited)
		b.collect(n.high, visited)
	}
}

// PrintNode dumps the sub-diagram rooted at f, reference by reference.
func (b *AADD) PrintNode(f ID) string {
	visited := make(map[ID]bool)
	var buf []byte
	buf = b.printRec(f, visited, buf)
	return string(buf)
}

func (b *AADD) printRec(f ID, visited map[ID]bool, buf []byte) []byte {
	if visited[f] {
		return buf
	}
	visited[f] = true
	r := b.refs[f]
	if r.node == 0 {
		buf = append(buf, []byte(fmt.Sprintf("%d: leaf %g\n", f, b.valueOf(f)))...)
		return buf
	}
	n := b.nodes[r.node]
	buf = append(buf, []byte(fmt.Sprintf("%d: (level %d, c %g, b %g, low %d, high %d)\n", f, n.level, r.c, r.b, n.low, n.high))...)
	buf = b.printRec(n.low, visited, buf)
	buf = b.printRec(n.high, visited, buf)
	return buf
}

// GetGraph returns a DAG export of the sub-diagram rooted at f.
func (b *AADD) GetGraph(f ID) Graph {
	visited := make(map[ID]bool)
	g := Graph{Root: f}
	b.graphRec(f, visited, &g)
	return g
}

func (b *AADD) graphRec(f ID, visited map[ID]bool, g *Graph) {
	if visited[f] {
		return
	}
	visited[f] = true
	r := b.refs[f]
	if r.node == 0 {
		g.Nodes = append(g.Nodes, GraphNode{ID: f, Leaf: true, Value: b.valueOf(f)})
		return
	}
	n := b.nodes[r.node]
	g.Nodes = append(g.Nodes, GraphNode{
		ID: f, Level: n.level, Low: n.low, High: n.high,
		LowC: b.refs[n.low].c, LowB: b.refs[n.low].b,
		HighC: b.refs[n.high].c, HighB: b.refs[n.high].b,
	})
	b.graphRec(n.low, visited, g)
	b.graphRec(n.high, visited, g)
}
