// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package dd

import (
	"fmt"
	"math"

	"github.com/golang/glog"
)

// aaddNode is one internal decision node of an AADD: a level plus two
// child references. Node 0 is reserved as the single canonical
// terminal, the function "1"; its level is varnum, beyond every
// variable, and it has no children.
type aaddNode struct {
	level int32
	low   ID // ref id
	high  ID // ref id
}

// aaddRef is an affine pointer: the value it denotes is c*f(node) + b,
// where f(node) is the function rooted at node. References, not nodes,
// are what callers hold and what AADD operations take and return — the
// "(c, b, nodeId) triples" of spec.md §4.3 — and like nodes they are
// hash-consed, so that two computations reaching the same scaled
// function always share one id.
type aaddRef struct {
	c, b float64
	node int32
}

type refKey struct {
	node int32
	c, b float64
}

// AADD is a reduced, ordered decision diagram whose edges carry an
// affine transform. It generalizes ADD's arena-plus-hash-cons layout
// (add_store.go, itself adapted from the teacher's hudd) with a second
// hash-cons table over references, so that affine factors are
// canonicalized exactly like node structure.
type AADD struct {
	order  []int32
	varnum int32

	nodes      []aaddNode
	nodeUnique map[[3]int64]int32
	nodeFree   []int32 // free list of node slots, LIFO

	refs      []aaddRef
	refUnique map[refKey]ID
	refFree   ID
	refFreeN  int

	special map[ID]int32

	cache *opCache
	cfg   *configs

	pruneMode PruneMode
	pruneErr  float64

	minCache map[ID]float64
	maxCache map[ID]float64

	produced int
	err      error
}

const freeRef ID = -1

// freedNodeLevel marks a node slot as reclaimed by FlushCaches; real
// levels are always >= 0, so getNode's free-list path always overwrites
// it with a legitimate level before the id is handed out again.
const freedNodeLevel int32 = -1

// NewAADD creates an AADD store over the given variable order.
func NewAADD(order []int32, opts ...Option) *AADD {
	cfg := defaultConfigs(len(order))
	for _, o := range opts {
		o(cfg)
	}
	b := &AADD{
		order:      append([]int32(nil), order...),
		varnum:     int32(len(order)),
		nodeUnique: make(map[[3]int64]int32),
		refUnique:  make(map[refKey]ID),
		refFree:    freeRef,
		special:    make(map[ID]int32),
		cache:      newOpCache(),
		cfg:        cfg,
	}
	b.resetBoundsCache()
	b.nodes = append(b.nodes, aaddNode{level: b.varnum}) // node 0: the terminal
	size := cfg.nodesize
	if size < 4 {
		size = 4
	}
	b.growRefsTo(size)
	zero := b.internGetConstantNode(0)
	one := b.internGetConstantNode(1)
	if zero != 0 || one != 1 {
		glog.Fatalf("dd: internal error, terminals 0/1 not allocated at reserved ref ids (%d,%d)", zero, one)
	}
	b.AddSpecialNode(zero)
	b.AddSpecialNode(one)
	return b
}

func (b *AADD) Varnum() int { return int(b.varnum) }

func (b *AADD) Error() string {
	if b.err == nil {
		return ""
	}
	return b.err.Error()
}

func (b *AADD) seterror(err error) {
	if b.err == nil {
		b.err = err
	}
}

func (b *AADD) growRefsTo(size int) {
	old := len(b.refs)
	if size <= old {
		return
	}
	grown := make([]aaddRef, size)
	copy(grown, b.refs)
	b.refs = grown
	// Thread the new slots' "next free" pointer through the node field,
	// the way the ADD arena threads its free list through the high field
	// of an unused slot, chaining onto whatever was already free.
	oldFree := b.refFree
	for k := old; k < size; k++ {
		// c = NaN marks a slot as unallocated, the way the ADD arena
		// repurposes low == freeSlot: allocateRef overwrites it with a
		// real reference before handing the id out, and checkID rejects
		// any id still carrying the marker.
		b.refs[k].c = math.NaN()
		if k+1 < size {
			b.refs[k].node = int32(k + 1)
		} else {
			b.refs[k].node = int32(oldFree)
		}
	}
	b.refFree = ID(old)
	b.refFreeN += size - old
}

func (b *AADD) allocateRef(r aaddRef) ID {
	if b.refFreeN == 0 {
		b.growRefsTo(len(b.refs)*2 + 4)
	}
	res := b.refFree
	b.refFree = ID(b.refs[res].node)
	b.refFreeN--
	b.refs[res] = r
	return res
}

func (b *AADD) getRef(node int32, c, b2 float64) ID {
	key := refKey{node: node, c: c, b: b2}
	if id, ok := b.refUnique[key]; ok {
		return id
	}
	id := b.allocateRef(aaddRef{c: c, b: b2, node: node})
	b.refUnique[key] = id
	return id
}

func (b *AADD) internGetConstantNode(v float64) ID {
	return b.getRef(0, 0, v)
}

// GetConstantNode returns the reference denoting the constant function
// v, expressed as (0, v, terminal).
func (b *AADD) GetConstantNode(v float64) ID {
	return b.getRef(0, 0, v)
}

func (b *AADD) getNode(level int32, low, high ID) int32 {
	key := [3]int64{int64(level), int64(low), int64(high)}
	if id, ok := b.nodeUnique[key]; ok {
		return id
	}
	var id int32
	if n := len(b.nodeFree); n > 0 {
		id = b.nodeFree[n-1]
		b.nodeFree = b.nodeFree[:n-1]
		b.nodes[id] = aaddNode{level: level, low: low, high: high}
	} else {
		id = int32(len(b.nodes))
		b.nodes = append(b.nodes, aaddNode{level: level, low: low, high: high})
	}
	b.nodeUnique[key] = id
	b.produced++
	return id
}

// mk canonicalizes the (level, low, high) triple into a single affine
// reference, implementing the five-step reduction of spec.md §4.3:
// redundancy elimination, offset normalization (b_low pushed to the
// parent), scale normalization (max(|c_low|,|c_high|) == 1, pushed to
// the parent), hash-consing of the resulting node, and packaging of the
// residual scale/offset into the returned reference.
func (b *AADD) mk(level int32, low, high ID) ID {
	lowR, highR := b.refs[low], b.refs[high]
	if lowR.node == highR.node && lowR.c == highR.c && lowR.b == highR.b {
		return low
	}
	b0 := lowR.b
	lowC, highC, highB := lowR.c, highR.c, highR.b-b0
	s := math.Max(math.Abs(lowC), math.Abs(highC))
	if s == 0 {
		s = 1
	}
	lowChild := b.getRef(lowR.node, lowC/s, 0)
	highChild := b.getRef(highR.node, highC/s, highB/s)
	node := b.getNode(level, lowChild, highChild)
	return b.getRef(node, s, b0)
}

// GetVarNode returns the reference for the indicator-like node of
// variable varID: lowVal on the false branch, highVal on the true one.
func (b *AADD) GetVarNode(varID int32, lowVal, highVal float64) ID {
	level := b.levelOf(varID)
	if level < 0 {
		b.seterror(failf(ErrBadVariable, "variable %d not in declared order", varID))
		return b.GetConstantNode(0)
	}
	lo := b.GetConstantNode(lowVal)
	hi := b.GetConstantNode(highVal)
	return b.mk(level, lo, hi)
}

func (b *AADD) levelOf(varID int32) int32 {
	for i, v := range b.order {
		if v == varID {
			return int32(i)
		}
	}
	return -1
}

// nodeLevel returns the level of a reference's node, or varnum (the
// sentinel used for the terminal) when the reference is constant.
func (b *AADD) nodeLevel(ref ID) int32 {
	return b.nodes[b.refs[ref].node].level
}

func (b *AADD) isConstRef(ref ID) bool {
	return b.refs[ref].node == 0
}

func (b *AADD) valueOf(ref ID) float64 {
	return b.refs[ref].c*1 + b.refs[ref].b
}

// composeChild returns the reference seen by an outer (c, b) transform
// looking through to one of a node's children, i.e. the reference
// denoting c*(c_inner*f_child + b_inner) + b.
func (b *AADD) composeChild(outerC, outerB float64, inner ID) ID {
	ir := b.refs[inner]
	return b.getRef(ir.node, outerC*ir.c, outerC*ir.b+outerB)
}

func (b *AADD) checkID(n ID) error {
	if n < 0 || int(n) >= len(b.refs) {
		return failf(ErrUnknownID, "%d", n)
	}
	if math.IsNaN(b.refs[n].c) {
		return failf(ErrUnknownID, "%d (freed)", n)
	}
	return nil
}

// AddSpecialNode / RemoveSpecialNode mirror ADD's root-anchor protocol
// (spec.md §3) at the level of references rather than bare node ids.
func (b *AADD) AddSpecialNode(id ID) {
	if err := b.checkID(id); err != nil {
		b.seterror(err)
		return
	}
	if b.special[id] < _MAXREFCOUNT {
		b.special[id]++
	}
}

func (b *AADD) RemoveSpecialNode(id ID) {
	if err := b.checkID(id); err != nil {
		b.seterror(err)
		return
	}
	if b.special[id] > 0 {
		b.special[id]--
		if b.special[id] == 0 {
			delete(b.special, id)
		}
	}
}

func (b *AADD) markRef(ref ID, markedRefs map[ID]bool, markedNodes map[int32]bool) {
	if ref < 0 || markedRefs[ref] {
		return
	}
	markedRefs[ref] = true
	node := b.refs[ref].node
	if markedNodes[node] {
		return
	}
	markedNodes[node] = true
	if node != 0 {
		n := b.nodes[node]
		b.markRef(n.low, markedRefs, markedNodes)
		b.markRef(n.high, markedRefs, markedNodes)
	}
}

// FlushCaches garbage-collects every reference and node not reachable
// from a special reference, then empties the operation cache. If
// rebuildHashCons is set, both hash-cons tables are rebuilt from the
// surviving references and nodes.
func (b *AADD) FlushCaches(rebuildHashCons bool) {
	markedRefs := make(map[ID]bool, len(b.special)*2)
	markedNodes := make(map[int32]bool, len(b.special)*2)
	for id := range b.special {
		b.markRef(id, markedRefs, markedNodes)
	}
	glog.V(1).Infof("dd/AADD: flush starting, %d refs, %d nodes, %d special roots", len(b.refs), len(b.nodes), len(b.special))
	for r := 2; r < len(b.refs); r++ {
		if markedRefs[ID(r)] || math.IsNaN(b.refs[r].c) {
			continue // reachable, or already free
		}
		delete(b.refUnique, refKey{node: b.refs[r].node, c: b.refs[r].c, b: b.refs[r].b})
		b.refs[r] = aaddRef{node: int32(b.refFree), c: math.NaN(), b: 0}
		b.refFree = ID(r)
		b.refFreeN++
	}
	for n := 1; n < len(b.nodes); n++ {
		if markedNodes[int32(n)] || b.nodes[n].level == freedNodeLevel {
			continue // reachable, or already free
		}
		node := b.nodes[n]
		delete(b.nodeUnique, [3]int64{int64(node.level), int64(node.low), int64(node.high)})
		b.nodes[n] = aaddNode{level: freedNodeLevel}
		b.nodeFree = append(b.nodeFree, int32(n))
	}
	if rebuildHashCons {
		b.refUnique = make(map[refKey]ID)
		b.nodeUnique = make(map[[3]int64]int32)
		for r, ref := range b.refs {
			if !math.IsNaN(ref.c) {
				b.refUnique[refKey{node: ref.node, c: ref.c, b: ref.b}] = ID(r)
			}
		}
		for n := 1; n < len(b.nodes); n++ {
			if node := b.nodes[n]; node.level != freedNodeLevel {
				b.nodeUnique[[3]int64{int64(node.level), int64(node.low), int64(node.high)}] = int32(n)
			}
		}
	}
	b.cache.flush()
	b.resetBoundsCache()
	glog.V(1).Infof("dd/AADD: flush done")
}

func (b *AADD) resetBoundsCache() {
	b.minCache = make(map[ID]float64)
	b.maxCache = make(map[ID]float64)
}

func (b *AADD) SetPruneInfo(mode PruneMode, maxError float64) {
	b.pruneMode = mode
	b.pruneErr = maxError
}

func (b *AADD) Stats() string {
	res := fmt.Sprintf("Refs:       %d\n", len(b.refs))
	res += fmt.Sprintf("Nodes:      %d\n", len(b.nodes))
	res += fmt.Sprintf("Produced:   %d\n", b.produced)
	res += fmt.Sprintf("Special:    %d\n", len(b.special))
	res += fmt.Sprintf("Cache hit:  %d  miss: %d\n", b.cache.hit, b.cache.miss)
	return res
}
