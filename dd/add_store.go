// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package dd

import (
	"fmt"

	"github.com/golang/glog"
)

// addNode is one slot of an ADD's node arena: either an internal node
// (level, low, high) or a terminal carrying a concrete real value. This
// generalizes the teacher's huddnode (level, low, high, refcou) by
// adding the leaf/value pair the ADD needs for real-valued terminals.
type addNode struct {
	level int32
	low   ID
	high  ID
	leaf  bool
	value float64
}

// freeSlot marks an unused arena slot (teacher: low == -1).
const freeSlot ID = -1

// ADD is a reduced, ordered decision diagram over a fixed Boolean
// variable order with real-valued terminals. Its layout — an arena of
// nodes plus a hash-cons map back to node ids, a free list threaded
// through unused slots, and a refcounted special-node set — is a direct
// adaptation of the teacher's hudd implementation (hudd.go, hkernel.go)
// from Boolean low/high children to real terminals.
type ADD struct {
	order   []int32 // declared variable order; order[level] is the external variable id
	varnum  int32
	epsilon float64

	nodes   []addNode
	unique  map[[3]int64]ID // hash-cons for internal nodes, keyed on (level,low,high)
	leaves  map[float64]ID  // fast path for exact terminal values
	leafIDs []ID            // all terminal ids, scanned for within-epsilon matches on a map miss

	freepos ID
	freenum int

	special map[ID]int32 // root-anchor reference counts

	cache *opCache
	cfg   *configs

	pruneMode PruneMode
	pruneErr  float64

	minCache map[ID]float64
	maxCache map[ID]float64

	produced int
	err      error
}

// NewADD creates an ADD store over the given variable order. Levels are
// assigned by position in order: order[0] is the top-most variable.
func NewADD(order []int32, opts ...Option) *ADD {
	cfg := defaultConfigs(len(order))
	for _, o := range opts {
		o(cfg)
	}
	b := &ADD{
		order:   append([]int32(nil), order...),
		varnum:  int32(len(order)),
		epsilon: cfg.epsilon,
		unique:  make(map[[3]int64]ID),
		leaves:  make(map[float64]ID),
		special: make(map[ID]int32),
		cache:   newOpCache(),
		cfg:     cfg,
	}
	b.resetBoundsCache()
	size := cfg.nodesize
	if size < 4 {
		size = 4
	}
	b.growTo(size)
	// Reserve canonical 0/1 terminals, mirroring the teacher's bddzero/bddone.
	zero := b.newLeaf(0)
	one := b.newLeaf(1)
	if zero != 0 || one != 1 {
		glog.Fatalf("dd: internal error, terminals 0/1 not allocated at reserved ids (%d,%d)", zero, one)
	}
	b.AddSpecialNode(zero)
	b.AddSpecialNode(one)
	return b
}

// Varnum returns the number of declared variables.
func (b *ADD) Varnum() int { return int(b.varnum) }

// Error returns the error status of the store, or the empty string.
func (b *ADD) Error() string {
	if b.err == nil {
		return ""
	}
	return b.err.Error()
}

func (b *ADD) seterror(err error) {
	if b.err == nil {
		b.err = err
	}
}

func (b *ADD) level(n ID) int32 { return b.nodes[n].level }
func (b *ADD) low(n ID) ID      { return b.nodes[n].low }
func (b *ADD) high(n ID) ID     { return b.nodes[n].high }

// growTo appends fresh free slots up to the requested size, threading
// them through the free list exactly like the teacher's noderesize.
func (b *ADD) growTo(size int) {
	old := len(b.nodes)
	if size <= old {
		return
	}
	grown := make([]addNode, size)
	copy(grown, b.nodes)
	for k := old; k < size; k++ {
		grown[k] = addNode{low: freeSlot, high: ID(k + 1)}
	}
	grown[size-1].high = b.freepos
	b.nodes = grown
	b.freepos = ID(old)
	b.freenum += size - old
}

func (b *ADD) resize() {
	old := len(b.nodes)
	next := old * 2
	inc := b.cfg.maxnodeincrease
	if inc > 0 && next > old+inc {
		next = old + inc
	}
	if b.cfg.maxnodesize > 0 && next > b.cfg.maxnodesize {
		next = b.cfg.maxnodesize
	}
	if next <= old {
		return
	}
	b.growTo(next)
}

func (b *ADD) internalKey(level int32, low, high ID) [3]int64 {
	return [3]int64{int64(level), int64(low), int64(high)}
}

// allocate claims the next free slot and fills it in, mirroring the
// teacher's setnode. Nodes are only ever destroyed by an explicit call
// to FlushCaches (spec.md §3, "Lifecycles"); when the arena is full we
// simply grow it, the way the teacher's noderesize does on the resize
// path of makenode.
func (b *ADD) allocate(n addNode) ID {
	if b.freenum == 0 {
		b.resize()
	}
	res := b.freepos
	b.freepos = b.nodes[res].high
	b.freenum--
	b.produced++
	b.nodes[res] = n
	return res
}

// newLeaf allocates a terminal unconditionally (used only for the
// reserved 0/1 ids at construction time, where we must not consult the
// hash-cons table since it is still empty).
func (b *ADD) newLeaf(v float64) ID {
	id := b.allocate(addNode{level: b.varnum, leaf: true, value: v})
	b.leaves[v] = id
	b.leafIDs = append(b.leafIDs, id)
	return id
}

// GetConstantNode returns the canonical terminal for value v, within
// epsilon of any existing terminal (spec.md §4.1).
func (b *ADD) GetConstantNode(v float64) ID {
	if id, ok := b.leaves[v]; ok {
		return id
	}
	for _, id := range b.leafIDs {
		if closeEnoughEps(b.nodes[id].value, v, b.epsilon) {
			b.leaves[v] = id
			return id
		}
	}
	id := b.allocate(addNode{level: b.varnum, leaf: true, value: v})
	b.leaves[v] = id
	b.leafIDs = append(b.leafIDs, id)
	return id
}

// getInternal implements the reduction rule of spec.md §4.1: if
// low == high we return that child directly; otherwise we hash-cons on
// (level, low, high).
func (b *ADD) getInternal(level int32, low, high ID) ID {
	if low == high {
		return low
	}
	key := b.internalKey(level, low, high)
	if id, ok := b.unique[key]; ok {
		return id
	}
	id := b.allocate(addNode{level: level, low: low, high: high})
	b.unique[key] = id
	return id
}

// GetVarNode returns the indicator-like leaf-valued variable node for
// variable varID: lowVal when varID is false, highVal when true. If
// lowVal == highVal the result collapses to that constant, per
// spec.md §4.1.
func (b *ADD) GetVarNode(varID int32, lowVal, highVal float64) ID {
	level := b.levelOf(varID)
	if level < 0 {
		b.seterror(failf(ErrBadVariable, "variable %d not in declared order", varID))
		return b.GetConstantNode(0)
	}
	lo := b.GetConstantNode(lowVal)
	hi := b.GetConstantNode(highVal)
	return b.getInternal(level, lo, hi)
}

func (b *ADD) levelOf(varID int32) int32 {
	for i, v := range b.order {
		if v == varID {
			return int32(i)
		}
	}
	return -1
}

// checkID validates that n is a live node of this store.
func (b *ADD) checkID(n ID) error {
	if n < 0 || int(n) >= len(b.nodes) {
		return failf(ErrUnknownID, "%d", n)
	}
	if b.nodes[n].low == freeSlot && !b.nodes[n].leaf {
		return failf(ErrUnknownID, "%d (freed)", n)
	}
	return nil
}

// AddSpecialNode registers id as a root anchor, protecting it (and
// everything reachable from it) from FlushCaches. Registration is
// reference-counted: the same id may be added N times and must be
// removed N times (spec.md §3).
func (b *ADD) AddSpecialNode(id ID) {
	if err := b.checkID(id); err != nil {
		b.seterror(err)
		return
	}
	if b.special[id] < _MAXREFCOUNT {
		b.special[id]++
	}
}

// RemoveSpecialNode decrements id's root-anchor reference count.
func (b *ADD) RemoveSpecialNode(id ID) {
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

func (b *ADD) mark(n ID, marked map[ID]bool) {
	if n < 0 || marked[n] {
		return
	}
	marked[n] = true
	if !b.nodes[n].leaf {
		b.mark(b.nodes[n].low, marked)
		b.mark(b.nodes[n].high, marked)
	}
}

// FlushCaches garbage-collects every node that is not reachable from a
// special node, then empties the operation cache. If rebuildHashCons is
// set, the hash-cons table is rebuilt from the surviving nodes;
// otherwise the entries of the reclaimed nodes are removed from it and
// the rest are kept (spec.md §4.1/§4.4).
func (b *ADD) FlushCaches(rebuildHashCons bool) {
	marked := make(map[ID]bool, len(b.special)*2)
	for id := range b.special {
		b.mark(id, marked)
	}
	glog.V(1).Infof("dd/ADD: flush starting, %d nodes, %d special roots", len(b.nodes), len(b.special))
	for n := 2; n < len(b.nodes); n++ {
		if b.nodes[n].low == freeSlot && !b.nodes[n].leaf {
			continue
		}
		if marked[ID(n)] {
			continue
		}
		b.freeNode(ID(n))
	}
	b.flushCaches(rebuildHashCons)
	b.cache.flush()
	b.resetBoundsCache()
	glog.V(1).Infof("dd/ADD: flush done, %d free", b.freenum)
}

// flushCaches rebuilds the hash-cons tables from the live nodes when
// rebuild is set; FlushCaches calls it after its sweep, so only the
// survivors are indexed.
func (b *ADD) flushCaches(rebuild bool) {
	if rebuild {
		b.unique = make(map[[3]int64]ID)
		b.leaves = make(map[float64]ID)
		b.leafIDs = nil
		for n, node := range b.nodes {
			switch {
			case node.leaf:
				b.leaves[node.value] = ID(n)
				b.leafIDs = append(b.leafIDs, ID(n))
			case node.low != freeSlot:
				b.unique[b.internalKey(node.level, node.low, node.high)] = ID(n)
			}
		}
	}
}

func (b *ADD) freeNode(n ID) {
	node := b.nodes[n]
	if node.leaf {
		delete(b.leaves, node.value)
	} else {
		delete(b.unique, b.internalKey(node.level, node.low, node.high))
	}
	b.nodes[n] = addNode{low: freeSlot, high: b.freepos}
	b.freepos = n
	b.freenum++
}

func (b *ADD) resetBoundsCache() {
	b.minCache = make(map[ID]float64)
	b.maxCache = make(map[ID]float64)
}

// SetPruneInfo configures the approximation mode and maximum error used
// by subsequent calls to PruneNodes.
func (b *ADD) SetPruneInfo(mode PruneMode, maxError float64) {
	b.pruneMode = mode
	b.pruneErr = maxError
}

// Stats returns a short human-readable summary of the store's usage.
func (b *ADD) Stats() string {
	res := fmt.Sprintf("Allocated:  %d\n", len(b.nodes))
	res += fmt.Sprintf("Produced:   %d\n", b.produced)
	res += fmt.Sprintf("Free:       %d\n", b.freenum)
	res += fmt.Sprintf("Special:    %d\n", len(b.special))
	res += fmt.Sprintf("Cache hit:  %d  miss: %d\n", b.cache.hit, b.cache.miss)
	return res
}
