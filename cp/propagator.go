// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package cp

import (
	"github.com/GiovanniLoBianco/add-cp/dd"
	"github.com/golang/glog"
)

// Propagator keeps a decision diagram's root in step with the
// instantiation of a set of Boolean variables, grounded on the
// acknowledge/modify split of the original DDPropagator: acknowledge
// folds newly-fixed variables into the root by multiplying in their
// indicator (or its complement), modify probes every still-free
// variable and forces it as soon as one branch would make the root
// identically zero.
type Propagator struct {
	store dd.Store
	host  Host

	rootID ID

	xNode         map[int32]ID
	oneMinusXNode map[int32]ID
	instantiated  map[int32]bool
}

// ID is a local alias so propagator signatures read without a dd.
// qualifier on every line; it is exactly dd.ID.
type ID = dd.ID

// NewPropagator builds the per-variable indicator nodes, registers them
// and rootID as special (so FlushCaches never reclaims them), and
// returns a Propagator ready to be driven by repeated calls to
// Propagate.
func NewPropagator(store dd.Store, host Host, rootID ID) *Propagator {
	p := &Propagator{
		store:         store,
		host:          host,
		rootID:        rootID,
		xNode:         make(map[int32]ID),
		oneMinusXNode: make(map[int32]ID),
		instantiated:  make(map[int32]bool),
	}
	for _, v := range host.Vars() {
		k := v.Index()
		p.xNode[k] = store.GetVarNode(k, 0, 1)
		p.oneMinusXNode[k] = store.GetVarNode(k, 1, 0)
		store.AddSpecialNode(p.xNode[k])
		store.AddSpecialNode(p.oneMinusXNode[k])
	}
	store.AddSpecialNode(rootID)
	return p
}

// Propagate runs one full acknowledge-then-modify cycle. It returns
// ErrContradiction as soon as the root's maximum collapses to zero.
func (p *Propagator) Propagate() error {
	if err := p.acknowledge(); err != nil {
		return err
	}
	return p.modify()
}

// acknowledge folds every variable that became instantiated since the
// last call into the root, one apply per variable, pushing a Restorer
// on the host's trail so backtracking undoes exactly that apply. The
// new root is anchored as special before the restorer is pushed, so it
// is never reclaimed between now and the matching Undo.
func (p *Propagator) acknowledge() error {
	for _, v := range p.host.Vars() {
		k := v.Index()
		if p.instantiated[k] || !v.IsInstantiated() {
			continue
		}
		factor := p.oneMinusXNode[k]
		if v.Value() {
			factor = p.xNode[k]
		}
		newRoot, err := p.store.ApplyInt(p.rootID, factor, dd.PROD)
		if err != nil {
			return err
		}
		if p.store.GetMaxValue(newRoot) == 0 {
			return ErrContradiction
		}
		oldRoot := p.rootID
		p.store.AddSpecialNode(newRoot)
		p.rootID = newRoot
		p.instantiated[k] = true
		p.host.Trail().Push(p.restorer(k, oldRoot, newRoot))
		glog.V(2).Infof("cp: acknowledged var %d=%v, root %d -> %d", k, v.Value(), oldRoot, newRoot)
	}
	return nil
}

func (p *Propagator) restorer(k int32, oldRoot, newRoot ID) Restorer {
	return RestorerFunc(func() {
		p.store.RemoveSpecialNode(newRoot)
		p.rootID = oldRoot
		delete(p.instantiated, k)
		p.store.FlushCaches(false)
	})
}

// modify probes every still-free variable: if multiplying the root by
// its indicator (resp. complement) would make the result identically
// zero, that branch is infeasible and the variable is forced to the
// other value. It ends with an unconditional FlushCaches(false), the
// same periodic cleanup the original's modify performs.
func (p *Propagator) modify() error {
	for _, v := range p.host.Vars() {
		k := v.Index()
		if v.IsInstantiated() {
			continue
		}
		trueBranch, err := p.store.ApplyInt(p.rootID, p.xNode[k], dd.PROD)
		if err != nil {
			return err
		}
		falseBranch, err := p.store.ApplyInt(p.rootID, p.oneMinusXNode[k], dd.PROD)
		if err != nil {
			return err
		}
		trueDead := p.store.GetMaxValue(trueBranch) == 0
		falseDead := p.store.GetMaxValue(falseBranch) == 0
		switch {
		case trueDead && falseDead:
			return ErrContradiction
		case trueDead:
			if err := v.ForceValue(false); err != nil {
				return err
			}
		case falseDead:
			if err := v.ForceValue(true); err != nil {
				return err
			}
		}
	}
	p.store.FlushCaches(false)
	return nil
}

// IsEntailed restricts the root to the values of the variables already
// folded into it and reports whether the result is identically one
// (True), identically zero (False), or neither yet (Undefined).
func (p *Propagator) IsEntailed() Entailment {
	r := p.rootID
	for _, v := range p.host.Vars() {
		if k := v.Index(); p.instantiated[k] {
			mode := 0
			if v.Value() {
				mode = 1
			}
			if next, err := p.store.Restrict(r, k, mode); err == nil {
				r = next
			}
		}
	}
	if p.store.GetMinValue(r) == 1 {
		return True
	}
	if p.store.GetMaxValue(r) == 0 {
		return False
	}
	return Undefined
}

// RootID returns the propagator's current root, mainly for tests and
// diagnostics.
func (p *Propagator) RootID() ID { return p.rootID }
