// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package cp

import (
	"github.com/GiovanniLoBianco/add-cp/dd"
)

// RestrictPropagator is the ADD variant of Propagator: instead of
// multiplying the root by a variable's indicator, it restricts the
// root directly to the instantiated branch. A single Restrict is
// cheaper than an indicator Apply and never increases the diagram's
// domain of dependent variables, at the cost of only applying to
// diagrams whose Restrict is exact — which holds for ADD, and is why
// this variant is kept separate from the AADD-oriented Propagator
// (propagator.go) rather than folded into it.
type RestrictPropagator struct {
	store dd.Store
	host  Host

	rootID       ID
	instantiated map[int32]bool
}

// NewRestrictPropagator anchors rootID as special and returns a
// RestrictPropagator ready to be driven by Propagate.
func NewRestrictPropagator(store dd.Store, host Host, rootID ID) *RestrictPropagator {
	store.AddSpecialNode(rootID)
	return &RestrictPropagator{
		store:        store,
		host:         host,
		rootID:       rootID,
		instantiated: make(map[int32]bool),
	}
}

func (p *RestrictPropagator) Propagate() error {
	if err := p.acknowledge(); err != nil {
		return err
	}
	return p.modify()
}

func (p *RestrictPropagator) acknowledge() error {
	for _, v := range p.host.Vars() {
		k := v.Index()
		if p.instantiated[k] || !v.IsInstantiated() {
			continue
		}
		mode := 0
		if v.Value() {
			mode = 1
		}
		newRoot, err := p.store.Restrict(p.rootID, k, mode)
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
	}
	return nil
}

func (p *RestrictPropagator) restorer(k int32, oldRoot, newRoot ID) Restorer {
	return RestorerFunc(func() {
		p.store.RemoveSpecialNode(newRoot)
		p.rootID = oldRoot
		delete(p.instantiated, k)
		p.store.FlushCaches(false)
	})
}

func (p *RestrictPropagator) modify() error {
	for _, v := range p.host.Vars() {
		k := v.Index()
		if v.IsInstantiated() {
			continue
		}
		trueBranch, err := p.store.Restrict(p.rootID, k, 1)
		if err != nil {
			return err
		}
		falseBranch, err := p.store.Restrict(p.rootID, k, 0)
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

func (p *RestrictPropagator) IsEntailed() Entailment {
	if p.store.GetMinValue(p.rootID) == 1 {
		return True
	}
	if p.store.GetMaxValue(p.rootID) == 0 {
		return False
	}
	return Undefined
}

func (p *RestrictPropagator) RootID() ID { return p.rootID }
