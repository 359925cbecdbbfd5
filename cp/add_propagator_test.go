// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package cp

import (
	"testing"

	"github.com/GiovanniLoBianco/add-cp/dd"
	"github.com/stretchr/testify/require"
)

// TestRestrictPropagatorMatchesApplyPropagator checks that the
// restrict-based variant (spec.md §4.6 "Alternative propagator") agrees
// with the double-apply shaving propagator on the same threshold
// constraint and instantiation sequence.
func TestRestrictPropagatorMatchesApplyPropagator(t *testing.T) {
	storeApply, fApply := sumIndicator(t, 5)
	gApply, err := storeApply.ApplyInt(fApply, storeApply.GetConstantNode(3), dd.GREATEREQ)
	require.NoError(t, err)

	storeRestrict, fRestrict := sumIndicator(t, 5)
	gRestrict, err := storeRestrict.ApplyInt(fRestrict, storeRestrict.GetConstantNode(3), dd.GREATEREQ)
	require.NoError(t, err)

	hostApply, rawApply := newFakeHost(5)
	hostRestrict, rawRestrict := newFakeHost(5)

	pApply := NewPropagator(storeApply, hostApply, gApply)
	pRestrict := NewRestrictPropagator(storeRestrict, hostRestrict, gRestrict)

	for i := 0; i < 3; i++ {
		rawApply[i].instantiate = true
		rawApply[i].value = true
		rawRestrict[i].instantiate = true
		rawRestrict[i].value = true
	}

	require.NoError(t, pApply.Propagate())
	require.NoError(t, pRestrict.Propagate())

	require.Equal(t, pApply.IsEntailed(), pRestrict.IsEntailed())
}

func TestRestrictPropagatorBacktrackRestoresState(t *testing.T) {
	store, f := sumIndicator(t, 3)
	host, raw := newFakeHost(3)
	p := NewRestrictPropagator(store, host, f)

	rootBefore := p.RootID()

	mark := host.trail.Mark()
	raw[0].instantiate = true
	raw[0].value = false
	require.NoError(t, p.Propagate())
	require.NotEqual(t, rootBefore, p.RootID())

	host.trail.Backtrack(mark)
	require.Equal(t, rootBefore, p.RootID())

	raw[0].instantiate = false
	require.NoError(t, p.Propagate())
	require.Equal(t, rootBefore, p.RootID())
}

func TestRestrictPropagatorContradiction(t *testing.T) {
	store, f := sumIndicator(t, 2)
	g, err := store.ApplyInt(f, store.GetConstantNode(5), dd.GREATEREQ)
	require.NoError(t, err)

	host, raw := newFakeHost(2)
	p := NewRestrictPropagator(store, host, g)
	raw[0].instantiate = true
	raw[0].value = true
	raw[1].instantiate = true
	raw[1].value = true
	err = p.Propagate()
	require.ErrorIs(t, err, ErrContradiction)
}
