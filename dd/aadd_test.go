// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package dd

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newOrderedAADD(n int) *AADD {
	order := make([]int32, n)
	for i := range order {
		order[i] = int32(i + 1)
	}
	return NewAADD(order)
}

func TestAADDConstantsReserved(t *testing.T) {
	b := newOrderedAADD(2)
	require.Equal(t, float64(0), b.valueOf(b.GetConstantNode(0)))
	require.Equal(t, float64(1), b.valueOf(b.GetConstantNode(1)))
}

func TestAADDRedundantNodeCollapses(t *testing.T) {
	b := newOrderedAADD(2)
	c := b.GetConstantNode(4)
	n := b.mk(0, c, c)
	require.Equal(t, c, n, "a node whose low and high references are identical must reduce away")
}

func TestAADDVarNodeBounds(t *testing.T) {
	b := newOrderedAADD(3)
	x1 := b.GetVarNode(1, 10, 20)
	require.Equal(t, float64(10), b.GetMinValue(x1))
	require.Equal(t, float64(20), b.GetMaxValue(x1))
}

func TestAADDSumOfIndicators(t *testing.T) {
	b := newOrderedAADD(5)
	f := b.GetConstantNode(0)
	b.AddSpecialNode(f)
	for i := int32(1); i <= 5; i++ {
		x := b.GetVarNode(i, 0, 1)
		next, err := b.ApplyInt(f, x, SUM)
		require.NoError(t, err)
		b.AddSpecialNode(next)
		b.RemoveSpecialNode(f)
		f = next
	}
	require.Equal(t, float64(0), b.GetMinValue(f))
	require.Equal(t, float64(5), b.GetMaxValue(f))
}

func TestAADDIsMoreCompactThanADD(t *testing.T) {
	addOrder := make([]int32, 5)
	for i := range addOrder {
		addOrder[i] = int32(i + 1)
	}
	add := NewADD(addOrder)
	af := add.GetConstantNode(0)
	add.AddSpecialNode(af)
	for i := int32(1); i <= 5; i++ {
		x := add.GetVarNode(i, 0, 1)
		next, err := add.ApplyInt(af, x, SUM)
		require.NoError(t, err)
		add.AddSpecialNode(next)
		add.RemoveSpecialNode(af)
		af = next
	}

	aadd := newOrderedAADD(5)
	bf := aadd.GetConstantNode(0)
	aadd.AddSpecialNode(bf)
	for i := int32(1); i <= 5; i++ {
		x := aadd.GetVarNode(i, 0, 1)
		next, err := aadd.ApplyInt(bf, x, SUM)
		require.NoError(t, err)
		aadd.AddSpecialNode(next)
		aadd.RemoveSpecialNode(bf)
		bf = next
	}

	require.LessOrEqual(t, aadd.CountExactNodes(bf), add.CountExactNodes(af),
		"affine edges should let the AADD encode at least as compactly as the ADD")
}

func TestAADDApplyAlgebra(t *testing.T) {
	b := newOrderedAADD(3)
	x1 := b.GetVarNode(1, 0, 1)
	x2 := b.GetVarNode(2, 2, 5)

	sum, err := b.ApplyInt(x1, x2, SUM)
	require.NoError(t, err)
	require.Equal(t, float64(2), b.GetMinValue(sum))
	require.Equal(t, float64(6), b.GetMaxValue(sum))

	diff, err := b.ApplyInt(x1, x1, MINUS)
	require.NoError(t, err)
	require.Equal(t, float64(0), b.GetMinValue(diff))
	require.Equal(t, float64(0), b.GetMaxValue(diff))
}

func TestAADDRestrict(t *testing.T) {
	b := newOrderedAADD(3)
	x1 := b.GetVarNode(1, 0, 1)
	x2 := b.GetVarNode(2, 10, 20)
	f, err := b.ApplyInt(x1, x2, SUM)
	require.NoError(t, err)

	r, err := b.Restrict(f, 1, 1)
	require.NoError(t, err)
	require.Equal(t, float64(11), b.GetMinValue(r))
	require.Equal(t, float64(21), b.GetMaxValue(r))
}

func TestAADDApplyCommutative(t *testing.T) {
	b := newOrderedAADD(3)
	f := b.GetVarNode(1, 2, 5)
	g := b.GetVarNode(2, 7, 11)

	fg, err := b.ApplyInt(f, g, SUM)
	require.NoError(t, err)
	gf, err := b.ApplyInt(g, f, SUM)
	require.NoError(t, err)
	require.Equal(t, fg, gf, "x+y and y+x must canonicalize to the same reference")
}

func TestAADDApplyAssociative(t *testing.T) {
	b := newOrderedAADD(3)
	f := b.GetVarNode(1, 1, 2)
	g := b.GetVarNode(2, 3, 5)
	h := b.GetVarNode(3, 7, 11)

	gh, err := b.ApplyInt(g, h, SUM)
	require.NoError(t, err)
	left, err := b.ApplyInt(f, gh, SUM)
	require.NoError(t, err)

	fg, err := b.ApplyInt(f, g, SUM)
	require.NoError(t, err)
	right, err := b.ApplyInt(fg, h, SUM)
	require.NoError(t, err)

	require.Equal(t, left, right, "(f+g)+h and f+(g+h) must canonicalize to the same reference")
}

func TestAADDApplyIdentity(t *testing.T) {
	b := newOrderedAADD(3)
	f := b.GetVarNode(1, 4, 9)

	sum, err := b.ApplyInt(f, b.GetConstantNode(0), SUM)
	require.NoError(t, err)
	require.Equal(t, f, sum, "f+0 must be f")

	prod, err := b.ApplyInt(f, b.GetConstantNode(1), PROD)
	require.NoError(t, err)
	require.Equal(t, f, prod, "f*1 must be f")
}

func TestAADDRestrictCommutesWithApply(t *testing.T) {
	b := newOrderedAADD(3)
	f := b.GetVarNode(1, 2, 3)
	g := b.GetVarNode(2, 4, 5)
	fg, err := b.ApplyInt(f, g, SUM)
	require.NoError(t, err)

	left, err := b.Restrict(fg, 1, 1)
	require.NoError(t, err)

	rf, err := b.Restrict(f, 1, 1)
	require.NoError(t, err)
	rg, err := b.Restrict(g, 1, 1)
	require.NoError(t, err)
	right, err := b.ApplyInt(rf, rg, SUM)
	require.NoError(t, err)

	require.Equal(t, left, right, "restrict(apply(f,g),v,c) must equal apply(restrict(f,v,c),restrict(g,v,c))")
}

func TestAADDFlushCachesKeepsOnlySpecial(t *testing.T) {
	b := newOrderedAADD(3)
	x1 := b.GetVarNode(1, 0, 1)
	x2 := b.GetVarNode(2, 0, 1)
	garbage, err := b.ApplyInt(x1, x2, SUM)
	require.NoError(t, err)
	require.NoError(t, b.checkID(garbage))

	b.FlushCaches(false)

	require.NoError(t, b.checkID(b.GetConstantNode(0)))
	require.NoError(t, b.checkID(b.GetConstantNode(1)))
	require.Error(t, b.checkID(garbage), "a reference unreachable from any special node must be reclaimed")
}
