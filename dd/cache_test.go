// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package dd

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanonicalKeyOrdersCommutativeOperands(t *testing.T) {
	a := canonicalKey(SUM, 5, 1, 0, 2, 1, 0)
	b := canonicalKey(SUM, 2, 1, 0, 5, 1, 0)
	require.Equal(t, a, b, "sum is commutative, so operand order must not affect the cache key")
}

func TestCanonicalKeyPreservesOperandOrderForNonCommutative(t *testing.T) {
	a := canonicalKey(MINUS, 5, 1, 0, 2, 1, 0)
	b := canonicalKey(MINUS, 2, 1, 0, 5, 1, 0)
	require.NotEqual(t, a, b, "subtraction is not commutative, operand order must be preserved")
}

func TestOpCacheHitAfterSet(t *testing.T) {
	c := newOpCache()
	k := canonicalKey(SUM, 1, 1, 0, 2, 1, 0)
	_, ok := c.get(k)
	require.False(t, ok)

	c.set(k, 42)
	v, ok := c.get(k)
	require.True(t, ok)
	require.Equal(t, ID(42), v)

	c.flush()
	_, ok = c.get(k)
	require.False(t, ok)
}
