// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

/*
Package dd implements reduced, ordered decision diagrams over a fixed
Boolean variable order: Algebraic Decision Diagrams (ADD), whose leaves
are real numbers, and Affine ADD (AADD), whose edges carry an affine
transform so that isomorphic sub-functions canonicalize modulo a scale
and offset.

Basics

Both diagram kinds are built against a fixed variable order, declared
once with NewADD or NewAADD. Each variable occupies an (integer) position in that
order, called its level; internal nodes must only point to children at
a strictly higher level than their own, and terminals sit beyond every
declared level.

Most operations return an ID, an opaque handle into the store's node
arena. Two ids are equal exactly when they root the same sub-function
(for ADD, exact identifier equality implies exact function equality; for
AADD, equality holds modulo the affine factors carried on the reference
used to reach a node).

Root lifetime

There is no tracing collector: a node survives FlushCaches only if it
is reachable from a node registered with AddSpecialNode. Callers must
register every root they intend to keep across a flush and unregister
it once it is no longer needed; registration is reference counted, so
the same id may be registered more than once.
*/
package dd
