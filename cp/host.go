// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

// Package cp implements decision-diagram-backed propagators: constraint
// solver glue that keeps a diagram's root synchronized with the current
// instantiation of a set of Boolean variables, detects contradiction as
// soon as the diagram's range collapses to {0}, and forces variables
// whose remaining branch is infeasible.
package cp

// BoolVar is the subset of a CP solver's Boolean variable that a
// Propagator needs: its position in the diagram's declared order,
// whether it is currently fixed, and a way to fix it.
type BoolVar interface {
	Index() int32
	IsInstantiated() bool
	Value() bool
	ForceValue(v bool) error
}

// Trail lets a Propagator register undo actions that run when the host
// solver backtracks past the current choice point.
type Trail interface {
	Push(r Restorer)
}

// Restorer undoes one piece of propagator state on backtrack.
type Restorer interface {
	Undo()
}

// Host is the CP solver surface a Propagator is attached to.
type Host interface {
	Vars() []BoolVar
	Trail() Trail
}

// RestorerFunc adapts a plain function to Restorer.
type RestorerFunc func()

func (f RestorerFunc) Undo() { f() }
