// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

// Command dddemo walks through the arithmetic-decision-diagram
// construction, pruning and comparison session worked out by hand in
// the original demo: build the sum of five Boolean indicators, view
// it, derive a threshold indicator, and compare a pruned lower bound
// against a pruned upper bound.
package main

import (
	"flag"
	"fmt"

	"github.com/GiovanniLoBianco/add-cp/dd"
)

func main() {
	flag.Parse()

	order := make([]int32, 10)
	for i := range order {
		order[i] = int32(i + 1)
	}
	b := dd.NewADD(order)

	// f = x1 + x2 + x3 + x4 + x5
	f := b.GetConstantNode(0)
	b.AddSpecialNode(f)
	for i := int32(1); i <= 5; i++ {
		x := b.GetVarNode(i, 0, 1)
		next, err := b.ApplyInt(f, x, dd.SUM)
		if err != nil {
			fmt.Println("error building f:", err)
			return
		}
		b.AddSpecialNode(next)
		b.RemoveSpecialNode(f)
		f = next
	}

	fmt.Println("f = x1+x2+x3+x4+x5")
	fmt.Println(b.PrintNode(f))
	fmt.Printf("min=%g max=%g nodes=%d\n\n", b.GetMinValue(f), b.GetMaxValue(f), b.CountExactNodes(f))

	// g = I[f >= 3]
	three := b.GetConstantNode(3)
	g, err := b.ApplyInt(f, three, dd.GREATEREQ)
	if err != nil {
		fmt.Println("error building g:", err)
		return
	}
	b.AddSpecialNode(g)
	fmt.Println("g = I[f >= 3]")
	fmt.Printf("min=%g max=%g nodes=%d\n\n", b.GetMinValue(g), b.GetMaxValue(g), b.CountExactNodes(g))

	// Lower bound: prune f within error 2, replacing by the minimum of
	// each collapsed sub-diagram.
	b.SetPruneInfo(dd.PruneMin, 2)
	lower := b.PruneNodes(f)
	b.AddSpecialNode(lower)

	// Upper bound: same error budget, replacing by the maximum.
	b.SetPruneInfo(dd.PruneMax, 2)
	upper := b.PruneNodes(f)
	b.AddSpecialNode(upper)

	fmt.Printf("pruned lower bound: min=%g max=%g nodes=%d\n", b.GetMinValue(lower), b.GetMaxValue(lower), b.CountExactNodes(lower))
	fmt.Printf("pruned upper bound: min=%g max=%g nodes=%d\n\n", b.GetMinValue(upper), b.GetMaxValue(upper), b.CountExactNodes(upper))

	overRestricted := b.GetMinValue(lower) <= b.GetMinValue(f)
	overRelaxed := b.GetMaxValue(upper) >= b.GetMaxValue(f)
	fmt.Printf("lower bound is a true lower bound (over-restricted): %v\n", overRestricted)
	fmt.Printf("upper bound is a true upper bound (over-relaxed): %v\n", overRelaxed)

	fmt.Println()
	fmt.Println(b.Stats())
}
