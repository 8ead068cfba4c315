// Package diagram owns the block and wire collections of a block
// diagram and compiles them into an executable plan.
//
// Compile performs, in order: recursive subsystem flattening with deep
// copies, connectivity checks, zero-delay cycle detection (algebraic
// loops), level-grouped topological scheduling, global state layout,
// and a probe evaluation at t=0 that infers wire value widths. All
// structural errors are raised here, never mid-run.
package diagram
