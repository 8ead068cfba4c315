// Package block provides the core primitives of the block-diagram engine.
//
// The package defines the fundamental types every diagram is built from:
//
//   - [Signal]: vector value carried by one port (scalars have width 1)
//   - [Block]: common contract of all blocks, with capability interfaces
//     [Continuous], [Discrete], [Stepper] and [EventSource] layered on top
//   - [Plug]: addresses a port or a port slice on a block for wiring
//   - [Clock]: periodic source of discrete-time update instants
//
// # Capability model
//
// A block's [Kind] determines which capability interfaces it implements:
// Source and Function blocks only have Output, Transfer blocks add a
// continuous state and Derivative, Clocked blocks add a discrete state
// updated by Next at clock ticks, and Sink blocks perform side effects
// through Step.
package block
