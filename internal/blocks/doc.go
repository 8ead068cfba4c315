// Package blocks provides the built-in block catalog and the fluent
// Builder used to assemble diagrams in code.
//
// Every block here is an ordinary leaf computation behind the uniform
// contract of package block; the engine never special-cases any of
// them. Register wires the whole catalog into a registry so the schema
// loader and the CLI can instantiate blocks by type name.
package blocks
