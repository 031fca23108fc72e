// Package dag models a build as a graph of actions.
//
// An Action is an opaque unit of work with an ordered list of predecessors.
// Actions are added to a Graph, which is frozen (validated for unknown
// dependencies and cycles) before it is scheduled. The topology never changes
// after Freeze; per-run state (status, artifact, pending dependency count)
// lives on the actions and is reset at the start of every run so the same
// graph can be scheduled again.
//
// The ReadyQueue holds actions whose predecessors are all Done. Work
// functions receive their predecessors' artifacts and a Pool through Inputs;
// an action that fans out sub-work submits Tasks to that Pool and waits for
// them without leaving the bounded worker pool.
//
// Graphs can also be described in YAML (Definition) and resolved against a
// Registry of named work functions:
//
//	def, err := dag.LoadFile("std.yaml")
//	g, err := dag.Resolve(def, registry, dag.NewFileLoader("graphs"))
package dag
