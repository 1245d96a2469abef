// Package hclgraph loads a task graph from an HCL definition. Each node
// block names a registered callable and its arguments; other nodes are
// referenced as node.<id> expressions, which travel through HCL evaluation
// as capsule values and come out the other side as graph references rather
// than literals.
//
//	node "a" {
//	  call = "iota"
//	  args = [4]
//	}
//	node "b" {
//	  call = "sum"
//	  args = [node.a]
//	}
//	outputs = ["b"]
package hclgraph
