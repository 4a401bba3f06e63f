package graphstore

import "errors"

// Errors raised by Graph.Add / Graph.addLocal, mirroring the failure
// modes graph.rs's add_local enforces before it will link a node in.
// ErrMissingRoot is instead returned by Graph.Root and Graph.Walk on an
// empty graph, and by the dispatcher for a batch without a root.
var (
	ErrDuplicateTransaction = errors.New("graphstore: transaction already present")
	ErrRootAlreadyPresent   = errors.New("graphstore: a root transaction is already present")
	ErrMissingParent        = errors.New("graphstore: one or more previous transactions are not present")
	ErrMissingRoot          = errors.New("graphstore: graph has no root transaction yet")
)
