package ontology

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a node id or name is not part of the tree.
	ErrNotFound = errors.New("node not found")

	// ErrNoRoot is returned when no node can anchor the tree.
	ErrNoRoot = errors.New("no root node")

	// ErrUnknownParent is returned when a row references a parent id that is
	// never declared.
	ErrUnknownParent = errors.New("unknown parent")
)

// SchemaError indicates that the relationship table lacks a required column.
type SchemaError struct {
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("column %s is missing from relationship table", e.Column)
}

// CircularReferenceError indicates that a node is its own ancestor.
//
// A and B are two ids on the offending cycle. For a node declared as its own
// parent both fields hold the same id.
type CircularReferenceError struct {
	A string
	B string
}

func (e *CircularReferenceError) Error() string {
	return fmt.Sprintf("circular reference between %s and %s", e.A, e.B)
}

// DuplicateNodeError indicates that one id was declared with several names.
type DuplicateNodeError struct {
	ID    string
	Names []string
}

func (e *DuplicateNodeError) Error() string {
	return fmt.Sprintf("node %s is defined with multiple names: %s", e.ID, strings.Join(e.Names, ", "))
}
