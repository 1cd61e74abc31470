// Package ontology turns a flat relationship table into a validated concept
// tree and answers membership queries over it.
//
// Nodes are stored once, by id, in an arena. The tree is the set of
// parent->child edges between arena entries, so a node with several parents
// is reachable from each of them without being copied.
//
// # Building
//
//	rows, err := ontology.ReadTable(f)          // id, parent, name columns
//	tree, err := ontology.Build(rows,
//	    ontology.WithMeta(meta),
//	    ontology.WithCategories(ontology.CognitiveAtlasCategories()),
//	)
//
// Build validates the table before any assembly: a missing column yields a
// *SchemaError, a cycle yields a *CircularReferenceError naming both ids, and
// an id declared twice with different names yields a *DuplicateNodeError.
//
// # Queries
//
//	id, ok := tree.FindByName("RESPONSE_INHIBITION")
//	names := tree.CollectField(id, ontology.FieldName)
//
// All traversals use an explicit work list, so deep ontologies do not
// exhaust the goroutine stack.
package ontology
