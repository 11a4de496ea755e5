// Package sqlexpr defines the typed SQL expression tree that query
// translation builds, infers and rewrites.
//
// Expression is a sealed interface: only types in this package implement
// it, so passes over the tree (type inference in sqlfactory, nullability in
// nullability, rendering in sqlgen) are exhaustive type switches. Kinds
// enumerates every variant; each pass has a test walking that list so a new
// variant cannot be added without every pass handling it.
//
// Two groups of variants exist:
//
//   - relational nodes the backend nodes are embedded in: Column, Constant,
//     Parameter, Unary, Binary, Like, Function, Case
//   - PostgreSQL nodes: Any, All, ArrayIndex, PgBinary, ILike, NewArray,
//     RegexMatch, JsonTraversal, UnknownBinary
//
// Nodes are immutable after construction. Rewrites go through Update, which
// returns the receiver itself when every child is unchanged, so unchanged
// subtrees are shared between the input and output of a pass:
//
//	updated := any.Update(item, array)
//	if updated == any { /* nothing changed */ }
//
// Every node carries its host result type and, once the factory resolved
// it, a type mapping. A nil TypeMapping after factory construction means
// inference failed and rendering must fail rather than guess.
package sqlexpr
