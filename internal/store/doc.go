// Package store provides the SQLite-backed translation journal.
//
// Every translation run through the CLI appends one record: the input tree
// in its S-expression form, the rendered SQL and parameter list, the result
// nullability, and the error code when translation failed. Records are
// append-only.
//
// # Ordering
//
//   - Every record carries a seq INTEGER from a logical clock
//   - All queries order by seq ASC, id ASC COLLATE BINARY, never by wall time
//
// # Identity
//
//   - Record IDs are UUIDv7 strings, so IDs sort roughly by creation time
//   - Writing the same ID twice is a no-op
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
package store
